package seismic

import "time"

// Event describes a seismic source for one preparation run.
type Event struct {
	Name      string
	Time      float64
	Latitude  float64
	Longitude float64
	Depth     float64
	Magnitude float64
}

// OriginTime converts the epoch origin time to a UTC time value.
func (e Event) OriginTime() time.Time {
	return EpochToTime(e.Time)
}

// EpochToTime converts fractional epoch seconds to UTC.
func EpochToTime(t float64) time.Time {
	sec := int64(t)
	if float64(sec) > t {
		sec--
	}
	nsec := int64((t - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).UTC()
}

// TimeToEpoch converts a time value to fractional epoch seconds.
func TimeToEpoch(t time.Time) float64 {
	return float64(t.Unix()) + float64(t.Nanosecond())/1e9
}

package seismic

import (
	"fmt"
	"strings"
)

// NSL identifies a sensor by network, station, and location code.
type NSL struct {
	Network  string
	Station  string
	Location string
}

// String renders the key as NET.STA.LOC.
func (k NSL) String() string {
	return k.Network + "." + k.Station + "." + k.Location
}

// NS drops the location code, leaving the physical station.
func (k NSL) NS() NS {
	return NS{Network: k.Network, Station: k.Station}
}

// Compare orders keys lexically by network, station, then location.
func (k NSL) Compare(other NSL) int {
	if c := strings.Compare(k.Network, other.Network); c != 0 {
		return c
	}
	if c := strings.Compare(k.Station, other.Station); c != 0 {
		return c
	}
	return strings.Compare(k.Location, other.Location)
}

// NS identifies a physical station regardless of sensor location.
type NS struct {
	Network string
	Station string
}

// NSLC identifies a single recording channel.
type NSLC struct {
	Network  string
	Station  string
	Location string
	Channel  string
}

// String renders the key as NET.STA.LOC.CHA.
func (k NSLC) String() string {
	return k.Network + "." + k.Station + "." + k.Location + "." + k.Channel
}

// NSL returns the sensor part of the channel key.
func (k NSLC) NSL() NSL {
	return NSL{Network: k.Network, Station: k.Station, Location: k.Location}
}

// ParseNSLC splits a dotted NET.STA.LOC.CHA code. Empty location codes are
// allowed ("GE.APE..BHZ").
func ParseNSLC(code string) (NSLC, error) {
	parts := strings.Split(strings.TrimSpace(code), ".")
	if len(parts) != 4 {
		return NSLC{}, fmt.Errorf("channel code %q: want 4 dot-separated parts, got %d", code, len(parts))
	}
	return NSLC{Network: parts[0], Station: parts[1], Location: parts[2], Channel: parts[3]}, nil
}

// ParseNSL splits a dotted NET.STA.LOC code.
func ParseNSL(code string) (NSL, error) {
	parts := strings.Split(strings.TrimSpace(code), ".")
	if len(parts) != 3 {
		return NSL{}, fmt.Errorf("station code %q: want 3 dot-separated parts, got %d", code, len(parts))
	}
	return NSL{Network: parts[0], Station: parts[1], Location: parts[2]}, nil
}

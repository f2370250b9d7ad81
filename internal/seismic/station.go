package seismic

// Channel describes one recording component of a station and how its raw
// counts map to ground motion.
type Channel struct {
	Name     string
	Azimuth  float64
	Dip      float64
	Gain     float64
	Response string
}

// Station is a sensor site with its geometry relative to the current event.
type Station struct {
	Network     string
	Station     string
	Location    string
	Latitude    float64
	Longitude   float64
	Elevation   float64
	Depth       float64
	Distance    float64
	Azimuth     float64
	Backazimuth float64
	Channels    []Channel
}

// NSL returns the station key.
func (s *Station) NSL() NSL {
	return NSL{Network: s.Network, Station: s.Station, Location: s.Location}
}

// Channel looks up a channel by name.
func (s *Station) Channel(name string) (Channel, bool) {
	for _, ch := range s.Channels {
		if ch.Name == name {
			return ch, true
		}
	}
	return Channel{}, false
}

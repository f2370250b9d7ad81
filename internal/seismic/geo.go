package seismic

import "math"

// EarthRadius is the mean radius used for great-circle geometry, in meters.
const EarthRadius = 6371000.0

// DistanceAzimuth returns the great-circle distance in meters from the
// source at (lat1, lon1) to the receiver at (lat2, lon2), the azimuth from
// source to receiver, and the back-azimuth from receiver to source, both in
// degrees clockwise from north.
func DistanceAzimuth(lat1, lon1, lat2, lon2 float64) (dist, azimuth, backazimuth float64) {
	phi1, phi2 := radians(lat1), radians(lat2)
	dlambda := radians(lon2 - lon1)

	a := math.Sin((phi2-phi1)/2)*math.Sin((phi2-phi1)/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dlambda/2)*math.Sin(dlambda/2)
	dist = 2 * EarthRadius * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	azimuth = bearing(phi1, phi2, dlambda)
	backazimuth = bearing(phi2, phi1, -dlambda)
	return dist, azimuth, backazimuth
}

// Locate fills in distance, azimuth, and back-azimuth of a station relative
// to the event.
func Locate(st *Station, ev Event) {
	st.Distance, st.Azimuth, st.Backazimuth = DistanceAzimuth(ev.Latitude, ev.Longitude, st.Latitude, st.Longitude)
}

func bearing(phi1, phi2, dlambda float64) float64 {
	y := math.Sin(dlambda) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(dlambda)
	deg := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(deg+360, 360)
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

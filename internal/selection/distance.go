package selection

import "fmt"

// Bound names which side of a distance range was violated.
type Bound string

const (
	BoundMin Bound = "min"
	BoundMax Bound = "max"
)

// Violation describes a station outside the operating distance range.
type Violation struct {
	Bound    Bound
	Distance float64
	Limit    float64
}

func (v Violation) String() string {
	if v.Bound == BoundMin {
		return fmt.Sprintf("too close to the source (distance = %g m, limit = %g m)", v.Distance, v.Limit)
	}
	return fmt.Sprintf("too far from the source (distance = %g m, limit = %g m)", v.Distance, v.Limit)
}

// DistanceRange is an inclusive source-receiver distance window in meters.
// Either bound may be nil.
type DistanceRange struct {
	Min *float64
	Max *float64
}

// Check reports whether distance lies within the range. On rejection the
// violated bound is returned.
func (r DistanceRange) Check(distance float64) (Violation, bool) {
	if r.Min != nil && distance < *r.Min {
		return Violation{Bound: BoundMin, Distance: distance, Limit: *r.Min}, false
	}
	if r.Max != nil && distance > *r.Max {
		return Violation{Bound: BoundMax, Distance: distance, Limit: *r.Max}, false
	}
	return Violation{}, true
}

// Unbounded reports whether the range accepts every distance.
func (r DistanceRange) Unbounded() bool {
	return r.Min == nil && r.Max == nil
}

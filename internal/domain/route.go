package domain

import "time"

// Represents a fixed collection job.
// A Route is immutable reference data: the waste category it collects and its
// length in kilometres. One Route is executed at most once per calendar day.
type Route struct {
	RouteID       int
	WasteCategory string
	LengthKm      float64
}

// Duration returns the travel time of the route at the given average speed,
// truncated to whole seconds.
func (r Route) Duration(speedKmh float64) time.Duration {
	seconds := int64(3600 * (r.LengthKm / speedKmh))
	return time.Duration(seconds) * time.Second
}

// Window returns the interval the route occupies when started at start.
func (r Route) Window(start time.Time, speedKmh float64) Interval {
	return Interval{Start: start, End: start.Add(r.Duration(speedKmh))}
}

package domain

import "time"

// Half-open time window used for conflict detection between Assignments.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Widen the interval by d on both sides.
func (i Interval) Buffered(d time.Duration) Interval {
	return Interval{Start: i.Start.Add(-d), End: i.End.Add(d)}
}

// Overlaps reports whether the two windows intersect (start1 < end2 and start2 < end1).
func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && o.Start.Before(i.End)
}

func (i Interval) Duration() time.Duration { return i.End.Sub(i.Start) }

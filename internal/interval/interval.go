// Package interval provides half-open time interval arithmetic shared by the
// conflict detector, availability resolver and slot suggestion engine.
package interval

import "time"

// Interval is a half-open time range [Start, End). The end instant is
// excluded, so two intervals that touch at an endpoint do not overlap.
type Interval struct {
	Start time.Time
	End   time.Time
}

// New returns the interval [start, end).
func New(start, end time.Time) Interval {
	return Interval{Start: start, End: end}
}

// IsValid reports whether the interval has a positive duration.
func (iv Interval) IsValid() bool {
	return !iv.Start.IsZero() && !iv.End.IsZero() && iv.Start.Before(iv.End)
}

// Duration returns End minus Start.
func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// Overlaps reports whether a and b intersect. Touching endpoints do not
// count as overlap.
func Overlaps(a, b Interval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// Contains reports whether inner lies fully within outer. Equal endpoints
// are permitted.
func Contains(outer, inner Interval) bool {
	return !inner.Start.Before(outer.Start) && !inner.End.After(outer.End)
}

// WithBuffer expands both ends of the interval symmetrically by the given
// number of minutes. Non-positive buffers return the interval unchanged.
func WithBuffer(iv Interval, bufferMinutes int) Interval {
	if bufferMinutes <= 0 {
		return iv
	}
	pad := time.Duration(bufferMinutes) * time.Minute
	return Interval{Start: iv.Start.Add(-pad), End: iv.End.Add(pad)}
}

// Shift moves the interval forward by delta, preserving its duration.
// Negative deltas move it backward.
func Shift(iv Interval, delta time.Duration) Interval {
	return Interval{Start: iv.Start.Add(delta), End: iv.End.Add(delta)}
}

// Merge collapses overlapping or touching intervals in the input into an
// ordered, disjoint list. The input is not modified.
func Merge(intervals []Interval) []Interval {
	if len(intervals) <= 1 {
		out := make([]Interval, len(intervals))
		copy(out, intervals)
		return out
	}

	sorted := make([]Interval, len(intervals))
	copy(sorted, intervals)
	sortIntervals(sorted)

	merged := make([]Interval, 0, len(sorted))
	current := sorted[0]
	for _, next := range sorted[1:] {
		if !next.Start.After(current.End) {
			if next.End.After(current.End) {
				current.End = next.End
			}
			continue
		}
		merged = append(merged, current)
		current = next
	}
	merged = append(merged, current)
	return merged
}

func sortIntervals(intervals []Interval) {
	for i := 1; i < len(intervals); i++ {
		for j := i; j > 0 && intervals[j].Start.Before(intervals[j-1].Start); j-- {
			intervals[j], intervals[j-1] = intervals[j-1], intervals[j]
		}
	}
}

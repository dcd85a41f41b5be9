package scheduler

import (
	"time"

	"github.com/example/firm-scheduler/internal/interval"
)

// Window is a recurring weekly open range for a user, expressed as minutes
// from midnight on the given weekday. Multiple windows per weekday model
// split shifts.
type Window struct {
	UserID      string
	Weekday     time.Weekday
	StartMinute int
	EndMinute   int
}

// ExceptionKind classifies a date-specific availability override.
type ExceptionKind string

const (
	// ExceptionBlockDay marks the user unavailable for the whole date.
	ExceptionBlockDay ExceptionKind = "block_day"
	// ExceptionBlockRange removes a time range from the open set.
	ExceptionBlockRange ExceptionKind = "block_range"
	// ExceptionOpenRange declares a time range open, replacing the
	// recurring pattern for that date.
	ExceptionOpenRange ExceptionKind = "open_range"
)

// Exception overrides the recurring pattern for one specific date.
// Exceptions always take precedence over windows.
type Exception struct {
	UserID      string
	Date        time.Time
	Kind        ExceptionKind
	StartMinute int
	EndMinute   int
}

// ResolveDay computes the ordered open intervals for a user on the given
// date. A full-day block short-circuits to an empty result. Any ranged
// exception discards the recurring pattern for that date: the open set
// becomes the union of open-range exceptions minus block-range exceptions.
// Otherwise the union of that weekday's windows applies.
func ResolveDay(windows []Window, exceptions []Exception, date time.Time) []interval.Interval {
	midnight := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)

	ranged := make([]Exception, 0)
	for _, exc := range exceptions {
		if !sameDate(exc.Date, midnight) {
			continue
		}
		if exc.Kind == ExceptionBlockDay {
			return nil
		}
		ranged = append(ranged, exc)
	}

	var open []interval.Interval
	if len(ranged) > 0 {
		adds := make([]interval.Interval, 0, len(ranged))
		blocks := make([]interval.Interval, 0, len(ranged))
		for _, exc := range ranged {
			iv := minuteRange(midnight, exc.StartMinute, exc.EndMinute)
			if !iv.IsValid() {
				continue
			}
			switch exc.Kind {
			case ExceptionOpenRange:
				adds = append(adds, iv)
			case ExceptionBlockRange:
				blocks = append(blocks, iv)
			}
		}
		open = subtract(interval.Merge(adds), interval.Merge(blocks))
	} else {
		ranges := make([]interval.Interval, 0, len(windows))
		for _, w := range windows {
			if w.Weekday != midnight.Weekday() {
				continue
			}
			iv := minuteRange(midnight, w.StartMinute, w.EndMinute)
			if iv.IsValid() {
				ranges = append(ranges, iv)
			}
		}
		open = interval.Merge(ranges)
	}

	if len(open) == 0 {
		return nil
	}
	return open
}

// FitsWithin reports whether the candidate is fully contained in a single
// open window. Partial overlap with an open window counts as unavailable:
// the point is to protect declared working boundaries.
func FitsWithin(open []interval.Interval, candidate interval.Interval) bool {
	if !candidate.IsValid() {
		return false
	}
	for _, window := range open {
		if interval.Contains(window, candidate) {
			return true
		}
	}
	return false
}

func minuteRange(midnight time.Time, startMinute, endMinute int) interval.Interval {
	return interval.New(
		midnight.Add(time.Duration(startMinute)*time.Minute),
		midnight.Add(time.Duration(endMinute)*time.Minute),
	)
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

// subtract removes the blocked ranges from the open set. Both inputs must
// be merged and ordered.
func subtract(open, blocks []interval.Interval) []interval.Interval {
	if len(blocks) == 0 {
		return open
	}

	result := make([]interval.Interval, 0, len(open))
	for _, window := range open {
		remaining := []interval.Interval{window}
		for _, block := range blocks {
			next := make([]interval.Interval, 0, len(remaining))
			for _, piece := range remaining {
				if !interval.Overlaps(piece, block) {
					next = append(next, piece)
					continue
				}
				if block.Start.After(piece.Start) {
					next = append(next, interval.New(piece.Start, block.Start))
				}
				if block.End.Before(piece.End) {
					next = append(next, interval.New(block.End, piece.End))
				}
			}
			remaining = next
		}
		result = append(result, remaining...)
	}

	if len(result) == 0 {
		return nil
	}
	return result
}

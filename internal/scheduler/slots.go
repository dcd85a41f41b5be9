package scheduler

import (
	"time"

	"github.com/example/firm-scheduler/internal/interval"
)

// SlotParams configures a slot suggestion search over one day.
type SlotParams struct {
	Duration      time.Duration
	Day           time.Time
	StartHour     int
	EndHour       int
	BufferMinutes int
	Count         int

	OrganizerID string
	StaffIDs    []string
	ClientIDs   []string
	RoomID      *string
}

// SuggestSlots walks the day from StartHour to EndHour in duration-sized
// steps, so returned slots never overlap each other. Each candidate is
// padded with the buffer and must clear the conflict detector against
// existing events and fit inside every user's resolved open windows in
// openByUser. The search collects up to Count slots and stops when the
// window closes; a short or empty result is a valid answer, never an error.
func SuggestSlots(existing []Event, openByUser map[string][]interval.Interval, p SlotParams) []interval.Interval {
	if p.Count <= 0 || p.Duration <= 0 || p.EndHour <= p.StartHour {
		return nil
	}

	day := time.Date(p.Day.Year(), p.Day.Month(), p.Day.Day(), 0, 0, 0, 0, time.UTC)
	cursor := day.Add(time.Duration(p.StartHour) * time.Hour)
	closing := day.Add(time.Duration(p.EndHour) * time.Hour)

	slots := make([]interval.Interval, 0, p.Count)
	for len(slots) < p.Count {
		candidate := interval.New(cursor, cursor.Add(p.Duration))
		if candidate.End.After(closing) {
			break
		}

		padded := interval.WithBuffer(candidate, p.BufferMinutes)
		if slotIsFree(existing, openByUser, padded, p) {
			slots = append(slots, candidate)
		}

		cursor = cursor.Add(p.Duration)
	}

	if len(slots) == 0 {
		return nil
	}
	return slots
}

func slotIsFree(existing []Event, openByUser map[string][]interval.Interval, padded interval.Interval, p SlotParams) bool {
	probe := Event{
		OrganizerID: p.OrganizerID,
		StaffIDs:    p.StaffIDs,
		ClientIDs:   p.ClientIDs,
		RoomID:      p.RoomID,
		Interval:    padded,
	}
	if len(DetectConflicts(existing, probe)) > 0 {
		return false
	}

	for _, open := range openByUser {
		if !FitsWithin(open, padded) {
			return false
		}
	}
	return true
}

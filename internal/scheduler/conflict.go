// Package scheduler contains the pure search and detection logic of the
// scheduling engine: conflict detection, availability resolution and slot
// suggestion. It has no persistence or transport dependencies; callers load
// the relevant state and pass it in.
package scheduler

import (
	"sort"

	"github.com/example/firm-scheduler/internal/interval"
)

// Event is the scheduler's view of a calendar event. Staff and client
// participants both take part in the overlap check; only staff are subject
// to availability checks.
type Event struct {
	ID          string
	Title       string
	OrganizerID string
	StaffIDs    []string
	ClientIDs   []string
	RoomID      *string
	Interval    interval.Interval
	Cancelled   bool
}

// Participants returns the union of organizer, staff and client ids.
func (e Event) Participants() []string {
	seen := make(map[string]struct{}, 1+len(e.StaffIDs)+len(e.ClientIDs))
	out := make([]string, 0, 1+len(e.StaffIDs)+len(e.ClientIDs))
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	add(e.OrganizerID)
	for _, id := range e.StaffIDs {
		add(id)
	}
	for _, id := range e.ClientIDs {
		add(id)
	}
	return out
}

// EventConflict describes one existing event that overlaps the candidate,
// with the participants shared between the two.
type EventConflict struct {
	EventID        string
	Title          string
	Interval       interval.Interval
	ParticipantIDs []string
	RoomID         *string
}

// DetectConflicts reports every non-cancelled existing event whose interval
// overlaps the candidate's and that shares at least one participant or the
// same room. The candidate's own id is always excluded so an event can be
// re-checked against the store while it is being edited.
func DetectConflicts(existing []Event, candidate Event) []EventConflict {
	if !candidate.Interval.IsValid() {
		return nil
	}

	candidateSet := make(map[string]struct{})
	for _, id := range candidate.Participants() {
		candidateSet[id] = struct{}{}
	}

	conflicts := make([]EventConflict, 0)
	for _, event := range existing {
		if event.Cancelled {
			continue
		}
		if candidate.ID != "" && event.ID == candidate.ID {
			continue
		}
		if !interval.Overlaps(event.Interval, candidate.Interval) {
			continue
		}

		shared := sharedParticipants(candidateSet, event)
		sameRoom := candidate.RoomID != nil && event.RoomID != nil && *candidate.RoomID == *event.RoomID

		if len(shared) == 0 && !sameRoom {
			continue
		}

		conflict := EventConflict{
			EventID:        event.ID,
			Title:          event.Title,
			Interval:       event.Interval,
			ParticipantIDs: shared,
		}
		if sameRoom {
			roomID := *event.RoomID
			conflict.RoomID = &roomID
		}
		conflicts = append(conflicts, conflict)
	}

	return conflicts
}

func sharedParticipants(candidateSet map[string]struct{}, event Event) []string {
	shared := make([]string, 0)
	for _, id := range event.Participants() {
		if _, ok := candidateSet[id]; ok {
			shared = append(shared, id)
		}
	}
	sort.Strings(shared)
	if len(shared) == 0 {
		return nil
	}
	return shared
}

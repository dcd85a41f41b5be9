package scheduler

import (
	"testing"
	"time"

	"github.com/example/firm-scheduler/internal/interval"
)

func tuesday(t *testing.T, hour, min int) time.Time {
	t.Helper()
	return time.Date(2025, 6, 3, hour, min, 0, 0, time.UTC)
}

func TestDetectConflicts_ParticipantOverlap(t *testing.T) {
	t.Parallel()

	existing := []Event{{
		ID:          "evt-1",
		Title:       "Client intake",
		OrganizerID: "user-1",
		Interval:    interval.New(tuesday(t, 14, 0), tuesday(t, 15, 0)),
	}}

	candidate := Event{
		OrganizerID: "user-1",
		Interval:    interval.New(tuesday(t, 14, 30), tuesday(t, 15, 30)),
	}

	conflicts := DetectConflicts(existing, candidate)
	if len(conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %d", len(conflicts))
	}
	if conflicts[0].EventID != "evt-1" {
		t.Fatalf("expected conflict with evt-1, got %s", conflicts[0].EventID)
	}
	if len(conflicts[0].ParticipantIDs) != 1 || conflicts[0].ParticipantIDs[0] != "user-1" {
		t.Fatalf("expected shared participant user-1, got %v", conflicts[0].ParticipantIDs)
	}
}

func TestDetectConflicts_TouchingBoundaryIsNotConflict(t *testing.T) {
	t.Parallel()

	existing := []Event{{
		ID:          "evt-1",
		OrganizerID: "user-1",
		Interval:    interval.New(tuesday(t, 14, 0), tuesday(t, 15, 0)),
	}}

	candidate := Event{
		OrganizerID: "user-1",
		Interval:    interval.New(tuesday(t, 15, 0), tuesday(t, 16, 0)),
	}

	if conflicts := DetectConflicts(existing, candidate); len(conflicts) != 0 {
		t.Fatalf("touching boundary should not conflict, got %v", conflicts)
	}
}

func TestDetectConflicts_SkipsCancelledAndSelf(t *testing.T) {
	t.Parallel()

	existing := []Event{
		{
			ID:          "evt-cancelled",
			OrganizerID: "user-1",
			Interval:    interval.New(tuesday(t, 14, 0), tuesday(t, 15, 0)),
			Cancelled:   true,
		},
		{
			ID:          "evt-self",
			OrganizerID: "user-1",
			Interval:    interval.New(tuesday(t, 14, 0), tuesday(t, 15, 0)),
		},
	}

	candidate := Event{
		ID:          "evt-self",
		OrganizerID: "user-1",
		Interval:    interval.New(tuesday(t, 14, 0), tuesday(t, 15, 0)),
	}

	if conflicts := DetectConflicts(existing, candidate); len(conflicts) != 0 {
		t.Fatalf("cancelled events and the candidate itself must be excluded, got %v", conflicts)
	}
}

func TestDetectConflicts_ClientParticipantsCountForOverlap(t *testing.T) {
	t.Parallel()

	existing := []Event{{
		ID:          "evt-1",
		OrganizerID: "staff-1",
		ClientIDs:   []string{"client-1"},
		Interval:    interval.New(tuesday(t, 10, 0), tuesday(t, 11, 0)),
	}}

	candidate := Event{
		OrganizerID: "staff-2",
		ClientIDs:   []string{"client-1"},
		Interval:    interval.New(tuesday(t, 10, 30), tuesday(t, 11, 30)),
	}

	conflicts := DetectConflicts(existing, candidate)
	if len(conflicts) != 1 {
		t.Fatalf("expected client double-booking to be reported, got %d conflicts", len(conflicts))
	}
	if conflicts[0].ParticipantIDs[0] != "client-1" {
		t.Fatalf("expected shared participant client-1, got %v", conflicts[0].ParticipantIDs)
	}
}

func TestDetectConflicts_RoomDoubleBooking(t *testing.T) {
	t.Parallel()

	room := "room-a"
	existing := []Event{{
		ID:          "evt-1",
		OrganizerID: "user-1",
		RoomID:      &room,
		Interval:    interval.New(tuesday(t, 9, 0), tuesday(t, 10, 0)),
	}}

	candidate := Event{
		OrganizerID: "user-2",
		RoomID:      &room,
		Interval:    interval.New(tuesday(t, 9, 30), tuesday(t, 10, 30)),
	}

	conflicts := DetectConflicts(existing, candidate)
	if len(conflicts) != 1 {
		t.Fatalf("expected room conflict, got %d", len(conflicts))
	}
	if conflicts[0].RoomID == nil || *conflicts[0].RoomID != room {
		t.Fatalf("expected room id %q on conflict, got %v", room, conflicts[0].RoomID)
	}
}

func TestDetectConflicts_DisjointParticipantsNoConflict(t *testing.T) {
	t.Parallel()

	existing := []Event{{
		ID:          "evt-1",
		OrganizerID: "user-1",
		StaffIDs:    []string{"user-2"},
		Interval:    interval.New(tuesday(t, 14, 0), tuesday(t, 15, 0)),
	}}

	candidate := Event{
		OrganizerID: "user-3",
		StaffIDs:    []string{"user-4"},
		Interval:    interval.New(tuesday(t, 14, 0), tuesday(t, 15, 0)),
	}

	if conflicts := DetectConflicts(existing, candidate); len(conflicts) != 0 {
		t.Fatalf("disjoint participants should not conflict, got %v", conflicts)
	}
}

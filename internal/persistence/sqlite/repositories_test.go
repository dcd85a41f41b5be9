package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/firm-scheduler/internal/persistence"
	"github.com/example/firm-scheduler/internal/testfixtures"
)

func TestEventRepository_RoundTrip(t *testing.T) {
	t.Parallel()

	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	event := testfixtures.NewEventFixture(
		testfixtures.WithEventParticipants([]string{"staff-001", "staff-002"}, []string{"client-001"}),
		testfixtures.WithEventRoom("room-a"),
		testfixtures.WithEventExternalRef("google", "ext-1"),
	)
	if err := harness.Events.CreateEvent(ctx, event); err != nil {
		t.Fatalf("CreateEvent returned error: %v", err)
	}

	stored, err := harness.Events.GetEvent(ctx, event.FirmID, event.ID)
	if err != nil {
		t.Fatalf("GetEvent returned error: %v", err)
	}

	if stored.Title != event.Title || !stored.Start.Equal(event.Start) || !stored.End.Equal(event.End) {
		t.Fatalf("unexpected stored event %+v", stored)
	}
	if len(stored.StaffIDs) != 2 || len(stored.ClientIDs) != 1 {
		t.Fatalf("unexpected participants %+v / %+v", stored.StaffIDs, stored.ClientIDs)
	}
	if stored.RoomID == nil || *stored.RoomID != "room-a" {
		t.Fatalf("expected room-a, got %v", stored.RoomID)
	}
	if stored.External == nil || stored.External.EventID != "ext-1" {
		t.Fatalf("expected external ref preserved, got %v", stored.External)
	}
}

func TestEventRepository_DuplicateIDRejected(t *testing.T) {
	t.Parallel()

	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	event := testfixtures.NewEventFixture()
	if err := harness.Events.CreateEvent(ctx, event); err != nil {
		t.Fatalf("CreateEvent returned error: %v", err)
	}

	if err := harness.Events.CreateEvent(ctx, event); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestEventRepository_GetMissingReturnsNotFound(t *testing.T) {
	t.Parallel()

	harness := testfixtures.NewSQLiteHarness(t)

	_, err := harness.Events.GetEvent(context.Background(), testfixtures.DefaultFirmID, "ghost")
	if !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestEventRepository_ListFilters(t *testing.T) {
	t.Parallel()

	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()
	base := testfixtures.ReferenceTime()

	matching := testfixtures.NewEventFixture(
		testfixtures.WithEventID("evt-match"),
		testfixtures.WithEventOrganizer("staff-alpha"),
		testfixtures.WithEventInterval(base.Add(time.Hour), base.Add(2*time.Hour)),
	)
	other := testfixtures.NewEventFixture(
		testfixtures.WithEventID("evt-other"),
		testfixtures.WithEventOrganizer("staff-beta"),
		testfixtures.WithEventInterval(base.Add(3*time.Hour), base.Add(4*time.Hour)),
	)
	cancelled := testfixtures.NewEventFixture(
		testfixtures.WithEventID("evt-cancelled"),
		testfixtures.WithEventOrganizer("staff-alpha"),
		testfixtures.WithEventInterval(base.Add(5*time.Hour), base.Add(6*time.Hour)),
		testfixtures.WithEventStatus(persistence.EventStatusCancelled),
	)
	linked := testfixtures.NewEventFixture(
		testfixtures.WithEventID("evt-linked"),
		testfixtures.WithEventOrganizer("staff-gamma"),
		testfixtures.WithEventInterval(base.Add(7*time.Hour), base.Add(8*time.Hour)),
		testfixtures.WithEventExternalRef("google", "ext-9"),
	)
	for _, event := range []persistence.Event{matching, other, cancelled, linked} {
		if err := harness.Events.CreateEvent(ctx, event); err != nil {
			t.Fatalf("CreateEvent(%s) returned error: %v", event.ID, err)
		}
	}

	t.Run("participant filter matches organizer membership", func(t *testing.T) {
		events, err := harness.Events.ListEvents(ctx, persistence.EventFilter{
			FirmID:         testfixtures.DefaultFirmID,
			ParticipantIDs: []string{"staff-alpha"},
		})
		if err != nil {
			t.Fatalf("ListEvents returned error: %v", err)
		}
		if len(events) != 1 || events[0].ID != "evt-match" {
			t.Fatalf("unexpected events %+v", events)
		}
	})

	t.Run("cancelled rows need IncludeCancelled", func(t *testing.T) {
		events, err := harness.Events.ListEvents(ctx, persistence.EventFilter{
			FirmID:           testfixtures.DefaultFirmID,
			ParticipantIDs:   []string{"staff-alpha"},
			IncludeCancelled: true,
		})
		if err != nil {
			t.Fatalf("ListEvents returned error: %v", err)
		}
		if len(events) != 2 {
			t.Fatalf("expected 2 events including the cancelled one, got %d", len(events))
		}
	})

	t.Run("external ref filter", func(t *testing.T) {
		events, err := harness.Events.ListEvents(ctx, persistence.EventFilter{
			FirmID:          testfixtures.DefaultFirmID,
			WithExternalRef: true,
		})
		if err != nil {
			t.Fatalf("ListEvents returned error: %v", err)
		}
		if len(events) != 1 || events[0].ID != "evt-linked" {
			t.Fatalf("unexpected events %+v", events)
		}
	})

	t.Run("time window filter", func(t *testing.T) {
		after := base.Add(150 * time.Minute)
		before := base.Add(5 * time.Hour)
		events, err := harness.Events.ListEvents(ctx, persistence.EventFilter{
			FirmID:      testfixtures.DefaultFirmID,
			StartsAfter: &after,
			EndsBefore:  &before,
		})
		if err != nil {
			t.Fatalf("ListEvents returned error: %v", err)
		}
		if len(events) != 1 || events[0].ID != "evt-other" {
			t.Fatalf("unexpected events %+v", events)
		}
	})
}

func TestEventRepository_UpdateReplacesParticipants(t *testing.T) {
	t.Parallel()

	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	event := testfixtures.NewEventFixture(
		testfixtures.WithEventParticipants([]string{"staff-001"}, nil),
	)
	if err := harness.Events.CreateEvent(ctx, event); err != nil {
		t.Fatalf("CreateEvent returned error: %v", err)
	}

	event.Title = "Renamed"
	event.StaffIDs = []string{"staff-002", "staff-003"}
	if err := harness.Events.UpdateEvent(ctx, event); err != nil {
		t.Fatalf("UpdateEvent returned error: %v", err)
	}

	stored, err := harness.Events.GetEvent(ctx, event.FirmID, event.ID)
	if err != nil {
		t.Fatalf("GetEvent returned error: %v", err)
	}
	if stored.Title != "Renamed" {
		t.Fatalf("expected renamed title, got %q", stored.Title)
	}
	if len(stored.StaffIDs) != 2 || stored.StaffIDs[0] != "staff-002" {
		t.Fatalf("expected replaced participants, got %+v", stored.StaffIDs)
	}
}

func TestAvailabilityRepository_WindowsAndExceptions(t *testing.T) {
	t.Parallel()

	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	window := testfixtures.NewWindowFixture(testfixtures.WithWindowUser("staff-win"))
	if err := harness.Availability.CreateWindow(ctx, window); err != nil {
		t.Fatalf("CreateWindow returned error: %v", err)
	}

	windows, err := harness.Availability.ListWindows(ctx, window.FirmID, "staff-win")
	if err != nil {
		t.Fatalf("ListWindows returned error: %v", err)
	}
	if len(windows) != 1 || windows[0].StartMinute != 9*60 {
		t.Fatalf("unexpected windows %+v", windows)
	}

	exception := testfixtures.NewExceptionFixture(
		testfixtures.WithExceptionUser("staff-win"),
		testfixtures.WithExceptionDate("2026-03-09"),
		testfixtures.WithExceptionOpenRange(10*60, 12*60),
	)
	if err := harness.Availability.CreateException(ctx, exception); err != nil {
		t.Fatalf("CreateException returned error: %v", err)
	}

	exceptions, err := harness.Availability.ListExceptions(ctx, exception.FirmID, "staff-win", "2026-03-09")
	if err != nil {
		t.Fatalf("ListExceptions returned error: %v", err)
	}
	if len(exceptions) != 1 || exceptions[0].Kind != "open_range" || exceptions[0].EndMinute != 12*60 {
		t.Fatalf("unexpected exceptions %+v", exceptions)
	}

	if err := harness.Availability.DeleteWindow(ctx, window.FirmID, window.ID); err != nil {
		t.Fatalf("DeleteWindow returned error: %v", err)
	}
	if err := harness.Availability.DeleteWindow(ctx, window.FirmID, window.ID); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestAppointmentRepository_StatusFilter(t *testing.T) {
	t.Parallel()

	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	pending := testfixtures.NewAppointmentFixture()
	approved := testfixtures.NewAppointmentFixture(
		testfixtures.WithAppointmentStatus(persistence.RequestStatusApproved),
		testfixtures.WithAppointmentStaff("staff-001"),
	)
	for _, request := range []persistence.AppointmentRequest{pending, approved} {
		if err := harness.Appointments.CreateRequest(ctx, request); err != nil {
			t.Fatalf("CreateRequest returned error: %v", err)
		}
	}

	requests, err := harness.Appointments.ListRequests(ctx, testfixtures.DefaultFirmID, persistence.RequestStatusApproved)
	if err != nil {
		t.Fatalf("ListRequests returned error: %v", err)
	}
	if len(requests) != 1 || requests[0].ID != approved.ID {
		t.Fatalf("unexpected requests %+v", requests)
	}
	if requests[0].StaffID == nil || *requests[0].StaffID != "staff-001" {
		t.Fatalf("expected assigned staff preserved, got %v", requests[0].StaffID)
	}

	all, err := harness.Appointments.ListRequests(ctx, testfixtures.DefaultFirmID, "")
	if err != nil {
		t.Fatalf("ListRequests returned error: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 requests without a status filter, got %d", len(all))
	}
}

func TestAppointmentRepository_LineagePointerRoundTrip(t *testing.T) {
	t.Parallel()

	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	request := testfixtures.NewAppointmentFixture()
	if err := harness.Appointments.CreateRequest(ctx, request); err != nil {
		t.Fatalf("CreateRequest returned error: %v", err)
	}

	successor := "appt-next"
	request.Status = persistence.RequestStatusCancelled
	request.RescheduledTo = &successor
	if err := harness.Appointments.UpdateRequest(ctx, request); err != nil {
		t.Fatalf("UpdateRequest returned error: %v", err)
	}

	stored, err := harness.Appointments.GetRequest(ctx, request.FirmID, request.ID)
	if err != nil {
		t.Fatalf("GetRequest returned error: %v", err)
	}
	if stored.RescheduledTo == nil || *stored.RescheduledTo != successor {
		t.Fatalf("expected lineage pointer preserved, got %v", stored.RescheduledTo)
	}
}

func TestIntegrationRepository_AutoSyncAndOutcome(t *testing.T) {
	t.Parallel()

	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	auto := testfixtures.NewIntegrationFixture(testfixtures.WithIntegrationAutoSync(true))
	manual := testfixtures.NewIntegrationFixture(testfixtures.WithIntegrationUser("staff-002"))
	for _, integration := range []persistence.CalendarIntegration{auto, manual} {
		if err := harness.Integrations.CreateIntegration(ctx, integration); err != nil {
			t.Fatalf("CreateIntegration returned error: %v", err)
		}
	}

	autoSync, err := harness.Integrations.ListAutoSync(ctx)
	if err != nil {
		t.Fatalf("ListAutoSync returned error: %v", err)
	}
	if len(autoSync) != 1 || autoSync[0].ID != auto.ID {
		t.Fatalf("unexpected auto-sync integrations %+v", autoSync)
	}

	ranAt := testfixtures.ReferenceTime().Add(time.Hour)
	auto.LastSyncAt = &ranAt
	auto.LastSyncStatus = persistence.SyncStatusPartial
	if err := harness.Integrations.UpdateIntegration(ctx, auto); err != nil {
		t.Fatalf("UpdateIntegration returned error: %v", err)
	}

	stored, err := harness.Integrations.GetIntegration(ctx, auto.FirmID, auto.ID)
	if err != nil {
		t.Fatalf("GetIntegration returned error: %v", err)
	}
	if stored.LastSyncAt == nil || !stored.LastSyncAt.Equal(ranAt) {
		t.Fatalf("expected last sync time preserved, got %v", stored.LastSyncAt)
	}
	if stored.LastSyncStatus != persistence.SyncStatusPartial {
		t.Fatalf("expected partial status, got %q", stored.LastSyncStatus)
	}
	if string(stored.Credential) != string(auto.Credential) {
		t.Fatalf("expected credential blob preserved")
	}

	if err := harness.Integrations.DeleteIntegration(ctx, auto.FirmID, auto.ID); err != nil {
		t.Fatalf("DeleteIntegration returned error: %v", err)
	}
	if _, err := harness.Integrations.GetIntegration(ctx, auto.FirmID, auto.ID); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestShareRepository_UniquePairEnforced(t *testing.T) {
	t.Parallel()

	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	share := testfixtures.NewShareFixture()
	if err := harness.Shares.CreateShare(ctx, share); err != nil {
		t.Fatalf("CreateShare returned error: %v", err)
	}

	duplicate := testfixtures.NewShareFixture()
	if err := harness.Shares.CreateShare(ctx, duplicate); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for a repeated pair, got %v", err)
	}

	reversed := testfixtures.NewShareFixture(testfixtures.WithShareParties("staff-002", "staff-001"))
	if err := harness.Shares.CreateShare(ctx, reversed); err != nil {
		t.Fatalf("expected the reversed direction to be a distinct edge: %v", err)
	}
}

func TestShareRepository_SelfShareViolatesCheck(t *testing.T) {
	t.Parallel()

	harness := testfixtures.NewSQLiteHarness(t)

	share := testfixtures.NewShareFixture(testfixtures.WithShareParties("staff-001", "staff-001"))
	err := harness.Shares.CreateShare(context.Background(), share)
	if !errors.Is(err, persistence.ErrConstraintViolation) {
		t.Fatalf("expected ErrConstraintViolation, got %v", err)
	}
}

func TestDirectoryRepository_Lookups(t *testing.T) {
	t.Parallel()

	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	user := testfixtures.NewUserFixture(testfixtures.WithUserID("staff-dir"))
	if _, err := harness.Pool.DB().ExecContext(ctx,
		"INSERT INTO users (id, firm_id, display_name, is_staff, created_at) VALUES (?, ?, ?, ?, ?)",
		user.ID, user.FirmID, user.DisplayName, 1, user.CreatedAt.UTC().Format(time.RFC3339)); err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	if _, err := harness.Pool.DB().ExecContext(ctx,
		"INSERT INTO rooms (id, name, location, capacity) VALUES (?, ?, ?, ?)",
		"room-a", "Conference A", "3F", 8); err != nil {
		t.Fatalf("failed to seed room: %v", err)
	}

	stored, err := harness.Directory.GetUser(ctx, user.FirmID, user.ID)
	if err != nil {
		t.Fatalf("GetUser returned error: %v", err)
	}
	if !stored.IsStaff || stored.DisplayName != user.DisplayName {
		t.Fatalf("unexpected user %+v", stored)
	}

	room, err := harness.Directory.GetRoom(ctx, "room-a")
	if err != nil {
		t.Fatalf("GetRoom returned error: %v", err)
	}
	if room.Capacity != 8 {
		t.Fatalf("unexpected room %+v", room)
	}

	if _, err := harness.Directory.GetUser(ctx, user.FirmID, "ghost"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

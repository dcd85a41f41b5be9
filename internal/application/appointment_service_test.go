package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/firm-scheduler/internal/persistence"
)

type appointmentFixture struct {
	svc          *AppointmentService
	appointments *memAppointmentRepo
	events       *memEventRepo
	notifier     *notifierStub
}

func newAppointmentFixture() appointmentFixture {
	appointments := newMemAppointmentRepo()
	events := newMemEventRepo()
	notifier := &notifierStub{}
	svc := NewAppointmentService(appointments, events, newMemAvailabilityRepo(), firmDirectory(), notifier, nil, nil,
		sequenceIDs("appt"), fixedNow(utc(2026, time.March, 1, 8, 0)))
	return appointmentFixture{svc: svc, appointments: appointments, events: events, notifier: notifier}
}

func clientScope() Scope {
	return Scope{FirmID: "firm-1", UserID: "client-1"}
}

func pendingRequest(t *testing.T, fx appointmentFixture) AppointmentRequest {
	t.Helper()
	request, err := fx.svc.CreateRequest(context.Background(), CreateAppointmentParams{
		Scope: clientScope(),
		Input: AppointmentInput{
			ClientID: "client-1",
			Start:    utc(2026, time.March, 3, 10, 0),
			End:      utc(2026, time.March, 3, 11, 0),
		},
	})
	if err != nil {
		t.Fatalf("CreateRequest failed: %v", err)
	}
	return request
}

func TestAppointmentService_Approve_CreatesConfirmedEvent(t *testing.T) {
	t.Parallel()

	fx := newAppointmentFixture()
	request := pendingRequest(t, fx)

	approved, _, err := fx.svc.Approve(context.Background(), ApproveAppointmentParams{
		Scope:     staffScope(),
		RequestID: request.ID,
		StaffID:   "staff-1",
	})
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}

	if approved.Status != persistence.RequestStatusApproved {
		t.Fatalf("expected approved status, got %s", approved.Status)
	}
	if approved.EventID == nil {
		t.Fatal("expected a linked event id")
	}
	event, err := fx.events.GetEvent(context.Background(), "firm-1", *approved.EventID)
	if err != nil {
		t.Fatalf("linked event missing: %v", err)
	}
	if event.Status != persistence.EventStatusConfirmed {
		t.Fatalf("expected confirmed event, got %s", event.Status)
	}
	if len(event.ClientIDs) != 1 || event.ClientIDs[0] != "client-1" {
		t.Fatalf("expected the client on the event, got %v", event.ClientIDs)
	}

	sent := fx.notifier.sent()
	if len(sent) != 1 || sent[0] != NotificationAppointmentApproved {
		t.Fatalf("expected approval notification, got %v", sent)
	}
}

func TestAppointmentService_Approve_RefusesOnStaffConflict(t *testing.T) {
	t.Parallel()

	fx := newAppointmentFixture()
	request := pendingRequest(t, fx)

	// staff-1 is already booked over the requested range.
	busy := persistence.Event{
		ID: "evt-busy", FirmID: "firm-1", OrganizerID: "staff-1",
		StaffIDs: []string{"staff-1"}, Title: "Hearing",
		Start: utc(2026, time.March, 3, 10, 30), End: utc(2026, time.March, 3, 11, 30),
		Status: persistence.EventStatusConfirmed,
	}
	if err := fx.events.CreateEvent(context.Background(), busy); err != nil {
		t.Fatalf("seed event failed: %v", err)
	}

	_, report, err := fx.svc.Approve(context.Background(), ApproveAppointmentParams{
		Scope:     staffScope(),
		RequestID: request.ID,
		StaffID:   "staff-1",
	})

	var cErr *ConflictError
	if !errors.As(err, &cErr) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if len(report.ConflictingEvents) != 1 || report.ConflictingEvents[0].EventID != "evt-busy" {
		t.Fatalf("expected the busy event in the report, got %+v", report)
	}

	// The request must stay pending.
	stored, err := fx.appointments.GetRequest(context.Background(), "firm-1", request.ID)
	if err != nil {
		t.Fatalf("GetRequest failed: %v", err)
	}
	if stored.Status != persistence.RequestStatusPending {
		t.Fatalf("expected pending after refused approval, got %s", stored.Status)
	}
}

func TestAppointmentService_Approve_RequiresStaffScope(t *testing.T) {
	t.Parallel()

	fx := newAppointmentFixture()
	request := pendingRequest(t, fx)

	_, _, err := fx.svc.Approve(context.Background(), ApproveAppointmentParams{
		Scope:     clientScope(),
		RequestID: request.ID,
		StaffID:   "staff-1",
	})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestAppointmentService_Reject_RequiresReason(t *testing.T) {
	t.Parallel()

	fx := newAppointmentFixture()
	request := pendingRequest(t, fx)

	_, err := fx.svc.Reject(context.Background(), RejectAppointmentParams{
		Scope:     staffScope(),
		RequestID: request.ID,
		Reason:    "   ",
	})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	rejected, err := fx.svc.Reject(context.Background(), RejectAppointmentParams{
		Scope:     staffScope(),
		RequestID: request.ID,
		Reason:    "no capacity this week",
	})
	if err != nil {
		t.Fatalf("Reject failed: %v", err)
	}
	if rejected.Status != persistence.RequestStatusRejected || rejected.Reason == "" {
		t.Fatalf("unexpected rejection state %+v", rejected)
	}
}

func TestAppointmentService_InvalidTransitionsAreRefused(t *testing.T) {
	t.Parallel()

	fx := newAppointmentFixture()
	request := pendingRequest(t, fx)

	if _, err := fx.svc.Reject(context.Background(), RejectAppointmentParams{
		Scope: staffScope(), RequestID: request.ID, Reason: "declined",
	}); err != nil {
		t.Fatalf("Reject failed: %v", err)
	}

	_, _, err := fx.svc.Approve(context.Background(), ApproveAppointmentParams{
		Scope: staffScope(), RequestID: request.ID, StaffID: "staff-1",
	})
	var sErr *StateTransitionError
	if !errors.As(err, &sErr) {
		t.Fatalf("expected StateTransitionError, got %v", err)
	}
	if sErr.From != persistence.RequestStatusRejected {
		t.Fatalf("expected transition from rejected, got %+v", sErr)
	}
}

func TestAppointmentService_Cancel_AlsoCancelsLinkedEvent(t *testing.T) {
	t.Parallel()

	fx := newAppointmentFixture()
	request := pendingRequest(t, fx)

	approved, _, err := fx.svc.Approve(context.Background(), ApproveAppointmentParams{
		Scope: staffScope(), RequestID: request.ID, StaffID: "staff-1",
	})
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}

	cancelled, err := fx.svc.Cancel(context.Background(), clientScope(), approved.ID, "client emergency")
	if err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if cancelled.Status != persistence.RequestStatusCancelled {
		t.Fatalf("expected cancelled request, got %s", cancelled.Status)
	}
	if cancelled.Reason != "client emergency" {
		t.Fatalf("expected the reason kept on the record, got %q", cancelled.Reason)
	}

	event, err := fx.events.GetEvent(context.Background(), "firm-1", *approved.EventID)
	if err != nil {
		t.Fatalf("GetEvent failed: %v", err)
	}
	if event.Status != persistence.EventStatusCancelled {
		t.Fatalf("expected linked event cancelled, got %s", event.Status)
	}
}

func TestAppointmentService_Cancel_StrangerIsUnauthorized(t *testing.T) {
	t.Parallel()

	fx := newAppointmentFixture()
	request := pendingRequest(t, fx)

	_, err := fx.svc.Cancel(context.Background(), Scope{FirmID: "firm-1", UserID: "client-2"}, request.ID, "")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestAppointmentService_Reschedule_ChainsLineage(t *testing.T) {
	t.Parallel()

	fx := newAppointmentFixture()
	request := pendingRequest(t, fx)

	approved, _, err := fx.svc.Approve(context.Background(), ApproveAppointmentParams{
		Scope: staffScope(), RequestID: request.ID, StaffID: "staff-1",
	})
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	firstEventID := *approved.EventID

	successor, _, err := fx.svc.Reschedule(context.Background(), RescheduleAppointmentParams{
		Scope:     staffScope(),
		RequestID: approved.ID,
		Start:     utc(2026, time.March, 4, 14, 0),
		End:       utc(2026, time.March, 4, 15, 0),
		Reason:    "venue moved",
	})
	if err != nil {
		t.Fatalf("Reschedule failed: %v", err)
	}

	// The old link is cancelled and points at its successor.
	old, err := fx.appointments.GetRequest(context.Background(), "firm-1", approved.ID)
	if err != nil {
		t.Fatalf("GetRequest failed: %v", err)
	}
	if old.Status != persistence.RequestStatusCancelled {
		t.Fatalf("expected old link cancelled, got %s", old.Status)
	}
	if old.RescheduledTo == nil || *old.RescheduledTo != successor.ID {
		t.Fatalf("expected back-reference to %s, got %v", successor.ID, old.RescheduledTo)
	}
	if old.Reason != "venue moved" {
		t.Fatalf("expected the reason kept on the old link, got %q", old.Reason)
	}
	if successor.Reason != "" {
		t.Fatalf("expected a clean successor, got reason %q", successor.Reason)
	}

	// The old event is cancelled; the successor carries a fresh one.
	oldEvent, err := fx.events.GetEvent(context.Background(), "firm-1", firstEventID)
	if err != nil {
		t.Fatalf("GetEvent failed: %v", err)
	}
	if oldEvent.Status != persistence.EventStatusCancelled {
		t.Fatalf("expected old event cancelled, got %s", oldEvent.Status)
	}
	if successor.Status != persistence.RequestStatusApproved {
		t.Fatalf("expected successor to mirror approved status, got %s", successor.Status)
	}
	if successor.EventID == nil || *successor.EventID == firstEventID {
		t.Fatalf("expected a fresh event on the successor, got %v", successor.EventID)
	}

	// A second reschedule extends the chain.
	final, _, err := fx.svc.Reschedule(context.Background(), RescheduleAppointmentParams{
		Scope:     staffScope(),
		RequestID: successor.ID,
		Start:     utc(2026, time.March, 5, 9, 0),
		End:       utc(2026, time.March, 5, 10, 0),
	})
	if err != nil {
		t.Fatalf("second Reschedule failed: %v", err)
	}
	middle, err := fx.appointments.GetRequest(context.Background(), "firm-1", successor.ID)
	if err != nil {
		t.Fatalf("GetRequest failed: %v", err)
	}
	if middle.RescheduledTo == nil || *middle.RescheduledTo != final.ID {
		t.Fatalf("expected chain %s -> %s, got %v", successor.ID, final.ID, middle.RescheduledTo)
	}
}

func TestAppointmentService_Reschedule_PendingStaysPending(t *testing.T) {
	t.Parallel()

	fx := newAppointmentFixture()
	request := pendingRequest(t, fx)

	successor, _, err := fx.svc.Reschedule(context.Background(), RescheduleAppointmentParams{
		Scope:     clientScope(),
		RequestID: request.ID,
		Start:     utc(2026, time.March, 4, 14, 0),
		End:       utc(2026, time.March, 4, 15, 0),
	})
	if err != nil {
		t.Fatalf("Reschedule failed: %v", err)
	}
	if successor.Status != persistence.RequestStatusPending {
		t.Fatalf("expected pending successor, got %s", successor.Status)
	}
	if successor.EventID != nil {
		t.Fatalf("expected no event for a pending successor, got %v", successor.EventID)
	}
}

package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/firm-scheduler/internal/persistence"
	"github.com/example/firm-scheduler/internal/scheduler"
)

// AppointmentService drives the request lifecycle: pending requests are
// approved into confirmed events, rejected with a reason, cancelled, or
// rescheduled into a successor request. History is never mutated in place;
// a reschedule cancels the old link and records its successor.
type AppointmentService struct {
	appointments persistence.AppointmentRepository
	events       persistence.EventRepository
	users        persistence.UserDirectory
	checker      conflictChecker
	notifier     Notifier
	locks        *keyedMutex
	logger       *slog.Logger
	idGenerator  func() string
	now          func() time.Time
}

// NewAppointmentService wires dependencies for appointment operations.
func NewAppointmentService(appointments persistence.AppointmentRepository, events persistence.EventRepository, availability persistence.AvailabilityRepository, users persistence.UserDirectory, notifier Notifier, locks *keyedMutex, logger *slog.Logger, idGenerator func() string, now func() time.Time) *AppointmentService {
	if locks == nil {
		locks = newKeyedMutex()
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &AppointmentService{
		appointments: appointments,
		events:       events,
		users:        users,
		checker:      conflictChecker{events: events, availability: availability},
		notifier:     notifier,
		locks:        locks,
		logger:       defaultLogger(logger),
		idGenerator:  idGenerator,
		now:          now,
	}
}

// CreateRequest files a new pending appointment request.
func (s *AppointmentService) CreateRequest(ctx context.Context, params CreateAppointmentParams) (AppointmentRequest, error) {
	logger := serviceLogger(ctx, s.logger, "appointments", "create", "firm_id", params.Scope.FirmID)

	input := params.Input
	if input.ClientID == "" {
		input.ClientID = params.Scope.UserID
	}

	vErr := &ValidationError{}
	if input.ClientID == "" {
		vErr.add("client_id", "client is required")
	}
	validateInterval(vErr, input.Start, input.End)
	if vErr.HasErrors() {
		return AppointmentRequest{}, vErr
	}

	if err := s.ensureUser(ctx, params.Scope.FirmID, input.ClientID, false); err != nil {
		return AppointmentRequest{}, err
	}
	if input.StaffID != nil && *input.StaffID != "" {
		if err := s.ensureUser(ctx, params.Scope.FirmID, *input.StaffID, true); err != nil {
			return AppointmentRequest{}, err
		}
	}

	createdAt := s.now()
	request := persistence.AppointmentRequest{
		ID:          s.idGenerator(),
		FirmID:      params.Scope.FirmID,
		RequestedBy: params.Scope.UserID,
		ClientID:    input.ClientID,
		StaffID:     input.StaffID,
		Start:       input.Start.UTC(),
		End:         input.End.UTC(),
		Status:      persistence.RequestStatusPending,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
	if err := s.appointments.CreateRequest(ctx, request); err != nil {
		return AppointmentRequest{}, mapRepoError(err)
	}

	logger.InfoContext(ctx, "appointment request created", "request_id", request.ID, "client_id", request.ClientID)
	return toApplicationRequest(request), nil
}

// Approve resolves the staff assignee, runs the conflict check and turns a
// pending request into a confirmed event. The approval notification is
// best-effort.
func (s *AppointmentService) Approve(ctx context.Context, params ApproveAppointmentParams) (AppointmentRequest, ConflictReport, error) {
	logger := serviceLogger(ctx, s.logger, "appointments", "approve", "firm_id", params.Scope.FirmID, "request_id", params.RequestID)

	if !params.Scope.IsStaff {
		return AppointmentRequest{}, ConflictReport{}, ErrUnauthorized
	}

	request, err := s.appointments.GetRequest(ctx, params.Scope.FirmID, params.RequestID)
	if err != nil {
		return AppointmentRequest{}, ConflictReport{}, mapRepoError(err)
	}
	if request.Status != persistence.RequestStatusPending {
		return AppointmentRequest{}, ConflictReport{}, &StateTransitionError{Entity: "appointment", From: request.Status, To: persistence.RequestStatusApproved}
	}

	staffID := params.StaffID
	if staffID == "" && request.StaffID != nil {
		staffID = *request.StaffID
	}
	if staffID == "" {
		vErr := &ValidationError{}
		vErr.add("staff_id", "an assignee is required for approval")
		return AppointmentRequest{}, ConflictReport{}, vErr
	}
	if err := s.ensureUser(ctx, params.Scope.FirmID, staffID, true); err != nil {
		return AppointmentRequest{}, ConflictReport{}, err
	}

	probe := appointmentProbe(request, staffID)
	unlock := s.locks.Lock(participantLockKeys(params.Scope.FirmID, probe)...)
	defer unlock()

	report, err := s.checker.buildReport(ctx, params.Scope.FirmID, probe)
	if err != nil {
		return AppointmentRequest{}, ConflictReport{}, err
	}
	if report.HasConflict && !params.IgnoreConflicts {
		return AppointmentRequest{}, report, &ConflictError{Report: report}
	}

	now := s.now()
	event := persistence.Event{
		ID:          s.idGenerator(),
		FirmID:      params.Scope.FirmID,
		OrganizerID: staffID,
		StaffIDs:    []string{staffID},
		ClientIDs:   []string{request.ClientID},
		Title:       appointmentTitle(request.ClientID),
		Start:       request.Start,
		End:         request.End,
		Status:      persistence.EventStatusConfirmed,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.events.CreateEvent(ctx, event); err != nil {
		return AppointmentRequest{}, report, mapRepoError(err)
	}

	request.Status = persistence.RequestStatusApproved
	request.StaffID = &staffID
	request.EventID = &event.ID
	request.UpdatedAt = now
	if err := s.appointments.UpdateRequest(ctx, request); err != nil {
		return AppointmentRequest{}, report, mapRepoError(err)
	}

	notifyBestEffort(ctx, s.notifier, logger, NotificationAppointmentApproved, NotificationPayload{
		FirmID:    params.Scope.FirmID,
		RequestID: request.ID,
		ClientID:  request.ClientID,
		StaffID:   staffID,
		EventID:   event.ID,
	})

	logger.InfoContext(ctx, "appointment approved", "event_id", event.ID, "staff_id", staffID)
	return toApplicationRequest(request), report, nil
}

// Reject declines a pending request. A non-empty reason is required so the
// client always learns why.
func (s *AppointmentService) Reject(ctx context.Context, params RejectAppointmentParams) (AppointmentRequest, error) {
	logger := serviceLogger(ctx, s.logger, "appointments", "reject", "firm_id", params.Scope.FirmID, "request_id", params.RequestID)

	if !params.Scope.IsStaff {
		return AppointmentRequest{}, ErrUnauthorized
	}
	if strings.TrimSpace(params.Reason) == "" {
		vErr := &ValidationError{}
		vErr.add("reason", "a rejection reason is required")
		return AppointmentRequest{}, vErr
	}

	request, err := s.appointments.GetRequest(ctx, params.Scope.FirmID, params.RequestID)
	if err != nil {
		return AppointmentRequest{}, mapRepoError(err)
	}
	if request.Status != persistence.RequestStatusPending {
		return AppointmentRequest{}, &StateTransitionError{Entity: "appointment", From: request.Status, To: persistence.RequestStatusRejected}
	}

	request.Status = persistence.RequestStatusRejected
	request.Reason = strings.TrimSpace(params.Reason)
	request.UpdatedAt = s.now()
	if err := s.appointments.UpdateRequest(ctx, request); err != nil {
		return AppointmentRequest{}, mapRepoError(err)
	}

	logger.InfoContext(ctx, "appointment rejected")
	return toApplicationRequest(request), nil
}

// Cancel withdraws a pending or approved request. Only the requester or
// staff may cancel. A linked event is soft-cancelled with it; an optional
// reason is kept on the cancelled record.
func (s *AppointmentService) Cancel(ctx context.Context, scope Scope, requestID, reason string) (AppointmentRequest, error) {
	logger := serviceLogger(ctx, s.logger, "appointments", "cancel", "firm_id", scope.FirmID, "request_id", requestID)

	request, err := s.appointments.GetRequest(ctx, scope.FirmID, requestID)
	if err != nil {
		return AppointmentRequest{}, mapRepoError(err)
	}
	if scope.UserID != request.RequestedBy && !scope.IsStaff {
		return AppointmentRequest{}, ErrUnauthorized
	}
	if request.Status != persistence.RequestStatusPending && request.Status != persistence.RequestStatusApproved {
		return AppointmentRequest{}, &StateTransitionError{Entity: "appointment", From: request.Status, To: persistence.RequestStatusCancelled}
	}

	now := s.now()
	if err := s.cancelLinkedEvent(ctx, scope.FirmID, request.EventID, now); err != nil {
		return AppointmentRequest{}, err
	}

	request.Status = persistence.RequestStatusCancelled
	if trimmed := strings.TrimSpace(reason); trimmed != "" {
		request.Reason = trimmed
	}
	request.UpdatedAt = now
	if err := s.appointments.UpdateRequest(ctx, request); err != nil {
		return AppointmentRequest{}, mapRepoError(err)
	}

	payload := NotificationPayload{FirmID: scope.FirmID, RequestID: request.ID, ClientID: request.ClientID}
	if request.StaffID != nil {
		payload.StaffID = *request.StaffID
	}
	notifyBestEffort(ctx, s.notifier, logger, NotificationAppointmentCancelled, payload)

	logger.InfoContext(ctx, "appointment cancelled")
	return toApplicationRequest(request), nil
}

// Reschedule moves a pending or approved request to a new interval. The old
// link is cancelled with a back-reference to its successor; an approved
// lineage gets a fresh confirmed event so at most one active pair exists.
func (s *AppointmentService) Reschedule(ctx context.Context, params RescheduleAppointmentParams) (AppointmentRequest, ConflictReport, error) {
	logger := serviceLogger(ctx, s.logger, "appointments", "reschedule", "firm_id", params.Scope.FirmID, "request_id", params.RequestID)

	request, err := s.appointments.GetRequest(ctx, params.Scope.FirmID, params.RequestID)
	if err != nil {
		return AppointmentRequest{}, ConflictReport{}, mapRepoError(err)
	}
	if params.Scope.UserID != request.RequestedBy && !params.Scope.IsStaff {
		return AppointmentRequest{}, ConflictReport{}, ErrUnauthorized
	}
	if request.Status != persistence.RequestStatusPending && request.Status != persistence.RequestStatusApproved {
		return AppointmentRequest{}, ConflictReport{}, &StateTransitionError{Entity: "appointment", From: request.Status, To: request.Status}
	}

	vErr := &ValidationError{}
	validateInterval(vErr, params.Start, params.End)
	if vErr.HasErrors() {
		return AppointmentRequest{}, ConflictReport{}, vErr
	}

	staffID := ""
	if request.StaffID != nil {
		staffID = *request.StaffID
	}

	successor := request
	successor.ID = s.idGenerator()
	successor.Start = params.Start.UTC()
	successor.End = params.End.UTC()
	successor.EventID = nil
	successor.RescheduledTo = nil

	probe := appointmentProbe(successor, staffID)
	if request.EventID != nil {
		// The lineage's own event never conflicts with its replacement.
		probe.ID = *request.EventID
	}
	unlock := s.locks.Lock(participantLockKeys(params.Scope.FirmID, probe)...)
	defer unlock()

	report, err := s.checker.buildReport(ctx, params.Scope.FirmID, probe)
	if err != nil {
		return AppointmentRequest{}, ConflictReport{}, err
	}
	if report.HasConflict && !params.IgnoreConflicts {
		return AppointmentRequest{}, report, &ConflictError{Report: report}
	}

	now := s.now()
	successor.CreatedAt = now
	successor.UpdatedAt = now

	// An approved lineage continues with a fresh confirmed event.
	if request.Status == persistence.RequestStatusApproved && staffID != "" {
		event := persistence.Event{
			ID:          s.idGenerator(),
			FirmID:      params.Scope.FirmID,
			OrganizerID: staffID,
			StaffIDs:    []string{staffID},
			ClientIDs:   []string{request.ClientID},
			Title:       appointmentTitle(request.ClientID),
			Start:       successor.Start,
			End:         successor.End,
			Status:      persistence.EventStatusConfirmed,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.events.CreateEvent(ctx, event); err != nil {
			return AppointmentRequest{}, report, mapRepoError(err)
		}
		successor.EventID = &event.ID
	}

	if err := s.appointments.CreateRequest(ctx, successor); err != nil {
		return AppointmentRequest{}, report, mapRepoError(err)
	}

	if err := s.cancelLinkedEvent(ctx, params.Scope.FirmID, request.EventID, now); err != nil {
		return AppointmentRequest{}, report, err
	}

	request.Status = persistence.RequestStatusCancelled
	request.RescheduledTo = &successor.ID
	if trimmed := strings.TrimSpace(params.Reason); trimmed != "" {
		request.Reason = trimmed
	}
	request.UpdatedAt = now
	if err := s.appointments.UpdateRequest(ctx, request); err != nil {
		return AppointmentRequest{}, report, mapRepoError(err)
	}

	notifyBestEffort(ctx, s.notifier, logger, NotificationAppointmentRescheduled, NotificationPayload{
		FirmID:      params.Scope.FirmID,
		RequestID:   request.ID,
		ClientID:    request.ClientID,
		StaffID:     staffID,
		SuccessorID: successor.ID,
	})

	logger.InfoContext(ctx, "appointment rescheduled", "successor_id", successor.ID)
	return toApplicationRequest(successor), report, nil
}

// GetRequest retrieves a firm-scoped request.
func (s *AppointmentService) GetRequest(ctx context.Context, scope Scope, requestID string) (AppointmentRequest, error) {
	request, err := s.appointments.GetRequest(ctx, scope.FirmID, requestID)
	if err != nil {
		return AppointmentRequest{}, mapRepoError(err)
	}
	return toApplicationRequest(request), nil
}

// ListRequests enumerates a firm's requests, optionally filtered by status.
func (s *AppointmentService) ListRequests(ctx context.Context, scope Scope, status string) ([]AppointmentRequest, error) {
	requests, err := s.appointments.ListRequests(ctx, scope.FirmID, status)
	if err != nil {
		return nil, mapRepoError(err)
	}
	out := make([]AppointmentRequest, 0, len(requests))
	for _, request := range requests {
		out = append(out, toApplicationRequest(request))
	}
	return out, nil
}

func (s *AppointmentService) cancelLinkedEvent(ctx context.Context, firmID string, eventID *string, now time.Time) error {
	if eventID == nil || *eventID == "" {
		return nil
	}
	event, err := s.events.GetEvent(ctx, firmID, *eventID)
	if errors.Is(err, persistence.ErrNotFound) {
		return nil
	}
	if err != nil {
		return mapRepoError(err)
	}
	if event.Status == persistence.EventStatusCancelled {
		return nil
	}
	event.Status = persistence.EventStatusCancelled
	event.UpdatedAt = now
	if err := s.events.UpdateEvent(ctx, event); err != nil {
		return mapRepoError(err)
	}
	return nil
}

func (s *AppointmentService) ensureUser(ctx context.Context, firmID, userID string, wantStaff bool) error {
	if s.users == nil {
		return nil
	}
	user, err := s.users.GetUser(ctx, firmID, userID)
	if errors.Is(err, persistence.ErrNotFound) {
		vErr := &ValidationError{}
		vErr.add("user_id", fmt.Sprintf("unknown user id: %s", userID))
		return vErr
	}
	if err != nil {
		return fmt.Errorf("failed to look up user %s: %w", userID, err)
	}
	if wantStaff && !user.IsStaff {
		vErr := &ValidationError{}
		vErr.add("staff_id", fmt.Sprintf("not a staff user: %s", userID))
		return vErr
	}
	return nil
}

func appointmentProbe(request persistence.AppointmentRequest, staffID string) scheduler.Event {
	probe := scheduler.Event{
		OrganizerID: staffID,
		ClientIDs:   []string{request.ClientID},
		Interval:    intervalOf(request.Start, request.End),
	}
	if staffID != "" {
		probe.StaffIDs = []string{staffID}
	}
	return probe
}

func appointmentTitle(clientID string) string {
	return "Appointment with " + clientID
}

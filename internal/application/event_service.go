package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/firm-scheduler/internal/interval"
	"github.com/example/firm-scheduler/internal/persistence"
	"github.com/example/firm-scheduler/internal/scheduler"
)

// EventService orchestrates validation, conflict checking and persistence
// for calendar events.
type EventService struct {
	events       persistence.EventRepository
	availability persistence.AvailabilityRepository
	users        persistence.UserDirectory
	rooms        persistence.RoomCatalog
	checker      conflictChecker
	locks        *keyedMutex
	logger       *slog.Logger
	idGenerator  func() string
	now          func() time.Time
}

// NewEventService wires dependencies for event operations.
func NewEventService(events persistence.EventRepository, availability persistence.AvailabilityRepository, users persistence.UserDirectory, rooms persistence.RoomCatalog, locks *keyedMutex, logger *slog.Logger, idGenerator func() string, now func() time.Time) *EventService {
	if locks == nil {
		locks = newKeyedMutex()
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &EventService{
		events:       events,
		availability: availability,
		users:        users,
		rooms:        rooms,
		checker:      conflictChecker{events: events, availability: availability},
		locks:        locks,
		logger:       defaultLogger(logger),
		idGenerator:  idGenerator,
		now:          now,
	}
}

// CreateEvent validates the input, runs the conflict check under the
// participant locks and persists the event. A detected conflict aborts with
// *ConflictError unless IgnoreConflicts is set; the report is returned
// either way.
func (s *EventService) CreateEvent(ctx context.Context, params CreateEventParams) (Event, ConflictReport, error) {
	logger := serviceLogger(ctx, s.logger, "events", "create", "firm_id", params.Scope.FirmID)

	input := params.Input
	if input.OrganizerID == "" {
		input.OrganizerID = params.Scope.UserID
	}
	if err := s.validateEventInput(ctx, params.Scope, input); err != nil {
		return Event{}, ConflictReport{}, err
	}
	if input.OrganizerID != params.Scope.UserID && !params.Scope.IsStaff {
		return Event{}, ConflictReport{}, ErrUnauthorized
	}

	createdAt := s.now()
	event := persistence.Event{
		ID:          s.idGenerator(),
		FirmID:      params.Scope.FirmID,
		OrganizerID: input.OrganizerID,
		StaffIDs:    sortedUnique(input.StaffIDs),
		ClientIDs:   sortedUnique(input.ClientIDs),
		Title:       strings.TrimSpace(input.Title),
		Location:    input.Location,
		VideoLink:   input.VideoLink,
		RoomID:      input.RoomID,
		Start:       input.Start.UTC(),
		End:         input.End.UTC(),
		Status:      persistence.EventStatusConfirmed,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}

	probe := toSchedulerEvent(event)
	unlock := s.locks.Lock(participantLockKeys(params.Scope.FirmID, probe)...)
	defer unlock()

	report, err := s.checker.buildReport(ctx, params.Scope.FirmID, probe)
	if err != nil {
		return Event{}, ConflictReport{}, err
	}
	if report.HasConflict && !params.IgnoreConflicts {
		return Event{}, report, &ConflictError{Report: report}
	}

	if err := s.events.CreateEvent(ctx, event); err != nil {
		return Event{}, report, mapRepoError(err)
	}

	logger.InfoContext(ctx, "event created", "event_id", event.ID, "conflicts", len(report.ConflictingEvents))
	return toApplicationEvent(event), report, nil
}

// UpdateEvent applies validation and the conflict check before replacing
// the stored event. Cancelled events cannot be edited.
func (s *EventService) UpdateEvent(ctx context.Context, params UpdateEventParams) (Event, ConflictReport, error) {
	logger := serviceLogger(ctx, s.logger, "events", "update", "firm_id", params.Scope.FirmID, "event_id", params.EventID)

	existing, err := s.events.GetEvent(ctx, params.Scope.FirmID, params.EventID)
	if err != nil {
		return Event{}, ConflictReport{}, mapRepoError(err)
	}
	if existing.Status == persistence.EventStatusCancelled {
		return Event{}, ConflictReport{}, &StateTransitionError{Entity: "event", From: existing.Status, To: persistence.EventStatusConfirmed}
	}
	if existing.OrganizerID != params.Scope.UserID && !params.Scope.IsStaff {
		return Event{}, ConflictReport{}, ErrUnauthorized
	}

	input := params.Input
	if input.OrganizerID == "" {
		input.OrganizerID = existing.OrganizerID
	}
	if input.OrganizerID != existing.OrganizerID {
		vErr := &ValidationError{}
		vErr.add("organizer_id", "organizer cannot be changed")
		return Event{}, ConflictReport{}, vErr
	}
	if err := s.validateEventInput(ctx, params.Scope, input); err != nil {
		return Event{}, ConflictReport{}, err
	}

	updated := existing
	updated.StaffIDs = sortedUnique(input.StaffIDs)
	updated.ClientIDs = sortedUnique(input.ClientIDs)
	updated.Title = strings.TrimSpace(input.Title)
	updated.Location = input.Location
	updated.VideoLink = input.VideoLink
	updated.RoomID = input.RoomID
	updated.Start = input.Start.UTC()
	updated.End = input.End.UTC()
	updated.UpdatedAt = s.now()

	probe := toSchedulerEvent(updated)
	// Lock the union of old and new participants so a concurrent create
	// against either set serializes with this update.
	keys := append(participantLockKeys(params.Scope.FirmID, probe),
		participantLockKeys(params.Scope.FirmID, toSchedulerEvent(existing))...)
	unlock := s.locks.Lock(keys...)
	defer unlock()

	report, err := s.checker.buildReport(ctx, params.Scope.FirmID, probe)
	if err != nil {
		return Event{}, ConflictReport{}, err
	}
	if report.HasConflict && !params.IgnoreConflicts {
		return Event{}, report, &ConflictError{Report: report}
	}

	if err := s.events.UpdateEvent(ctx, updated); err != nil {
		return Event{}, report, mapRepoError(err)
	}

	logger.InfoContext(ctx, "event updated", "conflicts", len(report.ConflictingEvents))
	return toApplicationEvent(updated), report, nil
}

// CancelEvent soft-cancels an event. The row is retained for audit and
// external sync linkage; cancelled events leave every conflict check.
func (s *EventService) CancelEvent(ctx context.Context, scope Scope, eventID string) (Event, error) {
	logger := serviceLogger(ctx, s.logger, "events", "cancel", "firm_id", scope.FirmID, "event_id", eventID)

	existing, err := s.events.GetEvent(ctx, scope.FirmID, eventID)
	if err != nil {
		return Event{}, mapRepoError(err)
	}
	if existing.Status == persistence.EventStatusCancelled {
		return Event{}, &StateTransitionError{Entity: "event", From: existing.Status, To: persistence.EventStatusCancelled}
	}
	if existing.OrganizerID != scope.UserID && !scope.IsStaff {
		return Event{}, ErrUnauthorized
	}

	existing.Status = persistence.EventStatusCancelled
	existing.UpdatedAt = s.now()
	if err := s.events.UpdateEvent(ctx, existing); err != nil {
		return Event{}, mapRepoError(err)
	}

	logger.InfoContext(ctx, "event cancelled")
	return toApplicationEvent(existing), nil
}

// GetEvent retrieves a firm-scoped event. Ids from other firms surface
// ErrNotFound.
func (s *EventService) GetEvent(ctx context.Context, scope Scope, eventID string) (Event, error) {
	event, err := s.events.GetEvent(ctx, scope.FirmID, eventID)
	if err != nil {
		return Event{}, mapRepoError(err)
	}
	return toApplicationEvent(event), nil
}

// ListEvents enumerates firm events matching the filters, ordered by start.
func (s *EventService) ListEvents(ctx context.Context, params ListEventsParams) ([]Event, error) {
	events, err := s.events.ListEvents(ctx, persistence.EventFilter{
		FirmID:           params.Scope.FirmID,
		ParticipantIDs:   sortedUnique(params.ParticipantIDs),
		StartsAfter:      params.StartsAfter,
		EndsBefore:       params.EndsBefore,
		IncludeCancelled: params.IncludeCancelled,
	})
	if err != nil {
		return nil, mapRepoError(err)
	}

	out := make([]Event, 0, len(events))
	for _, event := range events {
		out = append(out, toApplicationEvent(event))
	}
	return out, nil
}

// CheckConflicts runs the conflict check for a candidate without writing
// anything. EventID, when set, excludes the event from its own report.
func (s *EventService) CheckConflicts(ctx context.Context, params CheckConflictsParams) (ConflictReport, error) {
	input := params.Input
	if input.OrganizerID == "" {
		input.OrganizerID = params.Scope.UserID
	}

	vErr := &ValidationError{}
	validateInterval(vErr, input.Start, input.End)
	if vErr.HasErrors() {
		return ConflictReport{}, vErr
	}

	probe := scheduler.Event{
		ID:          params.EventID,
		OrganizerID: input.OrganizerID,
		StaffIDs:    sortedUnique(input.StaffIDs),
		ClientIDs:   sortedUnique(input.ClientIDs),
		RoomID:      input.RoomID,
		Interval:    interval.New(input.Start.UTC(), input.End.UTC()),
	}
	return s.checker.buildReport(ctx, params.Scope.FirmID, probe)
}

// SuggestSlots searches one day for free intervals that clear the conflict
// detector and every declared staff availability. Short or empty results
// are valid answers.
func (s *EventService) SuggestSlots(ctx context.Context, params SuggestSlotsParams) ([]SuggestedSlot, error) {
	vErr := &ValidationError{}
	if params.DurationMinutes <= 0 {
		vErr.add("duration_minutes", "duration must be positive")
	}
	if params.Date.IsZero() {
		vErr.add("date", "date is required")
	}
	if params.StartHour < 0 || params.StartHour > 24 || params.EndHour < 0 || params.EndHour > 24 {
		vErr.add("hours", "hours must be between 0 and 24")
	}
	if vErr.HasErrors() {
		return nil, vErr
	}

	organizerID := params.OrganizerID
	if organizerID == "" {
		organizerID = params.Scope.UserID
	}

	day := params.Date.UTC()
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.AddDate(0, 0, 1)
	existing, err := s.events.ListEvents(ctx, persistence.EventFilter{
		FirmID:      params.Scope.FirmID,
		StartsAfter: &dayStart,
		EndsBefore:  &dayEnd,
	})
	if err != nil {
		return nil, mapRepoError(err)
	}
	converted := make([]scheduler.Event, 0, len(existing))
	for _, event := range existing {
		converted = append(converted, toSchedulerEvent(event))
	}

	// Only users with declared availability constrain the search.
	openByUser := make(map[string][]interval.Interval)
	for _, userID := range sortedUnique(append([]string{organizerID}, params.StaffIDs...)) {
		windows, err := s.availability.ListWindows(ctx, params.Scope.FirmID, userID)
		if err != nil {
			return nil, mapRepoError(err)
		}
		exceptions, err := s.availability.ListExceptions(ctx, params.Scope.FirmID, userID, dayStart.Format(dateLayout))
		if err != nil {
			return nil, mapRepoError(err)
		}
		if len(windows) == 0 && len(exceptions) == 0 {
			continue
		}
		openByUser[userID] = scheduler.ResolveDay(toSchedulerWindows(windows), toSchedulerExceptions(exceptions), dayStart)
	}

	slots := scheduler.SuggestSlots(converted, openByUser, scheduler.SlotParams{
		Duration:      time.Duration(params.DurationMinutes) * time.Minute,
		Day:           dayStart,
		StartHour:     params.StartHour,
		EndHour:       params.EndHour,
		BufferMinutes: params.BufferMinutes,
		Count:         params.Count,
		OrganizerID:   organizerID,
		StaffIDs:      sortedUnique(params.StaffIDs),
		ClientIDs:     sortedUnique(params.ClientIDs),
		RoomID:        params.RoomID,
	})

	out := make([]SuggestedSlot, 0, len(slots))
	for _, slot := range slots {
		out = append(out, SuggestedSlot{Start: slot.Start, End: slot.End})
	}
	return out, nil
}

func (s *EventService) validateEventInput(ctx context.Context, scope Scope, input EventInput) error {
	vErr := &ValidationError{}

	if strings.TrimSpace(input.Title) == "" {
		vErr.add("title", "title is required")
	}
	if input.OrganizerID == "" {
		vErr.add("organizer_id", "organizer is required")
	}
	validateInterval(vErr, input.Start, input.End)
	if vErr.HasErrors() {
		return vErr
	}

	participants := sortedUnique(append(append([]string{input.OrganizerID}, input.StaffIDs...), input.ClientIDs...))
	if err := s.ensureUsersExist(ctx, scope.FirmID, participants, sortedUnique(input.StaffIDs)); err != nil {
		return err
	}
	return s.ensureRoomExists(ctx, input.RoomID)
}

func (s *EventService) ensureUsersExist(ctx context.Context, firmID string, ids, staffIDs []string) error {
	if s.users == nil {
		return nil
	}

	staffSet := make(map[string]struct{}, len(staffIDs))
	for _, id := range staffIDs {
		staffSet[id] = struct{}{}
	}

	var missing, notStaff []string
	for _, id := range ids {
		user, err := s.users.GetUser(ctx, firmID, id)
		if errors.Is(err, persistence.ErrNotFound) {
			missing = append(missing, id)
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to look up user %s: %w", id, err)
		}
		if _, ok := staffSet[id]; ok && !user.IsStaff {
			notStaff = append(notStaff, id)
		}
	}

	if len(missing) == 0 && len(notStaff) == 0 {
		return nil
	}
	vErr := &ValidationError{}
	if len(missing) > 0 {
		vErr.add("participants", fmt.Sprintf("unknown user ids: %s", strings.Join(missing, ", ")))
	}
	if len(notStaff) > 0 {
		vErr.add("staff_ids", fmt.Sprintf("not staff users: %s", strings.Join(notStaff, ", ")))
	}
	return vErr
}

func (s *EventService) ensureRoomExists(ctx context.Context, roomID *string) error {
	if roomID == nil || *roomID == "" || s.rooms == nil {
		return nil
	}
	_, err := s.rooms.GetRoom(ctx, *roomID)
	if errors.Is(err, persistence.ErrNotFound) {
		vErr := &ValidationError{}
		vErr.add("room_id", "room does not exist")
		return vErr
	}
	if err != nil {
		return fmt.Errorf("failed to look up room %s: %w", *roomID, err)
	}
	return nil
}

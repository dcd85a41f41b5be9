package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/example/firm-scheduler/internal/interval"
	"github.com/example/firm-scheduler/internal/persistence"
	"github.com/example/firm-scheduler/internal/scheduler"
)

const minutesPerDay = 24 * 60

// AvailabilityService manages recurring windows and date exceptions, and
// resolves concrete open intervals per user and date. Resolved days are
// cached briefly; any mutation for a user drops that user's entries.
type AvailabilityService struct {
	availability persistence.AvailabilityRepository
	users        persistence.UserDirectory
	cache        *availabilityCache
	logger       *slog.Logger
	idGenerator  func() string
	now          func() time.Time
}

// NewAvailabilityService wires dependencies for availability operations.
func NewAvailabilityService(availability persistence.AvailabilityRepository, users persistence.UserDirectory, logger *slog.Logger, idGenerator func() string, now func() time.Time) *AvailabilityService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &AvailabilityService{
		availability: availability,
		users:        users,
		cache:        newAvailabilityCache(30*time.Second, 256, now),
		logger:       defaultLogger(logger),
		idGenerator:  idGenerator,
		now:          now,
	}
}

// CreateWindow adds a recurring weekly open range for a user.
func (s *AvailabilityService) CreateWindow(ctx context.Context, scope Scope, input WindowInput) (AvailabilityWindow, error) {
	logger := serviceLogger(ctx, s.logger, "availability", "create_window", "firm_id", scope.FirmID)

	userID := input.UserID
	if userID == "" {
		userID = scope.UserID
	}
	if userID != scope.UserID && !scope.IsStaff {
		return AvailabilityWindow{}, ErrUnauthorized
	}
	if err := validateWindowInput(input); err != nil {
		return AvailabilityWindow{}, err
	}

	createdAt := s.now()
	window := persistence.AvailabilityWindow{
		ID:          s.idGenerator(),
		FirmID:      scope.FirmID,
		UserID:      userID,
		Weekday:     input.Weekday,
		StartMinute: input.StartMinute,
		EndMinute:   input.EndMinute,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
	if err := s.availability.CreateWindow(ctx, window); err != nil {
		return AvailabilityWindow{}, mapRepoError(err)
	}

	s.cache.InvalidateUser(scope.FirmID, userID)
	logger.InfoContext(ctx, "availability window created", "user_id", userID, "window_id", window.ID)
	return toApplicationWindow(window), nil
}

// UpdateWindow replaces a window's weekday and range.
func (s *AvailabilityService) UpdateWindow(ctx context.Context, scope Scope, windowID string, input WindowInput) (AvailabilityWindow, error) {
	userID := input.UserID
	if userID == "" {
		userID = scope.UserID
	}
	if userID != scope.UserID && !scope.IsStaff {
		return AvailabilityWindow{}, ErrUnauthorized
	}
	if err := validateWindowInput(input); err != nil {
		return AvailabilityWindow{}, err
	}

	window := persistence.AvailabilityWindow{
		ID:          windowID,
		FirmID:      scope.FirmID,
		UserID:      userID,
		Weekday:     input.Weekday,
		StartMinute: input.StartMinute,
		EndMinute:   input.EndMinute,
		UpdatedAt:   s.now(),
	}
	if err := s.availability.UpdateWindow(ctx, window); err != nil {
		return AvailabilityWindow{}, mapRepoError(err)
	}

	s.cache.InvalidateUser(scope.FirmID, userID)
	return toApplicationWindow(window), nil
}

// DeleteWindow removes a recurring window.
func (s *AvailabilityService) DeleteWindow(ctx context.Context, scope Scope, userID, windowID string) error {
	if userID == "" {
		userID = scope.UserID
	}
	if userID != scope.UserID && !scope.IsStaff {
		return ErrUnauthorized
	}
	if err := s.availability.DeleteWindow(ctx, scope.FirmID, windowID); err != nil {
		return mapRepoError(err)
	}
	s.cache.InvalidateUser(scope.FirmID, userID)
	return nil
}

// ListWindows returns a user's recurring windows.
func (s *AvailabilityService) ListWindows(ctx context.Context, scope Scope, userID string) ([]AvailabilityWindow, error) {
	if userID == "" {
		userID = scope.UserID
	}
	windows, err := s.availability.ListWindows(ctx, scope.FirmID, userID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	out := make([]AvailabilityWindow, 0, len(windows))
	for _, window := range windows {
		out = append(out, toApplicationWindow(window))
	}
	return out, nil
}

// CreateException adds a date-specific override. Exceptions always take
// precedence over the recurring pattern for their date.
func (s *AvailabilityService) CreateException(ctx context.Context, scope Scope, input ExceptionInput) (AvailabilityException, error) {
	logger := serviceLogger(ctx, s.logger, "availability", "create_exception", "firm_id", scope.FirmID)

	userID := input.UserID
	if userID == "" {
		userID = scope.UserID
	}
	if userID != scope.UserID && !scope.IsStaff {
		return AvailabilityException{}, ErrUnauthorized
	}
	if err := validateExceptionInput(input); err != nil {
		return AvailabilityException{}, err
	}

	exception := persistence.AvailabilityException{
		ID:          s.idGenerator(),
		FirmID:      scope.FirmID,
		UserID:      userID,
		Date:        input.Date,
		Kind:        input.Kind,
		StartMinute: input.StartMinute,
		EndMinute:   input.EndMinute,
		CreatedAt:   s.now(),
	}
	if err := s.availability.CreateException(ctx, exception); err != nil {
		return AvailabilityException{}, mapRepoError(err)
	}

	s.cache.InvalidateUser(scope.FirmID, userID)
	logger.InfoContext(ctx, "availability exception created", "user_id", userID, "date", input.Date, "kind", input.Kind)
	return toApplicationException(exception), nil
}

// DeleteException removes a date-specific override.
func (s *AvailabilityService) DeleteException(ctx context.Context, scope Scope, userID, exceptionID string) error {
	if userID == "" {
		userID = scope.UserID
	}
	if userID != scope.UserID && !scope.IsStaff {
		return ErrUnauthorized
	}
	if err := s.availability.DeleteException(ctx, scope.FirmID, exceptionID); err != nil {
		return mapRepoError(err)
	}
	s.cache.InvalidateUser(scope.FirmID, userID)
	return nil
}

// ListExceptions returns a user's exceptions, optionally narrowed to one date.
func (s *AvailabilityService) ListExceptions(ctx context.Context, scope Scope, userID, date string) ([]AvailabilityException, error) {
	if userID == "" {
		userID = scope.UserID
	}
	exceptions, err := s.availability.ListExceptions(ctx, scope.FirmID, userID, date)
	if err != nil {
		return nil, mapRepoError(err)
	}
	out := make([]AvailabilityException, 0, len(exceptions))
	for _, exception := range exceptions {
		out = append(out, toApplicationException(exception))
	}
	return out, nil
}

// ResolveDay computes the ordered open intervals for a user on one date.
func (s *AvailabilityService) ResolveDay(ctx context.Context, scope Scope, userID, date string) (ResolvedDay, error) {
	if userID == "" {
		userID = scope.UserID
	}
	day, err := time.Parse(dateLayout, date)
	if err != nil {
		vErr := &ValidationError{}
		vErr.add("date", "date must be YYYY-MM-DD")
		return ResolvedDay{}, vErr
	}

	key := availabilityCacheKey(scope.FirmID, userID, date)
	if open, ok := s.cache.Get(key); ok {
		return ResolvedDay{UserID: userID, Date: date, Open: open}, nil
	}

	open, err := s.resolveOpen(ctx, scope.FirmID, userID, day, date)
	if err != nil {
		return ResolvedDay{}, err
	}

	slots := make([]SuggestedSlot, 0, len(open))
	for _, iv := range open {
		slots = append(slots, SuggestedSlot{Start: iv.Start, End: iv.End})
	}
	s.cache.Store(key, slots)
	return ResolvedDay{UserID: userID, Date: date, Open: slots}, nil
}

// IsWithinAvailability reports whether the candidate interval fits fully
// inside one of the user's open windows on its date.
func (s *AvailabilityService) IsWithinAvailability(ctx context.Context, scope Scope, userID string, start, end time.Time) (bool, error) {
	if userID == "" {
		userID = scope.UserID
	}
	candidate := interval.New(start.UTC(), end.UTC())
	if !candidate.IsValid() {
		vErr := &ValidationError{}
		vErr.add("time", "start must be before end")
		return false, vErr
	}

	date := candidate.Start.Format(dateLayout)
	day, _ := time.Parse(dateLayout, date)
	open, err := s.resolveOpen(ctx, scope.FirmID, userID, day, date)
	if err != nil {
		return false, err
	}
	return scheduler.FitsWithin(open, candidate), nil
}

func (s *AvailabilityService) resolveOpen(ctx context.Context, firmID, userID string, day time.Time, date string) ([]interval.Interval, error) {
	windows, err := s.availability.ListWindows(ctx, firmID, userID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	exceptions, err := s.availability.ListExceptions(ctx, firmID, userID, date)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return scheduler.ResolveDay(toSchedulerWindows(windows), toSchedulerExceptions(exceptions), day), nil
}

func validateWindowInput(input WindowInput) error {
	vErr := &ValidationError{}
	if input.Weekday < 0 || input.Weekday > 6 {
		vErr.add("weekday", "weekday must be between 0 and 6")
	}
	validateMinuteRange(vErr, input.StartMinute, input.EndMinute)
	if vErr.HasErrors() {
		return vErr
	}
	return nil
}

func validateExceptionInput(input ExceptionInput) error {
	vErr := &ValidationError{}
	if _, err := time.Parse(dateLayout, input.Date); err != nil {
		vErr.add("date", "date must be YYYY-MM-DD")
	}

	switch scheduler.ExceptionKind(input.Kind) {
	case scheduler.ExceptionBlockDay:
		// Ranged minutes are ignored for full-day blocks.
	case scheduler.ExceptionBlockRange, scheduler.ExceptionOpenRange:
		validateMinuteRange(vErr, input.StartMinute, input.EndMinute)
	default:
		vErr.add("kind", "kind must be block_day, block_range or open_range")
	}

	if vErr.HasErrors() {
		return vErr
	}
	return nil
}

func validateMinuteRange(vErr *ValidationError, startMinute, endMinute int) {
	if startMinute < 0 || startMinute >= minutesPerDay {
		vErr.add("start_minute", "start minute must be within the day")
	}
	if endMinute <= 0 || endMinute > minutesPerDay {
		vErr.add("end_minute", "end minute must be within the day")
	}
	if startMinute >= endMinute {
		vErr.add("minutes", "start minute must be before end minute")
	}
}

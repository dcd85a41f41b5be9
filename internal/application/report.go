package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/firm-scheduler/internal/interval"
	"github.com/example/firm-scheduler/internal/persistence"
	"github.com/example/firm-scheduler/internal/scheduler"
)

const dateLayout = "2006-01-02"

// conflictChecker assembles the full conflict report for a candidate event:
// overlapping events from the store plus availability blocks for the
// organizer and staff participants. Clients are never availability-checked.
type conflictChecker struct {
	events       persistence.EventRepository
	availability persistence.AvailabilityRepository
}

func (c conflictChecker) buildReport(ctx context.Context, firmID string, probe scheduler.Event) (ConflictReport, error) {
	report := ConflictReport{}
	if !probe.Interval.IsValid() {
		return report, nil
	}

	existing, err := c.events.ListEvents(ctx, persistence.EventFilter{
		FirmID:      firmID,
		StartsAfter: &probe.Interval.Start,
		EndsBefore:  &probe.Interval.End,
	})
	if err != nil {
		return report, fmt.Errorf("failed to load overlapping events: %w", err)
	}

	converted := make([]scheduler.Event, 0, len(existing))
	for _, event := range existing {
		converted = append(converted, toSchedulerEvent(event))
	}
	report.ConflictingEvents = toConflictingEvents(scheduler.DetectConflicts(converted, probe))

	checked := sortedUnique(append([]string{probe.OrganizerID}, probe.StaffIDs...))
	for _, userID := range checked {
		block, err := c.availabilityBlock(ctx, firmID, userID, probe.Interval)
		if err != nil {
			return report, err
		}
		if block != nil {
			report.AvailabilityBlocks = append(report.AvailabilityBlocks, *block)
		}
	}

	report.HasConflict = len(report.ConflictingEvents) > 0 || len(report.AvailabilityBlocks) > 0
	return report, nil
}

// availabilityBlock classifies why the candidate does not fit the user's
// declared availability, or returns nil when it does. Users who have
// declared nothing at all are unconstrained.
func (c conflictChecker) availabilityBlock(ctx context.Context, firmID, userID string, candidate interval.Interval) (*AvailabilityBlock, error) {
	windows, err := c.availability.ListWindows(ctx, firmID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load windows for %s: %w", userID, err)
	}
	date := candidate.Start.UTC().Format(dateLayout)
	exceptions, err := c.availability.ListExceptions(ctx, firmID, userID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to load exceptions for %s: %w", userID, err)
	}

	if len(windows) == 0 && len(exceptions) == 0 {
		return nil, nil
	}

	schedExceptions := toSchedulerExceptions(exceptions)
	open := scheduler.ResolveDay(toSchedulerWindows(windows), schedExceptions, candidate.Start.UTC())
	if scheduler.FitsWithin(open, candidate) {
		return nil, nil
	}

	reason := BlockReasonOutsideHours
	for _, exc := range schedExceptions {
		if exc.Kind == scheduler.ExceptionBlockDay {
			reason = BlockReasonFullDay
			break
		}
		reason = BlockReasonException
	}
	return &AvailabilityBlock{UserID: userID, Reason: reason}, nil
}

// participantLockKeys builds the firm-scoped keyed mutex keys guarding a
// candidate's participants and room.
func participantLockKeys(firmID string, probe scheduler.Event) []string {
	keys := make([]string, 0, 4)
	for _, id := range probe.Participants() {
		keys = append(keys, firmID+"/user/"+id)
	}
	if probe.RoomID != nil && *probe.RoomID != "" {
		keys = append(keys, firmID+"/room/"+*probe.RoomID)
	}
	return keys
}

func mapRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		vErr := &ValidationError{}
		vErr.add("id", "a record with this identity already exists")
		return vErr
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{}
		vErr.add("input", "stored constraints reject this input")
		return vErr
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		vErr := &ValidationError{}
		vErr.add("input", "related records are missing")
		return vErr
	}
	return err
}

func validateInterval(vErr *ValidationError, start, end time.Time) {
	if start.IsZero() {
		vErr.add("start", "start is required")
	}
	if end.IsZero() {
		vErr.add("end", "end is required")
	}
	if !start.IsZero() && !end.IsZero() && !start.Before(end) {
		vErr.add("time", "start must be before end")
	}
}

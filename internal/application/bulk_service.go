package application

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/example/firm-scheduler/internal/interval"
	"github.com/example/firm-scheduler/internal/persistence"
)

// BulkService applies one change across many events with per-item
// isolation: every item is its own repository transaction and one failure
// never aborts the batch. Items sharing a participant are grouped and each
// group runs sequentially, so bulk work cannot amplify the conflict race;
// distinct groups run concurrently under a bounded errgroup.
type BulkService struct {
	events      persistence.EventRepository
	checker     conflictChecker
	locks       *keyedMutex
	logger      *slog.Logger
	now         func() time.Time
	workerLimit int
}

// NewBulkService wires dependencies for bulk operations. workerLimit bounds
// the number of groups in flight.
func NewBulkService(events persistence.EventRepository, availability persistence.AvailabilityRepository, locks *keyedMutex, logger *slog.Logger, now func() time.Time, workerLimit int) *BulkService {
	if locks == nil {
		locks = newKeyedMutex()
	}
	if now == nil {
		now = time.Now
	}
	if workerLimit <= 0 {
		workerLimit = 4
	}
	return &BulkService{
		events:      events,
		checker:     conflictChecker{events: events, availability: availability},
		locks:       locks,
		logger:      defaultLogger(logger),
		now:         now,
		workerLimit: workerLimit,
	}
}

// BulkReschedule shifts every named event by a common delta, preserving
// each event's duration. A zero delta runs the batch as a no-op that leaves
// every interval unchanged. Conflicts are surfaced per item, never blocking.
func (s *BulkService) BulkReschedule(ctx context.Context, params BulkRescheduleParams) (BulkResult, error) {
	logger := serviceLogger(ctx, s.logger, "bulk", "reschedule", "firm_id", params.Scope.FirmID)

	vErr := &ValidationError{}
	if len(params.EventIDs) == 0 {
		vErr.add("event_ids", "at least one event id is required")
	}
	if vErr.HasErrors() {
		return BulkResult{}, vErr
	}

	delta := time.Duration(params.DeltaMinutes) * time.Minute
	result, err := s.run(ctx, params.Scope, params.EventIDs, func(ctx context.Context, event persistence.Event) (persistence.Event, error) {
		shifted := interval.Shift(interval.New(event.Start, event.End), delta)
		event.Start = shifted.Start
		event.End = shifted.End
		event.UpdatedAt = s.now()
		return event, nil
	})
	if err != nil {
		return BulkResult{}, err
	}

	logger.InfoContext(ctx, "bulk reschedule finished", "total", result.Total, "succeeded", result.Succeeded, "failed", result.Failed)
	return result, nil
}

// BulkUpdate applies a field patch to every named event.
func (s *BulkService) BulkUpdate(ctx context.Context, params BulkUpdateParams) (BulkResult, error) {
	logger := serviceLogger(ctx, s.logger, "bulk", "update", "firm_id", params.Scope.FirmID)

	vErr := &ValidationError{}
	if len(params.EventIDs) == 0 {
		vErr.add("event_ids", "at least one event id is required")
	}
	patch := params.Patch
	if patch.Title == nil && patch.Location == nil && patch.VideoLink == nil && patch.RoomID == nil && !patch.ClearRoom {
		vErr.add("patch", "at least one field must be set")
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		vErr.add("title", "title cannot be emptied")
	}
	if vErr.HasErrors() {
		return BulkResult{}, vErr
	}

	result, err := s.run(ctx, params.Scope, params.EventIDs, func(ctx context.Context, event persistence.Event) (persistence.Event, error) {
		if patch.Title != nil {
			event.Title = strings.TrimSpace(*patch.Title)
		}
		if patch.Location != nil {
			event.Location = *patch.Location
		}
		if patch.VideoLink != nil {
			event.VideoLink = *patch.VideoLink
		}
		if patch.ClearRoom {
			event.RoomID = nil
		} else if patch.RoomID != nil {
			roomID := *patch.RoomID
			event.RoomID = &roomID
		}
		event.UpdatedAt = s.now()
		return event, nil
	})
	if err != nil {
		return BulkResult{}, err
	}

	logger.InfoContext(ctx, "bulk update finished", "total", result.Total, "succeeded", result.Succeeded, "failed", result.Failed)
	return result, nil
}

type bulkMutation func(ctx context.Context, event persistence.Event) (persistence.Event, error)

func (s *BulkService) run(ctx context.Context, scope Scope, eventIDs []string, mutate bulkMutation) (BulkResult, error) {
	ids := uniqueInOrder(eventIDs)

	results := make(map[string]BulkItemResult, len(ids))
	var resultsMu sync.Mutex
	record := func(item BulkItemResult) {
		resultsMu.Lock()
		results[item.EventID] = item
		resultsMu.Unlock()
	}

	// Load up front so items can be grouped by shared participants.
	loaded := make([]persistence.Event, 0, len(ids))
	for _, id := range ids {
		event, err := s.events.GetEvent(ctx, scope.FirmID, id)
		if err != nil {
			record(BulkItemResult{EventID: id, Error: itemError(mapRepoError(err))})
			continue
		}
		if event.Status == persistence.EventStatusCancelled {
			record(BulkItemResult{EventID: id, Error: "event is cancelled"})
			continue
		}
		loaded = append(loaded, event)
	}

	eg := &errgroup.Group{}
	eg.SetLimit(s.workerLimit)
	for _, batch := range groupByParticipants(loaded) {
		batch := batch
		eg.Go(func() error {
			for _, event := range batch {
				record(s.applyOne(ctx, scope, event, mutate))
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return BulkResult{}, err
	}

	result := BulkResult{Total: len(ids)}
	for _, id := range ids {
		item := results[id]
		if item.Success {
			result.Succeeded++
		} else {
			result.Failed++
		}
		result.Items = append(result.Items, item)
	}
	return result, nil
}

func (s *BulkService) applyOne(ctx context.Context, scope Scope, event persistence.Event, mutate bulkMutation) BulkItemResult {
	mutated, err := mutate(ctx, event)
	if err != nil {
		return BulkItemResult{EventID: event.ID, Error: itemError(err)}
	}

	probe := toSchedulerEvent(mutated)
	unlock := s.locks.Lock(participantLockKeys(scope.FirmID, probe)...)
	defer unlock()

	report, err := s.checker.buildReport(ctx, scope.FirmID, probe)
	if err != nil {
		return BulkItemResult{EventID: event.ID, Error: itemError(err)}
	}

	if err := s.events.UpdateEvent(ctx, mutated); err != nil {
		return BulkItemResult{EventID: event.ID, Error: itemError(mapRepoError(err))}
	}

	applied := toApplicationEvent(mutated)
	return BulkItemResult{
		EventID:   event.ID,
		Success:   true,
		Event:     &applied,
		Conflicts: report.ConflictingEvents,
	}
}

// groupByParticipants partitions events so any two events sharing a
// participant land in the same group.
func groupByParticipants(events []persistence.Event) [][]persistence.Event {
	groups := make([][]persistence.Event, 0)
	owner := make(map[string]int)

	for _, event := range events {
		participants := toSchedulerEvent(event).Participants()

		target := -1
		for _, id := range participants {
			if idx, ok := owner[id]; ok {
				if target == -1 {
					target = idx
				} else if idx != target {
					// Merge the second group into the first.
					groups[target] = append(groups[target], groups[idx]...)
					for _, moved := range groups[idx] {
						for _, pid := range toSchedulerEvent(moved).Participants() {
							owner[pid] = target
						}
					}
					groups[idx] = nil
				}
			}
		}

		if target == -1 {
			groups = append(groups, []persistence.Event{event})
			target = len(groups) - 1
		} else {
			groups[target] = append(groups[target], event)
		}
		for _, id := range participants {
			owner[id] = target
		}
	}

	out := make([][]persistence.Event, 0, len(groups))
	for _, g := range groups {
		if len(g) > 0 {
			out = append(out, g)
		}
	}
	return out
}

func uniqueInOrder(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}

func itemError(err error) string {
	if err == nil {
		return ""
	}
	var vErr *ValidationError
	if errors.As(err, &vErr) && len(vErr.FieldErrors) > 0 {
		parts := make([]string, 0, len(vErr.FieldErrors))
		for field, message := range vErr.FieldErrors {
			parts = append(parts, field+": "+message)
		}
		sort.Strings(parts)
		return strings.Join(parts, "; ")
	}
	return err.Error()
}

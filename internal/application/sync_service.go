package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/example/firm-scheduler/internal/persistence"
	"github.com/example/firm-scheduler/internal/secrets"
)

// Reconciliation window around the current instant.
const (
	syncLookBehind = 30 * 24 * time.Hour
	syncLookAhead  = 90 * 24 * time.Hour
)

// SyncService reconciles local events with external calendar providers.
// Runs for the same integration are mutually exclusive; a provider error on
// one record never aborts the rest of the run.
type SyncService struct {
	integrations persistence.IntegrationRepository
	events       persistence.EventRepository
	users        persistence.UserDirectory
	providers    *ProviderRegistry
	sealer       *secrets.Sealer
	locks        *keyedMutex
	logger       *slog.Logger
	idGenerator  func() string
	now          func() time.Time
	callTimeout  time.Duration
	workerLimit  int
}

// NewSyncService wires dependencies for integration and sync operations.
func NewSyncService(integrations persistence.IntegrationRepository, events persistence.EventRepository, users persistence.UserDirectory, providers *ProviderRegistry, sealer *secrets.Sealer, locks *keyedMutex, logger *slog.Logger, idGenerator func() string, now func() time.Time, callTimeout time.Duration, workerLimit int) *SyncService {
	if locks == nil {
		locks = newKeyedMutex()
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if callTimeout <= 0 {
		callTimeout = 15 * time.Second
	}
	if workerLimit <= 0 {
		workerLimit = 4
	}
	return &SyncService{
		integrations: integrations,
		events:       events,
		users:        users,
		providers:    providers,
		sealer:       sealer,
		locks:        locks,
		logger:       defaultLogger(logger),
		idGenerator:  idGenerator,
		now:          now,
		callTimeout:  callTimeout,
		workerLimit:  workerLimit,
	}
}

// Connect seals the credential material and stores a new provider
// connection for a user.
func (s *SyncService) Connect(ctx context.Context, params ConnectIntegrationParams) (CalendarIntegration, error) {
	logger := serviceLogger(ctx, s.logger, "sync", "connect", "firm_id", params.Scope.FirmID)

	userID := params.UserID
	if userID == "" {
		userID = params.Scope.UserID
	}
	if userID != params.Scope.UserID && !params.Scope.IsStaff {
		return CalendarIntegration{}, ErrUnauthorized
	}

	vErr := &ValidationError{}
	if _, ok := s.providers.Lookup(params.Provider); !ok {
		vErr.add("provider", fmt.Sprintf("unknown provider: %s", params.Provider))
	}
	switch params.SyncDirection {
	case persistence.SyncDirectionPush, persistence.SyncDirectionPull, persistence.SyncDirectionBidirectional:
	default:
		vErr.add("sync_direction", "direction must be push, pull or bidirectional")
	}
	if len(params.Credential) == 0 {
		vErr.add("credential", "credential material is required")
	}
	if vErr.HasErrors() {
		return CalendarIntegration{}, vErr
	}

	if s.users != nil {
		if _, err := s.users.GetUser(ctx, params.Scope.FirmID, userID); err != nil {
			return CalendarIntegration{}, mapRepoError(err)
		}
	}

	sealed, err := s.sealer.Seal(params.Credential)
	if err != nil {
		return CalendarIntegration{}, fmt.Errorf("failed to seal credential: %w", err)
	}

	createdAt := s.now()
	integration := persistence.CalendarIntegration{
		ID:            s.idGenerator(),
		FirmID:        params.Scope.FirmID,
		UserID:        userID,
		Provider:      params.Provider,
		Credential:    sealed,
		SyncDirection: params.SyncDirection,
		AutoSync:      params.AutoSync,
		Active:        true,
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}
	if err := s.integrations.CreateIntegration(ctx, integration); err != nil {
		return CalendarIntegration{}, mapRepoError(err)
	}

	logger.InfoContext(ctx, "integration connected", "integration_id", integration.ID, "provider", integration.Provider)
	return toApplicationIntegration(integration), nil
}

// Disconnect deletes the connection and its sealed credential.
func (s *SyncService) Disconnect(ctx context.Context, scope Scope, integrationID string) error {
	integration, err := s.integrations.GetIntegration(ctx, scope.FirmID, integrationID)
	if err != nil {
		return mapRepoError(err)
	}
	if integration.UserID != scope.UserID && !scope.IsStaff {
		return ErrUnauthorized
	}
	return mapRepoError(s.integrations.DeleteIntegration(ctx, scope.FirmID, integrationID))
}

// Status returns the integration without its credential material.
func (s *SyncService) Status(ctx context.Context, scope Scope, integrationID string) (CalendarIntegration, error) {
	integration, err := s.integrations.GetIntegration(ctx, scope.FirmID, integrationID)
	if err != nil {
		return CalendarIntegration{}, mapRepoError(err)
	}
	return toApplicationIntegration(integration), nil
}

// List returns a firm's integrations.
func (s *SyncService) List(ctx context.Context, scope Scope) ([]CalendarIntegration, error) {
	integrations, err := s.integrations.ListIntegrations(ctx, scope.FirmID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	out := make([]CalendarIntegration, 0, len(integrations))
	for _, integration := range integrations {
		out = append(out, toApplicationIntegration(integration))
	}
	return out, nil
}

// Sync runs one reconciliation for the integration.
func (s *SyncService) Sync(ctx context.Context, scope Scope, integrationID string) (SyncResult, error) {
	integration, err := s.integrations.GetIntegration(ctx, scope.FirmID, integrationID)
	if err != nil {
		return SyncResult{}, mapRepoError(err)
	}
	return s.syncIntegration(ctx, integration)
}

// SyncAll reconciles every active auto-sync integration. Distinct
// integrations run concurrently under a bounded errgroup; the per-key lock
// keeps two runs for the same integration from interleaving.
func (s *SyncService) SyncAll(ctx context.Context) ([]SyncResult, error) {
	integrations, err := s.integrations.ListAutoSync(ctx)
	if err != nil {
		return nil, mapRepoError(err)
	}

	results := make([]SyncResult, len(integrations))
	var resultsMu sync.Mutex

	eg := &errgroup.Group{}
	eg.SetLimit(s.workerLimit)
	for i, integration := range integrations {
		i, integration := i, integration
		eg.Go(func() error {
			result, err := s.syncIntegration(ctx, integration)
			if err != nil {
				result = SyncResult{IntegrationID: integration.ID, Status: persistence.SyncStatusError, Errors: []string{err.Error()}}
			}
			resultsMu.Lock()
			results[i] = result
			resultsMu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *SyncService) syncIntegration(ctx context.Context, integration persistence.CalendarIntegration) (SyncResult, error) {
	logger := serviceLogger(ctx, s.logger, "sync", "reconcile", "integration_id", integration.ID, "provider", integration.Provider)

	unlock := s.locks.Lock("sync/" + integration.ID)
	defer unlock()

	result := SyncResult{IntegrationID: integration.ID}

	if !integration.Active {
		vErr := &ValidationError{}
		vErr.add("integration", "integration is not active")
		return result, vErr
	}

	provider, ok := s.providers.Lookup(integration.Provider)
	if !ok {
		result.Status = persistence.SyncStatusError
		result.Errors = append(result.Errors, fmt.Sprintf("unknown provider: %s", integration.Provider))
		s.recordOutcome(ctx, logger, integration, result)
		return result, nil
	}

	credential, err := s.sealer.Open(integration.Credential)
	if err != nil {
		result.Status = persistence.SyncStatusError
		result.Errors = append(result.Errors, "credential cannot be unsealed")
		s.recordOutcome(ctx, logger, integration, result)
		return result, nil
	}

	locals, err := s.events.ListEvents(ctx, persistence.EventFilter{
		FirmID:           integration.FirmID,
		ParticipantIDs:   []string{integration.UserID},
		IncludeCancelled: true,
	})
	if err != nil {
		return result, mapRepoError(err)
	}

	var remotes []ProviderEvent
	if integration.SyncDirection != persistence.SyncDirectionPush {
		remotes, err = s.fetchRemote(ctx, provider, credential)
		if err != nil {
			result.Status = persistence.SyncStatusError
			result.Errors = append(result.Errors, fmt.Sprintf("fetch failed: %v", err))
			s.recordOutcome(ctx, logger, integration, result)
			return result, nil
		}
	}

	switch integration.SyncDirection {
	case persistence.SyncDirectionPush:
		s.push(ctx, integration, provider, credential, locals, &result)
	case persistence.SyncDirectionPull:
		s.pull(ctx, integration, locals, remotes, false, &result)
	case persistence.SyncDirectionBidirectional:
		s.pull(ctx, integration, locals, remotes, true, &result)
		// Reload so pushes see the pulled state.
		locals, err = s.events.ListEvents(ctx, persistence.EventFilter{
			FirmID:           integration.FirmID,
			ParticipantIDs:   []string{integration.UserID},
			IncludeCancelled: true,
		})
		if err != nil {
			return result, mapRepoError(err)
		}
		s.push(ctx, integration, provider, credential, locals, &result)
	}

	switch {
	case len(result.Errors) > 0 && result.Pushed == 0 && result.Pulled == 0:
		result.Status = persistence.SyncStatusError
	case len(result.Errors) > 0 || len(result.Notes) > 0:
		result.Status = persistence.SyncStatusPartial
	default:
		result.Status = persistence.SyncStatusSuccess
	}

	s.recordOutcome(ctx, logger, integration, result)
	return result, nil
}

// push translates local events into provider calls keyed by stored
// external refs. Missing ref means create remotely and persist the
// returned id; a locally cancelled event with a ref is deleted remotely.
// An event linked to a different provider is skipped: that integration
// owns the remote copy, and creating it here would steal the ref.
func (s *SyncService) push(ctx context.Context, integration persistence.CalendarIntegration, provider CalendarProvider, credential []byte, locals []persistence.Event, result *SyncResult) {
	for _, event := range locals {
		hasRef := event.External != nil && event.External.Provider == integration.Provider

		switch {
		case event.Status == persistence.EventStatusCancelled && hasRef:
			err := s.callDelete(ctx, provider, credential, event.External.EventID)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("delete %s: %v", event.ID, err))
				continue
			}
			event.External = nil
			event.UpdatedAt = s.now()
			if err := s.events.UpdateEvent(ctx, event); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("unlink %s: %v", event.ID, err))
				continue
			}
			result.Pushed++

		case event.Status == persistence.EventStatusCancelled:
			// Never pushed; nothing to remove remotely.

		case hasRef:
			err := s.callUpdate(ctx, provider, credential, event.External.EventID, toProviderEvent(event))
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("update %s: %v", event.ID, err))
				continue
			}
			result.Pushed++

		case event.External != nil:
			// Ref belongs to another provider's integration.

		default:
			externalID, err := s.callCreate(ctx, provider, credential, toProviderEvent(event))
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("create %s: %v", event.ID, err))
				continue
			}
			event.External = &persistence.ExternalRef{Provider: integration.Provider, EventID: externalID}
			event.UpdatedAt = s.now()
			if err := s.events.UpdateEvent(ctx, event); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("link %s: %v", event.ID, err))
				continue
			}
			result.Pushed++
		}
	}
}

// pull maps remote events onto local state by external ref. Unmatched
// remotes become new local events; matched ones update time, title and
// location. In bidirectional mode a pair modified on both sides since the
// last run resolves last-write-wins and the run is marked partial.
func (s *SyncService) pull(ctx context.Context, integration persistence.CalendarIntegration, locals []persistence.Event, remotes []ProviderEvent, bidirectional bool, result *SyncResult) {
	byRef := make(map[string]persistence.Event, len(locals))
	for _, event := range locals {
		if event.External != nil && event.External.Provider == integration.Provider {
			byRef[event.External.EventID] = event
		}
	}

	for _, remote := range remotes {
		local, matched := byRef[remote.ExternalID]
		if !matched {
			now := s.now()
			event := persistence.Event{
				ID:          s.idGenerator(),
				FirmID:      integration.FirmID,
				OrganizerID: integration.UserID,
				StaffIDs:    []string{integration.UserID},
				Title:       remote.Title,
				Location:    remote.Location,
				Start:       remote.Start.UTC(),
				End:         remote.End.UTC(),
				Status:      persistence.EventStatusConfirmed,
				External:    &persistence.ExternalRef{Provider: integration.Provider, EventID: remote.ExternalID},
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := s.events.CreateEvent(ctx, event); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("import %s: %v", remote.ExternalID, err))
				continue
			}
			result.Pulled++
			continue
		}

		if local.Status == persistence.EventStatusCancelled {
			continue
		}
		if !remoteDiffers(local, remote) {
			continue
		}

		if bidirectional && bothModified(integration.LastSyncAt, local.UpdatedAt, remote.Updated) {
			if local.UpdatedAt.After(remote.Updated) {
				// Local wins; the push leg overwrites the remote copy.
				result.Notes = append(result.Notes, fmt.Sprintf("event %s: both sides modified, local version kept", local.ID))
				continue
			}
			result.Notes = append(result.Notes, fmt.Sprintf("event %s: both sides modified, remote version kept", local.ID))
		}

		local.Title = remote.Title
		local.Location = remote.Location
		local.Start = remote.Start.UTC()
		local.End = remote.End.UTC()
		local.UpdatedAt = s.now()
		if err := s.events.UpdateEvent(ctx, local); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("apply %s: %v", remote.ExternalID, err))
			continue
		}
		result.Pulled++
	}
}

func (s *SyncService) recordOutcome(ctx context.Context, logger *slog.Logger, integration persistence.CalendarIntegration, result SyncResult) {
	at := s.now()
	integration.LastSyncAt = &at
	integration.LastSyncStatus = result.Status
	integration.UpdatedAt = at
	if err := s.integrations.UpdateIntegration(ctx, integration); err != nil {
		logger.ErrorContext(ctx, "failed to record sync outcome", "error", err)
		return
	}
	logger.InfoContext(ctx, "sync finished",
		"status", result.Status,
		"pushed", result.Pushed,
		"pulled", result.Pulled,
		"errors", len(result.Errors),
	)
}

func (s *SyncService) fetchRemote(ctx context.Context, provider CalendarProvider, credential []byte) ([]ProviderEvent, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	now := s.now()
	return provider.FetchEvents(callCtx, credential, now.Add(-syncLookBehind), now.Add(syncLookAhead))
}

func (s *SyncService) callCreate(ctx context.Context, provider CalendarProvider, credential []byte, event ProviderEvent) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	return provider.CreateEvent(callCtx, credential, event)
}

func (s *SyncService) callUpdate(ctx context.Context, provider CalendarProvider, credential []byte, externalID string, event ProviderEvent) error {
	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	return provider.UpdateEvent(callCtx, credential, externalID, event)
}

func (s *SyncService) callDelete(ctx context.Context, provider CalendarProvider, credential []byte, externalID string) error {
	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	return provider.DeleteEvent(callCtx, credential, externalID)
}

func toProviderEvent(event persistence.Event) ProviderEvent {
	return ProviderEvent{
		Title:    event.Title,
		Location: event.Location,
		Start:    event.Start,
		End:      event.End,
		Updated:  event.UpdatedAt,
	}
}

func remoteDiffers(local persistence.Event, remote ProviderEvent) bool {
	return local.Title != remote.Title ||
		local.Location != remote.Location ||
		!local.Start.Equal(remote.Start.UTC()) ||
		!local.End.Equal(remote.End.UTC())
}

func bothModified(lastSync *time.Time, localUpdated, remoteUpdated time.Time) bool {
	if lastSync == nil {
		return false
	}
	return localUpdated.After(*lastSync) && remoteUpdated.After(*lastSync)
}

package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/firm-scheduler/internal/persistence"
)

// ShareService manages directed calendar sharing edges between firm users.
type ShareService struct {
	shares      persistence.ShareRepository
	users       persistence.UserDirectory
	logger      *slog.Logger
	idGenerator func() string
	now         func() time.Time
}

// NewShareService wires dependencies for share operations.
func NewShareService(shares persistence.ShareRepository, users persistence.UserDirectory, logger *slog.Logger, idGenerator func() string, now func() time.Time) *ShareService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ShareService{
		shares:      shares,
		users:       users,
		logger:      defaultLogger(logger),
		idGenerator: idGenerator,
		now:         now,
	}
}

// CreateShare grants another user visibility into the owner's calendar.
// One edge per (owner, shared-with) pair; a duplicate create is rejected.
func (s *ShareService) CreateShare(ctx context.Context, scope Scope, input ShareInput) (CalendarShare, error) {
	logger := serviceLogger(ctx, s.logger, "shares", "create", "firm_id", scope.FirmID)

	ownerID := input.OwnerID
	if ownerID == "" {
		ownerID = scope.UserID
	}
	if ownerID != scope.UserID && !scope.IsStaff {
		return CalendarShare{}, ErrUnauthorized
	}

	vErr := &ValidationError{}
	if input.SharedWithID == "" {
		vErr.add("shared_with_id", "target user is required")
	}
	if input.SharedWithID == ownerID {
		vErr.add("shared_with_id", "cannot share a calendar with its owner")
	}
	if !input.CanView && !input.CanEdit {
		vErr.add("permissions", "at least one permission is required")
	}
	if vErr.HasErrors() {
		return CalendarShare{}, vErr
	}

	for _, userID := range []string{ownerID, input.SharedWithID} {
		if err := s.ensureUser(ctx, scope.FirmID, userID); err != nil {
			return CalendarShare{}, err
		}
	}

	createdAt := s.now()
	share := persistence.CalendarShare{
		ID:           s.idGenerator(),
		FirmID:       scope.FirmID,
		OwnerID:      ownerID,
		SharedWithID: input.SharedWithID,
		CanView:      input.CanView || input.CanEdit,
		CanEdit:      input.CanEdit,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}
	if err := s.shares.CreateShare(ctx, share); err != nil {
		if errors.Is(err, persistence.ErrDuplicate) {
			dupErr := &ValidationError{}
			dupErr.add("shared_with_id", "an edge for this pair already exists")
			return CalendarShare{}, dupErr
		}
		return CalendarShare{}, mapRepoError(err)
	}

	logger.InfoContext(ctx, "share created", "share_id", share.ID, "owner_id", ownerID, "shared_with_id", input.SharedWithID)
	return toApplicationShare(share), nil
}

// UpdateShare replaces the permission flags of an edge.
func (s *ShareService) UpdateShare(ctx context.Context, scope Scope, shareID string, canView, canEdit bool) (CalendarShare, error) {
	existing, err := s.shares.GetShare(ctx, scope.FirmID, shareID)
	if err != nil {
		return CalendarShare{}, mapRepoError(err)
	}
	if existing.OwnerID != scope.UserID && !scope.IsStaff {
		return CalendarShare{}, ErrUnauthorized
	}
	if !canView && !canEdit {
		vErr := &ValidationError{}
		vErr.add("permissions", "at least one permission is required")
		return CalendarShare{}, vErr
	}

	existing.CanView = canView || canEdit
	existing.CanEdit = canEdit
	existing.UpdatedAt = s.now()
	if err := s.shares.UpdateShare(ctx, existing); err != nil {
		return CalendarShare{}, mapRepoError(err)
	}
	return toApplicationShare(existing), nil
}

// RevokeShare removes an edge entirely.
func (s *ShareService) RevokeShare(ctx context.Context, scope Scope, shareID string) error {
	existing, err := s.shares.GetShare(ctx, scope.FirmID, shareID)
	if err != nil {
		return mapRepoError(err)
	}
	if existing.OwnerID != scope.UserID && !scope.IsStaff {
		return ErrUnauthorized
	}
	return mapRepoError(s.shares.DeleteShare(ctx, scope.FirmID, shareID))
}

// ListShares returns a firm's edges, optionally narrowed to one owner.
func (s *ShareService) ListShares(ctx context.Context, scope Scope, ownerID string) ([]CalendarShare, error) {
	shares, err := s.shares.ListShares(ctx, scope.FirmID, ownerID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	out := make([]CalendarShare, 0, len(shares))
	for _, share := range shares {
		out = append(out, toApplicationShare(share))
	}
	return out, nil
}

func (s *ShareService) ensureUser(ctx context.Context, firmID, userID string) error {
	if s.users == nil {
		return nil
	}
	if _, err := s.users.GetUser(ctx, firmID, userID); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			vErr := &ValidationError{}
			vErr.add("user_id", fmt.Sprintf("unknown user id: %s", userID))
			return vErr
		}
		return fmt.Errorf("failed to look up user %s: %w", userID, err)
	}
	return nil
}

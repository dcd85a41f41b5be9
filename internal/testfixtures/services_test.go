package testfixtures

import (
	"context"
	"testing"

	"github.com/example/firm-scheduler/internal/application"
	"github.com/example/firm-scheduler/internal/persistence"
)

type capturingShareRepo struct {
	created persistence.CalendarShare
}

func (c *capturingShareRepo) CreateShare(ctx context.Context, share persistence.CalendarShare) error {
	c.created = share
	return nil
}

func (c *capturingShareRepo) UpdateShare(ctx context.Context, share persistence.CalendarShare) error {
	return nil
}

func (c *capturingShareRepo) GetShare(ctx context.Context, firmID, id string) (persistence.CalendarShare, error) {
	return persistence.CalendarShare{}, persistence.ErrNotFound
}

func (c *capturingShareRepo) DeleteShare(ctx context.Context, firmID, id string) error {
	return nil
}

func (c *capturingShareRepo) ListShares(ctx context.Context, firmID, ownerID string) ([]persistence.CalendarShare, error) {
	return nil, nil
}

func TestServiceFactoryNewShareService(t *testing.T) {
	factory := NewServiceFactory()
	repo := &capturingShareRepo{}

	svc := factory.NewShareService(ShareServiceDeps{Shares: repo})
	scope := application.Scope{FirmID: DefaultFirmID, UserID: "staff-001", IsStaff: true}

	share, err := svc.CreateShare(context.Background(), scope, application.ShareInput{
		SharedWithID: "staff-002",
		CanView:      true,
	})
	if err != nil {
		t.Fatalf("CreateShare returned error: %v", err)
	}

	if share.ID != "id-1" {
		t.Fatalf("expected generated ID id-1, got %q", share.ID)
	}
	if repo.created.ID != share.ID {
		t.Fatalf("repository received unexpected ID: %q", repo.created.ID)
	}
	if !share.CreatedAt.Equal(factory.Clock.Current()) {
		t.Fatalf("expected timestamp %v, got %v", factory.Clock.Current(), share.CreatedAt)
	}
}

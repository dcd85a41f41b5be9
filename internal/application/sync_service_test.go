package application

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/example/firm-scheduler/internal/persistence"
	"github.com/example/firm-scheduler/internal/secrets"
)

type syncFixture struct {
	svc          *SyncService
	integrations *memIntegrationRepo
	events       *memEventRepo
	provider     *providerStub
	sealer       *secrets.Sealer
	now          time.Time
}

func newSyncFixture(t *testing.T) syncFixture {
	t.Helper()

	sealer, err := secrets.NewSealer(strings.Repeat("ab", 32))
	if err != nil {
		t.Fatalf("NewSealer failed: %v", err)
	}

	provider := newProviderStub()
	registry := NewProviderRegistry()
	registry.Register("google", provider)

	integrations := newMemIntegrationRepo()
	events := newMemEventRepo()
	now := utc(2026, time.March, 1, 8, 0)

	svc := NewSyncService(integrations, events, firmDirectory(), registry, sealer, nil, nil,
		sequenceIDs("sync"), fixedNow(now), time.Second, 2)

	return syncFixture{
		svc:          svc,
		integrations: integrations,
		events:       events,
		provider:     provider,
		sealer:       sealer,
		now:          now,
	}
}

// seedIntegration stores a connection directly, bypassing Connect, so tests
// can control every field including LastSyncAt.
func (fx syncFixture) seedIntegration(t *testing.T, direction string, lastSync *time.Time) persistence.CalendarIntegration {
	t.Helper()
	sealed, err := fx.sealer.Seal([]byte("oauth-token"))
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	integration := persistence.CalendarIntegration{
		ID:            "int-1",
		FirmID:        "firm-1",
		UserID:        "staff-1",
		Provider:      "google",
		Credential:    sealed,
		SyncDirection: direction,
		Active:        true,
		LastSyncAt:    lastSync,
		CreatedAt:     fx.now,
		UpdatedAt:     fx.now,
	}
	if err := fx.integrations.CreateIntegration(context.Background(), integration); err != nil {
		t.Fatalf("seed integration failed: %v", err)
	}
	return integration
}

func (fx syncFixture) seedLocalEvent(t *testing.T, id string, external *persistence.ExternalRef, updatedAt time.Time) persistence.Event {
	t.Helper()
	event := persistence.Event{
		ID:          id,
		FirmID:      "firm-1",
		OrganizerID: "staff-1",
		StaffIDs:    []string{"staff-1"},
		Title:       "Local " + id,
		Start:       utc(2026, time.March, 3, 10, 0),
		End:         utc(2026, time.March, 3, 11, 0),
		Status:      persistence.EventStatusConfirmed,
		External:    external,
		UpdatedAt:   updatedAt,
	}
	if err := fx.events.CreateEvent(context.Background(), event); err != nil {
		t.Fatalf("seed event %s failed: %v", id, err)
	}
	return event
}

func TestSyncService_Connect_SealsCredentialAtRest(t *testing.T) {
	t.Parallel()

	fx := newSyncFixture(t)
	plaintext := []byte(`{"access_token":"tok"}`)

	connected, err := fx.svc.Connect(context.Background(), ConnectIntegrationParams{
		Scope:         staffScope(),
		Provider:      "google",
		Credential:    plaintext,
		SyncDirection: persistence.SyncDirectionBidirectional,
		AutoSync:      true,
	})
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if !connected.Active {
		t.Fatal("expected a fresh connection to be active")
	}

	stored, err := fx.integrations.GetIntegration(context.Background(), "firm-1", connected.ID)
	if err != nil {
		t.Fatalf("GetIntegration failed: %v", err)
	}
	if bytes.Contains(stored.Credential, plaintext) {
		t.Fatal("credential stored in the clear")
	}
	recovered, err := fx.sealer.Open(stored.Credential)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if !bytes.Equal(recovered, plaintext) {
		t.Fatalf("unsealed credential does not round trip: %q", recovered)
	}
}

func TestSyncService_Connect_ValidatesInput(t *testing.T) {
	t.Parallel()

	fx := newSyncFixture(t)

	_, err := fx.svc.Connect(context.Background(), ConnectIntegrationParams{
		Scope:         staffScope(),
		Provider:      "fax",
		SyncDirection: "sideways",
	})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	for _, field := range []string{"provider", "sync_direction", "credential"} {
		if _, ok := vErr.FieldErrors[field]; !ok {
			t.Fatalf("expected %s field error, got %v", field, vErr.FieldErrors)
		}
	}
}

func TestSyncService_Push_CreatesRemoteAndPersistsRef(t *testing.T) {
	t.Parallel()

	fx := newSyncFixture(t)
	fx.seedIntegration(t, persistence.SyncDirectionPush, nil)
	fx.seedLocalEvent(t, "evt-1", nil, fx.now)

	result, err := fx.svc.Sync(context.Background(), staffScope(), "int-1")
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	if result.Status != persistence.SyncStatusSuccess || result.Pushed != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	linked, err := fx.events.GetEvent(context.Background(), "firm-1", "evt-1")
	if err != nil {
		t.Fatalf("GetEvent failed: %v", err)
	}
	if linked.External == nil || linked.External.Provider != "google" {
		t.Fatalf("expected persisted external ref, got %+v", linked.External)
	}
	if _, ok := fx.provider.remote[linked.External.EventID]; !ok {
		t.Fatalf("expected remote copy under %s", linked.External.EventID)
	}
}

func TestSyncService_Push_DeletesRemoteForCancelledEvent(t *testing.T) {
	t.Parallel()

	fx := newSyncFixture(t)
	fx.seedIntegration(t, persistence.SyncDirectionPush, nil)

	fx.provider.remote["ext-9"] = ProviderEvent{ExternalID: "ext-9", Title: "Stale"}
	event := fx.seedLocalEvent(t, "evt-1", &persistence.ExternalRef{Provider: "google", EventID: "ext-9"}, fx.now)
	event.Status = persistence.EventStatusCancelled
	if err := fx.events.UpdateEvent(context.Background(), event); err != nil {
		t.Fatalf("UpdateEvent failed: %v", err)
	}

	result, err := fx.svc.Sync(context.Background(), staffScope(), "int-1")
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	if result.Pushed != 1 {
		t.Fatalf("expected the deletion counted, got %+v", result)
	}
	if _, ok := fx.provider.remote["ext-9"]; ok {
		t.Fatal("expected the remote copy removed")
	}
	unlinked, err := fx.events.GetEvent(context.Background(), "firm-1", "evt-1")
	if err != nil {
		t.Fatalf("GetEvent failed: %v", err)
	}
	if unlinked.External != nil {
		t.Fatalf("expected the ref cleared, got %+v", unlinked.External)
	}
}

func TestSyncService_Push_LeavesOtherProvidersRefsAlone(t *testing.T) {
	t.Parallel()

	fx := newSyncFixture(t)
	fx.seedIntegration(t, persistence.SyncDirectionPush, nil)
	fx.seedLocalEvent(t, "evt-1", &persistence.ExternalRef{Provider: "outlook", EventID: "ext-out"}, fx.now)

	result, err := fx.svc.Sync(context.Background(), staffScope(), "int-1")
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	if result.Status != persistence.SyncStatusSuccess || result.Pushed != 0 {
		t.Fatalf("expected the foreign-linked event skipped, got %+v", result)
	}
	if len(fx.provider.remote) != 0 {
		t.Fatalf("expected no remote copy created, got %v", fx.provider.remote)
	}
	kept, err := fx.events.GetEvent(context.Background(), "firm-1", "evt-1")
	if err != nil {
		t.Fatalf("GetEvent failed: %v", err)
	}
	if kept.External == nil || kept.External.Provider != "outlook" || kept.External.EventID != "ext-out" {
		t.Fatalf("expected the original ref preserved, got %+v", kept.External)
	}
}

func TestSyncService_Pull_ImportsUnmatchedRemotes(t *testing.T) {
	t.Parallel()

	fx := newSyncFixture(t)
	fx.seedIntegration(t, persistence.SyncDirectionPull, nil)
	fx.provider.remote["ext-7"] = ProviderEvent{
		ExternalID: "ext-7",
		Title:      "Deposition",
		Location:   "Court annex",
		Start:      utc(2026, time.March, 5, 9, 0),
		End:        utc(2026, time.March, 5, 10, 0),
		Updated:    fx.now,
	}

	result, err := fx.svc.Sync(context.Background(), staffScope(), "int-1")
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	if result.Status != persistence.SyncStatusSuccess || result.Pulled != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	imported, err := fx.events.ListEvents(context.Background(), persistence.EventFilter{
		FirmID: "firm-1", WithExternalRef: true,
	})
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if len(imported) != 1 {
		t.Fatalf("expected one imported event, got %d", len(imported))
	}
	got := imported[0]
	if got.Title != "Deposition" || got.OrganizerID != "staff-1" {
		t.Fatalf("unexpected imported event %+v", got)
	}
	if got.External.EventID != "ext-7" {
		t.Fatalf("expected ref ext-7, got %+v", got.External)
	}
}

func TestSyncService_Bidirectional_RemoteWinsWhenNewer(t *testing.T) {
	t.Parallel()

	fx := newSyncFixture(t)

	lastSync := utc(2026, time.February, 1, 0, 0)
	fx.seedIntegration(t, persistence.SyncDirectionBidirectional, &lastSync)

	// Both sides touched since the last run; the remote edit is newer.
	localEdit := utc(2026, time.February, 10, 0, 0)
	remoteEdit := utc(2026, time.February, 20, 0, 0)
	fx.seedLocalEvent(t, "evt-1", &persistence.ExternalRef{Provider: "google", EventID: "ext-1"}, localEdit)
	fx.provider.remote["ext-1"] = ProviderEvent{
		ExternalID: "ext-1",
		Title:      "Remote title",
		Start:      utc(2026, time.March, 3, 10, 0),
		End:        utc(2026, time.March, 3, 11, 0),
		Updated:    remoteEdit,
	}

	result, err := fx.svc.Sync(context.Background(), staffScope(), "int-1")
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	if result.Status != persistence.SyncStatusPartial {
		t.Fatalf("expected partial status for a both-modified pair, got %+v", result)
	}
	if len(result.Notes) != 1 {
		t.Fatalf("expected a resolution note, got %v", result.Notes)
	}
	resolved, err := fx.events.GetEvent(context.Background(), "firm-1", "evt-1")
	if err != nil {
		t.Fatalf("GetEvent failed: %v", err)
	}
	if resolved.Title != "Remote title" {
		t.Fatalf("expected the newer remote edit applied, got %q", resolved.Title)
	}
}

func TestSyncService_Bidirectional_LocalWinsWhenNewer(t *testing.T) {
	t.Parallel()

	fx := newSyncFixture(t)

	lastSync := utc(2026, time.February, 1, 0, 0)
	fx.seedIntegration(t, persistence.SyncDirectionBidirectional, &lastSync)

	localEdit := utc(2026, time.February, 20, 0, 0)
	remoteEdit := utc(2026, time.February, 10, 0, 0)
	fx.seedLocalEvent(t, "evt-1", &persistence.ExternalRef{Provider: "google", EventID: "ext-1"}, localEdit)
	fx.provider.remote["ext-1"] = ProviderEvent{
		ExternalID: "ext-1",
		Title:      "Remote title",
		Start:      utc(2026, time.March, 3, 10, 0),
		End:        utc(2026, time.March, 3, 11, 0),
		Updated:    remoteEdit,
	}

	result, err := fx.svc.Sync(context.Background(), staffScope(), "int-1")
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	if result.Status != persistence.SyncStatusPartial {
		t.Fatalf("expected partial status, got %+v", result)
	}
	kept, err := fx.events.GetEvent(context.Background(), "firm-1", "evt-1")
	if err != nil {
		t.Fatalf("GetEvent failed: %v", err)
	}
	if kept.Title != "Local evt-1" {
		t.Fatalf("expected the local edit kept, got %q", kept.Title)
	}
	// The push leg overwrote the remote copy with the winner.
	if fx.provider.remote["ext-1"].Title != "Local evt-1" {
		t.Fatalf("expected the remote copy overwritten, got %q", fx.provider.remote["ext-1"].Title)
	}
}

func TestSyncService_OneRecordErrorDoesNotAbortTheRun(t *testing.T) {
	t.Parallel()

	fx := newSyncFixture(t)
	fx.seedIntegration(t, persistence.SyncDirectionPush, nil)

	// evt-1 pushes cleanly; evt-2 needs a remote delete that will fail.
	fx.seedLocalEvent(t, "evt-1", nil, fx.now)
	broken := fx.seedLocalEvent(t, "evt-2", &persistence.ExternalRef{Provider: "google", EventID: "ext-5"}, fx.now)
	broken.Status = persistence.EventStatusCancelled
	if err := fx.events.UpdateEvent(context.Background(), broken); err != nil {
		t.Fatalf("UpdateEvent failed: %v", err)
	}
	fx.provider.deleteErr = errors.New("remote unavailable")

	result, err := fx.svc.Sync(context.Background(), staffScope(), "int-1")
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	if result.Status != persistence.SyncStatusPartial {
		t.Fatalf("expected partial status, got %+v", result)
	}
	if result.Pushed != 1 || len(result.Errors) != 1 {
		t.Fatalf("expected one success and one recorded error, got %+v", result)
	}
}

func TestSyncService_UnknownProviderIsRecordedNotFatal(t *testing.T) {
	t.Parallel()

	fx := newSyncFixture(t)
	integration := fx.seedIntegration(t, persistence.SyncDirectionPush, nil)
	integration.Provider = "outlook"
	if err := fx.integrations.UpdateIntegration(context.Background(), integration); err != nil {
		t.Fatalf("UpdateIntegration failed: %v", err)
	}

	result, err := fx.svc.Sync(context.Background(), staffScope(), "int-1")
	if err != nil {
		t.Fatalf("expected a recorded failure, not an error: %v", err)
	}
	if result.Status != persistence.SyncStatusError || len(result.Errors) == 0 {
		t.Fatalf("unexpected result %+v", result)
	}

	// The failed outcome lands on the integration record.
	stored, err := fx.integrations.GetIntegration(context.Background(), "firm-1", "int-1")
	if err != nil {
		t.Fatalf("GetIntegration failed: %v", err)
	}
	if stored.LastSyncStatus != persistence.SyncStatusError || stored.LastSyncAt == nil {
		t.Fatalf("expected recorded error outcome, got %+v", stored)
	}
}

func TestSyncService_InactiveIntegrationIsRefused(t *testing.T) {
	t.Parallel()

	fx := newSyncFixture(t)
	integration := fx.seedIntegration(t, persistence.SyncDirectionPush, nil)
	integration.Active = false
	if err := fx.integrations.UpdateIntegration(context.Background(), integration); err != nil {
		t.Fatalf("UpdateIntegration failed: %v", err)
	}

	_, err := fx.svc.Sync(context.Background(), staffScope(), "int-1")
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestSyncService_SyncAll_CoversAutoSyncIntegrations(t *testing.T) {
	t.Parallel()

	fx := newSyncFixture(t)
	for _, id := range []string{"int-a", "int-b"} {
		sealed, err := fx.sealer.Seal([]byte("oauth-token"))
		if err != nil {
			t.Fatalf("Seal failed: %v", err)
		}
		if err := fx.integrations.CreateIntegration(context.Background(), persistence.CalendarIntegration{
			ID: id, FirmID: "firm-1", UserID: "staff-1", Provider: "google",
			Credential: sealed, SyncDirection: persistence.SyncDirectionPull,
			AutoSync: true, Active: true,
		}); err != nil {
			t.Fatalf("seed integration failed: %v", err)
		}
	}

	results, err := fx.svc.SyncAll(context.Background())
	if err != nil {
		t.Fatalf("SyncAll failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected two results, got %d", len(results))
	}
	for _, result := range results {
		if result.Status != persistence.SyncStatusSuccess {
			t.Fatalf("unexpected result %+v", result)
		}
	}
}

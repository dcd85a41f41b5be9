package application

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/example/firm-scheduler/internal/persistence"
)

// In-memory repository fakes shared by the service tests. They honor the
// same filter and sentinel semantics as the SQLite implementations.

type memEventRepo struct {
	mu     sync.Mutex
	events map[string]persistence.Event
	err    error
}

func newMemEventRepo() *memEventRepo {
	return &memEventRepo{events: make(map[string]persistence.Event)}
}

func (m *memEventRepo) CreateEvent(ctx context.Context, event persistence.Event) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[event.ID]; ok {
		return persistence.ErrDuplicate
	}
	m.events[event.ID] = event
	return nil
}

func (m *memEventRepo) UpdateEvent(ctx context.Context, event persistence.Event) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.events[event.ID]
	if !ok || existing.FirmID != event.FirmID {
		return persistence.ErrNotFound
	}
	m.events[event.ID] = event
	return nil
}

func (m *memEventRepo) GetEvent(ctx context.Context, firmID, id string) (persistence.Event, error) {
	if m.err != nil {
		return persistence.Event{}, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	event, ok := m.events[id]
	if !ok || event.FirmID != firmID {
		return persistence.Event{}, persistence.ErrNotFound
	}
	return event, nil
}

func (m *memEventRepo) ListEvents(ctx context.Context, filter persistence.EventFilter) ([]persistence.Event, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []persistence.Event
	for _, event := range m.events {
		if event.FirmID != filter.FirmID {
			continue
		}
		if !filter.IncludeCancelled && event.Status == persistence.EventStatusCancelled {
			continue
		}
		if filter.WithExternalRef && event.External == nil {
			continue
		}
		if len(filter.ParticipantIDs) > 0 && !eventTouches(event, filter.ParticipantIDs) {
			continue
		}
		if filter.StartsAfter != nil && !event.End.After(*filter.StartsAfter) {
			continue
		}
		if filter.EndsBefore != nil && !event.Start.Before(*filter.EndsBefore) {
			continue
		}
		out = append(out, event)
	}
	return out, nil
}

func eventTouches(event persistence.Event, ids []string) bool {
	for _, id := range ids {
		if event.OrganizerID == id {
			return true
		}
		for _, staff := range event.StaffIDs {
			if staff == id {
				return true
			}
		}
		for _, client := range event.ClientIDs {
			if client == id {
				return true
			}
		}
	}
	return false
}

type memAvailabilityRepo struct {
	mu         sync.Mutex
	windows    map[string]persistence.AvailabilityWindow
	exceptions map[string]persistence.AvailabilityException
	err        error
}

func newMemAvailabilityRepo() *memAvailabilityRepo {
	return &memAvailabilityRepo{
		windows:    make(map[string]persistence.AvailabilityWindow),
		exceptions: make(map[string]persistence.AvailabilityException),
	}
}

func (m *memAvailabilityRepo) CreateWindow(ctx context.Context, window persistence.AvailabilityWindow) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.windows[window.ID] = window
	return nil
}

func (m *memAvailabilityRepo) UpdateWindow(ctx context.Context, window persistence.AvailabilityWindow) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.windows[window.ID]; !ok {
		return persistence.ErrNotFound
	}
	m.windows[window.ID] = window
	return nil
}

func (m *memAvailabilityRepo) DeleteWindow(ctx context.Context, firmID, id string) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.windows[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(m.windows, id)
	return nil
}

func (m *memAvailabilityRepo) ListWindows(ctx context.Context, firmID, userID string) ([]persistence.AvailabilityWindow, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []persistence.AvailabilityWindow
	for _, window := range m.windows {
		if window.FirmID == firmID && window.UserID == userID {
			out = append(out, window)
		}
	}
	return out, nil
}

func (m *memAvailabilityRepo) CreateException(ctx context.Context, exception persistence.AvailabilityException) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exceptions[exception.ID] = exception
	return nil
}

func (m *memAvailabilityRepo) DeleteException(ctx context.Context, firmID, id string) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.exceptions[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(m.exceptions, id)
	return nil
}

func (m *memAvailabilityRepo) ListExceptions(ctx context.Context, firmID, userID, date string) ([]persistence.AvailabilityException, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []persistence.AvailabilityException
	for _, exception := range m.exceptions {
		if exception.FirmID != firmID || exception.UserID != userID {
			continue
		}
		if date != "" && exception.Date != date {
			continue
		}
		out = append(out, exception)
	}
	return out, nil
}

type memAppointmentRepo struct {
	mu       sync.Mutex
	requests map[string]persistence.AppointmentRequest
	err      error
}

func newMemAppointmentRepo() *memAppointmentRepo {
	return &memAppointmentRepo{requests: make(map[string]persistence.AppointmentRequest)}
}

func (m *memAppointmentRepo) CreateRequest(ctx context.Context, request persistence.AppointmentRequest) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.requests[request.ID]; ok {
		return persistence.ErrDuplicate
	}
	m.requests[request.ID] = request
	return nil
}

func (m *memAppointmentRepo) UpdateRequest(ctx context.Context, request persistence.AppointmentRequest) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.requests[request.ID]; !ok {
		return persistence.ErrNotFound
	}
	m.requests[request.ID] = request
	return nil
}

func (m *memAppointmentRepo) GetRequest(ctx context.Context, firmID, id string) (persistence.AppointmentRequest, error) {
	if m.err != nil {
		return persistence.AppointmentRequest{}, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	request, ok := m.requests[id]
	if !ok || request.FirmID != firmID {
		return persistence.AppointmentRequest{}, persistence.ErrNotFound
	}
	return request, nil
}

func (m *memAppointmentRepo) ListRequests(ctx context.Context, firmID, status string) ([]persistence.AppointmentRequest, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []persistence.AppointmentRequest
	for _, request := range m.requests {
		if request.FirmID != firmID {
			continue
		}
		if status != "" && request.Status != status {
			continue
		}
		out = append(out, request)
	}
	return out, nil
}

type memIntegrationRepo struct {
	mu           sync.Mutex
	integrations map[string]persistence.CalendarIntegration
	err          error
}

func newMemIntegrationRepo() *memIntegrationRepo {
	return &memIntegrationRepo{integrations: make(map[string]persistence.CalendarIntegration)}
}

func (m *memIntegrationRepo) CreateIntegration(ctx context.Context, integration persistence.CalendarIntegration) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.integrations[integration.ID] = integration
	return nil
}

func (m *memIntegrationRepo) UpdateIntegration(ctx context.Context, integration persistence.CalendarIntegration) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.integrations[integration.ID]; !ok {
		return persistence.ErrNotFound
	}
	m.integrations[integration.ID] = integration
	return nil
}

func (m *memIntegrationRepo) GetIntegration(ctx context.Context, firmID, id string) (persistence.CalendarIntegration, error) {
	if m.err != nil {
		return persistence.CalendarIntegration{}, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	integration, ok := m.integrations[id]
	if !ok || integration.FirmID != firmID {
		return persistence.CalendarIntegration{}, persistence.ErrNotFound
	}
	return integration, nil
}

func (m *memIntegrationRepo) DeleteIntegration(ctx context.Context, firmID, id string) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	integration, ok := m.integrations[id]
	if !ok || integration.FirmID != firmID {
		return persistence.ErrNotFound
	}
	delete(m.integrations, id)
	return nil
}

func (m *memIntegrationRepo) ListIntegrations(ctx context.Context, firmID string) ([]persistence.CalendarIntegration, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []persistence.CalendarIntegration
	for _, integration := range m.integrations {
		if integration.FirmID == firmID {
			out = append(out, integration)
		}
	}
	return out, nil
}

func (m *memIntegrationRepo) ListAutoSync(ctx context.Context) ([]persistence.CalendarIntegration, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []persistence.CalendarIntegration
	for _, integration := range m.integrations {
		if integration.Active && integration.AutoSync {
			out = append(out, integration)
		}
	}
	return out, nil
}

type memShareRepo struct {
	mu     sync.Mutex
	shares map[string]persistence.CalendarShare
	err    error
}

func newMemShareRepo() *memShareRepo {
	return &memShareRepo{shares: make(map[string]persistence.CalendarShare)}
}

func (m *memShareRepo) CreateShare(ctx context.Context, share persistence.CalendarShare) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.shares {
		if existing.FirmID == share.FirmID && existing.OwnerID == share.OwnerID && existing.SharedWithID == share.SharedWithID {
			return persistence.ErrDuplicate
		}
	}
	m.shares[share.ID] = share
	return nil
}

func (m *memShareRepo) UpdateShare(ctx context.Context, share persistence.CalendarShare) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.shares[share.ID]; !ok {
		return persistence.ErrNotFound
	}
	m.shares[share.ID] = share
	return nil
}

func (m *memShareRepo) GetShare(ctx context.Context, firmID, id string) (persistence.CalendarShare, error) {
	if m.err != nil {
		return persistence.CalendarShare{}, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	share, ok := m.shares[id]
	if !ok || share.FirmID != firmID {
		return persistence.CalendarShare{}, persistence.ErrNotFound
	}
	return share, nil
}

func (m *memShareRepo) DeleteShare(ctx context.Context, firmID, id string) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	share, ok := m.shares[id]
	if !ok || share.FirmID != firmID {
		return persistence.ErrNotFound
	}
	delete(m.shares, id)
	return nil
}

func (m *memShareRepo) ListShares(ctx context.Context, firmID, ownerID string) ([]persistence.CalendarShare, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []persistence.CalendarShare
	for _, share := range m.shares {
		if share.FirmID != firmID {
			continue
		}
		if ownerID != "" && share.OwnerID != ownerID {
			continue
		}
		out = append(out, share)
	}
	return out, nil
}

type memDirectory struct {
	users map[string]persistence.User
	rooms map[string]persistence.Room
}

func newMemDirectory(users ...persistence.User) *memDirectory {
	dir := &memDirectory{users: make(map[string]persistence.User), rooms: make(map[string]persistence.Room)}
	for _, user := range users {
		dir.users[user.ID] = user
	}
	return dir
}

func (m *memDirectory) addRoom(room persistence.Room) *memDirectory {
	m.rooms[room.ID] = room
	return m
}

func (m *memDirectory) GetUser(ctx context.Context, firmID, id string) (persistence.User, error) {
	user, ok := m.users[id]
	if !ok || user.FirmID != firmID {
		return persistence.User{}, persistence.ErrNotFound
	}
	return user, nil
}

func (m *memDirectory) ListUsers(ctx context.Context, firmID string) ([]persistence.User, error) {
	var out []persistence.User
	for _, user := range m.users {
		if user.FirmID == firmID {
			out = append(out, user)
		}
	}
	return out, nil
}

func (m *memDirectory) GetRoom(ctx context.Context, id string) (persistence.Room, error) {
	room, ok := m.rooms[id]
	if !ok {
		return persistence.Room{}, persistence.ErrNotFound
	}
	return room, nil
}

func (m *memDirectory) ListRooms(ctx context.Context) ([]persistence.Room, error) {
	var out []persistence.Room
	for _, room := range m.rooms {
		out = append(out, room)
	}
	return out, nil
}

type notifierStub struct {
	mu    sync.Mutex
	kinds []string
	err   error
}

func (n *notifierStub) Notify(ctx context.Context, kind string, payload NotificationPayload) error {
	n.mu.Lock()
	n.kinds = append(n.kinds, kind)
	n.mu.Unlock()
	return n.err
}

func (n *notifierStub) sent() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.kinds))
	copy(out, n.kinds)
	return out
}

// providerStub implements CalendarProvider against in-memory remote state.
type providerStub struct {
	mu        sync.Mutex
	remote    map[string]ProviderEvent
	nextID    int
	fetchErr  error
	createErr error
	updateErr error
	deleteErr error
}

func newProviderStub(events ...ProviderEvent) *providerStub {
	stub := &providerStub{remote: make(map[string]ProviderEvent)}
	for _, event := range events {
		stub.remote[event.ExternalID] = event
	}
	return stub
}

func (p *providerStub) FetchEvents(ctx context.Context, credential []byte, from, to time.Time) ([]ProviderEvent, error) {
	if p.fetchErr != nil {
		return nil, p.fetchErr
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []ProviderEvent
	for _, event := range p.remote {
		out = append(out, event)
	}
	return out, nil
}

func (p *providerStub) CreateEvent(ctx context.Context, credential []byte, event ProviderEvent) (string, error) {
	if p.createErr != nil {
		return "", p.createErr
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	id := fmt.Sprintf("ext-%d", p.nextID)
	event.ExternalID = id
	p.remote[id] = event
	return id, nil
}

func (p *providerStub) UpdateEvent(ctx context.Context, credential []byte, externalID string, event ProviderEvent) error {
	if p.updateErr != nil {
		return p.updateErr
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	event.ExternalID = externalID
	p.remote[externalID] = event
	return nil
}

func (p *providerStub) DeleteEvent(ctx context.Context, credential []byte, externalID string) error {
	if p.deleteErr != nil {
		return p.deleteErr
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.remote, externalID)
	return nil
}

// sequenceIDs returns a deterministic id generator: prefix-1, prefix-2, ...
func sequenceIDs(prefix string) func() string {
	var mu sync.Mutex
	var counter int
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		counter++
		return fmt.Sprintf("%s-%d", prefix, counter)
	}
}

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func utc(year int, month time.Month, day, hour, minute int) time.Time {
	return time.Date(year, month, day, hour, minute, 0, 0, time.UTC)
}

func staffUser(firmID, id string) persistence.User {
	return persistence.User{ID: id, FirmID: firmID, DisplayName: strings.ToUpper(id), IsStaff: true}
}

func clientUser(firmID, id string) persistence.User {
	return persistence.User{ID: id, FirmID: firmID, DisplayName: strings.ToUpper(id), IsStaff: false}
}

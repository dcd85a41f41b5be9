package persistence

import (
	"context"
	"time"
)

// EventFilter narrows event queries. ParticipantIDs matches organizer,
// staff or client membership.
type EventFilter struct {
	FirmID           string
	ParticipantIDs   []string
	StartsAfter      *time.Time
	EndsBefore       *time.Time
	IncludeCancelled bool
	WithExternalRef  bool
	OrganizerID      string
}

// EventRepository stores calendar events and their participant sets.
type EventRepository interface {
	CreateEvent(ctx context.Context, event Event) error
	UpdateEvent(ctx context.Context, event Event) error
	GetEvent(ctx context.Context, firmID, id string) (Event, error)
	ListEvents(ctx context.Context, filter EventFilter) ([]Event, error)
}

// AvailabilityRepository stores recurring windows and date exceptions.
type AvailabilityRepository interface {
	CreateWindow(ctx context.Context, window AvailabilityWindow) error
	UpdateWindow(ctx context.Context, window AvailabilityWindow) error
	DeleteWindow(ctx context.Context, firmID, id string) error
	ListWindows(ctx context.Context, firmID, userID string) ([]AvailabilityWindow, error)

	CreateException(ctx context.Context, exception AvailabilityException) error
	DeleteException(ctx context.Context, firmID, id string) error
	ListExceptions(ctx context.Context, firmID, userID, date string) ([]AvailabilityException, error)
}

// AppointmentRepository stores appointment request lineages.
type AppointmentRepository interface {
	CreateRequest(ctx context.Context, request AppointmentRequest) error
	UpdateRequest(ctx context.Context, request AppointmentRequest) error
	GetRequest(ctx context.Context, firmID, id string) (AppointmentRequest, error)
	ListRequests(ctx context.Context, firmID, status string) ([]AppointmentRequest, error)
}

// IntegrationRepository stores calendar provider connections.
type IntegrationRepository interface {
	CreateIntegration(ctx context.Context, integration CalendarIntegration) error
	UpdateIntegration(ctx context.Context, integration CalendarIntegration) error
	GetIntegration(ctx context.Context, firmID, id string) (CalendarIntegration, error)
	DeleteIntegration(ctx context.Context, firmID, id string) error
	ListIntegrations(ctx context.Context, firmID string) ([]CalendarIntegration, error)
	ListAutoSync(ctx context.Context) ([]CalendarIntegration, error)
}

// ShareRepository stores directed calendar sharing edges.
type ShareRepository interface {
	CreateShare(ctx context.Context, share CalendarShare) error
	UpdateShare(ctx context.Context, share CalendarShare) error
	GetShare(ctx context.Context, firmID, id string) (CalendarShare, error)
	DeleteShare(ctx context.Context, firmID, id string) error
	ListShares(ctx context.Context, firmID, ownerID string) ([]CalendarShare, error)
}

// UserDirectory exposes the read-only user lookups the engine needs.
type UserDirectory interface {
	GetUser(ctx context.Context, firmID, id string) (User, error)
	ListUsers(ctx context.Context, firmID string) ([]User, error)
}

// RoomCatalog exposes the read-only room catalog.
type RoomCatalog interface {
	GetRoom(ctx context.Context, id string) (Room, error)
	ListRooms(ctx context.Context) ([]Room, error)
}

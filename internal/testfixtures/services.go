package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/firm-scheduler/internal/application"
	"github.com/example/firm-scheduler/internal/persistence"
	"github.com/example/firm-scheduler/internal/secrets"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// EventServiceDeps captures dependencies for constructing an event service.
type EventServiceDeps struct {
	Events       persistence.EventRepository
	Availability persistence.AvailabilityRepository
	Users        persistence.UserDirectory
	Rooms        persistence.RoomCatalog
	Logger       *slog.Logger
	IDGenerator  func() string
	Now          func() time.Time
}

// NewEventService builds an event service combining the supplied dependencies
// with the factory defaults.
func (f *ServiceFactory) NewEventService(deps EventServiceDeps) *application.EventService {
	return application.NewEventService(
		deps.Events,
		deps.Availability,
		deps.Users,
		deps.Rooms,
		nil,
		deps.Logger,
		f.idGen(deps.IDGenerator),
		f.nowFn(deps.Now),
	)
}

// AvailabilityServiceDeps captures dependencies for an availability service.
type AvailabilityServiceDeps struct {
	Availability persistence.AvailabilityRepository
	Users        persistence.UserDirectory
	Logger       *slog.Logger
	IDGenerator  func() string
	Now          func() time.Time
}

// NewAvailabilityService builds an availability service.
func (f *ServiceFactory) NewAvailabilityService(deps AvailabilityServiceDeps) *application.AvailabilityService {
	return application.NewAvailabilityService(
		deps.Availability,
		deps.Users,
		deps.Logger,
		f.idGen(deps.IDGenerator),
		f.nowFn(deps.Now),
	)
}

// AppointmentServiceDeps captures dependencies for an appointment service.
type AppointmentServiceDeps struct {
	Appointments persistence.AppointmentRepository
	Events       persistence.EventRepository
	Availability persistence.AvailabilityRepository
	Users        persistence.UserDirectory
	Notifier     application.Notifier
	Logger       *slog.Logger
	IDGenerator  func() string
	Now          func() time.Time
}

// NewAppointmentService builds an appointment service.
func (f *ServiceFactory) NewAppointmentService(deps AppointmentServiceDeps) *application.AppointmentService {
	return application.NewAppointmentService(
		deps.Appointments,
		deps.Events,
		deps.Availability,
		deps.Users,
		deps.Notifier,
		nil,
		deps.Logger,
		f.idGen(deps.IDGenerator),
		f.nowFn(deps.Now),
	)
}

// ShareServiceDeps captures dependencies for a share service.
type ShareServiceDeps struct {
	Shares      persistence.ShareRepository
	Users       persistence.UserDirectory
	Logger      *slog.Logger
	IDGenerator func() string
	Now         func() time.Time
}

// NewShareService builds a share service.
func (f *ServiceFactory) NewShareService(deps ShareServiceDeps) *application.ShareService {
	return application.NewShareService(
		deps.Shares,
		deps.Users,
		deps.Logger,
		f.idGen(deps.IDGenerator),
		f.nowFn(deps.Now),
	)
}

// BulkServiceDeps captures dependencies for a bulk service.
type BulkServiceDeps struct {
	Events       persistence.EventRepository
	Availability persistence.AvailabilityRepository
	Logger       *slog.Logger
	Now          func() time.Time
	WorkerLimit  int
}

// NewBulkService builds a bulk service.
func (f *ServiceFactory) NewBulkService(deps BulkServiceDeps) *application.BulkService {
	return application.NewBulkService(
		deps.Events,
		deps.Availability,
		nil,
		deps.Logger,
		f.nowFn(deps.Now),
		deps.WorkerLimit,
	)
}

// SyncServiceDeps captures dependencies for a sync service.
type SyncServiceDeps struct {
	Integrations persistence.IntegrationRepository
	Events       persistence.EventRepository
	Users        persistence.UserDirectory
	Providers    *application.ProviderRegistry
	Sealer       *secrets.Sealer
	Logger       *slog.Logger
	IDGenerator  func() string
	Now          func() time.Time
	CallTimeout  time.Duration
	WorkerLimit  int
}

// NewSyncService builds a sync service.
func (f *ServiceFactory) NewSyncService(deps SyncServiceDeps) *application.SyncService {
	return application.NewSyncService(
		deps.Integrations,
		deps.Events,
		deps.Users,
		deps.Providers,
		deps.Sealer,
		nil,
		deps.Logger,
		f.idGen(deps.IDGenerator),
		f.nowFn(deps.Now),
		deps.CallTimeout,
		deps.WorkerLimit,
	)
}

func (f *ServiceFactory) idGen(override func() string) func() string {
	if override != nil {
		return override
	}
	return f.IDGenerator.NextFunc()
}

func (f *ServiceFactory) nowFn(override func() time.Time) func() time.Time {
	if override != nil {
		return override
	}
	return f.Clock.NowFunc()
}

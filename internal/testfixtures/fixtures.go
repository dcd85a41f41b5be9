package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/firm-scheduler/internal/persistence"
)

var (
	userCounter        uint64
	eventCounter       uint64
	windowCounter      uint64
	exceptionCounter   uint64
	appointmentCounter uint64
	integrationCounter uint64
	shareCounter       uint64
)

var referenceTime = time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// DefaultFirmID is the firm all fixtures belong to unless overridden.
const DefaultFirmID = "firm-001"

// ----------------------------- User fixtures -----------------------------

// UserOption configures a generated directory user.
type UserOption func(*persistence.User)

// NewUserFixture returns a deterministic directory user. Users default to
// staff; use WithUserStaff(false) for clients.
func NewUserFixture(opts ...UserOption) persistence.User {
	idx := atomic.AddUint64(&userCounter, 1)
	user := persistence.User{
		ID:          fmt.Sprintf("user-%03d", idx),
		FirmID:      DefaultFirmID,
		DisplayName: fmt.Sprintf("User %03d", idx),
		IsStaff:     true,
		CreatedAt:   referenceTime,
	}
	for _, opt := range opts {
		opt(&user)
	}
	return user
}

// WithUserID overrides the generated user ID.
func WithUserID(id string) UserOption {
	return func(u *persistence.User) { u.ID = id }
}

// WithUserFirm overrides the firm the user belongs to.
func WithUserFirm(firmID string) UserOption {
	return func(u *persistence.User) { u.FirmID = firmID }
}

// WithUserStaff sets the staff/client classification.
func WithUserStaff(isStaff bool) UserOption {
	return func(u *persistence.User) { u.IsStaff = isStaff }
}

// ----------------------------- Event fixtures ----------------------------

// EventOption configures a generated event.
type EventOption func(*persistence.Event)

// NewEventFixture returns a deterministic confirmed one hour event. Each
// fixture occupies its own hour so defaults never collide.
func NewEventFixture(opts ...EventOption) persistence.Event {
	idx := atomic.AddUint64(&eventCounter, 1)
	start := referenceTime.Add(time.Duration(idx) * time.Hour)
	event := persistence.Event{
		ID:          fmt.Sprintf("evt-%03d", idx),
		FirmID:      DefaultFirmID,
		OrganizerID: "staff-001",
		StaffIDs:    []string{"staff-001"},
		Title:       fmt.Sprintf("Event %03d", idx),
		Start:       start,
		End:         start.Add(time.Hour),
		Status:      persistence.EventStatusConfirmed,
		CreatedAt:   referenceTime,
		UpdatedAt:   referenceTime,
	}
	for _, opt := range opts {
		opt(&event)
	}
	return event
}

// WithEventID overrides the generated event ID.
func WithEventID(id string) EventOption {
	return func(e *persistence.Event) { e.ID = id }
}

// WithEventFirm overrides the owning firm.
func WithEventFirm(firmID string) EventOption {
	return func(e *persistence.Event) { e.FirmID = firmID }
}

// WithEventOrganizer sets the organizer and makes them the sole staff
// participant.
func WithEventOrganizer(staffID string) EventOption {
	return func(e *persistence.Event) {
		e.OrganizerID = staffID
		e.StaffIDs = []string{staffID}
	}
}

// WithEventParticipants replaces the participant sets.
func WithEventParticipants(staffIDs, clientIDs []string) EventOption {
	return func(e *persistence.Event) {
		e.StaffIDs = staffIDs
		e.ClientIDs = clientIDs
	}
}

// WithEventInterval sets the occupied time range.
func WithEventInterval(start, end time.Time) EventOption {
	return func(e *persistence.Event) {
		e.Start = start
		e.End = end
	}
}

// WithEventStatus overrides the lifecycle status.
func WithEventStatus(status string) EventOption {
	return func(e *persistence.Event) { e.Status = status }
}

// WithEventRoom assigns a meeting room.
func WithEventRoom(roomID string) EventOption {
	return func(e *persistence.Event) { e.RoomID = &roomID }
}

// WithEventExternalRef links the event to a provider copy.
func WithEventExternalRef(provider, eventID string) EventOption {
	return func(e *persistence.Event) {
		e.External = &persistence.ExternalRef{Provider: provider, EventID: eventID}
	}
}

// ---------------------------- Window fixtures ----------------------------

// WindowOption configures a generated availability window.
type WindowOption func(*persistence.AvailabilityWindow)

// NewWindowFixture returns a Monday 09:00-17:00 window.
func NewWindowFixture(opts ...WindowOption) persistence.AvailabilityWindow {
	idx := atomic.AddUint64(&windowCounter, 1)
	window := persistence.AvailabilityWindow{
		ID:          fmt.Sprintf("win-%03d", idx),
		FirmID:      DefaultFirmID,
		UserID:      "staff-001",
		Weekday:     1,
		StartMinute: 9 * 60,
		EndMinute:   17 * 60,
		CreatedAt:   referenceTime,
		UpdatedAt:   referenceTime,
	}
	for _, opt := range opts {
		opt(&window)
	}
	return window
}

// WithWindowID overrides the generated window ID.
func WithWindowID(id string) WindowOption {
	return func(w *persistence.AvailabilityWindow) { w.ID = id }
}

// WithWindowUser sets the owning user.
func WithWindowUser(userID string) WindowOption {
	return func(w *persistence.AvailabilityWindow) { w.UserID = userID }
}

// WithWindowRange sets weekday and minute range.
func WithWindowRange(weekday, startMinute, endMinute int) WindowOption {
	return func(w *persistence.AvailabilityWindow) {
		w.Weekday = weekday
		w.StartMinute = startMinute
		w.EndMinute = endMinute
	}
}

// ExceptionOption configures a generated availability exception.
type ExceptionOption func(*persistence.AvailabilityException)

// NewExceptionFixture returns a full day blocked exception for 2026-03-02.
func NewExceptionFixture(opts ...ExceptionOption) persistence.AvailabilityException {
	idx := atomic.AddUint64(&exceptionCounter, 1)
	exception := persistence.AvailabilityException{
		ID:        fmt.Sprintf("exc-%03d", idx),
		FirmID:    DefaultFirmID,
		UserID:    "staff-001",
		Date:      "2026-03-02",
		Kind:      "block_day",
		CreatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&exception)
	}
	return exception
}

// WithExceptionUser sets the owning user.
func WithExceptionUser(userID string) ExceptionOption {
	return func(e *persistence.AvailabilityException) { e.UserID = userID }
}

// WithExceptionDate sets the overridden date (YYYY-MM-DD).
func WithExceptionDate(date string) ExceptionOption {
	return func(e *persistence.AvailabilityException) { e.Date = date }
}

// WithExceptionOpenRange turns the exception into a date-specific open range.
func WithExceptionOpenRange(startMinute, endMinute int) ExceptionOption {
	return func(e *persistence.AvailabilityException) {
		e.Kind = "open_range"
		e.StartMinute = startMinute
		e.EndMinute = endMinute
	}
}

// ------------------------- Appointment fixtures --------------------------

// AppointmentOption configures a generated appointment request.
type AppointmentOption func(*persistence.AppointmentRequest)

// NewAppointmentFixture returns a pending request from a client.
func NewAppointmentFixture(opts ...AppointmentOption) persistence.AppointmentRequest {
	idx := atomic.AddUint64(&appointmentCounter, 1)
	start := referenceTime.Add(time.Duration(idx) * time.Hour)
	request := persistence.AppointmentRequest{
		ID:          fmt.Sprintf("appt-%03d", idx),
		FirmID:      DefaultFirmID,
		RequestedBy: "client-001",
		ClientID:    "client-001",
		Start:       start,
		End:         start.Add(time.Hour),
		Status:      persistence.RequestStatusPending,
		CreatedAt:   referenceTime,
		UpdatedAt:   referenceTime,
	}
	for _, opt := range opts {
		opt(&request)
	}
	return request
}

// WithAppointmentID overrides the generated request ID.
func WithAppointmentID(id string) AppointmentOption {
	return func(r *persistence.AppointmentRequest) { r.ID = id }
}

// WithAppointmentStatus overrides the lifecycle status.
func WithAppointmentStatus(status string) AppointmentOption {
	return func(r *persistence.AppointmentRequest) { r.Status = status }
}

// WithAppointmentStaff assigns the handling staff member.
func WithAppointmentStaff(staffID string) AppointmentOption {
	return func(r *persistence.AppointmentRequest) { r.StaffID = &staffID }
}

// WithAppointmentInterval sets the requested time range.
func WithAppointmentInterval(start, end time.Time) AppointmentOption {
	return func(r *persistence.AppointmentRequest) {
		r.Start = start
		r.End = end
	}
}

// ------------------------- Integration fixtures --------------------------

// IntegrationOption configures a generated calendar integration.
type IntegrationOption func(*persistence.CalendarIntegration)

// NewIntegrationFixture returns an active bidirectional google connection.
// Credential holds placeholder sealed bytes.
func NewIntegrationFixture(opts ...IntegrationOption) persistence.CalendarIntegration {
	idx := atomic.AddUint64(&integrationCounter, 1)
	integration := persistence.CalendarIntegration{
		ID:            fmt.Sprintf("int-%03d", idx),
		FirmID:        DefaultFirmID,
		UserID:        "staff-001",
		Provider:      "google",
		Credential:    []byte(fmt.Sprintf("sealed-%03d", idx)),
		SyncDirection: persistence.SyncDirectionBidirectional,
		Active:        true,
		CreatedAt:     referenceTime,
		UpdatedAt:     referenceTime,
	}
	for _, opt := range opts {
		opt(&integration)
	}
	return integration
}

// WithIntegrationUser sets the owning user.
func WithIntegrationUser(userID string) IntegrationOption {
	return func(i *persistence.CalendarIntegration) { i.UserID = userID }
}

// WithIntegrationDirection sets the sync direction.
func WithIntegrationDirection(direction string) IntegrationOption {
	return func(i *persistence.CalendarIntegration) { i.SyncDirection = direction }
}

// WithIntegrationAutoSync marks the integration for scheduled runs.
func WithIntegrationAutoSync(autoSync bool) IntegrationOption {
	return func(i *persistence.CalendarIntegration) { i.AutoSync = autoSync }
}

// WithIntegrationLastSync records a prior run.
func WithIntegrationLastSync(at time.Time, status string) IntegrationOption {
	return func(i *persistence.CalendarIntegration) {
		i.LastSyncAt = &at
		i.LastSyncStatus = status
	}
}

// ---------------------------- Share fixtures -----------------------------

// ShareOption configures a generated calendar share.
type ShareOption func(*persistence.CalendarShare)

// NewShareFixture returns a view-only share from staff-001 to staff-002.
func NewShareFixture(opts ...ShareOption) persistence.CalendarShare {
	idx := atomic.AddUint64(&shareCounter, 1)
	share := persistence.CalendarShare{
		ID:           fmt.Sprintf("share-%03d", idx),
		FirmID:       DefaultFirmID,
		OwnerID:      "staff-001",
		SharedWithID: "staff-002",
		CanView:      true,
		CreatedAt:    referenceTime,
		UpdatedAt:    referenceTime,
	}
	for _, opt := range opts {
		opt(&share)
	}
	return share
}

// WithShareParties sets the owner and recipient.
func WithShareParties(ownerID, sharedWithID string) ShareOption {
	return func(s *persistence.CalendarShare) {
		s.OwnerID = ownerID
		s.SharedWithID = sharedWithID
	}
}

// WithSharePermissions sets both permission flags.
func WithSharePermissions(canView, canEdit bool) ShareOption {
	return func(s *persistence.CalendarShare) {
		s.CanView = canView
		s.CanEdit = canEdit
	}
}

package persistence

import "time"

// EventStatus enumerates the lifecycle states of a stored calendar event.
const (
	EventStatusConfirmed = "confirmed"
	EventStatusTentative = "tentative"
	EventStatusCancelled = "cancelled"
)

// ExternalRef links a local event to its counterpart at an external
// calendar provider.
type ExternalRef struct {
	Provider string
	EventID  string
}

// Event represents a calendar event stored in persistence. Cancellation is
// soft: the row is retained for audit and sync linkage.
type Event struct {
	ID          string
	FirmID      string
	OrganizerID string
	StaffIDs    []string
	ClientIDs   []string
	Title       string
	Location    string
	VideoLink   string
	RoomID      *string
	Start       time.Time
	End         time.Time
	Status      string
	External    *ExternalRef
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AvailabilityWindow represents a recurring weekly open range for a user.
type AvailabilityWindow struct {
	ID          string
	FirmID      string
	UserID      string
	Weekday     int
	StartMinute int
	EndMinute   int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AvailabilityException overrides the recurring pattern for a single date.
// Date is stored as YYYY-MM-DD.
type AvailabilityException struct {
	ID          string
	FirmID      string
	UserID      string
	Date        string
	Kind        string
	StartMinute int
	EndMinute   int
	CreatedAt   time.Time
}

// RequestStatus enumerates appointment request lifecycle states.
const (
	RequestStatusPending   = "pending"
	RequestStatusApproved  = "approved"
	RequestStatusRejected  = "rejected"
	RequestStatusCancelled = "cancelled"
)

// AppointmentRequest represents one link in an appointment lineage. A
// reschedule cancels the request and records its successor in
// RescheduledTo; history is never mutated in place.
type AppointmentRequest struct {
	ID            string
	FirmID        string
	RequestedBy   string
	ClientID      string
	StaffID       *string
	Start         time.Time
	End           time.Time
	Status        string
	EventID       *string
	RescheduledTo *string
	Reason        string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Sync directions supported by calendar integrations.
const (
	SyncDirectionPush          = "push"
	SyncDirectionPull          = "pull"
	SyncDirectionBidirectional = "bidirectional"
)

// Sync outcome labels recorded on an integration after each run.
const (
	SyncStatusSuccess = "success"
	SyncStatusPartial = "partial"
	SyncStatusError   = "error"
)

// CalendarIntegration represents a user's connection to an external
// calendar provider. Credential holds sealed, opaque material.
type CalendarIntegration struct {
	ID             string
	FirmID         string
	UserID         string
	Provider       string
	Credential     []byte
	SyncDirection  string
	AutoSync       bool
	LastSyncAt     *time.Time
	LastSyncStatus string
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CalendarShare is a directed sharing edge between two users of a firm.
type CalendarShare struct {
	ID           string
	FirmID       string
	OwnerID      string
	SharedWithID string
	CanView      bool
	CanEdit      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// User is the minimal directory entry the engine needs: existence and
// staff/client classification.
type User struct {
	ID          string
	FirmID      string
	DisplayName string
	IsStaff     bool
	CreatedAt   time.Time
}

// Room is a read-only meeting room catalog entry used for overlap checks.
type Room struct {
	ID       string
	Name     string
	Location string
	Capacity int
}

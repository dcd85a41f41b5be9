package application

import "time"

// Scope carries the authenticated identity and firm every service method
// operates under. It is always an explicit argument, never ambient state.
type Scope struct {
	FirmID  string
	UserID  string
	IsStaff bool
}

// ExternalRef links an event to its counterpart at an external provider.
type ExternalRef struct {
	Provider string
	EventID  string
}

// Event represents a calendar event exposed by the application services.
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

// EventInput captures caller provided event fields.
type EventInput struct {
	OrganizerID string
	Title       string
	Location    string
	VideoLink   string
	RoomID      *string
	Start       time.Time
	End         time.Time
	StaffIDs    []string
	ClientIDs   []string
}

// ConflictingEvent describes one existing event that overlaps a candidate.
type ConflictingEvent struct {
	EventID        string
	Title          string
	Start          time.Time
	End            time.Time
	ParticipantIDs []string
	RoomID         *string
}

// Availability block reasons reported alongside event conflicts.
const (
	BlockReasonFullDay      = "full_day_block"
	BlockReasonException    = "exception_block"
	BlockReasonOutsideHours = "outside_working_hours"
)

// AvailabilityBlock reports that a staff participant's declared availability
// does not admit the candidate interval.
type AvailabilityBlock struct {
	UserID string
	Reason string
}

// ConflictReport is the transient result of a conflict check. It is always
// produced for mutating operations, even when the caller overrides it.
type ConflictReport struct {
	HasConflict        bool
	ConflictingEvents  []ConflictingEvent
	AvailabilityBlocks []AvailabilityBlock
}

// CreateEventParams wraps the data required to create an event.
type CreateEventParams struct {
	Scope           Scope
	Input           EventInput
	IgnoreConflicts bool
}

// UpdateEventParams wraps the data required to update an event.
type UpdateEventParams struct {
	Scope           Scope
	EventID         string
	Input           EventInput
	IgnoreConflicts bool
}

// ListEventsParams wraps the filters accepted by event listing.
type ListEventsParams struct {
	Scope            Scope
	ParticipantIDs   []string
	StartsAfter      *time.Time
	EndsBefore       *time.Time
	IncludeCancelled bool
}

// CheckConflictsParams wraps a conflict pre-check probe. EventID is set when
// re-checking an existing event so it is excluded from its own report.
type CheckConflictsParams struct {
	Scope   Scope
	EventID string
	Input   EventInput
}

// SuggestSlotsParams configures a slot suggestion search.
type SuggestSlotsParams struct {
	Scope           Scope
	Date            time.Time
	DurationMinutes int
	StartHour       int
	EndHour         int
	BufferMinutes   int
	Count           int
	OrganizerID     string
	StaffIDs        []string
	ClientIDs       []string
	RoomID          *string
}

// SuggestedSlot is one free interval returned by the slot search.
type SuggestedSlot struct {
	Start time.Time
	End   time.Time
}

// AvailabilityWindow represents a recurring weekly open range.
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

// WindowInput captures caller provided window fields.
type WindowInput struct {
	UserID      string
	Weekday     int
	StartMinute int
	EndMinute   int
}

// AvailabilityException overrides the recurring pattern for one date.
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

// ExceptionInput captures caller provided exception fields. Date is
// YYYY-MM-DD; StartMinute/EndMinute apply to ranged kinds only.
type ExceptionInput struct {
	UserID      string
	Date        string
	Kind        string
	StartMinute int
	EndMinute   int
}

// ResolvedDay is a user's computed open intervals for one date.
type ResolvedDay struct {
	UserID string
	Date   string
	Open   []SuggestedSlot
}

// AppointmentRequest represents one link in an appointment lineage.
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

// AppointmentInput captures caller provided appointment request fields.
type AppointmentInput struct {
	ClientID string
	StaffID  *string
	Start    time.Time
	End      time.Time
}

// CreateAppointmentParams wraps the data required to file a request.
type CreateAppointmentParams struct {
	Scope Scope
	Input AppointmentInput
}

// ApproveAppointmentParams wraps an approval. StaffID resolves the assignee
// when the request was filed without one.
type ApproveAppointmentParams struct {
	Scope           Scope
	RequestID       string
	StaffID         string
	IgnoreConflicts bool
}

// RejectAppointmentParams wraps a rejection. Reason is required.
type RejectAppointmentParams struct {
	Scope     Scope
	RequestID string
	Reason    string
}

// RescheduleAppointmentParams wraps a reschedule to a new interval. Reason
// is optional and lands on the cancelled predecessor record.
type RescheduleAppointmentParams struct {
	Scope           Scope
	RequestID       string
	Start           time.Time
	End             time.Time
	Reason          string
	IgnoreConflicts bool
}

// BulkRescheduleParams shifts a set of events by a common delta.
type BulkRescheduleParams struct {
	Scope        Scope
	EventIDs     []string
	DeltaMinutes int
}

// EventPatch carries the optional field updates applied by a bulk update.
// Nil pointers leave the field untouched; ClearRoom removes the room.
type EventPatch struct {
	Title     *string
	Location  *string
	VideoLink *string
	RoomID    *string
	ClearRoom bool
}

// BulkUpdateParams applies a field patch to a set of events.
type BulkUpdateParams struct {
	Scope    Scope
	EventIDs []string
	Patch    EventPatch
}

// BulkItemResult records the outcome of one event within a bulk operation.
type BulkItemResult struct {
	EventID   string
	Success   bool
	Event     *Event
	Conflicts []ConflictingEvent
	Error     string
}

// BulkResult summarizes a bulk operation. A failed item never aborts the
// batch; callers must inspect the per-item results.
type BulkResult struct {
	Total     int
	Succeeded int
	Failed    int
	Items     []BulkItemResult
}

// CalendarIntegration represents a provider connection exposed by the
// application services. Credential material is never included.
type CalendarIntegration struct {
	ID             string
	FirmID         string
	UserID         string
	Provider       string
	SyncDirection  string
	AutoSync       bool
	LastSyncAt     *time.Time
	LastSyncStatus string
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ConnectIntegrationParams wraps the data required to connect a provider.
// Credential is the raw secret material; it is sealed before storage.
type ConnectIntegrationParams struct {
	Scope         Scope
	UserID        string
	Provider      string
	Credential    []byte
	SyncDirection string
	AutoSync      bool
}

// SyncResult summarizes one reconciliation run.
type SyncResult struct {
	IntegrationID string
	Status        string
	Pushed        int
	Pulled        int
	Errors        []string
	Notes         []string
}

// CalendarShare is a directed sharing edge between two users.
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

// ShareInput captures caller provided share fields.
type ShareInput struct {
	OwnerID      string
	SharedWithID string
	CanView      bool
	CanEdit      bool
}

package application

import (
	"time"

	"github.com/example/firm-scheduler/internal/interval"
	"github.com/example/firm-scheduler/internal/persistence"
	"github.com/example/firm-scheduler/internal/scheduler"
)

func toApplicationEvent(event persistence.Event) Event {
	out := Event{
		ID:          event.ID,
		FirmID:      event.FirmID,
		OrganizerID: event.OrganizerID,
		StaffIDs:    cloneStrings(event.StaffIDs),
		ClientIDs:   cloneStrings(event.ClientIDs),
		Title:       event.Title,
		Location:    event.Location,
		VideoLink:   event.VideoLink,
		Start:       event.Start,
		End:         event.End,
		Status:      event.Status,
		CreatedAt:   event.CreatedAt,
		UpdatedAt:   event.UpdatedAt,
	}
	if event.RoomID != nil {
		roomID := *event.RoomID
		out.RoomID = &roomID
	}
	if event.External != nil {
		out.External = &ExternalRef{Provider: event.External.Provider, EventID: event.External.EventID}
	}
	return out
}

func toSchedulerEvent(event persistence.Event) scheduler.Event {
	return scheduler.Event{
		ID:          event.ID,
		Title:       event.Title,
		OrganizerID: event.OrganizerID,
		StaffIDs:    cloneStrings(event.StaffIDs),
		ClientIDs:   cloneStrings(event.ClientIDs),
		RoomID:      event.RoomID,
		Interval:    interval.New(event.Start, event.End),
		Cancelled:   event.Status == persistence.EventStatusCancelled,
	}
}

func toSchedulerWindows(windows []persistence.AvailabilityWindow) []scheduler.Window {
	out := make([]scheduler.Window, 0, len(windows))
	for _, w := range windows {
		out = append(out, scheduler.Window{
			UserID:      w.UserID,
			Weekday:     time.Weekday(w.Weekday),
			StartMinute: w.StartMinute,
			EndMinute:   w.EndMinute,
		})
	}
	return out
}

func toSchedulerExceptions(exceptions []persistence.AvailabilityException) []scheduler.Exception {
	out := make([]scheduler.Exception, 0, len(exceptions))
	for _, e := range exceptions {
		date, err := time.Parse(dateLayout, e.Date)
		if err != nil {
			continue
		}
		out = append(out, scheduler.Exception{
			UserID:      e.UserID,
			Date:        date,
			Kind:        scheduler.ExceptionKind(e.Kind),
			StartMinute: e.StartMinute,
			EndMinute:   e.EndMinute,
		})
	}
	return out
}

func toConflictingEvents(conflicts []scheduler.EventConflict) []ConflictingEvent {
	if len(conflicts) == 0 {
		return nil
	}
	out := make([]ConflictingEvent, 0, len(conflicts))
	for _, c := range conflicts {
		entry := ConflictingEvent{
			EventID:        c.EventID,
			Title:          c.Title,
			Start:          c.Interval.Start,
			End:            c.Interval.End,
			ParticipantIDs: cloneStrings(c.ParticipantIDs),
		}
		if c.RoomID != nil {
			roomID := *c.RoomID
			entry.RoomID = &roomID
		}
		out = append(out, entry)
	}
	return out
}

func toApplicationWindow(window persistence.AvailabilityWindow) AvailabilityWindow {
	return AvailabilityWindow{
		ID:          window.ID,
		FirmID:      window.FirmID,
		UserID:      window.UserID,
		Weekday:     window.Weekday,
		StartMinute: window.StartMinute,
		EndMinute:   window.EndMinute,
		CreatedAt:   window.CreatedAt,
		UpdatedAt:   window.UpdatedAt,
	}
}

func toApplicationException(exception persistence.AvailabilityException) AvailabilityException {
	return AvailabilityException{
		ID:          exception.ID,
		FirmID:      exception.FirmID,
		UserID:      exception.UserID,
		Date:        exception.Date,
		Kind:        exception.Kind,
		StartMinute: exception.StartMinute,
		EndMinute:   exception.EndMinute,
		CreatedAt:   exception.CreatedAt,
	}
}

func toApplicationRequest(request persistence.AppointmentRequest) AppointmentRequest {
	out := AppointmentRequest{
		ID:          request.ID,
		FirmID:      request.FirmID,
		RequestedBy: request.RequestedBy,
		ClientID:    request.ClientID,
		Start:       request.Start,
		End:         request.End,
		Status:      request.Status,
		Reason:      request.Reason,
		CreatedAt:   request.CreatedAt,
		UpdatedAt:   request.UpdatedAt,
	}
	if request.StaffID != nil {
		staffID := *request.StaffID
		out.StaffID = &staffID
	}
	if request.EventID != nil {
		eventID := *request.EventID
		out.EventID = &eventID
	}
	if request.RescheduledTo != nil {
		successor := *request.RescheduledTo
		out.RescheduledTo = &successor
	}
	return out
}

func toApplicationIntegration(integration persistence.CalendarIntegration) CalendarIntegration {
	out := CalendarIntegration{
		ID:             integration.ID,
		FirmID:         integration.FirmID,
		UserID:         integration.UserID,
		Provider:       integration.Provider,
		SyncDirection:  integration.SyncDirection,
		AutoSync:       integration.AutoSync,
		LastSyncStatus: integration.LastSyncStatus,
		Active:         integration.Active,
		CreatedAt:      integration.CreatedAt,
		UpdatedAt:      integration.UpdatedAt,
	}
	if integration.LastSyncAt != nil {
		at := *integration.LastSyncAt
		out.LastSyncAt = &at
	}
	return out
}

func toApplicationShare(share persistence.CalendarShare) CalendarShare {
	return CalendarShare{
		ID:           share.ID,
		FirmID:       share.FirmID,
		OwnerID:      share.OwnerID,
		SharedWithID: share.SharedWithID,
		CanView:      share.CanView,
		CanEdit:      share.CanEdit,
		CreatedAt:    share.CreatedAt,
		UpdatedAt:    share.UpdatedAt,
	}
}

func intervalOf(start, end time.Time) interval.Interval {
	return interval.New(start.UTC(), end.UTC())
}

func cloneStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}

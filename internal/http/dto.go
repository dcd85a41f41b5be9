package http

import (
	"strings"
	"time"

	"github.com/example/firm-scheduler/internal/application"
)

func parseTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts
	}
	return time.Time{}
}

func formatTime(ts time.Time) string {
	return ts.UTC().Format(time.RFC3339)
}

type externalRefDTO struct {
	Provider string `json:"provider"`
	EventID  string `json:"event_id"`
}

type eventDTO struct {
	ID          string          `json:"id"`
	OrganizerID string          `json:"organizer_id"`
	StaffIDs    []string        `json:"staff_ids"`
	ClientIDs   []string        `json:"client_ids,omitempty"`
	Title       string          `json:"title"`
	Location    string          `json:"location,omitempty"`
	VideoLink   string          `json:"video_link,omitempty"`
	RoomID      *string         `json:"room_id,omitempty"`
	Start       string          `json:"start"`
	End         string          `json:"end"`
	Status      string          `json:"status"`
	External    *externalRefDTO `json:"external,omitempty"`
	CreatedAt   string          `json:"created_at"`
	UpdatedAt   string          `json:"updated_at"`
}

func toEventDTO(event application.Event) eventDTO {
	dto := eventDTO{
		ID:          event.ID,
		OrganizerID: event.OrganizerID,
		StaffIDs:    append([]string(nil), event.StaffIDs...),
		ClientIDs:   append([]string(nil), event.ClientIDs...),
		Title:       event.Title,
		Location:    event.Location,
		VideoLink:   event.VideoLink,
		RoomID:      event.RoomID,
		Start:       formatTime(event.Start),
		End:         formatTime(event.End),
		Status:      event.Status,
		CreatedAt:   formatTime(event.CreatedAt),
		UpdatedAt:   formatTime(event.UpdatedAt),
	}
	if event.External != nil {
		dto.External = &externalRefDTO{Provider: event.External.Provider, EventID: event.External.EventID}
	}
	return dto
}

func toEventDTOs(events []application.Event) []eventDTO {
	if len(events) == 0 {
		return nil
	}
	out := make([]eventDTO, 0, len(events))
	for _, event := range events {
		out = append(out, toEventDTO(event))
	}
	return out
}

type conflictingEventDTO struct {
	EventID        string   `json:"event_id"`
	Title          string   `json:"title"`
	Start          string   `json:"start"`
	End            string   `json:"end"`
	ParticipantIDs []string `json:"participant_ids,omitempty"`
	RoomID         *string  `json:"room_id,omitempty"`
}

type availabilityBlockDTO struct {
	UserID string `json:"user_id"`
	Reason string `json:"reason"`
}

type conflictReportDTO struct {
	HasConflict        bool                   `json:"has_conflict"`
	ConflictingEvents  []conflictingEventDTO  `json:"conflicting_events,omitempty"`
	AvailabilityBlocks []availabilityBlockDTO `json:"availability_blocks,omitempty"`
}

func toConflictReportDTO(report application.ConflictReport) conflictReportDTO {
	dto := conflictReportDTO{HasConflict: report.HasConflict}
	for _, conflict := range report.ConflictingEvents {
		dto.ConflictingEvents = append(dto.ConflictingEvents, conflictingEventDTO{
			EventID:        conflict.EventID,
			Title:          conflict.Title,
			Start:          formatTime(conflict.Start),
			End:            formatTime(conflict.End),
			ParticipantIDs: append([]string(nil), conflict.ParticipantIDs...),
			RoomID:         conflict.RoomID,
		})
	}
	for _, block := range report.AvailabilityBlocks {
		dto.AvailabilityBlocks = append(dto.AvailabilityBlocks, availabilityBlockDTO{
			UserID: block.UserID,
			Reason: block.Reason,
		})
	}
	return dto
}

type slotDTO struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func toSlotDTOs(slots []application.SuggestedSlot) []slotDTO {
	if len(slots) == 0 {
		return nil
	}
	out := make([]slotDTO, 0, len(slots))
	for _, slot := range slots {
		out = append(out, slotDTO{Start: formatTime(slot.Start), End: formatTime(slot.End)})
	}
	return out
}

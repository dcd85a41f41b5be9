package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/example/firm-scheduler/internal/application"
)

type bulkService interface {
	BulkReschedule(ctx context.Context, params application.BulkRescheduleParams) (application.BulkResult, error)
	BulkUpdate(ctx context.Context, params application.BulkUpdateParams) (application.BulkResult, error)
}

type BulkHandler struct {
	service   bulkService
	responder responder
}

func NewBulkHandler(service bulkService, logger *slog.Logger) *BulkHandler {
	return &BulkHandler{service: service, responder: newResponder(logger)}
}

// Reschedule shifts a set of events by a common delta. A 200 means the
// batch ran, not that every item succeeded; callers must read the items.
func (h *BulkHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	var req bulkRescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	scope, _ := ScopeFromContext(r.Context())
	result, err := h.service.BulkReschedule(r.Context(), application.BulkRescheduleParams{
		Scope:        scope,
		EventIDs:     req.EventIDs,
		DeltaMinutes: req.DeltaMinutes,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toBulkResultDTO(result))
}

func (h *BulkHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req bulkUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	scope, _ := ScopeFromContext(r.Context())
	result, err := h.service.BulkUpdate(r.Context(), application.BulkUpdateParams{
		Scope:    scope,
		EventIDs: req.EventIDs,
		Patch: application.EventPatch{
			Title:     req.Patch.Title,
			Location:  req.Patch.Location,
			VideoLink: req.Patch.VideoLink,
			RoomID:    req.Patch.RoomID,
			ClearRoom: req.Patch.ClearRoom,
		},
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toBulkResultDTO(result))
}

type bulkRescheduleRequest struct {
	EventIDs     []string `json:"event_ids"`
	DeltaMinutes int      `json:"delta_minutes"`
}

type bulkUpdateRequest struct {
	EventIDs []string      `json:"event_ids"`
	Patch    eventPatchDTO `json:"patch"`
}

type eventPatchDTO struct {
	Title     *string `json:"title"`
	Location  *string `json:"location"`
	VideoLink *string `json:"video_link"`
	RoomID    *string `json:"room_id"`
	ClearRoom bool    `json:"clear_room"`
}

type bulkItemDTO struct {
	EventID   string                `json:"event_id"`
	Success   bool                  `json:"success"`
	Event     *eventDTO             `json:"event,omitempty"`
	Conflicts []conflictingEventDTO `json:"conflicts,omitempty"`
	Error     string                `json:"error,omitempty"`
}

type bulkResultDTO struct {
	Total     int           `json:"total"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Items     []bulkItemDTO `json:"items"`
}

func toBulkResultDTO(result application.BulkResult) bulkResultDTO {
	dto := bulkResultDTO{
		Total:     result.Total,
		Succeeded: result.Succeeded,
		Failed:    result.Failed,
	}
	for _, item := range result.Items {
		itemDTO := bulkItemDTO{
			EventID: item.EventID,
			Success: item.Success,
			Error:   item.Error,
		}
		if item.Event != nil {
			eventDTO := toEventDTO(*item.Event)
			itemDTO.Event = &eventDTO
		}
		for _, conflict := range item.Conflicts {
			itemDTO.Conflicts = append(itemDTO.Conflicts, conflictingEventDTO{
				EventID:        conflict.EventID,
				Title:          conflict.Title,
				Start:          formatTime(conflict.Start),
				End:            formatTime(conflict.End),
				ParticipantIDs: append([]string(nil), conflict.ParticipantIDs...),
				RoomID:         conflict.RoomID,
			})
		}
		dto.Items = append(dto.Items, itemDTO)
	}
	return dto
}

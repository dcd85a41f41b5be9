package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/example/firm-scheduler/internal/application"
)

type eventService interface {
	CreateEvent(ctx context.Context, params application.CreateEventParams) (application.Event, application.ConflictReport, error)
	UpdateEvent(ctx context.Context, params application.UpdateEventParams) (application.Event, application.ConflictReport, error)
	CancelEvent(ctx context.Context, scope application.Scope, eventID string) (application.Event, error)
	GetEvent(ctx context.Context, scope application.Scope, eventID string) (application.Event, error)
	ListEvents(ctx context.Context, params application.ListEventsParams) ([]application.Event, error)
	CheckConflicts(ctx context.Context, params application.CheckConflictsParams) (application.ConflictReport, error)
	SuggestSlots(ctx context.Context, params application.SuggestSlotsParams) ([]application.SuggestedSlot, error)
}

type EventHandler struct {
	service   eventService
	responder responder
}

func NewEventHandler(service eventService, logger *slog.Logger) *EventHandler {
	return &EventHandler{service: service, responder: newResponder(logger)}
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	scope, _ := ScopeFromContext(r.Context())
	event, report, err := h.service.CreateEvent(r.Context(), application.CreateEventParams{
		Scope:           scope,
		Input:           req.toInput(),
		IgnoreConflicts: req.IgnoreConflicts,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.renderEvent(r.Context(), w, event, report, http.StatusCreated)
}

func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	eventID := mux.Vars(r)["id"]
	if strings.TrimSpace(eventID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	scope, _ := ScopeFromContext(r.Context())
	event, report, err := h.service.UpdateEvent(r.Context(), application.UpdateEventParams{
		Scope:           scope,
		EventID:         eventID,
		Input:           req.toInput(),
		IgnoreConflicts: req.IgnoreConflicts,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.renderEvent(r.Context(), w, event, report, http.StatusOK)
}

func (h *EventHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	eventID := mux.Vars(r)["id"]
	if strings.TrimSpace(eventID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	scope, _ := ScopeFromContext(r.Context())
	event, err := h.service.CancelEvent(r.Context(), scope, eventID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, eventResponse{Event: toEventDTO(event)})
}

func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	eventID := mux.Vars(r)["id"]
	if strings.TrimSpace(eventID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	scope, _ := ScopeFromContext(r.Context())
	event, err := h.service.GetEvent(r.Context(), scope, eventID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, eventResponse{Event: toEventDTO(event)})
}

func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	scope, _ := ScopeFromContext(r.Context())
	params := buildListParams(r.URL.Query(), scope)

	events, err := h.service.ListEvents(r.Context(), params)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listEventsResponse{Events: toEventDTOs(events)})
}

func (h *EventHandler) CheckConflicts(w http.ResponseWriter, r *http.Request) {
	var req conflictCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	scope, _ := ScopeFromContext(r.Context())
	report, err := h.service.CheckConflicts(r.Context(), application.CheckConflictsParams{
		Scope:   scope,
		EventID: req.EventID,
		Input:   req.eventRequest.toInput(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toConflictReportDTO(report))
}

func (h *EventHandler) SuggestSlots(w http.ResponseWriter, r *http.Request) {
	var req slotSuggestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	scope, _ := ScopeFromContext(r.Context())
	slots, err := h.service.SuggestSlots(r.Context(), req.toParams(scope))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, slotSuggestionResponse{Slots: toSlotDTOs(slots)})
}

func (h *EventHandler) renderEvent(ctx context.Context, w http.ResponseWriter, event application.Event, report application.ConflictReport, status int) {
	reportDTO := toConflictReportDTO(report)
	h.responder.writeJSON(ctx, w, status, eventResponse{Event: toEventDTO(event), Report: &reportDTO})
}

type eventRequest struct {
	OrganizerID     string   `json:"organizer_id"`
	Title           string   `json:"title"`
	Location        string   `json:"location"`
	VideoLink       string   `json:"video_link"`
	RoomID          *string  `json:"room_id"`
	Start           string   `json:"start"`
	End             string   `json:"end"`
	StaffIDs        []string `json:"staff_ids"`
	ClientIDs       []string `json:"client_ids"`
	IgnoreConflicts bool     `json:"ignore_conflicts"`
}

func (r eventRequest) toInput() application.EventInput {
	return application.EventInput{
		OrganizerID: strings.TrimSpace(r.OrganizerID),
		Title:       strings.TrimSpace(r.Title),
		Location:    r.Location,
		VideoLink:   strings.TrimSpace(r.VideoLink),
		RoomID:      r.RoomID,
		Start:       parseTime(r.Start),
		End:         parseTime(r.End),
		StaffIDs:    append([]string(nil), r.StaffIDs...),
		ClientIDs:   append([]string(nil), r.ClientIDs...),
	}
}

type conflictCheckRequest struct {
	eventRequest
	EventID string `json:"event_id"`
}

type slotSuggestionRequest struct {
	Date            string   `json:"date"`
	DurationMinutes int      `json:"duration_minutes"`
	StartHour       int      `json:"start_hour"`
	EndHour         int      `json:"end_hour"`
	BufferMinutes   int      `json:"buffer_minutes"`
	Count           int      `json:"count"`
	OrganizerID     string   `json:"organizer_id"`
	StaffIDs        []string `json:"staff_ids"`
	ClientIDs       []string `json:"client_ids"`
	RoomID          *string  `json:"room_id"`
}

func (r slotSuggestionRequest) toParams(scope application.Scope) application.SuggestSlotsParams {
	date, _ := time.Parse("2006-01-02", strings.TrimSpace(r.Date))
	return application.SuggestSlotsParams{
		Scope:           scope,
		Date:            date,
		DurationMinutes: r.DurationMinutes,
		StartHour:       r.StartHour,
		EndHour:         r.EndHour,
		BufferMinutes:   r.BufferMinutes,
		Count:           r.Count,
		OrganizerID:     strings.TrimSpace(r.OrganizerID),
		StaffIDs:        append([]string(nil), r.StaffIDs...),
		ClientIDs:       append([]string(nil), r.ClientIDs...),
		RoomID:          r.RoomID,
	}
}

type eventResponse struct {
	Event  eventDTO           `json:"event"`
	Report *conflictReportDTO `json:"report,omitempty"`
}

type listEventsResponse struct {
	Events []eventDTO `json:"events"`
}

type slotSuggestionResponse struct {
	Slots []slotDTO `json:"slots"`
}

func buildListParams(values url.Values, scope application.Scope) application.ListEventsParams {
	params := application.ListEventsParams{Scope: scope}

	if participants := strings.TrimSpace(values.Get("participants")); participants != "" {
		params.ParticipantIDs = parseCSV(participants)
	}
	if after := strings.TrimSpace(values.Get("starts_after")); after != "" {
		if ts := parseTime(after); !ts.IsZero() {
			params.StartsAfter = &ts
		}
	}
	if before := strings.TrimSpace(values.Get("ends_before")); before != "" {
		if ts := parseTime(before); !ts.IsZero() {
			params.EndsBefore = &ts
		}
	}
	if cancelled := strings.TrimSpace(values.Get("include_cancelled")); cancelled != "" {
		if parsed, err := strconv.ParseBool(cancelled); err == nil {
			params.IncludeCancelled = parsed
		}
	}

	return params
}

func parseCSV(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

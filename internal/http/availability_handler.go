package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/example/firm-scheduler/internal/application"
)

var errMissingDate = errors.New("date query parameter is required (YYYY-MM-DD)")

type availabilityService interface {
	CreateWindow(ctx context.Context, scope application.Scope, input application.WindowInput) (application.AvailabilityWindow, error)
	UpdateWindow(ctx context.Context, scope application.Scope, windowID string, input application.WindowInput) (application.AvailabilityWindow, error)
	DeleteWindow(ctx context.Context, scope application.Scope, userID, windowID string) error
	ListWindows(ctx context.Context, scope application.Scope, userID string) ([]application.AvailabilityWindow, error)
	CreateException(ctx context.Context, scope application.Scope, input application.ExceptionInput) (application.AvailabilityException, error)
	DeleteException(ctx context.Context, scope application.Scope, userID, exceptionID string) error
	ListExceptions(ctx context.Context, scope application.Scope, userID, date string) ([]application.AvailabilityException, error)
	ResolveDay(ctx context.Context, scope application.Scope, userID, date string) (application.ResolvedDay, error)
}

type AvailabilityHandler struct {
	service   availabilityService
	responder responder
}

func NewAvailabilityHandler(service availabilityService, logger *slog.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{service: service, responder: newResponder(logger)}
}

func (h *AvailabilityHandler) CreateWindow(w http.ResponseWriter, r *http.Request) {
	var req windowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	scope, _ := ScopeFromContext(r.Context())
	window, err := h.service.CreateWindow(r.Context(), scope, req.toInput())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toWindowDTO(window))
}

func (h *AvailabilityHandler) UpdateWindow(w http.ResponseWriter, r *http.Request) {
	windowID := mux.Vars(r)["id"]
	if strings.TrimSpace(windowID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	var req windowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	scope, _ := ScopeFromContext(r.Context())
	window, err := h.service.UpdateWindow(r.Context(), scope, windowID, req.toInput())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toWindowDTO(window))
}

func (h *AvailabilityHandler) DeleteWindow(w http.ResponseWriter, r *http.Request) {
	windowID := mux.Vars(r)["id"]
	if strings.TrimSpace(windowID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	scope, _ := ScopeFromContext(r.Context())
	userID := strings.TrimSpace(r.URL.Query().Get("user"))
	if err := h.service.DeleteWindow(r.Context(), scope, userID, windowID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *AvailabilityHandler) ListWindows(w http.ResponseWriter, r *http.Request) {
	scope, _ := ScopeFromContext(r.Context())
	userID := strings.TrimSpace(r.URL.Query().Get("user"))

	windows, err := h.service.ListWindows(r.Context(), scope, userID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]windowDTO, 0, len(windows))
	for _, window := range windows {
		out = append(out, toWindowDTO(window))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listWindowsResponse{Windows: out})
}

func (h *AvailabilityHandler) CreateException(w http.ResponseWriter, r *http.Request) {
	var req exceptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	scope, _ := ScopeFromContext(r.Context())
	exception, err := h.service.CreateException(r.Context(), scope, req.toInput())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toExceptionDTO(exception))
}

func (h *AvailabilityHandler) DeleteException(w http.ResponseWriter, r *http.Request) {
	exceptionID := mux.Vars(r)["id"]
	if strings.TrimSpace(exceptionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	scope, _ := ScopeFromContext(r.Context())
	userID := strings.TrimSpace(r.URL.Query().Get("user"))
	if err := h.service.DeleteException(r.Context(), scope, userID, exceptionID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *AvailabilityHandler) ListExceptions(w http.ResponseWriter, r *http.Request) {
	scope, _ := ScopeFromContext(r.Context())
	userID := strings.TrimSpace(r.URL.Query().Get("user"))
	date := strings.TrimSpace(r.URL.Query().Get("date"))

	exceptions, err := h.service.ListExceptions(r.Context(), scope, userID, date)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]exceptionDTO, 0, len(exceptions))
	for _, exception := range exceptions {
		out = append(out, toExceptionDTO(exception))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listExceptionsResponse{Exceptions: out})
}

// ResolveDay computes a user's effective open ranges for one date.
func (h *AvailabilityHandler) ResolveDay(w http.ResponseWriter, r *http.Request) {
	scope, _ := ScopeFromContext(r.Context())
	userID := strings.TrimSpace(r.URL.Query().Get("user"))
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if date == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingDate)
		return
	}

	resolved, err := h.service.ResolveDay(r.Context(), scope, userID, date)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, resolvedDayResponse{
		UserID: resolved.UserID,
		Date:   resolved.Date,
		Open:   toSlotDTOs(resolved.Open),
	})
}

type windowRequest struct {
	UserID      string `json:"user_id"`
	Weekday     int    `json:"weekday"`
	StartMinute int    `json:"start_minute"`
	EndMinute   int    `json:"end_minute"`
}

func (r windowRequest) toInput() application.WindowInput {
	return application.WindowInput{
		UserID:      strings.TrimSpace(r.UserID),
		Weekday:     r.Weekday,
		StartMinute: r.StartMinute,
		EndMinute:   r.EndMinute,
	}
}

type exceptionRequest struct {
	UserID      string `json:"user_id"`
	Date        string `json:"date"`
	Kind        string `json:"kind"`
	StartMinute int    `json:"start_minute"`
	EndMinute   int    `json:"end_minute"`
}

func (r exceptionRequest) toInput() application.ExceptionInput {
	return application.ExceptionInput{
		UserID:      strings.TrimSpace(r.UserID),
		Date:        strings.TrimSpace(r.Date),
		Kind:        strings.TrimSpace(r.Kind),
		StartMinute: r.StartMinute,
		EndMinute:   r.EndMinute,
	}
}

type windowDTO struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	Weekday     int    `json:"weekday"`
	StartMinute int    `json:"start_minute"`
	EndMinute   int    `json:"end_minute"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

func toWindowDTO(window application.AvailabilityWindow) windowDTO {
	return windowDTO{
		ID:          window.ID,
		UserID:      window.UserID,
		Weekday:     window.Weekday,
		StartMinute: window.StartMinute,
		EndMinute:   window.EndMinute,
		CreatedAt:   formatTime(window.CreatedAt),
		UpdatedAt:   formatTime(window.UpdatedAt),
	}
}

type exceptionDTO struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	Date        string `json:"date"`
	Kind        string `json:"kind"`
	StartMinute int    `json:"start_minute,omitempty"`
	EndMinute   int    `json:"end_minute,omitempty"`
	CreatedAt   string `json:"created_at"`
}

func toExceptionDTO(exception application.AvailabilityException) exceptionDTO {
	return exceptionDTO{
		ID:          exception.ID,
		UserID:      exception.UserID,
		Date:        exception.Date,
		Kind:        exception.Kind,
		StartMinute: exception.StartMinute,
		EndMinute:   exception.EndMinute,
		CreatedAt:   formatTime(exception.CreatedAt),
	}
}

type listWindowsResponse struct {
	Windows []windowDTO `json:"windows"`
}

type listExceptionsResponse struct {
	Exceptions []exceptionDTO `json:"exceptions"`
}

type resolvedDayResponse struct {
	UserID string    `json:"user_id"`
	Date   string    `json:"date"`
	Open   []slotDTO `json:"open"`
}

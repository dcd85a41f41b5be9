package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/example/firm-scheduler/internal/application"
)

type appointmentService interface {
	CreateRequest(ctx context.Context, params application.CreateAppointmentParams) (application.AppointmentRequest, error)
	Approve(ctx context.Context, params application.ApproveAppointmentParams) (application.AppointmentRequest, application.ConflictReport, error)
	Reject(ctx context.Context, params application.RejectAppointmentParams) (application.AppointmentRequest, error)
	Cancel(ctx context.Context, scope application.Scope, requestID, reason string) (application.AppointmentRequest, error)
	Reschedule(ctx context.Context, params application.RescheduleAppointmentParams) (application.AppointmentRequest, application.ConflictReport, error)
	GetRequest(ctx context.Context, scope application.Scope, requestID string) (application.AppointmentRequest, error)
	ListRequests(ctx context.Context, scope application.Scope, status string) ([]application.AppointmentRequest, error)
}

type AppointmentHandler struct {
	service   appointmentService
	responder responder
}

func NewAppointmentHandler(service appointmentService, logger *slog.Logger) *AppointmentHandler {
	return &AppointmentHandler{service: service, responder: newResponder(logger)}
}

func (h *AppointmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req appointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	scope, _ := ScopeFromContext(r.Context())
	request, err := h.service.CreateRequest(r.Context(), application.CreateAppointmentParams{
		Scope: scope,
		Input: req.toInput(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, appointmentResponse{Request: toAppointmentDTO(request)})
}

func (h *AppointmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	requestID := mux.Vars(r)["id"]
	if strings.TrimSpace(requestID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	scope, _ := ScopeFromContext(r.Context())
	request, err := h.service.GetRequest(r.Context(), scope, requestID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, appointmentResponse{Request: toAppointmentDTO(request)})
}

func (h *AppointmentHandler) List(w http.ResponseWriter, r *http.Request) {
	scope, _ := ScopeFromContext(r.Context())
	status := strings.TrimSpace(r.URL.Query().Get("status"))

	requests, err := h.service.ListRequests(r.Context(), scope, status)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]appointmentDTO, 0, len(requests))
	for _, request := range requests {
		out = append(out, toAppointmentDTO(request))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listAppointmentsResponse{Requests: out})
}

func (h *AppointmentHandler) Approve(w http.ResponseWriter, r *http.Request) {
	requestID := mux.Vars(r)["id"]
	if strings.TrimSpace(requestID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	var req approveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	scope, _ := ScopeFromContext(r.Context())
	request, report, err := h.service.Approve(r.Context(), application.ApproveAppointmentParams{
		Scope:           scope,
		RequestID:       requestID,
		StaffID:         strings.TrimSpace(req.StaffID),
		IgnoreConflicts: req.IgnoreConflicts,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.renderAppointment(w, r, request, report)
}

func (h *AppointmentHandler) Reject(w http.ResponseWriter, r *http.Request) {
	requestID := mux.Vars(r)["id"]
	if strings.TrimSpace(requestID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	var req rejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	scope, _ := ScopeFromContext(r.Context())
	request, err := h.service.Reject(r.Context(), application.RejectAppointmentParams{
		Scope:     scope,
		RequestID: requestID,
		Reason:    req.Reason,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, appointmentResponse{Request: toAppointmentDTO(request)})
}

func (h *AppointmentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	requestID := mux.Vars(r)["id"]
	if strings.TrimSpace(requestID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	// The body is optional; a bare cancel carries no reason.
	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	scope, _ := ScopeFromContext(r.Context())
	request, err := h.service.Cancel(r.Context(), scope, requestID, req.Reason)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, appointmentResponse{Request: toAppointmentDTO(request)})
}

func (h *AppointmentHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	requestID := mux.Vars(r)["id"]
	if strings.TrimSpace(requestID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	scope, _ := ScopeFromContext(r.Context())
	request, report, err := h.service.Reschedule(r.Context(), application.RescheduleAppointmentParams{
		Scope:           scope,
		RequestID:       requestID,
		Start:           parseTime(req.Start),
		End:             parseTime(req.End),
		Reason:          req.Reason,
		IgnoreConflicts: req.IgnoreConflicts,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.renderAppointment(w, r, request, report)
}

func (h *AppointmentHandler) renderAppointment(w http.ResponseWriter, r *http.Request, request application.AppointmentRequest, report application.ConflictReport) {
	reportDTO := toConflictReportDTO(report)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, appointmentResponse{
		Request: toAppointmentDTO(request),
		Report:  &reportDTO,
	})
}

type appointmentRequest struct {
	ClientID string  `json:"client_id"`
	StaffID  *string `json:"staff_id"`
	Start    string  `json:"start"`
	End      string  `json:"end"`
}

func (r appointmentRequest) toInput() application.AppointmentInput {
	return application.AppointmentInput{
		ClientID: strings.TrimSpace(r.ClientID),
		StaffID:  r.StaffID,
		Start:    parseTime(r.Start),
		End:      parseTime(r.End),
	}
}

type approveRequest struct {
	StaffID         string `json:"staff_id"`
	IgnoreConflicts bool   `json:"ignore_conflicts"`
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

type rescheduleRequest struct {
	Start           string `json:"start"`
	End             string `json:"end"`
	Reason          string `json:"reason"`
	IgnoreConflicts bool   `json:"ignore_conflicts"`
}

type appointmentDTO struct {
	ID            string  `json:"id"`
	RequestedBy   string  `json:"requested_by"`
	ClientID      string  `json:"client_id"`
	StaffID       *string `json:"staff_id,omitempty"`
	Start         string  `json:"start"`
	End           string  `json:"end"`
	Status        string  `json:"status"`
	EventID       *string `json:"event_id,omitempty"`
	RescheduledTo *string `json:"rescheduled_to,omitempty"`
	Reason        string  `json:"reason,omitempty"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
}

func toAppointmentDTO(request application.AppointmentRequest) appointmentDTO {
	return appointmentDTO{
		ID:            request.ID,
		RequestedBy:   request.RequestedBy,
		ClientID:      request.ClientID,
		StaffID:       request.StaffID,
		Start:         formatTime(request.Start),
		End:           formatTime(request.End),
		Status:        request.Status,
		EventID:       request.EventID,
		RescheduledTo: request.RescheduledTo,
		Reason:        request.Reason,
		CreatedAt:     formatTime(request.CreatedAt),
		UpdatedAt:     formatTime(request.UpdatedAt),
	}
}

type appointmentResponse struct {
	Request appointmentDTO     `json:"request"`
	Report  *conflictReportDTO `json:"report,omitempty"`
}

type listAppointmentsResponse struct {
	Requests []appointmentDTO `json:"requests"`
}

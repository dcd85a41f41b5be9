package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/example/firm-scheduler/internal/application"
)

type syncService interface {
	Connect(ctx context.Context, params application.ConnectIntegrationParams) (application.CalendarIntegration, error)
	Disconnect(ctx context.Context, scope application.Scope, integrationID string) error
	Status(ctx context.Context, scope application.Scope, integrationID string) (application.CalendarIntegration, error)
	List(ctx context.Context, scope application.Scope) ([]application.CalendarIntegration, error)
	Sync(ctx context.Context, scope application.Scope, integrationID string) (application.SyncResult, error)
}

type IntegrationHandler struct {
	service   syncService
	responder responder
}

func NewIntegrationHandler(service syncService, logger *slog.Logger) *IntegrationHandler {
	return &IntegrationHandler{service: service, responder: newResponder(logger)}
}

func (h *IntegrationHandler) Connect(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	scope, _ := ScopeFromContext(r.Context())
	integration, err := h.service.Connect(r.Context(), application.ConnectIntegrationParams{
		Scope:         scope,
		UserID:        strings.TrimSpace(req.UserID),
		Provider:      strings.TrimSpace(req.Provider),
		Credential:    []byte(req.Credential),
		SyncDirection: strings.TrimSpace(req.SyncDirection),
		AutoSync:      req.AutoSync,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toIntegrationDTO(integration))
}

func (h *IntegrationHandler) Get(w http.ResponseWriter, r *http.Request) {
	integrationID := mux.Vars(r)["id"]
	if strings.TrimSpace(integrationID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	scope, _ := ScopeFromContext(r.Context())
	integration, err := h.service.Status(r.Context(), scope, integrationID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toIntegrationDTO(integration))
}

func (h *IntegrationHandler) List(w http.ResponseWriter, r *http.Request) {
	scope, _ := ScopeFromContext(r.Context())
	integrations, err := h.service.List(r.Context(), scope)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]integrationDTO, 0, len(integrations))
	for _, integration := range integrations {
		out = append(out, toIntegrationDTO(integration))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listIntegrationsResponse{Integrations: out})
}

func (h *IntegrationHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	integrationID := mux.Vars(r)["id"]
	if strings.TrimSpace(integrationID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	scope, _ := ScopeFromContext(r.Context())
	if err := h.service.Disconnect(r.Context(), scope, integrationID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// Sync runs one reconciliation and returns the structured summary. A 200
// covers partial and failed runs too; the status field is authoritative.
func (h *IntegrationHandler) Sync(w http.ResponseWriter, r *http.Request) {
	integrationID := mux.Vars(r)["id"]
	if strings.TrimSpace(integrationID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	scope, _ := ScopeFromContext(r.Context())
	result, err := h.service.Sync(r.Context(), scope, integrationID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toSyncResultDTO(result))
}

type connectRequest struct {
	UserID        string `json:"user_id"`
	Provider      string `json:"provider"`
	Credential    string `json:"credential"`
	SyncDirection string `json:"sync_direction"`
	AutoSync      bool   `json:"auto_sync"`
}

type integrationDTO struct {
	ID             string `json:"id"`
	UserID         string `json:"user_id"`
	Provider       string `json:"provider"`
	SyncDirection  string `json:"sync_direction"`
	AutoSync       bool   `json:"auto_sync"`
	Active         bool   `json:"active"`
	LastSyncAt     string `json:"last_sync_at,omitempty"`
	LastSyncStatus string `json:"last_sync_status,omitempty"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

func toIntegrationDTO(integration application.CalendarIntegration) integrationDTO {
	dto := integrationDTO{
		ID:             integration.ID,
		UserID:         integration.UserID,
		Provider:       integration.Provider,
		SyncDirection:  integration.SyncDirection,
		AutoSync:       integration.AutoSync,
		Active:         integration.Active,
		LastSyncStatus: integration.LastSyncStatus,
		CreatedAt:      formatTime(integration.CreatedAt),
		UpdatedAt:      formatTime(integration.UpdatedAt),
	}
	if integration.LastSyncAt != nil {
		dto.LastSyncAt = formatTime(*integration.LastSyncAt)
	}
	return dto
}

type listIntegrationsResponse struct {
	Integrations []integrationDTO `json:"integrations"`
}

type syncResultDTO struct {
	IntegrationID string   `json:"integration_id"`
	Status        string   `json:"status"`
	Pushed        int      `json:"pushed"`
	Pulled        int      `json:"pulled"`
	Errors        []string `json:"errors,omitempty"`
	Notes         []string `json:"notes,omitempty"`
}

func toSyncResultDTO(result application.SyncResult) syncResultDTO {
	return syncResultDTO{
		IntegrationID: result.IntegrationID,
		Status:        result.Status,
		Pushed:        result.Pushed,
		Pulled:        result.Pulled,
		Errors:        append([]string(nil), result.Errors...),
		Notes:         append([]string(nil), result.Notes...),
	}
}

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

type shareService interface {
	CreateShare(ctx context.Context, scope application.Scope, input application.ShareInput) (application.CalendarShare, error)
	UpdateShare(ctx context.Context, scope application.Scope, shareID string, canView, canEdit bool) (application.CalendarShare, error)
	RevokeShare(ctx context.Context, scope application.Scope, shareID string) error
	ListShares(ctx context.Context, scope application.Scope, ownerID string) ([]application.CalendarShare, error)
}

type ShareHandler struct {
	service   shareService
	responder responder
}

func NewShareHandler(service shareService, logger *slog.Logger) *ShareHandler {
	return &ShareHandler{service: service, responder: newResponder(logger)}
}

func (h *ShareHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req shareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	scope, _ := ScopeFromContext(r.Context())
	share, err := h.service.CreateShare(r.Context(), scope, application.ShareInput{
		OwnerID:      strings.TrimSpace(req.OwnerID),
		SharedWithID: strings.TrimSpace(req.SharedWithID),
		CanView:      req.CanView,
		CanEdit:      req.CanEdit,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toShareDTO(share))
}

func (h *ShareHandler) Update(w http.ResponseWriter, r *http.Request) {
	shareID := mux.Vars(r)["id"]
	if strings.TrimSpace(shareID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	var req sharePermissionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	scope, _ := ScopeFromContext(r.Context())
	share, err := h.service.UpdateShare(r.Context(), scope, shareID, req.CanView, req.CanEdit)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toShareDTO(share))
}

func (h *ShareHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	shareID := mux.Vars(r)["id"]
	if strings.TrimSpace(shareID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	scope, _ := ScopeFromContext(r.Context())
	if err := h.service.RevokeShare(r.Context(), scope, shareID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *ShareHandler) List(w http.ResponseWriter, r *http.Request) {
	scope, _ := ScopeFromContext(r.Context())
	ownerID := strings.TrimSpace(r.URL.Query().Get("owner"))

	shares, err := h.service.ListShares(r.Context(), scope, ownerID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]shareDTO, 0, len(shares))
	for _, share := range shares {
		out = append(out, toShareDTO(share))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listSharesResponse{Shares: out})
}

type shareRequest struct {
	OwnerID      string `json:"owner_id"`
	SharedWithID string `json:"shared_with_id"`
	CanView      bool   `json:"can_view"`
	CanEdit      bool   `json:"can_edit"`
}

type sharePermissionsRequest struct {
	CanView bool `json:"can_view"`
	CanEdit bool `json:"can_edit"`
}

type shareDTO struct {
	ID           string `json:"id"`
	OwnerID      string `json:"owner_id"`
	SharedWithID string `json:"shared_with_id"`
	CanView      bool   `json:"can_view"`
	CanEdit      bool   `json:"can_edit"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

func toShareDTO(share application.CalendarShare) shareDTO {
	return shareDTO{
		ID:           share.ID,
		OwnerID:      share.OwnerID,
		SharedWithID: share.SharedWithID,
		CanView:      share.CanView,
		CanEdit:      share.CanEdit,
		CreatedAt:    formatTime(share.CreatedAt),
		UpdatedAt:    formatTime(share.UpdatedAt),
	}
}

type listSharesResponse struct {
	Shares []shareDTO `json:"shares"`
}

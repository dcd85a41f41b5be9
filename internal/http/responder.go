package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/firm-scheduler/internal/application"
	"github.com/example/firm-scheduler/internal/logging"
)

var (
	errBadRequestBody    = errors.New("request body is not valid JSON")
	errMissingIdentity   = errors.New("identity headers are required")
	errInvalidResourceID = errors.New("resource id is required")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := http.StatusText(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

// handleServiceError maps application errors onto HTTP statuses. Conflict
// reports travel in the body so callers can retry with an override.
func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	if kind := application.ErrorKind(err); kind == "unexpected" {
		r.loggerFor(ctx).ErrorContext(ctx, "unexpected service error", "error", err)
	} else {
		r.loggerFor(ctx).WarnContext(ctx, "request rejected", "error_kind", kind)
	}

	switch {
	case errors.Is(err, application.ErrUnauthorized):
		r.writeJSON(ctx, w, http.StatusForbidden, errorResponse{
			ErrorCode: "FORBIDDEN",
			Message:   "you are not allowed to perform this operation",
		})
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{Message: "the requested resource was not found"})
	default:
		var vErr *application.ValidationError
		if errors.As(err, &vErr) {
			r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
				Message: "the request contains invalid fields",
				Errors:  vErr.FieldErrors,
			})
			return
		}

		var cErr *application.ConflictError
		if errors.As(err, &cErr) {
			report := toConflictReportDTO(cErr.Report)
			r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
				ErrorCode: "SCHEDULING_CONFLICT",
				Message:   "the requested time conflicts with existing commitments",
				Report:    &report,
			})
			return
		}

		var sErr *application.StateTransitionError
		if errors.As(err, &sErr) {
			r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
				ErrorCode: "INVALID_STATE",
				Message:   sErr.Error(),
			})
			return
		}

		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "an internal error occurred"})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := logging.FromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

type errorResponse struct {
	ErrorCode string             `json:"error_code,omitempty"`
	Message   string             `json:"message"`
	Errors    map[string]string  `json:"errors,omitempty"`
	Report    *conflictReportDTO `json:"report,omitempty"`
}

package http

import (
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/example/firm-scheduler/internal/application"
	"github.com/example/firm-scheduler/internal/logging"
)

// Identity headers placed by the authentication layer in front of this
// service.
const (
	HeaderFirmID    = "X-Firm-ID"
	HeaderUserID    = "X-User-ID"
	HeaderUserStaff = "X-User-Staff"
)

// RequireScope builds the request scope from the identity headers and
// rejects requests that carry none.
func RequireScope(logger *slog.Logger) func(http.Handler) http.Handler {
	responder := newResponder(logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			firmID := strings.TrimSpace(r.Header.Get(HeaderFirmID))
			userID := strings.TrimSpace(r.Header.Get(HeaderUserID))
			if firmID == "" || userID == "" {
				responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingIdentity)
				return
			}

			scope := application.Scope{
				FirmID:  firmID,
				UserID:  userID,
				IsStaff: strings.EqualFold(r.Header.Get(HeaderUserStaff), "true"),
			}

			ctx := ContextWithScope(r.Context(), scope)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestLogger attaches a request-scoped logger to the context and records
// start and completion of every request.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}
	var counter atomic.Uint64

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := counter.Add(1)
			logger := base.With(
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
			)

			ctx := logging.ContextWithLogger(r.Context(), logger)
			start := time.Now()
			logger.InfoContext(ctx, "request started")
			next.ServeHTTP(w, r.WithContext(ctx))
			logger.InfoContext(ctx, "request completed", "duration", time.Since(start))
		})
	}
}

package http

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/example/firm-scheduler/internal/application"
)

func TestResponder_LogsKindForRejectedRequests(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	r := newResponder(slog.New(slog.NewTextHandler(&buf, nil)))
	rec := httptest.NewRecorder()

	r.handleServiceError(context.Background(), rec, &application.ValidationError{
		FieldErrors: map[string]string{"title": "title is required"},
	})

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	logged := buf.String()
	if !strings.Contains(logged, "error_kind=validation") {
		t.Fatalf("expected the rejection kind logged, got %q", logged)
	}
}

func TestResponder_LogsUnexpectedErrorsAtErrorLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	r := newResponder(slog.New(slog.NewTextHandler(&buf, nil)))
	rec := httptest.NewRecorder()

	r.handleServiceError(context.Background(), rec, errors.New("disk on fire"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	logged := buf.String()
	if !strings.Contains(logged, "level=ERROR") || !strings.Contains(logged, "disk on fire") {
		t.Fatalf("expected an error level entry, got %q", logged)
	}
}

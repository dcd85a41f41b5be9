package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/example/firm-scheduler/internal/application"
)

func TestRequireScope_RejectsMissingIdentity(t *testing.T) {
	t.Parallel()

	handler := RequireScope(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without identity headers")
	}))

	tests := []struct {
		name    string
		headers map[string]string
	}{
		{name: "no headers", headers: nil},
		{name: "missing user", headers: map[string]string{HeaderFirmID: "firm-1"}},
		{name: "missing firm", headers: map[string]string{HeaderUserID: "staff-1"}},
		{name: "blank firm", headers: map[string]string{HeaderFirmID: "  ", HeaderUserID: "staff-1"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/events", nil)
			for key, value := range tc.headers {
				req.Header.Set(key, value)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
		})
	}
}

func TestRequireScope_BuildsScopeFromHeaders(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		staff     string
		wantStaff bool
	}{
		{name: "staff true", staff: "true", wantStaff: true},
		{name: "staff mixed case", staff: "True", wantStaff: true},
		{name: "staff false", staff: "false", wantStaff: false},
		{name: "staff absent", staff: "", wantStaff: false},
		{name: "staff garbage", staff: "yes", wantStaff: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var got application.Scope
			handler := RequireScope(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got, _ = ScopeFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/events", nil)
			req.Header.Set(HeaderFirmID, "firm-1")
			req.Header.Set(HeaderUserID, "user-9")
			if tc.staff != "" {
				req.Header.Set(HeaderUserStaff, tc.staff)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rec.Code)
			}
			if got.FirmID != "firm-1" || got.UserID != "user-9" || got.IsStaff != tc.wantStaff {
				t.Fatalf("unexpected scope %+v", got)
			}
		})
	}
}

func TestScopeFromContext_MissingScope(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	if _, ok := ScopeFromContext(req.Context()); ok {
		t.Fatal("expected no scope on a bare context")
	}
}

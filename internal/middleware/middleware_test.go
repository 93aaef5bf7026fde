package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hst-Sunday/SoloLink/internal/models"
	"github.com/hst-Sunday/SoloLink/internal/store"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeSessions struct {
	valid map[string]bool
	err   error
}

func (f fakeSessions) ValidateSession(_ context.Context, id string) (bool, error) {
	return f.valid[id], f.err
}

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(RequestLogger(quietLogger()))
	r.Use(mw...)
	r.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	return r
}

func do(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSessionAuth(t *testing.T) {
	r := newEngine(SessionAuth(fakeSessions{valid: map[string]bool{"good": true}}, quietLogger()))

	cases := []struct {
		name   string
		cookie string
		want   int
	}{
		{"no cookie", "", http.StatusUnauthorized},
		{"unknown session", "bad", http.StatusUnauthorized},
		{"valid session", "good", http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/ok", nil)
		if tc.cookie != "" {
			req.AddCookie(&http.Cookie{Name: SessionCookie, Value: tc.cookie})
		}
		if w := do(r, req); w.Code != tc.want {
			t.Errorf("%s: status = %d, want %d", tc.name, w.Code, tc.want)
		}
	}
}

func TestSessionAuth_StoreErrorFailsClosed(t *testing.T) {
	r := newEngine(SessionAuth(fakeSessions{err: errors.New("disk gone")}, quietLogger()))
	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "good"})
	if w := do(r, req); w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestAPIKeyAuth(t *testing.T) {
	s := store.NewMemoryStore()
	r := newEngine(APIKeyAuth(s, quietLogger()))

	// 未设置 key 时放行
	if w := do(r, httptest.NewRequest(http.MethodGet, "/ok", nil)); w.Code != http.StatusOK {
		t.Fatalf("no key configured: status = %d, want 200", w.Code)
	}

	if err := s.SetSetting(context.Background(), models.SettingAPIKey, "secret-key"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}

	cases := []struct {
		name   string
		header string
		value  string
		want   int
	}{
		{"missing", "", "", http.StatusUnauthorized},
		{"wrong header key", "X-API-Key", "nope", http.StatusUnauthorized},
		{"header key", "X-API-Key", "secret-key", http.StatusOK},
		{"bearer", "Authorization", "Bearer secret-key", http.StatusOK},
		{"bearer lowercase", "Authorization", "bearer secret-key", http.StatusOK},
		{"basic scheme", "Authorization", "Basic secret-key", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/ok", nil)
		if tc.header != "" {
			req.Header.Set(tc.header, tc.value)
		}
		if w := do(r, req); w.Code != tc.want {
			t.Errorf("%s: status = %d, want %d", tc.name, w.Code, tc.want)
		}
	}
}

func TestAPIKeyAuth_StoreError(t *testing.T) {
	s := store.NewMemoryStore()
	s.FailWith = errors.New("locked")
	r := newEngine(APIKeyAuth(s, quietLogger()))
	if w := do(r, httptest.NewRequest(http.MethodGet, "/ok", nil)); w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestRequestLogger_RequestID(t *testing.T) {
	r := newEngine()

	w := do(r, httptest.NewRequest(http.MethodGet, "/ok", nil))
	if id := w.Header().Get(RequestIDHeader); len(id) != 36 {
		t.Errorf("generated request id = %q, want uuid", id)
	}

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(RequestIDHeader, "client-supplied")
	w = do(r, req)
	if id := w.Header().Get(RequestIDHeader); id != "client-supplied" {
		t.Errorf("request id = %q, want client-supplied", id)
	}
}

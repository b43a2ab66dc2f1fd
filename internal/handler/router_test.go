package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/necrock/readingtracker/internal/auth"
	"github.com/necrock/readingtracker/internal/middleware"
	"github.com/necrock/readingtracker/internal/model"
)

// tokenAuthenticator はトークン文字列をそのままPrincipalに対応付けるテスト用Authenticator。
type tokenAuthenticator map[string]*auth.Principal

func (a tokenAuthenticator) Authenticate(ctx context.Context, token string) (*auth.Principal, error) {
	if p, ok := a[token]; ok {
		return p, nil
	}
	return nil, &auth.AuthenticationError{
		Reason: auth.FailureInvalidToken,
		Err:    model.NewUnauthorizedError("Invalid authentication token"),
	}
}

type nopHTTPRecorder struct{}

func (nopHTTPRecorder) RecordHTTPRequest(string, string, int, time.Duration) {}

type fakePinger struct{ err error }

func (p fakePinger) PingContext(ctx context.Context) error { return p.err }

func newTestRouter(t *testing.T, db Pinger) http.Handler {
	t.Helper()
	rl := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	t.Cleanup(rl.Stop)

	admin := &auth.Principal{UserID: 1, Username: "root", Role: model.RoleAdmin, Status: model.StatusActive}
	return NewRouter(&RouterDeps{
		Logger:            slog.New(slog.NewJSONHandler(io.Discard, nil)),
		Authenticator:     tokenAuthenticator{"user-token": testPrincipal(), "admin-token": admin},
		HTTPMetrics:       nopHTTPRecorder{},
		RateLimiter:       rl,
		CORSAllowedOrigin: "http://localhost:3000",
		DB:                db,
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "# metrics\n")
		}),
		AuthService:            &mockAuthService{},
		ReadingItemService:     &mockReadingItemService{},
		ReadingProgressService: &mockReadingProgressService{},
		UserService: &mockUserService{
			getFn: func(ctx context.Context, id int64) (*model.User, error) { return sampleUser(), nil },
		},
		PasswordHasher: prefixHasher{},
	})
}

func TestRouter_Routes(t *testing.T) {
	router := newTestRouter(t, fakePinger{})

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		status int
	}{
		{"health", http.MethodGet, "/health", "", http.StatusOK},
		{"metrics", http.MethodGet, "/metrics", "", http.StatusOK},
		{"items without token", http.MethodGet, "/api/items", "", http.StatusUnauthorized},
		{"items with bad token", http.MethodGet, "/api/items", "bogus", http.StatusUnauthorized},
		{"items", http.MethodGet, "/api/items", "user-token", http.StatusOK},
		{"item by id", http.MethodGet, "/api/items/5", "user-token", http.StatusNotFound},
		{"item bad id", http.MethodGet, "/api/items/abc", "user-token", http.StatusBadRequest},
		{"progress", http.MethodGet, "/api/progress", "user-token", http.StatusOK},
		{"me", http.MethodGet, "/api/me", "user-token", http.StatusOK},
		{"admin list as user", http.MethodGet, "/api/users", "user-token", http.StatusForbidden},
		{"admin list as admin", http.MethodGet, "/api/users", "admin-token", http.StatusOK},
		{"admin get as admin", http.MethodGet, "/api/users/7", "admin-token", http.StatusOK},
		{"unknown route", http.MethodGet, "/nope", "", http.StatusNotFound},
		{"wrong method", http.MethodPut, "/api/items", "user-token", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != tt.status {
				t.Errorf("status = %d, want %d (body: %s)", w.Code, tt.status, w.Body.String())
			}
			if w.Header().Get(middleware.RequestIDHeader) == "" {
				t.Error("expected X-Request-ID header on every response")
			}
		})
	}
}

func TestRouter_NotFound_IsJSON(t *testing.T) {
	router := newTestRouter(t, fakePinger{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/does/not/exist", nil))

	assertStatus(t, w, http.StatusNotFound)
	if body := parseErrorBody(t, w); body.Type != model.ErrTypeNotFound {
		t.Errorf("type = %q, want %q", body.Type, model.ErrTypeNotFound)
	}
}

func TestRouter_Health_DatabaseDown(t *testing.T) {
	router := newTestRouter(t, fakePinger{err: errors.New("connection refused")})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assertStatus(t, w, http.StatusServiceUnavailable)
	var resp healthResponse
	decodeBody(t, w, &resp)
	if resp.Status != "unavailable" {
		t.Errorf("status = %q", resp.Status)
	}
}

func TestRouter_Health_OK(t *testing.T) {
	router := newTestRouter(t, fakePinger{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assertStatus(t, w, http.StatusOK)
	if got := w.Body.String(); got != "{\"status\":\"ok\"}\n" {
		t.Errorf("body = %q", got)
	}
}

func TestRouter_CreateItem_NegativeChapters(t *testing.T) {
	router := newTestRouter(t, fakePinger{})

	req := jsonRequest(http.MethodPost, "/api/items", `{"title":"T","type":"BOOK","author":"A","totalChapters":-3}`)
	req.Header.Set("Authorization", "Bearer user-token")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assertStatus(t, w, http.StatusBadRequest)
	if body := parseErrorBody(t, w); body.Details["totalChapters"] != "must be greater than or equal to 0" {
		t.Errorf("details = %v", body.Details)
	}
}

package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procureflow/procureflow/internal/auth"
	"github.com/procureflow/procureflow/internal/observability"
	"github.com/procureflow/procureflow/internal/purchasing"
	"github.com/procureflow/procureflow/internal/rbac"
	"github.com/procureflow/procureflow/internal/shared"
	"github.com/procureflow/procureflow/internal/view"
	"github.com/procureflow/procureflow/jobs"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func newTestRouter(t *testing.T, db Pinger) http.Handler {
	t.Helper()
	mr := miniredis.RunT(t)
	sessions := shared.NewSessionManager(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "test_session", "secret", time.Hour, false)
	csrf := shared.NewCSRFManager("csrfsecret")
	templates, err := view.NewEngine()
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mw := rbac.Middleware{Service: rbac.NewService(nil), Logger: logger}
	svc := purchasing.NewService(nil, nil, nil, purchasing.ServiceConfig{})

	return NewRouter(RouterParams{
		Logger:            logger,
		Config:            &Config{AppEnv: "test"},
		Templates:         templates,
		SessionManager:    sessions,
		CSRFManager:       csrf,
		AuthHandler:       auth.NewHandler(logger, auth.NewService(nil), templates, sessions, csrf),
		PurchasingHandler: purchasing.NewHandler(logger, svc, templates, csrf, sessions, mw, purchasing.HandlerOptions{}),
		JobHandler:        jobs.NewHandler(nil, logger),
		Metrics:           observability.NewMetrics(),
		Database:          db,
	})
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	res := httptest.NewRecorder()
	h.ServeHTTP(res, req)
	return res
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(t, pingerFunc(func(context.Context) error { return nil }))
	res := serve(router, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, res.Code)
	assert.JSONEq(t, `{"status":"ok"}`, res.Body.String())

	down := newTestRouter(t, pingerFunc(func(context.Context) error { return errors.New("refused") }))
	res = serve(down, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, res.Code)
}

func TestAnonymousHomeRedirectsToWelcome(t *testing.T) {
	router := newTestRouter(t, nil)

	res := serve(router, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/welcome", res.Header().Get("Location"))

	res = serve(router, httptest.NewRequest(http.MethodGet, "/welcome", nil))
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "Sign in")
	assert.Equal(t, "DENY", res.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, res.Result().Cookies())
}

func TestUnsafeRequestsNeedCSRFToken(t *testing.T) {
	router := newTestRouter(t, nil)
	form := url.Values{"email": {"requestor@procureflow.local"}, "password": {"correctpass"}}
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res := serve(router, req)
	assert.Equal(t, http.StatusForbidden, res.Code)
}

func TestProtectedPagesRedirectToLogin(t *testing.T) {
	router := newTestRouter(t, nil)

	res := serve(router, httptest.NewRequest(http.MethodGet, "/purchase-orders/new", nil))
	require.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/auth/login", res.Header().Get("Location"))

	res = serve(router, httptest.NewRequest(http.MethodGet, "/api/purchase-orders/metrics", nil))
	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestPublicEndpoints(t *testing.T) {
	router := newTestRouter(t, nil)

	res := serve(router, httptest.NewRequest(http.MethodGet, "/api/purchase-orders/schema", nil))
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), `"supplier_id"`)

	res = serve(router, httptest.NewRequest(http.MethodGet, "/static/css/app.css", nil))
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "public, max-age=3600", res.Header().Get("Cache-Control"))

	res = serve(router, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	assert.Equal(t, http.StatusOK, res.Code)

	res = serve(router, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "procureflow_http_requests_total")
}

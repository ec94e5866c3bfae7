package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inspeksi/audit-dashboard/internal/audits"
	"github.com/inspeksi/audit-dashboard/internal/auth"
	dashboardhttp "github.com/inspeksi/audit-dashboard/internal/dashboard/http"
	"github.com/inspeksi/audit-dashboard/internal/observability"
	"github.com/inspeksi/audit-dashboard/internal/remote"
	"github.com/inspeksi/audit-dashboard/internal/shared"
	"github.com/inspeksi/audit-dashboard/internal/view"
	_ "github.com/inspeksi/audit-dashboard/testing"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cfg := &Config{AppEnv: "test", APIBaseURL: "http://api.invalid", DownloadRateLimit: 5}
	logger := NewLogger(cfg)
	templates, err := view.NewEngine()
	require.NoError(t, err)
	sessions := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	csrf := shared.NewCSRFManager("csrfsecret")
	store := audits.NewRedisStore(redisClient, time.Hour)
	client := remote.NewClient(remote.StaticSource(cfg.APIBaseURL), nil, logger)
	metrics := observability.NewMetrics()

	return NewRouter(RouterParams{
		Logger:           logger,
		Config:           cfg,
		Templates:        templates,
		SessionManager:   sessions,
		CSRFManager:      csrf,
		AuthHandler:      auth.NewHandler(logger, auth.NewService(client, metrics, logger), templates, sessions, csrf, store),
		DashboardHandler: dashboardhttp.NewHandler(logger, client, store, templates, csrf, dashboardhttp.Config{Metrics: metrics}),
		Metrics:          metrics,
	})
}

func TestRouterHealthAndConfig(t *testing.T) {
	router := newTestRouter(t)

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, res.Code)

	res = httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/api/config", nil))
	require.Equal(t, http.StatusOK, res.Code)
	var payload remote.ConfigPayload
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &payload))
	assert.Equal(t, "http://api.invalid", payload.BaseURL)
}

func TestRouterRedirectsAnonymousUsers(t *testing.T) {
	router := newTestRouter(t)

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/dashboard", res.Header().Get("Location"))

	res = httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/auth/login", res.Header().Get("Location"))
	assert.NotEmpty(t, res.Result().Cookies(), "session cookie must be issued")
}

func TestRouterRejectsPostWithoutCSRF(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/dashboard/reload", strings.NewReader(""))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	assert.Equal(t, http.StatusForbidden, res.Code)
}

func TestRouterServesStaticAssets(t *testing.T) {
	router := newTestRouter(t)

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/static/js/dashboard.js", nil))
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "public, max-age=3600", res.Header().Get("Cache-Control"))
	assert.Contains(t, res.Body.String(), "SEARCH_DELAY_MS")
}

func TestRouterSecurityHeaders(t *testing.T) {
	router := newTestRouter(t)

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/auth/login", nil))
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "DENY", res.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", res.Header().Get("X-Content-Type-Options"))
}

package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	auth "github.com/inspeksi/audit-dashboard/internal/auth"
	dashboardhttp "github.com/inspeksi/audit-dashboard/internal/dashboard/http"
	"github.com/inspeksi/audit-dashboard/internal/observability"
	"github.com/inspeksi/audit-dashboard/internal/platform/httpx"
	"github.com/inspeksi/audit-dashboard/internal/remote"
	"github.com/inspeksi/audit-dashboard/internal/shared"
	"github.com/inspeksi/audit-dashboard/internal/view"
	"github.com/inspeksi/audit-dashboard/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	Templates        *view.Engine
	SessionManager   *shared.SessionManager
	CSRFManager      *shared.CSRFManager
	AuthHandler      *auth.Handler
	DashboardHandler *dashboardhttp.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with dashboard defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Same payload the API clients bootstrap from.
	r.Get("/api/config", func(w http.ResponseWriter, r *http.Request) {
		if params.Config == nil || params.Config.APIBaseURL == "" {
			httpx.RespondError(w, httpx.WithDetail(httpx.ErrUnavailable, remote.MessageConfigUnavailable))
			return
		}
		httpx.JSON(w, http.StatusOK, remote.ConfigPayload{BaseURL: params.Config.APIBaseURL})
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, auth.HomePath, http.StatusSeeOther)
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)
	if params.DashboardHandler != nil {
		limit := 0
		if params.Config != nil {
			limit = params.Config.DownloadRateLimit
		}
		params.DashboardHandler.MountRoutesWithLimit(r, limit)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	return r
}

// staticCacheHandler lets browsers keep static assets for an hour.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}

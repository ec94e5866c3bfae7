package dashboardhttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/inspeksi/audit-dashboard/internal/platform/httpx"
	"github.com/inspeksi/audit-dashboard/internal/shared"
)

const downloadRateLimit = 30
const rateWindow = time.Minute

// MountRoutes mendaftarkan halaman dashboard, reload, dan unduhan dokumen.
func (h *Handler) MountRoutes(r chi.Router) {
	h.MountRoutesWithLimit(r, downloadRateLimit)
}

// MountRoutesWithLimit sama dengan MountRoutes dengan batas unduhan per menit.
func (h *Handler) MountRoutesWithLimit(r chi.Router, limit int) {
	if h == nil {
		return
	}
	if limit <= 0 {
		limit = downloadRateLimit
	}
	limiter := httprate.Limit(limit, rateWindow,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Problem(w, http.StatusTooManyRequests, "Too Many Requests", "Too many downloads, please wait a moment.")
		}),
	)
	r.Get("/dashboard", h.handleDashboard)
	r.Post("/dashboard/reload", h.handleReload)
	r.Group(func(gr chi.Router) {
		gr.Use(limiter)
		gr.Get("/dashboard/audits/{id}/download", h.handleDownload)
	})
}

func rateLimitKey(r *http.Request) (string, error) {
	if user := shared.UserFromContext(r.Context()); user != "" {
		return "user:" + user, nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}

// Package dashboardhttp menyajikan dashboard audit di browser.
package dashboardhttp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/inspeksi/audit-dashboard/internal/audits"
	"github.com/inspeksi/audit-dashboard/internal/credential"
	"github.com/inspeksi/audit-dashboard/internal/dashboard"
	"github.com/inspeksi/audit-dashboard/internal/inspection"
	"github.com/inspeksi/audit-dashboard/internal/platform/httpx"
	"github.com/inspeksi/audit-dashboard/internal/remote"
	"github.com/inspeksi/audit-dashboard/internal/shared"
	"github.com/inspeksi/audit-dashboard/internal/view"
)

const (
	loginPath             = "/auth/login"
	loadingRefreshSeconds = 2
)

// PageSizes adalah pilihan ukuran halaman pada tampilan.
var PageSizes = []int{10, 25, 50, 100}

// APIClient membuka sesi API untuk token yang tersimpan.
type APIClient interface {
	Session(store credential.Store) *remote.Session
}

// StateStore menyimpan state engine per sesi browser.
type StateStore interface {
	Load(ctx context.Context, sessionID string) (audits.State, bool, error)
	Save(ctx context.Context, sessionID string, st audits.State) error
	Delete(ctx context.Context, sessionID string) error
	TryLock(ctx context.Context, sessionID string) (func(), bool, error)
}

// Metrics mencatat pemuatan dan unduhan.
type Metrics interface {
	PageFetched()
	LoadCompleted(outcome string)
	DownloadCompleted(route, outcome string)
}

// Config mengatur Handler.
type Config struct {
	FetchSize int
	Location  *time.Location
	Metrics   Metrics
}

// Handler menangani halaman dashboard dan unduhan dokumen.
type Handler struct {
	logger    *slog.Logger
	client    APIClient
	store     StateStore
	templates *view.Engine
	csrf      *shared.CSRFManager
	metrics   Metrics
	fetchSize int
	location  *time.Location
	now       func() time.Time
}

// NewHandler membuat handler dashboard baru.
func NewHandler(logger *slog.Logger, client APIClient, store StateStore, templates *view.Engine, csrf *shared.CSRFManager, cfg Config) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Handler{
		logger:    logger,
		client:    client,
		store:     store,
		templates: templates,
		csrf:      csrf,
		metrics:   cfg.Metrics,
		fetchSize: cfg.FetchSize,
		location:  cfg.Location,
		now:       time.Now,
	}
}

type pageData struct {
	View      dashboard.View
	PageSizes []int
	LoadedAt  time.Time
	Loading   bool
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	sess, creds, ok := h.requireCredential(w, r)
	if !ok {
		return
	}
	ctrl := h.controller(creds)

	loading, err := h.ensureLoaded(r.Context(), sess.ID, ctrl)
	if err != nil && h.handleLoadError(w, r, sess, err) {
		return
	}

	data := pageData{PageSizes: PageSizes, Loading: loading}
	if loading {
		data.View = dashboard.View{Status: audits.StatusLoading, Message: dashboard.MessageLoading}
	} else {
		if h.applyQuery(ctrl, r) && err == nil {
			h.saveState(r.Context(), sess.ID, ctrl.Engine())
		}
		data.View = ctrl.View()
		data.LoadedAt = ctrl.Engine().Snapshot().LoadedAt.In(h.location)
	}

	name := "pages/dashboard.html"
	if r.URL.Query().Get("partial") == "1" {
		name = "partials/audit_table.html"
	}
	h.render(w, r, sess, http.StatusOK, name, data)
}

// handleReload aggregates the MasterList again. A failed reload keeps the
// cached list and reports the error as a flash.
func (h *Handler) handleReload(w http.ResponseWriter, r *http.Request) {
	sess, creds, ok := h.requireCredential(w, r)
	if !ok {
		return
	}
	ctrl := h.controller(creds)
	if st, found, err := h.store.Load(r.Context(), sess.ID); err == nil && found {
		ctrl.Engine().Restore(st)
	}

	release, acquired, err := h.store.TryLock(r.Context(), sess.ID)
	if err != nil {
		h.logger.Warn("acquire load lock", slog.Any("error", err))
		release, acquired = func() {}, true
	}
	if !acquired {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	defer release()

	if err := ctrl.Reload(r.Context()); err != nil {
		h.observeLoad("failed")
		if h.handleLoadError(w, r, sess, err) {
			return
		}
		sess.AddFlash(shared.FlashMessage{Kind: "error", Message: ctrl.View().Message})
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	h.observeLoad("success")
	h.saveState(r.Context(), sess.ID, ctrl.Engine())
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	creds := credential.FromSession(sess)
	if !h.tokenValid(creds) {
		httpx.RespondError(w, httpx.WithDetail(httpx.ErrUnauthorized, remote.MessageSessionExpired))
		return
	}
	ctrl := h.controller(creds)
	loading, err := h.ensureLoaded(r.Context(), sess.ID, ctrl)
	if err != nil {
		httpx.RespondError(w, h.problemFor(err))
		return
	}
	if loading {
		httpx.RespondError(w, httpx.WithDetail(httpx.ErrUnavailable, dashboard.MessageLoading))
		return
	}

	doc, err := ctrl.Download(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, h.problemFor(err))
		return
	}
	if err := httpx.Attachment(w, doc.Name, doc.ContentType, doc.Body); err != nil {
		h.logger.Warn("write document", slog.Any("error", err))
	}
}

// requireCredential redirects to the login page when no usable token exists.
func (h *Handler) requireCredential(w http.ResponseWriter, r *http.Request) (*shared.Session, credential.Store, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.handleServerError(w, "session missing", errors.New("no session in context"))
		return nil, nil, false
	}
	creds := credential.FromSession(sess)
	if _, ok := creds.Get(); !ok {
		http.Redirect(w, r, loginPath, http.StatusSeeOther)
		return nil, nil, false
	}
	if !h.tokenValid(creds) {
		h.expireSession(w, r, sess)
		return nil, nil, false
	}
	return sess, creds, true
}

// tokenValid reports whether a token is present and not past its exp claim.
// Opaque tokens are left for the API to judge.
func (h *Handler) tokenValid(creds credential.Store) bool {
	token, ok := creds.Get()
	if !ok {
		return false
	}
	if credential.Expired(token, h.now()) {
		_ = creds.Remove()
		return false
	}
	return true
}

func (h *Handler) expireSession(w http.ResponseWriter, r *http.Request, sess *shared.Session) {
	_ = credential.FromSession(sess).Remove()
	if err := h.store.Delete(r.Context(), sess.ID); err != nil {
		h.logger.Warn("drop dashboard state", slog.Any("error", err))
	}
	sess.AddFlash(shared.FlashMessage{Kind: "error", Message: remote.MessageSessionExpired})
	http.Redirect(w, r, loginPath, http.StatusSeeOther)
}

func (h *Handler) controller(creds credential.Store) *dashboard.Controller {
	api := h.client.Session(creds)
	var pages audits.PageObserver
	var downloads dashboard.DownloadObserver
	if h.metrics != nil {
		pages = h.metrics
		downloads = h.metrics
	}
	engine := audits.NewEngine(api, audits.Config{FetchSize: h.fetchSize, Observer: pages})
	return dashboard.NewController(dashboard.ControllerConfig{
		Engine:     engine,
		Downloader: api,
		Observer:   downloads,
		Location:   h.location,
		Logger:     h.logger,
	})
}

// ensureLoaded restores the cached MasterList or aggregates it under the
// per-session lock. loading is true while another request holds the lock.
func (h *Handler) ensureLoaded(ctx context.Context, sessionID string, ctrl *dashboard.Controller) (loading bool, err error) {
	st, found, err := h.store.Load(ctx, sessionID)
	if err != nil {
		h.logger.Warn("load dashboard state", slog.Any("error", err))
	}
	if found {
		ctrl.Engine().Restore(st)
		return false, nil
	}

	release, acquired, err := h.store.TryLock(ctx, sessionID)
	if err != nil {
		h.logger.Warn("acquire load lock", slog.Any("error", err))
		release, acquired = func() {}, true
	}
	if !acquired {
		return true, nil
	}
	defer release()

	if err := ctrl.Reload(ctx); err != nil {
		h.observeLoad("failed")
		return false, err
	}
	h.observeLoad("success")
	h.saveState(ctx, sessionID, ctrl.Engine())
	return false, nil
}

func (h *Handler) observeLoad(outcome string) {
	if h.metrics != nil {
		h.metrics.LoadCompleted(outcome)
	}
}

func (h *Handler) saveState(ctx context.Context, sessionID string, engine *audits.Engine) {
	if err := h.store.Save(ctx, sessionID, engine.Snapshot()); err != nil {
		h.logger.Warn("save dashboard state", slog.Any("error", err))
	}
}

// handleLoadError writes the response for errors that replace the page.
// It returns false when the dashboard should still render its status area.
func (h *Handler) handleLoadError(w http.ResponseWriter, r *http.Request, sess *shared.Session, err error) bool {
	switch {
	case errors.Is(err, remote.ErrSessionExpired):
		h.expireSession(w, r, sess)
		return true
	case errors.Is(err, remote.ErrConfig):
		data := struct{ Message string }{Message: remote.MessageConfigUnavailable}
		h.render(w, r, sess, http.StatusServiceUnavailable, "pages/fatal.html", data)
		return true
	default:
		return false
	}
}

// applyQuery applies q, size and page. A changed term or page size resets
// to page 1, so page is only honoured when both are unchanged.
func (h *Handler) applyQuery(ctrl *dashboard.Controller, r *http.Request) bool {
	query := r.URL.Query()
	engine := ctrl.Engine()
	changed := false
	reset := false

	if values, ok := query["q"]; ok {
		term := strings.TrimSpace(values[0])
		if term != engine.Term() {
			ctrl.SearchNow(term)
			changed, reset = true, true
		}
	}
	if raw := query.Get("size"); raw != "" {
		if size, err := strconv.Atoi(raw); err == nil && slices.Contains(PageSizes, size) && size != engine.PageSize() {
			ctrl.SetPageSize(size)
			changed, reset = true, true
		}
	}
	if raw := query.Get("page"); raw != "" && !reset {
		if n, err := strconv.Atoi(raw); err == nil && n != engine.CurrentPage() {
			if ctrl.GoTo(n) {
				changed = true
			}
		}
	}
	return changed
}

func (h *Handler) problemFor(err error) error {
	var routeErr *inspection.RouteNotFoundError
	var dlErr *remote.DownloadError
	switch {
	case errors.Is(err, remote.ErrSessionExpired):
		return httpx.WithDetail(httpx.ErrUnauthorized, remote.MessageSessionExpired)
	case errors.Is(err, remote.ErrConfig):
		return httpx.WithDetail(httpx.ErrUnavailable, remote.MessageConfigUnavailable)
	case errors.As(err, &routeErr):
		return httpx.WithDetail(httpx.ErrNotFound, routeErr.Error())
	case errors.Is(err, dashboard.ErrUnknownRecord):
		return httpx.WithDetail(httpx.ErrNotFound, "Audit record not found.")
	case errors.Is(err, dashboard.ErrDownloadBusy):
		return httpx.WithDetail(httpx.ErrConflict, "Download already in progress.")
	case errors.As(err, &dlErr):
		return httpx.WithDetail(httpx.ErrBadGateway, dlErr.Error())
	default:
		var fetchErr *remote.FetchError
		if errors.As(err, &fetchErr) {
			return httpx.WithDetail(httpx.ErrBadGateway, fetchErr.Message)
		}
		h.logger.Error("download", slog.Any("error", err))
		return err
	}
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, sess *shared.Session, status int, name string, data any) {
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	viewData := view.TemplateData{
		Title:       "Dashboard Audit",
		CSRFToken:   csrfToken,
		Flash:       sess.PopFlash(),
		CurrentPath: r.URL.Path,
		User:        sess.User(),
		Data:        data,
	}
	if pd, ok := data.(pageData); ok && pd.Loading {
		viewData.Refresh = loadingRefreshSeconds
	}
	if err := h.templates.RenderStatus(w, status, name, viewData); err != nil {
		h.handleServerError(w, "render "+name, err)
	}
}

func (h *Handler) handleServerError(w http.ResponseWriter, message string, err error) {
	if h.logger != nil {
		h.logger.Error(message, slog.Any("error", err))
	}
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

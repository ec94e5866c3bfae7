package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/inspeksi/audit-dashboard/internal/credential"
	"github.com/inspeksi/audit-dashboard/internal/remote"
	"github.com/inspeksi/audit-dashboard/internal/shared"
	"github.com/inspeksi/audit-dashboard/internal/view"
)

// HomePath is where a signed-in user lands.
const HomePath = "/dashboard"

// StateStore drops cached dashboard state when the signed-in user changes.
type StateStore interface {
	Delete(ctx context.Context, sessionID string) error
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	templates      *view.Engine
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	state          StateStore
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, sessions *shared.SessionManager, csrf *shared.CSRFManager, state StateStore) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		service:        service,
		templates:      templates,
		sessionManager: sessions,
		csrfManager:    csrf,
		state:          state,
		validator:      validator.New(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/login", h.showLogin)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
}

type loginForm struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}

type loginPageData struct {
	Form   loginForm
	Errors map[string]string
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if _, ok := credential.FromSession(sess).Get(); ok {
		http.Redirect(w, r, HomePath, http.StatusSeeOther)
		return
	}
	h.renderLogin(w, r, http.StatusOK, loginPageData{})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	form := loginForm{
		Username: strings.TrimSpace(r.PostFormValue("username")),
		Password: r.PostFormValue("password"),
	}
	errs := make(map[string]string)
	if err := h.validator.Struct(form); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fieldErr := range fieldErrs {
				errs[fieldErr.Field()] = fieldErr.Field() + " wajib diisi"
			}
		}
	}

	if len(errs) == 0 {
		claims, err := h.service.Authenticate(r.Context(), form.Username, form.Password, credential.FromSession(sess))
		if err == nil {
			sess.SetUser(claims.Username)
			if _, err := h.csrfManager.Rotate(sess); err != nil {
				h.logger.Warn("rotate csrf token", slog.Any("error", err))
			}
			h.dropState(r.Context(), sess.ID)
			http.Redirect(w, r, HomePath, http.StatusSeeOther)
			return
		}
		var authErr *remote.AuthError
		switch {
		case errors.As(err, &authErr):
			errs["general"] = authErr.Message
		case errors.Is(err, remote.ErrConfig):
			errs["general"] = remote.MessageConfigUnavailable
		default:
			h.logger.Error("login", slog.Any("error", err))
			errs["general"] = remote.MessageInvalidLogin
		}
	}

	form.Password = ""
	h.renderLogin(w, r, http.StatusBadRequest, loginPageData{Form: form, Errors: errs})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if err := h.service.Logout(r.Context(), credential.FromSession(sess)); err != nil {
			h.logger.Warn("clear credential", slog.Any("error", err))
		}
		h.dropState(r.Context(), sess.ID)
		h.sessionManager.Destroy(sess)
	}
	http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
}

func (h *Handler) renderLogin(w http.ResponseWriter, r *http.Request, status int, data loginPageData) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrfManager.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       "Masuk",
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	if err := h.templates.RenderStatus(w, status, "pages/login.html", viewData); err != nil {
		h.logger.Error("render login", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) dropState(ctx context.Context, sessionID string) {
	if h.state == nil {
		return
	}
	if err := h.state.Delete(ctx, sessionID); err != nil {
		h.logger.Warn("drop dashboard state", slog.Any("error", err))
	}
}

// ShowLoginForTest exposes the GET handler for tests.
func (h *Handler) ShowLoginForTest(w http.ResponseWriter, r *http.Request) {
	h.showLogin(w, r)
}

// HandleLoginForTest exposes the POST handler for tests.
func (h *Handler) HandleLoginForTest(w http.ResponseWriter, r *http.Request) {
	h.handleLogin(w, r)
}

// HandleLogoutForTest exposes the logout handler for tests.
func (h *Handler) HandleLogoutForTest(w http.ResponseWriter, r *http.Request) {
	h.handleLogout(w, r)
}

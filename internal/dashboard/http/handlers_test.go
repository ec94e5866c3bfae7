package dashboardhttp_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inspeksi/audit-dashboard/internal/audits"
	"github.com/inspeksi/audit-dashboard/internal/credential"
	"github.com/inspeksi/audit-dashboard/internal/dashboard"
	dashboardhttp "github.com/inspeksi/audit-dashboard/internal/dashboard/http"
	"github.com/inspeksi/audit-dashboard/internal/remote"
	"github.com/inspeksi/audit-dashboard/internal/shared"
	"github.com/inspeksi/audit-dashboard/internal/view"
	_ "github.com/inspeksi/audit-dashboard/testing"
)

type fakeAPI struct {
	mu             sync.Mutex
	records        []map[string]any
	listCalls      int
	listStatus     int
	downloadStatus int
	downloads      []string
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.URL.Path == "/audits/all":
		f.listCalls++
		if f.listStatus != 0 {
			w.WriteHeader(f.listStatus)
			_ = json.NewEncoder(w).Encode(map[string]any{"status": "error"})
			return
		}
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		size, _ := strconv.Atoi(r.URL.Query().Get("size"))
		from := (page - 1) * size
		if from > len(f.records) {
			from = len(f.records)
		}
		to := from + size
		if to > len(f.records) {
			to = len(f.records)
		}
		totalPages := (len(f.records) + size - 1) / size
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "success",
			"data":   f.records[from:to],
			"paging": map[string]int{"page": page, "size": size, "totalPages": totalPages, "totalData": len(f.records)},
		})
	case strings.HasPrefix(r.URL.Path, "/paa/mobileCrane/bap/download/"):
		id := strings.TrimPrefix(r.URL.Path, "/paa/mobileCrane/bap/download/")
		f.downloads = append(f.downloads, id)
		if f.downloadStatus != 0 {
			w.WriteHeader(f.downloadStatus)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write([]byte("docx-" + id))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeAPI) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

func auditRecords(n int) []map[string]any {
	base := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	out := make([]map[string]any, 0, n)
	for i := 1; i <= n; i++ {
		rec := map[string]any{
			"id":                i,
			"documentType":      "Berita Acara dan Pemeriksaan Pengujian",
			"subInspectionType": "Mobile Crane",
			"generalData":       map[string]string{"companyName": "PT Sinar Abadi"},
			"createdAt":         base.Add(time.Duration(i) * time.Hour).Format(time.RFC3339),
		}
		switch i {
		case 7:
			rec["documentType"] = "Laporan"
			rec["subInspectionType"] = "Forklift"
		case 9:
			rec["subInspectionType"] = "Tangga Darurat"
		}
		out = append(out, rec)
	}
	return out
}

type harness struct {
	router   chi.Router
	sessions *shared.SessionManager
	store    *audits.RedisStore
	api      *fakeAPI
}

func newHarness(t *testing.T, records int) *harness {
	t.Helper()
	api := &fakeAPI{records: auditRecords(records)}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	return newHarnessWithSource(t, api, remote.StaticSource(srv.URL), srv.Client())
}

func newHarnessWithSource(t *testing.T, api *fakeAPI, source remote.ConfigSource, httpClient *http.Client) *harness {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessions := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	templates, err := view.NewEngine()
	require.NoError(t, err)
	store := audits.NewRedisStore(redisClient, time.Hour)
	client := remote.NewClient(source, httpClient, nil)
	handler := dashboardhttp.NewHandler(nil, client, store, templates, shared.NewCSRFManager("csrfsecret"), dashboardhttp.Config{
		FetchSize: 30,
		Location:  time.UTC,
	})
	router := chi.NewRouter()
	handler.MountRoutes(router)
	return &harness{router: router, sessions: sessions, store: store, api: api}
}

// signIn stores token in a fresh session and returns its id.
func (h *harness) signIn(t *testing.T, token string) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := h.sessions.Load(context.Background(), req)
	require.NoError(t, err)
	sess.SetUser("inspektur")
	if token != "" {
		require.NoError(t, credential.FromSession(sess).Save(token))
	}
	require.NoError(t, h.sessions.Commit(context.Background(), httptest.NewRecorder(), req, sess))
	return sess.ID
}

func (h *harness) do(t *testing.T, method, target, sessionID string) (*httptest.ResponseRecorder, *shared.Session) {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	if sessionID != "" {
		req.AddCookie(&http.Cookie{Name: h.sessions.CookieName(), Value: sessionID})
	}
	sess, err := h.sessions.Load(context.Background(), req)
	require.NoError(t, err)
	ctx := shared.ContextWithSession(req.Context(), sess)
	req = req.WithContext(ctx)
	res := httptest.NewRecorder()
	h.router.ServeHTTP(res, req)
	require.NoError(t, h.sessions.Commit(ctx, res, req, sess))
	return res, sess
}

func TestDashboardRequiresToken(t *testing.T) {
	h := newHarness(t, 5)
	sid := h.signIn(t, "")

	res, _ := h.do(t, http.MethodGet, "/dashboard", sid)
	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/auth/login", res.Header().Get("Location"))
	assert.Zero(t, h.api.calls())
}

func TestDashboardAggregatesOncePerSession(t *testing.T) {
	h := newHarness(t, 45)
	sid := h.signIn(t, "tok")

	res, _ := h.do(t, http.MethodGet, "/dashboard", sid)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, 2, h.api.calls())
	body := res.Body.String()
	assert.Contains(t, body, "Menampilkan 1-10 dari 45 data.")
	assert.Contains(t, body, `id="search-input"`)
	assert.Contains(t, body, "BERITA ACARA DAN PEMERIKSAAN PENGUJIAN")

	res, _ = h.do(t, http.MethodGet, "/dashboard?page=2", sid)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, 2, h.api.calls(), "paging must not refetch")
	assert.Contains(t, res.Body.String(), "Menampilkan 11-20 dari 45 data.")

	// The page sticks for the next visit.
	res, _ = h.do(t, http.MethodGet, "/dashboard", sid)
	assert.Contains(t, res.Body.String(), "Menampilkan 11-20 dari 45 data.")
}

func TestDashboardSearchResetsPage(t *testing.T) {
	h := newHarness(t, 45)
	sid := h.signIn(t, "tok")
	h.do(t, http.MethodGet, "/dashboard?page=3", sid)

	res, _ := h.do(t, http.MethodGet, "/dashboard?q=forklift&page=3&partial=1", sid)
	require.Equal(t, http.StatusOK, res.Code)
	body := res.Body.String()
	assert.NotContains(t, body, "<!DOCTYPE")
	assert.Contains(t, body, `<mark class="highlight">Forklift</mark>`)
	assert.Contains(t, body, "Menampilkan 1-1 dari 1 data.")

	res, _ = h.do(t, http.MethodGet, "/dashboard?q=tidak-ada&partial=1", sid)
	body = res.Body.String()
	assert.Contains(t, body, "No results found for &#34;tidak-ada&#34;.")
	assert.NotContains(t, body, "pagination-info")
	assert.NotContains(t, body, "Menampilkan 0-0")
}

func TestDashboardPageSizeChange(t *testing.T) {
	h := newHarness(t, 45)
	sid := h.signIn(t, "tok")
	h.do(t, http.MethodGet, "/dashboard?page=2", sid)

	res, _ := h.do(t, http.MethodGet, "/dashboard?size=25&page=2", sid)
	body := res.Body.String()
	assert.Contains(t, body, "Menampilkan 1-25 dari 45 data.")
	assert.Contains(t, body, `<option value="25" selected>`)
}

func TestReloadRefetches(t *testing.T) {
	h := newHarness(t, 12)
	sid := h.signIn(t, "tok")
	h.do(t, http.MethodGet, "/dashboard?q=forklift", sid)
	require.Equal(t, 1, h.api.calls())

	res, _ := h.do(t, http.MethodPost, "/dashboard/reload", sid)
	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/dashboard", res.Header().Get("Location"))
	assert.Equal(t, 2, h.api.calls())

	// The reload cleared the search and cached the fresh list.
	res, _ = h.do(t, http.MethodGet, "/dashboard", sid)
	assert.Equal(t, 2, h.api.calls())
	assert.Contains(t, res.Body.String(), "Menampilkan 1-10 dari 12 data.")
}

func TestReloadFailureKeepsList(t *testing.T) {
	h := newHarness(t, 12)
	sid := h.signIn(t, "tok")
	h.do(t, http.MethodGet, "/dashboard", sid)

	h.api.mu.Lock()
	h.api.listStatus = http.StatusBadGateway
	h.api.mu.Unlock()
	res, sess := h.do(t, http.MethodPost, "/dashboard/reload", sid)
	assert.Equal(t, http.StatusSeeOther, res.Code)
	flash := sess.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, "Error loading data: "+remote.MessageFetchFailed, flash.Message)

	res, _ = h.do(t, http.MethodGet, "/dashboard", sid)
	assert.Contains(t, res.Body.String(), "Menampilkan 1-10 dari 12 data.")
}

func TestDashboardShowsLoadingWhileLocked(t *testing.T) {
	h := newHarness(t, 12)
	sid := h.signIn(t, "tok")
	release, ok, err := h.store.TryLock(context.Background(), sid)
	require.NoError(t, err)
	require.True(t, ok)
	defer release()

	res, _ := h.do(t, http.MethodGet, "/dashboard", sid)
	require.Equal(t, http.StatusOK, res.Code)
	body := res.Body.String()
	assert.Contains(t, body, dashboard.MessageLoading)
	assert.Contains(t, body, `http-equiv="refresh"`)
	assert.Zero(t, h.api.calls())
}

func TestDashboardFetchFailureShowsMessage(t *testing.T) {
	h := newHarness(t, 12)
	h.api.listStatus = http.StatusInternalServerError
	sid := h.signIn(t, "tok")

	res, _ := h.do(t, http.MethodGet, "/dashboard", sid)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "Error loading data: "+remote.MessageFetchFailed)

	// Nothing was cached, so the next visit tries again.
	h.api.mu.Lock()
	h.api.listStatus = 0
	h.api.mu.Unlock()
	res, _ = h.do(t, http.MethodGet, "/dashboard", sid)
	assert.Contains(t, res.Body.String(), "Menampilkan 1-10 dari 12 data.")
}

func TestDashboardUnauthorizedExpiresSession(t *testing.T) {
	h := newHarness(t, 12)
	h.api.listStatus = http.StatusUnauthorized
	sid := h.signIn(t, "tok")

	res, sess := h.do(t, http.MethodGet, "/dashboard", sid)
	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/auth/login", res.Header().Get("Location"))
	_, ok := credential.FromSession(sess).Get()
	assert.False(t, ok, "token must be removed")
	flash := sess.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, remote.MessageSessionExpired, flash.Message)
}

func TestDashboardExpiredTokenSkipsAPI(t *testing.T) {
	h := newHarness(t, 12)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "inspektur",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}).SignedString([]byte("key"))
	require.NoError(t, err)
	sid := h.signIn(t, token)

	res, sess := h.do(t, http.MethodGet, "/dashboard", sid)
	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Zero(t, h.api.calls())
	_, ok := credential.FromSession(sess).Get()
	assert.False(t, ok)
}

func TestDashboardConfigErrorIsFatal(t *testing.T) {
	h := newHarnessWithSource(t, &fakeAPI{}, remote.StaticSource(""), nil)
	sid := h.signIn(t, "tok")

	res, _ := h.do(t, http.MethodGet, "/dashboard", sid)
	assert.Equal(t, http.StatusServiceUnavailable, res.Code)
	assert.Contains(t, res.Body.String(), remote.MessageConfigUnavailable)

	res, _ = h.do(t, http.MethodGet, "/dashboard/audits/1/download", sid)
	assert.Equal(t, http.StatusServiceUnavailable, res.Code)
}

func TestDownloadServesDocument(t *testing.T) {
	h := newHarness(t, 20)
	sid := h.signIn(t, "tok")

	res, _ := h.do(t, http.MethodGet, "/dashboard/audits/17/download", sid)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "docx-17", res.Body.String())
	assert.Contains(t, res.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, res.Header().Get("Content-Disposition"), "BAP-MOBILE_CRANE-PT_SINAR_ABADI-17.docx")
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.wordprocessingml.document", res.Header().Get("Content-Type"))
	assert.Equal(t, "no-store", res.Header().Get("Cache-Control"))
	assert.Equal(t, []string{"17"}, h.api.downloads)
}

func TestDownloadErrors(t *testing.T) {
	cases := []struct {
		name     string
		id       string
		upstream int
		status   int
		detail   string
	}{
		{name: "route not found", id: "9", status: http.StatusNotFound, detail: "Download handler not found for: Tangga Darurat"},
		{name: "unknown record", id: "999", status: http.StatusNotFound, detail: "Audit record not found."},
		{name: "upstream failure", id: "3", upstream: http.StatusInternalServerError, status: http.StatusBadGateway, detail: "Download failed. Status: 500"},
		{name: "upstream unauthorized", id: "3", upstream: http.StatusUnauthorized, status: http.StatusUnauthorized, detail: remote.MessageSessionExpired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, 12)
			h.api.downloadStatus = tc.upstream
			sid := h.signIn(t, "tok")

			res, _ := h.do(t, http.MethodGet, fmt.Sprintf("/dashboard/audits/%s/download", tc.id), sid)
			assert.Equal(t, tc.status, res.Code)
			var problem map[string]any
			require.NoError(t, json.Unmarshal(res.Body.Bytes(), &problem))
			assert.Contains(t, problem["detail"], tc.detail)
		})
	}
}

func TestDownloadWithoutTokenIsUnauthorized(t *testing.T) {
	h := newHarness(t, 12)
	sid := h.signIn(t, "")

	res, _ := h.do(t, http.MethodGet, "/dashboard/audits/1/download", sid)
	assert.Equal(t, http.StatusUnauthorized, res.Code)
	assert.Zero(t, h.api.calls())
}

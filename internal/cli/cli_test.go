package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inspeksi/audit-dashboard/internal/credential"
)

type fakeAPI struct {
	mu         sync.Mutex
	total      int
	listStatus int
	logouts    int
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.URL.Path == "/auth/login":
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "rahasia" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]any{"status": "fail", "message": "Username atau password salah"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "success", "data": map[string]string{"token": "tok-" + body["username"]}})
	case r.URL.Path == "/auth/logout":
		f.logouts++
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "success"})
	case r.URL.Path == "/audits/all":
		if r.Header.Get("Authorization") == "" || f.listStatus == http.StatusUnauthorized {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		size, _ := strconv.Atoi(r.URL.Query().Get("size"))
		records := make([]map[string]any, 0, size)
		for i := (page-1)*size + 1; i <= page*size && i <= f.total; i++ {
			rec := map[string]any{
				"id":                i,
				"documentType":      "Berita Acara dan Pemeriksaan Pengujian",
				"subInspectionType": "Mobile Crane",
				"generalData":       map[string]string{"companyName": "PT Sinar Abadi"},
				"createdAt":         time.Date(2024, 1, 2, i, 0, 0, 0, time.UTC).Format(time.RFC3339),
			}
			if i == 7 {
				rec["documentType"] = "Laporan"
				rec["subInspectionType"] = "Forklift"
			}
			records = append(records, rec)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "success", "data": records})
	case strings.HasPrefix(r.URL.Path, "/paa/"):
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write([]byte("docx-" + r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type fixture struct {
	api         *fakeAPI
	baseURL     string
	credentials string
	dir         string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	api := &fakeAPI{total: 12}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	dir := t.TempDir()
	return &fixture{api: api, baseURL: srv.URL, credentials: filepath.Join(dir, "credentials.yaml"), dir: dir}
}

func (f *fixture) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--base-url", f.baseURL, "--credentials", f.credentials}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (f *fixture) login(t *testing.T) {
	t.Helper()
	_, err := f.run(t, "rahasia\n", "login", "-u", "inspektur")
	require.NoError(t, err)
}

func TestLoginStoresToken(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "rahasia\n", "login", "--username", "inspektur")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as inspektur")

	token, ok := credential.NewFileStore(f.credentials).Get()
	require.True(t, ok)
	assert.Equal(t, "tok-inspektur", token)
	info, err := os.Stat(f.credentials)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoginRejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.run(t, "salah\n", "login", "-u", "inspektur")
	require.Error(t, err)
	assert.Equal(t, "Username atau password salah", err.Error())
	_, ok := credential.NewFileStore(f.credentials).Get()
	assert.False(t, ok)
}

func TestListRequiresLogin(t *testing.T) {
	f := newFixture(t)

	_, err := f.run(t, "", "list")
	assert.ErrorIs(t, err, errNotLoggedIn)
}

func TestListPrintsPage(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	out, err := f.run(t, "", "list", "--page", "2", "--size", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "Menampilkan 6-10 dari 12 data.")
	assert.Contains(t, out, "Halaman 2 dari 3.")
	assert.Contains(t, out, "BERITA ACARA DAN PEMERIKSAAN PENGUJIAN")
}

func TestListSearchJSON(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	out, err := f.run(t, "", "--json", "list", "--search", "forklift")
	require.NoError(t, err)
	var payload viewPayload
	require.NoError(t, json.Unmarshal([]byte(out), &payload))
	assert.Equal(t, "ready", payload.Status)
	assert.Equal(t, "forklift", payload.Search)
	assert.Equal(t, 1, payload.TotalItems)
	require.Len(t, payload.Rows, 1)
	assert.Equal(t, "7", payload.Rows[0].ID)
	assert.Equal(t, "LAPORAN", payload.Rows[0].DocumentType)
}

func TestListExpiredSessionForgetsToken(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	f.api.mu.Lock()
	f.api.listStatus = http.StatusUnauthorized
	f.api.mu.Unlock()

	_, err := f.run(t, "", "list")
	require.Error(t, err)
	assert.ErrorIs(t, err, errNotLoggedIn)
	assert.Contains(t, err.Error(), "Session expired")
	_, ok := credential.NewFileStore(f.credentials).Get()
	assert.False(t, ok)
}

func TestDownloadWritesDocument(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	out, err := f.run(t, "", "download", "3", "--output", f.dir)
	require.NoError(t, err)
	path := filepath.Join(f.dir, "BAP-MOBILE_CRANE-PT_SINAR_ABADI-3.docx")
	assert.Contains(t, out, "Saved "+path)
	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "docx-3", string(body))

	_, err = f.run(t, "", "download", "99")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "audit 99 not found")
}

func TestBrowseSearchAndPaging(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	out, err := f.run(t, "/forklift\nn\ns 5\ng 3\nbogus\nq\n", "browse")
	require.NoError(t, err)
	assert.Contains(t, out, "Menampilkan 1-10 dari 12 data.")
	assert.Contains(t, out, "Menampilkan 1-1 dari 1 data.")
	assert.Contains(t, out, "Already on the last page.")
	assert.Contains(t, out, `Cannot go to page "3".`)
	assert.Contains(t, out, `Unknown command "bogus"`)
}

func TestLogoutForgetsToken(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	out, err := f.run(t, "", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out")
	assert.Equal(t, 1, f.api.logouts)
	_, ok := credential.NewFileStore(f.credentials).Get()
	assert.False(t, ok)
}

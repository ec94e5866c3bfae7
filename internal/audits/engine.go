// Package audits memegang daftar audit sesi: agregasi seluruh halaman dari
// API, pencarian, dan pagination di sisi klien.
package audits

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/inspeksi/audit-dashboard/internal/inspection"
	"github.com/inspeksi/audit-dashboard/internal/remote"
	"github.com/inspeksi/audit-dashboard/internal/shared"
)

const (
	// FetchPageSize adalah ukuran halaman saat menarik seluruh data dari server.
	FetchPageSize = 30
	// DefaultPageSize adalah ukuran halaman tampilan awal.
	DefaultPageSize = shared.DefaultPerPage
)

// Lister mengambil satu halaman audit dari server.
type Lister interface {
	ListAll(ctx context.Context, page, size int) (remote.ListResult, error)
}

// PageObserver menerima notifikasi setiap halaman server berhasil diambil.
type PageObserver interface {
	PageFetched()
}

// Status menggambarkan keadaan daftar untuk keperluan tampilan.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusFailed
	StatusNoData
	StatusNoResults
	StatusReady
)

var statusNames = [...]string{
	StatusIdle:      "idle",
	StatusLoading:   "loading",
	StatusFailed:    "failed",
	StatusNoData:    "no_data",
	StatusNoResults: "no_results",
	StatusReady:     "ready",
}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "unknown"
	}
	return statusNames[s]
}

// Config mengatur Engine.
type Config struct {
	FetchSize int
	PageSize  int
	Observer  PageObserver
	Now       func() time.Time
}

// Engine memiliki MasterList, DisplayList, dan posisi halaman. Semua mutasi
// lewat LoadAll, ApplyFilter, SetPageSize, dan navigasi halaman.
type Engine struct {
	lister    Lister
	fetchSize int
	observer  PageObserver
	now       func() time.Time

	mu       sync.Mutex
	master   []inspection.Record
	display  []inspection.Record
	term     string
	pageSize int
	page     int
	loaded   bool
	loading  bool
	loadedAt time.Time
	lastErr  error
}

// NewEngine membuat engine baru.
func NewEngine(lister Lister, cfg Config) *Engine {
	if cfg.FetchSize <= 0 {
		cfg.FetchSize = FetchPageSize
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Engine{
		lister:    lister,
		fetchSize: cfg.FetchSize,
		observer:  cfg.Observer,
		now:       cfg.Now,
		pageSize:  cfg.PageSize,
		page:      1,
	}
}

// LoadAll menarik seluruh halaman secara berurutan lalu menerbitkan
// MasterList. Panggilan saat pemuatan lain berjalan tidak melakukan apa pun.
// Kegagalan pertama menghentikan agregasi dan data parsial dibuang.
func (e *Engine) LoadAll(ctx context.Context) error {
	e.mu.Lock()
	if e.loading {
		e.mu.Unlock()
		return nil
	}
	e.loading = true
	e.lastErr = nil
	e.mu.Unlock()

	records, err := e.fetchAll(ctx)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.loading = false
	if err != nil {
		e.lastErr = err
		return err
	}
	SortNewestFirst(records)
	e.master = records
	e.display = records
	e.term = ""
	e.page = 1
	e.loaded = true
	e.loadedAt = e.now()
	return nil
}

func (e *Engine) fetchAll(ctx context.Context) ([]inspection.Record, error) {
	var all []inspection.Record
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := e.lister.ListAll(ctx, page, e.fetchSize)
		if err != nil {
			return nil, err
		}
		if e.observer != nil {
			e.observer.PageFetched()
		}
		all = append(all, res.Records...)
		if len(res.Records) < e.fetchSize {
			return all, nil
		}
		// totalPages absent or zero: rely on the short page signal only.
		if res.Paging.TotalPages > 0 && page >= res.Paging.TotalPages {
			return all, nil
		}
	}
}

// ApplyFilter menghitung ulang DisplayList dari term dan kembali ke halaman 1.
func (e *Engine) ApplyFilter(term string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.term = normalizeTerm(term)
	e.display = Filter(e.master, e.term)
	e.page = 1
}

// SetPageSize mengganti ukuran halaman dan selalu kembali ke halaman 1.
func (e *Engine) SetPageSize(size int) {
	if size <= 0 {
		size = DefaultPageSize
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pageSize = size
	e.page = 1
}

// GoTo pindah ke halaman n bila ada. Nilai di luar batas diabaikan.
func (e *Engine) GoTo(n int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.goTo(n)
}

// Next pindah ke halaman berikutnya bila ada.
func (e *Engine) Next() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.goTo(e.page + 1)
}

// Prev pindah ke halaman sebelumnya bila ada.
func (e *Engine) Prev() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.goTo(e.page - 1)
}

func (e *Engine) goTo(n int) bool {
	total := Paginate(e.display, e.pageSize, e.page).TotalPages
	if n < 1 || n > total {
		return false
	}
	e.page = n
	return true
}

// Page mengembalikan halaman aktif dari DisplayList.
func (e *Engine) Page() Page {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Paginate(e.display, e.pageSize, e.page)
}

// CurrentPage mengembalikan nomor halaman aktif.
func (e *Engine) CurrentPage() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.page
}

// PageSize mengembalikan ukuran halaman aktif.
func (e *Engine) PageSize() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pageSize
}

// Term mengembalikan kata pencarian aktif.
func (e *Engine) Term() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.term
}

// Master mengembalikan MasterList. Slice tidak boleh diubah pemanggil.
func (e *Engine) Master() []inspection.Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.master
}

// Display mengembalikan DisplayList. Slice tidak boleh diubah pemanggil.
func (e *Engine) Display() []inspection.Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.display
}

// Loaded melaporkan apakah MasterList sudah pernah diterbitkan.
func (e *Engine) Loaded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loaded
}

// Err mengembalikan kegagalan pemuatan terakhir.
func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// Find mencari record di MasterList berdasarkan id.
func (e *Engine) Find(id inspection.RecordID) (inspection.Record, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, rec := range e.master {
		if rec.ID == id {
			return rec, true
		}
	}
	return inspection.Record{}, false
}

// Status menentukan pesan status yang perlu ditampilkan.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch {
	case e.loading:
		return StatusLoading
	case e.lastErr != nil:
		return StatusFailed
	case !e.loaded:
		return StatusIdle
	case len(e.master) == 0 && e.term == "":
		return StatusNoData
	case len(e.display) == 0:
		return StatusNoResults
	default:
		return StatusReady
	}
}

// State adalah bentuk engine yang dapat disimpan di antara request.
type State struct {
	Records  []inspection.Record `json:"records"`
	Term     string              `json:"term"`
	PageSize int                 `json:"page_size"`
	Page     int                 `json:"page"`
	LoadedAt time.Time           `json:"loaded_at"`
}

// Snapshot mengekspor state engine yang sudah dimuat.
func (e *Engine) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return State{
		Records:  e.master,
		Term:     e.term,
		PageSize: e.pageSize,
		Page:     e.page,
		LoadedAt: e.loadedAt,
	}
}

// Restore memuat state tersimpan tanpa mengubah posisi halaman yang valid.
func (e *Engine) Restore(st State) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.master = st.Records
	e.term = normalizeTerm(st.Term)
	e.display = Filter(e.master, e.term)
	e.pageSize = st.PageSize
	if e.pageSize <= 0 {
		e.pageSize = DefaultPageSize
	}
	e.page = Paginate(e.display, e.pageSize, st.Page).Number
	e.loaded = true
	e.loading = false
	e.lastErr = nil
	e.loadedAt = st.LoadedAt
}

func normalizeTerm(term string) string {
	return strings.TrimSpace(term)
}

// Package dashboard menyusun tampilan daftar audit dari engine agregasi dan
// menangani aksi pengguna: pencarian, ukuran halaman, navigasi, dan unduhan.
// Package ini tidak bergantung pada antarmuka tertentu; web dan terminal
// memakai Controller yang sama.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"sync"
	"time"

	"github.com/inspeksi/audit-dashboard/internal/audits"
	"github.com/inspeksi/audit-dashboard/internal/inspection"
	"github.com/inspeksi/audit-dashboard/internal/remote"
)

// Pesan status daftar.
const (
	MessageLoading   = "Loading all audit data, please wait..."
	MessageNoData    = "No audit data available."
	messageNoResults = "No results found for \"%s\"."
	messageLoadError = "Error loading data: %s"
)

// Outcome unduhan yang dilaporkan ke DownloadObserver.
const (
	OutcomeSuccess   = "success"
	OutcomeExpired   = "expired"
	OutcomeFailed    = "failed"
	OutcomeNoHandler = "no_handler"

	// RouteUnknown menggantikan label rute bila tidak ada handler, karena
	// teks jenis inspeksi berasal dari server dan tidak terbatas.
	RouteUnknown = "unknown"
)

var (
	// ErrUnknownRecord dikembalikan bila id tidak ada di MasterList.
	ErrUnknownRecord = errors.New("dashboard: record not found")
	// ErrDownloadBusy dikembalikan bila baris yang sama sedang diunduh.
	ErrDownloadBusy = errors.New("dashboard: download already in progress")
)

// Downloader mengambil isi dokumen dari route.
type Downloader interface {
	DownloadDocument(ctx context.Context, route inspection.Route, id string) ([]byte, error)
}

// DownloadObserver menerima hasil setiap unduhan.
type DownloadObserver interface {
	DownloadCompleted(route, outcome string)
}

// ControllerConfig mengatur Controller.
type ControllerConfig struct {
	Engine     *audits.Engine
	Downloader Downloader
	Observer   DownloadObserver
	// OnChange dipanggil setelah setiap perubahan tampilan, termasuk dari
	// pencarian yang ditunda.
	OnChange    func(View)
	SearchDelay time.Duration
	Location    *time.Location
	Logger      *slog.Logger
}

// Controller menghubungkan engine dengan antarmuka pengguna.
type Controller struct {
	engine     *audits.Engine
	downloader Downloader
	observer   DownloadObserver
	onChange   func(View)
	location   *time.Location
	logger     *slog.Logger
	debouncer  *Debouncer

	mu   sync.Mutex
	busy map[inspection.RecordID]struct{}
}

// NewController membuat controller baru.
func NewController(cfg ControllerConfig) *Controller {
	if cfg.Engine == nil {
		cfg.Engine = audits.NewEngine(nil, audits.Config{})
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Controller{
		engine:     cfg.Engine,
		downloader: cfg.Downloader,
		observer:   cfg.Observer,
		onChange:   cfg.OnChange,
		location:   cfg.Location,
		logger:     cfg.Logger,
		debouncer:  NewDebouncer(cfg.SearchDelay),
		busy:       make(map[inspection.RecordID]struct{}),
	}
}

// Engine mengembalikan engine yang dikelola controller.
func (c *Controller) Engine() *audits.Engine {
	return c.engine
}

// Load memuat MasterList bila belum pernah dimuat.
func (c *Controller) Load(ctx context.Context) error {
	if c.engine.Loaded() {
		c.notify()
		return nil
	}
	return c.Reload(ctx)
}

// Reload selalu memuat ulang seluruh data dan mengosongkan pencarian.
func (c *Controller) Reload(ctx context.Context) error {
	c.debouncer.Cancel()
	err := c.engine.LoadAll(ctx)
	if err != nil {
		c.logger.Error("load audits", slog.Any("error", err))
	}
	c.notify()
	return err
}

// Search menjadwalkan pencarian. Ketikan beruntun dalam jeda hanya
// menghasilkan satu penyaringan.
func (c *Controller) Search(term string) {
	c.debouncer.Trigger(func() {
		c.engine.ApplyFilter(term)
		c.notify()
	})
}

// Flush menjalankan pencarian yang masih tertunda saat itu juga.
func (c *Controller) Flush() {
	c.debouncer.Flush()
}

// SearchNow langsung menyaring dan membatalkan pencarian tertunda.
func (c *Controller) SearchNow(term string) {
	c.debouncer.Cancel()
	c.engine.ApplyFilter(term)
	c.notify()
}

// SetPageSize mengganti ukuran halaman.
func (c *Controller) SetPageSize(size int) {
	c.engine.SetPageSize(size)
	c.notify()
}

// Next pindah ke halaman berikutnya.
func (c *Controller) Next() bool {
	return c.move(c.engine.Next())
}

// Prev pindah ke halaman sebelumnya.
func (c *Controller) Prev() bool {
	return c.move(c.engine.Prev())
}

// GoTo pindah ke halaman n.
func (c *Controller) GoTo(n int) bool {
	return c.move(c.engine.GoTo(n))
}

func (c *Controller) move(moved bool) bool {
	if moved {
		c.notify()
	}
	return moved
}

// Close membatalkan pencarian yang belum berjalan.
func (c *Controller) Close() {
	c.debouncer.Cancel()
}

func (c *Controller) notify() {
	if c.onChange != nil {
		c.onChange(c.View())
	}
}

// Document adalah hasil unduhan yang siap disimpan atau dikirim.
type Document struct {
	Name        string
	ContentType string
	Body        []byte
}

// Download mengunduh dokumen untuk record id. Baris ditandai sibuk selama
// unduhan dan kegagalan tidak mengubah MasterList.
func (c *Controller) Download(ctx context.Context, id string) (Document, error) {
	rec, ok := c.engine.Find(inspection.RecordID(id))
	if !ok {
		return Document{}, fmt.Errorf("%w: %s", ErrUnknownRecord, id)
	}
	route, err := inspection.Resolve(rec.DisplaySubInspectionType(), rec.DisplayDocumentType())
	if err != nil {
		c.observe(RouteUnknown, OutcomeNoHandler)
		return Document{}, err
	}
	if c.downloader == nil {
		return Document{}, &remote.DownloadError{Err: errors.New("no downloader configured")}
	}
	if !c.markBusy(rec.ID) {
		return Document{}, ErrDownloadBusy
	}
	c.notify()
	defer func() {
		c.clearBusy(rec.ID)
		c.notify()
	}()

	body, err := c.downloader.DownloadDocument(ctx, route, rec.ID.String())
	if err != nil {
		outcome := OutcomeFailed
		if errors.Is(err, remote.ErrSessionExpired) {
			outcome = OutcomeExpired
		}
		c.observe(route.String(), outcome)
		c.logger.Warn("download document",
			slog.String("id", rec.ID.String()),
			slog.String("route", route.String()),
			slog.Any("error", err))
		return Document{}, err
	}
	c.observe(route.String(), OutcomeSuccess)
	return Document{
		Name:        inspection.FileName(rec) + inspection.DocumentExtension,
		ContentType: inspection.DocumentContentType,
		Body:        body,
	}, nil
}

func (c *Controller) observe(route, outcome string) {
	if c.observer != nil {
		c.observer.DownloadCompleted(route, outcome)
	}
}

func (c *Controller) markBusy(id inspection.RecordID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.busy[id]; ok {
		return false
	}
	c.busy[id] = struct{}{}
	return true
}

func (c *Controller) clearBusy(id inspection.RecordID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.busy, id)
}

// Busy melaporkan apakah baris id sedang diunduh.
func (c *Controller) Busy(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.busy[inspection.RecordID(id)]
	return ok
}

// Row adalah satu baris tabel yang siap ditampilkan.
type Row struct {
	Number            int
	ID                string
	DocumentType      string
	SubInspectionType string
	CompanyName       string
	CreatedAt         string
	// Versi ber-highlight, sudah di-escape.
	DocumentTypeHTML      template.HTML
	SubInspectionTypeHTML template.HTML
	CompanyNameHTML       template.HTML
	Busy                  bool
}

// View adalah keadaan tampilan lengkap.
type View struct {
	Status     audits.Status
	Message    string
	Term       string
	Rows       []Row
	Page       int
	PageSize   int
	TotalPages int
	TotalItems int
	HasPrev    bool
	HasNext    bool
	Info       string
}

// Fatal melaporkan apakah tampilan harus diganti pesan kesalahan penuh.
func (v View) Fatal() bool {
	return v.Status == audits.StatusFailed && v.Message == remote.MessageConfigUnavailable
}

// View menyusun tampilan dari halaman aktif.
func (c *Controller) View() View {
	page := c.engine.Page()
	term := c.engine.Term()
	status := c.engine.Status()
	view := View{
		Status:     status,
		Message:    c.statusMessage(status, term),
		Term:       term,
		Page:       page.Number,
		PageSize:   page.Size,
		TotalPages: page.TotalPages,
		TotalItems: page.TotalItems,
		HasPrev:    page.HasPrev,
		HasNext:    page.HasNext,
		Info:       PaginationInfo(page.Start, page.End, page.TotalItems),
	}
	view.Rows = make([]Row, 0, len(page.Records))
	for i, rec := range page.Records {
		docType := Upper(rec.DisplayDocumentType())
		sub := rec.DisplaySubInspectionType()
		company := rec.CompanyName()
		view.Rows = append(view.Rows, Row{
			Number:                page.Start + i,
			ID:                    rec.ID.String(),
			DocumentType:          docType,
			SubInspectionType:     sub,
			CompanyName:           company,
			CreatedAt:             FormatDate(rec.CreatedAt.Time, c.location),
			DocumentTypeHTML:      Highlight(docType, term),
			SubInspectionTypeHTML: Highlight(sub, term),
			CompanyNameHTML:       Highlight(company, term),
			Busy:                  c.Busy(rec.ID.String()),
		})
	}
	return view
}

func (c *Controller) statusMessage(status audits.Status, term string) string {
	switch status {
	case audits.StatusLoading:
		return MessageLoading
	case audits.StatusFailed:
		return c.failureMessage(c.engine.Err())
	case audits.StatusNoData:
		return MessageNoData
	case audits.StatusNoResults:
		return fmt.Sprintf(messageNoResults, term)
	default:
		return ""
	}
}

func (c *Controller) failureMessage(err error) string {
	var fetchErr *remote.FetchError
	switch {
	case errors.Is(err, remote.ErrConfig):
		return remote.MessageConfigUnavailable
	case errors.Is(err, remote.ErrSessionExpired):
		return remote.MessageSessionExpired
	case errors.As(err, &fetchErr):
		return fmt.Sprintf(messageLoadError, fetchErr.Message)
	case err != nil:
		return fmt.Sprintf(messageLoadError, err.Error())
	default:
		return ""
	}
}

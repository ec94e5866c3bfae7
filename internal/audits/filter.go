package audits

import (
	"sort"
	"strings"

	"github.com/inspeksi/audit-dashboard/internal/inspection"
	"github.com/inspeksi/audit-dashboard/internal/shared"
)

// Matches melaporkan apakah record mengandung term pada nama perusahaan,
// jenis dokumen, atau sub jenis inspeksi. term harus sudah huruf kecil.
func Matches(rec inspection.Record, term string) bool {
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(rec.SearchCompanyName()), term) ||
		strings.Contains(strings.ToLower(rec.DocumentType), term) ||
		strings.Contains(strings.ToLower(rec.SubInspectionType), term)
}

// Filter mengembalikan subsequence master yang cocok dengan term.
// Term kosong mengembalikan master apa adanya.
func Filter(master []inspection.Record, term string) []inspection.Record {
	needle := strings.ToLower(strings.TrimSpace(term))
	if needle == "" {
		return master
	}
	result := make([]inspection.Record, 0, len(master))
	for _, rec := range master {
		if Matches(rec, needle) {
			result = append(result, rec)
		}
	}
	return result
}

// SortNewestFirst mengurutkan record menurun berdasarkan createdAt.
// Urutan record dengan waktu sama tetap dipertahankan.
func SortNewestFirst(records []inspection.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt.Time)
	})
}

// Page adalah potongan DisplayList beserta informasi batasnya.
type Page struct {
	Records    []inspection.Record
	Number     int
	Size       int
	TotalItems int
	TotalPages int
	// Start dan End adalah nomor item 1-based; keduanya 0 bila kosong.
	Start   int
	End     int
	HasPrev bool
	HasNext bool
}

// Paginate memotong list menjadi satu halaman. Nomor halaman di luar batas
// dijepit ke halaman pertama atau terakhir.
func Paginate(list []inspection.Record, size, number int) Page {
	p := shared.NewPagination(number, size, len(list))
	page := Page{
		Records:    list[p.Offset():p.Limit()],
		Number:     p.Page,
		Size:       p.PerPage,
		TotalItems: p.Total,
		TotalPages: p.TotalPages,
		HasPrev:    p.HasPrev(),
		HasNext:    p.HasNext(),
	}
	if p.Total > 0 {
		page.Start = p.Offset() + 1
		page.End = p.Limit()
	}
	return page
}

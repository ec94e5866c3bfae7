package dashboard

import (
	"strconv"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// EmptyDate ditampilkan untuk record tanpa tanggal.
const EmptyDate = "-"

var monthNames = [...]string{
	"Januari", "Februari", "Maret", "April", "Mei", "Juni",
	"Juli", "Agustus", "September", "Oktober", "November", "Desember",
}

// DefaultTimezone dipakai bila zona waktu tampilan tidak diatur.
const DefaultTimezone = "Asia/Jakarta"

// LoadLocation memuat zona waktu tampilan. Sistem tanpa tzdata jatuh ke WIB.
func LoadLocation(name string) *time.Location {
	if name == "" {
		name = DefaultTimezone
	}
	if loc, err := time.LoadLocation(name); err == nil {
		return loc
	}
	return time.FixedZone("WIB", 7*60*60)
}

// FormatDate menulis tanggal dengan gaya id-ID, misalnya "2 Januari 2024".
func FormatDate(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return EmptyDate
	}
	if loc != nil {
		t = t.In(loc)
	}
	return strconv.Itoa(t.Day()) + " " + monthNames[t.Month()-1] + " " + strconv.Itoa(t.Year())
}

// Upper mengubah teks menjadi huruf besar dengan aturan bahasa Indonesia.
func Upper(s string) string {
	// Caser menyimpan state, jadi dibuat per panggilan.
	return cases.Upper(language.Indonesian).String(s)
}

// PaginationInfo menulis "Menampilkan {start}-{end} dari {total} data."
// dengan pemisah ribuan id-ID.
func PaginationInfo(start, end, total int) string {
	p := message.NewPrinter(language.Indonesian)
	return p.Sprintf("Menampilkan %d-%d dari %d data.", start, end, total)
}

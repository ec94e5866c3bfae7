package inspection

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// NotAvailable ditampilkan saat sebuah field kosong.
const NotAvailable = "N/A"

// RecordID adalah identitas dokumen audit. Server dapat mengirim string maupun angka.
type RecordID string

// UnmarshalJSON menerima id berbentuk string atau angka.
func (id *RecordID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = RecordID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("inspection: invalid record id %s", data)
	}
	*id = RecordID(n.String())
	return nil
}

func (id RecordID) String() string {
	return string(id)
}

// Party menampung nama pemilik atau perusahaan pada data umum maupun data pemilik.
type Party struct {
	OwnerName   string `json:"ownerName,omitempty"`
	CompanyName string `json:"companyName,omitempty"`
}

// Record mewakili satu bundel dokumen inspeksi dari API.
type Record struct {
	ID                RecordID  `json:"id"`
	DocumentType      string    `json:"documentType"`
	SubInspectionType string    `json:"subInspectionType"`
	GeneralData       *Party    `json:"generalData,omitempty"`
	OwnerData         *Party    `json:"ownerData,omitempty"`
	CreatedAt         Timestamp `json:"createdAt"`
}

// CompanyName mengembalikan nama perusahaan sesuai prioritas, atau "N/A".
func (r Record) CompanyName() string {
	if name := r.companyName(); name != "" {
		return name
	}
	return NotAvailable
}

// SearchCompanyName sama dengan CompanyName tetapi kosong bila tidak ada nama.
func (r Record) SearchCompanyName() string {
	return r.companyName()
}

func (r Record) companyName() string {
	if r.GeneralData != nil {
		if r.GeneralData.OwnerName != "" {
			return r.GeneralData.OwnerName
		}
		if r.GeneralData.CompanyName != "" {
			return r.GeneralData.CompanyName
		}
	}
	if r.OwnerData != nil && r.OwnerData.CompanyName != "" {
		return r.OwnerData.CompanyName
	}
	return ""
}

// DisplayDocumentType mengembalikan jenis dokumen atau "N/A".
func (r Record) DisplayDocumentType() string {
	if r.DocumentType == "" {
		return NotAvailable
	}
	return r.DocumentType
}

// DisplaySubInspectionType mengembalikan sub jenis inspeksi atau "N/A".
func (r Record) DisplaySubInspectionType() string {
	if r.SubInspectionType == "" {
		return NotAvailable
	}
	return r.SubInspectionType
}

// Timestamp membungkus time.Time dengan parsing yang toleran terhadap format server.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// UnmarshalJSON menerima string tanggal atau epoch milidetik. Nilai yang tidak
// dikenali menjadi waktu nol.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	t.Time = time.Time{}
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] != '"' {
		ms, err := strconv.ParseInt(string(data), 10, 64)
		if err != nil {
			return nil
		}
		t.Time = time.UnixMilli(ms).UTC()
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	raw = strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return nil
}

// MarshalJSON menulis RFC 3339, atau null untuk waktu nol.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

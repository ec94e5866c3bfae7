package inspection

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DocumentExtension is appended to every downloaded document.
const DocumentExtension = ".docx"

// DocumentContentType is the media type of downloaded documents.
const DocumentContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

var whitespaceRun = regexp.MustCompile(`\s+`)

// FileName builds "{BAP|LAPORAN}-{SUB}-{COMPANY}-{id}" without extension.
func FileName(r Record) string {
	prefix := "LAPORAN"
	if strings.Contains(strings.ToLower(r.DisplayDocumentType()), "berita acara") {
		prefix = "BAP"
	}
	return prefix + "-" + fileNamePart(r.DisplaySubInspectionType()) + "-" + fileNamePart(r.CompanyName()) + "-" + r.ID.String()
}

func fileNamePart(value string) string {
	upper := cases.Upper(language.Und).String(value)
	return whitespaceRun.ReplaceAllString(upper, "_")
}

package dashboard

import (
	"html"
	"html/template"
	"regexp"
	"strings"
)

// Highlight membungkus setiap kemunculan term di text dengan <mark>.
// Pencocokan literal dan tidak peka huruf besar. Hasil sudah di-escape.
func Highlight(text, term string) template.HTML {
	term = strings.TrimSpace(term)
	if term == "" || text == "" {
		return template.HTML(html.EscapeString(text))
	}
	pattern := regexp.MustCompile("(?i)" + regexp.QuoteMeta(term))
	matches := pattern.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return template.HTML(html.EscapeString(text))
	}
	var b strings.Builder
	last := 0
	for _, m := range matches {
		b.WriteString(html.EscapeString(text[last:m[0]]))
		b.WriteString(`<mark class="highlight">`)
		b.WriteString(html.EscapeString(text[m[0]:m[1]]))
		b.WriteString(`</mark>`)
		last = m[1]
	}
	b.WriteString(html.EscapeString(text[last:]))
	return template.HTML(b.String())
}

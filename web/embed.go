// Package web bundles the dashboard's HTML templates and browser assets
// into the binary.
package web

import "embed"

// Templates holds layouts, partials and pages under templates/.
//
//go:embed templates/layouts templates/partials templates/pages
var Templates embed.FS

// Static holds the stylesheet and the dashboard script served from /static.
//
//go:embed static/css static/js
var Static embed.FS

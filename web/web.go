// Package web embeds the portfolio page template and its browser assets.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"strings"
	"time"

	"github.com/joeyportfolio/portfolio/types"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// DateLayout formats feedback timestamps, e.g. "Jan 2, 2006, 03:04 PM".
const DateLayout = "Jan 2, 2006, 03:04 PM"

// PageData is what index.html renders. Entries is the server-side first
// paint; the page script takes over once its live session is ready.
type PageData struct {
	Content      types.PortfolioContent
	Entries      []types.Feedback
	EmptyMessage string
	Error        string
	SubmitLabel  string
	Year         int
}

// Static returns the browser assets rooted at the static directory.
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// Funcs are the helpers available to page templates.
var Funcs = template.FuncMap{
	"stars":       Stars,
	"formatDate":  FormatDate,
	"countHeader": CountHeader,
}

// ParseTemplates parses the embedded page templates.
func ParseTemplates() (*template.Template, error) {
	tmpl, err := template.New("").Funcs(Funcs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return tmpl, nil
}

// Stars renders a rating as filled and empty stars out of five.
func Stars(rating int) string {
	if rating < 0 {
		rating = 0
	}
	if rating > 5 {
		rating = 5
	}
	return strings.Repeat("★", rating) + strings.Repeat("☆", 5-rating)
}

// FormatDate renders t in the reader-facing layout.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// CountHeader is the heading above the feedback list.
func CountHeader(entries []types.Feedback) string {
	return fmt.Sprintf("Recent Feedback (%d)", len(entries))
}

package web

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"github.com/hpungsan/stalker/internal/activity"
	"github.com/hpungsan/stalker/internal/errors"
	"github.com/hpungsan/stalker/internal/ops"
)

//go:embed templates/*.html
var templateFS embed.FS

// PageData contains common fields used across all page templates.
type PageData struct {
	Title   string
	Version string
}

// StatusPageData is the template data for the status page.
type StatusPageData struct {
	PageData
	Body  template.HTML
	Since time.Time
}

// ErrorPageData is the template data for the error page.
type ErrorPageData struct {
	PageData
	StatusCode int
	Message    string
}

// Renderer manages template parsing and rendering.
type Renderer struct {
	templates map[string]*template.Template
	version   string
}

// NewRenderer parses the embedded page templates.
func NewRenderer(version string) *Renderer {
	funcMap := template.FuncMap{
		"formatTime": formatTime,
	}

	layoutTmpl := template.Must(template.New("layout").Funcs(funcMap).ParseFS(templateFS, "templates/layout.html"))

	pages := map[string]string{
		"status": "templates/status.html",
		"error":  "templates/error.html",
	}

	templates := make(map[string]*template.Template, len(pages))
	for name, file := range pages {
		t := template.Must(layoutTmpl.Clone())
		template.Must(t.ParseFS(templateFS, file))
		templates[name] = t
	}

	return &Renderer{templates: templates, version: version}
}

// renderPageStatus renders a named page template with the given data and HTTP status code.
func (r *Renderer) renderPageStatus(w http.ResponseWriter, status int, name string, data any) {
	t, ok := r.templates[name]
	if !ok {
		slog.Error("template not found", "name", name)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		slog.Error("template execution error", "name", name, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// renderStatus renders the current activity as a page.
func (r *Renderer) renderStatus(w http.ResponseWriter, out *ops.LatestOutput) {
	r.renderPageStatus(w, http.StatusOK, "status", StatusPageData{
		PageData: PageData{Title: "stalker", Version: r.version},
		Body:     renderMarkdown(statusMarkdown(out)),
		Since:    out.Activity.Time,
	})
}

// renderErrorPage renders an error as a page.
func (r *Renderer) renderErrorPage(w http.ResponseWriter, err error) {
	sErr := toStalkerError(err)
	r.renderPageStatus(w, sErr.Status, "error", ErrorPageData{
		PageData:   PageData{Title: fmt.Sprintf("Error %d", sErr.Status), Version: r.version},
		StatusCode: sErr.Status,
		Message:    sErr.Message,
	})
}

// statusMarkdown describes the activity and the music slot in markdown.
// Labels and track names are escaped so they render as text.
func statusMarkdown(out *ops.LatestOutput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s **%s**\n", out.Activity.Emoji, escapeMarkdown(activity.CapitalizeFirst(out.Activity.Label)))

	if t := out.Lastfm.Track; t != nil {
		verb := "Last played"
		if out.Lastfm.NowPlaying {
			verb = "Now playing"
		}
		title := escapeMarkdown(t.Name)
		if t.URL != "" && strings.HasPrefix(t.URL, "https://") {
			title = "[" + title + "](" + t.URL + ")"
		}
		fmt.Fprintf(&b, "\n%s: %s", verb, title)
		if t.Artist != "" {
			fmt.Fprintf(&b, " by %s", escapeMarkdown(t.Artist))
		}
		b.WriteString("\n")
	}
	return b.String()
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "*", `\*`, "_", `\_`, "`", "\\`",
	"[", `\[`, "]", `\]`, "<", "&lt;", ">", "&gt;", "#", `\#`,
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// renderError writes a StalkerError as JSON.
func renderError(w http.ResponseWriter, err error) {
	sErr := toStalkerError(err)
	body := map[string]any{
		"code":    string(sErr.Code),
		"message": sErr.Message,
		"status":  sErr.Status,
	}
	if len(sErr.Details) > 0 {
		body["details"] = sErr.Details
	}
	renderJSON(w, sErr.Status, map[string]any{"error": body})
}

func toStalkerError(err error) *errors.StalkerError {
	if sErr, ok := errors.As(err); ok {
		return sErr
	}
	return errors.NewInternal(err)
}

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// renderMarkdown converts markdown text to HTML using goldmark.
func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

// formatTime formats a time as "2006-01-02 15:04" UTC.
func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04")
}

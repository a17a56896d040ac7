package web

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/hpungsan/stalker/internal/errors"
	"github.com/hpungsan/stalker/internal/ops"
)

// Handlers contains HTTP route handlers.
type Handlers struct {
	engine   ops.Engine
	auth     Auth
	renderer *Renderer
	logger   *slog.Logger
}

// HandleStatus handles GET /: the current activity and music slot.
// Browsers get an HTML page; everything else gets JSON.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	out, err := ops.GetLatest(r.Context(), h.engine)
	if err != nil {
		h.renderErrorFor(w, r, err)
		return
	}

	if wantsHTML(r) {
		h.renderer.renderStatus(w, out)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// HandleHistory handles GET /history.
func (h *Handlers) HandleHistory(w http.ResponseWriter, r *http.Request) {
	out, err := ops.History(r.Context(), h.engine, ops.HistoryInput{
		Limit:  parseIntParam(r, "limit", ops.DefaultHistoryLimit),
		Offset: parseIntParam(r, "offset", 0),
	})
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// HandlePing handles POST /ping/{key}, a device heartbeat.
func (h *Handlers) HandlePing(w http.ResponseWriter, r *http.Request) {
	out, err := ops.ReportPing(r.Context(), h.engine, ops.ReportPingInput{Device: r.PathValue("key")})
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// HandleList handles POST /list/{key}/{sourceDevice}, one origin's app or domain list.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	var body struct {
		List []string `json:"list"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		renderError(w, err)
		return
	}

	out, err := ops.ReportList(r.Context(), h.engine, ops.ReportListInput{
		Category: r.PathValue("key"),
		Origin:   r.PathValue("sourceDevice"),
		Items:    body.List,
	})
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// HandleZoom handles POST /zoom for presence webhooks and URL validation.
func (h *Handlers) HandleZoom(w http.ResponseWriter, r *http.Request) {
	if !secretEqual(r.Header.Get("Authorization"), h.auth.ZoomVerificationToken) {
		renderError(w, errors.NewUnauthorized("invalid verification token"))
		return
	}

	var ev ops.ZoomEvent
	if err := decodeBody(w, r, &ev); err != nil {
		renderError(w, err)
		return
	}

	out, err := ops.ReportZoomEvent(r.Context(), h.engine, h.auth.ZoomSecretToken, ev)
	if err != nil {
		renderError(w, err)
		return
	}
	switch {
	case out.Validation != nil:
		renderJSON(w, http.StatusOK, out.Validation)
	case out.Activity != nil:
		renderJSON(w, http.StatusOK, out.Activity)
	default:
		renderJSON(w, http.StatusOK, map[string]any{})
	}
}

// HandleSetManual handles PUT /manual.
func (h *Handlers) HandleSetManual(w http.ResponseWriter, r *http.Request) {
	var input ops.SetManualInput
	if err := decodeBody(w, r, &input); err != nil {
		renderError(w, err)
		return
	}

	out, err := ops.SetManual(r.Context(), h.engine, input)
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// HandleClearManual handles DELETE /manual.
func (h *Handlers) HandleClearManual(w http.ResponseWriter, r *http.Request) {
	out, err := ops.ClearManual(r.Context(), h.engine)
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// renderErrorFor renders an HTML error page for browsers and JSON otherwise.
func (h *Handlers) renderErrorFor(w http.ResponseWriter, r *http.Request, err error) {
	if wantsHTML(r) {
		h.renderer.renderErrorPage(w, err)
		return
	}
	renderError(w, err)
}

// decodeBody decodes a bounded JSON request body.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return errors.NewInvalidRequest("invalid JSON body: " + err.Error())
	}
	return nil
}

// wantsHTML reports whether the client prefers an HTML page.
func wantsHTML(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "text/html") && !strings.Contains(accept, "application/json")
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

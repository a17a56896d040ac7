package web

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hpungsan/stalker/internal/activity"
	"github.com/hpungsan/stalker/internal/blackboard"
	"github.com/hpungsan/stalker/internal/db"
	"github.com/hpungsan/stalker/internal/engine"
	"github.com/hpungsan/stalker/internal/history"
	"github.com/hpungsan/stalker/internal/ops"
	"github.com/hpungsan/stalker/internal/poll"
	"github.com/hpungsan/stalker/internal/resolver"
)

const (
	testPassword    = "hunter2"
	testZoomVerify  = "zoom-verify"
	testZoomSecret  = "zoom-secret"
	testZoomUserID  = "zoom-user"
	testContentJSON = "application/json"
)

// afternoon is outside quiet hours so an idle board resolves to away.
var afternoon = time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

func setupTest(t *testing.T) (http.Handler, *engine.Engine) {
	t.Helper()
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	board := blackboard.New(database, blackboard.TTLs{Apps: 2 * time.Minute, Domains: 2 * time.Minute, Presence: 12 * time.Hour})
	eng := engine.New(board, history.New(database), resolver.New(resolver.DefaultParams()), nil, engine.Options{
		PresenceUserID: testZoomUserID,
		Now:            func() time.Time { return afternoon },
		Logger:         logger,
	})

	srv := NewServer(Deps{
		Engine: eng,
		Auth: Auth{
			Password:              testPassword,
			ZoomVerificationToken: testZoomVerify,
			ZoomSecretToken:       testZoomSecret,
		},
		MCP: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}),
		Logger: logger,
	}, "127.0.0.1:0", "test")
	return srv.Handler, eng
}

func do(t *testing.T, h http.Handler, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func authed() map[string]string {
	return map[string]string{"Authorization": "Bearer " + testPassword}
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) (string, int) {
	t.Helper()
	var resp struct {
		Error struct {
			Code   string `json:"code"`
			Status int    `json:"status"`
		} `json:"error"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return resp.Error.Code, resp.Error.Status
}

func decodeActivity(t *testing.T, w *httptest.ResponseRecorder) activity.Activity {
	t.Helper()
	var out ops.ActivityOutput
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatalf("decode activity: %v", err)
	}
	return out.Activity
}

func TestStatus_NotFoundBeforeFirstResolution(t *testing.T) {
	h, _ := setupTest(t)

	w := do(t, h, "GET", "/", "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	code, status := decodeError(t, w)
	if code != "NOT_FOUND" || status != 404 {
		t.Errorf("error = %s/%d, want NOT_FOUND/404", code, status)
	}
}

func TestStatus_JSON(t *testing.T) {
	h, eng := setupTest(t)
	if _, err := eng.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	w := do(t, h, "GET", "/", "", map[string]string{"Accept": testContentJSON})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != testContentJSON {
		t.Errorf("Content-Type = %q", ct)
	}

	var out ops.LatestOutput
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Activity.Activity() != activity.Away {
		t.Errorf("activity = %+v, want away", out.Activity)
	}
}

func TestStatus_HTML(t *testing.T) {
	h, eng := setupTest(t)
	ctx := context.Background()
	if err := eng.ApplyFact(ctx, poll.NowPlayingFact{
		NowPlaying: true,
		Track:      &poll.Track{Name: "Song_<One>", Artist: "Band", URL: "https://www.last.fm/music/band"},
	}); err != nil {
		t.Fatalf("ApplyFact: %v", err)
	}

	w := do(t, h, "GET", "/", "", map[string]string{"Accept": "text/html,application/xhtml+xml"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q, want text/html", ct)
	}
	body := w.Body.String()
	if !strings.Contains(body, "<strong>Listening to music</strong>") {
		t.Errorf("body missing activity label: %s", body)
	}
	if !strings.Contains(body, "Now playing") || !strings.Contains(body, `href="https://www.last.fm/music/band"`) {
		t.Errorf("body missing track link: %s", body)
	}
	if strings.Contains(body, "<One>") {
		t.Errorf("track name was not escaped: %s", body)
	}
}

func TestStatus_HTMLErrorPage(t *testing.T) {
	h, _ := setupTest(t)

	w := do(t, h, "GET", "/", "", map[string]string{"Accept": "text/html"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if !strings.Contains(w.Body.String(), "<h1>404</h1>") {
		t.Errorf("expected error page, got %s", w.Body.String())
	}
}

func TestSecurityHeaders(t *testing.T) {
	h, _ := setupTest(t)

	w := do(t, h, "GET", "/history", "", nil)
	for _, name := range []string{"Content-Security-Policy", "X-Content-Type-Options", "X-Frame-Options"} {
		if w.Header().Get(name) == "" {
			t.Errorf("missing header %s", name)
		}
	}
}

func TestPing_RequiresPassword(t *testing.T) {
	h, _ := setupTest(t)

	tests := []struct {
		name   string
		header map[string]string
	}{
		{"missing", nil},
		{"wrong", map[string]string{"Authorization": "Bearer nope"}},
		{"no scheme", map[string]string{"Authorization": testPassword}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, "POST", "/ping/desktop", "", tt.header)
			if w.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", w.Code)
			}
			if code, _ := decodeError(t, w); code != "UNAUTHORIZED" {
				t.Errorf("code = %s, want UNAUTHORIZED", code)
			}
		})
	}
}

func TestPing(t *testing.T) {
	h, _ := setupTest(t)

	w := do(t, h, "POST", "/ping/desktop", "", authed())
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if got := decodeActivity(t, w); got != activity.OnComputer {
		t.Errorf("activity = %+v, want on computer", got)
	}
}

func TestPing_InvalidKey(t *testing.T) {
	h, _ := setupTest(t)

	w := do(t, h, "POST", "/ping/toaster", "", authed())
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if code, _ := decodeError(t, w); code != "INVALID_REQUEST" {
		t.Errorf("code = %s, want INVALID_REQUEST", code)
	}
}

func TestList(t *testing.T) {
	h, _ := setupTest(t)

	w := do(t, h, "POST", "/list/apps/laptop", `{"list":["VSCode"]}`, authed())
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if got := decodeActivity(t, w); got != activity.Programming {
		t.Errorf("activity = %+v, want programming", got)
	}
}

func TestList_BadBody(t *testing.T) {
	h, _ := setupTest(t)

	w := do(t, h, "POST", "/list/apps/laptop", `{"list":`, authed())
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestList_BodyTooLarge(t *testing.T) {
	h, _ := setupTest(t)

	body := `{"list":["` + strings.Repeat("a", maxBodyBytes) + `"]}`
	w := do(t, h, "POST", "/list/apps/laptop", body, authed())
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestManual_SetAndClear(t *testing.T) {
	h, _ := setupTest(t)

	w := do(t, h, "PUT", "/manual", `{"emoji":"🍕","label":"eating pizza"}`, authed())
	if w.Code != http.StatusOK {
		t.Fatalf("set status = %d: %s", w.Code, w.Body.String())
	}
	want := activity.Activity{Emoji: "🍕", Label: "eating pizza"}
	if got := decodeActivity(t, w); got != want {
		t.Errorf("activity = %+v, want %+v", got, want)
	}

	w = do(t, h, "DELETE", "/manual", "", authed())
	if w.Code != http.StatusOK {
		t.Fatalf("clear status = %d", w.Code)
	}
	if got := decodeActivity(t, w); got != activity.Away {
		t.Errorf("activity after clear = %+v, want away", got)
	}
}

func TestManual_RequiresPassword(t *testing.T) {
	h, _ := setupTest(t)

	w := do(t, h, "DELETE", "/manual", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestHistory(t *testing.T) {
	h, _ := setupTest(t)

	do(t, h, "PUT", "/manual", `{"emoji":"🍕","label":"eating pizza"}`, authed())
	do(t, h, "DELETE", "/manual", "", authed())

	w := do(t, h, "GET", "/history?limit=1", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var out ops.HistoryOutput
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Items) != 1 {
		t.Fatalf("len(items) = %d, want 1", len(out.Items))
	}
	if out.Items[0].Activity() != activity.Away {
		t.Errorf("newest = %+v, want away", out.Items[0])
	}
	if !out.Pagination.HasMore || out.Pagination.Total != 2 {
		t.Errorf("pagination = %+v, want has_more with total 2", out.Pagination)
	}
}

func TestZoom_RequiresVerificationToken(t *testing.T) {
	h, _ := setupTest(t)

	w := do(t, h, "POST", "/zoom", `{"event":"user.presence_status_updated"}`, map[string]string{"Authorization": "wrong"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestZoom_URLValidation(t *testing.T) {
	h, _ := setupTest(t)

	body := `{"event":"endpoint.url_validation","payload":{"plainToken":"abc123"}}`
	w := do(t, h, "POST", "/zoom", body, map[string]string{"Authorization": testZoomVerify})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var out ops.ZoomValidationOutput
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.PlainToken != "abc123" {
		t.Errorf("plainToken = %q", out.PlainToken)
	}
	if out.EncryptedToken != ops.SignZoomToken(testZoomSecret, "abc123") {
		t.Errorf("encryptedToken = %q", out.EncryptedToken)
	}
}

func TestZoom_PresenceUpdated(t *testing.T) {
	h, _ := setupTest(t)

	body := `{"event":"user.presence_status_updated","payload":{"object":{"id":"ZOOM-USER","presence_status":"In_Meeting"}}}`
	w := do(t, h, "POST", "/zoom", body, map[string]string{"Authorization": testZoomVerify})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if got := decodeActivity(t, w); got != activity.OnCall {
		t.Errorf("activity = %+v, want on a call", got)
	}
}

func TestZoom_UnknownEventIgnored(t *testing.T) {
	h, _ := setupTest(t)

	w := do(t, h, "POST", "/zoom", `{"event":"meeting.started"}`, map[string]string{"Authorization": testZoomVerify})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if strings.TrimSpace(w.Body.String()) != "{}" {
		t.Errorf("body = %q, want {}", w.Body.String())
	}
}

func TestMCP_MountedBehindPassword(t *testing.T) {
	h, _ := setupTest(t)

	if w := do(t, h, "POST", "/mcp", "{}", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated status = %d, want 401", w.Code)
	}
	if w := do(t, h, "POST", "/mcp", "{}", authed()); w.Code != http.StatusTeapot {
		t.Errorf("authenticated status = %d, want 418", w.Code)
	}
}

func TestParseIntParam(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", 20},
		{"limit=5", 5},
		{"limit=abc", 20},
		{"limit=-3", -3},
	}
	for _, tt := range tests {
		req := httptest.NewRequest("GET", "/history?"+tt.query, nil)
		if got := parseIntParam(req, "limit", 20); got != tt.want {
			t.Errorf("parseIntParam(%q) = %d, want %d", tt.query, got, tt.want)
		}
	}
}

func TestSecretEqual(t *testing.T) {
	if secretEqual("", "") {
		t.Error("empty secret should never match")
	}
	if !secretEqual("a", "a") {
		t.Error("equal secrets should match")
	}
	if secretEqual("a", "b") {
		t.Error("different secrets should not match")
	}
}

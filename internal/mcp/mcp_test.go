package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/stalker/internal/blackboard"
	"github.com/hpungsan/stalker/internal/db"
	"github.com/hpungsan/stalker/internal/engine"
	"github.com/hpungsan/stalker/internal/errors"
	"github.com/hpungsan/stalker/internal/history"
	"github.com/hpungsan/stalker/internal/resolver"
)

// afternoon is outside quiet hours so an idle board resolves to away.
var afternoon = time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

// testSetup creates an engine over a temporary database.
func testSetup(t *testing.T) *engine.Engine {
	t.Helper()

	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("failed to init db: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	board := blackboard.New(database, blackboard.TTLs{Apps: 2 * time.Minute, Domains: 2 * time.Minute, Presence: 12 * time.Hour})
	return engine.New(board, history.New(database), resolver.New(resolver.DefaultParams()), nil, engine.Options{
		Now:    func() time.Time { return afternoon },
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

// makeRequest creates a CallToolRequest with the given arguments.
func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

func TestHandleLatest(t *testing.T) {
	h := NewHandlers(testSetup(t))
	ctx := context.Background()

	t.Run("not found before first resolution", func(t *testing.T) {
		result, err := h.HandleLatest(ctx, makeRequest(nil))
		if err != nil {
			t.Fatalf("handler returned error: %v", err)
		}
		assertErrorCode(t, result, "NOT_FOUND")
	})

	if _, err := h.HandleReportPing(ctx, makeRequest(map[string]any{"device": "mobile"})); err != nil {
		t.Fatalf("setup ping failed: %v", err)
	}

	t.Run("returns newest entry", func(t *testing.T) {
		result, err := h.HandleLatest(ctx, makeRequest(nil))
		if err != nil {
			t.Fatalf("handler returned error: %v", err)
		}
		output := parseOutput(t, result)
		item := output["activity"].(map[string]any)
		if item["label"] != "doing something on my phone" {
			t.Errorf("label = %v", item["label"])
		}
		if item["id"] == "" {
			t.Error("expected an entry id")
		}
	})
}

func TestHandleSetAndClearManual(t *testing.T) {
	h := NewHandlers(testSetup(t))
	ctx := context.Background()

	result, err := h.HandleSetManual(ctx, makeRequest(map[string]any{"emoji": "🍕", "label": "eating pizza"}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	got := parseOutput(t, result)["activity"].(map[string]any)
	if got["emoji"] != "🍕" || got["label"] != "eating pizza" {
		t.Errorf("activity = %v", got)
	}

	result, err = h.HandleClearManual(ctx, makeRequest(nil))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	got = parseOutput(t, result)["activity"].(map[string]any)
	if got["label"] != "doing something irl" {
		t.Errorf("activity after clear = %v", got)
	}
}

func TestHandleSetManual_Validation(t *testing.T) {
	h := NewHandlers(testSetup(t))

	tests := []struct {
		name string
		args map[string]any
	}{
		{"missing emoji", map[string]any{"label": "eating"}},
		{"missing label", map[string]any{"emoji": "🍕"}},
		{"wrong type", map[string]any{"emoji": 42, "label": "eating"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := h.HandleSetManual(context.Background(), makeRequest(tt.args))
			if err != nil {
				t.Fatalf("handler returned error: %v", err)
			}
			assertErrorCode(t, result, "INVALID_REQUEST")
		})
	}
}

func TestHandleReportPing_InvalidDevice(t *testing.T) {
	h := NewHandlers(testSetup(t))

	result, err := h.HandleReportPing(context.Background(), makeRequest(map[string]any{"device": "watch"}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	assertErrorCode(t, result, "INVALID_REQUEST")
}

func TestHandleHistory(t *testing.T) {
	h := NewHandlers(testSetup(t))
	ctx := context.Background()

	h.HandleReportPing(ctx, makeRequest(map[string]any{"device": "desktop"}))
	h.HandleSetManual(ctx, makeRequest(map[string]any{"emoji": "🍕", "label": "eating pizza"}))

	result, err := h.HandleHistory(ctx, makeRequest(map[string]any{"limit": float64(1)}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	output := parseOutput(t, result)

	items := output["items"].([]any)
	if len(items) != 1 {
		t.Fatalf("len(items) = %d, want 1", len(items))
	}
	if items[0].(map[string]any)["label"] != "eating pizza" {
		t.Errorf("newest = %v", items[0])
	}
	pagination := output["pagination"].(map[string]any)
	if pagination["has_more"] != true || pagination["total"] != float64(2) {
		t.Errorf("pagination = %v", pagination)
	}
}

func TestHandleHistory_Arguments(t *testing.T) {
	h := NewHandlers(testSetup(t))
	ctx := context.Background()

	result, err := h.HandleHistory(ctx, makeRequest(nil))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if result.IsError {
		t.Fatalf("no arguments should use defaults, got error result")
	}

	result, err = h.HandleHistory(ctx, makeRequest(map[string]any{"limit": "ten"}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	assertErrorCode(t, result, "INVALID_REQUEST")
}

func TestServerRegistration(t *testing.T) {
	s := NewServer(testSetup(t), nil, "test")
	tools := s.ListTools()

	expected := []string{
		"activity_latest",
		"activity_history",
		"activity_set_manual",
		"activity_clear_manual",
		"activity_report_ping",
	}
	if len(tools) != len(expected) {
		t.Errorf("registered tool count = %d, want %d", len(tools), len(expected))
	}
	for _, name := range expected {
		if _, ok := tools[name]; !ok {
			t.Errorf("missing registered tool: %s", name)
		}
	}
}

func TestServerRegistration_WithDisabledTools(t *testing.T) {
	s := NewServer(testSetup(t), []string{"activity_set_manual", "activity_clear_manual", "activity_clear_manual"}, "test")
	tools := s.ListTools()

	if len(tools) != 3 {
		t.Errorf("registered tool count = %d, want 3", len(tools))
	}
	for _, name := range []string{"activity_set_manual", "activity_clear_manual"} {
		if _, ok := tools[name]; ok {
			t.Errorf("disabled tool %q should not be registered", name)
		}
	}
}

func TestServerRegistration_AllToolsDisabled(t *testing.T) {
	s := NewServer(testSetup(t), AllToolNames(), "test")
	if tools := s.ListTools(); len(tools) != 0 {
		t.Errorf("registered tool count = %d, want 0 (all disabled)", len(tools))
	}
}

func TestValidateDisabledTools(t *testing.T) {
	tests := []struct {
		name    string
		input   []string
		wantLen int
	}{
		{"all valid", []string{"activity_latest", "activity_history"}, 0},
		{"one unknown", []string{"activity_latest", "activity_delete"}, 1},
		{"empty list", []string{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if unknown := ValidateDisabledTools(tt.input); len(unknown) != tt.wantLen {
				t.Errorf("ValidateDisabledTools() returned %d unknown, want %d", len(unknown), tt.wantLen)
			}
		})
	}
}

func TestAllToolNames(t *testing.T) {
	names := AllToolNames()
	if len(names) != 5 {
		t.Errorf("AllToolNames() returned %d names, want 5", len(names))
	}
	if names[0] != "activity_clear_manual" {
		t.Errorf("names not sorted: %v", names)
	}
}

func TestErrorResult_InternalDoesNotExposeDetails(t *testing.T) {
	sErr := errors.NewInternal(fmt.Errorf("sql error: open /tmp/secret.db: permission denied"))
	sErr.Details = map[string]any{"path": "/tmp/secret.db"}

	errObj := errorPayload(t, errorResult(sErr))
	if errObj["code"] != string(errors.ErrInternal) {
		t.Fatalf("code=%v, want %v", errObj["code"], errors.ErrInternal)
	}
	if _, ok := errObj["details"]; ok {
		t.Fatal("expected INTERNAL errors to omit details")
	}
}

func TestErrorResult_WrappedError(t *testing.T) {
	wrapped := fmt.Errorf("report: %w", errors.NewUnauthorized("bad token"))

	errObj := errorPayload(t, errorResult(wrapped))
	if errObj["code"] != string(errors.ErrUnauthorized) {
		t.Errorf("code=%v, want %v", errObj["code"], errors.ErrUnauthorized)
	}
}

func TestErrorResult_NonInternalIncludesDetails(t *testing.T) {
	errObj := errorPayload(t, errorResult(errors.NewNotFound("activity")))
	if errObj["code"] != string(errors.ErrNotFound) {
		t.Fatalf("code=%v, want %v", errObj["code"], errors.ErrNotFound)
	}
	if _, ok := errObj["details"]; !ok {
		t.Fatal("expected non-INTERNAL errors to include details when present")
	}
}

func TestErrorResult_PlainError(t *testing.T) {
	errObj := errorPayload(t, errorResult(fmt.Errorf("boom")))
	if errObj["code"] != "INTERNAL" || errObj["message"] != "an internal error occurred" {
		t.Errorf("payload = %v", errObj)
	}
}

// Helper functions

// parseOutput extracts and unmarshals the JSON output from an MCP result.
func parseOutput(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	if result.IsError {
		t.Fatalf("expected success, got error: %s", result.Content[0].(mcp.TextContent).Text)
	}
	var output map[string]any
	if err := json.Unmarshal([]byte(result.Content[0].(mcp.TextContent).Text), &output); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	return output
}

func errorPayload(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	if !result.IsError {
		t.Fatal("expected IsError=true")
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(result.Content[0].(mcp.TextContent).Text), &payload); err != nil {
		t.Fatalf("failed to unmarshal error payload: %v", err)
	}
	return payload["error"].(map[string]any)
}

func assertErrorCode(t *testing.T, result *mcp.CallToolResult, expectedCode string) {
	t.Helper()
	if code := errorPayload(t, result)["code"]; code != expectedCode {
		t.Errorf("error code = %v, want %s", code, expectedCode)
	}
}

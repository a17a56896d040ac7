package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/stalker/internal/errors"
	"github.com/hpungsan/stalker/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	engine ops.Engine
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(eng ops.Engine) *Handlers {
	return &Handlers{engine: eng}
}

// HistoryRequest represents the arguments for activity_history.
type HistoryRequest struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// SetManualRequest represents the arguments for activity_set_manual.
type SetManualRequest struct {
	Emoji string `json:"emoji"`
	Label string `json:"label"`
}

// ReportPingRequest represents the arguments for activity_report_ping.
type ReportPingRequest struct {
	Device string `json:"device"`
}

// HandleLatest handles the activity_latest tool call.
func (h *Handlers) HandleLatest(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.GetLatest(ctx, h.engine)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleHistory handles the activity_history tool call.
func (h *Handlers) HandleHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[HistoryRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.History(ctx, h.engine, ops.HistoryInput{
		Limit:  input.Limit,
		Offset: input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleSetManual handles the activity_set_manual tool call.
func (h *Handlers) HandleSetManual(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SetManualRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.SetManual(ctx, h.engine, ops.SetManualInput{
		Emoji: input.Emoji,
		Label: input.Label,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleClearManual handles the activity_clear_manual tool call.
func (h *Handlers) HandleClearManual(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.ClearManual(ctx, h.engine)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleReportPing handles the activity_report_ping tool call.
func (h *Handlers) HandleReportPing(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ReportPingRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.ReportPing(ctx, h.engine, ops.ReportPingInput{Device: input.Device})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// errorResult creates an MCP error result from an error.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if sErr, ok := errors.As(err); ok {
		errorObj := map[string]any{
			"code":    sErr.Code,
			"message": sErr.Message,
			"status":  sErr.Status,
		}
		// Internal details may carry SQL errors
		if sErr.Code != errors.ErrInternal && sErr.Details != nil {
			errorObj["details"] = sErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result with JSON content.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}

// decode maps tool arguments onto T through their JSON form. A mismatch is
// an invalid request.
func decode[T any](req mcp.CallToolRequest) (T, error) {
	var out T
	args := req.GetArguments()
	if len(args) == 0 {
		return out, nil
	}
	b, err := json.Marshal(args)
	if err != nil {
		return out, errors.NewInvalidRequest(fmt.Sprintf("arguments: %v", err))
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return out, errors.NewInvalidRequest(fmt.Sprintf("arguments: %v", err))
	}
	return out, nil
}

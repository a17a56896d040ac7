package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/stalker/internal/ops"
)

var latestToolDef = mcp.NewTool("activity_latest",
	mcp.WithDescription("Get the current inferred activity and the most recent track."),
)

var historyToolDef = mcp.NewTool("activity_history",
	mcp.WithDescription("List past activities, newest first."),
	mcp.WithNumber("limit",
		mcp.Description("Maximum entries to return (default 20, max 100)."),
		mcp.Min(1),
		mcp.Max(ops.MaxHistoryLimit),
	),
	mcp.WithNumber("offset",
		mcp.Description("Entries to skip."),
		mcp.Min(0),
	),
)

var setManualToolDef = mcp.NewTool("activity_set_manual",
	mcp.WithDescription("Override the inferred activity until cleared."),
	mcp.WithString("emoji",
		mcp.Required(),
		mcp.Description("Status emoji, e.g. 🍕"),
	),
	mcp.WithString("label",
		mcp.Required(),
		mcp.Description("Lowercase phrase completing \"currently ...\", e.g. eating pizza"),
	),
)

var clearManualToolDef = mcp.NewTool("activity_clear_manual",
	mcp.WithDescription("Remove the manual override and return to inference."),
)

var reportPingToolDef = mcp.NewTool("activity_report_ping",
	mcp.WithDescription("Record a heartbeat from a device."),
	mcp.WithString("device",
		mcp.Required(),
		mcp.Description("desktop or mobile"),
		mcp.Enum("desktop", "mobile"),
	),
)

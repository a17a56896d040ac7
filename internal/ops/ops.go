// Package ops validates inbound requests and runs them against the engine.
// The web and MCP layers both call these; the engine only sees well-formed facts.
package ops

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/hpungsan/stalker/internal/activity"
	"github.com/hpungsan/stalker/internal/blackboard"
	"github.com/hpungsan/stalker/internal/errors"
	"github.com/hpungsan/stalker/internal/poll"
)

// Pagination limits
const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// Field limits
const (
	MaxLabelLen  = 100
	MaxEmojiLen  = 32
	MaxOriginLen = 64
	MaxItemLen   = 256
	MaxListItems = 200
)

// Engine is the subset of the engine the operations need.
type Engine interface {
	ReportPing(ctx context.Context, device string) (activity.Activity, error)
	ReportList(ctx context.Context, category, origin string, items []string) (activity.Activity, error)
	ReportPresence(ctx context.Context, userID string, inCall bool) (activity.Activity, error)
	SetManual(ctx context.Context, emoji, label string) (activity.Activity, error)
	ClearManual(ctx context.Context) (activity.Activity, error)
	Latest(ctx context.Context) (*activity.Entry, error)
	History(ctx context.Context, limit, offset int) ([]activity.Entry, error)
	HistoryCount(ctx context.Context) (int, error)
	NowPlaying() poll.NowPlayingFact
}

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// ActivityOutput is returned by every mutating operation.
type ActivityOutput struct {
	Activity activity.Activity `json:"activity"`
}

// ValidateDevice checks a heartbeat key.
func ValidateDevice(device string) (string, error) {
	device = activity.Normalize(device)
	if !blackboard.IsDevice(device) {
		return "", errors.NewInvalidKey("ping", device, blackboard.Devices)
	}
	return device, nil
}

// ValidateCategory checks a list category.
func ValidateCategory(category string) (string, error) {
	category = activity.Normalize(category)
	if !blackboard.IsCategory(category) {
		return "", errors.NewInvalidKey("list", category, blackboard.Categories)
	}
	return category, nil
}

func requireText(field, value string, maxLen int) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", errors.NewInvalidRequest(field + " is required")
	}
	if utf8.RuneCountInString(value) > maxLen {
		return "", errors.NewInvalidRequest(field + " is too long")
	}
	return value, nil
}

package ops

import (
	"context"

	"github.com/hpungsan/stalker/internal/activity"
)

// HistoryInput contains parameters for the History operation.
type HistoryInput struct {
	Limit  int `json:"limit"`  // default: 20, max: 100
	Offset int `json:"offset"` // default: 0
}

// HistoryOutput contains the result of the History operation.
type HistoryOutput struct {
	Items      []activity.Entry `json:"items"`
	Pagination Pagination       `json:"pagination"`
	Sort       string           `json:"sort"`
}

// History returns activity entries newest-first with pagination.
func History(ctx context.Context, eng Engine, input HistoryInput) (*HistoryOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	offset := max(input.Offset, 0)

	items, err := eng.History(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	total, err := eng.HistoryCount(ctx)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []activity.Entry{}
	}

	return &HistoryOutput{
		Items: items,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(items) < total,
			Total:   total,
		},
		Sort: "time_desc",
	}, nil
}

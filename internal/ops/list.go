package ops

import (
	"context"
	"fmt"

	"github.com/hpungsan/stalker/internal/activity"
	"github.com/hpungsan/stalker/internal/blackboard"
	"github.com/hpungsan/stalker/internal/errors"
)

// ReportListInput contains parameters for the ReportList operation.
type ReportListInput struct {
	Category string   `json:"category"`
	Origin   string   `json:"origin"`
	Items    []string `json:"list"`
}

// ReportList replaces the items one origin device reports for a category.
// App names are lowercased; domains also lose a leading "www.".
func ReportList(ctx context.Context, eng Engine, input ReportListInput) (*ActivityOutput, error) {
	category, err := ValidateCategory(input.Category)
	if err != nil {
		return nil, err
	}
	origin, err := requireText("origin", activity.Normalize(input.Origin), MaxOriginLen)
	if err != nil {
		return nil, err
	}
	if input.Items == nil {
		return nil, errors.NewInvalidRequest("list is required")
	}
	if len(input.Items) > MaxListItems {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("list exceeds %d items", MaxListItems))
	}
	for _, item := range input.Items {
		if len(item) > MaxItemLen {
			return nil, errors.NewInvalidRequest("list item is too long")
		}
	}

	normalize := activity.Normalize
	if category == blackboard.Domains {
		normalize = activity.NormalizeDomain
	}
	items := activity.NormalizeItems(input.Items, normalize)

	a, err := eng.ReportList(ctx, category, origin, items)
	if err != nil {
		return nil, err
	}
	return &ActivityOutput{Activity: a}, nil
}

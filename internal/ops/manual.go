package ops

import "context"

// SetManualInput contains parameters for the SetManual operation.
type SetManualInput struct {
	Emoji string `json:"emoji"`
	Label string `json:"label"`
}

// SetManual replaces the manual override.
func SetManual(ctx context.Context, eng Engine, input SetManualInput) (*ActivityOutput, error) {
	emoji, err := requireText("emoji", input.Emoji, MaxEmojiLen)
	if err != nil {
		return nil, err
	}
	label, err := requireText("label", input.Label, MaxLabelLen)
	if err != nil {
		return nil, err
	}
	a, err := eng.SetManual(ctx, emoji, label)
	if err != nil {
		return nil, err
	}
	return &ActivityOutput{Activity: a}, nil
}

// ClearManual empties the manual override. Clearing an empty slot succeeds.
func ClearManual(ctx context.Context, eng Engine) (*ActivityOutput, error) {
	a, err := eng.ClearManual(ctx)
	if err != nil {
		return nil, err
	}
	return &ActivityOutput{Activity: a}, nil
}

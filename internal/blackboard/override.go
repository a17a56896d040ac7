package blackboard

import (
	"context"
	"time"

	"github.com/hpungsan/stalker/internal/activity"
	"github.com/hpungsan/stalker/internal/db"
)

// Override is the sticky manual activity.
type Override struct {
	Emoji string
	Label string
	Time  time.Time
}

// Activity returns the override as an Activity.
func (o Override) Activity() activity.Activity {
	return activity.Activity{Emoji: o.Emoji, Label: o.Label}
}

// IsSleep reports whether the override was created for sleep.
func (o Override) IsSleep() bool {
	return o.Activity().IsSleep()
}

// SetOverride replaces the override unconditionally.
func (b *Board) SetOverride(ctx context.Context, emoji, label string, at time.Time) error {
	return db.SetManual(ctx, b.db, emoji, label, at)
}

// ClearOverride empties the slot. Clearing an empty slot is a no-op.
func (b *Board) ClearOverride(ctx context.Context) error {
	_, err := db.ClearManual(ctx, b.db)
	return err
}

// GetOverride returns the current override, or nil when the slot is empty.
func (b *Board) GetOverride(ctx context.Context) (*Override, error) {
	row, err := db.GetManual(ctx, b.db)
	if err != nil || row == nil {
		return nil, err
	}
	return &Override{Emoji: row.Emoji, Label: row.Label, Time: row.Time}, nil
}

// Package engine serializes every mutation of the inference inputs together
// with the resolution that follows it.
//
// Each mutating call writes its fact, resolves, applies the decision's
// effects, appends to history if the activity changed, and enqueues a
// notification, all under one lock. Vendor fetches and notification pushes
// happen outside the lock.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hpungsan/stalker/internal/activity"
	"github.com/hpungsan/stalker/internal/blackboard"
	"github.com/hpungsan/stalker/internal/history"
	"github.com/hpungsan/stalker/internal/poll"
	"github.com/hpungsan/stalker/internal/resolver"
)

// Notifier accepts changed activities for delivery. It must not block.
type Notifier interface {
	Enqueue(a activity.Activity) bool
}

// Options configures an Engine.
type Options struct {
	// PresenceUserID selects which presence fact feeds call detection.
	PresenceUserID string

	// Now overrides the clock, for tests.
	Now func() time.Time

	Logger *slog.Logger
}

// Engine owns the polling state and the single mutation lock.
type Engine struct {
	mu       sync.Mutex
	state    poll.State
	board    *blackboard.Board
	history  *history.Store
	resolver *resolver.Resolver
	notifier Notifier

	presenceUser string
	now          func() time.Time
	logger       *slog.Logger
}

// New returns an Engine. notifier may be nil.
func New(board *blackboard.Board, store *history.Store, res *resolver.Resolver, notifier Notifier, opts Options) *Engine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Engine{
		board:        board,
		history:      store,
		resolver:     res,
		notifier:     notifier,
		presenceUser: opts.PresenceUserID,
		now:          opts.Now,
		logger:       opts.Logger.With("component", "engine"),
	}
}

// ApplyFact replaces one polling slot and resolves.
func (e *Engine) ApplyFact(ctx context.Context, f poll.Fact) error {
	_, err := e.mutate(ctx, func(time.Time) error {
		return e.state.Apply(f)
	})
	return err
}

// ApplyFacts replaces every given slot and then resolves once.
func (e *Engine) ApplyFacts(ctx context.Context, facts []poll.Fact) error {
	_, err := e.mutate(ctx, func(time.Time) error {
		for _, f := range facts {
			if err := e.state.Apply(f); err != nil {
				return err
			}
		}
		return nil
	})
	return err
}

// ReportPing records a device heartbeat and resolves.
func (e *Engine) ReportPing(ctx context.Context, device string) (activity.Activity, error) {
	return e.mutate(ctx, func(now time.Time) error {
		return e.board.WritePing(ctx, device, now)
	})
}

// ReportList replaces one origin's list for a category and resolves.
func (e *Engine) ReportList(ctx context.Context, category, origin string, items []string) (activity.Activity, error) {
	return e.mutate(ctx, func(now time.Time) error {
		return e.board.WriteList(ctx, category, origin, items, now)
	})
}

// ReportPresence records a presence fact and resolves.
func (e *Engine) ReportPresence(ctx context.Context, userID string, inCall bool) (activity.Activity, error) {
	return e.mutate(ctx, func(now time.Time) error {
		return e.board.WritePresence(ctx, userID, inCall, now)
	})
}

// SetManual replaces the override and resolves.
func (e *Engine) SetManual(ctx context.Context, emoji, label string) (activity.Activity, error) {
	return e.mutate(ctx, func(now time.Time) error {
		return e.board.SetOverride(ctx, emoji, label, now)
	})
}

// ClearManual empties the override and resolves.
func (e *Engine) ClearManual(ctx context.Context) (activity.Activity, error) {
	return e.mutate(ctx, func(time.Time) error {
		return e.board.ClearOverride(ctx)
	})
}

// Refresh resolves without changing any input.
func (e *Engine) Refresh(ctx context.Context) (activity.Activity, error) {
	return e.mutate(ctx, nil)
}

// Latest returns the newest history entry, or nil.
func (e *Engine) Latest(ctx context.Context) (*activity.Entry, error) {
	return e.history.Latest(ctx)
}

// History returns entries newest-first.
func (e *Engine) History(ctx context.Context, limit, offset int) ([]activity.Entry, error) {
	return e.history.List(ctx, limit, offset)
}

// HistoryCount returns the number of history entries.
func (e *Engine) HistoryCount(ctx context.Context) (int, error) {
	return e.history.Count(ctx)
}

// NowPlaying returns the music slot.
func (e *Engine) NowPlaying() poll.NowPlayingFact {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Snapshot().Music
}

// Override returns the manual override, or nil.
func (e *Engine) Override(ctx context.Context) (*blackboard.Override, error) {
	return e.board.GetOverride(ctx)
}

// mutate runs write and the resolution under the lock. A write that succeeded
// stays in place when the resolution fails; the next resolution reads it.
func (e *Engine) mutate(ctx context.Context, write func(now time.Time) error) (activity.Activity, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	if write != nil {
		if err := write(now); err != nil {
			return activity.Activity{}, err
		}
	}
	return e.resolveLocked(ctx, now)
}

func (e *Engine) resolveLocked(ctx context.Context, now time.Time) (activity.Activity, error) {
	in, err := e.input(ctx, now)
	if err != nil {
		return activity.Activity{}, err
	}

	d := e.resolver.Resolve(in)
	for _, eff := range d.Effects {
		if err := e.apply(ctx, eff); err != nil {
			return activity.Activity{}, err
		}
	}

	entry, changed, err := e.history.AppendIfChanged(ctx, d.Activity, now)
	if err != nil {
		return activity.Activity{}, err
	}
	e.logger.Debug("resolved", "rule", d.Rule, "emoji", d.Activity.Emoji, "changed", changed)
	if changed {
		e.logger.Info("activity changed", "id", entry.ID, "emoji", entry.Emoji, "label", entry.Label, "rule", d.Rule)
		if e.notifier != nil {
			e.notifier.Enqueue(d.Activity)
		}
	}
	return d.Activity, nil
}

func (e *Engine) input(ctx context.Context, now time.Time) (resolver.Input, error) {
	ages, err := e.board.PingAges(ctx, now)
	if err != nil {
		return resolver.Input{}, err
	}
	apps, err := e.board.ReadList(ctx, blackboard.Apps, now)
	if err != nil {
		return resolver.Input{}, err
	}
	domains, err := e.board.ReadList(ctx, blackboard.Domains, now)
	if err != nil {
		return resolver.Input{}, err
	}
	inCall, err := e.board.ReadPresence(ctx, e.presenceUser, now)
	if err != nil {
		return resolver.Input{}, err
	}
	override, err := e.board.GetOverride(ctx)
	if err != nil {
		return resolver.Input{}, err
	}
	return resolver.Input{
		Now:      now,
		Polling:  e.state.Snapshot(),
		Override: override,
		PingAges: ages,
		Apps:     apps,
		Domains:  domains,
		InCall:   inCall,
	}, nil
}

func (e *Engine) apply(ctx context.Context, eff resolver.Effect) error {
	switch eff.Kind {
	case resolver.ClearOverride:
		e.logger.Info("sleep override ended")
		return e.board.ClearOverride(ctx)
	case resolver.CreateSleepOverride:
		e.logger.Info("sleep override created")
		return e.board.SetOverride(ctx, eff.Activity.Emoji, eff.Activity.Label, eff.At)
	}
	return nil
}

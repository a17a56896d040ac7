// Package history is the append-only activity log with change detection.
package history

import (
	"context"
	"crypto/rand"
	"database/sql"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/stalker/internal/activity"
	"github.com/hpungsan/stalker/internal/db"
	"github.com/hpungsan/stalker/internal/errors"
)

// Store appends activities only when the emoji changes.
// Callers serialize AppendIfChanged.
type Store struct {
	db *sql.DB

	// Monotonic entropy keeps ids ordered within one millisecond.
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// New returns a Store backed by database.
func New(database *sql.DB) *Store {
	return &Store{db: database, entropy: ulid.Monotonic(rand.Reader, 0)}
}

// AppendIfChanged records a at time at unless the latest entry has the same
// emoji. A label-only change is not a change. The returned entry is the new
// one, or the existing latest entry when nothing was appended.
func (s *Store) AppendIfChanged(ctx context.Context, a activity.Activity, at time.Time) (activity.Entry, bool, error) {
	latest, err := db.GetLatestActivity(ctx, s.db)
	if err != nil {
		return activity.Entry{}, false, err
	}
	if latest != nil && latest.Emoji == a.Emoji {
		return *latest, false, nil
	}

	id, err := s.newID(at)
	if err != nil {
		return activity.Entry{}, false, errors.NewInternal(err)
	}
	e := activity.Entry{ID: id, Emoji: a.Emoji, Label: a.Label, Time: at}
	if err := db.InsertActivity(ctx, s.db, e); err != nil {
		return activity.Entry{}, false, err
	}
	return e, true, nil
}

// Latest returns the newest entry, or nil when history is empty.
func (s *Store) Latest(ctx context.Context) (*activity.Entry, error) {
	return db.GetLatestActivity(ctx, s.db)
}

// List returns entries newest-first.
func (s *Store) List(ctx context.Context, limit, offset int) ([]activity.Entry, error) {
	return db.ListActivities(ctx, s.db, limit, offset)
}

// Count returns the number of entries.
func (s *Store) Count(ctx context.Context) (int, error) {
	return db.CountActivities(ctx, s.db)
}

func (s *Store) newID(at time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, err := ulid.New(ulid.Timestamp(at), s.entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

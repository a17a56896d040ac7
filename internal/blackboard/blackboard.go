// Package blackboard stores short-lived facts pushed by clients and webhooks.
//
// Facts are never evicted. Reads take the current time and hide entries whose
// age has reached their TTL, so an expired fact is simply invisible.
package blackboard

import (
	"context"
	"database/sql"
	"math"
	"time"

	"github.com/hpungsan/stalker/internal/activity"
	"github.com/hpungsan/stalker/internal/config"
	"github.com/hpungsan/stalker/internal/db"
	"github.com/hpungsan/stalker/internal/errors"
)

// Device heartbeat keys.
const (
	Desktop = "desktop"
	Mobile  = "mobile"
)

// List categories.
const (
	Apps    = "apps"
	Domains = "domains"
)

// Devices lists heartbeat keys in tie-break order.
var Devices = []string{Desktop, Mobile}

// Categories lists the accepted list categories.
var Categories = []string{Apps, Domains}

// Infinite is the age of a fact that was never written.
const Infinite = time.Duration(math.MaxInt64)

// TTLs bounds the visible age of each fact kind.
type TTLs struct {
	Apps     time.Duration
	Domains  time.Duration
	Presence time.Duration
}

// TTLsFromConfig reads the fact TTLs from cfg.
func TTLsFromConfig(cfg *config.Config) TTLs {
	return TTLs{
		Apps:     cfg.AppsTTL(),
		Domains:  cfg.DomainsTTL(),
		Presence: cfg.PresenceTTL(),
	}
}

// Board is the persistent blackboard plus the manual override slot.
type Board struct {
	db  *sql.DB
	ttl TTLs
}

// New returns a Board backed by database.
func New(database *sql.DB, ttl TTLs) *Board {
	return &Board{db: database, ttl: ttl}
}

// IsDevice reports whether key is a known heartbeat key.
func IsDevice(key string) bool {
	return contains(Devices, key)
}

// IsCategory reports whether key is a known list category.
func IsCategory(key string) bool {
	return contains(Categories, key)
}

// WritePing records that device was seen at at.
func (b *Board) WritePing(ctx context.Context, device string, at time.Time) error {
	if !IsDevice(device) {
		return errors.NewInvalidKey("ping", device, Devices)
	}
	return db.UpsertPing(ctx, b.db, device, at)
}

// ReadPingAge returns how long ago device was last seen, or Infinite.
func (b *Board) ReadPingAge(ctx context.Context, device string, now time.Time) (time.Duration, error) {
	seen, err := db.GetPing(ctx, b.db, device)
	if err != nil {
		return 0, err
	}
	if seen == nil {
		return Infinite, nil
	}
	return age(now, *seen), nil
}

// PingAges returns the age of every known device.
func (b *Board) PingAges(ctx context.Context, now time.Time) (map[string]time.Duration, error) {
	ages := make(map[string]time.Duration, len(Devices))
	for _, d := range Devices {
		a, err := b.ReadPingAge(ctx, d, now)
		if err != nil {
			return nil, err
		}
		ages[d] = a
	}
	return ages, nil
}

// MinAge returns the smallest value in ages, or Infinite when empty.
func MinAge(ages map[string]time.Duration) time.Duration {
	lowest := Infinite
	for _, a := range ages {
		if a < lowest {
			lowest = a
		}
	}
	return lowest
}

// WriteList replaces the items reported by origin for category.
func (b *Board) WriteList(ctx context.Context, category, origin string, items []string, at time.Time) error {
	if !IsCategory(category) {
		return errors.NewInvalidKey("list", category, Categories)
	}
	return db.UpsertList(ctx, b.db, category, origin, items, at)
}

// ReadList returns the union of items from every origin whose entry is
// younger than the category TTL. The result is sorted and deduplicated.
func (b *Board) ReadList(ctx context.Context, category string, now time.Time) ([]string, error) {
	ttl, ok := b.listTTL(category)
	if !ok {
		return nil, errors.NewInvalidKey("list", category, Categories)
	}

	rows, err := db.GetLists(ctx, b.db, category)
	if err != nil {
		return nil, err
	}

	var union []string
	for _, row := range rows {
		if age(now, row.Time) >= ttl {
			continue
		}
		union = append(union, row.Items...)
	}
	return activity.NormalizeItems(union, identity), nil
}

// WritePresence records a presence fact for userID.
func (b *Board) WritePresence(ctx context.Context, userID string, inCall bool, at time.Time) error {
	return db.UpsertPresence(ctx, b.db, userID, inCall, at)
}

// ReadPresence reports whether userID is in a call. Absent or stale facts read as false.
func (b *Board) ReadPresence(ctx context.Context, userID string, now time.Time) (bool, error) {
	if userID == "" {
		return false, nil
	}
	row, err := db.GetPresence(ctx, b.db, userID)
	if err != nil {
		return false, err
	}
	if row == nil || age(now, row.LastUpdate) >= b.ttl.Presence {
		return false, nil
	}
	return row.InCall, nil
}

func (b *Board) listTTL(category string) (time.Duration, bool) {
	switch category {
	case Apps:
		return b.ttl.Apps, true
	case Domains:
		return b.ttl.Domains, true
	}
	return 0, false
}

// age clamps clock skew to zero.
func age(now, at time.Time) time.Duration {
	d := now.Sub(at)
	if d < 0 {
		return 0
	}
	return d
}

func identity(s string) string { return s }

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

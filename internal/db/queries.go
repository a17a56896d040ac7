package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/hpungsan/stalker/internal/activity"
	"github.com/hpungsan/stalker/internal/errors"
)

// ListRow is one (category, origin device) list entry.
type ListRow struct {
	Key          string
	SourceDevice string
	Items        []string
	Time         time.Time
}

// PresenceRow is a stored presence webhook fact.
type PresenceRow struct {
	UserID     string
	InCall     bool
	LastUpdate time.Time
}

// ManualRow is the stored manual override.
type ManualRow struct {
	Emoji string
	Label string
	Time  time.Time
}

// TokenRow is a cached OAuth access token keyed by its refresh token.
type TokenRow struct {
	RefreshToken string
	AccessToken  string
	TokenType    string
	Expiry       time.Time
}

// UpsertPing records the last-seen time for a device key.
func UpsertPing(ctx context.Context, db *sql.DB, key string, at time.Time) error {
	query := `
		INSERT INTO pings (key, time) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET time = excluded.time
	`
	if _, err := db.ExecContext(ctx, query, key, at.UnixMilli()); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetPing returns the last-seen time for a device key, or nil if never seen.
func GetPing(ctx context.Context, db *sql.DB, key string) (*time.Time, error) {
	var ms int64
	err := db.QueryRowContext(ctx, `SELECT time FROM pings WHERE key = ?`, key).Scan(&ms)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	t := time.UnixMilli(ms)
	return &t, nil
}

// UpsertList replaces the items reported by one origin device for a category.
func UpsertList(ctx context.Context, db *sql.DB, key, sourceDevice string, items []string, at time.Time) error {
	if items == nil {
		items = []string{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return errors.NewInternal(err)
	}

	query := `
		INSERT INTO lists (key, source_device, items_json, time) VALUES (?, ?, ?, ?)
		ON CONFLICT(key, source_device) DO UPDATE SET
			items_json = excluded.items_json,
			time = excluded.time
	`
	if _, err := db.ExecContext(ctx, query, key, sourceDevice, string(data), at.UnixMilli()); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetLists returns every origin's entry for a category, regardless of age.
func GetLists(ctx context.Context, db *sql.DB, key string) ([]ListRow, error) {
	query := `
		SELECT key, source_device, items_json, time
		FROM lists
		WHERE key = ?
		ORDER BY source_device
	`
	rows, err := db.QueryContext(ctx, query, key)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var result []ListRow
	for rows.Next() {
		var (
			row       ListRow
			itemsJSON string
			ms        int64
		)
		if err := rows.Scan(&row.Key, &row.SourceDevice, &itemsJSON, &ms); err != nil {
			return nil, errors.NewInternal(err)
		}
		if err := json.Unmarshal([]byte(itemsJSON), &row.Items); err != nil {
			return nil, errors.NewInternal(err)
		}
		row.Time = time.UnixMilli(ms)
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return result, nil
}

// UpsertPresence records a presence webhook fact.
func UpsertPresence(ctx context.Context, db *sql.DB, userID string, inCall bool, at time.Time) error {
	query := `
		INSERT INTO presence (user_id, in_call, last_update) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			in_call = excluded.in_call,
			last_update = excluded.last_update
	`
	if _, err := db.ExecContext(ctx, query, userID, boolToInt(inCall), at.UnixMilli()); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetPresence returns the presence fact for a user, or nil if none.
func GetPresence(ctx context.Context, db *sql.DB, userID string) (*PresenceRow, error) {
	var (
		row    PresenceRow
		inCall int
		ms     int64
	)
	query := `SELECT user_id, in_call, last_update FROM presence WHERE user_id = ?`
	err := db.QueryRowContext(ctx, query, userID).Scan(&row.UserID, &inCall, &ms)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	row.InCall = inCall != 0
	row.LastUpdate = time.UnixMilli(ms)
	return &row, nil
}

// GetManual returns the manual override, or nil if the slot is empty.
func GetManual(ctx context.Context, db *sql.DB) (*ManualRow, error) {
	var (
		row ManualRow
		ms  int64
	)
	err := db.QueryRowContext(ctx, `SELECT emoji, label, time FROM manual_activity WHERE id = 1`).
		Scan(&row.Emoji, &row.Label, &ms)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	row.Time = time.UnixMilli(ms)
	return &row, nil
}

// SetManual replaces the manual override unconditionally.
func SetManual(ctx context.Context, db *sql.DB, emoji, label string, at time.Time) error {
	query := `
		INSERT INTO manual_activity (id, emoji, label, time) VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			emoji = excluded.emoji,
			label = excluded.label,
			time = excluded.time
	`
	if _, err := db.ExecContext(ctx, query, emoji, label, at.UnixMilli()); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// ClearManual empties the manual override slot. Clearing an empty slot is a no-op.
// Returns true if a row was removed.
func ClearManual(ctx context.Context, db *sql.DB) (bool, error) {
	result, err := db.ExecContext(ctx, `DELETE FROM manual_activity`)
	if err != nil {
		return false, errors.NewInternal(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, errors.NewInternal(err)
	}
	return n > 0, nil
}

// InsertActivity appends a history entry.
func InsertActivity(ctx context.Context, db *sql.DB, e activity.Entry) error {
	query := `INSERT INTO activities (id, emoji, label, time) VALUES (?, ?, ?, ?)`
	if _, err := db.ExecContext(ctx, query, e.ID, e.Emoji, e.Label, e.Time.UnixMilli()); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetLatestActivity returns the newest history entry, or nil if history is empty.
func GetLatestActivity(ctx context.Context, db *sql.DB) (*activity.Entry, error) {
	query := `
		SELECT id, emoji, label, time
		FROM activities
		ORDER BY time DESC, id DESC
		LIMIT 1
	`
	var (
		e  activity.Entry
		ms int64
	)
	err := db.QueryRowContext(ctx, query).Scan(&e.ID, &e.Emoji, &e.Label, &ms)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	e.Time = time.UnixMilli(ms)
	return &e, nil
}

// ListActivities returns history entries newest-first.
func ListActivities(ctx context.Context, db *sql.DB, limit, offset int) ([]activity.Entry, error) {
	query := `
		SELECT id, emoji, label, time
		FROM activities
		ORDER BY time DESC, id DESC
		LIMIT ? OFFSET ?
	`
	rows, err := db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	entries := make([]activity.Entry, 0)
	for rows.Next() {
		var (
			e  activity.Entry
			ms int64
		)
		if err := rows.Scan(&e.ID, &e.Emoji, &e.Label, &ms); err != nil {
			return nil, errors.NewInternal(err)
		}
		e.Time = time.UnixMilli(ms)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return entries, nil
}

// CountActivities returns the number of history entries.
func CountActivities(ctx context.Context, db *sql.DB) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM activities`).Scan(&n); err != nil {
		return 0, errors.NewInternal(err)
	}
	return n, nil
}

// GetOAuthToken returns the cached access token for a refresh token, or nil.
func GetOAuthToken(ctx context.Context, db *sql.DB, refreshToken string) (*TokenRow, error) {
	var (
		row TokenRow
		ms  int64
	)
	query := `SELECT refresh_token, access_token, token_type, expiry FROM oauth_tokens WHERE refresh_token = ?`
	err := db.QueryRowContext(ctx, query, refreshToken).Scan(&row.RefreshToken, &row.AccessToken, &row.TokenType, &ms)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	row.Expiry = time.UnixMilli(ms)
	return &row, nil
}

// UpsertOAuthToken caches an access token under its refresh token.
func UpsertOAuthToken(ctx context.Context, db *sql.DB, row TokenRow) error {
	query := `
		INSERT INTO oauth_tokens (refresh_token, access_token, token_type, expiry) VALUES (?, ?, ?, ?)
		ON CONFLICT(refresh_token) DO UPDATE SET
			access_token = excluded.access_token,
			token_type = excluded.token_type,
			expiry = excluded.expiry
	`
	_, err := db.ExecContext(ctx, query, row.RefreshToken, row.AccessToken, row.TokenType, row.Expiry.UnixMilli())
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

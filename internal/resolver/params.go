package resolver

import (
	"fmt"
	"time"

	"github.com/hpungsan/stalker/internal/config"
)

// Params holds the thresholds the cascade is evaluated against.
type Params struct {
	// PingFreshness is the age below which a device counts as in use.
	PingFreshness time.Duration

	// SleepExpiration is the ping silence that suggests sleep.
	SleepExpiration time.Duration

	// SleepDelay rejects pings that raced a sleep override's creation.
	SleepDelay time.Duration

	// QuietStart and QuietEnd are inclusive hours in QuietZone.
	// A start after end wraps past midnight.
	QuietStart int
	QuietEnd   int
	QuietZone  *time.Location
}

// DefaultParams returns the built-in thresholds.
func DefaultParams() Params {
	return Params{
		PingFreshness:   2 * time.Minute,
		SleepExpiration: time.Hour,
		SleepDelay:      6 * time.Minute,
		QuietStart:      3,
		QuietEnd:        12,
		QuietZone:       time.UTC,
	}
}

// ParamsFromConfig reads thresholds from cfg.
func ParamsFromConfig(cfg *config.Config) (Params, error) {
	loc, err := cfg.QuietLocation()
	if err != nil {
		return Params{}, fmt.Errorf("quiet_hours_zone: %w", err)
	}
	p := DefaultParams()
	p.PingFreshness = cfg.PingFreshness()
	p.SleepExpiration = cfg.SleepExpiration()
	p.SleepDelay = cfg.SleepDelay()
	p.QuietZone = loc
	if cfg.QuietHoursStart != nil {
		p.QuietStart = *cfg.QuietHoursStart
	}
	if cfg.QuietHoursEnd != nil {
		p.QuietEnd = *cfg.QuietHoursEnd
	}
	if p.QuietStart < 0 || p.QuietStart > 23 || p.QuietEnd < 0 || p.QuietEnd > 23 {
		return Params{}, fmt.Errorf("quiet hours must be within 0-23, got %d-%d", p.QuietStart, p.QuietEnd)
	}
	return p, nil
}

// InQuietHours reports whether t falls in the quiet window.
func (p Params) InQuietHours(t time.Time) bool {
	loc := p.QuietZone
	if loc == nil {
		loc = time.UTC
	}
	h := t.In(loc).Hour()
	if p.QuietStart <= p.QuietEnd {
		return h >= p.QuietStart && h <= p.QuietEnd
	}
	return h >= p.QuietStart || h <= p.QuietEnd
}

package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Source names used in schedules and disabled_sources.
const (
	SourceReservation = "reservation"
	SourceTracking    = "tracking"
	SourceMusic       = "music"
	SourceCalendar    = "calendar"
)

// KnownSources lists all pollable source names.
var KnownSources = []string{SourceReservation, SourceTracking, SourceMusic, SourceCalendar}

// Config holds application configuration.
type Config struct {
	// ListenAddr is the host:port the HTTP server binds to.
	ListenAddr string `json:"listen_addr"`

	// Timezone is the IANA zone that poll schedules are evaluated in.
	Timezone string `json:"timezone"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level"`

	// Schedules maps a source name to a cron spec with a leading seconds field.
	// Entries override the defaults per source.
	Schedules map[string]string `json:"schedules,omitempty"`

	// DisabledSources lists source names that are never polled.
	// Their facts keep the zero value. Unknown names are logged as warnings.
	DisabledSources []string `json:"disabled_sources,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// PingFreshnessSecs is how long a device heartbeat counts as recent.
	PingFreshnessSecs int `json:"ping_freshness_secs"`

	// AppsTTLSecs and DomainsTTLSecs bound the age of list entries per category.
	AppsTTLSecs    int `json:"apps_ttl_secs"`
	DomainsTTLSecs int `json:"domains_ttl_secs"`

	// PresenceTTLSecs is the age after which a presence webhook fact reads as absent.
	PresenceTTLSecs int `json:"presence_ttl_secs"`

	// SleepExpirationSecs is the ping silence after which sleep is assumed,
	// and below which a sleep override may end.
	SleepExpirationSecs int `json:"sleep_expiration_secs"`

	// SleepDelaySecs rejects pings that raced the sleep override's creation.
	SleepDelaySecs int `json:"sleep_delay_secs"`

	// QuietHoursStart and QuietHoursEnd bound the sleep window (inclusive hours, 0-23).
	// Pointers because hour 0 is a valid value.
	QuietHoursStart *int `json:"quiet_hours_start,omitempty"`
	QuietHoursEnd   *int `json:"quiet_hours_end,omitempty"`

	// QuietHoursZone is the IANA zone quiet hours are evaluated in.
	QuietHoursZone string `json:"quiet_hours_zone"`

	// NotifyQueueSize bounds pending status pushes.
	NotifyQueueSize int `json:"notify_queue_size"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`
}

// DefaultSchedules returns the default cron spec per source.
func DefaultSchedules() map[string]string {
	return map[string]string{
		SourceReservation: "10 */15 * * * *",
		SourceTracking:    "0 */5 * * * *",
		SourceMusic:       "*/10 * * * * *",
		SourceCalendar:    "10 */15 * * * *",
	}
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	start, end := 3, 12
	return &Config{
		ListenAddr:          "127.0.0.1:3000",
		Timezone:            "America/New_York",
		LogLevel:            "info",
		Schedules:           DefaultSchedules(),
		PingFreshnessSecs:   120,
		AppsTTLSecs:         120,
		DomainsTTLSecs:      120,
		PresenceTTLSecs:     12 * 60 * 60,
		SleepExpirationSecs: 60 * 60,
		SleepDelaySecs:      6 * 60,
		QuietHoursStart:     &start,
		QuietHoursEnd:       &end,
		QuietHoursZone:      "UTC",
		NotifyQueueSize:     16,
	}
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.stalker.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFileRaw(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; maps merge per key;
// arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.ListenAddr = firstString(overlay.ListenAddr, base.ListenAddr)
	result.Timezone = firstString(overlay.Timezone, base.Timezone)
	result.LogLevel = firstString(overlay.LogLevel, base.LogLevel)
	result.QuietHoursZone = firstString(overlay.QuietHoursZone, base.QuietHoursZone)

	result.PingFreshnessSecs = firstInt(overlay.PingFreshnessSecs, base.PingFreshnessSecs)
	result.AppsTTLSecs = firstInt(overlay.AppsTTLSecs, base.AppsTTLSecs)
	result.DomainsTTLSecs = firstInt(overlay.DomainsTTLSecs, base.DomainsTTLSecs)
	result.PresenceTTLSecs = firstInt(overlay.PresenceTTLSecs, base.PresenceTTLSecs)
	result.SleepExpirationSecs = firstInt(overlay.SleepExpirationSecs, base.SleepExpirationSecs)
	result.SleepDelaySecs = firstInt(overlay.SleepDelaySecs, base.SleepDelaySecs)
	result.NotifyQueueSize = firstInt(overlay.NotifyQueueSize, base.NotifyQueueSize)
	result.DBMaxOpenConns = firstInt(overlay.DBMaxOpenConns, base.DBMaxOpenConns)
	result.DBMaxIdleConns = firstInt(overlay.DBMaxIdleConns, base.DBMaxIdleConns)

	result.QuietHoursStart = base.QuietHoursStart
	if overlay.QuietHoursStart != nil {
		result.QuietHoursStart = overlay.QuietHoursStart
	}
	result.QuietHoursEnd = base.QuietHoursEnd
	if overlay.QuietHoursEnd != nil {
		result.QuietHoursEnd = overlay.QuietHoursEnd
	}

	if len(base.Schedules) > 0 || len(overlay.Schedules) > 0 {
		result.Schedules = make(map[string]string, len(base.Schedules)+len(overlay.Schedules))
		for k, v := range base.Schedules {
			result.Schedules[k] = v
		}
		for k, v := range overlay.Schedules {
			if strings.TrimSpace(v) != "" {
				result.Schedules[k] = v
			}
		}
	}

	result.DisabledSources = mergeStringSlice(base.DisabledSources, overlay.DisabledSources)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

// SourceEnabled reports whether name is not listed in DisabledSources.
func (c *Config) SourceEnabled(name string) bool {
	for _, s := range c.DisabledSources {
		if s == name {
			return false
		}
	}
	return true
}

// UnknownSources returns entries of DisabledSources that name no known source.
func (c *Config) UnknownSources() []string {
	known := make(map[string]bool, len(KnownSources))
	for _, s := range KnownSources {
		known[s] = true
	}
	unknown := make([]string, 0)
	for _, s := range c.DisabledSources {
		if !known[s] {
			unknown = append(unknown, s)
		}
	}
	return unknown
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// QuietLocation resolves QuietHoursZone.
func (c *Config) QuietLocation() (*time.Location, error) {
	return time.LoadLocation(c.QuietHoursZone)
}

func (c *Config) PingFreshness() time.Duration   { return secs(c.PingFreshnessSecs) }
func (c *Config) AppsTTL() time.Duration         { return secs(c.AppsTTLSecs) }
func (c *Config) DomainsTTL() time.Duration      { return secs(c.DomainsTTLSecs) }
func (c *Config) PresenceTTL() time.Duration     { return secs(c.PresenceTTLSecs) }
func (c *Config) SleepExpiration() time.Duration { return secs(c.SleepExpirationSecs) }
func (c *Config) SleepDelay() time.Duration      { return secs(c.SleepDelaySecs) }

func secs(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func firstString(overlay, base string) string {
	if overlay != "" {
		return overlay
	}
	return base
}

func firstInt(overlay, base int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range a {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	for _, s := range b {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}

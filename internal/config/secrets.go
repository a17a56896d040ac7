package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every secret environment variable (STALKER_PASSWORD, ...).
const EnvPrefix = "STALKER"

// Secrets holds credentials. They never live in config.json.
type Secrets struct {
	Password string

	SlackToken string

	FSPUsername   string
	FSPPassword   string
	FSPOperatorID int

	TogglAPIKey string

	LastfmUsername string
	LastfmAPIKey   string

	CalendarID           string
	CalendarRefreshToken string
	CalendarClientID     string
	CalendarClientSecret string

	ZoomUserID            string
	ZoomVerificationToken string
	ZoomSecretToken       string
}

// requiredBySource names the secret keys each source needs.
var requiredBySource = map[string][]string{
	SourceReservation: {"fsp_username", "fsp_password", "fsp_operator_id"},
	SourceTracking:    {"toggl_api_key"},
	SourceMusic:       {"lastfm_username", "lastfm_api_key"},
	SourceCalendar:    {"calendar_id", "calendar_refresh_token", "calendar_client_id", "calendar_client_secret"},
}

// LoadSecrets reads secrets from baseDir/secrets.env (optional) with
// STALKER_-prefixed environment variables taking precedence.
func LoadSecrets(v *viper.Viper, baseDir string) (*Secrets, error) {
	if v == nil {
		v = viper.New()
	}

	envFile := filepath.Join(baseDir, "secrets.env")
	if _, err := os.Stat(envFile); err == nil {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read %s: %w", envFile, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	return &Secrets{
		Password:              v.GetString("password"),
		SlackToken:            v.GetString("slack_token"),
		FSPUsername:           v.GetString("fsp_username"),
		FSPPassword:           v.GetString("fsp_password"),
		FSPOperatorID:         v.GetInt("fsp_operator_id"),
		TogglAPIKey:           v.GetString("toggl_api_key"),
		LastfmUsername:        v.GetString("lastfm_username"),
		LastfmAPIKey:          v.GetString("lastfm_api_key"),
		CalendarID:            v.GetString("calendar_id"),
		CalendarRefreshToken:  v.GetString("calendar_refresh_token"),
		CalendarClientID:      v.GetString("calendar_client_id"),
		CalendarClientSecret:  v.GetString("calendar_client_secret"),
		ZoomUserID:            strings.ToLower(v.GetString("zoom_user_id")),
		ZoomVerificationToken: v.GetString("zoom_verification_token"),
		ZoomSecretToken:       v.GetString("zoom_secret_token"),
	}, nil
}

// Validate checks that the password and every secret needed by an enabled
// source are present. The error lists the missing variables.
func (s *Secrets) Validate(cfg *Config) error {
	present := s.values()
	missing := make([]string, 0)

	if s.Password == "" {
		missing = append(missing, envName("password"))
	}
	for _, source := range KnownSources {
		if !cfg.SourceEnabled(source) {
			continue
		}
		for _, key := range requiredBySource[source] {
			if present[key] == "" {
				missing = append(missing, envName(key))
			}
		}
	}

	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return fmt.Errorf("missing secrets: %s", strings.Join(missing, ", "))
}

func (s *Secrets) values() map[string]string {
	operator := ""
	if s.FSPOperatorID != 0 {
		operator = fmt.Sprint(s.FSPOperatorID)
	}
	return map[string]string{
		"fsp_username":           s.FSPUsername,
		"fsp_password":           s.FSPPassword,
		"fsp_operator_id":        operator,
		"toggl_api_key":          s.TogglAPIKey,
		"lastfm_username":        s.LastfmUsername,
		"lastfm_api_key":         s.LastfmAPIKey,
		"calendar_id":            s.CalendarID,
		"calendar_refresh_token": s.CalendarRefreshToken,
		"calendar_client_id":     s.CalendarClientID,
		"calendar_client_secret": s.CalendarClientSecret,
	}
}

func envName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(key)
}

package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/viper"

	"github.com/hpungsan/stalker/internal/blackboard"
	"github.com/hpungsan/stalker/internal/config"
	"github.com/hpungsan/stalker/internal/db"
	"github.com/hpungsan/stalker/internal/engine"
	"github.com/hpungsan/stalker/internal/history"
	"github.com/hpungsan/stalker/internal/mcp"
	"github.com/hpungsan/stalker/internal/notify"
	"github.com/hpungsan/stalker/internal/poll"
	"github.com/hpungsan/stalker/internal/resolver"
	"github.com/hpungsan/stalker/internal/sources"
	"github.com/hpungsan/stalker/internal/web"
)

// sourceTimeout bounds a single vendor request.
const sourceTimeout = 30 * time.Second

// newLogger returns a text logger on w at the named level.
func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return nil, fmt.Errorf("invalid log_level %q", level)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l})), nil
}

// runServe wires every component and serves until ctx is cancelled.
// Any failure before the first request is fatal.
func runServe(ctx context.Context, baseDir string) error {
	cfg, err := config.Load(baseDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := newLogger(os.Stderr, cfg.LogLevel)
	if err != nil {
		return err
	}

	secrets, err := config.LoadSecrets(viper.New(), baseDir)
	if err != nil {
		return fmt.Errorf("load secrets: %w", err)
	}
	if err := secrets.Validate(cfg); err != nil {
		return err
	}
	for _, name := range cfg.UnknownSources() {
		logger.Warn("unknown source in disabled_sources", "source", name)
	}
	if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		logger.Warn("unknown tools in disabled_tools", "tools", unknown)
	}

	database, err := db.Init(baseDir)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer database.Close()
	db.ConfigurePool(database, cfg)

	params, err := resolver.ParamsFromConfig(cfg)
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return fmt.Errorf("timezone: %w", err)
	}

	var sink notify.Sink = notify.LogSink{Logger: logger}
	if secrets.SlackToken != "" {
		sink = notify.NewSlackSink(secrets.SlackToken)
	} else {
		logger.Info("no slack token; status changes are only logged")
	}
	dispatcher := notify.NewDispatcher(sink, cfg.NotifyQueueSize, logger)
	dispatcher.Start()
	defer dispatcher.Close()

	eng := engine.New(
		blackboard.New(database, blackboard.TTLsFromConfig(cfg)),
		history.New(database),
		resolver.New(params),
		dispatcher,
		engine.Options{PresenceUserID: secrets.ZoomUserID, Logger: logger},
	)

	jobs, err := buildJobs(ctx, cfg, secrets, database)
	if err != nil {
		return err
	}
	scheduler, err := poll.NewScheduler(jobs, eng, loc, logger)
	if err != nil {
		return err
	}
	if err := scheduler.Baseline(ctx); err != nil {
		return fmt.Errorf("initial poll: %w", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	mcpServer := mcp.NewServer(eng, cfg.DisabledTools, Version)
	srv := web.NewServer(web.Deps{
		Engine: eng,
		Auth: web.Auth{
			Password:              secrets.Password,
			ZoomVerificationToken: secrets.ZoomVerificationToken,
			ZoomSecretToken:       secrets.ZoomSecretToken,
		},
		MCP:    mcp.NewHTTPHandler(mcpServer),
		Logger: logger,
	}, cfg.ListenAddr, Version)

	return web.Run(ctx, srv, logger)
}

// buildJobs creates a scheduled job for every enabled source.
func buildJobs(ctx context.Context, cfg *config.Config, secrets *config.Secrets, database *sql.DB) ([]poll.Job, error) {
	client, err := sources.NewHTTPClient(sourceTimeout)
	if err != nil {
		return nil, err
	}

	jobs := make([]poll.Job, 0, len(config.KnownSources))
	add := func(name string, src poll.Source) {
		jobs = append(jobs, poll.Job{Source: src, Spec: cfg.Schedules[name]})
	}

	if cfg.SourceEnabled(config.SourceReservation) {
		add(config.SourceReservation, sources.NewFSP(client, secrets.FSPOperatorID, secrets.FSPUsername, secrets.FSPPassword))
	}
	if cfg.SourceEnabled(config.SourceTracking) {
		add(config.SourceTracking, sources.NewToggl(client, secrets.TogglAPIKey))
	}
	if cfg.SourceEnabled(config.SourceMusic) {
		add(config.SourceMusic, sources.NewLastfm(client, secrets.LastfmUsername, secrets.LastfmAPIKey))
	}
	if cfg.SourceEnabled(config.SourceCalendar) {
		cal, err := sources.NewCalendar(ctx, client, database, sources.CalendarConfig{
			CalendarID:   secrets.CalendarID,
			ClientID:     secrets.CalendarClientID,
			ClientSecret: secrets.CalendarClientSecret,
			RefreshToken: secrets.CalendarRefreshToken,
		})
		if err != nil {
			return nil, fmt.Errorf("calendar: %w", err)
		}
		add(config.SourceCalendar, cal)
	}
	return jobs, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

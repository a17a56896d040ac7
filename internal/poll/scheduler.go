package poll

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"
)

// Source fetches one typed fact on demand.
type Source interface {
	Name() string
	Kind() Kind
	Fetch(ctx context.Context) (Fact, error)
}

// Sink receives successfully fetched facts. ApplyFacts applies a batch as one
// change.
type Sink interface {
	ApplyFact(ctx context.Context, f Fact) error
	ApplyFacts(ctx context.Context, facts []Fact) error
}

// Job pairs a source with its cron spec (seconds field first).
type Job struct {
	Source Source
	Spec   string
}

// Scheduler runs each source on its own cron schedule.
type Scheduler struct {
	cron    *cron.Cron
	jobs    []Job
	sink    Sink
	logger  *slog.Logger
	timeout time.Duration
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithFetchTimeout bounds each scheduled fetch.
func WithFetchTimeout(d time.Duration) Option {
	return func(s *Scheduler) { s.timeout = d }
}

// NewScheduler validates every spec and returns a scheduler that has not started.
func NewScheduler(jobs []Job, sink Sink, loc *time.Location, logger *slog.Logger, opts ...Option) (*Scheduler, error) {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "poll")

	s := &Scheduler{
		jobs:    jobs,
		sink:    sink,
		logger:  logger,
		timeout: time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.cron = cron.New(
		cron.WithSeconds(),
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{logger})),
	)
	for _, j := range jobs {
		j := j
		if _, err := s.cron.AddFunc(j.Spec, func() { s.run(j.Source) }); err != nil {
			return nil, fmt.Errorf("schedule %s %q: %w", j.Source.Name(), j.Spec, err)
		}
	}
	return s, nil
}

// Baseline fetches every source once concurrently. Any failure is returned and
// no fact is applied. On success every slot is handed to the sink in one batch.
func (s *Scheduler) Baseline(ctx context.Context) error {
	facts := make([]Fact, len(s.jobs))

	g, gctx := errgroup.WithContext(ctx)
	for i, j := range s.jobs {
		i, src := i, j.Source
		g.Go(func() error {
			f, err := src.Fetch(gctx)
			if err != nil {
				return fmt.Errorf("baseline %s: %w", src.Name(), err)
			}
			facts[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := s.sink.ApplyFacts(ctx, facts); err != nil {
		return fmt.Errorf("apply baseline: %w", err)
	}
	return nil
}

// Start begins the schedules. It does not block.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the schedules and waits for running fetches to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// run performs one scheduled fetch. Failures keep the previous fact.
func (s *Scheduler) run(src Source) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	f, err := src.Fetch(ctx)
	if err != nil {
		s.logger.Error("poll failed", "source", src.Name(), "error", err)
		return
	}
	if f.Kind() != src.Kind() {
		s.logger.Error("poll returned wrong fact kind", "source", src.Name(), "want", src.Kind(), "got", f.Kind())
		return
	}
	if err := s.sink.ApplyFact(ctx, f); err != nil {
		s.logger.Error("apply fact failed", "source", src.Name(), "error", err)
		return
	}
	s.logger.Debug("polled", "source", src.Name(), "elapsed", time.Since(start))
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error(msg, append(keysAndValues, "error", err)...)
}

package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hpungsan/stalker/internal/activity"
)

const pushTimeout = 15 * time.Second

// Dispatcher pushes activities in order from a single worker.
// Enqueue never blocks; a full queue or a closed dispatcher drops the activity.
type Dispatcher struct {
	sink   Sink
	queue  chan activity.Activity
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

// NewDispatcher returns a dispatcher with room for size pending pushes.
func NewDispatcher(sink Sink, size int, logger *slog.Logger) *Dispatcher {
	if size < 1 {
		size = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		sink:   sink,
		queue:  make(chan activity.Activity, size),
		logger: logger.With("component", "notify"),
		done:   make(chan struct{}),
	}
}

// Start runs the worker until Close.
func (d *Dispatcher) Start() {
	go d.loop()
}

// Enqueue schedules a push. It reports false when the activity was dropped.
func (d *Dispatcher) Enqueue(a activity.Activity) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		d.logger.Warn("notify closed, dropping", "emoji", a.Emoji, "label", a.Label)
		return false
	}
	select {
	case d.queue <- a:
		return true
	default:
		d.logger.Warn("notify queue full, dropping", "emoji", a.Emoji, "label", a.Label)
		return false
	}
}

// Close stops accepting work and waits for queued pushes to finish.
// Start must have been called.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	<-d.done
}

func (d *Dispatcher) loop() {
	defer close(d.done)
	for a := range d.queue {
		d.push(a)
	}
}

// push never retries; the next change is the next chance.
func (d *Dispatcher) push(a activity.Activity) {
	ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
	defer cancel()
	if err := d.sink.Push(ctx, a); err != nil {
		d.logger.Warn("push failed", "emoji", a.Emoji, "error", err)
	}
}

package events

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// ErrSaturated is returned when the dispatcher buffer stays full past the handoff timeout.
var ErrSaturated = errors.New("event dispatcher is saturated")

var errDispatcherClosed = errors.New("event dispatcher closed")

// DispatcherConfig sizes the worker pool.
type DispatcherConfig struct {
	Workers        int
	Buffer         int
	PublishTimeout time.Duration
	HandoffTimeout time.Duration
}

func (c DispatcherConfig) withDefaults() DispatcherConfig {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.Buffer <= 0 {
		c.Buffer = c.Workers * 64
	}
	if c.PublishTimeout <= 0 {
		c.PublishTimeout = 10 * time.Second
	}
	if c.HandoffTimeout < 0 {
		c.HandoffTimeout = 0
	}
	return c
}

// Dispatcher hands events to a downstream publisher from a bounded pool of
// workers so callers never wait on the network. Delivery is best effort.
type Dispatcher struct {
	cfg    DispatcherConfig
	next   Publisher
	logger *log.Logger

	mu     sync.RWMutex
	jobs   chan Event
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher starts the workers.
func NewDispatcher(next Publisher, cfg DispatcherConfig, logger *log.Logger) *Dispatcher {
	if next == nil {
		panic("events.NewDispatcher: publisher is nil")
	}
	if logger == nil {
		panic("events.NewDispatcher: logger is nil")
	}
	cfg = cfg.withDefaults()
	d := &Dispatcher{
		cfg:    cfg,
		next:   next,
		logger: logger,
		jobs:   make(chan Event, cfg.Buffer),
	}
	for i := 0; i < cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
	logger.Infof("event dispatcher started, workers: %d, buffer: %d, handoff: %v", cfg.Workers, cfg.Buffer, cfg.HandoffTimeout)
	return d
}

// Publish queues the event. It waits at most the handoff timeout for buffer
// space and drops the event with ErrSaturated otherwise.
func (d *Dispatcher) Publish(ctx context.Context, ev Event) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return errDispatcherClosed
	}

	select {
	case d.jobs <- ev:
		return nil
	default:
	}
	if d.cfg.HandoffTimeout == 0 {
		d.dropped(ev)
		return ErrSaturated
	}

	timer := time.NewTimer(d.cfg.HandoffTimeout)
	defer timer.Stop()
	select {
	case d.jobs <- ev:
		return nil
	case <-timer.C:
		d.dropped(ev)
		return ErrSaturated
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting events and waits for queued ones to be delivered.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.jobs)
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()
	for ev := range d.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), d.cfg.PublishTimeout)
		err := d.next.Publish(ctx, ev)
		cancel()
		if err != nil {
			d.logger.WithError(err).WithFields(log.Fields{
				"event":  ev.Type,
				"user":   ev.UserID,
				"worker": id,
			}).Error("event publish failed")
		}
	}
}

func (d *Dispatcher) dropped(ev Event) {
	d.logger.WithFields(log.Fields{"event": ev.Type, "user": ev.UserID}).Warn("event buffer saturated; dropping event")
}

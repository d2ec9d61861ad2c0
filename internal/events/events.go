// Package events publishes simulation lifecycle notifications.
package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

type Type string

const (
	SimulationStarted   Type = "simulation.started"
	SimulationCompleted Type = "simulation.completed"
	SimulationFailed    Type = "simulation.failed"
)

// Event is a lifecycle notification. SimulationID is empty on a started
// event and on failures that happen before the clone exists. Result carries
// the full simulation result on a completed event.
type Event struct {
	Type           Type           `json:"type"`
	SimulationID   string         `json:"simulationId,omitempty"`
	BaseScheduleID string         `json:"baseScheduleId"`
	ScenarioName   string         `json:"scenarioName"`
	ScenarioType   string         `json:"scenarioType"`
	At             time.Time      `json:"at"`
	Error          string         `json:"error,omitempty"`
	Fields         map[string]any `json:"fields,omitempty"`
	Result         any            `json:"result,omitempty"`
}

// Sink receives events. Publish must not block the caller for long and does
// not report delivery failures.
type Sink interface {
	Publish(ctx context.Context, e Event)
}

// Noop discards every event.
type Noop struct{}

func (Noop) Publish(context.Context, Event) {}

// LogSink writes events as structured log records.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Publish(ctx context.Context, e Event) {
	attrs := []any{
		"event", string(e.Type),
		"base_schedule_id", e.BaseScheduleID,
		"scenario", e.ScenarioName,
		"scenario_type", e.ScenarioType,
	}
	if e.SimulationID != "" {
		attrs = append(attrs, "simulation_id", e.SimulationID)
	}
	for k, v := range e.Fields {
		attrs = append(attrs, k, v)
	}
	if e.Error != "" {
		attrs = append(attrs, "error", e.Error)
		s.logger.WarnContext(ctx, "simulation_event", attrs...)
		return
	}
	s.logger.InfoContext(ctx, "simulation_event", attrs...)
}

// Multi fans an event out to every sink in order.
type Multi []Sink

func (m Multi) Publish(ctx context.Context, e Event) {
	for _, s := range m {
		if s != nil {
			s.Publish(ctx, e)
		}
	}
}

// ErrClosed is returned by Close when the sink was already closed.
var ErrClosed = errors.New("events: sink closed")

// AsyncSink hands events to a background goroutine through a bounded
// buffer. When the buffer is full the event is dropped and a warning is
// logged; Publish never waits for the downstream sink.
type AsyncSink struct {
	next   Sink
	logger *slog.Logger
	ch     chan Event
	done   chan struct{}

	// mu guards closed so Publish never sends on a closed channel.
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
}

// NewAsyncSink starts the delivery goroutine. Call Close to drain it.
func NewAsyncSink(next Sink, buffer int, logger *slog.Logger) *AsyncSink {
	if buffer < 1 {
		buffer = 1
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &AsyncSink{
		next:   next,
		logger: logger,
		ch:     make(chan Event, buffer),
		done:   make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *AsyncSink) run() {
	defer close(s.done)
	for e := range s.ch {
		s.next.Publish(context.Background(), e)
	}
}

func (s *AsyncSink) Publish(ctx context.Context, e Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.logger.WarnContext(ctx, "event dropped, sink closed", "event", string(e.Type))
		return
	}
	select {
	case s.ch <- e:
	default:
		s.logger.WarnContext(ctx, "event dropped, buffer full", "event", string(e.Type), "simulation_id", e.SimulationID)
		s.dropped.Add(1)
	}
}

// Dropped reports how many events were discarded because the buffer was full.
func (s *AsyncSink) Dropped() int {
	return int(s.dropped.Load())
}

// Close stops accepting events and waits until buffered events are
// delivered or ctx is done.
func (s *AsyncSink) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.closed = true
	close(s.ch)
	s.mu.Unlock()

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rickgao/opensky2cot/internal/connection"
	"github.com/rickgao/opensky2cot/internal/cot"
	"github.com/rickgao/opensky2cot/internal/model"
)

const tracerName = "github.com/rickgao/opensky2cot/internal/poller"

// StateSource provides the current state vectors.
type StateSource interface {
	FetchStates(ctx context.Context) ([]model.StateVector, error)
}

// Transport delivers encoded events to the TAK server.
type Transport interface {
	Connect() error
	IsConnected() bool
	Send(data []byte) error
	Close() error
	Endpoint() string
}

// Recorder receives per-cycle accounting. Implementations must be safe for
// concurrent use.
type Recorder interface {
	RecordPoll(result string, d time.Duration) // ok, deferred or fetch_error
	RecordStates(n int)
	RecordSent()
	RecordSendError()
	RecordSkip(reason string)
}

type nopRecorder struct{}

func (nopRecorder) RecordPoll(string, time.Duration) {}
func (nopRecorder) RecordStates(int)                 {}
func (nopRecorder) RecordSent()                      {}
func (nopRecorder) RecordSendError()                 {}
func (nopRecorder) RecordSkip(string)                {}

// Config holds poller configuration.
type Config struct {
	Interval     time.Duration // Poll interval (default: 3s)
	FetchTimeout time.Duration // Per-fetch timeout (default: 10s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval:     3 * time.Second,
		FetchTimeout: 10 * time.Second,
	}
}

// Stats is a snapshot of poller activity since start.
type Stats struct {
	Polls       int64     `json:"polls"`
	Deferred    int64     `json:"deferred"`
	FetchErrors int64     `json:"fetch_errors"`
	Sent        int64     `json:"sent"`
	Skipped     int64     `json:"skipped"`
	SendErrors  int64     `json:"send_errors"`
	LastPollAt  time.Time `json:"last_poll_at,omitzero"` // Last completed fetch
}

// Poller periodically fetches state vectors and forwards them as CoT events.
type Poller struct {
	cfg       Config
	source    StateSource
	transport Transport
	mapper    cot.Mapper
	logger    *slog.Logger
	recorder  Recorder
	tracer    trace.Tracer

	mu    sync.Mutex
	stats Stats
}

// Option configures a Poller.
type Option func(*Poller)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Poller) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithRecorder reports cycle accounting to r.
func WithRecorder(r Recorder) Option {
	return func(p *Poller) {
		if r != nil {
			p.recorder = r
		}
	}
}

// New creates a new Poller.
func New(cfg Config, source StateSource, transport Transport, mapper cot.Mapper, opts ...Option) *Poller {
	defaults := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = defaults.Interval
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = defaults.FetchTimeout
	}

	p := &Poller{
		cfg:       cfg,
		source:    source,
		transport: transport,
		mapper:    mapper,
		logger:    slog.Default(),
		recorder:  nopRecorder{},
		tracer:    otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run connects the transport once and polls until ctx is cancelled.
// The transport is always closed on return.
func (p *Poller) Run(ctx context.Context) error {
	defer func() {
		if err := p.transport.Close(); err != nil {
			p.logger.Warn("close transport failed", "error", err)
		}
	}()

	if err := p.transport.Connect(); err != nil {
		return fmt.Errorf("connect transport: %w", err)
	}

	p.logger.Info("poller started",
		"interval", p.cfg.Interval,
		"fetch_timeout", p.cfg.FetchTimeout,
		"endpoint", p.transport.Endpoint(),
	)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("poller stopped")
			return ctx.Err()
		case <-timer.C:
		}

		p.poll(ctx)
		timer.Reset(p.cfg.Interval)
	}
}

// Stats returns a snapshot of the counters.
func (p *Poller) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// poll runs one cycle.
func (p *Poller) poll(ctx context.Context) {
	start := time.Now()

	ctx, span := p.tracer.Start(ctx, "poller.cycle",
		trace.WithAttributes(attribute.String("cot.endpoint", p.transport.Endpoint())),
	)
	defer span.End()

	if !p.transport.IsConnected() {
		p.logger.Info("transport not connected, deferring poll",
			"endpoint", p.transport.Endpoint(),
		)
		p.update(func(s *Stats) { s.Deferred++ })
		p.recorder.RecordPoll("deferred", time.Since(start))
		span.SetAttributes(attribute.Bool("poll.deferred", true))
		return
	}

	fetchCtx, cancel := context.WithTimeout(ctx, p.cfg.FetchTimeout)
	states, err := p.source.FetchStates(fetchCtx)
	cancel()
	if err != nil {
		p.logger.Error("fetch states failed", "error", err)
		p.update(func(s *Stats) { s.FetchErrors++ })
		p.recorder.RecordPoll("fetch_error", time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch states failed")
		return
	}
	p.recorder.RecordStates(len(states))

	var sent, skipped, failed int64
	for _, sv := range states {
		if ctx.Err() != nil {
			break
		}

		err := p.publish(sv)
		var skipErr *cot.SkipError
		switch {
		case err == nil:
			sent++
			p.recorder.RecordSent()
		case errors.As(err, &skipErr):
			skipped++
			p.recorder.RecordSkip(skipErr.Reason)
			p.logger.Debug("skipping state vector",
				"icao24", sv.EntityID,
				"reason", skipErr.Reason,
			)
		default:
			failed++
			p.recorder.RecordSendError()
			if errors.Is(err, connection.ErrNotConnected) {
				p.logger.Debug("dropping event, transport down", "icao24", sv.EntityID)
			} else {
				p.logger.Warn("failed to publish event",
					"icao24", sv.EntityID,
					"error", err,
				)
			}
		}
	}

	duration := time.Since(start)
	p.update(func(s *Stats) {
		s.Polls++
		s.Sent += sent
		s.Skipped += skipped
		s.SendErrors += failed
		s.LastPollAt = start
	})
	p.recorder.RecordPoll("ok", duration)
	span.SetAttributes(
		attribute.Int("poll.fetched", len(states)),
		attribute.Int64("poll.sent", sent),
		attribute.Int64("poll.skipped", skipped),
		attribute.Int64("poll.failed", failed),
	)

	p.logger.Info("poll cycle complete",
		"fetched", len(states),
		"sent", sent,
		"skipped", skipped,
		"failed", failed,
		"duration", duration,
	)
}

// publish maps, encodes and sends one state vector.
func (p *Poller) publish(sv model.StateVector) error {
	event, err := p.mapper.Map(sv)
	if err != nil {
		return err
	}

	data, err := event.Encode()
	if err != nil {
		return err
	}

	if err := p.transport.Send(data); err != nil {
		return fmt.Errorf("send %s: %w", event.UID, err)
	}
	return nil
}

func (p *Poller) update(fn func(*Stats)) {
	p.mu.Lock()
	fn(&p.stats)
	p.mu.Unlock()
}

package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "opensky2cot"

// Collector bundles the bridge's Prometheus metrics. It satisfies both
// poller.Recorder and connection.Recorder. A nil *Collector records nothing.
type Collector struct {
	gatherer prometheus.Gatherer

	Polls         *prometheus.CounterVec
	PollDurations *prometheus.HistogramVec
	StatesFetched prometheus.Counter
	EventsSent    prometheus.Counter
	SendErrors    prometheus.Counter
	Skips         *prometheus.CounterVec

	ConnectAttempts *prometheus.CounterVec
	Disconnects     *prometheus.CounterVec
	Connected       prometheus.Gauge
}

// NewCollector registers the metrics against reg, defaulting to the global
// Prometheus registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	c := &Collector{gatherer: gatherer}
	var err error

	if c.Polls, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "polls_total",
		Help:      "Poll cycles, labeled by result (ok, deferred, fetch_error).",
	}, []string{"result"})); err != nil {
		return nil, err
	}
	if c.PollDurations, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "poll_duration_seconds",
		Help:      "Poll cycle duration in seconds, labeled by result.",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"result"})); err != nil {
		return nil, err
	}
	if c.StatesFetched, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "states_fetched_total",
		Help:      "State vectors returned by the feed.",
	})); err != nil {
		return nil, err
	}
	if c.EventsSent, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_sent_total",
		Help:      "CoT events written to the TAK server.",
	})); err != nil {
		return nil, err
	}
	if c.SendErrors, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "send_errors_total",
		Help:      "CoT events that could not be encoded or written.",
	})); err != nil {
		return nil, err
	}
	if c.Skips, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "skipped_states_total",
		Help:      "State vectors skipped, labeled by reason.",
	}, []string{"reason"})); err != nil {
		return nil, err
	}
	if c.ConnectAttempts, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "connect_attempts_total",
		Help:      "TAK connect attempts, labeled by success.",
	}, []string{"success"})); err != nil {
		return nil, err
	}
	if c.Disconnects, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "disconnects_total",
		Help:      "TAK connections lost, labeled by reason.",
	}, []string{"reason"})); err != nil {
		return nil, err
	}
	if c.Connected, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "connected",
		Help:      "1 while the TAK connection is up.",
	})); err != nil {
		return nil, err
	}

	return c, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// RecordPoll counts a finished cycle and observes its duration.
func (c *Collector) RecordPoll(result string, d time.Duration) {
	if c == nil {
		return
	}
	c.Polls.WithLabelValues(result).Inc()
	c.PollDurations.WithLabelValues(result).Observe(d.Seconds())
}

// RecordStates adds n fetched state vectors.
func (c *Collector) RecordStates(n int) {
	if c == nil {
		return
	}
	c.StatesFetched.Add(float64(n))
}

// RecordSent counts one delivered event.
func (c *Collector) RecordSent() {
	if c == nil {
		return
	}
	c.EventsSent.Inc()
}

// RecordSendError counts one undelivered event.
func (c *Collector) RecordSendError() {
	if c == nil {
		return
	}
	c.SendErrors.Inc()
}

// RecordSkip counts one skipped state vector.
func (c *Collector) RecordSkip(reason string) {
	if c == nil {
		return
	}
	c.Skips.WithLabelValues(reason).Inc()
}

// RecordConnectAttempt counts a dial result.
func (c *Collector) RecordConnectAttempt(success bool) {
	if c == nil {
		return
	}
	c.ConnectAttempts.WithLabelValues(strconv.FormatBool(success)).Inc()
}

// RecordDisconnect counts a lost connection.
func (c *Collector) RecordDisconnect(reason string) {
	if c == nil {
		return
	}
	c.Disconnects.WithLabelValues(reason).Inc()
}

// SetConnected updates the connected gauge.
func (c *Collector) SetConnected(connected bool) {
	if c == nil {
		return
	}
	if connected {
		c.Connected.Set(1)
	} else {
		c.Connected.Set(0)
	}
}

// register adds col to reg, returning the existing collector when an
// identical one is already registered.
func register[T prometheus.Collector](reg prometheus.Registerer, col T) (T, error) {
	if err := reg.Register(col); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
			var zero T
			return zero, fmt.Errorf("collector %T already registered with incompatible type", col)
		}
		var zero T
		return zero, err
	}
	return col, nil
}

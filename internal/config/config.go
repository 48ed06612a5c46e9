package config

import "time"

// Config is the root configuration for the bridge.
type Config struct {
	CoT     CoTConfig     `yaml:"cot"`
	OpenSky OpenSkyConfig `yaml:"opensky"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// CoTConfig holds the TAK endpoint and reconnect settings.
type CoTConfig struct {
	Address           string  `yaml:"address"`
	Port              int     `yaml:"port"`
	Protocol          string  `yaml:"protocol"` // tcp, ws or wss
	Path              string  `yaml:"path"`     // URL path for ws/wss
	Backoff           int     `yaml:"backoff"`  // Reconnect delay (ms)
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`
	MaxBackoff        int     `yaml:"max_backoff"` // ms, defaults to backoff (10x backoff with a multiplier)
	DialTimeout       int     `yaml:"dial_timeout"`
	WriteTimeout      int     `yaml:"write_timeout"`
	Keepalive         int     `yaml:"keepalive"` // Ping interval (ms), 0 disables
	UIDPrefix         string  `yaml:"uid_prefix"`
}

// OpenSkyConfig holds the telemetry feed settings.
type OpenSkyConfig struct {
	URL      string `yaml:"url"`
	Interval int    `yaml:"interval"` // Poll period (ms), also the marker stale offset
	Timeout  int    `yaml:"timeout"`  // Per-fetch timeout (ms)
	Retries  int    `yaml:"retries"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"` // Empty logs to stdout
}

// MetricsConfig holds the health and Prometheus endpoint settings.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Exporter    string  `yaml:"exporter"` // stdout or otlp
	Endpoint    string  `yaml:"endpoint"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// BackoffDuration returns the reconnect delay.
func (c CoTConfig) BackoffDuration() time.Duration { return millis(c.Backoff) }

// MaxBackoffDuration returns the reconnect delay cap.
func (c CoTConfig) MaxBackoffDuration() time.Duration { return millis(c.MaxBackoff) }

// DialTimeoutDuration returns the per-attempt dial timeout.
func (c CoTConfig) DialTimeoutDuration() time.Duration { return millis(c.DialTimeout) }

// WriteTimeoutDuration returns the write deadline.
func (c CoTConfig) WriteTimeoutDuration() time.Duration { return millis(c.WriteTimeout) }

// KeepaliveDuration returns the ping interval.
func (c CoTConfig) KeepaliveDuration() time.Duration { return millis(c.Keepalive) }

// IntervalDuration returns the poll period.
func (c OpenSkyConfig) IntervalDuration() time.Duration { return millis(c.Interval) }

// TimeoutDuration returns the per-fetch timeout.
func (c OpenSkyConfig) TimeoutDuration() time.Duration { return millis(c.Timeout) }

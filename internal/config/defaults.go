package config

// Default values for optional configuration fields.
const (
	DefaultCoTAddress        = "127.0.0.1"
	DefaultCoTPort           = 8087
	DefaultCoTProtocol       = "tcp"
	DefaultCoTPath           = "/"
	DefaultBackoff           = 300000
	DefaultBackoffMultiplier = 1.0
	DefaultMaxBackoffFactor  = 10
	DefaultDialTimeout       = 10000
	DefaultWriteTimeout      = 5000
	DefaultUIDPrefix         = "opensky"
	DefaultOpenSkyURL        = "https://opensky-network.org/api"
	DefaultPollInterval      = 3000
	DefaultFetchTimeout      = 10000
	DefaultFetchRetries      = 2
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "text"
	DefaultMetricsPort       = 9090
	DefaultTracingExporter   = "stdout"
	DefaultTracingEndpoint   = "localhost:4317"
	DefaultSampleRatio       = 1.0
)

// Default returns a configuration with every default applied.
func Default() *Config {
	return &Config{
		CoT: CoTConfig{
			Address:           DefaultCoTAddress,
			Port:              DefaultCoTPort,
			Protocol:          DefaultCoTProtocol,
			Path:              DefaultCoTPath,
			Backoff:           DefaultBackoff,
			BackoffMultiplier: DefaultBackoffMultiplier,
			DialTimeout:       DefaultDialTimeout,
			WriteTimeout:      DefaultWriteTimeout,
			UIDPrefix:         DefaultUIDPrefix,
		},
		OpenSky: OpenSkyConfig{
			URL:      DefaultOpenSkyURL,
			Interval: DefaultPollInterval,
			Timeout:  DefaultFetchTimeout,
			Retries:  DefaultFetchRetries,
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    DefaultMetricsPort,
		},
		Tracing: TracingConfig{
			Exporter:    DefaultTracingExporter,
			Endpoint:    DefaultTracingEndpoint,
			SampleRatio: DefaultSampleRatio,
		},
	}
}

// applyDerived fills values that default to other values.
func (c *Config) applyDerived() {
	if c.CoT.MaxBackoff == 0 {
		c.CoT.MaxBackoff = c.CoT.Backoff
		// Leave room for the multiplier to grow the delay.
		if c.CoT.BackoffMultiplier > 1 {
			c.CoT.MaxBackoff = c.CoT.Backoff * DefaultMaxBackoffFactor
		}
	}
	if c.CoT.Path == "" {
		c.CoT.Path = DefaultCoTPath
	}
}

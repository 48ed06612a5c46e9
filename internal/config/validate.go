package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if err := c.CoT.validate(); err != nil {
		return err
	}
	if err := c.OpenSky.validate(); err != nil {
		return err
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	if c.Metrics.Enabled && (c.Metrics.Port < 1 || c.Metrics.Port > 65535) {
		return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
	}

	if c.Tracing.Enabled {
		switch c.Tracing.Exporter {
		case "stdout", "otlp":
		default:
			return fmt.Errorf("tracing.exporter must be stdout or otlp, got %q", c.Tracing.Exporter)
		}
		if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
			return fmt.Errorf("tracing.sample_ratio must be between 0 and 1, got %v", c.Tracing.SampleRatio)
		}
	}

	return nil
}

func (c *CoTConfig) validate() error {
	if c.Address == "" {
		return errors.New("cot.address is required")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("cot.port must be between 1 and 65535, got %d", c.Port)
	}
	switch c.Protocol {
	case "tcp", "ws", "wss":
	default:
		return fmt.Errorf("cot.protocol must be tcp, ws or wss, got %q", c.Protocol)
	}
	if c.Backoff < 1 {
		return errors.New("cot.backoff must be >= 1")
	}
	if c.BackoffMultiplier < 1 {
		return fmt.Errorf("cot.backoff_multiplier must be >= 1, got %v", c.BackoffMultiplier)
	}
	if c.MaxBackoff < c.Backoff {
		return fmt.Errorf("cot.max_backoff (%d) cannot be less than cot.backoff (%d)", c.MaxBackoff, c.Backoff)
	}
	if c.DialTimeout < 1 {
		return errors.New("cot.dial_timeout must be >= 1")
	}
	if c.WriteTimeout < 1 {
		return errors.New("cot.write_timeout must be >= 1")
	}
	if c.Keepalive < 0 {
		return errors.New("cot.keepalive must be >= 0")
	}
	if c.UIDPrefix == "" {
		return errors.New("cot.uid_prefix is required")
	}
	return nil
}

func (c *OpenSkyConfig) validate() error {
	if c.URL == "" {
		return errors.New("opensky.url is required")
	}
	u, err := url.Parse(c.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("opensky.url must be an absolute URL, got %q", c.URL)
	}
	if c.Interval < 1 {
		return errors.New("opensky.interval must be >= 1")
	}
	if c.Timeout < 1 {
		return errors.New("opensky.timeout must be >= 1")
	}
	if c.Retries < 0 {
		return errors.New("opensky.retries must be >= 0")
	}
	return nil
}

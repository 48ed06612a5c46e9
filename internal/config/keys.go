package config

import (
	"fmt"
	"strconv"
)

// key binds one configuration value to its flag and environment names.
type key struct {
	name  string // flag name, also the dotted YAML path
	env   string
	usage string
	ptr   any // *string, *int, *float64 or *bool into a Config
}

func (c *Config) keys() []key {
	return []key{
		{"cot.address", "COT_ADDRESS", "TAK server host", &c.CoT.Address},
		{"cot.port", "COT_PORT", "TAK server port", &c.CoT.Port},
		{"cot.protocol", "COT_PROTOCOL", "transport: tcp, ws or wss", &c.CoT.Protocol},
		{"cot.path", "COT_PATH", "URL path for ws/wss", &c.CoT.Path},
		{"cot.backoff", "COT_BACKOFF", "reconnect delay (ms)", &c.CoT.Backoff},
		{"cot.backoff_multiplier", "COT_BACKOFF_MULTIPLIER", "reconnect delay growth factor", &c.CoT.BackoffMultiplier},
		{"cot.max_backoff", "COT_MAX_BACKOFF", "reconnect delay cap (ms)", &c.CoT.MaxBackoff},
		{"cot.dial_timeout", "COT_DIAL_TIMEOUT", "dial timeout (ms)", &c.CoT.DialTimeout},
		{"cot.write_timeout", "COT_WRITE_TIMEOUT", "write timeout (ms)", &c.CoT.WriteTimeout},
		{"cot.keepalive", "COT_KEEPALIVE", "ping interval (ms), 0 disables", &c.CoT.Keepalive},
		{"cot.uid_prefix", "COT_UID_PREFIX", "prefix for marker uids", &c.CoT.UIDPrefix},
		{"opensky.url", "OPENSKY_URL", "OpenSky API base URL", &c.OpenSky.URL},
		{"opensky.interval", "OPENSKY_INTERVAL", "poll interval (ms)", &c.OpenSky.Interval},
		{"opensky.timeout", "OPENSKY_TIMEOUT", "fetch timeout (ms)", &c.OpenSky.Timeout},
		{"opensky.retries", "OPENSKY_RETRIES", "fetch retries on 5xx/429", &c.OpenSky.Retries},
		{"opensky.username", "OPENSKY_USERNAME", "OpenSky account user", &c.OpenSky.Username},
		{"opensky.password", "OPENSKY_PASSWORD", "OpenSky account password", &c.OpenSky.Password},
		{"log.level", "LOG_LEVEL", "debug, info, warn or error", &c.Log.Level},
		{"log.format", "LOG_FORMAT", "text or json", &c.Log.Format},
		{"log.file", "LOG_FILE", "log file path (stdout if empty)", &c.Log.File},
		{"metrics.enabled", "METRICS_ENABLED", "serve /health and /metrics", &c.Metrics.Enabled},
		{"metrics.port", "METRICS_PORT", "health and metrics port", &c.Metrics.Port},
		{"tracing.enabled", "TRACING_ENABLED", "enable OpenTelemetry tracing", &c.Tracing.Enabled},
		{"tracing.exporter", "TRACING_EXPORTER", "stdout or otlp", &c.Tracing.Exporter},
		{"tracing.endpoint", "TRACING_ENDPOINT", "OTLP gRPC endpoint", &c.Tracing.Endpoint},
		{"tracing.sample_ratio", "TRACING_SAMPLE_RATIO", "trace sample ratio", &c.Tracing.SampleRatio},
	}
}

// set parses raw into the value k points at.
func (k key) set(raw string) error {
	switch p := k.ptr.(type) {
	case *string:
		*p = raw
	case *int:
		v, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%s: invalid integer %q", k.env, raw)
		}
		*p = v
	case *float64:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("%s: invalid number %q", k.env, raw)
		}
		*p = v
	case *bool:
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("%s: invalid boolean %q", k.env, raw)
		}
		*p = v
	default:
		return fmt.Errorf("%s: unsupported type %T", k.name, k.ptr)
	}
	return nil
}

package connection

import (
	"errors"
	"time"
)

// Errors
var (
	ErrNotConnected  = errors.New("not connected")
	ErrAlreadyClosed = errors.New("already closed")
)

// State is the lifecycle state of the stream.
type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

// Protocols accepted in Config.Protocol.
const (
	ProtocolTCP = "tcp"
	ProtocolWS  = "ws"
	ProtocolWSS = "wss"
)

// Config configures a Client.
type Config struct {
	Address  string // Host name or IP, resolved before each dial
	Port     int
	Protocol string // tcp (default), ws or wss
	Path     string // URL path for ws/wss

	Backoff           time.Duration // Delay before a reconnect attempt
	BackoffMultiplier float64       // > 1 grows the delay after each failure
	MaxBackoff        time.Duration // Cap for the grown delay (0 = no cap)

	DialTimeout  time.Duration
	WriteTimeout time.Duration

	KeepaliveInterval time.Duration          // 0 disables keepalives
	Keepalive         func() ([]byte, error) // Builds each keepalive message
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Address:           "127.0.0.1",
		Port:              8087,
		Protocol:          ProtocolTCP,
		Path:              "/",
		Backoff:           5 * time.Minute,
		BackoffMultiplier: 1,
		DialTimeout:       10 * time.Second,
		WriteTimeout:      5 * time.Second,
	}
}

// Recorder receives connection lifecycle events. Implementations must be
// safe for concurrent use.
type Recorder interface {
	RecordConnectAttempt(success bool)
	RecordDisconnect(reason string)
	SetConnected(connected bool)
}

type nopRecorder struct{}

func (nopRecorder) RecordConnectAttempt(bool) {}
func (nopRecorder) RecordDisconnect(string)   {}
func (nopRecorder) SetConnected(bool)         {}

package connection

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"
)

// Client maintains a single outbound stream and reconnects it on failure.
type Client struct {
	cfg      Config
	dialer   Dialer
	resolver Resolver
	logger   *slog.Logger
	recorder Recorder

	// State
	mu      sync.RWMutex
	state   State
	conn    net.Conn
	timer   *time.Timer // Pending reconnect
	backoff time.Duration
	closed  bool

	// Write serialization
	writeMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures a Client.
type Option func(*Client)

// WithDialer overrides the dialer chosen from Config.Protocol.
func WithDialer(d Dialer) Option {
	return func(c *Client) { c.dialer = d }
}

// WithResolver overrides net.DefaultResolver.
func WithResolver(r Resolver) Option {
	return func(c *Client) { c.resolver = r }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRecorder reports lifecycle events to r.
func WithRecorder(r Recorder) Option {
	return func(c *Client) {
		if r != nil {
			c.recorder = r
		}
	}
}

// NewClient creates a disconnected client. Call Connect to start dialing.
func NewClient(cfg Config, opts ...Option) *Client {
	if cfg.Protocol == "" {
		cfg.Protocol = ProtocolTCP
	}
	if cfg.Path == "" {
		cfg.Path = "/"
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		cfg:      cfg,
		resolver: net.DefaultResolver,
		logger:   slog.Default(),
		recorder: nopRecorder{},
		state:    Disconnected,
		backoff:  cfg.Backoff,
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.dialer == nil {
		switch cfg.Protocol {
		case ProtocolWS, ProtocolWSS:
			c.dialer = &WebSocketDialer{
				Scheme: cfg.Protocol,
				Host:   net.JoinHostPort(cfg.Address, strconv.Itoa(cfg.Port)),
				Path:   cfg.Path,
			}
		default:
			c.dialer = &TCPDialer{}
		}
	}
	c.logger = c.logger.With("endpoint", c.Endpoint())

	return c
}

// Endpoint returns the configured destination.
func (c *Client) Endpoint() string {
	hostPort := net.JoinHostPort(c.cfg.Address, strconv.Itoa(c.cfg.Port))
	switch c.cfg.Protocol {
	case ProtocolWS, ProtocolWSS:
		return c.cfg.Protocol + "://" + hostPort + c.cfg.Path
	default:
		return c.cfg.Protocol + "://" + hostPort
	}
}

// Connect starts dialing in the background and returns immediately.
// It is a no-op while connected, dialing, or waiting to reconnect.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrAlreadyClosed
	}
	if c.state != Disconnected || c.timer != nil {
		return nil
	}
	c.startDialLocked()
	return nil
}

// IsConnected reports whether the stream is currently usable.
func (c *Client) IsConnected() bool {
	return c.State() == Connected
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Send writes data to the stream. A write failure drops the connection,
// schedules a reconnect and returns the error.
func (c *Client) Send(data []byte) error {
	c.mu.RLock()
	conn := c.conn
	state := c.state
	c.mu.RUnlock()

	if state != Connected || conn == nil {
		return ErrNotConnected
	}

	if err := c.write(conn, data); err != nil {
		c.handleFailure(conn, "write", err)
		return fmt.Errorf("send to %s: %w", c.Endpoint(), err)
	}
	return nil
}

// Close releases the connection and cancels any pending reconnect or
// in-flight dial. It is safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.state = Disconnected
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	// Signal goroutines to stop
	c.cancel()

	var err error
	if conn != nil {
		err = conn.Close()
	}
	c.wg.Wait()

	c.recorder.SetConnected(false)
	c.logger.Info("transport closed")
	return err
}

// startDialLocked must be called with mu held.
func (c *Client) startDialLocked() {
	c.state = Connecting
	c.wg.Add(1)
	go c.dial()
}

// scheduleLocked arms the reconnect timer. Must be called with mu held.
func (c *Client) scheduleLocked(delay time.Duration) {
	c.timer = time.AfterFunc(delay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		c.timer = nil
		if c.closed || c.state != Disconnected {
			return
		}
		c.startDialLocked()
	})
}

// nextBackoffLocked returns the delay for the next reconnect and grows it
// when a multiplier is configured. Must be called with mu held.
func (c *Client) nextBackoffLocked() time.Duration {
	delay := c.backoff
	if c.cfg.BackoffMultiplier > 1 {
		next := time.Duration(float64(delay) * c.cfg.BackoffMultiplier)
		if c.cfg.MaxBackoff > 0 && next > c.cfg.MaxBackoff {
			next = c.cfg.MaxBackoff
		}
		c.backoff = next
	}
	return delay
}

func (c *Client) dial() {
	defer c.wg.Done()

	ctx := c.ctx
	if c.cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.DialTimeout)
		defer cancel()
	}

	c.logger.Debug("dialing")
	conn, err := c.dialOnce(ctx)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}

	if err != nil {
		c.state = Disconnected
		delay := c.nextBackoffLocked()
		c.scheduleLocked(delay)
		c.mu.Unlock()

		c.recorder.RecordConnectAttempt(false)
		c.logger.Warn("connect failed",
			"error", err,
			"retry_in", delay,
		)
		return
	}

	c.conn = conn
	c.state = Connected
	c.backoff = c.cfg.Backoff
	c.wg.Add(1)
	go c.readLoop(conn)
	if c.cfg.KeepaliveInterval > 0 && c.cfg.Keepalive != nil {
		c.wg.Add(1)
		go c.keepaliveLoop(conn)
	}
	c.mu.Unlock()

	c.recorder.RecordConnectAttempt(true)
	c.recorder.SetConnected(true)
	c.logger.Info("connected", "remote", conn.RemoteAddr().String())
}

// dialOnce resolves the host and dials the first address.
func (c *Client) dialOnce(ctx context.Context) (net.Conn, error) {
	addrs, err := c.resolver.LookupHost(ctx, c.cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", c.cfg.Address, err)
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("resolve %s: no addresses", c.cfg.Address)
	}

	address := net.JoinHostPort(addrs[0], strconv.Itoa(c.cfg.Port))
	conn, err := c.dialer.Dial(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", address, err)
	}
	return conn, nil
}

func (c *Client) write(conn net.Conn, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.cfg.WriteTimeout > 0 {
		if err := conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout)); err != nil {
			return fmt.Errorf("set write deadline: %w", err)
		}
	}
	_, err := conn.Write(data)
	return err
}

// handleFailure drops conn and schedules a reconnect. Failures reported for
// a connection that has already been replaced or closed are ignored.
func (c *Client) handleFailure(conn net.Conn, reason string, err error) {
	c.mu.Lock()
	if c.closed || c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.state = Disconnected
	delay := c.nextBackoffLocked()
	c.scheduleLocked(delay)
	c.mu.Unlock()

	conn.Close()

	c.recorder.RecordDisconnect(reason)
	c.recorder.SetConnected(false)
	c.logger.Warn("connection lost",
		"reason", reason,
		"error", err,
		"retry_in", delay,
	)
}

// readLoop discards inbound data and reports when the peer goes away.
func (c *Client) readLoop(conn net.Conn) {
	defer c.wg.Done()

	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			reason := "read_error"
			if errors.Is(err, io.EOF) {
				reason = "peer_closed"
			}
			c.handleFailure(conn, reason, err)
			return
		}
		c.logger.Debug("discarding inbound data", "bytes", n)
	}
}

// keepaliveLoop sends a keepalive message every interval while conn is current.
func (c *Client) keepaliveLoop(conn net.Conn) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.KeepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
		}

		c.mu.RLock()
		current := c.conn == conn
		c.mu.RUnlock()
		if !current {
			return
		}

		msg, err := c.cfg.Keepalive()
		if err != nil {
			c.logger.Warn("build keepalive failed", "error", err)
			continue
		}
		if err := c.write(conn, msg); err != nil {
			c.handleFailure(conn, "keepalive", err)
			return
		}
		c.logger.Debug("keepalive sent")
	}
}

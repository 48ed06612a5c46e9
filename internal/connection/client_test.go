package connection

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"
)

// waitFor polls cond until it holds or the timeout elapses.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

// tcpServer accepts connections and delivers newline-delimited lines.
type tcpServer struct {
	ln    net.Listener
	conns chan net.Conn
	lines chan string
}

func newTCPServer(t *testing.T) *tcpServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &tcpServer{
		ln:    ln,
		conns: make(chan net.Conn, 10),
		lines: make(chan string, 100),
	}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			s.conns <- conn
			go func() {
				sc := bufio.NewScanner(conn)
				for sc.Scan() {
					s.lines <- sc.Text()
				}
			}()
		}
	}()
	t.Cleanup(func() { ln.Close() })
	return s
}

func (s *tcpServer) port() int {
	return s.ln.Addr().(*net.TCPAddr).Port
}

func testConfig(port int) Config {
	cfg := DefaultConfig()
	cfg.Address = "127.0.0.1"
	cfg.Port = port
	cfg.Backoff = 50 * time.Millisecond
	cfg.DialTimeout = time.Second
	cfg.WriteTimeout = time.Second
	return cfg
}

// fakeDialer records attempts and returns conns from next, or err.
type fakeDialer struct {
	mu       sync.Mutex
	attempts []time.Time
	err      error
	next     func() net.Conn
	block    bool
}

func (d *fakeDialer) Dial(ctx context.Context, address string) (net.Conn, error) {
	d.mu.Lock()
	d.attempts = append(d.attempts, time.Now())
	block, err, next := d.block, d.err, d.next
	d.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	return next(), nil
}

func (d *fakeDialer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.attempts)
}

// brokenConn accepts the connection but fails every write.
type brokenConn struct {
	net.Conn
	done chan struct{}
	once sync.Once
}

func newBrokenConn() *brokenConn {
	return &brokenConn{done: make(chan struct{})}
}

func (c *brokenConn) Read(p []byte) (int, error) {
	<-c.done
	return 0, net.ErrClosed
}

func (c *brokenConn) Write(p []byte) (int, error) {
	return 0, errors.New("broken pipe")
}

func (c *brokenConn) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}

func (c *brokenConn) RemoteAddr() net.Addr             { return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)} }
func (c *brokenConn) SetWriteDeadline(time.Time) error { return nil }

// deadlineConn cannot arm a write deadline; writes never reach the wire.
type deadlineConn struct {
	*brokenConn
	mu     sync.Mutex
	writes int
}

func (c *deadlineConn) SetWriteDeadline(time.Time) error {
	return errors.New("set deadline: use of closed network connection")
}

func (c *deadlineConn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes++
	return len(p), nil
}

type countingRecorder struct {
	mu          sync.Mutex
	ok, failed  int
	disconnects []string
	connected   bool
}

func (r *countingRecorder) RecordConnectAttempt(success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if success {
		r.ok++
	} else {
		r.failed++
	}
}

func (r *countingRecorder) RecordDisconnect(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disconnects = append(r.disconnects, reason)
}

func (r *countingRecorder) SetConnected(connected bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connected = connected
}

func TestClient_ConnectAndSend(t *testing.T) {
	srv := newTCPServer(t)

	client := NewClient(testConfig(srv.port()))
	defer client.Close()

	if client.State() != Disconnected {
		t.Errorf("initial State() = %v, want disconnected", client.State())
	}

	if err := client.Connect(); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if !waitFor(t, 2*time.Second, client.IsConnected) {
		t.Fatal("client never connected")
	}

	if err := client.Send([]byte("hello\n")); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	select {
	case line := <-srv.lines:
		if line != "hello" {
			t.Errorf("server received %q, want hello", line)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not receive data")
	}
}

func TestClient_ConnectIsNonBlocking(t *testing.T) {
	dialer := &fakeDialer{block: true}
	client := NewClient(testConfig(1), WithDialer(dialer))
	defer client.Close()

	start := time.Now()
	if err := client.Connect(); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("Connect took %v, want immediate return", elapsed)
	}
	if client.State() != Connecting {
		t.Errorf("State() = %v, want connecting", client.State())
	}
}

func TestClient_SendNotConnected(t *testing.T) {
	client := NewClient(testConfig(1))
	defer client.Close()

	err := client.Send([]byte("x"))
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("Send() error = %v, want ErrNotConnected", err)
	}
	if client.State() != Disconnected {
		t.Errorf("State() = %v, want disconnected", client.State())
	}
}

func TestClient_ConnectFailureRetriesAfterBackoff(t *testing.T) {
	dialer := &fakeDialer{err: errors.New("connection refused")}
	rec := &countingRecorder{}
	cfg := testConfig(1)
	cfg.Backoff = 100 * time.Millisecond

	client := NewClient(cfg, WithDialer(dialer), WithRecorder(rec))
	defer client.Close()

	client.Connect()
	if !waitFor(t, 2*time.Second, func() bool { return dialer.count() >= 2 }) {
		t.Fatalf("dial attempts = %d, want at least 2", dialer.count())
	}

	dialer.mu.Lock()
	gap := dialer.attempts[1].Sub(dialer.attempts[0])
	dialer.mu.Unlock()
	if gap < cfg.Backoff {
		t.Errorf("retry after %v, want no sooner than %v", gap, cfg.Backoff)
	}
	if client.IsConnected() {
		t.Error("expected IsConnected to return false")
	}

	rec.mu.Lock()
	failed := rec.failed
	rec.mu.Unlock()
	if failed < 1 {
		t.Errorf("failed attempts recorded = %d, want >= 1", failed)
	}
}

func TestClient_ConnectWhilePendingIsNoop(t *testing.T) {
	dialer := &fakeDialer{err: errors.New("connection refused")}
	cfg := testConfig(1)
	cfg.Backoff = time.Hour

	client := NewClient(cfg, WithDialer(dialer))
	defer client.Close()

	client.Connect()
	if !waitFor(t, time.Second, func() bool { return dialer.count() == 1 && client.State() == Disconnected }) {
		t.Fatal("first attempt did not fail")
	}

	client.Connect()
	time.Sleep(50 * time.Millisecond)
	if n := dialer.count(); n != 1 {
		t.Errorf("dial attempts = %d, want 1 while a retry is pending", n)
	}
}

func TestClient_ResolveFailureIsConnectFailure(t *testing.T) {
	dialer := &fakeDialer{next: func() net.Conn { return newBrokenConn() }}
	resolver := resolverFunc(func(ctx context.Context, host string) ([]string, error) {
		return nil, &net.DNSError{Err: "no such host", Name: host, IsNotFound: true}
	})
	cfg := testConfig(8087)
	cfg.Address = "tak.invalid"

	client := NewClient(cfg, WithDialer(dialer), WithResolver(resolver))
	defer client.Close()

	client.Connect()
	if !waitFor(t, time.Second, func() bool { return client.State() == Disconnected }) {
		t.Fatal("client did not return to disconnected")
	}
	if n := dialer.count(); n != 0 {
		t.Errorf("dial attempts = %d, want 0 when resolution fails", n)
	}
}

type resolverFunc func(ctx context.Context, host string) ([]string, error)

func (f resolverFunc) LookupHost(ctx context.Context, host string) ([]string, error) {
	return f(ctx, host)
}

func TestClient_ResolvesBeforeDial(t *testing.T) {
	var mu sync.Mutex
	var dialed string
	dialer := dialerFunc(func(ctx context.Context, address string) (net.Conn, error) {
		mu.Lock()
		dialed = address
		mu.Unlock()
		return newBrokenConn(), nil
	})
	resolver := resolverFunc(func(ctx context.Context, host string) ([]string, error) {
		return []string{"192.0.2.10"}, nil
	})
	cfg := testConfig(8087)
	cfg.Address = "tak.example.com"

	client := NewClient(cfg, WithDialer(dialer), WithResolver(resolver))
	defer client.Close()

	client.Connect()
	if !waitFor(t, time.Second, client.IsConnected) {
		t.Fatal("client never connected")
	}

	mu.Lock()
	defer mu.Unlock()
	if dialed != "192.0.2.10:8087" {
		t.Errorf("dialed %q, want 192.0.2.10:8087", dialed)
	}
}

type dialerFunc func(ctx context.Context, address string) (net.Conn, error)

func (f dialerFunc) Dial(ctx context.Context, address string) (net.Conn, error) {
	return f(ctx, address)
}

func TestClient_WriteFailureReconnects(t *testing.T) {
	dialer := &fakeDialer{next: func() net.Conn { return newBrokenConn() }}
	rec := &countingRecorder{}

	client := NewClient(testConfig(1), WithDialer(dialer), WithRecorder(rec))
	defer client.Close()

	client.Connect()
	if !waitFor(t, time.Second, client.IsConnected) {
		t.Fatal("client never connected")
	}

	err := client.Send([]byte("event"))
	if err == nil {
		t.Fatal("expected Send error")
	}
	if errors.Is(err, ErrNotConnected) {
		t.Errorf("Send() error = %v, want the write error", err)
	}
	if client.IsConnected() {
		t.Error("expected IsConnected to return false after write failure")
	}
	if err := client.Send([]byte("event")); !errors.Is(err, ErrNotConnected) {
		t.Errorf("second Send() error = %v, want ErrNotConnected", err)
	}

	// Reconnect after backoff
	if !waitFor(t, 2*time.Second, func() bool { return dialer.count() >= 2 && client.IsConnected() }) {
		t.Fatalf("client did not reconnect, attempts = %d", dialer.count())
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.disconnects) == 0 || rec.disconnects[0] != "write" {
		t.Errorf("disconnects = %v, want [write ...]", rec.disconnects)
	}
}

func TestClient_WriteDeadlineFailureReconnects(t *testing.T) {
	conn := &deadlineConn{brokenConn: newBrokenConn()}
	dialer := &fakeDialer{next: func() net.Conn { return conn }}
	rec := &countingRecorder{}

	client := NewClient(testConfig(1), WithDialer(dialer), WithRecorder(rec))
	defer client.Close()

	client.Connect()
	if !waitFor(t, time.Second, client.IsConnected) {
		t.Fatal("client never connected")
	}

	err := client.Send([]byte("event"))
	if err == nil {
		t.Fatal("expected Send error")
	}
	if !strings.Contains(err.Error(), "set write deadline") {
		t.Errorf("Send() error = %v, want the deadline error", err)
	}
	if client.IsConnected() {
		t.Error("expected IsConnected to return false after deadline failure")
	}

	conn.mu.Lock()
	writes := conn.writes
	conn.mu.Unlock()
	if writes != 0 {
		t.Errorf("writes = %d, want 0 without a deadline", writes)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.disconnects) == 0 || rec.disconnects[0] != "write" {
		t.Errorf("disconnects = %v, want [write ...]", rec.disconnects)
	}
}

func TestClient_PeerCloseReconnects(t *testing.T) {
	srv := newTCPServer(t)

	client := NewClient(testConfig(srv.port()))
	defer client.Close()

	client.Connect()

	var first net.Conn
	select {
	case first = <-srv.conns:
	case <-time.After(2 * time.Second):
		t.Fatal("server never accepted")
	}
	if !waitFor(t, time.Second, client.IsConnected) {
		t.Fatal("client never connected")
	}

	first.Close()

	if !waitFor(t, time.Second, func() bool { return !client.IsConnected() }) {
		t.Fatal("client did not notice peer close")
	}

	select {
	case <-srv.conns:
	case <-time.After(2 * time.Second):
		t.Fatal("client did not reconnect")
	}
	if !waitFor(t, time.Second, client.IsConnected) {
		t.Fatal("client not connected after reconnect")
	}
}

func TestClient_CloseCancelsPendingRetry(t *testing.T) {
	dialer := &fakeDialer{err: errors.New("connection refused")}
	cfg := testConfig(1)
	cfg.Backoff = 50 * time.Millisecond

	client := NewClient(cfg, WithDialer(dialer))
	client.Connect()
	if !waitFor(t, time.Second, func() bool { return dialer.count() == 1 && client.State() == Disconnected }) {
		t.Fatal("first attempt did not fail")
	}

	if err := client.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}

	time.Sleep(150 * time.Millisecond)
	if n := dialer.count(); n != 1 {
		t.Errorf("dial attempts after Close = %d, want 1", n)
	}
	if err := client.Connect(); !errors.Is(err, ErrAlreadyClosed) {
		t.Errorf("Connect after Close = %v, want ErrAlreadyClosed", err)
	}
}

func TestClient_CloseCancelsInFlightDial(t *testing.T) {
	dialer := &fakeDialer{block: true}
	cfg := testConfig(1)
	cfg.DialTimeout = time.Hour

	client := NewClient(cfg, WithDialer(dialer))
	client.Connect()
	if !waitFor(t, time.Second, func() bool { return dialer.count() == 1 }) {
		t.Fatal("dial never started")
	}

	done := make(chan struct{})
	go func() {
		client.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close blocked on in-flight dial")
	}
	if client.State() != Disconnected {
		t.Errorf("State() = %v, want disconnected", client.State())
	}
}

func TestClient_Keepalive(t *testing.T) {
	srv := newTCPServer(t)
	cfg := testConfig(srv.port())
	cfg.KeepaliveInterval = 20 * time.Millisecond
	cfg.Keepalive = func() ([]byte, error) { return []byte("ping\n"), nil }

	client := NewClient(cfg)
	defer client.Close()
	client.Connect()

	select {
	case line := <-srv.lines:
		if line != "ping" {
			t.Errorf("keepalive = %q, want ping", line)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no keepalive received")
	}
}

func TestClient_BackoffGrowth(t *testing.T) {
	cfg := testConfig(1)
	cfg.Backoff = 100 * time.Millisecond
	cfg.BackoffMultiplier = 2
	cfg.MaxBackoff = 400 * time.Millisecond

	client := NewClient(cfg)
	defer client.Close()

	want := []time.Duration{100, 200, 400, 400}
	client.mu.Lock()
	for i, w := range want {
		if got := client.nextBackoffLocked(); got != w*time.Millisecond {
			t.Errorf("attempt %d: backoff = %v, want %v", i, got, w*time.Millisecond)
		}
	}
	client.mu.Unlock()
}

func TestClient_FixedBackoff(t *testing.T) {
	cfg := testConfig(1)
	cfg.Backoff = 300 * time.Millisecond

	client := NewClient(cfg)
	defer client.Close()

	client.mu.Lock()
	defer client.mu.Unlock()
	for i := 0; i < 3; i++ {
		if got := client.nextBackoffLocked(); got != cfg.Backoff {
			t.Errorf("attempt %d: backoff = %v, want %v", i, got, cfg.Backoff)
		}
	}
}

func TestClient_Endpoint(t *testing.T) {
	tests := []struct {
		protocol string
		path     string
		want     string
	}{
		{"", "", "tcp://10.0.0.1:8087"},
		{ProtocolTCP, "/", "tcp://10.0.0.1:8087"},
		{ProtocolWS, "/cot", "ws://10.0.0.1:8087/cot"},
		{ProtocolWSS, "", "wss://10.0.0.1:8087/"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			cfg := testConfig(8087)
			cfg.Address = "10.0.0.1"
			cfg.Protocol = tt.protocol
			cfg.Path = tt.path
			client := NewClient(cfg)
			defer client.Close()

			if got := client.Endpoint(); got != tt.want {
				t.Errorf("Endpoint() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestState_String(t *testing.T) {
	tests := map[State]string{
		Disconnected: "disconnected",
		Connecting:   "connecting",
		Connected:    "connected",
		State(9):     "unknown",
	}
	for s, want := range tests {
		if got := s.String(); !strings.EqualFold(got, want) {
			t.Errorf("State(%d).String() = %q, want %q", s, got, want)
		}
	}
}

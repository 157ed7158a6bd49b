// Package channel implements the framed TLS message channel described in
// spec.md §4.1: a single ordered, reliable transport to one Cast receiver,
// with dedicated reader, writer, and dispatcher goroutines so that every
// namespace listener observes inbound messages in wire order.
//
// The goroutine layout is a direct generalization of the teacher's
// per-device readPump/writePump pair (device/manager.go in the retrieved
// xmidt-org/webpa-common corpus): there, a manager spins up one readPump
// and one writePump goroutine per connected websocket device and funnels
// both through a shared dispatch function; here, a Channel spins up a
// reader, a writer, and an explicit dispatcher goroutine per connected
// socket.
package channel

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/go-castv2/castv2/cerrors"
	"github.com/go-castv2/castv2/logging"
	"github.com/go-castv2/castv2/wire"
)

// State is the externally visible lifecycle of a Channel, per spec.md §3:
// "the channel is either disconnected or connected-and-authenticated" at
// the layers above, but at this layer we also expose the in-between dial
// state so Connect can report a clear error.
type State int32

const (
	StateNew State = iota
	StateConnecting
	StateConnected
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Options configures a Channel.
type Options struct {
	// UseTLS selects a TLS transport (the only production mode). The zero
	// value, false, dials plaintext, which is supported solely for test
	// doubles, per spec.md §4.1.
	UseTLS bool

	// ServerName is passed through to crypto/tls, purely informational
	// since certificate validation is intentionally disabled below.
	ServerName string

	// DialTimeout bounds the initial TCP/TLS handshake.
	DialTimeout time.Duration

	// OutboundQueueSize bounds the writer's outbound queue.
	OutboundQueueSize int

	Logger *zap.Logger
}

func (o Options) dialTimeout() time.Duration {
	if o.DialTimeout > 0 {
		return o.DialTimeout
	}
	return 10 * time.Second
}

func (o Options) outboundQueueSize() int {
	if o.OutboundQueueSize > 0 {
		return o.OutboundQueueSize
	}
	return 64
}

func (o Options) logger() *zap.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return logging.Default()
}

// trustAllVerifier always accepts the device's certificate. Cast receivers
// present a self-signed certificate that cannot be validated against
// standard roots; spec.md §1/§4.1 require accepting it unconditionally.
func trustAllVerifier(rawCerts [][]byte, _ [][]*x509.Certificate) error {
	return nil
}

type inboundEvent struct {
	msg     *wire.CastMessage
	sockErr error
}

// Channel is a single framed TLS connection to one Cast receiver.
type Channel struct {
	opts Options

	state int32 // State, accessed atomically

	connMu sync.Mutex
	conn   io.ReadWriteCloser

	outbound chan *wire.CastMessage
	inbound  chan inboundEvent
	shutdown chan struct{}
	closing  int32

	handlerMu sync.RWMutex
	handler   ResponseHandler

	errHandlerMu sync.RWMutex
	errHandler   SocketErrorHandler

	listeners *listenerRegistry

	readerDone     chan struct{}
	writerDone     chan struct{}
	dispatcherDone chan struct{}

	closeOnce sync.Once
	logger    *zap.Logger
}

// New constructs an unconnected Channel.
func New(opts Options) *Channel {
	return &Channel{
		opts:      opts,
		state:     int32(StateNew),
		outbound:  make(chan *wire.CastMessage, opts.outboundQueueSize()),
		inbound:   make(chan inboundEvent, opts.outboundQueueSize()),
		shutdown:  make(chan struct{}),
		listeners: newListenerRegistry(),
		logger:    opts.logger(),
	}
}

// NewWithConn constructs a Channel already wired to conn, skipping
// Connect's dial step. Packages built on top of channel (session,
// receiver, media) use this to drive tests over an in-process net.Pipe
// instead of a real TLS socket; it is equally usable by callers who
// already have an established connection to hand in.
func NewWithConn(opts Options, conn io.ReadWriteCloser) *Channel {
	c := New(opts)
	c.start(conn)
	return c
}

func (c *Channel) State() State {
	return State(atomic.LoadInt32(&c.state))
}

func (c *Channel) setState(s State) {
	atomic.StoreInt32(&c.state, int32(s))
}

// SetResponseHandler installs the correlator (or any ResponseHandler) as
// the first consumer of every inbound message.
func (c *Channel) SetResponseHandler(h ResponseHandler) {
	c.handlerMu.Lock()
	c.handler = h
	c.handlerMu.Unlock()
}

// SetSocketErrorHandler installs the callback invoked exactly once when the
// transport fails unexpectedly.
func (c *Channel) SetSocketErrorHandler(h SocketErrorHandler) {
	c.errHandlerMu.Lock()
	c.errHandler = h
	c.errHandlerMu.Unlock()
}

// RegisterNamespaceListener adds l to the set of listeners notified for
// every uncorrelated/unsolicited message on namespace.
func (c *Channel) RegisterNamespaceListener(namespace string, l NamespaceListener) {
	c.listeners.add(namespace, l)
}

// Connect dials address (host:port) and starts the reader, writer, and
// dispatcher goroutines. Connect is not idempotent across reconnects: a
// fresh Channel should be constructed for each dial attempt, consistent
// with spec.md §3's "Reconnect creates a fresh channel state".
func (c *Channel) Connect(ctx context.Context, address string) error {
	if c.State() != StateNew {
		return cerrors.New(cerrors.KindState, "channel already connected or closed")
	}
	c.setState(StateConnecting)

	dialer := &net.Dialer{Timeout: c.opts.dialTimeout()}

	var conn io.ReadWriteCloser
	var err error
	if c.opts.UseTLS {
		tlsConn, dialErr := tls.DialWithDialer(dialer, "tcp", address, &tls.Config{
			ServerName:            c.opts.ServerName,
			InsecureSkipVerify:    true, // #nosec G402 -- Cast receivers present unverifiable self-signed certs; see spec.md Non-goals.
			VerifyPeerCertificate: trustAllVerifier,
		})
		conn, err = tlsConn, dialErr
	} else {
		plainConn, dialErr := dialer.DialContext(ctx, "tcp", address)
		conn, err = plainConn, dialErr
	}
	if err != nil {
		c.setState(StateClosed)
		return cerrors.Wrap(cerrors.KindTransport, "dial failed", err)
	}

	c.start(conn)
	return nil
}

// start installs conn as the active transport and launches the reader,
// writer, and dispatcher goroutines. It is split out from Connect so test
// doubles can supply an in-process net.Pipe transport without dialing.
func (c *Channel) start(conn io.ReadWriteCloser) {
	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()

	c.readerDone = make(chan struct{})
	c.writerDone = make(chan struct{})
	c.dispatcherDone = make(chan struct{})

	go c.readLoop(conn)
	go c.writeLoop(conn)
	go c.dispatchLoop()

	c.setState(StateConnected)
}

// Send enqueues m for the writer. Order of enqueue equals order on the
// wire, per spec.md §4.1/§5.
func (c *Channel) Send(m *wire.CastMessage) error {
	if c.State() != StateConnected {
		return cerrors.New(cerrors.KindTransport, "Connection is not opened")
	}

	select {
	case c.outbound <- m:
		return nil
	case <-c.shutdown:
		return cerrors.New(cerrors.KindState, "channel is closing")
	}
}

// Close stops the writer, optionally transmits a final message
// synchronously, cancels the reader, and closes the socket. It blocks
// until the reader/writer/dispatcher goroutines have joined, bounded at
// roughly one second per spec.md §5.
func (c *Channel) Close(last *wire.CastMessage) error {
	var closeErr error

	c.closeOnce.Do(func() {
		atomic.StoreInt32(&c.closing, 1)
		close(c.shutdown)

		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		if last != nil && conn != nil {
			// Best effort: write the final message synchronously on the
			// caller's goroutine before tearing down the socket, per
			// spec.md §4.1. The write is bounded so that a peer which has
			// stopped reading cannot block Close indefinitely.
			if d, ok := conn.(interface{ SetWriteDeadline(time.Time) error }); ok {
				_ = d.SetWriteDeadline(time.Now().Add(1 * time.Second))
			}
			_ = wire.WriteFrame(conn, last)
		}

		if conn != nil {
			closeErr = conn.Close()
		}

		c.awaitWorkers()
		c.listeners.clear()
		c.setState(StateClosed)
	})

	return closeErr
}

func (c *Channel) awaitWorkers() {
	deadline := time.After(1 * time.Second)
	for _, done := range []chan struct{}{c.readerDone, c.writerDone, c.dispatcherDone} {
		if done == nil {
			continue
		}
		select {
		case <-done:
		case <-deadline:
			return
		}
	}
}

func (c *Channel) isClosing() bool {
	return atomic.LoadInt32(&c.closing) != 0
}

func (c *Channel) readLoop(conn io.Reader) {
	defer close(c.readerDone)

	for {
		msg, err := wire.ReadFrame(conn)
		if err != nil {
			if !c.isClosing() {
				select {
				case c.inbound <- inboundEvent{sockErr: err}:
				default:
				}
			}
			return
		}

		select {
		case c.inbound <- inboundEvent{msg: msg}:
		case <-c.shutdown:
			return
		}
	}
}

func (c *Channel) writeLoop(conn io.Writer) {
	defer close(c.writerDone)

	for {
		select {
		case <-c.shutdown:
			return
		case msg := <-c.outbound:
			if err := wire.WriteFrame(conn, msg); err != nil {
				if !c.isClosing() {
					select {
					case c.inbound <- inboundEvent{sockErr: err}:
					default:
					}
				}
				return
			}
		}
	}
}

func (c *Channel) dispatchLoop() {
	defer close(c.dispatcherDone)

	var errOnce sync.Once

	for {
		select {
		case <-c.shutdown:
			return
		case event := <-c.inbound:
			if event.sockErr != nil {
				errOnce.Do(func() {
					c.errHandlerMu.RLock()
					h := c.errHandler
					c.errHandlerMu.RUnlock()
					if h != nil {
						h(event.sockErr)
					}
				})
				return
			}

			c.dispatch(event.msg)
		}
	}
}

func (c *Channel) dispatch(msg *wire.CastMessage) {
	result := Unsolicited

	c.handlerMu.RLock()
	handler := c.handler
	c.handlerMu.RUnlock()

	if handler != nil {
		result = handler.HandleMessage(msg)
	}

	if result == Correlated {
		return
	}

	for _, l := range c.listeners.snapshot(msg.Namespace) {
		l(msg)
	}
}

// Package session implements the per-channel connection controller
// described in spec.md §4.3: the device authentication handshake, the
// CONNECT/CLOSE virtual-connection bookkeeping for the default receiver
// and any launched application, and the heartbeat PING/PONG liveness
// check.
//
// The heartbeat half of this package generalizes the teacher's
// writePump ping ticker and pong-driven deadline reset (device/manager.go,
// device/connection.go in the retrieved corpus) from a server accepting
// websocket pings to a client driving its own PING/PONG exchange over the
// Cast V2 tp.heartbeat namespace.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/go-castv2/castv2/cerrors"
	"github.com/go-castv2/castv2/channel"
	"github.com/go-castv2/castv2/correlate"
	"github.com/go-castv2/castv2/wire"
)

// State is the lifecycle of a Controller, per spec.md §4.3's state table.
type State int32

const (
	StateClosed State = iota
	StateConnecting
	StateOpened
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateConnecting:
		return "CONNECTING"
	case StateOpened:
		return "OPENED"
	default:
		return "UNKNOWN"
	}
}

// Controller owns the device authentication handshake, the default
// receiver's virtual connection, and the heartbeat loop for one
// channel.Channel.
type Controller struct {
	ch          *channel.Channel
	correlator  *correlate.Correlator
	opts        Options
	senderID    string
	destination string // default receiver id this session authenticates against

	state int32

	pingTicker *time.Ticker
	pongTimer  *time.Timer
	timerMu    sync.Mutex
	stopPing   chan struct{}

	openedOnce sync.Once
	openedCh   chan struct{}

	sessionMu   sync.Mutex
	appSessions map[string]bool

	deadOnce    sync.Once
	deadCh      chan struct{}
	dead        deadRegistry
	remoteClose closeRegistry

	closeOnce sync.Once
	logger    *zap.Logger
}

// New constructs a Controller bound to ch, targeting destination (normally
// wire.DefaultReceiverID). The correlator is exposed so receiver/media
// controllers built on top of the same channel can issue their own
// correlated requests.
func New(ch *channel.Channel, destination string, opts Options) *Controller {
	return &Controller{
		ch:          ch,
		correlator:  correlate.New(),
		opts:        opts,
		destination: destination,
		appSessions: make(map[string]bool),
		stopPing:    make(chan struct{}),
		openedCh:    make(chan struct{}),
		deadCh:      make(chan struct{}),
		logger:      opts.logger(),
	}
}

// Correlator returns the request/response correlator installed on ch, for
// use by controllers layered above (receiver, media).
func (c *Controller) Correlator() *correlate.Correlator {
	return c.correlator
}

// SenderID returns this session's source identifier, valid after Connect
// succeeds.
func (c *Controller) SenderID() string {
	return c.senderID
}

// RequestTimeout returns the request timeout this session was configured
// with, for controllers layered above (receiver, media) that issue their
// own correlated requests over the same channel.
func (c *Controller) RequestTimeout() time.Duration {
	return c.opts.requestTimeout()
}

func (c *Controller) State() State {
	return State(atomic.LoadInt32(&c.state))
}

func (c *Controller) setState(s State) {
	atomic.StoreInt32(&c.state, int32(s))
}

// OnDead registers l to be notified, at most once, when the heartbeat
// liveness check fails, a PING cannot be sent, or the channel reports a
// socket error.
func (c *Controller) OnDead(l DeadListener) {
	c.dead.add(l)
}

// OnRemoteClose registers l to be notified whenever the receiver closes an
// application's virtual connection from its side.
func (c *Controller) OnRemoteClose(l RemoteCloseListener) {
	c.remoteClose.add(l)
}

// Connect performs the device authentication handshake, opens the default
// receiver's virtual connection, and starts the heartbeat loop.
func (c *Controller) Connect(ctx context.Context) error {
	if c.State() != StateClosed {
		return cerrors.New(cerrors.KindState, "session already connecting or open")
	}
	c.setState(StateConnecting)

	c.senderID = fmt.Sprintf("%s-%s", c.opts.senderIDPrefix(), uuid.NewString())

	c.ch.SetResponseHandler(c.correlator)
	c.ch.RegisterNamespaceListener(wire.NamespaceHeartbeat, c.onHeartbeat)
	c.ch.RegisterNamespaceListener(wire.NamespaceConnection, c.onConnectionMessage)
	c.ch.SetSocketErrorHandler(func(err error) {
		c.declareDead(cerrors.Wrap(cerrors.KindTransport, "channel socket error", err))
	})

	if err := c.authenticate(ctx); err != nil {
		c.setState(StateClosed)
		return err
	}

	connect := newConnectPayload()
	if _, err := marshalAndSend(c.ch, c.senderID, c.destination, wire.NamespaceConnection, connect); err != nil {
		c.setState(StateClosed)
		return cerrors.Wrap(cerrors.KindTransport, "send CONNECT", err)
	}

	c.sessionMu.Lock()
	c.appSessions[c.destination] = true
	c.sessionMu.Unlock()

	if err := c.startHeartbeat(); err != nil {
		c.setState(StateClosed)
		return err
	}

	if err := c.awaitOpened(ctx); err != nil {
		c.setState(StateClosed)
		_ = c.Close()
		return err
	}

	c.setState(StateOpened)
	return nil
}

// awaitOpened blocks until the first PONG clears the pong timer armed by
// startHeartbeat, per spec.md §4.3: CONNECTING only becomes OPENED "on
// first PONG after handshake". ctx.Done() already honors the remaining
// portion of the caller's connect deadline after the authentication
// round-trip spent part of it; deadCh covers the case where the pong
// timer itself fires first (no deadline set on ctx).
func (c *Controller) awaitOpened(ctx context.Context) error {
	select {
	case <-c.openedCh:
		return nil
	case <-c.deadCh:
		return cerrors.New(cerrors.KindTimeout, "no heartbeat reply within deadline")
	case <-ctx.Done():
		return cerrors.Wrap(cerrors.KindTimeout, "connect cancelled before first heartbeat reply", ctx.Err())
	}
}

func (c *Controller) authenticate(ctx context.Context) error {
	challenge := wire.EncodeDeviceAuthChallenge()
	alwaysTrue := func(*wire.CastMessage) bool { return true }

	resp, err := c.correlator.SendBinary(ctx, c.ch, c.senderID, c.destination, wire.NamespaceDeviceAuth, challenge, alwaysTrue, c.opts.requestTimeout())
	if err != nil {
		return cerrors.Wrap(cerrors.KindAuthentication, "device auth handshake", err)
	}

	decoded, err := wire.DecodeDeviceAuthMessage(resp.Payload())
	if err != nil {
		return cerrors.Wrap(cerrors.KindAuthentication, "decode device auth reply", err)
	}
	if decoded.Error != nil {
		return cerrors.New(cerrors.KindAuthentication, fmt.Sprintf("device auth rejected: type %d", decoded.Error.ErrorType))
	}

	return nil
}

// JoinAppSession opens a virtual connection to transportID (a launched
// application's transport id) if one is not already open. This is the
// REDESIGN FLAG behavior from spec.md §9: CONNECT/CLOSE bookkeeping is
// authoritative per transport id rather than deferred to channel teardown.
func (c *Controller) JoinAppSession(transportID string) error {
	c.sessionMu.Lock()
	if c.appSessions[transportID] {
		c.sessionMu.Unlock()
		return nil
	}
	c.appSessions[transportID] = true
	c.sessionMu.Unlock()

	connect := newConnectPayload()
	if _, err := marshalAndSend(c.ch, c.senderID, transportID, wire.NamespaceConnection, connect); err != nil {
		c.sessionMu.Lock()
		delete(c.appSessions, transportID)
		c.sessionMu.Unlock()
		return cerrors.Wrap(cerrors.KindTransport, "send CONNECT for app session", err)
	}
	return nil
}

// StopAppSession closes transportID's virtual connection if one is open.
func (c *Controller) StopAppSession(transportID string) error {
	c.sessionMu.Lock()
	if !c.appSessions[transportID] {
		c.sessionMu.Unlock()
		return nil
	}
	delete(c.appSessions, transportID)
	c.sessionMu.Unlock()

	closeMsg := newClosePayload()
	if _, err := marshalAndSend(c.ch, c.senderID, transportID, wire.NamespaceConnection, closeMsg); err != nil {
		return cerrors.Wrap(cerrors.KindTransport, "send CLOSE for app session", err)
	}
	return nil
}

// startHeartbeat arms the pong-timeout timer, sends the first PING
// immediately (rather than waiting for the ticker's first tick, which
// would needlessly delay Connect by a full ping interval), and starts the
// periodic ping loop for every PING after that.
func (c *Controller) startHeartbeat() error {
	c.pingTicker = time.NewTicker(c.opts.pingInterval())
	c.resetPongTimer()

	ping := newPingPayload()
	if _, err := marshalAndSend(c.ch, c.senderID, c.destination, wire.NamespaceHeartbeat, ping); err != nil {
		return cerrors.Wrap(cerrors.KindTransport, "send initial PING", err)
	}

	go func() {
		for {
			select {
			case <-c.stopPing:
				return
			case <-c.pingTicker.C:
				ping := newPingPayload()
				if _, err := marshalAndSend(c.ch, c.senderID, c.destination, wire.NamespaceHeartbeat, ping); err != nil {
					c.declareDead(cerrors.Wrap(cerrors.KindTransport, "send PING", err))
					return
				}
			}
		}
	}()
	return nil
}

func (c *Controller) resetPongTimer() {
	c.timerMu.Lock()
	defer c.timerMu.Unlock()

	if c.pongTimer == nil {
		c.pongTimer = time.AfterFunc(c.opts.pongTimeout(), func() {
			c.declareDead(cerrors.New(cerrors.KindTimeout, "no heartbeat reply within deadline"))
		})
		return
	}
	c.pongTimer.Reset(c.opts.pongTimeout())
}

// declareDead notifies dead listeners exactly once and tears down the
// channel, per spec.md §4.3 ("close the channel ... and notify listeners
// that the connection is dead"). Close runs in its own goroutine because
// declareDead can be invoked from the channel's own dispatcher goroutine
// (via the socket-error handler installed in Connect), and Close blocks
// waiting for that same goroutine to exit.
func (c *Controller) declareDead(err error) {
	c.deadOnce.Do(func() {
		close(c.deadCh)
		for _, l := range c.dead.snapshot() {
			l(err)
		}
		go func() { _ = c.Close() }()
	})
}

func (c *Controller) onHeartbeat(msg *wire.CastMessage) {
	header, err := wire.ParseHeader(msg.Payload())
	if err != nil {
		return
	}

	switch header.Type {
	case "PING":
		pong := newPongPayload()
		_, _ = marshalAndSend(c.ch, c.senderID, msg.SourceID, wire.NamespaceHeartbeat, pong)
	case "PONG":
		c.resetPongTimer()
		c.openedOnce.Do(func() { close(c.openedCh) })
	}
}

func (c *Controller) onConnectionMessage(msg *wire.CastMessage) {
	header, err := wire.ParseHeader(msg.Payload())
	if err != nil || header.Type != "CLOSE" {
		return
	}

	c.sessionMu.Lock()
	_, joined := c.appSessions[msg.SourceID]
	delete(c.appSessions, msg.SourceID)
	c.sessionMu.Unlock()

	if !joined {
		return
	}
	for _, l := range c.remoteClose.snapshot() {
		l(msg.SourceID)
	}
}

// Close tears down every open application session, then the default
// receiver's session, and finally the underlying channel.
func (c *Controller) Close() error {
	var err error

	c.closeOnce.Do(func() {
		if c.pingTicker != nil {
			c.pingTicker.Stop()
		}
		close(c.stopPing)

		c.timerMu.Lock()
		if c.pongTimer != nil {
			c.pongTimer.Stop()
		}
		c.timerMu.Unlock()

		c.sessionMu.Lock()
		transports := make([]string, 0, len(c.appSessions))
		for id := range c.appSessions {
			if id != c.destination {
				transports = append(transports, id)
			}
		}
		c.sessionMu.Unlock()

		for _, id := range transports {
			_ = c.StopAppSession(id)
		}

		data, marshalErr := json.Marshal(newClosePayload())
		if marshalErr != nil {
			// unreachable: closePayload is a static struct of strings/ints
			data = nil
		}
		last := wire.NewStringMessage(c.senderID, c.destination, wire.NamespaceConnection, data)
		err = c.ch.Close(last)
		c.setState(StateClosed)
	})

	return err
}

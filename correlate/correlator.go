// Package correlate implements request/response correlation over a
// channel.Sender, generalizing the teacher's device.Transactions registry
// (device/transactions.go in the retrieved corpus) from a single
// string-keyed pending map to the two correlation modes the Cast V2
// protocol actually uses: STRING payloads correlated by a JSON requestId
// field, and the single BINARY handshake exchange which carries no
// requestId at all and is instead matched by a caller-supplied predicate.
package correlate

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-castv2/castv2/cerrors"
	"github.com/go-castv2/castv2/channel"
	"github.com/go-castv2/castv2/wire"
	"github.com/go-castv2/castv2/xmetrics"
)

// StringPayload is satisfied by any JSON payload that embeds wire.Header,
// letting Correlator stamp the outgoing requestId before marshaling.
type StringPayload interface {
	SetRequestID(int32)
}

type binaryWaiter struct {
	predicate func(*wire.CastMessage) bool
	ch        chan *wire.CastMessage
}

// Correlator implements channel.ResponseHandler and matches inbound
// CastMessages against outstanding requests registered by SendString or
// SendBinary.
type Correlator struct {
	nextID int32 // atomic, monotonically increasing per-channel counter

	stringMu sync.Mutex
	pending  map[int32]chan *wire.CastMessage

	binaryMu sync.Mutex
	binary   *binaryWaiter

	measures *xmetrics.Measures
}

// New constructs an empty Correlator. requestId numbering restarts at 1 for
// every Correlator, i.e. is scoped to one channel rather than kept as
// global process state, per spec.md §9's resolution of the requestId
// uniqueness open question.
func New() *Correlator {
	return &Correlator{
		pending: make(map[int32]chan *wire.CastMessage),
	}
}

// NextRequestID returns the next requestId to stamp on an outgoing STRING
// payload.
func (c *Correlator) NextRequestID() int32 {
	return atomic.AddInt32(&c.nextID, 1)
}

// SetMeasures wires m in so every SendString call increments
// m.Requests, labeled by namespace. Optional; a Correlator with no
// Measures set simply does not record the metric.
func (c *Correlator) SetMeasures(m *xmetrics.Measures) {
	c.measures = m
}

// HandleMessage implements channel.ResponseHandler.
func (c *Correlator) HandleMessage(msg *wire.CastMessage) channel.DeliveryResult {
	if msg.PayloadType == wire.PayloadTypeBinary {
		return c.handleBinary(msg)
	}
	return c.handleString(msg)
}

func (c *Correlator) handleBinary(msg *wire.CastMessage) channel.DeliveryResult {
	c.binaryMu.Lock()
	w := c.binary
	if w == nil || !w.predicate(msg) {
		c.binaryMu.Unlock()
		return channel.Unsolicited
	}
	c.binary = nil
	c.binaryMu.Unlock()

	w.ch <- msg
	return channel.Correlated
}

func (c *Correlator) handleString(msg *wire.CastMessage) channel.DeliveryResult {
	header, err := wire.ParseHeader(msg.Payload())
	if err != nil || header.RequestID == 0 {
		return channel.Unsolicited
	}

	c.stringMu.Lock()
	ch, ok := c.pending[header.RequestID]
	if ok {
		delete(c.pending, header.RequestID)
	}
	c.stringMu.Unlock()

	if !ok {
		return channel.Uncorrelated
	}

	ch <- msg
	return channel.Correlated
}

func (c *Correlator) registerString(id int32) chan *wire.CastMessage {
	ch := make(chan *wire.CastMessage, 1)
	c.stringMu.Lock()
	c.pending[id] = ch
	c.stringMu.Unlock()
	return ch
}

func (c *Correlator) cancelString(id int32) {
	c.stringMu.Lock()
	delete(c.pending, id)
	c.stringMu.Unlock()
}

// SendString marshals payload as JSON after stamping it with a fresh
// requestId, sends it as a STRING CastMessage from sourceID to destination
// on namespace, and blocks until a reply carrying the same requestId
// arrives, ctx is cancelled, or timeout elapses.
func (c *Correlator) SendString(ctx context.Context, sender channel.Sender, sourceID, destination, namespace string, payload StringPayload, timeout time.Duration) (*wire.CastMessage, error) {
	id := c.NextRequestID()
	payload.SetRequestID(id)

	if c.measures != nil {
		c.measures.Requests.WithLabelValues(namespace).Inc()
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.KindParse, "marshal request payload", err)
	}

	ch := c.registerString(id)

	msg := wire.NewStringMessage(sourceID, destination, namespace, data)
	if err := sender.Send(msg); err != nil {
		c.cancelString(id)
		return nil, cerrors.Wrap(cerrors.KindTransport, "send request", err)
	}

	return c.await(ctx, ch, timeout, func() { c.cancelString(id) })
}

// SendBinary sends a single BINARY CastMessage and blocks until a BINARY
// reply matching predicate arrives, ctx is cancelled, or timeout elapses.
// Only one binary exchange may be outstanding at a time, matching the
// handshake-only use this mode has in the protocol.
func (c *Correlator) SendBinary(ctx context.Context, sender channel.Sender, sourceID, destination, namespace string, payload []byte, predicate func(*wire.CastMessage) bool, timeout time.Duration) (*wire.CastMessage, error) {
	c.binaryMu.Lock()
	if c.binary != nil {
		c.binaryMu.Unlock()
		return nil, cerrors.New(cerrors.KindState, "a binary exchange is already in flight")
	}
	w := &binaryWaiter{predicate: predicate, ch: make(chan *wire.CastMessage, 1)}
	c.binary = w
	c.binaryMu.Unlock()

	clear := func() {
		c.binaryMu.Lock()
		if c.binary == w {
			c.binary = nil
		}
		c.binaryMu.Unlock()
	}

	msg := wire.NewBinaryMessage(sourceID, destination, namespace, payload)
	if err := sender.Send(msg); err != nil {
		clear()
		return nil, cerrors.Wrap(cerrors.KindTransport, "send binary request", err)
	}

	return c.await(ctx, w.ch, timeout, clear)
}

func (c *Correlator) await(ctx context.Context, ch chan *wire.CastMessage, timeout time.Duration, onAbort func()) (*wire.CastMessage, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case resp := <-ch:
		return resp, nil
	case <-timer.C:
		onAbort()
		return nil, cerrors.New(cerrors.KindTimeout, "no correlated response within deadline")
	case <-ctx.Done():
		onAbort()
		return nil, cerrors.Wrap(cerrors.KindTimeout, "request cancelled", ctx.Err())
	}
}

// Pending returns the count of outstanding STRING correlations, useful for
// diagnostics and tests.
func (c *Correlator) Pending() int {
	c.stringMu.Lock()
	defer c.stringMu.Unlock()
	return len(c.pending)
}

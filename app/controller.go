// Package app defines the generic application-controller contract
// described in spec.md §4.5: an application descriptor accessor, a
// namespace-filtered unsolicited-message hook, and a handler invoked when
// the owning channel/session tears the application down.
//
// Concrete namespaces (media being the one this repository implements)
// embed Base and supply their own typed request/response plumbing on top
// of it; Base supplies the part every application controller needs
// regardless of namespace: routing only unsolicited traffic to the
// subclass, since anything carrying a requestId already belongs to the
// correlator.
package app

import (
	"sync"

	"github.com/go-castv2/castv2/wire"
)

// Descriptor identifies a launched application instance.
type Descriptor struct {
	AppID       string
	DisplayName string
	SessionID   string
	TransportID string
	Namespaces  []string
}

// UnsolicitedHandler receives every inbound message on one of this
// application's namespaces that carries no requestId.
type UnsolicitedHandler func(*wire.CastMessage)

// Controller is the contract every concrete application controller
// (e.g. media.Controller) satisfies.
type Controller interface {
	Descriptor() Descriptor
	Namespaces() []string
	// HandleUnsolicited processes a message on one of Namespaces(). It is
	// never called for a message the correlator already claimed.
	HandleUnsolicited(*wire.CastMessage)
	// Closed reports whether Close has been called; further operations on
	// a closed controller must fail with a state error.
	Closed() bool
	Close()
}

// Base implements the bookkeeping shared by every Controller: the
// descriptor, the closed flag, and namespace filtering. Concrete
// controllers embed Base and override HandleUnsolicited's effective
// behavior by supplying an onMessage callback, since Go embedding cannot
// override a promoted method.
type Base struct {
	descriptor Descriptor

	mu     sync.RWMutex
	closed bool

	onMessage UnsolicitedHandler
}

// NewBase constructs a Base for descriptor, dispatching unsolicited
// namespace traffic to onMessage.
func NewBase(descriptor Descriptor, onMessage UnsolicitedHandler) *Base {
	return &Base{descriptor: descriptor, onMessage: onMessage}
}

func (b *Base) Descriptor() Descriptor {
	return b.descriptor
}

func (b *Base) Namespaces() []string {
	return b.descriptor.Namespaces
}

// HandleUnsolicited filters by namespace and forwards to onMessage. A
// message bearing a requestId is not forwarded: replies the correlator
// claimed never reach namespace listeners, and a late reply the correlator
// returned as Uncorrelated is dropped here.
func (b *Base) HandleUnsolicited(msg *wire.CastMessage) {
	if b.Closed() {
		return
	}
	if !b.ownsNamespace(msg.Namespace) {
		return
	}
	if header, err := wire.ParseHeader(msg.Payload()); err == nil && header.RequestID != 0 {
		return
	}
	if b.onMessage != nil {
		b.onMessage(msg)
	}
}

func (b *Base) ownsNamespace(namespace string) bool {
	for _, ns := range b.descriptor.Namespaces {
		if ns == namespace {
			return true
		}
	}
	return false
}

func (b *Base) Closed() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.closed
}

func (b *Base) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
}

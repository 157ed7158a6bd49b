package channel

import "github.com/go-castv2/castv2/wire"

// DeliveryResult describes what the dispatcher did with an inbound message
// after offering it to the response handler, per spec.md §4.1/§4.2.
type DeliveryResult int

const (
	// Unsolicited means no requestId was present, or the message's
	// namespace is not request/response at all: it is delivered only to
	// namespace listeners.
	Unsolicited DeliveryResult = iota

	// Correlated means the message matched a pending request and was
	// delivered exclusively to that waiter. It is not delivered to
	// namespace listeners.
	Correlated

	// Uncorrelated means the message carried a requestId that does not
	// correspond to any pending request (typically a late reply to a
	// request that has already timed out). It is still delivered to
	// namespace listeners, flagged as such.
	Uncorrelated
)

// ResponseHandler is offered every inbound message before namespace
// listeners see it. It is how the request/response correlator (package
// correlate) intercepts replies to outstanding requests.
type ResponseHandler interface {
	HandleMessage(*wire.CastMessage) DeliveryResult
}

// ResponseHandlerFunc adapts a plain function to ResponseHandler.
type ResponseHandlerFunc func(*wire.CastMessage) DeliveryResult

func (f ResponseHandlerFunc) HandleMessage(m *wire.CastMessage) DeliveryResult {
	return f(m)
}

// Sender is the minimal send-only contract a channel exposes to the layers
// built on top of it (the correlator, session, receiver, and media
// controllers). It lets those packages depend on an interface instead of
// the concrete *Channel type.
type Sender interface {
	Send(*wire.CastMessage) error
}

// NamespaceListener receives every message on a given namespace that the
// response handler did not claim as Correlated.
type NamespaceListener func(*wire.CastMessage)

// SocketErrorHandler is invoked exactly once when the channel's underlying
// transport fails or is closed.
type SocketErrorHandler func(error)

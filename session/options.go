package session

import (
	"time"

	"go.uber.org/zap"

	"github.com/go-castv2/castv2/logging"
)

// Defaults match the configuration surface in spec.md §6: a 5-second ping
// interval, up to 3 missed pings before the connection is declared dead,
// and a 5-second request timeout.
const (
	DefaultSenderIDPrefix = "sender-0"
	DefaultPingInterval   = 5 * time.Second
	DefaultPongMissed     = 3
	DefaultRequestTimeout = 5 * time.Second
)

// Options configures a Controller. The zero value is usable; every field
// falls back to a Default constant, following the private-accessor-method
// pattern the teacher uses throughout its device and client packages.
type Options struct {
	// SenderIDPrefix is combined with a process-unique suffix to build this
	// session's source id, per spec.md §9's resolution of the sender-id
	// uniqueness open question: unique per channel, not a single global
	// identity shared by the whole process.
	SenderIDPrefix string

	// PingInterval is the period between outbound heartbeat PINGs.
	PingInterval time.Duration

	// PongMissed is how many ping intervals may elapse without a PONG
	// before the connection is declared dead; the pong-timeout is
	// PingInterval * PongMissed.
	PongMissed int

	// RequestTimeout bounds the authentication handshake and any
	// correlated request issued by this session.
	RequestTimeout time.Duration

	Logger *zap.Logger
}

func (o Options) senderIDPrefix() string {
	if o.SenderIDPrefix != "" {
		return o.SenderIDPrefix
	}
	return DefaultSenderIDPrefix
}

func (o Options) pingInterval() time.Duration {
	if o.PingInterval > 0 {
		return o.PingInterval
	}
	return DefaultPingInterval
}

func (o Options) pongMissed() int {
	if o.PongMissed > 0 {
		return o.PongMissed
	}
	return DefaultPongMissed
}

func (o Options) pongTimeout() time.Duration {
	return o.pingInterval() * time.Duration(o.pongMissed())
}

func (o Options) requestTimeout() time.Duration {
	if o.RequestTimeout > 0 {
		return o.RequestTimeout
	}
	return DefaultRequestTimeout
}

func (o Options) logger() *zap.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return logging.Default()
}

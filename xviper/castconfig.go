package xviper

import (
	"time"

	"github.com/spf13/viper"

	"github.com/go-castv2/castv2/channel"
	"github.com/go-castv2/castv2/session"
)

// CastConfig is the configuration surface a caller binds through Viper:
// registration/connection shape plus the session's heartbeat and request
// timeout knobs.
type CastConfig struct {
	RegistrationType  string        `mapstructure:"registrationType"`
	FriendlyName      string        `mapstructure:"friendlyName"`
	UseTLS            bool          `mapstructure:"useTls"`
	SenderName        string        `mapstructure:"senderName"`
	DefaultReceiverID string        `mapstructure:"defaultReceiverId"`
	RequestTimeout    time.Duration `mapstructure:"requestTimeout"`
	PingInterval      time.Duration `mapstructure:"pingInterval"`
	PongMissed        int           `mapstructure:"pongMissed"`
}

// DefaultCastConfig mirrors the defaults session.Options already falls back
// to, so an unconfigured CastConfig produces the same session behavior as
// the zero-value session.Options. UseTLS defaults to true here, whereas the
// zero-value channel.Options dials plaintext.
func DefaultCastConfig() CastConfig {
	return CastConfig{
		RegistrationType:  "iOS",
		UseTLS:            true,
		SenderName:        session.DefaultSenderIDPrefix,
		DefaultReceiverID: "receiver-0",
		RequestTimeout:    session.DefaultRequestTimeout,
		PingInterval:      session.DefaultPingInterval,
		PongMissed:        session.DefaultPongMissed,
	}
}

// NewCastConfig unmarshals v into a CastConfig seeded with
// DefaultCastConfig, following the same BindConfig-then-Unmarshal sequence
// the teacher's xviper.New/Unmarshal helpers establish.
func NewCastConfig(v *viper.Viper) (CastConfig, error) {
	cfg := DefaultCastConfig()
	if err := Unmarshal(v, &cfg); err != nil {
		return CastConfig{}, err
	}
	return cfg, nil
}

// ChannelOptions projects the TLS-relevant half of CastConfig onto
// channel.Options.
func (c CastConfig) ChannelOptions() channel.Options {
	return channel.Options{UseTLS: c.UseTLS}
}

// SessionOptions projects the heartbeat/timeout half of CastConfig onto
// session.Options.
func (c CastConfig) SessionOptions() session.Options {
	return session.Options{
		SenderIDPrefix: c.SenderName,
		PingInterval:   c.PingInterval,
		PongMissed:     c.PongMissed,
		RequestTimeout: c.RequestTimeout,
	}
}

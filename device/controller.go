// Package device is the top-level entry point a caller actually drives: it
// owns one channel.Channel, one session.Controller, one receiver.Controller,
// and the set of media.Controllers for currently joined applications,
// exactly mirroring how the teacher's device package is the owning hub the
// manager, transactions, and listeners all hang off of.
package device

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/go-castv2/castv2/app"
	"github.com/go-castv2/castv2/cerrors"
	"github.com/go-castv2/castv2/channel"
	"github.com/go-castv2/castv2/logging"
	"github.com/go-castv2/castv2/media"
	"github.com/go-castv2/castv2/receiver"
	"github.com/go-castv2/castv2/session"
	"github.com/go-castv2/castv2/wire"
	"github.com/go-castv2/castv2/xmetrics"
)

// Options configures a Controller's channel dial and session heartbeat.
// The zero value is usable; every embedded Options type falls back to its
// own package defaults. Measures is optional; when nil, the Controller
// simply does not record metrics.
type Options struct {
	Channel  channel.Options
	Session  session.Options
	Logger   *zap.Logger
	Measures *xmetrics.Measures
}

func (o Options) logger() *zap.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return logging.Default()
}

// Controller drives one receiver end to end: dial, authenticate, launch
// applications, and join their media sessions.
type Controller struct {
	identity Identity
	opts     Options
	logger   *zap.Logger

	ch       *channel.Channel
	session  *session.Controller
	receiver *receiver.Controller

	mu    sync.Mutex
	media map[string]*media.Controller // keyed by transport id
}

// New constructs a Controller for identity. Connect must succeed before any
// other method is used.
func New(identity Identity, opts Options) *Controller {
	return &Controller{
		identity: identity,
		opts:     opts,
		logger:   opts.logger(),
		ch:       channel.New(opts.Channel),
		media:    make(map[string]*media.Controller),
	}
}

// Identity returns the identity this Controller was constructed with.
func (c *Controller) Identity() Identity {
	return c.identity
}

// Connect dials the receiver, completes the device authentication
// handshake, opens the default receiver's virtual connection, and starts
// the heartbeat loop.
func (c *Controller) Connect(ctx context.Context) error {
	if err := c.ch.Connect(ctx, c.identity.Address); err != nil {
		return cerrors.Wrap(cerrors.KindTransport, "dial receiver", err)
	}

	c.session = session.New(c.ch, wire.DefaultReceiverID, c.opts.Session)
	if c.opts.Measures != nil {
		c.session.OnDead(func(error) { c.opts.Measures.HeartbeatDeaths.Inc() })
		c.session.Correlator().SetMeasures(c.opts.Measures)
	}
	if err := c.session.Connect(ctx); err != nil {
		return err
	}

	if c.opts.Measures != nil {
		c.opts.Measures.Connects.Inc()
	}
	c.receiver = receiver.New(c.ch, c.session.Correlator(), c.session.SenderID(), wire.DefaultReceiverID, c.session.RequestTimeout())
	return nil
}

// Receiver returns the default receiver controller, valid after Connect
// succeeds.
func (c *Controller) Receiver() *receiver.Controller {
	return c.receiver
}

// Session returns the session controller, valid after Connect succeeds. It
// is exposed so callers can subscribe to OnDead/OnRemoteClose.
func (c *Controller) Session() *session.Controller {
	return c.session
}

// LaunchApplication issues LAUNCH for appID, joins the launched
// application's virtual connection, and, when the launched application is
// the Default Media Receiver, returns a ready-to-use media.Controller.
// For any other application id, the returned media.Controller is nil and
// callers are expected to drive that application's namespace directly.
func (c *Controller) LaunchApplication(ctx context.Context, appID string) (*media.Controller, error) {
	status, err := c.receiver.Launch(ctx, appID)
	if err != nil {
		return nil, err
	}
	if c.opts.Measures != nil {
		c.opts.Measures.ApplicationsLaunched.WithLabelValues(appID).Inc()
	}

	descriptor, err := findApplication(*status, appID)
	if err != nil {
		return nil, err
	}

	if err := c.session.JoinAppSession(descriptor.TransportID); err != nil {
		return nil, err
	}

	if descriptor.AppID != media.DefaultMediaReceiverAppID {
		return nil, nil
	}

	mediaCtrl := media.New(c.ch, c.session.Correlator(), c.session.SenderID(), descriptor, c.session.RequestTimeout())

	c.mu.Lock()
	c.media[descriptor.TransportID] = mediaCtrl
	c.mu.Unlock()

	return mediaCtrl, nil
}

// StopApplication issues STOP for sessionID and tears down its virtual
// connection and any associated media.Controller.
func (c *Controller) StopApplication(ctx context.Context, transportID, sessionID string) error {
	if _, err := c.receiver.Stop(ctx, sessionID); err != nil {
		return err
	}

	c.mu.Lock()
	if mediaCtrl, ok := c.media[transportID]; ok {
		mediaCtrl.Close()
		delete(c.media, transportID)
	}
	c.mu.Unlock()

	return c.session.StopAppSession(transportID)
}

// Close tears down every joined application session, the default receiver
// session, and the underlying channel.
func (c *Controller) Close() error {
	c.mu.Lock()
	for _, mediaCtrl := range c.media {
		mediaCtrl.Close()
	}
	c.media = make(map[string]*media.Controller)
	c.mu.Unlock()

	if c.opts.Measures != nil {
		c.opts.Measures.Disconnects.Inc()
	}

	if c.session == nil {
		return c.ch.Close(nil)
	}
	return c.session.Close()
}

func findApplication(status receiver.DeviceStatus, appID string) (app.Descriptor, error) {
	for _, application := range status.Status.Applications {
		if application.AppID != appID {
			continue
		}
		namespaces := make([]string, 0, len(application.Namespaces))
		for _, ns := range application.Namespaces {
			namespaces = append(namespaces, ns.Name)
		}
		return app.Descriptor{
			AppID:       application.AppID,
			DisplayName: application.DisplayName,
			SessionID:   application.SessionID,
			TransportID: application.TransportID,
			Namespaces:  namespaces,
		}, nil
	}
	return app.Descriptor{}, cerrors.New(cerrors.KindProtocol, "LAUNCH response did not include application "+appID)
}

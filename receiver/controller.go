package receiver

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-castv2/castv2/cerrors"
	"github.com/go-castv2/castv2/channel"
	"github.com/go-castv2/castv2/correlate"
	"github.com/go-castv2/castv2/wire"
)

// errorResponseTypes is the set of responseType/type values that indicate
// a receiver-namespace request failed, per spec.md §4.4/§7.
var errorResponseTypes = map[string]bool{
	"LAUNCH_ERROR":    true,
	"INVALID_REQUEST": true,
}

// Controller implements the receiver namespace: GET_STATUS, LAUNCH, STOP,
// SET_VOLUME, GET_APP_AVAILABILITY, and unsolicited RECEIVER_STATUS
// fan-out.
type Controller struct {
	ch             *channel.Channel
	correlator     *correlate.Correlator
	senderID       string
	destination    string
	requestTimeout time.Duration

	status statusRegistry
}

// New constructs a Controller. senderID and destination are normally the
// values the owning session.Controller used to authenticate, and
// wire.DefaultReceiverID respectively.
func New(ch *channel.Channel, correlator *correlate.Correlator, senderID, destination string, requestTimeout time.Duration) *Controller {
	c := &Controller{
		ch:             ch,
		correlator:     correlator,
		senderID:       senderID,
		destination:    destination,
		requestTimeout: requestTimeout,
	}
	ch.RegisterNamespaceListener(wire.NamespaceReceiver, c.onUnsolicited)
	return c
}

// OnStatus registers l to be notified with every unsolicited
// RECEIVER_STATUS broadcast.
func (c *Controller) OnStatus(l StatusListener) {
	c.status.add(l)
}

func (c *Controller) onUnsolicited(msg *wire.CastMessage) {
	var status DeviceStatus
	if err := json.Unmarshal(msg.Payload(), &status); err != nil {
		return
	}
	if status.Type != "RECEIVER_STATUS" {
		return
	}
	for _, l := range c.status.snapshot() {
		l(status)
	}
}

// GetStatus issues GET_STATUS.
func (c *Controller) GetStatus(ctx context.Context) (*DeviceStatus, error) {
	return c.request(ctx, newGetStatusRequest())
}

// Launch issues LAUNCH { appId }.
func (c *Controller) Launch(ctx context.Context, appID string) (*DeviceStatus, error) {
	return c.request(ctx, newLaunchRequest(appID))
}

// Stop issues STOP { sessionId }.
func (c *Controller) Stop(ctx context.Context, sessionID string) (*DeviceStatus, error) {
	return c.request(ctx, newStopRequest(sessionID))
}

// SetVolumeLevel issues SET_VOLUME { volume: { level } }.
func (c *Controller) SetVolumeLevel(ctx context.Context, level float64) (*DeviceStatus, error) {
	return c.request(ctx, newSetVolumeLevelRequest(level))
}

// SetVolumeMuted issues SET_VOLUME { volume: { muted } }.
func (c *Controller) SetVolumeMuted(ctx context.Context, muted bool) (*DeviceStatus, error) {
	return c.request(ctx, newSetVolumeMutedRequest(muted))
}

// GetAppAvailability issues GET_APP_AVAILABILITY { appId: [...] }.
func (c *Controller) GetAppAvailability(ctx context.Context, appIDs []string) (map[string]Availability, error) {
	resp, err := c.correlator.SendString(ctx, c.ch, c.senderID, c.destination, wire.NamespaceReceiver, newGetAppAvailabilityRequest(appIDs), c.requestTimeout)
	if err != nil {
		return nil, err
	}

	var availability AppAvailabilityResponse
	if err := json.Unmarshal(resp.Payload(), &availability); err != nil {
		return nil, cerrors.Wrap(cerrors.KindParse, "decode GET_APP_AVAILABILITY response", err)
	}
	return availability.Availability, nil
}

func (c *Controller) request(ctx context.Context, payload correlate.StringPayload) (*DeviceStatus, error) {
	resp, err := c.correlator.SendString(ctx, c.ch, c.senderID, c.destination, wire.NamespaceReceiver, payload, c.requestTimeout)
	if err != nil {
		return nil, err
	}

	if kind := strings.ToUpper(firstNonEmpty(headerResponseType(resp), headerType(resp))); errorResponseTypes[kind] {
		return nil, cerrors.New(cerrors.KindProtocol, "receiver request failed: "+kind)
	}

	var status DeviceStatus
	if err := json.Unmarshal(resp.Payload(), &status); err != nil {
		return nil, cerrors.Wrap(cerrors.KindParse, "decode device status", err)
	}
	return &status, nil
}

func headerResponseType(msg *wire.CastMessage) string {
	h, err := wire.ParseHeader(msg.Payload())
	if err != nil {
		return ""
	}
	return h.ResponseType
}

func headerType(msg *wire.CastMessage) string {
	h, err := wire.ParseHeader(msg.Payload())
	if err != nil {
		return ""
	}
	return h.Type
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

package media

import (
	"context"
	"encoding/json"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-castv2/castv2/app"
	"github.com/go-castv2/castv2/cerrors"
	"github.com/go-castv2/castv2/channel"
	"github.com/go-castv2/castv2/correlate"
	"github.com/go-castv2/castv2/wire"
)

// errorKinds is the authoritative media error set from spec.md §9's
// REDESIGN FLAG resolution: check responseType first, then type.
var errorKinds = map[string]bool{
	"INVALID_REQUEST":      true,
	"INVALID_PLAYER_STATE": true,
	"LOAD_FAILED":          true,
	"LOAD_CANCELLED":       true,
	"ERROR":                true,
}

// Controller is the Default Media Receiver application controller.
type Controller struct {
	*app.Base

	ch             *channel.Channel
	correlator     *correlate.Correlator
	senderID       string
	transportID    string
	requestTimeout time.Duration

	mediaSessionID int32 // atomic; 0 until a LOAD succeeds

	status statusRegistry
	errors errorRegistry
}

// New constructs a Controller for the application instance described by
// descriptor (AppID must be wire.DefaultMediaReceiverAppID), addressed at
// transportID on ch.
func New(ch *channel.Channel, correlator *correlate.Correlator, senderID string, descriptor app.Descriptor, requestTimeout time.Duration) *Controller {
	c := &Controller{
		ch:             ch,
		correlator:     correlator,
		senderID:       senderID,
		transportID:    descriptor.TransportID,
		requestTimeout: requestTimeout,
	}
	c.Base = app.NewBase(descriptor, c.handleUnsolicited)
	ch.RegisterNamespaceListener(wire.NamespaceMedia, c.HandleUnsolicited)
	return c
}

// OnStatus registers l to be notified with every unsolicited MEDIA_STATUS
// broadcast.
func (c *Controller) OnStatus(l StatusListener) {
	c.status.add(l)
}

// OnError registers l to be notified with every unsolicited media error
// broadcast.
func (c *Controller) OnError(l ErrorListener) {
	c.errors.add(l)
}

func (c *Controller) handleUnsolicited(msg *wire.CastMessage) {
	if kind := detectErrorKind(msg); kind != "" {
		for _, l := range c.errors.snapshot() {
			l(kind, msg.Payload())
		}
		return
	}

	header, err := wire.ParseHeader(msg.Payload())
	if err != nil || header.Type != "MEDIA_STATUS" {
		return
	}

	status, ok := decodeStatus(msg.Payload())
	if !ok {
		return
	}
	for _, l := range c.status.snapshot() {
		l(status)
	}
}

func detectErrorKind(msg *wire.CastMessage) string {
	header, err := wire.ParseHeader(msg.Payload())
	if err != nil {
		return ""
	}
	if kind := strings.ToUpper(header.ResponseType); errorKinds[kind] {
		return kind
	}
	if kind := strings.ToUpper(header.Type); errorKinds[kind] {
		return kind
	}
	return ""
}

func decodeStatus(payload []byte) (MediaStatus, bool) {
	var envelope statusEnvelope
	if err := json.Unmarshal(payload, &envelope); err == nil && len(envelope.Status) > 0 {
		return envelope.Status[0], true
	}

	var status MediaStatus
	if err := json.Unmarshal(payload, &status); err == nil {
		return status, true
	}
	return MediaStatus{}, false
}

func (c *Controller) currentMediaSessionID() int32 {
	return atomic.LoadInt32(&c.mediaSessionID)
}

func (c *Controller) rememberMediaSessionID(id int32) {
	atomic.StoreInt32(&c.mediaSessionID, id)
}

func (c *Controller) send(ctx context.Context, payload correlate.StringPayload) (MediaStatus, error) {
	if c.Closed() {
		return MediaStatus{}, cerrors.New(cerrors.KindState, "media session has been stopped")
	}

	resp, err := c.correlator.SendString(ctx, c.ch, c.senderID, c.transportID, wire.NamespaceMedia, payload, c.requestTimeout)
	if err != nil {
		return MediaStatus{}, err
	}

	if kind := detectErrorKind(resp); kind != "" {
		return MediaStatus{}, cerrors.New(cerrors.KindProtocol, "media request failed: "+kind)
	}

	status, ok := decodeStatus(resp.Payload())
	if !ok {
		return MediaStatus{}, cerrors.New(cerrors.KindParse, "decode media status")
	}
	return status, nil
}

// Load issues LOAD and remembers the returned media session id for every
// subsequent request on this controller.
func (c *Controller) Load(ctx context.Context, media MediaInfo, autoplay bool, queue []QueueItem) (MediaStatus, error) {
	req := &loadRequest{
		Header:      wire.Header{Type: "LOAD"},
		Media:       media,
		Autoplay:    autoplay,
		CurrentTime: 0,
		Queue:       queue,
	}

	status, err := c.send(ctx, req)
	if err != nil {
		return MediaStatus{}, err
	}
	c.rememberMediaSessionID(status.MediaSessionID)
	return status, nil
}

func (c *Controller) transport(ctx context.Context, requestType string) (MediaStatus, error) {
	return c.send(ctx, &transportRequest{
		Header:         wire.Header{Type: requestType},
		MediaSessionID: c.currentMediaSessionID(),
	})
}

// Play issues PLAY for the current media session.
func (c *Controller) Play(ctx context.Context) (MediaStatus, error) { return c.transport(ctx, "PLAY") }

// Pause issues PAUSE for the current media session.
func (c *Controller) Pause(ctx context.Context) (MediaStatus, error) {
	return c.transport(ctx, "PAUSE")
}

// Stop issues STOP for the current media session.
func (c *Controller) Stop(ctx context.Context) (MediaStatus, error) { return c.transport(ctx, "STOP") }

// Seek issues SEEK to currentTime for the current media session.
func (c *Controller) Seek(ctx context.Context, currentTime float64) (MediaStatus, error) {
	return c.send(ctx, &transportRequest{
		Header:         wire.Header{Type: "SEEK"},
		MediaSessionID: c.currentMediaSessionID(),
		CurrentTime:    currentTime,
	})
}

// GetMediaStatus issues GET_STATUS for the current media session.
func (c *Controller) GetMediaStatus(ctx context.Context) (MediaStatus, error) {
	return c.transport(ctx, "GET_STATUS")
}

// Next skips to the next queue item (QUEUE_UPDATE, jump=1).
func (c *Controller) Next(ctx context.Context) (MediaStatus, error) {
	return c.send(ctx, &queueUpdateRequest{
		Header:         wire.Header{Type: "QUEUE_UPDATE"},
		MediaSessionID: c.currentMediaSessionID(),
		Jump:           1,
	})
}

// Previous returns to the previous queue item (QUEUE_UPDATE, jump=-1).
func (c *Controller) Previous(ctx context.Context) (MediaStatus, error) {
	return c.send(ctx, &queueUpdateRequest{
		Header:         wire.Header{Type: "QUEUE_UPDATE"},
		MediaSessionID: c.currentMediaSessionID(),
		Jump:           -1,
	})
}

// SetRepeatMode issues QUEUE_UPDATE with a new repeat mode.
func (c *Controller) SetRepeatMode(ctx context.Context, mode RepeatMode) (MediaStatus, error) {
	return c.send(ctx, &queueUpdateRequest{
		Header:         wire.Header{Type: "QUEUE_UPDATE"},
		MediaSessionID: c.currentMediaSessionID(),
		RepeatMode:     mode,
	})
}

// AddToQueue issues QUEUE_INSERT.
func (c *Controller) AddToQueue(ctx context.Context, items []QueueItem) (MediaStatus, error) {
	return c.send(ctx, &queueInsertRequest{
		Header:         wire.Header{Type: "QUEUE_INSERT"},
		MediaSessionID: c.currentMediaSessionID(),
		Items:          items,
	})
}

// RemoveFromQueue issues QUEUE_REMOVE.
func (c *Controller) RemoveFromQueue(ctx context.Context, itemIDs []int32) (MediaStatus, error) {
	return c.send(ctx, &queueRemoveRequest{
		Header:         wire.Header{Type: "QUEUE_REMOVE"},
		MediaSessionID: c.currentMediaSessionID(),
		ItemIDs:        itemIDs,
	})
}

// ListQueueItems issues QUEUE_GET_ITEM_IDS followed by QUEUE_GET_ITEMS, per
// spec.md §4.5's two-step listing operation.
func (c *Controller) ListQueueItems(ctx context.Context) ([]QueueItem, error) {
	if c.Closed() {
		return nil, cerrors.New(cerrors.KindState, "media session has been stopped")
	}

	idsResp, err := c.correlator.SendString(ctx, c.ch, c.senderID, c.transportID, wire.NamespaceMedia,
		&queueGetItemIDsRequest{Header: wire.Header{Type: "QUEUE_GET_ITEM_IDS"}, MediaSessionID: c.currentMediaSessionID()},
		c.requestTimeout)
	if err != nil {
		return nil, err
	}
	if kind := detectErrorKind(idsResp); kind != "" {
		return nil, cerrors.New(cerrors.KindProtocol, "media request failed: "+kind)
	}

	var ids queueItemIDsResponse
	if err := json.Unmarshal(idsResp.Payload(), &ids); err != nil {
		return nil, cerrors.Wrap(cerrors.KindParse, "decode QUEUE_GET_ITEM_IDS response", err)
	}

	itemsResp, err := c.correlator.SendString(ctx, c.ch, c.senderID, c.transportID, wire.NamespaceMedia,
		&queueGetItemsRequest{Header: wire.Header{Type: "QUEUE_GET_ITEMS"}, MediaSessionID: c.currentMediaSessionID(), ItemIDs: ids.ItemIDs},
		c.requestTimeout)
	if err != nil {
		return nil, err
	}
	if kind := detectErrorKind(itemsResp); kind != "" {
		return nil, cerrors.New(cerrors.KindProtocol, "media request failed: "+kind)
	}

	var items queueItemsResponse
	if err := json.Unmarshal(itemsResp.Payload(), &items); err != nil {
		return nil, cerrors.Wrap(cerrors.KindParse, "decode QUEUE_GET_ITEMS response", err)
	}
	return items.Items, nil
}

package session

import (
	"encoding/json"

	"github.com/go-castv2/castv2/channel"
	"github.com/go-castv2/castv2/wire"
)

// marshalAndSend JSON-encodes payload and sends it as a STRING CastMessage.
// It is used for the fire-and-forget CONNECT/CLOSE/PING/PONG broadcasts,
// which carry no requestId and therefore bypass the correlator entirely.
func marshalAndSend(sender channel.Sender, sourceID, destination, namespace string, payload interface{}) (*wire.CastMessage, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	msg := wire.NewStringMessage(sourceID, destination, namespace, data)
	if err := sender.Send(msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// connectPayload, closePayload, pingPayload, and pongPayload are the
// fire-and-forget broadcasts on tp.connection and tp.heartbeat: none of
// them carry or expect a requestId, so they are sent directly through the
// channel rather than through the correlator.
type connectPayload struct {
	wire.Header
}

func newConnectPayload() connectPayload {
	return connectPayload{Header: wire.Header{Type: "CONNECT"}}
}

type closePayload struct {
	wire.Header
}

func newClosePayload() closePayload {
	return closePayload{Header: wire.Header{Type: "CLOSE"}}
}

type heartbeatPayload struct {
	wire.Header
}

func newPingPayload() heartbeatPayload {
	return heartbeatPayload{Header: wire.Header{Type: "PING"}}
}

func newPongPayload() heartbeatPayload {
	return heartbeatPayload{Header: wire.Header{Type: "PONG"}}
}

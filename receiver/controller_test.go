package receiver

import (
	"context"
	"encoding/json"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/go-castv2/castv2/channel"
	"github.com/go-castv2/castv2/correlate"
	"github.com/go-castv2/castv2/wire"
)

func newTestController(t *testing.T, respond func(req *wire.CastMessage) *wire.CastMessage) (*Controller, func()) {
	t.Helper()

	clientConn, peerConn := net.Pipe()
	ch := channel.NewWithConn(channel.Options{}, clientConn)
	corr := correlate.New()
	ch.SetResponseHandler(corr)

	stop := make(chan struct{})
	go func() {
		for {
			req, err := wire.ReadFrame(peerConn)
			if err != nil {
				return
			}
			reply := respond(req)
			if reply == nil {
				continue
			}
			select {
			case <-stop:
				return
			default:
			}
			_ = wire.WriteFrame(peerConn, reply)
		}
	}()

	ctrl := New(ch, corr, "sender-0-test", wire.DefaultReceiverID, time.Second)

	cleanup := func() {
		close(stop)
		_ = peerConn.Close()
		_ = ch.Close(nil)
	}
	t.Cleanup(cleanup)

	return ctrl, cleanup
}

func TestGetStatusReturnsParsedDeviceStatus(t *testing.T) {
	require := require.New(t)

	ctrl, _ := newTestController(t, func(req *wire.CastMessage) *wire.CastMessage {
		header, _ := wire.ParseHeader(req.Payload())
		body := `{"type":"RECEIVER_STATUS","responseType":"RECEIVER_STATUS","requestId":` +
			itoa(header.RequestID) + `,"status":{"volume":{"level":0.5,"muted":false}}}`
		return wire.NewStringMessage(req.DestinationID, req.SourceID, req.Namespace, []byte(body))
	})

	status, err := ctrl.GetStatus(context.Background())
	require.NoError(err)
	require.Equal(0.5, status.Status.Volume.Level)
	require.False(status.Status.Volume.Muted)
}

func TestLaunchUnknownAppReturnsProtocolError(t *testing.T) {
	require := require.New(t)

	ctrl, _ := newTestController(t, func(req *wire.CastMessage) *wire.CastMessage {
		header, _ := wire.ParseHeader(req.Payload())
		body := `{"responseType":"LAUNCH_ERROR","requestId":` + itoa(header.RequestID) + `}`
		return wire.NewStringMessage(req.DestinationID, req.SourceID, req.Namespace, []byte(body))
	})

	_, err := ctrl.Launch(context.Background(), "FOOBAR")
	require.Error(err)
	require.Contains(err.Error(), "LAUNCH_ERROR")
}

func TestUnsolicitedReceiverStatusFansOutToListeners(t *testing.T) {
	require := require.New(t)

	clientConn, peerConn := net.Pipe()
	ch := channel.NewWithConn(channel.Options{}, clientConn)
	corr := correlate.New()
	ch.SetResponseHandler(corr)
	ctrl := New(ch, corr, "sender-0-test", wire.DefaultReceiverID, time.Second)
	t.Cleanup(func() {
		_ = peerConn.Close()
		_ = ch.Close(nil)
	})

	received := make(chan DeviceStatus, 1)
	ctrl.OnStatus(func(s DeviceStatus) { received <- s })

	body, err := json.Marshal(map[string]interface{}{"type": "RECEIVER_STATUS"})
	require.NoError(err)
	require.NoError(wire.WriteFrame(peerConn, wire.NewStringMessage(wire.DefaultReceiverID, "sender-0-test", wire.NamespaceReceiver, body)))

	select {
	case s := <-received:
		require.Equal("RECEIVER_STATUS", s.Type)
	case <-time.After(time.Second):
		t.Fatal("status listener was not notified")
	}
}

func itoa(v int32) string {
	return strconv.Itoa(int(v))
}

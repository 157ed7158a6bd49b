package media

import (
	"context"
	"encoding/json"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/go-castv2/castv2/app"
	"github.com/go-castv2/castv2/channel"
	"github.com/go-castv2/castv2/correlate"
	"github.com/go-castv2/castv2/wire"
)

const testTransportID = "app-transport-1"

func newTestController(t *testing.T, respond func(req *wire.CastMessage) *wire.CastMessage) (*Controller, net.Conn) {
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

	ctrl := New(ch, corr, "sender-0-test", app.Descriptor{
		AppID:       DefaultMediaReceiverAppID,
		TransportID: testTransportID,
		Namespaces:  []string{wire.NamespaceMedia},
	}, time.Second)

	t.Cleanup(func() {
		close(stop)
		_ = peerConn.Close()
		_ = ch.Close(nil)
	})

	return ctrl, peerConn
}

func itoa(v int32) string {
	return strconv.Itoa(int(v))
}

func TestLoadRemembersMediaSessionID(t *testing.T) {
	require := require.New(t)

	ctrl, _ := newTestController(t, func(req *wire.CastMessage) *wire.CastMessage {
		header, _ := wire.ParseHeader(req.Payload())
		body := `{"type":"MEDIA_STATUS","requestId":` + itoa(header.RequestID) +
			`,"status":[{"mediaSessionId":42,"playerState":"PLAYING"}]}`
		return wire.NewStringMessage(req.DestinationID, req.SourceID, req.Namespace, []byte(body))
	})

	status, err := ctrl.Load(context.Background(), MediaInfo{ContentID: "https://example.com/video.mp4"}, true, nil)
	require.NoError(err)
	require.EqualValues(42, status.MediaSessionID)
	require.Equal(PlayerStatePlaying, status.PlayerState)
	require.EqualValues(42, ctrl.currentMediaSessionID())
}

func TestPlayUsesRememberedMediaSessionID(t *testing.T) {
	require := require.New(t)

	var sawSessionID int32 = -1
	ctrl, _ := newTestController(t, func(req *wire.CastMessage) *wire.CastMessage {
		header, _ := wire.ParseHeader(req.Payload())
		if header.Type == "PLAY" {
			var parsed transportRequest
			_ = json.Unmarshal(req.Payload(), &parsed)
			sawSessionID = parsed.MediaSessionID
		}
		body := `{"type":"MEDIA_STATUS","requestId":` + itoa(header.RequestID) +
			`,"status":[{"mediaSessionId":7,"playerState":"PLAYING"}]}`
		return wire.NewStringMessage(req.DestinationID, req.SourceID, req.Namespace, []byte(body))
	})

	_, err := ctrl.Load(context.Background(), MediaInfo{ContentID: "x"}, true, nil)
	require.NoError(err)

	_, err = ctrl.Play(context.Background())
	require.NoError(err)
	require.EqualValues(7, sawSessionID)
}

func TestRequestErrorKindDetection(t *testing.T) {
	require := require.New(t)

	ctrl, _ := newTestController(t, func(req *wire.CastMessage) *wire.CastMessage {
		header, _ := wire.ParseHeader(req.Payload())
		body := `{"responseType":"LOAD_FAILED","requestId":` + itoa(header.RequestID) + `}`
		return wire.NewStringMessage(req.DestinationID, req.SourceID, req.Namespace, []byte(body))
	})

	_, err := ctrl.Load(context.Background(), MediaInfo{ContentID: "bad"}, true, nil)
	require.Error(err)
	require.Contains(err.Error(), "LOAD_FAILED")
}

func TestUnsolicitedMediaStatusFansOutToListeners(t *testing.T) {
	require := require.New(t)

	ctrl, peerConn := newTestController(t, func(*wire.CastMessage) *wire.CastMessage { return nil })

	received := make(chan MediaStatus, 1)
	ctrl.OnStatus(func(s MediaStatus) { received <- s })

	body := `{"type":"MEDIA_STATUS","status":[{"mediaSessionId":9,"playerState":"PAUSED"}]}`
	require.NoError(wire.WriteFrame(peerConn, wire.NewStringMessage(testTransportID, "sender-0-test", wire.NamespaceMedia, []byte(body))))

	select {
	case s := <-received:
		require.EqualValues(9, s.MediaSessionID)
		require.Equal(PlayerStatePaused, s.PlayerState)
	case <-time.After(time.Second):
		t.Fatal("status listener was not notified")
	}
}

func TestUnsolicitedMediaErrorFansOutToErrorListeners(t *testing.T) {
	require := require.New(t)

	ctrl, peerConn := newTestController(t, func(*wire.CastMessage) *wire.CastMessage { return nil })

	received := make(chan string, 1)
	ctrl.OnError(func(kind string, _ []byte) { received <- kind })

	body := `{"type":"INVALID_PLAYER_STATE"}`
	require.NoError(wire.WriteFrame(peerConn, wire.NewStringMessage(testTransportID, "sender-0-test", wire.NamespaceMedia, []byte(body))))

	select {
	case kind := <-received:
		require.Equal("INVALID_PLAYER_STATE", kind)
	case <-time.After(time.Second):
		t.Fatal("error listener was not notified")
	}
}

func TestListQueueItemsIssuesTwoStepRequest(t *testing.T) {
	require := require.New(t)

	ctrl, _ := newTestController(t, func(req *wire.CastMessage) *wire.CastMessage {
		header, _ := wire.ParseHeader(req.Payload())
		switch header.Type {
		case "QUEUE_GET_ITEM_IDS":
			return wire.NewStringMessage(req.DestinationID, req.SourceID, req.Namespace,
				[]byte(`{"requestId":`+itoa(header.RequestID)+`,"itemIds":[1,2]}`))
		case "QUEUE_GET_ITEMS":
			return wire.NewStringMessage(req.DestinationID, req.SourceID, req.Namespace,
				[]byte(`{"requestId":`+itoa(header.RequestID)+`,"items":[{"itemId":1,"media":{"contentId":"a"}},{"itemId":2,"media":{"contentId":"b"}}]}`))
		}
		return nil
	})

	items, err := ctrl.ListQueueItems(context.Background())
	require.NoError(err)
	require.Len(items, 2)
	require.Equal("a", items[0].Media.ContentID)
}

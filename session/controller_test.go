package session

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/go-castv2/castv2/channel"
	"github.com/go-castv2/castv2/wire"
)

// fakeReceiver drives the peer side of a net.Pipe as if it were a Cast
// receiver: it answers the device auth handshake and auto-replies PONG to
// every PING, which is all Connect needs to reach StateOpened.
type fakeReceiver struct {
	conn net.Conn
	t    *testing.T
}

func (r *fakeReceiver) serve(stop <-chan struct{}) {
	for {
		msg, err := wire.ReadFrame(r.conn)
		if err != nil {
			return
		}

		select {
		case <-stop:
			return
		default:
		}

		switch msg.Namespace {
		case wire.NamespaceDeviceAuth:
			reply := wire.NewBinaryMessage(msg.DestinationID, msg.SourceID, wire.NamespaceDeviceAuth, authOKReply())
			_ = wire.WriteFrame(r.conn, reply)
		case wire.NamespaceHeartbeat:
			var h wire.Header
			_ = json.Unmarshal(msg.Payload(), &h)
			if h.Type == "PING" {
				pong, _ := json.Marshal(wire.Header{Type: "PONG"})
				_ = wire.WriteFrame(r.conn, wire.NewStringMessage(msg.DestinationID, msg.SourceID, wire.NamespaceHeartbeat, pong))
			}
		}
	}
}

// authOKReply hand-builds a binary DeviceAuthMessage with no Error field
// set, i.e. {"response": {}}.
func authOKReply() []byte {
	// field 2 (response), empty embedded message
	return []byte{0x12, 0x00}
}

func newTestSession(t *testing.T) (*Controller, *fakeReceiver, func()) {
	t.Helper()

	clientConn, peerConn := net.Pipe()
	ch := channel.NewWithConn(channel.Options{}, clientConn)

	ctrl := New(ch, wire.DefaultReceiverID, Options{
		PingInterval:   20 * time.Millisecond,
		PongMissed:     1,
		RequestTimeout: time.Second,
	})

	receiver := &fakeReceiver{conn: peerConn, t: t}
	stop := make(chan struct{})
	go receiver.serve(stop)

	cleanup := func() {
		_ = ctrl.Close()
		close(stop)
		_ = peerConn.Close()
	}
	t.Cleanup(cleanup)

	return ctrl, receiver, cleanup
}

func TestControllerConnectReachesOpenedState(t *testing.T) {
	require := require.New(t)
	ctrl, _, _ := newTestSession(t)

	require.NoError(ctrl.Connect(context.Background()))
	require.Equal(StateOpened, ctrl.State())
	require.NotEmpty(ctrl.SenderID())
}

func TestControllerJoinAndStopAppSessionAreIdempotent(t *testing.T) {
	require := require.New(t)
	ctrl, _, _ := newTestSession(t)
	require.NoError(ctrl.Connect(context.Background()))

	require.NoError(ctrl.JoinAppSession("web-4"))
	require.NoError(ctrl.JoinAppSession("web-4"))
	require.NoError(ctrl.StopAppSession("web-4"))
	require.NoError(ctrl.StopAppSession("web-4"))
}

func TestControllerConnectFailsWithoutFirstPong(t *testing.T) {
	require := require.New(t)

	clientConn, peerConn := net.Pipe()
	ch := channel.NewWithConn(channel.Options{}, clientConn)

	ctrl := New(ch, wire.DefaultReceiverID, Options{
		PingInterval:   10 * time.Millisecond,
		PongMissed:     1,
		RequestTimeout: time.Second,
	})

	stop := make(chan struct{})
	go func() {
		// answer only the handshake, never any heartbeat, so Connect must
		// never reach StateOpened.
		msg, err := wire.ReadFrame(peerConn)
		if err != nil {
			return
		}
		if msg.Namespace == wire.NamespaceDeviceAuth {
			reply := wire.NewBinaryMessage(msg.DestinationID, msg.SourceID, wire.NamespaceDeviceAuth, authOKReply())
			_ = wire.WriteFrame(peerConn, reply)
		}
		<-stop
	}()
	t.Cleanup(func() {
		_ = ctrl.Close()
		close(stop)
		_ = peerConn.Close()
	})

	err := ctrl.Connect(context.Background())
	require.Error(err)
	require.Equal(StateClosed, ctrl.State())
}

func TestControllerDeclaresDeadAfterPongTimeout(t *testing.T) {
	require := require.New(t)

	clientConn, peerConn := net.Pipe()
	ch := channel.NewWithConn(channel.Options{}, clientConn)

	ctrl := New(ch, wire.DefaultReceiverID, Options{
		PingInterval:   10 * time.Millisecond,
		PongMissed:     3,
		RequestTimeout: time.Second,
	})

	stop := make(chan struct{})
	receiver := &fakeReceiver{conn: peerConn, t: t}
	go func() {
		// answer the handshake and exactly the first PING, so Connect
		// reaches StateOpened, then go silent so the liveness check must
		// fire on its own for every PING after that.
		answeredPing := false
		for {
			msg, err := wire.ReadFrame(receiver.conn)
			if err != nil {
				return
			}
			switch msg.Namespace {
			case wire.NamespaceDeviceAuth:
				reply := wire.NewBinaryMessage(msg.DestinationID, msg.SourceID, wire.NamespaceDeviceAuth, authOKReply())
				_ = wire.WriteFrame(receiver.conn, reply)
			case wire.NamespaceHeartbeat:
				if answeredPing {
					continue
				}
				var h wire.Header
				_ = json.Unmarshal(msg.Payload(), &h)
				if h.Type == "PING" {
					pong, _ := json.Marshal(wire.Header{Type: "PONG"})
					_ = wire.WriteFrame(receiver.conn, wire.NewStringMessage(msg.DestinationID, msg.SourceID, wire.NamespaceHeartbeat, pong))
					answeredPing = true
				}
			}
			select {
			case <-stop:
				return
			default:
			}
		}
	}()
	t.Cleanup(func() {
		_ = ctrl.Close()
		close(stop)
		_ = peerConn.Close()
	})

	require.NoError(ctrl.Connect(context.Background()))

	dead := make(chan error, 1)
	ctrl.OnDead(func(err error) { dead <- err })

	select {
	case err := <-dead:
		require.Error(err)
	case <-time.After(time.Second):
		t.Fatal("expected dead listener to fire after pong timeout")
	}
}

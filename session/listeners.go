package session

import "sync"

// DeadListener is notified exactly once, the first time this session is
// declared dead: the heartbeat liveness check fails, a PING cannot be
// sent, or the channel reports a socket error.
type DeadListener func(error)

// RemoteCloseListener is notified when the receiver sends CLOSE on
// tp.connection for transportID, i.e. it tore down an application session
// from its side rather than in response to StopAppSession.
type RemoteCloseListener func(transportID string)

// deadRegistry and closeRegistry are copy-on-write listener slices, the
// same strategy as channel's listenerRegistry and ultimately the teacher's
// device.Listeners aggregate: registration never blocks or contends with
// an in-flight fan-out.
type deadRegistry struct {
	mu  sync.Mutex
	fns []DeadListener
}

func (r *deadRegistry) add(l DeadListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	next := make([]DeadListener, len(r.fns)+1)
	copy(next, r.fns)
	next[len(r.fns)] = l
	r.fns = next
}

func (r *deadRegistry) snapshot() []DeadListener {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fns
}

type closeRegistry struct {
	mu  sync.Mutex
	fns []RemoteCloseListener
}

func (r *closeRegistry) add(l RemoteCloseListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	next := make([]RemoteCloseListener, len(r.fns)+1)
	copy(next, r.fns)
	next[len(r.fns)] = l
	r.fns = next
}

func (r *closeRegistry) snapshot() []RemoteCloseListener {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fns
}

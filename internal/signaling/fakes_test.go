package signaling

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"
)

type notification struct {
	method string
	data   interface{}
}

type fakeTransport struct {
	mu     sync.Mutex
	notes  []notification
	fail   bool
	done   chan struct{}
	closed sync.Once
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{done: make(chan struct{})}
}

func (t *fakeTransport) Notify(method string, data interface{}) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fail {
		return errors.New("connection gone")
	}
	t.notes = append(t.notes, notification{method: method, data: data})
	return nil
}

func (t *fakeTransport) Close() {
	t.closed.Do(func() { close(t.done) })
}

func (t *fakeTransport) Done() <-chan struct{} { return t.done }

func (t *fakeTransport) isClosed() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

func (t *fakeTransport) notifications() []notification {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]notification(nil), t.notes...)
}

type fakeResponder struct {
	calls    int
	accepted bool
	data     interface{}
	err      error
}

func (r *fakeResponder) Accept(data interface{}) {
	r.calls++
	r.accepted = true
	r.data = data
}

func (r *fakeResponder) Reject(err error) {
	r.calls++
	r.err = err
}

type presenceEvent struct {
	kind, room, peer string
}

type fakePresence struct {
	mu     sync.Mutex
	events []presenceEvent
}

func (p *fakePresence) add(kind, room, peer string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, presenceEvent{kind, room, peer})
}

func (p *fakePresence) RoomCreated(roomID, _ string)     { p.add("created", roomID, "") }
func (p *fakePresence) PeerJoined(roomID, peerID string) { p.add("joined", roomID, peerID) }
func (p *fakePresence) PeerLeft(roomID, peerID string)   { p.add("left", roomID, peerID) }
func (p *fakePresence) RoomClosed(roomID string)         { p.add("closed", roomID, "") }

func (p *fakePresence) snapshot() []presenceEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]presenceEvent(nil), p.events...)
}

// request sends method with a JSON-encoded payload and returns the outcome.
func request(t *testing.T, p *Peer, method string, payload interface{}) *fakeResponder {
	t.Helper()
	var data json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		data = b
	}
	res := &fakeResponder{}
	p.HandleRequest(method, data, res)
	if res.calls != 1 {
		t.Fatalf("%s completed %d times, want 1", method, res.calls)
	}
	return res
}

func admit(t *testing.T, room *Room, peerID string) (*Peer, *fakeTransport) {
	t.Helper()
	tr := newFakeTransport()
	p, err := room.Admit(peerID, tr)
	if err != nil {
		t.Fatalf("Admit(%q) failed: %v", peerID, err)
	}
	return p, tr
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

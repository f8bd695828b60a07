package signaling

// Transport is the per-connection channel toward a remote peer.
type Transport interface {
	// Notify queues a one-way message and must not block.
	Notify(method string, data interface{}) error
	// Close tears the connection down. It is safe to call more than once.
	Close()
	// Done is closed once the connection is gone.
	Done() <-chan struct{}
}

// Responder completes a single request.
type Responder interface {
	Accept(data interface{})
	Reject(err error)
}

// Presence observes room and peer lifecycle. Hooks are called with the room
// or registry lock held, so their order matches the room's own order.
// Implementations must not block or call back into the registry.
type Presence interface {
	RoomCreated(roomID, instanceID string)
	PeerJoined(roomID, peerID string)
	PeerLeft(roomID, peerID string)
	RoomClosed(roomID string)
}

type nopPresence struct{}

func (nopPresence) RoomCreated(string, string) {}
func (nopPresence) PeerJoined(string, string)  {}
func (nopPresence) PeerLeft(string, string)    {}
func (nopPresence) RoomClosed(string)          {}

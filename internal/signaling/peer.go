package signaling

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/mossy-p/room-signaling/internal/models"
	"github.com/rs/zerolog/log"
)

// Peer is one connected endpoint's session inside a room.
// State fields are guarded by the owning room's mutex.
type Peer struct {
	id        string
	room      *Room
	transport Transport

	joined      bool
	displayName string
	isMaster    bool
}

func newPeer(id string, room *Room, transport Transport) *Peer {
	return &Peer{
		id:        id,
		room:      room,
		transport: transport,
	}
}

func (p *Peer) ID() string { return p.id }

// Room returns the room the peer was admitted into.
func (p *Peer) Room() *Room { return p.room }

// Done is closed when the peer's connection is gone.
func (p *Peer) Done() <-chan struct{} { return p.transport.Done() }

// Joined reports whether the peer completed join or masterJoin.
func (p *Peer) Joined() bool {
	p.room.mu.Lock()
	defer p.room.mu.Unlock()
	return p.joined
}

// Info returns the peer's current identity and role.
func (p *Peer) Info() models.PeerInfo {
	p.room.mu.Lock()
	defer p.room.mu.Unlock()
	return p.infoLocked()
}

func (p *Peer) infoLocked() models.PeerInfo {
	return models.PeerInfo{
		ID:          p.id,
		DisplayName: p.displayName,
		IsMaster:    p.isMaster,
	}
}

// HandleRequest dispatches one request to the room. The responder is
// completed exactly once regardless of what the handler does.
func (p *Peer) HandleRequest(method string, data json.RawMessage, res Responder) {
	once := &onceResponder{res: res}
	p.room.dispatch(p, method, data, once)
	once.Reject(errors.New("request not handled"))
}

// Close runs the leave path and tears down the connection.
func (p *Peer) Close() {
	p.room.leave(p)
	p.transport.Close()
}

func (p *Peer) notify(method string, data interface{}) {
	if err := p.transport.Notify(method, data); err != nil {
		log.Debug().Str("module", "signaling.peer").Str("room", p.room.id).Str("peer", p.id).
			Str("method", method).Err(err).Msg("notify dropped")
	}
}

type onceResponder struct {
	mu   sync.Mutex
	done bool
	res  Responder
}

func (o *onceResponder) complete() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.done {
		return false
	}
	o.done = true
	return true
}

func (o *onceResponder) Accept(data interface{}) {
	if o.complete() {
		o.res.Accept(data)
	}
}

func (o *onceResponder) Reject(err error) {
	if o.complete() {
		o.res.Reject(err)
	}
}

package signaling

import (
	"sync"
	"time"

	"github.com/mossy-p/room-signaling/internal/models"
	"github.com/rs/zerolog/log"
)

// Room owns the peer sessions for one room identifier.
// A closed room is never reused.
type Room struct {
	id         string
	instanceID string
	createdAt  time.Time

	presence Presence
	onClose  func(*Room)

	mu     sync.Mutex
	peers  []*Peer
	closed bool
}

func newRoom(id, instanceID string, presence Presence, onClose func(*Room)) *Room {
	return &Room{
		id:         id,
		instanceID: instanceID,
		createdAt:  time.Now(),
		presence:   presence,
		onClose:    onClose,
	}
}

func (r *Room) ID() string { return r.id }

// InstanceID differs between rooms created for the same identifier.
func (r *Room) InstanceID() string { return r.instanceID }

func (r *Room) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// PeerCount counts admitted peers, joined or not.
func (r *Room) PeerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.peers)
}

// Peer looks up an admitted peer by id.
func (r *Room) Peer(peerID string) (*Peer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.findLocked(peerID)
	return p, p != nil
}

// Info returns a snapshot of the room.
func (r *Room) Info() models.RoomInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return models.RoomInfo{
		ID:         r.id,
		InstanceID: r.instanceID,
		CreatedAt:  r.createdAt,
		PeerCount:  len(r.peers),
		Joined:     peerInfos(r.joinedPeersLocked(nil)),
	}
}

// Admit registers a new session for peerID. An existing session with the
// same id is detached first and its leave is announced to the others.
func (r *Room) Admit(peerID string, transport Transport) (*Peer, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrRoomClosed
	}

	var recipients []*Peer
	stale := r.findLocked(peerID)
	staleJoined := stale != nil && stale.joined
	if stale != nil {
		r.removeLocked(stale)
		if staleJoined {
			recipients = r.joinedPeersLocked(nil)
			r.presence.PeerLeft(r.id, peerID)
		}
	}

	p := newPeer(peerID, r, transport)
	r.peers = append(r.peers, p)
	r.mu.Unlock()

	if stale != nil {
		log.Info().Str("module", "signaling.room").Str("room", r.id).Str("peer", peerID).
			Msg("replacing session with same peer id")
		stale.transport.Close()
		if staleJoined {
			r.announceLeave(peerID, recipients)
		}
	}

	go func() {
		<-transport.Done()
		r.leave(p)
	}()

	log.Info().Str("module", "signaling.room").Str("room", r.id).Str("peer", peerID).Msg("peer admitted")
	return p, nil
}

// leave removes p from the room. Only the call that actually removes the
// session announces it, so each leave is reported once.
func (r *Room) leave(p *Peer) {
	r.mu.Lock()
	if r.closed || !r.removeLocked(p) {
		r.mu.Unlock()
		return
	}
	joined := p.joined
	var recipients []*Peer
	if joined {
		recipients = r.joinedPeersLocked(nil)
		r.presence.PeerLeft(r.id, p.id)
	}
	closing := len(r.peers) == 0
	if closing {
		r.closed = true
	}
	r.mu.Unlock()

	if joined {
		r.announceLeave(p.id, recipients)
	}
	log.Info().Str("module", "signaling.room").Str("room", r.id).Str("peer", p.id).Msg("peer left")

	if closing {
		r.finishClose()
	}
}

// announceLeave tells recipients that a joined peer is gone. Delivery is
// best-effort.
func (r *Room) announceLeave(peerID string, recipients []*Peer) {
	for _, other := range recipients {
		other.notify(models.NotifyPeerClosed, models.PeerClosedNotification{PeerID: peerID})
	}
}

// Close closes the room and detaches every session without announcing
// their departure. It is idempotent.
func (r *Room) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	peers := r.peers
	r.peers = nil
	r.mu.Unlock()

	for _, p := range peers {
		p.transport.Close()
	}
	r.finishClose()
}

func (r *Room) finishClose() {
	log.Info().Str("module", "signaling.room").Str("room", r.id).Str("instance", r.instanceID).Msg("room closed")
	if r.onClose != nil {
		r.onClose(r)
	}
}

// logStatus writes one line per admitted peer.
func (r *Room) logStatus() {
	r.mu.Lock()
	defer r.mu.Unlock()
	log.Info().Str("module", "signaling.room").Str("room", r.id).Int("peers", len(r.peers)).Msg("room status")
	for _, p := range r.peers {
		log.Info().Str("module", "signaling.room").Str("room", r.id).Str("peer", p.id).
			Bool("joined", p.joined).Str("displayName", p.displayName).Bool("isMaster", p.isMaster).
			Msg("peer status")
	}
}

func (r *Room) findLocked(peerID string) *Peer {
	for _, p := range r.peers {
		if p.id == peerID {
			return p
		}
	}
	return nil
}

// memberLocked reports whether p is still the live session for its id.
func (r *Room) memberLocked(p *Peer) bool {
	return !r.closed && r.findLocked(p.id) == p
}

func (r *Room) removeLocked(p *Peer) bool {
	for i, q := range r.peers {
		if q == p {
			r.peers = append(r.peers[:i:i], r.peers[i+1:]...)
			return true
		}
	}
	return false
}

// joinedPeersLocked snapshots the joined peers in admission order.
func (r *Room) joinedPeersLocked(exclude *Peer) []*Peer {
	out := make([]*Peer, 0, len(r.peers))
	for _, p := range r.peers {
		if p.joined && p != exclude {
			out = append(out, p)
		}
	}
	return out
}

func peerInfos(peers []*Peer) []models.PeerInfo {
	out := make([]models.PeerInfo, 0, len(peers))
	for _, p := range peers {
		out = append(out, p.infoLocked())
	}
	return out
}

package signaling

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// admitAttempts bounds retries when a looked-up room closes before the
// connection is handed to it.
const admitAttempts = 3

// Registry maps room identifiers to live rooms. At most one live room
// exists per identifier.
type Registry struct {
	mu       sync.Mutex
	rooms    map[string]*Room
	presence Presence
	newID    func() string
}

// Option configures a Registry.
type Option func(*Registry)

// WithPresence mirrors room and peer lifecycle to p.
func WithPresence(p Presence) Option {
	return func(g *Registry) {
		if p != nil {
			g.presence = p
		}
	}
}

// WithInstanceIDs overrides the room instance id generator.
func WithInstanceIDs(fn func() string) Option {
	return func(g *Registry) {
		g.newID = fn
	}
}

func NewRegistry(opts ...Option) *Registry {
	g := &Registry{
		rooms:    make(map[string]*Room),
		presence: nopPresence{},
		newID:    func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GetOrCreate returns the live room for roomID, creating it if needed.
// Concurrent callers for the same unseen id all receive the same room.
func (g *Registry) GetOrCreate(roomID string) *Room {
	g.mu.Lock()
	defer g.mu.Unlock()

	if room, ok := g.rooms[roomID]; ok && !room.Closed() {
		return room
	}

	room := newRoom(roomID, g.newID(), g.presence, g.remove)
	g.rooms[roomID] = room
	g.presence.RoomCreated(roomID, room.instanceID)
	log.Info().Str("module", "signaling.registry").Str("room", roomID).Str("instance", room.instanceID).
		Msg("created new room")
	return room
}

// Get returns the live room for roomID, if any.
func (g *Registry) Get(roomID string) (*Room, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	room, ok := g.rooms[roomID]
	if !ok || room.Closed() {
		return nil, false
	}
	return room, true
}

// Rooms returns the live rooms ordered by identifier.
func (g *Registry) Rooms() []*Room {
	g.mu.Lock()
	out := make([]*Room, 0, len(g.rooms))
	for _, room := range g.rooms {
		out = append(out, room)
	}
	g.mu.Unlock()

	live := out[:0]
	for _, room := range out {
		if !room.Closed() {
			live = append(live, room)
		}
	}
	sort.Slice(live, func(i, j int) bool { return live[i].id < live[j].id })
	return live
}

// Admit hands a new connection for peerID to the room roomID.
func (g *Registry) Admit(roomID, peerID string, transport Transport) (*Peer, error) {
	if roomID == "" || peerID == "" {
		return nil, fmt.Errorf("%w: roomId and peerId are required", ErrAdmission)
	}
	for i := 0; i < admitAttempts; i++ {
		peer, err := g.GetOrCreate(roomID).Admit(peerID, transport)
		if errors.Is(err, ErrRoomClosed) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrAdmission, err)
		}
		return peer, nil
	}
	return nil, fmt.Errorf("%w: room %s kept closing", ErrAdmission, roomID)
}

// Close closes the live room for roomID. It reports whether one existed.
func (g *Registry) Close(roomID string) bool {
	room, ok := g.Get(roomID)
	if !ok {
		return false
	}
	room.Close()
	return true
}

// LogStatus logs every live room until ctx is done.
func (g *Registry) LogStatus(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, room := range g.Rooms() {
				room.logStatus()
			}
		}
	}
}

// remove drops room from the map unless a newer room took its key. The
// close is only reported to presence when the entry is actually dropped,
// so a late close never erases a newer room's state.
func (g *Registry) remove(room *Room) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.rooms[room.id] == room {
		delete(g.rooms, room.id)
		g.presence.RoomClosed(room.id)
		log.Info().Str("module", "signaling.registry").Str("room", room.id).Msg("removed closed room")
	}
}

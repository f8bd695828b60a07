package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	presenceQueueSize = 1024
	opTimeout         = 2 * time.Second
)

// RoomKey holds a room's instance metadata
func RoomKey(roomID string) string { return "room:" + roomID }

// PeersKey holds the set of joined peer ids of a room
func PeersKey(roomID string) string { return "room:" + roomID + ":peers" }

type op struct {
	name string
	fn   func(ctx context.Context) error
}

// Presence mirrors live rooms and joined peers into Redis so other
// processes can observe them. Writes are queued and applied in order by
// Run; when the queue is full they are dropped.
type Presence struct {
	client *redis.Client
	ttl    time.Duration
	ops    chan op
}

func NewPresence(client *redis.Client, ttl time.Duration) *Presence {
	return &Presence{
		client: client,
		ttl:    ttl,
		ops:    make(chan op, presenceQueueSize),
	}
}

// Run applies queued writes until ctx is done.
func (p *Presence) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case o := <-p.ops:
			opCtx, cancel := context.WithTimeout(ctx, opTimeout)
			if err := o.fn(opCtx); err != nil {
				log.Warn().Str("module", "redis.presence").Str("op", o.name).Err(err).Msg("presence write failed")
			}
			cancel()
		}
	}
}

func (p *Presence) enqueue(name string, fn func(ctx context.Context) error) {
	select {
	case p.ops <- op{name: name, fn: fn}:
	default:
		log.Warn().Str("module", "redis.presence").Str("op", name).Msg("presence queue full, dropping write")
	}
}

func (p *Presence) RoomCreated(roomID, instanceID string) {
	p.enqueue("roomCreated", func(ctx context.Context) error {
		pipe := p.client.TxPipeline()
		pipe.Del(ctx, PeersKey(roomID))
		pipe.HSet(ctx, RoomKey(roomID), "instanceId", instanceID, "createdAt", time.Now().UTC().Format(time.RFC3339))
		pipe.Expire(ctx, RoomKey(roomID), p.ttl)
		_, err := pipe.Exec(ctx)
		return err
	})
}

func (p *Presence) PeerJoined(roomID, peerID string) {
	p.enqueue("peerJoined", func(ctx context.Context) error {
		pipe := p.client.TxPipeline()
		pipe.SAdd(ctx, PeersKey(roomID), peerID)
		pipe.Expire(ctx, PeersKey(roomID), p.ttl)
		_, err := pipe.Exec(ctx)
		return err
	})
}

func (p *Presence) PeerLeft(roomID, peerID string) {
	p.enqueue("peerLeft", func(ctx context.Context) error {
		return p.client.SRem(ctx, PeersKey(roomID), peerID).Err()
	})
}

func (p *Presence) RoomClosed(roomID string) {
	p.enqueue("roomClosed", func(ctx context.Context) error {
		return p.client.Del(ctx, RoomKey(roomID), PeersKey(roomID)).Err()
	})
}

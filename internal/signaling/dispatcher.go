package signaling

import (
	"encoding/json"
	"fmt"

	"github.com/mossy-p/room-signaling/internal/models"
	"github.com/rs/zerolog/log"
)

// dispatch routes a request from p. Every path completes res.
func (r *Room) dispatch(p *Peer, method string, data json.RawMessage, res Responder) {
	log.Debug().Str("module", "signaling.dispatcher").Str("room", r.id).Str("peer", p.id).
		Str("method", method).Msg("request")

	switch method {
	case models.MethodMasterJoin:
		r.handleMasterJoin(p, data, res)
	case models.MethodJoin:
		r.handleJoin(p, data, res)
	case models.MethodForwardToOne:
		r.handleForwardToOne(p, data, res)
	case models.MethodForwardMsg:
		r.handleForwardMsg(p, data, res)
	case models.MethodChangeDisplayName:
		r.handleChangeDisplayName(p, data, res)
	default:
		log.Warn().Str("module", "signaling.dispatcher").Str("room", r.id).Str("peer", p.id).
			Str("method", method).Msg("unknown request method")
		res.Reject(&UnknownMethodError{Method: method})
	}
}

func decode(data json.RawMessage, v interface{}) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return nil
}

func (r *Room) handleMasterJoin(p *Peer, data json.RawMessage, res Responder) {
	var req models.JoinRequest
	if err := decode(data, &req); err != nil {
		res.Reject(err)
		return
	}

	r.mu.Lock()
	if !r.memberLocked(p) {
		r.mu.Unlock()
		res.Reject(ErrRoomClosed)
		return
	}
	if p.joined {
		r.mu.Unlock()
		res.Reject(ErrAlreadyJoined)
		return
	}
	others := r.joinedPeersLocked(p)
	for _, other := range others {
		if other.isMaster {
			r.mu.Unlock()
			log.Info().Str("module", "signaling.dispatcher").Str("room", r.id).Str("peer", p.id).
				Str("master", other.id).Msg("masterJoin refused, master present")
			res.Accept(models.ConflictResponse{Err: MasterExistsReason})
			return
		}
	}
	p.joined = true
	p.displayName = req.DisplayName
	p.isMaster = req.IsMaster
	infos := peerInfos(others)
	r.presence.PeerJoined(r.id, p.id)
	r.mu.Unlock()

	res.Accept(models.JoinResponse{Peers: infos})
}

func (r *Room) handleJoin(p *Peer, data json.RawMessage, res Responder) {
	var req models.JoinRequest
	if err := decode(data, &req); err != nil {
		res.Reject(err)
		return
	}

	r.mu.Lock()
	if !r.memberLocked(p) {
		r.mu.Unlock()
		res.Reject(ErrRoomClosed)
		return
	}
	if p.joined {
		r.mu.Unlock()
		res.Reject(ErrAlreadyJoined)
		return
	}
	p.joined = true
	p.displayName = req.DisplayName
	p.isMaster = req.IsMaster
	others := r.joinedPeersLocked(p)
	infos := peerInfos(others)
	self := p.infoLocked()
	r.presence.PeerJoined(r.id, p.id)
	r.mu.Unlock()

	res.Accept(models.JoinResponse{Peers: infos})

	for _, other := range others {
		other.notify(models.NotifyNewPeer, self)
	}
}

func (r *Room) handleForwardToOne(p *Peer, data json.RawMessage, res Responder) {
	var req models.ForwardToOneRequest
	if err := decode(data, &req); err != nil {
		res.Reject(err)
		return
	}

	r.mu.Lock()
	if !r.memberLocked(p) {
		r.mu.Unlock()
		res.Reject(ErrRoomClosed)
		return
	}
	if !p.joined {
		r.mu.Unlock()
		res.Reject(ErrNotJoined)
		return
	}
	// Targets are matched by display name, so every peer sharing the name
	// receives the message.
	var targets []*Peer
	for _, other := range r.joinedPeersLocked(p) {
		if other.displayName == req.PeerID {
			targets = append(targets, other)
		}
	}
	sender := p.displayName
	r.mu.Unlock()

	for _, target := range targets {
		target.notify(models.NotifyForwardToOne, models.ForwardToOneNotification{
			PeerID:  sender,
			Message: req.Message,
		})
	}
	res.Accept(nil)
}

func (r *Room) handleForwardMsg(p *Peer, data json.RawMessage, res Responder) {
	var req models.ForwardMsgRequest
	if err := decode(data, &req); err != nil {
		res.Reject(err)
		return
	}

	r.mu.Lock()
	if !r.memberLocked(p) {
		r.mu.Unlock()
		res.Reject(ErrRoomClosed)
		return
	}
	if !p.joined {
		r.mu.Unlock()
		res.Reject(ErrNotJoined)
		return
	}
	others := r.joinedPeersLocked(p)
	r.mu.Unlock()

	for _, other := range others {
		other.notify(models.NotifyForwardMsg, models.ForwardMsgNotification{
			PeerID:   p.id,
			TextData: req.TextData,
		})
	}
	res.Accept(nil)
}

func (r *Room) handleChangeDisplayName(p *Peer, data json.RawMessage, res Responder) {
	var req models.ChangeDisplayNameRequest
	if err := decode(data, &req); err != nil {
		res.Reject(err)
		return
	}

	r.mu.Lock()
	if !r.memberLocked(p) {
		r.mu.Unlock()
		res.Reject(ErrRoomClosed)
		return
	}
	if !p.joined {
		r.mu.Unlock()
		res.Reject(ErrNotJoined)
		return
	}
	old := p.displayName
	p.displayName = req.DisplayName
	others := r.joinedPeersLocked(p)
	r.mu.Unlock()

	for _, other := range others {
		other.notify(models.NotifyPeerDisplayNameChanged, models.PeerDisplayNameChangedNotification{
			PeerID:         p.id,
			DisplayName:    req.DisplayName,
			OldDisplayName: old,
		})
	}
	res.Accept(nil)
}

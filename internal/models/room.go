package models

import "time"

// RoomInfo is a snapshot of a live room
type RoomInfo struct {
	ID         string     `json:"id"`
	InstanceID string     `json:"instanceId"` // changes when a closed room is recreated
	CreatedAt  time.Time  `json:"createdAt"`
	PeerCount  int        `json:"peerCount"`
	Joined     []PeerInfo `json:"joined"`
}

// RoomListResponse is the response for listing rooms
type RoomListResponse struct {
	Rooms []RoomInfo `json:"rooms"`
}

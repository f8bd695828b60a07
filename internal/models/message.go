package models

import "encoding/json"

// Request is a peer-to-room call expecting exactly one Response
type Request struct {
	Request bool            `json:"request"`
	ID      uint64          `json:"id"`
	Method  string          `json:"method"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Response answers a Request with the same ID
type Response struct {
	Response    bool        `json:"response"`
	ID          uint64      `json:"id"`
	OK          bool        `json:"ok"`
	Data        interface{} `json:"data,omitempty"`
	ErrorCode   int         `json:"errorCode,omitempty"`
	ErrorReason string      `json:"errorReason,omitempty"`
}

// Notification is a one-way room-to-peer message
type Notification struct {
	Notification bool        `json:"notification"`
	Method       string      `json:"method"`
	Data         interface{} `json:"data,omitempty"`
}

// Request methods
const (
	MethodMasterJoin        = "masterJoin"
	MethodJoin              = "join"
	MethodForwardToOne      = "forwardToOne"
	MethodForwardMsg        = "forwardMsg"
	MethodChangeDisplayName = "changeDisplayName"
)

// Notification methods
const (
	NotifyNewPeer                = "newPeer"
	NotifyPeerClosed             = "peerClosed"
	NotifyForwardToOne           = "forwardToOne"
	NotifyForwardMsg             = "forwardMsg"
	NotifyPeerDisplayNameChanged = "peerDisplayNameChanged"
)

// JoinRequest is the payload of join and masterJoin
type JoinRequest struct {
	DisplayName string `json:"displayName"`
	IsMaster    bool   `json:"isMaster"`
}

// ForwardToOneRequest targets peers by display name, not by id
type ForwardToOneRequest struct {
	PeerID  string          `json:"peerId"`
	Message json.RawMessage `json:"message"`
}

type ForwardMsgRequest struct {
	TextData string `json:"textData"`
}

type ChangeDisplayNameRequest struct {
	DisplayName string `json:"displayName"`
}

// PeerInfo describes a joined peer
type PeerInfo struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	IsMaster    bool   `json:"isMaster"`
}

// JoinResponse lists the other joined peers
type JoinResponse struct {
	Peers []PeerInfo `json:"peers"`
}

// ConflictResponse is an accepted response carrying an application error.
// Existing clients check for the err field instead of ok:false.
type ConflictResponse struct {
	Err string `json:"err"`
}

type PeerClosedNotification struct {
	PeerID string `json:"peerId"`
}

// ForwardToOneNotification carries the sender's display name in PeerID
type ForwardToOneNotification struct {
	PeerID  string          `json:"peerId"`
	Message json.RawMessage `json:"message"`
}

// ForwardMsgNotification carries the sender's id in PeerID
type ForwardMsgNotification struct {
	PeerID   string `json:"peerId"`
	TextData string `json:"textData"`
}

type PeerDisplayNameChangedNotification struct {
	PeerID         string `json:"peerId"`
	DisplayName    string `json:"displayName"`
	OldDisplayName string `json:"oldDisplayName"`
}

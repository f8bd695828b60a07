package signaling

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrAlreadyJoined is returned for join or masterJoin on a joined peer.
	ErrAlreadyJoined = errors.New("peer already joined")
	// ErrNotJoined is returned for any other method before a successful join.
	ErrNotJoined = errors.New("peer not yet joined")
	// ErrBadRequest wraps payload decoding failures.
	ErrBadRequest = errors.New("bad request")
	// ErrRoomClosed is returned when admitting into a room that already closed.
	ErrRoomClosed = errors.New("room closed")
	// ErrAdmission is returned when a connection could not be admitted.
	ErrAdmission = errors.New("admission failed")
)

// MasterExistsReason is sent in an accepted masterJoin response when the
// room already has a joined master. Deployed clients match on this exact
// text ("a capture endpoint already exists in the room").
const MasterExistsReason = "房间内已存在采集端"

// UnknownMethodError carries the unrecognized request method.
type UnknownMethodError struct {
	Method string
}

func (e *UnknownMethodError) Error() string {
	return fmt.Sprintf("unknown request.method %q", e.Method)
}

// ErrorCode maps a request error to the errorCode sent to the peer.
func ErrorCode(err error) int {
	var unknown *UnknownMethodError
	switch {
	case errors.Is(err, ErrAlreadyJoined), errors.Is(err, ErrNotJoined):
		return http.StatusForbidden
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.As(err, &unknown):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

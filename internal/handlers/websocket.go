package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mossy-p/room-signaling/internal/models"
	"github.com/mossy-p/room-signaling/internal/signaling"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	sendBufferSize = 256
)

var (
	errConnClosed = errors.New("connection closed")
	errBufferFull = errors.New("send buffer full")
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin checking is handled by middleware
		return true
	},
}

// peerConn is the websocket transport of one admitted peer.
type peerConn struct {
	id     string
	roomID string
	peerID string
	conn   *websocket.Conn
	send   chan []byte

	done      chan struct{}
	closeOnce sync.Once
}

func newPeerConn(conn *websocket.Conn, roomID, peerID string) *peerConn {
	return &peerConn{
		id:     uuid.New().String(),
		roomID: roomID,
		peerID: peerID,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		done:   make(chan struct{}),
	}
}

// HandleSignaling admits a websocket connection into the room named by
// the roomId query parameter under the identity given by peerId.
func HandleSignaling(registry *signaling.Registry, maxMessageSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		roomID := c.Query("roomId")
		peerID := c.Query("peerId")
		if roomID == "" || peerID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Connection request without roomId and/or peerId"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Warn().Str("module", "handlers.websocket").Err(err).Msg("failed to upgrade connection")
			return
		}
		conn.SetReadLimit(maxMessageSize)

		pc := newPeerConn(conn, roomID, peerID)
		peer, err := registry.Admit(roomID, peerID, pc)
		if err != nil {
			log.Error().Str("module", "handlers.websocket").Str("room", roomID).Str("peer", peerID).
				Err(err).Msg("room creation or room joining failed")
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "admission failed"),
				time.Now().Add(writeWait))
			pc.Close()
			return
		}

		log.Info().Str("module", "handlers.websocket").Str("room", roomID).Str("peer", peerID).
			Str("conn", pc.id).Str("remote", c.Request.RemoteAddr).Msg("connection accepted")

		go pc.writePump()
		go pc.readPump(peer)
	}
}

// Notify implements signaling.Transport.
func (c *peerConn) Notify(method string, data interface{}) error {
	return c.write(models.Notification{Notification: true, Method: method, Data: data})
}

// Close implements signaling.Transport.
func (c *peerConn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// Done implements signaling.Transport.
func (c *peerConn) Done() <-chan struct{} { return c.done }

func (c *peerConn) write(msg interface{}) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	select {
	case <-c.done:
		return errConnClosed
	default:
	}
	select {
	case c.send <- data:
		return nil
	default:
		return errBufferFull
	}
}

func (c *peerConn) readPump(peer *signaling.Peer) {
	defer func() {
		c.Close()
		log.Info().Str("module", "handlers.websocket").Str("room", c.roomID).Str("peer", c.peerID).
			Str("conn", c.id).Msg("connection closed")
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Str("module", "handlers.websocket").Str("conn", c.id).Err(err).Msg("websocket error")
			}
			return
		}

		var req models.Request
		if err := json.Unmarshal(message, &req); err != nil {
			log.Warn().Str("module", "handlers.websocket").Str("conn", c.id).Err(err).Msg("failed to parse message")
			continue
		}
		if !req.Request {
			log.Debug().Str("module", "handlers.websocket").Str("conn", c.id).Msg("ignoring non-request message")
			continue
		}

		peer.HandleRequest(req.Method, req.Data, &responder{conn: c, id: req.ID, method: req.Method})
	}
}

func (c *peerConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Debug().Str("module", "handlers.websocket").Str("conn", c.id).Err(err).Msg("failed to write message")
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			return
		}
	}
}

// responder answers one request on its connection.
type responder struct {
	conn   *peerConn
	id     uint64
	method string
}

func (r *responder) Accept(data interface{}) {
	if data == nil {
		data = struct{}{}
	}
	if err := r.conn.write(models.Response{Response: true, ID: r.id, OK: true, Data: data}); err != nil {
		log.Debug().Str("module", "handlers.websocket").Str("conn", r.conn.id).Str("method", r.method).
			Err(err).Msg("response dropped")
	}
}

func (r *responder) Reject(err error) {
	log.Info().Str("module", "handlers.websocket").Str("room", r.conn.roomID).Str("peer", r.conn.peerID).
		Str("method", r.method).Err(err).Msg("request rejected")

	resp := models.Response{
		Response:    true,
		ID:          r.id,
		ErrorCode:   signaling.ErrorCode(err),
		ErrorReason: err.Error(),
	}
	if werr := r.conn.write(resp); werr != nil {
		log.Debug().Str("module", "handlers.websocket").Str("conn", r.conn.id).Err(werr).Msg("response dropped")
	}
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mossy-p/room-signaling/internal/models"
	"github.com/mossy-p/room-signaling/internal/signaling"
	"github.com/rs/zerolog/log"
)

// ListRooms lists every live room (public)
func ListRooms(registry *signaling.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		rooms := registry.Rooms()
		resp := models.RoomListResponse{Rooms: make([]models.RoomInfo, 0, len(rooms))}
		for _, room := range rooms {
			resp.Rooms = append(resp.Rooms, room.Info())
		}
		c.JSON(http.StatusOK, resp)
	}
}

// GetRoom gets live room information by ID (public)
func GetRoom(registry *signaling.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		room, ok := registry.Get(c.Param("roomId"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
			return
		}
		c.JSON(http.StatusOK, room.Info())
	}
}

// DeleteRoom closes a live room and disconnects its peers (requires operator token)
func DeleteRoom(registry *signaling.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		roomID := c.Param("roomId")
		if !registry.Close(roomID) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
			return
		}

		log.Info().Str("module", "handlers.rooms").Str("room", roomID).Str("operator", c.GetString("operator")).
			Msg("room closed by operator")
		c.JSON(http.StatusOK, gin.H{"message": "Room closed"})
	}
}

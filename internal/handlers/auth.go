package handlers

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mossy-p/room-signaling/internal/middleware"
	"github.com/rs/zerolog/log"
)

const tokenTTL = 24 * time.Hour

// LoginRequest represents the login request body
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	Token    string `json:"token"`
	Operator string `json:"operator"`
}

// Operator holds the credentials accepted by Login.
type Operator struct {
	Username string
	Password string
}

// Login issues an operator token for the room administration endpoints.
// Peers never log in; this only gates operator actions such as closing rooms.
func Login(jwtSecret string, operator Operator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request body",
			})
			return
		}

		userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(operator.Username)) == 1
		passOK := subtle.ConstantTimeCompare([]byte(req.Password), []byte(operator.Password)) == 1
		if operator.Password == "" || !userOK || !passOK {
			log.Warn().Str("module", "handlers.auth").Str("username", req.Username).Msg("operator login refused")
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid credentials",
			})
			return
		}

		token, err := middleware.IssueToken(jwtSecret, req.Username, tokenTTL)
		if err != nil {
			log.Error().Str("module", "handlers.auth").Err(err).Msg("failed to sign token")
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to generate token",
			})
			return
		}

		c.JSON(http.StatusOK, LoginResponse{
			Token:    token,
			Operator: req.Username,
		})
	}
}

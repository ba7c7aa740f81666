package ws

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/isoura4/isrobot-backend/internal/auth"
)

// Handler upgrades dashboard connections onto the hub
type Handler struct {
	hub            *Hub
	jwtService     *auth.JWTService
	logger         *zap.Logger
	allowedOrigins []string
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, jwtService *auth.JWTService, logger *zap.Logger, allowedOrigins []string) *Handler {
	return &Handler{
		hub:            hub,
		jwtService:     jwtService,
		logger:         logger,
		allowedOrigins: allowedOrigins,
	}
}

// HandleWebSocket handles WebSocket upgrade requests. Browsers cannot set
// headers on the upgrade, so the token rides a query parameter.
func (h *Handler) HandleWebSocket(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Token required"})
		return
	}

	claims, err := h.jwtService.ValidateToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return false
			}
			for _, pattern := range h.allowedOrigins {
				if matchOrigin(pattern, origin) {
					return true
				}
			}
			return false
		},
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("failed to upgrade connection", zap.Error(err))
		return
	}

	client := NewClient(h.hub, conn, claims.UserID, claims.Email, h.logger)
	h.hub.register <- client

	go client.WritePump()
	go client.ReadPump()
}

// GetOnlineModerators returns connected dashboard sessions
func (h *Handler) GetOnlineModerators(c *gin.Context) {
	online := h.hub.OnlineModerators()
	c.JSON(http.StatusOK, gin.H{
		"online_moderators": online,
		"count":             len(online),
	})
}

// matchOrigin supports exact matches or wildcard patterns like *.example.com
func matchOrigin(pattern, origin string) bool {
	if pattern == "*" || pattern == origin {
		return true
	}
	if strings.HasPrefix(pattern, "*.") {
		originHost := origin
		if u, err := url.Parse(origin); err == nil {
			originHost = u.Hostname()
		}
		return strings.HasSuffix(originHost, strings.TrimPrefix(pattern, "*."))
	}
	return false
}

package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/clubhub/backend/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // allow all origins in dev; restrict in production
	},
}

// WSMessage is the WebSocket message envelope.
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Client represents a single WebSocket connection in a club room.
type Client struct {
	ID     string
	ClubID uuid.UUID
	UserID uuid.UUID
	Role   models.ClubRole
	hub    *Hub
	conn   *websocket.Conn
	send   chan WSMessage
	logger *zap.Logger
}

// TokenValidator resolves a JWT from the query string into a user identity.
type TokenValidator func(token string) (userID uuid.UUID, err error)

// RoleResolver returns the user's role in a club, empty when not a member.
type RoleResolver func(ctx context.Context, clubID, userID uuid.UUID) (models.ClubRole, error)

// ServeWs handles the WebSocket upgrade and runs the client loop. Clients
// authenticate with token and club_id query parameters and must hold an
// active membership in the club.
func ServeWs(hub *Hub, logger *zap.Logger, validate TokenValidator, resolveRole RoleResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		clubIDStr := c.Query("club_id")
		token := c.Query("token")
		if clubIDStr == "" || token == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "club_id and token required"})
			return
		}
		clubID, err := uuid.Parse(clubIDStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid club_id"})
			return
		}
		userID, err := validate(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		role, err := resolveRole(c.Request.Context(), clubID, userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check membership"})
			return
		}
		if role == "" {
			c.JSON(http.StatusForbidden, gin.H{"error": "not a member of this club"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			ID:     uuid.New().String(),
			ClubID: clubID,
			UserID: userID,
			Role:   role,
			hub:    hub,
			conn:   conn,
			send:   make(chan WSMessage, 256),
			logger: logger,
		}
		hub.Register(client)
		go client.writePump()
		client.readPump()
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(65536)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
		return nil
	})

	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			break
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))

		switch msg.Event {
		case "presence":
			c.hub.BroadcastToClubAndPublish(c.ClubID, EventPresence, map[string]int{
				"count": c.hub.PresenceCount(c.ClubID),
			})
		default:
			// ignore; all other events originate server-side
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(PingInterval * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

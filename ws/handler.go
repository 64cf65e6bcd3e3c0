package ws

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/podbrah/podbrah-backend/utils"
)

type TokenVerifier interface {
	VerifyToken(tokenString string) (*utils.Claims, error)
}

type Handler struct {
	hub      *Hub
	tokens   TokenVerifier
	upgrader websocket.Upgrader
}

// NewHandler accepts any origin when allowedOrigins is empty.
func NewHandler(hub *Hub, tokens TokenVerifier, allowedOrigins []string) *Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &Handler{
		hub:    hub,
		tokens: tokens,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if len(allowed) == 0 {
					return true
				}
				return allowed[r.Header.Get("Origin")]
			},
		},
	}
}

func (h *Handler) authenticate(c *gin.Context) (string, bool) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing token"})
		return "", false
	}
	claims, err := h.tokens.VerifyToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return "", false
	}
	return claims.UserID(), true
}

func (h *Handler) serve(c *gin.Context, room string) {
	userID, ok := h.authenticate(c)
	if !ok {
		return
	}
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.hub.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	client := h.hub.Register(room, userID, conn)
	msg := "Connected to feed"
	if room != "" {
		msg = "Connected to podcast " + room
	}
	h.hub.send(client, Event{Type: "connected", Message: msg})
	h.hub.log.Debug("ws connected", "user_id", userID, "room", room)
}

// HandleFeed streams every new feed entry.
func (h *Handler) HandleFeed(c *gin.Context) {
	h.serve(c, "")
}

// HandlePodcast streams feed entries for one podcast.
func (h *Handler) HandlePodcast(c *gin.Context) {
	h.serve(c, c.Param("podcast_id"))
}

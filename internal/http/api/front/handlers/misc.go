package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/stylisthq/stylist-server/internal/telegram"
)

// ClientKeyHandler exposes the publishable model API key to clients.
type ClientKeyHandler struct {
	clientKey string
}

// NewClientKeyHandler constructs a ClientKeyHandler.
func NewClientKeyHandler(clientKey string) *ClientKeyHandler {
	return &ClientKeyHandler{clientKey: clientKey}
}

// Get returns the publishable key, or 404 when none is configured.
func (h *ClientKeyHandler) Get(c *gin.Context) {
	if getUserID(c) == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	if h.clientKey == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "no client key configured"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": h.clientKey})
}

// RelayHandler sends result images to the user's Telegram chat.
type RelayHandler struct {
	relay *telegram.Relay
}

// NewRelayHandler constructs a RelayHandler.
func NewRelayHandler(relay *telegram.Relay) *RelayHandler {
	return &RelayHandler{relay: relay}
}

// relayRequest defines the request body for relaying an image.
type relayRequest struct {
	Image   string `json:"image"`
	Caption string `json:"caption"`
}

// Send pushes the image to the caller's Telegram chat via the bot.
func (h *RelayHandler) Send(c *gin.Context) {
	user := getUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	if user.TelegramID == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "account has no linked telegram chat"})
		return
	}

	var body relayRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.Image == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image is required"})
		return
	}

	if errSend := h.relay.SendPhoto(c.Request.Context(), *user.TelegramID, body.Image, body.Caption); errSend != nil {
		log.WithError(errSend).WithField("user_id", user.ID).Warn("relay: send photo failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "sending to telegram failed, please try again"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"sent": true})
}

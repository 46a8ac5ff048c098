package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stylisthq/stylist-server/internal/history"
	"github.com/stylisthq/stylist-server/internal/models"
)

// HistoryHandler serves the user's generation history.
type HistoryHandler struct {
	store *history.Chain
}

// NewHistoryHandler constructs a HistoryHandler.
func NewHistoryHandler(store *history.Chain) *HistoryHandler {
	return &HistoryHandler{store: store}
}

// historyItemResponse is the history item shape returned to clients.
type historyItemResponse struct {
	ID            string          `json:"id"`
	StyleTitle    string          `json:"style_title"`
	OriginalImage string          `json:"original_image"`
	ResultImage   string          `json:"result_image,omitempty"`
	Analysis      json.RawMessage `json:"analysis,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

func toHistoryResponse(items []models.HistoryItem) []historyItemResponse {
	out := make([]historyItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, historyItemResponse{
			ID:            item.ID,
			StyleTitle:    item.StyleTitle,
			OriginalImage: item.OriginalImage,
			ResultImage:   item.ResultImage,
			Analysis:      json.RawMessage(item.Analysis),
			CreatedAt:     item.CreatedAt,
		})
	}
	return out
}

// List returns up to the newest 20 items, tagged with the serving backend.
func (h *HistoryHandler) List(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	items, backend, errList := h.store.List(c.Request.Context(), userID)
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list history failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": toHistoryResponse(items), "backend": backend})
}

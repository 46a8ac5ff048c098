package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stylisthq/stylist-server/internal/ratelimit"
	"github.com/stylisthq/stylist-server/internal/stylist"
	"github.com/stylisthq/stylist-server/internal/wizard"
)

// GenerationHandler serves try-on and freeform edit generations.
type GenerationHandler struct {
	sessions *wizard.Store
	orch     *stylist.Orchestrator
}

// NewGenerationHandler constructs a GenerationHandler.
func NewGenerationHandler(sessions *wizard.Store, orch *stylist.Orchestrator) *GenerationHandler {
	return &GenerationHandler{sessions: sessions, orch: orch}
}

// tryOnRequest defines the request body for applying a recommendation.
type tryOnRequest struct {
	SessionID         string `json:"session_id"`
	RecommendationIdx *int   `json:"recommendation_index"`
}

// TryOn renders the chosen recommendation from a results-state session onto
// the session photo.
func (h *GenerationHandler) TryOn(c *gin.Context) {
	user := getUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var body tryOnRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.SessionID == "" || body.RecommendationIdx == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id and recommendation_index are required"})
		return
	}

	session, errGet := h.sessions.Get(body.SessionID)
	if errGet != nil || session.UserID != user.ID {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	if session.State != wizard.StateResults {
		c.JSON(http.StatusConflict, gin.H{"error": "session has no results yet"})
		return
	}

	idx := *body.RecommendationIdx
	if idx < 0 || idx >= len(session.Recommendations) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "recommendation_index out of range"})
		return
	}

	edited, result, errApply := h.orch.ApplyStyle(c.Request.Context(), user, session.Image, session.Recommendations[idx], session.Analysis)
	if errApply != nil {
		writeGenerationError(c, result, errApply)
		return
	}

	c.JSON(http.StatusOK, gin.H{"image": edited, "remaining": result.Remaining})
}

// editRequest defines the request body for a freeform edit.
type editRequest struct {
	Image       string `json:"image"`
	Instruction string `json:"instruction"`
}

// Edit applies a freeform instruction to the supplied image.
func (h *GenerationHandler) Edit(c *gin.Context) {
	user := getUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var body editRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.Image == "" || body.Instruction == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image and instruction are required"})
		return
	}

	edited, result, errApply := h.orch.ApplyFreeformEdit(c.Request.Context(), user, body.Image, body.Instruction)
	if errApply != nil {
		writeGenerationError(c, result, errApply)
		return
	}

	c.JSON(http.StatusOK, gin.H{"image": edited, "remaining": result.Remaining})
}

// writeGenerationError maps orchestrator failures to responses: a limit denial
// becomes a 429 upsell, everything else a 502.
func writeGenerationError(c *gin.Context, result ratelimit.Result, err error) {
	if errors.Is(err, ratelimit.ErrLimitReached) {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":    "generation limit reached",
			"upsell":   true,
			"reset_at": result.Reset,
		})
		return
	}
	c.JSON(http.StatusBadGateway, gin.H{"error": "image generation failed, please try again"})
}

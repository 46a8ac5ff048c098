package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/stylisthq/stylist-server/internal/genai"
	"github.com/stylisthq/stylist-server/internal/stylist"
	"github.com/stylisthq/stylist-server/internal/wizard"
)

// Allowed preference values collected by the flow.
var (
	validSeasons = map[string]bool{
		"spring": true, "summer": true, "autumn": true, "winter": true, "any": true,
	}
	validOccasions = map[string]bool{
		"casual": true, "office": true, "party": true, "date": true, "sport": true, "any": true,
	}
)

// WizardHandler drives the analysis flow session by session.
type WizardHandler struct {
	sessions *wizard.Store
	orch     *stylist.Orchestrator
}

// NewWizardHandler constructs a WizardHandler.
func NewWizardHandler(sessions *wizard.Store, orch *stylist.Orchestrator) *WizardHandler {
	return &WizardHandler{sessions: sessions, orch: orch}
}

// sessionResponse is the wizard session shape returned to clients.
type sessionResponse struct {
	ID              string                 `json:"id"`
	State           wizard.State           `json:"state"`
	Mode            genai.Mode             `json:"mode,omitempty"`
	Preferences     genai.Preferences      `json:"preferences"`
	Analysis        *genai.Analysis        `json:"analysis,omitempty"`
	Recommendations []genai.Recommendation `json:"recommendations,omitempty"`
}

func toSessionResponse(session wizard.Session) sessionResponse {
	return sessionResponse{
		ID:              session.ID,
		State:           session.State,
		Mode:            session.Mode,
		Preferences:     session.Preferences,
		Analysis:        session.Analysis,
		Recommendations: session.Recommendations,
	}
}

// Begin opens a fresh wizard session in the upload state.
func (h *WizardHandler) Begin(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	session := h.sessions.Begin(userID)
	c.JSON(http.StatusOK, gin.H{"session": toSessionResponse(session)})
}

// Get returns the current session snapshot.
func (h *WizardHandler) Get(c *gin.Context) {
	session, ok := h.ownedSession(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": toSessionResponse(session)})
}

// attachImageRequest defines the request body for the upload step.
type attachImageRequest struct {
	Image string `json:"image"`
	Mode  string `json:"mode"`
}

// AttachImage stores the uploaded photo and advances to preference selection.
func (h *WizardHandler) AttachImage(c *gin.Context) {
	session, ok := h.ownedSession(c)
	if !ok {
		return
	}

	var body attachImageRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.Image == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image is required"})
		return
	}

	mode := genai.Mode(body.Mode)
	if mode != genai.ModeNewLook && mode != genai.ModeOwnWardrobe {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mode must be new_look or own_wardrobe"})
		return
	}

	updated, errAdvance := h.sessions.AttachImage(session.ID, body.Image, mode)
	if errAdvance != nil {
		c.JSON(http.StatusConflict, gin.H{"error": errAdvance.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": toSessionResponse(updated)})
}

// setPreferencesRequest defines the request body for the preferences step.
type setPreferencesRequest struct {
	Season   string `json:"season"`
	Occasion string `json:"occasion"`
}

// SetPreferences validates and records season and occasion.
func (h *WizardHandler) SetPreferences(c *gin.Context) {
	session, ok := h.ownedSession(c)
	if !ok {
		return
	}

	var body setPreferencesRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if !validSeasons[body.Season] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid season"})
		return
	}
	if !validOccasions[body.Occasion] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid occasion"})
		return
	}

	updated, errAdvance := h.sessions.SetPreferences(session.ID, body.Season, body.Occasion)
	if errAdvance != nil {
		c.JSON(http.StatusConflict, gin.H{"error": errAdvance.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": toSessionResponse(updated)})
}

// setScopeRequest defines the request body for the scope step.
type setScopeRequest struct {
	Scope string `json:"scope"`
}

// SetScope records the store scope and runs the analysis chain. On success the
// session lands on results; any failure resets it to upload.
func (h *WizardHandler) SetScope(c *gin.Context) {
	session, ok := h.ownedSession(c)
	if !ok {
		return
	}

	var body setScopeRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	analyzing, errAdvance := h.sessions.SetScope(session.ID, body.Scope)
	if errAdvance != nil {
		c.JSON(http.StatusConflict, gin.H{"error": errAdvance.Error()})
		return
	}

	analysis, recs, errRun := h.orch.RunAnalysis(c.Request.Context(), analyzing.Image, analyzing.Mode, analyzing.Preferences)
	if errRun != nil {
		log.WithError(errRun).WithField("session_id", session.ID).Warn("wizard: analysis chain failed, resetting session")
		if _, errReset := h.sessions.Reset(session.ID); errReset != nil {
			log.WithError(errReset).Warn("wizard: session reset failed")
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "style analysis failed, please try again", "state": wizard.StateUpload})
		return
	}

	done, errComplete := h.sessions.Complete(session.ID, &analysis, recs)
	if errComplete != nil {
		c.JSON(http.StatusConflict, gin.H{"error": errComplete.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": toSessionResponse(done)})
}

// ownedSession loads the :id session and checks it belongs to the caller.
func (h *WizardHandler) ownedSession(c *gin.Context) (wizard.Session, bool) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return wizard.Session{}, false
	}

	session, errGet := h.sessions.Get(c.Param("id"))
	if errGet != nil {
		if errors.Is(errGet, wizard.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return wizard.Session{}, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load session failed"})
		return wizard.Session{}, false
	}
	if session.UserID != userID {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return wizard.Session{}, false
	}
	return session, true
}

package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/stylisthq/stylist-server/internal/config"
	"github.com/stylisthq/stylist-server/internal/entitlement"
	"github.com/stylisthq/stylist-server/internal/models"
	"github.com/stylisthq/stylist-server/internal/security"
	"github.com/stylisthq/stylist-server/internal/telegram"
)

// AuthHandler handles session bootstrap for users.
type AuthHandler struct {
	db       *gorm.DB
	jwtCfg   config.JWTConfig
	tgCfg    config.TelegramConfig
	resolver *entitlement.Resolver
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(db *gorm.DB, jwtCfg config.JWTConfig, tgCfg config.TelegramConfig, resolver *entitlement.Resolver) *AuthHandler {
	return &AuthHandler{db: db, jwtCfg: jwtCfg, tgCfg: tgCfg, resolver: resolver}
}

// userResponse is the user shape returned to clients.
type userResponse struct {
	ID        uint64 `json:"id"`
	Username  string `json:"username,omitempty"`
	Name      string `json:"name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
	Guest     bool   `json:"guest"`
	Premium   bool   `json:"premium"`
}

func toUserResponse(user models.User) userResponse {
	return userResponse{
		ID:        user.ID,
		Username:  user.Username,
		Name:      user.Name,
		AvatarURL: user.AvatarURL,
		Guest:     user.Guest,
		Premium:   user.Premium,
	}
}

// TelegramLogin verifies a Login Widget payload, upserts the user and issues a JWT.
func (h *AuthHandler) TelegramLogin(c *gin.Context) {
	var payload telegram.LoginPayload
	if errBind := c.ShouldBindJSON(&payload); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	if errVerify := telegram.VerifyLogin(payload, h.tgCfg.BotToken, h.tgCfg.AuthTTL, time.Now()); errVerify != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "login verification failed"})
		return
	}

	name := strings.TrimSpace(strings.TrimSpace(payload.FirstName) + " " + strings.TrimSpace(payload.LastName))

	var user models.User
	errFind := h.db.WithContext(c.Request.Context()).
		Where("telegram_id = ?", payload.ID).
		First(&user).Error
	switch {
	case errFind == nil:
		updates := map[string]any{
			"username":   payload.Username,
			"name":       name,
			"avatar_url": payload.PhotoURL,
		}
		if errUpdate := h.db.WithContext(c.Request.Context()).
			Model(&user).Updates(updates).Error; errUpdate != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "update user failed"})
			return
		}
	case errors.Is(errFind, gorm.ErrRecordNotFound):
		telegramID := payload.ID
		user = models.User{
			TelegramID: &telegramID,
			Username:   payload.Username,
			Name:       name,
			AvatarURL:  payload.PhotoURL,
		}
		if errCreate := h.db.WithContext(c.Request.Context()).Create(&user).Error; errCreate != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "create user failed"})
			return
		}
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query user failed"})
		return
	}

	token, errToken := security.IssueToken(h.jwtCfg, user.ID, security.SubjectKindUser)
	if errToken != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "issue token failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user": toUserResponse(user)})
}

// GuestLogin mints an ephemeral guest user and issues a JWT for it.
func (h *AuthHandler) GuestLogin(c *gin.Context) {
	user := models.User{Guest: true, Name: "Guest"}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&user).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create guest failed"})
		return
	}

	token, errToken := security.IssueToken(h.jwtCfg, user.ID, security.SubjectKindUser)
	if errToken != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "issue token failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user": toUserResponse(user)})
}

// Me returns the authenticated user after an entitlement resolver pass.
func (h *AuthHandler) Me(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	resolution, errResolve := h.resolver.Resolve(c.Request.Context(), userID)
	if errResolve != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "resolve entitlement failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":            toUserResponse(resolution.User),
		"premium":         resolution.Premium,
		"history":         toHistoryResponse(resolution.History),
		"history_backend": resolution.HistoryBackend,
	})
}

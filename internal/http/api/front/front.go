// Package front registers the user-facing API routes.
package front

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/stylisthq/stylist-server/internal/config"
	"github.com/stylisthq/stylist-server/internal/entitlement"
	"github.com/stylisthq/stylist-server/internal/history"
	"github.com/stylisthq/stylist-server/internal/http/api/front/handlers"
	"github.com/stylisthq/stylist-server/internal/models"
	"github.com/stylisthq/stylist-server/internal/payment"
	"github.com/stylisthq/stylist-server/internal/security"
	"github.com/stylisthq/stylist-server/internal/stylist"
	"github.com/stylisthq/stylist-server/internal/telegram"
	"github.com/stylisthq/stylist-server/internal/wizard"
)

// Deps carries everything the front routes need.
type Deps struct {
	DB        *gorm.DB
	JWT       config.JWTConfig
	Telegram  config.TelegramConfig
	Payment   config.PaymentConfig
	ClientKey string
	Resolver  *entitlement.Resolver
	History   *history.Chain
	Sessions  *wizard.Store
	Orch      *stylist.Orchestrator
	Gateway   payment.Gateway
	Relay     *telegram.Relay
}

// RegisterFrontRoutes registers the user-facing routes, middleware, and handlers.
func RegisterFrontRoutes(r *gin.Engine, deps Deps) {
	if r == nil || deps.DB == nil {
		return
	}

	group := r.Group("/v0")

	authHandler := handlers.NewAuthHandler(deps.DB, deps.JWT, deps.Telegram, deps.Resolver)
	group.POST("/auth/telegram", authHandler.TelegramLogin)
	group.POST("/auth/guest", authHandler.GuestLogin)

	authed := group.Group("")
	authed.Use(userAuthMiddleware(deps.DB, deps.JWT))

	authed.GET("/me", authHandler.Me)

	wizardHandler := handlers.NewWizardHandler(deps.Sessions, deps.Orch)
	authed.POST("/wizard", wizardHandler.Begin)
	authed.GET("/wizard/:id", wizardHandler.Get)
	authed.POST("/wizard/:id/image", wizardHandler.AttachImage)
	authed.POST("/wizard/:id/preferences", wizardHandler.SetPreferences)
	authed.POST("/wizard/:id/scope", wizardHandler.SetScope)

	generationHandler := handlers.NewGenerationHandler(deps.Sessions, deps.Orch)
	authed.POST("/tryon", generationHandler.TryOn)
	authed.POST("/edit", generationHandler.Edit)

	historyHandler := handlers.NewHistoryHandler(deps.History)
	authed.GET("/history", historyHandler.List)

	paymentHandler := handlers.NewPaymentHandler(deps.DB, deps.Gateway, deps.Payment, deps.Resolver)
	authed.POST("/payments", paymentHandler.Create)
	authed.GET("/payments/:id", paymentHandler.Get)

	clientKeyHandler := handlers.NewClientKeyHandler(deps.ClientKey)
	authed.GET("/client-key", clientKeyHandler.Get)

	relayHandler := handlers.NewRelayHandler(deps.Relay)
	authed.POST("/relay", relayHandler.Send)
}

// userAuthMiddleware validates user JWTs and loads the user into context.
func userAuthMiddleware(db *gorm.DB, jwtCfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}
		token = strings.TrimSpace(token)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "empty token"})
			return
		}

		userID, kind, errJWT := security.ParseToken(jwtCfg, token)
		if errJWT != nil || kind != security.SubjectKindUser {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		var user models.User
		if errFind := db.WithContext(c.Request.Context()).First(&user, "id = ?", userID).Error; errFind != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
			return
		}

		c.Set(handlers.ContextUserIDKey, user.ID)
		c.Set(handlers.ContextUserKey, &user)
		c.Next()
	}
}

// Package app wires the service together and runs the HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/stylisthq/stylist-server/internal/config"
	"github.com/stylisthq/stylist-server/internal/db"
	"github.com/stylisthq/stylist-server/internal/entitlement"
	"github.com/stylisthq/stylist-server/internal/genai"
	"github.com/stylisthq/stylist-server/internal/history"
	adminapi "github.com/stylisthq/stylist-server/internal/http/api/admin"
	"github.com/stylisthq/stylist-server/internal/http/api/front"
	"github.com/stylisthq/stylist-server/internal/metrics"
	"github.com/stylisthq/stylist-server/internal/models"
	"github.com/stylisthq/stylist-server/internal/payment"
	"github.com/stylisthq/stylist-server/internal/ratelimit"
	"github.com/stylisthq/stylist-server/internal/security"
	internalsettings "github.com/stylisthq/stylist-server/internal/settings"
	"github.com/stylisthq/stylist-server/internal/stylist"
	"github.com/stylisthq/stylist-server/internal/telegram"
	"github.com/stylisthq/stylist-server/internal/wizard"
)

// Environment variables for the optional admin seed.
const (
	EnvAdminUsername = "ADMIN_USERNAME"
	EnvAdminPassword = "ADMIN_PASSWORD"
)

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, cfg config.AppConfig) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	dsn, err := config.LoadDatabaseDSN(configPath)
	if err != nil {
		return err
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	return db.Migrate(conn)
}

// RunServer boots the stylist API server with database-backed components.
func RunServer(ctx context.Context, cfg config.AppConfig, defaultPort int) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	dsn, err := config.LoadDatabaseDSN(configPath)
	if err != nil {
		return err
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}

	internalsettings.Bind(conn)

	jwtCfg, errJWT := config.LoadJWTConfig(configPath)
	if errJWT != nil {
		return errJWT
	}
	genaiCfg, errGenAI := config.LoadGenAIConfig(configPath)
	if errGenAI != nil {
		return errGenAI
	}
	telegramCfg, errTelegram := config.LoadTelegramConfig(configPath)
	if errTelegram != nil {
		return errTelegram
	}
	paymentCfg, errPayment := config.LoadPaymentConfig(configPath)
	if errPayment != nil {
		return errPayment
	}

	if errSeed := ensureAdmin(conn); errSeed != nil {
		return errSeed
	}

	chain := history.NewChain(history.NewGormStore(conn), history.NewMemoryStore())
	chain.SaveFailureHook = func(backend string) {
		metrics.HistoryPersistFailures.WithLabelValues(backend).Inc()
	}

	limiter := ratelimit.NewManager(nil, func(ctx context.Context, key string, window time.Duration) (int64, error) {
		userID, errKey := ratelimit.UserFromKey(key)
		if errKey != nil {
			return 0, errKey
		}
		count, _, errCount := chain.Count(ctx, userID, window)
		return count, errCount
	}, nil, nil)

	model := genai.NewClient(genaiCfg)
	orch := stylist.NewOrchestrator(model, limiter, chain)
	gateway := payment.NewClient(paymentCfg)
	resolver := entitlement.NewResolver(conn, gateway, chain, nil)
	sessions := wizard.NewStore(0, nil)
	relay := telegram.NewRelay(telegramCfg.BotToken)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	engine.GET("/metrics", metrics.Handler())

	front.RegisterFrontRoutes(engine, front.Deps{
		DB:        conn,
		JWT:       jwtCfg,
		Telegram:  telegramCfg,
		Payment:   paymentCfg,
		ClientKey: genaiCfg.ClientKey,
		Resolver:  resolver,
		History:   chain,
		Sessions:  sessions,
		Orch:      orch,
		Gateway:   gateway,
		Relay:     relay,
	})
	adminapi.RegisterAdminRoutes(engine, conn, jwtCfg)

	port := config.LoadServerPort(configPath)
	if port <= 0 {
		port = defaultPort
	}
	if port <= 0 {
		port = 8318
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: engine,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("app: listening on %s", server.Addr)
		if errServe := server.ListenAndServe(); errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
			errCh <- errServe
		}
	}()

	select {
	case <-ctx.Done():
	case errServe := <-errCh:
		return fmt.Errorf("app: serve: %w", errServe)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
		return fmt.Errorf("app: shutdown: %w", errShutdown)
	}
	orch.Wait()
	return nil
}

// ensureAdmin seeds the operator account from env when no admin exists.
func ensureAdmin(conn *gorm.DB) error {
	username := strings.TrimSpace(os.Getenv(EnvAdminUsername))
	password := os.Getenv(EnvAdminPassword)
	if username == "" || password == "" {
		return nil
	}

	var count int64
	if errCount := conn.Model(&models.Admin{}).Count(&count).Error; errCount != nil {
		return fmt.Errorf("app: count admins: %w", errCount)
	}
	if count > 0 {
		return nil
	}

	hash, errHash := security.HashPassword(password)
	if errHash != nil {
		return errHash
	}
	admin := models.Admin{Username: username, Password: hash}
	if errCreate := conn.Create(&admin).Error; errCreate != nil {
		return fmt.Errorf("app: create admin: %w", errCreate)
	}
	log.WithField("username", username).Info("app: seeded admin account")
	return nil
}

// corsMiddleware enables permissive CORS for the API.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

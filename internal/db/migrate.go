package db

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stylisthq/stylist-server/internal/models"
	internalsettings "github.com/stylisthq/stylist-server/internal/settings"
	"gorm.io/gorm"
)

// Migrate runs database migrations for the current dialect.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}

	if errAutoMigrate := conn.AutoMigrate(
		&models.Admin{},
		&models.User{},
		&models.HistoryItem{},
		&models.Payment{},
		&models.Setting{},
	); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}

	if errSeed := ensureLimiterSettings(conn); errSeed != nil {
		return errSeed
	}

	// ddl defines an index statement to apply.
	type ddl struct {
		name string // Human-readable name for error reporting.
		sql  string // SQL to execute.
	}
	ddls := []ddl{
		{
			name: "idx_history_items_user_id_created_at",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_history_items_user_id_created_at
				ON history_items (user_id, created_at DESC)
			`,
		},
		{
			name: "idx_payments_user_id_status",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_payments_user_id_status
				ON payments (user_id, status)
			`,
		},
		{
			name: "idx_payments_status_created_at",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_payments_status_created_at
				ON payments (status, created_at DESC)
			`,
		},
		{
			name: "idx_settings_updated_at_key",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_settings_updated_at_key
				ON settings (updated_at DESC, key DESC)
			`,
		},
	}
	for _, item := range ddls {
		if errDDL := conn.Exec(item.sql).Error; errDDL != nil {
			return fmt.Errorf("db: create index %s: %w", item.name, errDDL)
		}
	}

	return nil
}

// ensureLimiterSettings seeds generation limiter settings with defaults.
func ensureLimiterSettings(conn *gorm.DB) error {
	if errEnsure := ensureIntSetting(
		conn,
		internalsettings.FreeGenerationLimitKey,
		internalsettings.DefaultFreeGenerationLimit,
	); errEnsure != nil {
		return errEnsure
	}
	return ensureIntSetting(
		conn,
		internalsettings.GenerationWindowHoursKey,
		internalsettings.DefaultGenerationWindowHours,
	)
}

// ensureIntSetting ensures an integer setting exists and defaults when empty.
func ensureIntSetting(conn *gorm.DB, key string, value int) error {
	payload, errMarshal := json.Marshal(value)
	if errMarshal != nil {
		return fmt.Errorf("db: marshal %s setting: %w", key, errMarshal)
	}
	rawValue := json.RawMessage(payload)

	var existing models.Setting
	if errFind := conn.Where("key = ?", key).First(&existing).Error; errFind == nil {
		trimmed := strings.TrimSpace(string(existing.Value))
		if len(existing.Value) == 0 || trimmed == "" || trimmed == "null" {
			if errUpdate := conn.Model(&existing).Updates(map[string]any{
				"value":      rawValue,
				"updated_at": time.Now().UTC(),
			}).Error; errUpdate != nil {
				return fmt.Errorf("db: update %s setting: %w", key, errUpdate)
			}
		}
		return nil
	} else if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		return fmt.Errorf("db: query %s setting: %w", key, errFind)
	}

	setting := models.Setting{
		Key:       key,
		Value:     rawValue,
		UpdatedAt: time.Now().UTC(),
	}
	if errCreate := conn.Create(&setting).Error; errCreate != nil {
		return fmt.Errorf("db: create %s setting: %w", key, errCreate)
	}
	return nil
}

package settings

import (
	"encoding/json"
	"sync"

	"github.com/stylisthq/stylist-server/internal/models"
	"gorm.io/gorm"
)

var (
	storeMu sync.RWMutex
	storeDB *gorm.DB
)

// Bind attaches the settings store to a database connection.
func Bind(conn *gorm.DB) {
	storeMu.Lock()
	storeDB = conn
	storeMu.Unlock()
}

// DBConfigValue loads a raw setting value by key from the bound database.
func DBConfigValue(key string) (json.RawMessage, bool) {
	storeMu.RLock()
	conn := storeDB
	storeMu.RUnlock()
	if conn == nil || key == "" {
		return nil, false
	}

	var row models.Setting
	if errFind := conn.Where("key = ?", key).First(&row).Error; errFind != nil {
		return nil, false
	}
	if len(row.Value) == 0 {
		return nil, false
	}
	return row.Value, true
}

// SetDBConfigValue upserts a setting value by key in the bound database.
func SetDBConfigValue(key string, value json.RawMessage) error {
	storeMu.RLock()
	conn := storeDB
	storeMu.RUnlock()
	if conn == nil {
		return gorm.ErrInvalidDB
	}

	var existing models.Setting
	if errFind := conn.Where("key = ?", key).First(&existing).Error; errFind == nil {
		return conn.Model(&existing).Update("value", value).Error
	}
	return conn.Create(&models.Setting{Key: key, Value: value}).Error
}

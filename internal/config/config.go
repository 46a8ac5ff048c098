package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variable names recognized by the loader.
const (
	EnvConfigPath       = "CONFIG_PATH"
	EnvDBConnection     = "DB_CONNECTION"
	EnvJWTSecret        = "JWT_SECRET"
	EnvJWTExpiry        = "JWT_EXPIRY"
	EnvGenAIAPIKey      = "GENAI_API_KEY"
	EnvTelegramBotToken = "TELEGRAM_BOT_TOKEN"
	EnvPaymentShopID    = "PAYMENT_SHOP_ID"
	EnvPaymentSecretKey = "PAYMENT_SECRET_KEY"
)

// AppConfig holds resolved application configuration values.
type AppConfig struct {
	ConfigPath string
}

// LoadFromEnv loads app config from environment variables.
func LoadFromEnv() (AppConfig, error) {
	return AppConfig{ConfigPath: ResolveConfigPath(os.Getenv(EnvConfigPath))}, nil
}

// ResolveConfigPath normalizes the config path and applies defaults.
func ResolveConfigPath(p string) string {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" {
		trimmed = "./config.yaml"
	}
	if abs, err := filepath.Abs(trimmed); err == nil {
		return abs
	}
	return trimmed
}

// ErrMissingDatabaseDSN indicates no database DSN is present in the config file.
var ErrMissingDatabaseDSN = errors.New("missing database dsn (set `database-dsn` or `database.dsn` in config file)")

// JWTConfig holds JWT secret and expiry settings.
type JWTConfig struct {
	Secret string        `yaml:"secret"`
	Expiry time.Duration `yaml:"expiry"`
}

// GenAIConfig holds model API settings.
type GenAIConfig struct {
	APIKey         string        `yaml:"api-key"`
	BaseURL        string        `yaml:"base-url"`
	AnalysisModel  string        `yaml:"analysis-model"`
	ImageModel     string        `yaml:"image-model"`
	RequestTimeout time.Duration `yaml:"request-timeout"`
	ClientKey      string        `yaml:"client-key"`
}

// TelegramConfig holds Telegram bot settings.
type TelegramConfig struct {
	BotToken string        `yaml:"bot-token"`
	AuthTTL  time.Duration `yaml:"auth-ttl"`
}

// PaymentConfig holds payment gateway settings.
type PaymentConfig struct {
	ShopID      string `yaml:"shop-id"`
	SecretKey   string `yaml:"secret-key"`
	BaseURL     string `yaml:"base-url"`
	ReturnURL   string `yaml:"return-url"`
	AmountCents int64  `yaml:"amount-cents"`
	Currency    string `yaml:"currency"`
}

// LoadDatabaseDSN reads the database DSN from the YAML config file.
func LoadDatabaseDSN(configPath string) (string, error) {
	if dsn := strings.TrimSpace(os.Getenv(EnvDBConnection)); dsn != "" {
		return dsn, nil
	}

	// fileConfig maps the YAML fields needed for DSN resolution.
	type fileConfig struct {
		DatabaseDSN string `yaml:"database-dsn"`
		Database    struct {
			DSN string `yaml:"dsn"`
		} `yaml:"database"`
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return "", fmt.Errorf("read config file: %w", err)
	}

	var cfg fileConfig
	if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
		return "", fmt.Errorf("parse config file: %w", errUnmarshal)
	}

	if dsn := strings.TrimSpace(cfg.DatabaseDSN); dsn != "" {
		return dsn, nil
	}
	if dsn := strings.TrimSpace(cfg.Database.DSN); dsn != "" {
		return dsn, nil
	}
	return "", ErrMissingDatabaseDSN
}

// defaultJWTExpiry is used when the config omits or invalidates JWT expiry.
const defaultJWTExpiry = 30 * 24 * time.Hour

// LoadJWTConfig loads JWT settings from the YAML config file.
func LoadJWTConfig(configPath string) (JWTConfig, error) {
	// fileConfig maps the YAML fields needed for JWT settings.
	type fileConfig struct {
		JWT JWTConfig `yaml:"jwt"`
	}

	result := JWTConfig{Expiry: defaultJWTExpiry}

	data, errRead := os.ReadFile(configPath)
	if errRead == nil {
		var cfg fileConfig
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal == nil {
			result = cfg.JWT
		}
	}

	if secret := strings.TrimSpace(os.Getenv(EnvJWTSecret)); secret != "" {
		result.Secret = secret
	}
	if expiryRaw := strings.TrimSpace(os.Getenv(EnvJWTExpiry)); expiryRaw != "" {
		if expiry, errParse := time.ParseDuration(expiryRaw); errParse == nil && expiry > 0 {
			result.Expiry = expiry
		}
	}

	if result.Expiry <= 0 {
		result.Expiry = defaultJWTExpiry
	}
	return result, nil
}

// defaultGenAITimeout bounds a single model API request.
const defaultGenAITimeout = 90 * time.Second

// LoadGenAIConfig loads model API settings from the YAML config file.
func LoadGenAIConfig(configPath string) (GenAIConfig, error) {
	// fileConfig maps the YAML fields needed for model API settings.
	type fileConfig struct {
		GenAI GenAIConfig `yaml:"genai"`
	}

	result := GenAIConfig{RequestTimeout: defaultGenAITimeout}

	data, errRead := os.ReadFile(configPath)
	if errRead == nil {
		var cfg fileConfig
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal == nil {
			result = cfg.GenAI
		}
	}

	if key := strings.TrimSpace(os.Getenv(EnvGenAIAPIKey)); key != "" {
		result.APIKey = key
	}
	if result.BaseURL == "" {
		result.BaseURL = "https://generativelanguage.googleapis.com"
	}
	if result.AnalysisModel == "" {
		result.AnalysisModel = "gemini-2.0-flash"
	}
	if result.ImageModel == "" {
		result.ImageModel = "gemini-2.0-flash-exp-image-generation"
	}
	if result.RequestTimeout <= 0 {
		result.RequestTimeout = defaultGenAITimeout
	}
	return result, nil
}

// defaultTelegramAuthTTL bounds how old a login payload may be.
const defaultTelegramAuthTTL = 24 * time.Hour

// LoadTelegramConfig loads Telegram bot settings from the YAML config file.
func LoadTelegramConfig(configPath string) (TelegramConfig, error) {
	// fileConfig maps the YAML fields needed for Telegram settings.
	type fileConfig struct {
		Telegram TelegramConfig `yaml:"telegram"`
	}

	result := TelegramConfig{AuthTTL: defaultTelegramAuthTTL}

	data, errRead := os.ReadFile(configPath)
	if errRead == nil {
		var cfg fileConfig
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal == nil {
			result = cfg.Telegram
		}
	}

	if token := strings.TrimSpace(os.Getenv(EnvTelegramBotToken)); token != "" {
		result.BotToken = token
	}
	if result.AuthTTL <= 0 {
		result.AuthTTL = defaultTelegramAuthTTL
	}
	return result, nil
}

// LoadPaymentConfig loads payment gateway settings from the YAML config file.
func LoadPaymentConfig(configPath string) (PaymentConfig, error) {
	// fileConfig maps the YAML fields needed for payment settings.
	type fileConfig struct {
		Payment PaymentConfig `yaml:"payment"`
	}

	var result PaymentConfig

	data, errRead := os.ReadFile(configPath)
	if errRead == nil {
		var cfg fileConfig
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal == nil {
			result = cfg.Payment
		}
	}

	if shopID := strings.TrimSpace(os.Getenv(EnvPaymentShopID)); shopID != "" {
		result.ShopID = shopID
	}
	if secret := strings.TrimSpace(os.Getenv(EnvPaymentSecretKey)); secret != "" {
		result.SecretKey = secret
	}
	if result.AmountCents <= 0 {
		result.AmountCents = 49900
	}
	if result.Currency == "" {
		result.Currency = "RUB"
	}
	return result, nil
}

// LoadServerPort reads the listen port from the YAML config file, 0 when unset.
func LoadServerPort(configPath string) int {
	// fileConfig maps the YAML fields needed for the listen port.
	type fileConfig struct {
		Port int `yaml:"port"`
	}

	data, errRead := os.ReadFile(configPath)
	if errRead != nil {
		return 0
	}
	var cfg fileConfig
	if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
		return 0
	}
	return cfg.Port
}

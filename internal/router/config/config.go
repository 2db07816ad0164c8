package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/senyabanana/procurement-service/internal/models"

	"github.com/spf13/viper"
)

// Config - структура для хранения конфигураций приложения
type Config struct {
	ServerAddress string `mapstructure:"SERVER_ADDRESS"`
	PostgresConn  string `mapstructure:"POSTGRES_CONN"`
	PostgresUser  string `mapstructure:"POSTGRES_USERNAME"`
	PostgresPass  string `mapstructure:"POSTGRES_PASSWORD"`
	PostgresHost  string `mapstructure:"POSTGRES_HOST"`
	PostgresPort  string `mapstructure:"POSTGRES_PORT"`
	PostgresDB    string `mapstructure:"POSTGRES_DATABASE"`
	MigrationURL  string `mapstructure:"MIGRATION_URL"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisDB       int    `mapstructure:"REDIS_DB"`
	NotifyChannel string `mapstructure:"NOTIFY_CHANNEL"`

	JWTSecret      string        `mapstructure:"JWT_SECRET"`
	JWTTTL         time.Duration `mapstructure:"JWT_TTL"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`

	LogLevel string `mapstructure:"LOG_LEVEL"`
	AppEnv   string `mapstructure:"APP_ENV"`

	ApprovalTriggerAbove float64 `mapstructure:"APPROVAL_TRIGGER_ABOVE"`
	ApprovalMediumAbove  float64 `mapstructure:"APPROVAL_MEDIUM_ABOVE"`
	ApprovalHighAbove    float64 `mapstructure:"APPROVAL_HIGH_ABOVE"`

	BidReviewLockTerminal bool          `mapstructure:"BID_REVIEW_LOCK_TERMINAL"`
	ContractExpiryWindow  time.Duration `mapstructure:"CONTRACT_EXPIRY_WINDOW"`
}

var defaults = map[string]interface{}{
	"SERVER_ADDRESS":           "0.0.0.0:8080",
	"MIGRATION_URL":            "file://migrations",
	"NOTIFY_CHANNEL":           "procurement.events",
	"JWT_TTL":                  "24h",
	"REQUEST_TIMEOUT":          "5s",
	"LOG_LEVEL":                "info",
	"APP_ENV":                  "development",
	"APPROVAL_TRIGGER_ABOVE":   models.DefaultTriggerAbove,
	"APPROVAL_MEDIUM_ABOVE":    models.DefaultMediumAbove,
	"APPROVAL_HIGH_ABOVE":      models.DefaultHighAbove,
	"BID_REVIEW_LOCK_TERMINAL": true,
	"CONTRACT_EXPIRY_WINDOW":   "720h",
}

// LoadConfig загружает конфигурацию из файла app.env и переменных окружения.
// Отсутствие файла не является ошибкой.
func LoadConfig(path string) (cfg Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	// AutomaticEnv учитывается в Unmarshal только для известных ключей.
	for _, key := range []string{"POSTGRES_CONN", "POSTGRES_USERNAME", "POSTGRES_PASSWORD", "POSTGRES_HOST",
		"POSTGRES_PORT", "POSTGRES_DATABASE", "REDIS_ADDR", "REDIS_DB", "JWT_SECRET"} {
		if err = v.BindEnv(key); err != nil {
			return
		}
	}

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return
		}
	}
	if err = v.Unmarshal(&cfg); err != nil {
		return
	}
	err = cfg.Validate()
	return
}

// Validate проверяет обязательные параметры.
func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.ApprovalHighAbove < c.ApprovalMediumAbove {
		return fmt.Errorf("APPROVAL_HIGH_ABOVE (%v) must not be below APPROVAL_MEDIUM_ABOVE (%v)", c.ApprovalHighAbove, c.ApprovalMediumAbove)
	}
	return nil
}

// ApprovalPolicy собирает правила согласования из порогов конфигурации.
func (c Config) ApprovalPolicy() models.ApprovalPolicy {
	return models.NewApprovalPolicy(c.ApprovalTriggerAbove, c.ApprovalMediumAbove, c.ApprovalHighAbove)
}

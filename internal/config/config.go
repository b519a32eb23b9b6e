package config

import (
	"fmt"
	"time"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN string `env:"DATABASE_DSN,required=true"`
	RedisURL    string `env:"REDIS_URL,required=true"`
	BaseURL     string `env:"BASE_URL,default=https://see.errautomotriz.online"`
	APIPort     int    `env:"API_PORT,default=8080"`
	LogLevel    string `env:"LOG_LEVEL,default=info"`

	// Delivery queue tuning.
	MaxAttempts          int `env:"QUEUE_MAX_ATTEMPTS,default=3"`
	SendTimeoutSec       int `env:"SEND_TIMEOUT_SEC,default=15"`
	FailedAlertThreshold int `env:"FAILED_ALERT_THRESHOLD,default=20"`

	// Telegram bot API.
	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN,required=true"`
	TelegramAPIURL   string `env:"TELEGRAM_API_URL,default=https://api.telegram.org"`

	// WhatsApp via an Evolution-compatible gateway.
	WhatsAppEnabled  bool   `env:"WHATSAPP_ENABLED,default=false"`
	WhatsAppAPIURL   string `env:"WHATSAPP_API_URL"`
	WhatsAppAPIKey   string `env:"WHATSAPP_API_KEY"`
	WhatsAppInstance string `env:"WHATSAPP_INSTANCE,default=err_instance"`

	// Email over authenticated SMTP.
	EmailEnabled bool   `env:"EMAIL_ENABLED,default=false"`
	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT,default=465"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	EmailFrom    string `env:"EMAIL_FROM,default=evidencias@see.errautomotriz.online"`
	EmailName    string `env:"EMAIL_FROM_NAME,default=ERR Automotriz - Evidencias"`

	// Bridge lookup against the main workshop system.
	BridgeAPIURL        string `env:"BRIDGE_API_URL,required=true"`
	BridgeAPIKey        string `env:"BRIDGE_API_KEY"`
	BridgeTimeoutSec    int    `env:"BRIDGE_TIMEOUT_SEC,default=10"`
	BridgeRetryAttempts int    `env:"BRIDGE_RETRY_ATTEMPTS,default=2"`
	BridgeRetryDelaySec int    `env:"BRIDGE_RETRY_DELAY_SEC,default=2"`
	BridgeCacheTTLHours int    `env:"BRIDGE_CACHE_TTL_HOURS,default=24"`

	// Serves fixture client data for a designated order instead of calling
	// the bridge. Development only.
	BridgeTestData  bool   `env:"BRIDGE_TEST_DATA,default=false"`
	BridgeTestOrder string `env:"BRIDGE_TEST_ORDER,default=12345"`

	// Gallery link issuing.
	GalleryTokenDays int `env:"GALLERY_TOKEN_DAYS,default=30"`

	// Trailing window for queue statistics.
	StatsWindowDays int `env:"STATS_WINDOW_DAYS,default=7"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// SendTimeout returns the per-send network timeout as a duration.
func (c *Config) SendTimeout() time.Duration {
	if c.SendTimeoutSec < 1 {
		return 15 * time.Second
	}
	return time.Duration(c.SendTimeoutSec) * time.Second
}

// BridgeCacheTTL returns the client-data cache lifetime.
func (c *Config) BridgeCacheTTL() time.Duration {
	if c.BridgeCacheTTLHours < 1 {
		return 24 * time.Hour
	}
	return time.Duration(c.BridgeCacheTTLHours) * time.Hour
}

// StatsWindow returns the trailing window used by queue statistics.
func (c *Config) StatsWindow() time.Duration {
	if c.StatsWindowDays < 1 {
		return 7 * 24 * time.Hour
	}
	return time.Duration(c.StatsWindowDays) * 24 * time.Hour
}

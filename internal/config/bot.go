package config

import (
	"os"
	"sync"
	"time"
)

const defaultMaxFileSize = 10 * 1024 * 1024

type BotConfig struct {
	Token              string `validate:"required"`
	Username           string
	Brand              string        `validate:"required"`
	MaxFileSize        int64         `validate:"gt=0"`
	SessionIdleTimeout time.Duration `validate:"gt=0"`
	RateLimitMessages  int           `validate:"gt=0"`
	RateLimitWindow    time.Duration `validate:"gt=0"`
	RewriteTimeout     time.Duration `validate:"gt=0"`
}

var (
	botConfig *BotConfig
	botOnce   sync.Once
)

func LoadBotConfig() *BotConfig {
	botOnce.Do(func() {
		botConfig = &BotConfig{
			Token:              os.Getenv("BOT_TOKEN"),
			Username:           os.Getenv("BOT_USERNAME"),
			Brand:              getEnv("BOT_BRAND", "ATS Resume Bot"),
			MaxFileSize:        getEnvInt64("MAX_FILE_SIZE", defaultMaxFileSize),
			SessionIdleTimeout: getEnvDuration("SESSION_IDLE_TIMEOUT", 2*time.Hour),
			RateLimitMessages:  getEnvInt("RATE_LIMIT_MESSAGES", 10),
			RateLimitWindow:    getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
			RewriteTimeout:     getEnvDuration("REWRITE_TIMEOUT", 90*time.Second),
		}
	})
	return botConfig
}

package config

import (
	"log"
	"os"
	"sync"
)

type AppConfig struct {
	Name           string `validate:"required"`
	Env            string `validate:"oneof=development staging production test"`
	Port           string `validate:"required"`
	BaseURL        string
	LogLevel       string `validate:"oneof=debug info warn error"`
	InternalSecret string
}

var (
	appConfig *AppConfig
	appOnce   sync.Once
)

func LoadAppConfig() *AppConfig {
	appOnce.Do(func() {
		env := os.Getenv("APP_ENV")
		if env == "" {
			env = "development"
			log.Printf("Warning: APP_ENV not set, defaulting to %s", env)
		}
		appConfig = &AppConfig{
			Name:           getEnv("APP_NAME", "ats-resume-bot"),
			Env:            env,
			Port:           getEnv("APP_PORT", ":3000"),
			BaseURL:        os.Getenv("APP_URL"),
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			InternalSecret: os.Getenv("INTERNAL_API_SECRET"),
		}
	})
	return appConfig
}

func (c *AppConfig) IsProduction() bool {
	return c.Env == "production"
}

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Settings is every config the server needs at startup.
type Settings struct {
	App        *AppConfig        `validate:"required"`
	Bot        *BotConfig        `validate:"required"`
	LLM        *LLMConfig        `validate:"required"`
	OpenRouter *OpenRouterConfig `validate:"required"`
	Gemini     *GeminiConfig     `validate:"required"`
	Cashfree   *CashfreeConfig   `validate:"required"`
	Payment    *PaymentConfig    `validate:"required"`
	DB         *DBConfig
	Redis      *RedisConfig
}

func Load() *Settings {
	return &Settings{
		App:        LoadAppConfig(),
		Bot:        LoadBotConfig(),
		LLM:        LoadLLMConfig(),
		OpenRouter: LoadOpenRouterConfig(),
		Gemini:     LoadGeminiConfig(),
		Cashfree:   LoadCashfreeConfig(),
		Payment:    LoadPaymentConfig(),
		DB:         LoadDBConfig(),
		Redis:      LoadRedisConfig(),
	}
}

// Validate reports every missing or malformed setting in one error.
func (s *Settings) Validate() error {
	var problems []string

	if err := validator.New().Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			problems = append(problems, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
		}
	}

	if s.LLM != nil {
		switch s.LLM.Provider {
		case ProviderOpenRouter:
			if s.OpenRouter != nil && s.OpenRouter.APIKey == "" {
				problems = append(problems, "OPENROUTER_API_KEY is required when LLM_PROVIDER=openrouter")
			}
		case ProviderGemini:
			if s.Gemini != nil && s.Gemini.APIKey == "" {
				problems = append(problems, "GEMINI_API_KEY is required when LLM_PROVIDER=gemini")
			}
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

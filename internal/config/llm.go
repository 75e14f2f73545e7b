package config

import (
	"strings"
	"sync"
)

const (
	ProviderOpenRouter = "openrouter"
	ProviderGemini     = "gemini"
)

type LLMConfig struct {
	Provider string `validate:"oneof=openrouter gemini"`
}

var (
	llmConfig *LLMConfig
	llmOnce   sync.Once
)

func LoadLLMConfig() *LLMConfig {
	llmOnce.Do(func() {
		llmConfig = &LLMConfig{
			Provider: strings.ToLower(getEnv("LLM_PROVIDER", ProviderOpenRouter)),
		}
	})
	return llmConfig
}

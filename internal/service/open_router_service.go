package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fadilmartias/ats-resume-bot/internal/config"
	"github.com/fadilmartias/ats-resume-bot/internal/rewrite"
	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

type OpenRouterServiceInterface interface {
	Rewrite(ctx context.Context, resumeText, jobDescription string) (string, error)
}

type OpenRouterService struct {
	client *resty.Client
	model  string
}

func NewOpenRouterService(cfg *config.OpenRouterConfig) *OpenRouterService {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader("Authorization", "Bearer "+cfg.APIKey).
		SetHeader("Content-Type", "application/json")
	return &OpenRouterService{client: client, model: cfg.Model}
}

func (s *OpenRouterService) Rewrite(ctx context.Context, resumeText, jobDescription string) (string, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"model":       s.model,
			"temperature": 0.2,
			"messages": []map[string]string{
				{"role": "system", "content": rewrite.SystemPrompt},
				{"role": "user", "content": rewrite.BuildPrompt(resumeText, jobDescription)},
			},
		}).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("openrouter request failed: %w", err)
	}

	body := resp.String()
	if resp.IsError() {
		msg := gjson.Get(body, "error.message").String()
		if msg == "" {
			msg = resp.Status()
		}
		return "", fmt.Errorf("openrouter returned %d: %s", resp.StatusCode(), msg)
	}

	text := gjson.Get(body, "choices.0.message.content").String()
	if text == "" {
		return "", fmt.Errorf("no response from LLM")
	}
	slog.Debug("openrouter rewrite done", "model", s.model, "chars", len(text))
	return text, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/fadilmartias/ats-resume-bot/internal/config"
	"github.com/fadilmartias/ats-resume-bot/internal/rewrite"
	"google.golang.org/genai"
)

type GeminiServiceInterface interface {
	GenerateContent(ctx context.Context, model string, prompt string) (*genai.GenerateContentResponse, error)
	Rewrite(ctx context.Context, resumeText, jobDescription string) (string, error)
}

type GeminiService struct {
	Client         *genai.Client
	Model          string
	MaxRetries     int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	RequestTimeout time.Duration

	BreakerCooldown time.Duration

	mu                sync.Mutex
	consecutiveErrors int
	circuitBreakerMax int
	openedAt          time.Time
	halfOpenInFlight  bool
	now               func() time.Time
}

func NewGeminiService(ctx context.Context, cfg *config.GeminiConfig) (*GeminiService, error) {
	return newGeminiService(ctx, cfg, genai.HTTPOptions{})
}

func newGeminiService(ctx context.Context, cfg *config.GeminiConfig, opts genai.HTTPOptions) (*GeminiService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY not set")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: opts,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiService{
		Client:            client,
		Model:             cfg.Model,
		MaxRetries:        3,
		BaseDelay:         time.Second,
		MaxDelay:          30 * time.Second,
		RequestTimeout:    90 * time.Second,
		BreakerCooldown:   30 * time.Second,
		circuitBreakerMax: 5,
		now:               time.Now,
	}, nil
}

func (s *GeminiService) Rewrite(ctx context.Context, resumeText, jobDescription string) (string, error) {
	result, err := s.GenerateContent(ctx, s.Model, rewrite.BuildPrompt(resumeText, jobDescription))
	if err != nil {
		return "", err
	}
	return result.Text(), nil
}

func (s *GeminiService) GenerateContent(ctx context.Context, model string, prompt string) (*genai.GenerateContentResponse, error) {
	if model == "" {
		return nil, fmt.Errorf("model name cannot be empty")
	}
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("prompt cannot be empty")
	}

	if !s.allowRequest() {
		n, _ := s.GetCircuitBreakerStatus()
		return nil, fmt.Errorf("circuit breaker open: too many consecutive errors (%d)", n)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.RequestTimeout)
	defer cancel()

	genConfig := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr(float32(0.2)),
		SystemInstruction: genai.NewContentFromText(rewrite.SystemPrompt, genai.RoleUser),
	}

	var lastErr error
	for attempt := 0; attempt <= s.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := s.calculateBackoff(attempt)
			slog.Info("retrying gemini generate", "attempt", attempt, "max", s.MaxRetries, "delay", delay)

			select {
			case <-time.After(delay):
			case <-timeoutCtx.Done():
				s.settle(ctx)
				return nil, fmt.Errorf("context timeout during retry: %w", timeoutCtx.Err())
			}
		}

		result, err := s.Client.Models.GenerateContent(timeoutCtx, model, genai.Text(prompt), genConfig)
		if err == nil {
			s.ResetCircuitBreaker()
			if err := s.validateGenerateResponse(result); err != nil {
				return nil, fmt.Errorf("invalid response: %w", err)
			}
			return result, nil
		}

		lastErr = err
		if !s.isRetryableError(err) {
			slog.Warn("gemini non-retryable error", "error", err)
			s.settle(ctx)
			return nil, fmt.Errorf("generate content failed: %w", err)
		}
		slog.Warn("gemini retryable error", "attempt", attempt+1, "error", err)
	}

	s.settle(ctx)
	return nil, fmt.Errorf("max retries (%d) exceeded for GenerateContent: %w", s.MaxRetries, lastErr)
}

func (s *GeminiService) calculateBackoff(attempt int) time.Duration {
	delay := s.BaseDelay * time.Duration(math.Pow(2, float64(attempt-1)))
	if delay > s.MaxDelay {
		delay = s.MaxDelay
	}
	return delay
}

func (s *GeminiService) isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 429, 500, 502, 503, 504:
			return true
		default:
			return false
		}
	}

	errMsg := err.Error()
	return strings.Contains(errMsg, "connection refused") ||
		strings.Contains(errMsg, "connection reset") ||
		strings.Contains(errMsg, "timeout") ||
		strings.Contains(errMsg, "temporary failure") ||
		strings.Contains(errMsg, "EOF")
}

func (s *GeminiService) validateGenerateResponse(resp *genai.GenerateContentResponse) error {
	if resp == nil {
		return fmt.Errorf("response is nil")
	}
	if len(resp.Candidates) == 0 {
		return fmt.Errorf("no candidates in response")
	}
	if resp.Candidates[0].Content == nil {
		return fmt.Errorf("candidate content is nil")
	}
	if len(resp.Candidates[0].Content.Parts) == 0 {
		return fmt.Errorf("no parts in content")
	}
	return nil
}

// allowRequest lets every call through while closed. Once open, a single
// trial call is let through per cooldown period.
func (s *GeminiService) allowRequest() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.consecutiveErrors < s.circuitBreakerMax {
		return true
	}
	if s.halfOpenInFlight || s.now().Sub(s.openedAt) < s.BreakerCooldown {
		return false
	}
	s.halfOpenInFlight = true
	return true
}

// settle records a failed call. A caller that cancelled or ran out of time
// says nothing about Gemini's health, so it only ends a trial call.
func (s *GeminiService) settle(callerCtx context.Context) {
	if callerCtx.Err() != nil {
		s.mu.Lock()
		s.halfOpenInFlight = false
		s.mu.Unlock()
		return
	}
	s.recordFailure()
}

func (s *GeminiService) recordFailure() {
	s.mu.Lock()
	s.consecutiveErrors++
	if s.consecutiveErrors >= s.circuitBreakerMax {
		s.openedAt = s.now()
	}
	s.halfOpenInFlight = false
	s.mu.Unlock()
}

func (s *GeminiService) ResetCircuitBreaker() {
	s.mu.Lock()
	s.consecutiveErrors = 0
	s.halfOpenInFlight = false
	s.mu.Unlock()
}

// GetCircuitBreakerStatus reports open only while calls are being refused.
func (s *GeminiService) GetCircuitBreakerStatus() (consecutiveErrors int, isOpen bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	open := s.consecutiveErrors >= s.circuitBreakerMax &&
		(s.halfOpenInFlight || s.now().Sub(s.openedAt) < s.BreakerCooldown)
	return s.consecutiveErrors, open
}

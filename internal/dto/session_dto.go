package dto

import (
	"time"

	"github.com/fadilmartias/ats-resume-bot/internal/session"
)

type StartRequest struct {
	DisplayName string `json:"display_name" validate:"max=100"`
}

type MessageRequest struct {
	Text string `json:"text" validate:"required,max=20000"`
}

type SessionStatusDTO struct {
	UserID         string    `json:"user_id"`
	DisplayName    string    `json:"display_name"`
	State          string    `json:"state"`
	Progress       string    `json:"progress"`
	NextSteps      string    `json:"next_steps"`
	ExpectedInput  string    `json:"expected_input"`
	ElapsedMinutes int       `json:"elapsed_minutes"`
	ResumeFormat   string    `json:"resume_format,omitempty"`
	HasOptimized   bool      `json:"has_optimized_resume"`
	OriginalScore  float64   `json:"original_score"`
	OptimizedScore float64   `json:"optimized_score"`
	PaymentID      string    `json:"payment_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func NewSessionStatus(s *session.Session, now time.Time) SessionStatusDTO {
	return SessionStatusDTO{
		UserID:         s.UserID,
		DisplayName:    s.DisplayName,
		State:          s.State.String(),
		Progress:       s.State.Progress(),
		NextSteps:      s.State.NextSteps(),
		ExpectedInput:  s.State.ExpectedInput(),
		ElapsedMinutes: int(s.Elapsed(now).Minutes()),
		ResumeFormat:   s.ResumeFormat,
		HasOptimized:   s.OptimizedResume != "",
		OriginalScore:  s.OriginalScore,
		OptimizedScore: s.OptimizedScore,
		PaymentID:      s.PaymentID,
		CreatedAt:      s.CreatedAt,
	}
}

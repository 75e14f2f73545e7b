package session

import (
	"errors"
	"time"
)

var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrPaymentIDAlreadySet = errors.New("payment id already set")
)

// Session is one user's progress through the bot. Stores hand out copies, so
// a Session value is owned by whoever holds it.
type Session struct {
	UserID             string     `json:"user_id"`
	DisplayName        string     `json:"display_name"`
	AuditID            string     `json:"audit_id,omitempty"`
	State              State      `json:"state"`
	ResumeText         string     `json:"resume_text,omitempty"`
	ResumeFormat       string     `json:"resume_format,omitempty"`
	JobDescription     string     `json:"job_description,omitempty"`
	OptimizedResume    string     `json:"optimized_resume,omitempty"`
	UsedFallback       bool       `json:"used_fallback,omitempty"`
	OriginalScore      float64    `json:"original_score"`
	OptimizedScore     float64    `json:"optimized_score"`
	PaymentID          string     `json:"payment_id,omitempty"`
	PaymentURL         string     `json:"payment_url,omitempty"`
	ManualPayment      bool       `json:"manual_payment,omitempty"`
	UTR                string     `json:"utr,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	PaymentInitiatedAt *time.Time `json:"payment_initiated_at,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
}

func New(userID, displayName string, now time.Time) *Session {
	return &Session{
		UserID:      userID,
		DisplayName: displayName,
		State:       AwaitingResume,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.PaymentInitiatedAt != nil {
		t := *s.PaymentInitiatedAt
		c.PaymentInitiatedAt = &t
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

// AssignPaymentID sets the payment id once per session lifetime.
func (s *Session) AssignPaymentID(id string, at time.Time) error {
	if s.PaymentID != "" {
		return ErrPaymentIDAlreadySet
	}
	s.PaymentID = id
	s.PaymentInitiatedAt = &at
	return nil
}

// ReadyForPayment is the guard on payment initiation.
func (s *Session) ReadyForPayment() bool {
	return s.State == AwaitingPayment && s.OptimizedResume != ""
}

// AwaitingReference distinguishes "optimized but unpaid" from "waiting for
// the transaction reference" inside AwaitingPayment.
func (s *Session) AwaitingReference() bool {
	return s.ReadyForPayment() && s.PaymentID != ""
}

func (s *Session) Elapsed(now time.Time) time.Duration {
	return now.Sub(s.CreatedAt)
}

package repository

import (
	"context"
	"errors"
	"time"

	"github.com/fadilmartias/ats-resume-bot/internal/model"
	"github.com/fadilmartias/ats-resume-bot/internal/session"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrPaymentNotFound = errors.New("payment not found")

// Records writes the bot's audit trail to postgres.
type Records struct {
	users    *UserRepository
	sessions *SessionRepository
	payments *PaymentRepository
}

func NewRecords(db *gorm.DB) *Records {
	return &Records{
		users:    NewUserRepository(db),
		sessions: NewSessionRepository(db),
		payments: NewPaymentRepository(db),
	}
}

func (r *Records) TouchUser(ctx context.Context, userID, displayName string, at time.Time) error {
	return r.users.Touch(ctx, userID, displayName, at)
}

func (r *Records) RecordSession(ctx context.Context, s *session.Session) error {
	id, err := uuid.Parse(s.AuditID)
	if err != nil {
		return err
	}
	return r.sessions.Save(ctx, &model.ResumeSession{
		ID:             id,
		UserID:         s.UserID,
		Step:           s.State.String(),
		ResumeFormat:   s.ResumeFormat,
		ResumeChars:    len([]rune(s.ResumeText)),
		OriginalScore:  s.OriginalScore,
		OptimizedScore: s.OptimizedScore,
		UsedFallback:   s.UsedFallback,
		PaymentID:      s.PaymentID,
		CompletedAt:    s.CompletedAt,
		CreatedAt:      s.CreatedAt,
	})
}

func (r *Records) RecordPaymentInitiated(ctx context.Context, p *model.Payment) error {
	p.Status = model.PaymentPending
	return r.payments.Create(ctx, p)
}

func (r *Records) RecordPaymentResult(ctx context.Context, paymentID, utr string, verified bool, at time.Time) error {
	if verified {
		return r.payments.MarkVerified(ctx, paymentID, utr, at)
	}
	return r.payments.MarkFailed(ctx, paymentID, utr)
}

func (r *Records) RecordDelivery(ctx context.Context, userID string, at time.Time) error {
	return r.users.IncrementResumes(ctx, userID, at)
}

func (r *Records) FindPayment(ctx context.Context, paymentID string) (*model.Payment, error) {
	p, err := r.payments.FindByPaymentID(ctx, paymentID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPaymentNotFound
	}
	return p, err
}

func (r *Records) ListPayments(ctx context.Context, status string, page, pageSize int) ([]model.Payment, int64, error) {
	return r.payments.List(ctx, status, page, pageSize)
}

func (r *Records) MarkRefunded(ctx context.Context, paymentID, refundID string) error {
	return r.payments.MarkRefunded(ctx, paymentID, refundID)
}

// NopRecords keeps nothing. It is used when no database is configured.
type NopRecords struct{}

func (NopRecords) TouchUser(context.Context, string, string, time.Time) error   { return nil }
func (NopRecords) RecordSession(context.Context, *session.Session) error        { return nil }
func (NopRecords) RecordPaymentInitiated(context.Context, *model.Payment) error { return nil }
func (NopRecords) RecordDelivery(context.Context, string, time.Time) error      { return nil }
func (NopRecords) MarkRefunded(context.Context, string, string) error           { return nil }
func (NopRecords) FindPayment(context.Context, string) (*model.Payment, error)  { return nil, ErrPaymentNotFound }
func (NopRecords) RecordPaymentResult(context.Context, string, string, bool, time.Time) error {
	return nil
}
func (NopRecords) ListPayments(context.Context, string, int, int) ([]model.Payment, int64, error) {
	return nil, 0, nil
}

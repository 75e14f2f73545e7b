package usecase

import (
	"context"
	"time"

	"github.com/fadilmartias/ats-resume-bot/internal/model"
	"github.com/fadilmartias/ats-resume-bot/internal/payment"
	"github.com/fadilmartias/ats-resume-bot/internal/rewrite"
	"github.com/fadilmartias/ats-resume-bot/internal/service"
	"github.com/fadilmartias/ats-resume-bot/internal/session"
)

type TextExtractor interface {
	Extract(ctx context.Context, data []byte, filename string) (string, error)
}

type ContentRewriter interface {
	Rewrite(ctx context.Context, resumeText, jobDescription string) rewrite.Result
}

type DocumentRenderer interface {
	Render(text, displayName string) ([]byte, error)
}

type PaymentVerifier interface {
	InitiateOrder(ctx context.Context, userID, paymentID string) (*payment.Instructions, error)
	Reissue(paymentID, paymentURL string, manual bool, initiatedAt time.Time) *payment.Instructions
	VerifyReference(ctx context.Context, reference, paymentID string) (bool, error)
	Amount() int
	Currency() string
	UPIID() string
}

// RecordKeeper persists the audit trail. Failures are logged, never fatal to
// a transition.
type RecordKeeper interface {
	TouchUser(ctx context.Context, userID, displayName string, at time.Time) error
	RecordSession(ctx context.Context, s *session.Session) error
	RecordPaymentInitiated(ctx context.Context, p *model.Payment) error
	RecordPaymentResult(ctx context.Context, paymentID, utr string, verified bool, at time.Time) error
	RecordDelivery(ctx context.Context, userID string, at time.Time) error
}

type PaymentLedger interface {
	FindPayment(ctx context.Context, paymentID string) (*model.Payment, error)
	ListPayments(ctx context.Context, status string, page, pageSize int) ([]model.Payment, int64, error)
	RecordPaymentResult(ctx context.Context, paymentID, utr string, verified bool, at time.Time) error
	MarkRefunded(ctx context.Context, paymentID, refundID string) error
}

// PaymentGateway is what the webhook and admin flows need from the gateway:
// signature checks, an authoritative order status and refunds.
type PaymentGateway interface {
	VerifyWebhook(payload []byte, signature, timestamp string) bool
	CheckStatus(ctx context.Context, orderID string) (*payment.Status, error)
	Refund(ctx context.Context, orderID string, amount float64, note string) (*service.Refund, error)
}

type Observer interface {
	Transition(from, to session.State)
	Rejected(reason string)
	Rewrite(usedFallback bool)
	PaymentVerification(result string)
	Delivered()
}

type nopObserver struct{}

func (nopObserver) Transition(session.State, session.State) {}
func (nopObserver) Rejected(string)                         {}
func (nopObserver) Rewrite(bool)                            {}
func (nopObserver) PaymentVerification(string)              {}
func (nopObserver) Delivered()                              {}

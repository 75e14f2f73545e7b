package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fadilmartias/ats-resume-bot/internal/model"
	"github.com/fadilmartias/ats-resume-bot/internal/payment"
	"github.com/fadilmartias/ats-resume-bot/internal/response"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// PaymentUsecase serves the gateway webhook and the admin payment audit.
type PaymentUsecase struct {
	ledger  PaymentLedger
	gateway PaymentGateway
	now     func() time.Time
}

func NewPaymentUsecase(ledger PaymentLedger, gateway PaymentGateway) *PaymentUsecase {
	return &PaymentUsecase{ledger: ledger, gateway: gateway, now: time.Now}
}

// HandleWebhook trusts the payload only after the signature checks out and
// the signed timestamp is recent. A success event is recorded as verified
// only when the gateway's own order status agrees.
func (uc *PaymentUsecase) HandleWebhook(ctx context.Context, payload []byte, signature, timestamp string) (*payment.WebhookEvent, error) {
	if !uc.gateway.VerifyWebhook(payload, signature, timestamp) {
		slog.Warn("webhook signature rejected", "timestamp", timestamp)
		return nil, payment.ErrInvalidSignature
	}
	if err := payment.CheckWebhookTimestamp(timestamp, uc.now(), payment.WebhookMaxAge); err != nil {
		slog.Warn("webhook replay rejected", "timestamp", timestamp, "error", err)
		return nil, err
	}

	ev, err := payment.ParseWebhookEvent(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}

	if ev.PaymentStatus == "" {
		slog.Info("webhook ignored", "type", ev.Type, "order_id", ev.OrderID)
		return &ev, nil
	}

	verified, reference := ev.Succeeded(), ev.BankReference
	if verified {
		st, err := uc.gateway.CheckStatus(ctx, ev.OrderID)
		if err != nil {
			return nil, fmt.Errorf("confirm webhook order %s: %w", ev.OrderID, err)
		}
		if !st.IsPaid {
			slog.Warn("webhook success not confirmed by gateway", "order_id", ev.OrderID, "order_status", st.OrderStatus)
			verified = false
		} else if st.ReferenceID != "" {
			reference = st.ReferenceID
		}
	}

	if err := uc.ledger.RecordPaymentResult(ctx, ev.OrderID, reference, verified, uc.now()); err != nil {
		return nil, fmt.Errorf("record webhook result: %w", err)
	}
	slog.Info("webhook processed", "order_id", ev.OrderID, "status", ev.PaymentStatus, "verified", verified)
	return &ev, nil
}

type PaymentPage struct {
	Payments   []model.Payment
	Pagination *response.Pagination
}

func (uc *PaymentUsecase) List(ctx context.Context, status string, page, pageSize int) (*PaymentPage, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	switch status {
	case "", model.PaymentPending, model.PaymentVerified, model.PaymentFailed, model.PaymentRefunded:
	default:
		return nil, fmt.Errorf("%w: unknown payment status %q", ErrValidationFailed, status)
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	pageSize = min(pageSize, maxPageSize)

	payments, total, err := uc.ledger.ListPayments(ctx, status, page, pageSize)
	if err != nil {
		return nil, err
	}
	return &PaymentPage{
		Payments:   payments,
		Pagination: response.NewPagination(page, pageSize, len(payments), total),
	}, nil
}

// Refund returns a verified payment to the payer. Anything else is
// ErrRefundNotAllowed.
func (uc *PaymentUsecase) Refund(ctx context.Context, paymentID, note string) (*model.Payment, error) {
	p, err := uc.ledger.FindPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if p.Status != model.PaymentVerified {
		return nil, fmt.Errorf("%w: payment is %s", ErrRefundNotAllowed, p.Status)
	}

	refund, err := uc.gateway.Refund(ctx, paymentID, float64(p.Amount), note)
	if err != nil {
		return nil, fmt.Errorf("refund %s: %w", paymentID, err)
	}
	if refund.RefundID == "" {
		return nil, errors.New("gateway returned no refund id")
	}
	if err := uc.ledger.MarkRefunded(ctx, paymentID, refund.RefundID); err != nil {
		return nil, err
	}

	slog.Info("payment refunded", "payment_id", paymentID, "refund_id", refund.RefundID)
	p.Status = model.PaymentRefunded
	p.RefundID = refund.RefundID
	return p, nil
}

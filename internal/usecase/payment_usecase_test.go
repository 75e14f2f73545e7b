package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fadilmartias/ats-resume-bot/internal/model"
	"github.com/fadilmartias/ats-resume-bot/internal/payment"
	"github.com/fadilmartias/ats-resume-bot/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const webhookSecret = "cf-secret"

type fakeLedger struct {
	payments map[string]*model.Payment
	results  []paymentResult
	refunded map[string]string
	listArgs []any
}

func newFakeLedger(payments ...*model.Payment) *fakeLedger {
	l := &fakeLedger{payments: map[string]*model.Payment{}, refunded: map[string]string{}}
	for _, p := range payments {
		l.payments[p.PaymentID] = p
	}
	return l
}

func (l *fakeLedger) FindPayment(_ context.Context, paymentID string) (*model.Payment, error) {
	p, ok := l.payments[paymentID]
	if !ok {
		return nil, errors.New("payment not found")
	}
	c := *p
	return &c, nil
}

func (l *fakeLedger) ListPayments(_ context.Context, status string, page, pageSize int) ([]model.Payment, int64, error) {
	l.listArgs = []any{status, page, pageSize}
	var out []model.Payment
	for _, p := range l.payments {
		if status == "" || p.Status == status {
			out = append(out, *p)
		}
	}
	return out, int64(len(out)), nil
}

func (l *fakeLedger) RecordPaymentResult(_ context.Context, paymentID, utr string, verified bool, _ time.Time) error {
	l.results = append(l.results, paymentResult{paymentID, utr, verified})
	return nil
}

func (l *fakeLedger) MarkRefunded(_ context.Context, paymentID, refundID string) error {
	l.refunded[paymentID] = refundID
	return nil
}

type fakePaymentGateway struct {
	status      *payment.Status
	statusErr   error
	statusCalls int
	refundErr   error
	refunds     []string
}

func (g *fakePaymentGateway) VerifyWebhook(payload []byte, signature, timestamp string) bool {
	return payment.VerifyWebhookSignature(webhookSecret, payload, signature, timestamp)
}

func (g *fakePaymentGateway) CheckStatus(_ context.Context, orderID string) (*payment.Status, error) {
	g.statusCalls++
	if g.statusErr != nil {
		return nil, g.statusErr
	}
	if g.status == nil {
		return &payment.Status{OrderID: orderID, OrderStatus: "ACTIVE"}, nil
	}
	return g.status, nil
}

func (g *fakePaymentGateway) Refund(_ context.Context, orderID string, amount float64, _ string) (*service.Refund, error) {
	if g.refundErr != nil {
		return nil, g.refundErr
	}
	g.refunds = append(g.refunds, orderID)
	return &service.Refund{RefundID: "refund_" + orderID, Status: "PENDING", Amount: amount}, nil
}

const paidWebhook = `{
  "type": "PAYMENT_SUCCESS_WEBHOOK",
  "data": {
    "order": {"order_id": "ATS_42_1700000000", "order_amount": 5},
    "payment": {"payment_status": "SUCCESS", "bank_reference": "998877665544", "payment_amount": 5}
  }
}`

func TestHandleWebhook(t *testing.T) {
	const signedAt = "1700000100"
	received := time.Unix(1700000100, 0).Add(30 * time.Second)
	paid := &payment.Status{OrderID: "ATS_42_1700000000", OrderStatus: "PAID", IsPaid: true, PaidAmount: 5, ReferenceID: "998877665544"}
	sign := func(secret, ts string) func(string) string {
		return func(p string) string { return payment.Sign(secret, ts, []byte(p)) }
	}

	tests := []struct {
		name        string
		payload     string
		timestamp   string
		signature   func(payload string) string
		status      *payment.Status
		statusErr   error
		now         time.Time
		wantErr     error
		statusCalls int
		results     []paymentResult
	}{
		{
			name:        "paid and confirmed",
			payload:     paidWebhook,
			signature:   sign(webhookSecret, signedAt),
			status:      paid,
			statusCalls: 1,
			results:     []paymentResult{{"ATS_42_1700000000", "998877665544", true}},
		},
		{
			name:        "paid but gateway order still active",
			payload:     paidWebhook,
			signature:   sign(webhookSecret, signedAt),
			statusCalls: 1,
			results:     []paymentResult{{"ATS_42_1700000000", "998877665544", false}},
		},
		{
			name:        "gateway unreachable",
			payload:     paidWebhook,
			signature:   sign(webhookSecret, signedAt),
			statusErr:   payment.ErrPaymentVerificationFailed,
			wantErr:     payment.ErrPaymentVerificationFailed,
			statusCalls: 1,
		},
		{
			name:      "failed payment",
			payload:   `{"data":{"order":{"order_id":"ATS_42_1"},"payment":{"payment_status":"FAILED"}}}`,
			signature: sign(webhookSecret, signedAt),
			results:   []paymentResult{{"ATS_42_1", "", false}},
		},
		{
			name:      "wrong secret",
			payload:   paidWebhook,
			signature: sign("other", signedAt),
			wantErr:   payment.ErrInvalidSignature,
		},
		{
			name:      "replayed after window",
			payload:   paidWebhook,
			signature: sign(webhookSecret, signedAt),
			status:    paid,
			now:       received.Add(10 * time.Minute),
			wantErr:   payment.ErrStaleWebhook,
		},
		{
			name:      "timestamp in the future",
			payload:   paidWebhook,
			signature: sign(webhookSecret, signedAt),
			status:    paid,
			now:       received.Add(-10 * time.Minute),
			wantErr:   payment.ErrStaleWebhook,
		},
		{
			name:      "unparseable timestamp",
			payload:   paidWebhook,
			timestamp: "yesterday",
			signature: sign(webhookSecret, "yesterday"),
			status:    paid,
			wantErr:   payment.ErrStaleWebhook,
		},
		{
			name:      "signed but malformed",
			payload:   `{"data":{}}`,
			signature: sign(webhookSecret, signedAt),
			wantErr:   ErrValidationFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := newFakeLedger()
			gw := &fakePaymentGateway{status: tt.status, statusErr: tt.statusErr}
			uc := NewPaymentUsecase(ledger, gw)
			uc.now = func() time.Time {
				if tt.now.IsZero() {
					return received
				}
				return tt.now
			}
			ts := tt.timestamp
			if ts == "" {
				ts = signedAt
			}

			_, err := uc.HandleWebhook(context.Background(), []byte(tt.payload), tt.signature(tt.payload), ts)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.statusCalls, gw.statusCalls)
			assert.Equal(t, tt.results, ledger.results)
		})
	}
}

func TestPaymentList(t *testing.T) {
	ledger := newFakeLedger(
		&model.Payment{PaymentID: "a", Status: model.PaymentVerified},
		&model.Payment{PaymentID: "b", Status: model.PaymentPending},
	)
	uc := NewPaymentUsecase(ledger, &fakePaymentGateway{})

	page, err := uc.List(context.Background(), " Verified ", 0, 500)
	require.NoError(t, err)
	assert.Equal(t, []any{"verified", 1, 100}, ledger.listArgs)
	require.Len(t, page.Payments, 1)
	assert.EqualValues(t, 1, page.Pagination.TotalItems)

	_, err = uc.List(context.Background(), "lost", 1, 10)
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestPaymentRefund(t *testing.T) {
	ledger := newFakeLedger(
		&model.Payment{PaymentID: "paid", Status: model.PaymentVerified, Amount: 5, UTR: "998877665544"},
		&model.Payment{PaymentID: "open", Status: model.PaymentPending, Amount: 5},
	)
	gw := &fakePaymentGateway{}
	uc := NewPaymentUsecase(ledger, gw)

	p, err := uc.Refund(context.Background(), "paid", "duplicate")
	require.NoError(t, err)
	assert.Equal(t, model.PaymentRefunded, p.Status)
	assert.Equal(t, "refund_paid", ledger.refunded["paid"])

	_, err = uc.Refund(context.Background(), "open", "")
	assert.ErrorIs(t, err, ErrRefundNotAllowed)
	assert.Equal(t, []string{"paid"}, gw.refunds)

	gw.refundErr = errors.New("gateway down")
	ledger.payments["paid"].Status = model.PaymentVerified
	_, err = uc.Refund(context.Background(), "paid", "")
	assert.Error(t, err)
}

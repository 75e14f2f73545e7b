package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fadilmartias/ats-resume-bot/internal/service"
)

var (
	ErrInvalidReferenceFormat    = errors.New("invalid reference format")
	ErrPaymentInitiationFailed   = errors.New("payment initiation failed")
	ErrPaymentVerificationFailed = errors.New("payment verification failed")
)

// ReferenceLength is the digit count of a UPI transaction reference (UTR).
const ReferenceLength = 12

const paymentSucceeded = "SUCCESS"

// Gateway is the hosted payment API the verifier talks to.
type Gateway interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.Order, error)
	CreateUPILink(ctx context.Context, orderID string) (*service.UPILink, error)
	GetOrder(ctx context.Context, orderID string) (*service.Order, error)
	GetPayments(ctx context.Context, orderID string) ([]service.GatewayPayment, error)
	Refund(ctx context.Context, orderID, refundID string, amount float64, note string) (*service.Refund, error)
}

type Options struct {
	Amount        int
	Currency      string
	UPIID         string
	PayeeName     string
	Expiry        time.Duration
	CallbackURL   string
	WebhookSecret string
}

// Instructions tell the user how to pay for one order.
type Instructions struct {
	PaymentID  string    `json:"payment_id"`
	Amount     int       `json:"amount"`
	Currency   string    `json:"currency"`
	UPIID      string    `json:"upi_id"`
	UPIURI     string    `json:"upi_uri"`
	PaymentURL string    `json:"payment_url,omitempty"`
	QRCode     string    `json:"qr_code,omitempty"`
	ExpiresAt  time.Time `json:"expires_at"`
	Manual     bool      `json:"manual"`
}

type Status struct {
	OrderID     string  `json:"order_id"`
	OrderStatus string  `json:"order_status"`
	IsPaid      bool    `json:"is_paid"`
	PaidAmount  float64 `json:"paid_amount"`
	ReferenceID string  `json:"reference_id,omitempty"`
}

type Verifier struct {
	gateway Gateway
	opts    Options
	now     func() time.Time
}

func NewVerifier(gateway Gateway, opts Options) *Verifier {
	if opts.Currency == "" {
		opts.Currency = "INR"
	}
	if opts.Expiry <= 0 {
		opts.Expiry = 30 * time.Minute
	}
	return &Verifier{gateway: gateway, opts: opts, now: time.Now}
}

func (v *Verifier) Amount() int      { return v.opts.Amount }
func (v *Verifier) Currency() string { return v.opts.Currency }
func (v *Verifier) UPIID() string    { return v.opts.UPIID }

// NewPaymentID derives an order id from the user and the initiation time.
func NewPaymentID(userID string, at time.Time) string {
	return fmt.Sprintf("ATS_%s_%d", userID, at.Unix())
}

// ValidateReference trims the input and requires exactly 12 ASCII digits.
func ValidateReference(reference string) (string, error) {
	ref := strings.TrimSpace(reference)
	if len(ref) != ReferenceLength {
		return "", fmt.Errorf("%w: expected %d digits, got %d characters", ErrInvalidReferenceFormat, ReferenceLength, len(ref))
	}
	for i := 0; i < len(ref); i++ {
		if ref[i] < '0' || ref[i] > '9' {
			return "", fmt.Errorf("%w: only digits are allowed", ErrInvalidReferenceFormat)
		}
	}
	return ref, nil
}

// LooksLikeReference reports whether text is plausibly a reference attempt
// rather than free text such as a job description.
func LooksLikeReference(text string) bool {
	t := strings.TrimSpace(text)
	if t == "" || len(t) > 2*ReferenceLength {
		return false
	}
	digits := 0
	for _, r := range t {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits*2 >= len(t)
}

// InitiateOrder opens a hosted order for paymentID. When the gateway cannot
// be reached the user gets manual UPI instructions instead; a rejection by
// the gateway is ErrPaymentInitiationFailed.
func (v *Verifier) InitiateOrder(ctx context.Context, userID, paymentID string) (*Instructions, error) {
	inst := v.instructions(paymentID, v.now())

	_, err := v.gateway.CreateOrder(ctx, service.CreateOrderRequest{
		OrderID:    paymentID,
		Amount:     float64(v.opts.Amount),
		Currency:   v.opts.Currency,
		CustomerID: userID,
		ReturnURL:  v.callback("/payment/callback/" + paymentID),
		NotifyURL:  v.callback("/payment/webhook"),
		ExpiresAt:  inst.ExpiresAt,
		Note:       "ATS Resume Optimization Payment",
	})
	if err != nil {
		var gwErr *service.CashfreeError
		if errors.As(err, &gwErr) {
			return nil, fmt.Errorf("%w: %v", ErrPaymentInitiationFailed, err)
		}
		slog.Warn("payment gateway unreachable, using manual upi", "payment_id", paymentID, "error", err)
		inst.Manual = true
		return inst, nil
	}

	link, err := v.gateway.CreateUPILink(ctx, paymentID)
	if err != nil {
		slog.Warn("upi link unavailable, using manual upi", "payment_id", paymentID, "error", err)
		inst.Manual = true
		return inst, nil
	}
	inst.PaymentURL = link.PaymentURL
	inst.QRCode = link.QRCode
	return inst, nil
}

// Reissue rebuilds the instructions of an order that already exists without
// calling the gateway.
func (v *Verifier) Reissue(paymentID, paymentURL string, manual bool, initiatedAt time.Time) *Instructions {
	inst := v.instructions(paymentID, initiatedAt)
	inst.PaymentURL = paymentURL
	inst.Manual = manual
	return inst
}

func (v *Verifier) instructions(paymentID string, at time.Time) *Instructions {
	return &Instructions{
		PaymentID: paymentID,
		Amount:    v.opts.Amount,
		Currency:  v.opts.Currency,
		UPIID:     v.opts.UPIID,
		UPIURI:    v.upiURI(paymentID),
		ExpiresAt: at.Add(v.opts.Expiry),
	}
}

func (v *Verifier) CheckStatus(ctx context.Context, orderID string) (*Status, error) {
	order, err := v.gateway.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPaymentVerificationFailed, err)
	}
	st := &Status{OrderID: order.OrderID, OrderStatus: order.Status, IsPaid: order.IsPaid()}
	if !st.IsPaid {
		return st, nil
	}

	payments, err := v.gateway.GetPayments(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPaymentVerificationFailed, err)
	}
	for _, p := range payments {
		if p.Status == paymentSucceeded {
			st.PaidAmount = p.Amount
			st.ReferenceID = p.BankReference
			break
		}
	}
	return st, nil
}

// VerifyReference reports whether the gateway holds a successful payment for
// paymentID carrying reference. False means "not paid"; an error means the
// answer could not be obtained.
func (v *Verifier) VerifyReference(ctx context.Context, reference, paymentID string) (bool, error) {
	ref, err := ValidateReference(reference)
	if err != nil {
		return false, err
	}

	payments, err := v.gateway.GetPayments(ctx, paymentID)
	if err != nil {
		var gwErr *service.CashfreeError
		if errors.As(err, &gwErr) && gwErr.StatusCode == http.StatusNotFound {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrPaymentVerificationFailed, err)
	}

	for _, p := range payments {
		if p.Status == paymentSucceeded && p.BankReference == ref && p.Amount >= float64(v.opts.Amount) {
			return true, nil
		}
	}
	return false, nil
}

func (v *Verifier) Refund(ctx context.Context, orderID string, amount float64, note string) (*service.Refund, error) {
	if amount <= 0 {
		amount = float64(v.opts.Amount)
	}
	if note == "" {
		note = "User request"
	}
	refundID := fmt.Sprintf("refund_%s_%d", orderID, v.now().Unix())
	return v.gateway.Refund(ctx, orderID, refundID, amount, note)
}

func (v *Verifier) upiURI(paymentID string) string {
	q := url.Values{}
	q.Set("pa", v.opts.UPIID)
	if v.opts.PayeeName != "" {
		q.Set("pn", v.opts.PayeeName)
	}
	q.Set("am", strconv.Itoa(v.opts.Amount))
	q.Set("cu", v.opts.Currency)
	q.Set("tn", paymentID)
	return "upi://pay?" + q.Encode()
}

func (v *Verifier) callback(path string) string {
	if v.opts.CallbackURL == "" {
		return ""
	}
	return strings.TrimRight(v.opts.CallbackURL, "/") + path
}

package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrStaleWebhook     = errors.New("webhook timestamp outside accepted window")
)

// WebhookMaxAge bounds how far a signed timestamp may drift from now in
// either direction before the delivery is treated as a replay.
const WebhookMaxAge = 5 * time.Minute

// WebhookEvent is the part of a gateway callback the bot acts on.
type WebhookEvent struct {
	Type          string
	OrderID       string
	OrderAmount   float64
	PaymentStatus string
	BankReference string
	PaymentAmount float64
}

func (e WebhookEvent) Succeeded() bool {
	return e.PaymentStatus == paymentSucceeded
}

// Sign returns the hex HMAC-SHA256 of timestamp + "." + payload.
func Sign(secret, timestamp string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyWebhookSignature compares in constant time.
func VerifyWebhookSignature(secret string, payload []byte, signature, timestamp string) bool {
	if secret == "" || signature == "" || timestamp == "" {
		return false
	}
	got, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return false
	}
	want, _ := hex.DecodeString(Sign(secret, timestamp, payload))
	return hmac.Equal(got, want)
}

// CheckWebhookTimestamp accepts unix-second timestamps within maxAge of now.
func CheckWebhookTimestamp(timestamp string, now time.Time, maxAge time.Duration) error {
	sec, err := strconv.ParseInt(strings.TrimSpace(timestamp), 10, 64)
	if err != nil {
		return fmt.Errorf("%w: unparseable timestamp %q", ErrStaleWebhook, timestamp)
	}
	age := now.Sub(time.Unix(sec, 0))
	if age > maxAge || age < -maxAge {
		return fmt.Errorf("%w: signed %s ago", ErrStaleWebhook, age.Round(time.Second))
	}
	return nil
}

func (v *Verifier) VerifyWebhook(payload []byte, signature, timestamp string) bool {
	return VerifyWebhookSignature(v.opts.WebhookSecret, payload, signature, timestamp)
}

func ParseWebhookEvent(payload []byte) (WebhookEvent, error) {
	if !gjson.ValidBytes(payload) {
		return WebhookEvent{}, errors.New("webhook payload is not valid json")
	}
	root := gjson.ParseBytes(payload)
	ev := WebhookEvent{
		Type:          root.Get("type").String(),
		OrderID:       root.Get("data.order.order_id").String(),
		OrderAmount:   root.Get("data.order.order_amount").Float(),
		PaymentStatus: root.Get("data.payment.payment_status").String(),
		BankReference: root.Get("data.payment.bank_reference").String(),
		PaymentAmount: root.Get("data.payment.payment_amount").Float(),
	}
	if ev.OrderID == "" {
		return WebhookEvent{}, errors.New("webhook payload has no order id")
	}
	return ev, nil
}

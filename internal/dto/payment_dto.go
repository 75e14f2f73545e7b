package dto

import "time"

type RefundRequest struct {
	Note string `json:"note" validate:"max=200"`
}

type PaymentDTO struct {
	PaymentID  string     `json:"payment_id"`
	UserID     string     `json:"user_id"`
	Amount     int        `json:"amount"`
	Currency   string     `json:"currency"`
	Status     string     `json:"status"`
	Manual     bool       `json:"manual"`
	UTR        string     `json:"utr,omitempty"`
	RefundID   string     `json:"refund_id,omitempty"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

package model

import "time"

const (
	PaymentPending  = "pending"
	PaymentVerified = "verified"
	PaymentFailed   = "failed"
	PaymentRefunded = "refunded"
)

// Payment rows are never deleted.
type Payment struct {
	PaymentID  string     `gorm:"type:varchar(100);primaryKey" json:"payment_id"`
	UserID     string     `gorm:"type:varchar(64);index" json:"user_id"`
	Amount     int        `json:"amount"`
	Currency   string     `gorm:"type:varchar(3)" json:"currency"`
	Status     string     `gorm:"type:varchar(20);index" json:"status"`
	Manual     bool       `json:"manual"`
	PaymentURL string     `gorm:"type:text" json:"payment_url"`
	UTR        string     `gorm:"type:varchar(20)" json:"utr"`
	RefundID   string     `gorm:"type:varchar(150)" json:"refund_id"`
	VerifiedAt *time.Time `json:"verified_at"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (p *Payment) TableName() string {
	return "payments"
}

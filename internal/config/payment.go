package config

import (
	"os"
	"sync"
)

type PaymentConfig struct {
	Amount        int    `validate:"gt=0"`
	Currency      string `validate:"len=3"`
	UPIID         string `validate:"required,contains=@"`
	PayeeName     string
	ExpiryMinutes int `validate:"gt=0"`
}

var (
	paymentConfig *PaymentConfig
	paymentOnce   sync.Once
)

func LoadPaymentConfig() *PaymentConfig {
	paymentOnce.Do(func() {
		paymentConfig = &PaymentConfig{
			Amount:        getEnvInt("PAYMENT_AMOUNT", 5),
			Currency:      getEnv("PAYMENT_CURRENCY", "INR"),
			UPIID:         os.Getenv("UPI_ID"),
			PayeeName:     getEnv("UPI_PAYEE_NAME", "ATS Resume Bot"),
			ExpiryMinutes: getEnvInt("PAYMENT_EXPIRY_MINUTES", 30),
		}
	})
	return paymentConfig
}

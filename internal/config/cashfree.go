package config

import (
	"os"
	"strings"
	"sync"
	"time"
)

const (
	ModeSandbox    = "sandbox"
	ModeProduction = "production"

	cashfreeSandboxURL    = "https://sandbox.cashfree.com/pg"
	cashfreeProductionURL = "https://api.cashfree.com/pg"
)

type CashfreeConfig struct {
	ClientID     string        `validate:"required"`
	ClientSecret string        `validate:"required"`
	AppID        string        `validate:"required"`
	Mode         string        `validate:"oneof=sandbox production"`
	BaseURL      string        `validate:"required,url"`
	APIVersion   string        `validate:"required"`
	Timeout      time.Duration `validate:"gt=0"`
}

var (
	cashfreeConfig *CashfreeConfig
	cashfreeOnce   sync.Once
)

func LoadCashfreeConfig() *CashfreeConfig {
	cashfreeOnce.Do(func() {
		mode := strings.ToLower(getEnv("PAYMENT_GATEWAY_MODE", ModeSandbox))
		cashfreeConfig = &CashfreeConfig{
			ClientID:     os.Getenv("CASHFREE_CLIENT_ID"),
			ClientSecret: os.Getenv("CASHFREE_CLIENT_SECRET"),
			AppID:        os.Getenv("CASHFREE_APP_ID"),
			Mode:         mode,
			BaseURL:      getEnv("CASHFREE_BASE_URL", cashfreeBaseURL(mode)),
			APIVersion:   getEnv("CASHFREE_API_VERSION", "2023-08-01"),
			Timeout:      getEnvDuration("CASHFREE_TIMEOUT", 30*time.Second),
		}
	})
	return cashfreeConfig
}

func cashfreeBaseURL(mode string) string {
	if mode == ModeProduction {
		return cashfreeProductionURL
	}
	return cashfreeSandboxURL
}

package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fadilmartias/ats-resume-bot/internal/config"
	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

const cashfreeTimeFormat = "2006-01-02T15:04:05Z07:00"

// CashfreeError is a non-2xx answer from the gateway. Transport failures are
// returned as plain errors so callers can tell the two apart.
type CashfreeError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *CashfreeError) Error() string {
	return fmt.Sprintf("cashfree %d %s: %s", e.StatusCode, e.Code, e.Message)
}

type CreateOrderRequest struct {
	OrderID       string
	Amount        float64
	Currency      string
	CustomerID    string
	CustomerPhone string
	ReturnURL     string
	NotifyURL     string
	ExpiresAt     time.Time
	Note          string
}

type Order struct {
	OrderID          string
	CFOrderID        string
	Status           string
	Amount           float64
	Currency         string
	PaymentSessionID string
}

func (o *Order) IsPaid() bool {
	return o.Status == "PAID"
}

type UPILink struct {
	PaymentURL string
	QRCode     string
}

type GatewayPayment struct {
	CFPaymentID   string
	OrderID       string
	Amount        float64
	Status        string
	BankReference string
	PaymentTime   string
}

type Refund struct {
	RefundID     string
	CFRefundID   string
	Status       string
	Amount       float64
	ProcessedRaw string
}

type CashfreeServiceInterface interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error)
	CreateUPILink(ctx context.Context, orderID string) (*UPILink, error)
	GetOrder(ctx context.Context, orderID string) (*Order, error)
	GetPayments(ctx context.Context, orderID string) ([]GatewayPayment, error)
	Refund(ctx context.Context, orderID, refundID string, amount float64, note string) (*Refund, error)
}

type CashfreeService struct {
	client *resty.Client
}

func NewCashfreeService(cfg *config.CashfreeConfig) *CashfreeService {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeaders(map[string]string{
			"Content-Type":    "application/json",
			"x-client-id":     cfg.ClientID,
			"x-client-secret": cfg.ClientSecret,
			"x-api-version":   cfg.APIVersion,
		})
	return &CashfreeService{client: client}
}

func (s *CashfreeService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	phone := req.CustomerPhone
	if phone == "" {
		phone = "9999999999"
	}
	body := map[string]any{
		"order_id":       req.OrderID,
		"order_amount":   req.Amount,
		"order_currency": req.Currency,
		"customer_details": map[string]string{
			"customer_id":    req.CustomerID,
			"customer_name":  "User_" + req.CustomerID,
			"customer_phone": phone,
		},
		"order_meta": map[string]string{
			"return_url": req.ReturnURL,
			"notify_url": req.NotifyURL,
		},
		"order_note": req.Note,
	}
	if !req.ExpiresAt.IsZero() {
		body["order_expiry_time"] = req.ExpiresAt.UTC().Format(cashfreeTimeFormat)
	}

	resp, err := s.client.R().SetContext(ctx).SetBody(body).Post("/orders")
	if err != nil {
		return nil, fmt.Errorf("create order %s: %w", req.OrderID, err)
	}
	if err := checkCashfree(resp); err != nil {
		return nil, err
	}
	return parseOrder(resp.String()), nil
}

func (s *CashfreeService) CreateUPILink(ctx context.Context, orderID string) (*UPILink, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetPathParam("orderID", orderID).
		SetBody(map[string]any{
			"payment_method": "upi",
			"upi":            map[string]string{"channel": "link"},
		}).
		Post("/orders/{orderID}/payments")
	if err != nil {
		return nil, fmt.Errorf("create upi link %s: %w", orderID, err)
	}
	if err := checkCashfree(resp); err != nil {
		return nil, err
	}
	body := resp.String()
	return &UPILink{
		PaymentURL: gjson.Get(body, "data.payment_url").String(),
		QRCode:     gjson.Get(body, "data.qr_code").String(),
	}, nil
}

func (s *CashfreeService) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetPathParam("orderID", orderID).
		Get("/orders/{orderID}")
	if err != nil {
		return nil, fmt.Errorf("get order %s: %w", orderID, err)
	}
	if err := checkCashfree(resp); err != nil {
		return nil, err
	}
	return parseOrder(resp.String()), nil
}

func (s *CashfreeService) GetPayments(ctx context.Context, orderID string) ([]GatewayPayment, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetPathParam("orderID", orderID).
		Get("/orders/{orderID}/payments")
	if err != nil {
		return nil, fmt.Errorf("get payments %s: %w", orderID, err)
	}
	if err := checkCashfree(resp); err != nil {
		return nil, err
	}

	var payments []GatewayPayment
	gjson.Parse(resp.String()).ForEach(func(_, p gjson.Result) bool {
		payments = append(payments, GatewayPayment{
			CFPaymentID:   p.Get("cf_payment_id").String(),
			OrderID:       p.Get("order_id").String(),
			Amount:        p.Get("payment_amount").Float(),
			Status:        p.Get("payment_status").String(),
			BankReference: p.Get("bank_reference").String(),
			PaymentTime:   p.Get("payment_time").String(),
		})
		return true
	})
	return payments, nil
}

func (s *CashfreeService) Refund(ctx context.Context, orderID, refundID string, amount float64, note string) (*Refund, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetPathParam("orderID", orderID).
		SetBody(map[string]any{
			"refund_id":     refundID,
			"refund_amount": amount,
			"refund_note":   note,
		}).
		Post("/orders/{orderID}/refunds")
	if err != nil {
		return nil, fmt.Errorf("refund %s: %w", orderID, err)
	}
	if err := checkCashfree(resp); err != nil {
		return nil, err
	}
	body := resp.String()
	return &Refund{
		RefundID:     gjson.Get(body, "refund_id").String(),
		CFRefundID:   gjson.Get(body, "cf_refund_id").String(),
		Status:       gjson.Get(body, "refund_status").String(),
		Amount:       gjson.Get(body, "refund_amount").Float(),
		ProcessedRaw: gjson.Get(body, "processed_at").String(),
	}, nil
}

func checkCashfree(resp *resty.Response) error {
	if !resp.IsError() {
		return nil
	}
	body := resp.String()
	msg := gjson.Get(body, "message").String()
	if msg == "" {
		msg = strings.TrimSpace(body)
	}
	return &CashfreeError{
		StatusCode: resp.StatusCode(),
		Code:       gjson.Get(body, "code").String(),
		Message:    msg,
	}
}

func parseOrder(body string) *Order {
	return &Order{
		OrderID:          gjson.Get(body, "order_id").String(),
		CFOrderID:        gjson.Get(body, "cf_order_id").String(),
		Status:           gjson.Get(body, "order_status").String(),
		Amount:           gjson.Get(body, "order_amount").Float(),
		Currency:         gjson.Get(body, "order_currency").String(),
		PaymentSessionID: gjson.Get(body, "payment_session_id").String(),
	}
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fadilmartias/ats-resume-bot/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCashfree(t *testing.T, h http.HandlerFunc) *CashfreeService {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewCashfreeService(&config.CashfreeConfig{
		ClientID:     "cid",
		ClientSecret: "csecret",
		APIVersion:   "2023-08-01",
		BaseURL:      srv.URL + "/pg",
		Timeout:      2 * time.Second,
	})
}

func TestCashfree_CreateOrder(t *testing.T) {
	var got map[string]any
	svc := newTestCashfree(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/pg/orders", r.URL.Path)
		assert.Equal(t, "cid", r.Header.Get("x-client-id"))
		assert.Equal(t, "csecret", r.Header.Get("x-client-secret"))
		assert.Equal(t, "2023-08-01", r.Header.Get("x-api-version"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		_, _ = w.Write([]byte(`{"order_id":"ATS_42_1700000000","cf_order_id":2149,"order_status":"ACTIVE","order_amount":5,"order_currency":"INR","payment_session_id":"session_abc"}`))
	})

	expires := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	order, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		OrderID:    "ATS_42_1700000000",
		Amount:     5,
		Currency:   "INR",
		CustomerID: "42",
		ExpiresAt:  expires,
	})
	require.NoError(t, err)
	assert.Equal(t, "ATS_42_1700000000", order.OrderID)
	assert.Equal(t, "2149", order.CFOrderID)
	assert.Equal(t, "session_abc", order.PaymentSessionID)
	assert.False(t, order.IsPaid())

	assert.Equal(t, "2026-01-02T03:04:05Z", got["order_expiry_time"])
	customer := got["customer_details"].(map[string]any)
	assert.Equal(t, "42", customer["customer_id"])
	assert.Equal(t, "9999999999", customer["customer_phone"])
}

func TestCashfree_ErrorResponse(t *testing.T) {
	svc := newTestCashfree(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"order_amount is invalid","code":"order_amount_invalid","type":"invalid_request_error"}`))
	})

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{OrderID: "x"})
	var cfErr *CashfreeError
	require.True(t, errors.As(err, &cfErr))
	assert.Equal(t, http.StatusBadRequest, cfErr.StatusCode)
	assert.Equal(t, "order_amount_invalid", cfErr.Code)
	assert.Equal(t, "order_amount is invalid", cfErr.Message)
}

func TestCashfree_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	svc := NewCashfreeService(&config.CashfreeConfig{BaseURL: srv.URL, Timeout: time.Second, APIVersion: "2023-08-01"})

	_, err := svc.GetOrder(context.Background(), "ATS_1_1")
	require.Error(t, err)
	var cfErr *CashfreeError
	assert.False(t, errors.As(err, &cfErr))
}

func TestCashfree_GetOrderPaid(t *testing.T) {
	svc := newTestCashfree(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pg/orders/ATS_7_1", r.URL.Path)
		_, _ = w.Write([]byte(`{"order_id":"ATS_7_1","order_status":"PAID","order_amount":5}`))
	})

	order, err := svc.GetOrder(context.Background(), "ATS_7_1")
	require.NoError(t, err)
	assert.True(t, order.IsPaid())
	assert.Equal(t, 5.0, order.Amount)
}

func TestCashfree_GetPayments(t *testing.T) {
	svc := newTestCashfree(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pg/orders/ATS_7_1/payments", r.URL.Path)
		_, _ = w.Write([]byte(`[
			{"cf_payment_id":"1","order_id":"ATS_7_1","payment_amount":5,"payment_status":"FAILED","bank_reference":"111111111111"},
			{"cf_payment_id":"2","order_id":"ATS_7_1","payment_amount":5,"payment_status":"SUCCESS","bank_reference":"998877665544","payment_time":"2026-01-02T10:00:00+05:30"}
		]`))
	})

	payments, err := svc.GetPayments(context.Background(), "ATS_7_1")
	require.NoError(t, err)
	require.Len(t, payments, 2)
	assert.Equal(t, "SUCCESS", payments[1].Status)
	assert.Equal(t, "998877665544", payments[1].BankReference)
	assert.Equal(t, 5.0, payments[1].Amount)
}

func TestCashfree_UPILinkAndRefund(t *testing.T) {
	svc := newTestCashfree(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/pg/orders/ATS_7_1/payments":
			_, _ = w.Write([]byte(`{"data":{"payment_url":"upi://pay?pa=bot@upi","qr_code":"base64qr"}}`))
		case "/pg/orders/ATS_7_1/refunds":
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "refund_ATS_7_1_5", body["refund_id"])
			_, _ = w.Write([]byte(`{"refund_id":"refund_ATS_7_1_5","cf_refund_id":"88","refund_status":"PENDING","refund_amount":5}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	link, err := svc.CreateUPILink(context.Background(), "ATS_7_1")
	require.NoError(t, err)
	assert.Equal(t, "upi://pay?pa=bot@upi", link.PaymentURL)
	assert.Equal(t, "base64qr", link.QRCode)

	refund, err := svc.Refund(context.Background(), "ATS_7_1", "refund_ATS_7_1_5", 5, "User request")
	require.NoError(t, err)
	assert.Equal(t, "PENDING", refund.Status)
	assert.Equal(t, "88", refund.CFRefundID)
}

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/fadilmartias/ats-resume-bot/internal/extract"
	"github.com/fadilmartias/ats-resume-bot/internal/middleware"
	"github.com/fadilmartias/ats-resume-bot/internal/model"
	"github.com/fadilmartias/ats-resume-bot/internal/payment"
	"github.com/fadilmartias/ats-resume-bot/internal/render"
	"github.com/fadilmartias/ats-resume-bot/internal/repository"
	"github.com/fadilmartias/ats-resume-bot/internal/rewrite"
	"github.com/fadilmartias/ats-resume-bot/internal/service"
	"github.com/fadilmartias/ats-resume-bot/internal/session"
	"github.com/fadilmartias/ats-resume-bot/internal/usecase"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testUTR     = "998877665544"
	adminSecret = "admin-secret"
	hookSecret  = "hook-secret"
)

var (
	resumeText = strings.Repeat("Go engineer with Postgres and Kafka experience. ", 4)
	jobText    = strings.Repeat("Hiring Go engineer with Kafka. ", 4)
)

type stubGateway struct {
	payments []service.GatewayPayment
}

func (g *stubGateway) CreateOrder(_ context.Context, req service.CreateOrderRequest) (*service.Order, error) {
	return &service.Order{OrderID: req.OrderID, Status: "ACTIVE", Amount: req.Amount}, nil
}

func (g *stubGateway) CreateUPILink(_ context.Context, orderID string) (*service.UPILink, error) {
	return &service.UPILink{PaymentURL: "https://pay.example/" + orderID}, nil
}

func (g *stubGateway) GetOrder(_ context.Context, orderID string) (*service.Order, error) {
	return &service.Order{OrderID: orderID, Status: "PAID"}, nil
}

func (g *stubGateway) GetPayments(context.Context, string) ([]service.GatewayPayment, error) {
	return g.payments, nil
}

func (g *stubGateway) Refund(_ context.Context, orderID, refundID string, amount float64, _ string) (*service.Refund, error) {
	return &service.Refund{RefundID: refundID, Status: "PENDING", Amount: amount}, nil
}

func newTestApp(t *testing.T, gw *stubGateway, ledger usecase.PaymentLedger) *fiber.App {
	t.Helper()
	verifier := payment.NewVerifier(gw, payment.Options{
		Amount:        5,
		Currency:      "INR",
		UPIID:         "resumebot@upi",
		CallbackURL:   "https://bot.example",
		WebhookSecret: hookSecret,
	})
	bot := usecase.NewBotUsecase(usecase.BotDependencies{
		Store:     session.NewMemoryStore(time.Hour),
		Extractor: extract.New(),
		Rewriter:  rewrite.New(nil, 0),
		Renderer:  render.New("Resume Bot"),
		Payments:  verifier,
		Records:   repository.NopRecords{},
	}, usecase.BotOptions{MaxFileSize: 1 << 20, Brand: "Resume Bot"})

	app := fiber.New()
	NewBotHandler(bot, 1<<20).RegisterRoutes(app, middleware.UserRateLimiter(100, time.Minute))
	NewPaymentHandler(usecase.NewPaymentUsecase(ledger, verifier)).RegisterRoutes(app, middleware.InternalSecret(adminSecret))
	return app
}

func do(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	if strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(body, &out))
	} else {
		out = map[string]any{"raw": body}
	}
	return resp, out
}

func jsonRequest(method, target string, body any) *http.Request {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(method, target, bytes.NewReader(b))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return req
}

func uploadRequest(t *testing.T, target, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("resume", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	req := httptest.NewRequest(fiber.MethodPost, target, &buf)
	req.Header.Set(fiber.HeaderContentType, w.FormDataContentType())
	return req
}

func TestBotFlow(t *testing.T) {
	gw := &stubGateway{}
	app := newTestApp(t, gw, repository.NopRecords{})

	resp, body := do(t, app, jsonRequest(fiber.MethodPost, "/bot/42/start", map[string]string{"display_name": "Jane Doe"}))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Equal(t, "awaiting_resume", body["data"].(map[string]any)["state"])

	resp, body = do(t, app, jsonRequest(fiber.MethodPost, "/bot/42/message", map[string]string{"text": jobText}))
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Contains(t, body["message"], "resume file")
	assert.Equal(t, "awaiting_resume", body["state"])
	assert.Equal(t, session.AwaitingResume.ExpectedInput(), body["expected"])

	resp, _ = do(t, app, uploadRequest(t, "/bot/42/resume", "cv.txt", []byte(resumeText)))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, body = do(t, app, jsonRequest(fiber.MethodPost, "/bot/42/message", map[string]string{"text": jobText}))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["data"].(map[string]any)["used_fallback"])
	assert.Contains(t, body["data"].(map[string]any)["matched_keywords"], "engineer")

	resp, body = do(t, app, jsonRequest(fiber.MethodPost, "/bot/42/message", map[string]string{"text": testUTR}))
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Equal(t, "awaiting_payment", body["state"])
	assert.Equal(t, session.AwaitingPayment.ExpectedInput(), body["expected"])

	resp, body = do(t, app, httptest.NewRequest(fiber.MethodPost, "/bot/42/payment", nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	data := body["data"].(map[string]any)
	paymentID := data["payment_id"].(string)
	assert.True(t, strings.HasPrefix(paymentID, "ATS_42_"))
	assert.Equal(t, "https://pay.example/"+paymentID, data["payment_url"])

	resp, _ = do(t, app, jsonRequest(fiber.MethodPost, "/bot/42/message", map[string]string{"text": "12345"}))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, app, jsonRequest(fiber.MethodPost, "/bot/42/message", map[string]string{"text": testUTR}))
	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)

	gw.payments = []service.GatewayPayment{{OrderID: paymentID, Status: "SUCCESS", BankReference: testUTR, Amount: 5}}
	resp, body = do(t, app, jsonRequest(fiber.MethodPost, "/bot/42/message", map[string]string{"text": testUTR}))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get(fiber.HeaderContentType))
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), "ATS_Resume_Jane_Doe_")
	assert.True(t, bytes.HasPrefix(body["raw"].([]byte), []byte("%PDF-")))

	resp, body = do(t, app, httptest.NewRequest(fiber.MethodGet, "/bot/42/status", nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "completed", body["data"].(map[string]any)["state"])
}

func TestBotErrors(t *testing.T) {
	app := newTestApp(t, &stubGateway{}, repository.NopRecords{})

	resp, _ := do(t, app, httptest.NewRequest(fiber.MethodGet, "/bot/404/status", nil))
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	_, _ = do(t, app, httptest.NewRequest(fiber.MethodPost, "/bot/1/start", nil))

	resp, _ = do(t, app, uploadRequest(t, "/bot/1/resume", "cv.exe", []byte(resumeText)))
	assert.Equal(t, fiber.StatusUnsupportedMediaType, resp.StatusCode)

	resp, _ = do(t, app, uploadRequest(t, "/bot/1/resume", "cv.txt", []byte("too short")))
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)

	resp, _ = do(t, app, uploadRequest(t, "/bot/1/resume", "cv.txt", bytes.Repeat([]byte("a"), 2<<20)))
	assert.Equal(t, fiber.StatusRequestEntityTooLarge, resp.StatusCode)

	resp, body := do(t, app, jsonRequest(fiber.MethodPost, "/bot/1/message", map[string]string{}))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "failed on required", body["details"].(map[string]any)["text"])

	resp, _ = do(t, app, httptest.NewRequest(fiber.MethodGet, "/bot/1/preview", nil))
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestHelp(t *testing.T) {
	app := newTestApp(t, &stubGateway{}, repository.NopRecords{})
	resp, body := do(t, app, httptest.NewRequest(fiber.MethodGet, "/bot/help", nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "resumebot@upi", body["data"].(map[string]any)["upi_id"])
}

type memoryLedger struct {
	payments map[string]*model.Payment
	results  int
}

func (l *memoryLedger) FindPayment(_ context.Context, id string) (*model.Payment, error) {
	p, ok := l.payments[id]
	if !ok {
		return nil, repository.ErrPaymentNotFound
	}
	c := *p
	return &c, nil
}

func (l *memoryLedger) ListPayments(context.Context, string, int, int) ([]model.Payment, int64, error) {
	var out []model.Payment
	for _, p := range l.payments {
		out = append(out, *p)
	}
	return out, int64(len(out)), nil
}

func (l *memoryLedger) RecordPaymentResult(context.Context, string, string, bool, time.Time) error {
	l.results++
	return nil
}

func (l *memoryLedger) MarkRefunded(_ context.Context, id, refundID string) error {
	l.payments[id].Status = model.PaymentRefunded
	l.payments[id].RefundID = refundID
	return nil
}

func TestWebhook(t *testing.T) {
	ledger := &memoryLedger{payments: map[string]*model.Payment{}}
	app := newTestApp(t, &stubGateway{}, ledger)
	payload := `{"type":"PAYMENT_SUCCESS_WEBHOOK","data":{"order":{"order_id":"ATS_42_1"},"payment":{"payment_status":"SUCCESS","bank_reference":"998877665544"}}}`
	fresh := strconv.FormatInt(time.Now().Unix(), 10)
	stale := strconv.FormatInt(time.Now().Add(-time.Hour).Unix(), 10)

	tests := []struct {
		name        string
		timestamp   string
		signature   string
		wantCode    int
		wantResults int
	}{
		{name: "bad signature", timestamp: fresh, signature: "deadbeef", wantCode: fiber.StatusUnauthorized},
		{name: "replayed", timestamp: stale, signature: payment.Sign(hookSecret, stale, []byte(payload)), wantCode: fiber.StatusUnauthorized},
		{name: "fresh and signed", timestamp: fresh, signature: payment.Sign(hookSecret, fresh, []byte(payload)), wantCode: fiber.StatusOK, wantResults: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger.results = 0
			req := httptest.NewRequest(fiber.MethodPost, "/payment/webhook", strings.NewReader(payload))
			req.Header.Set(webhookTimestampHeader, tt.timestamp)
			req.Header.Set(webhookSignatureHeader, tt.signature)
			resp, _ := do(t, app, req)
			assert.Equal(t, tt.wantCode, resp.StatusCode)
			assert.Equal(t, tt.wantResults, ledger.results)
		})
	}
}

func TestAdminPayments(t *testing.T) {
	ledger := &memoryLedger{payments: map[string]*model.Payment{
		"ATS_1_1": {PaymentID: "ATS_1_1", Status: model.PaymentVerified, Amount: 5, UTR: testUTR},
		"ATS_2_2": {PaymentID: "ATS_2_2", Status: model.PaymentPending, Amount: 5},
	}}
	app := newTestApp(t, &stubGateway{}, ledger)

	admin := func(req *http.Request) *http.Request {
		req.Header.Set(middleware.InternalSecretHeader, adminSecret)
		return req
	}

	resp, _ := do(t, app, httptest.NewRequest(fiber.MethodGet, "/admin/payments", nil))
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, body := do(t, app, admin(httptest.NewRequest(fiber.MethodGet, "/admin/payments?page=1&page_size=10", nil)))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, body["data"], 2)
	assert.EqualValues(t, 2, body["pagination"].(map[string]any)["total_items"])

	resp, _ = do(t, app, admin(httptest.NewRequest(fiber.MethodGet, "/admin/payments?status=bogus", nil)))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, app, admin(httptest.NewRequest(fiber.MethodPost, "/admin/payments/ATS_2_2/refund", nil)))
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp, _ = do(t, app, admin(httptest.NewRequest(fiber.MethodPost, "/admin/payments/missing/refund", nil)))
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, body = do(t, app, admin(jsonRequest(fiber.MethodPost, "/admin/payments/ATS_1_1/refund", map[string]string{"note": "duplicate"})))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, model.PaymentRefunded, body["data"].(map[string]any)["status"])
	assert.True(t, strings.HasPrefix(ledger.payments["ATS_1_1"].RefundID, "refund_ATS_1_1_"))
}

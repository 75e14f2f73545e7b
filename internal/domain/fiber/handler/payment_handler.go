package handler

import (
	"errors"

	"github.com/fadilmartias/ats-resume-bot/internal/dto"
	"github.com/fadilmartias/ats-resume-bot/internal/model"
	"github.com/fadilmartias/ats-resume-bot/internal/payment"
	"github.com/fadilmartias/ats-resume-bot/internal/repository"
	"github.com/fadilmartias/ats-resume-bot/internal/usecase"
	"github.com/fadilmartias/ats-resume-bot/internal/util"
	"github.com/gofiber/fiber/v2"
)

const (
	webhookSignatureHeader = "x-webhook-signature"
	webhookTimestampHeader = "x-webhook-timestamp"

	// WebhookPath receives gateway payment callbacks.
	WebhookPath = "/payment/webhook"
)

type PaymentHandler struct {
	uc *usecase.PaymentUsecase
}

func NewPaymentHandler(uc *usecase.PaymentUsecase) *PaymentHandler {
	return &PaymentHandler{uc: uc}
}

func (h *PaymentHandler) RegisterRoutes(app *fiber.App, admin fiber.Handler) {
	app.Post(WebhookPath, h.Webhook)
	app.Get("/payment/callback/:paymentID", h.Callback)

	g := app.Group("/admin/payments", admin)
	g.Get("/", h.List)
	g.Post("/:paymentID/refund", h.Refund)
}

func (h *PaymentHandler) Webhook(c *fiber.Ctx) error {
	ev, err := h.uc.HandleWebhook(c.UserContext(), c.Body(), c.Get(webhookSignatureHeader), c.Get(webhookTimestampHeader))
	switch {
	case errors.Is(err, payment.ErrInvalidSignature):
		return util.ErrorResponse(c, util.ErrorResponseFormat{
			Code:    fiber.StatusUnauthorized,
			Message: "invalid signature",
		})
	case errors.Is(err, payment.ErrStaleWebhook):
		return util.ErrorResponse(c, util.ErrorResponseFormat{
			Code:    fiber.StatusUnauthorized,
			Message: "stale webhook timestamp",
		}, err)
	case errors.Is(err, payment.ErrPaymentVerificationFailed):
		return util.ErrorResponse(c, util.ErrorResponseFormat{
			Code:    fiber.StatusBadGateway,
			Message: "could not confirm order status",
		}, err)
	case errors.Is(err, usecase.ErrValidationFailed):
		return util.ErrorResponse(c, util.ErrorResponseFormat{
			Code:    fiber.StatusBadRequest,
			Message: "invalid webhook payload",
		}, err)
	case err != nil:
		return util.ErrorResponse(c, util.ErrorResponseFormat{Message: "failed to process webhook"}, err)
	}
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Message: "ok",
		Data:    fiber.Map{"order_id": ev.OrderID, "payment_status": ev.PaymentStatus},
	})
}

// Callback is the page the gateway returns the payer to.
func (h *PaymentHandler) Callback(c *fiber.Ctx) error {
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Message: "Payment submitted. Send the 12-digit UTR from your payment app to the bot to receive your resume.",
		Data:    fiber.Map{"payment_id": c.Params("paymentID")},
	})
}

func (h *PaymentHandler) List(c *fiber.Ctx) error {
	page, err := h.uc.List(c.UserContext(), c.Query("status"), c.QueryInt("page", 1), c.QueryInt("page_size", 0))
	if err != nil {
		if errors.Is(err, usecase.ErrValidationFailed) {
			return util.ErrorResponse(c, util.ErrorResponseFormat{
				Code:    fiber.StatusBadRequest,
				Message: "invalid status filter",
			}, err)
		}
		return util.ErrorResponse(c, util.ErrorResponseFormat{Message: "failed to list payments"}, err)
	}

	items := make([]dto.PaymentDTO, 0, len(page.Payments))
	for i := range page.Payments {
		items = append(items, toPaymentDTO(&page.Payments[i]))
	}
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Message:    "Success get payments",
		Data:       items,
		Pagination: page.Pagination,
	})
}

func (h *PaymentHandler) Refund(c *fiber.Ctx) error {
	var req dto.RefundRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, err)
		}
	}
	if err := util.ValidateStruct(req); err != nil {
		return badRequest(c, err)
	}

	p, err := h.uc.Refund(c.UserContext(), c.Params("paymentID"), req.Note)
	switch {
	case errors.Is(err, repository.ErrPaymentNotFound):
		return util.ErrorResponse(c, util.ErrorResponseFormat{
			Code:    fiber.StatusNotFound,
			Message: "payment not found",
		})
	case errors.Is(err, usecase.ErrRefundNotAllowed):
		return util.ErrorResponse(c, util.ErrorResponseFormat{
			Code:    fiber.StatusConflict,
			Message: "only verified payments can be refunded",
		}, err)
	case err != nil:
		return util.ErrorResponse(c, util.ErrorResponseFormat{
			Code:    fiber.StatusBadGateway,
			Message: "refund failed",
		}, err)
	}
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Message: "Refund initiated",
		Data:    toPaymentDTO(p),
	})
}

func toPaymentDTO(p *model.Payment) dto.PaymentDTO {
	return dto.PaymentDTO{
		PaymentID:  p.PaymentID,
		UserID:     p.UserID,
		Amount:     p.Amount,
		Currency:   p.Currency,
		Status:     p.Status,
		Manual:     p.Manual,
		UTR:        p.UTR,
		RefundID:   p.RefundID,
		VerifiedAt: p.VerifiedAt,
		CreatedAt:  p.CreatedAt,
	}
}

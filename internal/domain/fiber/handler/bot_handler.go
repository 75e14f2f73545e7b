package handler

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fadilmartias/ats-resume-bot/internal/dto"
	"github.com/fadilmartias/ats-resume-bot/internal/extract"
	"github.com/fadilmartias/ats-resume-bot/internal/payment"
	"github.com/fadilmartias/ats-resume-bot/internal/render"
	"github.com/fadilmartias/ats-resume-bot/internal/session"
	"github.com/fadilmartias/ats-resume-bot/internal/usecase"
	"github.com/fadilmartias/ats-resume-bot/internal/util"
	"github.com/gofiber/fiber/v2"
)

// BotHandler exposes the bot conversation over HTTP, one route per kind of
// inbound chat message.
type BotHandler struct {
	uc          *usecase.BotUsecase
	maxFileSize int64
	now         func() time.Time
}

func NewBotHandler(uc *usecase.BotUsecase, maxFileSize int64) *BotHandler {
	return &BotHandler{uc: uc, maxFileSize: maxFileSize, now: time.Now}
}

func (h *BotHandler) RegisterRoutes(app *fiber.App, limiter fiber.Handler) {
	bot := app.Group("/bot")
	bot.Get("/help", h.Help)
	bot.Post("/:userID/start", limiter, h.Start)
	bot.Get("/:userID/status", h.Status)
	bot.Post("/:userID/resume", limiter, h.SubmitResume)
	bot.Post("/:userID/message", limiter, h.SubmitText)
	bot.Post("/:userID/payment", limiter, h.InitiatePayment)
	bot.Post("/:userID/retry", limiter, h.Retry)
	bot.Get("/:userID/preview", h.Preview)
}

func (h *BotHandler) Help(c *fiber.Ctx) error {
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Message: "Success get help",
		Data:    h.uc.Help(),
	})
}

func (h *BotHandler) Start(c *fiber.Ctx) error {
	var req dto.StartRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, err)
		}
	}
	if err := util.ValidateStruct(req); err != nil {
		return badRequest(c, err)
	}

	s, err := h.uc.Start(c.UserContext(), c.Params("userID"), req.DisplayName)
	if err != nil {
		return h.fail(c, err)
	}
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Code:    fiber.StatusCreated,
		Message: fmt.Sprintf("Welcome %s! Upload your resume to begin.", s.DisplayName),
		Data:    dto.NewSessionStatus(s, h.now()),
	})
}

func (h *BotHandler) Status(c *fiber.Ctx) error {
	s, err := h.uc.Status(c.UserContext(), c.Params("userID"))
	if err != nil {
		return h.fail(c, err)
	}
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Message: s.State.Progress(),
		Data:    dto.NewSessionStatus(s, h.now()),
	})
}

func (h *BotHandler) SubmitResume(c *fiber.Ctx) error {
	file, err := c.FormFile("resume")
	if err != nil {
		return util.ErrorResponse(c, util.ErrorResponseFormat{
			Code:    fiber.StatusBadRequest,
			Message: "resume file is required",
		}, err)
	}
	if file.Size > h.maxFileSize {
		return h.fail(c, fmt.Errorf("%w: %d bytes", usecase.ErrFileTooLarge, file.Size))
	}

	f, err := file.Open()
	if err != nil {
		return util.ErrorResponse(c, util.ErrorResponseFormat{Message: "cannot read resume file"}, err)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, h.maxFileSize+1))
	if err != nil {
		return util.ErrorResponse(c, util.ErrorResponseFormat{Message: "cannot read resume file"}, err)
	}

	accepted, err := h.uc.SubmitResume(c.UserContext(), c.Params("userID"), file.Filename, data)
	if err != nil {
		return h.fail(c, err)
	}
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Message: fmt.Sprintf("Resume received (%s, %d characters). Now send the job description.", accepted.Format, accepted.Chars),
		Data:    dto.NewSessionStatus(accepted.Session, h.now()),
	})
}

// SubmitText answers with the PDF itself when the message completes a
// payment, and with JSON otherwise.
func (h *BotHandler) SubmitText(c *fiber.Ctx) error {
	var req dto.MessageRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}
	if err := util.ValidateStruct(req); err != nil {
		return badRequest(c, err)
	}

	out, err := h.uc.SubmitText(c.UserContext(), c.Params("userID"), req.Text)
	if err != nil {
		return h.fail(c, err)
	}

	switch {
	case out.Delivery != nil:
		c.Set(fiber.HeaderContentType, "application/pdf")
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", out.Delivery.Filename))
		c.Set("X-Payment-UTR", out.Delivery.UTR)
		return c.Status(fiber.StatusOK).Send(out.Delivery.PDF)
	case out.NotConfirmed:
		return util.SuccessResponse(c, util.SuccessResponseFormat{
			Code:    fiber.StatusAccepted,
			Message: "Payment not confirmed yet. Check the UTR and try again in a minute.",
			Data:    dto.NewSessionStatus(out.Session, h.now()),
		})
	default:
		msg := "Resume optimized. Request payment to download the PDF."
		if out.Optimization.UsedFallback {
			msg = "Resume optimized with our standard template. Request payment to download the PDF."
		}
		return util.SuccessResponse(c, util.SuccessResponseFormat{
			Message: msg,
			Data:    out.Optimization,
			Meta:    dto.NewSessionStatus(out.Session, h.now()),
		})
	}
}

func (h *BotHandler) InitiatePayment(c *fiber.Ctx) error {
	inst, err := h.uc.InitiatePayment(c.UserContext(), c.Params("userID"))
	if err != nil {
		return h.fail(c, err)
	}
	msg := fmt.Sprintf("Pay %d %s and send the 12-digit UTR from your payment app.", inst.Amount, inst.Currency)
	if inst.Manual {
		msg = fmt.Sprintf("Pay %d %s to UPI ID %s with note %s, then send the 12-digit UTR.", inst.Amount, inst.Currency, inst.UPIID, inst.PaymentID)
	}
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Message: msg,
		Data:    inst,
	})
}

func (h *BotHandler) Retry(c *fiber.Ctx) error {
	s, err := h.uc.RetryWithNewJobDescription(c.UserContext(), c.Params("userID"))
	if err != nil {
		return h.fail(c, err)
	}
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Message: "Send the new job description.",
		Data:    dto.NewSessionStatus(s, h.now()),
	})
}

func (h *BotHandler) Preview(c *fiber.Ctx) error {
	chunks, err := h.uc.Preview(c.UserContext(), c.Params("userID"))
	if err != nil {
		return h.fail(c, err)
	}
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Message: "Success get preview",
		Data:    fiber.Map{"chunks": chunks},
	})
}

func (h *BotHandler) fail(c *fiber.Ctx, err error) error {
	code, msg := h.botError(err)
	params := util.ErrorResponseFormat{Code: code, Message: msg}
	var unexpected *usecase.UnexpectedInputError
	if errors.As(err, &unexpected) {
		params.State = unexpected.State.String()
		params.Expected = unexpected.State.ExpectedInput()
	}
	return util.ErrorResponse(c, params, err)
}

func badRequest(c *fiber.Ctx, err error) error {
	var fe *util.FormError
	if errors.As(err, &fe) {
		return util.ErrorResponse(c, util.ErrorResponseFormat{
			Code:    fiber.StatusBadRequest,
			Message: fe.Message,
			Details: fe.Errors,
		})
	}
	return util.ErrorResponse(c, util.ErrorResponseFormat{
		Code:    fiber.StatusBadRequest,
		Message: "invalid request body",
	}, err)
}

// botError turns the error taxonomy into a status and the guidance shown
// to the user.
func (h *BotHandler) botError(err error) (int, string) {
	var unexpected *usecase.UnexpectedInputError
	switch {
	case errors.As(err, &unexpected):
		return fiber.StatusConflict, fmt.Sprintf("I was expecting %s.", unexpected.State.ExpectedInput())
	case errors.Is(err, session.ErrSessionNotFound):
		return fiber.StatusNotFound, "No active session. Start a new session first."
	case errors.Is(err, usecase.ErrSessionBusy):
		return fiber.StatusLocked, "Processing, please wait."
	case errors.Is(err, usecase.ErrFileTooLarge):
		return fiber.StatusRequestEntityTooLarge, fmt.Sprintf("File too large. The maximum size is %d MB.", h.maxFileSize>>20)
	case errors.Is(err, extract.ErrUnsupportedFormat):
		return fiber.StatusUnsupportedMediaType, "Unsupported file type. Send a PDF, DOCX or TXT file."
	case errors.Is(err, extract.ErrExtractionFailed):
		return fiber.StatusUnprocessableEntity, "Could not read enough text from your resume. Send a text-based PDF, DOCX or TXT with at least 100 characters."
	case errors.Is(err, usecase.ErrValidationFailed):
		return fiber.StatusUnprocessableEntity, "The job description is too short. Send at least 100 characters."
	case errors.Is(err, payment.ErrInvalidReferenceFormat):
		return fiber.StatusBadRequest, "The UTR must be exactly 12 digits."
	case errors.Is(err, payment.ErrPaymentInitiationFailed):
		return fiber.StatusBadGateway, "Could not create the payment order. Try again shortly."
	case errors.Is(err, payment.ErrPaymentVerificationFailed):
		return fiber.StatusBadGateway, "Could not reach the payment service to verify. Send the UTR again shortly."
	case errors.Is(err, render.ErrRenderFailed):
		return fiber.StatusInternalServerError, "Payment confirmed but the PDF could not be generated. Send the UTR again or contact support."
	default:
		return fiber.StatusInternalServerError, "Something went wrong. Please try again."
	}
}

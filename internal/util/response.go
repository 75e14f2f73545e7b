package util

import (
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/fadilmartias/ats-resume-bot/internal/config"
	"github.com/fadilmartias/ats-resume-bot/internal/response"
	"github.com/gofiber/fiber/v2"
)

type SuccessResponseFormat struct {
	Code       int
	Message    string
	Data       any
	Pagination *response.Pagination
	Meta       any
}

type OrderedSuccessResponse struct {
	Success    bool                 `json:"success"`
	Message    string               `json:"message"`
	Meta       any                  `json:"meta,omitempty"`
	Pagination *response.Pagination `json:"pagination,omitempty"`
	Data       any                  `json:"data,omitempty"`
}

// ErrorResponseFormat describes a failed request. State and Expected are set
// when the input arrived at the wrong point of a bot session, so clients can
// tell the user what to send next.
type ErrorResponseFormat struct {
	Code       int
	Message    string
	State      string
	Expected   string
	DevMessage string
	Details    any
	Trace      string
}

type OrderedErrorResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	State      string `json:"state,omitempty"`
	Expected   string `json:"expected,omitempty"`
	DevMessage string `json:"dev_message,omitempty"`
	Details    any    `json:"details,omitempty"`
	Trace      string `json:"trace,omitempty"`
}

type FormError struct {
	Errors  map[string]string
	Message string
}

func (e *FormError) Error() string {
	return fmt.Sprintf("form error: %s", e.Message)
}

func NewFormError(message string, errors map[string]string) *FormError {
	return &FormError{
		Message: message,
		Errors:  errors,
	}
}

// SuccessResponse writes the success envelope; Code defaults to 200.
func SuccessResponse(c *fiber.Ctx, params SuccessResponseFormat) error {
	code := params.Code
	if code == 0 {
		code = fiber.StatusOK
	}
	return c.Status(code).JSON(OrderedSuccessResponse{
		Success:    true,
		Message:    params.Message,
		Data:       params.Data,
		Pagination: params.Pagination,
		Meta:       params.Meta,
	})
}

// ErrorResponse writes the error envelope; Code defaults to 500. Outside
// production the first error is echoed back with a stack trace.
func ErrorResponse(c *fiber.Ctx, params ErrorResponseFormat, errs ...error) error {
	out := OrderedErrorResponse{
		Success:  false,
		Message:  params.Message,
		State:    params.State,
		Expected: params.Expected,
		Details:  params.Details,
	}

	if !config.LoadAppConfig().IsProduction() {
		if len(errs) > 0 && errs[0] != nil {
			out.DevMessage = errs[0].Error()
			out.Trace = string(debug.Stack())
			if out.Details == nil {
				out.Details = devDetails(errs[0])
			}
		}
		if params.DevMessage != "" {
			out.DevMessage = params.DevMessage
		}
		if params.Trace != "" {
			out.Trace = params.Trace
		}
	}

	code := params.Code
	if code == 0 {
		code = fiber.StatusInternalServerError
	}
	return c.Status(code).JSON(out)
}

// devDetails keeps field errors readable; other errors marshal as their text.
func devDetails(err error) any {
	var fe *FormError
	if errors.As(err, &fe) {
		return fe.Errors
	}
	return err.Error()
}

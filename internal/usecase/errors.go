package usecase

import (
	"errors"
	"fmt"

	"github.com/fadilmartias/ats-resume-bot/internal/session"
)

var (
	ErrValidationFailed        = errors.New("validation failed")
	ErrSessionBusy             = errors.New("processing, please wait")
	ErrFileTooLarge            = errors.New("file too large")
	ErrUnexpectedInputForState = errors.New("unexpected input for current state")
	ErrRefundNotAllowed        = errors.New("refund not allowed")
)

// UnexpectedInputError names the input that arrived and what the session
// is waiting for instead.
type UnexpectedInputError struct {
	State session.State
	Input string
}

func (e *UnexpectedInputError) Error() string {
	return fmt.Sprintf("cannot accept %s while %s: expected %s", e.Input, e.State, e.State.ExpectedInput())
}

func (e *UnexpectedInputError) Unwrap() error {
	return ErrUnexpectedInputForState
}

func unexpected(s *session.Session, input string) error {
	return &UnexpectedInputError{State: s.State, Input: input}
}

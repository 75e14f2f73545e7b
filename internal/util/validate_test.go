package util

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Text string `json:"text" validate:"required,max=5"`
	Note string `json:"note,omitempty" validate:"max=3"`
}

func TestValidateStruct(t *testing.T) {
	require.NoError(t, ValidateStruct(sample{Text: "ok"}))

	err := ValidateStruct(sample{Note: "toolong"})
	var fe *FormError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, map[string]string{
		"text": "failed on required",
		"note": "failed on max=3",
	}, fe.Errors)
}

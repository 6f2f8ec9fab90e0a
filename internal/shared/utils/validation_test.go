package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/kursio/kursio/internal/shared/errors"
)

type signupForm struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Mode     string `json:"mode" validate:"omitempty,oneof=subscription payment"`
}

func TestValidateStruct_ReportsJSONFieldNames(t *testing.T) {
	err := ValidateStruct(signupForm{Email: "not-an-email", Password: "short", Mode: "gift"})

	require.Error(t, err)
	appErr := apperrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.ErrorTypeValidation, appErr.Type)
	assert.Contains(t, appErr.Details, "email must be a valid email address")
	assert.Contains(t, appErr.Details, "password must be at least 8 characters long")
	assert.Contains(t, appErr.Details, "mode must be one of [subscription payment]")
}

func TestValidateStruct_Valid(t *testing.T) {
	assert.NoError(t, ValidateStruct(signupForm{Email: "ania@example.pl", Password: "zaq12wsx!"}))
}

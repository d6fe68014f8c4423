package validation_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/listenupapp/yearlist-server/internal/errors"
	"github.com/listenupapp/yearlist-server/internal/validation"
)

type registerRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8,max=1024"`
	DisplayName string `json:"display_name" validate:"required"`
}

type boardRequest struct {
	Category string `json:"category" validate:"required,category"`
	Year     int    `json:"year" validate:"year"`
}

func TestValidator_ValidateSuccess(t *testing.T) {
	v := validation.New()

	assert.NoError(t, v.Validate(registerRequest{
		Email:       "test@example.com",
		Password:    "password123",
		DisplayName: "Test User",
	}))
	assert.NoError(t, v.Validate(boardRequest{Category: "french", Year: 2024}))
}

func TestValidator_ValidateErrors(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name      string
		req       any
		wantField string
	}{
		{
			name:      "missing required field",
			req:       registerRequest{Email: "test@example.com", Password: "password123"},
			wantField: "display_name",
		},
		{
			name:      "invalid email",
			req:       registerRequest{Email: "not-an-email", Password: "password123", DisplayName: "T"},
			wantField: "email",
		},
		{
			name:      "password too short",
			req:       registerRequest{Email: "test@example.com", Password: "short", DisplayName: "T"},
			wantField: "password",
		},
		{
			name:      "password too long",
			req:       registerRequest{Email: "test@example.com", Password: strings.Repeat("x", 1025), DisplayName: "T"},
			wantField: "password",
		},
		{
			name:      "unknown category",
			req:       boardRequest{Category: "jazz", Year: 2024},
			wantField: "category",
		},
		{
			name:      "year out of range",
			req:       boardRequest{Category: "french", Year: 24},
			wantField: "year",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, domainerrors.ErrValidation)

			var domainErr *domainerrors.Error
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, http.StatusBadRequest, domainErr.HTTPStatus())
			assert.Contains(t, domainErr.Message, tt.wantField)
			assert.Contains(t, domainErr.Details, tt.wantField)
		})
	}
}

func TestValidator_JSONFieldNames(t *testing.T) {
	v := validation.New()

	err := v.Validate(registerRequest{Password: "password123", DisplayName: "Test"})
	require.Error(t, err)

	assert.Contains(t, err.Error(), "email")
	assert.NotContains(t, err.Error(), "Email")
}

package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorsIs(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{"NotFound wraps ErrNotFound", NotFound("item", 3), ErrNotFound, true},
		{"ValidationFailed wraps ErrValidation", ValidationFailed("name", "Name is required"), ErrValidation, true},
		{"Conflict wraps ErrConflict", Conflict("category has items"), ErrConflict, true},
		{"Forbidden wraps ErrForbidden", Forbidden("not yours"), ErrForbidden, true},
		{"NotFound is not a validation error", NotFound("item", 3), ErrValidation, false},
		{"wrapped errors still match", fmt.Errorf("failed: %w", Forbidden("no")), ErrForbidden, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMatch, errors.Is(tt.err, tt.target))
		})
	}
}

func TestMessages(t *testing.T) {
	assert.Equal(t, "category 12 not found", NotFound("category", 12).Error())
	assert.Equal(t, "too long", ValidationFailed("name", "too long").Error())

	err := ValidationFailed("username", "taken")
	assert.Equal(t, "username", err.Field)

	var appErr *AppError
	assert.True(t, errors.As(fmt.Errorf("wrap: %w", err), &appErr))
	assert.Equal(t, "taken", appErr.Message)
}

package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidationError(t *testing.T) {
	err := NewValidationError("query", "must not be empty")

	assert.Equal(t, "validation error: query: must not be empty", err.Error())
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestRateLimitError(t *testing.T) {
	err := NewRateLimitError("arXiv", 3*time.Second)

	assert.Contains(t, err.Error(), "arXiv")
	assert.True(t, errors.Is(err, ErrRateLimited))
}

func TestExternalAPIError(t *testing.T) {
	t.Run("unwraps cause", func(t *testing.T) {
		cause := errors.New("connection reset")
		err := NewExternalAPIError("OpenAlex", 0, "request failed", cause)

		assert.True(t, errors.Is(err, cause))
		assert.Contains(t, err.Error(), "OpenAlex API error")
	})

	t.Run("maps status to sentinel", func(t *testing.T) {
		assert.True(t, errors.Is(NewExternalAPIError("CORE", 429, "slow down", nil), ErrRateLimited))
		assert.True(t, errors.Is(NewExternalAPIError("CORE", 503, "down", nil), ErrServiceUnavailable))
		assert.False(t, errors.Is(NewExternalAPIError("CORE", 400, "bad", nil), ErrServiceUnavailable))
	})

	t.Run("errors.As through wrapping", func(t *testing.T) {
		wrapped := fmt.Errorf("search: %w", NewExternalAPIError("PubMed", 500, "boom", nil))

		var apiErr *ExternalAPIError
		assert.True(t, errors.As(wrapped, &apiErr))
		assert.Equal(t, 500, apiErr.StatusCode)
	})
}

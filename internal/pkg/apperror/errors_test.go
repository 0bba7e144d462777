package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap_KeepsCauseAndStatus(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(cause, ErrCodeDatabaseError, "не удалось обновить бронирование")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, http.StatusInternalServerError, err.HTTPStatus)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestIs_MatchesSentinelThroughFmtWrap(t *testing.T) {
	err := fmt.Errorf("completion: %w", ErrAlreadyProcessed)

	assert.ErrorIs(t, err, ErrAlreadyProcessed)
	assert.True(t, IsConflict(err))
	assert.False(t, errors.Is(err, ErrInvalidTransition))
}

func TestCodeOf_UnknownErrorIsInternal(t *testing.T) {
	assert.Equal(t, ErrCodeInternal, CodeOf(errors.New("boom")))
	assert.Equal(t, ErrCodeValidation, CodeOf(ErrInvalidRating))
	assert.True(t, IsNotFound(ErrBookingNotFound))
	assert.True(t, IsForbidden(ErrForbidden))
	assert.True(t, IsValidation(ErrInvalidRating))
}

func TestNew_MapsCodesToHTTPStatus(t *testing.T) {
	cases := map[ErrorCode]int{
		ErrCodeNotFound:     http.StatusNotFound,
		ErrCodeUnauthorized: http.StatusUnauthorized,
		ErrCodeForbidden:    http.StatusForbidden,
		ErrCodeValidation:   http.StatusBadRequest,
		ErrCodeConflict:     http.StatusConflict,
		ErrCodeInternal:     http.StatusInternalServerError,
	}
	for code, status := range cases {
		assert.Equal(t, status, New(code, "x").HTTPStatus, code)
	}
}

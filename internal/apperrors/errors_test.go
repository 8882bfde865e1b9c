package apperrors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Leganyst/clinic-scheduling/internal/model"
)

func TestError_IsMatchesKind(t *testing.T) {
	err := fmt.Errorf("confirm booking: %w", CycleBlocked("consultation unpaid"))

	assert.ErrorIs(t, err, ErrCycleBlocked)
	assert.NotErrorIs(t, err, ErrConflictWarning)
	assert.Equal(t, KindCycleBlocked, KindOf(err))
}

func TestError_PersistenceIsRetryable(t *testing.T) {
	err := Persistence("create appointment", context.DeadlineExceeded)

	assert.True(t, IsRetryable(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, IsRetryable(NotFound("patient")))
	assert.False(t, IsRetryable(errors.New("plain")))
}

func TestConflictWarning_CarriesAppointment(t *testing.T) {
	appt := model.Appointment{StartMinute: 540, DurationMinutes: 30}
	err := ConflictWarning(appt)

	var e *Error
	assert.True(t, errors.As(err, &e))
	if assert.NotNil(t, e.Conflict) {
		assert.Equal(t, 540, e.Conflict.StartMinute)
	}
	assert.Contains(t, err.Error(), "CONFLICT_WARNING")
}

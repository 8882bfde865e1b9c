// Package apperrors defines the rejection kinds returned by the scheduling core.
package apperrors

import (
	"errors"
	"fmt"

	"github.com/Leganyst/clinic-scheduling/internal/model"
)

// Kind classifies a rejection so callers can decide to retry, prompt or abort.
type Kind string

const (
	// KindSlotUnavailable: the slot is outside the clinician's availability or in the past.
	KindSlotUnavailable Kind = "SLOT_UNAVAILABLE"
	// KindCycleBlocked: an unpaid consultation or package blocks the booking.
	KindCycleBlocked Kind = "CYCLE_BLOCKED"
	// KindDuplicateBillingRecord: an active record of the same kind already exists.
	KindDuplicateBillingRecord Kind = "DUPLICATE_BILLING_RECORD"
	// KindConflictWarning: the booking overlaps another one and needs an explicit override.
	KindConflictWarning Kind = "CONFLICT_WARNING"
	// KindPersistenceFailure: transient store error, safe to retry.
	KindPersistenceFailure Kind = "PERSISTENCE_FAILURE"
	KindNotFound           Kind = "NOT_FOUND"
	KindInvalidState       Kind = "INVALID_STATE"
)

// Sentinels for errors.Is.
var (
	ErrSlotUnavailable        = &Error{Kind: KindSlotUnavailable}
	ErrCycleBlocked           = &Error{Kind: KindCycleBlocked}
	ErrDuplicateBillingRecord = &Error{Kind: KindDuplicateBillingRecord}
	ErrConflictWarning        = &Error{Kind: KindConflictWarning}
	ErrPersistenceFailure     = &Error{Kind: KindPersistenceFailure}
	ErrNotFound               = &Error{Kind: KindNotFound}
	ErrInvalidState           = &Error{Kind: KindInvalidState}
)

// Error is a typed rejection.
type Error struct {
	Kind    Kind
	Message string
	// Conflict is set for KindConflictWarning.
	Conflict *model.Appointment
	Err      error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Kind so the package sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Retryable reports whether the failed operation may simply be retried.
func (e *Error) Retryable() bool {
	return e.Kind == KindPersistenceFailure
}

func SlotUnavailable(format string, args ...any) *Error {
	return &Error{Kind: KindSlotUnavailable, Message: fmt.Sprintf(format, args...)}
}

func CycleBlocked(format string, args ...any) *Error {
	return &Error{Kind: KindCycleBlocked, Message: fmt.Sprintf(format, args...)}
}

func DuplicateBillingRecord(kind model.BillingKind) *Error {
	return &Error{Kind: KindDuplicateBillingRecord, Message: fmt.Sprintf("active %s record already exists", kind)}
}

func ConflictWarning(with model.Appointment) *Error {
	return &Error{
		Kind:     KindConflictWarning,
		Message:  fmt.Sprintf("overlaps appointment %s", with.ID),
		Conflict: &with,
	}
}

func NotFound(what string) *Error {
	return &Error{Kind: KindNotFound, Message: what + " not found"}
}

func InvalidState(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidState, Message: fmt.Sprintf(format, args...)}
}

func Persistence(op string, err error) *Error {
	return &Error{Kind: KindPersistenceFailure, Message: op, Err: err}
}

// KindOf extracts the rejection kind, or "" for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsRetryable reports whether err is a retryable rejection.
func IsRetryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable()
}

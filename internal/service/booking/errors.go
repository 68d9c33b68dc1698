package booking

import (
	"errors"
	"strings"
)

// Kind classifies a booking failure for callers. The set is closed.
type Kind string

const (
	KindInvalidDateRange   Kind = "InvalidDateRange"
	KindPastCheckIn        Kind = "PastCheckIn"
	KindCapacityExceeded   Kind = "CapacityExceeded"
	KindRoomUnavailable    Kind = "RoomUnavailable"
	KindDateConflict       Kind = "DateConflict"
	KindRoomNotFound       Kind = "RoomNotFound"
	KindInvalidGuest       Kind = "InvalidGuest"
	KindBookingNotFound    Kind = "BookingNotFound"
	KindInvalidStatus      Kind = "InvalidStatus"
	KindBusy               Kind = "Busy"
	KindExhaustedRetries   Kind = "ExhaustedRetries"
	KindPersistenceFailure Kind = "PersistenceFailure"
	KindNotifyError        Kind = "NotifyError"
)

// Error is a booking failure of a known kind. Message is safe to show to guests;
// Err carries the internal cause and is never rendered.
type Error struct {
	Kind    Kind
	Message string
	Err     error
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

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrInvalidDateRange   = &Error{Kind: KindInvalidDateRange}
	ErrPastCheckIn        = &Error{Kind: KindPastCheckIn}
	ErrCapacityExceeded   = &Error{Kind: KindCapacityExceeded}
	ErrRoomUnavailable    = &Error{Kind: KindRoomUnavailable}
	ErrDateConflict       = &Error{Kind: KindDateConflict}
	ErrRoomNotFound       = &Error{Kind: KindRoomNotFound}
	ErrInvalidGuest       = &Error{Kind: KindInvalidGuest}
	ErrBookingNotFound    = &Error{Kind: KindBookingNotFound}
	ErrInvalidStatus      = &Error{Kind: KindInvalidStatus}
	ErrBusy               = &Error{Kind: KindBusy}
	ErrExhaustedRetries   = &Error{Kind: KindExhaustedRetries}
	ErrPersistenceFailure = &Error{Kind: KindPersistenceFailure}
	ErrNotifyError        = &Error{Kind: KindNotifyError}
)

func newError(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Err: cause}
}

// ValidationErrors holds every validation failure of one request, in check order.
type ValidationErrors []*Error

func (v ValidationErrors) Error() string {
	parts := make([]string, len(v))
	for i, e := range v {
		parts[i] = e.Error()
	}
	return strings.Join(parts, "; ")
}

func (v ValidationErrors) Unwrap() []error {
	out := make([]error, len(v))
	for i, e := range v {
		out[i] = e
	}
	return out
}

func (v ValidationErrors) err() error {
	switch len(v) {
	case 0:
		return nil
	case 1:
		return v[0]
	}
	return v
}

// Errors flattens err into the booking errors it carries, first failure first.
func Errors(err error) []*Error {
	var v ValidationErrors
	if errors.As(err, &v) {
		return v
	}

	var e *Error
	if errors.As(err, &e) {
		return []*Error{e}
	}

	return nil
}

// KindOf returns the kind of the first booking error in err's chain, or
// KindPersistenceFailure when err carries none.
func KindOf(err error) Kind {
	if errs := Errors(err); len(errs) > 0 {
		return errs[0].Kind
	}
	return KindPersistenceFailure
}

// IsValidation reports whether kind describes a request the caller can fix.
func (k Kind) IsValidation() bool {
	switch k {
	case KindInvalidDateRange, KindPastCheckIn, KindCapacityExceeded, KindRoomUnavailable, KindInvalidGuest, KindInvalidStatus:
		return true
	}
	return false
}

package broker

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind partitions broker rejections into the cases the engine reacts to
// differently. None of them are retried; they are terminal for the order
// attempt.
type ErrorKind string

const (
	KindInsufficientBalance ErrorKind = "insufficient_balance"
	KindInvalidTimeInForce  ErrorKind = "invalid_time_in_force"
	KindCostBasis           ErrorKind = "cost_basis"
	KindUnknown             ErrorKind = "unknown"
)

// Error is a broker-level order failure.
type Error struct {
	Kind ErrorKind
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("broker: %s: %s", e.Kind, e.Msg)
}

// NewError classifies an API failure message into an ErrorKind.
func NewError(msg string) *Error {
	lower := strings.ToLower(msg)
	kind := KindUnknown
	switch {
	case strings.Contains(lower, "insufficient balance"):
		kind = KindInsufficientBalance
	case strings.Contains(lower, "time_in_force"), strings.Contains(lower, "time in force"):
		kind = KindInvalidTimeInForce
	case strings.Contains(lower, "cost basis"):
		kind = KindCostBasis
	}
	return &Error{Kind: kind, Msg: msg}
}

// KindOf extracts the ErrorKind from any error chain; non-broker errors map
// to KindUnknown.
func KindOf(err error) ErrorKind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return KindUnknown
}

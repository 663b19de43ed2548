package errorsx

import (
	"errors"
	"fmt"
)

type reasoned struct {
	cause  error
	reason ReasonCode
}

func (r *reasoned) Error() string {
	return fmt.Sprintf("%s: %v", r.reason, r.cause)
}

func (r *reasoned) Unwrap() error {
	return r.cause
}

// Wrap attaches a reason code to err. A nil err stays nil, and an error
// that already carries a reason keeps its original one.
func Wrap(err error, reason ReasonCode) error {
	if err == nil {
		return nil
	}
	var existing *reasoned
	if errors.As(err, &existing) {
		return err
	}
	return &reasoned{cause: err, reason: reason}
}

// Reason returns the reason code carried by err, or ReasonUnknown.
func Reason(err error) ReasonCode {
	var r *reasoned
	if errors.As(err, &r) {
		return r.reason
	}
	return ReasonUnknown
}

// HasReason reports whether err carries the given reason code.
func HasReason(err error, reason ReasonCode) bool {
	return Reason(err) == reason
}

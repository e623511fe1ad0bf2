// Package ferrors defines the unified error taxonomy shared by every
// package in this module. Every fallible operation in wire, transport,
// flash, firmware and device returns a *ferrors.Err (or wraps one),
// so callers can switch on Kind instead of matching error strings.
package ferrors

import (
	"errors"
	"fmt"
)

// Kind classifies the origin and nature of a failure.
type Kind int

const (
	// Error is the catch-all kind, carrying a human-readable message.
	Error Kind = iota

	// ComNoResponse means a transport receive timed out.
	ComNoResponse

	// ComError means the physical transport failed (I/O error).
	ComError

	// ResultError means the device answered with a non-success result code.
	ResultError

	// MsgCorruption means a request/packet id mismatch, an echoed-data
	// mismatch, or an undecodable wire frame.
	MsgCorruption

	// NotSupported means the operation does not apply to this
	// transport or entry.
	NotSupported

	// FlashAddressInvalid means a flash section's start address is not
	// aligned to the flash's page size.
	FlashAddressInvalid

	// FlashSizeInvalid means a flash section's size is not a multiple of
	// the flash's page size.
	FlashSizeInvalid

	// FlashSizeTooBig means a flash section does not fit inside the flash
	// memory it is being added to.
	FlashSizeTooBig

	// FlashAreaAlreadyUsed means a flash section overlaps a previously
	// registered section.
	FlashAreaAlreadyUsed

	// FlashNameAlreadyUsed means a flash section name was already
	// registered.
	FlashNameAlreadyUsed
)

func (k Kind) String() string {
	switch k {
	case ComNoResponse:
		return "ComNoResponse"
	case ComError:
		return "ComError"
	case ResultError:
		return "ResultError"
	case MsgCorruption:
		return "MsgCorruption"
	case NotSupported:
		return "NotSupported"
	case FlashAddressInvalid:
		return "FlashAddressInvalid"
	case FlashSizeInvalid:
		return "FlashSizeInvalid"
	case FlashSizeTooBig:
		return "FlashSizeTooBig"
	case FlashAreaAlreadyUsed:
		return "FlashAreaAlreadyUsed"
	case FlashNameAlreadyUsed:
		return "FlashNameAlreadyUsed"
	default:
		return "Error"
	}
}

// Err is the concrete error type used throughout this module.
type Err struct {
	Kind  Kind
	Msg   string
	Cause error
}

func (e *Err) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	if e.Msg == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Err) Unwrap() error { return e.Cause }

// New builds an *Err of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Err {
	return &Err{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Err of the given kind, wrapping an underlying cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Err {
	return &Err{Kind: kind, Msg: fmt.Sprintf(format, args...), Cause: cause}
}

// Is reports whether err is a *Err of the given kind.
func Is(err error, kind Kind) bool {
	var e *Err
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

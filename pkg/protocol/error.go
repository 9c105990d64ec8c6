package protocol

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// Decode errors.
var (
	ErrNotObject     = errors.New("protocol: frame is not a JSON object")
	ErrMissingField  = errors.New("protocol: missing field")
	ErrUnexpectedKey = errors.New("protocol: unexpected field")
	ErrDuplicateKey  = errors.New("protocol: repeated field")
	ErrFieldType     = errors.New("protocol: field is not a string")
	ErrUnknownStatus = errors.New("protocol: unknown status")
	ErrTrailingData  = errors.New("protocol: trailing data after frame")
	ErrEmptyCommand  = errors.New("protocol: empty command")
)

// DecodeError reports a malformed or unrecognized status frame.
type DecodeError struct {
	// Raw is the payload as received, truncated on a rune boundary to at
	// most MaxErrorPayload bytes.
	Raw string

	// Field is the offending key, if the failure is specific to one.
	Field string

	// Err is the underlying cause.
	Err error
}

// MaxErrorPayload bounds how much of a bad payload a DecodeError retains.
const MaxErrorPayload = 256

// Error implements the error interface.
func (e *DecodeError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("protocol: decode %q: %v (%s)", e.Raw, e.Err, e.Field)
	}
	return fmt.Sprintf("protocol: decode %q: %v", e.Raw, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

func newDecodeError(raw []byte, field string, err error) *DecodeError {
	s := string(raw)
	if len(s) > MaxErrorPayload {
		n := MaxErrorPayload
		for n > 0 && !utf8.RuneStart(s[n]) {
			n--
		}
		s = s[:n] + "..."
	}
	return &DecodeError{Raw: s, Field: field, Err: err}
}

// IsDecodeError reports whether err is (or wraps) a *DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

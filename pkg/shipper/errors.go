package shipper

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a shipping failure.
type Kind string

const (
	// KindValidation means the caller's input did not satisfy the rate
	// request schema. No network call was made.
	KindValidation Kind = "validation"
	// KindAuth means the carrier access token could not be acquired.
	KindAuth Kind = "auth"
	// KindCarrier means the rating call failed or the carrier answered
	// with something that could not be mapped to quotes.
	KindCarrier Kind = "carrier"
)

// Error codes carried by Error.Code.
const (
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeAuthFailed     = "AUTH_FAILED"
	CodeCarrierError   = "CARRIER_ERROR"
)

// Issue describes one violation found by ValidateRateRequest.
type Issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error represents a failure from the rating pipeline.
type Error struct {
	Kind       Kind
	Carrier    string
	Code       string
	Message    string
	StatusCode int // 0 when no HTTP status is known
	Issues     []Issue
	Cause      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	prefix := string(e.Kind)
	if e.Carrier != "" {
		prefix = e.Carrier + " " + prefix
	}
	msg := fmt.Sprintf("%s error (%s): %s", prefix, e.Code, e.Message)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same kind. A target with
// a non-empty Code must also match the code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

// NewValidationError creates a validation failure listing every issue found.
func NewValidationError(issues []Issue) *Error {
	parts := make([]string, len(issues))
	for i, is := range issues {
		if is.Field == "" {
			parts[i] = is.Message
			continue
		}
		parts[i] = is.Field + ": " + is.Message
	}
	return &Error{
		Kind:    KindValidation,
		Code:    CodeInvalidRequest,
		Message: "invalid rate request: " + strings.Join(parts, "; "),
		Issues:  issues,
	}
}

// NewAuthError creates a token acquisition failure.
func NewAuthError(carrier, message string) *Error {
	return &Error{
		Kind:    KindAuth,
		Carrier: carrier,
		Code:    CodeAuthFailed,
		Message: message,
	}
}

// NewCarrierError creates a rating call failure.
func NewCarrierError(carrier, message string) *Error {
	return &Error{
		Kind:    KindCarrier,
		Carrier: carrier,
		Code:    CodeCarrierError,
		Message: message,
	}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(err error) *Error {
	e.Cause = err
	return e
}

// WithStatusCode adds an HTTP status code to the error.
func (e *Error) WithStatusCode(code int) *Error {
	e.StatusCode = code
	return e
}

// Sentinel errors. ErrValidation, ErrAuth and ErrCarrier match any *Error
// of their kind through errors.Is.
var (
	ErrValidation = &Error{Kind: KindValidation}
	ErrAuth       = &Error{Kind: KindAuth}
	ErrCarrier    = &Error{Kind: KindCarrier}

	// ErrCarrierNotFound indicates the requested carrier is not registered.
	ErrCarrierNotFound = errors.New("carrier not found")
)

// KindOf returns the kind of the first *Error in err's chain, or "" when
// err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKnown reports whether err already belongs to the taxonomy and must be
// passed through without re-wrapping.
func IsKnown(err error) bool {
	return KindOf(err) != ""
}

package apperrors

import (
	"errors"
	"net/http"
	"strings"
)

type Kind string

const (
	// KindValidation covers bad or missing request fields and bad JSON.
	KindValidation Kind = "validation"
	// KindDecode covers image payloads that cannot be turned into a raster.
	KindDecode Kind = "decode"
	// KindRecognition covers recognition backend failures.
	KindRecognition Kind = "recognition"
)

type Error struct {
	Kind Kind
	// SafeMessage is returned to clients as-is.
	SafeMessage string
	Cause       error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if msg := strings.TrimSpace(e.SafeMessage); msg != "" {
		return msg
	}
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return defaultSafeMessage(e.Kind)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func defaultSafeMessage(kind Kind) string {
	switch kind {
	case KindValidation:
		return "Invalid request."
	case KindDecode:
		return "Could not decode image."
	case KindRecognition:
		return "Text recognition failed."
	default:
		return "Request failed."
	}
}

func New(kind Kind, safeMessage string, cause error) error {
	return &Error{
		Kind:        kind,
		SafeMessage: strings.TrimSpace(safeMessage),
		Cause:       cause,
	}
}

func Validation(msg string) error {
	return New(KindValidation, msg, nil)
}

func Decode(msg string, cause error) error {
	return New(KindDecode, msg, cause)
}

func Recognition(msg string, cause error) error {
	return New(KindRecognition, msg, cause)
}

func KindOf(err error) (Kind, bool) {
	var e *Error
	if !errors.As(err, &e) {
		return "", false
	}
	return e.Kind, true
}

// HTTPStatus maps an error to the status code reported to clients.
func HTTPStatus(err error) int {
	kind, ok := KindOf(err)
	if !ok {
		return http.StatusInternalServerError
	}

	switch kind {
	case KindValidation, KindDecode:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message that is safe to show to a client.
func PublicMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if !errors.As(err, &e) {
		return defaultSafeMessage("")
	}
	if e.SafeMessage != "" {
		return e.SafeMessage
	}
	return defaultSafeMessage(e.Kind)
}

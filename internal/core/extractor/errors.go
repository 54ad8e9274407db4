package extractor

import (
	"errors"
	"net/http"
)

// ErrorCode classifies resolver and gateway failures
type ErrorCode string

// Error code constants
const (
	ErrInvalidInput     ErrorCode = "invalid_input"
	ErrNotFound         ErrorCode = "not_found"
	ErrExtractionFailed ErrorCode = "extraction_failed"
	ErrMalformedOutput  ErrorCode = "malformed_output"
)

// Error is returned by the resolver. Details carries raw diagnostic
// text (usually yt-dlp's stderr) that may be shown to the client.
type Error struct {
	Code    ErrorCode
	Message string
	Details string
	Err     error
}

func (e *Error) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the error code to a response status
func (e *Error) HTTPStatus() int {
	switch e.Code {
	case ErrInvalidInput:
		return http.StatusBadRequest
	case ErrNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// IsCode reports whether err is an *Error with the given code
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// DetailsOf returns the diagnostic text carried by err
func DetailsOf(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Details != "" {
			return e.Details
		}
		return e.Message
	}
	return err.Error()
}

package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeBadRequest         = "bad_request"
	ErrCodeUnauthenticated    = "unauthenticated"
	ErrCodeStorageUnavailable = "storage_unavailable"
	ErrCodeInternal           = "internal"
)

var (
	// ErrUnauthenticated is returned when the acting identity has no presence entry.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrStorageUnavailable wraps history store failures.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrBadRequest is returned for malformed commands.
	ErrBadRequest = errors.New("bad request")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}

// toCoreError maps an operation error onto its wire code.
func toCoreError(err error) *CoreError {
	var ce *CoreError
	switch {
	case errors.As(err, &ce):
		return ce
	case errors.Is(err, ErrUnauthenticated):
		return coreError(ErrCodeUnauthenticated, "join before sending")
	case errors.Is(err, ErrStorageUnavailable):
		return coreError(ErrCodeStorageUnavailable, "message could not be stored")
	case errors.Is(err, ErrBadRequest):
		return coreError(ErrCodeBadRequest, err.Error())
	default:
		return coreError(ErrCodeInternal, "internal error")
	}
}

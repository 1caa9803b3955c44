package source

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrContentAbsent reports a detail page that rendered without a stream.
	ErrContentAbsent = errors.New("stream content absent")
	// ErrUnexpectedStatus matches every StatusError.
	ErrUnexpectedStatus = errors.New("unexpected http status")
)

// StatusError captures a non-success HTTP response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Is lets errors.Is match ErrUnexpectedStatus.
func (e *StatusError) Is(target error) bool {
	return target == ErrUnexpectedStatus
}

// Transient reports whether the status is worth retrying.
func (e *StatusError) Transient() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

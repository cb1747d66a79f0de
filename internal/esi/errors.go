package esi

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrMissingCredentials means the SSO client id, secret or refresh token is
// not configured. Not retryable; the next cycle surfaces it again until the
// operator fixes the environment.
var ErrMissingCredentials = errors.New("esi: missing SSO credentials or refresh token")

// StatusError is any non-2xx upstream response that survived the retry
// policies. Callers use the Is* helpers to pick their branch of the error
// taxonomy instead of matching status codes themselves.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("esi: %s returned HTTP %d", e.URL, e.StatusCode)
}

func IsAuth(err error) bool {
	if errors.Is(err, ErrMissingCredentials) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusUnauthorized || se.StatusCode == http.StatusForbidden
	}
	return false
}

func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

func IsRateLimited(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusTooManyRequests
}

func asStatusError(err error) (*StatusError, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

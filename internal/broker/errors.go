package broker

import (
	"errors"
	"fmt"
)

// APIError is a non-2xx response from the broker after retry handling.
// StatusCode carries the status callers should branch on; it is stable
// across retries of the same failure.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("broker: api error %d: %s", e.StatusCode, e.Message)
}

// IsStatus reports whether err is an *APIError with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

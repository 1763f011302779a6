package llm

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the model caller. Callers match them with errors.Is.
var (
	ErrConfiguration      = errors.New("model API key is not configured")
	ErrTimeout            = errors.New("model request timed out")
	ErrServiceUnavailable = errors.New("model service unavailable after retries")
	ErrBadRequest         = errors.New("model request rejected")
)

// HTTPError is a non-2xx response other than 429. It matches ErrBadRequest.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("model http %d: %s", e.StatusCode, e.Body)
}

func (e *HTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

func (e *HTTPError) Is(target error) bool { return target == ErrBadRequest }

// Kind names an error for metrics and logs.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrServiceUnavailable):
		return "unavailable"
	case errors.Is(err, ErrBadRequest):
		return "bad_request"
	default:
		return "error"
	}
}

package bridge

import (
	"errors"
	"fmt"
)

// ErrBreakerOpen is returned without touching the network while the
// circuit breaker is open.
var ErrBreakerOpen = errors.New("bridge circuit breaker open")

// TransportError wraps any transport-level failure talking to the bridge:
// unreachable host, timeout, non-2xx status, malformed payload. Callers
// retry on it; it is never swallowed.
type TransportError struct {
	Op     string
	Status int
	Body   string
	Err    error
}

func (e *TransportError) Error() string {
	switch {
	case e.Status != 0 && e.Body != "":
		return fmt.Sprintf("bridge %s: status %d: %s", e.Op, e.Status, e.Body)
	case e.Status != 0:
		return fmt.Sprintf("bridge %s: status %d", e.Op, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("bridge %s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("bridge %s failed", e.Op)
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransport reports whether err is a bridge transport failure.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

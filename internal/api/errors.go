// Package api provides the HTTP client for the remote workout service:
// request construction from typed mutations, bearer authentication, and
// classification of failures into connectivity and application errors.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrUnavailable is the sentinel for connectivity-classified failures:
// transport errors, timeouts, and gateway-unreachable responses. The
// sync engine aborts its drain and reports offline when it sees one.
var ErrUnavailable = errors.New("api: service unavailable")

// Error is an application-level rejection from the remote service. The
// Message is the service's human-readable error field, recorded as the
// outbox entry's lastError.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api: HTTP %d: %s", e.StatusCode, e.Message)
	}

	return fmt.Sprintf("api: HTTP %d", e.StatusCode)
}

// IsConnectivity reports whether err is connectivity-classified: the
// request never completed (network error, timeout, canceled deadline) or
// the service was unreachable behind a gateway. A network timeout is
// always connectivity, never application-level.
func IsConnectivity(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrUnavailable) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return false
}

// isGatewayStatus reports whether the status code means the service
// itself was unreachable rather than rejecting the request.
func isGatewayStatus(code int) bool {
	switch code {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

package errors

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"syscall"
)

// MapNetworkError maps connection level failures to a transport GatewayError.
func MapNetworkError(err error) *GatewayError {
	return Transport(err, isTimeout(err))
}

// IsNetworkError reports whether err looks like a connection level failure.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	switch {
	case errors.As(err, &netErr),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, io.EOF),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.EPIPE):
		return true
	}
	msg := err.Error()
	for _, marker := range []string{"connection reset", "connection refused", "broken pipe", "no such host", "timeout", "EOF", "tls:"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded")
}

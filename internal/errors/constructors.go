package errors

import (
	"fmt"
	"time"
)

// InvalidRequest reports a malformed or unsupported request shape.
func InvalidRequest(format string, args ...any) *GatewayError {
	return &GatewayError{Kind: KindInvalidRequest, Message: fmt.Sprintf(format, args...)}
}

// ModelNotFound reports a model identifier the gateway cannot resolve.
func ModelNotFound(model string) *GatewayError {
	return &GatewayError{
		Kind:    KindInvalidRequest,
		Code:    "model_not_found",
		Param:   "model",
		Message: fmt.Sprintf("The model `%s` does not exist or you do not have access to it.", model),
	}
}

// UnsupportedRole reports a message role the upstream cannot represent.
func UnsupportedRole(role string, index int) *GatewayError {
	return &GatewayError{
		Kind:    KindUnsupportedRole,
		Param:   fmt.Sprintf("messages[%d].role", index),
		Message: fmt.Sprintf("unsupported message role %q", role),
	}
}

// InvalidParameter reports a parameter rejected during mapping.
func InvalidParameter(param, format string, args ...any) *GatewayError {
	return &GatewayError{Kind: KindInvalidParameter, Param: param, Message: fmt.Sprintf(format, args...)}
}

// CredentialUnavailable reports that no upstream credential could be obtained.
func CredentialUnavailable(cause error) *GatewayError {
	return &GatewayError{
		Kind:    KindCredentialUnavailable,
		Message: "upstream credential is unavailable",
		Cause:   cause,
	}
}

// RateLimited reports an upstream throttle signal.
func RateLimited(message string, retryAfter time.Duration) *GatewayError {
	if message == "" {
		message = "upstream rate limit exceeded, retry later"
	}
	return &GatewayError{Kind: KindUpstreamRateLimited, Message: message, RetryAfter: retryAfter, UpstreamStatus: 429}
}

// Transport reports a connection level failure before any content was sent.
func Transport(cause error, timeout bool) *GatewayError {
	msg := "upstream connection failed"
	if timeout {
		msg = "upstream did not respond in time"
	}
	return &GatewayError{Kind: KindUpstreamTransport, Message: msg, Timeout: timeout, Cause: cause}
}

// MidStream reports a failure after part of the response already reached the client.
func MidStream(cause error) *GatewayError {
	return &GatewayError{
		Kind:    KindUpstreamMidStream,
		Message: "upstream stream terminated before completion",
		Cause:   cause,
	}
}

// Protocol reports an upstream reply that does not match the expected schema.
func Protocol(format string, args ...any) *GatewayError {
	return &GatewayError{Kind: KindUpstreamProtocol, Message: fmt.Sprintf(format, args...)}
}

// Internal wraps an unexpected failure.
func Internal(cause error) *GatewayError {
	return &GatewayError{Kind: KindInternal, Message: "internal gateway error", Cause: cause}
}

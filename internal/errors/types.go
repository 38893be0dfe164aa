package errors

import (
	"fmt"
	"net/http"
	"time"
)

// Kind enumerates every failure the gateway can surface to a client.
type Kind int

const (
	KindInternal Kind = iota
	KindInvalidRequest
	KindUnsupportedRole
	KindInvalidParameter
	KindCredentialUnavailable
	KindUpstreamRateLimited
	KindUpstreamTransport
	KindUpstreamMidStream
	KindUpstreamProtocol
)

type kindInfo struct {
	name   string
	status int
	typ    string
	code   string
}

// kindTable is the single source of truth for status, type and code per kind.
// Every Kind constant must have an entry; kindInfoFor falls back to KindInternal otherwise.
var kindTable = map[Kind]kindInfo{
	KindInternal:              {"internal", http.StatusInternalServerError, "server_error", "internal_error"},
	KindInvalidRequest:        {"invalid_request", http.StatusBadRequest, "invalid_request_error", "invalid_request"},
	KindUnsupportedRole:       {"unsupported_role", http.StatusBadRequest, "invalid_request_error", "unsupported_role"},
	KindInvalidParameter:      {"invalid_parameter", http.StatusBadRequest, "invalid_request_error", "invalid_parameter"},
	KindCredentialUnavailable: {"credential_unavailable", http.StatusUnauthorized, "authentication_error", "credential_unavailable"},
	KindUpstreamRateLimited:   {"upstream_rate_limited", http.StatusTooManyRequests, "rate_limit_error", "rate_limited"},
	KindUpstreamTransport:     {"upstream_transport", http.StatusBadGateway, "api_error", "upstream_unavailable"},
	KindUpstreamMidStream:     {"upstream_mid_stream", http.StatusBadGateway, "api_error", "stream_interrupted"},
	KindUpstreamProtocol:      {"upstream_protocol", http.StatusBadGateway, "api_error", "upstream_protocol_error"},
}

func kindInfoFor(k Kind) kindInfo {
	if info, ok := kindTable[k]; ok {
		return info
	}
	return kindTable[KindInternal]
}

// Kinds lists every declared kind.
func Kinds() []Kind {
	return []Kind{
		KindInternal, KindInvalidRequest, KindUnsupportedRole, KindInvalidParameter,
		KindCredentialUnavailable, KindUpstreamRateLimited, KindUpstreamTransport,
		KindUpstreamMidStream, KindUpstreamProtocol,
	}
}

func (k Kind) String() string { return kindInfoFor(k).name }

// GatewayError is the only error shape that leaves the dispatcher.
type GatewayError struct {
	Kind    Kind
	Message string
	// Code overrides the kind's default code (for example model_not_found).
	Code  string
	Param string
	// UpstreamStatus is the HTTP status the upstream answered with, when there was one.
	UpstreamStatus int
	// Timeout marks transport failures caused by a deadline; they are answered with 504.
	Timeout    bool
	RetryAfter time.Duration
	Cause      error
}

func (e *GatewayError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *GatewayError) Unwrap() error { return e.Cause }

// HTTPStatus returns the status code the client receives.
func (e *GatewayError) HTTPStatus() int {
	if e.Kind == KindUpstreamTransport && e.Timeout {
		return http.StatusGatewayTimeout
	}
	return kindInfoFor(e.Kind).status
}

// Type returns the OpenAI error type.
func (e *GatewayError) Type() string { return kindInfoFor(e.Kind).typ }

// ErrorCode returns the OpenAI error code.
func (e *GatewayError) ErrorCode() string {
	if e.Code != "" {
		return e.Code
	}
	if e.Kind == KindUpstreamTransport && e.Timeout {
		return "upstream_timeout"
	}
	return kindInfoFor(e.Kind).code
}

// Retryable reports whether the dispatcher may retry the failed call once.
func (e *GatewayError) Retryable() bool {
	return e != nil && e.Kind == KindUpstreamTransport && !e.ClientAborted()
}

// ClientAborted reports a failure caused by the client cancelling or disconnecting.
func (e *GatewayError) ClientAborted() bool {
	return e != nil && (e.Code == codeRequestCanceled || e.Code == codeClientGone)
}

// OpenAIError mirrors OpenAI's error envelope.
type OpenAIError struct {
	Error OpenAIErrorBody `json:"error"`
}

type OpenAIErrorBody struct {
	Message string  `json:"message"`
	Type    string  `json:"type"`
	Code    string  `json:"code"`
	Param   *string `json:"param"`
}

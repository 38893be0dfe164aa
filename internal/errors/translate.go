package errors

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
)

// ErrClientGone marks a failed write to the downstream client.
var ErrClientGone = errors.New("client went away")

const (
	codeRequestCanceled = "request_canceled"
	codeClientGone      = "client_gone"
)

// Translate converts any internal failure into a GatewayError. It is total:
// errors that match no known shape become KindInternal.
func Translate(err error) *GatewayError {
	if err == nil {
		return nil
	}
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge
	}
	var statusErr *UpstreamStatusError
	if errors.As(err, &statusErr) {
		ge := MapHTTPError(statusErr.Status, statusErr.Body, statusErr.RetryAfter)
		ge.Cause = err
		return ge
	}
	// Checked before the network mapping: a broken client socket is not an upstream failure.
	if errors.Is(err, ErrClientGone) {
		return &GatewayError{Kind: KindUpstreamTransport, Message: "client went away", Code: codeClientGone, Cause: err}
	}
	if errors.Is(err, context.Canceled) {
		return &GatewayError{Kind: KindUpstreamTransport, Message: "request canceled", Code: codeRequestCanceled, Cause: err}
	}
	if IsNetworkError(err) {
		return MapNetworkError(err)
	}
	return Internal(err)
}

// Envelope renders the OpenAI error envelope.
func (e *GatewayError) Envelope() OpenAIError {
	out := OpenAIError{Error: OpenAIErrorBody{
		Message: e.Message,
		Type:    e.Type(),
		Code:    e.ErrorCode(),
	}}
	if e.Param != "" {
		p := e.Param
		out.Error.Param = &p
	}
	return out
}

// ToJSON serializes the OpenAI error envelope.
func (e *GatewayError) ToJSON() ([]byte, error) {
	return json.Marshal(e.Envelope())
}

// RetryAfterHeader returns the Retry-After header value in whole seconds, or "".
func (e *GatewayError) RetryAfterHeader() string {
	if e == nil || e.RetryAfter <= 0 {
		return ""
	}
	secs := int(e.RetryAfter.Seconds())
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

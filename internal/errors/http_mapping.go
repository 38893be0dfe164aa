package errors

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"ocigenai-gateway/internal/constants"
)

// UpstreamStatusError is returned by upstream clients for non-2xx replies.
type UpstreamStatusError struct {
	Status     int
	Body       []byte
	RetryAfter time.Duration
}

func (e *UpstreamStatusError) Error() string {
	return fmt.Sprintf("upstream returned status %d", e.Status)
}

// MapHTTPError maps an upstream HTTP status to a GatewayError.
// The upstream body is mined for a message but never echoed verbatim.
func MapHTTPError(status int, body []byte, retryAfter time.Duration) *GatewayError {
	msg := upstreamMessage(body)
	var ge *GatewayError
	switch {
	case status == http.StatusTooManyRequests:
		ge = RateLimited(msg, retryAfter)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		ge = CredentialUnavailable(fmt.Errorf("upstream rejected credential with status %d", status))
	case status == http.StatusNotFound:
		ge = InvalidRequest("upstream resource not found: %s", firstNonEmpty(msg, "model or endpoint does not exist"))
		ge.Code = "model_not_found"
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity || status == http.StatusRequestEntityTooLarge:
		ge = InvalidRequest("upstream rejected the request: %s", firstNonEmpty(msg, http.StatusText(status)))
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		ge = Transport(fmt.Errorf("upstream status %d", status), true)
	case status >= 500:
		ge = Transport(fmt.Errorf("upstream status %d", status), false)
	default:
		ge = Protocol("unexpected upstream status %d", status)
	}
	ge.UpstreamStatus = status
	return ge
}

// upstreamMessage extracts the human readable part of an OCI error body ({"code":..,"message":..}).
func upstreamMessage(body []byte) string {
	if len(body) == 0 || !gjson.ValidBytes(body) {
		return ""
	}
	msg := strings.TrimSpace(gjson.GetBytes(body, "message").String())
	if msg == "" {
		msg = strings.TrimSpace(gjson.GetBytes(body, "error.message").String())
	}
	if len(msg) > constants.MaxErrorMessageLength {
		msg = msg[:constants.MaxErrorMessageLength] + "..."
	}
	return msg
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

package logging

// ContextKeyGatewayErrorKind holds the gateway error kind of a failed request, set by
// the handler that wrote the error response.
const ContextKeyGatewayErrorKind = "gateway_error_kind"

// ErrorKind normalizes the status the gateway answered with into a short label for
// logs. It says nothing about where the failure came from; the gateway error kind does.
func ErrorKind(status int, hasErr bool) string {
	if hasErr && status == 0 {
		return "network_error"
	}
	switch {
	case status == 429:
		return "rate_limited"
	case status == 401, status == 403:
		return "auth"
	case status == 504:
		return "timeout"
	case status >= 500 && status < 600:
		return "server_error"
	case status >= 400 && status < 500:
		return "client_error"
	}
	if hasErr {
		return "error"
	}
	return "ok"
}

package upstream

import "context"

type ctxKey int

const ctxRequestID ctxKey = iota

// RequestIDHeader carries the gateway request id to OCI for cross-service tracing.
const RequestIDHeader = "opc-request-id"

// WithRequestID attaches the gateway request id to ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxRequestID, id)
}

// RequestID returns the id stored by WithRequestID, or "".
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(ctxRequestID).(string)
	return id
}

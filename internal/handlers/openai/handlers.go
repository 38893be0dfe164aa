// Package openai serves the OpenAI-compatible surface of the gateway.
package openai

import (
	"ocigenai-gateway/internal/gateway"
)

// ClampedParamsHeader lists the sampling parameters that were fitted into the upstream range.
const ClampedParamsHeader = "X-Gateway-Clamped-Params"

// Handler aggregates shared dependencies for OpenAI-compatible endpoints.
type Handler struct {
	dispatcher *gateway.Dispatcher
}

// New constructs the OpenAI-compatible handler set.
func New(d *gateway.Dispatcher) *Handler {
	return &Handler{dispatcher: d}
}

// Other route handlers live in split files:
// - openai_chat.go: ChatCompletions
// - openai_models.go: ListModels/GetModel
// - chat_request.go: request decoding

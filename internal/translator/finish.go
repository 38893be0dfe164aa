package translator

import (
	"strings"

	"ocigenai-gateway/internal/models"
)

// finishReasons is the full upstream to OpenAI finish-reason table, keyed by lower-cased upstream value.
// Values missing from it fall back to "stop" and keep the upstream value.
var finishReasons = map[string]string{
	"":               models.FinishStop,
	"stop":           models.FinishStop,
	"complete":       models.FinishStop,
	"end_turn":       models.FinishStop,
	"stop_sequence":  models.FinishStop,
	"eos":            models.FinishStop,
	"length":         models.FinishLength,
	"max_tokens":     models.FinishLength,
	"error_limit":    models.FinishLength,
	"content_filter": models.FinishContentFilter,
	"error_toxic":    models.FinishContentFilter,
	"safety":         models.FinishContentFilter,
	"tool_calls":     models.FinishToolCalls,
	"tool_call":      models.FinishToolCalls,
	"function_call":  models.FinishToolCalls,
}

// MapFinishReason returns the OpenAI finish reason for raw. original is non-empty only when
// raw had no mapping and the caller must surface it in x_oci_finish_reason.
func MapFinishReason(raw string) (reason, original string) {
	if r, ok := finishReasons[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return r, ""
	}
	return models.FinishStop, raw
}

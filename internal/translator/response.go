package translator

import (
	"strings"

	apperrors "ocigenai-gateway/internal/errors"
	"ocigenai-gateway/internal/models"
)

// OpenAI object names.
const (
	ObjectChatCompletion      = "chat.completion"
	ObjectChatCompletionChunk = "chat.completion.chunk"
)

// FromUpstream converts an OCI chat reply into an OpenAI ChatResponse.
func FromUpstream(resp *models.UpstreamResponse, meta ResponseMeta) (*models.ChatResponse, error) {
	if resp == nil || resp.ChatResponse == nil {
		return nil, apperrors.Protocol("upstream reply has no chatResponse")
	}
	cr := resp.ChatResponse
	out := &models.ChatResponse{
		ID:      meta.ID,
		Object:  ObjectChatCompletion,
		Created: meta.Created,
		Model:   meta.Model,
		Usage:   UsageFrom(cr.Usage),
	}

	if cr.APIFormat == models.APIFormatCohere || (len(cr.Choices) == 0 && (cr.Text != "" || cr.FinishReason != "")) {
		out.Choices = []models.Choice{cohereChoice(cr)}
		return out, nil
	}
	if len(cr.Choices) == 0 {
		return nil, apperrors.Protocol("upstream reply has no choices")
	}
	for i, c := range cr.Choices {
		out.Choices = append(out.Choices, genericChoice(i, c))
	}
	return out, nil
}

func genericChoice(index int, c models.OCIChoice) models.Choice {
	reason, original := MapFinishReason(c.FinishReason)
	msg := models.ResponseMessage{Role: DownstreamRole(c.Message.Role)}
	text := joinText(c.Message.Content)
	if len(c.Message.ToolCalls) > 0 {
		msg.ToolCalls = ToolCallsFrom(c.Message.ToolCalls)
		if text != "" {
			msg.Content = &text
		}
	} else {
		msg.Content = &text
	}
	return models.Choice{
		Index:           index,
		Message:         msg,
		FinishReason:    reason,
		OCIFinishReason: original,
	}
}

func cohereChoice(cr *models.OCIChatResponse) models.Choice {
	reason, original := MapFinishReason(cr.FinishReason)
	text := cr.Text
	msg := models.ResponseMessage{Role: models.RoleAssistant, Content: &text}
	if len(cr.ToolCalls) > 0 {
		msg.ToolCalls = ToolCallsFrom(cr.ToolCalls)
	}
	return models.Choice{Message: msg, FinishReason: reason, OCIFinishReason: original}
}

func joinText(parts []models.OCIContent) string {
	var sb strings.Builder
	for _, p := range parts {
		if p.Type == "" || p.Type == ociContentText {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

// ToolCallsFrom converts OCI tool calls to the OpenAI shape, numbering them in order.
func ToolCallsFrom(calls []models.OCIToolCall) []models.ToolCall {
	out := make([]models.ToolCall, 0, len(calls))
	for _, c := range calls {
		out = append(out, models.ToolCall{
			ID:       c.ID,
			Type:     "function",
			Function: models.FunctionCall{Name: c.Name, Arguments: c.Arguments},
		})
	}
	return out
}

// UsageFrom converts upstream usage; missing counts are reported as zero.
func UsageFrom(u *models.OCIUsage) models.Usage {
	if u == nil {
		return models.Usage{}
	}
	out := models.Usage{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
	}
	if out.TotalTokens == 0 {
		out.TotalTokens = out.PromptTokens + out.CompletionTokens
	}
	return out
}

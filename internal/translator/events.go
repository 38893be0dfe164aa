package translator

import (
	"github.com/tidwall/gjson"

	apperrors "ocigenai-gateway/internal/errors"
	"ocigenai-gateway/internal/models"
)

// ParseStreamEvent decodes the data of one OCI stream event.
//
// GENERIC events carry message.content[].text and message.toolCalls; COHERE events carry text.
// A finishReason marks the event terminal. The terminal COHERE event repeats the whole reply
// in text, so its text is dropped. Usage may arrive on any event or on its own.
func ParseStreamEvent(data []byte) (models.UpstreamEvent, error) {
	if !gjson.ValidBytes(data) {
		return models.UpstreamEvent{}, apperrors.Protocol("malformed upstream stream event")
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return models.UpstreamEvent{}, apperrors.Protocol("upstream stream event is not an object")
	}

	var ev models.UpstreamEvent
	if fr := root.Get("finishReason"); fr.Exists() && fr.Type != gjson.Null {
		ev.Terminal = true
		ev.FinishReason = fr.String()
	}

	if msg := root.Get("message"); msg.IsObject() {
		msg.Get("content").ForEach(func(_, part gjson.Result) bool {
			if t := part.Get("type").String(); t == "" || t == ociContentText {
				ev.Text += part.Get("text").String()
			}
			return true
		})
		ev.ToolCalls = parseToolCalls(msg.Get("toolCalls"))
	} else if text := root.Get("text"); text.Exists() && !ev.Terminal {
		ev.Text = text.String()
	}
	if len(ev.ToolCalls) == 0 {
		ev.ToolCalls = parseToolCalls(root.Get("toolCalls"))
	}

	if u := root.Get("usage"); u.IsObject() {
		ev.Usage = &models.OCIUsage{
			PromptTokens:     int(u.Get("promptTokens").Int()),
			CompletionTokens: int(u.Get("completionTokens").Int()),
			TotalTokens:      int(u.Get("totalTokens").Int()),
		}
	}
	return ev, nil
}

func parseToolCalls(v gjson.Result) []models.OCIToolCall {
	if !v.IsArray() {
		return nil
	}
	var out []models.OCIToolCall
	v.ForEach(func(_, tc gjson.Result) bool {
		out = append(out, models.OCIToolCall{
			ID:        tc.Get("id").String(),
			Type:      tc.Get("type").String(),
			Name:      tc.Get("name").String(),
			Arguments: tc.Get("arguments").String(),
		})
		return true
	})
	return out
}

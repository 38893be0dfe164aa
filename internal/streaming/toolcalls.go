package streaming

import "ocigenai-gateway/internal/models"

// toolCallIndex assigns stable OpenAI indexes to tool calls streamed as fragments.
// Only the first fragment of a call carries its id, type and name downstream.
type toolCallIndex struct {
	byID map[string]int
	last int
	next int
}

func newToolCallIndex() *toolCallIndex {
	return &toolCallIndex{byID: make(map[string]int), last: -1}
}

func (t *toolCallIndex) deltas(calls []models.OCIToolCall) []models.ToolCall {
	out := make([]models.ToolCall, 0, len(calls))
	for _, c := range calls {
		idx, seen := t.byID[c.ID]
		if c.ID == "" && t.last >= 0 {
			idx, seen = t.last, true
		}
		if !seen {
			idx = t.next
			t.next++
			if c.ID != "" {
				t.byID[c.ID] = idx
			}
		}
		t.last = idx

		i := idx
		d := models.ToolCall{Index: &i, Function: models.FunctionCall{Arguments: c.Arguments}}
		if !seen {
			d.ID = c.ID
			d.Type = "function"
			d.Function.Name = c.Name
		}
		out = append(out, d)
	}
	return out
}

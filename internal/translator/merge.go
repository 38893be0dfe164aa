package translator

import "ocigenai-gateway/internal/models"

// MergeChoices combines the replies of n identical upstream calls into one response.
// Choices are re-indexed in call order. Prompt tokens are counted once; completion tokens add up.
func MergeChoices(parts []*models.ChatResponse) *models.ChatResponse {
	if len(parts) == 0 {
		return nil
	}
	merged := *parts[0]
	merged.Choices = nil
	merged.Usage = models.Usage{PromptTokens: parts[0].Usage.PromptTokens}
	for _, p := range parts {
		for _, c := range p.Choices {
			c.Index = len(merged.Choices)
			merged.Choices = append(merged.Choices, c)
		}
		merged.Usage.CompletionTokens += p.Usage.CompletionTokens
	}
	merged.Usage.TotalTokens = merged.Usage.PromptTokens + merged.Usage.CompletionTokens
	return &merged
}

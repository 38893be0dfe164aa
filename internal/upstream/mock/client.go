// Package mock is an in-process stand-in for OCI Generative AI used by local runs and
// tests. It echoes the last user message back in the upstream wire format.
package mock

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/tidwall/sjson"
	"golang.org/x/oauth2"

	apperrors "ocigenai-gateway/internal/errors"
	"ocigenai-gateway/internal/models"
	"ocigenai-gateway/internal/upstream"
)

// Prompts that trigger scripted failures.
const (
	PromptRateLimit = "__mock_rate_limit__"
	PromptDrop      = "__mock_drop__"
	PromptUnauth    = "__mock_unauthorized__"
)

// Client implements upstream.Client without network access.
type Client struct {
	// FragmentDelay spaces stream events apart.
	FragmentDelay time.Duration
}

var _ upstream.Client = (*Client)(nil)

func New() *Client { return &Client{} }

func (c *Client) Chat(ctx context.Context, req *models.UpstreamRequest, _ *oauth2.Token) (*models.UpstreamResponse, error) {
	prompt := lastUserText(req)
	if err := scriptedError(prompt); err != nil {
		return nil, err
	}
	if strings.Contains(prompt, PromptDrop) {
		return nil, io.ErrUnexpectedEOF
	}
	reply := "echo: " + prompt
	usage := usageFor(prompt, reply)

	var raw []byte
	var err error
	if req.ChatRequest.APIFormat == models.APIFormatCohere {
		raw, err = cohereReply(req, reply, usage)
	} else {
		raw, err = genericReply(req, reply, usage)
	}
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	var out models.UpstreamResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, apperrors.Protocol("decode mock reply: %v", err)
	}
	return &out, nil
}

func (c *Client) OpenStream(ctx context.Context, req *models.UpstreamRequest, _ *oauth2.Token) (upstream.Stream, error) {
	prompt := lastUserText(req)
	if err := scriptedError(prompt); err != nil {
		return nil, err
	}
	reply := "echo: " + prompt
	drop := strings.Contains(prompt, PromptDrop)
	includeUsage := req.ChatRequest.StreamOptions != nil && req.ChatRequest.StreamOptions.IsIncludeUsage
	cohere := req.ChatRequest.APIFormat == models.APIFormatCohere

	pr, pw := io.Pipe()
	go func() {
		write := func(event []byte) bool {
			if c.FragmentDelay > 0 {
				select {
				case <-time.After(c.FragmentDelay):
				case <-ctx.Done():
					return false
				}
			}
			_, err := pw.Write(append(append([]byte("data: "), event...), '\n', '\n'))
			return err == nil
		}
		for i, frag := range fragments(reply) {
			if !write(textEvent(frag, cohere)) {
				return
			}
			if drop && i == 0 {
				_ = pw.CloseWithError(io.ErrUnexpectedEOF)
				return
			}
		}
		final, _ := sjson.SetBytes([]byte(`{}`), "finishReason", finishReason(cohere))
		if cohere {
			final, _ = sjson.SetBytes(final, "text", reply)
		}
		if !write(final) {
			return
		}
		if includeUsage {
			u := usageFor(prompt, reply)
			ev, _ := sjson.SetBytes([]byte(`{}`), "usage", map[string]int{
				"promptTokens":     u.PromptTokens,
				"completionTokens": u.CompletionTokens,
				"totalTokens":      u.TotalTokens,
			})
			if !write(ev) {
				return
			}
		}
		_ = pw.Close()
	}()
	return upstream.NewEventStream(pr), nil
}

func scriptedError(prompt string) error {
	switch {
	case strings.Contains(prompt, PromptRateLimit):
		return &apperrors.UpstreamStatusError{
			Status:     429,
			Body:       []byte(`{"code":"TooManyRequests","message":"mock rate limit"}`),
			RetryAfter: time.Second,
		}
	case strings.Contains(prompt, PromptUnauth):
		return &apperrors.UpstreamStatusError{Status: 401, Body: []byte(`{"code":"NotAuthenticated","message":"mock"}`)}
	}
	return nil
}

func genericReply(req *models.UpstreamRequest, reply string, u models.OCIUsage) ([]byte, error) {
	raw := []byte(`{}`)
	sets := []struct {
		path  string
		value any
	}{
		{"modelId", req.ServingMode.ModelID},
		{"modelVersion", "mock"},
		{"chatResponse.apiFormat", models.APIFormatGeneric},
		{"chatResponse.timeCreated", time.Now().UTC().Format(time.RFC3339)},
		{"chatResponse.choices.0.index", 0},
		{"chatResponse.choices.0.message.role", models.OCIRoleAssistant},
		{"chatResponse.choices.0.message.content.0.type", "TEXT"},
		{"chatResponse.choices.0.message.content.0.text", reply},
		{"chatResponse.choices.0.finishReason", "stop"},
		{"chatResponse.usage", u},
	}
	var err error
	for _, s := range sets {
		if raw, err = sjson.SetBytes(raw, s.path, s.value); err != nil {
			return nil, err
		}
	}
	return raw, nil
}

func cohereReply(req *models.UpstreamRequest, reply string, u models.OCIUsage) ([]byte, error) {
	raw := []byte(`{}`)
	sets := []struct {
		path  string
		value any
	}{
		{"modelId", req.ServingMode.ModelID},
		{"modelVersion", "mock"},
		{"chatResponse.apiFormat", models.APIFormatCohere},
		{"chatResponse.text", reply},
		{"chatResponse.finishReason", "COMPLETE"},
		{"chatResponse.usage", u},
	}
	var err error
	for _, s := range sets {
		if raw, err = sjson.SetBytes(raw, s.path, s.value); err != nil {
			return nil, err
		}
	}
	return raw, nil
}

func textEvent(text string, cohere bool) []byte {
	if cohere {
		ev, _ := sjson.SetBytes([]byte(`{"apiFormat":"COHERE"}`), "text", text)
		return ev
	}
	ev, _ := sjson.SetBytes([]byte(`{"index":0,"message":{"role":"ASSISTANT"}}`), "message.content.0", map[string]string{"type": "TEXT", "text": text})
	return ev
}

func finishReason(cohere bool) string {
	if cohere {
		return "COMPLETE"
	}
	return "stop"
}

// fragments splits s after each space so fragments concatenate back to s.
func fragments(s string) []string {
	var out []string
	for len(s) > 0 {
		i := strings.IndexByte(s, ' ')
		if i < 0 {
			out = append(out, s)
			break
		}
		out = append(out, s[:i+1])
		s = s[i+1:]
	}
	return out
}

func lastUserText(req *models.UpstreamRequest) string {
	cr := req.ChatRequest
	if cr.APIFormat == models.APIFormatCohere {
		return cr.Message
	}
	for i := len(cr.Messages) - 1; i >= 0; i-- {
		m := cr.Messages[i]
		if m.Role != models.OCIRoleUser {
			continue
		}
		var sb strings.Builder
		for _, part := range m.Content {
			sb.WriteString(part.Text)
		}
		return sb.String()
	}
	return ""
}

// usageFor counts whitespace separated words as tokens.
func usageFor(prompt, reply string) models.OCIUsage {
	p, c := len(strings.Fields(prompt)), len(strings.Fields(reply))
	return models.OCIUsage{PromptTokens: p, CompletionTokens: c, TotalTokens: p + c}
}

package translator

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "ocigenai-gateway/internal/errors"
	"ocigenai-gateway/internal/models"
)

func genericTarget() models.Target {
	return models.Target{
		Requested:   "m",
		ModelID:     "meta.llama-3.3-70b-instruct",
		APIFormat:   models.APIFormatGeneric,
		ServingMode: models.ServingMode{ServingType: "ON_DEMAND", ModelID: "meta.llama-3.3-70b-instruct"},
	}
}

func cohereTarget() models.Target {
	return models.Target{
		Requested:   "c",
		ModelID:     "cohere.command-r-plus",
		APIFormat:   models.APIFormatCohere,
		ServingMode: models.ServingMode{ServingType: "ON_DEMAND", ModelID: "cohere.command-r-plus"},
	}
}

func f64(v float64) *float64 { return &v }
func intp(v int) *int        { return &v }

func userRequest(text string) *models.ChatRequest {
	return &models.ChatRequest{
		Model:    "m",
		Messages: []models.ChatMessage{{Role: models.RoleUser, Content: models.TextContent(text)}},
	}
}

func kindOf(t *testing.T, err error) apperrors.Kind {
	t.Helper()
	var ge *apperrors.GatewayError
	require.True(t, errors.As(err, &ge), "expected GatewayError, got %T", err)
	return ge.Kind
}

func TestToUpstreamGenericDefaults(t *testing.T) {
	up, adj, err := ToUpstream(userRequest("hi"), genericTarget(), Options{CompartmentID: "ocid1.compartment.oc1..x"})
	require.NoError(t, err)
	assert.Empty(t, adj)
	assert.Equal(t, "ocid1.compartment.oc1..x", up.CompartmentID)
	assert.Equal(t, "meta.llama-3.3-70b-instruct", up.ServingMode.ModelID)

	cr := up.ChatRequest
	assert.Equal(t, models.APIFormatGeneric, cr.APIFormat)
	require.Len(t, cr.Messages, 1)
	assert.Equal(t, models.OCIRoleUser, cr.Messages[0].Role)
	assert.Equal(t, []models.OCIContent{{Type: "TEXT", Text: "hi"}}, cr.Messages[0].Content)
	require.NotNil(t, cr.TopP)
	assert.Equal(t, 1.0, *cr.TopP)
	assert.Equal(t, defaultMaxTokens, cr.MaxTokens)
	assert.Nil(t, cr.Temperature)
	assert.False(t, cr.IsStream)
}

func TestToUpstreamRoles(t *testing.T) {
	req := &models.ChatRequest{
		Model: "m",
		Messages: []models.ChatMessage{
			{Role: "system", Content: models.TextContent("be brief")},
			{Role: "developer", Content: models.TextContent("no emoji")},
			{Role: "user", Content: models.TextContent("weather?")},
			{Role: "assistant", ToolCalls: []models.ToolCall{{ID: "call_1", Type: "function", Function: models.FunctionCall{Name: "weather", Arguments: `{"city":"Austin"}`}}}},
			{Role: "tool", ToolCallID: "call_1", Content: models.TextContent("sunny")},
		},
	}
	up, _, err := ToUpstream(req, genericTarget(), Options{})
	require.NoError(t, err)
	roles := make([]string, 0, len(up.ChatRequest.Messages))
	for _, m := range up.ChatRequest.Messages {
		roles = append(roles, m.Role)
	}
	assert.Equal(t, []string{"SYSTEM", "SYSTEM", "USER", "ASSISTANT", "TOOL"}, roles)
	assert.Equal(t, "call_1", up.ChatRequest.Messages[3].ToolCalls[0].ID)
	assert.Equal(t, "weather", up.ChatRequest.Messages[3].ToolCalls[0].Name)
	assert.Equal(t, "call_1", up.ChatRequest.Messages[4].ToolCallID)
}

func TestToUpstreamRejects(t *testing.T) {
	tests := []struct {
		name   string
		target models.Target
		mutate func(r *models.ChatRequest)
		kind   apperrors.Kind
	}{
		{"no messages", genericTarget(), func(r *models.ChatRequest) { r.Messages = nil }, apperrors.KindInvalidParameter},
		{"unknown role", genericTarget(), func(r *models.ChatRequest) { r.Messages[0].Role = "narrator" }, apperrors.KindUnsupportedRole},
		{"tool without id", genericTarget(), func(r *models.ChatRequest) { r.Messages[0].Role = "tool" }, apperrors.KindInvalidParameter},
		{"audio part", genericTarget(), func(r *models.ChatRequest) {
			r.Messages[0].Content = models.MessageContent{IsParts: true, Parts: []models.ContentPart{{Type: "input_audio"}}}
		}, apperrors.KindInvalidRequest},
		{"n too large", genericTarget(), func(r *models.ChatRequest) { r.N = intp(MaxChoices + 1) }, apperrors.KindInvalidParameter},
		{"bad tool choice", genericTarget(), func(r *models.ChatRequest) { r.ToolChoice = &models.ToolChoice{Mode: "sometimes"} }, apperrors.KindInvalidParameter},
		{"cohere tool without id", cohereTarget(), func(r *models.ChatRequest) {
			r.Messages = append([]models.ChatMessage{{Role: "tool", Content: models.TextContent("42")}}, r.Messages...)
		}, apperrors.KindInvalidParameter},
		{"cohere unknown role", cohereTarget(), func(r *models.ChatRequest) { r.Messages[0].Role = "narrator" }, apperrors.KindUnsupportedRole},
		{"cohere tools", cohereTarget(), func(r *models.ChatRequest) {
			r.Tools = []models.Tool{{Type: "function", Function: models.FunctionDef{Name: "f"}}}
		}, apperrors.KindInvalidParameter},
		{"cohere last not user", cohereTarget(), func(r *models.ChatRequest) {
			r.Messages = append(r.Messages, models.ChatMessage{Role: "assistant", Content: models.TextContent("ok")})
		}, apperrors.KindInvalidParameter},
		{"cohere image", cohereTarget(), func(r *models.ChatRequest) {
			r.Messages[0].Content = models.MessageContent{IsParts: true, Parts: []models.ContentPart{{Type: "image_url", ImageURL: &models.ImageURL{URL: "data:x"}}}}
		}, apperrors.KindInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := userRequest("hi")
			tt.mutate(req)
			_, _, err := ToUpstream(req, tt.target, Options{})
			require.Error(t, err)
			assert.Equal(t, tt.kind, kindOf(t, err))
		})
	}
}

func TestToUpstreamUnsupportedRoleParam(t *testing.T) {
	req := userRequest("hi")
	req.Messages = append(req.Messages, models.ChatMessage{Role: "function", Content: models.TextContent("x")})
	_, _, err := ToUpstream(req, genericTarget(), Options{})
	var ge *apperrors.GatewayError
	require.True(t, errors.As(err, &ge))
	assert.Equal(t, "messages[1].role", ge.Param)
}

func TestToUpstreamClampsParams(t *testing.T) {
	req := userRequest("hi")
	req.Temperature = f64(3.5)
	req.TopP = f64(0.5)
	req.TopK = intp(900)
	req.PresencePenalty = f64(-5)
	req.MaxTokens = intp(100000)

	up, adj, err := ToUpstream(req, genericTarget(), Options{})
	require.NoError(t, err)
	cr := up.ChatRequest
	assert.Equal(t, 2.0, *cr.Temperature)
	assert.Equal(t, 0.5, *cr.TopP)
	assert.Equal(t, 500, *cr.TopK)
	assert.Equal(t, -2.0, *cr.PresencePenalty)
	assert.Equal(t, maxTokensLimit, cr.MaxTokens)

	params := map[string]ParamAdjustment{}
	for _, a := range adj {
		params[a.Param] = a
	}
	assert.Len(t, params, 4)
	assert.Equal(t, 3.5, params["temperature"].Requested)
	assert.Equal(t, 2.0, params["temperature"].Applied)
	assert.Contains(t, params, "max_tokens")
}

func TestToUpstreamCohereRanges(t *testing.T) {
	req := userRequest("hi")
	req.Temperature = f64(1.5)
	req.FrequencyPenalty = f64(-1)

	up, adj, err := ToUpstream(req, cohereTarget(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 1.0, *up.ChatRequest.Temperature)
	assert.Equal(t, 0.0, *up.ChatRequest.FrequencyPenalty)
	assert.Equal(t, 0.99, *up.ChatRequest.TopP)
	assert.Len(t, adj, 2)
}

func TestToUpstreamStrictParams(t *testing.T) {
	req := userRequest("hi")
	req.Temperature = f64(2.5)
	_, _, err := ToUpstream(req, genericTarget(), Options{StrictParams: true})
	require.Error(t, err)
	var ge *apperrors.GatewayError
	require.True(t, errors.As(err, &ge))
	assert.Equal(t, apperrors.KindInvalidParameter, ge.Kind)
	assert.Equal(t, "temperature", ge.Param)
}

func TestToUpstreamMaxCompletionTokensWins(t *testing.T) {
	req := userRequest("hi")
	req.MaxTokens = intp(10)
	req.MaxCompletionTokens = intp(20)
	up, _, err := ToUpstream(req, genericTarget(), Options{DefaultMaxTokens: 5, MaxTokensLimit: 50})
	require.NoError(t, err)
	assert.Equal(t, 20, up.ChatRequest.MaxTokens)

	up, _, err = ToUpstream(userRequest("hi"), genericTarget(), Options{DefaultMaxTokens: 5, MaxTokensLimit: 50})
	require.NoError(t, err)
	assert.Equal(t, 5, up.ChatRequest.MaxTokens)
}

func TestToUpstreamCohereHistory(t *testing.T) {
	req := &models.ChatRequest{
		Model: "c",
		Messages: []models.ChatMessage{
			{Role: "system", Content: models.TextContent("be brief")},
			{Role: "user", Content: models.TextContent("hi")},
			{Role: "assistant", Content: models.TextContent("hello")},
			{Role: "user", Content: models.TextContent("bye")},
		},
		Stop: models.StopSequences{"END"},
	}
	up, _, err := ToUpstream(req, cohereTarget(), Options{})
	require.NoError(t, err)
	cr := up.ChatRequest
	assert.Equal(t, "bye", cr.Message)
	assert.Equal(t, "be brief", cr.PreambleOverride)
	assert.Equal(t, []models.CohereMessage{{Role: "USER", Message: "hi"}, {Role: "CHATBOT", Message: "hello"}}, cr.ChatHistory)
	assert.Equal(t, []string{"END"}, cr.StopSequences)
	assert.Empty(t, cr.Messages)
}

func TestToUpstreamCohereToolTurn(t *testing.T) {
	req := &models.ChatRequest{
		Model: "c",
		Messages: []models.ChatMessage{
			{Role: "user", Content: models.TextContent("weather?")},
			{Role: "tool", ToolCallID: "call_1", Content: models.TextContent("sunny")},
			{Role: "user", Content: models.TextContent("thanks")},
		},
	}
	up, _, err := ToUpstream(req, cohereTarget(), Options{})
	require.NoError(t, err)
	cr := up.ChatRequest
	assert.Equal(t, "thanks", cr.Message)
	assert.Equal(t, []models.CohereMessage{
		{Role: "USER", Message: "weather?"},
		{Role: "TOOL", Message: "sunny", ToolCallID: "call_1"},
	}, cr.ChatHistory)
}

func TestToUpstreamToolsAndStreamOptions(t *testing.T) {
	req := userRequest("weather?")
	req.Stream = true
	req.StreamOptions = &models.StreamOptions{IncludeUsage: true}
	req.Tools = []models.Tool{{Type: "function", Function: models.FunctionDef{Name: "weather", Parameters: json.RawMessage(`{"type":"object"}`)}}}
	req.ToolChoice = &models.ToolChoice{Mode: models.ToolChoiceFunction, Function: "weather"}

	up, _, err := ToUpstream(req, genericTarget(), Options{})
	require.NoError(t, err)
	cr := up.ChatRequest
	assert.True(t, cr.IsStream)
	require.NotNil(t, cr.StreamOptions)
	assert.True(t, cr.StreamOptions.IsIncludeUsage)
	require.Len(t, cr.Tools, 1)
	assert.Equal(t, "FUNCTION", cr.Tools[0].Type)
	assert.JSONEq(t, `{"type":"object"}`, string(cr.Tools[0].Parameters))
	assert.Equal(t, &models.OCIToolChoice{Type: "FUNCTION", Name: "weather"}, cr.ToolChoice)
}

func TestToUpstreamIsDeterministic(t *testing.T) {
	req := userRequest("hi")
	req.Temperature = f64(9)
	a, adjA, errA := ToUpstream(req, genericTarget(), Options{})
	b, adjB, errB := ToUpstream(req, genericTarget(), Options{})
	require.NoError(t, errA)
	require.NoError(t, errB)
	assert.Equal(t, a, b)
	assert.Equal(t, adjA, adjB)
}

func TestMapFinishReason(t *testing.T) {
	tests := []struct {
		raw, reason, original string
	}{
		{"stop", "stop", ""},
		{"COMPLETE", "stop", ""},
		{"", "stop", ""},
		{"length", "length", ""},
		{"MAX_TOKENS", "length", ""},
		{"ERROR_TOXIC", "content_filter", ""},
		{"content_filter", "content_filter", ""},
		{"tool_calls", "tool_calls", ""},
		{"max_context_reached", "stop", "max_context_reached"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			reason, original := MapFinishReason(tt.raw)
			assert.Equal(t, tt.reason, reason)
			assert.Equal(t, tt.original, original)
		})
	}
}

func genericReply(text, finish string) *models.UpstreamResponse {
	return &models.UpstreamResponse{
		ModelID: "meta.llama-3.3-70b-instruct",
		ChatResponse: &models.OCIChatResponse{
			APIFormat: models.APIFormatGeneric,
			Choices: []models.OCIChoice{{
				Message:      models.OCIMessage{Role: "ASSISTANT", Content: []models.OCIContent{{Type: "TEXT", Text: text}}},
				FinishReason: finish,
			}},
			Usage: &models.OCIUsage{PromptTokens: 3, CompletionTokens: 2, TotalTokens: 5},
		},
	}
}

var meta = ResponseMeta{ID: "chatcmpl-1", Created: 1700000000, Model: "m"}

func TestFromUpstreamSimpleReply(t *testing.T) {
	resp, err := FromUpstream(genericReply("hello", "stop"), meta)
	require.NoError(t, err)
	assert.Equal(t, "chat.completion", resp.Object)
	assert.Equal(t, "m", resp.Model)
	require.Len(t, resp.Choices, 1)
	c := resp.Choices[0]
	assert.Equal(t, "stop", c.FinishReason)
	assert.Equal(t, "assistant", c.Message.Role)
	require.NotNil(t, c.Message.Content)
	assert.Equal(t, "hello", *c.Message.Content)
	assert.Equal(t, models.Usage{PromptTokens: 3, CompletionTokens: 2, TotalTokens: 5}, resp.Usage)
}

func TestFromUpstreamUnmappedFinishReason(t *testing.T) {
	resp, err := FromUpstream(genericReply("x", "max_context_reached"), meta)
	require.NoError(t, err)
	assert.Equal(t, "stop", resp.Choices[0].FinishReason)
	assert.Equal(t, "max_context_reached", resp.Choices[0].OCIFinishReason)

	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"x_oci_finish_reason":"max_context_reached"`)
}

func TestFromUpstreamMissingUsageIsZero(t *testing.T) {
	reply := genericReply("hello", "stop")
	reply.ChatResponse.Usage = nil
	resp, err := FromUpstream(reply, meta)
	require.NoError(t, err)
	assert.Equal(t, models.Usage{}, resp.Usage)

	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"usage":{"prompt_tokens":0,"completion_tokens":0,"total_tokens":0}`)
}

func TestFromUpstreamCohere(t *testing.T) {
	reply := &models.UpstreamResponse{ChatResponse: &models.OCIChatResponse{
		APIFormat:    models.APIFormatCohere,
		Text:         "hello",
		FinishReason: "COMPLETE",
		Usage:        &models.OCIUsage{PromptTokens: 4, CompletionTokens: 1},
	}}
	resp, err := FromUpstream(reply, meta)
	require.NoError(t, err)
	require.Len(t, resp.Choices, 1)
	assert.Equal(t, "hello", *resp.Choices[0].Message.Content)
	assert.Equal(t, "stop", resp.Choices[0].FinishReason)
	assert.Equal(t, 5, resp.Usage.TotalTokens)
}

func TestFromUpstreamToolCalls(t *testing.T) {
	reply := genericReply("", "tool_calls")
	reply.ChatResponse.Choices[0].Message.Content = nil
	reply.ChatResponse.Choices[0].Message.ToolCalls = []models.OCIToolCall{{ID: "call_1", Type: "FUNCTION", Name: "weather", Arguments: `{}`}}
	resp, err := FromUpstream(reply, meta)
	require.NoError(t, err)
	c := resp.Choices[0]
	assert.Nil(t, c.Message.Content)
	assert.Equal(t, "tool_calls", c.FinishReason)
	require.Len(t, c.Message.ToolCalls, 1)
	assert.Equal(t, "function", c.Message.ToolCalls[0].Type)
	assert.Equal(t, "weather", c.Message.ToolCalls[0].Function.Name)
}

func TestFromUpstreamProtocolErrors(t *testing.T) {
	_, err := FromUpstream(&models.UpstreamResponse{}, meta)
	assert.Equal(t, apperrors.KindUpstreamProtocol, kindOf(t, err))

	_, err = FromUpstream(&models.UpstreamResponse{ChatResponse: &models.OCIChatResponse{APIFormat: models.APIFormatGeneric}}, meta)
	assert.Equal(t, apperrors.KindUpstreamProtocol, kindOf(t, err))
}

// Mapping a request and echoing it back must preserve role, content and finish reason.
func TestRoundTripKeepsRoleContentAndFinish(t *testing.T) {
	finishes := []string{"stop", "length", "content_filter", "tool_calls"}
	for _, finish := range finishes {
		t.Run(finish, func(t *testing.T) {
			up, _, err := ToUpstream(userRequest("echo me"), genericTarget(), Options{})
			require.NoError(t, err)
			echo := up.ChatRequest.Messages[0]
			echo.Role = models.OCIRoleAssistant
			reply := &models.UpstreamResponse{ChatResponse: &models.OCIChatResponse{
				APIFormat: models.APIFormatGeneric,
				Choices:   []models.OCIChoice{{Message: echo, FinishReason: finish}},
			}}
			resp, err := FromUpstream(reply, meta)
			require.NoError(t, err)
			assert.Equal(t, "assistant", resp.Choices[0].Message.Role)
			assert.Equal(t, "echo me", *resp.Choices[0].Message.Content)
			assert.Equal(t, finish, resp.Choices[0].FinishReason)
		})
	}
}

func TestMergeChoices(t *testing.T) {
	a, err := FromUpstream(genericReply("one", "stop"), meta)
	require.NoError(t, err)
	b, err := FromUpstream(genericReply("two", "length"), meta)
	require.NoError(t, err)

	merged := MergeChoices([]*models.ChatResponse{a, b})
	require.Len(t, merged.Choices, 2)
	assert.Equal(t, 0, merged.Choices[0].Index)
	assert.Equal(t, 1, merged.Choices[1].Index)
	assert.Equal(t, "two", *merged.Choices[1].Message.Content)
	assert.Equal(t, models.Usage{PromptTokens: 3, CompletionTokens: 4, TotalTokens: 7}, merged.Usage)
	assert.Nil(t, MergeChoices(nil))
}

func TestParseStreamEvent(t *testing.T) {
	tests := []struct {
		name string
		data string
		want models.UpstreamEvent
	}{
		{
			name: "generic text",
			data: `{"index":0,"message":{"role":"ASSISTANT","content":[{"type":"TEXT","text":"he"}]}}`,
			want: models.UpstreamEvent{Text: "he"},
		},
		{
			name: "generic terminal",
			data: `{"index":0,"finishReason":"stop"}`,
			want: models.UpstreamEvent{Terminal: true, FinishReason: "stop"},
		},
		{
			name: "usage only",
			data: `{"usage":{"promptTokens":3,"completionTokens":2,"totalTokens":5}}`,
			want: models.UpstreamEvent{Usage: &models.OCIUsage{PromptTokens: 3, CompletionTokens: 2, TotalTokens: 5}},
		},
		{
			name: "cohere text",
			data: `{"apiFormat":"COHERE","text":"llo"}`,
			want: models.UpstreamEvent{Text: "llo"},
		},
		{
			name: "cohere terminal drops repeated text",
			data: `{"apiFormat":"COHERE","text":"hello","finishReason":"COMPLETE"}`,
			want: models.UpstreamEvent{Terminal: true, FinishReason: "COMPLETE"},
		},
		{
			name: "tool call fragment",
			data: `{"message":{"role":"ASSISTANT","toolCalls":[{"id":"call_1","type":"FUNCTION","name":"weather","arguments":"{\"ci"}]}}`,
			want: models.UpstreamEvent{ToolCalls: []models.OCIToolCall{{ID: "call_1", Type: "FUNCTION", Name: "weather", Arguments: `{"ci`}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStreamEvent([]byte(tt.data))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseStreamEventMalformed(t *testing.T) {
	for _, data := range []string{`{"message":`, `[1,2]`, `"text"`} {
		_, err := ParseStreamEvent([]byte(data))
		require.Error(t, err, data)
		assert.Equal(t, apperrors.KindUpstreamProtocol, kindOf(t, err))
	}
}

package openai

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ocigenai-gateway/internal/config"
	"ocigenai-gateway/internal/credential"
	"ocigenai-gateway/internal/gateway"
	"ocigenai-gateway/internal/models"
	"ocigenai-gateway/internal/upstream/mock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	cfg := config.Default()
	cfg.OCI.CompartmentID = "ocid1.compartment.oc1..test"
	cfg.OCI.ModelMapping = map[string]string{
		"gpt-4o":  "meta.llama-3.3-70b-instruct",
		"command": "cohere.command-r-plus",
	}
	creds := credential.NewProvider(credential.NewStaticSource("tok"), credential.Options{})
	d := gateway.New(cfg, mock.New(), creds, nil)
	h := New(d)

	r := gin.New()
	r.POST("/v1/chat/completions", h.ChatCompletions)
	r.GET("/v1/models", h.ListModels)
	r.GET("/v1/models/:model", h.GetModel)
	return r
}

func doJSON(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) (string, any) {
	t.Helper()
	var env struct {
		Error struct {
			Code  string `json:"code"`
			Param any    `json:"param"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env.Error.Code, env.Error.Param
}

// sseData returns the data payloads of an SSE body in order.
func sseData(t *testing.T, body string) []string {
	t.Helper()
	var out []string
	sc := bufio.NewScanner(strings.NewReader(body))
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, "data: ") {
			out = append(out, strings.TrimPrefix(line, "data: "))
		}
	}
	return out
}

func TestChatCompletionsNonStream(t *testing.T) {
	r := newTestRouter(t)
	w := doJSON(r, http.MethodPost, "/v1/chat/completions",
		`{"model":"gpt-4o","messages":[{"role":"user","content":"hi"}]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "chat.completion", resp.Object)
	assert.Equal(t, "gpt-4o", resp.Model)
	assert.True(t, strings.HasPrefix(resp.ID, "chatcmpl-"))
	require.Len(t, resp.Choices, 1)
	assert.Equal(t, "assistant", resp.Choices[0].Message.Role)
	assert.Equal(t, "echo: hi", *resp.Choices[0].Message.Content)
	assert.Equal(t, "stop", resp.Choices[0].FinishReason)
	assert.Empty(t, w.Header().Get(ClampedParamsHeader))
}

func TestChatCompletionsCohere(t *testing.T) {
	r := newTestRouter(t)
	w := doJSON(r, http.MethodPost, "/v1/chat/completions",
		`{"model":"command","messages":[{"role":"system","content":"be brief"},{"role":"user","content":"ping"}]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "echo: ping", *resp.Choices[0].Message.Content)
	assert.Equal(t, "stop", resp.Choices[0].FinishReason)
}

func TestChatCompletionsStream(t *testing.T) {
	r := newTestRouter(t)
	w := doJSON(r, http.MethodPost, "/v1/chat/completions",
		`{"model":"gpt-4o","stream":true,"stream_options":{"include_usage":true},"messages":[{"role":"user","content":"hello there"}]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	frames := sseData(t, w.Body.String())
	require.GreaterOrEqual(t, len(frames), 3)
	assert.Equal(t, "[DONE]", frames[len(frames)-1])

	var text strings.Builder
	var id string
	for i, f := range frames[:len(frames)-1] {
		var chunk models.StreamChunk
		require.NoError(t, json.Unmarshal([]byte(f), &chunk), f)
		assert.Equal(t, "chat.completion.chunk", chunk.Object)
		if id == "" {
			id = chunk.ID
		}
		assert.Equal(t, id, chunk.ID)
		if i == 0 {
			assert.Equal(t, "assistant", chunk.Choices[0].Delta.Role)
		}
		text.WriteString(chunk.Choices[0].Delta.Content)
	}
	assert.Equal(t, "echo: hello there", text.String())

	var last models.StreamChunk
	require.NoError(t, json.Unmarshal([]byte(frames[len(frames)-2]), &last))
	require.NotNil(t, last.Choices[0].FinishReason)
	assert.Equal(t, "stop", *last.Choices[0].FinishReason)
	require.NotNil(t, last.Usage)
	assert.Equal(t, 2, last.Usage.PromptTokens)
}

func TestChatCompletionsStreamDropMidway(t *testing.T) {
	r := newTestRouter(t)
	w := doJSON(r, http.MethodPost, "/v1/chat/completions",
		`{"model":"gpt-4o","stream":true,"messages":[{"role":"user","content":"say `+mock.PromptDrop+` please"}]}`)
	require.Equal(t, http.StatusOK, w.Code)

	frames := sseData(t, w.Body.String())
	require.NotEmpty(t, frames)
	last := frames[len(frames)-1]
	assert.NotEqual(t, "[DONE]", last)
	assert.Contains(t, last, `"error"`)
	assert.Contains(t, last, `"stream_interrupted"`)
	assert.NotContains(t, w.Body.String(), "[DONE]")
}

func TestChatCompletionsStreamRateLimitedBeforeContent(t *testing.T) {
	r := newTestRouter(t)
	w := doJSON(r, http.MethodPost, "/v1/chat/completions",
		`{"model":"gpt-4o","stream":true,"messages":[{"role":"user","content":"`+mock.PromptRateLimit+`"}]}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	code, _ := errorCode(t, w)
	assert.Equal(t, "rate_limited", code)
}

func TestChatCompletionsUpstreamUnauthorized(t *testing.T) {
	r := newTestRouter(t)
	w := doJSON(r, http.MethodPost, "/v1/chat/completions",
		`{"model":"gpt-4o","messages":[{"role":"user","content":"`+mock.PromptUnauth+`"}]}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	code, _ := errorCode(t, w)
	assert.Equal(t, "credential_unavailable", code)
}

func TestChatCompletionsClampHeader(t *testing.T) {
	r := newTestRouter(t)
	w := doJSON(r, http.MethodPost, "/v1/chat/completions",
		`{"model":"gpt-4o","temperature":5,"messages":[{"role":"user","content":"hi"}]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "temperature=2", w.Header().Get(ClampedParamsHeader))
}

func TestChatCompletionsRejects(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		code   string
		param  any
	}{
		{"empty_body", ``, http.StatusBadRequest, "invalid_request", nil},
		{"malformed_json", `{"model":`, http.StatusBadRequest, "invalid_request", nil},
		{"unknown_model", `{"model":"nope","messages":[{"role":"user","content":"x"}]}`, http.StatusBadRequest, "model_not_found", "model"},
		{"unsupported_role", `{"model":"gpt-4o","messages":[{"role":"user","content":"x"},{"role":"oracle","content":"y"}]}`, http.StatusBadRequest, "unsupported_role", "messages[1].role"},
		{"stream_with_n", `{"model":"gpt-4o","stream":true,"n":2,"messages":[{"role":"user","content":"x"}]}`, http.StatusBadRequest, "invalid_parameter", "n"},
		{"tools_on_cohere", `{"model":"command","tools":[{"type":"function","function":{"name":"f"}}],"messages":[{"role":"user","content":"x"}]}`, http.StatusBadRequest, "invalid_parameter", "tools"},
	}
	r := newTestRouter(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(r, http.MethodPost, "/v1/chat/completions", tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			code, param := errorCode(t, w)
			assert.Equal(t, tt.code, code)
			if tt.param != nil {
				assert.Equal(t, tt.param, param)
			}
		})
	}
}

func TestChatCompletionsClientCanceled(t *testing.T) {
	r := newTestRouter(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions",
		strings.NewReader(`{"model":"gpt-4o","stream":true,"messages":[{"role":"user","content":"hi"}]}`)).WithContext(ctx)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.NotContains(t, w.Body.String(), "[DONE]")
}

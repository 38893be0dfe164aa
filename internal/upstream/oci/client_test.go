package oci

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"ocigenai-gateway/internal/config"
	apperrors "ocigenai-gateway/internal/errors"
	"ocigenai-gateway/internal/models"
	"ocigenai-gateway/internal/upstream"
)

func chatRequest(stream bool) *models.UpstreamRequest {
	return &models.UpstreamRequest{
		CompartmentID: "ocid1.compartment.oc1..test",
		ServingMode:   models.ServingMode{ServingType: "ON_DEMAND", ModelID: "meta.llama-3.3-70b-instruct"},
		ChatRequest: models.OCIChatRequest{
			APIFormat: models.APIFormatGeneric,
			Messages:  []models.OCIMessage{{Role: "USER", Content: []models.OCIContent{{Type: "TEXT", Text: "hi"}}}},
			MaxTokens: 16,
			IsStream:  stream,
		},
	}
}

var cred = &oauth2.Token{AccessToken: "session", TokenType: "Bearer"}

func TestChatSendsRequestAndDecodesReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer session", r.Header.Get("Authorization"))
		assert.Equal(t, "req-42", r.Header.Get("opc-request-id"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body models.UpstreamRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ocid1.compartment.oc1..test", body.CompartmentID)
		assert.Equal(t, "GENERIC", body.ChatRequest.APIFormat)
		assert.False(t, body.ChatRequest.IsStream)

		_, _ = w.Write([]byte(`{"modelId":"meta.llama-3.3-70b-instruct","chatResponse":{"apiFormat":"GENERIC","choices":[{"index":0,"message":{"role":"ASSISTANT","content":[{"type":"TEXT","text":"hello"}]},"finishReason":"stop"}],"usage":{"promptTokens":1,"completionTokens":1,"totalTokens":2}}}`))
	}))
	defer srv.Close()

	c := NewWithHTTPClient(srv.URL, srv.Client())
	ctx := upstream.WithRequestID(context.Background(), "req-42")
	resp, err := c.Chat(ctx, chatRequest(false), cred)
	require.NoError(t, err)
	require.NotNil(t, resp.ChatResponse)
	require.Len(t, resp.ChatResponse.Choices, 1)
	assert.Equal(t, "hello", resp.ChatResponse.Choices[0].Message.Content[0].Text)
	assert.Equal(t, 2, resp.ChatResponse.Usage.TotalTokens)
}

func TestChatMapsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"code":"TooManyRequests","message":"slow down"}`))
	}))
	defer srv.Close()

	c := NewWithHTTPClient(srv.URL, srv.Client())
	_, err := c.Chat(context.Background(), chatRequest(false), cred)
	var statusErr *apperrors.UpstreamStatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusTooManyRequests, statusErr.Status)
	assert.Equal(t, 3*time.Second, statusErr.RetryAfter)

	ge := apperrors.Translate(err)
	assert.Equal(t, apperrors.KindUpstreamRateLimited, ge.Kind)
	assert.Equal(t, "3", ge.RetryAfterHeader())
}

func TestChatRejectsMalformedReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"chatResponse":`))
	}))
	defer srv.Close()

	c := NewWithHTTPClient(srv.URL, srv.Client())
	_, err := c.Chat(context.Background(), chatRequest(false), cred)
	assert.Equal(t, apperrors.KindUpstreamProtocol, apperrors.Translate(err).Kind)
}

func TestChatConnectionFailureIsTransport(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(url, config.UpstreamConfig{DialTimeoutSec: 1})
	_, err := c.Chat(context.Background(), chatRequest(false), cred)
	require.Error(t, err)
	ge := apperrors.Translate(err)
	assert.Equal(t, apperrors.KindUpstreamTransport, ge.Kind)
	assert.True(t, ge.Retryable())
}

func TestOpenStreamRelaysEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "text/event-stream")
		fl := w.(http.Flusher)
		for _, ev := range []string{
			`{"message":{"role":"ASSISTANT","content":[{"type":"TEXT","text":"he"}]}}`,
			`{"message":{"role":"ASSISTANT","content":[{"type":"TEXT","text":"llo"}]}}`,
			`{"finishReason":"stop"}`,
		} {
			_, _ = w.Write([]byte("data: " + ev + "\n\n"))
			fl.Flush()
		}
	}))
	defer srv.Close()

	c := NewWithHTTPClient(srv.URL, srv.Client())
	stream, err := c.OpenStream(context.Background(), chatRequest(true), cred)
	require.NoError(t, err)
	defer stream.Close()

	var text string
	for {
		ev, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		text += ev.Text
		if ev.Terminal {
			assert.Equal(t, "stop", ev.FinishReason)
		}
	}
	assert.Equal(t, "hello", text)
}

func TestOpenStreamErrorStatusBeforeBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"code":"NotAuthenticated","message":"expired"}`))
	}))
	defer srv.Close()

	c := NewWithHTTPClient(srv.URL, srv.Client())
	_, err := c.OpenStream(context.Background(), chatRequest(true), cred)
	ge := apperrors.Translate(err)
	assert.Equal(t, apperrors.KindCredentialUnavailable, ge.Kind)
}

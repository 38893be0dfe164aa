package oci

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"

	"ocigenai-gateway/internal/config"
	"ocigenai-gateway/internal/constants"
	apperrors "ocigenai-gateway/internal/errors"
	"ocigenai-gateway/internal/models"
	"ocigenai-gateway/internal/monitoring"
	"ocigenai-gateway/internal/monitoring/tracing"
	"ocigenai-gateway/internal/upstream"
)

// Client calls the OCI Generative AI chat action over HTTPS.
type Client struct {
	endpoint string
	cli      *http.Client
	now      func() time.Time
}

var _ upstream.Client = (*Client)(nil)

func durationOrDefault(seconds int, fallback time.Duration) time.Duration {
	if seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return fallback
}

// New builds a client for endpoint. The http.Client has no overall timeout; streams are
// bounded by the caller's context instead.
func New(endpoint string, cfg config.UpstreamConfig) *Client {
	tr := &http.Transport{
		Proxy: proxyFunc(cfg.ProxyURL),
		DialContext: (&net.Dialer{
			Timeout:   durationOrDefault(cfg.DialTimeoutSec, constants.DefaultDialTimeout),
			KeepAlive: constants.DefaultKeepAlive,
		}).DialContext,
		TLSHandshakeTimeout:   durationOrDefault(cfg.TLSHandshakeTimeoutSec, constants.DefaultTLSHandshakeTimeout),
		ResponseHeaderTimeout: durationOrDefault(cfg.ResponseHeaderTimeoutSec, constants.DefaultResponseHeaderTimeout),
		ExpectContinueTimeout: constants.DefaultExpectContinueTimeout,
		MaxIdleConns:          constants.BaseMaxIdleConns,
		MaxIdleConnsPerHost:   constants.BaseMaxIdleConnsPerHost,
		IdleConnTimeout:       constants.BaseIdleConnTimeout,
		ForceAttemptHTTP2:     true,
	}
	return NewWithHTTPClient(endpoint, &http.Client{Transport: tr})
}

// NewWithHTTPClient is New with a caller supplied http.Client, mostly for tests.
func NewWithHTTPClient(endpoint string, cli *http.Client) *Client {
	return &Client{endpoint: endpoint, cli: cli, now: time.Now}
}

func proxyFunc(proxyURL string) func(*http.Request) (*url.URL, error) {
	if proxyURL != "" {
		if parsed, err := url.Parse(proxyURL); err == nil {
			return http.ProxyURL(parsed)
		}
		log.WithField("proxy_url", proxyURL).Warn("ignoring unparsable upstream proxy url")
	}
	return http.ProxyFromEnvironment
}

// Chat performs a non-streaming chat call.
func (c *Client) Chat(ctx context.Context, req *models.UpstreamRequest, cred *oauth2.Token) (*models.UpstreamResponse, error) {
	ctx, span := c.startSpan(ctx, "OCI.Chat", req)
	defer span.End()

	resp, err := c.post(ctx, req, cred, "application/json")
	if err != nil {
		finishSpan(span, 0, err)
		return nil, err
	}
	defer resp.Body.Close()

	var out models.UpstreamResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		perr := apperrors.Protocol("decode upstream reply: %v", err)
		finishSpan(span, resp.StatusCode, perr)
		return nil, perr
	}
	finishSpan(span, resp.StatusCode, nil)
	return &out, nil
}

// OpenStream starts a streaming chat call. The returned stream owns the response body.
func (c *Client) OpenStream(ctx context.Context, req *models.UpstreamRequest, cred *oauth2.Token) (upstream.Stream, error) {
	ctx, span := c.startSpan(ctx, "OCI.OpenStream", req)
	defer span.End()

	resp, err := c.post(ctx, req, cred, "text/event-stream")
	if err != nil {
		finishSpan(span, 0, err)
		return nil, err
	}
	finishSpan(span, resp.StatusCode, nil)
	return upstream.NewEventStream(resp.Body), nil
}

// post sends req and returns a 2xx response. Any other status is drained into an
// UpstreamStatusError and the body is closed.
func (c *Client) post(ctx context.Context, req *models.UpstreamRequest, cred *oauth2.Token, accept string) (*http.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("encode upstream request: %w", err))
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("build upstream request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", accept)
	if id := upstream.RequestID(ctx); id != "" {
		httpReq.Header.Set(upstream.RequestIDHeader, id)
	}
	if cred != nil {
		cred.SetAuthHeader(httpReq)
	}

	model := modelLabel(req)
	start := c.now()
	resp, err := c.cli.Do(httpReq)
	monitoring.UpstreamRequestDuration.WithLabelValues(model).Observe(c.now().Sub(start).Seconds())
	if err != nil {
		monitoring.UpstreamRequestsTotal.WithLabelValues(model, req.ChatRequest.APIFormat, monitoring.StatusClass(0)).Inc()
		return nil, err
	}
	monitoring.UpstreamRequestsTotal.WithLabelValues(model, req.ChatRequest.APIFormat, monitoring.StatusClass(resp.StatusCode)).Inc()
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, constants.MaxUpstreamErrorBody))
	log.WithFields(log.Fields{
		"status":         resp.StatusCode,
		"model":          model,
		"opc_request_id": resp.Header.Get(upstream.RequestIDHeader),
	}).Warn("upstream returned an error status")
	return nil, &apperrors.UpstreamStatusError{
		Status:     resp.StatusCode,
		Body:       raw,
		RetryAfter: upstream.ParseRetryAfter(resp.Header, c.now()),
	}
}

func (c *Client) startSpan(ctx context.Context, name string, req *models.UpstreamRequest) (context.Context, trace.Span) {
	return tracing.StartSpan(ctx, "upstream/oci", name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", http.MethodPost),
			attribute.String("http.url", c.endpoint),
			attribute.String("oci.model", modelLabel(req)),
			attribute.String("oci.api_format", req.ChatRequest.APIFormat),
			attribute.Bool("oci.stream", req.ChatRequest.IsStream),
		))
}

func finishSpan(span trace.Span, status int, err error) {
	span.SetAttributes(attribute.Int("http.status_code", status))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetStatus(codes.Ok, "")
}

func modelLabel(req *models.UpstreamRequest) string {
	if req.ServingMode.ModelID != "" {
		return req.ServingMode.ModelID
	}
	return req.ServingMode.EndpointID
}

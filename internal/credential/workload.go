package credential

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
)

const maxTokenReplyBytes = 1 << 20

// WorkloadIdentityConfig describes the token exchange used by pods running with an
// OKE workload identity.
type WorkloadIdentityConfig struct {
	// TokenEndpoint receives the exchange request.
	TokenEndpoint string
	// SubjectTokenFile holds the projected service account token. It is re-read on every fetch.
	SubjectTokenFile string
	// FallbackTTL applies when neither the reply nor the token carries an expiry.
	FallbackTTL time.Duration
	HTTPClient  *http.Client
	// Now is overridable in tests.
	Now func() time.Time
}

// WorkloadIdentitySource exchanges the service account token for an upstream session token.
type WorkloadIdentitySource struct {
	cfg WorkloadIdentityConfig
}

func NewWorkloadIdentitySource(cfg WorkloadIdentityConfig) *WorkloadIdentitySource {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &WorkloadIdentitySource{cfg: cfg}
}

func (s *WorkloadIdentitySource) Name() string { return "workload_identity" }

func (s *WorkloadIdentitySource) Fetch(ctx context.Context) (*oauth2.Token, error) {
	subject, err := os.ReadFile(s.cfg.SubjectTokenFile)
	if err != nil {
		return nil, fmt.Errorf("read subject token: %w", err)
	}
	subjectToken := strings.TrimSpace(string(subject))
	if subjectToken == "" {
		return nil, fmt.Errorf("subject token file %s is empty", s.cfg.SubjectTokenFile)
	}

	body := []byte(`{"grantType":"workload_identity"}`)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.TokenEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	(&oauth2.Token{AccessToken: subjectToken, TokenType: "Bearer"}).SetAuthHeader(req)

	resp, err := s.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token endpoint: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenReplyBytes))
	if err != nil {
		return nil, fmt.Errorf("read token reply: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	reply := gjson.ParseBytes(raw)
	access := reply.Get("token").String()
	if access == "" {
		access = reply.Get("access_token").String()
	}
	if access == "" {
		return nil, fmt.Errorf("token endpoint reply has no token")
	}
	tok := &oauth2.Token{AccessToken: access, TokenType: "Bearer"}

	now := s.cfg.Now()
	switch {
	case reply.Get("expires_in").Int() > 0:
		tok.Expiry = now.Add(time.Duration(reply.Get("expires_in").Int()) * time.Second)
	case !jwtExpiry(access).IsZero():
		tok.Expiry = jwtExpiry(access)
	case s.cfg.FallbackTTL > 0:
		tok.Expiry = now.Add(s.cfg.FallbackTTL)
	}
	return tok, nil
}

// jwtExpiry reads the exp claim without verifying the signature. Zero when absent.
func jwtExpiry(token string) time.Time {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return time.Time{}
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return time.Time{}
	}
	exp := gjson.GetBytes(payload, "exp")
	if !exp.Exists() || exp.Int() <= 0 {
		return time.Time{}
	}
	return time.Unix(exp.Int(), 0)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

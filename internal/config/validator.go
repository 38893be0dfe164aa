package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate reports the first configuration problem that would prevent the gateway from serving.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.OCI.CompartmentID) == "" {
		return fmt.Errorf("oci.compartment_id cannot be blank")
	}
	switch c.OCI.ServingMode {
	case ServingModeOnDemand:
	case ServingModeDedicated:
		if strings.TrimSpace(c.OCI.EndpointID) == "" {
			return fmt.Errorf("oci.endpoint_id is required when serving_mode is %s", ServingModeDedicated)
		}
	default:
		return fmt.Errorf("oci.serving_mode %q is not one of %s, %s", c.OCI.ServingMode, ServingModeOnDemand, ServingModeDedicated)
	}
	for alias, model := range c.OCI.ModelMapping {
		if strings.TrimSpace(alias) == "" || strings.TrimSpace(model) == "" {
			return fmt.Errorf("oci.model_mapping has an empty entry (%q -> %q)", alias, model)
		}
	}
	if c.OCI.Endpoint != "" {
		if u, err := url.Parse(c.OCI.Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("oci.endpoint %q is not an absolute URL", c.OCI.Endpoint)
		}
	} else if strings.TrimSpace(c.OCI.Region) == "" {
		return fmt.Errorf("one of oci.endpoint or oci.region is required")
	}

	switch c.Upstream.Mode {
	case UpstreamModeOCI, UpstreamModeMock:
	default:
		return fmt.Errorf("upstream.mode %q is not one of %s, %s", c.Upstream.Mode, UpstreamModeOCI, UpstreamModeMock)
	}
	for name, v := range map[string]int{
		"upstream.request_timeout_sec":     c.Upstream.RequestTimeoutSec,
		"upstream.stream_idle_timeout_sec": c.Upstream.StreamIdleTimeoutSec,
		"upstream.stream_max_duration_sec": c.Upstream.StreamMaxDurationSec,
		"credential.acquire_timeout_sec":   c.Credential.AcquireTimeoutSec,
	} {
		if v <= 0 {
			return fmt.Errorf("%s must be positive, got %d", name, v)
		}
	}
	if c.Upstream.StreamIdleTimeoutSec > c.Upstream.StreamMaxDurationSec {
		return fmt.Errorf("upstream.stream_idle_timeout_sec exceeds upstream.stream_max_duration_sec")
	}

	switch c.Credential.Mode {
	case CredentialModeStatic:
		if strings.TrimSpace(c.Credential.StaticToken) == "" {
			return fmt.Errorf("credential.static_token is required in %s mode", CredentialModeStatic)
		}
	case CredentialModeWorkloadIdentity:
		if c.Upstream.Mode == UpstreamModeOCI && strings.TrimSpace(c.Credential.TokenEndpoint) == "" {
			return fmt.Errorf("credential.token_endpoint is required in %s mode", CredentialModeWorkloadIdentity)
		}
	default:
		return fmt.Errorf("credential.mode %q is not one of %s, %s", c.Credential.Mode, CredentialModeWorkloadIdentity, CredentialModeStatic)
	}
	if c.Credential.SafetyMarginSec < 0 {
		return fmt.Errorf("credential.safety_margin_sec cannot be negative")
	}

	if c.Mapping.DefaultMaxTokens > c.Mapping.MaxTokensLimit {
		return fmt.Errorf("mapping.default_max_tokens exceeds mapping.max_tokens_limit")
	}

	switch c.Stats.Backend {
	case StatsBackendMemory, StatsBackendNone:
	case StatsBackendRedis:
		if strings.TrimSpace(c.Stats.RedisAddr) == "" {
			return fmt.Errorf("stats.redis_addr is required for the redis backend")
		}
	case StatsBackendPostgres:
		if strings.TrimSpace(c.Stats.PostgresDSN) == "" {
			return fmt.Errorf("stats.postgres_dsn is required for the postgres backend")
		}
	case StatsBackendMongoDB:
		if strings.TrimSpace(c.Stats.MongoURI) == "" {
			return fmt.Errorf("stats.mongo_uri is required for the mongodb backend")
		}
	default:
		return fmt.Errorf("stats.backend %q is not one of memory, redis, postgres, mongodb, none", c.Stats.Backend)
	}
	return nil
}

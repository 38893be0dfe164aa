package config

import (
	"strings"
	"time"
)

// Serving modes understood by the OCI inference API.
const (
	ServingModeOnDemand  = "ON_DEMAND"
	ServingModeDedicated = "DEDICATED"
)

// Credential acquisition modes.
const (
	CredentialModeWorkloadIdentity = "workload_identity"
	CredentialModeStatic           = "static"
)

// Upstream modes.
const (
	UpstreamModeOCI  = "oci"
	UpstreamModeMock = "mock"
)

// Usage stats backends.
const (
	StatsBackendMemory   = "memory"
	StatsBackendRedis    = "redis"
	StatsBackendPostgres = "postgres"
	StatsBackendMongoDB  = "mongodb"
	StatsBackendNone     = "none"
)

// Config is the full runtime configuration of the gateway.
type Config struct {
	Server     ServerConfig     `yaml:"server" json:"server"`
	Logging    LoggingConfig    `yaml:"logging" json:"logging"`
	OCI        OCIConfig        `yaml:"oci" json:"oci"`
	Upstream   UpstreamConfig   `yaml:"upstream" json:"upstream"`
	Credential CredentialConfig `yaml:"credential" json:"credential"`
	Mapping    MappingConfig    `yaml:"mapping" json:"mapping"`
	Auth       AuthConfig       `yaml:"auth" json:"auth"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit" json:"rate_limit"`
	Stats      StatsConfig      `yaml:"stats" json:"stats"`
}

type ServerConfig struct {
	Host                 string   `yaml:"host" json:"host"`
	Port                 int      `yaml:"port" json:"port"`
	BasePath             string   `yaml:"base_path" json:"base_path"`
	H2C                  bool     `yaml:"h2c" json:"h2c"`
	ReadHeaderTimeoutSec int      `yaml:"read_header_timeout_sec" json:"read_header_timeout_sec"`
	ShutdownTimeoutSec   int      `yaml:"shutdown_timeout_sec" json:"shutdown_timeout_sec"`
	CORSAllowedOrigins   []string `yaml:"cors_allowed_origins" json:"cors_allowed_origins"`
}

type LoggingConfig struct {
	Level      string `yaml:"level" json:"level"`
	Debug      bool   `yaml:"debug" json:"debug"`
	File       string `yaml:"file" json:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" json:"max_age_days"`
	Compress   bool   `yaml:"compress" json:"compress"`
}

// OCIConfig locates the Generative AI inference endpoint and the models behind it.
type OCIConfig struct {
	Region         string            `yaml:"region" json:"region"`
	Endpoint       string            `yaml:"endpoint" json:"endpoint"`
	CompartmentID  string            `yaml:"compartment_id" json:"compartment_id"`
	ServingMode    string            `yaml:"serving_mode" json:"serving_mode"`
	EndpointID     string            `yaml:"endpoint_id" json:"endpoint_id"`
	ModelMapping   map[string]string `yaml:"model_mapping" json:"model_mapping"`
	CoherePrefixes []string          `yaml:"cohere_prefixes" json:"cohere_prefixes"`
}

type UpstreamConfig struct {
	Mode                     string `yaml:"mode" json:"mode"`
	RequestTimeoutSec        int    `yaml:"request_timeout_sec" json:"request_timeout_sec"`
	StreamIdleTimeoutSec     int    `yaml:"stream_idle_timeout_sec" json:"stream_idle_timeout_sec"`
	StreamMaxDurationSec     int    `yaml:"stream_max_duration_sec" json:"stream_max_duration_sec"`
	DialTimeoutSec           int    `yaml:"dial_timeout_sec" json:"dial_timeout_sec"`
	TLSHandshakeTimeoutSec   int    `yaml:"tls_handshake_timeout_sec" json:"tls_handshake_timeout_sec"`
	ResponseHeaderTimeoutSec int    `yaml:"response_header_timeout_sec" json:"response_header_timeout_sec"`
	ProxyURL                 string `yaml:"proxy_url" json:"proxy_url"`
	RetryBackoffMS           int    `yaml:"retry_backoff_ms" json:"retry_backoff_ms"`
}

type CredentialConfig struct {
	Mode              string `yaml:"mode" json:"mode"`
	StaticToken       string `yaml:"static_token" json:"static_token"`
	TokenEndpoint     string `yaml:"token_endpoint" json:"token_endpoint"`
	SubjectTokenFile  string `yaml:"subject_token_file" json:"subject_token_file"`
	SafetyMarginSec   int    `yaml:"safety_margin_sec" json:"safety_margin_sec"`
	AcquireTimeoutSec int    `yaml:"acquire_timeout_sec" json:"acquire_timeout_sec"`
	FallbackTTLSec    int    `yaml:"fallback_ttl_sec" json:"fallback_ttl_sec"`
	// KeepWarmSec is the refresh-ahead interval; negative disables it.
	KeepWarmSec int `yaml:"keep_warm_sec" json:"keep_warm_sec"`
}

// MappingConfig tunes the request translation.
type MappingConfig struct {
	StrictParams     bool `yaml:"strict_params" json:"strict_params"`
	DefaultMaxTokens int  `yaml:"default_max_tokens" json:"default_max_tokens"`
	MaxTokensLimit   int  `yaml:"max_tokens_limit" json:"max_tokens_limit"`
}

type AuthConfig struct {
	Enabled             bool     `yaml:"enabled" json:"enabled"`
	APIKeys             []string `yaml:"api_keys" json:"api_keys"`
	APIKeyHashes        []string `yaml:"api_key_hashes" json:"api_key_hashes"`
	RequireOpenAIFormat bool     `yaml:"require_openai_format" json:"require_openai_format"`
	ManagementKey       string   `yaml:"management_key" json:"management_key"`
	ManagementKeyHash   string   `yaml:"management_key_hash" json:"management_key_hash"`
}

type RateLimitConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	RPS     int  `yaml:"rps" json:"rps"`
	Burst   int  `yaml:"burst" json:"burst"`
}

type StatsConfig struct {
	Backend       string `yaml:"backend" json:"backend"`
	RedisAddr     string `yaml:"redis_addr" json:"redis_addr"`
	RedisPassword string `yaml:"redis_password" json:"redis_password"`
	RedisDB       int    `yaml:"redis_db" json:"redis_db"`
	RedisPrefix   string `yaml:"redis_prefix" json:"redis_prefix"`
	PostgresDSN   string `yaml:"postgres_dsn" json:"postgres_dsn"`
	MongoURI      string `yaml:"mongo_uri" json:"mongo_uri"`
	MongoDatabase string `yaml:"mongo_database" json:"mongo_database"`
}

// ChatEndpoint returns the full URL of the OCI chat action.
func (c OCIConfig) ChatEndpoint() string {
	base := strings.TrimRight(strings.TrimSpace(c.Endpoint), "/")
	if base == "" {
		base = "https://inference.generativeai." + c.Region + ".oci.oraclecloud.com"
	}
	return base + "/20231130/actions/chat"
}

func seconds(v int) time.Duration { return time.Duration(v) * time.Second }

func (u UpstreamConfig) RequestTimeout() time.Duration    { return seconds(u.RequestTimeoutSec) }
func (u UpstreamConfig) StreamIdleTimeout() time.Duration { return seconds(u.StreamIdleTimeoutSec) }
func (u UpstreamConfig) StreamMaxDuration() time.Duration { return seconds(u.StreamMaxDurationSec) }
func (u UpstreamConfig) RetryBackoff() time.Duration {
	return time.Duration(u.RetryBackoffMS) * time.Millisecond
}

func (c CredentialConfig) SafetyMargin() time.Duration   { return seconds(c.SafetyMarginSec) }
func (c CredentialConfig) AcquireTimeout() time.Duration { return seconds(c.AcquireTimeoutSec) }
func (c CredentialConfig) FallbackTTL() time.Duration    { return seconds(c.FallbackTTLSec) }

// KeepWarm returns 0 when refresh-ahead is disabled.
func (c CredentialConfig) KeepWarm() time.Duration {
	if c.KeepWarmSec < 0 {
		return 0
	}
	return seconds(c.KeepWarmSec)
}

func (s ServerConfig) ReadHeaderTimeout() time.Duration { return seconds(s.ReadHeaderTimeoutSec) }
func (s ServerConfig) ShutdownTimeout() time.Duration   { return seconds(s.ShutdownTimeoutSec) }

// Clone returns a deep copy so readers of the live config never observe a reload in progress.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	out := *c
	out.Server.CORSAllowedOrigins = append([]string(nil), c.Server.CORSAllowedOrigins...)
	out.OCI.CoherePrefixes = append([]string(nil), c.OCI.CoherePrefixes...)
	if c.OCI.ModelMapping != nil {
		out.OCI.ModelMapping = make(map[string]string, len(c.OCI.ModelMapping))
		for k, v := range c.OCI.ModelMapping {
			out.OCI.ModelMapping[k] = v
		}
	}
	out.Auth.APIKeys = append([]string(nil), c.Auth.APIKeys...)
	out.Auth.APIKeyHashes = append([]string(nil), c.Auth.APIKeyHashes...)
	return &out
}

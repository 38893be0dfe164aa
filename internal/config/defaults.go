package config

import "ocigenai-gateway/internal/constants"

// Default returns a configuration with every optional field populated.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:                 "0.0.0.0",
			Port:                 8080,
			ReadHeaderTimeoutSec: int(constants.ServerReadHeaderTimeout.Seconds()),
			ShutdownTimeoutSec:   int(constants.ServerShutdownTimeout.Seconds()),
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 14,
		},
		OCI: OCIConfig{
			Region:         "us-chicago-1",
			ServingMode:    ServingModeOnDemand,
			CoherePrefixes: []string{"cohere."},
		},
		Upstream: UpstreamConfig{
			Mode:                     UpstreamModeOCI,
			RequestTimeoutSec:        int(constants.UpstreamRequestTimeout.Seconds()),
			StreamIdleTimeoutSec:     int(constants.UpstreamStreamIdleTimeout.Seconds()),
			StreamMaxDurationSec:     int(constants.UpstreamStreamMaxDuration.Seconds()),
			DialTimeoutSec:           int(constants.DefaultDialTimeout.Seconds()),
			TLSHandshakeTimeoutSec:   int(constants.DefaultTLSHandshakeTimeout.Seconds()),
			ResponseHeaderTimeoutSec: int(constants.DefaultResponseHeaderTimeout.Seconds()),
			RetryBackoffMS:           int(constants.TransportRetryBackoff.Milliseconds()),
		},
		Credential: CredentialConfig{
			Mode:              CredentialModeWorkloadIdentity,
			SubjectTokenFile:  "/var/run/secrets/kubernetes.io/serviceaccount/token",
			SafetyMarginSec:   int(constants.CredentialSafetyMargin.Seconds()),
			AcquireTimeoutSec: int(constants.CredentialAcquireTimeout.Seconds()),
			FallbackTTLSec:    int(constants.CredentialFallbackTTL.Seconds()),
			KeepWarmSec:       int(constants.CredentialKeepWarmInterval.Seconds()),
		},
		Mapping: MappingConfig{
			DefaultMaxTokens: 1024,
			MaxTokensLimit:   32000,
		},
		Auth: AuthConfig{
			Enabled:             true,
			RequireOpenAIFormat: true,
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
			RPS:     10,
			Burst:   20,
		},
		Stats: StatsConfig{
			Backend:       StatsBackendMemory,
			RedisPrefix:   "ocigw:",
			MongoDatabase: "ocigw",
		},
	}
}

// fillDefaults backfills zero values left by a partial config file.
func fillDefaults(cfg *Config) {
	def := Default()
	if cfg.Server.Host == "" {
		cfg.Server.Host = def.Server.Host
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = def.Server.Port
	}
	if cfg.Server.ReadHeaderTimeoutSec == 0 {
		cfg.Server.ReadHeaderTimeoutSec = def.Server.ReadHeaderTimeoutSec
	}
	if cfg.Server.ShutdownTimeoutSec == 0 {
		cfg.Server.ShutdownTimeoutSec = def.Server.ShutdownTimeoutSec
	}
	cfg.Server.BasePath = normalizeBasePath(cfg.Server.BasePath)
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = def.Logging.Level
	}
	if cfg.Logging.MaxSizeMB == 0 {
		cfg.Logging.MaxSizeMB = def.Logging.MaxSizeMB
	}
	if cfg.Logging.MaxBackups == 0 {
		cfg.Logging.MaxBackups = def.Logging.MaxBackups
	}
	if cfg.Logging.MaxAgeDays == 0 {
		cfg.Logging.MaxAgeDays = def.Logging.MaxAgeDays
	}
	if cfg.OCI.Region == "" {
		cfg.OCI.Region = def.OCI.Region
	}
	if cfg.OCI.ServingMode == "" {
		cfg.OCI.ServingMode = def.OCI.ServingMode
	}
	if len(cfg.OCI.CoherePrefixes) == 0 {
		cfg.OCI.CoherePrefixes = def.OCI.CoherePrefixes
	}
	if cfg.Upstream.Mode == "" {
		cfg.Upstream.Mode = def.Upstream.Mode
	}
	setIfZero(&cfg.Upstream.RequestTimeoutSec, def.Upstream.RequestTimeoutSec)
	setIfZero(&cfg.Upstream.StreamIdleTimeoutSec, def.Upstream.StreamIdleTimeoutSec)
	setIfZero(&cfg.Upstream.StreamMaxDurationSec, def.Upstream.StreamMaxDurationSec)
	setIfZero(&cfg.Upstream.DialTimeoutSec, def.Upstream.DialTimeoutSec)
	setIfZero(&cfg.Upstream.TLSHandshakeTimeoutSec, def.Upstream.TLSHandshakeTimeoutSec)
	setIfZero(&cfg.Upstream.ResponseHeaderTimeoutSec, def.Upstream.ResponseHeaderTimeoutSec)
	setIfZero(&cfg.Upstream.RetryBackoffMS, def.Upstream.RetryBackoffMS)
	if cfg.Credential.Mode == "" {
		cfg.Credential.Mode = def.Credential.Mode
	}
	if cfg.Credential.SubjectTokenFile == "" {
		cfg.Credential.SubjectTokenFile = def.Credential.SubjectTokenFile
	}
	setIfZero(&cfg.Credential.SafetyMarginSec, def.Credential.SafetyMarginSec)
	setIfZero(&cfg.Credential.AcquireTimeoutSec, def.Credential.AcquireTimeoutSec)
	setIfZero(&cfg.Credential.FallbackTTLSec, def.Credential.FallbackTTLSec)
	setIfZero(&cfg.Credential.KeepWarmSec, def.Credential.KeepWarmSec)
	setIfZero(&cfg.Mapping.DefaultMaxTokens, def.Mapping.DefaultMaxTokens)
	setIfZero(&cfg.Mapping.MaxTokensLimit, def.Mapping.MaxTokensLimit)
	setIfZero(&cfg.RateLimit.RPS, def.RateLimit.RPS)
	setIfZero(&cfg.RateLimit.Burst, def.RateLimit.Burst)
	if cfg.Stats.Backend == "" {
		cfg.Stats.Backend = def.Stats.Backend
	}
	if cfg.Stats.RedisPrefix == "" {
		cfg.Stats.RedisPrefix = def.Stats.RedisPrefix
	}
	if cfg.Stats.MongoDatabase == "" {
		cfg.Stats.MongoDatabase = def.Stats.MongoDatabase
	}
}

func setIfZero(dst *int, v int) {
	if *dst == 0 {
		*dst = v
	}
}

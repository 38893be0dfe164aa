package config

import "strings"

const envPrefix = "OCIGW_"

// applyEnv overlays OCIGW_* environment variables on top of the file configuration.
func applyEnv(cfg *Config) {
	e := func(name string) string { return envPrefix + name }

	setStringFromEnv(e("HOST"), &cfg.Server.Host)
	setIntFromEnv(e("PORT"), func(v int) { cfg.Server.Port = v })
	if v := getenv(e("BASE_PATH"), ""); v != "" {
		cfg.Server.BasePath = normalizeBasePath(v)
	}
	setToggleFromEnv(e("H2C"), func(v bool) { cfg.Server.H2C = v })

	setStringFromEnv(e("LOG_LEVEL"), &cfg.Logging.Level)
	setStringFromEnv(e("LOG_FILE"), &cfg.Logging.File)
	setToggleFromEnv(e("DEBUG"), func(v bool) { cfg.Logging.Debug = v })

	setStringFromEnv(e("REGION"), &cfg.OCI.Region)
	setStringFromEnv(e("ENDPOINT"), &cfg.OCI.Endpoint)
	setStringFromEnv(e("COMPARTMENT_ID"), &cfg.OCI.CompartmentID)
	if v := getenv(e("SERVING_MODE"), ""); v != "" {
		cfg.OCI.ServingMode = strings.ToUpper(strings.TrimSpace(v))
	}
	setStringFromEnv(e("ENDPOINT_ID"), &cfg.OCI.EndpointID)
	// OCIGW_MODEL_MAPPING=alias=model.id,alias2=model.id2
	if v := getenv(e("MODEL_MAPPING"), ""); v != "" {
		mapping := make(map[string]string)
		for _, pair := range splitAndTrim(v, ",") {
			k, val, ok := strings.Cut(pair, "=")
			if ok && strings.TrimSpace(k) != "" && strings.TrimSpace(val) != "" {
				mapping[strings.TrimSpace(k)] = strings.TrimSpace(val)
			}
		}
		cfg.OCI.ModelMapping = mapping
	}

	if v := getenv(e("UPSTREAM_MODE"), ""); v != "" {
		cfg.Upstream.Mode = strings.ToLower(strings.TrimSpace(v))
	}
	setIntFromEnv(e("REQUEST_TIMEOUT_SEC"), func(v int) { cfg.Upstream.RequestTimeoutSec = v })
	setIntFromEnv(e("STREAM_IDLE_TIMEOUT_SEC"), func(v int) { cfg.Upstream.StreamIdleTimeoutSec = v })
	setStringFromEnv(e("PROXY_URL"), &cfg.Upstream.ProxyURL)

	if v := getenv(e("CREDENTIAL_MODE"), ""); v != "" {
		cfg.Credential.Mode = strings.ToLower(strings.TrimSpace(v))
	}
	setStringFromEnv(e("STATIC_TOKEN"), &cfg.Credential.StaticToken)
	setStringFromEnv(e("TOKEN_ENDPOINT"), &cfg.Credential.TokenEndpoint)
	setStringFromEnv(e("SUBJECT_TOKEN_FILE"), &cfg.Credential.SubjectTokenFile)
	setIntFromEnv(e("CREDENTIAL_KEEP_WARM_SEC"), func(v int) { cfg.Credential.KeepWarmSec = v })

	setToggleFromEnv(e("STRICT_PARAMS"), func(v bool) { cfg.Mapping.StrictParams = v })

	setToggleFromEnv(e("AUTH_ENABLED"), func(v bool) { cfg.Auth.Enabled = v })
	if v := getenv(e("API_KEYS"), ""); v != "" {
		cfg.Auth.APIKeys = splitAndTrim(v, ",")
	}
	setStringFromEnv(e("MANAGEMENT_KEY"), &cfg.Auth.ManagementKey)
	setStringFromEnv(e("MANAGEMENT_KEY_HASH"), &cfg.Auth.ManagementKeyHash)

	setToggleFromEnv(e("RATE_LIMIT_ENABLED"), func(v bool) { cfg.RateLimit.Enabled = v })
	setIntFromEnv(e("RATE_LIMIT_RPS"), func(v int) { cfg.RateLimit.RPS = v })
	setIntFromEnv(e("RATE_LIMIT_BURST"), func(v int) { cfg.RateLimit.Burst = v })

	if v := getenv(e("STATS_BACKEND"), ""); v != "" {
		cfg.Stats.Backend = strings.ToLower(strings.TrimSpace(v))
	}
	setStringFromEnv(e("REDIS_ADDR"), &cfg.Stats.RedisAddr)
	setStringFromEnv(e("REDIS_PASSWORD"), &cfg.Stats.RedisPassword)
	setIntFromEnv(e("REDIS_DB"), func(v int) { cfg.Stats.RedisDB = v })
	setStringFromEnv(e("POSTGRES_DSN"), &cfg.Stats.PostgresDSN)
	setStringFromEnv(e("MONGO_URI"), &cfg.Stats.MongoURI)
	setStringFromEnv(e("MONGO_DATABASE"), &cfg.Stats.MongoDatabase)
}

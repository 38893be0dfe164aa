package config

import "golang.org/x/crypto/bcrypt"

// CheckManagementKey verifies whether the provided key matches the configured management credential.
func CheckManagementKey(cfg *Config, candidate string) bool {
	if cfg == nil || candidate == "" {
		return false
	}
	if cfg.Auth.ManagementKey != "" && candidate == cfg.Auth.ManagementKey {
		return true
	}
	if cfg.Auth.ManagementKeyHash != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(cfg.Auth.ManagementKeyHash), []byte(candidate)); err == nil {
			return true
		}
	}
	return false
}

// CheckClientKey reports whether candidate is one of the configured client API keys,
// either verbatim or against a bcrypt hash.
func CheckClientKey(cfg *Config, candidate string) bool {
	if cfg == nil || candidate == "" {
		return false
	}
	for _, k := range cfg.Auth.APIKeys {
		if k == candidate {
			return true
		}
	}
	for _, h := range cfg.Auth.APIKeyHashes {
		if bcrypt.CompareHashAndPassword([]byte(h), []byte(candidate)) == nil {
			return true
		}
	}
	return false
}

// HasClientKeys reports whether any client key or key hash is configured.
func HasClientKeys(cfg *Config) bool {
	return cfg != nil && (len(cfg.Auth.APIKeys) > 0 || len(cfg.Auth.APIKeyHashes) > 0)
}

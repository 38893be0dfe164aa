package constants

import "time"

const (
	// UpstreamRequestTimeout bounds one non-streaming chat call end to end.
	UpstreamRequestTimeout = 120 * time.Second
	// UpstreamStreamIdleTimeout is the longest gap allowed between two upstream stream events.
	UpstreamStreamIdleTimeout = 45 * time.Second
	// UpstreamStreamMaxDuration caps a whole streaming relay.
	UpstreamStreamMaxDuration = 30 * time.Minute
	// CredentialAcquireTimeout bounds a single credential acquisition, retry included.
	CredentialAcquireTimeout = 10 * time.Second
	// CredentialSafetyMargin is subtracted from the token expiry before it is considered stale.
	CredentialSafetyMargin = 3 * time.Minute
	// CredentialFallbackTTL applies when the identity provider reports no expiry.
	CredentialFallbackTTL = 15 * time.Minute
	// CredentialKeepWarmInterval is how often the background task checks the cached credential.
	CredentialKeepWarmInterval = time.Minute
	// ServerShutdownTimeout bounds graceful HTTP server shutdown.
	ServerShutdownTimeout = 30 * time.Second
	// ServerReadHeaderTimeout guards against slow clients.
	ServerReadHeaderTimeout = 10 * time.Second
)

package constants

import "time"

const (
	// TransportRetryAttempts is the number of extra attempts after a transient transport failure.
	TransportRetryAttempts = 1
	// TransportRetryBackoff is the pause before the transport retry.
	TransportRetryBackoff = 250 * time.Millisecond
	// CredentialRetryAttempts is the number of immediate retries after a failed acquisition.
	CredentialRetryAttempts = 1
)

const (
	// MaxErrorMessageLength truncates upstream messages that are surfaced to clients.
	MaxErrorMessageLength = 300
)

package constants

const (
	// SSEScannerInitialBufferSize defines the initial buffer for SSE scanners (64KB).
	SSEScannerInitialBufferSize = 64 * 1024
	// SSEScannerMaxBufferSize defines the max buffer size for SSE scanners (4MB).
	SSEScannerMaxBufferSize = 4 * 1024 * 1024
	// MaxUpstreamErrorBody caps how much of an upstream error body is read.
	MaxUpstreamErrorBody = 64 * 1024
	// MaxRequestBodySize caps client request bodies; inline images make them large (16MB).
	MaxRequestBodySize = 16 * 1024 * 1024
)

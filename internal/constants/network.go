package constants

import "time"

// Upstream HTTP client connection pool.
const (
	BaseMaxIdleConns        = 512
	BaseMaxIdleConnsPerHost = 128
	BaseIdleConnTimeout     = 90 * time.Second
	DefaultKeepAlive        = 30 * time.Second
)

// Upstream HTTP client timeouts.
const (
	DefaultDialTimeout           = 10 * time.Second
	DefaultTLSHandshakeTimeout   = 10 * time.Second
	DefaultResponseHeaderTimeout = 60 * time.Second
	DefaultExpectContinueTimeout = 2 * time.Second
)

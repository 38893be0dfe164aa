package constants

// Version information (injected at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// ServiceName identifies the gateway in traces, metrics and user agents.
const ServiceName = "ocigenai-gateway"

// GetFullVersion returns the version string printed by the CLI.
func GetFullVersion() string {
	return Version + " (" + GitCommit + ") built at " + BuildTime
}

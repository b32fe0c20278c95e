// Package version holds build information injected with -ldflags -X.
package version

var (
	Version    = "dev"
	CommitHash = "unknown"
	BuildDate  = "unknown"
)

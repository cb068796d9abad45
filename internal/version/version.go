package version

import "fmt"

var (
	// Version is set at build time via -ldflags "-X ingest/internal/version.Version=..."
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func String() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime)
}

// Short returns the bare version tag reported by the health endpoint.
func Short() string {
	return Version
}

package version

import (
	"fmt"
	"runtime"
)

// Name is the program name used in logs and the User-Agent header.
const Name = "fileflows-bridge"

// Build information, set via ldflags:
//
//	-X github.com/frostdev-ops/fileflows-bridge/pkg/version.Version=1.2.0
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains all build-related information
type BuildInfo struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

// GetVersion returns the version, tagging dev builds with the short commit.
func GetVersion() string {
	if Version != "dev" {
		return Version
	}
	switch {
	case len(GitCommit) >= 8:
		return "dev-" + GitCommit[:8]
	case GitCommit != "":
		return "dev-" + GitCommit
	default:
		return "dev-unknown"
	}
}

// GetFullVersion returns a detailed version string
func GetFullVersion() string {
	return fmt.Sprintf("%s %s (commit: %s, built: %s, go: %s)",
		Name, GetVersion(), GitCommit, BuildDate, GoVersion)
}

// GetBuildInfo returns all build information
func GetBuildInfo() *BuildInfo {
	return &BuildInfo{
		Name:      Name,
		Version:   GetVersion(),
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: GoVersion,
	}
}

// UserAgent is sent with every request to FileFlows.
func UserAgent() string {
	return Name + "/" + GetVersion()
}

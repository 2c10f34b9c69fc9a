// Package version holds build metadata set via ldflags:
//
//	go build -ldflags "-X git.home.luguber.info/inful/pagefactory/internal/version.Version=v1.0.0"
package version

import "fmt"

var Version = "unknown"

var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String renders the metadata for --version.
func String() string {
	if GitCommit == "unknown" && BuildTime == "unknown" {
		return Version
	}
	return fmt.Sprintf("%s (commit %s, built %s)", Version, GitCommit, BuildTime)
}

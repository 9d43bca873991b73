// Package version carries build metadata stamped at link time:
//
//	go build -ldflags "-X git.home.luguber.info/inful/docexport/internal/version.Version=v0.3.0"
package version

import (
	"fmt"
	"runtime/debug"
)

// Version is the release version.
var Version = "unknown"

// Build metadata.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String returns a one-line description for --version output. A missing
// commit stamp is filled from the embedded VCS info when available.
func String() string {
	commit := GitCommit
	if commit == "unknown" {
		if info, ok := debug.ReadBuildInfo(); ok {
			for _, s := range info.Settings {
				if s.Key == "vcs.revision" && s.Value != "" {
					commit = s.Value
				}
			}
		}
	}
	if len(commit) > 12 {
		commit = commit[:12]
	}
	return fmt.Sprintf("docexport %s (commit %s, built %s)", Version, commit, BuildTime)
}

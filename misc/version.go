// Package misc holds program identification set at build time.
package misc

import (
	"runtime/debug"
)

// Set with -ldflags "-X gbook/misc.version=... -X gbook/misc.gitHash=...".
var (
	appName = "gbook"
	version = "dev"
	gitHash = ""
)

func GetAppName() string {
	return appName
}

func GetVersion() string {
	return version
}

// GetGitHash returns commit program was built from, falls back to VCS
// information recorded by go build.
func GetGitHash() string {
	if gitHash != "" {
		return gitHash
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" {
				return s.Value
			}
		}
	}
	return "unknown"
}

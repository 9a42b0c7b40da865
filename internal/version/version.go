// Package version reports the build identifier shown by the CLI and the
// /api/version endpoint.
package version

import (
	"runtime/debug"
	"strings"
)

// Fallback is reported when no revision is known.
const Fallback = "Local/Dev"

const shortHashLength = 7

// Commit can be set at link time:
//
//	go build -ldflags "-X 'permanentes/internal/version.Commit=abc1234'"
var Commit = ""

// String returns the short commit hash of the build, or Fallback.
func String() string {
	if commit := strings.TrimSpace(Commit); commit != "" {
		return shorten(commit)
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return Fallback
	}
	return fromSettings(info.Settings)
}

func fromSettings(settings []debug.BuildSetting) string {
	revision := ""
	dirty := false
	for _, setting := range settings {
		switch setting.Key {
		case "vcs.revision":
			revision = strings.TrimSpace(setting.Value)
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}
	if revision == "" {
		return Fallback
	}
	revision = shorten(revision)
	if dirty {
		revision += "-dirty"
	}
	return revision
}

func shorten(commit string) string {
	if len(commit) > shortHashLength {
		return commit[:shortHashLength]
	}
	return commit
}

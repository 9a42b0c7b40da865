package version

import (
	"runtime/debug"
	"testing"
)

func TestFromSettings(t *testing.T) {
	tests := []struct {
		name     string
		settings []debug.BuildSetting
		want     string
	}{
		{"no vcs", nil, Fallback},
		{"clean", []debug.BuildSetting{{Key: "vcs.revision", Value: "0123456789abcdef"}}, "0123456"},
		{"dirty", []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef"},
			{Key: "vcs.modified", Value: "true"},
		}, "0123456-dirty"},
		{"short", []debug.BuildSetting{{Key: "vcs.revision", Value: "abc"}}, "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fromSettings(tt.settings); got != tt.want {
				t.Fatalf("fromSettings() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStringPrefersLinkedCommit(t *testing.T) {
	prev := Commit
	t.Cleanup(func() { Commit = prev })
	Commit = "feedfacecafe"
	if got := String(); got != "feedfac" {
		t.Fatalf("String() = %q", got)
	}
}

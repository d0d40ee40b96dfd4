// Package version reports build metadata for the agentcore binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Overridden with -ldflags "-X github.com/soyeahso/agentcore/internal/version.Version=1.0.0"
// (likewise Commit and Date) by the release build.
var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

// Build is the resolved metadata for the running binary.
type Build struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	Modified  bool   `json:"modified,omitempty"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
}

var readBuildInfo = debug.ReadBuildInfo

// Get merges the ldflags values with the VCS stamps Go embeds in module
// builds. ldflags win when both are present.
func Get() Build {
	b := Build{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if info, ok := readBuildInfo(); ok {
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if b.Commit == "" {
					b.Commit = s.Value
				}
			case "vcs.time":
				if b.Date == "" {
					b.Date = s.Value
				}
			case "vcs.modified":
				b.Modified = s.Value == "true"
			}
		}
	}
	if b.Commit == "" {
		b.Commit = "unknown"
	}
	if b.Date == "" {
		b.Date = "unknown"
	}
	return b
}

// ShortCommit is the first seven characters of the commit hash.
func (b Build) ShortCommit() string {
	c := b.Commit
	if len(c) > 7 {
		c = c[:7]
	}
	if b.Modified {
		c += "-dirty"
	}
	return c
}

func (b Build) String() string {
	return fmt.Sprintf("agentcore %s (commit: %s, built: %s, %s, %s)",
		b.Version, b.ShortCommit(), b.Date, b.GoVersion, b.Platform)
}

// Info returns a one-line description of the running binary.
func Info() string {
	return Get().String()
}

// UserAgent is sent on outbound HTTP calls.
func UserAgent() string {
	return "agentcore/" + Version
}

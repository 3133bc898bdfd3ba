// Package version holds build information set through -ldflags, e.g.
//
//	go build -ldflags "-X github.com/longkey1/chatmem/internal/version.Version=v1.0.0"
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	Version   = "dev"
	CommitSHA = "unknown"
	BuildTime = "unknown"
)

// Short returns only the version number.
func Short() string {
	return resolved().version
}

// Info returns version, commit, build time and Go version.
func Info() string {
	b := resolved()
	return fmt.Sprintf("Version: %s\nCommit: %s\nBuild Time: %s\nGo Version: %s",
		b.version, b.commit, b.time, runtime.Version())
}

type build struct {
	version string
	commit  string
	time    string
}

// resolved falls back to the module build info when ldflags were not set,
// as with go install.
func resolved() build {
	b := build{version: Version, commit: CommitSHA, time: BuildTime}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return b
	}
	if b.version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		b.version = info.Main.Version
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if b.commit == "unknown" {
				b.commit = s.Value
			}
		case "vcs.time":
			if b.time == "unknown" {
				b.time = s.Value
			}
		}
	}
	return b
}

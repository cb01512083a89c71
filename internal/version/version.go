// Package version reports the arbiter build version for logs, receipts and
// trace resources.
package version

import (
	"runtime/debug"
)

// Version is stamped at link time:
//
//	go build -ldflags "-X github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/version.Version=v1.0.0"
var Version = ""

// Swappable for testing
var readBuildInfo = debug.ReadBuildInfo

// BuildVersion returns the stamped version, then the module version, then "dev".
func BuildVersion() string {
	if Version != "" {
		return Version
	}
	info, ok := readBuildInfo()
	if !ok {
		return "dev"
	}
	if info.Main.Version == "" || info.Main.Version == "(devel)" {
		return "dev"
	}
	return info.Main.Version
}

// Revision returns the short VCS revision, with a "-dirty" suffix for
// modified trees, or "" when the binary carries no VCS info.
func Revision() string {
	info, ok := readBuildInfo()
	if !ok {
		return ""
	}
	var rev string
	var dirty bool
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if len(rev) > 12 {
		rev = rev[:12]
	}
	if rev != "" && dirty {
		rev += "-dirty"
	}
	return rev
}

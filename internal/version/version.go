// Package version holds the build-time version string shared by the
// firmware library's startup banner and the monitor CLI's --version flag.
package version

import "fmt"

// Version is the dmlog protocol/tooling version. Override at link time with
// -ldflags "-X github.com/choco-technologies/dmlog/internal/version.Version=...".
var Version = "0.1.0-dev"

// String returns the bare version string.
func String() string {
	return Version
}

// Banner returns the line firmware emits as the first entry in a freshly
// created output ring (spec.md §3.5). The CLI's --version uses String.
func Banner() string {
	return fmt.Sprintf("dmlog %s\n", Version)
}

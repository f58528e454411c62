// Package version exposes ralphd's build version.
package version

// Version is the release version, overridden at build time via
// -ldflags "-X github.com/ShayCichocki/ralphd/internal/version.Version=...".
var Version = "0.1.0-dev"

// Get returns the current version.
func Get() string {
	return Version
}

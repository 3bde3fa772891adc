// Package sqlanalyst provides the version information for the analyst server.
package sqlanalyst

// Version is the current release.
const Version = "0.3.0"

// GetVersion returns the current version string.
func GetVersion() string {
	return Version
}

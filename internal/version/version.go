// Package version carries build information, overridden via -ldflags.
package version

var (
	// Version is the semantic version of the inspector.
	Version = "dev"
	// Commit is the git commit the binary was built from.
	Commit = "none"
	// BuildDate is the build time in RFC 3339.
	BuildDate = "unknown"
)

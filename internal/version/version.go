// Package version exposes build metadata injected via -ldflags.
package version

// Values are overridden at build time, e.g.
// -ldflags "-X github.com/doeshing/triage-go/internal/version.Version=v0.3.0".
var (
	Version   = "dev"
	Commit    = ""
	BuildDate = ""
)

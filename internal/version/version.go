package version

// Version is the current release, overridden at build time with
// -ldflags "-X github.com/meshcall/meshcall/internal/version.Version=...".
var Version = "v0.1.0"

package version

// Version is the current version of the Shuffle & Sync CLI.
// This value can be overridden at build time using:
//   go build -ldflags="-X 'github.com/Shuffle-and-Sync/shufflesync-cli/internal/version.Version=v1.0.0'"
var Version = "dev"

package version

// Version is the current version of the fool CLI.
// This value can be overridden at build time using:
//
//	go build -ldflags="-X 'github.com/dodomondo0/fool-p2p-app/internal/version.Version=v1.0.0'"
var Version = "dev"

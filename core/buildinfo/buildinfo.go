// Package buildinfo carries version metadata injected at link time:
//
//	go build -ldflags "-X 'github.com/m3rciful/tubebot/core/buildinfo.Version=v0.3.0' \
//	  -X 'github.com/m3rciful/tubebot/core/buildinfo.Commit=$(git rev-parse --short HEAD)' \
//	  -X 'github.com/m3rciful/tubebot/core/buildinfo.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)'"
package buildinfo

var (
	// Version reports the semantic version or tag of the build.
	Version = "dev"
	// Commit reports the source control commit used for the build.
	Commit = "local"
	// Date reports the build timestamp in RFC3339 format.
	Date = ""
)

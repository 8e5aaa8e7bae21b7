// Package version holds build-time version information for the catalograg
// binary. The variables are populated via -ldflags:
//
//	go build -ldflags="-X github.com/54b3r/catalograg-go/internal/version.Version=v1.2.3 \
//	                    -X github.com/54b3r/catalograg-go/internal/version.Commit=abc1234 \
//	                    -X github.com/54b3r/catalograg-go/internal/version.BuildDate=2026-01-01"
//
// Without ldflags (e.g. `go run`) the values fall back to readable defaults.
package version

import "fmt"

// Version is the semantic version of the binary (e.g. "v1.2.3").
var Version = "dev"

// Commit is the short git SHA of the commit the binary was built from.
var Commit = "unknown"

// BuildDate is the UTC date the binary was built (RFC3339 format).
var BuildDate = "unknown"

// String renders the version line printed by `catalograg version` and logged
// at server start.
func String() string {
	return fmt.Sprintf("catalograg %s (commit %s, built %s)", Version, Commit, BuildDate)
}

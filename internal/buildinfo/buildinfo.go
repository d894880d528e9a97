// Package buildinfo exposes the service's build metadata for the /version
// endpoint and for stamping envelope sources.
package buildinfo

import (
	"os"
	"time"
)

// Overridable at build time:
//
//	go build -ldflags "-X github.com/wraiths/core/internal/buildinfo.Commit=$(git rev-parse --short HEAD)"
var (
	Service   = "wraiths-core"
	Version   = "1.0.0"
	Commit    = ""
	Branch    = ""
	BuildTime = ""
)

// Info is the /version response body.
type Info struct {
	Service     string `json:"service"`
	Version     string `json:"version"`
	Commit      string `json:"commit,omitempty"`
	Branch      string `json:"branch,omitempty"`
	BuildTime   string `json:"build_time"`
	Environment string `json:"environment"`
}

// Get resolves build metadata, falling back to GIT_COMMIT/GIT_BRANCH
// environment variables when the ldflags values were not stamped.
func Get(environment string) Info {
	commit := Commit
	if commit == "" {
		commit = os.Getenv("GIT_COMMIT")
	}
	branch := Branch
	if branch == "" {
		branch = os.Getenv("GIT_BRANCH")
	}
	buildTime := BuildTime
	if buildTime == "" {
		buildTime = time.Now().UTC().Format(time.RFC3339)
	}
	return Info{
		Service:     Service,
		Version:     Version,
		Commit:      commit,
		Branch:      branch,
		BuildTime:   buildTime,
		Environment: environment,
	}
}

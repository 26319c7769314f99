// Package version reports how the afyadmin binary was built.
//
// Release builds stamp the variables below:
//
//	go build -ldflags "-X github.com/afyamkononi/afyadmin/internal/version.Version=v1.4.0 \
//	  -X github.com/afyamkononi/afyadmin/internal/version.Commit=$(git rev-parse HEAD) \
//	  -X github.com/afyamkononi/afyadmin/internal/version.Date=$(date -u +%FT%TZ)" ./cmd/afyadmin
//
// Unstamped binaries fall back to what the Go toolchain recorded.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

const unset = "unknown"

// Stamped by -ldflags.
var (
	Version = "dev"
	Commit  = unset
	Date    = unset
)

// Info describes the running console build.
type Info struct {
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit" yaml:"commit"`
	Date      string `json:"date" yaml:"date"`
	Module    string `json:"module,omitempty" yaml:"module,omitempty"`
	GoVersion string `json:"go_version" yaml:"go_version"`
	Platform  string `json:"platform" yaml:"platform"`
}

// GetInfo merges the stamped values with the build info embedded by the
// toolchain: `go install module@version` supplies the version and a build from
// a git checkout supplies the revision and its time.
func GetInfo() Info {
	info := Info{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	return fromBuildInfo(info, bi)
}

func fromBuildInfo(info Info, bi *debug.BuildInfo) Info {
	info.Module = bi.Main.Path
	if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == unset {
				info.Commit = s.Value
			}
		case "vcs.time":
			if info.Date == unset {
				info.Date = s.Value
			}
		}
	}
	return info
}

func (i Info) String() string {
	commit := i.Commit
	if len(commit) > 8 {
		commit = commit[:8]
	}
	return fmt.Sprintf("afyadmin %s (%s) built %s with %s for %s",
		i.Version, commit, i.Date, i.GoVersion, i.Platform)
}

// Short is the version alone, as sent in the User-Agent and probe bodies.
func (i Info) Short() string {
	return i.Version
}

// SPDX-License-Identifier: MIT
//
// Package build exposes the name, build time, commit and version stamped into
// the binary with -ldflags, for example:
//
//	go build -ldflags "-X wsconsole/pkg/build.buildVersion=v0.3.0 ..."
//
// Unstamped development builds report "dev" and keep working.
package build

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

const devValue = "dev"

type Info struct {
	Name    string
	Time    string
	Commit  string
	Version string
}

// String is the one-line form used for --version.
func (i *Info) String() string {
	commit := i.Commit
	if len(commit) > 7 {
		commit = commit[:7]
	}
	return fmt.Sprintf("%s (commit %s, built %s)", i.Version, commit, i.Time)
}

// Stamped reports whether every field came from the linker.
func (i *Info) Stamped() bool {
	return i.Name != devValue && i.Time != devValue &&
		i.Commit != devValue && i.Version != devValue
}

var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildInfo    = defaultInfo()
)

func defaultInfo() *Info {
	return &Info{
		Name:    "wsconsole",
		Time:    devValue,
		Commit:  devValue,
		Version: devValue,
	}
}

// Initialize copies the linker-provided values into the Info returned by
// GetBuildFlags. Missing values keep their defaults and are reported
// together in the returned error so callers can warn and continue.
func Initialize() error {
	var missing []string
	set := func(dst *string, src, flag string) {
		if src == "" {
			missing = append(missing, flag)
			return
		}
		*dst = src
	}

	set(&buildInfo.Name, buildName, "buildName")
	set(&buildInfo.Time, buildTime, "buildTime")
	set(&buildInfo.Commit, buildCommit, "buildCommit")
	set(&buildInfo.Version, buildVersion, "buildVersion")

	if len(missing) > 0 {
		return errors.Errorf("build flags not stamped: %s", strings.Join(missing, ", "))
	}
	return nil
}

// GetBuildFlags returns the current build information.
func GetBuildFlags() *Info {
	return buildInfo
}

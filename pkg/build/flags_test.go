// SPDX-License-Identifier: MIT
package build

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

var (
	origName    string
	origTime    string
	origCommit  string
	origVersion string
	origInfo    Info
)

func TestMain(m *testing.M) {
	origName = buildName
	origTime = buildTime
	origCommit = buildCommit
	origVersion = buildVersion
	origInfo = *buildInfo

	exitCode := m.Run()

	buildName = origName
	buildTime = origTime
	buildCommit = origCommit
	buildVersion = origVersion
	*buildInfo = origInfo

	os.Exit(exitCode)
}

func TestInitialize(t *testing.T) {
	tests := []struct {
		name        string
		buildName   string
		buildTime   string
		buildCommit string
		buildVer    string
		wantErrMsg  string
		want        Info
	}{
		{
			"Unstamped",
			"", "", "", "",
			"build flags not stamped: buildName, buildTime, buildCommit, buildVersion",
			Info{Name: "wsconsole", Time: devValue, Commit: devValue, Version: devValue},
		},
		{
			"Missing BuildCommit",
			"wsconsole", "2026-01-02", "", "v0.3.0",
			"build flags not stamped: buildCommit",
			Info{Name: "wsconsole", Time: "2026-01-02", Commit: devValue, Version: "v0.3.0"},
		},
		{
			"Success Case",
			"wsc", "2026-01-02", "abcdef1234", "v0.3.0",
			"",
			Info{Name: "wsc", Time: "2026-01-02", Commit: "abcdef1234", Version: "v0.3.0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buildInfo = defaultInfo()
			buildName = tt.buildName
			buildTime = tt.buildTime
			buildCommit = tt.buildCommit
			buildVersion = tt.buildVer

			err := Initialize()

			if tt.wantErrMsg != "" {
				assert.EqualError(t, err, tt.wantErrMsg)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, *GetBuildFlags())
			assert.Equal(t, tt.wantErrMsg == "", GetBuildFlags().Stamped())
		})
	}
}

func TestInfoString(t *testing.T) {
	i := &Info{Name: "wsc", Time: "2026-01-02", Commit: "abcdef1234", Version: "v0.3.0"}
	assert.Equal(t, "v0.3.0 (commit abcdef1, built 2026-01-02)", i.String())

	assert.Equal(t, "dev (commit dev, built dev)", defaultInfo().String())
}

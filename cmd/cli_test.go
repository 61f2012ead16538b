// SPDX-License-Identifier: MIT
package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		check func(t *testing.T, o *Options)
	}{
		{
			"listen with flags",
			[]string{"listen", "--addr", ":9000", "-p", "/debug", "-l", "debug", "--relay"},
			func(t *testing.T, o *Options) {
				assert.Equal(t, CommandListen, o.Command)
				assert.True(t, o.Relay)
				assert.Equal(t, ":9000", o.Addr)
				assert.Equal(t, "/debug", o.Path)
				assert.Equal(t, "debug", o.LogLevel)
			},
		},
		{
			"send messages",
			[]string{"send", "-u", "ws://host/", "hello", "world", "--force"},
			func(t *testing.T, o *Options) {
				assert.Equal(t, CommandSend, o.Command)
				assert.Equal(t, "ws://host/", o.URL)
				assert.Equal(t, []string{"hello", "world"}, o.Messages)
				assert.False(t, o.ReadStdin)
				assert.True(t, o.Force)
				assert.Equal(t, 2*time.Second, o.WaitForID)
			},
		},
		{
			"send from stdin",
			[]string{"send", "--dry-run", "--wait", "0s", "-c", "x.yaml"},
			func(t *testing.T, o *Options) {
				assert.True(t, o.ReadStdin)
				assert.True(t, o.DryRun)
				assert.Zero(t, o.WaitForID)
				assert.Equal(t, "x.yaml", o.ConfigPath)
			},
		},
		{
			"no command",
			[]string{},
			func(t *testing.T, o *Options) {
				assert.Empty(t, o.Command)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, err := parseArgs(tt.args)
			require.NoError(t, err)
			tt.check(t, o)
		})
	}
}

func TestParseArgs_Errors(t *testing.T) {
	_, err := parseArgs([]string{"listen", "extra"})
	assert.Error(t, err)

	_, err = parseArgs([]string{"bogus"})
	assert.Error(t, err)
}

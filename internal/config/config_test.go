package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aws/chroot-teardown/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chroot-teardown.conf")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestResolve_Defaults(t *testing.T) {
	opts, err := config.Resolve(config.Options{}, filepath.Join(t.TempDir(), "missing.conf"))
	require.NoError(t, err)
	assert.Equal(t, config.Defaults(), opts)
	assert.True(t, opts.Escalates())
}

func TestResolve_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[unmount]
chroots = /srv/chroots
tries = 3
interval = 250ms
signal = sigkill
yes = true
core_marker = MY_CORE
`)

	opts, err := config.Resolve(config.Options{}, path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/chroots", opts.ChrootsDir)
	assert.Equal(t, 3, opts.Tries)
	assert.Equal(t, 250*time.Millisecond, opts.Interval)
	assert.Equal(t, config.SignalKill, opts.Signal)
	assert.True(t, opts.Yes)
	assert.False(t, opts.Lazy)
	assert.Equal(t, "MY_CORE", opts.CoreMarker)
}

func TestResolve_FlagsOverrideFile(t *testing.T) {
	path := writeConfig(t, `
[unmount]
chroots = /srv/chroots
tries = 3
`)

	opts, err := config.Resolve(config.Options{ChrootsDir: "/tmp/chroots", Tries: config.Unlimited}, path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/chroots", opts.ChrootsDir)
	assert.Equal(t, config.Unlimited, opts.Tries)
	assert.False(t, opts.Escalates())
	assert.Equal(t, config.SignalTerm, opts.Signal)
}

func TestResolve_InvalidFileValue(t *testing.T) {
	path := writeConfig(t, `
[unmount]
tries = many
`)

	_, err := config.Resolve(config.Options{}, path)
	assert.ErrorContains(t, err, "parsing tries")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Options)
		wantErr string
	}{
		{name: "defaults"},
		{name: "unlimited tries", mutate: func(o *config.Options) { o.Tries = config.Unlimited }},
		{name: "negative tries", mutate: func(o *config.Options) { o.Tries = -4 }, wantErr: "invalid tries"},
		{name: "zero interval", mutate: func(o *config.Options) { o.Interval = 0 }, wantErr: "invalid interval"},
		{name: "unknown signal", mutate: func(o *config.Options) { o.Signal = "HUP" }, wantErr: "invalid signal"},
		{name: "empty chroots dir", mutate: func(o *config.Options) { o.ChrootsDir = "" }, wantErr: "chroots directory"},
		{name: "marker with equals", mutate: func(o *config.Options) { o.CoreMarker = "A=B" }, wantErr: "invalid core marker"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			opts := config.Defaults()
			if tc.mutate != nil {
				tc.mutate(&opts)
			}
			err := opts.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tc.wantErr)
			}
		})
	}
}

func TestNormalizeSignal(t *testing.T) {
	assert.Equal(t, "TERM", config.NormalizeSignal(" sigterm "))
	assert.Equal(t, "KILL", config.NormalizeSignal("KILL"))
}

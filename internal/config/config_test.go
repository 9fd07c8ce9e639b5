package config

import (
	"flag"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadArgs_Defaults(t *testing.T) {
	cfg, err := LoadArgs(flag.NewFlagSet("test", flag.ContinueOnError), nil)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
	assert.Equal(t, 30*time.Second, cfg.FetchInterval)
	assert.Equal(t, 10000, cfg.BloomThreshold)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Empty(t, cfg.Patterns)
	assert.False(t, cfg.Verbose)
}

func TestLoadArgs_Flags(t *testing.T) {
	cfg, err := LoadArgs(flag.NewFlagSet("test", flag.ContinueOnError), []string{
		"-patterns", " /a/b, /a/{id} ,,/x/*",
		"-fetch-interval", "5",
		"-verbose",
		"-max-conns", "64",
		"-controller-insecure",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"/a/b", "/a/{id}", "/x/*"}, cfg.Patterns)
	assert.Equal(t, 5*time.Second, cfg.FetchInterval)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, 64, cfg.MaxConns)
	assert.True(t, cfg.Insecure)
}

func TestLoadArgs_BadFlags(t *testing.T) {
	for _, args := range [][]string{
		{"-no-such-flag"},
		{"-max-conns", "many"},
	} {
		fs := flag.NewFlagSet("test", flag.ContinueOnError)
		fs.SetOutput(io.Discard)

		_, err := LoadArgs(fs, args)
		assert.Error(t, err, "%v", args)
	}
}

func TestLoadArgs_Env(t *testing.T) {
	t.Setenv("WEBMON_LISTEN", ":18080")
	t.Setenv("WEBMON_VERBOSE", "true")
	t.Setenv("WEBMON_FETCH_INTERVAL", "not-a-number")
	t.Setenv("WEBMON_PATTERNS_FILE", "/etc/webmon/patterns.yaml")

	cfg, err := LoadArgs(flag.NewFlagSet("test", flag.ContinueOnError), []string{"-metrics", ":19090"})
	require.NoError(t, err)

	assert.Equal(t, ":18080", cfg.ListenAddr)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, 30*time.Second, cfg.FetchInterval)
	assert.Equal(t, "/etc/webmon/patterns.yaml", cfg.PatternsFile)
	assert.Equal(t, ":19090", cfg.MetricsAddr)
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OTELL_CONFIG", "")
	cfg, err := Load("", nil)
	require.NoError(t, err)

	require.Equal(t, "otell.duckdb", cfg.DBPath)
	require.Equal(t, 24*time.Hour, cfg.RetentionTTL)
	require.Equal(t, int64(2*1024*1024*1024), cfg.RetentionMaxBytes)
	require.Equal(t, 2048, cfg.WriteBatchSize)
	require.Equal(t, 200, cfg.WriteFlushMs)
	require.Equal(t, 2*time.Second, cfg.EnqueueTimeout)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	t.Setenv("OTELL_DB_PATH", "/tmp/custom.duckdb")
	t.Setenv("OTELL_RETENTION_TTL", "7d")

	cfg, err := Load("", nil)
	require.NoError(t, err)

	require.Equal(t, "/tmp/custom.duckdb", cfg.DBPath)
	require.Equal(t, 7*24*time.Hour, cfg.RetentionTTL)
}

func TestParseHumanDuration(t *testing.T) {
	cases := map[string]time.Duration{
		"200ms": 200 * time.Millisecond,
		"5s":    5 * time.Second,
		"1h":    time.Hour,
		"7d":    7 * 24 * time.Hour,
	}
	for in, want := range cases {
		got, err := ParseHumanDuration(in)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	_, err := ParseHumanDuration("")
	require.Error(t, err)
}

func TestParseBytes(t *testing.T) {
	cases := map[string]int64{
		"2GiB":  2 * (1 << 30),
		"512MB": 512 * 1e6,
		"1024":  1024,
	}
	for in, want := range cases {
		got, err := ParseBytes(in)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

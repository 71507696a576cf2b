package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 6, cfg.Zone.Precision)
	assert.Equal(t, 10.0, cfg.Messages.SpeedLimitMPH)
	assert.Equal(t, 5, cfg.Messages.ShortFilterLen)
	assert.Equal(t, 30*time.Second, cfg.Presence.StaleTimeout())
	assert.Equal(t, 5*time.Second, cfg.Presence.SweepInterval())
	assert.Equal(t, 10*time.Second, cfg.Server.WriteTimeout())
	assert.Equal(t, time.Hour, cfg.Messages.HistoryTTL())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zonecast.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[zone]
precision = 7

[presence]
stale_timeout_secs = 60

[messages]
speed_limit_mph = 20.0
filtered_words = ["foo"]
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Zone.Precision)
	assert.Equal(t, time.Minute, cfg.Presence.StaleTimeout())
	assert.Equal(t, 20.0, cfg.Messages.SpeedLimitMPH)
	assert.Equal(t, []string{"foo"}, cfg.Messages.FilteredWords)

	// untouched sections keep their defaults
	assert.Equal(t, 5, cfg.Presence.SweepIntervalSecs)
	assert.Equal(t, "0.0.0.0:9090", cfg.Server.BindAddress)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/does/not/exist.toml")
	assert.Error(t, err)
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("not toml ==="), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

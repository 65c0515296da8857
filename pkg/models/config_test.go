package models

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Global.LogLevel = "verbose"
	cfg.Reporting.Format = "pdf"
	cfg.Scan.PollInterval = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_level")
	assert.Contains(t, err.Error(), "pdf")
	assert.Contains(t, err.Error(), "poll_interval")
}

func TestConfigSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.Connection.Server = "https://vcenter.lab"
	cfg.Connection.Timeout = 45 * time.Second
	cfg.Scan.BaselinePatterns = []string{"*Security Only*"}
	require.NoError(t, cfg.Save(path))

	var loaded Config
	require.NoError(t, loaded.Load(path))
	assert.Equal(t, "https://vcenter.lab", loaded.Connection.Server)
	assert.Equal(t, 45*time.Second, loaded.Connection.Timeout)
	assert.Equal(t, []string{"*Security Only*"}, loaded.Scan.BaselinePatterns)
}

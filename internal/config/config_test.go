package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"codeberg.org/velka/musedaq/internal/config"
	"codeberg.org/velka/musedaq/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	configContent := []byte(`
device = "muse2"
serial_port = "/dev/tty.usbmodem11"
window_seconds = 10
poll_interval_ms = 20
stale_after_sec = 3
listen_addr = ":9000"
recordings_dir = "/tmp/recordings"
telemetry = true
telemetry_db = "/path/to/telemetry.db"
log_level = "debug"
`)
	configPath := filepath.Join(t.TempDir(), "musedaq.toml")
	err := os.WriteFile(configPath, configContent, 0o600)
	require.NoError(t, err)

	t.Setenv("MUSEDAQ_CONFIG", configPath)
	resetArgs(t)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "muse2", cfg.Device)
	assert.Equal(t, "/dev/tty.usbmodem11", cfg.SerialPort)
	assert.Equal(t, 10, cfg.WindowSeconds)
	assert.Equal(t, 20, cfg.PollIntervalMs)
	assert.Equal(t, 3, cfg.StaleAfterSec)
	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, "/tmp/recordings", cfg.RecordingsDir)
	assert.True(t, cfg.Telemetry)
	assert.Equal(t, "/path/to/telemetry.db", cfg.TelemetryDB)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadDefaults(t *testing.T) {
	// Point at a nonexistent config file path so /etc is not consulted
	t.Setenv("MUSEDAQ_CONFIG", filepath.Join(t.TempDir(), "missing.toml"))
	resetArgs(t)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "sim", cfg.Device)
	assert.Equal(t, 5, cfg.WindowSeconds)
	assert.Equal(t, 10, cfg.PollIntervalMs)
	assert.Equal(t, 5, cfg.StaleAfterSec)
	assert.Equal(t, 5, cfg.StopTimeoutSec)
	assert.Equal(t, 30, cfg.ReadyTimeoutSec)
	assert.Equal(t, ":8000", cfg.ListenAddr)
	assert.False(t, cfg.Telemetry)
	assert.Equal(t, config.DefaultLogLevel, cfg.LogLevel)
}

func TestLoadConfigFileInvalidFormat(t *testing.T) {
	configContent := []byte(`
This is not a valid TOML file
`)
	configPath := filepath.Join(t.TempDir(), "musedaq.toml")
	err := os.WriteFile(configPath, configContent, 0o600)
	require.NoError(t, err)

	t.Setenv("MUSEDAQ_CONFIG", configPath)
	resetArgs(t)

	_, err = config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to read config file")
}

func TestInvalidLogLevel(t *testing.T) {
	configContent := []byte(`
log_level = "loud"
`)
	configPath := filepath.Join(t.TempDir(), "musedaq.toml")
	err := os.WriteFile(configPath, configContent, 0o600)
	require.NoError(t, err)

	t.Setenv("MUSEDAQ_CONFIG", configPath)
	resetArgs(t)

	_, err = config.Load()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidLogLevel))
	assert.Contains(t, err.Error(), "loud")
}

func TestInvalidWindow(t *testing.T) {
	configContent := []byte(`
window_seconds = 0
`)
	configPath := filepath.Join(t.TempDir(), "musedaq.toml")
	err := os.WriteFile(configPath, configContent, 0o600)
	require.NoError(t, err)

	t.Setenv("MUSEDAQ_CONFIG", configPath)
	resetArgs(t)

	_, err = config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "window_seconds")
}

func TestLogLevelFlag(t *testing.T) {
	t.Setenv("MUSEDAQ_CONFIG", filepath.Join(t.TempDir(), "missing.toml"))

	oldArgs := os.Args
	t.Cleanup(func() { os.Args = oldArgs })
	os.Args = []string{"musedaq", "--log-level", "debug", "--device", "muse2"}

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "muse2", cfg.Device)
}

func resetArgs(t *testing.T) {
	t.Helper()
	oldArgs := os.Args
	t.Cleanup(func() { os.Args = oldArgs })
	os.Args = []string{"musedaq"}
}

package config

import (
	"github.com/MatthiasKunnen/pixlock/pkg/lock"
	"github.com/MatthiasKunnen/pixlock/pkg/wayland"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "nobody", cfg.User)
	assert.Equal(t, "nogroup", cfg.Group)
	assert.Equal(t, lock.Palette{"black", "#005577", "#CC3333"}, cfg.Palette())
	assert.True(t, cfg.FailOnClear)
	assert.Equal(t, 20, cfg.PixelSize)
	assert.Equal(t, 6, cfg.Grab.Attempts)
	assert.Equal(t, 100*time.Millisecond, cfg.Grab.Delay)
	assert.Equal(t, wayland.PolicyError, cfg.Wayland)

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
user: locker
colors:
  typing: "#00ff00"
pixel_size: 8
fail_on_clear: false
grab:
  delay: 250ms
logind:
  inhibit_sleep: false
keyring:
  collections:
    - collection/login
wayland: warn
log_level: debug
`)

	cfg, err := Load(path, false)
	require.NoError(t, err)

	assert.Equal(t, "locker", cfg.User)
	assert.Equal(t, "nogroup", cfg.Group, "fields missing from the file keep their default")
	assert.Equal(t, lock.Palette{"black", "#00ff00", "#CC3333"}, cfg.Palette())
	assert.Equal(t, 8, cfg.PixelSize)
	assert.False(t, cfg.FailOnClear)
	assert.Equal(t, 6, cfg.Grab.Attempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Grab.Delay)
	assert.True(t, cfg.Logind.LockedHint)
	assert.False(t, cfg.Logind.InhibitSleep)
	assert.Equal(t, []string{"collection/login"}, cfg.Keyring.Collections)
	assert.Equal(t, wayland.PolicyWarn, cfg.Wayland)
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""), false)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_UnknownField(t *testing.T) {
	_, err := Load(writeConfig(t, "pixelsize: 4\n"), false)
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	_, err := Load(writeConfig(t, "pixel_size: 0\ntint_opacity: 2\nwayland: ignore\n"), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pixel_size")
	assert.Contains(t, err.Error(), "tint_opacity")
	assert.Contains(t, err.Error(), "wayland")
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), false)
	assert.Error(t, err)
}

// trustDirOf makes the directory holding path the one elevated loads accept.
func trustDirOf(t *testing.T, path string) {
	t.Helper()
	saved := trustedDir
	trustedDir = filepath.Dir(path)
	t.Cleanup(func() { trustedDir = saved })
}

func TestLoad_UntrustedFile(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("files created by root are trusted")
	}

	path := writeConfig(t, "user: root\n")
	trustDirOf(t, path)

	_, err := Load(path, true)
	assert.ErrorIs(t, err, ErrUntrustedFile)
}

func TestLoad_OutsideTrustedDir(t *testing.T) {
	for _, path := range []string{
		"/etc/shadow",
		"/etc/pixlock/../shadow",
		"/etc/pixlockx/config.yaml",
		"/etc/pixlock",
		"relative.yaml",
	} {
		_, err := Load(path, true)
		assert.ErrorIsf(t, err, ErrUntrustedPath, "%q", path)
		assert.NotErrorIsf(t, err, ErrUntrustedFile, "%q", path)
	}
}

func TestLoad_OutsideTrustedDirAllowedUnelevated(t *testing.T) {
	cfg, err := Load(writeConfig(t, "user: nobody\n"), false)
	require.NoError(t, err)
	assert.Equal(t, "nobody", cfg.User)
}

func TestLoad_GroupWritableFile(t *testing.T) {
	if os.Geteuid() != 0 {
		t.Skip("needs a root owned file")
	}

	path := writeConfig(t, "user: nobody\n")
	require.NoError(t, os.Chmod(path, 0o664))
	trustDirOf(t, path)

	_, err := Load(path, true)
	assert.ErrorIs(t, err, ErrUntrustedFile)
}

func TestValidate_LogLevel(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "loud"
	assert.Error(t, cfg.Validate())
}

package main

import (
	"github.com/MatthiasKunnen/pixlock/pkg/config"
	"github.com/MatthiasKunnen/pixlock/pkg/wayland"
	"github.com/stretchr/testify/assert"
	"log/slog"
	"path/filepath"
	"testing"
)

func TestGuardWayland(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "missing")
	getenv := func(key string) string {
		if key == "WAYLAND_DISPLAY" {
			return socket
		}
		return ""
	}

	newLocker := func(policy wayland.Policy) *locker {
		cfg := config.Default()
		cfg.Wayland = policy
		return &locker{cfg: cfg, logger: slog.Default()}
	}

	assert.ErrorIs(t, newLocker(wayland.PolicyError).guardWayland(getenv), wayland.ErrWaylandSession)
	assert.NoError(t, newLocker(wayland.PolicyWarn).guardWayland(getenv))
	assert.NoError(t, newLocker(wayland.PolicyError).guardWayland(func(string) string { return "" }))
}

func TestGuardWayland_SkipReadsNothing(t *testing.T) {
	l := &locker{cfg: config.Default(), logger: slog.Default()}
	l.cfg.Wayland = wayland.PolicySkip

	assert.NoError(t, l.guardWayland(func(key string) string {
		t.Errorf("environment variable %s read with the skip policy", key)
		return ""
	}))
}

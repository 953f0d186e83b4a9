package main

import (
	"errors"
	"fmt"
	"github.com/MatthiasKunnen/pixlock/pkg/auth"
	"github.com/MatthiasKunnen/pixlock/pkg/config"
	"github.com/MatthiasKunnen/pixlock/pkg/credential"
	"github.com/MatthiasKunnen/pixlock/pkg/inhibit"
	"github.com/MatthiasKunnen/pixlock/pkg/lock"
	"github.com/MatthiasKunnen/pixlock/pkg/pixelate"
	"github.com/MatthiasKunnen/pixlock/pkg/privdrop"
	"github.com/MatthiasKunnen/pixlock/pkg/secret"
	"github.com/MatthiasKunnen/pixlock/pkg/secrets"
	"github.com/MatthiasKunnen/pixlock/pkg/wayland"
	"github.com/MatthiasKunnen/pixlock/pkg/x11"
	"io"
	"log/slog"
	"os"
	"os/exec"
)

// passwordCapacity is the longest password in bytes that can be typed.
const passwordCapacity = 255

// locker runs one lock from start to unlock.
type locker struct {
	cfg     *config.Config
	display string
	logger  *slog.Logger

	hint      *lock.SessionHint
	sleepLock io.Closer
	inhibitor *inhibit.Inhibitor
	keyring   *secrets.Secrets
}

func (l *locker) run(command []string) error {
	target, err := privdrop.ResolveTarget(l.cfg.User, l.cfg.Group)
	if err != nil {
		return err
	}

	if err := privdrop.ExemptFromOOMKiller(privdrop.OOMScoreAdjPath); err != nil {
		return err
	}

	hash, err := credential.DefaultStore().LookupUID(os.Getuid())
	if err != nil {
		return err
	}
	if err := hash.SelfCheck(); err != nil {
		return err
	}
	l.logger.Debug("password hash loaded", "hash", hash)

	password, err := secret.New(passwordCapacity)
	if err != nil {
		return err
	}
	defer func() {
		if err := password.Close(); err != nil {
			l.logger.Warn("unable to release password buffer", "error", err)
		}
	}()

	conn, err := x11.Open(l.display, l.logger)
	if err != nil {
		return err
	}
	defer conn.Close()
	conn.TintOpacity = l.cfg.TintOpacity

	l.connectBuses()
	defer l.closeBuses()

	if err := privdrop.Drop(privdrop.System, target); err != nil {
		return err
	}
	l.logger.Debug("dropped privileges", "user", target.User, "group", target.Group)

	if err := l.guardWayland(os.Getenv); err != nil {
		return err
	}

	backgrounds, err := capture(conn, l.cfg.PixelSize)
	if err != nil {
		return err
	}

	coordinator := lock.NewCoordinator(conn, l.logger)
	coordinator.Attempts = l.cfg.Grab.Attempts
	coordinator.Delay = l.cfg.Grab.Delay

	surfaces, err := coordinator.LockAll(backgrounds, l.cfg.Palette())
	if err != nil {
		return err
	}

	l.locked()

	session := auth.NewSession(conn, surfaces, hash, password, l.logger)
	session.PersistFailure = l.cfg.FailOnClear
	if err := session.Run(); err != nil {
		return err
	}

	l.unlocked()

	if len(command) > 0 {
		l.runCommand(command)
	}

	return nil
}

// guardWayland refuses Wayland sessions according to the configured policy. It talks to a
// socket named by the environment and must run after the privilege drop.
func (l *locker) guardWayland(getenv func(string) string) error {
	if l.cfg.Wayland == wayland.PolicySkip {
		return nil
	}

	session := wayland.Detect(getenv)
	if session != nil {
		session.QueryGlobals(l.logger)
	}
	return wayland.Guard(l.cfg.Wayland, session, l.logger)
}

// capture takes a pixelated screenshot of every screen.
func capture(conn *x11.Conn, pixelSize int) ([]*pixelate.Image, error) {
	backgrounds := make([]*pixelate.Image, conn.NumScreens())
	for screen := range backgrounds {
		img, err := conn.Capture(screen)
		if err != nil {
			return nil, fmt.Errorf("screen %d: %w", screen, err)
		}
		if err := pixelate.Pixelate(img, pixelSize); err != nil {
			return nil, err
		}
		backgrounds[screen] = img
	}
	return backgrounds, nil
}

// connectBuses sets up the optional D-Bus integrations. They need the privileges the process
// starts with, so this happens before the drop. Failures only cost the integration.
func (l *locker) connectBuses() {
	if l.cfg.Logind.LockedHint {
		hint, err := lock.NewSessionHint(os.Getenv("XDG_SESSION_ID"))
		if err != nil {
			l.logger.Warn("unable to connect to logind session", "error", err)
		} else {
			l.hint = hint
		}
	}

	if l.cfg.Logind.InhibitSleep {
		inhibitor, err := inhibit.New()
		if err != nil {
			l.logger.Warn("unable to connect to logind", "error", err)
		} else {
			l.inhibitor = inhibitor
			l.sleepLock, err = inhibitor.Inhibit("pixlock", "Locking the screen", inhibit.ModeDelay, inhibit.WhatSleep)
			if err != nil {
				l.logger.Warn("unable to delay sleep", "error", err)
			}
		}
	}

	if len(l.cfg.Keyring.Collections) > 0 {
		keyring, err := secrets.New()
		if err != nil {
			l.logger.Warn("unable to connect to the secret service", "error", err)
		} else {
			l.keyring = keyring
		}
	}
}

// locked runs once every screen is locked.
func (l *locker) locked() {
	if l.sleepLock != nil {
		if err := l.sleepLock.Close(); err != nil {
			l.logger.Warn("failed to release sleep inhibitor", "error", err)
		}
		l.sleepLock = nil
	}

	if l.hint != nil {
		if err := l.hint.SetLocked(true); err != nil {
			l.logger.Warn("failed to set locked hint", "error", err)
		}
	}

	if l.keyring != nil {
		locked, err := l.keyring.Lock(l.cfg.Keyring.Collections)
		if err != nil {
			l.logger.Warn("failed to lock keyring", "error", err)
		} else {
			l.logger.Debug("locked keyring", "collections", locked)
		}
	}
}

// unlocked runs after the password was verified.
func (l *locker) unlocked() {
	if l.hint != nil {
		if err := l.hint.SetLocked(false); err != nil {
			l.logger.Warn("failed to clear locked hint", "error", err)
		}
	}
}

func (l *locker) closeBuses() {
	var err error
	if l.sleepLock != nil {
		err = errors.Join(err, l.sleepLock.Close())
	}
	if l.inhibitor != nil {
		err = errors.Join(err, l.inhibitor.Close())
	}
	if l.hint != nil {
		err = errors.Join(err, l.hint.Close())
	}
	if l.keyring != nil {
		err = errors.Join(err, l.keyring.Close())
	}
	if err != nil {
		l.logger.Warn("failed to close D-Bus connections", "error", err)
	}
}

// runCommand runs the post-unlock command. Its failure does not change the outcome of the lock.
func (l *locker) runCommand(command []string) {
	cmd := exec.Command(command[0], command[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		l.logger.Error("post-unlock command failed", "command", command[0], "error", err)
	}
}

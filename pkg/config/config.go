// Package config provides configuration loading for pixlock.
//
// Configuration is read from a single YAML file, /etc/pixlock/config.yaml unless another path is
// given on the command line. Every field is optional; missing fields keep their defaults.
//
// When pixlock runs setuid or setgid the file decides which user the process drops to, so it is
// only accepted from /etc/pixlock, owned by root and not writable by anyone else.
package config

import (
	"errors"
	"fmt"
	"github.com/MatthiasKunnen/pixlock/pkg/lock"
	"github.com/MatthiasKunnen/pixlock/pkg/wayland"
	"gopkg.in/yaml.v3"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

// DefaultPath is read when no configuration file is given.
const DefaultPath = "/etc/pixlock/config.yaml"

// trustedDir holds the only files an elevated process reads.
var trustedDir = filepath.Dir(DefaultPath)

// ErrUntrustedPath is returned when an elevated process is asked to read a file outside
// /etc/pixlock.
var ErrUntrustedPath = errors.New("config file must be in " + filepath.Dir(DefaultPath))

// ErrUntrustedFile is returned when an elevated process is asked to read a file that a regular
// user could have written.
var ErrUntrustedFile = errors.New("config file must be owned by root and writable only by root")

// Config is the configuration of pixlock.
type Config struct {
	// User is the name of the user to drop privileges to.
	// Default: nobody
	User string `yaml:"user"`

	// Group is the name of the group to drop privileges to.
	// Default: nogroup
	Group string `yaml:"group"`

	// Colors holds the color of every lock phase.
	Colors ColorsConfig `yaml:"colors"`

	// TintOpacity is how strongly the phase color covers the pixelated screenshot, from 0 to 1.
	// Default: 0.35
	TintOpacity float64 `yaml:"tint_opacity"`

	// FailOnClear keeps showing the failed color after a wrong password until the user types
	// again.
	// Default: true
	FailOnClear bool `yaml:"fail_on_clear"`

	// PixelSize is the edge length in pixels of the squares the screenshot is reduced to.
	// Default: 20
	PixelSize int `yaml:"pixel_size"`

	// Grab configures how input is grabbed.
	Grab GrabConfig `yaml:"grab"`

	// Logind configures the integration with systemd-logind.
	Logind LogindConfig `yaml:"logind"`

	// Keyring configures the Secret Service collections locked with the screen.
	Keyring KeyringConfig `yaml:"keyring"`

	// Wayland specifies what to do when started inside a Wayland session.
	// Values: "error", "warn", "skip"
	// Default: error
	Wayland wayland.Policy `yaml:"wayland"`

	// LogLevel is the minimum level of log messages.
	// Values: "debug", "info", "warn", "error"
	// Default: warn
	LogLevel string `yaml:"log_level"`
}

// ColorsConfig holds X11 color names or #RRGGBB values.
type ColorsConfig struct {
	// Initial is shown while nothing has been typed.
	Initial string `yaml:"initial"`
	// Typing is shown while a password is being typed.
	Typing string `yaml:"typing"`
	// Failed is shown after a wrong password.
	Failed string `yaml:"failed"`
}

// GrabConfig configures the pointer and keyboard grabs.
type GrabConfig struct {
	// Attempts is how many times a grab is tried per screen.
	// Default: 6
	Attempts int `yaml:"attempts"`

	// Delay is waited between two attempts.
	// Default: 100ms
	Delay time.Duration `yaml:"delay"`
}

// LogindConfig configures the integration with systemd-logind.
type LogindConfig struct {
	// LockedHint marks the session as locked while the lock is active.
	// Default: true
	LockedHint bool `yaml:"locked_hint"`

	// InhibitSleep delays sleep until every screen is locked.
	// Default: true
	InhibitSleep bool `yaml:"inhibit_sleep"`
}

// KeyringConfig configures the Secret Service integration.
type KeyringConfig struct {
	// Collections are locked once every screen is locked, e.g. "collection/login".
	// Default: none
	Collections []string `yaml:"collections"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		User:  "nobody",
		Group: "nogroup",
		Colors: ColorsConfig{
			Initial: "black",
			Typing:  "#005577",
			Failed:  "#CC3333",
		},
		TintOpacity: 0.35,
		FailOnClear: true,
		PixelSize:   20,
		Grab: GrabConfig{
			Attempts: lock.DefaultGrabAttempts,
			Delay:    lock.DefaultGrabDelay,
		},
		Logind: LogindConfig{
			LockedHint:   true,
			InhibitSleep: true,
		},
		Wayland:  wayland.PolicyError,
		LogLevel: "warn",
	}
}

// Load reads the configuration file at path on top of the defaults. An empty path reads
// DefaultPath if it exists.
//
// With requireRootOwned set, paths outside /etc/pixlock are rejected with ErrUntrustedPath before
// they are opened, and the file is rejected with ErrUntrustedFile unless it is owned by root and
// not writable by group or others.
func Load(path string, requireRootOwned bool) (*Config, error) {
	optional := path == ""
	if optional {
		path = DefaultPath
	}

	cfg := Default()

	if requireRootOwned {
		if err := checkTrustedPath(path); err != nil {
			return nil, err
		}
	}

	f, err := os.Open(path)
	if err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}
	defer f.Close()

	if requireRootOwned {
		info, err := f.Stat()
		if err != nil {
			return nil, err
		}
		if err := checkTrusted(info); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	if err := cfg.decode(f); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

// decode merges the YAML document read from r into the config. Unknown fields are an error.
func (c *Config) decode(r io.Reader) error {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	err := decoder.Decode(c)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func checkTrustedPath(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUntrustedPath, err)
	}
	if !strings.HasPrefix(abs, filepath.Clean(trustedDir)+string(filepath.Separator)) {
		return fmt.Errorf("%w: %s", ErrUntrustedPath, path)
	}
	return nil
}

func checkTrusted(info fs.FileInfo) error {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return fmt.Errorf("%w: unable to determine owner", ErrUntrustedFile)
	}
	if stat.Uid != 0 {
		return fmt.Errorf("%w: owned by uid %d", ErrUntrustedFile, stat.Uid)
	}
	if info.Mode().Perm()&0o022 != 0 {
		return fmt.Errorf("%w: mode %s", ErrUntrustedFile, info.Mode().Perm())
	}
	return nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.User == "" {
		errs = append(errs, fmt.Errorf("user is required"))
	}
	if c.Group == "" {
		errs = append(errs, fmt.Errorf("group is required"))
	}

	if c.Colors.Initial == "" || c.Colors.Typing == "" || c.Colors.Failed == "" {
		errs = append(errs, fmt.Errorf("colors.initial, colors.typing and colors.failed are required"))
	}

	if c.TintOpacity < 0 || c.TintOpacity > 1 {
		errs = append(errs, fmt.Errorf("tint_opacity must be between 0 and 1, got %g", c.TintOpacity))
	}

	if c.PixelSize <= 0 {
		errs = append(errs, fmt.Errorf("pixel_size must be positive, got %d", c.PixelSize))
	}

	if c.Grab.Attempts <= 0 {
		errs = append(errs, fmt.Errorf("grab.attempts must be positive, got %d", c.Grab.Attempts))
	}
	if c.Grab.Delay < 0 {
		errs = append(errs, fmt.Errorf("grab.delay must not be negative, got %s", c.Grab.Delay))
	}

	if !c.Wayland.Valid() {
		errs = append(errs, fmt.Errorf("wayland must be one of: %v",
			[]wayland.Policy{wayland.PolicyError, wayland.PolicyWarn, wayland.PolicySkip}))
	}

	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Palette returns the colors in phase order.
func (c *Config) Palette() lock.Palette {
	var p lock.Palette
	p[lock.PhaseInitial] = c.Colors.Initial
	p[lock.PhaseTyping] = c.Colors.Typing
	p[lock.PhaseFailed] = c.Colors.Failed
	return p
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}

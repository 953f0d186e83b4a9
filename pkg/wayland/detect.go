package wayland

import (
	"errors"
	"fmt"
	"github.com/MatthiasKunnen/go-wayland/wayland/client"
	"log/slog"
	"path/filepath"
	"slices"
)

// sessionLockInterface is the global offered by compositors that can lock the session themselves.
const sessionLockInterface = "ext_session_lock_manager_v1"

// ErrWaylandSession is returned by Guard when the policy refuses Wayland sessions.
var ErrWaylandSession = errors.New("running in a Wayland session, X11 input grabs cannot lock it")

// Policy decides what happens when a Wayland session is detected.
type Policy string

const (
	// PolicyError refuses to lock.
	PolicyError Policy = "error"
	// PolicyWarn logs a warning and locks anyway.
	PolicyWarn Policy = "warn"
	// PolicySkip does not look for a Wayland session.
	PolicySkip Policy = "skip"
)

// Valid reports whether p is a known policy.
func (p Policy) Valid() bool {
	switch p {
	case PolicyError, PolicyWarn, PolicySkip:
		return true
	}
	return false
}

// Session describes a detected Wayland session.
type Session struct {
	// Socket is the path of the compositor socket.
	Socket string
	// Globals holds the interfaces advertised by the compositor. It is empty when the compositor
	// could not be reached.
	Globals []string
}

// SupportsSessionLock reports whether the compositor offers ext-session-lock-v1.
func (s *Session) SupportsSessionLock() bool {
	return slices.Contains(s.Globals, sessionLockInterface)
}

// Detect returns the Wayland session the environment points to, or nil when there is none.
// It only reads the environment; getenv is usually os.Getenv.
func Detect(getenv func(string) string) *Session {
	display := getenv("WAYLAND_DISPLAY")
	if display == "" && getenv("XDG_SESSION_TYPE") != "wayland" {
		return nil
	}
	if display == "" {
		display = "wayland-0"
	}

	socket := display
	if !filepath.IsAbs(socket) {
		socket = filepath.Join(getenv("XDG_RUNTIME_DIR"), display)
	}

	return &Session{Socket: socket}
}

// QueryGlobals connects to the compositor and records its globals. The socket path comes from
// the environment, so it must only be called without elevated privileges.
func (s *Session) QueryGlobals(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	globals, err := listGlobals(s.Socket)
	if err != nil {
		logger.Debug("unable to query Wayland compositor", "socket", s.Socket, "error", err)
	}
	s.Globals = globals
}

// listGlobals connects to the compositor and lists its globals.
func listGlobals(socket string) ([]string, error) {
	display, err := client.Connect(socket)
	if err != nil {
		return nil, fmt.Errorf("error connecting to Wayland server: %w", err)
	}

	var globals []string
	registry, err := display.GetRegistry()
	if err == nil {
		registry.SetGlobalHandler(func(e client.RegistryGlobalEvent) {
			globals = append(globals, e.Interface)
		})
		err = display.Roundtrip()
		if err != nil {
			err = fmt.Errorf("failed roundtrip: %w", err)
		}
	} else {
		err = fmt.Errorf("error getting Wayland registry: %w", err)
	}

	if closeErr := display.Context().Close(); closeErr != nil {
		err = errors.Join(err, fmt.Errorf("error closing wayland connection: %w", closeErr))
	}

	return globals, err
}

// Guard applies the policy to session, which may be nil.
func Guard(policy Policy, session *Session, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	if policy == PolicySkip || session == nil {
		return nil
	}

	hint := "use a Wayland screen locker"
	if session.SupportsSessionLock() {
		hint = "the compositor supports ext-session-lock-v1, use a locker built on it"
	}

	if policy == PolicyWarn {
		logger.Warn("Wayland session detected, the lock does not stop the compositor from handing out input",
			"socket", session.Socket,
			"hint", hint,
		)
		return nil
	}

	return fmt.Errorf("%w (%s): %s", ErrWaylandSession, session.Socket, hint)
}

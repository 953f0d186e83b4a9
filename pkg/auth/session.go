package auth

import (
	"errors"
	"fmt"
	"github.com/MatthiasKunnen/pixlock/pkg/keysym"
	"github.com/MatthiasKunnen/pixlock/pkg/lock"
	"log/slog"
	"unicode"
	"unicode/utf8"
)

// ErrDisplayClosed is returned by Run when the display stops delivering events.
var ErrDisplayClosed = errors.New("display connection closed")

// Display is the part of the windowing system the Session needs.
type Display interface {
	// NextEvent blocks until the next event arrives.
	// It returns ErrDisplayClosed, possibly wrapped, when no event will ever arrive again.
	NextEvent() (Event, error)

	// Bell rings the bell of the keyboard.
	Bell()

	// ForwardKey sends the key press unmodified to the given root window.
	ForwardKey(root uint32, key KeyPress) error

	// SetBackground shows the background of the phase on the surface and redraws it.
	SetBackground(s *lock.Surface, phase lock.Phase) error

	// Resize changes the size of the lock window of the surface and redraws it.
	Resize(s *lock.Surface, width, height uint16) error

	// Raise puts the lock window of the surface on top of all other windows.
	Raise(s *lock.Surface) error

	// Flush sends all pending requests to the display.
	Flush() error
}

// Verifier checks a password against the stored credential.
type Verifier interface {
	Verify(password []byte) (bool, error)
}

// Buffer holds the password while it is being typed.
type Buffer interface {
	Append(p []byte) error
	Backspace() bool
	Clear()
	Len() int
	Bytes() []byte
}

// ComputePhase returns the phase shown for a password of the given length.
// A failure is only shown on an empty buffer and only when persist is set.
func ComputePhase(length int, failed bool, persist bool) lock.Phase {
	switch {
	case length > 0:
		return lock.PhaseTyping
	case failed && persist:
		return lock.PhaseFailed
	default:
		return lock.PhaseInitial
	}
}

// Session is the state of a running lock. It is driven by a single goroutine.
type Session struct {
	Display  Display
	Surfaces []*lock.Surface
	Verifier Verifier
	Buffer   Buffer

	// PersistFailure keeps showing the failed phase after a wrong password until the user types
	// again. Without it, the failed phase only shows right after the bell.
	PersistFailure bool

	Logger *slog.Logger

	failed bool
	phase  lock.Phase
}

// NewSession returns a Session in the initial phase.
func NewSession(display Display, surfaces []*lock.Surface, verifier Verifier, buffer Buffer, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}

	return &Session{
		Display:        display,
		Surfaces:       surfaces,
		Verifier:       verifier,
		Buffer:         buffer,
		PersistFailure: true,
		Logger:         logger,
	}
}

// Phase returns the phase that was last shown on the surfaces.
func (s *Session) Phase() lock.Phase {
	return s.phase
}

// Failed reports whether a wrong password was entered during the session.
func (s *Session) Failed() bool {
	return s.failed
}

// Run handles events until the password is verified, in which case it returns nil.
func (s *Session) Run() error {
	for {
		ev, err := s.Display.NextEvent()
		if err != nil {
			return fmt.Errorf("wait for event: %w", err)
		}

		if s.Handle(ev) {
			return nil
		}
	}
}

// Handle processes a single event and reports whether it unlocked the session.
func (s *Session) Handle(ev Event) bool {
	switch ev := ev.(type) {
	case KeyPress:
		return s.handleKey(ev)
	case GeometryChange:
		s.handleGeometry(ev)
	default:
		for _, surface := range s.Surfaces {
			if err := s.Display.Raise(surface); err != nil {
				s.logger().Warn("unable to raise lock window", "screen", surface.Screen, "error", err)
			}
		}
		s.flush()
	}

	return false
}

func (s *Session) handleKey(key KeyPress) bool {
	sym := keysym.Remap(key.Keysym)
	if keysym.IsTextless(sym) {
		return false
	}

	bellRang := false
	switch {
	case keysym.IsMediaKey(sym):
		if err := s.Display.ForwardKey(key.Root, key); err != nil {
			s.logger().Warn("unable to forward media key", "error", err)
		}
		s.flush()
		return false
	case sym == keysym.Return:
		if s.verify() {
			s.Buffer.Clear()
			return true
		}
		s.Display.Bell()
		bellRang = true
		s.failed = true
		s.Buffer.Clear()
	case sym == keysym.Escape:
		s.Buffer.Clear()
	case sym == keysym.BackSpace:
		s.Buffer.Backspace()
	default:
		s.appendText(key.Text)
	}

	s.showPhase(ComputePhase(s.Buffer.Len(), s.failed, s.PersistFailure || bellRang))
	return false
}

func (s *Session) verify() bool {
	ok, err := s.Verifier.Verify(s.Buffer.Bytes())
	if err != nil {
		s.logger().Error("unable to verify password", "error", err)
		return false
	}
	return ok
}

// appendText drops empty text, control characters and text that does not fit.
func (s *Session) appendText(text string) {
	if text == "" {
		return
	}
	if r, _ := utf8.DecodeRuneInString(text); unicode.IsControl(r) {
		return
	}
	_ = s.Buffer.Append([]byte(text))
}

// showPhase applies the background of phase to every surface when it differs from the one shown.
func (s *Session) showPhase(phase lock.Phase) {
	if phase == s.phase {
		return
	}

	for _, surface := range s.Surfaces {
		if err := s.Display.SetBackground(surface, phase); err != nil {
			s.logger().Warn("unable to change background",
				"screen", surface.Screen,
				"phase", phase,
				"error", err,
			)
		}
	}
	s.flush()
	s.phase = phase
}

func (s *Session) handleGeometry(ev GeometryChange) {
	width, height := ev.Width, ev.Height
	if ev.Rotation == 90 || ev.Rotation == 270 {
		width, height = height, width
	}

	for _, surface := range s.Surfaces {
		if surface.Window != ev.Window {
			continue
		}
		if err := s.Display.Resize(surface, width, height); err != nil {
			s.logger().Warn("unable to resize lock window", "screen", surface.Screen, "error", err)
		} else {
			surface.Width, surface.Height = width, height
		}
		s.flush()
		return
	}
}

func (s *Session) flush() {
	if err := s.Display.Flush(); err != nil {
		s.logger().Warn("unable to flush display", "error", err)
	}
}

func (s *Session) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

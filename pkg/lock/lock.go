package lock

import (
	"github.com/MatthiasKunnen/pixlock/pkg/pixelate"
)

// Phase is the feedback state shown on every locked screen.
type Phase int

const (
	// PhaseInitial is shown while nothing has been typed.
	PhaseInitial Phase = iota
	// PhaseTyping is shown while the password buffer is not empty.
	PhaseTyping
	// PhaseFailed is shown after a wrong password.
	PhaseFailed

	// NumPhases is the number of phases.
	NumPhases
)

func (p Phase) String() string {
	switch p {
	case PhaseInitial:
		return "initial"
	case PhaseTyping:
		return "typing"
	case PhaseFailed:
		return "failed"
	}
	return "unknown"
}

// Palette holds the color names of each phase, e.g. "black" or "#005577".
type Palette [NumPhases]string

// Surface is the lock state of a single screen.
type Surface struct {
	// Screen is the index of the screen on the display.
	Screen int
	// Root is the root window of the screen.
	Root uint32
	// Window is the lock window covering the screen.
	Window uint32
	// Cursor is the invisible pointer cursor shown over the lock window.
	Cursor uint32

	Width  uint16
	Height uint16

	// Backgrounds holds the background pixmap of every phase.
	Backgrounds [NumPhases]uint32
	// Colors holds the allocated pixel value of every palette entry.
	Colors [NumPhases]uint32
}

// GrabResult is the outcome of a single pointer or keyboard grab attempt.
type GrabResult int

const (
	GrabSuccess GrabResult = iota
	// GrabAlreadyGrabbed means another client holds the grab; retrying may succeed.
	GrabAlreadyGrabbed
	// GrabOtherFailure covers every other reason, retrying is pointless.
	GrabOtherFailure
)

func (r GrabResult) String() string {
	switch r {
	case GrabSuccess:
		return "success"
	case GrabAlreadyGrabbed:
		return "already grabbed"
	case GrabOtherFailure:
		return "failed"
	}
	return "unknown"
}

// GrabOutcome combines the pointer and keyboard grab results of a screen.
type GrabOutcome struct {
	Pointer  GrabResult
	Keyboard GrabResult
}

// Locked reports whether both grabs are held.
func (o GrabOutcome) Locked() bool {
	return o.Pointer == GrabSuccess && o.Keyboard == GrabSuccess
}

// retryable reports whether every grab that is not held failed because another client holds it.
func (o GrabOutcome) retryable() bool {
	ok := func(r GrabResult) bool {
		return r == GrabSuccess || r == GrabAlreadyGrabbed
	}
	return ok(o.Pointer) && ok(o.Keyboard)
}

// Display is the part of the windowing system the Coordinator needs.
type Display interface {
	// NumScreens returns the number of screens of the display.
	NumScreens() int

	// CreateSurface creates the unmapped lock window of a screen with the given background, the
	// palette colors and an invisible cursor.
	CreateSurface(screen int, background *pixelate.Image, palette Palette) (*Surface, error)

	// GrabPointer tries once to grab the pointer for the surface.
	GrabPointer(s *Surface) GrabResult

	// GrabKeyboard tries once to grab the keyboard for the surface.
	GrabKeyboard(s *Surface) GrabResult

	// MapRaised maps the lock window on top of all other windows.
	MapRaised(s *Surface) error

	// WatchGeometry subscribes the surface to screen geometry changes. It returns false when the
	// display does not support such notifications.
	WatchGeometry(s *Surface) (bool, error)
}

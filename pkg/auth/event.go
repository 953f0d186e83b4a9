package auth

import (
	"github.com/MatthiasKunnen/pixlock/pkg/keysym"
)

// Event is an event read from the display.
type Event interface {
	isEvent()
}

// KeyPress is a key press on any of the locked screens.
type KeyPress struct {
	// Keysym is the symbol of the key under the modifiers active at the time of the press.
	Keysym keysym.Keysym
	// Text is the UTF-8 text the key produced, empty when it produced none.
	Text string
	// Root is the root window of the screen the key was pressed on.
	Root uint32
	// Raw is the event as received, used to forward it unmodified.
	Raw []byte
}

// GeometryChange reports a new size or rotation of the screen behind a lock window.
type GeometryChange struct {
	Window uint32
	Width  uint16
	Height uint16
	// Rotation in degrees, one of 0, 90, 180 and 270.
	Rotation int
}

// Other is any event that is neither a key press nor a geometry change.
type Other struct{}

func (KeyPress) isEvent()       {}
func (GeometryChange) isEvent() {}
func (Other) isEvent()          {}

package lock

import (
	"errors"
	"fmt"
	"github.com/MatthiasKunnen/pixlock/pkg/pixelate"
	"log/slog"
	"time"
)

const (
	// DefaultGrabAttempts is how many times a grab is tried per screen.
	DefaultGrabAttempts = 6
	// DefaultGrabDelay is the pause between two grab attempts.
	DefaultGrabDelay = 100 * time.Millisecond
)

var (
	// ErrIncompleteLock is returned when not every screen could be locked.
	ErrIncompleteLock = errors.New("unable to lock every screen")
	ErrPointerGrab    = errors.New("unable to grab mouse pointer")
	ErrKeyboardGrab   = errors.New("unable to grab keyboard")
)

// Coordinator locks all screens of a Display.
type Coordinator struct {
	Display Display

	// Attempts is the maximum number of grab attempts per screen.
	Attempts int
	// Delay is waited between two grab attempts.
	Delay time.Duration
	// Sleep pauses for the given duration. Defaults to time.Sleep.
	Sleep func(time.Duration)

	Logger *slog.Logger
}

// NewCoordinator returns a Coordinator with the default retry policy.
func NewCoordinator(display Display, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}

	return &Coordinator{
		Display:  display,
		Attempts: DefaultGrabAttempts,
		Delay:    DefaultGrabDelay,
		Sleep:    time.Sleep,
		Logger:   logger,
	}
}

// LockAll locks the screens of the display in order, backgrounds[i] becoming the background of
// screen i.
//
// It stops at the first screen that cannot be locked and returns the surfaces locked so far
// together with an error wrapping ErrIncompleteLock. Screens that were locked stay locked.
func (c *Coordinator) LockAll(backgrounds []*pixelate.Image, palette Palette) ([]*Surface, error) {
	n := c.Display.NumScreens()
	if len(backgrounds) != n {
		return nil, fmt.Errorf("got %d backgrounds for %d screens", len(backgrounds), n)
	}

	surfaces := make([]*Surface, 0, n)
	for screen := 0; screen < n; screen++ {
		surface, err := c.lockScreen(screen, backgrounds[screen], palette)
		if err != nil {
			return surfaces, fmt.Errorf("%w: screen %d: %w", ErrIncompleteLock, screen, err)
		}
		surfaces = append(surfaces, surface)
	}

	return surfaces, nil
}

func (c *Coordinator) lockScreen(screen int, background *pixelate.Image, palette Palette) (*Surface, error) {
	surface, err := c.Display.CreateSurface(screen, background, palette)
	if err != nil {
		return nil, fmt.Errorf("create lock window: %w", err)
	}

	attempts := max(c.Attempts, 1)
	outcome := GrabOutcome{Pointer: GrabOtherFailure, Keyboard: GrabOtherFailure}
	for attempt := 1; attempt <= attempts; attempt++ {
		if outcome.Pointer != GrabSuccess {
			outcome.Pointer = c.Display.GrabPointer(surface)
		}
		if outcome.Keyboard != GrabSuccess {
			outcome.Keyboard = c.Display.GrabKeyboard(surface)
		}

		if outcome.Locked() {
			return surface, c.show(surface)
		}

		c.logger().Debug("grab attempt failed",
			"screen", screen,
			"attempt", attempt,
			"pointer", outcome.Pointer,
			"keyboard", outcome.Keyboard,
		)

		if !outcome.retryable() || attempt == attempts {
			break
		}

		c.sleep(c.Delay)
	}

	var grabErr error
	if outcome.Pointer != GrabSuccess {
		grabErr = errors.Join(grabErr, fmt.Errorf("%w: %s", ErrPointerGrab, outcome.Pointer))
	}
	if outcome.Keyboard != GrabSuccess {
		grabErr = errors.Join(grabErr, fmt.Errorf("%w: %s", ErrKeyboardGrab, outcome.Keyboard))
	}

	return nil, grabErr
}

func (c *Coordinator) show(surface *Surface) error {
	if err := c.Display.MapRaised(surface); err != nil {
		return fmt.Errorf("map lock window: %w", err)
	}

	watching, err := c.Display.WatchGeometry(surface)
	if err != nil {
		c.logger().Warn("unable to watch screen geometry", "screen", surface.Screen, "error", err)
	} else if !watching {
		c.logger().Debug("screen geometry notifications unsupported", "screen", surface.Screen)
	}

	return nil
}

func (c *Coordinator) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

func (c *Coordinator) sleep(d time.Duration) {
	if c.Sleep == nil {
		time.Sleep(d)
		return
	}
	c.Sleep(d)
}

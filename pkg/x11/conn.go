package x11

import (
	"errors"
	"fmt"
	"github.com/MatthiasKunnen/pixlock/pkg/keysym"
	"github.com/MatthiasKunnen/pixlock/pkg/pixelate"
	"github.com/jezek/xgb"
	"github.com/jezek/xgb/randr"
	"github.com/jezek/xgb/xproto"
	"log/slog"
)

// ErrUnsupportedFormat is returned by Capture for screens that do not use 32 bits per pixel.
var ErrUnsupportedFormat = errors.New("unsupported pixmap format")

// Conn is a connection to an X server.
// It is not safe for concurrent use.
type Conn struct {
	conn  *xgb.Conn
	setup *xproto.SetupInfo
	// randr is set when the server supports screen change notifications.
	randr bool

	keymap      *keysym.Map
	numLockMask uint16

	// TintOpacity is how strongly the phase color covers the background, from 0 to 1.
	TintOpacity float64

	logger *slog.Logger
}

// Open connects to the X server of display. An empty display uses $DISPLAY.
func Open(display string, logger *slog.Logger) (*Conn, error) {
	if logger == nil {
		logger = slog.Default()
	}

	xc, err := xgb.NewConnDisplay(display)
	if err != nil {
		return nil, fmt.Errorf("cannot open display: %w", err)
	}

	c := &Conn{
		conn:   xc,
		setup:  xproto.Setup(xc),
		logger: logger,
	}

	if err := randr.Init(xc); err != nil {
		logger.Debug("RandR extension unavailable", "error", err)
	} else if _, err := randr.QueryVersion(xc, 1, 1).Reply(); err != nil {
		logger.Debug("RandR version query failed", "error", err)
	} else {
		c.randr = true
	}

	if err := c.loadKeymap(); err != nil {
		xc.Close()
		return nil, err
	}

	return c, nil
}

// Close closes the connection. Grabs and windows of the connection are released by the server.
func (c *Conn) Close() {
	c.conn.Close()
}

// NumScreens returns the number of screens of the display.
func (c *Conn) NumScreens() int {
	return len(c.setup.Roots)
}

func (c *Conn) screen(n int) (*xproto.ScreenInfo, error) {
	if n < 0 || n >= len(c.setup.Roots) {
		return nil, fmt.Errorf("no screen %d", n)
	}
	return &c.setup.Roots[n], nil
}

func (c *Conn) bigEndian() bool {
	return c.setup.ImageByteOrder == xproto.ImageOrderMSBFirst
}

// pixmapFormat returns the format used for images of the given depth.
func (c *Conn) pixmapFormat(depth byte) (xproto.Format, error) {
	for _, f := range c.setup.PixmapFormats {
		if f.Depth == depth {
			if f.BitsPerPixel != 32 {
				return f, fmt.Errorf("%w: depth %d uses %d bits per pixel",
					ErrUnsupportedFormat, depth, f.BitsPerPixel)
			}
			return f, nil
		}
	}
	return xproto.Format{}, fmt.Errorf("%w: no pixmap format for depth %d", ErrUnsupportedFormat, depth)
}

// Capture returns the current contents of a screen.
func (c *Conn) Capture(screen int) (*pixelate.Image, error) {
	s, err := c.screen(screen)
	if err != nil {
		return nil, err
	}

	format, err := c.pixmapFormat(s.RootDepth)
	if err != nil {
		return nil, err
	}

	width, height := int(s.WidthInPixels), int(s.HeightInPixels)
	reply, err := xproto.GetImage(c.conn, xproto.ImageFormatZPixmap, xproto.Drawable(s.Root),
		0, 0, s.WidthInPixels, s.HeightInPixels, ^uint32(0)).Reply()
	if err != nil {
		return nil, fmt.Errorf("could not take screenshot: %w", err)
	}

	img, err := pixelate.DecodeZPixmap(width, height, stride(width, format), reply.Data, c.bigEndian())
	if err != nil {
		return nil, fmt.Errorf("could not take screenshot: %w", err)
	}

	return img, nil
}

// stride returns the number of bytes of an image row, padded to the scanline unit.
func stride(width int, format xproto.Format) int {
	bits := width * int(format.BitsPerPixel)
	pad := max(int(format.ScanlinePad), 8)
	return (bits + pad - 1) / pad * pad / 8
}

// loadKeymap fetches the keyboard mapping and finds the modifier bound to Num_Lock.
func (c *Conn) loadKeymap() error {
	first := c.setup.MinKeycode
	count := int(c.setup.MaxKeycode) - int(first) + 1

	mapping, err := xproto.GetKeyboardMapping(c.conn, first, byte(count)).Reply()
	if err != nil {
		return fmt.Errorf("get keyboard mapping: %w", err)
	}

	syms := make([]keysym.Keysym, len(mapping.Keysyms))
	for i, sym := range mapping.Keysyms {
		syms[i] = keysym.Keysym(sym)
	}
	c.keymap = keysym.NewMap(int(first), int(mapping.KeysymsPerKeycode), syms)

	modifiers, err := xproto.GetModifierMapping(c.conn).Reply()
	if err != nil {
		return fmt.Errorf("get modifier mapping: %w", err)
	}
	c.numLockMask = numLockMask(c.keymap, int(modifiers.KeycodesPerModifier), modifiers.Keycodes)

	return nil
}

// numLockMask returns the state bit of the modifier that has Num_Lock bound to it, or 0.
func numLockMask(keymap *keysym.Map, perModifier int, keycodes []xproto.Keycode) uint16 {
	if perModifier <= 0 {
		return 0
	}
	for i, kc := range keycodes {
		if kc == 0 {
			continue
		}
		if keymap.Lookup(int(kc), keysym.Modifiers{}) == keysym.NumLock {
			return 1 << (i / perModifier)
		}
	}
	return 0
}

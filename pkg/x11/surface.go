package x11

import (
	"fmt"
	"github.com/MatthiasKunnen/pixlock/pkg/lock"
	"github.com/MatthiasKunnen/pixlock/pkg/pixelate"
	"github.com/jezek/xgb/randr"
	"github.com/jezek/xgb/xproto"
)

// putImageHeader is the size of a PutImage request without its data.
const putImageHeader = 24

// CreateSurface creates the lock window of a screen. The window is not mapped yet.
//
// Every phase gets its own background pixmap: the background image tinted with the phase color.
// Without a background image the window is filled with the phase color.
func (c *Conn) CreateSurface(screen int, background *pixelate.Image, palette lock.Palette) (*lock.Surface, error) {
	s, err := c.screen(screen)
	if err != nil {
		return nil, err
	}

	surface := &lock.Surface{
		Screen: screen,
		Root:   uint32(s.Root),
		Width:  s.WidthInPixels,
		Height: s.HeightInPixels,
	}

	var colors [lock.NumPhases]color
	for phase, name := range palette {
		colors[phase], err = c.allocColor(s.DefaultColormap, name)
		if err != nil {
			return nil, err
		}
		surface.Colors[phase] = colors[phase].pixel
	}

	for phase := lock.Phase(0); phase < lock.NumPhases; phase++ {
		surface.Backgrounds[phase], err = c.createBackground(s, background, colors[phase])
		if err != nil {
			return nil, fmt.Errorf("create %s background: %w", phase, err)
		}
	}

	cursor, err := c.createInvisibleCursor(s.Root)
	if err != nil {
		return nil, err
	}
	surface.Cursor = uint32(cursor)

	wid, err := xproto.NewWindowId(c.conn)
	if err != nil {
		return nil, fmt.Errorf("allocate window id: %w", err)
	}

	// Values in the order of their mask bits.
	err = xproto.CreateWindowChecked(c.conn, s.RootDepth, wid, s.Root,
		0, 0, s.WidthInPixels, s.HeightInPixels, 0,
		xproto.WindowClassInputOutput, s.RootVisual,
		xproto.CwBackPixmap|xproto.CwOverrideRedirect|xproto.CwCursor,
		[]uint32{surface.Backgrounds[lock.PhaseInitial], 1, uint32(cursor)},
	).Check()
	if err != nil {
		return nil, fmt.Errorf("create window: %w", err)
	}
	surface.Window = uint32(wid)

	return surface, nil
}

// createBackground uploads the tinted background image to a new pixmap.
func (c *Conn) createBackground(s *xproto.ScreenInfo, background *pixelate.Image, tint color) (uint32, error) {
	pid, err := xproto.NewPixmapId(c.conn)
	if err != nil {
		return 0, fmt.Errorf("allocate pixmap id: %w", err)
	}
	err = xproto.CreatePixmapChecked(c.conn, s.RootDepth, pid, xproto.Drawable(s.Root),
		s.WidthInPixels, s.HeightInPixels).Check()
	if err != nil {
		return 0, fmt.Errorf("create pixmap: %w", err)
	}

	gc, err := xproto.NewGcontextId(c.conn)
	if err != nil {
		return 0, fmt.Errorf("allocate graphics context id: %w", err)
	}
	xproto.CreateGC(c.conn, gc, xproto.Drawable(pid), xproto.GcForeground, []uint32{tint.pixel})
	defer xproto.FreeGC(c.conn, gc)

	if background == nil {
		xproto.PolyFillRectangle(c.conn, xproto.Drawable(pid), gc, []xproto.Rectangle{
			{Width: s.WidthInPixels, Height: s.HeightInPixels},
		})
		return uint32(pid), nil
	}

	if _, err := c.pixmapFormat(s.RootDepth); err != nil {
		return 0, err
	}

	img := pixelate.Tint(background, tint.tint(), c.TintOpacity)
	maxBytes := int(c.setup.MaximumRequestLength) * 4
	for _, rows := range chunkRows(img.Width, img.Height, maxBytes) {
		data := img.EncodeZPixmap(rows[0], rows[1], c.bigEndian())
		err := xproto.PutImageChecked(c.conn, xproto.ImageFormatZPixmap, xproto.Drawable(pid), gc,
			uint16(img.Width), uint16(rows[1]-rows[0]), 0, int16(rows[0]), 0, s.RootDepth, data).Check()
		if err != nil {
			return 0, fmt.Errorf("upload background: %w", err)
		}
	}

	return uint32(pid), nil
}

// chunkRows splits an image into row ranges [first, last) whose PutImage requests fit in
// maxBytes.
func chunkRows(width, height, maxBytes int) [][2]int {
	rowBytes := width * 4
	perChunk := 1
	if rowBytes > 0 {
		perChunk = max((maxBytes-putImageHeader)/rowBytes, 1)
	}

	var chunks [][2]int
	for first := 0; first < height; first += perChunk {
		chunks = append(chunks, [2]int{first, min(first+perChunk, height)})
	}
	return chunks
}

// createInvisibleCursor creates a cursor from an empty 1x1 bitmap.
func (c *Conn) createInvisibleCursor(root xproto.Window) (xproto.Cursor, error) {
	pid, err := xproto.NewPixmapId(c.conn)
	if err != nil {
		return 0, fmt.Errorf("allocate pixmap id: %w", err)
	}
	xproto.CreatePixmap(c.conn, 1, pid, xproto.Drawable(root), 1, 1)
	defer xproto.FreePixmap(c.conn, pid)

	gc, err := xproto.NewGcontextId(c.conn)
	if err != nil {
		return 0, fmt.Errorf("allocate graphics context id: %w", err)
	}
	xproto.CreateGC(c.conn, gc, xproto.Drawable(pid), xproto.GcForeground, []uint32{0})
	xproto.PolyFillRectangle(c.conn, xproto.Drawable(pid), gc, []xproto.Rectangle{{Width: 1, Height: 1}})
	xproto.FreeGC(c.conn, gc)

	cid, err := xproto.NewCursorId(c.conn)
	if err != nil {
		return 0, fmt.Errorf("allocate cursor id: %w", err)
	}
	err = xproto.CreateCursorChecked(c.conn, cid, pid, pid, 0, 0, 0, 0, 0, 0, 0, 0).Check()
	if err != nil {
		return 0, fmt.Errorf("create invisible cursor: %w", err)
	}

	return cid, nil
}

// grabWindow is the window grabs are made on. The lock window is not viewable until it is
// mapped after the grabs succeed, so the root window of the screen is used.
func grabWindow(s *lock.Surface) xproto.Window {
	return xproto.Window(s.Root)
}

// GrabPointer tries once to grab the pointer for the surface.
func (c *Conn) GrabPointer(s *lock.Surface) lock.GrabResult {
	reply, err := xproto.GrabPointer(c.conn, false, grabWindow(s),
		xproto.EventMaskButtonPress|xproto.EventMaskButtonRelease|xproto.EventMaskPointerMotion,
		xproto.GrabModeAsync, xproto.GrabModeAsync, xproto.WindowNone,
		xproto.Cursor(s.Cursor), xproto.TimeCurrentTime).Reply()
	if err != nil {
		c.logger.Debug("pointer grab request failed", "screen", s.Screen, "error", err)
		return lock.GrabOtherFailure
	}
	return grabResult(reply.Status)
}

// GrabKeyboard tries once to grab the keyboard for the surface.
func (c *Conn) GrabKeyboard(s *lock.Surface) lock.GrabResult {
	reply, err := xproto.GrabKeyboard(c.conn, true, grabWindow(s), xproto.TimeCurrentTime,
		xproto.GrabModeAsync, xproto.GrabModeAsync).Reply()
	if err != nil {
		c.logger.Debug("keyboard grab request failed", "screen", s.Screen, "error", err)
		return lock.GrabOtherFailure
	}
	return grabResult(reply.Status)
}

func grabResult(status byte) lock.GrabResult {
	switch status {
	case xproto.GrabStatusSuccess:
		return lock.GrabSuccess
	case xproto.GrabStatusAlreadyGrabbed:
		return lock.GrabAlreadyGrabbed
	default:
		return lock.GrabOtherFailure
	}
}

// MapRaised maps the lock window on top of all other windows and watches the root for new
// windows, whose appearance makes the event loop raise the lock windows again.
func (c *Conn) MapRaised(s *lock.Surface) error {
	if err := xproto.MapWindowChecked(c.conn, xproto.Window(s.Window)).Check(); err != nil {
		return err
	}
	if err := c.Raise(s); err != nil {
		return err
	}
	return xproto.ChangeWindowAttributesChecked(c.conn, xproto.Window(s.Root),
		xproto.CwEventMask, []uint32{xproto.EventMaskSubstructureNotify}).Check()
}

// WatchGeometry subscribes the lock window to RandR screen change notifications.
func (c *Conn) WatchGeometry(s *lock.Surface) (bool, error) {
	if !c.randr {
		return false, nil
	}
	err := randr.SelectInputChecked(c.conn, xproto.Window(s.Window), randr.NotifyMaskScreenChange).Check()
	if err != nil {
		return false, err
	}
	return true, nil
}

// SetBackground shows the background pixmap of phase and redraws the window.
func (c *Conn) SetBackground(s *lock.Surface, phase lock.Phase) error {
	err := xproto.ChangeWindowAttributesChecked(c.conn, xproto.Window(s.Window),
		xproto.CwBackPixmap, []uint32{s.Backgrounds[phase]}).Check()
	if err != nil {
		return err
	}
	return c.clear(s)
}

// Resize changes the size of the lock window and redraws it.
func (c *Conn) Resize(s *lock.Surface, width, height uint16) error {
	err := xproto.ConfigureWindowChecked(c.conn, xproto.Window(s.Window),
		xproto.ConfigWindowWidth|xproto.ConfigWindowHeight, []uint32{uint32(width), uint32(height)}).Check()
	if err != nil {
		return err
	}
	return c.clear(s)
}

// Raise puts the lock window on top of its siblings.
func (c *Conn) Raise(s *lock.Surface) error {
	return xproto.ConfigureWindowChecked(c.conn, xproto.Window(s.Window),
		xproto.ConfigWindowStackMode, []uint32{xproto.StackModeAbove}).Check()
}

// clear repaints the whole window with its background.
func (c *Conn) clear(s *lock.Surface) error {
	return xproto.ClearAreaChecked(c.conn, false, xproto.Window(s.Window), 0, 0, 0, 0).Check()
}

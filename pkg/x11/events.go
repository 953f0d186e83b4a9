package x11

import (
	"github.com/MatthiasKunnen/pixlock/pkg/auth"
	"github.com/MatthiasKunnen/pixlock/pkg/keysym"
	"github.com/MatthiasKunnen/pixlock/pkg/lock"
	"github.com/jezek/xgb/randr"
	"github.com/jezek/xgb/xproto"
)

// bellPercent is the volume of the bell relative to the base volume.
const bellPercent = 100

// NextEvent blocks until the next event arrives. Protocol errors of earlier requests are logged
// and skipped.
func (c *Conn) NextEvent() (auth.Event, error) {
	for {
		ev, xerr := c.conn.WaitForEvent()
		if ev == nil && xerr == nil {
			return nil, auth.ErrDisplayClosed
		}
		if xerr != nil {
			c.logger.Warn("X protocol error", "error", xerr)
			continue
		}

		switch ev := ev.(type) {
		case xproto.KeyPressEvent:
			return c.keyPress(ev), nil
		case randr.ScreenChangeNotifyEvent:
			return auth.GeometryChange{
				Window:   uint32(ev.RequestWindow),
				Width:    ev.Width,
				Height:   ev.Height,
				Rotation: rotationDegrees(ev.Rotation),
			}, nil
		case xproto.MappingNotifyEvent:
			if ev.Request != xproto.MappingPointer {
				if err := c.loadKeymap(); err != nil {
					c.logger.Warn("unable to reload keyboard mapping", "error", err)
				}
			}
		}

		return auth.Other{}, nil
	}
}

func (c *Conn) keyPress(ev xproto.KeyPressEvent) auth.KeyPress {
	mods := keysym.Modifiers{
		Shift:   ev.State&xproto.ModMaskShift != 0,
		Lock:    ev.State&xproto.ModMaskLock != 0,
		NumLock: c.numLockMask != 0 && ev.State&c.numLockMask != 0,
	}
	sym := c.keymap.Lookup(int(ev.Detail), mods)

	return auth.KeyPress{
		Keysym: sym,
		Text:   keysym.Text(sym, ev.State&xproto.ModMaskControl != 0),
		Root:   uint32(ev.Root),
		Raw:    ev.Bytes(),
	}
}

// rotationDegrees converts a RandR rotation mask to degrees.
func rotationDegrees(rotation byte) int {
	switch {
	case rotation&randr.RotationRotate90 != 0:
		return 90
	case rotation&randr.RotationRotate180 != 0:
		return 180
	case rotation&randr.RotationRotate270 != 0:
		return 270
	default:
		return 0
	}
}

// ForwardKey sends the key press to the root window so other clients, such as media key
// daemons, still see it.
func (c *Conn) ForwardKey(root uint32, key auth.KeyPress) error {
	return xproto.SendEventChecked(c.conn, true, xproto.Window(root),
		xproto.EventMaskKeyPress, string(key.Raw)).Check()
}

// Bell rings the keyboard bell.
func (c *Conn) Bell() {
	xproto.Bell(c.conn, bellPercent)
}

// Flush waits until the server processed every request sent so far.
func (c *Conn) Flush() error {
	c.conn.Sync()
	return nil
}

var (
	_ lock.Display = (*Conn)(nil)
	_ auth.Display = (*Conn)(nil)
)

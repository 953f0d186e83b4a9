package x11

import (
	"fmt"
	"github.com/MatthiasKunnen/pixlock/pkg/pixelate"
	"github.com/jezek/xgb/xproto"
	"strconv"
	"strings"
)

// color is an allocated colormap entry.
type color struct {
	pixel uint32
	red   uint16
	green uint16
	blue  uint16
}

// tint returns the color as an opaque pixel for blending.
func (c color) tint() pixelate.Pixel {
	return pixelate.Pixel{A: 0xff, R: uint8(c.red >> 8), G: uint8(c.green >> 8), B: uint8(c.blue >> 8)}
}

// parseHexColor parses the #RGB, #RRGGBB, #RRRGGGBBB and #RRRRGGGGBBBB notations.
// ok is false when name is not in hex notation, in which case the server resolves it.
func parseHexColor(name string) (r, g, b uint16, ok bool, err error) {
	digits, found := strings.CutPrefix(name, "#")
	if !found {
		return 0, 0, 0, false, nil
	}

	n := len(digits) / 3
	if len(digits)%3 != 0 || n < 1 || n > 4 {
		return 0, 0, 0, true, fmt.Errorf("invalid color %q", name)
	}

	var channels [3]uint16
	for i := range channels {
		v, err := strconv.ParseUint(digits[i*n:(i+1)*n], 16, 16)
		if err != nil {
			return 0, 0, 0, true, fmt.Errorf("invalid color %q: %w", name, err)
		}
		channels[i] = uint16(v << (16 - 4*n))
	}

	return channels[0], channels[1], channels[2], true, nil
}

// allocColor allocates a color by name or hex notation in the colormap.
func (c *Conn) allocColor(cmap xproto.Colormap, name string) (color, error) {
	r, g, b, isHex, err := parseHexColor(name)
	if err != nil {
		return color{}, err
	}

	if isHex {
		reply, err := xproto.AllocColor(c.conn, cmap, r, g, b).Reply()
		if err != nil {
			return color{}, fmt.Errorf("allocate color %s: %w", name, err)
		}
		return color{pixel: reply.Pixel, red: reply.Red, green: reply.Green, blue: reply.Blue}, nil
	}

	reply, err := xproto.AllocNamedColor(c.conn, cmap, uint16(len(name)), name).Reply()
	if err != nil {
		return color{}, fmt.Errorf("allocate color %s: %w", name, err)
	}
	return color{
		pixel: reply.Pixel,
		red:   reply.ExactRed,
		green: reply.ExactGreen,
		blue:  reply.ExactBlue,
	}, nil
}

package x11

import (
	"github.com/MatthiasKunnen/pixlock/pkg/keysym"
	"github.com/MatthiasKunnen/pixlock/pkg/lock"
	"github.com/MatthiasKunnen/pixlock/pkg/pixelate"
	"github.com/jezek/xgb/randr"
	"github.com/jezek/xgb/xproto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		name    string
		r, g, b uint16
	}{
		{"#fff", 0xf000, 0xf000, 0xf000},
		{"#005577", 0x0000, 0x5500, 0x7700},
		{"#CC3333", 0xcc00, 0x3300, 0x3300},
		{"#123456789", 0x1230, 0x4560, 0x7890},
		{"#ffff00000000", 0xffff, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, g, b, ok, err := parseHexColor(tt.name)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, [3]uint16{tt.r, tt.g, tt.b}, [3]uint16{r, g, b})
		})
	}
}

func TestParseHexColor_Named(t *testing.T) {
	_, _, _, ok, err := parseHexColor("black")
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestParseHexColor_Invalid(t *testing.T) {
	for _, name := range []string{"#", "#12", "#1234", "#gggggg", "#1234567890123"} {
		_, _, _, _, err := parseHexColor(name)
		assert.Error(t, err, name)
	}
}

func TestColorTint(t *testing.T) {
	c := color{red: 0xcc00, green: 0x3300, blue: 0x33ff}
	assert.Equal(t, pixelate.Pixel{A: 0xff, R: 0xcc, G: 0x33, B: 0x33}, c.tint())
}

func TestChunkRows(t *testing.T) {
	// 100 pixel rows take 400 bytes, 1024 bytes fit two rows next to the header.
	chunks := chunkRows(100, 5, 1024)
	assert.Equal(t, [][2]int{{0, 2}, {2, 4}, {4, 5}}, chunks)

	// A row larger than a request is still sent one at a time.
	assert.Equal(t, [][2]int{{0, 1}, {1, 2}}, chunkRows(1000, 2, 1024))

	assert.Empty(t, chunkRows(100, 0, 1024))
}

func TestStride(t *testing.T) {
	assert.Equal(t, 400, stride(100, xproto.Format{Depth: 24, BitsPerPixel: 32, ScanlinePad: 32}))
	assert.Equal(t, 8, stride(3, xproto.Format{Depth: 16, BitsPerPixel: 16, ScanlinePad: 32}))
}

func TestGrabResult(t *testing.T) {
	assert.Equal(t, lock.GrabSuccess, grabResult(xproto.GrabStatusSuccess))
	assert.Equal(t, lock.GrabAlreadyGrabbed, grabResult(xproto.GrabStatusAlreadyGrabbed))
	assert.Equal(t, lock.GrabOtherFailure, grabResult(xproto.GrabStatusFrozen))
	assert.Equal(t, lock.GrabOtherFailure, grabResult(xproto.GrabStatusNotViewable))
}

func TestGrabWindow_IsRoot(t *testing.T) {
	s := &lock.Surface{Screen: 1, Root: 0x2a, Window: 0x400001, Cursor: 0x400002}
	assert.Equal(t, xproto.Window(0x2a), grabWindow(s))
}

func TestRotationDegrees(t *testing.T) {
	assert.Equal(t, 0, rotationDegrees(randr.RotationRotate0))
	assert.Equal(t, 90, rotationDegrees(randr.RotationRotate90))
	assert.Equal(t, 180, rotationDegrees(randr.RotationRotate180))
	assert.Equal(t, 270, rotationDegrees(randr.RotationRotate270|randr.RotationReflectX))
}

func TestNumLockMask(t *testing.T) {
	// Keycodes 8 and 9, two keysyms each.
	keymap := keysym.NewMap(8, 2, []keysym.Keysym{
		keysym.ShiftL, keysym.NoSymbol,
		keysym.NumLock, keysym.NoSymbol,
	})

	// Shift holds keycode 8, Mod2 holds keycode 9.
	keycodes := make([]xproto.Keycode, 8*2)
	keycodes[0] = 8
	keycodes[4*2] = 9

	assert.Equal(t, uint16(xproto.ModMask2), numLockMask(keymap, 2, keycodes))
	assert.Zero(t, numLockMask(keymap, 2, keycodes[:4]))
	assert.Zero(t, numLockMask(keymap, 0, nil))
}

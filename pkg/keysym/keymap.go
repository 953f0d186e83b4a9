package keysym

import (
	"unicode"
)

// Modifiers is the modifier state relevant for choosing a keysym.
type Modifiers struct {
	Shift   bool
	Lock    bool
	NumLock bool
}

// Map translates keycodes to keysyms using the core keyboard mapping of the display.
// Only the first group is consulted.
type Map struct {
	minKeycode int
	perKeycode int
	syms       []Keysym
}

// NewMap wraps a keyboard mapping as returned by the server: perKeycode keysyms for every
// keycode starting at minKeycode.
func NewMap(minKeycode, perKeycode int, syms []Keysym) *Map {
	return &Map{
		minKeycode: minKeycode,
		perKeycode: perKeycode,
		syms:       syms,
	}
}

func (m *Map) column(keycode, col int) Keysym {
	if m.perKeycode <= col {
		return NoSymbol
	}
	i := (keycode-m.minKeycode)*m.perKeycode + col
	if keycode < m.minKeycode || i >= len(m.syms) {
		return NoSymbol
	}
	return m.syms[i]
}

// Lookup returns the keysym for keycode under the given modifiers, following the selection rules
// of the core X protocol.
func (m *Map) Lookup(keycode int, mods Modifiers) Keysym {
	lower := m.column(keycode, 0)
	upper := m.column(keycode, 1)
	if upper == NoSymbol {
		lower, upper = caseVariants(lower)
	}

	switch {
	case mods.NumLock && IsKeypadKey(upper):
		if mods.Shift {
			return lower
		}
		return upper
	case !mods.Shift && !mods.Lock:
		return lower
	case !mods.Shift:
		return toUpper(lower)
	case mods.Lock:
		return toUpper(upper)
	default:
		return upper
	}
}

// caseVariants returns the lower and upper case forms of k. Keysyms without case are returned
// twice.
func caseVariants(k Keysym) (Keysym, Keysym) {
	return toLower(k), toUpper(k)
}

func toLower(k Keysym) Keysym {
	return mapCase(k, unicode.ToLower)
}

func toUpper(k Keysym) Keysym {
	return mapCase(k, unicode.ToUpper)
}

func mapCase(k Keysym, f func(rune) rune) Keysym {
	switch {
	case k >= 0x20 && k <= 0xff:
		r := f(rune(k))
		// ÿ upper cases outside Latin-1 and ß has no single rune upper case.
		if r > 0xff {
			return k
		}
		return Keysym(r)
	case k >= unicodeOffset+0x100 && k <= unicodeOffset+0x10ffff:
		return unicodeOffset + Keysym(f(rune(k-unicodeOffset)))
	}
	return k
}

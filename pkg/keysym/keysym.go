// Package keysym classifies X keysyms and converts them to text.
//
// Only what a password prompt needs is covered: the handful of control keys that drive the
// prompt, the classes of keys that carry no text, the media keys that must keep working while
// the screen is locked, and the mapping of text-producing keysyms to runes.
package keysym

import (
	"unicode/utf8"
)

// Keysym is an X keysym value.
type Keysym uint32

const (
	NoSymbol Keysym = 0

	BackSpace Keysym = 0xff08
	Tab       Keysym = 0xff09
	Return    Keysym = 0xff0d
	Escape    Keysym = 0xff1b
	Delete    Keysym = 0xffff

	Select     Keysym = 0xff60
	Break      Keysym = 0xff6b
	ModeSwitch Keysym = 0xff7e
	NumLock    Keysym = 0xff7f

	KPSpace Keysym = 0xff80
	KPTab   Keysym = 0xff89
	KPEnter Keysym = 0xff8d
	KPF1    Keysym = 0xff91
	KPF4    Keysym = 0xff94
	KPMul   Keysym = 0xffaa
	KP0     Keysym = 0xffb0
	KP9     Keysym = 0xffb9
	KPEqual Keysym = 0xffbd

	F1  Keysym = 0xffbe
	F35 Keysym = 0xffe0

	ShiftL    Keysym = 0xffe1
	HyperR    Keysym = 0xffee
	ISOLock   Keysym = 0xfe01
	ISOLevel5 Keysym = 0xfe13

	Digit0 Keysym = 0x30

	AudioLowerVolume  Keysym = 0x1008ff11
	AudioMute         Keysym = 0x1008ff12
	AudioRaiseVolume  Keysym = 0x1008ff13
	AudioPlay         Keysym = 0x1008ff14
	AudioStop         Keysym = 0x1008ff15
	AudioPrev         Keysym = 0x1008ff16
	AudioNext         Keysym = 0x1008ff17
	AudioMicMute      Keysym = 0x1008ffb2
	MonBrightnessUp   Keysym = 0x1008ff02
	MonBrightnessDown Keysym = 0x1008ff03

	unicodeOffset Keysym = 0x01000000
)

func IsKeypadKey(k Keysym) bool {
	return k >= KPSpace && k <= KPEqual
}

func IsPrivateKeypadKey(k Keysym) bool {
	return k >= 0x11000000 && k <= 0x1100ffff
}

func IsFunctionKey(k Keysym) bool {
	return k >= F1 && k <= F35
}

func IsMiscFunctionKey(k Keysym) bool {
	return k >= Select && k <= Break
}

func IsPFKey(k Keysym) bool {
	return k >= KPF1 && k <= KPF4
}

func IsModifierKey(k Keysym) bool {
	return (k >= ShiftL && k <= HyperR) ||
		(k >= ISOLock && k <= ISOLevel5) ||
		k == ModeSwitch ||
		k == NumLock
}

// Remap folds the keypad Enter and digit keys onto their main keyboard equivalents.
func Remap(k Keysym) Keysym {
	switch {
	case k == KPEnter:
		return Return
	case k >= KP0 && k <= KP9:
		return k - KP0 + Digit0
	}
	return k
}

// IsTextless reports whether k is a function, modifier or keypad control key.
// Such keys never contribute to a password. Apply Remap first so keypad digits survive.
func IsTextless(k Keysym) bool {
	return IsFunctionKey(k) ||
		IsKeypadKey(k) ||
		IsMiscFunctionKey(k) ||
		IsPFKey(k) ||
		IsPrivateKeypadKey(k) ||
		IsModifierKey(k)
}

// IsMediaKey reports whether k is an audio or brightness control that should reach the rest of
// the session while it is locked.
func IsMediaKey(k Keysym) bool {
	switch k {
	case AudioPlay, AudioStop, AudioPrev, AudioNext,
		AudioRaiseVolume, AudioLowerVolume, AudioMute, AudioMicMute,
		MonBrightnessDown, MonBrightnessUp:
		return true
	}
	return false
}

// Rune returns the character produced by k, if any.
//
// Latin-1 keysyms map to themselves, Unicode keysyms carry their code point at offset
// 0x01000000, and the TTY function keys and keypad keys produce their ASCII equivalent (which may
// be a control character).
func Rune(k Keysym) (rune, bool) {
	switch {
	case (k >= 0x20 && k <= 0x7e) || (k >= 0xa0 && k <= 0xff):
		return rune(k), true
	case k >= unicodeOffset+0x100 && k <= unicodeOffset+0x10ffff:
		r := rune(k - unicodeOffset)
		return r, utf8.ValidRune(r)
	case k >= BackSpace && k <= Escape, k == Delete:
		return rune(k & 0x7f), true
	case k == KPSpace:
		return ' ', true
	case k == KPTab, k == KPEnter, (k >= KPMul && k <= KP9), k == KPEqual:
		return rune(k & 0x7f), true
	}
	return 0, false
}

// Text returns the UTF-8 text produced by k, or "" when it produces none.
// With control held, letters and @[\]^_ map to the matching C0 control character like a
// terminal would.
func Text(k Keysym, control bool) string {
	r, ok := Rune(k)
	if !ok {
		return ""
	}
	if control && ((r >= '@' && r <= '_') || (r >= 'a' && r <= 'z')) {
		r &= 0x1f
	}
	return string(r)
}

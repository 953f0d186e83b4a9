// Package wayland detects whether the lock runs inside a Wayland session.
//
// Grabbing input on an X server does not keep a Wayland compositor from handing input to other
// clients, so a lock started from a Wayland session through Xwayland protects nothing. [Guard]
// refuses or warns about such sessions.
package wayland

// Package x11 connects the lock to an X server.
//
// [Conn] implements both [lock.Display] and [auth.Display] on top of the core protocol and the
// RandR extension, which is used only to follow changes of the screen geometry.
package x11

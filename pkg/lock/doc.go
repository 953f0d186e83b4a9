// Package lock turns every screen of a display into a modal barrier.
//
// A [Coordinator] creates one override-redirect window per screen, installs its background and
// grabs pointer and keyboard input. Locking is all or nothing: the first screen that cannot be
// grabbed stops the coordinator and the caller is expected to exit without ever accepting a
// password.
//
// [SessionHint] mirrors the lock state into systemd-logind using its D-Bus interface,
// [org.freedesktop.login1], so that other session components can see that the screen is locked.
//
// [org.freedesktop.login1]: https://www.freedesktop.org/software/systemd/man/latest/org.freedesktop.login1.html
package lock

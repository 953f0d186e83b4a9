// Package auth implements the event loop that runs while the session is locked.
//
// A [Session] reads events from the display one at a time, collects the password typed by the
// user, verifies it on Enter and keeps every locked screen showing the same [lock.Phase].
// The only way out of [Session.Run] is a verified password or the loss of the display
// connection.
package auth

package lock

import (
	"errors"
	"fmt"
	"github.com/godbus/dbus/v5"
)

const (
	login1Dest = "org.freedesktop.login1"
	login1Path = "/org/freedesktop/login1"
)

// SessionHint publishes the lock state of a logind session through its LockedHint property.
//
// Only the hint is written. The Lock and Unlock signals of logind are ignored, the screen only
// unlocks after the password was entered.
type SessionHint struct {
	conn    *dbus.Conn
	session dbus.BusObject
}

// NewSessionHint connects to the system bus and resolves the logind object of the given session.
//
// sessionId is the ID of the session. Usually set to the XDG_SESSION_ID env var.
func NewSessionHint(sessionId string) (*SessionHint, error) {
	if sessionId == "" {
		return nil, errors.New("sessionId is empty")
	}

	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to system bus: %w", err)
	}

	var sessions []interface{}
	err = conn.Object(login1Dest, login1Path).
		Call("org.freedesktop.login1.Manager.ListSessions", 0).
		Store(&sessions)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to list sessions: %w", err), conn.Close())
	}

	sessionPath, err := findSessionPath(sessions, sessionId)
	if err != nil {
		return nil, errors.Join(err, conn.Close())
	}

	return &SessionHint{
		conn:    conn,
		session: conn.Object(login1Dest, sessionPath),
	}, nil
}

// findSessionPath picks the object path of sessionId out of a ListSessions result.
// Every session is a struct of (id, uid, user, seat, path).
func findSessionPath(sessions []interface{}, sessionId string) (dbus.ObjectPath, error) {
	for i, sessionInt := range sessions {
		session, ok := sessionInt.([]interface{})
		if !ok || len(session) < 5 {
			return "", fmt.Errorf("session %d is not a session struct: %+v", i, sessionInt)
		}

		currentSessionId, ok := session[0].(string)
		if !ok {
			return "", fmt.Errorf("session %d[0] is not a string: %+v", i, session[0])
		}
		if currentSessionId != sessionId {
			continue
		}

		sessionPath, ok := session[4].(dbus.ObjectPath)
		if !ok {
			return "", fmt.Errorf("session %d[4] is not an ObjectPath: %+v", i, session[4])
		}
		return sessionPath, nil
	}

	return "", fmt.Errorf("session %q not found", sessionId)
}

// SetLocked sets the LockedHint of the session; true=Locked, false=unlocked.
func (h *SessionHint) SetLocked(locked bool) error {
	err := h.session.Call("org.freedesktop.login1.Session.SetLockedHint", 0, locked).Err
	if err != nil {
		return fmt.Errorf("could not set locked hint: %w", err)
	}

	return nil
}

// GetLocked gets the LockedHint of the session.
func (h *SessionHint) GetLocked() (bool, error) {
	variant, err := h.session.GetProperty("org.freedesktop.login1.Session.LockedHint")
	if err != nil {
		return false, fmt.Errorf("could not get locked hint: %w", err)
	}

	lockedHint, ok := variant.Value().(bool)
	if !ok {
		return false, fmt.Errorf("LockedHint property result is not a boolean")
	}

	return lockedHint, nil
}

func (h *SessionHint) Close() error {
	return h.conn.Close()
}

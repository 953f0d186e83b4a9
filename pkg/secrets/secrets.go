package secrets

import (
	"fmt"
	"github.com/godbus/dbus/v5"
	"strings"
)

const (
	dbusDest             = "org.freedesktop.secrets"
	dbusServiceInterface = "org.freedesktop.Secret.Service"
	dbusPath             = "/org/freedesktop/secrets"
)

type Secrets struct {
	conn *dbus.Conn
	obj  dbus.BusObject
}

func New() (*Secrets, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}

	return &Secrets{
		conn: conn,
		obj:  conn.Object(dbusDest, dbusPath),
	}, nil
}

// Lock locks the given objects. The given objects are prepended by "/org/freedesktop/secrets/",
// e.g. "collection/login" or "aliases/default".
// It returns the objects that were locked without the need for a prompt.
func (s *Secrets) Lock(paths []string) ([]dbus.ObjectPath, error) {
	objs, err := objectPaths(paths)
	if err != nil {
		return nil, err
	}

	var locked []dbus.ObjectPath
	var prompt dbus.ObjectPath
	err = s.obj.Call(dbusServiceInterface+".Lock", 0, objs).Store(&locked, &prompt)
	if err != nil {
		return nil, fmt.Errorf("could not lock collection: %w", err)
	}

	return locked, nil
}

// Close closes the bus connection.
func (s *Secrets) Close() error {
	return s.conn.Close()
}

func objectPaths(paths []string) ([]dbus.ObjectPath, error) {
	objs := make([]dbus.ObjectPath, len(paths))
	for i, path := range paths {
		obj := dbus.ObjectPath(dbusPath + "/" + strings.Trim(path, "/"))
		if !obj.IsValid() {
			return nil, fmt.Errorf("invalid secret service object %q", path)
		}
		objs[i] = obj
	}
	return objs, nil
}

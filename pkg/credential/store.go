package credential

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/user"
	"strconv"
	"strings"
)

const shadowIndirection = "x"

var errNoSuchUID = errors.New("no entry for uid")

var (
	ErrNoPasswdEntry = errors.New("cannot retrieve password entry")
	ErrNoShadowEntry = errors.New("cannot retrieve shadow entry, make sure the binary is setuid or setgid")
)

// Store reads password hashes from passwd and shadow formatted files.
type Store struct {
	PasswdPath string
	ShadowPath string

	// LookupName resolves a UID missing from PasswdPath to a user name, whose hash is then read
	// from ShadowPath. Nil disables the fallback.
	LookupName func(uid int) (string, error)
}

// DefaultStore returns the Store of the local system databases. Users only known to NSS
// (LDAP, sssd) are resolved through os/user.
func DefaultStore() Store {
	return Store{
		PasswdPath: "/etc/passwd",
		ShadowPath: "/etc/shadow",
		LookupName: lookupName,
	}
}

func lookupName(uid int) (string, error) {
	u, err := user.LookupId(strconv.Itoa(uid))
	if err != nil {
		return "", err
	}
	return u.Username, nil
}

// LookupUID returns the password hash of the user with the given UID.
func (s Store) LookupUID(uid int) (*Hash, error) {
	name, password, err := s.passwdByUID(uid)
	if errors.Is(err, errNoSuchUID) && s.LookupName != nil {
		name, err = s.LookupName(uid)
		if err != nil {
			return nil, fmt.Errorf("%w: uid %d: %w", ErrNoPasswdEntry, uid, err)
		}
		password = shadowIndirection
	}
	if err != nil {
		return nil, err
	}

	if password == shadowIndirection {
		password, err = s.shadowByName(name)
		if err != nil {
			return nil, err
		}
	}

	hash, err := NewHash(password)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", name, err)
	}

	return hash, nil
}

func (s Store) passwdByUID(uid int) (name string, password string, err error) {
	f, err := os.Open(s.PasswdPath)
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrNoPasswdEntry, err)
	}
	defer f.Close()

	want := strconv.Itoa(uid)
	fields, err := findEntry(f, func(fields []string) bool {
		return len(fields) >= 7 && fields[2] == want
	})
	if err != nil {
		return "", "", fmt.Errorf("%w: %s: %w", ErrNoPasswdEntry, s.PasswdPath, err)
	}
	if fields == nil {
		return "", "", fmt.Errorf("%w: %w %d", ErrNoPasswdEntry, errNoSuchUID, uid)
	}

	return fields[0], fields[1], nil
}

func (s Store) shadowByName(name string) (string, error) {
	f, err := os.Open(s.ShadowPath)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNoShadowEntry, err)
	}
	defer f.Close()

	fields, err := findEntry(f, func(fields []string) bool {
		return len(fields) >= 2 && fields[0] == name
	})
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrNoShadowEntry, s.ShadowPath, err)
	}
	if fields == nil {
		return "", fmt.Errorf("%w: no entry for %s", ErrNoShadowEntry, name)
	}

	return fields[1], nil
}

// findEntry returns the colon separated fields of the first line accepted by match, or nil when
// no line matches. Comments, blank lines and NIS compat lines are skipped.
func findEntry(r io.Reader, match func(fields []string) bool) ([]string, error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || line[0] == '#' || line[0] == '+' || line[0] == '-' {
			continue
		}

		fields := strings.Split(line, ":")
		if match(fields) {
			return fields, nil
		}
	}

	return nil, scanner.Err()
}

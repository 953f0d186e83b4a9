// Package privdrop lowers the privileges of the process to an unprivileged user and group.
//
// The process typically starts setuid root so it can read the shadow database and exempt itself
// from the OOM killer. Everything that needs those rights must happen before Drop; everything
// that handles input from the session must happen after it.
package privdrop

import (
	"errors"
	"fmt"
	"golang.org/x/sys/unix"
	"io/fs"
	"os"
	"os/user"
	"strconv"
	"syscall"
)

// OOMScoreAdjPath is the OOM killer control file of the current process.
const OOMScoreAdjPath = "/proc/self/oom_score_adj"

// oomScoreAdjMin disables OOM killing of the process.
const oomScoreAdjMin = -1000

var (
	ErrOOMPermission  = errors.New("unable to disable OOM killer, make sure the binary is setuid or setgid")
	ErrRootTarget     = errors.New("refusing to drop privileges to root")
	ErrIncompleteDrop = errors.New("privileges were not fully dropped")
)

// Target is the identity the process drops to.
type Target struct {
	User  string
	Group string
	UID   int
	GID   int
}

// ResolveTarget looks up the drop user and group by name.
func ResolveTarget(userName, groupName string) (Target, error) {
	u, err := user.Lookup(userName)
	if err != nil {
		return Target{}, fmt.Errorf("getpwnam %s: %w", userName, err)
	}
	g, err := user.LookupGroup(groupName)
	if err != nil {
		return Target{}, fmt.Errorf("getgrnam %s: %w", groupName, err)
	}

	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return Target{}, fmt.Errorf("user %s has non-numeric uid %q", userName, u.Uid)
	}
	gid, err := strconv.Atoi(g.Gid)
	if err != nil {
		return Target{}, fmt.Errorf("group %s has non-numeric gid %q", groupName, g.Gid)
	}

	if uid == 0 || gid == 0 {
		return Target{}, fmt.Errorf("%w: %s:%s", ErrRootTarget, userName, groupName)
	}

	return Target{User: userName, Group: groupName, UID: uid, GID: gid}, nil
}

// ExemptFromOOMKiller asks the kernel never to OOM kill this process by writing to the
// oom_score_adj file at path. A missing file means the platform has no such control and is not
// an error.
func ExemptFromOOMKiller(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return oomError(path, err)
	}

	_, writeErr := fmt.Fprintf(f, "%d", oomScoreAdjMin)
	if err := errors.Join(writeErr, f.Close()); err != nil {
		return oomError(path, err)
	}

	return nil
}

func oomError(path string, err error) error {
	if errors.Is(err, fs.ErrPermission) {
		return fmt.Errorf("%w: %w", ErrOOMPermission, err)
	}
	return fmt.Errorf("%s: %w", path, err)
}

// Syscalls are the primitives Drop is built on.
type Syscalls interface {
	Setgroups(gids []int) error
	Setgid(gid int) error
	Setuid(uid int) error
	Getuid() int
	Geteuid() int
	Getgid() int
	Getegid() int
}

// System performs the real system calls. The setters apply to every thread of the process.
var System Syscalls = system{}

type system struct{}

// Setgroups uses the syscall package; unix.Setgroups only affects the calling thread.
func (system) Setgroups(gids []int) error { return syscall.Setgroups(gids) }
func (system) Setgid(gid int) error       { return unix.Setgid(gid) }
func (system) Setuid(uid int) error       { return unix.Setuid(uid) }
func (system) Getuid() int                { return unix.Getuid() }
func (system) Geteuid() int               { return unix.Geteuid() }
func (system) Getgid() int                { return unix.Getgid() }
func (system) Getegid() int               { return unix.Getegid() }

// Drop clears the supplementary groups, then sets the group and finally the user of the process.
// The order matters: once the user is changed the process may no longer change its groups.
// The first failing step aborts the drop.
func Drop(sys Syscalls, target Target) error {
	if err := sys.Setgroups(nil); err != nil {
		return fmt.Errorf("setgroups: %w", err)
	}
	if err := sys.Setgid(target.GID); err != nil {
		return fmt.Errorf("setgid: %w", err)
	}
	if err := sys.Setuid(target.UID); err != nil {
		return fmt.Errorf("setuid: %w", err)
	}

	if sys.Getuid() != target.UID || sys.Geteuid() != target.UID ||
		sys.Getgid() != target.GID || sys.Getegid() != target.GID {
		return fmt.Errorf("%w: uid=%d euid=%d gid=%d egid=%d",
			ErrIncompleteDrop, sys.Getuid(), sys.Geteuid(), sys.Getgid(), sys.Getegid())
	}

	return nil
}

// Elevated reports whether the process runs with an effective identity that differs from the
// invoking one, as a setuid or setgid binary does.
func Elevated(sys Syscalls) bool {
	return sys.Getuid() != sys.Geteuid() || sys.Getgid() != sys.Getegid()
}

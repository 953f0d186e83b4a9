package lock

import (
	"errors"
	"github.com/MatthiasKunnen/pixlock/pkg/pixelate"
	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

// fakeDisplay replays scripted grab results per screen. Once a script is exhausted its last
// result repeats.
type fakeDisplay struct {
	screens   int
	pointer   map[int][]GrabResult
	keyboard  map[int][]GrabResult
	createErr map[int]error
	noRandr   bool

	created       []int
	pointerCalls  map[int]int
	keyboardCalls map[int]int
	mapped        []int
	watched       []int
	calls         []string
}

func newFakeDisplay(screens int) *fakeDisplay {
	return &fakeDisplay{
		screens:       screens,
		pointer:       map[int][]GrabResult{},
		keyboard:      map[int][]GrabResult{},
		createErr:     map[int]error{},
		pointerCalls:  map[int]int{},
		keyboardCalls: map[int]int{},
	}
}

func next(script []GrabResult, call int) GrabResult {
	if len(script) == 0 {
		return GrabSuccess
	}
	return script[min(call, len(script)-1)]
}

func (d *fakeDisplay) NumScreens() int {
	return d.screens
}

func (d *fakeDisplay) CreateSurface(screen int, _ *pixelate.Image, _ Palette) (*Surface, error) {
	d.created = append(d.created, screen)
	if err := d.createErr[screen]; err != nil {
		return nil, err
	}
	return &Surface{Screen: screen, Root: uint32(10 + screen), Window: uint32(100 + screen)}, nil
}

func (d *fakeDisplay) GrabPointer(s *Surface) GrabResult {
	r := next(d.pointer[s.Screen], d.pointerCalls[s.Screen])
	d.pointerCalls[s.Screen]++
	d.calls = append(d.calls, "pointer")
	return r
}

func (d *fakeDisplay) GrabKeyboard(s *Surface) GrabResult {
	r := next(d.keyboard[s.Screen], d.keyboardCalls[s.Screen])
	d.keyboardCalls[s.Screen]++
	d.calls = append(d.calls, "keyboard")
	return r
}

func (d *fakeDisplay) MapRaised(s *Surface) error {
	d.mapped = append(d.mapped, s.Screen)
	d.calls = append(d.calls, "map")
	return nil
}

func (d *fakeDisplay) WatchGeometry(s *Surface) (bool, error) {
	if d.noRandr {
		return false, nil
	}
	d.watched = append(d.watched, s.Screen)
	return true, nil
}

type recordingSleep struct {
	calls []time.Duration
}

func (r *recordingSleep) sleep(d time.Duration) {
	r.calls = append(r.calls, d)
}

func newTestCoordinator(d Display) (*Coordinator, *recordingSleep) {
	sleeper := &recordingSleep{}
	c := NewCoordinator(d, nil)
	c.Sleep = sleeper.sleep
	return c, sleeper
}

func backgrounds(n int) []*pixelate.Image {
	out := make([]*pixelate.Image, n)
	for i := range out {
		out[i] = pixelate.New(1, 1)
	}
	return out
}

func TestLockAll_AllScreens(t *testing.T) {
	d := newFakeDisplay(3)
	c, sleeper := newTestCoordinator(d)

	surfaces, err := c.LockAll(backgrounds(3), Palette{"black", "blue", "red"})
	require.NoError(t, err)

	require.Len(t, surfaces, 3)
	for i, s := range surfaces {
		assert.Equal(t, i, s.Screen)
	}
	assert.Equal(t, []int{0, 1, 2}, d.mapped)
	assert.Equal(t, []int{0, 1, 2}, d.watched)
	assert.Empty(t, sleeper.calls)
}

func TestLockAll_GrabsBeforeMapping(t *testing.T) {
	d := newFakeDisplay(1)
	d.pointer[0] = []GrabResult{GrabAlreadyGrabbed, GrabSuccess}
	c, _ := newTestCoordinator(d)

	surfaces, err := c.LockAll(backgrounds(1), Palette{})
	require.NoError(t, err)

	// The lock window is still unmapped while grabbing, so grabs must target the root window.
	assert.Equal(t, []string{"pointer", "keyboard", "pointer", "map"}, d.calls)
	assert.Equal(t, uint32(10), surfaces[0].Root)
}

func TestLockAll_StopsAtFirstFailingScreen(t *testing.T) {
	d := newFakeDisplay(5)
	d.keyboard[2] = []GrabResult{GrabOtherFailure}
	c, _ := newTestCoordinator(d)

	surfaces, err := c.LockAll(backgrounds(5), Palette{})

	require.ErrorIs(t, err, ErrIncompleteLock)
	assert.ErrorIs(t, err, ErrKeyboardGrab)
	assert.NotErrorIs(t, err, ErrPointerGrab)
	assert.Len(t, surfaces, 2)
	assert.Equal(t, []int{0, 1, 2}, d.created, "screens after the failing one must not be attempted")
	assert.Equal(t, []int{0, 1}, d.mapped)
	assert.Zero(t, d.pointerCalls[3])
	assert.Zero(t, d.pointerCalls[4])
}

func TestLockAll_RetriesWhileAlreadyGrabbed(t *testing.T) {
	d := newFakeDisplay(1)
	d.pointer[0] = []GrabResult{GrabAlreadyGrabbed, GrabAlreadyGrabbed, GrabSuccess}
	c, sleeper := newTestCoordinator(d)

	surfaces, err := c.LockAll(backgrounds(1), Palette{})
	require.NoError(t, err)

	assert.Len(t, surfaces, 1)
	assert.Equal(t, 3, d.pointerCalls[0])
	assert.Equal(t, 1, d.keyboardCalls[0], "a held keyboard grab is not retried")
	assert.Equal(t, []time.Duration{DefaultGrabDelay, DefaultGrabDelay}, sleeper.calls)
}

func TestLockAll_GivesUpAfterMaxAttempts(t *testing.T) {
	d := newFakeDisplay(2)
	d.pointer[0] = []GrabResult{GrabAlreadyGrabbed}
	d.keyboard[0] = []GrabResult{GrabAlreadyGrabbed}
	c, sleeper := newTestCoordinator(d)

	surfaces, err := c.LockAll(backgrounds(2), Palette{})

	require.ErrorIs(t, err, ErrIncompleteLock)
	assert.ErrorIs(t, err, ErrPointerGrab)
	assert.ErrorIs(t, err, ErrKeyboardGrab)
	assert.Empty(t, surfaces)
	assert.Equal(t, DefaultGrabAttempts, d.pointerCalls[0])
	assert.Equal(t, DefaultGrabAttempts, d.keyboardCalls[0])
	assert.Len(t, sleeper.calls, DefaultGrabAttempts-1)
	assert.Equal(t, []int{0}, d.created)
}

func TestLockAll_OtherFailureStopsRetrying(t *testing.T) {
	d := newFakeDisplay(1)
	d.pointer[0] = []GrabResult{GrabAlreadyGrabbed}
	d.keyboard[0] = []GrabResult{GrabOtherFailure}
	c, sleeper := newTestCoordinator(d)

	_, err := c.LockAll(backgrounds(1), Palette{})

	require.ErrorIs(t, err, ErrIncompleteLock)
	assert.Equal(t, 1, d.pointerCalls[0])
	assert.Empty(t, sleeper.calls)
}

func TestLockAll_CreateSurfaceFailure(t *testing.T) {
	d := newFakeDisplay(2)
	d.createErr[1] = errors.New("bad alloc")
	c, _ := newTestCoordinator(d)

	surfaces, err := c.LockAll(backgrounds(2), Palette{})

	require.ErrorIs(t, err, ErrIncompleteLock)
	assert.Len(t, surfaces, 1)
	assert.Zero(t, d.pointerCalls[1])
}

func TestLockAll_GeometryUnsupported(t *testing.T) {
	d := newFakeDisplay(1)
	d.noRandr = true
	c, _ := newTestCoordinator(d)

	surfaces, err := c.LockAll(backgrounds(1), Palette{})
	require.NoError(t, err)

	assert.Len(t, surfaces, 1)
	assert.Empty(t, d.watched)
}

func TestLockAll_BackgroundCountMismatch(t *testing.T) {
	c, _ := newTestCoordinator(newFakeDisplay(2))

	_, err := c.LockAll(backgrounds(1), Palette{})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrIncompleteLock)
}

func TestFindSessionPath(t *testing.T) {
	sessions := []interface{}{
		[]interface{}{"1", uint32(1000), "alice", "seat0", dbus.ObjectPath("/org/freedesktop/login1/session/_31")},
		[]interface{}{"c2", uint32(1001), "bob", "", dbus.ObjectPath("/org/freedesktop/login1/session/c2")},
	}

	path, err := findSessionPath(sessions, "c2")
	require.NoError(t, err)
	assert.Equal(t, dbus.ObjectPath("/org/freedesktop/login1/session/c2"), path)

	_, err = findSessionPath(sessions, "3")
	assert.Error(t, err)

	_, err = findSessionPath([]interface{}{"garbage"}, "1")
	assert.Error(t, err)
}

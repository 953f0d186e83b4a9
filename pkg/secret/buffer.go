package secret

import (
	"errors"
	"fmt"
	"golang.org/x/sys/unix"
	"unicode/utf8"
)

var (
	// ErrFull is returned by Append when the data does not fit in the remaining capacity.
	ErrFull = errors.New("secret: buffer is full")

	// ErrClosed is returned when a closed Buffer is modified.
	ErrClosed = errors.New("secret: buffer is closed")
)

// Buffer is a fixed-capacity byte buffer in locked memory.
// The length never exceeds the capacity given to New; every operation that would break that
// invariant is rejected without modifying the contents.
//
// A Buffer is owned by a single goroutine and is not safe for concurrent use.
type Buffer struct {
	data   []byte
	length int
	closed bool
}

// New maps a buffer able to hold capacity bytes.
// The caller must Close the buffer to scrub and release the memory.
func New(capacity int) (*Buffer, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("secret: capacity must be positive, got %d", capacity)
	}

	data, err := unix.Mmap(-1, 0, capacity, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("secret: mmap failed: %w", err)
	}

	if err := unix.Mlock(data); err != nil {
		_ = unix.Munmap(data)
		return nil, fmt.Errorf("secret: mlock failed: %w", err)
	}

	if err := unix.Madvise(data, unix.MADV_DONTDUMP); err != nil {
		_ = unix.Munlock(data)
		_ = unix.Munmap(data)
		return nil, fmt.Errorf("secret: madvise(MADV_DONTDUMP) failed: %w", err)
	}

	return &Buffer{data: data}, nil
}

// Append adds p to the end of the buffer.
// If p does not fit, ErrFull is returned and the buffer is left unchanged.
func (b *Buffer) Append(p []byte) error {
	if b.closed {
		return ErrClosed
	}
	if len(p) > len(b.data)-b.length {
		return ErrFull
	}

	b.length += copy(b.data[b.length:], p)
	return nil
}

// Backspace removes the last character, which may span several bytes when it is UTF-8 encoded.
// It reports whether anything was removed; on an empty buffer it does nothing.
func (b *Buffer) Backspace() bool {
	if b.closed || b.length == 0 {
		return false
	}

	_, size := utf8.DecodeLastRune(b.data[:b.length])
	if size < 1 {
		size = 1
	}

	newLength := b.length - size
	clear(b.data[newLength:b.length])
	b.length = newLength
	return true
}

// Clear zeroes the contents and resets the length.
func (b *Buffer) Clear() {
	if b.closed {
		return
	}
	clear(b.data[:b.length])
	b.length = 0
}

// Len returns the number of bytes held.
func (b *Buffer) Len() int {
	return b.length
}

// Cap returns the capacity given to New.
func (b *Buffer) Cap() int {
	return len(b.data)
}

// Bytes returns the held bytes. The slice points into the locked mapping; do not keep it after
// the next modification of the buffer.
func (b *Buffer) Bytes() []byte {
	if b.closed {
		return nil
	}
	return b.data[:b.length]
}

// Close zeroes the whole mapping, unlocks and unmaps it.
// Close is idempotent.
func (b *Buffer) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	b.length = 0

	clear(b.data)

	var err error
	if unlockErr := unix.Munlock(b.data); unlockErr != nil {
		err = errors.Join(err, fmt.Errorf("secret: munlock failed: %w", unlockErr))
	}
	if unmapErr := unix.Munmap(b.data); unmapErr != nil {
		err = errors.Join(err, fmt.Errorf("secret: munmap failed: %w", unmapErr))
	}

	b.data = nil
	return err
}

// Package arena owns the single contiguous byte buffer the allocator rents
// regions from. It holds no state besides the buffer and its size, and is
// released exactly once at shutdown.
package arena

import "fmt"

// Arena is a fixed-size byte buffer obtained once at startup.
type Arena struct {
	buf  []byte
	size uint64
}

// New reserves an arena of exactly size bytes. On platforms with a raw
// mmap binding (see arena_unix.go) the buffer is backed by an anonymous
// memory mapping, so the process makes exactly one memory request for the
// whole run; elsewhere it falls back to a single heap allocation.
func New(size uint64) (*Arena, error) {
	if size == 0 {
		return nil, fmt.Errorf("arena: size must be greater than 0")
	}

	buf, err := reserve(size)
	if err != nil {
		return nil, fmt.Errorf("arena: reserve %d bytes: %w", size, err)
	}

	return &Arena{buf: buf, size: size}, nil
}

// Size returns the arena's total byte capacity.
func (a *Arena) Size() uint64 {
	return a.size
}

// View returns a mutable byte slice over [offset, offset+size). The caller
// guarantees the range is exclusively owned for the duration of use; the
// arena itself performs no locking.
func (a *Arena) View(offset, size uint64) ([]byte, error) {
	if size == 0 {
		return nil, nil
	}
	if offset+size > a.size || offset+size < offset {
		return nil, fmt.Errorf("arena: range [%d,%d) out of bounds (size %d)", offset, offset+size, a.size)
	}
	return a.buf[offset : offset+size], nil
}

// Close releases the arena's backing memory. It must be called exactly
// once, after the sweeper has been joined and no further operations will
// touch the arena.
func (a *Arena) Close() error {
	return release(a.buf)
}

// Package table implements the allocator's single synchronized facade:
// the combination of the arena, the descriptor store, and the free list
// behind one mutex. It is the only synchronization boundary in the
// system — the RPC transport and the sweeper both call into it, and
// neither takes any lock of its own.
package table

import (
	"sync"
	"time"

	"github.com/memflow/memflowd/internal/arena"
	"github.com/memflow/memflowd/internal/freelist"
	"github.com/memflow/memflowd/internal/region"
)

// Snapshot is an atomic, consistent view of the allocator's state, used by
// the diagnostic dump writer. It is taken under the lock and consumed
// without it.
type Snapshot struct {
	Descriptors []region.Descriptor
	// Values holds the rendered external string form of each descriptor's
	// current contents, keyed by id, captured under the same lock as the
	// descriptors themselves.
	Values     map[region.ID]string
	FreeList   []freelist.Entry
	BumpOffset uint64
	ArenaSize  uint64
}

// Table is the allocator / table component. All exported methods acquire
// mu for their entire body; there are no nested locks, no condition
// variables, and no I/O performed while mu is held.
type Table struct {
	mu sync.Mutex

	arena      *arena.Arena
	free       freelist.List
	descs      map[region.ID]*region.Descriptor
	bumpOffset uint64
	nextID     region.ID
}

// New constructs a table over an already-reserved arena. The table owns
// the arena for the rest of the process lifetime.
func New(a *arena.Arena) *Table {
	return &Table{
		arena:  a,
		descs:  make(map[region.ID]*region.Descriptor),
		nextID: 1,
	}
}

// Allocate reserves a new region of size bytes tagged with typeTag and
// returns its id. Arena bytes are not zeroed; see the write-before-read
// Open Question resolution.
func (t *Table) Allocate(typeTag string, size uint64) (region.ID, error) {
	tt, ok := region.ParseType(typeTag)
	if !ok {
		return 0, newError(UnknownType, typeTag)
	}
	if size == 0 {
		return 0, newError(ZeroSize, "")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	offset, ok := t.free.TakeFirstFit(size)
	if !ok {
		if t.bumpOffset+size > t.arena.Size() {
			return 0, newError(OutOfMemory, "")
		}
		offset = t.bumpOffset
		t.bumpOffset += size
	}

	id := t.nextID
	t.nextID++

	t.descs[id] = &region.Descriptor{
		ID:        id,
		TypeTag:   tt,
		Offset:    offset,
		Size:      size,
		RefCount:  1,
		CreatedAt: time.Now(),
	}

	return id, nil
}

// Read decodes a region's current value into its external string form.
func (t *Table) Read(id region.ID) (value string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	d, ok := t.descs[id]
	if !ok {
		return "", newError(NotFound, "")
	}

	n := uint64(d.TypeTag.FixedSize())
	if d.TypeTag == region.String {
		n = d.StringLen
	}

	bytes, err := t.arena.View(d.Offset, n)
	if err != nil {
		return "", err
	}

	return decodeValue(d.TypeTag, bytes)
}

// Write parses encodedValue under the region's declared type and writes it
// in place.
func (t *Table) Write(id region.ID, encodedValue string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	d, ok := t.descs[id]
	if !ok {
		return newError(NotFound, "")
	}

	raw, err := encodeValue(d.TypeTag, encodedValue)
	if err != nil {
		return err
	}

	if d.TypeTag == region.String {
		if uint64(len(raw)) > d.Size {
			return newError(TooLarge, "")
		}
	}

	dst, err := t.arena.View(d.Offset, d.Size)
	if err != nil {
		return err
	}
	copy(dst, raw)

	if d.TypeTag == region.String {
		d.StringLen = uint64(len(raw))
	}

	return nil
}

// IncRef increments a region's refcount. It is a silent no-op if id is
// unknown; it can resurrect a region the sweeper has not yet reclaimed.
func (t *Table) IncRef(id region.ID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if d, ok := t.descs[id]; ok {
		d.RefCount++
	}
}

// DecRef decrements a region's refcount, saturating at zero. It is a
// silent no-op if id is unknown.
func (t *Table) DecRef(id region.ID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if d, ok := t.descs[id]; ok && d.RefCount > 0 {
		d.RefCount--
	}
}

// SweepZeroRefs removes every region whose refcount is currently zero and
// returns their ids. It is called only by the sweeper, under its own
// sleep/wake loop, and acquires the lock itself.
func (t *Table) SweepZeroRefs() []region.ID {
	t.mu.Lock()
	defer t.mu.Unlock()

	var removed []region.ID
	for id, d := range t.descs {
		if d.RefCount != 0 {
			continue
		}
		t.free.Release(d.Offset, d.Size)
		delete(t.descs, id)
		removed = append(removed, id)
	}
	return removed
}

// Snapshot returns a consistent point-in-time view of the table's state.
func (t *Table) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	descs := make([]region.Descriptor, 0, len(t.descs))
	values := make(map[region.ID]string, len(t.descs))
	for _, d := range t.descs {
		descs = append(descs, *d)

		n := uint64(d.TypeTag.FixedSize())
		if d.TypeTag == region.String {
			n = d.StringLen
		}
		if bytes, err := t.arena.View(d.Offset, n); err == nil {
			if v, err := decodeValue(d.TypeTag, bytes); err == nil {
				values[d.ID] = v
			}
		}
	}

	return Snapshot{
		Descriptors: descs,
		Values:      values,
		FreeList:    t.free.Snapshot(),
		BumpOffset:  t.bumpOffset,
		ArenaSize:   t.arena.Size(),
	}
}

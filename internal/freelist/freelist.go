// Package freelist implements the ordered, coalesced list of free byte
// ranges inside the arena. It has no locking of its own: the allocator
// table is the sole synchronization boundary and calls these methods
// while already holding its lock.
package freelist

import "sort"

// Entry is one free hole: a byte range [Offset, Offset+Size) not owned by
// any live region.
type Entry struct {
	Offset uint64
	Size   uint64
}

// List is a sequence of Entries, kept sorted by offset and coalesced after
// every Release: for any two adjacent entries e_i, e_{i+1},
// e_i.Offset+e_i.Size < e_{i+1}.Offset.
type List struct {
	entries []Entry
}

// TakeFirstFit scans entries in current order and returns the offset of
// the first entry with Size >= needed. An exact-size match is removed from
// the list; a larger entry is shrunk in place. ok is false if no entry
// fits.
func (l *List) TakeFirstFit(needed uint64) (offset uint64, ok bool) {
	for i := range l.entries {
		e := &l.entries[i]
		if e.Size < needed {
			continue
		}
		offset = e.Offset
		if e.Size == needed {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
		} else {
			e.Offset += needed
			e.Size -= needed
		}
		return offset, true
	}
	return 0, false
}

// Release appends (offset, size) to the list, then re-sorts and coalesces
// the entire list. Coalescing merges exactly those adjacent pairs where
// prev.Offset+prev.Size == next.Offset.
//
// Recoalescing on every release (rather than maintaining the invariant
// incrementally on allocation) localizes all merging to this one routine;
// TakeFirstFit never has to worry about adjacency.
func (l *List) Release(offset, size uint64) {
	l.entries = append(l.entries, Entry{Offset: offset, Size: size})

	sort.Slice(l.entries, func(i, j int) bool {
		return l.entries[i].Offset < l.entries[j].Offset
	})

	coalesced := l.entries[:0]
	for _, e := range l.entries {
		if n := len(coalesced); n > 0 && coalesced[n-1].Offset+coalesced[n-1].Size == e.Offset {
			coalesced[n-1].Size += e.Size
			continue
		}
		coalesced = append(coalesced, e)
	}
	l.entries = coalesced
}

// Snapshot returns a copy of the current entries in offset order.
func (l *List) Snapshot() []Entry {
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Package region defines the region descriptor: the metadata record the
// allocator keeps for every live region of the arena.
package region

import "time"

// Type identifies the wire type tag of a region's contents.
type Type int

const (
	// Int32 stores a 4-byte signed integer, host byte order.
	Int32 Type = iota
	// Uint32 stores a 4-byte unsigned integer, host byte order.
	Uint32
	// Float32 stores a 4-byte IEEE-754 float, host endianness.
	Float32
	// Float64 stores an 8-byte IEEE-754 float, host endianness.
	Float64
	// String stores raw characters plus an explicit length (see the
	// string-length note in the allocator package).
	String
)

// String renders the type's wire name ("int", "uint32_t", "float", "double", "string").
func (t Type) String() string {
	switch t {
	case Int32:
		return "int"
	case Uint32:
		return "uint32_t"
	case Float32:
		return "float"
	case Float64:
		return "double"
	case String:
		return "string"
	default:
		return "unknown"
	}
}

// ParseType maps a wire type tag to a Type. ok is false for any tag outside
// the fixed enumeration.
func ParseType(tag string) (t Type, ok bool) {
	switch tag {
	case "int":
		return Int32, true
	case "uint32_t":
		return Uint32, true
	case "float":
		return Float32, true
	case "double":
		return Float64, true
	case "string":
		return String, true
	default:
		return 0, false
	}
}

// FixedSize returns the encoded byte width for fixed-width numeric types.
// It is meaningless for String, whose encoded width is the descriptor's
// StringLen rather than a type-determined constant.
func (t Type) FixedSize() int {
	switch t {
	case Int32, Uint32, Float32:
		return 4
	case Float64:
		return 8
	default:
		return 0
	}
}

// ID uniquely identifies a live region for the lifetime of the process.
// Ids are assigned monotonically and are never reused.
type ID uint32

// Descriptor is the server-side metadata record for one live region.
type Descriptor struct {
	ID        ID
	TypeTag   Type
	Offset    uint64
	Size      uint64
	RefCount  uint32
	CreatedAt time.Time

	// StringLen is the number of meaningful bytes written into a String
	// region. It is ignored for numeric types. See the Open Question
	// resolution on string size semantics: the region keeps its full
	// allocated Size as capacity, and StringLen tracks how much of it
	// holds the current value.
	StringLen uint64
}

// End returns the exclusive upper bound of the region's byte range.
func (d Descriptor) End() uint64 {
	return d.Offset + d.Size
}

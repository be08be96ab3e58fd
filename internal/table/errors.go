package table

// Code names one entry of the allocator's wire-independent error taxonomy.
type Code string

const (
	// OutOfMemory: allocate cannot satisfy the request from either the
	// free list or the bump region.
	OutOfMemory Code = "OutOfMemory"
	// NotFound: id does not refer to a live descriptor.
	NotFound Code = "NotFound"
	// UnknownType: type tag is outside the recognized set.
	UnknownType Code = "UnknownType"
	// BadEncoding: the provided string does not parse under the region's type.
	BadEncoding Code = "BadEncoding"
	// TooLarge: string payload would exceed the region's byte size.
	TooLarge Code = "TooLarge"
	// ZeroSize: request for a zero-byte region.
	ZeroSize Code = "ZeroSize"
)

// Error is the sentinel error type for every allocator-level failure. The
// RPC transport maps it to a response by Code rather than by matching
// error strings.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return string(e.Code) + ": " + e.Message
}

func newError(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

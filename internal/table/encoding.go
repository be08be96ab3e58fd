package table

import (
	"encoding/binary"
	"math"
	"strconv"

	"github.com/memflow/memflowd/internal/region"
)

// encodeValue parses the external string encoding of value under the
// region's declared type and returns the raw bytes to store. For String it
// returns the raw characters verbatim (length is tracked separately by the
// caller via the descriptor's StringLen).
//
// Numeric types use encoding/binary's native-endian codec: the only
// consumer of these raw bytes is the dump renderer running in the same
// process that wrote them, so host byte order is sufficient per the
// allocator's typed-write contract.
func encodeValue(t region.Type, value string) ([]byte, error) {
	switch t {
	case region.Int32:
		n, err := strconv.ParseInt(value, 10, 32)
		if err != nil {
			return nil, newError(BadEncoding, err.Error())
		}
		buf := make([]byte, 4)
		binary.NativeEndian.PutUint32(buf, uint32(int32(n)))
		return buf, nil

	case region.Uint32:
		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return nil, newError(BadEncoding, err.Error())
		}
		buf := make([]byte, 4)
		binary.NativeEndian.PutUint32(buf, uint32(n))
		return buf, nil

	case region.Float32:
		f, err := strconv.ParseFloat(value, 32)
		if err != nil {
			return nil, newError(BadEncoding, err.Error())
		}
		buf := make([]byte, 4)
		binary.NativeEndian.PutUint32(buf, math.Float32bits(float32(f)))
		return buf, nil

	case region.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, newError(BadEncoding, err.Error())
		}
		buf := make([]byte, 8)
		binary.NativeEndian.PutUint64(buf, math.Float64bits(f))
		return buf, nil

	case region.String:
		return []byte(value), nil

	default:
		return nil, newError(UnknownType, "")
	}
}

// decodeValue renders the raw bytes of a region back into its external
// string encoding.
func decodeValue(t region.Type, data []byte) (string, error) {
	switch t {
	case region.Int32:
		n := int32(binary.NativeEndian.Uint32(data))
		return strconv.FormatInt(int64(n), 10), nil

	case region.Uint32:
		n := binary.NativeEndian.Uint32(data)
		return strconv.FormatUint(uint64(n), 10), nil

	case region.Float32:
		bits := binary.NativeEndian.Uint32(data)
		f := math.Float32frombits(bits)
		return strconv.FormatFloat(float64(f), 'g', 6, 32), nil

	case region.Float64:
		bits := binary.NativeEndian.Uint64(data)
		f := math.Float64frombits(bits)
		return strconv.FormatFloat(f, 'g', 15, 64), nil

	case region.String:
		return string(data), nil

	default:
		return "", newError(UnknownType, "")
	}
}

// Package rpc implements the length-prefixed JSON wire protocol and the
// TCP server that dispatches requests to the allocator table.
package rpc

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// maxFrameSize bounds a single request/response body to guard against a
// corrupt or hostile length header.
const maxFrameSize = 16 << 20

// Request is the decoded body of one client request.
type Request struct {
	Method  string          `json:"method"`
	Payload json.RawMessage `json:"payload"`
}

// Response is the encoded body of one server response.
type Response struct {
	OK      bool            `json:"ok"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   string          `json:"error,omitempty"`
	Message string          `json:"message,omitempty"`
}

// readFrame reads one 4-byte big-endian length header followed by that
// many bytes of JSON body.
func readFrame(r io.Reader) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}

	n := binary.BigEndian.Uint32(header[:])
	if n > maxFrameSize {
		return nil, fmt.Errorf("rpc: frame of %d bytes exceeds limit", n)
	}

	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}
	return body, nil
}

// writeFrame writes body prefixed by its 4-byte big-endian length.
func writeFrame(w io.Writer, body []byte) error {
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(body)))

	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	_, err := w.Write(body)
	return err
}

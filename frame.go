package duplex

import (
	"bytes"
	"encoding/binary"
)

// Frame markers. They are part of the wire format and must match the peer byte for byte.
var (
	StartMarker = []byte("%START%")
	StopMarker  = []byte("%STOP%")
)

// Codec is the interface for message framing.
// Pack turns one message into wire bytes, Unpack extracts every complete
// message from an accumulated buffer and returns the bytes it did not consume.
//
// Unpack never fails: bytes that do not form a complete frame yet are kept in
// the remainder so the caller can append more data and try again. This is how
// partial TCP reads are reassembled.
type Codec interface {
	// Pack encodes a message into its wire representation.
	Pack(msg []byte) []byte
	// Unpack extracts complete messages, in stream order, and the unconsumed remainder.
	Unpack(buf []byte) (msgs [][]byte, rest []byte)
}

// MarkerCodec frames messages between StartMarker and StopMarker.
//
// Payloads are not escaped: a payload containing StopMarker is cut short at
// the first occurrence. Use LengthCodec when payloads are arbitrary binary data.
type MarkerCodec struct{}

// Pack implements Codec.
func (MarkerCodec) Pack(msg []byte) []byte {
	return Pack(msg)
}

// Unpack implements Codec.
func (MarkerCodec) Unpack(buf []byte) ([][]byte, []byte) {
	return Unpack(buf)
}

// Pack wraps msg between StartMarker and StopMarker.
func Pack(msg []byte) []byte {
	out := make([]byte, 0, len(StartMarker)+len(msg)+len(StopMarker))
	out = append(out, StartMarker...)
	out = append(out, msg...)
	return append(out, StopMarker...)
}

// Unpack scans buf left to right for non-overlapping frames, each ending at the
// first StopMarker after its StartMarker. It returns the payloads in order and
// buf with every matched frame removed; unmatched bytes, including a trailing
// partial frame, are kept in rest.
func Unpack(buf []byte) (msgs [][]byte, rest []byte) {
	pos := 0
	for pos < len(buf) {
		start := bytes.Index(buf[pos:], StartMarker)
		if start < 0 {
			break
		}
		start += pos
		body := start + len(StartMarker)

		stop := bytes.Index(buf[body:], StopMarker)
		if stop < 0 {
			break
		}
		stop += body

		rest = append(rest, buf[pos:start]...)
		msgs = append(msgs, bytes.Clone(buf[body:stop]))
		pos = stop + len(StopMarker)
	}

	rest = append(rest, buf[pos:]...)
	return msgs, rest
}

// lengthPrefixSize is the size of the LengthCodec header.
const lengthPrefixSize = 4

// LengthCodec frames messages with a 4-byte big-endian length prefix.
// It is not wire compatible with MarkerCodec; both peers must use it.
type LengthCodec struct{}

// Pack implements Codec.
func (LengthCodec) Pack(msg []byte) []byte {
	out := make([]byte, lengthPrefixSize, lengthPrefixSize+len(msg))
	binary.BigEndian.PutUint32(out, uint32(len(msg)))
	return append(out, msg...)
}

// Unpack implements Codec.
func (LengthCodec) Unpack(buf []byte) ([][]byte, []byte) {
	var msgs [][]byte
	for len(buf) >= lengthPrefixSize {
		n := int(binary.BigEndian.Uint32(buf))
		if len(buf)-lengthPrefixSize < n {
			break
		}
		msgs = append(msgs, bytes.Clone(buf[lengthPrefixSize:lengthPrefixSize+n]))
		buf = buf[lengthPrefixSize+n:]
	}
	return msgs, bytes.Clone(buf)
}

// Package codec9 implements the "modern" V9 wire dialect of §4.2.2: an
// 8-byte-aligned binary format with an Arrow IPC fallback for any series
// carrying nulls and for whole dataframes, plus compression selection for
// that Arrow path (arrow.go) and message framing (frame.go).
package codec9

import (
	"encoding/binary"
	"math"

	"github.com/chilidb/chili/value"
)

// wireByte maps a value.Code onto its V9 leader byte. §8 scenario 1 proves
// this directly: serialize(Timestamp(...)) leads with 247, and
// byte(int8(value.CodeTimestamp.Atom())) == byte(int8(-9)) == 247. The V9
// leader byte is therefore the engine's own Code table cast through int8,
// with no separate numbering scheme — unlike V6 (see DESIGN.md),
// this one is pinned by a concrete test vector, not inferred.
func wireByte(c value.Code) byte { return byte(int8(c)) }

func codeFromWireByte(b byte) value.Code { return value.Code(int8(b)) }

func pad8(n int) int { return (8 - n%8) % 8 }

type encoder struct {
	buf []byte
}

func (e *encoder) bytes(b []byte) { e.buf = append(e.buf, b...) }
func (e *encoder) byte(b byte)    { e.buf = append(e.buf, b) }
func (e *encoder) zeros(n int)    { e.buf = append(e.buf, make([]byte, n)...) }
func (e *encoder) u32(v uint32)   { e.buf = binary.LittleEndian.AppendUint32(e.buf, v) }
func (e *encoder) u64(v uint64)   { e.buf = binary.LittleEndian.AppendUint64(e.buf, v) }
func (e *encoder) i64(v int64)    { e.u64(uint64(v)) }
func (e *encoder) f64(v float64)  { e.u64(math.Float64bits(v)) }

// padToAlign appends zero bytes so the buffer length is a multiple of 8.
func (e *encoder) padToAlign() { e.zeros(pad8(len(e.buf))) }

// leader writes the universal 4-byte `[code, 0, 0, 0]` tag.
func (e *encoder) leader(c value.Code) {
	e.byte(wireByte(c))
	e.zeros(3)
}

// smallScalar writes a leader followed by up to 4 payload bytes, zero
// padded to fill the remaining 4 bytes of the 8-byte header (§4.2.2
// "scalars <= 4 bytes fit in the remaining 4 bytes of the header").
func (e *encoder) smallScalar(c value.Code, payload []byte) {
	e.leader(c)
	if len(payload) > 4 {
		panic("codec9: smallScalar payload over 4 bytes")
	}
	e.bytes(payload)
	e.zeros(4 - len(payload))
}

// wideScalar writes a leader padded to 8 bytes, then an 8-byte payload
// (§4.2.2 "scalars of 8 bytes use a full 8-byte payload after the header").
func (e *encoder) wideScalar(c value.Code, payload []byte) {
	e.leader(c)
	e.zeros(4)
	if len(payload) != 8 {
		panic("codec9: wideScalar payload must be 8 bytes")
	}
	e.bytes(payload)
}

type decoder struct {
	buf []byte
	pos int
}

func (d *decoder) remaining() int { return len(d.buf) - d.pos }

func (d *decoder) take(n int) ([]byte, error) {
	if d.remaining() < n {
		return nil, errShortRead
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

func (d *decoder) skip(n int) error {
	if d.remaining() < n {
		return errShortRead
	}
	d.pos += n
	return nil
}

func (d *decoder) u32() (uint32, error) {
	b, err := d.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}
func (d *decoder) u64() (uint64, error) {
	b, err := d.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}
func (d *decoder) i64() (int64, error) { v, err := d.u64(); return int64(v), err }
func (d *decoder) f64() (float64, error) {
	v, err := d.u64()
	return math.Float64frombits(v), err
}

// leader reads the 4-byte `[code, 0, 0, 0]` tag and returns the code.
func (d *decoder) leader() (value.Code, error) {
	b, err := d.take(4)
	if err != nil {
		return 0, err
	}
	return codeFromWireByte(b[0]), nil
}

// Package codec6 implements the legacy "V6" wire dialect of §4.2.1: a
// byte-exact kdb+-style binary format plus its companion LZ compression
// (compress.go) and message framing (frame.go).
package codec6

import (
	"encoding/binary"
	"math"

	"github.com/chilidb/chili/value"
)

// Epoch offsets (§4.2.1): V6 encodes temporal values relative to
// 2000-01-01, while the engine's in-memory representation (package value)
// is relative to the Unix epoch (1970-01-01).
const (
	DayDiff = 10957                       // days between 1970-01-01 and 2000-01-01
	NsDiff  = 946_684_800_000_000_000     // ns between the two epochs
	MsDiff  = 946_684_800_000             // ms between the two epochs
)

// Wire type bytes not derived from value.Code (§4.2.1 prose: these are the
// legacy dialect's own markers, distinct from the engine's internal Code
// table used by V9/the value model).
const (
	wireNull       = 101
	wireMixedList  = 0
	wireTableLead1 = 98
	wireTableLead2 = 99
	wireDictLead   = 99
	wireErr        = 128
)

// wireByte maps a value.Code directly onto its V6 wire byte. Code is
// already signed (int8), atom forms negative and vector forms positive, so
// the cast alone reproduces the "vector code positive / atom code its
// two's-complement negative" convention real kdb+ wire bytes use — without
// needing a second table. See DESIGN.md for why this engine's Code numbers
// are used as the wire numbers directly, rather than chasing real kdb+'s
// historical type-number assignment.
func wireByte(c value.Code) byte { return byte(int8(c)) }

func codeFromWireByte(b byte) value.Code { return value.Code(int8(b)) }

// encoder is a growable byte buffer with little-endian primitive writers,
// in the teacher's manual-append idiom (asdu/codec.go).
type encoder struct {
	buf []byte
}

func (e *encoder) byte(b byte)      { e.buf = append(e.buf, b) }
func (e *encoder) bytes(b []byte)   { e.buf = append(e.buf, b...) }
func (e *encoder) u16(v uint16)     { e.buf = binary.LittleEndian.AppendUint16(e.buf, v) }
func (e *encoder) u32(v uint32)     { e.buf = binary.LittleEndian.AppendUint32(e.buf, v) }
func (e *encoder) u64(v uint64)     { e.buf = binary.LittleEndian.AppendUint64(e.buf, v) }
func (e *encoder) i16(v int16)      { e.u16(uint16(v)) }
func (e *encoder) i32(v int32)      { e.u32(uint32(v)) }
func (e *encoder) i64(v int64)      { e.u64(uint64(v)) }
func (e *encoder) f32(v float32)    { e.u32(math.Float32bits(v)) }
func (e *encoder) f64(v float64)    { e.u64(math.Float64bits(v)) }
func (e *encoder) cstring(s string) { e.buf = append(append(e.buf, s...), 0) }

// decoder reads sequentially from a byte slice, consuming as it goes.
type decoder struct {
	buf []byte
	pos int
}

func (d *decoder) remaining() int { return len(d.buf) - d.pos }

func (d *decoder) byte() (byte, error) {
	if d.remaining() < 1 {
		return 0, errShortRead
	}
	b := d.buf[d.pos]
	d.pos++
	return b, nil
}

// peek returns the next byte without consuming it, used to disambiguate
// wire forms that share a lead byte (§4.2.1: a plain Dict and a Keyed
// DataFrame both lead with 99).
func (d *decoder) peek() (byte, error) {
	if d.remaining() < 1 {
		return 0, errShortRead
	}
	return d.buf[d.pos], nil
}

func (d *decoder) take(n int) ([]byte, error) {
	if d.remaining() < n {
		return nil, errShortRead
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

func (d *decoder) u16() (uint16, error) {
	b, err := d.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
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
func (d *decoder) i16() (int16, error) { v, err := d.u16(); return int16(v), err }
func (d *decoder) i32() (int32, error) { v, err := d.u32(); return int32(v), err }
func (d *decoder) i64() (int64, error) { v, err := d.u64(); return int64(v), err }
func (d *decoder) f32() (float32, error) {
	v, err := d.u32()
	return math.Float32frombits(v), err
}
func (d *decoder) f64() (float64, error) {
	v, err := d.u64()
	return math.Float64frombits(v), err
}
func (d *decoder) cstring() (string, error) {
	start := d.pos
	for d.pos < len(d.buf) && d.buf[d.pos] != 0 {
		d.pos++
	}
	if d.pos >= len(d.buf) {
		return "", errShortRead
	}
	s := string(d.buf[start:d.pos])
	d.pos++ // skip nul
	return s, nil
}

// Serialize encodes v into the V6 wire representation (no frame header;
// see frame.go for message framing).
func Serialize(v value.Value) ([]byte, error) {
	e := &encoder{}
	if err := encodeValue(e, v); err != nil {
		return nil, err
	}
	return e.buf, nil
}

// Deserialize decodes a V6-encoded value from data (no frame header).
func Deserialize(data []byte) (value.Value, error) {
	d := &decoder{buf: data}
	v, err := decodeValue(d)
	if err != nil {
		return nil, err
	}
	return v, nil
}

package codec9

import (
	"math"

	"github.com/chilidb/chili/columnar"
	"github.com/chilidb/chili/value"
)

const (
	wireErr = 128

	// arrowFallbackMarker is written in a series record's elem_count slot
	// to signal that payload is an Arrow IPC stream rather than raw
	// little-endian values — used whenever a series carries nulls (§4.2.2
	// "falls back to writing a full Arrow IPC stream as payload"). The
	// spec names the fallback condition but not how a decoder tells the
	// two payload shapes apart; an all-ones sentinel elem_count (never a
	// legal row count) makes that decision unambiguous without adding a
	// new header field.
	arrowFallbackMarker = ^uint64(0)
)

// Serialize encodes v into the V9 wire representation (no message frame;
// see frame.go).
func Serialize(v value.Value) ([]byte, error) {
	e := &encoder{}
	if err := encodeValue(e, v); err != nil {
		return nil, err
	}
	return e.buf, nil
}

// Deserialize decodes a V9-encoded value (no message frame).
func Deserialize(data []byte) (value.Value, error) {
	d := &decoder{buf: data}
	return decodeValue(d)
}

func encodeValue(e *encoder, v value.Value) error {
	switch x := v.(type) {
	case value.Null:
		e.smallScalar(value.CodeNull, nil)
	case value.Boolean:
		b := byte(0)
		if x {
			b = 1
		}
		e.smallScalar(value.CodeBoolean.Atom(), []byte{b})
	case value.U8:
		e.smallScalar(value.CodeU8.Atom(), []byte{byte(x)})
	case value.I16:
		e.smallScalar(value.CodeI16.Atom(), le16(uint16(x)))
	case value.I32:
		e.smallScalar(value.CodeI32.Atom(), le32(uint32(x)))
	case value.Date:
		e.smallScalar(value.CodeDate.Atom(), le32(uint32(int32(x))))
	case value.F32:
		e.smallScalar(value.CodeF32.Atom(), le32(math.Float32bits(float32(x))))
	case value.I64:
		e.wideScalar(value.CodeI64.Atom(), le64(uint64(x)))
	case value.Time:
		e.wideScalar(value.CodeTime.Atom(), le64(uint64(int64(x))))
	case value.Datetime:
		e.wideScalar(value.CodeDatetime.Atom(), le64(uint64(int64(x))))
	case value.Timestamp:
		e.wideScalar(value.CodeTimestamp.Atom(), le64(uint64(int64(x))))
	case value.Duration:
		e.wideScalar(value.CodeDuration.Atom(), le64(uint64(int64(x))))
	case value.F64:
		e.wideScalar(value.CodeF64.Atom(), le64(math.Float64bits(float64(x))))
	case value.String:
		return encodeTextRecord(e, value.CodeString.Atom(), []string{string(x)}, true)
	case value.Symbol:
		return encodeTextRecord(e, value.CodeSymbol.Atom(), []string{string(x)}, true)
	case value.Err:
		return encodeErr(e, x.Msg)
	case *value.MixedListValue:
		return encodeMixedList(e, x)
	case *value.DictValue:
		return encodeDict(e, x)
	case *value.Matrix:
		return encodeMatrixArrowFallback(e, x)
	case value.Frame:
		return encodeFrameArrow(e, x)
	case value.Series:
		return encodeSeries(e, x)
	default:
		return value.NewError(value.KindNotAbleToSerialize, "v9: no wire encoding for %T", v)
	}
	return nil
}

func le16(v uint16) []byte { return []byte{byte(v), byte(v >> 8)} }
func le32(v uint32) []byte { return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)} }
func le64(v uint64) []byte {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
	return b
}
func encodeErr(e *encoder, msg string) error {
	e.leader(value.CodeErr)
	e.zeros(4)
	b := []byte(msg)
	e.u64(uint64(len(b)))
	e.bytes(b)
	e.padToAlign()
	return nil
}

// encodeTextRecord writes the variable-length record shape for a single
// String/Symbol atom: `[code,0,0,0,0,0,0,0][byte_len][elem_count=1]
// [(len+1) i64 offsets][utf8 bytes][pad]`, reusing the series offsets
// layout at elem_count 1 so atoms and one-element vectors share a decoder.
func encodeTextRecord(e *encoder, code value.Code, items []string, internSymbols bool) error {
	e.leader(code)
	e.zeros(4)
	offsets := make([]int64, len(items)+1)
	var total int64
	for i, s := range items {
		offsets[i] = total
		total += int64(len(s))
	}
	offsets[len(items)] = total
	payload := &encoder{}
	payload.u64(uint64(len(items)))
	for _, o := range offsets {
		payload.i64(o)
	}
	for _, s := range items {
		payload.bytes([]byte(s))
	}
	e.u64(uint64(len(payload.buf)))
	e.bytes(payload.buf)
	e.padToAlign()
	return nil
}

func encodeMixedList(e *encoder, m *value.MixedListValue) error {
	e.leader(value.CodeMixedList)
	e.zeros(4)
	e.u32(uint32(len(m.Items)))
	e.zeros(4)
	if len(m.Items) == 0 {
		return nil
	}
	body := &encoder{}
	for _, item := range m.Items {
		if err := encodeValue(body, item); err != nil {
			return err
		}
	}
	e.u64(uint64(len(body.buf)))
	e.bytes(body.buf)
	return nil
}

func encodeDict(e *encoder, d *value.DictValue) error {
	e.leader(value.CodeDict)
	e.zeros(4)
	keys := d.Keys()
	e.u32(uint32(len(keys)))
	e.zeros(4)

	keyBody := &encoder{}
	offsets := make([]uint32, len(keys))
	var off uint32
	for i, k := range keys {
		keyBody.bytes([]byte(k))
		off += uint32(len(k))
		offsets[i] = off
	}
	keyOffsets := &encoder{}
	for _, o := range offsets {
		keyOffsets.u32(o)
	}
	keysByteLen := uint64(len(keyOffsets.buf) + len(keyBody.buf))
	keyPad := pad8(int(keysByteLen))

	valBody := &encoder{}
	for _, v := range d.Values() {
		if err := encodeValue(valBody, v); err != nil {
			return err
		}
	}

	totalLen := uint64(8+8) /* keys_byte_len + values_byte_len fields */ +
		keysByteLen + uint64(keyPad) + uint64(len(valBody.buf))
	e.u64(totalLen)
	e.u64(keysByteLen)
	e.bytes(keyOffsets.buf)
	e.bytes(keyBody.buf)
	e.zeros(keyPad)
	e.u64(uint64(len(valBody.buf)))
	e.bytes(valBody.buf)
	return nil
}

// encodeSeries writes a homogeneous column. Nulled series (and Boolean,
// whose values bitmap IS its validity bitmap per §4.2.2) fall back to an
// Arrow IPC payload; everything else without nulls uses the raw
// little-endian layout.
func encodeSeries(e *encoder, s value.Series) error {
	if s.ElemCode().Vector() == value.CodeString || s.ElemCode().Vector() == value.CodeSymbol {
		items := make([]string, s.Len())
		for i := range items {
			switch v := s.At(i).(type) {
			case value.String:
				items[i] = string(v)
			case value.Symbol:
				items[i] = string(v)
			}
		}
		return encodeTextRecord(e, s.ElemCode().Vector(), items, s.ElemCode().Vector() == value.CodeSymbol)
	}

	hasNulls := false
	for i := 0; i < s.Len(); i++ {
		if !s.IsValid(i) {
			hasNulls = true
			break
		}
	}
	if hasNulls || s.ElemCode().Vector() == value.CodeBoolean {
		return encodeSeriesArrowFallback(e, s)
	}

	elemSize, writeOne := numericWriter(s.ElemCode().Vector())
	if writeOne == nil {
		return encodeSeriesArrowFallback(e, s)
	}
	e.leader(s.ElemCode().Vector())
	e.zeros(4)
	payload := &encoder{}
	payload.u64(uint64(s.Len()))
	for i := 0; i < s.Len(); i++ {
		writeOne(payload, s.At(i))
	}
	_ = elemSize
	e.u64(uint64(len(payload.buf)))
	e.bytes(payload.buf)
	e.padToAlign()
	return nil
}

func numericWriter(elem value.Code) (int, func(e *encoder, v value.Value)) {
	switch elem {
	case value.CodeU8:
		return 1, func(e *encoder, v value.Value) { e.byte(byte(v.(value.U8))) }
	case value.CodeI16:
		return 2, func(e *encoder, v value.Value) { e.bytes(le16(uint16(v.(value.I16)))) }
	case value.CodeI32:
		return 4, func(e *encoder, v value.Value) { e.bytes(le32(uint32(v.(value.I32)))) }
	case value.CodeI64:
		return 8, func(e *encoder, v value.Value) { e.i64(int64(v.(value.I64))) }
	case value.CodeDate:
		return 4, func(e *encoder, v value.Value) { e.bytes(le32(uint32(int32(v.(value.Date))))) }
	case value.CodeTime:
		return 8, func(e *encoder, v value.Value) { e.i64(int64(v.(value.Time))) }
	case value.CodeDatetime:
		return 8, func(e *encoder, v value.Value) { e.i64(int64(v.(value.Datetime))) }
	case value.CodeTimestamp:
		return 8, func(e *encoder, v value.Value) { e.i64(int64(v.(value.Timestamp))) }
	case value.CodeDuration:
		return 8, func(e *encoder, v value.Value) { e.i64(int64(v.(value.Duration))) }
	case value.CodeF32:
		return 4, func(e *encoder, v value.Value) { e.bytes(le32(math.Float32bits(float32(v.(value.F32))))) }
	case value.CodeF64:
		return 8, func(e *encoder, v value.Value) { e.f64(float64(v.(value.F64))) }
	}
	return 0, nil
}

func decodeValue(d *decoder) (value.Value, error) {
	if d.remaining() < 4 {
		return nil, errShortRead
	}
	code := codeFromWireByte(d.buf[d.pos])

	switch code {
	case value.CodeNull:
		return decodeScalar(d, value.CodeNull)
	case value.CodeErr:
		return decodeErr(d)
	case value.CodeMixedList:
		return decodeMixedList(d)
	case value.CodeDict:
		return decodeDict(d)
	case value.CodeDataFrame:
		return decodeFrameArrow(d)
	case value.CodeMatrix:
		return decodeMatrixArrowFallback(d)
	}

	switch code.Vector() {
	case value.CodeString, value.CodeSymbol:
		return decodeTextRecord(d)
	}

	if code.IsNegative() {
		return decodeScalar(d, code.Vector())
	}
	return decodeSeries(d, code)
}

func decodeScalar(d *decoder, elem value.Code) (value.Value, error) {
	switch elem {
	case value.CodeNull:
		if err := d.skip(8); err != nil {
			return nil, err
		}
		return value.Null{}, nil
	case value.CodeBoolean:
		b, err := d.take(8)
		if err != nil {
			return nil, err
		}
		return value.Boolean(b[4] != 0), nil
	case value.CodeU8:
		b, err := d.take(8)
		if err != nil {
			return nil, err
		}
		return value.U8(b[4]), nil
	case value.CodeI16:
		b, err := d.take(8)
		if err != nil {
			return nil, err
		}
		return value.I16(int16(b[4]) | int16(b[5])<<8), nil
	case value.CodeI32:
		b, err := d.take(8)
		if err != nil {
			return nil, err
		}
		return value.I32(le32ToU32(b[4:8])), nil
	case value.CodeDate:
		b, err := d.take(8)
		if err != nil {
			return nil, err
		}
		return value.Date(int32(le32ToU32(b[4:8]))), nil
	case value.CodeF32:
		b, err := d.take(8)
		if err != nil {
			return nil, err
		}
		return value.F32(math.Float32frombits(le32ToU32(b[4:8]))), nil
	case value.CodeI64:
		if err := d.skip(8); err != nil {
			return nil, err
		}
		v, err := d.i64()
		return value.I64(v), err
	case value.CodeTime:
		if err := d.skip(8); err != nil {
			return nil, err
		}
		v, err := d.i64()
		return value.Time(v), err
	case value.CodeDatetime:
		if err := d.skip(8); err != nil {
			return nil, err
		}
		v, err := d.i64()
		return value.Datetime(v), err
	case value.CodeTimestamp:
		if err := d.skip(8); err != nil {
			return nil, err
		}
		v, err := d.i64()
		return value.Timestamp(v), err
	case value.CodeDuration:
		if err := d.skip(8); err != nil {
			return nil, err
		}
		v, err := d.i64()
		return value.Duration(v), err
	case value.CodeF64:
		if err := d.skip(8); err != nil {
			return nil, err
		}
		v, err := d.f64()
		return value.F64(v), err
	}
	return nil, value.NewError(value.KindNotSupportedKType, "v9: unknown scalar code %s", elem)
}

func le32ToU32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func decodeErr(d *decoder) (value.Value, error) {
	if err := d.skip(8); err != nil {
		return nil, err
	}
	n, err := d.u64()
	if err != nil {
		return nil, err
	}
	b, err := d.take(int(n))
	if err != nil {
		return nil, err
	}
	if err := d.skip(pad8(int(n))); err != nil {
		return nil, err
	}
	return value.Err{Msg: string(b)}, nil
}

func decodeTextRecord(d *decoder) (value.Value, error) {
	code, err := d.leader()
	if err != nil {
		return nil, err
	}
	if err := d.skip(4); err != nil {
		return nil, err
	}
	byteLen, err := d.u64()
	if err != nil {
		return nil, err
	}
	start := d.pos
	elemCount, err := d.u64()
	if err != nil {
		return nil, err
	}
	offsets := make([]int64, elemCount+1)
	for i := range offsets {
		v, err := d.i64()
		if err != nil {
			return nil, err
		}
		offsets[i] = v
	}
	strBytes, err := d.take(int(byteLen) - (d.pos - start))
	if err != nil {
		return nil, err
	}
	items := make([]string, elemCount)
	for i := range items {
		items[i] = string(strBytes[offsets[i]:offsets[i+1]])
	}
	if err := d.skip(pad8(int(byteLen))); err != nil {
		return nil, err
	}
	elem := code.Vector()
	if elem == value.CodeSymbol {
		if elemCount == 1 {
			return value.Symbol(value.Intern(items[0])), nil
		}
		return columnar.NewSymbolVector(items), nil
	}
	if elemCount == 1 {
		return value.String(items[0]), nil
	}
	return columnar.NewStringVector(items), nil
}

func decodeMixedList(d *decoder) (value.Value, error) {
	if err := d.skip(8); err != nil {
		return nil, err
	}
	n, err := d.u32()
	if err != nil {
		return nil, err
	}
	if err := d.skip(4); err != nil {
		return nil, err
	}
	if n == 0 {
		return &value.MixedListValue{}, nil
	}
	if _, err := d.u64(); err != nil { // total_byte_len, unused by the decoder
		return nil, err
	}
	items := make([]value.Value, n)
	for i := range items {
		v, err := decodeValue(d)
		if err != nil {
			return nil, err
		}
		items[i] = v
	}
	return &value.MixedListValue{Items: items}, nil
}

func decodeDict(d *decoder) (value.Value, error) {
	if err := d.skip(8); err != nil {
		return nil, err
	}
	n, err := d.u32()
	if err != nil {
		return nil, err
	}
	if err := d.skip(4); err != nil {
		return nil, err
	}
	if _, err := d.u64(); err != nil { // total_byte_len
		return nil, err
	}
	keysByteLen, err := d.u64()
	if err != nil {
		return nil, err
	}
	keyStart := d.pos
	offsets := make([]uint32, n)
	for i := range offsets {
		v, err := d.u32()
		if err != nil {
			return nil, err
		}
		offsets[i] = v
	}
	keyBytesLen := int(keysByteLen) - (d.pos - keyStart)
	keyBytes, err := d.take(keyBytesLen)
	if err != nil {
		return nil, err
	}
	if err := d.skip(pad8(int(keysByteLen))); err != nil {
		return nil, err
	}
	if _, err := d.u64(); err != nil { // values_byte_len
		return nil, err
	}
	out := value.NewDict()
	var prev uint32
	keys := make([]string, n)
	for i, o := range offsets {
		keys[i] = string(keyBytes[prev:o])
		prev = o
	}
	for i := uint32(0); i < n; i++ {
		v, err := decodeValue(d)
		if err != nil {
			return nil, err
		}
		out.Set(keys[i], v)
	}
	return out, nil
}

func decodeSeries(d *decoder, elem value.Code) (value.Value, error) {
	if err := d.skip(8); err != nil {
		return nil, err
	}
	byteLen, err := d.u64()
	if err != nil {
		return nil, err
	}
	start := d.pos
	count, err := d.u64()
	if err != nil {
		return nil, err
	}
	if count == arrowFallbackMarker {
		return decodeSeriesArrowFallback(d, int(byteLen))
	}
	n := int(count)
	switch elem {
	case value.CodeU8:
		data := make([]uint8, n)
		for i := range data {
			b, err := d.take(1)
			if err != nil {
				return nil, err
			}
			data[i] = b[0]
		}
		if err := d.skip(pad8(d.pos - start)); err != nil {
			return nil, err
		}
		return columnar.NewU8Vector(data, nil), nil
	case value.CodeI16:
		data := make([]int16, n)
		for i := range data {
			b, err := d.take(2)
			if err != nil {
				return nil, err
			}
			data[i] = int16(b[0]) | int16(b[1])<<8
		}
		if err := d.skip(pad8(d.pos - start)); err != nil {
			return nil, err
		}
		return columnar.NewI16Vector(data), nil
	case value.CodeI32:
		data := make([]int32, n)
		for i := range data {
			b, err := d.take(4)
			if err != nil {
				return nil, err
			}
			data[i] = int32(le32ToU32(b))
		}
		if err := d.skip(pad8(d.pos - start)); err != nil {
			return nil, err
		}
		return columnar.NewI32Vector(data), nil
	case value.CodeI64:
		data := make([]int64, n)
		for i := range data {
			v, err := d.i64()
			if err != nil {
				return nil, err
			}
			data[i] = v
		}
		return columnar.NewI64Vector(data), nil
	case value.CodeDate:
		data := make([]int32, n)
		for i := range data {
			b, err := d.take(4)
			if err != nil {
				return nil, err
			}
			data[i] = int32(le32ToU32(b))
		}
		if err := d.skip(pad8(d.pos - start)); err != nil {
			return nil, err
		}
		return columnar.NewDateVector(data), nil
	case value.CodeTime:
		data := make([]int64, n)
		for i := range data {
			v, err := d.i64()
			if err != nil {
				return nil, err
			}
			data[i] = v
		}
		return columnar.NewTimeVector(data), nil
	case value.CodeDatetime:
		data := make([]int64, n)
		for i := range data {
			v, err := d.i64()
			if err != nil {
				return nil, err
			}
			data[i] = v
		}
		return columnar.NewDatetimeVector(data), nil
	case value.CodeTimestamp:
		data := make([]int64, n)
		for i := range data {
			v, err := d.i64()
			if err != nil {
				return nil, err
			}
			data[i] = v
		}
		return columnar.NewTimestampVector(data), nil
	case value.CodeDuration:
		data := make([]int64, n)
		for i := range data {
			v, err := d.i64()
			if err != nil {
				return nil, err
			}
			data[i] = v
		}
		return columnar.NewDurationVector(data), nil
	case value.CodeF32:
		data := make([]float32, n)
		for i := range data {
			b, err := d.take(4)
			if err != nil {
				return nil, err
			}
			data[i] = math.Float32frombits(le32ToU32(b))
		}
		if err := d.skip(pad8(d.pos - start)); err != nil {
			return nil, err
		}
		return columnar.NewF32Vector(data), nil
	case value.CodeF64:
		data := make([]float64, n)
		for i := range data {
			v, err := d.f64()
			if err != nil {
				return nil, err
			}
			data[i] = v
		}
		return columnar.NewF64Vector(data), nil
	}
	return nil, value.NewError(value.KindNotSupportedKList, "v9: unknown vector code %s", elem)
}

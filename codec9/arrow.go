package codec9

import (
	"bytes"
	"os"
	"strconv"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"

	"github.com/chilidb/chili/columnar"
	"github.com/chilidb/chili/value"
)

// compressionCodec identifies how an Arrow-IPC payload produced by this
// package was compressed, written as a one-byte prefix ahead of the Arrow
// stream (§4.2.2 does not specify how a decoder tells compressed and
// uncompressed Arrow payloads apart without parsing the environment that
// produced them, so this package adds an explicit one-byte marker).
//
// The spec names LZ4 for the fast/low-ratio tier; the pack's only grounded
// compression dependency is klauspost/compress (from AKJUS-bsc-erigon),
// which does not include an LZ4 implementation. Its S2 codec fills the
// same role in that library's own family (Snappy-compatible, optimized for
// speed over ratio) and is used here in LZ4's place rather than pulling in
// an ungrounded dependency for one tier.
type compressionCodec byte

const (
	compressionNone compressionCodec = 0
	compressionFast  compressionCodec = 1 // S2, standing in for LZ4's role
	compressionZSTD  compressionCodec = 2
)

// selectCompression implements §4.2.2's bandwidth-driven codec choice:
// CHILI_NETWORK_BANDWIDTH (Mbps) > 2500 skips compression, > 1000 picks
// the fast/low-ratio codec, otherwise ZSTD for best ratio over a slow link.
// Undersized payloads (< 1 MiB) are never compressed regardless of
// bandwidth — the spec gates compression on "estimated size exceeds 1 MiB".
func selectCompression(uncompressedSize int) compressionCodec {
	const mib = 1 << 20
	if uncompressedSize < mib {
		return compressionNone
	}
	mbps := 2500.0
	if v := os.Getenv("CHILI_NETWORK_BANDWIDTH"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			mbps = parsed
		}
	}
	switch {
	case mbps > 2500:
		return compressionNone
	case mbps > 1000:
		return compressionFast
	default:
		return compressionZSTD
	}
}

func compressArrowPayload(raw []byte) ([]byte, error) {
	codec := selectCompression(len(raw))
	switch codec {
	case compressionFast:
		var buf bytes.Buffer
		w := s2.NewWriter(&buf)
		if _, err := w.Write(raw); err != nil {
			return nil, value.WrapError(value.KindNotAbleToSerialize, err, "v9: s2 compress")
		}
		if err := w.Close(); err != nil {
			return nil, value.WrapError(value.KindNotAbleToSerialize, err, "v9: s2 close")
		}
		return append([]byte{byte(compressionFast)}, buf.Bytes()...), nil
	case compressionZSTD:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, value.WrapError(value.KindNotAbleToSerialize, err, "v9: zstd writer")
		}
		defer enc.Close()
		return append([]byte{byte(compressionZSTD)}, enc.EncodeAll(raw, nil)...), nil
	default:
		return append([]byte{byte(compressionNone)}, raw...), nil
	}
}

func decompressArrowPayload(payload []byte) ([]byte, error) {
	if len(payload) == 0 {
		return nil, errShortRead
	}
	codec := compressionCodec(payload[0])
	body := payload[1:]
	switch codec {
	case compressionFast:
		r := s2.NewReader(bytes.NewReader(body))
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(r); err != nil {
			return nil, value.WrapError(value.KindNotAbleToDeserialize, err, "v9: s2 decompress")
		}
		return buf.Bytes(), nil
	case compressionZSTD:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, value.WrapError(value.KindNotAbleToDeserialize, err, "v9: zstd reader")
		}
		defer dec.Close()
		out, err := dec.DecodeAll(body, nil)
		if err != nil {
			return nil, value.WrapError(value.KindNotAbleToDeserialize, err, "v9: zstd decompress")
		}
		return out, nil
	case compressionNone:
		return body, nil
	default:
		return nil, value.NewError(value.KindNotAbleToDeserialize, "v9: unknown compression codec %d", codec)
	}
}

var arrowPool = memory.NewGoAllocator()

func arrowTypeFor(elem value.Code) arrow.DataType {
	switch elem {
	case value.CodeBoolean:
		return arrow.FixedWidthTypes.Boolean
	case value.CodeU8:
		return arrow.PrimitiveTypes.Uint8
	case value.CodeI16:
		return arrow.PrimitiveTypes.Int16
	case value.CodeI32, value.CodeDate:
		return arrow.PrimitiveTypes.Int32
	case value.CodeI64, value.CodeTime, value.CodeDatetime, value.CodeTimestamp, value.CodeDuration:
		return arrow.PrimitiveTypes.Int64
	case value.CodeF32:
		return arrow.PrimitiveTypes.Float32
	case value.CodeF64:
		return arrow.PrimitiveTypes.Float64
	case value.CodeString, value.CodeSymbol:
		return arrow.BinaryTypes.String
	}
	return arrow.PrimitiveTypes.Float64
}

func appendSeriesToBuilder(b array.Builder, s value.Series, i int) {
	if !s.IsValid(i) {
		b.AppendNull()
		return
	}
	switch bb := b.(type) {
	case *array.BooleanBuilder:
		bb.Append(bool(s.At(i).(value.Boolean)))
	case *array.Uint8Builder:
		bb.Append(uint8(s.At(i).(value.U8)))
	case *array.Int16Builder:
		bb.Append(int16(s.At(i).(value.I16)))
	case *array.Int32Builder:
		switch v := s.At(i).(type) {
		case value.I32:
			bb.Append(int32(v))
		case value.Date:
			bb.Append(int32(v))
		}
	case *array.Int64Builder:
		switch v := s.At(i).(type) {
		case value.I64:
			bb.Append(int64(v))
		case value.Time:
			bb.Append(int64(v))
		case value.Datetime:
			bb.Append(int64(v))
		case value.Timestamp:
			bb.Append(int64(v))
		case value.Duration:
			bb.Append(int64(v))
		}
	case *array.Float32Builder:
		bb.Append(float32(s.At(i).(value.F32)))
	case *array.Float64Builder:
		bb.Append(float64(s.At(i).(value.F64)))
	case *array.StringBuilder:
		switch v := s.At(i).(type) {
		case value.String:
			bb.Append(string(v))
		case value.Symbol:
			bb.Append(string(v))
		}
	}
}

// chiliCodeMeta attaches this engine's own element Code to an Arrow field
// so the domain type (Date vs plain i32, Timestamp vs plain i64, ...)
// survives the generic-Arrow-type round trip; Arrow's own type system has
// no Date/Time/Duration distinction at this granularity.
func chiliCodeMeta(elem value.Code) arrow.Metadata {
	return arrow.NewMetadata([]string{"chili_code"}, []string{strconv.Itoa(int(elem))})
}

func codeFromFieldMeta(f arrow.Field, fallback value.Code) value.Code {
	i := f.Metadata.FindKey("chili_code")
	if i < 0 {
		return fallback
	}
	n, err := strconv.Atoi(f.Metadata.Values()[i])
	if err != nil {
		return fallback
	}
	return value.Code(n)
}

func seriesToArrowRecord(name string, s value.Series) arrow.Record {
	field := arrow.Field{Name: name, Type: arrowTypeFor(s.ElemCode()), Nullable: true, Metadata: chiliCodeMeta(s.ElemCode())}
	schema := arrow.NewSchema([]arrow.Field{field}, nil)
	b := array.NewBuilder(arrowPool, field.Type)
	defer b.Release()
	for i := 0; i < s.Len(); i++ {
		appendSeriesToBuilder(b, s, i)
	}
	arr := b.NewArray()
	defer arr.Release()
	return array.NewRecord(schema, []arrow.Array{arr}, int64(s.Len()))
}

func frameToArrowRecord(f value.Frame) arrow.Record {
	names := f.ColumnNames()
	fields := make([]arrow.Field, len(names))
	builders := make([]array.Builder, len(names))
	cols := make([]value.Series, len(names))
	for i, n := range names {
		col, _ := f.Column(n)
		cols[i] = col
		fields[i] = arrow.Field{Name: n, Type: arrowTypeFor(col.ElemCode()), Nullable: true, Metadata: chiliCodeMeta(col.ElemCode())}
		builders[i] = array.NewBuilder(arrowPool, fields[i].Type)
	}
	schema := arrow.NewSchema(fields, nil)
	arrs := make([]arrow.Array, len(names))
	height := f.Height()
	for c, col := range cols {
		for r := 0; r < height; r++ {
			appendSeriesToBuilder(builders[c], col, r)
		}
		arrs[c] = builders[c].NewArray()
	}
	return array.NewRecord(schema, arrs, int64(height))
}

// retypeSeries rebuilds a generically-Arrow-typed series (plain i32/i64)
// into the domain-specific vector kind the field metadata recorded, e.g.
// turning a bare i32 column back into a Date column.
func retypeSeries(s value.Series, target value.Code) value.Series {
	if s == nil || target == s.ElemCode() {
		return s
	}
	n := s.Len()
	switch target.Vector() {
	case value.CodeSymbol:
		data := make([]string, n)
		for i := range data {
			if v, ok := s.At(i).(value.String); ok {
				data[i] = string(v)
			}
		}
		return columnar.NewSymbolVector(data)
	case value.CodeDate:
		data := make([]int32, n)
		for i := range data {
			if v, ok := s.At(i).(value.I32); ok {
				data[i] = int32(v)
			} else {
				data[i] = value.NullI32
			}
		}
		return columnar.NewDateVector(data)
	case value.CodeTime, value.CodeDatetime, value.CodeTimestamp, value.CodeDuration:
		data := make([]int64, n)
		for i := range data {
			if v, ok := s.At(i).(value.I64); ok {
				data[i] = int64(v)
			} else {
				data[i] = value.NullI64
			}
		}
		switch target.Vector() {
		case value.CodeTime:
			return columnar.NewTimeVector(data)
		case value.CodeDatetime:
			return columnar.NewDatetimeVector(data)
		case value.CodeTimestamp:
			return columnar.NewTimestampVector(data)
		default:
			return columnar.NewDurationVector(data)
		}
	}
	return s
}

func writeArrowIPC(rec arrow.Record) ([]byte, error) {
	defer rec.Release()
	var buf bytes.Buffer
	w := ipc.NewWriter(&buf, ipc.WithSchema(rec.Schema()), ipc.WithAllocator(arrowPool))
	if err := w.Write(rec); err != nil {
		return nil, value.WrapError(value.KindNotAbleToSerialize, err, "v9: writing arrow ipc stream")
	}
	if err := w.Close(); err != nil {
		return nil, value.WrapError(value.KindNotAbleToSerialize, err, "v9: closing arrow ipc writer")
	}
	return buf.Bytes(), nil
}

func readArrowIPC(data []byte) (arrow.Record, error) {
	r, err := ipc.NewReader(bytes.NewReader(data), ipc.WithAllocator(arrowPool))
	if err != nil {
		return nil, value.WrapError(value.KindNotAbleToDeserialize, err, "v9: opening arrow ipc stream")
	}
	defer r.Release()
	if !r.Next() {
		return nil, value.NewError(value.KindNotAbleToDeserialize, "v9: empty arrow ipc stream")
	}
	rec := r.Record()
	rec.Retain()
	return rec, nil
}

// encodeSeriesArrowFallback writes a series whose payload is an Arrow IPC
// stream: `[code,0,0,0,0,0,0,0][byte_len][elem_count=sentinel][compressed
// arrow bytes][pad]`.
func encodeSeriesArrowFallback(e *encoder, s value.Series) error {
	rec := seriesToArrowRecord("value", s)
	raw, err := writeArrowIPC(rec)
	if err != nil {
		return err
	}
	packed, err := compressArrowPayload(raw)
	if err != nil {
		return err
	}
	e.leader(s.ElemCode().Vector())
	e.zeros(4)
	e.u64(uint64(8 + len(packed)))
	e.u64(arrowFallbackMarker)
	e.bytes(packed)
	e.padToAlign()
	return nil
}

// decodeSeriesArrowFallback reads the Arrow-IPC payload that follows the
// elem_count sentinel byteLen already reported the combined size of that
// sentinel (8 bytes, already consumed by the caller) plus the payload.
func decodeSeriesArrowFallback(d *decoder, byteLen int) (value.Value, error) {
	packed, err := d.take(byteLen - 8)
	if err != nil {
		return nil, err
	}
	if err := d.skip(pad8(byteLen)); err != nil {
		return nil, err
	}
	raw, err := decompressArrowPayload(packed)
	if err != nil {
		return nil, err
	}
	rec, err := readArrowIPC(raw)
	if err != nil {
		return nil, err
	}
	defer rec.Release()
	s, err := columnar.ArrowArrayToSeries(rec.Column(0))
	if err != nil {
		return nil, err
	}
	field := rec.Schema().Field(0)
	return retypeSeries(s, codeFromFieldMeta(field, s.ElemCode())), nil
}

func encodeFrameArrow(e *encoder, f value.Frame) error {
	rec := frameToArrowRecord(f)
	raw, err := writeArrowIPC(rec)
	if err != nil {
		return err
	}
	packed, err := compressArrowPayload(raw)
	if err != nil {
		return err
	}
	e.leader(value.CodeDataFrame)
	e.zeros(4)
	e.u64(uint64(len(packed)))
	e.bytes(packed)
	e.padToAlign()
	return nil
}

func decodeFrameArrow(d *decoder) (value.Value, error) {
	if err := d.skip(8); err != nil {
		return nil, err
	}
	byteLen, err := d.u64()
	if err != nil {
		return nil, err
	}
	packed, err := d.take(int(byteLen))
	if err != nil {
		return nil, err
	}
	if err := d.skip(pad8(int(byteLen))); err != nil {
		return nil, err
	}
	raw, err := decompressArrowPayload(packed)
	if err != nil {
		return nil, err
	}
	rec, err := readArrowIPC(raw)
	if err != nil {
		return nil, err
	}
	defer rec.Release()
	names := make([]string, rec.NumCols())
	cols := make([]value.Series, rec.NumCols())
	for i := 0; i < int(rec.NumCols()); i++ {
		names[i] = rec.ColumnName(i)
		s, err := columnar.ArrowArrayToSeries(rec.Column(i))
		if err != nil {
			return nil, err
		}
		field := rec.Schema().Field(i)
		cols[i] = retypeSeries(s, codeFromFieldMeta(field, s.ElemCode()))
	}
	return columnar.NewDataFrame(names, cols)
}

func encodeMatrixArrowFallback(e *encoder, m *value.Matrix) error {
	vec := columnar.NewF64Vector(append([]float64(nil), m.Data...))
	rec := seriesToArrowRecord("value", vec)
	raw, err := writeArrowIPC(rec)
	if err != nil {
		return err
	}
	packed, err := compressArrowPayload(raw)
	if err != nil {
		return err
	}
	e.leader(value.CodeMatrix)
	e.zeros(4)
	e.u64(uint64(8 + len(packed)))
	e.u32(uint32(m.Rows))
	e.u32(uint32(m.Cols))
	e.bytes(packed)
	e.padToAlign()
	return nil
}

func decodeMatrixArrowFallback(d *decoder) (value.Value, error) {
	if err := d.skip(8); err != nil {
		return nil, err
	}
	byteLen, err := d.u64()
	if err != nil {
		return nil, err
	}
	start := d.pos
	rows, err := d.u32()
	if err != nil {
		return nil, err
	}
	cols, err := d.u32()
	if err != nil {
		return nil, err
	}
	packed, err := d.take(int(byteLen) - (d.pos - start))
	if err != nil {
		return nil, err
	}
	if err := d.skip(pad8(int(byteLen))); err != nil {
		return nil, err
	}
	raw, err := decompressArrowPayload(packed)
	if err != nil {
		return nil, err
	}
	rec, err := readArrowIPC(raw)
	if err != nil {
		return nil, err
	}
	defer rec.Release()
	s, err := columnar.ArrowArrayToSeries(rec.Column(0))
	if err != nil {
		return nil, err
	}
	m := value.NewMatrix(int(rows), int(cols))
	for i := 0; i < s.Len() && i < len(m.Data); i++ {
		if f, ok := s.At(i).(value.F64); ok {
			m.Data[i] = float64(f)
		}
	}
	return m, nil
}

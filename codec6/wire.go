package codec6

import (
	"github.com/chilidb/chili/columnar"
	"github.com/chilidb/chili/value"
)

// encodeValue dispatches on v's concrete type and writes its V6 wire form
// (§4.2.1). Atoms are a type byte plus a fixed-size payload; vectors are a
// type byte, an attribute byte (always 0 — attributes are not modeled),
// a little-endian u32 element count, and the payload; collections nest
// recursively.
func encodeValue(e *encoder, v value.Value) error {
	switch x := v.(type) {
	case value.Null:
		e.byte(wireNull)
	case value.Boolean:
		e.byte(wireByte(value.CodeBoolean.Atom()))
		if x {
			e.byte(1)
		} else {
			e.byte(0)
		}
	case value.U8:
		e.byte(wireByte(value.CodeU8.Atom()))
		e.byte(byte(x))
	case value.I16:
		e.byte(wireByte(value.CodeI16.Atom()))
		e.i16(int16(x))
	case value.I32:
		e.byte(wireByte(value.CodeI32.Atom()))
		e.i32(int32(x))
	case value.I64:
		e.byte(wireByte(value.CodeI64.Atom()))
		e.i64(int64(x))
	case value.Date:
		e.byte(wireByte(value.CodeDate.Atom()))
		if int32(x) == value.NullI32 {
			e.i32(value.NullI32)
		} else {
			e.i32(int32(x) - DayDiff)
		}
	case value.Time:
		e.byte(wireByte(value.CodeTime.Atom()))
		e.i64(int64(x))
	case value.Datetime:
		e.byte(wireByte(value.CodeDatetime.Atom()))
		if int64(x) == value.NullI64 {
			e.f64(nanF64())
		} else {
			// §9: datetime is encoded lossily as f64 days since 2000-01-01.
			e.f64(float64(int64(x)-MsDiff) / 86_400_000.0)
		}
	case value.Timestamp:
		e.byte(wireByte(value.CodeTimestamp.Atom()))
		if int64(x) == value.NullI64 {
			e.i64(value.NullI64)
		} else {
			e.i64(int64(x) - NsDiff)
		}
	case value.Duration:
		e.byte(wireByte(value.CodeDuration.Atom()))
		e.i64(int64(x))
	case value.F32:
		e.byte(wireByte(value.CodeF32.Atom()))
		e.f32(float32(x))
	case value.F64:
		e.byte(wireByte(value.CodeF64.Atom()))
		e.f64(float64(x))
	case value.String:
		e.byte(wireByte(value.CodeString.Atom()))
		e.u32(uint32(len(x)))
		e.bytes([]byte(x))
	case value.Symbol:
		e.byte(wireByte(value.CodeSymbol.Atom()))
		e.cstring(string(x))
	case value.Err:
		e.byte(wireErr)
		e.cstring(x.Msg)
	case *value.MixedListValue:
		return encodeMixedList(e, x)
	case *value.DictValue:
		return encodeDict(e, x)
	case *value.Matrix:
		encodeMatrix(e, x)
		return nil
	case value.Series:
		return encodeSeries(e, x)
	case value.Frame:
		return encodeFrame(e, x)
	default:
		return value.NewError(value.KindNotAbleToSerialize, "v6: no wire encoding for %T", v)
	}
	return nil
}

func nanF64() float64 { var z float64; return z / z }

func encodeMixedList(e *encoder, m *value.MixedListValue) error {
	e.byte(wireMixedList)
	e.u32(uint32(len(m.Items)))
	for _, item := range m.Items {
		if err := encodeValue(e, item); err != nil {
			return err
		}
	}
	return nil
}

func encodeDict(e *encoder, d *value.DictValue) error {
	e.byte(wireDictLead)
	keys := d.Keys()
	symVec := columnar.NewSymbolVector(append([]string(nil), keys...))
	if err := encodeSeries(e, symVec); err != nil {
		return err
	}
	vals := &value.MixedListValue{Items: d.Values()}
	return encodeMixedList(e, vals)
}

func encodeMatrix(e *encoder, m *value.Matrix) {
	e.byte(wireByte(value.CodeMatrix))
	e.u32(uint32(m.Rows))
	e.u32(uint32(m.Cols))
	for _, f := range m.Data {
		e.f64(f)
	}
}

// encodeFrame writes a DataFrame as "98 99" followed by its column-name
// symbol vector and a mixed list of its columns (each itself a Series).
func encodeFrame(e *encoder, f value.Frame) error {
	e.byte(wireTableLead1)
	e.byte(wireTableLead2)
	names := f.ColumnNames()
	if err := encodeSeries(e, columnar.NewSymbolVector(append([]string(nil), names...))); err != nil {
		return err
	}
	cols := make([]value.Value, len(names))
	for i, n := range names {
		col, _ := f.Column(n)
		cols[i] = col
	}
	return encodeMixedList(e, &value.MixedListValue{Items: cols})
}

// encodeSeries writes a homogeneous column: type byte, attribute byte (0),
// u32 length, then the payload for the element kind.
func encodeSeries(e *encoder, s value.Series) error {
	elem := s.ElemCode().Vector()
	e.byte(wireByte(elem))
	e.byte(0) // attribute
	e.u32(uint32(s.Len()))
	switch elem {
	case value.CodeBoolean:
		for i := 0; i < s.Len(); i++ {
			if b, ok := s.At(i).(value.Boolean); ok && b {
				e.byte(1)
			} else {
				e.byte(0)
			}
		}
	case value.CodeU8:
		for i := 0; i < s.Len(); i++ {
			u, _ := s.At(i).(value.U8)
			e.byte(byte(u))
		}
	case value.CodeI16:
		for i := 0; i < s.Len(); i++ {
			e.i16(int16(atomOrNullI16(s, i)))
		}
	case value.CodeI32:
		for i := 0; i < s.Len(); i++ {
			e.i32(atomOrNullI32(s, i))
		}
	case value.CodeI64:
		for i := 0; i < s.Len(); i++ {
			e.i64(atomOrNullI64(s, i))
		}
	case value.CodeDate:
		for i := 0; i < s.Len(); i++ {
			d := atomOrNullI32(s, i)
			if d == value.NullI32 {
				e.i32(value.NullI32)
			} else {
				e.i32(d - DayDiff)
			}
		}
	case value.CodeTime:
		for i := 0; i < s.Len(); i++ {
			e.i64(atomOrNullI64(s, i))
		}
	case value.CodeDatetime:
		for i := 0; i < s.Len(); i++ {
			d := atomOrNullI64(s, i)
			if d == value.NullI64 {
				e.f64(nanF64())
			} else {
				e.f64(float64(d-MsDiff) / 86_400_000.0)
			}
		}
	case value.CodeTimestamp:
		for i := 0; i < s.Len(); i++ {
			t := atomOrNullI64(s, i)
			if t == value.NullI64 {
				e.i64(value.NullI64)
			} else {
				e.i64(t - NsDiff)
			}
		}
	case value.CodeDuration:
		for i := 0; i < s.Len(); i++ {
			e.i64(atomOrNullI64(s, i))
		}
	case value.CodeF32:
		for i := 0; i < s.Len(); i++ {
			f, _ := s.At(i).(value.F32)
			e.f32(float32(f))
		}
	case value.CodeF64:
		for i := 0; i < s.Len(); i++ {
			f, _ := s.At(i).(value.F64)
			e.f64(float64(f))
		}
	case value.CodeString:
		for i := 0; i < s.Len(); i++ {
			str, _ := s.At(i).(value.String)
			e.u32(uint32(len(str)))
			e.bytes([]byte(str))
		}
	case value.CodeSymbol:
		for i := 0; i < s.Len(); i++ {
			sym, _ := s.At(i).(value.Symbol)
			e.cstring(string(sym))
		}
	default:
		return value.NewError(value.KindNotSupportedKList, "v6: no wire encoding for %s vector", elem)
	}
	return nil
}

func atomOrNullI16(s value.Series, i int) int16 {
	if v, ok := s.At(i).(value.I16); ok {
		return int16(v)
	}
	return value.NullI16
}
func atomOrNullI32(s value.Series, i int) int32 {
	switch v := s.At(i).(type) {
	case value.I32:
		return int32(v)
	case value.Date:
		return int32(v)
	}
	return value.NullI32
}
func atomOrNullI64(s value.Series, i int) int64 {
	switch v := s.At(i).(type) {
	case value.I64:
		return int64(v)
	case value.Time:
		return int64(v)
	case value.Datetime:
		return int64(v)
	case value.Timestamp:
		return int64(v)
	case value.Duration:
		return int64(v)
	}
	return value.NullI64
}

// decodeValue reads one wire value starting at the type byte.
func decodeValue(d *decoder) (value.Value, error) {
	b, err := d.byte()
	if err != nil {
		return nil, err
	}
	if b == wireNull {
		return value.Null{}, nil
	}
	if b == wireMixedList {
		return decodeMixedList(d)
	}
	if b == wireErr {
		s, err := d.cstring()
		if err != nil {
			return nil, err
		}
		return value.Err{Msg: s}, nil
	}
	if b == wireTableLead1 {
		lead2, err := d.byte()
		if err != nil {
			return nil, err
		}
		if lead2 != wireTableLead2 {
			return nil, value.NewError(value.KindNotAbleToDeserialize, "v6: malformed table header")
		}
		return decodeFrame(d)
	}
	if b == wireDictLead {
		return decodeDictOrKeyedFrame(d)
	}
	if b == wireByte(value.CodeMatrix) {
		return decodeMatrix(d)
	}

	code := codeFromWireByte(b)
	if code.IsNegative() {
		return decodeAtom(d, code.Vector())
	}
	return decodeSeries(d, code)
}

func decodeAtom(d *decoder, elem value.Code) (value.Value, error) {
	switch elem {
	case value.CodeBoolean:
		b, err := d.byte()
		return value.Boolean(b != 0), err
	case value.CodeU8:
		b, err := d.byte()
		return value.U8(b), err
	case value.CodeI16:
		v, err := d.i16()
		return value.I16(v), err
	case value.CodeI32:
		v, err := d.i32()
		return value.I32(v), err
	case value.CodeI64:
		v, err := d.i64()
		return value.I64(v), err
	case value.CodeDate:
		v, err := d.i32()
		if err != nil {
			return nil, err
		}
		if v == value.NullI32 {
			return value.Date(value.NullI32), nil
		}
		return value.Date(v + DayDiff), nil
	case value.CodeTime:
		v, err := d.i64()
		return value.Time(v), err
	case value.CodeDatetime:
		f, err := d.f64()
		if err != nil {
			return nil, err
		}
		if f != f {
			return value.Datetime(value.NullI64), nil
		}
		return value.Datetime(int64(f*86_400_000.0) + MsDiff), nil
	case value.CodeTimestamp:
		v, err := d.i64()
		if err != nil {
			return nil, err
		}
		if v == value.NullI64 {
			return value.Timestamp(value.NullI64), nil
		}
		return value.Timestamp(v + NsDiff), nil
	case value.CodeDuration:
		v, err := d.i64()
		return value.Duration(v), err
	case value.CodeF32:
		v, err := d.f32()
		return value.F32(v), err
	case value.CodeF64:
		v, err := d.f64()
		return value.F64(v), err
	case value.CodeString:
		n, err := d.u32()
		if err != nil {
			return nil, err
		}
		b, err := d.take(int(n))
		return value.String(string(b)), err
	case value.CodeSymbol:
		s, err := d.cstring()
		return value.Symbol(value.Intern(s)), err
	}
	return nil, value.NewError(value.KindNotSupportedKType, "v6: unknown atom type byte for code %s", elem)
}

func decodeMixedList(d *decoder) (*value.MixedListValue, error) {
	n, err := d.u32()
	if err != nil {
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

// decodeDictOrKeyedFrame resolves the ambiguity §4.2.1 creates by giving a
// plain Dict and a Keyed DataFrame the same lead byte 99: a Dict is keys
// (a Series) then values (a MixedList); a Keyed DataFrame is two nested
// DataFrames, each of which leads with its own "98 99" table header
// (wireTableLead1 then wireTableLead2). Peeking the byte right after the
// 99 lead tells them apart without unreading it: wireTableLead1 only
// starts a table, never a Series' own type byte.
func decodeDictOrKeyedFrame(d *decoder) (value.Value, error) {
	next, err := d.peek()
	if err != nil {
		return nil, err
	}
	if next == wireTableLead1 {
		return decodeKeyedFrame(d)
	}
	return decodeDict(d)
}

// decodeKeyedFrame reads the two nested DataFrames of a Keyed DataFrame
// (key columns, then value columns) and horizontally stacks them — key
// columns first, in their original order, followed by the value columns
// — into one wider DataFrame.
func decodeKeyedFrame(d *decoder) (value.Frame, error) {
	keyV, err := decodeValue(d)
	if err != nil {
		return nil, err
	}
	keyFrame, ok := keyV.(value.Frame)
	if !ok {
		return nil, value.NewError(value.KindNotAbleToDeserialize, "v6: keyed table's key part is not a table")
	}
	valV, err := decodeValue(d)
	if err != nil {
		return nil, err
	}
	valFrame, ok := valV.(value.Frame)
	if !ok {
		return nil, value.NewError(value.KindNotAbleToDeserialize, "v6: keyed table's value part is not a table")
	}
	return hstackFrames(keyFrame, valFrame)
}

// hstackFrames concatenates two frames' columns side by side into one
// DataFrame, a's columns first.
func hstackFrames(a, b value.Frame) (value.Frame, error) {
	names := append([]string(nil), a.ColumnNames()...)
	names = append(names, b.ColumnNames()...)
	cols := make([]value.Series, 0, len(names))
	for _, n := range a.ColumnNames() {
		col, _ := a.Column(n)
		cols = append(cols, col)
	}
	for _, n := range b.ColumnNames() {
		col, _ := b.Column(n)
		cols = append(cols, col)
	}
	return columnar.NewDataFrame(names, cols)
}

func decodeDict(d *decoder) (*value.DictValue, error) {
	keysV, err := decodeValue(d)
	if err != nil {
		return nil, err
	}
	keys, ok := keysV.(value.Series)
	if !ok || keys.ElemCode() != value.CodeSymbol.Atom() {
		return nil, value.NewError(value.KindNotAbleToDeserialize, "v6: dict keys must be a symbol vector")
	}
	valsV, err := decodeValue(d)
	if err != nil {
		return nil, err
	}
	vals, ok := valsV.(*value.MixedListValue)
	if !ok || len(vals.Items) != keys.Len() {
		return nil, value.NewError(value.KindNotAbleToDeserialize, "v6: dict key/value length mismatch")
	}
	out := value.NewDict()
	for i := 0; i < keys.Len(); i++ {
		out.Set(string(keys.At(i).(value.Symbol)), vals.Items[i])
	}
	return out, nil
}

func decodeMatrix(d *decoder) (*value.Matrix, error) {
	rows, err := d.u32()
	if err != nil {
		return nil, err
	}
	cols, err := d.u32()
	if err != nil {
		return nil, err
	}
	m := value.NewMatrix(int(rows), int(cols))
	for i := range m.Data {
		f, err := d.f64()
		if err != nil {
			return nil, err
		}
		m.Data[i] = f
	}
	return m, nil
}

func decodeFrame(d *decoder) (value.Frame, error) {
	namesV, err := decodeValue(d)
	if err != nil {
		return nil, err
	}
	names, ok := namesV.(value.Series)
	if !ok {
		return nil, value.NewError(value.KindNotAbleToDeserialize, "v6: table column names must be a vector")
	}
	colsV, err := decodeValue(d)
	if err != nil {
		return nil, err
	}
	cols, ok := colsV.(*value.MixedListValue)
	if !ok || len(cols.Items) != names.Len() {
		return nil, value.NewError(value.KindNotAbleToDeserialize, "v6: table column count mismatch")
	}
	colNames := make([]string, names.Len())
	series := make([]value.Series, names.Len())
	for i := range colNames {
		colNames[i] = string(names.At(i).(value.Symbol))
		s, ok := cols.Items[i].(value.Series)
		if !ok {
			return nil, value.NewError(value.KindNotAbleToDeserialize, "v6: table column %d is not a vector", i)
		}
		series[i] = s
	}
	return columnar.NewDataFrame(colNames, series)
}

// decodeSeries reads a vector payload: attribute byte, u32 length, payload.
func decodeSeries(d *decoder, elem value.Code) (value.Series, error) {
	if _, err := d.byte(); err != nil { // attribute, unused
		return nil, err
	}
	n, err := d.u32()
	if err != nil {
		return nil, err
	}
	count := int(n)
	switch elem {
	case value.CodeBoolean:
		data := make([]bool, count)
		for i := range data {
			b, err := d.byte()
			if err != nil {
				return nil, err
			}
			data[i] = b != 0
		}
		return columnar.NewBooleanVector(data, nil), nil
	case value.CodeU8:
		data := make([]uint8, count)
		for i := range data {
			b, err := d.byte()
			if err != nil {
				return nil, err
			}
			data[i] = b
		}
		return columnar.NewU8Vector(data, nil), nil
	case value.CodeI16:
		data := make([]int16, count)
		for i := range data {
			v, err := d.i16()
			if err != nil {
				return nil, err
			}
			data[i] = v
		}
		return columnar.NewI16Vector(data), nil
	case value.CodeI32:
		data := make([]int32, count)
		for i := range data {
			v, err := d.i32()
			if err != nil {
				return nil, err
			}
			data[i] = v
		}
		return columnar.NewI32Vector(data), nil
	case value.CodeI64:
		data := make([]int64, count)
		for i := range data {
			v, err := d.i64()
			if err != nil {
				return nil, err
			}
			data[i] = v
		}
		return columnar.NewI64Vector(data), nil
	case value.CodeDate:
		data := make([]int32, count)
		for i := range data {
			v, err := d.i32()
			if err != nil {
				return nil, err
			}
			if v == value.NullI32 {
				data[i] = value.NullI32
			} else {
				data[i] = v + DayDiff
			}
		}
		return columnar.NewDateVector(data), nil
	case value.CodeTime:
		data := make([]int64, count)
		for i := range data {
			v, err := d.i64()
			if err != nil {
				return nil, err
			}
			data[i] = v
		}
		return columnar.NewTimeVector(data), nil
	case value.CodeDatetime:
		data := make([]int64, count)
		for i := range data {
			f, err := d.f64()
			if err != nil {
				return nil, err
			}
			if f != f {
				data[i] = value.NullI64
			} else {
				data[i] = int64(f*86_400_000.0) + MsDiff
			}
		}
		return columnar.NewDatetimeVector(data), nil
	case value.CodeTimestamp:
		data := make([]int64, count)
		for i := range data {
			v, err := d.i64()
			if err != nil {
				return nil, err
			}
			if v == value.NullI64 {
				data[i] = value.NullI64
			} else {
				data[i] = v + NsDiff
			}
		}
		return columnar.NewTimestampVector(data), nil
	case value.CodeDuration:
		data := make([]int64, count)
		for i := range data {
			v, err := d.i64()
			if err != nil {
				return nil, err
			}
			data[i] = v
		}
		return columnar.NewDurationVector(data), nil
	case value.CodeF32:
		data := make([]float32, count)
		for i := range data {
			v, err := d.f32()
			if err != nil {
				return nil, err
			}
			data[i] = v
		}
		return columnar.NewF32Vector(data), nil
	case value.CodeF64:
		data := make([]float64, count)
		for i := range data {
			v, err := d.f64()
			if err != nil {
				return nil, err
			}
			data[i] = v
		}
		return columnar.NewF64Vector(data), nil
	case value.CodeString:
		data := make([]string, count)
		for i := range data {
			n, err := d.u32()
			if err != nil {
				return nil, err
			}
			b, err := d.take(int(n))
			if err != nil {
				return nil, err
			}
			data[i] = string(b)
		}
		return columnar.NewStringVector(data), nil
	case value.CodeSymbol:
		data := make([]string, count)
		for i := range data {
			s, err := d.cstring()
			if err != nil {
				return nil, err
			}
			data[i] = s
		}
		return columnar.NewSymbolVector(data), nil
	}
	return nil, value.NewError(value.KindNotSupportedKList, "v6: unknown vector type byte for code %s", elem)
}

package columnar

import (
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/chilidb/chili/value"
)

// ReadArrowColumnFile loads a partition's Arrow-IPC column file (§3.4
// "Scans lazily load Arrow-format column files") into a DataFrame, the
// columnar engine's single in-memory representation.
func ReadArrowColumnFile(path string) (*DataFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, value.WrapError(value.KindEval, err, "reading arrow column file %s", path)
	}
	defer f.Close()

	reader, err := ipc.NewFileReader(f, ipc.WithAllocator(memory.DefaultAllocator))
	if err != nil {
		return nil, value.WrapError(value.KindNotAbleToDeserialize, err, "opening arrow file %s", path)
	}
	defer reader.Close()

	var names []string
	var cols []value.Series
	for i := 0; i < reader.NumRecords(); i++ {
		rec, err := reader.Record(i)
		if err != nil {
			return nil, value.WrapError(value.KindNotAbleToDeserialize, err, "reading arrow record %d of %s", i, path)
		}
		if i == 0 {
			schema := rec.Schema()
			names = make([]string, schema.NumFields())
			cols = make([]value.Series, schema.NumFields())
			for c := 0; c < schema.NumFields(); c++ {
				names[c] = schema.Field(c).Name
			}
		}
		for c, col := range rec.Columns() {
			s, err := ArrowArrayToSeries(col)
			if err != nil {
				return nil, err
			}
			if cols[c] == nil {
				cols[c] = s
			} else {
				merged, err := concatSeries(cols[c], s)
				if err != nil {
					return nil, err
				}
				cols[c] = merged
			}
		}
	}
	return NewDataFrame(names, cols)
}

// ArrowArrayToSeries converts one Arrow array into the engine's own Series
// representation. Only the element types the wire codecs emit (§4.2.2) are
// expected; anything else surfaces as NotAbleToDeserialize. Slots that are
// null in the Arrow validity bitmap are marked null with SetNull.
func ArrowArrayToSeries(col arrow.Array) (s value.Series, err error) {
	defer func() {
		if v, ok := s.(interface{ SetNull(int) }); ok && col.NullN() > 0 {
			for i := 0; i < col.Len(); i++ {
				if col.IsNull(i) {
					v.SetNull(i)
				}
			}
		}
	}()
	switch a := col.(type) {
	case *array.Boolean:
		data := make([]bool, a.Len())
		for i := 0; i < a.Len(); i++ {
			data[i] = a.Value(i)
		}
		return NewBooleanVector(data, nil), nil
	case *array.Uint8:
		return NewU8Vector(append([]uint8(nil), a.Uint8Values()...), nil), nil
	case *array.Int16:
		return NewI16Vector(append([]int16(nil), a.Int16Values()...)), nil
	case *array.Int32:
		return NewI32Vector(append([]int32(nil), a.Int32Values()...)), nil
	case *array.Int64:
		return NewI64Vector(append([]int64(nil), a.Int64Values()...)), nil
	case *array.Float32:
		return NewF32Vector(append([]float32(nil), a.Float32Values()...)), nil
	case *array.Float64:
		return NewF64Vector(append([]float64(nil), a.Float64Values()...)), nil
	case *array.String:
		data := make([]string, a.Len())
		for i := 0; i < a.Len(); i++ {
			data[i] = a.Value(i)
		}
		return NewStringVector(data), nil
	case *array.Dictionary:
		data := make([]string, a.Len())
		dict, ok := a.Dictionary().(*array.String)
		if !ok {
			return nil, value.NewError(value.KindNotAbleToDeserialize, "dictionary column with non-string values")
		}
		for i := 0; i < a.Len(); i++ {
			data[i] = dict.Value(a.GetValueIndex(i))
		}
		return NewSymbolVector(data), nil
	default:
		return nil, value.NewError(value.KindNotAbleToDeserialize, "unsupported arrow column type %T", col)
	}
}

// Package columnar implements the typed columnar arrays and dataframes of
// §3.4 and §4.1 (C2): the storage backing value.Series/value.Frame.
package columnar

import (
	"math"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/chilidb/chili/value"
)

// Vector is a typed, homogeneous column. Boolean and U8 (which have no
// scalar sentinel, §3.2) carry a roaring-bitmap validity mask; every other
// primitive type represents nulls with its sentinel value and needs no
// mask.
type Vector[T any] struct {
	code    value.Code // atom code of the element type
	data    []T
	invalid *roaring.Bitmap // nil unless the element type needs a mask
	wrap    func(T) value.Value
	isNull  func(T) bool
}

func newVector[T any](code value.Code, data []T, wrap func(T) value.Value, isNull func(T) bool) *Vector[T] {
	return &Vector[T]{code: code, data: data, wrap: wrap, isNull: isNull}
}

func (v *Vector[T]) Code() value.Code      { return v.code.Vector() }
func (v *Vector[T]) ElemCode() value.Code  { return v.code.Atom() }
func (v *Vector[T]) Size() int             { return len(v.data) }
func (v *Vector[T]) Len() int              { return len(v.data) }
func (v *Vector[T]) IsAtom() bool          { return false }
func (v *Vector[T]) TypeName() string      { return v.code.Atom().String() + "[]" }

func (v *Vector[T]) String() string {
	parts := make([]string, len(v.data))
	for i := range v.data {
		parts[i] = v.At(i).String()
	}
	return strings.Join(parts, " ")
}

func (v *Vector[T]) At(i int) value.Value {
	if !v.IsValid(i) {
		return value.Null{}
	}
	return v.wrap(v.data[i])
}

func (v *Vector[T]) IsValid(i int) bool {
	if v.invalid != nil {
		return !v.invalid.Contains(uint32(i))
	}
	if v.isNull != nil {
		return !v.isNull(v.data[i])
	}
	return true
}

// SetNull marks position i as null. For masked types this flips a bit in
// the validity bitmap; for sentinel types it writes the sentinel.
func (v *Vector[T]) SetNull(i int) {
	if v.invalid == nil && v.isNull == nil {
		v.invalid = roaring.New()
	}
	if v.invalid != nil {
		v.invalid.Add(uint32(i))
		return
	}
	switch p := any(&v.data[i]).(type) {
	case *int16:
		*p = value.NullI16
	case *int32:
		*p = value.NullI32
	case *int64:
		*p = value.NullI64
	case *float32:
		*p = float32(math.NaN())
	case *float64:
		*p = math.NaN()
	}
}

// Raw exposes the backing slice for codec and aggregate code that needs
// direct access (e.g. bulk little-endian encoding).
func (v *Vector[T]) Raw() []T { return v.data }

// NullCount reports how many elements are null.
func (v *Vector[T]) NullCount() int {
	if v.invalid != nil {
		return int(v.invalid.GetCardinality())
	}
	if v.isNull == nil {
		return 0
	}
	n := 0
	for _, x := range v.data {
		if v.isNull(x) {
			n++
		}
	}
	return n
}

// --- typed constructors, one per primitive of §3.1 ---

func NewBooleanVector(data []bool, invalid *roaring.Bitmap) *Vector[bool] {
	v := newVector(value.CodeBoolean, data, func(b bool) value.Value { return value.Boolean(b) }, nil)
	v.invalid = invalid
	return v
}

func NewU8Vector(data []uint8, invalid *roaring.Bitmap) *Vector[uint8] {
	v := newVector(value.CodeU8, data, func(b uint8) value.Value { return value.U8(b) }, nil)
	v.invalid = invalid
	return v
}

func NewI16Vector(data []int16) *Vector[int16] {
	return newVector(value.CodeI16, data, func(x int16) value.Value { return value.I16(x) },
		func(x int16) bool { return x == value.NullI16 })
}

func NewI32Vector(data []int32) *Vector[int32] {
	return newVector(value.CodeI32, data, func(x int32) value.Value { return value.I32(x) },
		func(x int32) bool { return x == value.NullI32 })
}

func NewI64Vector(data []int64) *Vector[int64] {
	return newVector(value.CodeI64, data, func(x int64) value.Value { return value.I64(x) },
		func(x int64) bool { return x == value.NullI64 })
}

func NewDateVector(data []int32) *Vector[int32] {
	return newVector(value.CodeDate, data, func(x int32) value.Value { return value.Date(x) },
		func(x int32) bool { return x == value.NullI32 })
}

func NewTimeVector(data []int64) *Vector[int64] {
	return newVector(value.CodeTime, data, func(x int64) value.Value { return value.Time(x) },
		func(x int64) bool { return x == value.NullI64 })
}

func NewDatetimeVector(data []int64) *Vector[int64] {
	return newVector(value.CodeDatetime, data, func(x int64) value.Value { return value.Datetime(x) },
		func(x int64) bool { return x == value.NullI64 })
}

func NewTimestampVector(data []int64) *Vector[int64] {
	return newVector(value.CodeTimestamp, data, func(x int64) value.Value { return value.Timestamp(x) },
		func(x int64) bool { return x == value.NullI64 })
}

func NewDurationVector(data []int64) *Vector[int64] {
	return newVector(value.CodeDuration, data, func(x int64) value.Value { return value.Duration(x) },
		func(x int64) bool { return x == value.NullI64 })
}

func NewF32Vector(data []float32) *Vector[float32] {
	return newVector(value.CodeF32, data, func(x float32) value.Value { return value.F32(x) },
		func(x float32) bool { return x != x })
}

func NewF64Vector(data []float64) *Vector[float64] {
	return newVector(value.CodeF64, data, func(x float64) value.Value { return value.F64(x) },
		func(x float64) bool { return x != x })
}

func NewStringVector(data []string) *Vector[string] {
	return newVector(value.CodeString, data, func(x string) value.Value { return value.String(x) }, nil)
}

// NewSymbolVector interns every element (§3.1: symbols share a
// process-global interning table).
func NewSymbolVector(data []string) *Vector[string] {
	interned := make([]string, len(data))
	for i, s := range data {
		interned[i] = value.Intern(s)
	}
	return newVector(value.CodeSymbol, interned, func(x string) value.Value { return value.Symbol(x) }, nil)
}

var (
	_ value.Series = (*Vector[bool])(nil)
	_ value.Series = (*Vector[int64])(nil)
	_ value.Series = (*Vector[string])(nil)
)

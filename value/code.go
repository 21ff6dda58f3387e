// Package value implements the discriminated value universe of the engine
// (§3.1): scalar atoms, their vector counterparts, dictionaries, mixed
// lists, dataframes, matrices, functions, and deferred query expressions.
package value

// Code is a wire-level type tag. Where both exist, the negative form
// denotes an atom and the positive form the corresponding homogeneous
// vector.
type Code int8

const (
	CodeBoolean   Code = 1
	CodeU8        Code = 2
	CodeI16       Code = 3
	CodeI32       Code = 4
	CodeI64       Code = 5
	CodeDate      Code = 6
	CodeTime      Code = 7
	CodeDatetime  Code = 8
	CodeTimestamp Code = 9
	CodeDuration  Code = 10
	CodeF32       Code = 11
	CodeF64       Code = 12
	CodeString    Code = 13
	CodeSymbol    Code = 14

	CodeNull Code = 0

	CodeMixedList Code = 90
	CodeDict      Code = 91
	CodeDataFrame Code = 92
	CodeMatrix    Code = 94

	CodeFn  Code = -102
	CodeErr Code = -128
)

// Atom returns the negative (atom) form of a vector code, or itself if
// already negative.
func (c Code) Atom() Code {
	if c > 0 {
		return -c
	}
	return c
}

// Vector returns the positive (vector) form of an atom code, or itself if
// already positive.
func (c Code) Vector() Code {
	if c < 0 {
		return -c
	}
	return c
}

// IsNegative reports whether c denotes an atom.
func (c Code) IsNegative() bool { return c < 0 }

func (c Code) String() string {
	switch c {
	case CodeFn:
		return "fn"
	case CodeErr:
		return "err"
	}
	switch c.Vector() {
	case CodeBoolean:
		return "boolean"
	case CodeU8:
		return "u8"
	case CodeI16:
		return "i16"
	case CodeI32:
		return "i32"
	case CodeI64:
		return "i64"
	case CodeDate:
		return "date"
	case CodeTime:
		return "time"
	case CodeDatetime:
		return "datetime"
	case CodeTimestamp:
		return "timestamp"
	case CodeDuration:
		return "duration"
	case CodeF32:
		return "f32"
	case CodeF64:
		return "f64"
	case CodeString:
		return "string"
	case CodeSymbol:
		return "symbol"
	case CodeNull:
		return "null"
	case CodeMixedList:
		return "mixedlist"
	case CodeDict:
		return "dict"
	case CodeDataFrame:
		return "dataframe"
	case CodeMatrix:
		return "matrix"
	default:
		return "unknown"
	}
}

// Null sentinels (§3.2). Booleans and U8 have no scalar sentinel and rely
// on a validity bitmap instead.
const (
	NullI16 = int16(-1 << 15)
	NullI32 = int32(-1 << 31)
	NullI64 = int64(-1 << 63)

	// InfI16/InfI32/InfI64 are the wire encodings for +/- infinity:
	// sentinel+1 is -inf, MAX is +inf.
	NegInfI16 = NullI16 + 1
	PosInfI16 = int16(1<<15 - 1)
	NegInfI32 = NullI32 + 1
	PosInfI32 = int32(1<<31 - 1)
	NegInfI64 = NullI64 + 1
	PosInfI64 = int64(1<<63 - 1)
)

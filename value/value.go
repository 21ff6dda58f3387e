package value

// Value is the tagged-union contract every variant of §3.1 satisfies.
type Value interface {
	// Code returns the wire-level type tag.
	Code() Code
	// Size returns 1 for atoms, the element count for vectors, and the
	// row count (height) for frames.
	Size() int
	// TypeName returns a human-readable type name for error messages.
	TypeName() string
	// IsAtom reports whether this value is a scalar (negative code).
	IsAtom() bool
	// String renders the value the way the REPL would display it.
	String() string
}

// Series is implemented by columnar vectors (package columnar). It is
// declared here, not in columnar, so value's promotion and aggregate logic
// can operate on any columnar vector without importing columnar (which
// itself imports value for Code/Value/errors).
type Series interface {
	Value
	Len() int
	ElemCode() Code
	// At returns the i-th element as an atom Value (Null if invalid).
	At(i int) Value
	// IsValid reports whether the i-th element is non-null.
	IsValid(i int) bool
}

// Frame is implemented by columnar.DataFrame.
type Frame interface {
	Value
	Height() int
	ColumnNames() []string
	Column(name string) (Series, bool)
}

// Predicates, mirroring §4.1 "Contract".

func IsNumeric(v Value) bool {
	switch v.Code().Atom() {
	case -CodeBoolean, -CodeU8, -CodeI16, -CodeI32, -CodeI64, -CodeF32, -CodeF64:
		return true
	}
	return false
}

func IsTemporal(v Value) bool {
	switch v.Code().Atom() {
	case -CodeDate, -CodeTime, -CodeDatetime, -CodeTimestamp, -CodeDuration:
		return true
	}
	return false
}

func IsCollection(v Value) bool {
	switch v.Code() {
	case CodeMixedList, CodeDict, CodeDataFrame, CodeMatrix:
		return true
	}
	if !v.IsAtom() {
		return true // any vector form
	}
	return false
}

func IsSymOrSyms(v Value) bool {
	return v.Code().Atom() == -CodeSymbol
}

func IsStrOrStrs(v Value) bool {
	return v.Code().Atom() == -CodeString
}

// --- atom variants ---

type Boolean bool

func (Boolean) Code() Code      { return CodeBoolean.Atom() }
func (Boolean) Size() int       { return 1 }
func (Boolean) TypeName() string { return "boolean" }
func (Boolean) IsAtom() bool    { return true }
func (b Boolean) String() string {
	if b {
		return "1b"
	}
	return "0b"
}

type U8 uint8

func (U8) Code() Code       { return CodeU8.Atom() }
func (U8) Size() int        { return 1 }
func (U8) TypeName() string { return "u8" }
func (U8) IsAtom() bool     { return true }
func (u U8) String() string { return fmtInt(int64(u)) + "u8" }

type I16 int16

func (I16) Code() Code       { return CodeI16.Atom() }
func (I16) Size() int        { return 1 }
func (I16) TypeName() string { return "i16" }
func (I16) IsAtom() bool     { return true }
func (i I16) String() string {
	if i == NullI16 {
		return "0Nh"
	}
	return fmtInt(int64(i)) + "h"
}

type I32 int32

func (I32) Code() Code       { return CodeI32.Atom() }
func (I32) Size() int        { return 1 }
func (I32) TypeName() string { return "i32" }
func (I32) IsAtom() bool     { return true }
func (i I32) String() string {
	if i == NullI32 {
		return "0Ni"
	}
	return fmtInt(int64(i)) + "i"
}

type I64 int64

func (I64) Code() Code       { return CodeI64.Atom() }
func (I64) Size() int        { return 1 }
func (I64) TypeName() string { return "i64" }
func (I64) IsAtom() bool     { return true }
func (i I64) String() string {
	if i == NullI64 {
		return "0N"
	}
	return fmtInt(int64(i))
}

// Date is days since the Unix epoch (1970-01-01).
type Date int32

func (Date) Code() Code       { return CodeDate.Atom() }
func (Date) Size() int        { return 1 }
func (Date) TypeName() string { return "date" }
func (Date) IsAtom() bool     { return true }
func (d Date) String() string {
	if int32(d) == NullI32 {
		return "0Nd"
	}
	return formatDate(int32(d))
}

// Time is nanoseconds since midnight, clamped to [0, 86_400_000_000_000).
type Time int64

func (Time) Code() Code       { return CodeTime.Atom() }
func (Time) Size() int        { return 1 }
func (Time) TypeName() string { return "time" }
func (Time) IsAtom() bool     { return true }
func (t Time) String() string { return formatTime(int64(t)) }

// ClampTime clamps ns to the valid time-of-day range (§3.1).
func ClampTime(ns int64) int64 {
	const dayNs = 86_400_000_000_000
	if ns < 0 {
		return 0
	}
	if ns >= dayNs {
		return dayNs - 1
	}
	return ns
}

// Datetime is milliseconds since the Unix epoch.
type Datetime int64

func (Datetime) Code() Code       { return CodeDatetime.Atom() }
func (Datetime) Size() int        { return 1 }
func (Datetime) TypeName() string { return "datetime" }
func (Datetime) IsAtom() bool     { return true }
func (d Datetime) String() string {
	if int64(d) == NullI64 {
		return "0Nz"
	}
	return formatDatetime(int64(d))
}

// Timestamp is nanoseconds since the Unix epoch.
type Timestamp int64

func (Timestamp) Code() Code       { return CodeTimestamp.Atom() }
func (Timestamp) Size() int        { return 1 }
func (Timestamp) TypeName() string { return "timestamp" }
func (Timestamp) IsAtom() bool     { return true }
func (t Timestamp) String() string {
	if int64(t) == NullI64 {
		return "0Np"
	}
	return formatTimestamp(int64(t))
}

// Duration is nanoseconds.
type Duration int64

func (Duration) Code() Code       { return CodeDuration.Atom() }
func (Duration) Size() int        { return 1 }
func (Duration) TypeName() string { return "duration" }
func (Duration) IsAtom() bool     { return true }
func (d Duration) String() string {
	if int64(d) == NullI64 {
		return "0Nn"
	}
	return formatDuration(int64(d))
}

type F32 float32

func (F32) Code() Code       { return CodeF32.Atom() }
func (F32) Size() int        { return 1 }
func (F32) TypeName() string { return "f32" }
func (F32) IsAtom() bool     { return true }
func (f F32) String() string { return fmtFloat(float64(f)) + "e" }

type F64 float64

func (F64) Code() Code       { return CodeF64.Atom() }
func (F64) Size() int        { return 1 }
func (F64) TypeName() string { return "f64" }
func (F64) IsAtom() bool     { return true }
func (f F64) String() string { return fmtFloat(float64(f)) }

type String string

func (String) Code() Code       { return CodeString.Atom() }
func (String) Size() int        { return 1 }
func (String) TypeName() string { return "string" }
func (String) IsAtom() bool     { return true }
func (s String) String() string { return `"` + string(s) + `"` }

// Symbol is interned categorical text; see Intern.
type Symbol string

func (Symbol) Code() Code       { return CodeSymbol.Atom() }
func (Symbol) Size() int        { return 1 }
func (Symbol) TypeName() string { return "symbol" }
func (Symbol) IsAtom() bool     { return true }
func (s Symbol) String() string { return "`" + string(s) }

// Null is the polymorphic null atom (wire code 0).
type Null struct{}

func (Null) Code() Code       { return CodeNull }
func (Null) Size() int        { return 1 }
func (Null) TypeName() string { return "null" }
func (Null) IsAtom() bool     { return true }
func (Null) String() string   { return "::" }

// IsNull reports whether v is the Null atom, or an atom carrying its
// type's sentinel (§3.2: "Null atoms of any type compare equal to the Null
// variant for arithmetic short-circuit").
func IsNull(v Value) bool {
	switch x := v.(type) {
	case Null:
		return true
	case I16:
		return x == NullI16
	case I32:
		return x == NullI32
	case I64:
		return x == NullI64
	case Date:
		return int32(x) == NullI32
	case Datetime:
		return int64(x) == NullI64
	case Timestamp:
		return int64(x) == NullI64
	case Duration:
		return int64(x) == NullI64
	case F32:
		return x != x // NaN
	case F64:
		return x != x
	}
	return false
}

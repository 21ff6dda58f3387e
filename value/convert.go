package value

// ToI64 performs a checked, lossless-where-possible conversion to I64.
func ToI64(v Value) (int64, error) {
	switch x := v.(type) {
	case Boolean:
		if x {
			return 1, nil
		}
		return 0, nil
	case U8:
		return int64(x), nil
	case I16:
		return int64(x), nil
	case I32:
		return int64(x), nil
	case I64:
		return int64(x), nil
	case Date:
		return int64(x), nil
	case Time:
		return int64(x), nil
	case Datetime:
		return int64(x), nil
	case Timestamp:
		return int64(x), nil
	case Duration:
		return int64(x), nil
	case F32:
		return int64(x), nil
	case F64:
		return int64(x), nil
	}
	return 0, MismatchedType("to_i64", v)
}

// ToF64 performs a checked conversion to F64.
func ToF64(v Value) (float64, error) {
	switch x := v.(type) {
	case Boolean:
		if x {
			return 1, nil
		}
		return 0, nil
	case U8:
		return float64(x), nil
	case I16:
		return float64(x), nil
	case I32:
		return float64(x), nil
	case I64:
		return float64(x), nil
	case F32:
		return float64(x), nil
	case F64:
		return float64(x), nil
	}
	return 0, MismatchedType("to_f64", v)
}

// atomSeries adapts a single atom to the Series interface, used to
// broadcast an atom across a Series in binary ops without allocating a
// full columnar vector (§4.1 "Series op Atom broadcasts the atom").
type atomSeries struct {
	v Value
	n int
}

func (a atomSeries) Code() Code       { return a.v.Code().Vector() }
func (a atomSeries) Size() int        { return a.n }
func (a atomSeries) TypeName() string { return a.v.TypeName() }
func (a atomSeries) IsAtom() bool     { return false }
func (a atomSeries) String() string   { return a.v.String() }
func (a atomSeries) Len() int         { return a.n }
func (a atomSeries) ElemCode() Code   { return a.v.Code().Atom() }
func (a atomSeries) At(int) Value     { return a.v }
func (a atomSeries) IsValid(int) bool { return !IsNull(a.v) }

// AsSeries broadcasts an atom to a Series of length n, or returns v itself
// if it is already a Series.
func AsSeries(v Value, n int) (Series, error) {
	if s, ok := v.(Series); ok {
		return s, nil
	}
	if v.IsAtom() {
		return atomSeries{v: v, n: n}, nil
	}
	return nil, MismatchedType("as_series", v)
}

// AsExpr wraps any value as a deferred Expr, for query building.
func AsExpr(v Value) *Expr {
	if e, ok := v.(*Expr); ok {
		return e
	}
	return &Expr{Node: v}
}

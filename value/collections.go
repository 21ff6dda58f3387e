package value

import "strings"

// MixedListValue is a heterogeneous sequence of Value (wire code 90).
type MixedListValue struct {
	Items []Value
}

func NewMixedList(items ...Value) *MixedListValue { return &MixedListValue{Items: items} }

func (*MixedListValue) Code() Code       { return CodeMixedList }
func (m *MixedListValue) Size() int      { return len(m.Items) }
func (*MixedListValue) TypeName() string { return "mixedlist" }
func (*MixedListValue) IsAtom() bool     { return false }
func (m *MixedListValue) String() string {
	parts := make([]string, len(m.Items))
	for i, v := range m.Items {
		parts[i] = v.String()
	}
	return "(" + strings.Join(parts, ";") + ")"
}

// DictValue is an insertion-ordered mapping Symbol -> Value (wire code 91).
// Invariant (§3.1): keys are unique and insertion order is preserved.
type DictValue struct {
	keys  []string
	index map[string]int
	vals  []Value
}

func NewDict() *DictValue {
	return &DictValue{index: make(map[string]int)}
}

func (*DictValue) Code() Code       { return CodeDict }
func (d *DictValue) Size() int      { return len(d.keys) }
func (*DictValue) TypeName() string { return "dict" }
func (*DictValue) IsAtom() bool     { return false }

func (d *DictValue) String() string {
	parts := make([]string, len(d.keys))
	for i, k := range d.keys {
		parts[i] = "`" + k + "=" + d.vals[i].String()
	}
	return "[" + strings.Join(parts, ";") + "]"
}

// Set inserts or overwrites a key, preserving original insertion order for
// overwrites.
func (d *DictValue) Set(key string, v Value) {
	if i, ok := d.index[key]; ok {
		d.vals[i] = v
		return
	}
	d.index[key] = len(d.keys)
	d.keys = append(d.keys, key)
	d.vals = append(d.vals, v)
}

func (d *DictValue) Get(key string) (Value, bool) {
	i, ok := d.index[key]
	if !ok {
		return nil, false
	}
	return d.vals[i], true
}

func (d *DictValue) Delete(key string) bool {
	i, ok := d.index[key]
	if !ok {
		return false
	}
	d.keys = append(d.keys[:i], d.keys[i+1:]...)
	d.vals = append(d.vals[:i], d.vals[i+1:]...)
	delete(d.index, key)
	for j := i; j < len(d.keys); j++ {
		d.index[d.keys[j]] = j
	}
	return true
}

func (d *DictValue) Keys() []string { return d.keys }
func (d *DictValue) Values() []Value { return d.vals }

// Union merges other into a new dict: keys present in both keep d's value
// (§4.1 "Dict op Dict unions keys ... keeping the left value otherwise").
func (d *DictValue) Union(other *DictValue) *DictValue {
	out := NewDict()
	for i, k := range d.keys {
		out.Set(k, d.vals[i])
	}
	for i, k := range other.keys {
		if _, exists := out.Get(k); !exists {
			out.Set(k, other.vals[i])
		}
	}
	return out
}

// Matrix is a dense 2-D array of F64 (wire code 94).
type Matrix struct {
	Rows, Cols int
	Data       []float64 // row-major, len == Rows*Cols
}

func NewMatrix(rows, cols int) *Matrix {
	return &Matrix{Rows: rows, Cols: cols, Data: make([]float64, rows*cols)}
}

func (*Matrix) Code() Code       { return CodeMatrix }
func (m *Matrix) Size() int      { return m.Rows * m.Cols }
func (*Matrix) TypeName() string { return "matrix" }
func (*Matrix) IsAtom() bool     { return false }
func (m *Matrix) String() string {
	var sb strings.Builder
	sb.WriteByte('(')
	for r := 0; r < m.Rows; r++ {
		if r > 0 {
			sb.WriteByte(';')
		}
		sb.WriteByte('(')
		for c := 0; c < m.Cols; c++ {
			if c > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(fmtFloat(m.At(r, c)))
		}
		sb.WriteByte(')')
	}
	sb.WriteByte(')')
	return sb.String()
}

func (m *Matrix) At(r, c int) float64    { return m.Data[r*m.Cols+c] }
func (m *Matrix) Set(r, c int, v float64) { m.Data[r*m.Cols+c] = v }

// DelayedArg is the placeholder for an omitted call argument in a partial
// application (§9 "Partial application").
type DelayedArg struct{}

func (DelayedArg) Code() Code       { return CodeNull }
func (DelayedArg) Size() int        { return 1 }
func (DelayedArg) TypeName() string { return "delayed" }
func (DelayedArg) IsAtom() bool     { return true }
func (DelayedArg) String() string   { return "_" }

// Fn is a function value: either a built-in reference or a user-defined
// closure (param names + opaque body), optionally partially applied
// (§3.1, §9 "Partial application").
type Fn struct {
	Name     string   // built-in name, or "" for user-defined
	Params   []string // user-defined parameter names
	Body     interface{}
	Bound    []Value // len(Bound) == len(Params); nil entries are unbound
	Builtin  func(args []Value) (Value, error)
}

func (*Fn) Code() Code       { return CodeFn }
func (*Fn) Size() int        { return 1 }
func (*Fn) TypeName() string { return "fn" }
func (*Fn) IsAtom() bool     { return true }
func (f *Fn) String() string {
	if f.Name != "" {
		return "`" + f.Name
	}
	return "{...}"
}

// Apply supplies new arguments, filling unbound positions in order. When
// every position becomes bound, the function's Builtin (or, for
// user-defined functions, the external evaluator via Body) is invoked.
// callUser is nil for built-ins.
func (f *Fn) Apply(args []Value, callUser func(params []string, body interface{}, bound []Value) (Value, error)) (Value, *Fn, error) {
	bound := make([]Value, len(f.Bound))
	copy(bound, f.Bound)
	if bound == nil && len(f.Params) > 0 {
		bound = make([]Value, len(f.Params))
	}
	ai := 0
	for i := range bound {
		if bound[i] == nil {
			if ai < len(args) {
				bound[i] = args[ai]
				ai++
			}
		}
	}
	complete := true
	for _, b := range bound {
		if b == nil {
			complete = false
			break
		}
	}
	next := &Fn{Name: f.Name, Params: f.Params, Body: f.Body, Bound: bound, Builtin: f.Builtin}
	if !complete {
		return nil, next, nil
	}
	if f.Builtin != nil {
		v, err := f.Builtin(bound)
		return v, nil, err
	}
	if callUser != nil {
		v, err := callUser(f.Params, f.Body, bound)
		return v, nil, err
	}
	return nil, nil, NewError(KindEval, "function %q has no evaluator", f.Name)
}

// Expr is a deferred column expression captured for lazy query building
// (§4.1 "Lazy expression building"). The concrete AST node is opaque here
// (owned by the external evaluator); Expr only needs to round-trip through
// the Value interface and the promotion dispatcher.
type Expr struct {
	Node interface{}
}

func (*Expr) Code() Code       { return CodeNull } // never serialized
func (*Expr) Size() int        { return 1 }
func (*Expr) TypeName() string { return "expr" }
func (*Expr) IsAtom() bool     { return true }
func (*Expr) String() string   { return "<expr>" }

// Err is produced on the wire only (§3.1); it is never stored as an
// engine value, so it implements Value solely to let codecs hand one back
// as a transient carrier of a Server error message.
type Err struct{ Msg string }

func (Err) Code() Code       { return CodeErr }
func (Err) Size() int        { return 1 }
func (Err) TypeName() string { return "err" }
func (Err) IsAtom() bool     { return true }
func (e Err) String() string { return "'" + e.Msg }

package value

// BinaryOp dispatches a binary operator over the type-promotion lattice of
// §4.1.1. It is the *dispatch contract*: the individual arithmetic routines
// below are the minimal set needed to make the lattice testable (§8), not
// the full operator library (explicitly out of scope, §1).
func BinaryOp(op string, l, r Value) (Value, error) {
	// Null short-circuit (§3.2): any binary arithmetic where either
	// operand is Null yields Null, except for comparisons/equality which
	// still need to report non-equality against non-null operands.
	if isArith(op) && (IsNull(l) || IsNull(r)) {
		return Null{}, nil
	}

	// Lazy expression building (§4.1 "Lazy expression building"): if
	// either operand is an Expr, capture rather than evaluate.
	if _, ok := l.(*Expr); ok {
		return &Expr{Node: [3]interface{}{op, l, r}}, nil
	}
	if _, ok := r.(*Expr); ok {
		return &Expr{Node: [3]interface{}{op, l, r}}, nil
	}

	switch lv := l.(type) {
	case *DictValue:
		if rd, ok := r.(*DictValue); ok {
			return dictOp(op, lv, rd)
		}
	case *MixedListValue:
		return mixedListOp(op, lv, r)
	case *Matrix:
		return matrixOp(op, lv, r)
	}
	if rl, ok := r.(*MixedListValue); ok {
		return mixedListOpRight(op, l, rl)
	}

	ls, lIsSeries := l.(Series)
	rs, rIsSeries := r.(Series)
	if lIsSeries || rIsSeries {
		return seriesOp(op, l, r, ls, rs, lIsSeries, rIsSeries)
	}

	if IsSymOrSyms(l) || IsStrOrStrs(l) || IsSymOrSyms(r) || IsStrOrStrs(r) {
		return textOp(op, l, r)
	}

	if IsTemporal(l) || IsTemporal(r) {
		return temporalOp(op, l, r)
	}

	if IsNumeric(l) && IsNumeric(r) {
		return numericOp(op, l, r)
	}

	return nil, NewError(KindUnsupportedBinaryOp, "%s: %s and %s", op, l.TypeName(), r.TypeName())
}

func isArith(op string) bool {
	switch op {
	case "+", "-", "*", "%", "div", "mod":
		return true
	}
	return false
}

func isComparison(op string) bool {
	switch op {
	case "=", "<>", "<", ">", "<=", ">=":
		return true
	}
	return false
}

// --- numeric promotion (bool/u8/i16/i32/i64 -> widest int; float+int ->
// float of the widest float operand) ---

func numericRank(v Value) int {
	switch v.(type) {
	case Boolean:
		return 0
	case U8:
		return 1
	case I16:
		return 2
	case I32:
		return 3
	case I64:
		return 4
	case F32:
		return 5
	case F64:
		return 6
	}
	return -1
}

func numericOp(op string, l, r Value) (Value, error) {
	if isComparison(op) {
		lf, _ := ToF64(l)
		rf, _ := ToF64(r)
		return Boolean(compareFloat(op, lf, rf)), nil
	}
	if op == "%" {
		// Division always widens to F64 regardless of operand width
		// (§4.1.1).
		lf, _ := ToF64(l)
		rf, _ := ToF64(r)
		res, err := floatArith(op, lf, rf)
		if err != nil {
			return nil, err
		}
		return F64(res), nil
	}
	rank := numericRank(l)
	if rr := numericRank(r); rr > rank {
		rank = rr
	}
	if rank <= 1 {
		// bool/u8 combine and wrap within the u8 domain (§8 scenario 3:
		// add(U8(250), U8(10)) == U8(4)).
		li, _ := ToI64(l)
		ri, _ := ToI64(r)
		res, err := intArith(op, li, ri)
		if err != nil {
			return nil, err
		}
		return U8(uint8(res)), nil
	}
	if rank <= 4 {
		li, _ := ToI64(l)
		ri, _ := ToI64(r)
		res, err := intArith(op, li, ri)
		if err != nil {
			return nil, err
		}
		switch rank {
		case 2:
			return I16(res), nil
		case 3:
			return I32(res), nil
		default:
			return I64(res), nil
		}
	}
	lf, _ := ToF64(l)
	rf, _ := ToF64(r)
	res, err := floatArith(op, lf, rf)
	if err != nil {
		return nil, err
	}
	if rank == 5 {
		return F32(res), nil
	}
	return F64(res), nil
}

func intArith(op string, l, r int64) (int64, error) {
	switch op {
	case "+":
		return l + r, nil
	case "-":
		return l - r, nil
	case "*":
		return l * r, nil
	case "div":
		if r == 0 {
			return 0, NewError(KindEval, "division by zero")
		}
		return divFloor(l, r), nil
	case "mod":
		if r == 0 {
			return 0, NewError(KindEval, "division by zero")
		}
		return l - divFloor(l, r)*r, nil
	}
	return 0, NewError(KindUnsupportedBinaryOp, "%s on integers", op)
}

func divFloor(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floatArith(op string, l, r float64) (float64, error) {
	switch op {
	case "+":
		return l + r, nil
	case "-":
		return l - r, nil
	case "*":
		return l * r, nil
	case "%", "div":
		return l / r, nil
	case "mod":
		m := l - r*float64(int64(l/r))
		return m, nil
	}
	return 0, NewError(KindUnsupportedBinaryOp, "%s on floats", op)
}

func compareFloat(op string, l, r float64) bool {
	switch op {
	case "=":
		return l == r
	case "<>":
		return l != r
	case "<":
		return l < r
	case ">":
		return l > r
	case "<=":
		return l <= r
	case ">=":
		return l >= r
	}
	return false
}

// --- temporal promotion (§4.1.1) ---

func temporalOp(op string, l, r Value) (Value, error) {
	if isComparison(op) {
		li, err1 := ToI64(l)
		ri, err2 := ToI64(r)
		if err1 != nil || err2 != nil {
			return nil, NewError(KindMismatchedType, "%s: incomparable temporal operands", op)
		}
		return Boolean(compareFloat(op, float64(li), float64(ri))), nil
	}

	_, lIsDate := l.(Date)
	_, rIsDate := r.(Date)
	_, lIsDur := l.(Duration)
	_, rIsDur := r.(Duration)
	_, lIsTime := l.(Time)
	_, rIsTime := r.(Time)

	// Date +/- Duration/Time/integer -> Date (whole days).
	if lIsDate && (rIsDur || rIsTime || IsNumeric(r)) && op == "+" || (lIsDate && op == "-" && (rIsDur || rIsTime || IsNumeric(r))) {
		di := int64(l.(Date))
		var delta int64
		switch {
		case rIsDur:
			delta = int64(r.(Duration)) / 86_400_000_000_000
		case rIsTime:
			delta = int64(r.(Time)) / 86_400_000_000_000
		default:
			delta, _ = ToI64(r)
		}
		if op == "-" {
			delta = -delta
		}
		return Date(di + delta), nil
	}
	if rIsDate && lIsDur && op == "+" {
		return temporalOp(op, r, l)
	}

	// Temporal - Temporal -> Duration (ns).
	lns, lok := temporalNs(l)
	rns, rok := temporalNs(r)
	if op == "-" && lok && rok && !lIsDate {
		return Duration(lns - rns), nil
	}

	// Temporal + Duration/Time -> same temporal kind, with ns<->ms
	// rescaling (factor 1_000_000) when mixing Datetime(ms)/Timestamp(ns).
	if lok && (rIsDur || rIsTime) && (op == "+" || op == "-") {
		var rNs int64
		if rIsDur {
			rNs = int64(r.(Duration))
		} else {
			rNs = int64(r.(Time))
		}
		if op == "-" {
			rNs = -rNs
		}
		switch l.(type) {
		case Datetime:
			return Datetime(lns/1_000_000 + rNs/1_000_000 + (lns%1_000_000+rNs%1_000_000)/1_000_000), nil
		case Timestamp:
			return Timestamp(lns + rNs), nil
		}
	}

	return nil, NewError(KindUnsupportedBinaryOp, "%s: %s and %s", op, l.TypeName(), r.TypeName())
}

// temporalNs returns a value's instant in nanoseconds for subtraction,
// rescaling Datetime's ms to ns (factor 1_000_000, §4.1.1).
func temporalNs(v Value) (int64, bool) {
	switch x := v.(type) {
	case Timestamp:
		return int64(x), true
	case Datetime:
		return int64(x) * 1_000_000, true
	case Time:
		return int64(x), true
	case Duration:
		return int64(x), true
	case Date:
		return int64(x) * 86_400_000_000_000, true
	}
	return 0, false
}

// --- symbol/string (§4.1.1: "Symbol/String concatenation via + only;
// comparison yields Boolean") ---

func textOp(op string, l, r Value) (Value, error) {
	if isComparison(op) {
		ls, lok := textOf(l)
		rs, rok := textOf(r)
		if !lok || !rok {
			return nil, NewError(KindMismatchedType, "%s: non-text operand", op)
		}
		switch op {
		case "=":
			return Boolean(ls == rs), nil
		case "<>":
			return Boolean(ls != rs), nil
		case "<":
			return Boolean(ls < rs), nil
		case ">":
			return Boolean(ls > rs), nil
		case "<=":
			return Boolean(ls <= rs), nil
		case ">=":
			return Boolean(ls >= rs), nil
		}
	}
	if op != "+" {
		return nil, NewError(KindUnsupportedBinaryOp, "%s not defined for text types", op)
	}
	ls, lok := textOf(l)
	rs, rok := textOf(r)
	if !lok || !rok {
		return nil, NewError(KindMismatchedType, "+: non-text operand")
	}
	if IsSymOrSyms(l) || IsSymOrSyms(r) {
		return InternSymbol(ls + rs), nil
	}
	return String(ls + rs), nil
}

func textOf(v Value) (string, bool) {
	switch x := v.(type) {
	case String:
		return string(x), true
	case Symbol:
		return string(x), true
	}
	return "", false
}

// --- series (vector) op (§4.1.1: broadcast atom; element-wise for equal
// length series) ---

func seriesOp(op string, l, r Value, ls, rs Series, lIsSeries, rIsSeries bool) (Value, error) {
	var err error
	if !lIsSeries {
		ls, err = AsSeries(l, rs.Len())
		if err != nil {
			return nil, err
		}
	}
	if !rIsSeries {
		rs, err = AsSeries(r, ls.Len())
		if err != nil {
			return nil, err
		}
	}
	if lIsSeries && rIsSeries && ls.Len() != rs.Len() {
		return nil, NewError(KindMismatchedLength, "%s: lengths %d and %d", op, ls.Len(), rs.Len())
	}
	n := ls.Len()
	out := make([]Value, n)
	for i := 0; i < n; i++ {
		v, err := BinaryOp(op, ls.At(i), rs.At(i))
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return NewMixedList(out...), nil
}

// --- mixed list (element-wise map) ---

func mixedListOp(op string, l *MixedListValue, r Value) (Value, error) {
	if rl, ok := r.(*MixedListValue); ok {
		if len(rl.Items) != len(l.Items) {
			return nil, NewError(KindMismatchedLength, "%s: lengths %d and %d", op, len(l.Items), len(rl.Items))
		}
		out := make([]Value, len(l.Items))
		for i := range l.Items {
			v, err := BinaryOp(op, l.Items[i], rl.Items[i])
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return NewMixedList(out...), nil
	}
	out := make([]Value, len(l.Items))
	for i := range l.Items {
		v, err := BinaryOp(op, l.Items[i], r)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return NewMixedList(out...), nil
}

func mixedListOpRight(op string, l Value, r *MixedListValue) (Value, error) {
	out := make([]Value, len(r.Items))
	for i := range r.Items {
		v, err := BinaryOp(op, l, r.Items[i])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return NewMixedList(out...), nil
}

// --- dict (union keys; op applied where both present, left kept
// otherwise) ---

func dictOp(op string, l, r *DictValue) (Value, error) {
	out := NewDict()
	for _, k := range l.Keys() {
		lv, _ := l.Get(k)
		if rv, ok := r.Get(k); ok {
			v, err := BinaryOp(op, lv, rv)
			if err != nil {
				return nil, err
			}
			out.Set(k, v)
		} else {
			out.Set(k, lv)
		}
	}
	for _, k := range r.Keys() {
		if _, ok := l.Get(k); !ok {
			rv, _ := r.Get(k)
			out.Set(k, rv)
		}
	}
	return out, nil
}

// --- matrix (identical shape elementwise; conformable shape matrix
// product for "*"; scalar broadcast) ---

func matrixOp(op string, l *Matrix, r Value) (Value, error) {
	if rm, ok := r.(*Matrix); ok {
		if op == "*" {
			if l.Cols != rm.Rows {
				return nil, NewError(KindMismatchedLength, "matrix product: %dx%d * %dx%d", l.Rows, l.Cols, rm.Rows, rm.Cols)
			}
			out := NewMatrix(l.Rows, rm.Cols)
			for i := 0; i < l.Rows; i++ {
				for j := 0; j < rm.Cols; j++ {
					var sum float64
					for k := 0; k < l.Cols; k++ {
						sum += l.At(i, k) * rm.At(k, j)
					}
					out.Set(i, j, sum)
				}
			}
			return out, nil
		}
		if l.Rows != rm.Rows || l.Cols != rm.Cols {
			return nil, NewError(KindMismatchedLength, "matrix: %dx%d vs %dx%d", l.Rows, l.Cols, rm.Rows, rm.Cols)
		}
		out := NewMatrix(l.Rows, l.Cols)
		for i := range l.Data {
			v, err := floatArith(op, l.Data[i], rm.Data[i])
			if err != nil {
				return nil, err
			}
			out.Data[i] = v
		}
		return out, nil
	}
	scalar, err := ToF64(r)
	if err != nil {
		return nil, err
	}
	out := NewMatrix(l.Rows, l.Cols)
	for i := range l.Data {
		v, err := floatArith(op, l.Data[i], scalar)
		if err != nil {
			return nil, err
		}
		out.Data[i] = v
	}
	return out, nil
}

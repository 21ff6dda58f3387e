package value

import (
	"math"
	"sort"
)

// Aggregate applies a named aggregate (§4.1 "Aggregates") to a Series, a
// *MixedListValue, a *DictValue (aggregates its values), or a *Matrix
// (flattened).
func Aggregate(name string, v Value) (Value, error) {
	switch x := v.(type) {
	case *DictValue:
		return Aggregate(name, NewMixedList(x.Values()...))
	case *Matrix:
		items := make([]Value, len(x.Data))
		for i, f := range x.Data {
			items[i] = F64(f)
		}
		return Aggregate(name, NewMixedList(items...))
	case *MixedListValue:
		return aggregateValues(name, x.Items)
	case Series:
		items := make([]Value, x.Len())
		for i := 0; i < x.Len(); i++ {
			items[i] = x.At(i)
		}
		return aggregateValues(name, items)
	}
	if v.IsAtom() {
		return aggregateValues(name, []Value{v})
	}
	return nil, MismatchedType("aggregate:"+name, v)
}

func aggregateValues(name string, items []Value) (Value, error) {
	switch name {
	case "count":
		return I64(len(items)), nil
	case "first":
		if len(items) == 0 {
			return Null{}, nil
		}
		return items[0], nil
	case "last":
		if len(items) == 0 {
			return Null{}, nil
		}
		return items[len(items)-1], nil
	}

	floats := make([]float64, 0, len(items))
	for _, it := range items {
		if IsNull(it) {
			continue
		}
		f, err := ToF64(it)
		if err != nil {
			return nil, err
		}
		floats = append(floats, f)
	}

	switch name {
	case "sum":
		var s float64
		for _, f := range floats {
			s += f
		}
		return F64(s), nil
	case "max":
		if len(floats) == 0 {
			return Null{}, nil
		}
		m := floats[0]
		for _, f := range floats[1:] {
			if f > m {
				m = f
			}
		}
		return F64(m), nil
	case "min":
		if len(floats) == 0 {
			return Null{}, nil
		}
		m := floats[0]
		for _, f := range floats[1:] {
			if f < m {
				m = f
			}
		}
		return F64(m), nil
	case "mean":
		if len(floats) == 0 {
			return Null{}, nil
		}
		return F64(mean(floats)), nil
	case "median":
		if len(floats) == 0 {
			return Null{}, nil
		}
		return F64(median(floats)), nil
	case "var0":
		return F64(variance(floats, false)), nil
	case "var1":
		return F64(variance(floats, true)), nil
	case "std0":
		return F64(sqrt(variance(floats, false))), nil
	case "std1":
		return F64(sqrt(variance(floats, true))), nil
	case "skew":
		return F64(skewness(floats)), nil
	case "kurtosis":
		return F64(kurtosis(floats)), nil
	}
	return nil, NewError(KindUnsupportedUnaryOp, "unknown aggregate %q", name)
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var s float64
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}

func median(xs []float64) float64 {
	cp := append([]float64(nil), xs...)
	sort.Float64s(cp)
	n := len(cp)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return cp[n/2]
	}
	return (cp[n/2-1] + cp[n/2]) / 2
}

// variance computes the biased (population, ddof=0) or unbiased (sample,
// ddof=1) variance, matching var0/var1 (§4.1).
func variance(xs []float64, unbiased bool) float64 {
	n := len(xs)
	if n == 0 || (unbiased && n < 2) {
		return 0
	}
	m := mean(xs)
	var ss float64
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	denom := float64(n)
	if unbiased {
		denom = float64(n - 1)
	}
	return ss / denom
}

func sqrt(x float64) float64 {
	if x <= 0 {
		return 0
	}
	return math.Sqrt(x)
}

func skewness(xs []float64) float64 {
	n := float64(len(xs))
	if n < 3 {
		return 0
	}
	m := mean(xs)
	sd := sqrt(variance(xs, false))
	if sd == 0 {
		return 0
	}
	var s float64
	for _, x := range xs {
		s += ((x - m) / sd) * ((x - m) / sd) * ((x - m) / sd)
	}
	return s / n
}

func kurtosis(xs []float64) float64 {
	n := float64(len(xs))
	if n < 4 {
		return 0
	}
	m := mean(xs)
	sd := sqrt(variance(xs, false))
	if sd == 0 {
		return 0
	}
	var s float64
	for _, x := range xs {
		z := (x - m) / sd
		s += z * z * z * z
	}
	return s/n - 3
}

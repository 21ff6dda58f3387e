package value

import (
	"math/rand"
	"sort"
)

func itemsOf(v Value) ([]Value, error) {
	switch x := v.(type) {
	case *MixedListValue:
		return x.Items, nil
	case Series:
		out := make([]Value, x.Len())
		for i := 0; i < x.Len(); i++ {
			out[i] = x.At(i)
		}
		return out, nil
	}
	if v.IsAtom() {
		return []Value{v}, nil
	}
	return nil, MismatchedType("items", v)
}

// Take implements `take(n, X)` (§4.1 "Structural ops"): positive n takes
// the head, negative n the tail, cycling if |n| exceeds len(X).
func Take(n int, v Value) (Value, error) {
	items, err := itemsOf(v)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return NewMixedList(), nil
	}
	abs := n
	fromTail := false
	if abs < 0 {
		abs = -abs
		fromTail = true
	}
	out := make([]Value, abs)
	for i := 0; i < abs; i++ {
		var idx int
		if fromTail {
			idx = ((len(items)-abs+i)%len(items) + len(items)) % len(items)
		} else {
			idx = i % len(items)
		}
		out[i] = items[idx]
	}
	return NewMixedList(out...), nil
}

// Drop implements `drop(n, X)`: remove n elements from the head (n>0) or
// tail (n<0).
func Drop(n int, v Value) (Value, error) {
	items, err := itemsOf(v)
	if err != nil {
		return nil, err
	}
	if n >= 0 {
		if n > len(items) {
			n = len(items)
		}
		return NewMixedList(items[n:]...), nil
	}
	n = -n
	if n > len(items) {
		n = len(items)
	}
	return NewMixedList(items[:len(items)-n]...), nil
}

func Reverse(v Value) (Value, error) {
	items, err := itemsOf(v)
	if err != nil {
		return nil, err
	}
	out := make([]Value, len(items))
	for i, it := range items {
		out[len(items)-1-i] = it
	}
	return NewMixedList(out...), nil
}

func Shuffle(v Value, rng *rand.Rand) (Value, error) {
	items, err := itemsOf(v)
	if err != nil {
		return nil, err
	}
	out := append([]Value(nil), items...)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return NewMixedList(out...), nil
}

func Rand(v Value, rng *rand.Rand) (Value, error) {
	items, err := itemsOf(v)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return Null{}, nil
	}
	return items[rng.Intn(len(items))], nil
}

// Sort sorts ascending by converting every element to float64 where
// possible, falling back to string ordering for text types.
func Sort(v Value) (Value, error) {
	items, err := itemsOf(v)
	if err != nil {
		return nil, err
	}
	out := append([]Value(nil), items...)
	sort.SliceStable(out, func(i, j int) bool {
		if fi, err1 := ToF64(out[i]); err1 == nil {
			if fj, err2 := ToF64(out[j]); err2 == nil {
				return fi < fj
			}
		}
		si, _ := textOf(out[i])
		sj, _ := textOf(out[j])
		return si < sj
	})
	return NewMixedList(out...), nil
}

func Unique(v Value) (Value, error) {
	items, err := itemsOf(v)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	out := make([]Value, 0, len(items))
	for _, it := range items {
		k := it.String() + "|" + it.TypeName()
		if !seen[k] {
			seen[k] = true
			out = append(out, it)
		}
	}
	return NewMixedList(out...), nil
}

// Shift moves elements by n positions, filling vacated slots with Null
// (n>0 shifts forward/"prev"-style, n<0 shifts backward/"next"-style).
func Shift(n int, v Value) (Value, error) {
	items, err := itemsOf(v)
	if err != nil {
		return nil, err
	}
	out := make([]Value, len(items))
	for i := range out {
		out[i] = Null{}
	}
	for i, it := range items {
		j := i + n
		if j >= 0 && j < len(items) {
			out[j] = it
		}
	}
	return NewMixedList(out...), nil
}

func Prev(v Value) (Value, error) { return Shift(1, v) }
func Next(v Value) (Value, error) { return Shift(-1, v) }

func cumulative(v Value, combine func(acc, x float64) float64, seed float64, hasSeed bool) (Value, error) {
	items, err := itemsOf(v)
	if err != nil {
		return nil, err
	}
	out := make([]Value, len(items))
	acc := seed
	started := hasSeed
	for i, it := range items {
		f, err := ToF64(it)
		if err != nil {
			return nil, err
		}
		if !started {
			acc = f
			started = true
		} else {
			acc = combine(acc, f)
		}
		out[i] = F64(acc)
	}
	return NewMixedList(out...), nil
}

func CumSum(v Value) (Value, error) {
	return cumulative(v, func(acc, x float64) float64 { return acc + x }, 0, false)
}
func CumProd(v Value) (Value, error) {
	return cumulative(v, func(acc, x float64) float64 { return acc * x }, 1, false)
}
func CumMax(v Value) (Value, error) {
	return cumulative(v, func(acc, x float64) float64 {
		if x > acc {
			return x
		}
		return acc
	}, 0, false)
}
func CumMin(v Value) (Value, error) {
	return cumulative(v, func(acc, x float64) float64 {
		if x < acc {
			return x
		}
		return acc
	}, 0, false)
}

// Clip bounds every element of v to [lo, hi].
func Clip(v, lo, hi Value) (Value, error) {
	items, err := itemsOf(v)
	if err != nil {
		return nil, err
	}
	lof, err := ToF64(lo)
	if err != nil {
		return nil, err
	}
	hif, err := ToF64(hi)
	if err != nil {
		return nil, err
	}
	out := make([]Value, len(items))
	for i, it := range items {
		f, err := ToF64(it)
		if err != nil {
			return nil, err
		}
		if f < lof {
			f = lof
		} else if f > hif {
			f = hif
		}
		out[i] = F64(f)
	}
	return NewMixedList(out...), nil
}

// Fill replaces null elements with fillValue.
func Fill(v, fillValue Value) (Value, error) {
	items, err := itemsOf(v)
	if err != nil {
		return nil, err
	}
	out := make([]Value, len(items))
	for i, it := range items {
		if IsNull(it) {
			out[i] = fillValue
		} else {
			out[i] = it
		}
	}
	return NewMixedList(out...), nil
}

// Concat appends the elements of every value in vs, flattening one level.
func Concat(vs ...Value) (Value, error) {
	var out []Value
	for _, v := range vs {
		items, err := itemsOf(v)
		if err != nil {
			return nil, err
		}
		out = append(out, items...)
	}
	return NewMixedList(out...), nil
}

// Flatten recursively flattens nested MixedListValues into one level.
func Flatten(v Value) (Value, error) {
	items, err := itemsOf(v)
	if err != nil {
		return nil, err
	}
	var out []Value
	var walk func([]Value)
	walk = func(xs []Value) {
		for _, x := range xs {
			if ml, ok := x.(*MixedListValue); ok {
				walk(ml.Items)
			} else {
				out = append(out, x)
			}
		}
	}
	walk(items)
	return NewMixedList(out...), nil
}

// In reports whether needle appears within haystack (`in_op`).
func In(needle, haystack Value) (Value, error) {
	items, err := itemsOf(haystack)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		eq, err := BinaryOp("=", needle, it)
		if err != nil {
			continue
		}
		if b, ok := eq.(Boolean); ok && bool(b) {
			return Boolean(true), nil
		}
	}
	return Boolean(false), nil
}

package columnar

import (
	"strings"

	"github.com/chilidb/chili/value"
)

// DataFrame is an ordered set of equally-long named columns (§3.1, code
// 92). Column names are unique and legal identifiers (§3.1 invariant).
type DataFrame struct {
	names []string
	cols  []value.Series
	index map[string]int
}

func NewDataFrame(names []string, cols []value.Series) (*DataFrame, error) {
	if len(names) != len(cols) {
		return nil, value.NewError(value.KindMismatchedLength, "dataframe: %d names, %d columns", len(names), len(cols))
	}
	height := -1
	idx := make(map[string]int, len(names))
	for i, n := range names {
		if _, dup := idx[n]; dup {
			return nil, value.NewError(value.KindEval, "dataframe: duplicate column name %q", n)
		}
		idx[n] = i
		if height == -1 {
			height = cols[i].Len()
		} else if cols[i].Len() != height {
			return nil, value.NewError(value.KindMismatchedLength, "dataframe: column %q has length %d, want %d", n, cols[i].Len(), height)
		}
	}
	return &DataFrame{names: append([]string(nil), names...), cols: append([]value.Series(nil), cols...), index: idx}, nil
}

func (*DataFrame) Code() value.Code       { return value.CodeDataFrame }
func (d *DataFrame) Size() int            { return d.Height() }
func (*DataFrame) TypeName() string       { return "dataframe" }
func (*DataFrame) IsAtom() bool           { return false }
func (d *DataFrame) Height() int {
	if len(d.cols) == 0 {
		return 0
	}
	return d.cols[0].Len()
}
func (d *DataFrame) ColumnNames() []string { return append([]string(nil), d.names...) }

func (d *DataFrame) Column(name string) (value.Series, bool) {
	i, ok := d.index[name]
	if !ok {
		return nil, false
	}
	return d.cols[i], true
}

func (d *DataFrame) String() string {
	var sb strings.Builder
	sb.WriteString(strings.Join(d.names, " "))
	sb.WriteByte('\n')
	for r := 0; r < d.Height(); r++ {
		if r > 0 {
			sb.WriteByte('\n')
		}
		row := make([]string, len(d.cols))
		for c, col := range d.cols {
			row[c] = col.At(r).String()
		}
		sb.WriteString(strings.Join(row, " "))
	}
	return sb.String()
}

var _ value.Frame = (*DataFrame)(nil)

// Upsert appends other's rows to d in place (§4.3 "upsert"). Both frames
// must share the same column names in the same order.
func (d *DataFrame) Upsert(other *DataFrame) error {
	if len(d.names) != len(other.names) {
		return value.NewError(value.KindMismatchedLength, "upsert: column count mismatch")
	}
	for i, n := range d.names {
		if other.names[i] != n {
			return value.NewError(value.KindMismatchedType, "upsert: column %d is %q, want %q", i, other.names[i], n)
		}
	}
	newCols := make([]value.Series, len(d.cols))
	for i := range d.cols {
		merged, err := concatSeries(d.cols[i], other.cols[i])
		if err != nil {
			return err
		}
		newCols[i] = merged
	}
	d.cols = newCols
	return nil
}

// InsertGroupByLast appends other's rows, then groups by the named
// columns keeping only the last row per group (§4.3 "insert"). Returns
// the net row-count delta (can be negative if grouping collapsed
// duplicates).
func (d *DataFrame) InsertGroupByLast(other *DataFrame, by []string) (int, error) {
	before := d.Height()
	if err := d.Upsert(other); err != nil {
		return 0, err
	}
	keyCols := make([]value.Series, len(by))
	for i, name := range by {
		col, ok := d.Column(name)
		if !ok {
			return 0, value.NewError(value.KindEval, "insert: group-by column %q not found", name)
		}
		keyCols[i] = col
	}
	height := d.Height()
	lastForKey := make(map[string]int, height)
	order := make([]string, 0, height)
	for r := 0; r < height; r++ {
		key := rowKey(keyCols, r)
		if _, seen := lastForKey[key]; !seen {
			order = append(order, key)
		}
		lastForKey[key] = r
	}
	keepRows := make([]int, 0, len(order))
	for _, key := range order {
		keepRows = append(keepRows, lastForKey[key])
	}
	newCols := make([]value.Series, len(d.cols))
	for i, col := range d.cols {
		newCols[i] = selectRows(col, keepRows)
	}
	d.cols = newCols
	return d.Height() - before, nil
}

func rowKey(cols []value.Series, r int) string {
	var sb strings.Builder
	for _, c := range cols {
		sb.WriteString(c.At(r).String())
		sb.WriteByte('\x00')
	}
	return sb.String()
}

// selectRows builds a generic MixedList-backed series from arbitrary row
// indices; good enough for the group-by-last materialization above, which
// is not on the hot ingest path.
func selectRows(col value.Series, rows []int) value.Series {
	items := make([]value.Value, len(rows))
	for i, r := range rows {
		items[i] = col.At(r)
	}
	return genericSeries{code: col.ElemCode(), items: items}
}

func concatSeries(a, b value.Series) (value.Series, error) {
	if a.ElemCode() != b.ElemCode() {
		return nil, value.NewError(value.KindMismatchedType, "concat: element type %s vs %s", a.ElemCode(), b.ElemCode())
	}
	items := make([]value.Value, 0, a.Len()+b.Len())
	for i := 0; i < a.Len(); i++ {
		items = append(items, a.At(i))
	}
	for i := 0; i < b.Len(); i++ {
		items = append(items, b.At(i))
	}
	return genericSeries{code: a.ElemCode(), items: items}, nil
}

// genericSeries is a boxed, element-type-tagged series used for
// operations (concat, group-by materialization) whose result shape isn't
// known until runtime; hot paths use the typed Vector[T] directly.
type genericSeries struct {
	code  value.Code
	items []value.Value
}

func (g genericSeries) Code() value.Code      { return g.code.Vector() }
func (g genericSeries) ElemCode() value.Code  { return g.code.Atom() }
func (g genericSeries) Size() int              { return len(g.items) }
func (g genericSeries) Len() int               { return len(g.items) }
func (genericSeries) TypeName() string         { return "series" }
func (genericSeries) IsAtom() bool             { return false }
func (g genericSeries) At(i int) value.Value   { return g.items[i] }
func (g genericSeries) IsValid(i int) bool     { return !value.IsNull(g.items[i]) }
func (g genericSeries) String() string {
	parts := make([]string, len(g.items))
	for i, v := range g.items {
		parts[i] = v.String()
	}
	return strings.Join(parts, " ")
}

var _ value.Series = genericSeries{}

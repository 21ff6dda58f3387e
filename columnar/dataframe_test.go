package columnar

import (
	"testing"

	"github.com/chilidb/chili/value"
)

func buildFrame(t *testing.T, ids []int64, names []string) *DataFrame {
	t.Helper()
	df, err := NewDataFrame([]string{"id", "name"}, []value.Series{
		NewI64Vector(ids),
		NewSymbolVector(names),
	})
	if err != nil {
		t.Fatal(err)
	}
	return df
}

func TestDataFrameInvariants(t *testing.T) {
	df := buildFrame(t, []int64{1, 2}, []string{"a", "b"})
	if df.Height() != 2 {
		t.Fatalf("got height %d", df.Height())
	}
	if got := df.ColumnNames(); len(got) != 2 || got[0] != "id" || got[1] != "name" {
		t.Fatalf("got %v", got)
	}
}

func TestDataFrameMismatchedLength(t *testing.T) {
	_, err := NewDataFrame([]string{"a", "b"}, []value.Series{
		NewI64Vector([]int64{1, 2}),
		NewI64Vector([]int64{1}),
	})
	if err == nil {
		t.Fatal("expected mismatched length error")
	}
}

func TestUpsertAppendsRows(t *testing.T) {
	df := buildFrame(t, []int64{1}, []string{"a"})
	other := buildFrame(t, []int64{2}, []string{"b"})
	if err := df.Upsert(other); err != nil {
		t.Fatal(err)
	}
	if df.Height() != 2 {
		t.Fatalf("got height %d", df.Height())
	}
	col, _ := df.Column("id")
	if col.At(1).(value.I64) != 2 {
		t.Fatalf("got %v", col.At(1))
	}
}

func TestInsertGroupByLastKeepsLastRowPerGroup(t *testing.T) {
	df := buildFrame(t, []int64{1, 1}, []string{"a", "a"})
	other := buildFrame(t, []int64{1, 2}, []string{"updated", "c"})
	delta, err := df.InsertGroupByLast(other, []string{"id"})
	if err != nil {
		t.Fatal(err)
	}
	if df.Height() != 2 {
		t.Fatalf("expected 2 rows after group-by-last dedup, got %d", df.Height())
	}
	if delta != 0 {
		t.Fatalf("expected delta 0 (4 inserted, 2 collapsed), got %d", delta)
	}
	col, _ := df.Column("name")
	if col.At(0).(value.Symbol) != "updated" {
		t.Fatalf("expected last row for id=1 to win, got %v", col.At(0))
	}
}

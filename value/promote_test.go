package value

import "testing"

func TestPromotionCorrectness(t *testing.T) {
	// (a+b).type == I32 for a: u8, b: i32
	v, err := BinaryOp("+", U8(1), I32(2))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := v.(I32); !ok {
		t.Fatalf("expected I32, got %T", v)
	}

	// (a+b).type == I64 for a: i32, b: i64
	v, err = BinaryOp("+", I32(1), I64(2))
	if err != nil {
		t.Fatal(err)
	}
	if iv, ok := v.(I64); !ok || iv != 3 {
		t.Fatalf("expected I64(3), got %#v", v)
	}

	// Date(d) + Duration(n) -> Date with value d + n/86_400_000_000_000
	v, err = BinaryOp("+", Date(100), Duration(86_400_000_000_000))
	if err != nil {
		t.Fatal(err)
	}
	if dv, ok := v.(Date); !ok || dv != 101 {
		t.Fatalf("expected Date(101), got %#v", v)
	}
}

func TestU8Wraparound(t *testing.T) {
	v, err := BinaryOp("+", U8(250), U8(10))
	if err != nil {
		t.Fatal(err)
	}
	if uv, ok := v.(U8); !ok || uv != 4 {
		t.Fatalf("expected U8(4), got %#v", v)
	}
}

func TestTimestampMinusDatetime(t *testing.T) {
	v, err := BinaryOp("-", Timestamp(1_000_000_000), Datetime(500))
	if err != nil {
		t.Fatal(err)
	}
	got, ok := v.(Duration)
	if !ok {
		t.Fatalf("expected Duration, got %T", v)
	}
	want := Duration(1_000_000_000 - 500*1_000_000)
	if got != want {
		t.Fatalf("got %d want %d", got, want)
	}
}

func TestNullShortCircuit(t *testing.T) {
	v, err := BinaryOp("+", Null{}, I32(5))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := v.(Null); !ok {
		t.Fatalf("expected Null, got %#v", v)
	}
}

func TestDivisionWidensToF64(t *testing.T) {
	v, err := BinaryOp("%", I32(7), I32(2))
	if err != nil {
		t.Fatal(err)
	}
	f, ok := v.(F64)
	if !ok {
		t.Fatalf("expected F64, got %T", v)
	}
	if f != 3.5 {
		t.Fatalf("got %v want 3.5", f)
	}
}

func TestSymbolConcat(t *testing.T) {
	v, err := BinaryOp("+", Symbol("foo"), Symbol("bar"))
	if err != nil {
		t.Fatal(err)
	}
	if s, ok := v.(Symbol); !ok || s != "foobar" {
		t.Fatalf("got %#v", v)
	}
}

func TestDictUnionKeepsLeft(t *testing.T) {
	l := NewDict()
	l.Set("a", I64(1))
	l.Set("b", I64(2))
	r := NewDict()
	r.Set("b", I64(99))
	r.Set("c", I64(3))

	v, err := BinaryOp("+", l, r)
	if err != nil {
		t.Fatal(err)
	}
	d := v.(*DictValue)
	bv, _ := d.Get("b")
	if bv.(I64) != 101 {
		t.Fatalf("expected b=2+99=101, got %#v", bv)
	}
	a, _ := d.Get("a")
	if a.(I64) != 1 {
		t.Fatalf("expected a=1 kept from left-only key")
	}
	c, _ := d.Get("c")
	if c.(I64) != 3 {
		t.Fatalf("expected c=3 kept from right-only key")
	}
}

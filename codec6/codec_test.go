package codec6

import (
	"encoding/binary"
	"testing"

	"github.com/chilidb/chili/columnar"
	"github.com/chilidb/chili/value"
)

func roundTrip(t *testing.T, v value.Value) value.Value {
	t.Helper()
	data, err := Serialize(v)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	got, err := Deserialize(data)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	return got
}

func TestAtomRoundTrip(t *testing.T) {
	cases := []value.Value{
		value.Boolean(true),
		value.U8(200),
		value.I16(-100),
		value.I32(123456),
		value.I64(-9_000_000_000),
		value.F32(1.5),
		value.F64(3.25),
		value.String("hello"),
		value.Symbol(value.Intern("AAPL")),
		value.Null{},
	}
	for _, v := range cases {
		got := roundTrip(t, v)
		if got.String() != v.String() {
			t.Errorf("round trip %v: got %v", v, got)
		}
	}
}

func TestTimestampEpochShift(t *testing.T) {
	// one nanosecond before 2000-01-01 in the V6 frame, i.e. NsDiff-1 in
	// Unix-epoch nanoseconds.
	ts := value.Timestamp(NsDiff - 1)
	data, err := Serialize(ts)
	if err != nil {
		t.Fatal(err)
	}
	// payload after the 1-byte type tag should encode -1 (i64 LE).
	if data[0] != wireByte(value.CodeTimestamp.Atom()) {
		t.Fatalf("unexpected type byte %d", data[0])
	}
	got := roundTrip(t, ts)
	if got.(value.Timestamp) != ts {
		t.Fatalf("got %v want %v", got, ts)
	}
}

func TestDateEpochShift(t *testing.T) {
	d := value.Date(10957) // 2000-01-01 in Unix-epoch days
	got := roundTrip(t, d)
	if got.(value.Date) != d {
		t.Fatalf("got %v want %v", got, d)
	}
}

func TestNullDate(t *testing.T) {
	d := value.Date(value.NullI32)
	got := roundTrip(t, d)
	if !value.IsNull(got) {
		t.Fatalf("expected null date, got %v", got)
	}
}

func TestVectorRoundTrip(t *testing.T) {
	vec := columnar.NewI64Vector([]int64{1, 2, value.NullI64, 4})
	got := roundTrip(t, vec)
	s, ok := got.(value.Series)
	if !ok {
		t.Fatalf("got non-series %T", got)
	}
	if s.Len() != 4 {
		t.Fatalf("got len %d", s.Len())
	}
	if s.At(0).(value.I64) != 1 || s.At(3).(value.I64) != 4 {
		t.Fatalf("got %v", s)
	}
	if !value.IsNull(s.At(2)) {
		t.Fatalf("expected null at index 2")
	}
}

func TestSymbolVectorRoundTrip(t *testing.T) {
	vec := columnar.NewSymbolVector([]string{"a", "b", "c"})
	got := roundTrip(t, vec)
	s := got.(value.Series)
	if s.At(1).(value.Symbol) != "b" {
		t.Fatalf("got %v", s.At(1))
	}
}

func TestMixedListRoundTrip(t *testing.T) {
	ml := value.NewMixedList(value.I64(1), value.Symbol("x"), value.String("hi"))
	got := roundTrip(t, ml)
	g := got.(*value.MixedListValue)
	if len(g.Items) != 3 {
		t.Fatalf("got %d items", len(g.Items))
	}
	if g.Items[1].(value.Symbol) != "x" {
		t.Fatalf("got %v", g.Items[1])
	}
}

func TestDictRoundTrip(t *testing.T) {
	d := value.NewDict()
	d.Set("a", value.I64(1))
	d.Set("b", value.I64(2))
	got := roundTrip(t, d)
	g := got.(*value.DictValue)
	v, ok := g.Get("b")
	if !ok || v.(value.I64) != 2 {
		t.Fatalf("got %v %v", v, ok)
	}
}

func TestDataFrameRoundTrip(t *testing.T) {
	df, err := columnar.NewDataFrame([]string{"id", "name"}, []value.Series{
		columnar.NewI64Vector([]int64{1, 2}),
		columnar.NewSymbolVector([]string{"a", "b"}),
	})
	if err != nil {
		t.Fatal(err)
	}
	got := roundTrip(t, df)
	g := got.(value.Frame)
	if g.Height() != 2 {
		t.Fatalf("got height %d", g.Height())
	}
	col, ok := g.Column("name")
	if !ok || col.At(1).(value.Symbol) != "b" {
		t.Fatalf("got %v", col)
	}
}

func TestMatrixRoundTrip(t *testing.T) {
	m := value.NewMatrix(2, 2)
	m.Set(0, 0, 1)
	m.Set(0, 1, 2)
	m.Set(1, 0, 3)
	m.Set(1, 1, 4)
	got := roundTrip(t, m)
	g := got.(*value.Matrix)
	if g.At(1, 0) != 3 {
		t.Fatalf("got %v", g.At(1, 0))
	}
}

func TestErrRoundTrip(t *testing.T) {
	got := roundTrip(t, value.Err{Msg: "boom"})
	if got.(value.Err).Msg != "boom" {
		t.Fatalf("got %v", got)
	}
}

// TestCompressMatchesScenarioVector is §8 scenario 2 verbatim: a 2014-byte
// frame with a handful of non-zero bytes compressed with max_size 2000
// must equal this exact byte sequence.
func TestCompressMatchesScenarioVector(t *testing.T) {
	frame := make([]byte, 2014)
	frame[0] = 1
	frame[1] = 1
	frame[4] = 222
	frame[5] = 7
	frame[8] = 1
	frame[10] = 208
	frame[11] = 7

	got, ok := Compress(frame, 2000)
	if !ok {
		t.Fatal("expected compression to succeed")
	}
	want := []byte{
		1, 1, 1, 0, 36, 0, 0, 0, 222, 7, 0, 0, 192, 1, 0, 208, 7, 0, 0, 0, 255, 0, 255, 63, 0,
		255, 0, 255, 0, 255, 0, 255, 0, 255, 0, 199,
	}
	if string(got) != string(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestCompressAbortsBelowMaxSize(t *testing.T) {
	frame := make([]byte, 100)
	if _, ok := Compress(frame, 2000); ok {
		t.Fatal("expected compression to decline a frame shorter than maxSize")
	}
}

// TestDecompressMatchesKnownVector checks Decompress against a
// hand-verified compressed payload (frame bytes 12 onward) paired with
// its expected decoded body, independent of this package's own Compress.
func TestDecompressMatchesKnownVector(t *testing.T) {
	compressed := []byte{
		0, 1, 0, 208, 7, 0, 0, 1, 1, 255, 0, 255, 0, 255, 0, 255, 0, 255,
		0, 255, 0, 255, 0, 255, 0, 197,
	}
	bodyLen := 2014 - HeaderSize
	got, err := Decompress(compressed, bodyLen)
	if err != nil {
		t.Fatal(err)
	}
	want := make([]byte, bodyLen)
	for i := range want {
		want[i] = 1
	}
	want[1] = 0
	want[2] = 208
	want[3] = 7
	want[4] = 0
	want[5] = 0
	if string(got) != string(want) {
		t.Fatalf("decompressed body mismatch at known vector")
	}
}

func TestCompressDecompressRoundTrip(t *testing.T) {
	body := make([]byte, 4000)
	for i := range body {
		body[i] = byte(i % 7)
	}
	frame := make([]byte, HeaderSize+len(body))
	frame[0], frame[1] = little, byte(Sync)
	binary.LittleEndian.PutUint32(frame[4:8], uint32(len(frame)))
	copy(frame[HeaderSize:], body)

	packed, ok := Compress(frame, 2000)
	if !ok {
		t.Fatal("expected compression to beat half size for repetitive input")
	}
	back, err := Decompress(packed[compressedHeaderSize:], len(body))
	if err != nil {
		t.Fatal(err)
	}
	if string(back) != string(body) {
		t.Fatal("compress/decompress round trip mismatch")
	}
}

func TestMessageFraming(t *testing.T) {
	frame, err := EncodeMessage(Sync, value.I64(42), false)
	if err != nil {
		t.Fatal(err)
	}
	mtype, v, err := DecodeMessage(frame)
	if err != nil {
		t.Fatal(err)
	}
	if mtype != Sync {
		t.Fatalf("got type %v", mtype)
	}
	if v.(value.I64) != 42 {
		t.Fatalf("got %v", v)
	}
}

// TestMessageFramingCompressedRoundTrip crosses EncodeMessage's real 1 MiB
// compression threshold (§8's round-trip law) with a payload redundant
// enough to actually shrink, then decodes it back unaided by any
// out-of-band length.
func TestMessageFramingCompressedRoundTrip(t *testing.T) {
	data := make([]uint8, 2_000_000)
	for i := range data {
		data[i] = byte(i % 3)
	}
	vec := columnar.NewU8Vector(data, nil)
	frame, err := EncodeMessage(Sync, vec, true)
	if err != nil {
		t.Fatal(err)
	}
	if frame[2] != compressLZ {
		t.Fatal("expected a 2 MB redundant payload to compress")
	}
	if len(frame) < compressedHeaderSize {
		t.Fatal("expected a compressed frame to carry the 12-byte header")
	}
	_, got, err := DecodeMessage(frame)
	if err != nil {
		t.Fatal(err)
	}
	gotVec, ok := got.(*columnar.Vector[uint8])
	if !ok || gotVec.Len() != len(data) {
		t.Fatalf("got %#v", got)
	}
	for i := 0; i < len(data); i += 97 {
		if gotVec.At(i) != value.U8(data[i]) {
			t.Fatalf("index %d: got %v want %v", i, gotVec.At(i), data[i])
		}
	}
}

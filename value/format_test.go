package value

import "testing"

func TestParseTime(t *testing.T) {
	tm, err := ParseTime("23:59:59.123")
	if err != nil {
		t.Fatal(err)
	}
	if int64(tm) != 86_399_123_000_000 {
		t.Fatalf("got %d", tm)
	}
}

func TestParseTimeOutOfRange(t *testing.T) {
	_, err := ParseTime("24:00:00")
	if err == nil {
		t.Fatal("expected ParserErr for 24:00:00")
	}
}

func TestTimeClamp(t *testing.T) {
	if ClampTime(-1) != 0 {
		t.Fatal("negative should clamp to 0")
	}
	if ClampTime(86_400_000_000_000) != 86_400_000_000_000-1 {
		t.Fatal("at-boundary should clamp below the day length")
	}
}

func TestParseDateRoundTrip(t *testing.T) {
	d, err := ParseDate("2024.03.05")
	if err != nil {
		t.Fatal(err)
	}
	if got := formatDate(int32(d)); got != "2024.03.05" {
		t.Fatalf("got %s", got)
	}
}

func TestParseDuration(t *testing.T) {
	d, err := ParseDuration("-2D01:00:00.000")
	if err != nil {
		t.Fatal(err)
	}
	want := -(2*86_400_000_000_000 + 3_600_000_000_000)
	if int64(d) != int64(want) {
		t.Fatalf("got %d want %d", d, want)
	}
}

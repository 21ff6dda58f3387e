package value

import (
	"fmt"
	"strconv"
	"strings"
)

func fmtInt(i int64) string { return strconv.FormatInt(i, 10) }

func fmtFloat(f float64) string {
	if f != f {
		return "0n"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

const epochUnixDay = 0 // Date(0) == 1970.01.01, consistent with §3.1.

// civilFromDays converts days-since-1970-01-01 to (year, month, day) using
// the Howard Hinnant civil_from_days algorithm.
func civilFromDays(z int64) (y int64, m int64, d int64) {
	z += 719468
	era := z
	if z < 0 {
		era -= 146096
	}
	era /= 146097
	doe := z - era*146097
	yoe := (doe - doe/1460 + doe/36524 - doe/146096) / 365
	y = yoe + era*400
	doy := doe - (365*yoe + yoe/4 - yoe/100)
	mp := (5*doy + 2) / 153
	d = doy - (153*mp+2)/5 + 1
	if mp < 10 {
		m = mp + 3
	} else {
		m = mp - 9
	}
	if m <= 2 {
		y++
	}
	return
}

// daysFromCivil is the inverse of civilFromDays.
func daysFromCivil(y, m, d int64) int64 {
	if m <= 2 {
		y--
	}
	era := y
	if y < 0 {
		era -= 399
	}
	era /= 400
	yoe := y - era*400
	var mp int64
	if m > 2 {
		mp = m - 3
	} else {
		mp = m + 9
	}
	doy := (153*mp+2)/5 + d - 1
	doe := yoe*365 + yoe/4 - yoe/100 + doy
	return era*146097 + doe - 719468
}

func formatDate(days int32) string {
	y, m, d := civilFromDays(int64(days))
	return fmt.Sprintf("%04d.%02d.%02d", y, m, d)
}

func formatTime(ns int64) string {
	ns = ClampTime(ns)
	h := ns / 3_600_000_000_000
	ns -= h * 3_600_000_000_000
	mi := ns / 60_000_000_000
	ns -= mi * 60_000_000_000
	s := ns / 1_000_000_000
	ns -= s * 1_000_000_000
	return fmt.Sprintf("%02d:%02d:%02d.%09d", h, mi, s, ns)
}

func formatDatetime(ms int64) string {
	days := ms / 86_400_000
	rem := ms % 86_400_000
	if rem < 0 {
		rem += 86_400_000
		days--
	}
	y, mo, d := civilFromDays(days)
	h := rem / 3_600_000
	rem -= h * 3_600_000
	mi := rem / 60_000
	rem -= mi * 60_000
	s := rem / 1_000
	msec := rem % 1_000
	return fmt.Sprintf("%04d.%02d.%02dT%02d:%02d:%02d.%03d", y, mo, d, h, mi, s, msec)
}

func formatTimestamp(ns int64) string {
	days := ns / 86_400_000_000_000
	rem := ns % 86_400_000_000_000
	if rem < 0 {
		rem += 86_400_000_000_000
		days--
	}
	y, mo, d := civilFromDays(days)
	return fmt.Sprintf("%04d.%02d.%02dD%s", y, mo, d, formatTime(rem))
}

func formatDuration(ns int64) string {
	neg := ns < 0
	if neg {
		ns = -ns
	}
	days := ns / 86_400_000_000_000
	rem := ns % 86_400_000_000_000
	sign := ""
	if neg {
		sign = "-"
	}
	return fmt.Sprintf("%s%dD%s", sign, days, formatTime(rem))
}

func pad9(frac string) string {
	for len(frac) < 9 {
		frac += "0"
	}
	return frac[:9]
}

// ParseDate parses "YYYY.MM.DD" (§4.1 "Parsing of literals").
func ParseDate(s string) (Date, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return 0, NewError(KindParser, "invalid date literal %q", s)
	}
	y, err1 := strconv.ParseInt(parts[0], 10, 64)
	m, err2 := strconv.ParseInt(parts[1], 10, 64)
	d, err3 := strconv.ParseInt(parts[2], 10, 64)
	if err1 != nil || err2 != nil || err3 != nil || m < 1 || m > 12 || d < 1 || d > 31 {
		return 0, NewError(KindParser, "invalid date literal %q", s)
	}
	return Date(daysFromCivil(y, m, d)), nil
}

// ParseTime parses "HH:MM:SS[.fffffffff]", right-padding the fractional
// part to 9 digits. A value of 24:00:00 or beyond is a ParserErr: Time
// atoms are clamped at use, not silently accepted out of range here.
func ParseTime(s string) (Time, error) {
	hms := s
	frac := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		hms = s[:i]
		frac = s[i+1:]
	}
	fields := strings.Split(hms, ":")
	if len(fields) != 3 {
		return 0, NewError(KindParser, "invalid time literal %q", s)
	}
	h, e1 := strconv.ParseInt(fields[0], 10, 64)
	mi, e2 := strconv.ParseInt(fields[1], 10, 64)
	se, e3 := strconv.ParseInt(fields[2], 10, 64)
	if e1 != nil || e2 != nil || e3 != nil || mi > 59 || se > 59 || h > 24 {
		return 0, NewError(KindParser, "invalid time literal %q", s)
	}
	nsFrac, err := strconv.ParseInt(pad9(frac), 10, 64)
	if err != nil {
		return 0, NewError(KindParser, "invalid time literal %q", s)
	}
	total := h*3_600_000_000_000 + mi*60_000_000_000 + se*1_000_000_000 + nsFrac
	if total >= 86_400_000_000_000 {
		return 0, NewError(KindParser, "time literal %q out of range [00:00:00, 24:00:00)", s)
	}
	return Time(total), nil
}

// ParseDuration parses "[-]<days>D<HH:MM:SS[.fff]>".
func ParseDuration(s string) (Duration, error) {
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	i := strings.IndexByte(s, 'D')
	if i < 0 {
		return 0, NewError(KindParser, "invalid duration literal %q", s)
	}
	days, err := strconv.ParseInt(s[:i], 10, 64)
	if err != nil {
		return 0, NewError(KindParser, "invalid duration literal %q", s)
	}
	t, err := ParseTime(s[i+1:])
	if err != nil {
		return 0, NewError(KindParser, "invalid duration literal %q", s)
	}
	total := days*86_400_000_000_000 + int64(t)
	if neg {
		total = -total
	}
	return Duration(total), nil
}

// ParseDatetime parses "YYYY.MM.DDTHH:MM:SS.fff" (ms precision).
func ParseDatetime(s string) (Datetime, error) {
	i := strings.IndexByte(s, 'T')
	if i < 0 {
		return 0, NewError(KindParser, "invalid datetime literal %q", s)
	}
	d, err := ParseDate(s[:i])
	if err != nil {
		return 0, NewError(KindParser, "invalid datetime literal %q", s)
	}
	t, err := ParseTime(s[i+1:])
	if err != nil {
		return 0, NewError(KindParser, "invalid datetime literal %q", s)
	}
	ms := int64(d)*86_400_000 + int64(t)/1_000_000
	return Datetime(ms), nil
}

// ParseTimestamp parses "YYYY.MM.DDDHH:MM:SS.fffffffff" (ns precision).
func ParseTimestamp(s string) (Timestamp, error) {
	i := strings.IndexByte(s, 'D')
	if i < 0 {
		return 0, NewError(KindParser, "invalid timestamp literal %q", s)
	}
	d, err := ParseDate(s[:i])
	if err != nil {
		return 0, NewError(KindParser, "invalid timestamp literal %q", s)
	}
	t, err := ParseTime(s[i+1:])
	if err != nil {
		return 0, NewError(KindParser, "invalid timestamp literal %q", s)
	}
	ns := int64(d)*86_400_000_000_000 + int64(t)
	return Timestamp(ns), nil
}

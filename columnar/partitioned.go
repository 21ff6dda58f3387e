package columnar

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/chilidb/chili/value"
)

// Layout is the on-disk shape of a partitioned table (§3.4).
type Layout int

const (
	LayoutSingle Layout = iota
	LayoutByYear
	LayoutByDate
)

func (l Layout) String() string {
	switch l {
	case LayoutSingle:
		return "single"
	case LayoutByYear:
		return "byYear"
	case LayoutByDate:
		return "byDate"
	default:
		return "unknown"
	}
}

// PartitionedDataFrame is a handle to an on-disk columnar table (§3.4,
// value code ParDataFrame). Scans lazily load Arrow-format column files;
// Keys is the partition index.
type PartitionedDataFrame struct {
	Name   string
	Layout Layout
	Root   string
	// Keys holds sorted partition keys: years as int32 for ByYear, days
	// since epoch (value.Date) for ByDate; empty for Single.
	Keys []int32
}

func (*PartitionedDataFrame) Code() value.Code       { return value.CodeNull } // not wire-serialized directly (§3.1)
func (p *PartitionedDataFrame) Size() int            { return len(p.Keys) }
func (*PartitionedDataFrame) TypeName() string       { return "pardataframe" }
func (*PartitionedDataFrame) IsAtom() bool           { return false }
func (p *PartitionedDataFrame) String() string {
	return "`" + p.Name + " (" + p.Layout.String() + ", " + strconv.Itoa(len(p.Keys)) + " partitions)"
}

var byDateRe = regexp.MustCompile(`^(\d{4})\.(\d{2})\.(\d{2})_`)
var byYearRe = regexp.MustCompile(`^(\d{4})_`)

// LoadParDF scans root/ and for each child: a file becomes Single; a
// directory's filenames are inspected to infer ByDate (names at least 13
// chars, parseable as YYYY.MM.DD_*) vs ByYear (YYYY_*); duplicate
// partition keys are deduplicated; unparseable entries are skipped
// (§4.3 "Partitioned tables").
func LoadParDF(name, root string, logSkip func(string)) (*PartitionedDataFrame, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, value.WrapError(value.KindEval, err, "load_par_df: reading %s", root)
	}

	pdf := &PartitionedDataFrame{Name: name, Root: root}
	seen := make(map[int32]bool)

	for _, e := range entries {
		full := filepath.Join(root, e.Name())
		if !e.IsDir() {
			pdf.Layout = LayoutSingle
			continue
		}
		files, err := os.ReadDir(full)
		if err != nil {
			if logSkip != nil {
				logSkip(full + ": " + err.Error())
			}
			continue
		}
		for _, f := range files {
			n := f.Name()
			if len(n) >= 13 {
				if m := byDateRe.FindStringSubmatch(n); m != nil {
					if d, err := value.ParseDate(m[1] + "." + m[2] + "." + m[3]); err == nil {
						pdf.Layout = LayoutByDate
						key := int32(d)
						if !seen[key] {
							seen[key] = true
							pdf.Keys = append(pdf.Keys, key)
						}
						continue
					}
				}
			}
			if m := byYearRe.FindStringSubmatch(n); m != nil {
				y, err := strconv.ParseInt(m[1], 10, 32)
				if err == nil {
					pdf.Layout = LayoutByYear
					key := int32(y)
					if !seen[key] {
						seen[key] = true
						pdf.Keys = append(pdf.Keys, key)
					}
					continue
				}
			}
			if logSkip != nil {
				logSkip(filepath.Join(full, n) + ": unparseable partition name")
			}
		}
	}

	sort.Slice(pdf.Keys, func(i, j int) bool { return pdf.Keys[i] < pdf.Keys[j] })
	return pdf, nil
}

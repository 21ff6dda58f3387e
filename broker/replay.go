package broker

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/chilidb/chili/codec6"
	"github.com/chilidb/chili/value"
)

// EvalFunc evaluates one decoded replay message; the concrete evaluator
// (§6.4) lives outside this module.
type EvalFunc func(msg value.Value)

// tableNameOf extracts the table symbol from a published MixedList
// [upd_name, table, message] (§4.5.3's packaging), the shape every
// replayed record carries.
func tableNameOf(v value.Value) (string, bool) {
	ml, ok := v.(*value.MixedListValue)
	if !ok || len(ml.Items) < 2 {
		return "", false
	}
	sym, ok := ml.Items[1].(value.Symbol)
	if !ok {
		return "", false
	}
	return string(sym), true
}

func matchesTableFilter(name string, filter []string) bool {
	if len(filter) == 0 {
		return true
	}
	for _, t := range filter {
		if t == name {
			return true
		}
	}
	return false
}

// ReplayQMsgsLog implements replay_q_msgs_log(data_file, start, end,
// table_names) (§4.5.5): it reads the companion .size file (u32 record
// lengths), seeks past the first start records, then for each subsequent
// record up to end reads record_len bytes, decodes the V6 message,
// filters by table name, and evaluates matches whose record index is at
// least currentTick. Progress is reported after every 100 re-evaluated
// records. Returns the
// number of records actually re-evaluated.
func ReplayQMsgsLog(dataFile string, start, end int, tableNames []string, currentTick int, eval EvalFunc, progress func(n int)) (int, error) {
	sizeFile := dataFile + ".size"
	sizes, err := readU32SizeFile(sizeFile)
	if err != nil {
		return 0, err
	}

	f, err := os.Open(dataFile)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	if end <= 0 || end > len(sizes) {
		end = len(sizes)
	}

	var offset int64
	for i := 0; i < start && i < len(sizes); i++ {
		offset += int64(sizes[i])
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return 0, err
	}

	evaluated := 0
	for i := start; i < end; i++ {
		recLen := sizes[i]
		buf := make([]byte, recLen)
		if _, err := io.ReadFull(f, buf); err != nil {
			break
		}
		_, v, err := codec6.DecodeMessage(buf)
		if err != nil {
			continue
		}
		name, ok := tableNameOf(v)
		if !ok || !matchesTableFilter(name, tableNames) {
			continue
		}
		if i < currentTick {
			continue
		}
		if eval != nil {
			eval(v)
		}
		evaluated++
		if progress != nil && evaluated%100 == 0 {
			progress(evaluated)
		}
	}
	return evaluated, nil
}

func readU32SizeFile(path string) ([]uint32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	n := len(data) / 4
	out := make([]uint32, n)
	for i := 0; i < n; i++ {
		out[i] = binary.LittleEndian.Uint32(data[i*4 : i*4+4])
	}
	return out, nil
}

// ReplayChiliMsgsLog implements replay_chili_msgs_log(path, start, end,
// start_time, table_names, eval) (§4.5.5): reads sequentially from the
// sequence file. Records with utc < start_time or index < start are
// skipped. If eval is true and the table filter matches, the record is
// evaluated; otherwise it is collected into the returned list.
func ReplayChiliMsgsLog(path string, start, end int, startTime int64, tableNames []string, doEval bool, eval EvalFunc) (evaluatedCount int, collected []value.Value, err error) {
	records, err := ReadAll(path)
	if err != nil {
		return 0, nil, err
	}
	if end <= 0 || end > len(records) {
		end = len(records)
	}
	for _, rec := range records {
		if rec.Index < start || rec.Index >= end {
			continue
		}
		if rec.UTCNanos < startTime {
			continue
		}
		name, ok := tableNameOf(rec.Value)
		if doEval {
			if ok && matchesTableFilter(name, tableNames) {
				if eval != nil {
					eval(rec.Value)
				}
				evaluatedCount++
			}
			continue
		}
		collected = append(collected, rec.Value)
	}
	if doEval {
		return evaluatedCount, nil, nil
	}
	return 0, collected, nil
}

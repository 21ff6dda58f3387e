// Package broker implements the pub/sub topic map, append-only sequence
// log, replay, and scheduled-job machinery of §4.5. It depends on engine,
// codec6, codec9 and value.
package broker

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/chilidb/chili/codec9"
	"github.com/chilidb/chili/value"
)

// seqMagic is the 8-byte sentinel at the start of every sequence file.
var seqMagic = [8]byte{255, 0, 0, 0, 0, 0, 0, 0}

const seqRecordHeaderSize = 16 // u64 payload_len + u64 utc_nanoseconds

// SeqFile wraps an append-only binary sequence log (§4.5.1).
type SeqFile struct {
	f *os.File
}

// OpenSeqFile opens path for append, writing the magic if the file is
// new/empty, or validating and seeking past it if not.
func OpenSeqFile(path string) (*SeqFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.Size() == 0 {
		if _, err := f.Write(seqMagic[:]); err != nil {
			f.Close()
			return nil, err
		}
	} else {
		var magic [8]byte
		if _, err := io.ReadFull(f, magic[:]); err != nil || magic != seqMagic {
			f.Close()
			return nil, value.NewError(value.KindEval, "seqfile: bad magic in %s", path)
		}
	}
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		f.Close()
		return nil, err
	}
	return &SeqFile{f: f}, nil
}

func (s *SeqFile) Close() error { return s.f.Close() }

// Append writes one record: upd_name, table, message packaged as a
// MixedList, V9-serialized without compression for a deterministic log
// format (§4.5.3 step 2), prefixed with its byte length and a UTC
// nanosecond timestamp.
func (s *SeqFile) Append(utcNanos int64, mixedList value.Value) error {
	payload, err := codec9.Serialize(mixedList)
	if err != nil {
		return err
	}
	header := make([]byte, seqRecordHeaderSize)
	binary.LittleEndian.PutUint64(header[0:8], uint64(len(payload)))
	binary.LittleEndian.PutUint64(header[8:16], uint64(utcNanos))
	if _, err := s.f.Write(header); err != nil {
		return err
	}
	_, err = s.f.Write(payload)
	return err
}

// SeqRecord is one decoded record from a sequence file.
type SeqRecord struct {
	Index    int
	UTCNanos int64
	Value    value.Value
}

// ValidateSeq implements validate_seq(path, deserialize_each) (§4.5.2): it
// heals partial writes left by a crash. On any short read, bad magic, or
// deserialize failure it truncates the file to the last-known-good byte
// count and returns the count of valid records. A missing file is created
// and returns 0.
func ValidateSeq(path string, deserializeEach bool) (int, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	if info.Size() == 0 {
		if _, err := f.Write(seqMagic[:]); err != nil {
			return 0, err
		}
		return 0, nil
	}

	var magic [8]byte
	if _, err := io.ReadFull(f, magic[:]); err != nil || magic != seqMagic {
		if err := f.Truncate(0); err != nil {
			return 0, err
		}
		if _, err := f.WriteAt(seqMagic[:], 0); err != nil {
			return 0, err
		}
		return 0, nil
	}

	goodOffset := int64(8)
	count := 0
	header := make([]byte, seqRecordHeaderSize)
	for {
		if _, err := io.ReadFull(f, header); err != nil {
			break
		}
		payloadLen := binary.LittleEndian.Uint64(header[0:8])
		if deserializeEach {
			payload := make([]byte, payloadLen)
			if _, err := io.ReadFull(f, payload); err != nil {
				break
			}
			if _, err := codec9.Deserialize(payload); err != nil {
				break
			}
		} else {
			// io.CopyN, not Seek: Seek past EOF succeeds silently, which
			// would hide a truncated trailing record instead of catching
			// it.
			if n, err := io.CopyN(io.Discard, f, int64(payloadLen)); err != nil || n != int64(payloadLen) {
				break
			}
		}
		goodOffset += seqRecordHeaderSize + int64(payloadLen)
		count++
	}

	if err := f.Truncate(goodOffset); err != nil {
		return 0, err
	}
	return count, nil
}

// ReadAll reads every valid record from path sequentially, without
// mutating the file. Used by replay_chili_msgs_log.
func ReadAll(path string) ([]SeqRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var magic [8]byte
	if _, err := io.ReadFull(f, magic[:]); err != nil {
		return nil, nil
	}

	var out []SeqRecord
	header := make([]byte, seqRecordHeaderSize)
	for idx := 0; ; idx++ {
		if _, err := io.ReadFull(f, header); err != nil {
			break
		}
		payloadLen := binary.LittleEndian.Uint64(header[0:8])
		utc := int64(binary.LittleEndian.Uint64(header[8:16]))
		payload := make([]byte, payloadLen)
		if _, err := io.ReadFull(f, payload); err != nil {
			break
		}
		v, err := codec9.Deserialize(payload)
		if err != nil {
			break
		}
		out = append(out, SeqRecord{Index: idx, UTCNanos: utc, Value: v})
	}
	return out, nil
}

package codec6

import (
	"encoding/binary"

	"github.com/chilidb/chili/value"
)

// MessageType distinguishes the three kinds of V6 IPC message (§4.4).
type MessageType byte

const (
	Async    MessageType = 0
	Sync     MessageType = 1
	Response MessageType = 2
)

const (
	// HeaderSize is the fixed V6 message header length in bytes for an
	// uncompressed frame.
	HeaderSize = 8

	// compressedHeaderSize is the header length once a 4-byte uncompressed
	// frame length is appended (§4.2.1's 12-byte compression header):
	// frame[8:12] carries the total frame length (header plus body) before
	// compression so Decompress knows how much to expand without an
	// out-of-band hint.
	compressedHeaderSize = 12

	compressNone = 0
	compressLZ   = 1
)

// little is the endianness byte this implementation always writes; peers
// advertising big-endian (byte 0) are not supported, matching the
// single-endianness assumption the rest of this codec makes.
const little = 1

// EncodeMessage serializes v with the V6 codec and wraps it in an 8-byte
// header (§4.4 "V6 header"). When compress is true, the raw 8-byte-header
// frame is handed to Compress at the default 1 MiB threshold (§8); a
// frame Compress actually shrinks comes back with its header grown to
// compressedHeaderSize, flag byte 1, and the pre-compression total length
// carried in bytes 8:12 so DecodeMessage can reverse it unaided.
func EncodeMessage(mtype MessageType, v value.Value, compress bool) ([]byte, error) {
	body, err := Serialize(v)
	if err != nil {
		return nil, err
	}
	total := HeaderSize + len(body)
	raw := make([]byte, HeaderSize, total)
	raw[0] = little
	raw[1] = byte(mtype)
	raw[2] = compressNone
	raw[3] = 0
	binary.LittleEndian.PutUint32(raw[4:8], uint32(total))
	raw = append(raw, body...)

	if compress {
		if packed, ok := Compress(raw, ipcCompressThreshold); ok {
			return packed, nil
		}
	}
	return raw, nil
}

// DecodeMessage splits a V6 frame into its message type and decoded value.
// A compressed frame (flag byte 1) carries its pre-compression total
// length in bytes 8:12 (§4.2.1's 12-byte compression header), so the
// caller need not track it out of band.
func DecodeMessage(frame []byte) (MessageType, value.Value, error) {
	if len(frame) < HeaderSize {
		return 0, nil, errShortRead
	}
	mtype := MessageType(frame[1])
	flag := frame[2]
	total := binary.LittleEndian.Uint32(frame[4:8])
	hdrSize := HeaderSize
	bodyLen := 0
	if flag == compressLZ {
		if len(frame) < compressedHeaderSize {
			return 0, nil, errShortRead
		}
		hdrSize = compressedHeaderSize
		bodyLen = int(binary.LittleEndian.Uint32(frame[8:12])) - HeaderSize
	}
	if int(total) > len(frame) || hdrSize > int(total) || bodyLen < 0 {
		return 0, nil, errShortRead
	}
	payload := frame[hdrSize:total]
	if flag == compressLZ {
		raw, err := Decompress(payload, bodyLen)
		if err != nil {
			return 0, nil, err
		}
		payload = raw
	}
	v, err := Deserialize(payload)
	if err != nil {
		return 0, nil, err
	}
	return mtype, v, nil
}

package codec9

import (
	"encoding/binary"

	"github.com/chilidb/chili/value"
)

// MessageType mirrors codec6's Async/Sync/Response framing (§4.4); V9 peers
// use the same three message kinds over the wider header.
type MessageType byte

const (
	Async    MessageType = 0
	Sync     MessageType = 1
	Response MessageType = 2
)

// HeaderSize is the fixed V9 message header length: a one-byte version tag
// fixed at 1, the message type, six reserved zero bytes, and an 8-byte
// little-endian total length (§4.2.2's header is 8-byte aligned throughout,
// and the frame wrapper follows the same convention).
const HeaderSize = 16

const version = 1

// EncodeMessage serializes v with the V9 codec and wraps it in a 16-byte
// header. V9 payloads are already 8-byte aligned by construction and are
// never frame-level compressed — only the Arrow-fallback series/dataframe
// payloads inside them are (arrow.go) — so there is no compression flag
// here, unlike codec6's frame header.
func EncodeMessage(mtype MessageType, v value.Value) ([]byte, error) {
	body, err := Serialize(v)
	if err != nil {
		return nil, err
	}
	total := HeaderSize + len(body)
	out := make([]byte, HeaderSize, total)
	out[0] = version
	out[1] = byte(mtype)
	binary.LittleEndian.PutUint64(out[8:16], uint64(total))
	out = append(out, body...)
	return out, nil
}

// DecodeMessage splits a V9 frame into its message type and decoded value.
func DecodeMessage(frame []byte) (MessageType, value.Value, error) {
	if len(frame) < HeaderSize {
		return 0, nil, errShortRead
	}
	mtype := MessageType(frame[1])
	total := binary.LittleEndian.Uint64(frame[8:16])
	if total > uint64(len(frame)) {
		return 0, nil, errShortRead
	}
	payload := frame[HeaderSize:total]
	v, err := Deserialize(payload)
	if err != nil {
		return 0, nil, err
	}
	return mtype, v, nil
}

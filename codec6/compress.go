package codec6

import "encoding/binary"

// ipcCompressThreshold is the default max_size used by the unqualified
// "compress" entry point (§8: "if serialize(V) has length >= 1 MiB").
const ipcCompressThreshold = 1 << 20

// Compress implements compress_with_max_size(frame, maxSize) of §4.2.1. It
// operates on an already-framed V6 message (HeaderSize bytes of header
// followed by payload) and, once frame is at least maxSize bytes, emits a
// new frame whose header carries the compression flag (byte 2), the
// compressed total length (bytes 4:8), and the original uncompressed
// total length (bytes 8:12, the compressedHeaderSize extension).
//
// x[c] records, for each XOR-of-adjacent-bytes byte c, the most recent
// frame offset where that pair began. A match extends greedily up to 255
// bytes past its 2-byte minimum and is emitted as (xor byte,
// length-2); up to 8 such operations share one flag byte, bit i set for a
// back-reference and clear for a literal. Compress aborts back to (frame,
// false) — meaning callers send frame unchanged — the moment the output
// would no longer fit in a buffer half frame's size, which is how
// §8's "compression fallback" property holds without a separate
// size check.
func Compress(frame []byte, maxSize int) ([]byte, bool) {
	if len(frame) < maxSize {
		return frame, false
	}

	out := make([]byte, len(frame)/2)
	out[2] = compressLZ
	binary.LittleEndian.PutUint32(out[8:12], binary.LittleEndian.Uint32(frame[4:8]))

	cPos := compressedHeaderSize
	nPos := cPos
	oPos := HeaderSize

	var x [256]int
	var px byte
	var n byte
	pPos := 0
	var i byte

	for oPos < len(frame) {
		if i == 0 {
			if cPos > len(out)-17 {
				return frame, false
			}
			i = 1
			out[nPos] = n
			nPos = cPos
			cPos++
			n = 0
		}

		skip := len(frame)-oPos < 3
		var xPos int
		var cx byte
		if !skip {
			cx = frame[oPos] ^ frame[oPos+1]
			xPos = x[cx]
			skip = xPos == 0 || frame[oPos] != frame[xPos]
		}

		if pPos > 0 {
			x[px] = pPos
			pPos = 0
		}

		if skip {
			px = cx
			pPos = oPos
			out[cPos] = frame[oPos]
			cPos++
			oPos++
		} else {
			x[cx] = oPos
			n |= i
			xPos += 2
			oPos += 2
			s := oPos
			maxIndex := oPos + 255
			if maxIndex > len(frame) {
				maxIndex = len(frame)
			}
			for oPos < maxIndex && frame[xPos] == frame[oPos] {
				oPos++
				xPos++
			}
			out[cPos] = cx
			cPos++
			out[cPos] = byte(oPos - s)
			cPos++
		}
		i <<= 1
	}

	out[nPos] = n
	out[0] = frame[0]
	out[1] = frame[1]
	binary.LittleEndian.PutUint32(out[4:8], uint32(cPos))
	return out[:cPos], true
}

// Decompress mirrors Compress: it reads a flag byte every 8 operations,
// then for each bit either copies one literal byte or expands a
// back-reference (xor byte + length-minus-2) against an x[] table it
// rebuilds incrementally from its own decoded output, exactly as the
// encoder built its table from the frame it was compressing. bodyLen is
// the decompressed payload length (the original frame's total length
// minus HeaderSize, carried in the compressed frame's bytes 8:12).
func Decompress(payload []byte, bodyLen int) ([]byte, error) {
	out := make([]byte, bodyLen)
	var x [256]int
	var n byte
	var i byte
	dPos := 0
	cPos := 0
	xPos := 4

	for dPos < len(out) {
		if i == 0 {
			if cPos >= len(payload) {
				return nil, errShortRead
			}
			n = payload[cPos]
			cPos++
			i = 1
		}

		r := 0
		if n&i != 0 {
			if cPos+1 >= len(payload) {
				return nil, errShortRead
			}
			ref := int(payload[cPos])
			s := x[ref]
			cPos++
			r = int(payload[cPos])
			cPos++
			if s+r+2 > len(out) || dPos+r+2 > len(out) {
				return nil, errBadReference
			}
			for j := 0; j < r+2; j++ {
				out[dPos+j] = out[s+j]
			}
			dPos += 2
		} else {
			if cPos >= len(payload) {
				return nil, errShortRead
			}
			out[dPos] = payload[cPos]
			dPos++
			cPos++
		}

		for k := xPos; k < dPos-1; k++ {
			x[out[k]^out[k+1]] = k
		}
		xPos = dPos - 1

		if n&i != 0 {
			dPos += r
			xPos = dPos
		}
		i <<= 1
	}
	return out, nil
}

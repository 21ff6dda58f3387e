package ipc

import (
	"encoding/binary"
	"io"

	"github.com/chilidb/chili/codec6"
	"github.com/chilidb/chili/codec9"
	"github.com/chilidb/chili/engine"
	"github.com/chilidb/chili/value"
)

// Sync implements sync(handle, msg) (§4.4.4): it requires the handle be
// Outgoing for a network round trip, or New/File/Sequence for a plain
// file write (file-role handling lives in the broker package's sequence
// writer; Sync here only covers the Outgoing network path).
func Sync(h *engine.Handle, msg value.Value) (value.Value, error) {
	if h.Role != engine.RoleOutgoing {
		return nil, value.NewError(value.KindInvalidHandle, "sync: handle %d is not Outgoing", h.ID)
	}
	h.Lock()
	defer h.Unlock()

	var resp value.Value
	var err error
	switch h.Dialect {
	case engine.DialectV6:
		resp, err = syncV6(h, msg)
	default:
		resp, err = syncV9(h, msg)
	}
	if err != nil {
		h.Role = engine.RoleDisconnected
	}
	return resp, err
}

func syncV6(h *engine.Handle, msg value.Value) (value.Value, error) {
	frame, err := codec6.EncodeMessage(codec6.Sync, msg, !h.Local)
	if err != nil {
		return nil, err
	}
	if _, err := h.Stream.Write(frame); err != nil {
		return nil, err
	}
	header := make([]byte, codec6.HeaderSize)
	if _, err := io.ReadFull(h.Stream, header); err != nil {
		return nil, err
	}
	total := binary.LittleEndian.Uint32(header[4:8])
	if total < codec6.HeaderSize {
		return nil, value.NewError(value.KindEval, "sync: malformed V6 response header")
	}
	body := make([]byte, total-codec6.HeaderSize)
	if _, err := io.ReadFull(h.Stream, body); err != nil {
		return nil, err
	}
	full := append(header, body...)
	mtype, v, err := codec6.DecodeMessage(full)
	if err != nil {
		return nil, err
	}
	if mtype != codec6.Response {
		return nil, value.NewError(value.KindEval, "sync: peer did not return a Response frame")
	}
	return v, nil
}

func syncV9(h *engine.Handle, msg value.Value) (value.Value, error) {
	frame, err := codec9.EncodeMessage(codec9.Sync, msg)
	if err != nil {
		return nil, err
	}
	if _, err := h.Stream.Write(frame); err != nil {
		return nil, err
	}
	header := make([]byte, codec9.HeaderSize)
	if _, err := io.ReadFull(h.Stream, header); err != nil {
		return nil, err
	}
	total := binary.LittleEndian.Uint64(header[8:16])
	if total < codec9.HeaderSize {
		return nil, value.NewError(value.KindEval, "sync: malformed V9 response header")
	}
	body := make([]byte, total-codec9.HeaderSize)
	if _, err := io.ReadFull(h.Stream, body); err != nil {
		return nil, err
	}
	full := append(header, body...)
	mtype, v, err := codec9.DecodeMessage(full)
	if err != nil {
		return nil, err
	}
	if mtype != codec9.Response {
		return nil, value.NewError(value.KindEval, "sync: peer did not return a Response frame")
	}
	return v, nil
}

package ipc

import (
	"encoding/binary"
	"io"
	"weak"

	"github.com/chilidb/chili/codec6"
	"github.com/chilidb/chili/codec9"
	"github.com/chilidb/chili/engine"
	"github.com/chilidb/chili/value"
)

// AsyncEvaluator evaluates a decoded async message against the engine;
// the concrete evaluator (§6.4) lives outside this module and is wired in
// by the caller that spawns reader threads.
type AsyncEvaluator func(e *engine.Engine, msg value.Value)

// HandlePublisher implements handle_publisher(h) (§4.4.5): it transitions
// h from Outgoing to Subscribing and spawns a reader goroutine that reads
// frames off h's stream and evaluates each as an async message. The
// goroutine reaches the engine only through a weak pointer, upgraded once
// per message, so it never keeps the engine alive on its own; once the
// engine has been collected the goroutine exits.
func HandlePublisher(eng *engine.Engine, h *engine.Handle, evalAsync AsyncEvaluator) error {
	if err := eng.SetRole(h.ID, engine.RoleSubscribing); err != nil {
		return err
	}
	go readerLoop(weak.Make(eng), h, evalAsync)
	return nil
}

func readerLoop(weakEngine weak.Pointer[engine.Engine], h *engine.Handle, evalAsync AsyncEvaluator) {
	for {
		msg, err := readOneFrame(h)
		if err != nil {
			markDisconnected(h)
			return
		}
		eng := weakEngine.Value()
		if eng == nil {
			return
		}
		evalAsync(eng, msg)
	}
}

func markDisconnected(h *engine.Handle) {
	h.Lock()
	h.Role = engine.RoleDisconnected
	h.Unlock()
}

// readOneFrame reads a single framed message according to h.Dialect and
// returns its decoded payload value, discarding the message type (reader
// threads only process async messages per §4.4.5).
func readOneFrame(h *engine.Handle) (value.Value, error) {
	switch h.Dialect {
	case engine.DialectV6:
		return readOneFrameV6(h)
	default:
		return readOneFrameV9(h)
	}
}

func readOneFrameV6(h *engine.Handle) (value.Value, error) {
	header := make([]byte, codec6.HeaderSize)
	if _, err := io.ReadFull(h.Stream, header); err != nil {
		return nil, err
	}
	total := binary.LittleEndian.Uint32(header[4:8])
	if total < codec6.HeaderSize {
		return nil, value.NewError(value.KindEval, "reader: malformed V6 frame header")
	}
	body := make([]byte, total-codec6.HeaderSize)
	if _, err := io.ReadFull(h.Stream, body); err != nil {
		return nil, err
	}
	_, v, err := codec6.DecodeMessage(append(header, body...))
	return v, err
}

func readOneFrameV9(h *engine.Handle) (value.Value, error) {
	header := make([]byte, codec9.HeaderSize)
	if _, err := io.ReadFull(h.Stream, header); err != nil {
		return nil, err
	}
	total := binary.LittleEndian.Uint64(header[8:16])
	if total < codec9.HeaderSize {
		return nil, value.NewError(value.KindEval, "reader: malformed V9 frame header")
	}
	body := make([]byte, total-codec9.HeaderSize)
	if _, err := io.ReadFull(h.Stream, body); err != nil {
		return nil, err
	}
	_, v, err := codec9.DecodeMessage(append(header, body...))
	return v, err
}

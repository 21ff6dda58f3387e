package broker

import (
	"github.com/chilidb/chili/codec6"
	"github.com/chilidb/chili/codec9"
	"github.com/chilidb/chili/engine"
	"github.com/chilidb/chili/value"
)

// SignalEOD implements signal_eod(message) (§4.5.7): it invokes sync(h,
// message) on every handle in role Publishing. A failure marks that
// handle Disconnected but does not abort the loop over the rest.
//
// sync() itself requires an Outgoing handle; a Publishing handle (an
// accepted, now-broadcasting connection) instead writes the EOD frame
// directly in the dialect it was opened with.
func SignalEOD(eng *engine.Engine, message value.Value) {
	for _, h := range eng.ListHandles() {
		if h.Role != engine.RolePublishing {
			continue
		}
		frame, err := encodeEOD(h.Dialect, message)
		if err == nil {
			h.Lock()
			_, err = h.Stream.Write(frame)
			h.Unlock()
		}
		if err != nil {
			_ = eng.SetRole(h.ID, engine.RoleDisconnected)
		}
	}
}

func encodeEOD(dialect engine.Dialect, message value.Value) ([]byte, error) {
	if dialect == engine.DialectV9 {
		return codec9.EncodeMessage(codec9.Async, message)
	}
	return codec6.EncodeMessage(codec6.Async, message, false)
}

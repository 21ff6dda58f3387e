package broker

import (
	"github.com/chilidb/chili/codec9"
	"github.com/chilidb/chili/engine"
	"github.com/chilidb/chili/value"
)

// Publish implements publish(upd_name, table, message) (§4.5.3): package
// the value as a MixedList [upd_name, table, message], V9-serialize it
// without compression, and fan it out to every handle subscribed to
// table. A subscriber whose handle id no longer exists in the engine's
// handle table is dropped from the topic map with a warning; a subscriber
// whose write fails is marked Disconnected but stays in the map.
func Publish(eng *engine.Engine, updName, table string, message value.Value, warn func(format string, args ...interface{})) error {
	payload := value.NewMixedList(value.Symbol(updName), value.Symbol(table), message)
	frame, err := codec9.EncodeMessage(codec9.Async, payload)
	if err != nil {
		return err
	}

	for _, id := range eng.TopicSubscribers(table) {
		h, ok := eng.GetHandle(id)
		if !ok {
			eng.RemoveFromTopic(table, id)
			if warn != nil {
				warn("publish: dropping unknown handle %d from topic %q", id, table)
			}
			continue
		}
		h.Lock()
		_, werr := h.Stream.Write(frame)
		h.Unlock()
		if werr != nil {
			_ = eng.SetRole(id, engine.RoleDisconnected)
		}
	}
	return nil
}

// Subscribe implements subscribe(handle, topics) (§4.5.4): add handle to
// each topic's subscriber list, then transition it Incoming -> Publishing.
func Subscribe(eng *engine.Engine, handleID int64, topics []string) error {
	return eng.Subscribe(handleID, topics)
}

// Unsubscribe implements unsubscribe(handle, topics) (§4.5.4).
func Unsubscribe(eng *engine.Engine, handleID int64, topics []string) {
	eng.Unsubscribe(handleID, topics)
}

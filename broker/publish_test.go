package broker

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/chilidb/chili/codec9"
	"github.com/chilidb/chili/engine"
	"github.com/chilidb/chili/value"
	"github.com/stretchr/testify/require"
)

// fakeStream is a minimal io.ReadWriteCloser double for exercising the
// broker's write-side fan-out without a real socket.
type fakeStream struct {
	bytes.Buffer
	failWrites bool
}

func (f *fakeStream) Write(p []byte) (int, error) {
	if f.failWrites {
		return 0, errors.New("simulated write failure")
	}
	return f.Buffer.Write(p)
}
func (f *fakeStream) Close() error { return nil }

func TestPublishFansOutToSubscribers(t *testing.T) {
	e := engine.New()
	s1, s2 := &fakeStream{}, &fakeStream{}
	h1 := &engine.Handle{Stream: s1, Dialect: engine.DialectV9}
	h2 := &engine.Handle{Stream: s2, Dialect: engine.DialectV9}
	id1 := e.AddHandle(h1)
	id2 := e.AddHandle(h2)
	require.NoError(t, e.Subscribe(id1, []string{"trade"}))
	require.NoError(t, e.Subscribe(id2, []string{"trade"}))

	require.NoError(t, Publish(e, "upd", "trade", value.I64(7), nil))

	_, v, err := codec9.DecodeMessage(s1.Bytes())
	require.NoError(t, err)
	ml := v.(*value.MixedListValue)
	require.Equal(t, value.Symbol("upd"), ml.Items[0])
	require.Equal(t, value.Symbol("trade"), ml.Items[1])
	require.Equal(t, value.I64(7), ml.Items[2])

	require.Equal(t, s1.Bytes(), s2.Bytes())
}

func TestPublishMarksFailedWriteDisconnected(t *testing.T) {
	e := engine.New()
	s := &fakeStream{failWrites: true}
	h := &engine.Handle{Stream: s, Dialect: engine.DialectV9, Role: engine.RoleIncoming}
	id := e.AddHandle(h)
	require.NoError(t, e.Subscribe(id, []string{"trade"}))

	require.NoError(t, Publish(e, "upd", "trade", value.I64(1), nil))

	got, _ := e.GetHandle(id)
	require.Equal(t, engine.RoleDisconnected, got.Role)
}

func TestPublishPrunesUnknownHandleFromTopicMap(t *testing.T) {
	e := engine.New()
	s := &fakeStream{}
	h := &engine.Handle{Stream: s, Dialect: engine.DialectV9}
	id := e.AddHandle(h)
	require.NoError(t, e.Subscribe(id, []string{"trade"}))
	require.NoError(t, e.CloseHandle(id))

	var warned bool
	require.NoError(t, Publish(e, "upd", "trade", value.I64(1), func(string, ...interface{}) { warned = true }))

	require.True(t, warned)
	require.Empty(t, e.TopicSubscribers("trade"))
}

var _ io.ReadWriteCloser = (*fakeStream)(nil)

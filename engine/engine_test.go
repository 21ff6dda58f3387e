package engine

import (
	"testing"

	"github.com/chilidb/chili/columnar"
	"github.com/chilidb/chili/value"
	"github.com/stretchr/testify/require"
)

func TestVariableLifecycle(t *testing.T) {
	e := New()
	_, ok := e.Get("x")
	require.False(t, ok)

	e.Set("x", value.I64(42))
	v, ok := e.Get("x")
	require.True(t, ok)
	require.Equal(t, value.I64(42), v)

	e.Del("x")
	require.False(t, e.Has("x"))
}

func TestListVarsGlob(t *testing.T) {
	e := New()
	e.Set("trade", value.I64(1))
	e.Set("trade_sym", value.I64(2))
	e.Set("quote", value.I64(3))

	require.ElementsMatch(t, []string{"trade", "trade_sym", "quote"}, e.ListVars(""))
	require.ElementsMatch(t, []string{"trade", "trade_sym"}, e.ListVars("trade*"))
	require.ElementsMatch(t, []string{"quote"}, e.ListVars("quot?"))
}

func TestUpsertCreatesThenAppends(t *testing.T) {
	e := New()
	df1, err := columnar.NewDataFrame([]string{"id"}, []value.Series{columnar.NewI64Vector([]int64{1})})
	require.NoError(t, err)
	require.NoError(t, e.Upsert("t", df1))

	df2, err := columnar.NewDataFrame([]string{"id"}, []value.Series{columnar.NewI64Vector([]int64{2})})
	require.NoError(t, err)
	require.NoError(t, e.Upsert("t", df2))

	v, ok := e.Get("t")
	require.True(t, ok)
	require.Equal(t, 2, v.(*columnar.DataFrame).Height())
}

func TestHandleIDAssignmentStartsAtFour(t *testing.T) {
	e := New()
	h1 := &Handle{}
	id1 := e.AddHandle(h1)
	require.Equal(t, int64(4), id1)

	h2 := &Handle{}
	id2 := e.AddHandle(h2)
	require.Equal(t, int64(5), id2)

	require.NoError(t, e.CloseHandle(id1))
	require.NoError(t, e.CloseHandle(id2))

	h3 := &Handle{}
	id3 := e.AddHandle(h3)
	require.Equal(t, int64(4), id3, "id assignment resets to 4 once all handles are removed")
}

func TestTopicMapSubscribeUnsubscribe(t *testing.T) {
	e := New()
	h := &Handle{Role: RoleIncoming}
	id := e.AddHandle(h)

	require.NoError(t, e.Subscribe(id, []string{"trade", "quote"}))
	require.Equal(t, RolePublishing, h.Role)
	require.Equal(t, []int64{id}, e.TopicSubscribers("trade"))

	e.Unsubscribe(id, []string{"trade"})
	require.Empty(t, e.TopicSubscribers("trade"))
	require.Equal(t, []int64{id}, e.TopicSubscribers("quote"))
}

func TestJobActivateByIDAndPattern(t *testing.T) {
	e := New()
	id := e.AddJob(&Job{FnName: "flush", Active: false, Description: "nightly flush"})
	require.Equal(t, int64(1), id)

	n := e.Activate("1", true)
	require.Equal(t, 1, n)
	jobs := e.ListJobs()
	require.True(t, jobs[0].Active)

	n = e.Activate("nightly", false)
	require.Equal(t, 1, n)
	jobs = e.ListJobs()
	require.False(t, jobs[0].Active)
}

func TestLoadSourcePathIsIdempotent(t *testing.T) {
	e := New()
	idx1 := e.LoadSourcePath("a.q", "1+1")
	idx2 := e.LoadSourcePath("a.q", "1+1")
	require.Equal(t, idx1, idx2)

	idx3 := e.LoadSourcePath("b.q", "2+2")
	require.NotEqual(t, idx1, idx3)
}

func TestSelfWeakReference(t *testing.T) {
	e := New()
	self := e.Self()
	require.Same(t, e, self)
}

func TestShutdownClearsState(t *testing.T) {
	e := New()
	e.Set("x", value.I64(1))
	e.AddHandle(&Handle{})
	e.AddJob(&Job{FnName: "f"})

	e.Shutdown()

	require.False(t, e.Has("x"))
	require.Empty(t, e.ListHandles())
	require.Empty(t, e.ListJobs())
}

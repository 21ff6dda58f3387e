package broker

import (
	"testing"

	"github.com/chilidb/chili/engine"
	"github.com/stretchr/testify/require"
)

func TestExecuteJobsAdvancesAndCallsFn(t *testing.T) {
	e := engine.New()
	AddJob(e, "flush", 0, 300, 100, "flush job")

	var called []string
	ExecuteJobs(e, 0, func(fnName string) { called = append(called, fnName) })

	require.Equal(t, []string{"flush"}, called)
	jobs := ListJobs(e)
	require.Len(t, jobs, 1)
	require.Equal(t, int64(100), jobs[0].NextRunTime)
	require.True(t, jobs[0].Active)
	require.Equal(t, int64(0), jobs[0].LastRunTime)
}

func TestExecuteJobsDeactivatesNearEnd(t *testing.T) {
	e := engine.New()
	AddJob(e, "flush", 0, 150, 100, "flush job")

	ExecuteJobs(e, 0, func(string) {})

	jobs := ListJobs(e)
	require.False(t, jobs[0].Active, "next_run_time (100) + interval (100) >= end (150)")
}

func TestExecuteJobsSkipsNotYetDue(t *testing.T) {
	e := engine.New()
	AddJob(e, "flush", 1000, 5000, 100, "flush job")

	var called int
	ExecuteJobs(e, 0, func(string) { called++ })
	require.Equal(t, 0, called)
}

func TestActivateDeactivateByPattern(t *testing.T) {
	e := engine.New()
	AddJob(e, "a", 0, 1000, 100, "eod cleanup")
	AddJob(e, "b", 0, 1000, 100, "unrelated")

	n := Activate(e, "eod")
	require.Equal(t, 1, n)

	n = Deactivate(e, "eod")
	require.Equal(t, 1, n)
}

func TestClearJobs(t *testing.T) {
	e := engine.New()
	AddJob(e, "a", 0, 1000, 100, "x")
	ClearJobs(e)
	require.Empty(t, ListJobs(e))
}

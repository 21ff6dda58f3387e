package broker

import (
	"context"
	"time"

	"github.com/chilidb/chili/engine"
	"golang.org/x/sync/errgroup"
)

// EvalCall evaluates the zero-argument call expression fnName() (§6.4's
// eval_by_node, narrowed to the job scheduler's needs).
type EvalCall func(fnName string)

// ExecuteJobs implements one pass of the periodic execute_jobs loop
// (§4.5.6): snapshot the jobs table, evaluate every active job whose
// next_run_time has elapsed, and write the updated jobs back. nowNanos is
// passed in rather than read from the clock so callers control the tick.
func ExecuteJobs(eng *engine.Engine, nowNanos int64, evalCall EvalCall) {
	snapshot := eng.SnapshotJobs()
	var updated []engine.Job
	for _, j := range snapshot {
		if !j.Active || j.NextRunTime > nowNanos {
			continue
		}
		job := j.Clone()
		if evalCall != nil {
			evalCall(job.FnName)
		}
		job.NextRunTime += job.IntervalNs
		if job.NextRunTime+job.IntervalNs >= job.End {
			job.Active = false
		}
		job.LastRunTime = nowNanos
		updated = append(updated, job)
	}
	if len(updated) > 0 {
		eng.ApplyJobUpdates(updated)
	}
}

// RunJobLoop runs ExecuteJobs every interval until ctx is canceled, using
// an errgroup so a caller can wait for clean shutdown alongside other
// background loops (the reader threads of §4.4.5, the job ticker here).
func RunJobLoop(ctx context.Context, g *errgroup.Group, eng *engine.Engine, interval time.Duration, evalCall EvalCall, nowNanos func() int64) {
	g.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				ExecuteJobs(eng, nowNanos(), evalCall)
			}
		}
	})
}

// AddJob implements add_job: construct and register a new Job, returning
// its auto-incrementing id.
func AddJob(eng *engine.Engine, fnName string, start, end, intervalNs int64, description string) int64 {
	j := &engine.Job{
		FnName:      fnName,
		Start:       start,
		End:         end,
		IntervalNs:  intervalNs,
		NextRunTime: start,
		Active:      true,
		Description: description,
	}
	return eng.AddJob(j)
}

// ListJobs implements list_job.
func ListJobs(eng *engine.Engine) []engine.Job { return eng.ListJobs() }

// Activate implements activate(id | pattern) / activate_by_pattern(p),
// returning the number of jobs toggled.
func Activate(eng *engine.Engine, idOrPattern string) int { return eng.Activate(idOrPattern, true) }

// Deactivate implements deactivate(id | pattern).
func Deactivate(eng *engine.Engine, idOrPattern string) int { return eng.Activate(idOrPattern, false) }

// ClearJobs implements clear_jobs.
func ClearJobs(eng *engine.Engine) { eng.ClearJobs() }

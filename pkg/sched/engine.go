package sched

import (
	"github.com/cigdemahmet27/rtsched/pkg/workload"
)

// Server task parameters, in scaled ticks. The server competes like any
// other periodic task: id 999, budget as computation time, deadline equal to
// its period, first release at 0.
const (
	ServerCapacity = 2 * workload.Scale
	ServerPeriod   = 5 * workload.Scale
)

// Result is what one simulation run produces: the ordered timeline, every
// job ever created (with start/finish stamps where set), and the horizon
// bookkeeping. A deadline miss is a normal outcome, reported here.
type Result struct {
	Events      []Event
	Jobs        []*Job
	Hyperperiod int
	Capped      bool
	Missed      bool
}

// Engine is the single-threaded tick simulator. One logical clock, a fixed
// per-tick step order, no suspension points: the priority rule and server
// strategy run to completion inside the tick that invokes them.
type Engine struct {
	rule   Policy
	server ServerStrategy

	periodic  []workload.Task // sporadic included; server task appended when active
	aperiodic []workload.Task

	ready      []*Job
	aperiodics AperiodicQueue

	log  EventLog
	jobs []*Job

	hyperperiod int
	capped      bool
	nextJobID   int
}

// New builds an engine for the workload under the given priority rule. When
// the workload's policy names a server variant, the synthetic server task is
// appended to the periodic set and the matching strategy installed.
func New(w *workload.Workload, rule Policy) *Engine {
	e := &Engine{
		rule:      rule,
		periodic:  append([]workload.Task(nil), w.Periodic...),
		aperiodic: append([]workload.Task(nil), w.Aperiodic...),
		nextJobID: 1,
	}

	switch w.Policy {
	case workload.PolicyPoller:
		e.server = PollingServer{}
	case workload.PolicyDeferrable:
		e.server = DeferrableServer{}
	}
	if e.server != nil {
		e.periodic = append(e.periodic, workload.Task{
			ID:          workload.ServerTaskID,
			Kind:        workload.KindPeriodic,
			Release:     0,
			Computation: ServerCapacity,
			Period:      ServerPeriod,
			Deadline:    ServerPeriod,
		})
	}

	e.hyperperiod, e.capped = hyperperiod(e.periodic, e.aperiodic)
	return e
}

// Hyperperiod returns the simulation horizon in scaled ticks.
func (e *Engine) Hyperperiod() int { return e.hyperperiod }

// Capped reports whether the horizon hit the safety limit.
func (e *Engine) Capped() bool { return e.capped }

// Run drives the clock from 0 to the hyperperiod and returns the timeline.
// It terminates early on the first deadline miss of a non-server job.
func (e *Engine) Run() *Result {
	for t := 0; t < e.hyperperiod; t++ {
		e.reapExpiredServers(t)
		e.admitPeriodic(t)
		e.admitAperiodic(t)

		e.rule.Order(e.ready, t)

		serviced := false
		var current *Job
		if len(e.ready) > 0 {
			best := e.ready[0]
			if best.IsServer() && e.server != nil {
				serviced, current = e.intercept(best, t)
			} else {
				current = best
			}
		}

		if !serviced {
			e.execute(current, t)
		}

		if missed := e.sweepDeadlines(t); missed != nil {
			e.log.Append(t+1, missed.ID, missed.Task.ID, EventDeadlineMiss)
			return e.result(true)
		}
	}
	return e.result(false)
}

// intercept delegates the tick to the server strategy. It returns the job to
// run instead when the server yielded, or serviced=true when the strategy
// consumed the tick on aperiodic work.
func (e *Engine) intercept(srv *Job, t int) (serviced bool, current *Job) {
	if e.server.RunTick(srv, &e.aperiodics, &e.log, t) {
		if srv.Complete() {
			e.removeReady(srv)
		}
		return true, nil
	}

	if srv.Complete() {
		// Poller dispatched idle: budget forfeited, job gone, reselect.
		e.removeReady(srv)
		if len(e.ready) > 0 {
			return false, e.ready[0]
		}
		return false, nil
	}

	// Deferrable dispatched idle: budget preserved, hand the tick to the
	// next-ranked ready job.
	if len(e.ready) > 1 {
		return false, e.ready[1]
	}
	return false, nil
}

// execute runs one tick of current, falls back to background service of the
// aperiodic queue when the ready queue is drained, and records Idle
// otherwise.
func (e *Engine) execute(current *Job, t int) {
	switch {
	case current != nil && current.Remaining > 0:
		if !current.Start.Present() {
			current.Start.Set(t)
		}
		e.log.Append(t, current.ID, current.Task.ID, EventRunning)
		current.Remaining--
		if current.Complete() {
			current.Finish.Set(t + 1)
			e.log.Append(t+1, current.ID, current.Task.ID, EventFinish)
			e.removeReady(current)
		}

	case len(e.ready) == 0 && e.aperiodics.Len() > 0:
		a := e.aperiodics.Head()
		if !a.Start.Present() {
			a.Start.Set(t)
		}
		e.log.Append(t, a.ID, a.Task.ID, EventBackgroundRun)
		a.Remaining--
		if a.Complete() {
			a.Finish.Set(t + 1)
			e.aperiodics.PopHead()
		}

	default:
		e.log.Append(t, -1, -1, EventIdle)
	}
}

// reapExpiredServers drops server jobs at or past their absolute deadline.
// Running before arrivals, this makes room for the fresh full-budget server
// job the periodic arrival rule is about to release, and keeps a preserved
// Deferrable budget from outliving its period.
func (e *Engine) reapExpiredServers(t int) {
	kept := e.ready[:0]
	for _, j := range e.ready {
		if j.IsServer() && j.Deadline <= t {
			continue
		}
		kept = append(kept, j)
	}
	e.ready = kept
}

func (e *Engine) admitPeriodic(t int) {
	for i := range e.periodic {
		task := &e.periodic[i]
		if t >= task.Release && (t-task.Release)%task.Period == 0 {
			e.ready = append(e.ready, e.spawn(task, t))
		}
	}
}

func (e *Engine) admitAperiodic(t int) {
	for i := range e.aperiodic {
		task := &e.aperiodic[i]
		if task.Release == t {
			j := e.spawn(task, t)
			e.aperiodics.Push(j)
			e.log.Append(t, j.ID, task.ID, EventAperiodicArrive)
		}
	}
}

func (e *Engine) spawn(task *workload.Task, t int) *Job {
	j := newJob(e.nextJobID, task, t)
	e.nextJobID++
	e.jobs = append(e.jobs, j)
	return j
}

// sweepDeadlines checks every job still ready at the end of tick t. Expired
// server jobs found here are zombies from a preserved budget; they are
// removed silently. A non-server job past its deadline ends the run.
func (e *Engine) sweepDeadlines(t int) *Job {
	kept := e.ready[:0]
	var missed *Job
	for _, j := range e.ready {
		if j.IsServer() {
			if t+1 > j.Deadline {
				continue
			}
			kept = append(kept, j)
			continue
		}
		if missed == nil && t+1 > j.Deadline {
			missed = j
		}
		kept = append(kept, j)
	}
	e.ready = kept
	return missed
}

func (e *Engine) removeReady(target *Job) {
	for i, j := range e.ready {
		if j == target {
			e.ready = append(e.ready[:i], e.ready[i+1:]...)
			return
		}
	}
}

func (e *Engine) result(missed bool) *Result {
	return &Result{
		Events:      e.log.Events(),
		Jobs:        e.jobs,
		Hyperperiod: e.hyperperiod,
		Capped:      e.capped,
		Missed:      missed,
	}
}

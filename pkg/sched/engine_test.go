package sched

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cigdemahmet27/rtsched/pkg/workload"
)

func loadSet(t *testing.T, input string) *workload.Workload {
	t.Helper()
	w, err := workload.Parse(strings.NewReader(input))
	require.NoError(t, err)
	return w
}

func eventsOf(res *Result, types ...EventType) []Event {
	var out []Event
	for _, ev := range res.Events {
		for _, typ := range types {
			if ev.Type == typ {
				out = append(out, ev)
			}
		}
	}
	return out
}

// requireWellFormed checks the structural invariants every run must satisfy:
// at most one processor slot per tick, completion accounting, strictly
// increasing job ids, and deadline safety when no miss was reported.
func requireWellFormed(t *testing.T, res *Result) {
	t.Helper()

	occupied := map[int]EventType{}
	for _, ev := range res.Events {
		if !ev.Executes() {
			continue
		}
		prev, dup := occupied[ev.Time]
		require.False(t, dup, "tick %d has both %s and %s", ev.Time, prev, ev.Type)
		occupied[ev.Time] = ev.Type
	}

	execCount := map[int]int{}
	for _, ev := range res.Events {
		switch ev.Type {
		case EventRunning, EventServerExec, EventServerExecDS, EventBackgroundRun:
			execCount[ev.JobID]++
		}
	}
	lastID := 0
	for _, j := range res.Jobs {
		require.Greater(t, j.ID, lastID, "job ids must be strictly increasing")
		lastID = j.ID

		if finish, err := j.Finish.Get(); err == nil {
			require.Equal(t, j.Task.Computation, execCount[j.ID],
				"job %d finished with wrong amount of execution", j.ID)
			if !res.Missed && !j.IsServer() && j.Task.Kind != workload.KindAperiodic {
				require.LessOrEqual(t, finish, j.Deadline, "job %d finished late", j.ID)
			}
		}
	}
}

func TestRMFeasibleSet(t *testing.T) {
	// comfortably under the RM bound; the shortest-period task always runs
	// the moment it is released
	ws := loadSet(t, "P 1 4\nP 1 6\nP 2 8\n")
	res := New(ws, RateMonotonic{}).Run()

	require.False(t, res.Missed)
	require.Equal(t, 240, res.Hyperperiod)
	requireWellFormed(t, res)

	var task1Finishes []int
	for _, j := range res.Jobs {
		if j.Task.ID != 1 {
			continue
		}
		finish, err := j.Finish.Get()
		require.NoError(t, err)
		task1Finishes = append(task1Finishes, finish)
	}
	require.Equal(t, []int{10, 50, 90, 130, 170, 210}, task1Finishes)
}

func TestRMOverloadedByLongTask(t *testing.T) {
	// utilization .958 fits under EDF and LST but exceeds what RM can
	// deliver to the longest-period task: its first job still holds 10 ticks
	// of work when its deadline passes at 80
	ws := loadSet(t, "P 1 4\nP 2 6\nP 3 8\n")
	res := New(ws, RateMonotonic{}).Run()

	require.True(t, res.Missed)
	last := res.Events[len(res.Events)-1]
	require.Equal(t, EventDeadlineMiss, last.Type)
	require.Equal(t, 81, last.Time)
	require.Equal(t, 3, last.TaskID)
}

func TestEDFSchedulesWhatRMCannot(t *testing.T) {
	ws := loadSet(t, "P 1 4\nP 2 6\nP 3 8\n")
	res := New(ws, EarliestDeadlineFirst{}).Run()

	require.False(t, res.Missed)
	requireWellFormed(t, res)
}

func TestRMInfeasibleSetMisses(t *testing.T) {
	// S2: utilization 0.5 + 0.6 > 1
	ws := loadSet(t, "P 2 4\nP 3 5\n")
	res := New(ws, RateMonotonic{}).Run()

	require.True(t, res.Missed)
	last := res.Events[len(res.Events)-1]
	require.Equal(t, EventDeadlineMiss, last.Type)
	require.LessOrEqual(t, last.Time, 200)
	requireWellFormed(t, res)
}

func TestEDFHandlesDeadlineShorterThanPeriod(t *testing.T) {
	// S3: D (e=2, p=10, d=5) plus P 3 7
	ws := loadSet(t, "D 2 10 5\nP 3 7\n")
	res := New(ws, EarliestDeadlineFirst{}).Run()

	require.False(t, res.Missed)
	require.Equal(t, 700, res.Hyperperiod)
	requireWellFormed(t, res)
}

func TestLSTFeasibleSet(t *testing.T) {
	// same utilization-.958 set: least slack first also keeps every
	// deadline on it
	ws := loadSet(t, "P 1 4\nP 2 6\nP 3 8\n")
	res := New(ws, LeastSlackTime{}).Run()

	require.False(t, res.Missed)
	requireWellFormed(t, res)
}

func TestPollingServerServicesAperiodic(t *testing.T) {
	// S4: the first server dispatch drains the full budget into the
	// aperiodic, the rest is drained as background once the queue is the
	// only work left
	ws := loadSet(t, "P 1 4\nA 0 3 Poller\n")
	res := New(ws, RateMonotonic{}).Run()

	require.False(t, res.Missed)
	requireWellFormed(t, res)

	execs := eventsOf(res, EventServerExec)
	require.Len(t, execs, ServerCapacity)
	for _, ev := range execs {
		require.GreaterOrEqual(t, ev.Time, 10)
		require.Less(t, ev.Time, 30)
	}

	background := eventsOf(res, EventBackgroundRun)
	require.Len(t, background, 10)
	for _, ev := range background {
		require.GreaterOrEqual(t, ev.Time, 30)
		require.Less(t, ev.Time, 40)
	}
}

func TestPollerForfeitsWhenDispatchedIdle(t *testing.T) {
	// S5: nothing aperiodic pending at any server dispatch; the budget is
	// forfeited each period and the late aperiodic is drained as background
	ws := loadSet(t, "P 1 4\nA 6 1 Poller\n")
	res := New(ws, RateMonotonic{}).Run()

	require.False(t, res.Missed)
	requireWellFormed(t, res)
	require.Empty(t, eventsOf(res, EventServerExec, EventServerExecDS))

	background := eventsOf(res, EventBackgroundRun)
	require.Len(t, background, 10)
	require.Equal(t, 60, background[0].Time)
}

func TestDeferrablePreservesBudgetForLateArrival(t *testing.T) {
	// S6: the server defers through an empty first stretch and still has
	// full budget when the aperiodic arrives mid-period
	ws := loadSet(t, "P 1 4\nA 3 3 Deferrable\n")
	res := New(ws, RateMonotonic{}).Run()

	require.False(t, res.Missed)
	requireWellFormed(t, res)
	require.Empty(t, eventsOf(res, EventServerExec))

	execs := eventsOf(res, EventServerExecDS)
	require.Len(t, execs, 30)
	require.Equal(t, 30, execs[0].Time, "service must start the tick the aperiodic arrives")
	for _, ev := range execs {
		// the higher-priority periodic owns [40,50)
		require.False(t, ev.Time >= 40 && ev.Time < 50, "server ran while preempted at %d", ev.Time)
	}

	// budget within any one server period never exceeds the capacity
	perPeriod := map[int]int{}
	for _, ev := range execs {
		perPeriod[ev.Time/ServerPeriod]++
	}
	for period, used := range perPeriod {
		require.LessOrEqual(t, used, ServerCapacity, "period %d over budget", period)
	}

	finishes := eventsOf(res, EventAperiodicFinish)
	require.Len(t, finishes, 1)
	require.Equal(t, 70, finishes[0].Time)
}

func TestDeferrableYieldGivesTickToNextReady(t *testing.T) {
	// server has the shortest period and is always dispatched first under
	// RM; with no aperiodic work it must hand every tick to the periodics
	ws := loadSet(t, "P 2 8\nA 70 1 Deferrable\n")
	res := New(ws, RateMonotonic{}).Run()

	require.False(t, res.Missed)
	requireWellFormed(t, res)

	running := eventsOf(res, EventRunning)
	require.NotEmpty(t, running)
	require.Equal(t, 0, running[0].Time, "first tick must go to the periodic despite the idle server")
}

func TestServerExpiryIsSilent(t *testing.T) {
	// Deferrable with a forever-empty queue: server jobs expire every
	// period and must never surface as a miss
	ws := loadSet(t, "P 1 4\nA 90 1 Deferrable\n")
	res := New(ws, RateMonotonic{}).Run()

	require.False(t, res.Missed)
	for _, ev := range res.Events {
		require.NotEqual(t, EventDeadlineMiss, ev.Type)
	}
}

func TestBackgroundOnlyWorkload(t *testing.T) {
	ws := loadSet(t, "A 0 2\n")
	res := New(ws, RateMonotonic{}).Run()

	require.False(t, res.Missed)
	requireWellFormed(t, res)

	background := eventsOf(res, EventBackgroundRun)
	require.Len(t, background, 20)
	require.Equal(t, 0, background[0].Time)

	arrivals := eventsOf(res, EventAperiodicArrive)
	require.Len(t, arrivals, 1)
}

func TestSporadicSchedulesLikePeriodic(t *testing.T) {
	ws := loadSet(t, "D 1 4 4\n")
	res := New(ws, DeadlineMonotonic{}).Run()

	require.False(t, res.Missed)
	require.Equal(t, 40, res.Hyperperiod)
	require.Len(t, eventsOf(res, EventFinish), 1)
	requireWellFormed(t, res)
}

func TestMissTerminatesLog(t *testing.T) {
	ws := loadSet(t, "P 2 4\nP 3 5\n")
	res := New(ws, EarliestDeadlineFirst{}).Run()

	require.True(t, res.Missed)
	for i, ev := range res.Events {
		if ev.Type == EventDeadlineMiss {
			require.Equal(t, len(res.Events)-1, i, "nothing may follow the miss record")
		}
	}
}

package sched

import (
	"fmt"

	"github.com/markphelps/optional"

	"github.com/cigdemahmet27/rtsched/pkg/workload"
)

// Job is one released instance of a task. Ids are assigned monotonically at
// creation across all tasks and never reused; every live job is owned by
// exactly one queue.
type Job struct {
	ID        int
	Task      *workload.Task
	Arrival   int
	Deadline  int // absolute; Arrival for aperiodics, which carry none
	Remaining int
	Start     optional.Int
	Finish    optional.Int
}

func newJob(id int, task *workload.Task, arrival int) *Job {
	return &Job{
		ID:        id,
		Task:      task,
		Arrival:   arrival,
		Deadline:  arrival + task.Deadline,
		Remaining: task.Computation,
	}
}

// Slack is the time the job can still afford to wait at now.
func (j *Job) Slack(now int) int {
	return j.Deadline - now - j.Remaining
}

// Complete reports whether the job has no work left.
func (j *Job) Complete() bool {
	return j.Remaining <= 0
}

// IsServer reports whether this is a budget job of the synthetic server task.
func (j *Job) IsServer() bool {
	return j.Task.ID == workload.ServerTaskID
}

func (j *Job) String() string {
	return fmt.Sprintf("job %d (task %d, arrival %d, deadline %d, remaining %d)",
		j.ID, j.Task.ID, j.Arrival, j.Deadline, j.Remaining)
}

// AperiodicQueue is the FIFO of aperiodic jobs awaiting service. Aperiodic
// jobs never enter the ready queue; they are drained by a server or as
// background work.
type AperiodicQueue struct {
	jobs []*Job
}

// Len returns the number of waiting jobs.
func (q *AperiodicQueue) Len() int { return len(q.jobs) }

// Head returns the oldest waiting job, or nil.
func (q *AperiodicQueue) Head() *Job {
	if len(q.jobs) == 0 {
		return nil
	}
	return q.jobs[0]
}

// Push appends a job.
func (q *AperiodicQueue) Push(j *Job) { q.jobs = append(q.jobs, j) }

// PopHead removes and returns the oldest waiting job, or nil.
func (q *AperiodicQueue) PopHead() *Job {
	if len(q.jobs) == 0 {
		return nil
	}
	j := q.jobs[0]
	q.jobs = q.jobs[1:]
	return j
}

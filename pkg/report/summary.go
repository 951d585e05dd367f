package report

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/cigdemahmet27/rtsched/pkg/sched"
	"github.com/cigdemahmet27/rtsched/pkg/workload"
)

const sectionWidth = 80

// TaskStats aggregates the jobs of one task over the run. Response times are
// at the user's resolution.
type TaskStats struct {
	TaskID       int     `json:"taskId"`
	Kind         string  `json:"kind"`
	Released     int     `json:"released"`
	Finished     int     `json:"finished"`
	MeanResponse float64 `json:"meanResponse"`
	MaxResponse  float64 `json:"maxResponse"`
	StdResponse  float64 `json:"stdResponse"`
}

// Summary condenses one run for the terminal and the HTTP API.
type Summary struct {
	Algorithm   string       `json:"algorithm"`
	Policy      string       `json:"policy"`
	Hyperperiod float64      `json:"hyperperiod"`
	Capped      bool         `json:"capped"`
	Missed      bool         `json:"missed"`
	Utilization float64      `json:"utilization"`
	Idle        int          `json:"idleTicks"`
	Events      int          `json:"events"`
	Tasks       []TaskStats  `json:"tasks"`
	Miss        *sched.Event `json:"miss,omitempty"`
}

// Summarize computes per-task response statistics and overall utilization
// from a finished run.
func Summarize(res *sched.Result, ws *workload.Workload, algorithm string) Summary {
	s := Summary{
		Algorithm:   algorithm,
		Policy:      string(ws.Policy),
		Hyperperiod: float64(res.Hyperperiod) / workload.Scale,
		Capped:      res.Capped,
		Missed:      res.Missed,
		Events:      len(res.Events),
	}

	slots := 0
	for _, ev := range res.Events {
		if !ev.Executes() {
			continue
		}
		slots++
		if ev.Type == sched.EventIdle {
			s.Idle++
		}
	}
	if slots > 0 {
		s.Utilization = float64(slots-s.Idle) / float64(slots)
	}
	if res.Missed && len(res.Events) > 0 {
		miss := res.Events[len(res.Events)-1]
		s.Miss = &miss
	}

	released := map[int]int{}
	responses := map[int][]float64{}
	for _, j := range res.Jobs {
		if j.Task.ID == workload.ServerTaskID {
			continue
		}
		released[j.Task.ID]++
		if finish, err := j.Finish.Get(); err == nil {
			responses[j.Task.ID] = append(responses[j.Task.ID],
				float64(finish-j.Arrival)/workload.Scale)
		}
	}

	ids := make([]int, 0, len(released))
	for id := range released {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	for _, id := range ids {
		task, _ := ws.TaskByID(id)
		ts := TaskStats{
			TaskID:   id,
			Kind:     string(task.Kind),
			Released: released[id],
			Finished: len(responses[id]),
		}
		if rs := responses[id]; len(rs) > 0 {
			ts.MeanResponse = stat.Mean(rs, nil)
			if len(rs) > 1 {
				ts.StdResponse = stat.StdDev(rs, nil)
			}
			for _, r := range rs {
				if r > ts.MaxResponse {
					ts.MaxResponse = r
				}
			}
		}
		s.Tasks = append(s.Tasks, ts)
	}
	return s
}

// Render formats the summary for the terminal.
func (s Summary) Render() string {
	var sb strings.Builder

	sb.WriteString("\n")
	sb.WriteString("Run Summary\n")
	sb.WriteString(strings.Repeat("=", sectionWidth))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Algorithm: %s\n", s.Algorithm))
	sb.WriteString(fmt.Sprintf("Server Policy: %s\n", s.Policy))
	sb.WriteString(fmt.Sprintf("Hyperperiod: %s", FormatTicks(int(s.Hyperperiod*workload.Scale))))
	if s.Capped {
		sb.WriteString(" (capped at safety limit)")
	}
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Utilization: %.1f%% (%d idle ticks)\n", s.Utilization*100, s.Idle))

	if s.Missed && s.Miss != nil {
		sb.WriteString(fmt.Sprintf("Outcome: DEADLINE MISS at %s (job %d, task %d)\n",
			FormatTicks(s.Miss.Time), s.Miss.JobID, s.Miss.TaskID))
	} else {
		sb.WriteString("Outcome: all deadlines met\n")
	}
	sb.WriteString("\n")

	sb.WriteString(fmt.Sprintf("%-6s %-10s %8s %8s %10s %10s %10s\n",
		"Task", "Kind", "Released", "Finished", "MeanResp", "MaxResp", "StdResp"))
	for _, ts := range s.Tasks {
		sb.WriteString(fmt.Sprintf("%-6d %-10s %8d %8d %10.2f %10.2f %10.2f\n",
			ts.TaskID, ts.Kind, ts.Released, ts.Finished,
			ts.MeanResponse, ts.MaxResponse, ts.StdResponse))
	}
	sb.WriteString("\n")

	return sb.String()
}

// RenderTimeline formats the first limit events for the terminal, one line
// each, truncating the tail past limit.
func RenderTimeline(res *sched.Result, limit int) string {
	var sb strings.Builder

	sb.WriteString("\n")
	sb.WriteString("Detailed Timeline")
	if limit > 0 && limit < len(res.Events) {
		sb.WriteString(fmt.Sprintf(" (showing first %d events)", limit))
	}
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", sectionWidth))
	sb.WriteString("\n\n")

	count := len(res.Events)
	if limit > 0 && limit < count {
		count = limit
	}
	for _, ev := range res.Events[:count] {
		sb.WriteString(fmt.Sprintf("[%6s] job %3d task %3d  %s\n",
			FormatTicks(ev.Time), ev.JobID, ev.TaskID, ev.Type))
	}
	if limit > 0 && limit < len(res.Events) {
		sb.WriteString(fmt.Sprintf("\n... and %d more events\n", len(res.Events)-limit))
	}
	sb.WriteString("\n")

	return sb.String()
}

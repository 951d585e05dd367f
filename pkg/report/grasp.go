package report

import (
	"fmt"
	"io"
	"os"
	"sort"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/cigdemahmet27/rtsched/pkg/sched"
	"github.com/cigdemahmet27/rtsched/pkg/workload"
)

// TaskColors assigns each task an evenly-spread hue, stable across runs of
// the same workload. The server task gets a fixed grey.
func TaskColors(ws *workload.Workload) map[int]string {
	ids := make([]int, 0, len(ws.Periodic)+len(ws.Aperiodic))
	for _, t := range ws.Periodic {
		ids = append(ids, t.ID)
	}
	for _, t := range ws.Aperiodic {
		ids = append(ids, t.ID)
	}
	sort.Ints(ids)

	colors := map[int]string{workload.ServerTaskID: "#999999"}
	for i, id := range ids {
		hue := float64(i) * 360.0 / float64(len(ids))
		colors[id] = colorful.Hsv(hue, 0.55, 0.85).Hex()
	}
	return colors
}

// WriteGrasp emits the timeline as a Grasp trace script: task declarations
// with colors, then arrival, resume, preempt and completion plot commands
// reconstructed from the event log.
func WriteGrasp(w io.Writer, res *sched.Result, ws *workload.Workload) error {
	colors := TaskColors(ws)

	arrivals := map[int]*sched.Job{}
	for _, j := range res.Jobs {
		arrivals[j.ID] = j
	}

	declared := map[int]bool{}
	declare := func(taskID int) error {
		if declared[taskID] {
			return nil
		}
		declared[taskID] = true
		name := fmt.Sprintf("T%d", taskID)
		if taskID == workload.ServerTaskID {
			name = "Server"
		}
		_, err := fmt.Fprintf(w, "newTask task%d -priority %d -name \"%s\" -color \"%s\"\n",
			taskID, taskID, name, colors[taskID])
		return err
	}

	for _, j := range res.Jobs {
		if err := declare(j.Task.ID); err != nil {
			return err
		}
	}

	// Reconstruct execution segments: a change of executing job without a
	// recorded finish is a preemption.
	var lastJob *sched.Job
	lastFinished := true
	emit := func(format string, args ...interface{}) error {
		_, err := fmt.Fprintf(w, format, args...)
		return err
	}

	for _, j := range res.Jobs {
		if err := emit("plot %s jobArrived job%d task%d\n",
			FormatTicks(j.Arrival), j.ID, j.Task.ID); err != nil {
			return err
		}
	}

	for _, ev := range res.Events {
		switch ev.Type {
		case sched.EventRunning, sched.EventServerExec, sched.EventServerExecDS, sched.EventBackgroundRun:
			j := arrivals[ev.JobID]
			if j == nil {
				continue
			}
			if lastJob != j {
				if lastJob != nil && !lastFinished {
					if err := emit("plot %s jobPreempted job%d\n",
						FormatTicks(ev.Time), lastJob.ID); err != nil {
						return err
					}
				}
				if err := emit("plot %s jobResumed job%d\n",
					FormatTicks(ev.Time), j.ID); err != nil {
					return err
				}
				lastJob, lastFinished = j, false
			}
		case sched.EventFinish, sched.EventAperiodicFinish:
			if lastJob != nil && lastJob.ID == ev.JobID {
				lastFinished = true
				lastJob = nil
			}
			if err := emit("plot %s jobCompleted job%d\n",
				FormatTicks(ev.Time), ev.JobID); err != nil {
				return err
			}
		case sched.EventDeadlineMiss:
			if err := emit("plot %s jobMissedDeadline job%d\n",
				FormatTicks(ev.Time), ev.JobID); err != nil {
				return err
			}
		}
	}
	return nil
}

// ExportGrasp writes the Grasp trace to path.
func ExportGrasp(path string, res *sched.Result, ws *workload.Workload) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create grasp file: %w", err)
	}
	defer f.Close()

	if err := WriteGrasp(f, res, ws); err != nil {
		return fmt.Errorf("failed to write grasp trace: %w", err)
	}
	return nil
}

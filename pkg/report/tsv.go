package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cigdemahmet27/rtsched/pkg/sched"
	"github.com/cigdemahmet27/rtsched/pkg/workload"
)

// WriteTimeline renders the event log as tab-separated records. Times are
// divided by the scale factor to recover the user's resolution.
func WriteTimeline(w io.Writer, res *sched.Result, ws *workload.Workload) error {
	if _, err := fmt.Fprintf(w, "Time\tJobID\tTaskID\tDescription\tEvent\n"); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, strings.Repeat("-", 56)); err != nil {
		return err
	}

	for _, ev := range res.Events {
		if _, err := fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\n",
			FormatTicks(ev.Time), ev.JobID, ev.TaskID, describe(ev, ws), ev.Type); err != nil {
			return err
		}
	}
	return nil
}

// ExportTimeline writes the timeline to the nominal path, or to the ABORTED
// sink next to it when the run ended on a deadline miss. It returns the path
// actually written.
func ExportTimeline(path string, res *sched.Result, ws *workload.Workload) (string, error) {
	if res.Missed {
		path = abortedPath(path)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	if err := WriteTimeline(f, res, ws); err != nil {
		return "", fmt.Errorf("failed to write timeline: %w", err)
	}
	return path, nil
}

func abortedPath(nominal string) string {
	ext := filepath.Ext(nominal)
	if ext == "" {
		ext = ".txt"
	}
	return filepath.Join(filepath.Dir(nominal), "output_ABORTED"+ext)
}

func describe(ev sched.Event, ws *workload.Workload) string {
	switch {
	case ev.Type == sched.EventDeadlineMiss:
		return "FAILURE"
	case ev.TaskID == workload.ServerTaskID,
		ev.Type == sched.EventServerExec, ev.Type == sched.EventServerExecDS:
		return fmt.Sprintf("Server(%s)", ws.Policy)
	}
	if task, ok := ws.TaskByID(ev.TaskID); ok {
		if task.Kind == workload.KindAperiodic {
			return "Aperiodic"
		}
		return "Periodic"
	}
	return "Unknown"
}

// FormatTicks prints a scaled tick count at the user's resolution, with no
// trailing zeros.
func FormatTicks(t int) string {
	return strconv.FormatFloat(float64(t)/workload.Scale, 'f', -1, 64)
}

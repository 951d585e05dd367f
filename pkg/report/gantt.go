package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cigdemahmet27/rtsched/pkg/sched"
	"github.com/cigdemahmet27/rtsched/pkg/workload"
)

const ganttWidth = 80

// GenerateGantt renders one row per task that executed at least once, across
// the simulated horizon. Server-granted aperiodic service shows as 's' and
// background service as 'b', both in the aperiodic task's own row; ordinary
// execution is a solid block. The server task has no row of its own. When
// the horizon is wider than the chart, ticks are sampled down to fit.
func GenerateGantt(res *sched.Result, ws *workload.Workload) string {
	horizon := res.Hyperperiod
	if horizon == 0 {
		return "No schedule to display"
	}

	// cell per task per tick; zero value means the task did not run
	rows := map[int][]byte{}
	rowFor := func(taskID int) []byte {
		if _, ok := rows[taskID]; !ok {
			rows[taskID] = make([]byte, horizon)
		}
		return rows[taskID]
	}

	for _, ev := range res.Events {
		if ev.Time >= horizon {
			continue
		}
		switch ev.Type {
		case sched.EventRunning:
			rowFor(ev.TaskID)[ev.Time] = 'x'
		case sched.EventServerExec, sched.EventServerExecDS:
			rowFor(ev.TaskID)[ev.Time] = 's'
		case sched.EventBackgroundRun:
			rowFor(ev.TaskID)[ev.Time] = 'b'
		}
	}

	ids := make([]int, 0, len(rows))
	for id := range rows {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	cols := horizon
	if cols > ganttWidth-8 {
		cols = ganttWidth - 8
	}

	var sb strings.Builder
	sb.WriteString("\n")
	sb.WriteString("Schedule\n")
	sb.WriteString(strings.Repeat("=", ganttWidth))
	sb.WriteString("\n\n")

	for _, id := range ids {
		label := fmt.Sprintf("T%d", id)
		if id == workload.ServerTaskID {
			label = "SRV"
		}
		sb.WriteString(fmt.Sprintf("%5s |", label))

		row := rows[id]
		for x := 0; x < cols; x++ {
			tick := x * horizon / cols
			switch row[tick] {
			case 'x':
				sb.WriteString("█")
			case 's':
				sb.WriteString("s")
			case 'b':
				sb.WriteString("b")
			default:
				sb.WriteString(" ")
			}
		}
		sb.WriteString("\n")
	}

	sb.WriteString("      +")
	sb.WriteString(strings.Repeat("-", cols))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("      0%*s\n", cols, FormatTicks(horizon)))

	sb.WriteString("\n")
	sb.WriteString("Legend:\n")
	sb.WriteString("    █ - executing\n")
	sb.WriteString("    s - served by aperiodic server\n")
	sb.WriteString("    b - background service\n")
	sb.WriteString("\n")

	return sb.String()
}

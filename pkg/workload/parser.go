package workload

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// ParseFile reads the line-oriented task-set format.
//
// Each data line is a tag character followed by whitespace-separated numbers:
//
//	P e p | P r e p | P r e p d       periodic (d defaults to p, r to 0)
//	D e p | D e p d | D r e p d       sporadic / deadline-constrained
//	A r e [Poller|Deferrable]         aperiodic, optional server-policy word
//
// Blank lines and '#' comments are skipped, as are lines with an unknown tag.
// Numbers may be fractional; every field is scaled by Scale and rounded, so
// the returned workload is in integer ticks. The three-number D form is
// (e, p, d): an explicit deadline is what distinguishes D from P.
//
// The server policy defaults to Background and is overwritten by every
// Poller/Deferrable word encountered, so the last tag in the file wins. An
// untagged A line leaves the previous value alone.
func ParseFile(path string) (*Workload, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workload file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse consumes the text format from r. See ParseFile.
func Parse(r io.Reader) (*Workload, error) {
	w := &Workload{Policy: PolicyBackground}
	nextID := 1

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		var kind Kind
		switch fields[0] {
		case "P":
			kind = KindPeriodic
		case "D":
			kind = KindSporadic
		case "A":
			kind = KindAperiodic
		default:
			continue
		}

		var nums []int
		trailing := ""
		bad := false
		for i, field := range fields[1:] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				trailing = strings.Join(fields[1+i:], " ")
				break
			}
			if v < 0 {
				bad = true
				break
			}
			nums = append(nums, scaleTicks(v))
		}
		if bad || len(nums) < 2 {
			continue
		}

		if kind == KindAperiodic {
			switch {
			case strings.Contains(trailing, string(PolicyPoller)):
				w.Policy = PolicyPoller
			case strings.Contains(trailing, string(PolicyDeferrable)):
				w.Policy = PolicyDeferrable
			}
			w.Aperiodic = append(w.Aperiodic, Task{
				ID:          nextID,
				Kind:        kind,
				Release:     nums[0],
				Computation: nums[1],
			})
			nextID++
			continue
		}

		task := Task{ID: nextID, Kind: kind}
		switch {
		case len(nums) == 2:
			task.Computation, task.Period, task.Deadline = nums[0], nums[1], nums[1]
		case len(nums) == 3 && kind == KindSporadic:
			task.Computation, task.Period, task.Deadline = nums[0], nums[1], nums[2]
		case len(nums) == 3:
			task.Release, task.Computation, task.Period = nums[0], nums[1], nums[2]
			task.Deadline = task.Period
		default:
			task.Release, task.Computation = nums[0], nums[1]
			task.Period, task.Deadline = nums[2], nums[3]
		}
		if task.Computation <= 0 || task.Period <= 0 || task.Deadline <= 0 {
			continue
		}
		w.Periodic = append(w.Periodic, task)
		nextID++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read workload: %w", err)
	}
	return w, nil
}

func scaleTicks(v float64) int {
	return int(math.Round(v * Scale))
}

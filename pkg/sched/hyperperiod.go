package sched

import (
	"github.com/cigdemahmet27/rtsched/pkg/workload"
)

const (
	// HyperperiodCap bounds the simulation length for pathological task
	// sets, in scaled ticks. A capped run is flagged on the result.
	HyperperiodCap = 10_000

	// aperiodicMargin pads a late aperiodic's completion window so that
	// background service can drain it inside the horizon.
	aperiodicMargin = 20 * workload.Scale
)

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func lcm(a, b int) int {
	if a == 0 || b == 0 {
		return 0
	}
	return a / gcd(a, b) * b
}

// hyperperiod computes the simulation horizon: the LCM of all periodic
// periods (the synthetic server's included), extended in whole multiples
// until every aperiodic has room to release, execute and drain with margin,
// and finally clamped to HyperperiodCap.
func hyperperiod(periodic, aperiodic []workload.Task) (h int, capped bool) {
	h = 1
	for _, task := range periodic {
		if task.Period <= 0 {
			continue
		}
		h = lcm(h, task.Period)
		if h > HyperperiodCap {
			return HyperperiodCap, true
		}
	}

	needed := 0
	for _, task := range aperiodic {
		if n := task.Release + task.Computation + aperiodicMargin; n > needed {
			needed = n
		}
	}
	if h < needed {
		extended := h
		for extended < needed && extended < HyperperiodCap {
			extended += h
		}
		h = extended
		if h > HyperperiodCap {
			h = HyperperiodCap
		}
		// still short of the aperiodic's window means the limit cut it off
		return h, h < needed
	}
	return h, false
}

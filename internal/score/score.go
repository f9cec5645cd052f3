// Package score computes the uptime score from task, energy, focus and
// break state.
package score

import (
	"math"
	"time"

	"uptime/internal/service"
)

// Score weights and bonuses.
const (
	TaskWeight        = 50
	EnergyWeight      = 25
	MaxEnergy         = 5
	BlockerPenalty    = 10
	SustainableBonus  = 10
	BreakBonus        = 15
	SustainableMinute = 120
)

// Inputs is everything the score depends on.
type Inputs struct {
	Tasks        []service.Task
	EnergyLevel  int
	FocusSeconds int64
	LastBreak    *time.Time
}

// FocusMinutes returns whole minutes of focus time.
func (in Inputs) FocusMinutes() int {
	return int(math.Floor(float64(in.FocusSeconds) / 60))
}

// HadBreak reports whether a break has been recorded.
func (in Inputs) HadBreak() bool {
	return in.LastBreak != nil
}

// Compute returns the uptime score in [0, 100].
// An empty task list always scores 0.
func Compute(in Inputs) int {
	if len(in.Tasks) == 0 {
		return 0
	}

	var completed, blockers int
	for _, t := range in.Tasks {
		if t.Completed {
			completed++
		}
		if t.Blocked() {
			blockers++
		}
	}

	taskScore := float64(completed) / float64(len(in.Tasks)) * TaskWeight
	energyScore := float64(in.EnergyLevel) / MaxEnergy * EnergyWeight
	penalty := float64(blockers * BlockerPenalty)

	var bonus float64
	if in.HadBreak() {
		bonus = BreakBonus
	} else if in.FocusMinutes() <= SustainableMinute {
		bonus = SustainableBonus
	}

	raw := taskScore + energyScore - penalty + bonus
	return clamp(int(math.Floor(raw+0.5)), 0, 100)
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

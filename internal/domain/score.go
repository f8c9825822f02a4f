package domain

import (
	"math"
	"sort"
)

// Score computes the RICE score: reach * impact * confidence / effort,
// rounded to 4 decimals. Any non-positive reach, impact, or confidence
// yields 0. Non-positive effort is treated as 1 sprint.
func Score(reach float64, impact int, confidence, effort float64) float64 {
	if reach <= 0 || impact <= 0 || confidence <= 0 {
		return 0
	}
	if effort <= 0 {
		effort = 1
	}
	raw := reach * float64(impact) * confidence / effort
	return math.Round(raw*10000) / 10000
}

// Rank returns a new slice ordered by descending score. The sort is stable,
// so equal scores keep their input order.
func Rank(items []Initiative) []Initiative {
	out := make([]Initiative, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

// Priority is the coarse bucket derived from a score.
type Priority string

const (
	PriorityHigh   Priority = "Alta"
	PriorityMedium Priority = "Media"
	PriorityLow    Priority = "Baja"
)

// PriorityFor buckets a score: High >= 2.0, Medium >= 1.0, else Low.
func PriorityFor(score float64) Priority {
	switch {
	case score >= 2.0:
		return PriorityHigh
	case score >= 1.0:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// Emoji returns the chat marker for a priority bucket.
func (p Priority) Emoji() string {
	switch p {
	case PriorityHigh:
		return "🔥"
	case PriorityMedium:
		return "⚡"
	default:
		return "💡"
	}
}

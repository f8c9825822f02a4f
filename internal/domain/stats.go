package domain

import (
	"math"
	"sort"
)

// TopK is how many leading initiatives the summary carries.
const TopK = 5

// TopInitiative is the slim view used by listings and analysis.
type TopInitiative struct {
	Name   string  `json:"name"`
	Score  float64 `json:"score"`
	Team   string  `json:"team"`
	Status string  `json:"status"`
}

// StatusCount pairs a status with how many initiatives hold it.
type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// TeamCount pairs a team with its initiative count.
type TeamCount struct {
	Team  string `json:"team"`
	Count int    `json:"count"`
}

// Summary aggregates a collection for list and analysis views.
type Summary struct {
	Total       int                `json:"total_initiatives"`
	Top         []TopInitiative    `json:"top_initiatives_by_score"`
	StatusPct   map[string]float64 `json:"statuses"`
	TopStatuses []StatusCount      `json:"top_statuses"`
	AvgScore    float64            `json:"average_score"`
	AvgReachPct float64            `json:"average_reach_pct"`
	TopTeams    []TeamCount        `json:"top_teams"`
}

// Summarize computes portfolio aggregates. Missing fields were already
// defaulted by coercion, so unknown teams/statuses count under their
// default values.
func Summarize(items []Initiative) Summary {
	s := Summary{
		Total:     len(items),
		StatusPct: map[string]float64{},
	}
	if len(items) == 0 {
		return s
	}

	ranked := Rank(items)
	top := ranked
	if len(top) > TopK {
		top = top[:TopK]
	}
	for _, ini := range top {
		s.Top = append(s.Top, TopInitiative{
			Name:   ini.Name,
			Score:  ini.Score,
			Team:   ini.Team,
			Status: ini.Status,
		})
	}

	statusCounts := map[string]int{}
	teamCounts := map[string]int{}
	var scoreSum, reachSum float64
	for _, ini := range items {
		statusCounts[ini.Status]++
		teamCounts[ini.Team]++
		scoreSum += ini.Score
		reachSum += ini.Reach
	}

	total := float64(len(items))
	for status, count := range statusCounts {
		s.StatusPct[status] = round1(float64(count) / total * 100)
		s.TopStatuses = append(s.TopStatuses, StatusCount{Status: status, Count: count})
	}
	sort.Slice(s.TopStatuses, func(i, j int) bool {
		if s.TopStatuses[i].Count != s.TopStatuses[j].Count {
			return s.TopStatuses[i].Count > s.TopStatuses[j].Count
		}
		return s.TopStatuses[i].Status < s.TopStatuses[j].Status
	})

	for team, count := range teamCounts {
		s.TopTeams = append(s.TopTeams, TeamCount{Team: team, Count: count})
	}
	sort.Slice(s.TopTeams, func(i, j int) bool {
		if s.TopTeams[i].Count != s.TopTeams[j].Count {
			return s.TopTeams[i].Count > s.TopTeams[j].Count
		}
		return s.TopTeams[i].Team < s.TopTeams[j].Team
	})

	s.AvgScore = round2(scoreSum / total)
	s.AvgReachPct = round1(reachSum / total * 100)
	return s
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }

package calendar

import (
	"cmp"
	"slices"

	"taskflow/internal/model"
)

// Period is a segment of the day used to group list entries.
type Period string

const (
	Morning   Period = "morning"
	Afternoon Period = "afternoon"
	Evening   Period = "evening"
)

// Periods lists the segments in display order.
var Periods = []Period{Morning, Afternoon, Evening}

// Classify maps t's start hour to a Period: [0,12) morning, [12,18)
// afternoon, [18,24) evening. A start time that does not parse is treated as
// evening.
func Classify(t model.Task) Period {
	hour, _, err := model.ParseClock(t.StartTime)
	switch {
	case err != nil:
		return Evening
	case hour < 12:
		return Morning
	case hour < 18:
		return Afternoon
	default:
		return Evening
	}
}

// PeriodGroup is one non-empty section of the agenda.
type PeriodGroup struct {
	Period Period       `json:"period"`
	Tasks  []model.Task `json:"tasks"`
}

// GroupByPeriod splits tasks into their periods. Within a group tasks are
// ordered by date, then start time; ties keep collection order. Empty groups
// are omitted.
func GroupByPeriod(tasks []model.Task) []PeriodGroup {
	buckets := make(map[Period][]model.Task, len(Periods))
	for _, t := range tasks {
		p := Classify(t)
		buckets[p] = append(buckets[p], t)
	}

	groups := make([]PeriodGroup, 0, len(Periods))
	for _, p := range Periods {
		ts := buckets[p]
		if len(ts) == 0 {
			continue
		}
		slices.SortStableFunc(ts, func(a, b model.Task) int {
			if c := a.Date.Compare(b.Date); c != 0 {
				return c
			}
			return cmp.Compare(a.StartTime, b.StartTime)
		})
		groups = append(groups, PeriodGroup{Period: p, Tasks: ts})
	}
	return groups
}

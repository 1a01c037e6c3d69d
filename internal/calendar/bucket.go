package calendar

import "taskflow/internal/model"

// TasksOnDate returns the tasks of collection whose date is d, in
// collection order.
func TasksOnDate(collection []model.Task, d model.Date) []model.Task {
	var out []model.Task
	for _, t := range collection {
		if t.Date == d {
			out = append(out, t)
		}
	}
	return out
}

// Index buckets a collection by date so a whole grid can be filled with one
// pass over the tasks.
type Index map[model.Date][]model.Task

func NewIndex(collection []model.Task) Index {
	idx := make(Index)
	for _, t := range collection {
		idx[t.Date] = append(idx[t.Date], t)
	}
	return idx
}

// On returns the tasks on d, in collection order.
func (idx Index) On(d model.Date) []model.Task {
	return idx[d]
}

// Between returns the tasks dated within [from, to], ordered by date and
// then by collection order.
func (idx Index) Between(from, to model.Date) []model.Task {
	var out []model.Task
	for d := from; !d.After(to); d = d.AddDays(1) {
		out = append(out, idx[d]...)
	}
	return out
}

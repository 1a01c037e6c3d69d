package task

import "taskflow/internal/model"

// Filter narrows a listing. Zero fields match everything.
type Filter struct {
	// From and To bound the task date, inclusive.
	From model.Date
	To   model.Date

	Priority model.Priority
	// Pending keeps only incomplete tasks.
	Pending bool
	// SeriesID keeps the members of one series.
	SeriesID string
	// Limit caps the result; 0 means no cap.
	Limit int
}

func (f Filter) match(t model.Task) bool {
	if !f.From.IsZero() && t.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && t.Date.After(f.To) {
		return false
	}
	if f.Priority != "" && t.Priority != f.Priority {
		return false
	}
	if f.Pending && t.Completed {
		return false
	}
	if f.SeriesID != "" && t.SeriesID() != f.SeriesID {
		return false
	}
	return true
}

// HighPriorityDigest is the filter for the "urgent" sidebar: the first five
// incomplete high-priority tasks.
var HighPriorityDigest = Filter{Priority: model.PriorityHigh, Pending: true, Limit: 5}

// Tasks returns copies of the matching tasks in collection order.
func (m *Manager) Tasks(f Filter) []model.Task {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []model.Task{}
	for _, t := range m.snap.Tasks {
		if !f.match(t) {
			continue
		}
		out = append(out, t.Clone())
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out
}

// All returns a copy of the whole collection.
func (m *Manager) All() []model.Task {
	return m.Tasks(Filter{})
}

func (m *Manager) Get(id string) (model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(id)
	if i < 0 {
		return model.Task{}, ErrNotFound
	}
	return m.snap.Tasks[i].Clone(), nil
}

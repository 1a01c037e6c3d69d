// Package task owns the task collection and the tag palette: creation with
// recurrence expansion, edits, series-aware deletion, suggestion merging and
// backup import/export. Every mutation is saved as a full snapshot.
package task

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	appLog "taskflow/internal/log"
	"taskflow/internal/model"
	"taskflow/internal/recur"
	"taskflow/internal/store"
)

const (
	DefaultTitle     = "Untitled"
	DefaultDuration  = 30
	DefaultStartTime = "09:00"
	DefaultPriority  = model.PriorityMedium
)

// Store loads and saves whole snapshots. *store.Store implements it.
type Store interface {
	Load(ctx context.Context) (store.Snapshot, error)
	Save(ctx context.Context, snap store.Snapshot) error
}

// Manager is the single owner of the collection. Methods are safe for
// concurrent use; they are serialized internally.
type Manager struct {
	mu      sync.Mutex
	store   Store
	snap    store.Snapshot
	horizon int
	newID   func() string
	now     func() time.Time
}

type Option func(*Manager)

// WithHorizon sets how many occurrences a new root expands to.
func WithHorizon(n int) Option {
	return func(m *Manager) {
		if n >= 0 {
			m.horizon = n
		}
	}
}

// WithIDGenerator replaces the uuid-based id source.
func WithIDGenerator(fn func() string) Option {
	return func(m *Manager) { m.newID = fn }
}

// WithClock replaces time.Now (used for the default date).
func WithClock(fn func() time.Time) Option {
	return func(m *Manager) { m.now = fn }
}

// NewManager loads the current snapshot from st. Load problems are logged
// and the recovered (default) state is used.
func NewManager(ctx context.Context, st Store, opts ...Option) *Manager {
	m := &Manager{
		store:   st,
		horizon: recur.DefaultHorizon,
		newID:   uuid.NewString,
		now:     time.Now,
	}
	for _, o := range opts {
		o(m)
	}

	snap, err := st.Load(ctx)
	if err != nil {
		appLog.Warn("task manager: starting from recovered snapshot", "err", err)
	}
	if snap.Tasks == nil {
		snap.Tasks = []model.Task{}
	}
	if snap.Tags == nil {
		snap.Tags = []model.TagDef{}
	}
	m.snap = snap

	appLog.Info("task manager ready", "tasks", len(snap.Tasks), "tags", len(snap.Tags), "horizon", m.horizon)
	return m
}

// draft returns a copy of the current snapshot that can be modified freely
// at the slice level.
func (m *Manager) draft() store.Snapshot {
	return store.Snapshot{
		Tasks: slices.Clone(m.snap.Tasks),
		Tags:  slices.Clone(m.snap.Tags),
	}
}

// commit saves next and makes it current. On failure the current state is
// kept unchanged.
func (m *Manager) commit(ctx context.Context, next store.Snapshot) error {
	if err := m.store.Save(ctx, next); err != nil {
		appLog.Error("task manager: snapshot save failed", err, "tasks", len(next.Tasks), "tags", len(next.Tags))
		return fmt.Errorf("save snapshot: %w", err)
	}
	m.snap = next
	return nil
}

func (m *Manager) indexOf(id string) int {
	return slices.IndexFunc(m.snap.Tasks, func(t model.Task) bool { return t.ID == id })
}

// Input is the form data for a new task. Zero fields take defaults.
type Input struct {
	Title        string              `json:"title"`
	Description  string              `json:"description,omitempty"`
	Date         model.Date          `json:"date"`
	StartTime    string              `json:"startTime,omitempty"`
	Duration     int                 `json:"duration,omitempty"`
	Priority     model.Priority      `json:"priority,omitempty"`
	Tags         []string            `json:"tags,omitempty"`
	Repeat       model.RepeatType    `json:"repeat,omitempty"`
	RepeatConfig *model.RepeatConfig `json:"repeatConfig,omitempty"`
}

// newRoot builds the task for in with defaults applied.
func (m *Manager) newRoot(id string, in Input) model.Task {
	t := model.Task{
		ID:          id,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Date:        in.Date,
		StartTime:   in.StartTime,
		Duration:    in.Duration,
		Priority:    in.Priority,
		Tags:        slices.Clone(in.Tags),
		Repeat:      in.Repeat,
	}
	if t.Title == "" {
		t.Title = DefaultTitle
	}
	if t.Date.IsZero() {
		t.Date = model.DateOf(m.now())
	}
	if t.StartTime == "" {
		t.StartTime = DefaultStartTime
	}
	if t.Duration <= 0 {
		t.Duration = DefaultDuration
	}
	if !t.Priority.Valid() {
		t.Priority = DefaultPriority
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	if !t.Repeat.Valid() {
		t.Repeat = model.RepeatNone
	}
	if t.Repeat == model.RepeatCustom && in.RepeatConfig != nil {
		rc := *in.RepeatConfig
		rc.DaysOfWeek = slices.Clone(in.RepeatConfig.DaysOfWeek)
		t.RepeatConfig = &rc
	}
	return t
}

// Create adds a new task. For a recurring task the derived occurrences are
// generated and stored in the same save. The returned slice starts with the
// new root.
func (m *Manager) Create(ctx context.Context, in Input) ([]model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var created []model.Task
	for attempt := 0; ; attempt++ {
		root := m.newRoot(m.newID(), in)
		created = append([]model.Task{root}, recur.Expand(root, m.horizon)...)
		if !m.anyExists(created) {
			break
		}
		if attempt >= 3 {
			return nil, fmt.Errorf("create task: id %q already in use", root.ID)
		}
	}

	next := m.draft()
	next.Tasks = append(next.Tasks, created...)
	if err := m.commit(ctx, next); err != nil {
		return nil, err
	}

	appLog.Info("task created",
		"id", created[0].ID,
		"date", created[0].Date.String(),
		"repeat", string(created[0].Repeat),
		"occurrences", len(created)-1,
	)
	return cloneAll(created), nil
}

func (m *Manager) anyExists(tasks []model.Task) bool {
	for _, t := range tasks {
		if m.indexOf(t.ID) >= 0 {
			return true
		}
	}
	return false
}

// Patch is a partial update. nil fields are left unchanged.
type Patch struct {
	Title        *string             `json:"title,omitempty"`
	Description  *string             `json:"description,omitempty"`
	Date         *model.Date         `json:"date,omitempty"`
	StartTime    *string             `json:"startTime,omitempty"`
	Duration     *int                `json:"duration,omitempty"`
	Completed    *bool               `json:"completed,omitempty"`
	Priority     *model.Priority     `json:"priority,omitempty"`
	Tags         *[]string           `json:"tags,omitempty"`
	Repeat       *model.RepeatType   `json:"repeat,omitempty"`
	RepeatConfig *model.RepeatConfig `json:"repeatConfig,omitempty"`
}

func applyPatch(t *model.Task, p Patch) {
	if p.Title != nil {
		t.Title = strings.TrimSpace(*p.Title)
		if t.Title == "" {
			t.Title = DefaultTitle
		}
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Date != nil && !p.Date.IsZero() {
		t.Date = *p.Date
	}
	if p.StartTime != nil && *p.StartTime != "" {
		t.StartTime = *p.StartTime
	}
	if p.Duration != nil && *p.Duration > 0 {
		t.Duration = *p.Duration
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	if p.Priority != nil && p.Priority.Valid() {
		t.Priority = *p.Priority
	}
	if p.Tags != nil {
		t.Tags = slices.Clone(*p.Tags)
		if t.Tags == nil {
			t.Tags = []string{}
		}
	}
	if p.Repeat != nil && p.Repeat.Valid() {
		t.Repeat = *p.Repeat
	}
	if p.RepeatConfig != nil {
		rc := *p.RepeatConfig
		rc.DaysOfWeek = slices.Clone(p.RepeatConfig.DaysOfWeek)
		t.RepeatConfig = &rc
	}
	if t.Repeat != model.RepeatCustom {
		t.RepeatConfig = nil
	}
}

// Update changes the fields of exactly one task. Other members of its
// series are not touched, and occurrences are not regenerated even when the
// date or repeat rule changes.
func (m *Manager) Update(ctx context.Context, id string, p Patch) (model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(id)
	if i < 0 {
		return model.Task{}, ErrNotFound
	}

	next := m.draft()
	t := next.Tasks[i].Clone()
	applyPatch(&t, p)
	next.Tasks[i] = t
	if err := m.commit(ctx, next); err != nil {
		return model.Task{}, err
	}

	appLog.Info("task updated", "id", id)
	return t.Clone(), nil
}

// ToggleCompletion flips Completed on the addressed task only.
func (m *Manager) ToggleCompletion(ctx context.Context, id string) (model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(id)
	if i < 0 {
		return model.Task{}, ErrNotFound
	}

	next := m.draft()
	t := next.Tasks[i].Clone()
	t.Completed = !t.Completed
	next.Tasks[i] = t
	if err := m.commit(ctx, next); err != nil {
		return model.Task{}, err
	}

	appLog.Debug("task toggled", "id", id, "completed", t.Completed)
	return t.Clone(), nil
}

// DeleteScope says how much of a series a deletion removes.
type DeleteScope int

const (
	// ScopeUnspecified is only valid for tasks outside any series.
	ScopeUnspecified DeleteScope = iota
	// ScopeSingle removes only the addressed task.
	ScopeSingle
	// ScopeSeries removes the root and every occurrence sharing its id.
	ScopeSeries
)

func ParseDeleteScope(s string) (DeleteScope, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return ScopeUnspecified, nil
	case "single", "one", "this":
		return ScopeSingle, nil
	case "series", "all":
		return ScopeSeries, nil
	}
	return ScopeUnspecified, fmt.Errorf("unknown delete scope %q", s)
}

func (s DeleteScope) String() string {
	switch s {
	case ScopeSingle:
		return "single"
	case ScopeSeries:
		return "series"
	default:
		return "unspecified"
	}
}

// InSeries reports whether deleting id needs a scope choice: id is a
// derived occurrence, or a root that still has occurrences.
func (m *Manager) InSeries(id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(id)
	if i < 0 {
		return false, ErrNotFound
	}
	return m.inSeries(m.snap.Tasks[i]), nil
}

func (m *Manager) inSeries(t model.Task) bool {
	if t.IsDerived() {
		return true
	}
	return slices.ContainsFunc(m.snap.Tasks, func(o model.Task) bool { return o.ParentID == t.ID })
}

// Delete removes a task and returns the removed ids in collection order.
// Series members require ScopeSingle or ScopeSeries, otherwise
// ErrScopeRequired is returned and nothing changes. Tasks outside any series
// are removed regardless of scope.
func (m *Manager) Delete(ctx context.Context, id string, scope DeleteScope) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(id)
	if i < 0 {
		return nil, ErrNotFound
	}
	target := m.snap.Tasks[i]

	remove := func(t model.Task) bool { return t.ID == id }
	if m.inSeries(target) {
		switch scope {
		case ScopeSeries:
			rootID := target.SeriesID()
			remove = func(t model.Task) bool { return t.ID == rootID || t.ParentID == rootID }
		case ScopeSingle:
		default:
			return nil, ErrScopeRequired
		}
	}

	next := m.draft()
	var removed []string
	kept := next.Tasks[:0]
	for _, t := range next.Tasks {
		if remove(t) {
			removed = append(removed, t.ID)
			continue
		}
		kept = append(kept, t)
	}
	next.Tasks = kept
	if err := m.commit(ctx, next); err != nil {
		return nil, err
	}

	appLog.Info("task deleted", "id", id, "scope", scope.String(), "removed", len(removed))
	return removed, nil
}

// ApplySuggestions overwrites StartTime on tasks whose id matches a
// suggestion. Unknown ids and unparsable times are skipped; no other field
// changes. It returns how many tasks changed; nothing is saved when none did.
func (m *Manager) ApplySuggestions(ctx context.Context, suggestions []model.Suggestion) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	byID := make(map[string]string, len(suggestions))
	for _, s := range suggestions {
		if _, _, err := model.ParseClock(s.StartTime); err != nil {
			appLog.Warn("suggestion skipped: bad start time", "id", s.ID, "start_time", s.StartTime)
			continue
		}
		byID[s.ID] = s.StartTime
	}

	next := m.draft()
	applied := 0
	for i, t := range next.Tasks {
		start, ok := byID[t.ID]
		if !ok {
			continue
		}
		t = t.Clone()
		t.StartTime = start
		next.Tasks[i] = t
		applied++
	}
	if applied == 0 {
		return 0, nil
	}
	if err := m.commit(ctx, next); err != nil {
		return 0, err
	}

	appLog.Info("suggestions applied", "received", len(suggestions), "applied", applied)
	return applied, nil
}

func cloneAll(tasks []model.Task) []model.Task {
	out := make([]model.Task, len(tasks))
	for i, t := range tasks {
		out[i] = t.Clone()
	}
	return out
}

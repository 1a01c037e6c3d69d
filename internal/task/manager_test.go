package task

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskflow/internal/model"
	"taskflow/internal/store"
)

var fixedNow = time.Date(2024, time.March, 13, 10, 0, 0, 0, time.UTC)

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("t%d", n)
	}
}

type env struct {
	backend *store.MemoryBackend
	store   *store.Store
	mgr     *Manager
}

func newEnv(t *testing.T, opts ...Option) env {
	t.Helper()
	b := store.NewMemoryBackend()
	st := store.New(b)
	opts = append([]Option{WithIDGenerator(seqIDs()), WithClock(func() time.Time { return fixedNow })}, opts...)
	return env{backend: b, store: st, mgr: NewManager(context.Background(), st, opts...)}
}

func (e env) persisted(t *testing.T) store.Snapshot {
	t.Helper()
	snap, err := e.store.Load(context.Background())
	require.NoError(t, err)
	return snap
}

func ids(tasks []model.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.ID)
	}
	return out
}

func TestNewManager_FreshStoreHasStarterPalette(t *testing.T) {
	e := newEnv(t)

	assert.Empty(t, e.mgr.All())
	assert.Equal(t, model.StarterTags(), e.mgr.Tags())
}

func TestNewManager_CorruptStoreRecovers(t *testing.T) {
	b := store.NewMemoryBackend()
	b.Set(store.TasksRecord, []byte(`[{"id":`))
	mgr := NewManager(context.Background(), store.New(b))

	assert.Empty(t, mgr.All())
	assert.Equal(t, model.StarterTags(), mgr.Tags())
}

func TestCreate_AppliesDefaults(t *testing.T) {
	e := newEnv(t)

	created, err := e.mgr.Create(context.Background(), Input{Title: "  "})
	require.NoError(t, err)
	require.Len(t, created, 1)

	got := created[0]
	assert.Equal(t, "t1", got.ID)
	assert.Equal(t, DefaultTitle, got.Title)
	assert.Equal(t, model.DateOf(fixedNow), got.Date)
	assert.Equal(t, DefaultStartTime, got.StartTime)
	assert.Equal(t, DefaultDuration, got.Duration)
	assert.Equal(t, model.PriorityMedium, got.Priority)
	assert.Equal(t, model.RepeatNone, got.Repeat)
	assert.NotNil(t, got.Tags)
	assert.False(t, got.Completed)
	assert.Empty(t, got.ParentID)
	assert.Nil(t, got.RepeatConfig)

	assert.Equal(t, []string{"t1"}, ids(e.persisted(t).Tasks))
}

func TestCreate_DropsRepeatConfigUnlessCustom(t *testing.T) {
	e := newEnv(t)

	created, err := e.mgr.Create(context.Background(), Input{
		Title:        "Weekly review",
		Date:         model.Date{Year: 2024, Month: time.March, Day: 1},
		Repeat:       model.RepeatWeekly,
		RepeatConfig: &model.RepeatConfig{Interval: 3, Unit: model.UnitDay},
	})
	require.NoError(t, err)
	for _, task := range created {
		assert.Nil(t, task.RepeatConfig)
	}
}

func TestCreate_RecurringExpandsInOneSave(t *testing.T) {
	e := newEnv(t)
	start := model.Date{Year: 2024, Month: time.January, Day: 31}

	created, err := e.mgr.Create(context.Background(), Input{
		Title:    "Rent",
		Date:     start,
		Priority: model.PriorityHigh,
		Tags:     []string{"Personal"},
		Repeat:   model.RepeatMonthly,
	})
	require.NoError(t, err)
	require.Len(t, created, 13)

	root := created[0]
	assert.Equal(t, "t1", root.ID)
	assert.Empty(t, root.ParentID)
	for i, occ := range created[1:] {
		assert.Equal(t, fmt.Sprintf("t1-rec-%d", i+1), occ.ID)
		assert.Equal(t, "t1", occ.ParentID)
		assert.Equal(t, start.AddMonths(i+1), occ.Date)
		assert.Equal(t, model.PriorityHigh, occ.Priority)
	}

	assert.Len(t, e.persisted(t).Tasks, 13)
}

func TestCreate_HorizonOption(t *testing.T) {
	e := newEnv(t, WithHorizon(3))

	created, err := e.mgr.Create(context.Background(), Input{Title: "Water plants", Repeat: model.RepeatDaily})
	require.NoError(t, err)
	assert.Len(t, created, 4)
}

func TestCreate_CustomWithoutConfigHasNoOccurrences(t *testing.T) {
	e := newEnv(t)

	created, err := e.mgr.Create(context.Background(), Input{Title: "Odd", Repeat: model.RepeatCustom})
	require.NoError(t, err)
	assert.Len(t, created, 1)

	inSeries, err := e.mgr.InSeries(created[0].ID)
	require.NoError(t, err)
	assert.False(t, inSeries)
}

func TestCreate_RegeneratesCollidingID(t *testing.T) {
	gen := []string{"dup", "dup", "fresh"}
	n := 0
	e := newEnv(t, WithIDGenerator(func() string {
		id := gen[n]
		n++
		return id
	}))
	ctx := context.Background()

	_, err := e.mgr.Create(ctx, Input{Title: "first"})
	require.NoError(t, err)
	created, err := e.mgr.Create(ctx, Input{Title: "second"})
	require.NoError(t, err)
	assert.Equal(t, "fresh", created[0].ID)
}

func TestCreate_SaveFailureKeepsState(t *testing.T) {
	e := newEnv(t)
	e.backend.PutErr = errors.New("quota exceeded")

	_, err := e.mgr.Create(context.Background(), Input{Title: "x", Repeat: model.RepeatDaily})
	require.ErrorIs(t, err, e.backend.PutErr)
	assert.Empty(t, e.mgr.All())
}

func TestUpdate_OnlyAddressedTask(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	created, err := e.mgr.Create(ctx, Input{
		Title: "Class", Date: model.Date{Year: 2024, Month: time.March, Day: 4}, Repeat: model.RepeatWeekly,
	})
	require.NoError(t, err)

	title := "Class (moved)"
	newDate := model.Date{Year: 2024, Month: time.March, Day: 5}
	repeat := model.RepeatDaily
	updated, err := e.mgr.Update(ctx, "t1", Patch{Title: &title, Date: &newDate, Repeat: &repeat})
	require.NoError(t, err)

	assert.Equal(t, "t1", updated.ID)
	assert.Equal(t, title, updated.Title)
	assert.Equal(t, newDate, updated.Date)
	assert.Equal(t, model.RepeatDaily, updated.Repeat)

	all := e.mgr.All()
	require.Len(t, all, len(created))
	for i, occ := range all[1:] {
		assert.Equal(t, created[i+1], occ, "occurrence must not change")
	}
}

func TestUpdate_IgnoresInvalidValues(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, err := e.mgr.Create(ctx, Input{Title: "Read", Priority: model.PriorityLow})
	require.NoError(t, err)

	bad := model.Priority("urgent")
	zero := 0
	empty := ""
	got, err := e.mgr.Update(ctx, "t1", Patch{Priority: &bad, Duration: &zero, Title: &empty})
	require.NoError(t, err)
	assert.Equal(t, model.PriorityLow, got.Priority)
	assert.Equal(t, DefaultDuration, got.Duration)
	assert.Equal(t, DefaultTitle, got.Title)
}

func TestUpdate_NotFound(t *testing.T) {
	e := newEnv(t)
	_, err := e.mgr.Update(context.Background(), "missing", Patch{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestToggleCompletion_NeverCascades(t *testing.T) {
	e := newEnv(t, WithHorizon(3))
	ctx := context.Background()
	_, err := e.mgr.Create(ctx, Input{Title: "Run", Repeat: model.RepeatDaily})
	require.NoError(t, err)

	got, err := e.mgr.ToggleCompletion(ctx, "t1-rec-2")
	require.NoError(t, err)
	assert.True(t, got.Completed)

	for _, task := range e.mgr.All() {
		assert.Equal(t, task.ID == "t1-rec-2", task.Completed, task.ID)
	}

	got, err = e.mgr.ToggleCompletion(ctx, "t1-rec-2")
	require.NoError(t, err)
	assert.False(t, got.Completed)

	_, err = e.mgr.ToggleCompletion(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func seriesEnv(t *testing.T) env {
	t.Helper()
	e := newEnv(t, WithHorizon(3))
	ctx := context.Background()
	_, err := e.mgr.Create(ctx, Input{Title: "before"})
	require.NoError(t, err)
	_, err = e.mgr.Create(ctx, Input{Title: "series", Repeat: model.RepeatWeekly})
	require.NoError(t, err)
	_, err = e.mgr.Create(ctx, Input{Title: "after"})
	require.NoError(t, err)
	require.Equal(t, []string{"t1", "t2", "t2-rec-1", "t2-rec-2", "t2-rec-3", "t3"}, ids(e.mgr.All()))
	return e
}

func TestDelete_SeriesRequiresScope(t *testing.T) {
	e := seriesEnv(t)

	for _, id := range []string{"t2", "t2-rec-2"} {
		_, err := e.mgr.Delete(context.Background(), id, ScopeUnspecified)
		assert.ErrorIs(t, err, ErrScopeRequired, id)
	}
	assert.Len(t, e.mgr.All(), 6)
}

func TestDelete_RootSeries(t *testing.T) {
	e := seriesEnv(t)

	removed, err := e.mgr.Delete(context.Background(), "t2", ScopeSeries)
	require.NoError(t, err)
	assert.Equal(t, []string{"t2", "t2-rec-1", "t2-rec-2", "t2-rec-3"}, removed)
	assert.Equal(t, []string{"t1", "t3"}, ids(e.mgr.All()))
	assert.Equal(t, []string{"t1", "t3"}, ids(e.persisted(t).Tasks))
}

func TestDelete_OccurrenceSeries(t *testing.T) {
	e := seriesEnv(t)

	removed, err := e.mgr.Delete(context.Background(), "t2-rec-3", ScopeSeries)
	require.NoError(t, err)
	assert.Len(t, removed, 4)
	assert.Equal(t, []string{"t1", "t3"}, ids(e.mgr.All()))
}

func TestDelete_SingleOccurrence(t *testing.T) {
	e := seriesEnv(t)

	removed, err := e.mgr.Delete(context.Background(), "t2-rec-2", ScopeSingle)
	require.NoError(t, err)
	assert.Equal(t, []string{"t2-rec-2"}, removed)
	assert.Equal(t, []string{"t1", "t2", "t2-rec-1", "t2-rec-3", "t3"}, ids(e.mgr.All()))
}

func TestDelete_SingleRootKeepsOccurrences(t *testing.T) {
	e := seriesEnv(t)
	ctx := context.Background()

	removed, err := e.mgr.Delete(ctx, "t2", ScopeSingle)
	require.NoError(t, err)
	assert.Equal(t, []string{"t2"}, removed)

	// orphans still form a series through their parent id
	inSeries, err := e.mgr.InSeries("t2-rec-1")
	require.NoError(t, err)
	assert.True(t, inSeries)

	removed, err = e.mgr.Delete(ctx, "t2-rec-1", ScopeSeries)
	require.NoError(t, err)
	assert.Equal(t, []string{"t2-rec-1", "t2-rec-2", "t2-rec-3"}, removed)
}

func TestDelete_PlainTaskIgnoresScope(t *testing.T) {
	e := seriesEnv(t)

	removed, err := e.mgr.Delete(context.Background(), "t3", ScopeUnspecified)
	require.NoError(t, err)
	assert.Equal(t, []string{"t3"}, removed)

	removed, err = e.mgr.Delete(context.Background(), "t1", ScopeSeries)
	require.NoError(t, err)
	assert.Equal(t, []string{"t1"}, removed)
}

func TestDelete_NotFound(t *testing.T) {
	e := newEnv(t)
	_, err := e.mgr.Delete(context.Background(), "x", ScopeSingle)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete_SaveFailureKeepsTasks(t *testing.T) {
	e := seriesEnv(t)
	e.backend.PutErr = errors.New("read-only")

	_, err := e.mgr.Delete(context.Background(), "t2", ScopeSeries)
	require.Error(t, err)
	assert.Len(t, e.mgr.All(), 6)
}

func TestParseDeleteScope(t *testing.T) {
	for in, want := range map[string]DeleteScope{"": ScopeUnspecified, "single": ScopeSingle, "SERIES": ScopeSeries, "all": ScopeSeries} {
		got, err := ParseDeleteScope(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseDeleteScope("future")
	assert.Error(t, err)
}

func TestApplySuggestions(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, err := e.mgr.Create(ctx, Input{
		Title: "Deep work", Date: model.Date{Year: 2024, Month: time.March, Day: 1},
		StartTime: "09:00", Priority: model.PriorityHigh, Tags: []string{"Work"},
	})
	require.NoError(t, err)
	before, err := e.mgr.Get("t1")
	require.NoError(t, err)

	n, err := e.mgr.ApplySuggestions(ctx, []model.Suggestion{{ID: "t1", StartTime: "10:00", Explanation: "focus"}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	after, err := e.mgr.Get("t1")
	require.NoError(t, err)
	assert.Equal(t, "10:00", after.StartTime)
	after.StartTime = before.StartTime
	assert.Equal(t, before, after, "only startTime may change")
}

func TestApplySuggestions_UnknownAndInvalidIgnored(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, err := e.mgr.Create(ctx, Input{Title: "a", StartTime: "09:00"})
	require.NoError(t, err)
	before := e.mgr.All()

	n, err := e.mgr.ApplySuggestions(ctx, []model.Suggestion{
		{ID: "zz", StartTime: "10:00"},
		{ID: "t1", StartTime: "late"},
	})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, before, e.mgr.All())

	n, err = e.mgr.ApplySuggestions(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

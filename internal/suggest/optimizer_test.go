package suggest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskflow/internal/model"
	"taskflow/internal/store"
	"taskflow/internal/task"
)

type suggesterFunc func(ctx context.Context, date model.Date, tasks []model.Task) ([]model.Suggestion, error)

func (f suggesterFunc) Suggest(ctx context.Context, date model.Date, tasks []model.Task) ([]model.Suggestion, error) {
	return f(ctx, date, tasks)
}

func newManager(t *testing.T) *task.Manager {
	t.Helper()
	ctx := context.Background()
	mgr := task.NewManager(ctx, store.New(store.NewMemoryBackend()))
	_, err := mgr.Create(ctx, task.Input{Title: "Deep work", Date: refDate, StartTime: "09:00", Priority: model.PriorityHigh})
	require.NoError(t, err)
	return mgr
}

func TestOptimizerRun(t *testing.T) {
	mgr := newManager(t)
	id := mgr.All()[0].ID

	var sent []model.Task
	opt := NewOptimizer(suggesterFunc(func(_ context.Context, date model.Date, tasks []model.Task) ([]model.Suggestion, error) {
		assert.Equal(t, refDate, date)
		sent = tasks
		return []model.Suggestion{{ID: id, StartTime: "10:00"}, {ID: "zz", StartTime: "11:00"}}, nil
	}), mgr)

	res, err := opt.Run(context.Background(), refDate)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Applied)
	assert.Len(t, res.Suggestions, 2)
	assert.Len(t, sent, 1)

	got, err := mgr.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "10:00", got.StartTime)
	assert.Equal(t, model.PriorityHigh, got.Priority)
	assert.Equal(t, refDate, got.Date)
	assert.False(t, opt.Busy())
}

func TestOptimizerRun_FailureLeavesCollection(t *testing.T) {
	cases := map[string]suggesterFunc{
		"error": func(context.Context, model.Date, []model.Task) ([]model.Suggestion, error) {
			return nil, errors.New("service down")
		},
		"empty": func(context.Context, model.Date, []model.Task) ([]model.Suggestion, error) {
			return nil, nil
		},
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			mgr := newManager(t)
			before := mgr.All()

			_, err := NewOptimizer(src, mgr).Run(context.Background(), refDate)
			require.Error(t, err)
			if name == "empty" {
				assert.ErrorIs(t, err, ErrNoSuggestions)
			}
			assert.Equal(t, before, mgr.All())
		})
	}
}

func TestOptimizerRun_Busy(t *testing.T) {
	mgr := newManager(t)
	release := make(chan struct{})
	entered := make(chan struct{})

	opt := NewOptimizer(suggesterFunc(func(context.Context, model.Date, []model.Task) ([]model.Suggestion, error) {
		close(entered)
		<-release
		return nil, nil
	}), mgr)

	done := make(chan error, 1)
	go func() {
		_, err := opt.Run(context.Background(), refDate)
		done <- err
	}()

	select {
	case <-entered:
	case <-time.After(time.Second):
		t.Fatal("first run did not start")
	}
	assert.True(t, opt.Busy())

	_, err := opt.Run(context.Background(), refDate)
	assert.ErrorIs(t, err, ErrBusy)

	close(release)
	assert.ErrorIs(t, <-done, ErrNoSuggestions)
	assert.False(t, opt.Busy())
}

package suggest

import (
	"context"
	"sync/atomic"

	appLog "taskflow/internal/log"
	"taskflow/internal/model"
)

// Suggester produces start time proposals. *Client implements it.
type Suggester interface {
	Suggest(ctx context.Context, date model.Date, tasks []model.Task) ([]model.Suggestion, error)
}

// Applier is the collection being optimized. *task.Manager implements it.
type Applier interface {
	All() []model.Task
	ApplySuggestions(ctx context.Context, suggestions []model.Suggestion) (int, error)
}

// Result summarizes one optimization run.
type Result struct {
	Suggestions []model.Suggestion `json:"suggestions"`
	Applied     int                `json:"applied"`
}

// Optimizer runs at most one suggestion round trip at a time.
type Optimizer struct {
	src  Suggester
	dst  Applier
	busy atomic.Bool
}

func NewOptimizer(src Suggester, dst Applier) *Optimizer {
	return &Optimizer{src: src, dst: dst}
}

// Busy reports whether a run is in flight.
func (o *Optimizer) Busy() bool {
	return o.busy.Load()
}

// Run sends the whole collection to the service and applies the answer.
// A failed or empty answer leaves the collection unchanged. Concurrent calls
// fail fast with ErrBusy.
func (o *Optimizer) Run(ctx context.Context, date model.Date) (Result, error) {
	if !o.busy.CompareAndSwap(false, true) {
		return Result{}, ErrBusy
	}
	defer o.busy.Store(false)

	tasks := o.dst.All()
	suggestions, err := o.src.Suggest(ctx, date, tasks)
	if err != nil {
		appLog.Error("optimize failed", err, "tasks", len(tasks))
		return Result{}, err
	}
	if len(suggestions) == 0 {
		appLog.Warn("optimize: service returned no suggestions", "tasks", len(tasks))
		return Result{}, ErrNoSuggestions
	}

	applied, err := o.dst.ApplySuggestions(ctx, suggestions)
	if err != nil {
		return Result{}, err
	}
	return Result{Suggestions: suggestions, Applied: applied}, nil
}

package ics

import (
	"context"
	"fmt"
	"time"

	appLog "taskflow/internal/log"
	"taskflow/internal/model"
	"taskflow/internal/task"
)

// Creator adds tasks. *task.Manager implements it.
type Creator interface {
	Create(ctx context.Context, in task.Input) ([]model.Task, error)
}

// ImportSummary reports what an import added.
type ImportSummary struct {
	Events  int `json:"events"`
	Created int `json:"created"`
	Tasks   int `json:"tasks"` // roots plus generated occurrences
}

// Importer turns calendar feeds into tasks.
type Importer struct {
	fetcher *Fetcher
	dst     Creator
	loc     *time.Location
}

func NewImporter(fetcher *Fetcher, dst Creator, loc *time.Location) *Importer {
	if loc == nil {
		loc = time.Local
	}
	return &Importer{fetcher: fetcher, dst: dst, loc: loc}
}

// ImportBody parses an uploaded calendar and creates one task per event.
// Creation stops at the first failing save; tasks created before it stay.
func (im *Importer) ImportBody(ctx context.Context, body []byte) (ImportSummary, error) {
	events, err := ParseICS(body, im.loc)
	if err != nil {
		return ImportSummary{}, err
	}

	sum := ImportSummary{Events: len(events)}
	for _, ev := range events {
		created, err := im.dst.Create(ctx, ev.Input)
		if err != nil {
			return sum, fmt.Errorf("import event %q: %w", ev.UID, err)
		}
		sum.Created++
		sum.Tasks += len(created)
	}

	appLog.Info("ics import completed", "events", sum.Events, "created", sum.Created, "tasks", sum.Tasks)
	return sum, nil
}

// ImportURL fetches a feed and imports it.
func (im *Importer) ImportURL(ctx context.Context, rawURL string) (ImportSummary, error) {
	res, err := im.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return ImportSummary{}, err
	}
	return im.ImportBody(ctx, res.Body)
}

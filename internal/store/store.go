// Package store persists the task collection and the tag palette as two
// whole-document JSON records.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	appLog "taskflow/internal/log"
	"taskflow/internal/model"
)

// Record names.
const (
	TasksRecord = "taskflow_tasks"
	TagsRecord  = "taskflow_tags"
)

// ErrNotFound is returned by a Backend when a record has never been written.
var ErrNotFound = errors.New("record not found")

// Backend holds named records.
type Backend interface {
	// Get returns the record body, or ErrNotFound.
	Get(ctx context.Context, name string) ([]byte, error)
	// Put writes all given records.
	Put(ctx context.Context, records map[string][]byte) error
	Close() error
}

// Snapshot is the full persisted state.
type Snapshot struct {
	Tasks []model.Task   `json:"tasks"`
	Tags  []model.TagDef `json:"tags"`
}

// DefaultSnapshot is what a fresh install starts with: no tasks and the
// starter palette.
func DefaultSnapshot() Snapshot {
	return Snapshot{
		Tasks: []model.Task{},
		Tags:  model.StarterTags(),
	}
}

// Store reads and writes Snapshots through a Backend.
type Store struct {
	backend Backend
}

func New(b Backend) *Store {
	return &Store{backend: b}
}

// Load always returns a usable snapshot. Each record that is missing or does
// not decode is replaced by its default; a non-nil error describes the
// records that were unreadable (a missing record is not an error).
func (s *Store) Load(ctx context.Context) (Snapshot, error) {
	snap := DefaultSnapshot()
	var errs []error

	if data, err := s.backend.Get(ctx, TasksRecord); err == nil {
		var tasks []model.Task
		if err := json.Unmarshal(data, &tasks); err != nil {
			errs = append(errs, fmt.Errorf("decode %s: %w", TasksRecord, err))
		} else if tasks != nil {
			warnUnknownUnits(tasks)
			snap.Tasks = tasks
		}
	} else if !errors.Is(err, ErrNotFound) {
		errs = append(errs, fmt.Errorf("read %s: %w", TasksRecord, err))
	}

	if data, err := s.backend.Get(ctx, TagsRecord); err == nil {
		tags, err := model.DecodeTags(data)
		if err != nil {
			errs = append(errs, fmt.Errorf("decode %s: %w", TagsRecord, err))
		} else if tags != nil {
			snap.Tags = tags
		}
	} else if !errors.Is(err, ErrNotFound) {
		errs = append(errs, fmt.Errorf("read %s: %w", TagsRecord, err))
	}

	err := errors.Join(errs...)
	if err != nil {
		appLog.Error("store: recovered with defaults", err)
	}
	appLog.Debug("store: loaded", "tasks", len(snap.Tasks), "tags", len(snap.Tags))
	return snap, err
}

// warnUnknownUnits logs custom rules whose unit expansion does not know.
// The tasks are kept as stored.
func warnUnknownUnits(tasks []model.Task) {
	for _, t := range tasks {
		if rc := t.RepeatConfig; rc != nil && !rc.Unit.Valid() {
			appLog.Warn("store: task has unknown repeat unit", "id", t.ID, "unit", string(rc.Unit))
		}
	}
}

// Save writes both records.
func (s *Store) Save(ctx context.Context, snap Snapshot) error {
	tasks := snap.Tasks
	if tasks == nil {
		tasks = []model.Task{}
	}
	tags := snap.Tags
	if tags == nil {
		tags = []model.TagDef{}
	}

	tasksData, err := json.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("encode %s: %w", TasksRecord, err)
	}
	tagsData, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("encode %s: %w", TagsRecord, err)
	}

	return s.backend.Put(ctx, map[string][]byte{
		TasksRecord: tasksData,
		TagsRecord:  tagsData,
	})
}

func (s *Store) Close() error {
	return s.backend.Close()
}

// Open builds a Store for the given kind: "json" (files under dir),
// "sqlite" (a database file under dir) or "memory".
func Open(kind, dir string) (*Store, error) {
	switch kind {
	case "", "json":
		b, err := NewFileBackend(dir)
		if err != nil {
			return nil, err
		}
		return New(b), nil
	case "sqlite":
		b, err := OpenSQLite(sqlitePath(dir))
		if err != nil {
			return nil, err
		}
		return New(b), nil
	case "memory":
		return New(NewMemoryBackend()), nil
	default:
		return nil, fmt.Errorf("unknown store kind %q", kind)
	}
}

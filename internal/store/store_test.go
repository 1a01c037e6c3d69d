package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskflow/internal/model"
)

func sampleSnapshot() Snapshot {
	return Snapshot{
		Tasks: []model.Task{
			{
				ID: "a1", Title: "Gym", Date: model.Date{Year: 2024, Month: time.March, Day: 1},
				StartTime: "07:30", Duration: 45, Priority: model.PriorityHigh,
				Tags: []string{"Health"}, Repeat: model.RepeatWeekly,
			},
			{
				ID: "a1-rec-1", Title: "Gym", Date: model.Date{Year: 2024, Month: time.March, Day: 8},
				StartTime: "07:30", Duration: 45, Priority: model.PriorityHigh,
				Tags: []string{"Health"}, Repeat: model.RepeatWeekly, ParentID: "a1",
			},
		},
		Tags: []model.TagDef{{ID: "h", Name: "Health", Color: "#f00"}},
	}
}

func backends(t *testing.T) map[string]Backend {
	t.Helper()
	fileB, err := NewFileBackend(filepath.Join(t.TempDir(), "data"))
	require.NoError(t, err)
	sqlB, err := OpenSQLite(filepath.Join(t.TempDir(), "taskflow.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlB.Close() })

	return map[string]Backend{
		"memory": NewMemoryBackend(),
		"file":   fileB,
		"sqlite": sqlB,
	}
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := New(b)
			want := sampleSnapshot()

			require.NoError(t, s.Save(ctx, want))
			got, err := s.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, want, got)

			// overwrite replaces the whole document
			want.Tasks = want.Tasks[:1]
			require.NoError(t, s.Save(ctx, want))
			got, err = s.Load(ctx)
			require.NoError(t, err)
			assert.Len(t, got.Tasks, 1)
		})
	}
}

func TestStore_LoadMissingUsesDefaults(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			got, err := New(b).Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, DefaultSnapshot(), got)
			assert.NotNil(t, got.Tasks)
			assert.NotEmpty(t, got.Tags)
		})
	}
}

func TestStore_LoadCorruptRecoversPerRecord(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()
	b.Set(TasksRecord, []byte(`{not json`))
	b.Set(TagsRecord, []byte(`[{"id":"x","name":"Errands","color":"#000"}]`))

	got, err := New(b).Load(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), TasksRecord)
	assert.Empty(t, got.Tasks)
	assert.Equal(t, []model.TagDef{{ID: "x", Name: "Errands", Color: "#000"}}, got.Tags)

	b.Set(TasksRecord, []byte(`[]`))
	b.Set(TagsRecord, []byte(`42`))
	got, err = New(b).Load(ctx)
	require.Error(t, err)
	assert.Equal(t, model.StarterTags(), got.Tags)
}

func TestStore_LoadKeepsTaskWithUnknownRepeatUnit(t *testing.T) {
	b := NewMemoryBackend()
	b.Set(TasksRecord, []byte(`[
		{"id":"a","title":"Plain","date":"2024-03-01","startTime":"09:00","duration":30,"priority":"low","tags":[],"repeat":"none"},
		{"id":"b","title":"Yearly","date":"2024-03-02","startTime":"10:00","duration":30,"priority":"low","tags":[],
		 "repeat":"custom","repeatConfig":{"interval":1,"unit":"year"}}
	]`))

	got, err := New(b).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, got.Tasks, 2)
	assert.Equal(t, "a", got.Tasks[0].ID)
	assert.Equal(t, "b", got.Tasks[1].ID)
	require.NotNil(t, got.Tasks[1].RepeatConfig)
	assert.Equal(t, model.RepeatUnit("year"), got.Tasks[1].RepeatConfig.Unit)
}

func TestStore_LoadLegacyTagNames(t *testing.T) {
	b := NewMemoryBackend()
	b.Set(TagsRecord, []byte(`["Trabalho","Pessoal"]`))

	got, err := New(b).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, got.Tags, 2)
	assert.Equal(t, "Pessoal", got.Tags[1].Name)
}

func TestStore_EmptyPaletteStaysEmpty(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryBackend())

	require.NoError(t, s.Save(ctx, Snapshot{}))
	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got.Tags)
	assert.NotNil(t, got.Tasks)
}

func TestStore_SavePropagatesBackendError(t *testing.T) {
	b := NewMemoryBackend()
	b.PutErr = errors.New("disk full")

	err := New(b).Save(context.Background(), sampleSnapshot())
	assert.ErrorIs(t, err, b.PutErr)
	assert.Empty(t, b.Names())
}

func TestFileBackend_WritesNamedFiles(t *testing.T) {
	dir := t.TempDir()
	b, err := NewFileBackend(dir)
	require.NoError(t, err)

	require.NoError(t, New(b).Save(context.Background(), sampleSnapshot()))

	for _, name := range []string{TasksRecord, TagsRecord} {
		info, err := os.Stat(filepath.Join(dir, name+".json"))
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}

	leftovers, err := filepath.Glob(filepath.Join(dir, ".taskflow-*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	for _, kind := range []string{"", "json", "sqlite", "memory"} {
		s, err := Open(kind, dir)
		require.NoError(t, err, kind)
		require.NoError(t, s.Close())
	}

	_, err := Open("redis", dir)
	assert.Error(t, err)
}

package backup

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskflow/internal/store"
	"taskflow/internal/task"
)

type exporterFunc func(w io.Writer) error

func (f exporterFunc) Export(w io.Writer) error { return f(w) }

func fixedExporter(body string) Exporter {
	return exporterFunc(func(w io.Writer) error {
		_, err := io.WriteString(w, body)
		return err
	})
}

func stepClock(start time.Time) func() time.Time {
	n := 0
	return func() time.Time {
		n++
		return start.Add(time.Duration(n) * time.Minute)
	}
}

func TestRunOnceWritesManagerExport(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	mgr := task.NewManager(ctx, store.New(store.NewMemoryBackend()))
	_, err := mgr.Create(ctx, task.Input{Title: "Backup me"})
	require.NoError(t, err)

	s := New(mgr, dir, 3)
	s.now = func() time.Time { return time.Date(2024, time.March, 13, 10, 0, 0, 0, time.UTC) }

	path, err := s.RunOnce()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "taskflow-backup-20240313-100000.000.json"), path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	restored := task.NewManager(ctx, store.New(store.NewMemoryBackend()))
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	_, err = restored.Import(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, mgr.Snapshot(), restored.Snapshot())
}

func TestRunOnceKeepsNewest(t *testing.T) {
	dir := t.TempDir()
	s := New(fixedExporter(`{"tasks":[],"tags":[]}`), dir, 2)
	s.now = stepClock(time.Date(2024, time.March, 13, 10, 0, 0, 0, time.UTC))

	for i := 0; i < 4; i++ {
		_, err := s.RunOnce()
		require.NoError(t, err)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))

	names, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"taskflow-backup-20240313-100300.000.json",
		"taskflow-backup-20240313-100400.000.json",
	}, names)

	_, err = os.Stat(filepath.Join(dir, "notes.txt"))
	assert.NoError(t, err)
}

func TestRunOnceExportFailureLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	s := New(exporterFunc(func(io.Writer) error { return errors.New("locked") }), dir, 0)

	_, err := s.RunOnce()
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestListMissingDir(t *testing.T) {
	s := New(fixedExporter("{}"), filepath.Join(t.TempDir(), "absent"), 0)
	names, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestStart(t *testing.T) {
	s := New(fixedExporter("{}"), t.TempDir(), 1)

	assert.NoError(t, s.Start(""))
	assert.Error(t, s.Start("every tuesday"))

	require.NoError(t, s.Start("0 3 * * *"))
	assert.Error(t, s.Start("0 4 * * *"), "second start must fail")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}

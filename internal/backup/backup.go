// Package backup writes periodic {tasks, tags} snapshots to a directory and
// prunes old ones.
package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	appLog "taskflow/internal/log"
)

const (
	filePrefix = "taskflow-backup-"
	fileSuffix = ".json"
	// stampLayout sorts lexically in time order.
	stampLayout = "20060102-150405.000"
)

// Exporter writes a backup document. *task.Manager implements it.
type Exporter interface {
	Export(w io.Writer) error
}

// Scheduler runs backups on a cron schedule.
type Scheduler struct {
	src  Exporter
	dir  string
	keep int
	now  func() time.Time

	mu   sync.Mutex // one backup at a time
	cron *cron.Cron
}

// New creates a Scheduler writing into dir and keeping the newest keep files
// (keep <= 0 keeps everything).
func New(src Exporter, dir string, keep int) *Scheduler {
	return &Scheduler{
		src:  src,
		dir:  dir,
		keep: keep,
		now:  time.Now,
	}
}

// Start schedules backups with a standard five-field cron expression. An
// empty spec disables scheduling.
func (s *Scheduler) Start(spec string) error {
	if spec == "" {
		appLog.Info("backup schedule disabled")
		return nil
	}
	if s.cron != nil {
		return errors.New("backup scheduler already started")
	}

	logger := cronLogger{}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := c.AddFunc(spec, func() {
		if _, err := s.RunOnce(); err != nil {
			appLog.Error("scheduled backup failed", err, "dir", s.dir)
		}
	}); err != nil {
		return fmt.Errorf("backup schedule %q: %w", spec, err)
	}

	c.Start()
	s.cron = c
	appLog.Info("backup schedule started", "cron", spec, "dir", s.dir, "keep", s.keep)
	return nil
}

// Stop halts the schedule and waits for a running backup or ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	if s.cron == nil {
		return
	}
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// RunOnce writes one backup file and prunes old ones. It returns the path of
// the new file.
func (s *Scheduler) RunOnce() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return "", err
	}

	name := filePrefix + s.now().UTC().Format(stampLayout) + fileSuffix
	path := filepath.Join(s.dir, name)
	if err := s.write(path); err != nil {
		return "", err
	}
	appLog.Info("backup written", "path", path)

	if err := s.prune(); err != nil {
		appLog.Error("backup prune failed", err, "dir", s.dir)
	}
	return path, nil
}

func (s *Scheduler) write(path string) error {
	tmp, err := os.CreateTemp(s.dir, ".taskflow-backup-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := s.src.Export(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("export: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// List returns the backup file names in dir, oldest first.
func (s *Scheduler) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		n := e.Name()
		if e.Type().IsRegular() && strings.HasPrefix(n, filePrefix) && strings.HasSuffix(n, fileSuffix) {
			names = append(names, n)
		}
	}
	slices.Sort(names)
	return names, nil
}

func (s *Scheduler) prune() error {
	if s.keep <= 0 {
		return nil
	}
	names, err := s.List()
	if err != nil {
		return err
	}
	if len(names) <= s.keep {
		return nil
	}
	var errs []error
	for _, n := range names[:len(names)-s.keep] {
		if err := os.Remove(filepath.Join(s.dir, n)); err != nil {
			errs = append(errs, err)
			continue
		}
		appLog.Debug("backup pruned", "file", n)
	}
	return errors.Join(errs...)
}

// cronLogger routes cron's logging into the application log.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	appLog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	appLog.Error("cron: "+msg, err, keysAndValues...)
}

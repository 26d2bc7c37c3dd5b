package janitor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-logr/logr"
	"github.com/robfig/cron/v3"
)

// Janitor removes spooled uploads that outlived the retention period.
type Janitor struct {
	dir       string
	retention time.Duration
	logger    logr.Logger
	now       func() time.Time
	cron      *cron.Cron
}

// New schedules a sweep of dir using a cron spec such as "@every 10m".
func New(dir string, retention time.Duration, schedule string, logger logr.Logger) (*Janitor, error) {
	logger = logger.WithName("janitor")
	j := &Janitor{
		dir:       dir,
		retention: retention,
		logger:    logger,
		now:       time.Now,
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(logger),
			cron.Recover(logger),
		)),
	}
	if _, err := j.cron.AddFunc(schedule, j.run); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return j, nil
}

func (j *Janitor) Start() {
	j.cron.Start()
}

// Stop waits for a running sweep to finish.
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
}

func (j *Janitor) run() {
	removed, err := j.Sweep()
	if err != nil {
		j.logger.Error(err, "sweep failed")
		return
	}
	if removed > 0 {
		j.logger.Info("removed stale uploads", "count", removed)
	}
}

// Sweep deletes regular files older than the retention period.
func (j *Janitor) Sweep() (int, error) {
	cutoff := j.now().Add(-j.retention)
	return j.remove(func(info os.FileInfo) bool {
		return info.ModTime().Before(cutoff)
	})
}

// Purge deletes every spooled upload regardless of age.
func (j *Janitor) Purge() (int, error) {
	return j.remove(func(os.FileInfo) bool { return true })
}

func (j *Janitor) remove(match func(os.FileInfo) bool) (int, error) {
	entries, err := os.ReadDir(j.dir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read upload dir: %w", err)
	}

	removed := 0
	var errs []error
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil || !match(info) {
			continue
		}
		if err := os.Remove(filepath.Join(j.dir, entry.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}

// Package scheduler runs the sync pipeline on a daily gocron schedule for
// the serve mode and publishes each result to the data container.
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/phac-pdir/nvc-sync/interfaces"
	"github.com/phac-pdir/nvc-sync/logging"
	"github.com/phac-pdir/nvc-sync/pipeline"
)

// Compile-time check to ensure Scheduler implements Scheduler interface
var _ interfaces.Scheduler = (*Scheduler)(nil)

// staleAfter is how long without a successful check before warning
const staleAfter = 25 * time.Hour

// Runner executes one sync run. Satisfied by *pipeline.Runner.
type Runner interface {
	Run(ctx context.Context) (*pipeline.Result, error)
	Tables() interfaces.TableStore
}

// Scheduler handles scheduled sync runs and staleness monitoring
type Scheduler struct {
	dataStore  interfaces.DataStore
	runner     Runner
	scheduleAt []string
	scheduler  *gocron.Scheduler

	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
}

// NewScheduler creates a scheduler running at each HH:MM in scheduleAt,
// local time
func NewScheduler(dataStore interfaces.DataStore, runner Runner, scheduleAt []string) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		dataStore:  dataStore,
		runner:     runner,
		scheduleAt: scheduleAt,
		scheduler:  gocron.NewScheduler(time.Local),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start performs the initial run, schedules the daily runs and starts the
// staleness monitor
func (s *Scheduler) Start() error {
	if err := s.updateData(); err != nil {
		logging.Error("Failed to perform initial sync", "error", err)
		return fmt.Errorf("initial sync failed: %w", err)
	}

	_, err := s.scheduler.Every(1).Days().At(strings.Join(s.scheduleAt, ";")).Do(func() {
		if err := s.updateData(); err != nil {
			logging.Error("Scheduled sync failed", "error", err)
		}
	})
	if err != nil {
		logging.Error("Failed to schedule sync", "error", err)
		return fmt.Errorf("failed to schedule sync: %w", err)
	}

	s.scheduler.StartAsync()
	logging.Info("Sync scheduled", "at", s.scheduleAt)

	s.startHealthMonitoring()

	return nil
}

// Stop stops the scheduler, cancels a run in progress and the monitor
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.cancel()
		s.scheduler.Stop()
	})
}

// updateData runs the pipeline and publishes its table. When the version
// did not change and the container does not hold it yet, the table is
// reloaded from disk.
func (s *Scheduler) updateData() error {
	// Prevent overlapping runs
	if !s.dataStore.BeginUpdate() {
		logging.Info("Sync already in progress, skipping...")
		return nil
	}
	defer s.dataStore.EndUpdate()

	result, err := s.runner.Run(s.ctx)
	if err != nil {
		return err
	}

	if result.Changed {
		s.dataStore.UpdateData(result.Version, result.Table, result.Report)
		logging.Info("Sync completed",
			"run_id", result.RunID,
			"version", result.Version,
			"records", len(result.Table),
			"duration", result.Duration.String(),
		)
		return nil
	}

	s.dataStore.MarkChecked()
	if s.dataStore.GetVersion() == result.Version && s.dataStore.GetVersion() != "" {
		return nil
	}

	doc, err := s.runner.Tables().ReadTable()
	if err != nil {
		logging.Warn("Version unchanged but the persisted table could not be loaded", "error", err)
		return nil
	}
	s.dataStore.UpdateData(doc.Version, doc.Table, nil)
	logging.Info("Loaded persisted table", "version", doc.Version, "records", len(doc.Table))

	return nil
}

// isStale reports whether the last successful check is older than staleAfter
func (s *Scheduler) isStale(now time.Time) bool {
	return now.Sub(s.dataStore.GetLastChecked()) > staleAfter
}

// startHealthMonitoring warns hourly while the data is stale
func (s *Scheduler) startHealthMonitoring() {
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()

		for {
			select {
			case <-s.ctx.Done():
				return
			case now := <-ticker.C:
				if s.isStale(now) {
					logging.Warn("Vaccine table hasn't been checked in over 25 hours",
						"last_checked", s.dataStore.GetLastChecked().Format(time.RFC3339),
					)
				}
			}
		}
	}()
}

// Package scheduler fires a LibraryScan for every configured library on a
// fixed interval, grounded on the teacher's pkg/worker scheduleScanJobs:
// a single timer goroutine, an immediate first tick, and a per-library
// active-job check so an overrunning scan is never double-enqueued
// (spec.md §4.7).
package scheduler

import (
	"context"
	"time"

	"github.com/robinjoseph08/golib/logger"

	"github.com/stumpgo/stump/pkg/libraries"
)

// jobEnqueuer is the subset of internal/controller the scheduler needs.
type jobEnqueuer interface {
	EnqueueLibraryScan(ctx context.Context, libraryID string) error
}

// Scheduler ticks on a fixed interval and enqueues a LibraryScan job for
// every library not in its exclusion list.
type Scheduler struct {
	interval        time.Duration
	excludedIDs     map[string]bool
	libraryService  *libraries.Service
	controller      jobEnqueuer
	log             logger.Logger

	shutdown chan struct{}
	done     chan struct{}
}

// New builds a Scheduler. intervalSeconds <= 0 disables scheduling
// entirely (Start becomes a no-op), matching the teacher's
// SyncIntervalMinutes <= 0 guard.
func New(intervalSeconds int, excludedLibraryIDs []string, libraryService *libraries.Service, controller jobEnqueuer, log logger.Logger) *Scheduler {
	excluded := make(map[string]bool, len(excludedLibraryIDs))
	for _, id := range excludedLibraryIDs {
		excluded[id] = true
	}

	return &Scheduler{
		interval:       time.Duration(intervalSeconds) * time.Second,
		excludedIDs:    excluded,
		libraryService: libraryService,
		controller:     controller,
		log:            log,
		shutdown:       make(chan struct{}),
		done:           make(chan struct{}),
	}
}

// Start runs the scheduler loop in a goroutine. It fires an immediate
// first pass, then reschedules itself every interval, per spec.md §4.7
// ("fixed-interval timer, not cron; first tick runs immediately").
func (s *Scheduler) Start() {
	if s.interval <= 0 {
		close(s.done)
		return
	}
	go s.run()
}

func (s *Scheduler) run() {
	defer close(s.done)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-s.shutdown:
			return
		case <-timer.C:
			s.tick()
			timer.Reset(s.interval)
		}
	}
}

func (s *Scheduler) tick() {
	ctx := context.Background()
	log := s.log.Root(logger.Data{"scheduler": "scan"})

	libs, err := s.libraryService.ListLibraries(ctx, libraries.ListLibrariesOptions{})
	if err != nil {
		log.Err(err).Error("scheduler: list libraries failed", nil)
		return
	}

	for _, lib := range libs {
		if s.excludedIDs[lib.ID] {
			continue
		}
		if err := s.controller.EnqueueLibraryScan(ctx, lib.ID); err != nil {
			log.Err(err).Error("scheduler: enqueue scan failed", logger.Data{"library_id": lib.ID})
		}
	}
}

// Shutdown stops the scheduler loop and waits for it to exit.
func (s *Scheduler) Shutdown() {
	close(s.shutdown)
	<-s.done
}

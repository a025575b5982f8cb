package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/snapwatch/worker/internal/adapters/retry"
	"github.com/snapwatch/worker/internal/domain/models"
	"github.com/snapwatch/worker/internal/ports"
)

// firstRetentionDelay is how long after startup the first retention
// sweep runs; later sweeps follow the cleanup interval.
const firstRetentionDelay = time.Minute

// PageCapturer runs one full capture for a page, owning the job
// lifecycle. Satisfied by usecases.CapturePage.
type PageCapturer interface {
	Execute(ctx context.Context, page *models.Page, viewports []int) (*models.CaptureJob, error)
}

// RetentionRunner sweeps old screenshots for every retention-enabled
// user. Satisfied by usecases.RunRetention.
type RetentionRunner interface {
	Run(ctx context.Context) error
}

// SchedulerOptions carries the scheduler tunables.
type SchedulerOptions struct {
	PollInterval    time.Duration
	CleanupInterval time.Duration
	BaseRetryDelay  time.Duration
	MaxFailures     int
	StaleTimeout    time.Duration
}

// Scheduler polls for due pages and dispatches captures. Concurrency is
// bounded downstream by the browser pool; the scheduler only guards
// against capturing the same page twice at once.
type Scheduler struct {
	pages     ports.PageRepository
	jobs      ports.CaptureJobRepository
	capturer  PageCapturer
	retention RetentionRunner
	opts      SchedulerOptions

	mu     sync.Mutex
	active map[string]struct{}

	cancel context.CancelFunc
	loopWG sync.WaitGroup
	runWG  sync.WaitGroup
}

func NewScheduler(
	pages ports.PageRepository,
	jobs ports.CaptureJobRepository,
	capturer PageCapturer,
	retention RetentionRunner,
	opts SchedulerOptions,
) *Scheduler {
	return &Scheduler{
		pages:     pages,
		jobs:      jobs,
		capturer:  capturer,
		retention: retention,
		opts:      opts,
		active:    make(map[string]struct{}),
	}
}

// Start resets jobs orphaned by a previous worker and launches the poll
// and retention loops.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.resetStale(ctx)

	s.loopWG.Add(2)
	go s.pollLoop(ctx)
	go s.retentionLoop(ctx)

	log.Printf("[Scheduler] started: poll every %s, retention every %s", s.opts.PollInterval, s.opts.CleanupInterval)
}

// Stop cancels the loops and waits for in-flight captures to wind down.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.loopWG.Wait()
	s.runWG.Wait()
	log.Printf("[Scheduler] stopped")
}

func (s *Scheduler) pollLoop(ctx context.Context) {
	defer s.loopWG.Done()

	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.poll(ctx)
		}
	}
}

func (s *Scheduler) retentionLoop(ctx context.Context) {
	defer s.loopWG.Done()

	timer := time.NewTimer(firstRetentionDelay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			s.sweep(ctx)
			timer.Reset(s.opts.CleanupInterval)
		}
	}
}

// poll runs one scheduling pass. Failures are logged, never propagated:
// the next tick retries from scratch.
func (s *Scheduler) poll(ctx context.Context) {
	now := time.Now().UTC()

	s.resetStale(ctx)

	due, err := s.pages.ListDue(ctx, now)
	if err != nil {
		if ctx.Err() == nil {
			log.Printf("[Scheduler] due page query failed: %v", err)
		}
		return
	}

	for _, candidate := range due {
		if ctx.Err() != nil {
			return
		}
		if !s.shouldCapture(ctx, candidate, now) {
			continue
		}
		s.dispatch(ctx, candidate)
	}
}

func (s *Scheduler) resetStale(ctx context.Context) {
	now := time.Now().UTC()
	n, err := s.jobs.ResetStale(ctx, now.Add(-s.opts.StaleTimeout), now)
	if err != nil {
		if ctx.Err() == nil {
			log.Printf("[Scheduler] stale job reset failed: %v", err)
		}
		return
	}
	if n > 0 {
		log.Printf("[Scheduler] reset %d stale capture jobs", n)
	}
}

// shouldCapture applies the retry cooldown. Pages with a pending job
// were requested explicitly and bypass it.
func (s *Scheduler) shouldCapture(ctx context.Context, due *ports.DuePage, now time.Time) bool {
	if due.HasPending {
		return true
	}

	streak, err := s.jobs.GetFailureStreak(ctx, due.Page.ID)
	if err != nil {
		if ctx.Err() == nil {
			log.Printf("[Scheduler] failure streak query failed for page %s: %v", due.Page.ID, err)
		}
		return false
	}
	if streak.Count == 0 {
		return true
	}
	if streak.Count >= s.opts.MaxFailures {
		return false
	}
	if streak.LastFailedAt != nil {
		delay := retry.CaptureRetryDelay(s.opts.BaseRetryDelay, streak.Count)
		if now.Sub(*streak.LastFailedAt) < delay {
			return false
		}
	}
	return true
}

// dispatch runs the capture on its own goroutine. The page stays in the
// active set until the capture finishes, so overlapping polls skip it.
func (s *Scheduler) dispatch(ctx context.Context, due *ports.DuePage) {
	s.mu.Lock()
	if _, running := s.active[due.Page.ID]; running {
		s.mu.Unlock()
		return
	}
	s.active[due.Page.ID] = struct{}{}
	s.mu.Unlock()

	s.runWG.Add(1)
	go func() {
		defer s.runWG.Done()
		defer s.release(due.Page.ID)
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[Scheduler] capture panicked for page %s: %v", due.Page.ID, r)
			}
		}()

		if _, err := s.capturer.Execute(ctx, due.Page, due.Viewports); err != nil && ctx.Err() == nil {
			log.Printf("[Scheduler] capture failed for page %s: %v", due.Page.ID, err)
		}
	}()
}

func (s *Scheduler) release(pageID string) {
	s.mu.Lock()
	delete(s.active, pageID)
	s.mu.Unlock()
}

// ActiveCaptures reports how many pages are being captured right now.
func (s *Scheduler) ActiveCaptures() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

func (s *Scheduler) sweep(ctx context.Context) {
	if s.retention == nil {
		return
	}
	if err := s.retention.Run(ctx); err != nil && ctx.Err() == nil {
		log.Printf("[Scheduler] retention sweep failed: %v", err)
	}
}

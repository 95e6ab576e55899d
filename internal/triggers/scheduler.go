package triggers

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/adhocore/gronx"
)

// Scheduler runs every scheduled trigger on its cron expression, in its
// own timezone. Runs of one trigger never overlap.
type Scheduler struct {
	registry *Registry
	timeout  time.Duration
	log      *slog.Logger
	wg       sync.WaitGroup
}

// NewScheduler creates a Scheduler. Each run gets at most timeout.
func NewScheduler(registry *Registry, timeout time.Duration, log *slog.Logger) *Scheduler {
	return &Scheduler{registry: registry, timeout: timeout, log: log}
}

// Start launches one loop per schedule. The loops stop when ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	for _, d := range s.registry.Schedules() {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.loop(ctx, d)
		}()
		s.log.Info("schedule_started", "trigger", d.Name, "cron", d.Schedule, "timezone", d.Location().String())
	}
}

// Wait blocks until every loop has returned.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, d Descriptor) {
	for {
		now := time.Now().In(d.Location())
		next, err := gronx.NextTickAfter(d.Schedule, now, false)
		if err != nil {
			s.log.Error("schedule_next_tick_failed", "trigger", d.Name, "error", err)
			if !sleep(ctx, 30*time.Second) {
				return
			}
			continue
		}

		if !sleep(ctx, time.Until(next)) {
			s.log.Info("schedule_stopping", "trigger", d.Name)
			return
		}

		runCtx := ctx
		cancel := func() {}
		if s.timeout > 0 {
			runCtx, cancel = context.WithTimeout(ctx, s.timeout)
		}
		s.registry.RunJob(runCtx, d.Name, time.Now())
		cancel()
	}
}

// sleep waits for d or until ctx is done and reports whether ctx is still live.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

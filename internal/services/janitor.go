package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/coah80/clipbot/internal/util"
)

// Janitor removes downloads that were never delivered. It only looks at
// modification times, so files younger than maxAge are never touched.
type Janitor struct {
	dir      string
	interval time.Duration
	maxAge   time.Duration
	logger   *slog.Logger

	// OnSweep is called with the number of files each pass removed.
	OnSweep func(removed int)

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewJanitor(dir string, interval, maxAge time.Duration, logger *slog.Logger) *Janitor {
	return &Janitor{
		dir:      dir,
		interval: interval,
		maxAge:   maxAge,
		logger:   logger.With(slog.String("component", "janitor")),
	}
}

// Sweep runs one pass and returns the removed file names.
func (j *Janitor) Sweep(now time.Time) []string {
	removed := util.RemoveStaleFiles(j.dir, j.maxAge, now)
	for _, name := range removed {
		j.logger.Debug("removed stale file", slog.String("file", name))
	}
	if j.OnSweep != nil {
		j.OnSweep(len(removed))
	}
	return removed
}

// Clear empties the working directory. Only safe before any download starts.
func (j *Janitor) Clear() int {
	n := util.ClearDir(j.dir)
	if n > 0 {
		j.logger.Info("cleared working directory", slog.Int("files", n))
	}
	return n
}

// Run sweeps, then sleeps for the interval, until ctx is done.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		j.Sweep(time.Now())
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (j *Janitor) Start(ctx context.Context) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cancel != nil {
		return
	}
	ctx, j.cancel = context.WithCancel(ctx)
	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		j.Run(ctx)
	}()
	j.logger.Info("janitor started", slog.Duration("interval", j.interval), slog.Duration("max_age", j.maxAge))
}

// Stop cancels the loop and waits for the current pass to finish.
func (j *Janitor) Stop() {
	j.mu.Lock()
	cancel := j.cancel
	j.cancel = nil
	j.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	j.wg.Wait()
}

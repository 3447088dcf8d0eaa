package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/yoockh/jobhunt/internal/models"
	"github.com/yoockh/jobhunt/internal/providers/scraper"
	"github.com/yoockh/jobhunt/internal/utils"
)

const (
	DefaultPollInterval    = 10 * time.Second
	DefaultPollMaxAttempts = 120
)

// Poller watches a scraper task until it completes, fails, or the attempt
// ceiling is hit. It is a fixed-interval loop, not a backoff.
type Poller struct {
	Scraper     scraper.Client
	Interval    time.Duration
	MaxAttempts int

	// Sleep waits before every attempt; defaults to a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
	// OnStatus, if set, sees every status observed.
	OnStatus func(ctx context.Context, attempt int, t models.SearchTask)
}

// Wait blocks until the task reaches a terminal state. It returns the final
// status on completion; CodeUpstreamFailed when the scraper reports failure;
// CodeTimeout after MaxAttempts polls; CodeUnavailable when the status
// endpoint errors.
func (p *Poller) Wait(ctx context.Context, taskID string) (models.SearchTask, error) {
	const op = "Poller.Wait"

	interval := p.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultPollMaxAttempts
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := sleep(ctx, interval); err != nil {
			return models.SearchTask{}, utils.E(utils.CodeInternal, op, "polling interrupted", err)
		}

		task, err := p.Scraper.Status(ctx, taskID)
		if err != nil {
			return models.SearchTask{}, err
		}
		if p.OnStatus != nil {
			p.OnStatus(ctx, attempt, task)
		}

		if !task.Terminal() {
			continue
		}
		if task.Status == models.TaskCompleted {
			return task, nil
		}

		reason := task.Error
		if reason == "" {
			reason = task.Message
		}
		if reason == "" {
			reason = "unknown error"
		}
		return task, utils.E(utils.CodeUpstreamFailed, op, "search task failed: "+reason, nil)
	}

	return models.SearchTask{}, utils.E(utils.CodeTimeout, op,
		fmt.Sprintf("search task timed out after %d attempts", attempts), nil)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

package workers

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/jobhunt/internal/models"
)

const DefaultPipelineStream = "search:pipeline"

// GoroutineDispatcher runs every job in its own goroutine bound to the
// process context, never the request's. In-flight jobs are lost on restart;
// the janitor eventually marks their searches timed out.
type GoroutineDispatcher struct {
	base   context.Context
	runner Runner
	logger *logrus.Logger
	wg     sync.WaitGroup
}

func NewGoroutineDispatcher(base context.Context, r Runner, l *logrus.Logger) *GoroutineDispatcher {
	if l == nil {
		l = logrus.New()
	}
	return &GoroutineDispatcher{base: base, runner: r, logger: l}
}

func (d *GoroutineDispatcher) Dispatch(_ context.Context, job models.PipelineJob) error {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.runner.Run(d.base, job); err != nil {
			// already recorded by the pipeline; nothing to hand back
			d.logger.WithError(err).WithField("search_id", job.SearchID).Debug("background pipeline ended with error")
		}
	}()
	return nil
}

// Wait blocks until all dispatched jobs return or ctx is done.
func (d *GoroutineDispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StreamDispatcher appends jobs to a Redis stream consumed by PipelineWorkerPool.
type StreamDispatcher struct {
	rdb    *redis.Client
	stream string
}

func NewStreamDispatcher(rdb *redis.Client, stream string) *StreamDispatcher {
	if stream == "" {
		stream = DefaultPipelineStream
	}
	return &StreamDispatcher{rdb: rdb, stream: stream}
}

func (d *StreamDispatcher) Dispatch(ctx context.Context, job models.PipelineJob) error {
	if d.rdb == nil {
		return errors.New("StreamDispatcher: redis client is nil")
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return d.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: d.stream,
		Values: map[string]any{
			"search_id": job.SearchID,
			"task_id":   job.TaskID,
			"payload":   string(payload),
		},
	}).Err()
}

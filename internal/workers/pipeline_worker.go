package workers

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/jobhunt/internal/models"
)

// PipelineWorkerPool consumes the pipeline stream with a consumer group and
// runs each job to completion before acknowledging it.
//
// Consumer names are stable across restarts (<prefix>-1 .. <prefix>-N), so
// every consumer first re-runs whatever it had read but not acknowledged
// before it crashed. Entries owned by consumers that no longer exist (the
// pool shrank, or the prefix changed) are claimed by a periodic XAUTOCLAIM
// once they have been idle for ReclaimIdle.
type PipelineWorkerPool struct {
	Redis      *redis.Client
	Runner     Runner
	NumWorkers int

	Logger *logrus.Logger

	Stream         string
	Group          string
	ConsumerPrefix string

	// ReclaimIdle must exceed the longest pipeline run, or a job still in
	// progress elsewhere would be run twice. Zero disables claiming.
	ReclaimIdle time.Duration
	// ReclaimEvery is the claim interval; defaults to one minute.
	ReclaimEvery time.Duration

	// Block bounds each XREADGROUP wait; defaults to five seconds.
	Block time.Duration

	wg sync.WaitGroup
}

func (p *PipelineWorkerPool) Start(ctx context.Context) error {
	if p.Redis == nil || p.Runner == nil {
		return errors.New("PipelineWorkerPool missing dependency: Redis/Runner must be set")
	}
	if p.Stream == "" {
		p.Stream = DefaultPipelineStream
	}
	if p.Group == "" {
		p.Group = "pipeline-workers"
	}
	if p.ConsumerPrefix == "" {
		p.ConsumerPrefix = "c"
	}
	if p.NumWorkers <= 0 {
		p.NumWorkers = 4
	}
	if p.ReclaimEvery <= 0 {
		p.ReclaimEvery = time.Minute
	}
	if p.Block <= 0 {
		p.Block = 5 * time.Second
	}
	if p.Logger == nil {
		p.Logger = logrus.New()
	}

	_ = p.Redis.XGroupCreateMkStream(ctx, p.Stream, p.Group, "0").Err() // ignore BUSYGROUP

	for i := 0; i < p.NumWorkers; i++ {
		consumer := p.consumerName(i)
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.runConsumer(ctx, consumer)
		}()
	}

	if p.ReclaimIdle > 0 {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.reclaimLoop(ctx, p.ConsumerPrefix+"-reclaim")
		}()
	}
	return nil
}

// Wait blocks until every consumer has returned (after ctx passed to Start
// is done) or until ctx here is done.
func (p *PipelineWorkerPool) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *PipelineWorkerPool) consumerName(i int) string {
	return p.ConsumerPrefix + "-" + strconv.Itoa(i+1)
}

func (p *PipelineWorkerPool) runConsumer(ctx context.Context, consumer string) {
	p.drainPending(ctx, consumer)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := p.Redis.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    p.Group,
			Consumer: consumer,
			Streams:  []string{p.Stream, ">"},
			Count:    1,
			Block:    p.Block,
		}).Result()

		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			p.Logger.WithError(err).WithField("consumer", consumer).Warn("pipeline stream read failed")
			time.Sleep(500 * time.Millisecond)
			continue
		}

		for _, stream := range res {
			for _, msg := range stream.Messages {
				p.process(ctx, msg)
			}
		}
	}
}

// drainPending re-runs the entries this consumer read but never
// acknowledged. Reading with ID "0" returns the consumer's own pending
// history instead of new entries, and never blocks.
func (p *PipelineWorkerPool) drainPending(ctx context.Context, consumer string) {
	for ctx.Err() == nil {
		res, err := p.Redis.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    p.Group,
			Consumer: consumer,
			Streams:  []string{p.Stream, "0"},
			Count:    10,
			Block:    -1,
		}).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
				p.Logger.WithError(err).WithField("consumer", consumer).Warn("pending pipeline entries not read")
			}
			return
		}

		n := 0
		for _, stream := range res {
			for _, msg := range stream.Messages {
				n++
				p.Logger.WithFields(logrus.Fields{"consumer": consumer, "redis_id": msg.ID}).Info("resuming unacknowledged pipeline job")
				p.process(ctx, msg)
			}
		}
		if n == 0 {
			return
		}
	}
}

func (p *PipelineWorkerPool) reclaimLoop(ctx context.Context, consumer string) {
	t := time.NewTicker(p.ReclaimEvery)
	defer t.Stop()

	for {
		p.reclaim(ctx, consumer)
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

// reclaim claims entries idle for longer than ReclaimIdle and runs them.
func (p *PipelineWorkerPool) reclaim(ctx context.Context, consumer string) {
	start := "0-0"
	for ctx.Err() == nil {
		msgs, next, err := p.Redis.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   p.Stream,
			Group:    p.Group,
			Consumer: consumer,
			MinIdle:  p.ReclaimIdle,
			Start:    start,
			Count:    100,
		}).Result()
		if err != nil {
			if ctx.Err() == nil {
				p.Logger.WithError(err).Warn("pipeline stream reclaim failed")
			}
			return
		}
		for _, msg := range msgs {
			p.Logger.WithFields(logrus.Fields{"consumer": consumer, "redis_id": msg.ID}).Info("reclaimed idle pipeline job")
			p.process(ctx, msg)
		}
		if next == "" || next == "0-0" {
			return
		}
		start = next
	}
}

// process runs one entry and acknowledges it. Malformed entries are
// acknowledged too; they would fail the same way on every delivery.
func (p *PipelineWorkerPool) process(ctx context.Context, msg redis.XMessage) {
	p.handleMsg(ctx, msg)
	if ctx.Err() != nil {
		// shutting down mid-run: leave it pending for the next start
		return
	}
	if err := p.Redis.XAck(context.WithoutCancel(ctx), p.Stream, p.Group, msg.ID).Err(); err != nil {
		p.Logger.WithError(err).WithField("redis_id", msg.ID).Warn("pipeline ack failed")
	}
}

func (p *PipelineWorkerPool) handleMsg(ctx context.Context, msg redis.XMessage) {
	log := p.Logger.WithField("redis_id", msg.ID)

	raw, _ := msg.Values["payload"].(string)
	if raw == "" {
		log.Warn("pipeline message without payload")
		return
	}

	var job models.PipelineJob
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.WithError(err).Warn("invalid pipeline payload")
		return
	}
	if job.SearchID == "" || job.TaskID == "" {
		log.Warn("pipeline payload missing search_id/task_id")
		return
	}

	if err := p.Runner.Run(ctx, job); err != nil {
		log.WithError(err).WithField("search_id", job.SearchID).Debug("pipeline job ended with error")
	}
}

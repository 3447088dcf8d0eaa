package workers

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/yoockh/jobhunt/internal/cache"
	"github.com/yoockh/jobhunt/internal/models"
	"github.com/yoockh/jobhunt/internal/notify"
	"github.com/yoockh/jobhunt/internal/providers/scraper"
	pgrepo "github.com/yoockh/jobhunt/internal/repositories/postgres"
	"github.com/yoockh/jobhunt/internal/services"
	"github.com/yoockh/jobhunt/internal/storage"
	"github.com/yoockh/jobhunt/internal/utils"
)

// Runner executes one pipeline job to completion.
type Runner interface {
	Run(ctx context.Context, job models.PipelineJob) error
}

// Pipeline is the detached part of a search: poll the scraper, fetch the
// postings, score them, rank them and persist the ranking. A Pipeline is
// shared by concurrent runs and is never modified by Run.
type Pipeline struct {
	Scraper  scraper.Client
	Poller   *Poller
	Scoring  services.ScoringService
	Results  services.ResultService
	Searches pgrepo.SearchRepository
	Events   services.EventService // optional
	Notifier notify.Notifier       // optional
	Archive  storage.Uploader      // optional
	Cache    cache.Cache           // optional; per-user analytics are dropped on completion

	Logger *logrus.Logger
}

// run carries one job through the stages with the pipeline's optional
// collaborators resolved.
type run struct {
	job      models.PipelineJob
	log      *logrus.Entry
	events   services.EventService
	notifier notify.Notifier
	searches pgrepo.SearchRepository
}

func (p *Pipeline) Run(ctx context.Context, job models.PipelineJob) error {
	if p.Scraper == nil || p.Poller == nil || p.Scoring == nil || p.Results == nil || p.Searches == nil {
		return errors.New("Pipeline missing dependency: Scraper/Poller/Scoring/Results/Searches must be set")
	}
	r := p.newRun(job)

	poller := *p.Poller
	poller.OnStatus = func(ctx context.Context, attempt int, t models.SearchTask) {
		r.log.WithFields(logrus.Fields{"attempt": attempt, "status": t.Status, "progress": t.Progress}).Debug(t.Message)
		r.emit(ctx, models.StagePoll, string(t.Status), t.Progress, t.Message)
	}

	if _, err := poller.Wait(ctx, job.TaskID); err != nil {
		return r.fail(ctx, models.StagePoll, err)
	}

	postings, err := p.Scraper.Results(ctx, job.TaskID)
	if err != nil {
		return r.fail(ctx, models.StageFetch, err)
	}
	r.emit(ctx, models.StageFetch, "ok", 100, fmt.Sprintf("%d postings fetched", len(postings)))

	if p.Archive != nil {
		if path, err := storage.ArchivePostings(ctx, p.Archive, job.SearchID, job.TaskID, postings); err != nil {
			r.log.WithError(err).Warn("failed to archive raw postings")
		} else {
			r.log.WithField("object", path).Debug("raw postings archived")
		}
	}

	scored := p.Scoring.Score(ctx, postings, job.Criteria)
	nulls := 0
	for _, s := range scored {
		if s.AIScore == nil {
			nulls++
		}
	}
	r.emit(ctx, models.StageScore, "ok", 100, fmt.Sprintf("%d scored, %d without score", len(scored)-nulls, nulls))

	ranked := services.Rank(scored)

	out := p.Results.Persist(ctx, job.SearchID, ranked, p.Scoring.Model())
	if out.TotalJobsUpdated {
		if err := p.Searches.SetStatus(ctx, job.SearchID, models.SearchCompleted, ""); err != nil {
			r.log.WithError(err).Warn("failed to mark search as completed")
		}
	}
	if p.Cache != nil && job.UserID != "" {
		if err := p.Cache.Del(ctx, services.AnalyticsCacheKey(job.UserID)); err != nil {
			r.log.WithError(err).Warn("failed to drop cached analytics")
		}
	}

	r.log.WithFields(logrus.Fields{"total_jobs": len(ranked), "rows": out.ResultsInserted}).Info("search pipeline completed")
	_ = r.events.Record(ctx, models.PipelineEvent{
		SearchID: job.SearchID,
		TaskID:   job.TaskID,
		Stage:    models.StageDone,
		Status:   string(models.TaskCompleted),
		Progress: 100,
		Message:  "results saved",
	})
	_ = r.notifier.Publish(ctx, notify.Update{
		SearchID:  job.SearchID,
		TaskID:    job.TaskID,
		Stage:     models.StageDone,
		Status:    string(models.SearchCompleted),
		Progress:  100,
		Message:   "results saved",
		TotalJobs: len(ranked),
	})
	return nil
}

func (p *Pipeline) newRun(job models.PipelineJob) *run {
	l := p.Logger
	if l == nil {
		l = logrus.StandardLogger()
	}
	r := &run{
		job:      job,
		log:      l.WithFields(logrus.Fields{"search_id": job.SearchID, "task_id": job.TaskID}),
		events:   p.Events,
		notifier: p.Notifier,
		searches: p.Searches,
	}
	if r.events == nil {
		r.events = services.NewEventService(nil, 0)
	}
	if r.notifier == nil {
		r.notifier = notify.Nop{}
	}
	return r
}

func (r *run) emit(ctx context.Context, stage, status string, progress int, msg string) {
	_ = r.events.Record(ctx, models.PipelineEvent{
		SearchID: r.job.SearchID,
		TaskID:   r.job.TaskID,
		Stage:    stage,
		Status:   status,
		Progress: progress,
		Message:  msg,
	})
	_ = r.notifier.Publish(ctx, notify.Update{
		SearchID: r.job.SearchID,
		TaskID:   r.job.TaskID,
		Stage:    stage,
		Status:   status,
		Progress: progress,
		Message:  msg,
	})
}

// fail logs the error and records it. total_jobs is left at 0 and no
// result rows are written.
func (r *run) fail(ctx context.Context, stage string, err error) error {
	status := models.SearchFailed
	if utils.IsCode(err, utils.CodeTimeout) {
		status = models.SearchTimedOut
	}

	r.log.WithError(err).WithField("stage", stage).Error("search pipeline failed")
	if serr := r.searches.SetStatus(ctx, r.job.SearchID, status, err.Error()); serr != nil {
		r.log.WithError(serr).Warn("failed to record search failure")
	}
	r.emit(ctx, stage, "failed", 0, err.Error())
	return err
}

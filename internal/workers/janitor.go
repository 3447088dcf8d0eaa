package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	pgrepo "github.com/yoockh/jobhunt/internal/repositories/postgres"
)

// Janitor marks searches that have been pending longer than MaxAge as
// timed out. Those are pipelines lost to a restart or stuck upstream.
type Janitor struct {
	searches pgrepo.SearchRepository
	maxAge   time.Duration
	spec     string
	cron     *cron.Cron
	logger   *logrus.Logger
	now      func() time.Time
}

func NewJanitor(searches pgrepo.SearchRepository, maxAge time.Duration, spec string, l *logrus.Logger) *Janitor {
	if spec == "" {
		spec = "@every 15m"
	}
	if l == nil {
		l = logrus.New()
	}
	return &Janitor{
		searches: searches,
		maxAge:   maxAge,
		spec:     spec,
		cron:     cron.New(),
		logger:   l,
		now:      time.Now,
	}
}

func (j *Janitor) Start(ctx context.Context) error {
	if _, err := j.cron.AddFunc(j.spec, func() {
		if _, err := j.RunOnce(ctx); err != nil {
			j.logger.WithError(err).Error("janitor sweep failed")
		}
	}); err != nil {
		return fmt.Errorf("cron.AddFunc(%q): %w", j.spec, err)
	}
	j.cron.Start()
	j.logger.WithField("schedule", j.spec).Info("janitor started")
	return nil
}

func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
}

// RunOnce performs a single sweep and returns how many searches it closed.
func (j *Janitor) RunOnce(ctx context.Context) (int64, error) {
	cutoff := j.now().UTC().Add(-j.maxAge)
	n, err := j.searches.MarkStale(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		j.logger.WithFields(logrus.Fields{"count": n, "cutoff": cutoff}).Info("stale searches marked timed out")
	}
	return n, nil
}

package services

import (
	"context"
	"errors"
	"testing"

	"github.com/yoockh/jobhunt/internal/logger"
	"github.com/yoockh/jobhunt/internal/models"
	"github.com/yoockh/jobhunt/internal/utils"
)

type searchFixture struct {
	repo       *fakeSearchRepo
	scraper    *fakeScraper
	dispatcher *fakeDispatcher
	events     *fakeEventRepo
	svc        SearchService
}

func newSearchFixture() *searchFixture {
	f := &searchFixture{
		repo:       newFakeSearchRepo(),
		scraper:    &fakeScraper{taskID: "task-1"},
		dispatcher: &fakeDispatcher{},
		events:     &fakeEventRepo{},
	}
	f.svc = NewSearchService(SearchServiceDeps{
		Searches:   f.repo,
		Scraper:    f.scraper,
		Dispatcher: f.dispatcher,
		Events:     NewEventService(f.events, 0),
		Logger:     logger.Discard(),
	})
	return f
}

func TestSubmit_InvalidCriteriaMakesNoCalls(t *testing.T) {
	tests := []struct {
		name string
		edit func(*models.SearchCriteria)
	}{
		{"missing job title", func(c *models.SearchCriteria) { c.JobTitle = "" }},
		{"blank location", func(c *models.SearchCriteria) { c.Location = "   " }},
		{"missing skills", func(c *models.SearchCriteria) { c.Skills = "" }},
		{"zero salary", func(c *models.SearchCriteria) { c.SalaryExpectation = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSearchFixture()
			c := backendCriteria
			tt.edit(&c)

			_, err := f.svc.Submit(context.Background(), "user-1", c)
			if !utils.IsCode(err, utils.CodeInvalidArgument) {
				t.Fatalf("err = %v, want INVALID_ARGUMENT", err)
			}
			if f.scraper.startCalls != 0 {
				t.Fatalf("scraper called %d times", f.scraper.startCalls)
			}
			if len(f.repo.rows) != 0 {
				t.Fatal("no search row may be written")
			}
			if len(f.dispatcher.jobs) != 0 {
				t.Fatal("nothing may be dispatched")
			}
		})
	}
}

func TestSubmit_StartsTaskAndDispatches(t *testing.T) {
	f := newSearchFixture()

	res, err := f.svc.Submit(context.Background(), "user-1", backendCriteria)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.TaskID != "task-1" || res.SearchID == "" {
		t.Fatalf("result = %+v", res)
	}

	row := f.repo.get(res.SearchID)
	if row.Status != models.SearchPending || row.TotalJobs != 0 {
		t.Fatalf("row status=%s total_jobs=%d, want pending/0", row.Status, row.TotalJobs)
	}
	if row.TaskID != "task-1" {
		t.Fatalf("row task id = %q", row.TaskID)
	}
	if got := []string(row.SkillTokens); len(got) != 2 || got[0] != "Go" || got[1] != "PostgreSQL" {
		t.Fatalf("skill tokens = %v", got)
	}

	if len(f.dispatcher.jobs) != 1 {
		t.Fatalf("dispatched %d jobs, want 1", len(f.dispatcher.jobs))
	}
	job := f.dispatcher.jobs[0]
	if job.SearchID != res.SearchID || job.TaskID != "task-1" || job.UserID != "user-1" || job.Criteria != backendCriteria {
		t.Fatalf("job = %+v", job)
	}

	if len(f.events.events) != 1 || f.events.events[0].Stage != models.StageStart {
		t.Fatalf("events = %+v, want one start event", f.events.events)
	}
}

func TestSubmit_StartFailureIsUnavailable(t *testing.T) {
	f := newSearchFixture()
	f.scraper.startErr = utils.E(utils.CodeUnavailable, "Scraper.Start", "down", errors.New("connection refused"))

	_, err := f.svc.Submit(context.Background(), "user-1", backendCriteria)
	if !utils.IsCode(err, utils.CodeUnavailable) {
		t.Fatalf("err = %v, want UNAVAILABLE", err)
	}
	if len(f.dispatcher.jobs) != 0 {
		t.Fatal("nothing may be dispatched")
	}
	for _, row := range f.repo.rows {
		if row.Status != models.SearchFailed {
			t.Fatalf("row status = %s, want failed", row.Status)
		}
	}
}

func TestSubmit_DispatchFailure(t *testing.T) {
	f := newSearchFixture()
	f.dispatcher.err = errors.New("redis down")

	_, err := f.svc.Submit(context.Background(), "user-1", backendCriteria)
	if !utils.IsCode(err, utils.CodeUnavailable) {
		t.Fatalf("err = %v, want UNAVAILABLE", err)
	}
	for _, row := range f.repo.rows {
		if row.Status != models.SearchFailed {
			t.Fatalf("row status = %s, want failed", row.Status)
		}
	}
}

func TestSubmit_RequiresUser(t *testing.T) {
	f := newSearchFixture()
	if _, err := f.svc.Submit(context.Background(), "", backendCriteria); !utils.IsCode(err, utils.CodeUnauthorized) {
		t.Fatalf("err = %v, want UNAUTHORIZED", err)
	}
}

func TestGet_HidesOtherUsersSearches(t *testing.T) {
	f := newSearchFixture()
	res, err := f.svc.Submit(context.Background(), "owner", backendCriteria)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.svc.Get(context.Background(), "someone-else", res.SearchID); !utils.IsCode(err, utils.CodeNotFound) {
		t.Fatalf("err = %v, want NOT_FOUND", err)
	}
	if err := f.svc.Delete(context.Background(), "someone-else", res.SearchID); !utils.IsCode(err, utils.CodeNotFound) {
		t.Fatalf("delete err = %v, want NOT_FOUND", err)
	}
	if err := f.svc.Delete(context.Background(), "owner", res.SearchID); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
}

func TestDelete_DropsCachedAnalytics(t *testing.T) {
	f := newSearchFixture()
	c := &fakeCache{}
	f.svc = NewSearchService(SearchServiceDeps{
		Searches:   f.repo,
		Scraper:    f.scraper,
		Dispatcher: f.dispatcher,
		Cache:      c,
		Logger:     logger.Discard(),
	})

	res, err := f.svc.Submit(context.Background(), "owner", backendCriteria)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.svc.Delete(context.Background(), "someone-else", res.SearchID); err == nil {
		t.Fatal("foreign delete succeeded")
	}
	if len(c.deleted) != 0 {
		t.Fatalf("foreign delete dropped %v", c.deleted)
	}

	if err := f.svc.Delete(context.Background(), "owner", res.SearchID); err != nil {
		t.Fatal(err)
	}
	if len(c.deleted) != 1 || c.deleted[0] != AnalyticsCacheKey("owner") {
		t.Fatalf("deleted = %v", c.deleted)
	}
}

func TestProgress_FinishedSearchSkipsScraper(t *testing.T) {
	f := newSearchFixture()
	res, _ := f.svc.Submit(context.Background(), "user-1", backendCriteria)
	_ = f.repo.UpdateTotalJobs(context.Background(), res.SearchID, 12)

	task, err := f.svc.Progress(context.Background(), "user-1", res.SearchID)
	if err != nil {
		t.Fatal(err)
	}
	if task.Status != models.TaskCompleted || task.Progress != 100 {
		t.Fatalf("task = %+v", task)
	}
	if f.scraper.statusCalls != 0 {
		t.Fatal("scraper must not be asked about a finished search")
	}
}

func TestProgress_AsksScraperWhilePending(t *testing.T) {
	f := newSearchFixture()
	f.scraper.status = models.SearchTask{TaskID: "task-1", Status: models.TaskPending, Progress: 40, Message: "scraping"}
	res, _ := f.svc.Submit(context.Background(), "user-1", backendCriteria)

	task, err := f.svc.Progress(context.Background(), "user-1", res.SearchID)
	if err != nil {
		t.Fatal(err)
	}
	if task.Progress != 40 || task.SearchID != res.SearchID {
		t.Fatalf("task = %+v", task)
	}
}

func TestProgress_FallsBackToLastEvent(t *testing.T) {
	f := newSearchFixture()
	f.scraper.statusErr = errors.New("scraper down")
	res, _ := f.svc.Submit(context.Background(), "user-1", backendCriteria)
	_ = f.events.Insert(context.Background(), &models.PipelineEvent{
		SearchID: res.SearchID, Stage: models.StagePoll, Status: "pending", Progress: 70, Message: "page 7",
	})

	task, err := f.svc.Progress(context.Background(), "user-1", res.SearchID)
	if err != nil {
		t.Fatal(err)
	}
	if task.Status != models.TaskPending || task.Progress != 70 || task.Message != "page 7" {
		t.Fatalf("task = %+v", task)
	}
}

package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/yoockh/jobhunt/internal/models"
	"github.com/yoockh/jobhunt/internal/utils"
)

// fakeProvider answers every prompt through answer. Chunks are streamed
// one by one; a non-nil error is sent after them.
type fakeProvider struct {
	answer func(prompt string) ([]string, error)
}

func (f *fakeProvider) StreamAnswer(ctx context.Context, prompt string) (<-chan string, <-chan error) {
	chunks, err := f.answer(prompt)
	out := make(chan string, len(chunks))
	errs := make(chan error, 1)
	for _, c := range chunks {
		out <- c
	}
	if err != nil {
		errs <- err
	}
	close(out)
	close(errs)
	return out, errs
}

func (f *fakeProvider) Model() string { return "fake-model" }
func (f *fakeProvider) Close() error  { return nil }

// jobFor extracts the "Job: ..." line of a scoring prompt.
func jobFor(prompt string) string {
	for _, line := range strings.Split(prompt, "\n") {
		if strings.HasPrefix(line, "Job: ") {
			return strings.TrimPrefix(line, "Job: ")
		}
	}
	return ""
}

type fakeSearchRepo struct {
	mu   sync.Mutex
	rows map[string]*models.JobSearch

	insertErr    error
	totalJobsErr error
	statusCalls  []models.SearchStatus
}

func newFakeSearchRepo() *fakeSearchRepo {
	return &fakeSearchRepo{rows: map[string]*models.JobSearch{}}
}

func (r *fakeSearchRepo) Insert(_ context.Context, s *models.JobSearch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return r.insertErr
	}
	cp := *s
	r.rows[s.ID] = &cp
	return nil
}

func (r *fakeSearchRepo) GetByID(_ context.Context, id string) (*models.JobSearch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, utils.ErrNotFound
	}
	cp := *row
	return &cp, nil
}

func (r *fakeSearchRepo) SetTaskID(_ context.Context, id, taskID string) error {
	return r.with(id, func(s *models.JobSearch) { s.TaskID = taskID })
}

func (r *fakeSearchRepo) UpdateTotalJobs(_ context.Context, id string, total int) error {
	if r.totalJobsErr != nil {
		return r.totalJobsErr
	}
	return r.with(id, func(s *models.JobSearch) { s.TotalJobs = total })
}

func (r *fakeSearchRepo) SetStatus(_ context.Context, id string, status models.SearchStatus, errMsg string) error {
	r.mu.Lock()
	r.statusCalls = append(r.statusCalls, status)
	r.mu.Unlock()
	return r.with(id, func(s *models.JobSearch) {
		s.Status = status
		s.Error = errMsg
	})
}

func (r *fakeSearchRepo) ListWithStats(_ context.Context, userID string) ([]models.JobSearchWithStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.JobSearchWithStats
	for _, s := range r.rows {
		if s.UserID == userID {
			out = append(out, models.JobSearchWithStats{JobSearch: *s})
		}
	}
	return out, nil
}

func (r *fakeSearchRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return utils.ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *fakeSearchRepo) MarkStale(context.Context, time.Time) (int64, error) { return 0, nil }

func (r *fakeSearchRepo) with(id string, fn func(*models.JobSearch)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return utils.ErrNotFound
	}
	fn(row)
	return nil
}

func (r *fakeSearchRepo) get(id string) models.JobSearch {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.rows[id]; ok {
		return *row
	}
	return models.JobSearch{}
}

type fakeResultRepo struct {
	mu        sync.Mutex
	rows      []models.JobResult
	insertErr error
	points    []models.ScorePoint
}

func (r *fakeResultRepo) InsertBatch(_ context.Context, rows []models.JobResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return r.insertErr
	}
	r.rows = append(r.rows, rows...)
	return nil
}

func (r *fakeResultRepo) ListBySearch(_ context.Context, searchID string) ([]models.JobResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.JobResult
	for _, row := range r.rows {
		if row.SearchID == searchID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *fakeResultRepo) ScorePointsByUser(context.Context, string) ([]models.ScorePoint, error) {
	return r.points, nil
}

type fakeScraper struct {
	mu sync.Mutex

	taskID    string
	startErr  error
	status    models.SearchTask
	statusErr error

	startCalls  int
	statusCalls int
}

func (s *fakeScraper) Start(context.Context, string, string, models.SearchCriteria) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startCalls++
	if s.startErr != nil {
		return "", s.startErr
	}
	return s.taskID, nil
}

func (s *fakeScraper) Status(context.Context, string) (models.SearchTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statusCalls++
	return s.status, s.statusErr
}

func (s *fakeScraper) Results(context.Context, string) ([]models.ScrapedPosting, error) {
	return nil, errors.New("not used")
}

type fakeDispatcher struct {
	jobs []models.PipelineJob
	err  error
}

func (d *fakeDispatcher) Dispatch(_ context.Context, job models.PipelineJob) error {
	if d.err != nil {
		return d.err
	}
	d.jobs = append(d.jobs, job)
	return nil
}

type fakeEventRepo struct {
	mu     sync.Mutex
	events []models.PipelineEvent
}

func (r *fakeEventRepo) Insert(_ context.Context, e *models.PipelineEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *e)
	return nil
}

func (r *fakeEventRepo) ListBySearch(_ context.Context, searchID string, _ int64) ([]models.PipelineEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.PipelineEvent
	for _, e := range r.events {
		if e.SearchID == searchID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeEventRepo) Latest(ctx context.Context, searchID string) (*models.PipelineEvent, error) {
	all, _ := r.ListBySearch(ctx, searchID, 0)
	if len(all) == 0 {
		return nil, nil
	}
	e := all[len(all)-1]
	return &e, nil
}

func intp(v int) *int { return &v }

// fakeCache never hits and records deleted keys.
type fakeCache struct {
	mu      sync.Mutex
	deleted []string
}

func (c *fakeCache) GetJSON(context.Context, string, any) (bool, error) { return false, nil }

func (c *fakeCache) SetJSON(context.Context, string, any, time.Duration) error { return nil }

func (c *fakeCache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleted = append(c.deleted, keys...)
	return nil
}

package workers

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/yoockh/jobhunt/internal/models"
	"github.com/yoockh/jobhunt/internal/notify"
	"github.com/yoockh/jobhunt/internal/utils"
)

// scriptedScraper replays statuses in order; the last one repeats.
type scriptedScraper struct {
	mu sync.Mutex

	statuses  []models.SearchTask
	statusErr error
	jobs      []models.ScrapedPosting
	resultErr error

	statusCalls  int
	resultsCalls int
}

func (s *scriptedScraper) Start(context.Context, string, string, models.SearchCriteria) (string, error) {
	return "task-1", nil
}

func (s *scriptedScraper) Status(_ context.Context, taskID string) (models.SearchTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statusCalls++
	if s.statusErr != nil {
		return models.SearchTask{}, s.statusErr
	}
	i := s.statusCalls - 1
	if i >= len(s.statuses) {
		i = len(s.statuses) - 1
	}
	t := s.statuses[i]
	t.TaskID = taskID
	return t, nil
}

func (s *scriptedScraper) Results(context.Context, string) ([]models.ScrapedPosting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resultsCalls++
	return s.jobs, s.resultErr
}

// recordingSleep counts sleeps instead of waiting.
type recordingSleep struct {
	calls []time.Duration
}

func (r *recordingSleep) sleep(_ context.Context, d time.Duration) error {
	r.calls = append(r.calls, d)
	return nil
}

type memSearchRepo struct {
	mu   sync.Mutex
	rows map[string]*models.JobSearch

	staleCutoff time.Time
	staleN      int64
}

func newMemSearchRepo(ids ...string) *memSearchRepo {
	r := &memSearchRepo{rows: map[string]*models.JobSearch{}}
	for _, id := range ids {
		r.rows[id] = &models.JobSearch{ID: id, Status: models.SearchPending}
	}
	return r
}

func (r *memSearchRepo) Insert(_ context.Context, s *models.JobSearch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.rows[s.ID] = &cp
	return nil
}

func (r *memSearchRepo) GetByID(_ context.Context, id string) (*models.JobSearch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.rows[id]; ok {
		cp := *row
		return &cp, nil
	}
	return nil, utils.ErrNotFound
}

func (r *memSearchRepo) SetTaskID(_ context.Context, id, taskID string) error {
	return r.with(id, func(s *models.JobSearch) { s.TaskID = taskID })
}

func (r *memSearchRepo) UpdateTotalJobs(_ context.Context, id string, total int) error {
	return r.with(id, func(s *models.JobSearch) { s.TotalJobs = total })
}

func (r *memSearchRepo) SetStatus(_ context.Context, id string, status models.SearchStatus, errMsg string) error {
	return r.with(id, func(s *models.JobSearch) {
		s.Status = status
		s.Error = errMsg
	})
}

func (r *memSearchRepo) ListWithStats(context.Context, string) ([]models.JobSearchWithStats, error) {
	return nil, nil
}

func (r *memSearchRepo) Delete(context.Context, string) error { return nil }

func (r *memSearchRepo) MarkStale(_ context.Context, createdBefore time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.staleCutoff = createdBefore
	return r.staleN, nil
}

func (r *memSearchRepo) with(id string, fn func(*models.JobSearch)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return utils.ErrNotFound
	}
	fn(row)
	return nil
}

func (r *memSearchRepo) get(id string) models.JobSearch {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.rows[id]
}

type memResultRepo struct {
	mu   sync.Mutex
	rows []models.JobResult
}

func (r *memResultRepo) InsertBatch(_ context.Context, rows []models.JobResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, rows...)
	return nil
}

func (r *memResultRepo) ListBySearch(context.Context, string) ([]models.JobResult, error) {
	return r.rows, nil
}

func (r *memResultRepo) ScorePointsByUser(context.Context, string) ([]models.ScorePoint, error) {
	return nil, nil
}

// descProvider scores a posting by looking its description up in scores.
// Descriptions missing from the map produce an error.
type descProvider struct {
	scores map[string]string
}

func (p *descProvider) StreamAnswer(_ context.Context, prompt string) (<-chan string, <-chan error) {
	out := make(chan string, 1)
	errs := make(chan error, 1)
	defer close(out)
	defer close(errs)

	for _, line := range strings.Split(prompt, "\n") {
		if job, ok := strings.CutPrefix(line, "Job: "); ok {
			if s, ok := p.scores[job]; ok {
				out <- s
				return out, errs
			}
		}
	}
	errs <- context.DeadlineExceeded
	return out, errs
}

func (p *descProvider) Model() string { return "fake-model" }
func (p *descProvider) Close() error  { return nil }

type recordingNotifier struct {
	mu      sync.Mutex
	updates []notify.Update
}

func (n *recordingNotifier) Publish(_ context.Context, u notify.Update) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.updates = append(n.updates, u)
	return nil
}

func (n *recordingNotifier) last() notify.Update {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.updates[len(n.updates)-1]
}

type recordingRunner struct {
	mu   sync.Mutex
	jobs []models.PipelineJob
	done chan struct{}
}

func (r *recordingRunner) Run(_ context.Context, job models.PipelineJob) error {
	r.mu.Lock()
	r.jobs = append(r.jobs, job)
	r.mu.Unlock()
	if r.done != nil {
		<-r.done
	}
	return nil
}

func (r *recordingRunner) seen() []models.PipelineJob {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.PipelineJob(nil), r.jobs...)
}

// memCache records deletions; reads always miss.
type memCache struct {
	mu      sync.Mutex
	deleted []string
}

func (c *memCache) GetJSON(context.Context, string, any) (bool, error) { return false, nil }

func (c *memCache) SetJSON(context.Context, string, any, time.Duration) error { return nil }

func (c *memCache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleted = append(c.deleted, keys...)
	return nil
}

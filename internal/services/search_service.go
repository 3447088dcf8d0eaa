package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"github.com/yoockh/jobhunt/internal/cache"
	"github.com/yoockh/jobhunt/internal/models"
	"github.com/yoockh/jobhunt/internal/providers/scraper"
	pgrepo "github.com/yoockh/jobhunt/internal/repositories/postgres"
	"github.com/yoockh/jobhunt/internal/utils"
)

// PipelineDispatcher hands a job to the background pipeline. It must not
// block on the pipeline itself.
type PipelineDispatcher interface {
	Dispatch(ctx context.Context, job models.PipelineJob) error
}

type SubmitResult struct {
	TaskID   string `json:"taskId"`
	SearchID string `json:"searchId"`
}

type SearchService interface {
	Submit(ctx context.Context, userID string, c models.SearchCriteria) (*SubmitResult, error)
	Get(ctx context.Context, userID, searchID string) (*models.JobSearch, error)
	List(ctx context.Context, userID string) ([]models.JobSearchWithStats, error)
	Delete(ctx context.Context, userID, searchID string) error
	Progress(ctx context.Context, userID, searchID string) (*models.SearchTask, error)
}

type searchService struct {
	searches   pgrepo.SearchRepository
	scraper    scraper.Client
	dispatcher PipelineDispatcher
	events     EventService
	cache      cache.Cache
	statusTTL  time.Duration
	logger     *logrus.Logger
}

type SearchServiceDeps struct {
	Searches   pgrepo.SearchRepository
	Scraper    scraper.Client
	Dispatcher PipelineDispatcher
	Events     EventService
	Cache      cache.Cache // optional
	StatusTTL  time.Duration
	Logger     *logrus.Logger
}

func NewSearchService(d SearchServiceDeps) SearchService {
	if d.StatusTTL <= 0 {
		d.StatusTTL = 5 * time.Second
	}
	if d.Logger == nil {
		d.Logger = logrus.New()
	}
	if d.Events == nil {
		d.Events = NewEventService(nil, 0)
	}
	return &searchService{
		searches:   d.Searches,
		scraper:    d.Scraper,
		dispatcher: d.Dispatcher,
		events:     d.Events,
		cache:      d.Cache,
		statusTTL:  d.StatusTTL,
		logger:     d.Logger,
	}
}

func (s *searchService) Submit(ctx context.Context, userID string, c models.SearchCriteria) (*SubmitResult, error) {
	const op = "SearchService.Submit"

	if err := c.Validate(); err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, utils.E(utils.CodeUnauthorized, op, "user_id is required", nil)
	}

	critJSON, _ := json.Marshal(c)
	now := time.Now().UTC()
	row := &models.JobSearch{
		ID:          uuid.NewString(),
		UserID:      userID,
		JobTitle:    c.JobTitle,
		Location:    c.Location,
		Skills:      c.Skills,
		Salary:      c.SalaryExpectation,
		SkillTokens: c.SkillList(),
		Criteria:    datatypes.JSON(critJSON),
		Status:      models.SearchPending,
		TotalJobs:   0,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.searches.Insert(ctx, row); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to create search", err)
	}

	log := s.logger.WithFields(logrus.Fields{"search_id": row.ID, "user_id": userID})

	taskID, err := s.scraper.Start(ctx, row.ID, userID, c)
	if err != nil {
		log.WithError(err).Error("failed to start scraper task")
		if serr := s.searches.SetStatus(ctx, row.ID, models.SearchFailed, "failed to start search task"); serr != nil {
			log.WithError(serr).Warn("failed to mark search as failed")
		}
		return nil, utils.E(utils.CodeUnavailable, op, "failed to start search task", err)
	}
	log = log.WithField("task_id", taskID)

	if err := s.searches.SetTaskID(ctx, row.ID, taskID); err != nil {
		log.WithError(err).Warn("failed to store task id")
	}
	_ = s.events.Record(ctx, models.PipelineEvent{
		SearchID: row.ID,
		TaskID:   taskID,
		Stage:    models.StageStart,
		Status:   string(models.TaskPending),
		Message:  "search task started",
	})

	job := models.PipelineJob{SearchID: row.ID, TaskID: taskID, UserID: userID, Criteria: c}
	if err := s.dispatcher.Dispatch(ctx, job); err != nil {
		log.WithError(err).Error("failed to dispatch pipeline")
		if serr := s.searches.SetStatus(ctx, row.ID, models.SearchFailed, "failed to schedule processing"); serr != nil {
			log.WithError(serr).Warn("failed to mark search as failed")
		}
		return nil, utils.E(utils.CodeUnavailable, op, "failed to schedule search processing", err)
	}

	log.Info("search submitted")
	return &SubmitResult{TaskID: taskID, SearchID: row.ID}, nil
}

func (s *searchService) Get(ctx context.Context, userID, searchID string) (*models.JobSearch, error) {
	const op = "SearchService.Get"

	if searchID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "search_id is required", nil)
	}

	row, err := s.searches.GetByID(ctx, searchID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "search not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get search", err)
	}
	if row.UserID != userID {
		// do not leak existence of other users' searches
		return nil, utils.E(utils.CodeNotFound, op, "search not found", nil)
	}
	return row, nil
}

func (s *searchService) List(ctx context.Context, userID string) ([]models.JobSearchWithStats, error) {
	const op = "SearchService.List"

	if userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}
	rows, err := s.searches.ListWithStats(ctx, userID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list searches", err)
	}
	if rows == nil {
		rows = []models.JobSearchWithStats{}
	}
	return rows, nil
}

func (s *searchService) Delete(ctx context.Context, userID, searchID string) error {
	const op = "SearchService.Delete"

	if _, err := s.Get(ctx, userID, searchID); err != nil {
		return err
	}
	if err := s.searches.Delete(ctx, searchID); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return utils.E(utils.CodeNotFound, op, "search not found", err)
		}
		return utils.E(utils.CodeInternal, op, "failed to delete search", err)
	}
	if s.cache != nil {
		_ = s.cache.Del(ctx, AnalyticsCacheKey(userID))
	}
	return nil
}

// Progress reports the scraper task status for a pending search. Finished
// searches are answered from the row itself; the scraper is not asked.
func (s *searchService) Progress(ctx context.Context, userID, searchID string) (*models.SearchTask, error) {
	const op = "SearchService.Progress"

	row, err := s.Get(ctx, userID, searchID)
	if err != nil {
		return nil, err
	}

	switch {
	case row.Status == models.SearchCompleted || row.Ready():
		return &models.SearchTask{TaskID: row.TaskID, SearchID: row.ID, Status: models.TaskCompleted, Progress: 100, Message: "completed"}, nil
	case row.Status == models.SearchFailed || row.Status == models.SearchTimedOut:
		return &models.SearchTask{TaskID: row.TaskID, SearchID: row.ID, Status: models.TaskFailed, Message: string(row.Status), Error: row.Error}, nil
	case row.TaskID == "":
		return &models.SearchTask{SearchID: row.ID, Status: models.TaskPending, Message: "waiting for task"}, nil
	}

	task, err := cache.Remember(ctx, s.cache, "task:"+row.TaskID, s.statusTTL, func(ctx context.Context) (models.SearchTask, error) {
		return s.scraper.Status(ctx, row.TaskID)
	})
	if err != nil {
		// scraper unreachable: fall back to the last status the pipeline saw
		last, lerr := s.events.Latest(ctx, row.ID)
		if lerr == nil && last != nil {
			status := models.TaskPending
			if last.Stage == models.StagePoll {
				status = models.TaskStatus(last.Status)
			}
			return &models.SearchTask{
				TaskID:   row.TaskID,
				SearchID: row.ID,
				Status:   status,
				Progress: last.Progress,
				Message:  last.Message,
			}, nil
		}
		return nil, utils.E(utils.CodeUnavailable, op, "failed to get task status", err)
	}
	task.SearchID = row.ID
	return &task, nil
}

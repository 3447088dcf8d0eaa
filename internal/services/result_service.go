package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"github.com/yoockh/jobhunt/internal/models"
	pgrepo "github.com/yoockh/jobhunt/internal/repositories/postgres"
	"github.com/yoockh/jobhunt/internal/utils"
)

type ResultService interface {
	// Persist writes total_jobs then the result rows. Both writes are best
	// effort: failures are logged, never returned, and nothing is rolled back.
	Persist(ctx context.Context, searchID string, ranked []models.ScoredPosting, model string) PersistOutcome
	ListBySearch(ctx context.Context, searchID string) ([]models.JobResult, error)
}

// PersistOutcome reports which writes went through.
type PersistOutcome struct {
	TotalJobsUpdated bool
	ResultsInserted  int
}

type resultService struct {
	searches pgrepo.SearchRepository
	results  pgrepo.ResultRepository
	logger   *logrus.Logger
}

func NewResultService(searches pgrepo.SearchRepository, results pgrepo.ResultRepository, l *logrus.Logger) ResultService {
	if l == nil {
		l = logrus.New()
	}
	return &resultService{searches: searches, results: results, logger: l}
}

type scoreMetadata struct {
	Model       string `json:"model"`
	RawResponse string `json:"raw_response,omitempty"`
	LatencyMS   int64  `json:"latency_ms"`
}

func (s *resultService) Persist(ctx context.Context, searchID string, ranked []models.ScoredPosting, model string) PersistOutcome {
	log := s.logger.WithFields(logrus.Fields{"search_id": searchID, "stage": models.StagePersist})
	var out PersistOutcome

	if err := s.searches.UpdateTotalJobs(ctx, searchID, len(ranked)); err != nil {
		log.WithError(err).Error("failed to update total_jobs")
	} else {
		out.TotalJobsUpdated = true
	}

	if len(ranked) == 0 {
		return out
	}

	now := time.Now().UTC()
	rows := make([]models.JobResult, 0, len(ranked))
	for i, p := range ranked {
		var desc *string
		if p.Description != "" {
			d := p.Description
			desc = &d
		}
		md, _ := json.Marshal(scoreMetadata{Model: model, RawResponse: p.RawResponse, LatencyMS: p.LatencyMS})

		rows = append(rows, models.JobResult{
			ID:          uuid.NewString(),
			SearchID:    searchID,
			Rank:        i + 1,
			Title:       p.Title,
			Company:     p.Company,
			Description: desc,
			URL:         p.URL,
			Source:      p.Source,
			AIScore:     p.AIScore,
			Metadata:    datatypes.JSON(md),
			CreatedAt:   now,
		})
	}

	if err := s.results.InsertBatch(ctx, rows); err != nil {
		log.WithError(err).WithField("rows", len(rows)).Error("failed to insert job results")
		return out
	}
	out.ResultsInserted = len(rows)
	return out
}

func (s *resultService) ListBySearch(ctx context.Context, searchID string) ([]models.JobResult, error) {
	const op = "ResultService.ListBySearch"

	if searchID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "search_id is required", nil)
	}
	rows, err := s.results.ListBySearch(ctx, searchID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list job results", err)
	}
	if rows == nil {
		rows = []models.JobResult{}
	}
	return rows, nil
}

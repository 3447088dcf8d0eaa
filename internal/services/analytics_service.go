package services

import (
	"context"
	"math"
	"time"

	"github.com/yoockh/jobhunt/internal/cache"
	"github.com/yoockh/jobhunt/internal/models"
	pgrepo "github.com/yoockh/jobhunt/internal/repositories/postgres"
	"github.com/yoockh/jobhunt/internal/utils"
)

type AnalyticsService interface {
	ForUser(ctx context.Context, userID string) (*models.Analytics, error)
}

type analyticsService struct {
	searches pgrepo.SearchRepository
	results  pgrepo.ResultRepository
	cache    cache.Cache
	ttl      time.Duration
}

func NewAnalyticsService(searches pgrepo.SearchRepository, results pgrepo.ResultRepository, c cache.Cache, ttl time.Duration) AnalyticsService {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &analyticsService{searches: searches, results: results, cache: c, ttl: ttl}
}

func (s *analyticsService) ForUser(ctx context.Context, userID string) (*models.Analytics, error) {
	const op = "AnalyticsService.ForUser"

	if userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}

	a, err := cache.Remember(ctx, s.cache, AnalyticsCacheKey(userID), s.ttl, func(ctx context.Context) (models.Analytics, error) {
		searches, err := s.searches.ListWithStats(ctx, userID)
		if err != nil {
			return models.Analytics{}, err
		}
		points, err := s.results.ScorePointsByUser(ctx, userID)
		if err != nil {
			return models.Analytics{}, err
		}
		return Summarize(searches, points), nil
	})
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to compute analytics", err)
	}
	return &a, nil
}

// AnalyticsCacheKey is the cache entry holding a user's summary. Writers
// that change the user's searches or results drop it.
func AnalyticsCacheKey(userID string) string { return "analytics:" + userID }

// Summarize builds the dashboard numbers. Null scores are left out of the
// average and of the distribution.
func Summarize(searches []models.JobSearchWithStats, points []models.ScorePoint) models.Analytics {
	buckets := []models.ScoreBucket{
		{Range: "0-20", Min: 0, Max: 20},
		{Range: "21-40", Min: 21, Max: 40},
		{Range: "41-60", Min: 41, Max: 60},
		{Range: "61-80", Min: 61, Max: 80},
		{Range: "81-100", Min: 81, Max: 100},
	}

	a := models.Analytics{TotalSearches: len(searches)}
	for _, s := range searches {
		a.TotalJobs += s.TotalJobs
	}
	if a.TotalSearches > 0 {
		a.AvgJobsPerSearch = round1(float64(a.TotalJobs) / float64(a.TotalSearches))
	}

	sum := 0
	for _, p := range points {
		if p.AIScore == nil {
			continue
		}
		score := *p.AIScore
		sum += score
		a.ScoredResults++
		for i := range buckets {
			if score >= buckets[i].Min && score <= buckets[i].Max {
				buckets[i].Count++
				break
			}
		}
	}
	if a.ScoredResults > 0 {
		a.AvgScore = round1(float64(sum) / float64(a.ScoredResults))
	}
	a.ScoreDistribution = buckets
	return a
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/yoockh/jobhunt/internal/models"
	"github.com/yoockh/jobhunt/internal/utils"
	"gorm.io/gorm"
)

type SearchRepository interface {
	Insert(ctx context.Context, s *models.JobSearch) error
	GetByID(ctx context.Context, id string) (*models.JobSearch, error)
	SetTaskID(ctx context.Context, id, taskID string) error
	UpdateTotalJobs(ctx context.Context, id string, total int) error
	SetStatus(ctx context.Context, id string, status models.SearchStatus, errMsg string) error
	ListWithStats(ctx context.Context, userID string) ([]models.JobSearchWithStats, error)
	Delete(ctx context.Context, id string) error
	MarkStale(ctx context.Context, createdBefore time.Time) (int64, error)
}

type searchRepo struct {
	db *gorm.DB
}

func NewSearchRepo(db *gorm.DB) SearchRepository {
	return &searchRepo{db: db}
}

func (r *searchRepo) Insert(ctx context.Context, s *models.JobSearch) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *searchRepo) GetByID(ctx context.Context, id string) (*models.JobSearch, error) {
	var row models.JobSearch
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *searchRepo) SetTaskID(ctx context.Context, id, taskID string) error {
	return r.update(ctx, id, map[string]any{"task_id": taskID})
}

func (r *searchRepo) UpdateTotalJobs(ctx context.Context, id string, total int) error {
	return r.update(ctx, id, map[string]any{"total_jobs": total})
}

func (r *searchRepo) SetStatus(ctx context.Context, id string, status models.SearchStatus, errMsg string) error {
	return r.update(ctx, id, map[string]any{"status": status, "error": errMsg})
}

func (r *searchRepo) update(ctx context.Context, id string, cols map[string]any) error {
	cols["updated_at"] = time.Now().UTC()
	res := r.db.WithContext(ctx).
		Model(&models.JobSearch{}).
		Where("id = ?", id).
		Updates(cols)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrNotFound
	}
	return nil
}

func (r *searchRepo) ListWithStats(ctx context.Context, userID string) ([]models.JobSearchWithStats, error) {
	var rows []models.JobSearchWithStats
	err := r.db.WithContext(ctx).
		Table("job_searches AS s").
		Select(`s.*,
			COUNT(jr.id) AS result_count,
			AVG(jr.ai_score) AS avg_ai_score,
			MAX(jr.ai_score) AS max_ai_score`).
		Joins("LEFT JOIN job_results jr ON jr.search_id = s.id").
		Where("s.user_id = ?", userID).
		Group("s.id").
		Order("s.created_at DESC").
		Scan(&rows).Error
	return rows, err
}

// Delete removes the search and its results in one transaction.
func (r *searchRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("search_id = ?", id).Delete(&models.JobResult{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.JobSearch{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return utils.ErrNotFound
		}
		return nil
	})
}

// MarkStale flips searches still pending since before createdBefore to timed_out.
func (r *searchRepo) MarkStale(ctx context.Context, createdBefore time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.JobSearch{}).
		Where("status = ? AND total_jobs = 0 AND created_at < ?", models.SearchPending, createdBefore).
		Updates(map[string]any{
			"status":     models.SearchTimedOut,
			"error":      "pipeline did not finish in time",
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

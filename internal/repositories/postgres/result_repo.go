package postgres

import (
	"context"

	"github.com/yoockh/jobhunt/internal/models"
	"gorm.io/gorm"
)

type ResultRepository interface {
	InsertBatch(ctx context.Context, rows []models.JobResult) error
	ListBySearch(ctx context.Context, searchID string) ([]models.JobResult, error)
	ScorePointsByUser(ctx context.Context, userID string) ([]models.ScorePoint, error)
}

type resultRepo struct {
	db *gorm.DB
}

func NewResultRepo(db *gorm.DB) ResultRepository {
	return &resultRepo{db: db}
}

func (r *resultRepo) InsertBatch(ctx context.Context, rows []models.JobResult) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

func (r *resultRepo) ListBySearch(ctx context.Context, searchID string) ([]models.JobResult, error) {
	var rows []models.JobResult
	err := r.db.WithContext(ctx).
		Where("search_id = ?", searchID).
		Order("ai_score DESC NULLS LAST").
		Order("rank ASC").
		Find(&rows).Error
	return rows, err
}

func (r *resultRepo) ScorePointsByUser(ctx context.Context, userID string) ([]models.ScorePoint, error) {
	var rows []models.ScorePoint
	err := r.db.WithContext(ctx).
		Table("job_results AS jr").
		Select("jr.search_id, jr.ai_score, jr.created_at").
		Joins("JOIN job_searches s ON s.id = jr.search_id").
		Where("s.user_id = ?", userID).
		Order("jr.created_at ASC").
		Scan(&rows).Error
	return rows, err
}

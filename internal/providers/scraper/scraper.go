// Package scraper talks to the external job scraping service.
package scraper

import (
	"context"

	"github.com/yoockh/jobhunt/internal/models"
)

type Client interface {
	// Start asks the scraper to begin a search and returns its task id.
	Start(ctx context.Context, searchID, userID string, c models.SearchCriteria) (taskID string, err error)
	Status(ctx context.Context, taskID string) (models.SearchTask, error)
	Results(ctx context.Context, taskID string) ([]models.ScrapedPosting, error)
}

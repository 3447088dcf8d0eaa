package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"path"
	"time"

	"github.com/yoockh/jobhunt/internal/models"
)

type Uploader interface {
	Upload(ctx context.Context, objectName string, contentType string, r io.Reader) (storedPath string, err error)
}

// RawArchive is the object written for every fetched result set.
type RawArchive struct {
	SearchID  string                  `json:"search_id"`
	TaskID    string                  `json:"task_id"`
	FetchedAt time.Time               `json:"fetched_at"`
	Jobs      []models.ScrapedPosting `json:"jobs"`
}

// ArchiveObjectName is raw/<search>/<task>.json.
func ArchiveObjectName(searchID, taskID string) string {
	return path.Join("raw", searchID, taskID+".json")
}

// ArchivePostings stores the scraper payload as JSON. up may be nil, in
// which case nothing is written.
func ArchivePostings(ctx context.Context, up Uploader, searchID, taskID string, jobs []models.ScrapedPosting) (string, error) {
	if up == nil {
		return "", nil
	}
	b, err := json.Marshal(RawArchive{
		SearchID:  searchID,
		TaskID:    taskID,
		FetchedAt: time.Now().UTC(),
		Jobs:      jobs,
	})
	if err != nil {
		return "", err
	}
	return up.Upload(ctx, ArchiveObjectName(searchID, taskID), "application/json", bytes.NewReader(b))
}

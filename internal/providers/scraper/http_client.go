package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yoockh/jobhunt/internal/models"
	"github.com/yoockh/jobhunt/internal/utils"
)

const (
	defaultTimeout = 30 * time.Second
	maxBodyBytes   = 20 << 20
)

// HTTPClient implements Client over the scraper's REST API:
//
//	POST /jobs/start           {userId, searchId, jobTitle, location, skills, salary} -> {taskId}
//	GET  /jobs/status/{taskId} -> {status, progress, message, error}
//	GET  /jobs/results/{taskId} -> {jobs: [...]}
//
// Nothing is retried; every failure surfaces as CodeUnavailable.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type startRequest struct {
	UserID   string `json:"userId"`
	SearchID string `json:"searchId"`
	JobTitle string `json:"jobTitle"`
	Location string `json:"location"`
	Skills   string `json:"skills"`
	Salary   int    `json:"salary"`
}

type startResponse struct {
	TaskID string `json:"taskId"`
}

type resultsResponse struct {
	Jobs      []models.ScrapedPosting `json:"jobs"`
	TotalJobs int                     `json:"total_jobs"`
}

func (c *HTTPClient) Start(ctx context.Context, searchID, userID string, crit models.SearchCriteria) (string, error) {
	const op = "Scraper.Start"

	body, err := json.Marshal(startRequest{
		UserID:   userID,
		SearchID: searchID,
		JobTitle: crit.JobTitle,
		Location: crit.Location,
		Skills:   crit.Skills,
		Salary:   crit.SalaryExpectation,
	})
	if err != nil {
		return "", utils.E(utils.CodeInternal, op, "failed to encode criteria", err)
	}

	var out startResponse
	if err := c.do(ctx, http.MethodPost, "/jobs/start", body, &out); err != nil {
		return "", utils.E(utils.CodeUnavailable, op, "failed to start search task", err)
	}
	if out.TaskID == "" {
		return "", utils.E(utils.CodeUnavailable, op, "scraper returned no task id", nil)
	}
	return out.TaskID, nil
}

func (c *HTTPClient) Status(ctx context.Context, taskID string) (models.SearchTask, error) {
	const op = "Scraper.Status"

	var out models.SearchTask
	if err := c.do(ctx, http.MethodGet, "/jobs/status/"+url.PathEscape(taskID), nil, &out); err != nil {
		return models.SearchTask{}, utils.E(utils.CodeUnavailable, op, "failed to get task status", err)
	}
	if out.TaskID == "" {
		out.TaskID = taskID
	}
	return out, nil
}

func (c *HTTPClient) Results(ctx context.Context, taskID string) ([]models.ScrapedPosting, error) {
	const op = "Scraper.Results"

	var out resultsResponse
	if err := c.do(ctx, http.MethodGet, "/jobs/results/"+url.PathEscape(taskID), nil, &out); err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "failed to get task results", err)
	}
	if out.Jobs == nil {
		return []models.ScrapedPosting{}, nil
	}
	return out.Jobs, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body []byte, dst any) error {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("scraper returned %d: %s", resp.StatusCode, truncate(string(raw), 512))
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("json unmarshal: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

package scraper

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yoockh/jobhunt/internal/models"
	"github.com/yoockh/jobhunt/internal/utils"
)

func newTestServer(t *testing.T, h http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewHTTPClient(srv.URL+"/", 0)
}

func TestStart_SendsCriteria(t *testing.T) {
	var got map[string]any
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/jobs/start" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"taskId":"t-42"}`))
	})

	id, err := c.Start(context.Background(), "s-1", "u-1", models.SearchCriteria{
		JobTitle: "Backend Engineer", Location: "Remote", Skills: "Go, PostgreSQL", SalaryExpectation: 65,
	})
	if err != nil {
		t.Fatal(err)
	}
	if id != "t-42" {
		t.Fatalf("task id = %q", id)
	}
	if got["userId"] != "u-1" || got["searchId"] != "s-1" || got["jobTitle"] != "Backend Engineer" || got["salary"] != float64(65) {
		t.Fatalf("body = %v", got)
	}
}

func TestStart_EmptyTaskID(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})
	if _, err := c.Start(context.Background(), "s", "u", models.SearchCriteria{}); !utils.IsCode(err, utils.CodeUnavailable) {
		t.Fatalf("err = %v, want UNAVAILABLE", err)
	}
}

func TestStatus(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/jobs/status/t-1" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"status":"pending","progress":35,"message":"page 3"}`))
	})

	task, err := c.Status(context.Background(), "t-1")
	if err != nil {
		t.Fatal(err)
	}
	if task.TaskID != "t-1" || task.Status != models.TaskPending || task.Progress != 35 || task.Message != "page 3" {
		t.Fatalf("task = %+v", task)
	}
}

func TestResults(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/jobs/results/t-1" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"jobs":[
			{"source":"indeed","title":"Go Dev","company":"Acme","description":"d","url":"https://x"},
			{"source":"indeed","title":"Go Dev","company":"Acme","description":"d","url":"https://x"}
		],"total_jobs":2}`))
	})

	jobs, err := c.Results(context.Background(), "t-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 2 || jobs[1].URL != "https://x" {
		t.Fatalf("jobs = %+v", jobs)
	}
}

func TestResults_NoJobs(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"jobs":null}`))
	})
	jobs, err := c.Results(context.Background(), "t-1")
	if err != nil {
		t.Fatal(err)
	}
	if jobs == nil || len(jobs) != 0 {
		t.Fatalf("jobs = %#v, want empty slice", jobs)
	}
}

func TestNon2xxIsUnavailable(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	ctx := context.Background()
	if _, err := c.Start(ctx, "s", "u", models.SearchCriteria{}); !utils.IsCode(err, utils.CodeUnavailable) {
		t.Errorf("Start err = %v", err)
	}
	if _, err := c.Status(ctx, "t"); !utils.IsCode(err, utils.CodeUnavailable) {
		t.Errorf("Status err = %v", err)
	}
	if _, err := c.Results(ctx, "t"); !utils.IsCode(err, utils.CodeUnavailable) {
		t.Errorf("Results err = %v", err)
	}
}

func TestUnreachableIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewHTTPClient(url, 0)
	if _, err := c.Status(context.Background(), "t"); !utils.IsCode(err, utils.CodeUnavailable) {
		t.Fatalf("err = %v, want UNAVAILABLE", err)
	}
}

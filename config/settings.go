package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Dispatch modes for the background pipeline.
const (
	DispatchGoroutine = "goroutine"
	DispatchStream    = "stream"
)

// Settings is the application-level configuration. Connection strings for
// the stores are read by the Init* functions in this package.
type Settings struct {
	Port string

	ScraperURL     string
	ScraperTimeout time.Duration

	PollInterval    time.Duration
	PollMaxAttempts int

	ScoringConcurrency int

	LLMProjectID string
	LLMLocation  string
	LLMModel     string

	PipelineDispatch string
	PipelineWorkers  int

	ResultsArchiveBucket string

	JanitorSchedule string
	EventsTTL       time.Duration
	StatusCacheTTL  time.Duration

	JWTSecret   string
	JWTIssuer   string
	JWTAudience string

	AllowedOrigins []string
}

// LoadSettings reads environment variables and returns validated Settings.
func LoadSettings() (*Settings, error) {
	s := &Settings{
		Port:                 getEnv("PORT", "8080"),
		ScraperURL:           strings.TrimRight(os.Getenv("JOB_SCRAPER_URL"), "/"),
		LLMProjectID:         os.Getenv("LLM_PROJECT_ID"),
		LLMLocation:          getEnv("LLM_LOCATION", "us-central1"),
		LLMModel:             getEnv("LLM_MODEL", "gemini-1.5-flash"),
		PipelineDispatch:     strings.ToLower(getEnv("PIPELINE_DISPATCH", DispatchGoroutine)),
		ResultsArchiveBucket: os.Getenv("RESULTS_ARCHIVE_BUCKET"),
		JanitorSchedule:      getEnv("JANITOR_SCHEDULE", "@every 15m"),
		JWTSecret:            os.Getenv("SUPABASE_JWT_SECRET"),
		JWTIssuer:            os.Getenv("SUPABASE_JWT_ISSUER"),
		JWTAudience:          getEnv("SUPABASE_JWT_AUDIENCE", "authenticated"),
		AllowedOrigins:       splitList(os.Getenv("ALLOWED_ORIGINS")),
	}

	if s.ScraperURL == "" {
		return nil, fmt.Errorf("JOB_SCRAPER_URL is required")
	}
	if s.LLMProjectID == "" {
		return nil, fmt.Errorf("LLM_PROJECT_ID is required")
	}
	if s.PipelineDispatch != DispatchGoroutine && s.PipelineDispatch != DispatchStream {
		return nil, fmt.Errorf("PIPELINE_DISPATCH must be %q or %q, got %q", DispatchGoroutine, DispatchStream, s.PipelineDispatch)
	}

	var err error
	if s.ScraperTimeout, err = durationEnv("SCRAPER_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if s.PollInterval, err = durationEnv("POLL_INTERVAL", 10*time.Second); err != nil {
		return nil, err
	}
	if s.EventsTTL, err = durationEnv("EVENTS_TTL", 72*time.Hour); err != nil {
		return nil, err
	}
	if s.StatusCacheTTL, err = durationEnv("STATUS_CACHE_TTL", 5*time.Second); err != nil {
		return nil, err
	}
	if s.PollMaxAttempts, err = positiveIntEnv("POLL_MAX_ATTEMPTS", 120); err != nil {
		return nil, err
	}
	if s.ScoringConcurrency, err = positiveIntEnv("SCORING_CONCURRENCY", 8); err != nil {
		return nil, err
	}
	if s.PipelineWorkers, err = positiveIntEnv("PIPELINE_WORKERS", 4); err != nil {
		return nil, err
	}

	return s, nil
}

// PollCeiling is the longest a pipeline can spend waiting on the scraper.
func (s *Settings) PollCeiling() time.Duration {
	return time.Duration(s.PollMaxAttempts) * s.PollInterval
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration, got %q", key, v)
	}
	return d, nil
}

func positiveIntEnv(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, v)
	}
	return n, nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

type SearchStatus string

const (
	SearchPending   SearchStatus = "pending"
	SearchCompleted SearchStatus = "completed"
	SearchFailed    SearchStatus = "failed"
	SearchTimedOut  SearchStatus = "timed_out"
)

// JobSearch is one submitted search. TotalJobs stays 0 until the whole
// pipeline has finished; the rest of the app reads that as "pending".
type JobSearch struct {
	ID       string `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID   string `gorm:"column:user_id;type:uuid;index" json:"user_id"`
	JobTitle string `gorm:"column:job_title;type:text" json:"job_title"`
	Location string `gorm:"column:location;type:text" json:"location"`
	Skills   string `gorm:"column:skills;type:text" json:"skills"`
	Salary   int    `gorm:"column:salary;type:integer" json:"salary"`

	SkillTokens pq.StringArray `gorm:"column:skill_tokens;type:text[]" json:"skill_tokens"`
	Criteria    datatypes.JSON `gorm:"column:criteria;type:jsonb" json:"criteria"`

	TaskID    string       `gorm:"column:task_id;type:text" json:"task_id"`
	Status    SearchStatus `gorm:"column:status;type:text;index" json:"status"`
	Error     string       `gorm:"column:error;type:text" json:"error,omitempty"`
	TotalJobs int          `gorm:"column:total_jobs;type:integer" json:"total_jobs"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz" json:"updated_at"`
}

func (JobSearch) TableName() string { return "job_searches" }

func (s JobSearch) Ready() bool { return s.TotalJobs > 0 }

// JobSearchWithStats is a search row joined with aggregates over its results.
type JobSearchWithStats struct {
	JobSearch
	ResultCount int      `gorm:"column:result_count" json:"result_count"`
	AvgAIScore  *float64 `gorm:"column:avg_ai_score" json:"avg_ai_score"`
	MaxAIScore  *int     `gorm:"column:max_ai_score" json:"max_ai_score"`
}

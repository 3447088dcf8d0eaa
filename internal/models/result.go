package models

import (
	"time"

	"gorm.io/datatypes"
)

type JobResult struct {
	ID          string  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	SearchID    string  `gorm:"column:search_id;type:uuid;index" json:"search_id"`
	Rank        int     `gorm:"column:rank;type:integer" json:"rank"`
	Title       string  `gorm:"column:title;type:text" json:"title"`
	Company     string  `gorm:"column:company;type:text" json:"company"`
	Description *string `gorm:"column:description;type:text" json:"description"`
	URL         string  `gorm:"column:url;type:text" json:"url"`
	Source      string  `gorm:"column:source;type:text" json:"source"`
	AIScore     *int    `gorm:"column:ai_score;type:integer" json:"ai_score"`

	// scoring metadata: model, raw response, latency
	Metadata datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz" json:"created_at"`
}

func (JobResult) TableName() string { return "job_results" }

// ScorePoint is the slice of a result the analytics view needs.
type ScorePoint struct {
	SearchID  string    `gorm:"column:search_id" json:"search_id"`
	AIScore   *int      `gorm:"column:ai_score" json:"ai_score"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Pipeline stages recorded in the event log.
const (
	StageStart   = "start"
	StagePoll    = "poll"
	StageFetch   = "fetch"
	StageScore   = "score"
	StagePersist = "persist"
	StageDone    = "done"
)

type PipelineEvent struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SearchID string             `bson:"search_id" json:"search_id"`
	TaskID   string             `bson:"task_id" json:"task_id"`

	Stage    string `bson:"stage" json:"stage"`
	Status   string `bson:"status" json:"status"` // scraper status, or ok|failed for our own stages
	Progress int    `bson:"progress" json:"progress"`
	Message  string `bson:"message,omitempty" json:"message,omitempty"`

	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"` // for TTL index
}

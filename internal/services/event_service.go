package services

import (
	"context"
	"time"

	"github.com/yoockh/jobhunt/internal/models"
	mongorepo "github.com/yoockh/jobhunt/internal/repositories/mongo"
	"github.com/yoockh/jobhunt/internal/utils"
)

type EventService interface {
	Record(ctx context.Context, e models.PipelineEvent) error
	ListBySearch(ctx context.Context, searchID string, limit int64) ([]models.PipelineEvent, error)
	Latest(ctx context.Context, searchID string) (*models.PipelineEvent, error)
}

type eventService struct {
	events mongorepo.EventRepository
	ttl    time.Duration
}

// NewEventService records pipeline events with a TTL. A nil repository
// turns every call into a no-op (event log disabled).
func NewEventService(events mongorepo.EventRepository, ttl time.Duration) EventService {
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &eventService{events: events, ttl: ttl}
}

func (s *eventService) Record(ctx context.Context, e models.PipelineEvent) error {
	const op = "EventService.Record"

	if s.events == nil {
		return nil
	}
	if e.SearchID == "" || e.Stage == "" {
		return utils.E(utils.CodeInvalidArgument, op, "search_id and stage are required", nil)
	}

	now := time.Now().UTC()
	e.Timestamp = now
	e.ExpiresAt = now.Add(s.ttl)

	if err := s.events.Insert(ctx, &e); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to insert pipeline event", err)
	}
	return nil
}

func (s *eventService) ListBySearch(ctx context.Context, searchID string, limit int64) ([]models.PipelineEvent, error) {
	const op = "EventService.ListBySearch"

	if searchID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "search_id is required", nil)
	}
	if s.events == nil {
		return []models.PipelineEvent{}, nil
	}
	out, err := s.events.ListBySearch(ctx, searchID, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list pipeline events", err)
	}
	return out, nil
}

func (s *eventService) Latest(ctx context.Context, searchID string) (*models.PipelineEvent, error) {
	const op = "EventService.Latest"

	if s.events == nil {
		return nil, nil
	}
	e, err := s.events.Latest(ctx, searchID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load latest event", err)
	}
	return e, nil
}

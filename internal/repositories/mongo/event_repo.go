package mongo

import (
	"context"
	"time"

	"github.com/yoockh/jobhunt/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type EventRepository interface {
	Insert(ctx context.Context, e *models.PipelineEvent) error
	ListBySearch(ctx context.Context, searchID string, limit int64) ([]models.PipelineEvent, error)
	Latest(ctx context.Context, searchID string) (*models.PipelineEvent, error)
}

type eventRepo struct {
	col *mongo.Collection
}

func NewEventRepo(db *mongo.Database, collection string) EventRepository {
	return &eventRepo{col: db.Collection(collection)}
}

func (r *eventRepo) Insert(ctx context.Context, e *models.PipelineEvent) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	_, err := r.col.InsertOne(ctx, e)
	return err
}

func (r *eventRepo) ListBySearch(ctx context.Context, searchID string, limit int64) ([]models.PipelineEvent, error) {
	if limit <= 0 {
		limit = 200
	}

	cur, err := r.col.Find(ctx,
		bson.M{"search_id": searchID},
		options.Find().
			SetSort(bson.D{{Key: "timestamp", Value: 1}}).
			SetLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.PipelineEvent{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *eventRepo) Latest(ctx context.Context, searchID string) (*models.PipelineEvent, error) {
	var e models.PipelineEvent
	err := r.col.FindOne(ctx,
		bson.M{"search_id": searchID},
		options.FindOne().SetSort(bson.D{{Key: "timestamp", Value: -1}}),
	).Decode(&e)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

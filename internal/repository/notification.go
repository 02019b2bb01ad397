package repository

import (
	"context"
	"errors"
	"time"

	"sladash-backend/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var ErrNotificationNotFound = errors.New("notification config not found")

type NotificationRepository struct {
	collection *mongo.Collection
}

func NewNotificationRepository(db *mongo.Database) *NotificationRepository {
	return &NotificationRepository{
		collection: db.Collection("notification_configs"),
	}
}

func (r *NotificationRepository) Create(cfg *models.NotificationConfig) (*models.NotificationConfig, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfg.UpdatedAt = time.Now()
	result, err := r.collection.InsertOne(ctx, cfg)
	if err != nil {
		return nil, err
	}

	cfg.ID = result.InsertedID.(primitive.ObjectID)
	return cfg, nil
}

func (r *NotificationRepository) FindByEntity(entityID string) ([]*models.NotificationConfig, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cursor, err := r.collection.Find(ctx, bson.M{"entity_id": entityID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var configs []*models.NotificationConfig
	if err := cursor.All(ctx, &configs); err != nil {
		return nil, err
	}

	return configs, nil
}

func (r *NotificationRepository) Update(id string, cfg *models.NotificationConfig) (*models.NotificationConfig, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, errors.New("invalid notification config ID")
	}

	cfg.UpdatedAt = time.Now()
	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": objectID}, cfg)
	if err != nil {
		return nil, err
	}
	if result.MatchedCount == 0 {
		return nil, ErrNotificationNotFound
	}

	return cfg, nil
}

func (r *NotificationRepository) Delete(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return errors.New("invalid notification config ID")
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotificationNotFound
	}

	return nil
}

package repository

import (
	"context"
	"errors"
	"time"

	"sladash-backend/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrEntityNotFound = errors.New("entity not found")

type EntityRepository struct {
	collection *mongo.Collection
}

func NewEntityRepository(db *mongo.Database) *EntityRepository {
	return &EntityRepository{
		collection: db.Collection("entities"),
	}
}

func (r *EntityRepository) Create(entity *models.Entity) (*models.Entity, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := r.collection.InsertOne(ctx, entity)
	if err != nil {
		return nil, err
	}

	entity.ID = result.InsertedID.(primitive.ObjectID)
	return entity, nil
}

func (r *EntityRepository) FindByID(id string) (*models.Entity, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, errors.New("invalid entity ID")
	}

	var entity models.Entity
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&entity)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrEntityNotFound
		}
		return nil, err
	}

	return &entity, nil
}

func (r *EntityRepository) FindAll() ([]*models.Entity, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entities []*models.Entity
	if err := cursor.All(ctx, &entities); err != nil {
		return nil, err
	}

	return entities, nil
}

func (r *EntityRepository) FindByTenant(tenant string) ([]*models.Entity, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cursor, err := r.collection.Find(ctx, bson.M{"tenant": tenant})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entities []*models.Entity
	if err := cursor.All(ctx, &entities); err != nil {
		return nil, err
	}

	return entities, nil
}

func (r *EntityRepository) Update(id string, entity *models.Entity) (*models.Entity, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, errors.New("invalid entity ID")
	}

	entity.UpdatedAt = time.Now()

	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": objectID}, entity)
	if err != nil {
		return nil, err
	}
	if result.MatchedCount == 0 {
		return nil, ErrEntityNotFound
	}

	return entity, nil
}

func (r *EntityRepository) Delete(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return errors.New("invalid entity ID")
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrEntityNotFound
	}

	return nil
}

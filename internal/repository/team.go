package repository

import (
	"context"
	"errors"
	"time"

	"sladash-backend/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrTeamNotFound = errors.New("team not found")

type TeamRepository struct {
	collection *mongo.Collection
}

func NewTeamRepository(db *mongo.Database) *TeamRepository {
	return &TeamRepository{
		collection: db.Collection("teams"),
	}
}

func (r *TeamRepository) FindAll() ([]*models.Team, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var teams []*models.Team
	if err := cursor.All(ctx, &teams); err != nil {
		return nil, err
	}

	return teams, nil
}

func (r *TeamRepository) FindByID(id string) (*models.Team, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var team models.Team
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&team)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}

	return &team, nil
}

// ListTenants derives the tenant list from team membership; a tenant exists
// exactly when at least one team belongs to it.
func (r *TeamRepository) ListTenants() ([]*models.Tenant, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	names, err := r.collection.Distinct(ctx, "tenant", bson.M{})
	if err != nil {
		return nil, err
	}

	tenants := make([]*models.Tenant, 0, len(names))
	for _, n := range names {
		if name, ok := n.(string); ok {
			tenants = append(tenants, &models.Tenant{Name: name})
		}
	}

	return tenants, nil
}

package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
)

// Connect establishes a connection to MongoDB

func Connect(mongoURI string) (*mongo.Database, error) {
	// Parse the URI to extract database name
	cs, err := connstring.ParseAndValidate(mongoURI)
	if err != nil {
		return nil, fmt.Errorf("invalid MongoDB URI: %v", err)
	}

	// Set client options
	clientOptions := options.Client().ApplyURI(mongoURI)

	// Set connection timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Connect to MongoDB
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %v", err)
	}

	// Ping the database to verify connection
	err = client.Ping(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %v", err)
	}

	log.Println("Successfully connected to MongoDB")

	// Use database name from URI or default to "sla_dashboard"
	dbName := cs.Database
	if dbName == "" {
		dbName = "sla_dashboard"
	}

	db := client.Database(dbName)

	// Initialize indexes
	if err := createIndexes(db); err != nil {
		log.Printf("Warning: Failed to create indexes: %v", err)
	}

	return db, nil
}

// createIndexes creates necessary indexes for all collections
func createIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Entities collection indexes
	entitiesCollection := db.Collection("entities")
	entityIndexes := []mongo.IndexModel{
		{
			Keys: map[string]interface{}{"tenant": 1},
		},
		{
			Keys: map[string]interface{}{"team_id": 1},
		},
		{
			Keys: map[string]interface{}{"type": 1},
		},
		{
			Keys: map[string]interface{}{"status": 1},
		},
		{
			Keys: map[string]interface{}{"last_refresh": -1},
		},
		{
			Keys: map[string]interface{}{
				"tenant": 1,
				"name":   1,
			},
			Options: options.Index().SetUnique(true),
		},
	}

	if _, err := entitiesCollection.Indexes().CreateMany(ctx, entityIndexes); err != nil {
		log.Printf("Failed to create entity indexes: %v", err)
	}

	// Teams collection indexes
	teamsCollection := db.Collection("teams")
	teamIndexes := []mongo.IndexModel{
		{
			Keys: map[string]interface{}{"tenant": 1},
		},
		{
			Keys: map[string]interface{}{
				"tenant": 1,
				"name":   1,
			},
			Options: options.Index().SetUnique(true),
		},
	}

	if _, err := teamsCollection.Indexes().CreateMany(ctx, teamIndexes); err != nil {
		log.Printf("Failed to create team indexes: %v", err)
	}

	// Tasks collection indexes
	tasksCollection := db.Collection("tasks")
	taskIndexes := []mongo.IndexModel{
		{
			Keys: map[string]interface{}{"dag_id": 1},
		},
		{
			Keys: map[string]interface{}{
				"dag_id":   1,
				"priority": 1,
			},
		},
		{
			Keys: map[string]interface{}{"updated_at": -1},
		},
	}

	if _, err := tasksCollection.Indexes().CreateMany(ctx, taskIndexes); err != nil {
		log.Printf("Failed to create task indexes: %v", err)
	}

	// Notification configs collection indexes
	notificationsCollection := db.Collection("notification_configs")
	notificationIndexes := []mongo.IndexModel{
		{
			Keys: map[string]interface{}{"entity_id": 1},
		},
		{
			Keys: map[string]interface{}{
				"entity_id": 1,
				"channel":   1,
			},
		},
	}

	if _, err := notificationsCollection.Indexes().CreateMany(ctx, notificationIndexes); err != nil {
		log.Printf("Failed to create notification config indexes: %v", err)
	}

	log.Println("Database indexes created successfully")
	return nil
}

// Disconnect closes the MongoDB connection
func Disconnect(client *mongo.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from MongoDB: %v", err)
	}

	log.Println("Disconnected from MongoDB")
	return nil
}

// Health checks the database connection health
func Health(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return db.Client().Ping(ctx, nil)
}

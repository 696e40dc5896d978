package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/agritrace/internal/domain/models"
)

// Repository defines the interface for the off-chain event mirror.
type Repository interface {
	StoreEvent(ctx context.Context, event models.Event) error
	SaveAnchor(ctx context.Context, anchor models.Anchor) error
	ListEvents(ctx context.Context, key string) ([]models.Event, error)
}

// MongoDBRepository implements the Repository interface for MongoDB.
type MongoDBRepository struct {
	client      *mongo.Client
	dbName      string
	eventsColl  string
	anchorsColl string
}

// NewMongoDBRepository creates a new MongoDB repository.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string) (*MongoDBRepository, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoDBRepository{
		client:      client,
		dbName:      dbName,
		eventsColl:  "registry_events",
		anchorsColl: "state_anchors",
	}, nil
}

// StoreEvent appends one registry event to the mirror.
func (r *MongoDBRepository) StoreEvent(ctx context.Context, event models.Event) error {
	collection := r.client.Database(r.dbName).Collection(r.eventsColl)
	if _, err := collection.InsertOne(ctx, event); err != nil {
		return fmt.Errorf("failed to insert registry event: %w", err)
	}
	return nil
}

// SaveAnchor persists a periodic state digest.
func (r *MongoDBRepository) SaveAnchor(ctx context.Context, anchor models.Anchor) error {
	collection := r.client.Database(r.dbName).Collection(r.anchorsColl)
	if _, err := collection.InsertOne(ctx, anchor); err != nil {
		return fmt.Errorf("failed to insert state anchor: %w", err)
	}
	return nil
}

// ListEvents returns the mirrored events for one entity key in sequence order.
func (r *MongoDBRepository) ListEvents(ctx context.Context, key string) ([]models.Event, error) {
	collection := r.client.Database(r.dbName).Collection(r.eventsColl)

	opts := options.Find().SetSort(bson.D{{Key: "seq", Value: 1}})
	cursor, err := collection.Find(ctx, bson.M{"key": key}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query registry events: %w", err)
	}
	defer cursor.Close(ctx)

	var events []models.Event
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("failed to decode registry events: %w", err)
	}
	return events, nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

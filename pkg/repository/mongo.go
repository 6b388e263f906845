package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/example/bloomcart/pkg/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoRepository struct {
	client   *mongo.Client
	database *mongo.Database
	orders   *mongo.Collection
	config   *config.MongoDBConfig
}

func NewMongoRepository(cfg *config.MongoDBConfig) (*MongoRepository, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI).SetTimeout(cfg.Timeout))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	database := client.Database(cfg.Database)
	return &MongoRepository{
		client:   client,
		database: database,
		orders:   database.Collection(cfg.Collection),
		config:   cfg,
	}, nil
}

func (m *MongoRepository) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, nil)
}

func (m *MongoRepository) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// Collection exposes sibling collections of the same database, e.g. the catalog.
func (m *MongoRepository) Collection(name string) *mongo.Collection {
	return m.database.Collection(name)
}

// EnsureIndexes creates the indexes the order queries and dashboards rely on.
func (m *MongoRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "floristId", Value: 1}, {Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "deliverId", Value: 1}, {Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "items.flowerId", Value: 1}}},
		{Keys: bson.D{{Key: "orderNumber", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
	}
	if _, err := m.orders.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("failed to create order indexes: %w", err)
	}
	return nil
}

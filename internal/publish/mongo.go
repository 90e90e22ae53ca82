package publish

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"pagebuilder/internal/config"
	"pagebuilder/internal/domain"
)

// mongoSink stores each build as one document.
type mongoSink struct {
	name       string
	client     *mongo.Client
	collection *mongo.Collection
}

func hasMongoScheme(host string) bool {
	return strings.HasPrefix(host, "mongodb+srv://") || strings.HasPrefix(host, "mongodb://")
}

func newMongoSink(name string, cfg config.SinkConfig, collection string) (*mongoSink, error) {
	dbName := cfg.Database
	if dbName == "" {
		dbName = "pagebuilder"
	}

	client, err := mongo.Connect(options.Client().ApplyURI(buildMongoURI(cfg)))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	return &mongoSink{
		name:       name,
		client:     client,
		collection: client.Database(dbName).Collection(collection),
	}, nil
}

func (m *mongoSink) Name() string { return m.name }

func (m *mongoSink) Publish(ctx context.Context, b domain.Build) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := m.collection.InsertOne(ctx, bson.M{
		"_id":        b.ID,
		"page":       b.Page,
		"markup":     b.Markup,
		"license":    b.License,
		"deployedAt": b.DeployedAt,
	})
	if err != nil {
		return fmt.Errorf("insert build: %w", err)
	}
	return nil
}

func (m *mongoSink) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

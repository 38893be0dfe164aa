package stats

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const mongoUsageCollection = "usage_stats"

// MongoBackend stores one document per model: {model, <field>: n, updated_at}.
type MongoBackend struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoBackend connects and pings the deployment.
func NewMongoBackend(ctx context.Context, uri, database string) (*MongoBackend, error) {
	if database == "" {
		database = "ocigw"
	}
	clientOptions := options.Client().ApplyURI(uri)
	clientOptions.SetMaxPoolSize(10)
	clientOptions.SetServerSelectionTimeout(5 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	coll := client.Database(database).Collection(mongoUsageCollection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "model", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to create usage index: %w", err)
	}
	return &MongoBackend{client: client, coll: coll}, nil
}

func (m *MongoBackend) Increment(ctx context.Context, model string, deltas map[string]int64) error {
	inc := bson.M{}
	for field, d := range deltas {
		if d != 0 {
			inc[field] = d
		}
	}
	if len(inc) == 0 {
		return nil
	}
	update := bson.M{
		"$inc": inc,
		"$set": bson.M{"updated_at": time.Now()},
	}
	_, err := m.coll.UpdateOne(ctx, bson.M{"model": model}, update, options.Update().SetUpsert(true))
	return err
}

func (m *MongoBackend) Snapshot(ctx context.Context) (map[string]map[string]int64, error) {
	cursor, err := m.coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := make(map[string]map[string]int64)
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		model, _ := doc["model"].(string)
		if model == "" {
			continue
		}
		row := make(map[string]int64)
		for k, v := range doc {
			if n, ok := asInt64(v); ok && k != "_id" && k != "model" && k != "updated_at" {
				row[k] = n
			}
		}
		out[model] = row
	}
	return out, cursor.Err()
}

func asInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}

func (m *MongoBackend) Reset(ctx context.Context) error {
	_, err := m.coll.DeleteMany(ctx, bson.M{})
	return err
}

func (m *MongoBackend) Close() error {
	if m.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func ConnectMongoDB(ctx context.Context, uri, database string) (*mongo.Database, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(50)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client.Database(database), nil
}

// MongoBackend keeps one collection per catalog table. Documents carry
// the same field names as the SQL columns.
type MongoBackend struct {
	db *mongo.Database
}

func NewMongoBackend(db *mongo.Database) *MongoBackend {
	return &MongoBackend{db: db}
}

func (b *MongoBackend) Get(ctx context.Context, table string, filters Filters) ([]Row, error) {
	allowed, ok := columns[table]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	filter := bson.M{}
	for k, v := range filters {
		if !allowed[k] {
			return nil, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, table, k)
		}
		filter[k] = v
	}

	cursor, err := b.db.Collection(table).Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer cursor.Close(ctx)

	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", table, err)
	}

	out := make([]Row, 0, len(docs))
	for _, doc := range docs {
		row := make(Row, len(doc))
		for k, v := range doc {
			row[k] = plain(v)
		}
		if _, ok := row["id"]; !ok {
			row["id"] = row["_id"]
		}
		delete(row, "_id")
		out = append(out, row)
	}
	return out, nil
}

func (b *MongoBackend) CreateIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		TableProducts: {
			{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "category", Value: 1}}},
		},
		TableMemberships: {
			{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "status", Value: 1}}},
		},
		TablePrograms: {
			{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}

	for collection, models := range indexes {
		if _, err := b.db.Collection(collection).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", collection, err)
		}
	}
	return nil
}

func (b *MongoBackend) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return b.db.Client().Disconnect(ctx)
}

// plain turns driver types into the values the SQL backend would give.
func plain(v any) any {
	switch t := v.(type) {
	case bson.M:
		m := make(map[string]any, len(t))
		for k, inner := range t {
			m[k] = plain(inner)
		}
		return m
	case bson.D:
		m := make(map[string]any, len(t))
		for _, e := range t {
			m[e.Key] = plain(e.Value)
		}
		return m
	case bson.A:
		out := make([]any, 0, len(t))
		for _, inner := range t {
			out = append(out, plain(inner))
		}
		return out
	case primitive.ObjectID:
		return t.Hex()
	case primitive.Decimal128:
		return t.String()
	case primitive.DateTime:
		return t.Time()
	case int32:
		return int64(t)
	default:
		return v
	}
}

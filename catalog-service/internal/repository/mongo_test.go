package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func setupMongoBackend(t *testing.T) *MongoBackend {
	if testing.Short() {
		t.Skip("skipping mongodb container test in short mode")
	}
	ctx := context.Background()

	mongoContainer, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := mongoContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	uri, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := ConnectMongoDB(ctx, uri, "catalog")
	require.NoError(t, err)

	b := NewMongoBackend(db)
	require.NoError(t, b.CreateIndexes(ctx))

	_, err = db.Collection(TableMemberships).InsertMany(ctx, []any{
		bson.M{"id": "basic", "name": "Basic", "features": bson.A{"App access"}, "price_monthly": 19.0, "price_yearly": 182.0, "status": "active", "popular": false},
		bson.M{"id": "pro", "name": "Pro", "features": `["App access","Nutrition plan"]`, "price_monthly": 49.99, "price_yearly": 479.9, "status": "active", "popular": true,
			"details": bson.M{"whoIsItFor": "Lifters", "notes": bson.A{"Form reviews"}}},
		bson.M{"id": "legacy", "name": "Legacy", "price_monthly": 9.0, "price_yearly": 90.0, "status": "inactive"},
	})
	require.NoError(t, err)

	_, err = db.Collection(TablePrograms).InsertOne(ctx, bson.M{"title": "Strength", "price": 79.0, "duration_weeks": int32(12)})
	require.NoError(t, err)

	return b
}

func TestMongoBackend_Get(t *testing.T) {
	b := setupMongoBackend(t)
	ctx := context.Background()

	rows, err := b.Get(ctx, TableMemberships, Filters{"status": "active"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "basic", rows[0]["id"])
	assert.Equal(t, []any{"App access"}, rows[0]["features"])
	assert.NotContains(t, rows[0], "_id")

	details, ok := rows[1]["details"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Lifters", details["whoIsItFor"])
}

func TestMongoBackend_IDFallsBackToObjectID(t *testing.T) {
	b := setupMongoBackend(t)

	rows, err := b.Get(context.Background(), TablePrograms, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	id, ok := rows[0]["id"].(string)
	require.True(t, ok)
	assert.Len(t, id, 24)
	assert.Equal(t, int64(12), rows[0]["duration_weeks"])
}

func TestMongoBackend_RejectsUnknownNames(t *testing.T) {
	b := &MongoBackend{}

	_, err := b.Get(context.Background(), "users", nil)
	assert.ErrorIs(t, err, ErrUnknownTable)

	_, err = b.Get(context.Background(), TableProducts, Filters{"$where": "1"})
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestPlain(t *testing.T) {
	oid := primitive.NewObjectID()
	got := plain(bson.D{{Key: "a", Value: bson.A{int32(1), oid}}})
	assert.Equal(t, map[string]any{"a": []any{int64(1), oid.Hex()}}, got)
}

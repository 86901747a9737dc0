package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSQLBackend(t *testing.T) *SQLBackend {
	b, err := NewSQLBackend(":memory:")
	require.NoError(t, err)
	require.NoError(t, b.RunMigrations("./migrations"))
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestBuildSelect(t *testing.T) {
	query, args, err := buildSelect(TableProducts, Filters{"status": "active", "category": "apparel"})
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM products WHERE category = ? AND status = ? ORDER BY rowid", query)
	assert.Equal(t, []any{"apparel", "active"}, args)

	query, args, err = buildSelect(TablePrograms, nil)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM programs ORDER BY rowid", query)
	assert.Empty(t, args)
}

func TestBuildSelect_RejectsUnknownNames(t *testing.T) {
	_, _, err := buildSelect("users", nil)
	assert.ErrorIs(t, err, ErrUnknownTable)

	_, _, err = buildSelect(TableProducts, Filters{"price; DROP TABLE products": 1})
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestSQLBackend_GetAllProducts(t *testing.T) {
	b := setupSQLBackend(t)

	rows, err := b.Get(context.Background(), TableProducts, nil)
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, "tee-classic", rows[0]["id"])
	assert.Equal(t, 29.99, rows[0]["price"])
	assert.Equal(t, `["S","M","L","XL"]`, rows[0]["sizes"])
}

func TestSQLBackend_Filters(t *testing.T) {
	b := setupSQLBackend(t)

	rows, err := b.Get(context.Background(), TableProducts, Filters{"category": "digital"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "ebook-nutrition", rows[0]["id"])

	rows, err = b.Get(context.Background(), TableMemberships, Filters{"status": "active"})
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	rows, err = b.Get(context.Background(), TableMemberships, Filters{"id": "missing"})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSQLBackend_NullColumns(t *testing.T) {
	b := setupSQLBackend(t)

	rows, err := b.Get(context.Background(), TableMemberships, Filters{"id": "legacy"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Nil(t, rows[0]["details"])
	assert.Equal(t, "not json", rows[0]["features"])
}

func TestSQLBackend_CancelledContext(t *testing.T) {
	b := setupSQLBackend(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.Get(ctx, TableProducts, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8081", cfg.HTTPPort)
	assert.Equal(t, BackendSQL, cfg.Backend)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
}

func TestLoad_Mongo(t *testing.T) {
	t.Setenv("CATALOG_BACKEND", "mongo")
	t.Setenv("MONGO_URI", "mongodb://mongo:27017")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, BackendMongo, cfg.Backend)
	assert.Equal(t, "mongodb://mongo:27017", cfg.MongoURI)
}

func TestLoad_UnknownBackend(t *testing.T) {
	t.Setenv("CATALOG_BACKEND", "postgres")

	_, err := Load()
	assert.Error(t, err)
}

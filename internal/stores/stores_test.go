package stores

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moviehub/pkg/utils"
)

func TestOpenSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "data.db")
	t.Setenv("MOVIEHUB_DB_PATH", path)

	s, err := Open(context.Background(), utils.StoreConfig{Backend: "sqlite"})
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, "sqlite", s.Backend)
	assert.Equal(t, path, s.Location)
	require.NoError(t, s.Ping(context.Background()))
	require.NotNil(t, s.Movies)
	require.NotNil(t, s.Users)
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), utils.StoreConfig{Backend: "postgres"})
	assert.ErrorContains(t, err, "unknown store backend")
}

package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/batchsync/internal/database"
	"github.com/mrlokans/batchsync/internal/mapping"
)

func getHealth(t *testing.T, cfg RouterConfig) (int, HealthResponse) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.GET("/health", NewHealthController(cfg).Status)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

	var response HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return w.Code, response
}

func openHealthTestDB(t *testing.T) *database.Database {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "health.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestHealthController_Status(t *testing.T) {
	t.Run("ok with mappings and a reachable database", func(t *testing.T) {
		code, response := getHealth(t, RouterConfig{
			Database: openHealthTestDB(t),
			Mappings: mapping.DefaultRegistry(),
			Version:  "1.0.0",
		})

		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "ok", response.Status)
		assert.Equal(t, "ok", response.Database)
		assert.Equal(t, "1.0.0", response.Version)
		assert.Equal(t, mapping.DefaultRegistry().Names(), response.Mappings)
		assert.False(t, response.TaskQueue)
		assert.False(t, response.CheckedAt.IsZero())
	})

	t.Run("reports an enabled task queue", func(t *testing.T) {
		_, response := getHealth(t, RouterConfig{
			Mappings:  mapping.DefaultRegistry(),
			TaskQueue: &fakeQueue{},
		})

		assert.True(t, response.TaskQueue)
		assert.Equal(t, "disabled", response.Database)
	})

	t.Run("degraded without mappings", func(t *testing.T) {
		empty, err := mapping.NewRegistry()
		require.NoError(t, err)

		code, response := getHealth(t, RouterConfig{Mappings: empty})

		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "degraded", response.Status)
		assert.Empty(t, response.Mappings)

		code, response = getHealth(t, RouterConfig{})
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "degraded", response.Status)
	})

	t.Run("unavailable when the database is closed", func(t *testing.T) {
		db := openHealthTestDB(t)
		require.NoError(t, db.Close())

		code, response := getHealth(t, RouterConfig{Database: db, Mappings: mapping.DefaultRegistry()})

		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Equal(t, "unavailable", response.Status)
		assert.NotEqual(t, "ok", response.Database)
	})
}

//go:build sqlite || all_adapters

package services

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-quality/pkg/adapters/datasource"
	_ "github.com/ekaya-inc/ekaya-quality/pkg/adapters/datasource/sqlite"
	"github.com/ekaya-inc/ekaya-quality/pkg/models"
	"github.com/ekaya-inc/ekaya-quality/pkg/quality"
)

func createShopDatabase(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "shop.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	for _, stmt := range []string{
		`CREATE TABLE users (
			id INTEGER PRIMARY KEY,
			email TEXT UNIQUE,
			name TEXT,
			created_at DATETIME
		)`,
		`CREATE TABLE orders (
			id INTEGER PRIMARY KEY,
			user_id INTEGER NOT NULL REFERENCES users(id),
			note TEXT
		)`,
		`INSERT INTO users (id, email, name, created_at) VALUES
			(1, 'a@example.com', 'Ann', '2025-05-20 09:00:00'),
			(2, 'b@example.com', NULL, '2025-05-21 09:00:00'),
			(3, 'c@example.com', 'Cy', '2025-05-22 09:00:00'),
			(4, 'd@example.com', 'Di', '2025-05-23 09:00:00')`,
		`INSERT INTO orders (id, user_id, note) VALUES
			(10, 1, NULL),
			(11, 1, 'gift wrap'),
			(12, 3, NULL)`,
	} {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
	return path
}

func TestQualityService_SQLiteEndToEnd(t *testing.T) {
	path := createShopDatabase(t)
	factory := datasource.NewDatasourceAdapterFactory(datasource.ConnectionOptions{PoolMaxConns: 2})
	svc := NewQualityService(factory, quality.DefaultConfig(), 4, nil, nil).(*qualityService)
	svc.now = func() time.Time { return serviceNow }

	result, err := svc.AnalyzeDatasource(context.Background(), AnalyzeRequest{
		DatasourceType: "sqlite",
		Config:         map[string]any{"path": path},
	})
	require.NoError(t, err)
	require.Len(t, result.Tables, 2)

	orders, users := result.Tables[0], result.Tables[1]
	require.Equal(t, "orders", orders.TableName)
	require.Equal(t, "users", users.TableName)
	assert.False(t, orders.Failed(), orders.Error)
	assert.False(t, users.Failed(), users.Error)

	// NULL notes are expected; everything else in orders is complete and unique.
	assert.Empty(t, orders.Issues)
	require.Len(t, orders.Observations, 1)
	assert.Equal(t, models.ClassificationExpectedBehavior, orders.Observations[0].Classification)
	assert.Equal(t, "note", orders.Observations[0].ColumnName)
	assert.Equal(t, 100, orders.Score)
	assert.Equal(t, int64(3), orders.RowCount)

	// One of four names is NULL: 25% is above the warning threshold.
	require.Len(t, users.Issues, 1)
	assert.Equal(t, "name", users.Issues[0].ColumnName)
	assert.Equal(t, models.SeverityWarning, users.Issues[0].Severity)
	assert.Less(t, users.Score, 100)
	assert.Equal(t, int64(4), users.RowCount)

	var createdAt *models.ColumnQuality
	for i := range users.Columns {
		if users.Columns[i].ColumnName == "created_at" {
			createdAt = &users.Columns[i]
		}
	}
	require.NotNil(t, createdAt)
	require.NotNil(t, createdAt.LatestValue)
	assert.False(t, createdAt.Stale)

	assert.Equal(t, 2, result.Overview.TablesAnalyzed)
	assert.Equal(t, "orders", result.Overview.BestTable)
	assert.Equal(t, "users", result.Overview.WorstTable)

	userID := orders.Columns[1]
	require.Equal(t, "user_id", userID.ColumnName)
	require.NotNil(t, userID.Range)
	assert.Equal(t, 1.0, userID.Range.Min)
	assert.Equal(t, 3.0, userID.Range.Max)
	assert.Equal(t, "1.00 to 3.00 (avg 1.67)", userID.RangeSummary)
	assert.Empty(t, userID.TopValues)
	assert.Contains(t, orders.Highlights, "user_id: 100% complete")
}

func TestQualityService_SQLiteTopValues(t *testing.T) {
	path := createShopDatabase(t)
	factory := datasource.NewDatasourceAdapterFactory(datasource.ConnectionOptions{PoolMaxConns: 2})
	svc := NewQualityService(factory, quality.DefaultConfig(), 2, nil, nil).(*qualityService)
	svc.now = func() time.Time { return serviceNow }

	top := 1
	result, err := svc.AnalyzeDatasource(context.Background(), AnalyzeRequest{
		DatasourceType: "sqlite",
		Config:         map[string]any{"path": path},
		Tables:         []string{"orders"},
		Options:        &QualityOptions{TopValues: &top},
	})
	require.NoError(t, err)
	require.Len(t, result.Tables, 1)
	orders := result.Tables[0]
	require.False(t, orders.Failed(), orders.Error)

	assert.Equal(t, []models.ValueFrequency{{Value: "1", Count: 2}}, orders.Columns[1].TopValues)
	assert.Equal(t, []models.ValueFrequency{{Value: "gift wrap", Count: 1}}, orders.Columns[2].TopValues)
}

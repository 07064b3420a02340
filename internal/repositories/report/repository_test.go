package report

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/thistle/pkg/database"
	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/pipeline"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	logger := testLogger()

	db, err := database.Open(context.Background(), database.Config{
		Driver: database.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "thistle.db"),
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	migrations := database.NewMigrationService(logger, &database.MigrationConfig{
		MigrationFolderPath: filepath.Join("..", "..", "..", "db", "migrations"),
	})
	require.NoError(t, migrations.Migrate(db))

	return NewRepository(db, logger)
}

func testReport(runID string, generatedAt time.Time) *models.Report {
	return &models.Report{
		RunID:       runID,
		Dataset:     "DATA1",
		GeneratedAt: generatedAt,
		Top5Days:    []models.DayRevenue{{Date: "2024-01-02", Revenue: 62}},
		DailyRevenue: []models.DayRevenue{
			{Date: "2024-01-01", Revenue: 20},
			{Date: "2024-01-02", Revenue: 62},
		},
		UniqueRealUsers:      4,
		UniqueAuthorSets:     2,
		MostPopularAuthor:    "John",
		MostPopularAuthorSet: "John;Paul",
		TopSpender:           models.Spender{UserIDs: []string{"1", "2"}, TotalSpent: 60, OrderRows: 2},
		TopSpenderUserIDs:    []string{"1", "2"},
	}
}

func TestRepository_SaveAndGet(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	report := testReport("run-1", time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	require.NoError(t, repo.Save(ctx, report))

	stored, err := repo.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, report.MostPopularAuthorSet, stored.MostPopularAuthorSet)
	assert.Equal(t, report.TopSpenderUserIDs, stored.TopSpenderUserIDs)
	assert.True(t, report.GeneratedAt.Equal(stored.GeneratedAt))

	series, err := repo.DailyRevenue(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, report.DailyRevenue, series)
}

func TestRepository_SaveReplacesRun(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	report := testReport("run-1", time.Now())

	require.NoError(t, repo.Save(ctx, report))
	report.DailyRevenue = report.DailyRevenue[:1]
	report.UniqueRealUsers = 9
	require.NoError(t, repo.Save(ctx, report))

	stored, err := repo.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, 9, stored.UniqueRealUsers)

	series, err := repo.DailyRevenue(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, series, 1)
}

func TestRepository_GetNotFound(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, 404, httperror.GetStatusCode(err))
}

func TestRepository_List(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Save(ctx, testReport("older", base)))
	require.NoError(t, repo.Save(ctx, testReport("newer", base.Add(500*time.Millisecond))))
	require.NoError(t, repo.Save(ctx, testReport("newest", base.Add(time.Second))))

	summaries, err := repo.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "newest", summaries[0].RunID)
	assert.Equal(t, "newer", summaries[1].RunID)
	assert.Equal(t, "1,2", summaries[0].TopSpenderUserIDs)
	assert.Equal(t, 60.0, summaries[0].TopSpenderTotal)
}

func TestRepository_Write(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	var sink pipeline.Sink = repo
	require.NoError(t, sink.Write(ctx, &pipeline.Result{Report: testReport("run-2", time.Now())}))

	_, err := repo.Get(ctx, "run-2")
	assert.NoError(t, err)
}

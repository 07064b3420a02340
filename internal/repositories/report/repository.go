package report

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/jmoiron/sqlx"

	"github.com/Ramsey-B/thistle/pkg/database"
	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/pipeline"
	"github.com/Ramsey-B/thistle/pkg/tracing"
)

const (
	reportsTable      = "reports"
	dailyRevenueTable = "daily_revenue"
	userIDSeparator   = ","

	// fixed width so stored timestamps sort lexically
	timeLayout = "2006-01-02T15:04:05.000000Z07:00"
)

// Summary is the stored headline of a report
type Summary struct {
	RunID                string  `db:"run_id" json:"run_id"`
	Dataset              string  `db:"dataset" json:"dataset"`
	GeneratedAt          string  `db:"generated_at" json:"generated_at"`
	UniqueRealUsers      int     `db:"unique_real_users" json:"unique_real_users"`
	UniqueAuthorSets     int     `db:"unique_author_sets" json:"unique_author_sets"`
	MostPopularAuthor    string  `db:"most_popular_author" json:"most_popular_author"`
	MostPopularAuthorSet string  `db:"most_popular_author_set" json:"most_popular_author_set"`
	TopSpenderUserIDs    string  `db:"top_spender_user_ids" json:"top_spender_user_ids"`
	TopSpenderTotal      float64 `db:"top_spender_total" json:"top_spender_total"`
}

// Repository handles report persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new report repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) Name() string {
	return "database"
}

// Write stores the run's report, making the repository a pipeline sink
func (r *Repository) Write(ctx context.Context, result *pipeline.Result) error {
	return r.Save(ctx, result.Report)
}

// Save stores a report and its daily revenue series, replacing any earlier copy of the run
func (r *Repository) Save(ctx context.Context, report *models.Report) error {
	ctx, span := tracing.StartSpan(ctx, "report.Repository.Save")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"method": "Save",
		"run_id": report.RunID,
	})

	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	err = r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		for _, table := range []string{dailyRevenueTable, reportsTable} {
			del := r.db.Flavor().NewDeleteBuilder()
			del.DeleteFrom(table)
			del.Where(del.Equal("run_id", report.RunID))
			query, args := del.Build()
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}

		ib := r.db.Flavor().NewInsertBuilder()
		ib.InsertInto(reportsTable)
		ib.Cols("run_id", "dataset", "generated_at", "unique_real_users", "unique_author_sets",
			"most_popular_author", "most_popular_author_set", "top_spender_user_ids", "top_spender_total", "payload")
		ib.Values(report.RunID, report.Dataset, report.GeneratedAt.UTC().Format(timeLayout),
			report.UniqueRealUsers, report.UniqueAuthorSets, report.MostPopularAuthor, report.MostPopularAuthorSet,
			strings.Join(report.TopSpenderUserIDs, userIDSeparator), report.TopSpender.TotalSpent, string(payload))
		query, args := ib.Build()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert report: %w", err)
		}

		if len(report.DailyRevenue) == 0 {
			return nil
		}
		ib = r.db.Flavor().NewInsertBuilder()
		ib.InsertInto(dailyRevenueTable)
		ib.Cols("run_id", "date", "revenue")
		for _, day := range report.DailyRevenue {
			ib.Values(report.RunID, day.Date, day.Revenue)
		}
		query, args = ib.Build()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert daily revenue: %w", err)
		}
		return nil
	})
	if err != nil {
		log.WithError(err).Error("Failed to save report")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to save report")
	}

	log.Debug("Saved report")
	return nil
}

// Get returns the stored report of a run
func (r *Repository) Get(ctx context.Context, runID string) (*models.Report, error) {
	ctx, span := tracing.StartSpan(ctx, "report.Repository.Get")
	defer span.End()

	sb := r.db.Flavor().NewSelectBuilder()
	sb.Select("payload").From(reportsTable).Where(sb.Equal("run_id", runID))
	query, args := sb.Build()

	var payload string
	if err := r.db.GetContext(ctx, &payload, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("report for run %s not found", runID))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get report")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get report")
	}

	var report models.Report
	if err := json.Unmarshal([]byte(payload), &report); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to decode stored report")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to decode report")
	}
	return &report, nil
}

// List returns report headlines, newest first
func (r *Repository) List(ctx context.Context, limit int) ([]Summary, error) {
	ctx, span := tracing.StartSpan(ctx, "report.Repository.List")
	defer span.End()

	sb := r.db.Flavor().NewSelectBuilder()
	sb.Select("run_id", "dataset", "generated_at", "unique_real_users", "unique_author_sets",
		"most_popular_author", "most_popular_author_set", "top_spender_user_ids", "top_spender_total").
		From(reportsTable).
		OrderBy("generated_at").Desc()
	if limit > 0 {
		sb.Limit(limit)
	}
	query, args := sb.Build()

	summaries := []Summary{}
	if err := r.db.SelectContext(ctx, &summaries, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list reports")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list reports")
	}
	return summaries, nil
}

// DailyRevenue returns the stored daily series of a run, date ascending
func (r *Repository) DailyRevenue(ctx context.Context, runID string) ([]models.DayRevenue, error) {
	ctx, span := tracing.StartSpan(ctx, "report.Repository.DailyRevenue")
	defer span.End()

	sb := r.db.Flavor().NewSelectBuilder()
	sb.Select("date", "revenue").From(dailyRevenueTable).Where(sb.Equal("run_id", runID)).OrderBy("date").Asc()
	query, args := sb.Build()

	series := []models.DayRevenue{}
	if err := r.db.SelectContext(ctx, &series, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get daily revenue")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get daily revenue")
	}
	return series, nil
}

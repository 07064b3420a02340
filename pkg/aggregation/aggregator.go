// Package aggregation computes the sales analytics over normalized and resolved data.
// Every computation is read-only over its inputs.
package aggregation

import (
	"context"

	"github.com/Gobusters/ectolinq"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/thistle/pkg/identity"
	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/tracing"
)

// Input is everything the analytics need from the earlier stages
type Input struct {
	Orders     []models.NormalizedOrder
	Books      []models.NormalizedBook
	Resolution *identity.Resolution
}

// Config contains configuration for the aggregator
type Config struct {
	TopDays    int // Number of days in the revenue ranking (default: 5)
	TopAuthors int // Number of authors kept in the report (default: 10)
}

// DefaultConfig returns default aggregator configuration
func DefaultConfig() Config {
	return Config{
		TopDays:    DefaultTopDays,
		TopAuthors: 10,
	}
}

// Aggregator computes the report analytics
type Aggregator struct {
	logger ectologger.Logger
	config Config
}

// NewAggregator creates a new aggregator
func NewAggregator(logger ectologger.Logger, config Config) *Aggregator {
	return &Aggregator{
		logger: logger,
		config: config,
	}
}

// Aggregate runs the five analytics and assembles them into a report.
// Run metadata (id, dataset, stats) is left for the caller to fill in.
func (a *Aggregator) Aggregate(ctx context.Context, in Input) *models.Report {
	ctx, span := tracing.StartSpan(ctx, "aggregation.Aggregator.Aggregate")
	defer span.End()

	daily := DailyRevenue(in.Orders)
	ranking := AuthorPopularity(in.Orders, in.Books)
	spender, _ := TopSpender(in.Orders, in.Resolution)

	report := &models.Report{
		Top5Days:          TopDays(daily, a.config.TopDays),
		DailyRevenue:      daily,
		UniqueRealUsers:   UniqueRealUsers(in.Resolution),
		UniqueAuthorSets:  UniqueAuthorSets(in.Books),
		TopSpender:        spender,
		TopSpenderUserIDs: spender.UserIDs,
	}

	if top, ok := ranking.TopAuthor(); ok {
		report.MostPopularAuthor = top.Name
	}
	if top, ok := ranking.TopAuthorSet(); ok {
		report.MostPopularAuthorSet = top.Name
	}
	report.TopAuthors = ranking.ByAuthor
	if a.config.TopAuthors > 0 && len(report.TopAuthors) > a.config.TopAuthors {
		report.TopAuthors = report.TopAuthors[:a.config.TopAuthors]
	}

	if a.logger != nil {
		a.logger.WithContext(ctx).WithFields(map[string]any{
			"days":                len(daily),
			"top_days":            ectolinq.Map(report.Top5Days, func(d models.DayRevenue) string { return d.Date }),
			"unique_real_users":   report.UniqueRealUsers,
			"unique_author_sets":  report.UniqueAuthorSets,
			"most_popular_author": report.MostPopularAuthor,
			"unmatched_orders":    ranking.Unmatched,
		}).Info("Aggregated report")
	}

	return report
}

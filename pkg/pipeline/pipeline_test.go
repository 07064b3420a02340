package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	thistleerrors "github.com/Ramsey-B/thistle/pkg/errors"
	"github.com/Ramsey-B/thistle/pkg/loader"
	"github.com/Ramsey-B/thistle/pkg/models"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return cfg
}

type recordingSink struct {
	name    string
	err     error
	results []*Result
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Write(_ context.Context, result *Result) error {
	s.results = append(s.results, result)
	return s.err
}

const usersCSV = `id,name,address,phone,email
1,Ann Lee,Main St 1,555-0001,ann@x.com
2,Ann L.,Main St 1,555-0002,ann.l@x.com
3,Bob,Elm St 2,555-0003,bob@x.com
3,Bob,Elm St 2,555-0003,bob@x.com
5,Eve,Oak St 3,555-0005,not-an-email
`

const ordersJSON = `[
  {"id": "o1", "user_id": 1, "book_id": "b1", "quantity": 2, "timestamp": "2024-01-01 10:00", "unit_price": "$10.00"},
  {"id": "o2", "user_id": 2, "book_id": "b2", "quantity": 1, "timestamp": "2024-01-02 09:30:00 A.M.", "unit_price": "10€"},
  {"id": "o3", "user_id": 3, "book_id": "b1", "quantity": 5, "timestamp": "2024-01-02; 11:00", "unit_price": [49, 48, 36]},
  {"id": "o4", "user_id": 5, "book_id": "b3", "quantity": 1, "timestamp": "", "unit_price": "N/A"},
  {"id": "o5", "user_id": 9, "book_id": "missing", "quantity": 3, "timestamp": "2024-01-03", "unit_price": 1}
]`

const booksYAML = `
- :id: b1
  :author: John, Paul
  :year: 1999
- :id: b2
  :author: John
  :year: 3000
- :id: b3
  :author: Paul;John
  :year: abc
`

func writeDataset(t *testing.T, orders string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "DATA1")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, loader.UsersFile), []byte(usersCSV), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, loader.OrdersFile), []byte(orders), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, loader.BooksFile), []byte(booksYAML), 0o600))
	return dir
}

func TestPipeline_Run(t *testing.T) {
	dir := writeDataset(t, ordersJSON)
	sink := &recordingSink{name: "recording"}

	result, err := NewPipeline(testLogger(), testConfig(), sink).RunWithID(context.Background(), "run-1", dir)
	require.NoError(t, err)
	require.Len(t, sink.results, 1)
	assert.Same(t, result, sink.results[0])

	report := result.Report
	assert.Equal(t, "run-1", report.RunID)
	assert.Equal(t, "DATA1", report.Dataset)

	// o1: 2 x 10 = 20, o2: 1 x 12 = 12, o3: 5 x 10 = 50, o5: 3 x 1 = 3, o4 undated
	assert.Equal(t, []models.DayRevenue{
		{Date: "2024-01-01", Revenue: 20},
		{Date: "2024-01-02", Revenue: 62},
		{Date: "2024-01-03", Revenue: 3},
	}, report.DailyRevenue)
	assert.Equal(t, "2024-01-02", report.Top5Days[0].Date)

	// Ann's two accounts share an address; Bob, Eve (filtered) and the unknown user are alone
	assert.Equal(t, 4, report.UniqueRealUsers)
	assert.Equal(t, 2, report.UniqueAuthorSets)
	assert.Equal(t, "John", report.MostPopularAuthor)
	assert.Equal(t, "John;Paul", report.MostPopularAuthorSet)
	assert.Equal(t, []string{"3"}, report.TopSpenderUserIDs)
	assert.InDelta(t, 50.0, report.TopSpender.TotalSpent, 1e-9)

	assert.Equal(t, models.RunStats{
		UsersLoaded:    5,
		UsersKept:      3,
		UsersRejected:  1,
		BooksLoaded:    3,
		BooksKept:      3,
		OrdersLoaded:   5,
		OrdersUndated:  1,
		ZeroPriceRows:  1,
		IdentityValues: report.Stats.IdentityValues,
	}, report.Stats)
	assert.Positive(t, report.Stats.IdentityValues)
}

func TestPipeline_Run_AliasesLinked(t *testing.T) {
	orders := `[
  {"id": "o1", "user_id": 1, "book_id": "b1", "quantity": 1, "timestamp": "2024-01-01", "unit_price": 30},
  {"id": "o2", "user_id": 2, "book_id": "b1", "quantity": 1, "timestamp": "2024-01-01", "unit_price": 30},
  {"id": "o3", "user_id": 3, "book_id": "b1", "quantity": 1, "timestamp": "2024-01-01", "unit_price": 50}
]`
	dir := writeDataset(t, orders)

	result, err := NewPipeline(testLogger(), testConfig()).Run(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Report.UniqueRealUsers)
	assert.Equal(t, []string{"1", "2"}, result.Report.TopSpenderUserIDs)
	assert.InDelta(t, 60.0, result.Report.TopSpender.TotalSpent, 1e-9)
	assert.NotEmpty(t, result.Report.RunID)
}

func TestPipeline_Run_BadTimestampAborts(t *testing.T) {
	orders := `[
  {"id": "o1", "user_id": 1, "book_id": "b1", "quantity": 1, "timestamp": "2024-01-01", "unit_price": 1},
  {"id": "o2", "user_id": 1, "book_id": "b1", "quantity": 1, "timestamp": "definitely not a date", "unit_price": 1}
]`
	dir := writeDataset(t, orders)
	sink := &recordingSink{name: "recording"}

	result, err := NewPipeline(testLogger(), testConfig(), sink).Run(context.Background(), dir)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Empty(t, sink.results)

	dqErr, ok := thistleerrors.AsDataQualityError(err)
	require.True(t, ok)
	assert.Equal(t, "orders", dqErr.Table)
	assert.Equal(t, 1, dqErr.Row)
	assert.Equal(t, "o2", dqErr.RecordID)
	assert.Equal(t, "timestamp", dqErr.Field)
	assert.Equal(t, "definitely not a date", dqErr.Value)
}

func TestPipeline_NormalizeOrders_LowestFailingRow(t *testing.T) {
	const n = 2000
	orders := make([]models.OrderRecord, n)
	for i := range orders {
		orders[i] = models.OrderRecord{ID: fmt.Sprintf("o%d", i), TimestampRaw: "2024-01-01", Quantity: 1}
	}
	orders[700].TimestampRaw = "definitely not a date"
	orders[1900].TimestampRaw = "definitely not a date"

	cfg := testConfig()
	cfg.Workers = 8
	p := NewPipeline(testLogger(), cfg)

	for i := 0; i < 10; i++ {
		_, err := p.normalizeOrders(context.Background(), orders, nil)
		dqErr, ok := thistleerrors.AsDataQualityError(err)
		require.True(t, ok)
		assert.Equal(t, 700, dqErr.Row)
	}
}

func TestPipeline_NormalizeOrders_PreservesOrder(t *testing.T) {
	const n = 1000
	orders := make([]models.OrderRecord, n)
	for i := range orders {
		orders[i] = models.OrderRecord{ID: fmt.Sprintf("o%d", i), Quantity: int64(i), UnitPriceRaw: models.NumberPrice(1)}
	}

	cfg := testConfig()
	cfg.Workers = 4
	out, err := NewPipeline(testLogger(), cfg).normalizeOrders(context.Background(), orders, nil)
	require.NoError(t, err)
	require.Len(t, out, n)
	for i, o := range out {
		assert.Equal(t, i, o.Row)
		assert.Equal(t, float64(i), o.PaidPrice)
	}
}

func TestPipeline_Run_SinkFailure(t *testing.T) {
	dir := writeDataset(t, ordersJSON)
	failing := &recordingSink{name: "broken", err: errors.New("unavailable")}
	after := &recordingSink{name: "after"}

	result, err := NewPipeline(testLogger(), testConfig(), failing, after).Run(context.Background(), dir)
	require.Error(t, err)
	require.NotNil(t, result)
	assert.Contains(t, err.Error(), "sink broken")
	assert.Len(t, after.results, 1)
}

func TestPipeline_Run_CanceledContext(t *testing.T) {
	dir := writeDataset(t, ordersJSON)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := NewPipeline(testLogger(), testConfig()).Run(ctx, dir)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, result)
}

func TestPipeline_Run_MissingDataset(t *testing.T) {
	_, err := NewPipeline(testLogger(), testConfig()).Run(context.Background(), filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "load: "))
}

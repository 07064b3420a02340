package aggregation

import (
	"sort"

	"github.com/Ramsey-B/thistle/pkg/models"
)

// DefaultTopDays is how many days the revenue ranking reports
const DefaultTopDays = 5

// DailyRevenue sums paid price per calendar date. The series is date ascending; orders without
// a timestamp have no date and are left out.
func DailyRevenue(orders []models.NormalizedOrder) []models.DayRevenue {
	totals := make(map[string]float64)
	for _, o := range orders {
		if o.Date == "" {
			continue
		}
		totals[o.Date] += o.PaidPrice
	}

	series := make([]models.DayRevenue, 0, len(totals))
	for date, revenue := range totals {
		series = append(series, models.DayRevenue{Date: date, Revenue: revenue})
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Date < series[j].Date })
	return series
}

// TopDays ranks days by revenue, highest first, and returns at most n of them.
// Equal revenues are ordered by ascending date.
func TopDays(series []models.DayRevenue, n int) []models.DayRevenue {
	ranked := make([]models.DayRevenue, len(series))
	copy(ranked, series)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Revenue != ranked[j].Revenue {
			return ranked[i].Revenue > ranked[j].Revenue
		}
		return ranked[i].Date < ranked[j].Date
	})
	if n >= 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

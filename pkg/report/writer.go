// Package report renders a run report to files: report.json, daily_rev.csv and daily_rev.png,
// plus the plain-text summary printed by the CLI.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Gobusters/ectolinq"

	"github.com/Ramsey-B/thistle/pkg/models"
)

const (
	ReportFile       = "report.json"
	DailyRevenueFile = "daily_rev.csv"
	ChartFile        = "daily_rev.png"
)

// DailyRevenueHeader is the header row of daily_rev.csv
var DailyRevenueHeader = []string{"date", "paid_price"}

// WriteJSON writes the report as indented JSON
func WriteJSON(w io.Writer, report *models.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// WriteDailyRevenueCSV writes the daily series, date ascending, as two columns
func WriteDailyRevenueCSV(w io.Writer, series []models.DayRevenue) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(DailyRevenueHeader); err != nil {
		return err
	}
	for _, day := range series {
		if err := cw.Write([]string{day.Date, formatAmount(day.Revenue)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSummary prints the five analytics in a fixed order
func WriteSummary(w io.Writer, report *models.Report) error {
	days := ectolinq.Map(report.Top5Days, func(d models.DayRevenue) string {
		return fmt.Sprintf("%s %s", d.Date, formatAmount(d.Revenue))
	})
	buyers := ectolinq.Ternary(len(report.TopSpenderUserIDs) == 0, "-", strings.Join(report.TopSpenderUserIDs, ", "))

	lines := []string{
		"TOP 5 DAYS:",
	}
	for _, d := range days {
		lines = append(lines, "  "+d)
	}
	lines = append(lines,
		fmt.Sprintf("NUMBER OF UNIQUE USERS: %d", report.UniqueRealUsers),
		fmt.Sprintf("NUMBER OF UNIQUE SETS OF AUTHORS: %d", report.UniqueAuthorSets),
		fmt.Sprintf("NAME OF MOST POPULAR AUTHOR: %s", report.MostPopularAuthor),
		fmt.Sprintf("MOST POPULAR AUTHOR SET: %s", report.MostPopularAuthorSet),
		fmt.Sprintf("BEST BUYERS: %s", buyers),
	)

	_, err := io.WriteString(w, strings.Join(lines, "\n")+"\n")
	return err
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

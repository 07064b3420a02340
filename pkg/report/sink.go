package report

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/thistle/pkg/pipeline"
	"github.com/Ramsey-B/thistle/pkg/tracing"
)

// FileSink writes each run's report files into <dir>/<run id>/
type FileSink struct {
	dir    string
	chart  ChartOptions
	logger ectologger.Logger
}

// NewFileSink creates a new file sink rooted at dir
func NewFileSink(dir string, logger ectologger.Logger) *FileSink {
	return &FileSink{
		dir:    dir,
		chart:  DefaultChartOptions(),
		logger: logger,
	}
}

func (s *FileSink) Name() string {
	return "files"
}

// RunDir returns the directory a run's files are written to
func (s *FileSink) RunDir(runID string) string {
	return filepath.Join(s.dir, runID)
}

// Write writes report.json, daily_rev.csv and daily_rev.png
func (s *FileSink) Write(ctx context.Context, result *pipeline.Result) error {
	ctx, span := tracing.StartSpan(ctx, "report.FileSink.Write")
	defer span.End()

	report := result.Report
	dir := s.RunDir(report.RunID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	files := []struct {
		name  string
		write func(io.Writer) error
	}{
		{ReportFile, func(w io.Writer) error { return WriteJSON(w, report) }},
		{DailyRevenueFile, func(w io.Writer) error { return WriteDailyRevenueCSV(w, report.DailyRevenue) }},
		{ChartFile, func(w io.Writer) error { return RenderChart(w, report.DailyRevenue, s.chart) }},
	}
	for _, f := range files {
		if err := writeFile(filepath.Join(dir, f.name), f.write); err != nil {
			return err
		}
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"run_id": report.RunID,
		"dir":    dir,
	}).Debug("Wrote report files")

	return nil
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, closeErr)
		}
	}()

	if err := write(f); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

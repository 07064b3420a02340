package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/thistle/config"
	"github.com/Ramsey-B/thistle/pkg/report"
)

type runOptions struct {
	outputDir string
}

func newRunCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run [dataset-dir]",
		Short: "Run the pipeline once over a dataset directory and print the summary",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var dir string
			if len(args) == 1 {
				dir = args[0]
			}
			return runOnce(cmd, dir, opts)
		},
	}

	cmd.Flags().StringVar(&opts.outputDir, "output", "", "Directory for report files (default: OUTPUT_DIR)")

	return cmd
}

func runOnce(cmd *cobra.Command, dir string, opts runOptions) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, func(cfg *config.Config) {
		if opts.outputDir != "" {
			cfg.OutputDir = opts.outputDir
		}
	})
	if err != nil {
		return err
	}
	defer func() { _ = a.close(context.Background()) }()

	if dir == "" {
		dir = a.cfg.DataDir
	}

	result, runErr := a.pipeline.Run(ctx, dir)
	if result == nil {
		return runErr
	}

	if err := report.WriteSummary(cmd.OutOrStdout(), result.Report); err != nil {
		return err
	}

	// sink failures still exit non-zero once the summary is out
	return runErr
}

package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"loanrisk/internal/app"
	"loanrisk/internal/config"
	"loanrisk/internal/pipeline"
	"loanrisk/pkg/contracts"
)

const tool = "trainer"

type options struct {
	in          string
	folds       int
	parallelism int
	out         string
	version     bool
}

func parseFlags(args []string, defaults config.Config, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet(tool, flag.ContinueOnError)
	fs.SetOutput(stderr)

	var o options
	fs.StringVar(&o.in, "in", defaults.Sampling.OutputFile, "anonymized gzip CSV sample (relative names resolve in data/samples)")
	fs.IntVar(&o.folds, "folds", defaults.Model.Folds, "number of stratified cross-validation folds")
	fs.IntVar(&o.parallelism, "parallel", defaults.Model.Parallelism, "folds trained concurrently")
	fs.StringVar(&o.out, "out", "", "data directory holding samples/ and reports/ (defaults to paths.data_dir)")
	fs.BoolVar(&o.version, "version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.version {
		return o, nil
	}
	if o.folds < 2 {
		return o, fmt.Errorf("-folds must be at least 2, got %d", o.folds)
	}
	return o, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	opts, err := parseFlags(os.Args[1:], *cfg, os.Stderr)
	if err != nil {
		slog.Error("Invalid arguments", "error", err)
		os.Exit(2)
	}
	if opts.version {
		fmt.Println(contracts.GetFullVersionString(tool))
		return
	}
	if opts.out != "" {
		cfg.Paths.DataDir = opts.out
	}

	application, err := app.NewWithConfig(tool, cfg)
	if err != nil {
		slog.Error("Failed to initialize", "error", err)
		os.Exit(1)
	}

	ctx, stop := application.Context()
	result, err := application.Runner.Train(ctx, pipeline.TrainRequest{
		SamplePath:  opts.in,
		Folds:       opts.folds,
		Parallelism: opts.parallelism,
	})
	stop()
	if err != nil {
		application.Logger.Error("Training failed", slog.String("error", err.Error()))
		application.Close()
		os.Exit(1)
	}

	for _, s := range result.Report.Summary {
		fmt.Printf("%-14s %.4f ± %.4f\n", s.Metric, s.Mean, s.Std)
	}
	for _, p := range result.Reports {
		fmt.Println(p)
	}

	if err := application.Close(); err != nil {
		slog.Warn("Shutdown incomplete", "error", err)
	}
}

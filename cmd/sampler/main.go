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
	"loanrisk/pkg/contracts/domain"
)

const tool = "sampler"

type options struct {
	in      string
	out     string
	from    string
	to      string
	size    int
	seed    int64
	dataset string
	version bool
}

// parseFlags reads flags over the configured sampling defaults
func parseFlags(args []string, defaults config.SamplingConfig, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet(tool, flag.ContinueOnError)
	fs.SetOutput(stderr)

	var o options
	fs.StringVar(&o.in, "in", "", "raw Lending Club file (.csv, .csv.gz, .gzip or .xlsx)")
	fs.StringVar(&o.out, "out", defaults.OutputFile, "gzip CSV sample to write (relative names go to data/samples)")
	fs.StringVar(&o.from, "from", defaults.From, "first issue date, YYYY-MM-DD")
	fs.StringVar(&o.to, "to", defaults.To, "last issue date, YYYY-MM-DD")
	fs.IntVar(&o.size, "size", defaults.TargetSize, "target sample size")
	fs.Int64Var(&o.seed, "seed", defaults.Seed, "random seed")
	fs.StringVar(&o.dataset, "dataset", "", "Kaggle dataset owner/name to download instead of -in")
	fs.BoolVar(&o.version, "version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return o, err
	}

	if o.version {
		return o, nil
	}
	if o.in == "" && o.dataset == "" {
		return o, fmt.Errorf("one of -in or -dataset is required")
	}
	return o, nil
}

func (o options) request() (pipeline.Request, error) {
	rng, err := domain.NewDateRange(o.from, o.to)
	if err != nil {
		return pipeline.Request{}, err
	}
	return pipeline.Request{
		InputPath:  o.in,
		DatasetID:  o.dataset,
		Range:      rng,
		SampleSize: o.size,
		OutputPath: o.out,
		Seed:       o.seed,
	}, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	opts, err := parseFlags(os.Args[1:], cfg.Sampling, os.Stderr)
	if err != nil {
		slog.Error("Invalid arguments", "error", err)
		os.Exit(2)
	}
	if opts.version {
		fmt.Println(contracts.GetFullVersionString(tool))
		return
	}

	req, err := opts.request()
	if err != nil {
		slog.Error("Invalid date range", "error", err)
		os.Exit(2)
	}

	application, err := app.NewWithConfig(tool, cfg)
	if err != nil {
		slog.Error("Failed to initialize", "error", err)
		os.Exit(1)
	}

	ctx, stop := application.Context()
	result, err := application.Runner.Anonymize(ctx, req)
	stop()
	if err != nil {
		application.Logger.Error("Sampling failed", slog.String("error", err.Error()))
		application.Close()
		os.Exit(1)
	}

	application.Logger.Info("Sample ready",
		slog.String("path", result.File.Path),
		slog.Int("rows", result.Report.SampleRows),
		slog.Float64("size_mb", result.File.SizeMB),
		slog.Bool("publish_suitable", result.File.PublishSuitable),
		slog.Float64("default_rate_diff", result.Report.DefaultRateDiff))
	for _, p := range result.Reports {
		fmt.Println(p)
	}
	fmt.Println(result.File.Path)

	if err := application.Close(); err != nil {
		slog.Warn("Shutdown incomplete", "error", err)
	}
}

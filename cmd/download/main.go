package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"loanrisk/internal/app"
	"loanrisk/internal/config"
	"loanrisk/internal/kaggle"
	"loanrisk/pkg/contracts"
)

const tool = "download"

type options struct {
	dataset string
	dir     string
	version bool
}

func parseFlags(args []string, defaults config.KaggleConfig, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet(tool, flag.ContinueOnError)
	fs.SetOutput(stderr)

	var o options
	fs.StringVar(&o.dataset, "dataset", defaults.DatasetID, "Kaggle dataset owner/name")
	fs.StringVar(&o.dir, "dir", "", "data directory (downloads land in <dir>/downloads)")
	fs.BoolVar(&o.version, "version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.version {
		return o, nil
	}
	if _, _, err := kaggle.ParseDatasetID(o.dataset); err != nil {
		return o, err
	}
	return o, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	opts, err := parseFlags(os.Args[1:], cfg.Kaggle, os.Stderr)
	if err != nil {
		slog.Error("Invalid arguments", "error", err)
		os.Exit(2)
	}
	if opts.version {
		fmt.Println(contracts.GetFullVersionString(tool))
		return
	}
	if opts.dir != "" {
		cfg.Paths.DataDir = opts.dir
	}

	application, err := app.NewWithConfig(tool, cfg)
	if err != nil {
		slog.Error("Failed to initialize", "error", err)
		os.Exit(1)
	}

	ctx, stop := application.Context()
	path, err := application.Runner.Download(ctx, opts.dataset)
	stop()
	if err != nil {
		application.Logger.Error("Download failed", slog.String("error", err.Error()))
		application.Close()
		os.Exit(1)
	}

	fmt.Println(path)
	if err := application.Close(); err != nil {
		slog.Warn("Shutdown incomplete", "error", err)
	}
}

// Package app wires a batch tool together: configuration, directory layout,
// logging, telemetry and the pipeline runner. Every cmd/ binary builds one
// Application, runs a single command under a signal-aware context and closes
// it to flush traces and log files.
//
// # Initialization Flow
//
//	1. Load configuration from defaults, config.yaml and LOANRISK_* variables
//	2. Resolve and create the data, samples, reports and logs directories
//	3. Initialize the slog logger and OpenTelemetry providers
//	4. Build the pipeline runner
//
// # Usage
//
//	application, err := app.New("sampler", overrides)
//	if err != nil { ... }
//	defer application.Close()
//	ctx, stop := application.Context()
//	defer stop()
//	result, err := application.Runner.Anonymize(ctx, req)
package app

// Package pipeline wires the batch stages together: optional dataset
// download, loading, anonymization and stratified sampling, sample export,
// and cross-validated model evaluation.
//
// Each stage runs inside an OpenTelemetry span, is timed into the stage
// duration histogram and is recorded in a run manifest written next to the
// reports:
//
//	runner, err := pipeline.NewRunner(cfg, paths, telemetry, logger)
//	result, err := runner.Anonymize(ctx, pipeline.Request{...})
//	cv, err := runner.Train(ctx, pipeline.TrainRequest{SamplePath: result.File.Path, Folds: 5})
package pipeline

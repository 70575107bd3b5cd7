package model

import (
	"fmt"

	"loanrisk/internal/config"
	apperrors "loanrisk/internal/errors"
)

// Class weighting modes
const (
	ClassWeightBalanced = "balanced"
	ClassWeightNone     = "none"
)

// Params configures the LightGBM booster
type Params struct {
	NumRounds       int
	LearningRate    float64
	MaxDepth        int
	MinChildSamples int
	Lambda          float64
	Subsample       float64
	ColSample       float64
	ClassWeight     string
	// ScalePosWeight overrides ClassWeight when positive
	ScalePosWeight float64
	Threshold      float64
	Seed           int64
}

// DefaultParams mirrors the configured defaults
func DefaultParams() Params {
	return ParamsFromConfig(config.Default().Model)
}

// ParamsFromConfig converts the model section of the configuration
func ParamsFromConfig(cfg config.ModelConfig) Params {
	return Params{
		NumRounds:       cfg.NumRounds,
		LearningRate:    cfg.LearningRate,
		MaxDepth:        cfg.MaxDepth,
		MinChildSamples: cfg.MinChildSamples,
		Lambda:          cfg.Lambda,
		Subsample:       cfg.Subsample,
		ColSample:       cfg.ColSample,
		ClassWeight:     cfg.ClassWeight,
		Threshold:       cfg.Threshold,
		Seed:            cfg.Seed,
	}
}

// Validate rejects parameters the trainer cannot honour
func (p Params) Validate() error {
	switch {
	case p.NumRounds <= 0:
		return invalidParam("num_rounds", p.NumRounds)
	case p.LearningRate <= 0 || p.LearningRate > 1:
		return invalidParam("learning_rate", p.LearningRate)
	case p.MaxDepth <= 0:
		return invalidParam("max_depth", p.MaxDepth)
	case p.MaxDepth > 16:
		return invalidParam("max_depth", p.MaxDepth)
	case p.MinChildSamples < 1:
		return invalidParam("min_child_samples", p.MinChildSamples)
	case p.Lambda < 0:
		return invalidParam("lambda", p.Lambda)
	case p.Subsample <= 0 || p.Subsample > 1:
		return invalidParam("subsample", p.Subsample)
	case p.ColSample <= 0 || p.ColSample > 1:
		return invalidParam("colsample", p.ColSample)
	case p.Threshold <= 0 || p.Threshold >= 1:
		return invalidParam("threshold", p.Threshold)
	case p.ClassWeight != ClassWeightBalanced && p.ClassWeight != ClassWeightNone && p.ClassWeight != "":
		return invalidParam("class_weight", p.ClassWeight)
	}
	return nil
}

func invalidParam(name string, v interface{}) error {
	return apperrors.NewValidationError(fmt.Sprintf("invalid model parameter %s=%v", name, v))
}

// positiveWeight returns the sample weight applied to defaults
func (p Params) positiveWeight(y []float64) float64 {
	if p.ScalePosWeight > 0 {
		return p.ScalePosWeight
	}
	if p.ClassWeight != ClassWeightBalanced {
		return 1
	}
	pos := 0.0
	for _, v := range y {
		pos += v
	}
	neg := float64(len(y)) - pos
	if pos == 0 || neg == 0 {
		return 1
	}
	return neg / pos
}

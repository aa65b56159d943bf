// Package trainer runs the two forecasting models end to end on a panel:
// design, split, fit, predict and evaluate. Each call is an independent full
// retrain.
package trainer

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/leapstack-labs/parishpanel/internal/dataset"
	"github.com/leapstack-labs/parishpanel/internal/model"
	"github.com/leapstack-labs/parishpanel/internal/model/gbt"
	"github.com/leapstack-labs/parishpanel/internal/model/rnn"
	"github.com/leapstack-labs/parishpanel/internal/panel"
	"github.com/leapstack-labs/parishpanel/internal/source"
)

// Defaults shared by the trainers.
const (
	DefaultRegressorHorizon = 10
	DefaultSequenceWindow   = 3
	DefaultSequenceHorizon  = 5
	DefaultTestFraction     = 0.2
	DefaultSeed             = 42
)

// RegressorConfig configures TrainRegressor.
type RegressorConfig struct {
	Horizon      int
	TestFraction float64
	Seed         uint64
	EncodeParish bool
	Params       gbt.Params
}

// DefaultRegressorConfig forecasts ten years ahead with parish encoding.
func DefaultRegressorConfig() RegressorConfig {
	return RegressorConfig{
		Horizon:      DefaultRegressorHorizon,
		TestFraction: DefaultTestFraction,
		Seed:         DefaultSeed,
		EncodeParish: true,
		Params:       gbt.DefaultParams(),
	}
}

// RegressorResult is the outcome of TrainRegressor.
type RegressorResult struct {
	Metrics      model.Metrics
	Importance   []model.Importance
	Predictions  []model.Prediction
	Features     []string
	TrainSamples int
	TestSamples  int
	Params       gbt.Params
	Model        *gbt.Model
}

// TrainRegressor fits the tree ensemble to predict the home value Horizon
// years after each panel row. targets may be nil, in which case they are
// derived from p.
func TrainRegressor(ctx context.Context, p *panel.Panel, targets *dataset.Targets, cfg RegressorConfig, logger *slog.Logger) (*RegressorResult, error) {
	logger = orDiscard(logger).With("model", "regressor")
	if targets == nil {
		targets = dataset.NewTargets(p)
	}

	design, err := dataset.BuildTabular(p, targets, dataset.TabularOptions{
		Horizon:      cfg.Horizon,
		EncodeParish: cfg.EncodeParish,
	})
	if err != nil {
		return nil, err
	}

	trainIdx, testIdx, err := dataset.Split(len(design.Y), cfg.TestFraction, cfg.Seed)
	if err != nil {
		return nil, err
	}
	logger.Info("prepared design", "samples", len(design.Y), "features", len(design.Features),
		"train", len(trainIdx), "test", len(testIdx), "horizon", cfg.Horizon)

	xTrain, yTrain := design.Rows(trainIdx)
	xTest, yTest := design.Rows(testIdx)

	m, err := gbt.Fit(ctx, xTrain, yTrain, cfg.Params, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to fit regressor: %w", err)
	}

	pred := m.Predict(xTest)
	metrics, err := model.Evaluate(pred, yTest)
	if err != nil {
		return nil, err
	}
	logger.Info("evaluated regressor", "rmse", metrics.RMSE, "mae", metrics.MAE, "r2", metrics.R2)

	return &RegressorResult{
		Metrics:      metrics,
		Importance:   m.FeatureImportance(design.Features),
		Predictions:  predictions(design.Keys, testIdx, yTest, pred),
		Features:     design.Features,
		TrainSamples: len(trainIdx),
		TestSamples:  len(testIdx),
		Params:       cfg.Params,
		Model:        m,
	}, nil
}

// SequenceConfig configures TrainSequence.
type SequenceConfig struct {
	Window       int
	Horizon      int
	TestFraction float64
	Seed         uint64
	Params       rnn.Params
}

// DefaultSequenceConfig uses three-year windows and a five-year horizon.
func DefaultSequenceConfig() SequenceConfig {
	return SequenceConfig{
		Window:       DefaultSequenceWindow,
		Horizon:      DefaultSequenceHorizon,
		TestFraction: DefaultTestFraction,
		Seed:         DefaultSeed,
		Params:       rnn.DefaultParams(),
	}
}

// SequenceResult is the outcome of TrainSequence.
type SequenceResult struct {
	Metrics      model.Metrics
	History      []float64
	Predictions  []model.Prediction
	Features     []string
	TrainSamples int
	TestSamples  int
	Params       rnn.Params
	Model        *rnn.Model
}

// TrainSequence fits the recurrent network on per-parish windows. Features
// and targets are standardized on the training split; predictions are
// reported in original units.
func TrainSequence(ctx context.Context, p *panel.Panel, targets *dataset.Targets, cfg SequenceConfig, logger *slog.Logger) (*SequenceResult, error) {
	logger = orDiscard(logger).With("model", "sequence")
	if targets == nil {
		targets = dataset.NewTargets(p)
	}

	seqs, err := dataset.BuildSequences(p, targets, dataset.SequenceOptions{
		Window:  cfg.Window,
		Horizon: cfg.Horizon,
	})
	if err != nil {
		return nil, err
	}

	trainIdx, testIdx, err := dataset.Split(len(seqs.Y), cfg.TestFraction, cfg.Seed)
	if err != nil {
		return nil, err
	}
	logger.Info("prepared sequences", "samples", len(seqs.Y), "window", cfg.Window,
		"train", len(trainIdx), "test", len(testIdx), "horizon", cfg.Horizon)

	xTrain, yTrain := seqs.Subset(trainIdx)
	xTest, yTest := seqs.Subset(testIdx)

	scaler := dataset.FitSequenceScaler(xTrain)
	yScaler := dataset.FitTarget(yTrain)

	m, history, err := rnn.Fit(ctx, scaler.TransformSequences(xTrain), yScaler.Transform(yTrain), cfg.Params, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to fit sequence model: %w", err)
	}

	pred := yScaler.Inverse(m.PredictAll(scaler.TransformSequences(xTest)))
	metrics, err := model.Evaluate(pred, yTest)
	if err != nil {
		return nil, err
	}
	logger.Info("evaluated sequence model", "rmse", metrics.RMSE, "mae", metrics.MAE, "r2", metrics.R2,
		"final_train_loss", history[len(history)-1])

	return &SequenceResult{
		Metrics:      metrics,
		History:      history,
		Predictions:  predictions(seqs.Keys, testIdx, yTest, pred),
		Features:     seqs.Features,
		TrainSamples: len(trainIdx),
		TestSamples:  len(testIdx),
		Params:       cfg.Params,
		Model:        m,
	}, nil
}

// predictions pairs held-out outputs with their keys, ordered by parish and
// year.
func predictions(keys []source.Key, idx []int, actual, pred []float64) []model.Prediction {
	out := make([]model.Prediction, len(idx))
	for i, j := range idx {
		out[i] = model.Prediction{
			Parish:    keys[j].Parish,
			Year:      keys[j].Year,
			Actual:    actual[i],
			Predicted: pred[i],
		}
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Parish != out[b].Parish {
			return out[a].Parish < out[b].Parish
		}
		return out[a].Year < out[b].Year
	})
	return out
}

func orDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return logger
}

// Package gbt implements gradient-boosted regression trees with squared-error
// loss, exact greedy splits and L2-regularized leaves.
package gbt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"

	"github.com/leapstack-labs/parishpanel/internal/model"
	"gonum.org/v1/gonum/mat"
)

// Params are the boosting hyperparameters.
type Params struct {
	NEstimators    int     `mapstructure:"n_estimators" yaml:"n_estimators" json:"n_estimators" validate:"gte=1,lte=10000"`
	LearningRate   float64 `mapstructure:"learning_rate" yaml:"learning_rate" json:"learning_rate" validate:"gt=0,lte=1"`
	MaxDepth       int     `mapstructure:"max_depth" yaml:"max_depth" json:"max_depth" validate:"gte=1,lte=16"`
	MinSamplesLeaf int     `mapstructure:"min_samples_leaf" yaml:"min_samples_leaf" json:"min_samples_leaf" validate:"gte=1"`
	Lambda         float64 `mapstructure:"lambda" yaml:"lambda" json:"lambda" validate:"gte=0"`
	Subsample      float64 `mapstructure:"subsample" yaml:"subsample" json:"subsample" validate:"gt=0,lte=1"`
	Seed           uint64  `mapstructure:"seed" yaml:"seed" json:"seed"`
}

// DefaultParams returns settings suited to a few hundred panel rows.
func DefaultParams() Params {
	return Params{
		NEstimators:    200,
		LearningRate:   0.05,
		MaxDepth:       3,
		MinSamplesLeaf: 2,
		Lambda:         1,
		Subsample:      1,
		Seed:           42,
	}
}

// ParseParams overlays a config params map on DefaultParams.
func ParseParams(raw map[string]any) (Params, error) {
	p := DefaultParams()
	if err := model.DecodeParams(raw, &p); err != nil {
		return Params{}, err
	}
	return p, nil
}

// Model is a fitted ensemble.
type Model struct {
	Params   Params
	Base     float64
	Trees    []*Tree
	Features int

	gain []float64
}

// Fit boosts Params.NEstimators trees on x (samples by features) and y,
// starting from the mean of y.
func Fit(ctx context.Context, x mat.Matrix, y []float64, params Params, logger *slog.Logger) (*Model, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if err := model.ValidateParams(&params); err != nil {
		return nil, err
	}

	n, features := x.Dims()
	if n == 0 {
		return nil, errors.New("cannot fit on zero samples")
	}
	if n != len(y) {
		return nil, fmt.Errorf("sample count %d does not match target count %d", n, len(y))
	}

	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = mat.Row(nil, i, x)
	}

	m := &Model{Params: params, Features: features, gain: make([]float64, features)}
	for _, v := range y {
		m.Base += v
	}
	m.Base /= float64(n)

	pred := make([]float64, n)
	for i := range pred {
		pred[i] = m.Base
	}
	grad := make([]float64, n)

	rng := rand.New(rand.NewPCG(params.Seed, 0x5851f42d4c957f2d))
	sampleSize := max(1, int(params.Subsample*float64(n)))
	all := make([]int, n)
	for i := range all {
		all[i] = i
	}

	b := &treeBuilder{x: rows, grad: grad, params: params, gain: m.gain, features: features}
	for stage := 0; stage < params.NEstimators; stage++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		for i := range grad {
			grad[i] = pred[i] - y[i]
		}

		sample := all
		if sampleSize < n {
			sample = rng.Perm(n)[:sampleSize]
			sort.Ints(sample)
		}

		tree := b.build(sample)
		for i := range tree.Nodes {
			if tree.Nodes[i].Leaf {
				tree.Nodes[i].Value *= params.LearningRate
			}
		}
		m.Trees = append(m.Trees, tree)

		for i, r := range rows {
			pred[i] += tree.Predict(r)
		}

		if (stage+1)%50 == 0 || stage == params.NEstimators-1 {
			logger.Debug("boosting", "stage", stage+1, "train_mse", mse(pred, y))
		}
	}

	return m, nil
}

func mse(pred, y []float64) float64 {
	var s float64
	for i := range pred {
		d := pred[i] - y[i]
		s += d * d
	}
	return s / float64(len(pred))
}

// PredictRow returns the ensemble output for one feature vector.
func (m *Model) PredictRow(x []float64) float64 {
	out := m.Base
	for _, t := range m.Trees {
		out += t.Predict(x)
	}
	return out
}

// Predict returns the ensemble output for every row of x.
func (m *Model) Predict(x mat.Matrix) []float64 {
	n, _ := x.Dims()
	out := make([]float64, n)
	row := make([]float64, m.Features)
	for i := range out {
		mat.Row(row, i, x)
		out[i] = m.PredictRow(row)
	}
	return out
}

// FeatureImportance returns each feature's share of total split gain,
// highest first. Ties keep feature order. names must have one entry per
// feature.
func (m *Model) FeatureImportance(names []string) []model.Importance {
	var total float64
	for _, g := range m.gain {
		total += g
	}

	out := make([]model.Importance, m.Features)
	for i := range out {
		name := fmt.Sprintf("f%d", i)
		if i < len(names) {
			name = names[i]
		}
		out[i] = model.Importance{Feature: name}
		if total > 0 {
			out[i].Score = m.gain[i] / total
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

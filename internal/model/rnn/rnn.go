// Package rnn implements a single-layer Elman recurrent network regressor:
// tanh hidden state, linear read-out of the last state, squared-error loss,
// back-propagation through time and Adam updates with global-norm clipping.
package rnn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"

	"github.com/leapstack-labs/parishpanel/internal/model"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Params are the network and optimizer hyperparameters.
type Params struct {
	Hidden       int     `mapstructure:"hidden" yaml:"hidden" json:"hidden" validate:"gte=1,lte=512"`
	Epochs       int     `mapstructure:"epochs" yaml:"epochs" json:"epochs" validate:"gte=1"`
	BatchSize    int     `mapstructure:"batch_size" yaml:"batch_size" json:"batch_size" validate:"gte=1"`
	LearningRate float64 `mapstructure:"learning_rate" yaml:"learning_rate" json:"learning_rate" validate:"gt=0,lte=1"`
	// Clip bounds the global gradient norm; zero disables clipping.
	Clip float64 `mapstructure:"clip" yaml:"clip" json:"clip" validate:"gte=0"`
	Seed uint64  `mapstructure:"seed" yaml:"seed" json:"seed"`
}

// DefaultParams returns settings for short standardized sequences.
func DefaultParams() Params {
	return Params{
		Hidden:       16,
		Epochs:       300,
		BatchSize:    8,
		LearningRate: 0.01,
		Clip:         5,
		Seed:         7,
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

// Model is a trained network.
type Model struct {
	Params Params
	Inputs int

	wx *mat.Dense    // hidden x inputs
	wh *mat.Dense    // hidden x hidden
	bh *mat.VecDense // hidden
	wy *mat.VecDense // hidden
	by [1]float64
}

func newModel(inputs int, p Params, rng *rand.Rand) *Model {
	h := p.Hidden
	m := &Model{
		Params: p,
		Inputs: inputs,
		wx:     mat.NewDense(h, inputs, uniform(rng, h*inputs, math.Sqrt(6/float64(h+inputs)))),
		wh:     mat.NewDense(h, h, uniform(rng, h*h, 1/math.Sqrt(float64(h)))),
		bh:     mat.NewVecDense(h, nil),
		wy:     mat.NewVecDense(h, uniform(rng, h, math.Sqrt(6/float64(h+1)))),
	}
	return m
}

func uniform(rng *rand.Rand, n int, limit float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = (2*rng.Float64() - 1) * limit
	}
	return out
}

// forward returns the hidden states h0..hT, with h0 the zero state, and the
// network output.
func (m *Model) forward(seq [][]float64) ([]*mat.VecDense, float64) {
	h := m.Params.Hidden
	states := make([]*mat.VecDense, 0, len(seq)+1)
	states = append(states, mat.NewVecDense(h, nil))

	rec := mat.NewVecDense(h, nil)
	for _, step := range seq {
		prev := states[len(states)-1]
		a := mat.NewVecDense(h, nil)
		a.MulVec(m.wx, mat.NewVecDense(len(step), step))
		rec.MulVec(m.wh, prev)
		a.AddVec(a, rec)
		a.AddVec(a, m.bh)
		for i := 0; i < h; i++ {
			a.SetVec(i, math.Tanh(a.AtVec(i)))
		}
		states = append(states, a)
	}

	out := mat.Dot(m.wy, states[len(states)-1]) + m.by[0]
	return states, out
}

// Predict returns the network output for one sequence of feature vectors.
func (m *Model) Predict(seq [][]float64) float64 {
	_, out := m.forward(seq)
	return out
}

// PredictAll returns the output for every sequence.
func (m *Model) PredictAll(x [][][]float64) []float64 {
	out := make([]float64, len(x))
	for i, seq := range x {
		out[i] = m.Predict(seq)
	}
	return out
}

// gradients mirrors the model's parameters.
type gradients struct {
	wx *mat.Dense
	wh *mat.Dense
	bh *mat.VecDense
	wy *mat.VecDense
	by [1]float64
}

func newGradients(m *Model) *gradients {
	h := m.Params.Hidden
	return &gradients{
		wx: mat.NewDense(h, m.Inputs, nil),
		wh: mat.NewDense(h, h, nil),
		bh: mat.NewVecDense(h, nil),
		wy: mat.NewVecDense(h, nil),
	}
}

func (g *gradients) zero() {
	g.wx.Zero()
	g.wh.Zero()
	g.bh.Zero()
	g.wy.Zero()
	g.by[0] = 0
}

// backward accumulates the gradient of a loss whose derivative with respect
// to the output is dy.
func (m *Model) backward(seq [][]float64, states []*mat.VecDense, dy float64, g *gradients) {
	h := m.Params.Hidden
	last := states[len(states)-1]

	g.wy.AddScaledVec(g.wy, dy, last)
	g.by[0] += dy

	dh := mat.NewVecDense(h, nil)
	dh.ScaleVec(dy, m.wy)

	da := mat.NewVecDense(h, nil)
	for t := len(seq); t >= 1; t-- {
		ht := states[t]
		for i := 0; i < h; i++ {
			v := ht.AtVec(i)
			da.SetVec(i, dh.AtVec(i)*(1-v*v))
		}
		g.wx.RankOne(g.wx, 1, da, mat.NewVecDense(len(seq[t-1]), seq[t-1]))
		g.wh.RankOne(g.wh, 1, da, states[t-1])
		g.bh.AddVec(g.bh, da)
		dh.MulVec(m.wh.T(), da)
	}
}

// batchGradients fills g with the gradient of the mean squared error over
// the batch and returns that error.
func (m *Model) batchGradients(x [][][]float64, y []float64, g *gradients) float64 {
	g.zero()
	n := float64(len(x))
	var loss float64
	for i, seq := range x {
		states, out := m.forward(seq)
		d := out - y[i]
		loss += d * d
		m.backward(seq, states, 2*d/n, g)
	}
	return loss / n
}

func (m *Model) parameters() [][]float64 {
	return [][]float64{
		m.wx.RawMatrix().Data,
		m.wh.RawMatrix().Data,
		m.bh.RawVector().Data,
		m.wy.RawVector().Data,
		m.by[:],
	}
}

func (g *gradients) slices() [][]float64 {
	return [][]float64{
		g.wx.RawMatrix().Data,
		g.wh.RawMatrix().Data,
		g.bh.RawVector().Data,
		g.wy.RawVector().Data,
		g.by[:],
	}
}

// clip rescales grads in place so their global L2 norm is at most limit and
// returns the norm before clipping.
func clip(grads [][]float64, limit float64) float64 {
	var sq float64
	for _, g := range grads {
		sq += floats.Dot(g, g)
	}
	norm := math.Sqrt(sq)
	if limit > 0 && norm > limit {
		for _, g := range grads {
			floats.Scale(limit/norm, g)
		}
	}
	return norm
}

type adam struct {
	lr, beta1, beta2, eps float64
	step                  int
	m, v                  [][]float64
}

func newAdam(lr float64, params [][]float64) *adam {
	a := &adam{lr: lr, beta1: 0.9, beta2: 0.999, eps: 1e-8}
	for _, p := range params {
		a.m = append(a.m, make([]float64, len(p)))
		a.v = append(a.v, make([]float64, len(p)))
	}
	return a
}

func (a *adam) update(params, grads [][]float64) {
	a.step++
	c1 := 1 - math.Pow(a.beta1, float64(a.step))
	c2 := 1 - math.Pow(a.beta2, float64(a.step))
	for k, p := range params {
		g, m, v := grads[k], a.m[k], a.v[k]
		for i := range p {
			m[i] = a.beta1*m[i] + (1-a.beta1)*g[i]
			v[i] = a.beta2*v[i] + (1-a.beta2)*g[i]*g[i]
			p[i] -= a.lr * (m[i] / c1) / (math.Sqrt(v[i]/c2) + a.eps)
		}
	}
}

// Fit trains a network on x (samples, steps, features) and y for
// Params.Epochs epochs of shuffled mini-batches. It returns the model and
// the mean training loss of each epoch.
func Fit(ctx context.Context, x [][][]float64, y []float64, params Params, logger *slog.Logger) (*Model, []float64, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if err := model.ValidateParams(&params); err != nil {
		return nil, nil, err
	}
	inputs, err := checkShape(x, y)
	if err != nil {
		return nil, nil, err
	}

	rng := rand.New(rand.NewPCG(params.Seed, 0xda3e39cb94b95bdb))
	m := newModel(inputs, params, rng)
	g := newGradients(m)
	opt := newAdam(params.LearningRate, m.parameters())

	history := make([]float64, 0, params.Epochs)
	batchX := make([][][]float64, 0, params.BatchSize)
	batchY := make([]float64, 0, params.BatchSize)

	for epoch := 0; epoch < params.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		order := rng.Perm(len(x))
		var epochLoss float64
		for start := 0; start < len(order); start += params.BatchSize {
			end := min(start+params.BatchSize, len(order))
			batchX, batchY = batchX[:0], batchY[:0]
			for _, i := range order[start:end] {
				batchX = append(batchX, x[i])
				batchY = append(batchY, y[i])
			}

			loss := m.batchGradients(batchX, batchY, g)
			epochLoss += loss * float64(end-start)

			grads := g.slices()
			clip(grads, params.Clip)
			opt.update(m.parameters(), grads)
		}
		epochLoss /= float64(len(x))
		if math.IsNaN(epochLoss) || math.IsInf(epochLoss, 0) {
			return nil, nil, fmt.Errorf("training diverged at epoch %d", epoch+1)
		}
		history = append(history, epochLoss)

		logger.Debug("epoch", "epoch", epoch+1, "train_loss", epochLoss)
	}

	return m, history, nil
}

func checkShape(x [][][]float64, y []float64) (int, error) {
	if len(x) == 0 {
		return 0, errors.New("cannot fit on zero sequences")
	}
	if len(x) != len(y) {
		return 0, fmt.Errorf("sequence count %d does not match target count %d", len(x), len(y))
	}
	if len(x[0]) == 0 || len(x[0][0]) == 0 {
		return 0, errors.New("sequences must have at least one step and one feature")
	}
	inputs := len(x[0][0])
	for i, seq := range x {
		if len(seq) == 0 {
			return 0, fmt.Errorf("sequence %d is empty", i)
		}
		for t, step := range seq {
			if len(step) != inputs {
				return 0, fmt.Errorf("sequence %d step %d has %d features, want %d", i, t, len(step), inputs)
			}
		}
	}
	return inputs, nil
}

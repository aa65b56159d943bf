package dataset

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// StandardScaler centers each column on its training mean and divides by its
// training standard deviation. Constant columns map to zero.
type StandardScaler struct {
	Mean []float64
	Std  []float64
}

// FitScaler fits one mean and deviation per column of rows.
func FitScaler(rows [][]float64) *StandardScaler {
	if len(rows) == 0 {
		return &StandardScaler{}
	}
	cols := len(rows[0])
	s := &StandardScaler{Mean: make([]float64, cols), Std: make([]float64, cols)}
	col := make([]float64, len(rows))
	for j := 0; j < cols; j++ {
		for i, r := range rows {
			col[i] = r[j]
		}
		s.Mean[j], s.Std[j] = fitColumn(col)
	}
	return s
}

// FitSequenceScaler fits on every step of every sequence.
func FitSequenceScaler(x [][][]float64) *StandardScaler {
	var rows [][]float64
	for _, seq := range x {
		rows = append(rows, seq...)
	}
	return FitScaler(rows)
}

// fitColumn treats deviations at rounding level as a constant column.
func fitColumn(col []float64) (mean, std float64) {
	mean, std = stat.PopMeanStdDev(col, nil)
	if std <= 1e-12*math.Max(1, math.Abs(mean)) {
		std = 0
	}
	return mean, std
}

func (s *StandardScaler) scale(j int, v float64) float64 {
	if s.Std[j] == 0 {
		return 0
	}
	return (v - s.Mean[j]) / s.Std[j]
}

// Transform returns a scaled copy of row.
func (s *StandardScaler) Transform(row []float64) []float64 {
	out := make([]float64, len(row))
	for j, v := range row {
		out[j] = s.scale(j, v)
	}
	return out
}

// TransformSequences returns scaled copies of every sequence.
func (s *StandardScaler) TransformSequences(x [][][]float64) [][][]float64 {
	out := make([][][]float64, len(x))
	for i, seq := range x {
		out[i] = make([][]float64, len(seq))
		for t, step := range seq {
			out[i][t] = s.Transform(step)
		}
	}
	return out
}

// TargetScaler standardizes a single target column and maps predictions back.
type TargetScaler struct {
	Mean float64
	Std  float64
}

// FitTarget fits the target scaler on y.
func FitTarget(y []float64) TargetScaler {
	mean, std := fitColumn(y)
	if std == 0 {
		std = 1
	}
	return TargetScaler{Mean: mean, Std: std}
}

// Transform scales y.
func (t TargetScaler) Transform(y []float64) []float64 {
	out := make([]float64, len(y))
	for i, v := range y {
		out[i] = (v - t.Mean) / t.Std
	}
	return out
}

// Inverse maps scaled values back to the original units.
func (t TargetScaler) Inverse(z []float64) []float64 {
	out := make([]float64, len(z))
	for i, v := range z {
		out[i] = v*t.Std + t.Mean
	}
	return out
}

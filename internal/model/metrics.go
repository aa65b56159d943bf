package model

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Metrics summarizes held-out prediction error.
type Metrics struct {
	RMSE float64 `json:"rmse" yaml:"rmse"`
	MAE  float64 `json:"mae" yaml:"mae"`
	R2   float64 `json:"r2" yaml:"r2"`
	N    int     `json:"n" yaml:"n"`
}

// Evaluate computes RMSE, MAE and R² of pred against actual. R² is reported
// as 0 when actual has no variance.
func Evaluate(pred, actual []float64) (Metrics, error) {
	if len(pred) != len(actual) {
		return Metrics{}, fmt.Errorf("prediction count %d does not match actual count %d", len(pred), len(actual))
	}
	if len(pred) == 0 {
		return Metrics{}, errors.New("no predictions to evaluate")
	}

	resid := make([]float64, len(pred))
	floats.SubTo(resid, pred, actual)

	n := float64(len(resid))
	m := Metrics{
		RMSE: floats.Norm(resid, 2) / math.Sqrt(n),
		MAE:  floats.Norm(resid, 1) / n,
		N:    len(resid),
	}
	if stat.Variance(actual, nil) > 0 {
		m.R2 = stat.RSquaredFrom(pred, actual, nil)
	}
	return m, nil
}

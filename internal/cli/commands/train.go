package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/leapstack-labs/parishpanel/internal/cli/output"
	"github.com/leapstack-labs/parishpanel/internal/model"
	"github.com/leapstack-labs/parishpanel/internal/report"
	"github.com/leapstack-labs/parishpanel/internal/trainer"
)

// Artifact file names under the reports directory.
const (
	regressorPredictionsPlot = "regressor_predictions.png"
	regressorImportancePlot  = "regressor_importance.png"
	sequencePredictionsPlot  = "sequence_predictions.png"
	sequenceLossPlot         = "sequence_loss.png"

	importancePlotTop = 15
)

// trainRegressor fits the tree regressor on bp and writes its plots and
// report.
func (cc *CommandContext) trainRegressor(ctx context.Context, bp *builtPanel) (*output.TrainOutput, error) {
	rcfg, err := cc.Cfg.RegressorConfig()
	if err != nil {
		return nil, err
	}

	res, err := trainer.TrainRegressor(ctx, bp.Panel, bp.Targets, rcfg, cc.Logger)
	if err != nil {
		return nil, err
	}

	if err := cc.ensureReportsDir(); err != nil {
		return nil, err
	}
	title := fmt.Sprintf("Home value %d years ahead: predicted vs actual", rcfg.Horizon)
	if err := report.PredictionPlot(cc.artifact(regressorPredictionsPlot), title, res.Predictions); err != nil {
		return nil, err
	}
	if err := report.ImportancePlot(cc.artifact(regressorImportancePlot), "Feature importance", res.Importance, importancePlotTop); err != nil {
		return nil, err
	}

	run := report.NewRun(report.KindRegressor, report.NewPanelInfo(bp.Panel, bp.Path))
	run.Horizon = rcfg.Horizon
	run.TrainSamples = res.TrainSamples
	run.TestSamples = res.TestSamples
	run.Metrics = res.Metrics
	run.Importance = res.Importance
	run.Params = res.Params
	run.Artifacts = []string{regressorPredictionsPlot, regressorImportancePlot}

	path, err := run.Write(cc.Cfg.ReportsDir)
	if err != nil {
		return nil, err
	}
	cc.Logger.Info("wrote report", "run_id", run.ID, "path", path)

	return &output.TrainOutput{
		RunID:        run.ID,
		Model:        run.Kind,
		Horizon:      run.Horizon,
		TrainSamples: res.TrainSamples,
		TestSamples:  res.TestSamples,
		Metrics:      metricsOutput(res.Metrics),
		Importance:   importanceOutput(res.Importance),
		Predictions:  predictionsOutput(res.Predictions),
		Report:       path,
		Artifacts:    cc.artifacts(run.Artifacts),
	}, nil
}

// trainSequence fits the recurrent network on bp and writes its plots and
// report.
func (cc *CommandContext) trainSequence(ctx context.Context, bp *builtPanel) (*output.TrainOutput, error) {
	scfg, err := cc.Cfg.SequenceConfig()
	if err != nil {
		return nil, err
	}

	res, err := trainer.TrainSequence(ctx, bp.Panel, bp.Targets, scfg, cc.Logger)
	if err != nil {
		return nil, err
	}

	if err := cc.ensureReportsDir(); err != nil {
		return nil, err
	}
	title := fmt.Sprintf("Home value %d years ahead from %d-year windows", scfg.Horizon, scfg.Window)
	if err := report.PredictionPlot(cc.artifact(sequencePredictionsPlot), title, res.Predictions); err != nil {
		return nil, err
	}
	if err := report.LossPlot(cc.artifact(sequenceLossPlot), "Training loss", res.History); err != nil {
		return nil, err
	}

	finalLoss := res.History[len(res.History)-1]
	run := report.NewRun(report.KindSequence, report.NewPanelInfo(bp.Panel, bp.Path))
	run.Horizon = scfg.Horizon
	run.Window = scfg.Window
	run.TrainSamples = res.TrainSamples
	run.TestSamples = res.TestSamples
	run.Metrics = res.Metrics
	run.FinalLoss = finalLoss
	run.Params = res.Params
	run.Artifacts = []string{sequencePredictionsPlot, sequenceLossPlot}

	path, err := run.Write(cc.Cfg.ReportsDir)
	if err != nil {
		return nil, err
	}
	cc.Logger.Info("wrote report", "run_id", run.ID, "path", path)

	return &output.TrainOutput{
		RunID:        run.ID,
		Model:        run.Kind,
		Horizon:      run.Horizon,
		Window:       run.Window,
		TrainSamples: res.TrainSamples,
		TestSamples:  res.TestSamples,
		Metrics:      metricsOutput(res.Metrics),
		Predictions:  predictionsOutput(res.Predictions),
		FinalLoss:    finalLoss,
		Report:       path,
		Artifacts:    cc.artifacts(run.Artifacts),
	}, nil
}

func (cc *CommandContext) artifact(name string) string {
	return filepath.Join(cc.Cfg.ReportsDir, name)
}

func (cc *CommandContext) artifacts(names []string) []string {
	paths := make([]string, len(names))
	for i, n := range names {
		paths[i] = cc.artifact(n)
	}
	return paths
}

func metricsOutput(m model.Metrics) output.MetricsOutput {
	return output.MetricsOutput{RMSE: m.RMSE, MAE: m.MAE, R2: m.R2, N: m.N}
}

func importanceOutput(imp []model.Importance) []output.ImportanceOutput {
	out := make([]output.ImportanceOutput, len(imp))
	for i, fi := range imp {
		out[i] = output.ImportanceOutput{Feature: fi.Feature, Score: fi.Score}
	}
	return out
}

func predictionsOutput(preds []model.Prediction) []output.PredictionOutput {
	out := make([]output.PredictionOutput, len(preds))
	for i, p := range preds {
		out[i] = output.PredictionOutput{Parish: p.Parish, Year: p.Year, Actual: p.Actual, Predicted: p.Predicted}
	}
	return out
}

// writeTrainSummary renders a model run in text or markdown mode. top limits
// the importance table; zero shows every feature.
func writeTrainSummary(r *output.Renderer, to *output.TrainOutput, top int) {
	title := fmt.Sprintf("Regressor (%d-year horizon)", to.Horizon)
	if to.Model == report.KindSequence {
		title = fmt.Sprintf("Sequence model (%d-year windows, %d-year horizon)", to.Window, to.Horizon)
	}
	r.Header(1, title)
	r.KeyValue("Run", to.RunID)
	r.KeyValue("Samples", fmt.Sprintf("%d train / %d test", to.TrainSamples, to.TestSamples))
	r.KeyValue("RMSE", output.FormatFloat(to.Metrics.RMSE))
	r.KeyValue("MAE", output.FormatFloat(to.Metrics.MAE))
	r.KeyValue("R²", output.FormatFloat(to.Metrics.R2))
	if to.FinalLoss > 0 {
		r.KeyValue("Final training loss", output.FormatFloat(to.FinalLoss))
	}
	r.Println("")

	if len(to.Importance) > 0 {
		imp := to.Importance
		if top > 0 && top < len(imp) {
			imp = imp[:top]
		}
		rows := make([][]string, len(imp))
		for i, fi := range imp {
			rows[i] = []string{strconv.Itoa(i + 1), fi.Feature, fmt.Sprintf("%.4f", fi.Score)}
		}
		r.Header(2, "Feature importance")
		r.Table([]string{"rank", "feature", "score"}, rows)
		r.Println("")
	}

	if to.Model == report.KindSequence && len(to.Predictions) > 0 {
		rows := make([][]string, len(to.Predictions))
		for i, p := range to.Predictions {
			rows[i] = []string{
				p.Parish,
				strconv.Itoa(p.Year),
				fmt.Sprintf("%.0f", p.Actual),
				fmt.Sprintf("%.0f", p.Predicted),
				fmt.Sprintf("%+.0f", p.Predicted-p.Actual),
			}
		}
		r.Header(2, "Predicted vs actual")
		r.Table([]string{"parish", "year", "actual", "predicted", "error"}, rows)
		r.Println("")
	}

	r.Header(2, "Artifacts")
	r.StatusLine(to.Report, "success", "report")
	for _, a := range to.Artifacts {
		r.StatusLine(a, "success", "plot")
	}
	r.Println("")
}

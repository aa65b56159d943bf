package output

// PanelOutput is the JSON form of a panel build.
type PanelOutput struct {
	CommonYears []int  `json:"common_years"`
	Start       int    `json:"start"`
	End         int    `json:"end"`
	Rows        int    `json:"rows"`
	Parishes    int    `json:"parishes"`
	Path        string `json:"path,omitempty"`
}

// MetricsOutput holds evaluation scores on the held-out split.
type MetricsOutput struct {
	RMSE float64 `json:"rmse"`
	MAE  float64 `json:"mae"`
	R2   float64 `json:"r2"`
	N    int     `json:"n"`
}

// ImportanceOutput is one ranked feature.
type ImportanceOutput struct {
	Feature string  `json:"feature"`
	Score   float64 `json:"score"`
}

// PredictionOutput is one held-out prediction.
type PredictionOutput struct {
	Parish    string  `json:"parish"`
	Year      int     `json:"year"`
	Actual    float64 `json:"actual"`
	Predicted float64 `json:"predicted"`
}

// TrainOutput is the JSON form of a model run.
type TrainOutput struct {
	RunID        string             `json:"run_id"`
	Model        string             `json:"model"`
	Horizon      int                `json:"horizon"`
	Window       int                `json:"window,omitempty"`
	TrainSamples int                `json:"train_samples"`
	TestSamples  int                `json:"test_samples"`
	Metrics      MetricsOutput      `json:"metrics"`
	Importance   []ImportanceOutput `json:"feature_importance,omitempty"`
	Predictions  []PredictionOutput `json:"predictions,omitempty"`
	FinalLoss    float64            `json:"final_train_loss,omitempty"`
	Report       string             `json:"report"`
	Artifacts    []string           `json:"artifacts"`
}

// RunOutput is the JSON form of the end-to-end run.
type RunOutput struct {
	Panel     PanelOutput `json:"panel"`
	Regressor TrainOutput `json:"regressor"`
	Sequence  TrainOutput `json:"sequence"`
}

// QueryOutput is the JSON form of an inspect query.
type QueryOutput struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

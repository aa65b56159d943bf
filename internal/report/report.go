// Package report writes the artifacts of a training run: plots and a YAML
// summary identified by a run ID.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/parishpanel/internal/model"
	"github.com/leapstack-labs/parishpanel/internal/panel"
	"gopkg.in/yaml.v3"
)

// Run kinds.
const (
	KindRegressor = "regressor"
	KindSequence  = "sequence"
)

// PanelInfo describes the panel a model was trained on.
type PanelInfo struct {
	Start    int    `yaml:"start" json:"start"`
	End      int    `yaml:"end" json:"end"`
	Rows     int    `yaml:"rows" json:"rows"`
	Parishes int    `yaml:"parishes" json:"parishes"`
	Source   string `yaml:"source,omitempty" json:"source,omitempty"`
}

// NewPanelInfo summarizes p. source names the exported file, if any.
func NewPanelInfo(p *panel.Panel, source string) PanelInfo {
	return PanelInfo{
		Start:    p.Start,
		End:      p.End,
		Rows:     len(p.Rows),
		Parishes: len(p.Parishes()),
		Source:   source,
	}
}

// Run is the machine-readable record of one training run.
type Run struct {
	ID           string             `yaml:"run_id" json:"run_id"`
	Kind         string             `yaml:"kind" json:"kind"`
	CreatedAt    time.Time          `yaml:"created_at" json:"created_at"`
	Panel        PanelInfo          `yaml:"panel" json:"panel"`
	Horizon      int                `yaml:"horizon" json:"horizon"`
	Window       int                `yaml:"window,omitempty" json:"window,omitempty"`
	TrainSamples int                `yaml:"train_samples" json:"train_samples"`
	TestSamples  int                `yaml:"test_samples" json:"test_samples"`
	Metrics      model.Metrics      `yaml:"metrics" json:"metrics"`
	Importance   []model.Importance `yaml:"feature_importance,omitempty" json:"feature_importance,omitempty"`
	FinalLoss    float64            `yaml:"final_train_loss,omitempty" json:"final_train_loss,omitempty"`
	Params       any                `yaml:"params" json:"params"`
	Artifacts    []string           `yaml:"artifacts,omitempty" json:"artifacts,omitempty"`
}

// NewRun starts a run record with a fresh ID.
func NewRun(kind string, info PanelInfo) *Run {
	return &Run{
		ID:        uuid.NewString(),
		Kind:      kind,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
		Panel:     info,
	}
}

// FileName is the report file name for the run's kind.
func (r *Run) FileName() string {
	return r.Kind + "_report.yaml"
}

// Write saves the run as YAML in dir and returns the path.
func (r *Run) Write(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create reports directory %s: %w", dir, err)
	}

	data, err := yaml.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}

	path := filepath.Join(dir, r.FileName())
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write report %s: %w", path, err)
	}
	return path, nil
}

// ReadRun loads a report written by Write.
func ReadRun(path string) (*Run, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report %s: %w", path, err)
	}
	var r Run
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse report %s: %w", path, err)
	}
	return &r, nil
}

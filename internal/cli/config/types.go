// Package config loads the parishpanel CLI configuration.
//
// Values are layered with koanf: struct defaults, then parishpanel.yaml,
// then PARISHPANEL_ environment variables, then explicitly set flags.
package config

import (
	"github.com/leapstack-labs/parishpanel/internal/panel"
	"github.com/leapstack-labs/parishpanel/internal/source"
	"github.com/leapstack-labs/parishpanel/internal/trainer"
)

// Config holds all CLI configuration options.
type Config struct {
	DataDir      string          `koanf:"data_dir" validate:"required"`
	OutputDir    string          `koanf:"output_dir" validate:"required"`
	ReportsDir   string          `koanf:"reports_dir" validate:"required"`
	LogLevel     string          `koanf:"log_level" validate:"oneof=debug info warn error"`
	Verbose      bool            `koanf:"verbose"`
	OutputFormat string          `koanf:"output" validate:"oneof=auto text markdown json"`
	Sources      SourcesConfig   `koanf:"sources"`
	Panel        PanelConfig     `koanf:"panel"`
	Regressor    RegressorConfig `koanf:"regressor"`
	Sequence     SequenceConfig  `koanf:"sequence"`
	Inspect      InspectConfig   `koanf:"inspect"`

	// ProjectRoot is the directory relative paths were resolved against.
	ProjectRoot string `koanf:"-"`
}

// SourcesConfig names the raw inputs under DataDir.
type SourcesConfig struct {
	IncomeDir      string            `koanf:"income_dir" validate:"required"`
	SchoolDir      string            `koanf:"school_dir" validate:"required"`
	CrimeFile      string            `koanf:"crime_file" validate:"required"`
	HomeValuesFile string            `koanf:"home_values_file" validate:"required"`
	MortgageFile   string            `koanf:"mortgage_file" validate:"required"`
	Aliases        map[string]string `koanf:"aliases"`
}

// PanelConfig controls window selection and the export file name.
type PanelConfig struct {
	Window     int    `koanf:"window" validate:"min=1"`
	FilePrefix string `koanf:"file_prefix" validate:"required"`
}

// RegressorConfig configures the tree regressor run.
type RegressorConfig struct {
	Horizon      int            `koanf:"horizon" validate:"min=1"`
	TestFraction float64        `koanf:"test_fraction" validate:"gt=0,lt=1"`
	Seed         uint64         `koanf:"seed"`
	EncodeParish bool           `koanf:"encode_parish"`
	Params       map[string]any `koanf:"params"`
}

// SequenceConfig configures the recurrent network run.
type SequenceConfig struct {
	Window       int            `koanf:"window" validate:"min=1"`
	Horizon      int            `koanf:"horizon" validate:"min=1"`
	TestFraction float64        `koanf:"test_fraction" validate:"gt=0,lt=1"`
	Seed         uint64         `koanf:"seed"`
	Params       map[string]any `koanf:"params"`
}

// InspectConfig selects the SQL engine used by the inspect command.
type InspectConfig struct {
	Adapter  string            `koanf:"adapter" validate:"required"`
	Database string            `koanf:"database"`
	Settings map[string]string `koanf:"settings"`
}

// Default configuration values.
const (
	DefaultDataDir    = "data"
	DefaultOutputDir  = "out"
	DefaultReportsDir = "reports"
	DefaultLogLevel   = "info"
	DefaultOutput     = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultAdapter    = "duckdb"
	ConfigFileName    = "parishpanel.yaml"
	EnvPrefix         = "PARISHPANEL_"
)

// Default returns the configuration used when nothing overrides it. The
// params maps are non-nil so later layers can merge keys into them.
func Default() *Config {
	return &Config{
		DataDir:      DefaultDataDir,
		OutputDir:    DefaultOutputDir,
		ReportsDir:   DefaultReportsDir,
		LogLevel:     DefaultLogLevel,
		OutputFormat: DefaultOutput,
		Sources: SourcesConfig{
			IncomeDir:      source.DefaultIncomeDir,
			SchoolDir:      source.DefaultSchoolDir,
			CrimeFile:      source.DefaultCrimeFile,
			HomeValuesFile: source.DefaultHomeValuesFile,
			MortgageFile:   source.DefaultMortgageFile,
		},
		Panel: PanelConfig{
			Window:     panel.DefaultWindow,
			FilePrefix: panel.DefaultFilePrefix,
		},
		Regressor: RegressorConfig{
			Horizon:      trainer.DefaultRegressorHorizon,
			TestFraction: trainer.DefaultTestFraction,
			Seed:         trainer.DefaultSeed,
			EncodeParish: true,
			Params:       map[string]any{},
		},
		Sequence: SequenceConfig{
			Window:       trainer.DefaultSequenceWindow,
			Horizon:      trainer.DefaultSequenceHorizon,
			TestFraction: trainer.DefaultTestFraction,
			Seed:         trainer.DefaultSeed,
			Params:       map[string]any{},
		},
		Inspect: InspectConfig{
			Adapter: DefaultAdapter,
		},
	}
}

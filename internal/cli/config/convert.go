package config

import (
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/parishpanel/internal/model/gbt"
	"github.com/leapstack-labs/parishpanel/internal/model/rnn"
	"github.com/leapstack-labs/parishpanel/internal/panel"
	"github.com/leapstack-labs/parishpanel/internal/source"
	"github.com/leapstack-labs/parishpanel/internal/trainer"
	"github.com/leapstack-labs/parishpanel/pkg/adapter"
)

// SourceConfig returns the loader configuration for the raw data directory.
func (c *Config) SourceConfig(logger *slog.Logger) source.Config {
	return source.Config{
		DataDir:        c.DataDir,
		IncomeDir:      c.Sources.IncomeDir,
		SchoolDir:      c.Sources.SchoolDir,
		CrimeFile:      c.Sources.CrimeFile,
		HomeValuesFile: c.Sources.HomeValuesFile,
		MortgageFile:   c.Sources.MortgageFile,
		Aliases:        c.Sources.Aliases,
		Logger:         logger,
	}
}

// PanelOptions returns the panel build options.
func (c *Config) PanelOptions(logger *slog.Logger) panel.Options {
	return panel.Options{Window: c.Panel.Window, Logger: logger}
}

// RegressorConfig decodes regressor.params over the model defaults.
func (c *Config) RegressorConfig() (trainer.RegressorConfig, error) {
	params, err := gbt.ParseParams(c.Regressor.Params)
	if err != nil {
		return trainer.RegressorConfig{}, fmt.Errorf("regressor.params: %w", err)
	}
	return trainer.RegressorConfig{
		Horizon:      c.Regressor.Horizon,
		TestFraction: c.Regressor.TestFraction,
		Seed:         c.Regressor.Seed,
		EncodeParish: c.Regressor.EncodeParish,
		Params:       params,
	}, nil
}

// SequenceConfig decodes sequence.params over the model defaults.
func (c *Config) SequenceConfig() (trainer.SequenceConfig, error) {
	params, err := rnn.ParseParams(c.Sequence.Params)
	if err != nil {
		return trainer.SequenceConfig{}, fmt.Errorf("sequence.params: %w", err)
	}
	return trainer.SequenceConfig{
		Window:       c.Sequence.Window,
		Horizon:      c.Sequence.Horizon,
		TestFraction: c.Sequence.TestFraction,
		Seed:         c.Sequence.Seed,
		Params:       params,
	}, nil
}

// AdapterConfig returns the connection settings for the inspect command.
func (c *Config) AdapterConfig() adapter.Config {
	cfg := adapter.Config{
		Type: c.Inspect.Adapter,
		Path: c.Inspect.Database,
	}
	if len(c.Inspect.Settings) > 0 {
		settings := make(map[string]any, len(c.Inspect.Settings))
		for k, v := range c.Inspect.Settings {
			settings[k] = v
		}
		cfg.Params = map[string]any{"settings": settings}
	}
	return cfg
}

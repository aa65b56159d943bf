package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/leapstack-labs/parishpanel/internal/cli/config"
	"github.com/leapstack-labs/parishpanel/internal/cli/output"
	"github.com/leapstack-labs/parishpanel/internal/dataset"
	"github.com/leapstack-labs/parishpanel/internal/panel"
	"github.com/leapstack-labs/parishpanel/internal/source"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext collects the config and logger stored on the command
// context by the root command and builds a renderer for the configured mode.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := config.FromContext(ctx)
	if cfg == nil {
		cfg = config.Default()
	}
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))

	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(ctx),
		Renderer: r,
	}
}

// builtPanel is a panel together with where it came from.
type builtPanel struct {
	Panel *panel.Panel
	// Path is the exported or loaded CSV file.
	Path string
	// Built is false when the panel was read from an existing file.
	Built bool
	// Targets holds the raw home value history for a panel read from a
	// file. Nil means the trainers derive targets from the panel.
	Targets *dataset.Targets
}

// buildPanel assembles the panel from the raw sources and exports it.
func (cc *CommandContext) buildPanel(ctx context.Context) (*builtPanel, error) {
	if err := cc.Cfg.ValidateDirectories(); err != nil {
		return nil, err
	}

	p, err := panel.Build(ctx, cc.Cfg.SourceConfig(cc.Logger), cc.Cfg.PanelOptions(cc.Logger))
	if err != nil {
		return nil, err
	}

	path, err := p.Export(cc.Cfg.OutputDir, cc.Cfg.Panel.FilePrefix)
	if err != nil {
		return nil, err
	}
	cc.Logger.Info("exported panel", "path", path, "rows", len(p.Rows))

	return &builtPanel{Panel: p, Path: path, Built: true}, nil
}

// loadPanel reads panelPath when given and builds from the sources otherwise.
// A file holds only the window's home values, so forward targets come from
// the raw home value table when the data directory has one.
func (cc *CommandContext) loadPanel(ctx context.Context, panelPath string) (*builtPanel, error) {
	if panelPath == "" {
		return cc.buildPanel(ctx)
	}

	p, err := panel.ReadCSV(panelPath)
	if err != nil {
		return nil, err
	}
	cc.Logger.Info("loaded panel", "path", panelPath, "rows", len(p.Rows), "start", p.Start, "end", p.End)

	targets, err := cc.loadTargets()
	if err != nil {
		return nil, err
	}
	return &builtPanel{Panel: p, Path: panelPath, Targets: targets}, nil
}

// loadTargets indexes the raw home value history. It returns nil when the
// data directory or the home value file is absent.
func (cc *CommandContext) loadTargets() (*dataset.Targets, error) {
	if cc.Cfg.ValidateDirectories() != nil {
		cc.Logger.Warn("no data directory, targets limited to the panel's years", "data_dir", cc.Cfg.DataDir)
		return nil, nil
	}

	history, err := source.LoadHomeValues(cc.Cfg.SourceConfig(cc.Logger))
	if errors.Is(err, source.ErrMissingSource) {
		cc.Logger.Warn("no home value history, targets limited to the panel's years", "error", err)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	targets := dataset.HistoryTargets(history)
	cc.Logger.Info("loaded home value history", "values", len(history), "last_year", targets.LastYear())
	return targets, nil
}

// ensureReportsDir creates the directory plots and reports are written to.
func (cc *CommandContext) ensureReportsDir() error {
	if err := os.MkdirAll(cc.Cfg.ReportsDir, 0o755); err != nil {
		return fmt.Errorf("failed to create reports directory %s: %w", cc.Cfg.ReportsDir, err)
	}
	return nil
}

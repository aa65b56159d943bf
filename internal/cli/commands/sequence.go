package commands

import (
	"github.com/leapstack-labs/parishpanel/internal/cli/config"
	"github.com/leapstack-labs/parishpanel/internal/cli/output"
	"github.com/spf13/cobra"
)

// NewSequenceCommand creates the sequence command.
func NewSequenceCommand() *cobra.Command {
	var panelPath string

	cmd := &cobra.Command{
		Use:   "sequence",
		Short: "Train the recurrent home value model",
		Long: `Forecast home values from sliding windows of consecutive panel years with a
small recurrent network. Prints held-out RMSE, MAE and R² with a
prediction-versus-actual table, and writes plots and a YAML report.

Without --panel the panel is rebuilt from the raw sources first. With --panel,
home values beyond the file's years are read from the home value table in the
data directory.`,
		Example: `  # Build the panel and train with defaults
  parishpanel sequence

  # Shorter training on an exported panel
  parishpanel sequence --panel out/five_year_panel_2015_2019.csv --epochs 100`,
		Aliases: []string{"rnn"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSequence(cmd, panelPath)
		},
	}

	cmd.Flags().StringVar(&panelPath, "panel", "", "Train on an exported panel CSV instead of rebuilding")
	cmd.Flags().Int("window", 0, "Consecutive years per input sequence")
	cmd.Flags().Int("horizon", 0, "Years after the window's last year to forecast")
	cmd.Flags().Int("epochs", 0, "Training epochs")
	config.BindFlag(cmd.Flags(), "window", "sequence.window")
	config.BindFlag(cmd.Flags(), "horizon", "sequence.horizon")
	config.BindFlag(cmd.Flags(), "epochs", "sequence.params.epochs")

	return cmd
}

func runSequence(cmd *cobra.Command, panelPath string) error {
	cc := NewCommandContext(cmd)
	ctx := cmd.Context()

	bp, err := cc.loadPanel(ctx, panelPath)
	if err != nil {
		return err
	}

	to, err := cc.trainSequence(ctx, bp)
	if err != nil {
		return err
	}

	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(to)
	}
	writeTrainSummary(r, to, 0)
	return nil
}

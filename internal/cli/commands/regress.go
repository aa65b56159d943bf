package commands

import (
	"github.com/leapstack-labs/parishpanel/internal/cli/config"
	"github.com/leapstack-labs/parishpanel/internal/cli/output"
	"github.com/spf13/cobra"
)

// RegressOptions holds options for the regress command.
type RegressOptions struct {
	PanelPath string
	Top       int
}

// NewRegressCommand creates the regress command.
func NewRegressCommand() *cobra.Command {
	opts := &RegressOptions{}

	cmd := &cobra.Command{
		Use:   "regress",
		Short: "Train the gradient-boosted home value regressor",
		Long: `Predict each parish's home value a fixed number of years after every panel
row with gradient-boosted trees. Prints held-out RMSE, MAE and R² with the
feature importance ranking, and writes plots and a YAML report.

Without --panel the panel is rebuilt from the raw sources first. With --panel,
home values beyond the file's years are read from the home value table in the
data directory.`,
		Example: `  # Build the panel and train with defaults
  parishpanel regress

  # Train on an exported panel with a five-year horizon
  parishpanel regress --panel out/five_year_panel_2015_2019.csv --horizon 5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRegress(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.PanelPath, "panel", "", "Train on an exported panel CSV instead of rebuilding")
	cmd.Flags().IntVar(&opts.Top, "top", 10, "Number of features shown in the importance ranking (0 for all)")
	cmd.Flags().Int("horizon", 0, "Years ahead to forecast")
	cmd.Flags().Float64("test-fraction", 0, "Share of samples held out for evaluation")
	config.BindFlag(cmd.Flags(), "horizon", "regressor.horizon")
	config.BindFlag(cmd.Flags(), "test-fraction", "regressor.test_fraction")

	return cmd
}

func runRegress(cmd *cobra.Command, opts *RegressOptions) error {
	cc := NewCommandContext(cmd)
	ctx := cmd.Context()

	bp, err := cc.loadPanel(ctx, opts.PanelPath)
	if err != nil {
		return err
	}

	to, err := cc.trainRegressor(ctx, bp)
	if err != nil {
		return err
	}

	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(to)
	}
	writeTrainSummary(r, to, opts.Top)
	return nil
}

package commands

import (
	"github.com/leapstack-labs/parishpanel/internal/cli/output"
	"github.com/spf13/cobra"
)

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Build the panel and train both models",
		Long: `Build and export the panel once, then train the regressor and the sequence
model on it. Equivalent to panel, regress and sequence in one process.`,
		Example: `  parishpanel run
  parishpanel run -o json > run.json`,
		Aliases: []string{"all"},
		Args:    cobra.NoArgs,
		RunE:    runAll,
	}
}

func runAll(cmd *cobra.Command, _ []string) error {
	cc := NewCommandContext(cmd)
	ctx := cmd.Context()

	bp, err := cc.buildPanel(ctx)
	if err != nil {
		return err
	}

	reg, err := cc.trainRegressor(ctx, bp)
	if err != nil {
		return err
	}

	seq, err := cc.trainSequence(ctx, bp)
	if err != nil {
		return err
	}

	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(output.RunOutput{
			Panel:     panelOutput(bp),
			Regressor: *reg,
			Sequence:  *seq,
		})
	}

	writePanelSummary(r, panelOutput(bp))
	writeTrainSummary(r, reg, 10)
	writeTrainSummary(r, seq, 0)
	r.Success("run complete")
	return nil
}

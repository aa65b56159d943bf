package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/leapstack-labs/parishpanel/internal/cli/config"
	"github.com/leapstack-labs/parishpanel/internal/cli/output"
	"github.com/spf13/cobra"
)

// NewPanelCommand creates the panel command.
func NewPanelCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "panel",
		Short: "Build and export the parish-year panel",
		Long: `Load the five raw sources, align them on their common years, keep the most
recent run of consecutive years and export the joined panel as CSV.`,
		Example: `  # Build with the defaults from parishpanel.yaml
  parishpanel panel

  # Use a four-year window and a custom data directory
  parishpanel panel --window 4 --data-dir ./raw`,
		Args: cobra.NoArgs,
		RunE: runPanel,
	}

	cmd.Flags().Int("window", 0, "Number of consecutive years in the panel")
	cmd.Flags().String("prefix", "", "File name prefix of the exported panel")
	config.BindFlag(cmd.Flags(), "window", "panel.window")
	config.BindFlag(cmd.Flags(), "prefix", "panel.file_prefix")

	return cmd
}

func runPanel(cmd *cobra.Command, _ []string) error {
	cc := NewCommandContext(cmd)

	bp, err := cc.buildPanel(cmd.Context())
	if err != nil {
		return err
	}
	return renderPanel(cc.Renderer, panelOutput(bp))
}

func panelOutput(bp *builtPanel) output.PanelOutput {
	p := bp.Panel
	return output.PanelOutput{
		CommonYears: p.CommonYears,
		Start:       p.Start,
		End:         p.End,
		Rows:        len(p.Rows),
		Parishes:    len(p.Parishes()),
		Path:        bp.Path,
	}
}

func renderPanel(r *output.Renderer, po output.PanelOutput) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(po)
	}
	writePanelSummary(r, po)
	return nil
}

func writePanelSummary(r *output.Renderer, po output.PanelOutput) {
	r.Header(1, "Panel")
	r.KeyValue("Common years", joinYears(po.CommonYears))
	r.KeyValue("Window", fmt.Sprintf("%d-%d", po.Start, po.End))
	r.KeyValue("Rows", strconv.Itoa(po.Rows))
	r.KeyValue("Parishes", strconv.Itoa(po.Parishes))
	if po.Path != "" {
		r.KeyValue("File", po.Path)
	}
	r.Println("")
}

func joinYears(years []int) string {
	parts := make([]string, len(years))
	for i, y := range years {
		parts[i] = strconv.Itoa(y)
	}
	return strings.Join(parts, ", ")
}

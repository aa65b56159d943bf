package commands

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/leapstack-labs/parishpanel/internal/cli/config"
	"github.com/leapstack-labs/parishpanel/internal/cli/output"
	"github.com/leapstack-labs/parishpanel/internal/cli/testutil"
	"github.com/leapstack-labs/parishpanel/internal/report"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandConstruction(t *testing.T) {
	tests := []struct {
		name    string
		cmd     *cobra.Command
		use     string
		flags   []string
		aliases []string
	}{
		{name: "panel", cmd: NewPanelCommand(), use: "panel", flags: []string{"window", "prefix"}},
		{name: "regress", cmd: NewRegressCommand(), use: "regress", flags: []string{"panel", "top", "horizon", "test-fraction"}},
		{name: "sequence", cmd: NewSequenceCommand(), use: "sequence", flags: []string{"panel", "window", "horizon", "epochs"}, aliases: []string{"rnn"}},
		{name: "run", cmd: NewRunCommand(), use: "run", aliases: []string{"all"}},
		{name: "inspect", cmd: NewInspectCommand(), use: "inspect", flags: []string{"panel", "sql"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short, "Short should not be empty")
			assert.NotEmpty(t, tt.cmd.Example, "Example should not be empty")
			for _, flag := range tt.flags {
				assert.NotNil(t, tt.cmd.Flags().Lookup(flag), "flag %q should exist", flag)
			}
			assert.Equal(t, tt.aliases, tt.cmd.Aliases)
		})
	}
}

func TestBoundFlags(t *testing.T) {
	tests := []struct {
		cmd  *cobra.Command
		flag string
		key  string
	}{
		{cmd: NewPanelCommand(), flag: "window", key: "panel.window"},
		{cmd: NewPanelCommand(), flag: "prefix", key: "panel.file_prefix"},
		{cmd: NewRegressCommand(), flag: "horizon", key: "regressor.horizon"},
		{cmd: NewSequenceCommand(), flag: "horizon", key: "sequence.horizon"},
		{cmd: NewSequenceCommand(), flag: "epochs", key: "sequence.params.epochs"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			f := tt.cmd.Flags().Lookup(tt.flag)
			require.NotNil(t, f)
			assert.Equal(t, []string{tt.key}, f.Annotations[config.FlagKeyAnnotation])
		})
	}

	// local flags that are not config keys stay unbound
	assert.Empty(t, NewRegressCommand().Flags().Lookup("panel").Annotations)
}

// newTestRoot wraps sub in a root that loads cfgFile the way the CLI root
// does, with a bound --output flag.
func newTestRoot(cfgFile string, sub *cobra.Command) *cobra.Command {
	root := &cobra.Command{
		Use:           "parishpanel",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			ctx := config.WithConfig(context.Background(), cfg)
			cmd.SetContext(ctx)
			return nil
		},
	}
	root.PersistentFlags().StringP("output", "o", "", "")
	config.BindFlag(root.PersistentFlags(), "output", "output")
	root.AddCommand(sub)
	return root
}

func setupProject(t *testing.T) (root, cfgFile string) {
	t.Helper()
	root = testutil.SetupTestProject(t)
	t.Chdir(root)
	return root, filepath.Join(root, config.ConfigFileName)
}

func TestPanelCommand(t *testing.T) {
	root, cfgFile := setupProject(t)

	stdout, _, err := testutil.ExecuteCommand(t, newTestRoot(cfgFile, NewPanelCommand()), "panel")
	require.NoError(t, err)

	assert.Contains(t, stdout, "# Panel")
	assert.Contains(t, stdout, "2015-2019")
	assert.Contains(t, stdout, "- **Parishes**: 3")
	testutil.AssertNoANSI(t, stdout)
	testutil.AssertValidMarkdown(t, stdout)

	assert.FileExists(t, filepath.Join(root, "out", "five_year_panel_2015_2019.csv"))
}

func TestPanelCommand_JSON(t *testing.T) {
	_, cfgFile := setupProject(t)

	stdout, _, err := testutil.ExecuteCommand(t, newTestRoot(cfgFile, NewPanelCommand()),
		"panel", "-o", "json", "--window", "3", "--prefix", "short")
	require.NoError(t, err)

	var po output.PanelOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &po))
	// the 2020 gap leaves 2021-2023 as the most recent three-year run
	assert.Equal(t, 2021, po.Start)
	assert.Equal(t, 2023, po.End)
	assert.Equal(t, 9, po.Rows)
	assert.Equal(t, 3, po.Parishes)
	assert.Equal(t, "short_2021_2023.csv", filepath.Base(po.Path))
}

func TestPanelCommand_MissingDataDir(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	cfgFile := filepath.Join(dir, config.ConfigFileName)
	require.NoError(t, os.WriteFile(cfgFile, []byte("data_dir: missing\n"), 0o600))

	_, _, err := testutil.ExecuteCommand(t, newTestRoot(cfgFile, NewPanelCommand()), "panel")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "data directory does not exist")
}

func TestRegressCommand(t *testing.T) {
	root, cfgFile := setupProject(t)

	stdout, _, err := testutil.ExecuteCommand(t, newTestRoot(cfgFile, NewRegressCommand()), "regress", "--top", "3")
	require.NoError(t, err)

	assert.Contains(t, stdout, "Regressor (5-year horizon)")
	assert.Contains(t, stdout, "RMSE")
	assert.Contains(t, stdout, "Feature importance")
	testutil.AssertValidMarkdown(t, stdout)

	reports := filepath.Join(root, "reports")
	for _, name := range []string{"regressor_report.yaml", regressorPredictionsPlot, regressorImportancePlot} {
		assert.FileExists(t, filepath.Join(reports, name))
	}

	run, err := report.ReadRun(filepath.Join(reports, "regressor_report.yaml"))
	require.NoError(t, err)
	assert.Equal(t, report.KindRegressor, run.Kind)
	assert.Equal(t, 5, run.Horizon)
	assert.Equal(t, 15, run.TrainSamples+run.TestSamples)
	assert.Contains(t, stdout, run.ID)
}

func TestTrainFromPanelFile(t *testing.T) {
	tests := []struct {
		name        string
		cmd         func() *cobra.Command
		args        []string
		noData      bool
		wantModel   string
		wantHorizon int
		wantSamples int
	}{
		{
			// every window row has a home value five years on in the raw table
			name:        "regressor project horizon",
			cmd:         NewRegressCommand,
			args:        []string{"regress"},
			wantModel:   "regressor",
			wantHorizon: 5,
			wantSamples: 15,
		},
		{
			// home values end in 2025, so only 2015 rows reach ten years on
			name:        "regressor default horizon",
			cmd:         NewRegressCommand,
			args:        []string{"regress", "--horizon", "10"},
			wantModel:   "regressor",
			wantHorizon: 10,
			wantSamples: 3,
		},
		{
			name:        "sequence defaults",
			cmd:         NewSequenceCommand,
			args:        []string{"sequence"},
			wantModel:   "sequence",
			wantHorizon: 5,
			wantSamples: 9,
		},
		{
			// without the raw table only 2015-2017 rows have a value two years on
			name:        "regressor without data dir",
			cmd:         NewRegressCommand,
			args:        []string{"regress", "--horizon", "2"},
			noData:      true,
			wantModel:   "regressor",
			wantHorizon: 2,
			wantSamples: 9,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, cfgFile := setupProject(t)

			_, _, err := testutil.ExecuteCommand(t, newTestRoot(cfgFile, NewPanelCommand()), "panel")
			require.NoError(t, err)

			if tt.noData {
				cfgFile = filepath.Join(root, "no_data.yaml")
				require.NoError(t, os.WriteFile(cfgFile, []byte("data_dir: missing\n"), 0o600))
			}

			panelPath := filepath.Join(root, "out", "five_year_panel_2015_2019.csv")
			args := append(tt.args, "--panel", panelPath, "-o", "json")
			stdout, _, err := testutil.ExecuteCommand(t, newTestRoot(cfgFile, tt.cmd()), args...)
			require.NoError(t, err)

			var to output.TrainOutput
			require.NoError(t, json.Unmarshal([]byte(stdout), &to))
			assert.Equal(t, tt.wantModel, to.Model)
			assert.Equal(t, tt.wantHorizon, to.Horizon)
			assert.Equal(t, tt.wantSamples, to.TrainSamples+to.TestSamples)
			assert.Len(t, to.Artifacts, 2)
		})
	}
}

func TestRegressCommand_MissingPanelFile(t *testing.T) {
	_, cfgFile := setupProject(t)

	_, _, err := testutil.ExecuteCommand(t, newTestRoot(cfgFile, NewRegressCommand()),
		"regress", "--panel", "nope.csv")
	assert.Error(t, err)
}

func TestSequenceCommand(t *testing.T) {
	root, cfgFile := setupProject(t)

	stdout, _, err := testutil.ExecuteCommand(t, newTestRoot(cfgFile, NewSequenceCommand()),
		"sequence", "--epochs", "10", "-o", "json")
	require.NoError(t, err)

	var to output.TrainOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &to))
	assert.Equal(t, "sequence", to.Model)
	assert.Equal(t, 3, to.Window)
	assert.Equal(t, 5, to.Horizon)
	assert.Equal(t, 9, to.TrainSamples+to.TestSamples)
	assert.Len(t, to.Predictions, to.TestSamples)
	assert.Greater(t, to.FinalLoss, 0.0)

	run, err := report.ReadRun(filepath.Join(root, "reports", "sequence_report.yaml"))
	require.NoError(t, err)
	assert.Equal(t, to.RunID, run.ID)
	assert.FileExists(t, filepath.Join(root, "reports", sequenceLossPlot))
}

func TestSequenceCommand_Markdown(t *testing.T) {
	_, cfgFile := setupProject(t)

	stdout, _, err := testutil.ExecuteCommand(t, newTestRoot(cfgFile, NewSequenceCommand()), "rnn")
	require.NoError(t, err)

	assert.Contains(t, stdout, "Sequence model (3-year windows, 5-year horizon)")
	assert.Contains(t, stdout, "Predicted vs actual")
	assert.NotContains(t, stdout, "Feature importance")
	testutil.AssertValidMarkdown(t, stdout)
}

func TestRunCommand(t *testing.T) {
	root, cfgFile := setupProject(t)

	stdout, _, err := testutil.ExecuteCommand(t, newTestRoot(cfgFile, NewRunCommand()), "run", "-o", "json")
	require.NoError(t, err)

	var ro output.RunOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &ro))
	assert.Equal(t, 2015, ro.Panel.Start)
	assert.Equal(t, "regressor", ro.Regressor.Model)
	assert.Equal(t, "sequence", ro.Sequence.Model)
	assert.NotEqual(t, ro.Regressor.RunID, ro.Sequence.RunID)

	entries, err := os.ReadDir(filepath.Join(root, "reports"))
	require.NoError(t, err)
	assert.Len(t, entries, 6)
}

func TestRunCommand_Text(t *testing.T) {
	_, cfgFile := setupProject(t)

	stdout, stderr, err := testutil.ExecuteCommand(t, newTestRoot(cfgFile, NewRunCommand()), "all")
	require.NoError(t, err)

	assert.Contains(t, stdout, "# Panel")
	assert.Contains(t, stdout, "Regressor")
	assert.Contains(t, stdout, "Sequence model")
	assert.Contains(t, stdout, "run complete")
	assert.Empty(t, stderr)
}

func TestInspectCommand(t *testing.T) {
	_, cfgFile := setupProject(t)

	_, _, err := testutil.ExecuteCommand(t, newTestRoot(cfgFile, NewPanelCommand()), "panel")
	require.NoError(t, err)

	t.Run("summary", func(t *testing.T) {
		stdout, _, err := testutil.ExecuteCommand(t, newTestRoot(cfgFile, NewInspectCommand()), "inspect")
		require.NoError(t, err)

		assert.Contains(t, stdout, "# Panel summary")
		assert.Contains(t, stdout, "- **Rows**: 15")
		assert.Contains(t, stdout, "avg_home_value")
		assert.Contains(t, stdout, "(5 rows)")
		testutil.AssertValidMarkdown(t, stdout)
	})

	t.Run("sql json", func(t *testing.T) {
		stdout, _, err := testutil.ExecuteCommand(t, newTestRoot(cfgFile, NewInspectCommand()),
			"inspect", "-o", "json", "--sql", "SELECT parish, COUNT(*) AS n FROM panel GROUP BY parish ORDER BY parish")
		require.NoError(t, err)

		var qo output.QueryOutput
		require.NoError(t, json.Unmarshal([]byte(stdout), &qo))
		assert.Equal(t, []string{"parish", "n"}, qo.Columns)
		require.Len(t, qo.Rows, 3)
		assert.Equal(t, "Caddo Parish", qo.Rows[0]["parish"])
		assert.EqualValues(t, 5, qo.Rows[0]["n"])
	})

	t.Run("bad sql", func(t *testing.T) {
		_, _, err := testutil.ExecuteCommand(t, newTestRoot(cfgFile, NewInspectCommand()),
			"inspect", "--sql", "SELECT nope FROM panel")
		assert.Error(t, err)
	})
}

func TestInspectCommand_NoPanel(t *testing.T) {
	_, cfgFile := setupProject(t)

	_, _, err := testutil.ExecuteCommand(t, newTestRoot(cfgFile, NewInspectCommand()), "inspect")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parishpanel panel")

	_, _, err = testutil.ExecuteCommand(t, newTestRoot(cfgFile, NewInspectCommand()), "inspect", "--panel", "missing.csv")
	assert.ErrorIs(t, err, errNoPanel)
}

func TestLatestPanel(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"p_2010_2014.csv", "p_2015_2019.csv", "other_2020_2024.csv"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o600))
	}

	got, err := latestPanel(dir, "p")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "p_2015_2019.csv"), got)
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{in: nil, want: "NULL"},
		{in: 1.5, want: "1.5"},
		{in: 2.0, want: "2"},
		{in: 0.123456, want: "0.1235"},
		{in: int64(7), want: "7"},
		{in: "Orleans Parish", want: "Orleans Parish"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatValue(tt.in))
	}
}

package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/leapstack-labs/parishpanel/internal/cli/output"
	"github.com/leapstack-labs/parishpanel/internal/cli/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRootCmd(t *testing.T) {
	cmd := NewRootCmd()

	assert.Equal(t, "parishpanel", cmd.Use)
	for _, flag := range []string{"config", "data-dir", "output-dir", "reports-dir", "log-level", "verbose", "output"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), "flag %q should exist", flag)
	}

	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"panel", "regress", "sequence", "run", "inspect", "version", "completion"} {
		assert.True(t, names[want], "missing subcommand %q", want)
	}
}

func TestRootCmd_Version(t *testing.T) {
	t.Chdir(t.TempDir())

	stdout, _, err := testutil.ExecuteCommand(t, NewRootCmd(), "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "parishpanel v"+Version)
}

func TestRootCmd_PanelWithFlags(t *testing.T) {
	root := testutil.SetupTestProject(t)
	t.Chdir(root)

	outDir := filepath.Join(t.TempDir(), "exports")
	stdout, _, err := testutil.ExecuteCommand(t, NewRootCmd(),
		"panel", "--output-dir", outDir, "-o", "json")
	require.NoError(t, err)

	var po output.PanelOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &po))
	assert.Equal(t, filepath.Join(outDir, "five_year_panel_2015_2019.csv"), po.Path)
	assert.FileExists(t, po.Path)
}

func TestRootCmd_ExplicitConfig(t *testing.T) {
	root := testutil.SetupTestProject(t)
	t.Chdir(t.TempDir())

	_, stderr, err := testutil.ExecuteCommand(t, NewRootCmd(),
		"--config", filepath.Join(root, "parishpanel.yaml"), "--verbose", "panel")
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(root, "out", "five_year_panel_2015_2019.csv"))
	assert.Contains(t, stderr, "using config file")
	assert.Contains(t, stderr, "exported panel")
}

func TestRootCmd_ConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{
			name:    "missing config file",
			args:    []string{"--config", "nope.yaml", "panel"},
			wantErr: "nope.yaml",
		},
		{
			name:    "invalid output",
			args:    []string{"-o", "xml", "panel"},
			wantErr: "output",
		},
		{
			name:    "invalid log level",
			args:    []string{"--log-level", "loud", "panel"},
			wantErr: "log_level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			_, _, err := testutil.ExecuteCommand(t, NewRootCmd(), tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRootCmd_EnvOverride(t *testing.T) {
	root := testutil.SetupTestProject(t)
	t.Chdir(root)
	t.Setenv("PARISHPANEL_PANEL__FILE_PREFIX", "env_panel")

	_, _, err := testutil.ExecuteCommand(t, NewRootCmd(), "panel")
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(root, "out", "env_panel_2015_2019.csv"))
	assert.NoError(t, err)
}

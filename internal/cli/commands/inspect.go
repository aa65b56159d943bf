package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/leapstack-labs/parishpanel/internal/cli/output"
	"github.com/leapstack-labs/parishpanel/pkg/adapter"
	"github.com/spf13/cobra"

	_ "github.com/leapstack-labs/parishpanel/pkg/adapters/duckdb" // registers the duckdb adapter
)

// panelTable is the table name an inspected panel is loaded as.
const panelTable = "panel"

// yearSummarySQL aggregates the panel per year.
const yearSummarySQL = `SELECT
	year,
	COUNT(*) AS parishes,
	ROUND(AVG(income), 0) AS avg_income,
	ROUND(AVG(crime_total), 0) AS avg_crime_total,
	ROUND(AVG(school_score), 1) AS avg_school_score,
	ROUND(AVG(home_value), 0) AS avg_home_value,
	ROUND(MAX(mortgage_rate), 3) AS mortgage_rate
FROM panel
GROUP BY year
ORDER BY year`

// InspectOptions holds options for the inspect command.
type InspectOptions struct {
	PanelPath string
	SQL       string
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand() *cobra.Command {
	opts := &InspectOptions{}

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Summarize an exported panel with SQL",
		Long: `Load an exported panel into an in-memory DuckDB table named "panel" and print
a per-year summary, or the result of an ad-hoc query given with --sql.

Without --panel the most recent export in the output directory is used.`,
		Example: `  # Per-year summary of the latest export
  parishpanel inspect

  # Ad-hoc query
  parishpanel inspect --sql "SELECT parish, AVG(home_value) FROM panel GROUP BY parish"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInspect(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.PanelPath, "panel", "", "Panel CSV to inspect (default: latest export)")
	cmd.Flags().StringVar(&opts.SQL, "sql", "", "Query to run against the panel table")

	return cmd
}

func runInspect(cmd *cobra.Command, opts *InspectOptions) error {
	cc := NewCommandContext(cmd)
	ctx := cmd.Context()

	path := opts.PanelPath
	if path != "" {
		if err := checkPanelPath(path); err != nil {
			return err
		}
	} else {
		var err error
		if path, err = latestPanel(cc.Cfg.OutputDir, cc.Cfg.Panel.FilePrefix); err != nil {
			return err
		}
	}

	db, err := adapter.Open(ctx, cc.Cfg.AdapterConfig(), cc.Logger)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", cc.Cfg.Inspect.Adapter, err)
	}
	defer func() { _ = db.Close() }()

	if err := db.LoadCSV(ctx, panelTable, path); err != nil {
		return err
	}

	query := opts.SQL
	if query == "" {
		query = yearSummarySQL
	}

	result, err := queryAll(ctx, db, query)
	if err != nil {
		return err
	}

	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(result)
	}

	if opts.SQL == "" {
		meta, err := db.GetTableMetadata(ctx, panelTable)
		if err != nil {
			return err
		}
		r.Header(1, "Panel summary")
		r.KeyValue("File", path)
		r.KeyValue("Rows", fmt.Sprintf("%d", meta.RowCount))
		r.KeyValue("Columns", columnList(meta.Columns))
		r.Println("")
	}

	if len(result.Rows) == 0 {
		r.Muted("(0 rows)")
		return nil
	}
	r.Table(result.Columns, tableRows(result))
	r.Muted(fmt.Sprintf("(%d rows)", len(result.Rows)))
	return nil
}

// latestPanel returns the newest-window export named <prefix>_<start>_<end>.csv in dir.
func latestPanel(dir, prefix string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, prefix+"_*_*.csv"))
	if err != nil {
		return "", fmt.Errorf("failed to list panels in %s: %w", dir, err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no exported panel in %s\nHint: Run 'parishpanel panel' first or pass --panel", dir)
	}
	sort.Strings(matches)
	return matches[len(matches)-1], nil
}

func queryAll(ctx context.Context, db adapter.Adapter, query string) (*output.QueryOutput, error) {
	rows, err := db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	result := &output.QueryOutput{Columns: cols, Rows: []map[string]any{}}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(map[string]any, len(cols))
		for i, col := range cols {
			row[col] = normalizeValue(values[i])
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return result, nil
}

func normalizeValue(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case time.Time:
		return x.Format(time.DateOnly)
	default:
		return v
	}
}

func tableRows(result *output.QueryOutput) [][]string {
	rows := make([][]string, len(result.Rows))
	for i, row := range result.Rows {
		cells := make([]string, len(result.Columns))
		for j, col := range result.Columns {
			cells[j] = formatValue(row[col])
		}
		rows[i] = cells
	}
	return rows
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case float64:
		return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.4f", x), "0"), ".")
	default:
		return fmt.Sprintf("%v", v)
	}
}

func columnList(cols []adapter.Column) string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return strings.Join(names, ", ")
}

var errNoPanel = errors.New("panel file not found")

// checkPanelPath reports a readable error for a missing --panel file.
func checkPanelPath(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%w: %s", errNoPanel, path)
	}
	return nil
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/rowgrid/internal/adapters/csvsource"
	"github.com/mesh-intelligence/rowgrid/internal/adapters/jsonlsource"
	"github.com/mesh-intelligence/rowgrid/internal/adapters/sqlsource"
	"github.com/mesh-intelligence/rowgrid/internal/paths"
	"github.com/mesh-intelligence/rowgrid/pkg/grid"
	"github.com/mesh-intelligence/rowgrid/pkg/types"
)

// queryFlags holds the query command's flag values.
type queryFlags struct {
	csvPath    string
	jsonlPath  string
	sqlitePath string
	sql        string
	filters    []string
	sorts      []string
	search     string
	mode       string
	columns    []string
	limit      int
	output     string
	out        string
}

func newQueryCmd() *cobra.Command {
	var f queryFlags
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Load rows and filter, sort, search or export them",
		Example: `  rowgrid query --csv fruits.csv --filter "Price:gt:1" --sort Name:desc
  rowgrid query --sqlite app.db --sql "SELECT * FROM orders" --search acme --mode fuzzy
  rowgrid query --jsonl rows.jsonl --filter "Status:is_not_empty" --out active.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, f)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.csvPath, "csv", "", "read rows from a CSV file")
	fl.StringVar(&f.jsonlPath, "jsonl", "", "read rows from a JSON Lines file")
	fl.StringVar(&f.sqlitePath, "sqlite", "", "read rows from a SQLite database (requires --sql)")
	fl.StringVar(&f.sql, "sql", "", "query to run against --sqlite")
	fl.StringArrayVar(&f.filters, "filter", nil, "filter as column:operator[:value]; repeatable, combined with AND")
	fl.StringArrayVar(&f.sorts, "sort", nil, "sort key as column[:asc|desc]; repeatable")
	fl.StringVar(&f.search, "search", "", "rank rows by a search term")
	fl.StringVar(&f.mode, "mode", string(types.ModeAny), "search mode: any, exact, prefix, substring, fuzzy, regex")
	fl.StringSliceVar(&f.columns, "columns", nil, "restrict search to these columns")
	fl.IntVar(&f.limit, "limit", 0, "maximum search results (0 for all)")
	fl.StringVarP(&f.output, "output", "o", "table", "output format: table, json, csv, jsonl")
	fl.StringVar(&f.out, "out", "", "write the result to a .csv or .jsonl file instead of stdout")
	return cmd
}

func runQuery(cmd *cobra.Command, f queryFlags) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	g, err := grid.New(env.cfg, grid.WithLogger(env.logger))
	if err != nil {
		return userError("%w", err)
	}
	defer g.Close()

	if err := load(ctx, g, f); err != nil {
		return err
	}

	criteria, err := parseFilters(f.filters)
	if err != nil {
		return userError("%w", err)
	}
	if len(criteria) > 0 {
		if res := g.ApplyFilters(ctx, criteria); !res.Success {
			if !errors.Is(res.Err, types.ErrInvalidFilter) {
				return resultError(res)
			}
			for _, m := range res.Messages {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning:", m)
			}
		}
	}

	keys, err := parseSortKeys(f.sorts)
	if err != nil {
		return userError("%w", err)
	}
	if len(keys) > 0 {
		if res := g.Sort(ctx, keys); !res.Success {
			return resultError(res)
		}
	}

	var table *types.Table
	if f.search != "" {
		table, err = searchTable(ctx, g, f)
	} else {
		table, err = g.Export(ctx, true)
	}
	if err != nil {
		return sysError(err)
	}

	if f.out != "" {
		out, err := outputPath(f.out)
		if err != nil {
			return err
		}
		return writeFile(out, table)
	}
	format := f.output
	if flags.jsonMode {
		format = "json"
	}
	return render(cmd.OutOrStdout(), table, format)
}

// load imports the one selected source into g.
func load(ctx context.Context, g *grid.Grid, f queryFlags) error {
	sources := 0
	for _, s := range []string{f.csvPath, f.jsonlPath, f.sqlitePath} {
		if s != "" {
			sources++
		}
	}
	if sources != 1 {
		return userError("exactly one of --csv, --jsonl or --sqlite is required")
	}

	var res types.OperationResult
	switch {
	case f.csvPath != "":
		file, err := os.Open(f.csvPath)
		if err != nil {
			return userError("%w", err)
		}
		defer file.Close()
		table, err := csvsource.Read(ctx, file, csvsource.Options{})
		if err != nil {
			return userError("read %s: %w", f.csvPath, err)
		}
		res = g.Import(ctx, table, types.ImportReplace)
	case f.jsonlPath != "":
		rows, skipped, err := jsonlsource.ReadFile(f.jsonlPath)
		if err != nil {
			return userError("%w", err)
		}
		if skipped > 0 {
			env.logger.Warn("skipped malformed lines", "file", f.jsonlPath, "lines", skipped)
		}
		res = g.ImportRows(ctx, rows, types.ImportReplace)
	default:
		if f.sql == "" {
			return userError("--sqlite requires --sql")
		}
		db, err := sqlsource.Open(f.sqlitePath, true)
		if err != nil {
			return sysError(err)
		}
		defer db.Close()
		table, err := sqlsource.Query(ctx, db, f.sql)
		if err != nil {
			return userError("%w", err)
		}
		res = g.Import(ctx, table, types.ImportReplace)
	}
	if !res.Success {
		return resultError(res)
	}
	return nil
}

// searchTable runs the search and returns the matching rows best first,
// with the matched column and score appended.
func searchTable(ctx context.Context, g *grid.Grid, f queryFlags) (*types.Table, error) {
	criteria := types.SearchCriteria{
		Text:    f.search,
		Mode:    types.SearchMode(f.mode),
		Columns: f.columns,
		Limit:   f.limit,
	}
	results, res := g.Search(ctx, criteria, true)
	if !res.Success {
		return nil, res.Err
	}
	rows := make([]types.Row, 0, len(results))
	for _, r := range results {
		row, ok, err := g.Store().GetRowByID(r.RowID)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		row.Data = row.Data.Clone()
		row.Data.Set("_match", types.Text(r.Column))
		row.Data.Set("_score", types.Number(r.Score))
		rows = append(rows, row)
	}
	var cols []types.ColumnDefinition
	if registered, err := g.Store().Columns(); err == nil && len(registered) > 0 {
		cols = append(registered,
			types.NewColumn("_match", types.ColumnText),
			types.NewColumn("_score", types.ColumnNumber))
	}
	return types.TableFromRows(rows, cols), nil
}

func resultError(res types.OperationResult) error {
	if res.Err == nil {
		return sysError(errors.New(strings.Join(res.Messages, "; ")))
	}
	var de *types.DataError
	if errors.As(res.Err, &de) {
		return userError("%w", res.Err)
	}
	return sysError(res.Err)
}

// parseFilters parses column:operator[:value] expressions. The value may
// itself contain colons.
func parseFilters(exprs []string) ([]types.FilterCriteria, error) {
	out := make([]types.FilterCriteria, 0, len(exprs))
	for _, e := range exprs {
		parts := strings.SplitN(e, ":", 3)
		if len(parts) < 2 || strings.TrimSpace(parts[0]) == "" {
			return nil, fmt.Errorf("filter %q: want column:operator[:value]", e)
		}
		op, err := types.ParseFilterOperator(parts[1])
		if err != nil {
			return nil, fmt.Errorf("filter %q: %w", e, err)
		}
		c := types.FilterCriteria{Column: strings.TrimSpace(parts[0]), Operator: op}
		switch {
		case len(parts) == 3:
			c.Value = types.Text(parts[2])
		case !op.Unary():
			return nil, fmt.Errorf("filter %q: operator %s needs a value", e, op)
		}
		out = append(out, c)
	}
	return out, nil
}

// parseSortKeys parses column[:asc|desc] expressions.
func parseSortKeys(exprs []string) ([]types.SortKey, error) {
	out := make([]types.SortKey, 0, len(exprs))
	for _, e := range exprs {
		col, dir, _ := strings.Cut(e, ":")
		col = strings.TrimSpace(col)
		if col == "" {
			return nil, fmt.Errorf("sort %q: missing column", e)
		}
		k := types.SortKey{Column: col}
		switch strings.ToLower(strings.TrimSpace(dir)) {
		case "", "asc":
		case "desc":
			k.Direction = types.Descending
		default:
			return nil, fmt.Errorf("sort %q: direction must be asc or desc", e)
		}
		out = append(out, k)
	}
	return out, nil
}

// outputPath places a relative --out path under --data-dir when that flag
// is set. Otherwise the path is used as given.
func outputPath(out string) (string, error) {
	if flags.dataDir == "" || filepath.IsAbs(out) {
		return out, nil
	}
	dir, err := paths.ResolveDataDir(flags.dataDir, "")
	if err != nil {
		return "", sysError(fmt.Errorf("resolve data dir: %w", err))
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", sysError(fmt.Errorf("create data dir: %w", err))
	}
	return filepath.Join(dir, out), nil
}

// writeFile exports the table to path, choosing the format by extension.
func writeFile(path string, t *types.Table) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson":
		rows, err := t.RowData()
		if err != nil {
			return sysError(err)
		}
		if err := jsonlsource.WriteFile(path, rows); err != nil {
			return sysError(err)
		}
		return nil
	case ".csv":
		file, err := os.Create(path)
		if err != nil {
			return sysError(err)
		}
		if err := csvsource.Write(file, t); err != nil {
			file.Close()
			return sysError(err)
		}
		if err := file.Close(); err != nil {
			return sysError(err)
		}
		return nil
	default:
		return userError("--out %s: extension must be .csv or .jsonl", path)
	}
}

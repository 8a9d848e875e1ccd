package main

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/internal/engine"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/internal/matcher"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/internal/matcher/runner"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/internal/product"
)

var (
	runInput    string
	runOutput   string
	runMappings []string
	runWorkers  int
	runFailFast bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Match every row of a CSV file",
	Long: `Reads a CSV file with a header row, matches each row and writes the output
columns as CSV. Each --map flag assigns an input role to a header; unmapped
columns are ignored. The run summary is printed to stderr as JSON.

Examples:
  matchctl run --input products.csv --map Name=PRODUCT_NAME --map Brand=BRAND_NAME
  matchctl run --input products.csv --map EAN=GTIN_CODE --output matched.csv`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		in, err := os.Open(runInput)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer in.Close()

		mapping, rows, err := readRows(in, runMappings)
		if err != nil {
			return err
		}

		eng, err := engine.New(cfg, nil)
		if err != nil {
			return err
		}
		defer eng.Close()

		stats := analytics.NewAggregator()
		t, err := eng.NewTransformer(mapping, matcher.WithStats(stats))
		if err != nil {
			return err
		}
		workers := runWorkers
		if workers <= 0 {
			workers = cfg.Matching.Workers
		}
		r := runner.New(stats, nil, nil, runner.Config{Workers: workers, FailFast: runFailFast})
		res, runErr := r.Run(cmd.Context(), t, rows)
		if res == nil {
			return runErr
		}

		out := cmd.OutOrStdout()
		if runOutput != "" {
			f, err := os.Create(runOutput)
			if err != nil {
				return fmt.Errorf("create output: %w", err)
			}
			defer f.Close()
			out = f
		}
		if err := writeRows(out, res.Rows); err != nil {
			return errors.Join(runErr, err)
		}

		enc := json.NewEncoder(cmd.ErrOrStderr())
		enc.SetIndent("", "  ")
		if err := enc.Encode(struct {
			RunID   string            `json:"run_id"`
			Rows    int               `json:"rows"`
			Failed  int               `json:"failed"`
			Errors  []runner.RowError `json:"errors,omitempty"`
			Summary analytics.Summary `json:"summary"`
		}{res.RunID, len(res.Rows), res.Failed, res.Errors, res.Summary}); err != nil {
			return errors.Join(runErr, err)
		}
		return runErr
	},
}

func init() {
	runCmd.Flags().StringVarP(&runInput, "input", "i", "", "CSV file to match")
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "", "output CSV file (default stdout)")
	runCmd.Flags().StringArrayVarP(&runMappings, "map", "m", nil, "HEADER=ROLE assignment, repeatable")
	runCmd.Flags().IntVar(&runWorkers, "workers", 0, "rows in flight (default from config)")
	runCmd.Flags().BoolVar(&runFailFast, "fail-fast", false, "stop at the first failed row")
	_ = runCmd.MarkFlagRequired("input")
	_ = runCmd.MarkFlagRequired("map")
}

// parseMappings resolves HEADER=ROLE pairs against the header row and
// returns the selected column indexes with their roles.
func parseMappings(header []string, specs []string) ([]int, []product.InputField, error) {
	positions := make(map[string]int, len(header))
	for i, h := range header {
		positions[strings.ToLower(strings.TrimSpace(h))] = i
	}
	cols := make([]int, 0, len(specs))
	roles := make([]product.InputField, 0, len(specs))
	for _, spec := range specs {
		name, role, ok := strings.Cut(spec, "=")
		if !ok {
			return nil, nil, fmt.Errorf("mapping %q: want HEADER=ROLE", spec)
		}
		idx, found := positions[strings.ToLower(strings.TrimSpace(name))]
		if !found {
			return nil, nil, fmt.Errorf("mapping %q: no column named %q", spec, name)
		}
		field, err := product.ParseInputField(role)
		if err != nil {
			return nil, nil, fmt.Errorf("mapping %q: %w", spec, err)
		}
		cols = append(cols, idx)
		roles = append(roles, field)
	}
	return cols, roles, nil
}

// readRows reads a header row and the records below it, keeping only the
// mapped columns in mapping order.
func readRows(r io.Reader, specs []string) ([]product.InputField, [][]any, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	cols, mapping, err := parseMappings(header, specs)
	if err != nil {
		return nil, nil, err
	}
	var rows [][]any
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read row %d: %w", len(rows)+1, err)
		}
		row := make([]any, len(cols))
		for i, c := range cols {
			if c < len(rec) {
				row[i] = rec[c]
			}
		}
		rows = append(rows, row)
	}
	return mapping, rows, nil
}

// writeRows writes the output header and one record per row. Failed rows
// are written as empty records so that line numbers still line up.
func writeRows(w io.Writer, rows []matcher.Row) error {
	cw := csv.NewWriter(w)
	columns := matcher.OutputColumns()
	header := make([]string, len(columns))
	for i, c := range columns {
		header[i] = c.Name
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	empty := make([]string, len(columns))
	for _, row := range rows {
		rec := empty
		if row != nil {
			rec = row.Strings()
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

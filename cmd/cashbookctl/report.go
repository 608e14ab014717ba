package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"cashbook/internal/report"
)

func reportCmd() *cobra.Command {
	var ff filterFlags
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Export a detailed report as PDF, CSV or XLSX",
		Long: `Render the transactions of a date range with totals and extremes.
--start and --end are required; the file name is derived from the range
unless --output is given.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReport(cmd, ff)
		},
	}
	cmd.Flags().StringVar(&ff.start, "start", "", "First day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&ff.end, "end", "", "Last day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&ff.kind, "kind", "", "Only income or expense")
	cmd.Flags().StringVar(&ff.category, "category", "", "Only this category (exact match)")
	cmd.Flags().String("format", "pdf", "Output format (pdf, csv, xlsx)")
	cmd.Flags().StringP("output", "o", "", "Output file, or - for stdout")
	return cmd
}

func runReport(cmd *cobra.Command, ff filterFlags) error {
	rawFormat, _ := cmd.Flags().GetString("format")
	output, _ := cmd.Flags().GetString("output")

	format, err := report.ParseFormat(rawFormat)
	if err != nil {
		return err
	}
	f, err := ff.filter()
	if err != nil {
		return err
	}

	ctx, s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.close()

	rep, err := s.agg.Detailed(ctx, f)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	doc := report.Document{Report: rep, GeneratedAt: time.Now(), Currency: cfg.Currency()}
	if err := report.Render(&buf, format, doc); err != nil {
		return fmt.Errorf("render %s report: %w", format, err)
	}

	if output == "-" {
		_, err := buf.WriteTo(cmd.OutOrStdout())
		return err
	}
	if output == "" {
		output = report.Filename(format, f)
	}
	if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	abs, _ := filepath.Abs(output)
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d transactions to %s\n", rep.Stats.Count, abs)
	return nil
}

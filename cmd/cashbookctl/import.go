package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"cashbook/internal/importer"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import transactions from a CSV, XLSX or OFX file or a Google Sheet",
		Long: `Import a batch of transactions. Files are read by extension (.csv, .xlsx,
.ofx, .qfx). With --sheet the rows come from GOOGLE_SPREADSHEET_ID using
GOOGLE_IMPORT_RANGE.

Rows already in the ledger (same date, description, amount and kind) are
skipped, so running the same import twice is safe.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runImport,
	}
	cmd.Flags().Bool("sheet", false, "Read rows from the configured Google Sheet")
	cmd.Flags().Bool("dry-run", false, "Validate rows without writing anything")
	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	sheet, _ := cmd.Flags().GetBool("sheet")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	switch {
	case sheet && len(args) > 0:
		return errors.New("pass either a file or --sheet, not both")
	case !sheet && len(args) == 0:
		return errors.New("missing file to import")
	}

	table, err := loadTable(cmd.Context(), sheet, args)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	// Header problems are reported before a store is opened.
	if err := importer.Check(table); err != nil {
		return headerError(err)
	}

	if dryRun {
		txs, rejections, err := importer.Normalize(table)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%d valid rows, %d rejected\n", len(txs), len(rejections))
		printRejections(out, rejections)
		return nil
	}

	ctx, s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.close()

	bar := progressbar.NewOptions(len(table.Rows),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan]Importing rows...[reset]"),
		progressbar.OptionClearOnFinish(),
	)
	res, err := s.service.Import(ctx, table, func(done, _ int) {
		_ = bar.Set(done)
	})
	_ = bar.Finish()
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	fmt.Fprintln(out, boxStyle.Render(fmt.Sprintf("%s %d\n%s %d\n%s %d",
		headerStyle.Render("Imported:  "), res.Imported,
		headerStyle.Render("Ignored:   "), res.Ignored,
		headerStyle.Render("Duplicates:"), res.Duplicates)))
	printRejections(out, res.Rejections)
	return nil
}

func loadTable(ctx context.Context, sheet bool, args []string) (importer.Table, error) {
	if sheet {
		if cfg.GoogleSpreadsheetID == "" {
			return importer.Table{}, errors.New("GOOGLE_SPREADSHEET_ID is required with --sheet")
		}
		api, err := importer.NewSheetsAPI(ctx)
		if err != nil {
			return importer.Table{}, err
		}
		return importer.NewSheetsSource(api, cfg.GoogleSpreadsheetID, cfg.GoogleImportRange).Table(ctx)
	}

	path := args[0]
	read, ok := importer.ReaderFor(path)
	if !ok {
		return importer.Table{}, fmt.Errorf("unsupported file type %q: want .csv, .xlsx or .ofx", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return importer.Table{}, err
	}
	defer f.Close()
	return read(f)
}

func headerError(err error) error {
	var missing *importer.MissingColumnsError
	if errors.As(err, &missing) {
		return fmt.Errorf("file is missing required columns %v: %w", missing.Columns, err)
	}
	return err
}

func printRejections(w io.Writer, rejections []importer.RowError) {
	for _, r := range rejections {
		fmt.Fprintln(w, mutedStyle.Render("  "+r.Error()))
	}
}

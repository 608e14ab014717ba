package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const xlsxSheet = "Relatorio"

// XLSX writes the transactions to a single sheet followed by the period totals.
// Amounts are stored as numbers so spreadsheets can sum them.
func XLSX(w io.Writer, doc Document) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetDocProps(&excelize.DocProperties{
		Title:    "Relatório Financeiro",
		Creator:  "cashbook",
		Created:  doc.GeneratedAt.UTC().Format("2006-01-02T15:04:05Z"),
		Modified: doc.GeneratedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}); err != nil {
		return fmt.Errorf("doc props: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"34495E"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return fmt.Errorf("money style: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}, NumFmt: 4})
	if err != nil {
		return fmt.Errorf("total style: %w", err)
	}

	row := []any{}
	for _, h := range CSVHeader {
		row = append(row, h)
	}
	if err := f.SetSheetRow(xlsxSheet, "A1", &row); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := f.SetCellStyle(xlsxSheet, "A1", "E1", header); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	txs := doc.Report.Transactions
	for i, tx := range txs {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []any{
			tx.Date.Display(),
			tx.Description,
			tx.Category,
			tx.Kind.Label(),
			tx.Amount.Decimal().InexactFloat64(),
		}
		if err := f.SetSheetRow(xlsxSheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	last := len(txs) + 1
	if last > 1 {
		if err := f.SetCellStyle(xlsxSheet, "E2", fmt.Sprintf("E%d", last), money); err != nil {
			return fmt.Errorf("style amounts: %w", err)
		}
	}

	totals := doc.Report.Totals
	summary := []struct {
		label string
		value float64
	}{
		{"Total de Receitas", totals.Income.Decimal().InexactFloat64()},
		{"Total de Despesas", totals.Expense.Decimal().InexactFloat64()},
		{"Saldo Final", totals.Balance.Decimal().InexactFloat64()},
	}
	for i, s := range summary {
		r := last + 2 + i
		if err := f.SetCellValue(xlsxSheet, fmt.Sprintf("D%d", r), s.label); err != nil {
			return err
		}
		if err := f.SetCellValue(xlsxSheet, fmt.Sprintf("E%d", r), s.value); err != nil {
			return err
		}
		if err := f.SetCellStyle(xlsxSheet, fmt.Sprintf("D%d", r), fmt.Sprintf("E%d", r), bold); err != nil {
			return err
		}
	}

	widths := map[string]float64{"A": 12, "B": 40, "C": 20, "D": 18, "E": 16}
	for _, col := range []string{"A", "B", "C", "D", "E"} {
		if err := f.SetColWidth(xlsxSheet, col, col, widths[col]); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"cashbook/internal/core"
)

// CSVHeader is the stable export header.
var CSVHeader = []string{"Data", "Descrição", "Categoria", "Tipo", "Valor"}

var ErrBadCSVHeader = errors.New("unexpected csv header")

// CSV writes one header row and one row per transaction. Dates are day/month/year,
// kinds are raw (income/expense) and amounts are plain decimals without a symbol.
// Line breaks inside a description are written as LF: a CSV reader folds a
// quoted CRLF into LF, so LF is the only form that reads back unchanged.
func CSV(w io.Writer, txs []core.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, tx := range txs {
		record := []string{
			tx.Date.Display(),
			core.CleanDescription(tx.Description),
			tx.Category,
			string(tx.Kind),
			tx.Amount.String(),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row %d: %w", tx.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a CSV export back into transactions, preserving order.
func ReadCSV(r io.Reader) ([]core.Transaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(CSVHeader)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	if strings.Join(header, ",") != strings.Join(CSVHeader, ",") {
		return nil, fmt.Errorf("%w: %v", ErrBadCSVHeader, header)
	}

	var out []core.Transaction
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		date, err := core.ParseDate(rec[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		d, err := decimal.NewFromString(rec[4])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w: %v", line, core.ErrInvalidAmount, err)
		}
		amount, err := core.MoneyFromDecimal(d)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, core.Transaction{
			Date:        date,
			Description: rec[1],
			Category:    rec[2],
			Kind:        core.Kind(rec[3]),
			Amount:      amount,
		})
	}
}

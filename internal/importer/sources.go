package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/aclindsa/ofxgo"
	"github.com/xuri/excelize/v2"

	"cashbook/internal/core"
)

var ErrEmptyTable = errors.New("table has no header row")

// ReaderFor picks the reader for an upload by its file extension.
func ReaderFor(filename string) (func(io.Reader) (Table, error), bool) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return ReadCSV, true
	case ".xlsx":
		return func(r io.Reader) (Table, error) { return ReadXLSX(r, "") }, true
	case ".ofx", ".qfx":
		return ReadOFX, true
	default:
		return nil, false
	}
}

// ReadCSV loads a comma separated upload. Rows may be shorter than the header;
// missing cells read as empty.
func ReadCSV(r io.Reader) (Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return Table{}, fmt.Errorf("read csv: %w", err)
	}
	return tableFrom(records)
}

// ReadXLSX loads a sheet from a workbook. An empty sheet name selects the first sheet.
func ReadXLSX(r io.Reader, sheet string) (Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return Table{}, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return Table{}, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return tableFrom(rows)
}

func tableFrom(records [][]string) (Table, error) {
	if len(records) == 0 {
		return Table{}, ErrEmptyTable
	}
	t := Table{Header: records[0]}
	for _, rec := range records[1:] {
		if blank(rec) {
			continue
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

var severityFix = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)`)

// ReadOFX converts bank and credit card statements to a Table. Credits become
// income and debits expense; the amount is absolute and the category is the default.
func ReadOFX(r io.Reader) (Table, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Table{}, fmt.Errorf("read ofx: %w", err)
	}
	content := strings.TrimLeft(string(raw), " \t\r\n")
	content = severityFix.ReplaceAllStringFunc(content, strings.ToUpper)

	resp, err := ofxgo.ParseResponse(strings.NewReader(content))
	if err != nil {
		return Table{}, fmt.Errorf("parse ofx: %w", err)
	}

	t := Table{Header: append([]string(nil), RequiredColumns...)}
	add := func(list *ofxgo.TransactionList) {
		if list == nil {
			return
		}
		for _, tx := range list.Transactions {
			t.Rows = append(t.Rows, ofxRow(tx))
		}
	}
	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok {
			add(stmt.BankTranList)
		}
	}
	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok {
			add(stmt.BankTranList)
		}
	}
	slog.Info("Parsed OFX statement", "transactions", len(t.Rows))
	return t, nil
}

// ofxRow lays a statement line out in RequiredColumns order.
func ofxRow(tx ofxgo.Transaction) []string {
	kind := core.KindIncome
	if tx.TrnAmt.Sign() < 0 {
		kind = core.KindExpense
	}
	amount := new(big.Rat).Abs(&tx.TrnAmt.Rat)

	description := strings.TrimSpace(string(tx.Name))
	if description == "" && tx.Payee != nil {
		description = strings.TrimSpace(string(tx.Payee.Name))
	}
	if description == "" {
		description = strings.TrimSpace(string(tx.Memo))
	}

	return []string{
		core.DateOf(tx.DtPosted.Time).String(),
		description,
		amount.FloatString(2),
		string(kind),
		core.DefaultCategory,
	}
}

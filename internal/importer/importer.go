// Package importer normalizes tabular uploads into ledger transactions.
//
// A batch is checked for its required columns before anything is written. After
// that every row is normalized on its own: a malformed row is counted as ignored
// with an explicit RowError and never aborts the batch.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"cashbook/internal/core"
)

// RequiredColumns are matched case-sensitively against the header row.
var RequiredColumns = []string{"date", "description", "amount", "kind", "category"}

var ErrMissingColumns = errors.New("missing required columns")

// MissingColumnsError names the required columns absent from a header.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingColumns, strings.Join(e.Columns, ", "))
}

func (e *MissingColumnsError) Unwrap() error { return ErrMissingColumns }

// Table is an ordered set of rows keyed by a header.
type Table struct {
	Header []string
	Rows   [][]string
}

// Reason classifies why a row was rejected.
type Reason string

const (
	ReasonInvalidKind      Reason = "invalid_kind"
	ReasonInvalidDate      Reason = "invalid_date"
	ReasonInvalidAmount    Reason = "invalid_amount"
	ReasonEmptyDescription Reason = "empty_description"
	ReasonLongDescription  Reason = "description_too_long"
	ReasonInvalidRow       Reason = "invalid_row"
)

// RowError reports a rejected row. Line is 1-based and counts the header as line 1.
type RowError struct {
	Line   int    `json:"line"`
	Reason Reason `json:"reason"`
	Value  string `json:"value,omitempty"`
}

func (e RowError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
	}
	return fmt.Sprintf("line %d: %s %q", e.Line, e.Reason, e.Value)
}

// Result summarizes an import. Ignored counts both rejected rows and duplicates.
type Result struct {
	Imported   int        `json:"imported"`
	Ignored    int        `json:"ignored"`
	Duplicates int        `json:"duplicates"`
	Rejections []RowError `json:"rejections"`
}

// Store is the subset of the ledger store an import writes through.
type Store interface {
	Exists(ctx context.Context, key core.DedupKey) (bool, error)
	Insert(ctx context.Context, tx core.Transaction) (int64, error)
}

// Progress is called once per processed row with the number of rows done so far.
type Progress func(done, total int)

type Importer struct {
	store Store
}

func New(store Store) *Importer {
	return &Importer{store: store}
}

// columnIndex maps every required column to its position or reports the missing ones.
func columnIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, dup := idx[h]; !dup {
			idx[h] = i
		}
	}
	var missing []string
	for _, c := range RequiredColumns {
		if _, ok := idx[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Columns: missing}
	}
	return idx, nil
}

// Check verifies the header without touching the store.
func Check(t Table) error {
	_, err := columnIndex(t.Header)
	return err
}

// Import normalizes and inserts every acceptable row of t. Store failures abort
// the remaining rows; rows committed before the failure stay committed and are
// reflected in the returned Result.
func (im *Importer) Import(ctx context.Context, t Table, progress Progress) (Result, error) {
	res := Result{Rejections: []RowError{}}
	idx, err := columnIndex(t.Header)
	if err != nil {
		return res, err
	}

	total := len(t.Rows)
	for i, row := range t.Rows {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		line := i + 2
		tx, rowErr := normalizeRow(idx, row, line)
		switch {
		case rowErr != nil:
			res.Ignored++
			res.Rejections = append(res.Rejections, *rowErr)
		default:
			exists, err := im.store.Exists(ctx, tx.Key())
			if err != nil {
				return res, fmt.Errorf("line %d: dedup lookup: %w", line, err)
			}
			if exists {
				res.Ignored++
				res.Duplicates++
				break
			}
			if _, err := im.store.Insert(ctx, tx); err != nil {
				return res, fmt.Errorf("line %d: insert: %w", line, err)
			}
			res.Imported++
		}
		if progress != nil {
			progress(i+1, total)
		}
	}

	slog.InfoContext(ctx, "Import finished",
		"rows", total,
		"imported", res.Imported,
		"ignored", res.Ignored,
		"duplicates", res.Duplicates)
	return res, nil
}

// Normalize converts every row of t without consulting the store.
func Normalize(t Table) ([]core.Transaction, []RowError, error) {
	idx, err := columnIndex(t.Header)
	if err != nil {
		return nil, nil, err
	}
	var out []core.Transaction
	var rejected []RowError
	for i, row := range t.Rows {
		tx, rowErr := normalizeRow(idx, row, i+2)
		if rowErr != nil {
			rejected = append(rejected, *rowErr)
			continue
		}
		out = append(out, tx)
	}
	return out, rejected, nil
}

func normalizeRow(idx map[string]int, row []string, line int) (core.Transaction, *RowError) {
	field := func(name string) string {
		i := idx[name]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	kindRaw := field("kind")
	kind, err := core.ParseKind(kindRaw)
	if err != nil {
		return core.Transaction{}, &RowError{Line: line, Reason: ReasonInvalidKind, Value: kindRaw}
	}
	dateRaw := field("date")
	date, err := core.ParseDate(dateRaw)
	if err != nil {
		return core.Transaction{}, &RowError{Line: line, Reason: ReasonInvalidDate, Value: dateRaw}
	}
	amountRaw := field("amount")
	amount, err := ParseAmount(amountRaw)
	if err != nil {
		return core.Transaction{}, &RowError{Line: line, Reason: ReasonInvalidAmount, Value: amountRaw}
	}
	description := core.CleanDescription(field("description"))
	if description == "" {
		return core.Transaction{}, &RowError{Line: line, Reason: ReasonEmptyDescription}
	}
	category := field("category")
	if category == "" {
		category = core.DefaultCategory
	}
	tx := core.Transaction{
		Date:        date,
		Description: description,
		Amount:      amount,
		Kind:        kind,
		Category:    category,
	}
	// Imported rows meet the same rules as rows written through the API.
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, &RowError{Line: line, Reason: reasonFor(err)}
	}
	return tx, nil
}

func reasonFor(err error) Reason {
	switch {
	case errors.Is(err, core.ErrLongDescription):
		return ReasonLongDescription
	case errors.Is(err, core.ErrEmptyDescription):
		return ReasonEmptyDescription
	case errors.Is(err, core.ErrInvalidAmount):
		return ReasonInvalidAmount
	case errors.Is(err, core.ErrInvalidDate):
		return ReasonInvalidDate
	case errors.Is(err, core.ErrInvalidKind):
		return ReasonInvalidKind
	default:
		return ReasonInvalidRow
	}
}

// ParseAmount accepts "1234.56", "1234,56", "1.234,56" and "1,234.56". The last
// separator is the decimal one; the other is dropped as a thousands separator.
// A leading currency symbol is ignored. The result is rounded half-up to cents
// and must be positive.
func ParseAmount(s string) (core.Money, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "R$")
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	if s == "" {
		return core.Money{}, core.ErrInvalidAmount
	}

	if last := strings.LastIndexAny(s, ".,"); last >= 0 {
		thousands := ","
		if s[last] == ',' {
			thousands = "."
		}
		s = strings.ReplaceAll(s[:last], thousands, "") + "." + s[last+1:]
		if strings.ContainsAny(s[:strings.LastIndex(s, ".")], ".,") {
			return core.Money{}, core.ErrInvalidAmount
		}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return core.Money{}, fmt.Errorf("%w: %v", core.ErrInvalidAmount, err)
	}
	m, err := core.MoneyFromDecimal(d)
	if err != nil {
		return core.Money{}, err
	}
	if err := m.Validate(); err != nil {
		return core.Money{}, err
	}
	return m, nil
}

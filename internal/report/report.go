// Package report renders detailed ledger reports as PDF, CSV and XLSX.
//
// Renderers are pure: the same Document always produces the same bytes. The only
// time-dependent input is Document.GeneratedAt, which callers set explicitly.
package report

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"cashbook/internal/core"
)

// Format identifies an output encoding.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

var ErrUnknownFormat = errors.New("unknown report format")

// ParseFormat accepts pdf, csv or xlsx in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatPDF, FormatCSV, FormatXLSX:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/octet-stream"
	}
}

// Document is everything a renderer needs.
type Document struct {
	Report      core.DetailedReport
	GeneratedAt time.Time
	Currency    core.CurrencyFormat
}

func (d Document) currency() core.CurrencyFormat {
	if d.Currency.Symbol == "" {
		return core.FormatPtBR
	}
	return d.Currency
}

// Period renders the report range as "01/01/2024 a 31/01/2024".
func (d Document) Period() string {
	r := d.Report.Filter.Range
	if r == nil {
		return "Todo o período"
	}
	return r.Start.Display() + " a " + r.End.Display()
}

// Render writes doc in the requested format.
func Render(w io.Writer, format Format, doc Document) error {
	switch format {
	case FormatPDF:
		return PDF(w, doc)
	case FormatCSV:
		return CSV(w, doc.Report.Transactions)
	case FormatXLSX:
		return XLSX(w, doc)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// Filename builds the download name from the report range and kind filter.
func Filename(format Format, f core.Filter) string {
	start, end := "inicio", "fim"
	if f.Range != nil {
		start, end = f.Range.Start.String(), f.Range.End.String()
	}
	switch {
	case format == FormatPDF && f.Kind != "":
		return fmt.Sprintf("relatorio_%s_%s_%s.pdf", f.Kind, start, end)
	case format == FormatPDF:
		return fmt.Sprintf("relatorio_financeiro_%s_%s.pdf", start, end)
	default:
		return fmt.Sprintf("relatorio_%s_%s.%s", start, end, format)
	}
}

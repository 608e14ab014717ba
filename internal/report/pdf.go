package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-pdf/fpdf"
)

type rgb struct{ r, g, b int }

var (
	colorHeader   = rgb{52, 73, 94}
	colorStripe   = rgb{236, 240, 241}
	colorWhite    = rgb{255, 255, 255}
	colorText     = rgb{44, 62, 80}
	colorPositive = rgb{39, 174, 96}
	colorNegative = rgb{231, 76, 60}
)

const (
	fontFamily = "Helvetica"
	rowHeight  = 7.0
	margin     = 10.0
)

type column struct {
	title string
	width float64
	align string
}

var columns = []column{
	{"Data", 25, "C"},
	{"Descrição", 70, "L"},
	{"Categoria", 35, "L"},
	{"Tipo", 25, "C"},
	{"Valor (R$)", 35, "R"},
}

type pdfWriter struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func (p pdfWriter) fill(c rgb)  { p.pdf.SetFillColor(c.r, c.g, c.b) }
func (p pdfWriter) color(c rgb) { p.pdf.SetTextColor(c.r, c.g, c.b) }

// cell writes UTF-8 text through the cp1252 translator used by the core fonts.
func (p pdfWriter) cell(w, h float64, text, border string, ln int, align string, fill bool) {
	p.pdf.CellFormat(w, h, p.tr(text), border, ln, align, fill, 0, "")
}

// fit truncates text so that it fits in width, appending an ellipsis.
func (p pdfWriter) fit(text string, width float64) string {
	limit := width - 2
	if p.pdf.GetStringWidth(p.tr(text)) <= limit {
		return text
	}
	runes := []rune(text)
	for len(runes) > 0 && p.pdf.GetStringWidth(p.tr(string(runes)+"...")) > limit {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}

// PDF renders doc as an A4 report with a paginated transaction table and a
// summary block whose balance row is green when non-negative and red otherwise.
func PDF(w io.Writer, doc Document) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(false, margin)
	pdf.SetCreationDate(doc.GeneratedAt)
	pdf.SetModificationDate(doc.GeneratedAt)
	pdf.SetCatalogSort(true)
	pdf.SetTitle("Relatório Financeiro", true)
	pdf.SetCreator("cashbook", true)
	pdf.AliasNbPages("")

	p := pdfWriter{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont(fontFamily, "I", 8)
		p.color(colorText)
		p.cell(0, 8, fmt.Sprintf("Página %d/{nb}", pdf.PageNo()), "", 0, "C", false)
	})

	pdf.AddPage()
	writeTitle(p, doc)
	writeTable(p, doc)
	writeSummary(p, doc)

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

func writeTitle(p pdfWriter, doc Document) {
	pdf := p.pdf
	p.color(colorText)
	pdf.SetFont(fontFamily, "B", 16)
	p.cell(0, 10, "RELATÓRIO FINANCEIRO DETALHADO", "", 1, "C", false)

	pdf.SetFont(fontFamily, "", 10)
	p.cell(0, 6, "Período: "+doc.Period(), "", 1, "C", false)

	f := doc.Report.Filter
	var filters []string
	if f.Kind != "" {
		filters = append(filters, "Tipo: "+f.Kind.Label())
	}
	if f.Category != "" {
		filters = append(filters, "Categoria: "+f.Category)
	}
	if len(filters) > 0 {
		p.cell(0, 6, strings.Join(filters, " | "), "", 1, "C", false)
	}

	pdf.SetFont(fontFamily, "I", 8)
	p.cell(0, 6, "Emitido em "+doc.GeneratedAt.Format("02/01/2006 15:04"), "", 1, "C", false)
	pdf.Ln(4)
}

func writeTableHeader(p pdfWriter) {
	p.pdf.SetFont(fontFamily, "B", 10)
	p.fill(colorHeader)
	p.color(colorWhite)
	p.pdf.SetDrawColor(colorHeader.r, colorHeader.g, colorHeader.b)
	for _, c := range columns {
		p.cell(c.width, rowHeight+1, c.title, "1", 0, "C", true)
	}
	p.pdf.Ln(-1)
	p.pdf.SetFont(fontFamily, "", 9)
	p.color(colorText)
	p.pdf.SetDrawColor(189, 195, 199)
}

// ensureSpace starts a new page when h millimetres do not fit above the bottom margin.
func ensureSpace(p pdfWriter, h float64) bool {
	_, pageH := p.pdf.GetPageSize()
	if p.pdf.GetY()+h <= pageH-margin-10 {
		return false
	}
	p.pdf.AddPage()
	return true
}

func writeTable(p pdfWriter, doc Document) {
	cur := doc.currency()
	writeTableHeader(p)

	txs := doc.Report.Transactions
	if len(txs) == 0 {
		p.cell(0, rowHeight, "Nenhuma transação no período.", "1", 1, "C", false)
		return
	}
	for i, tx := range txs {
		if ensureSpace(p, rowHeight) {
			writeTableHeader(p)
		}
		fill := i%2 == 1
		if fill {
			p.fill(colorStripe)
		}
		values := []string{
			tx.Date.Display(),
			p.fit(tx.Description, columns[1].width),
			p.fit(tx.Category, columns[2].width),
			tx.Kind.Label(),
			cur.Number(tx.Amount),
		}
		for j, c := range columns {
			p.cell(c.width, rowHeight, values[j], "1", 0, c.align, fill)
		}
		p.pdf.Ln(-1)
	}
}

func writeSummary(p pdfWriter, doc Document) {
	cur := doc.currency()
	totals := doc.Report.Totals
	const labelW, valueW = 60.0, 45.0

	ensureSpace(p, 4*(rowHeight+1)+8)
	p.pdf.Ln(6)

	p.pdf.SetFont(fontFamily, "B", 11)
	p.fill(colorHeader)
	p.color(colorWhite)
	p.cell(labelW+valueW, rowHeight+1, "RESUMO DO PERÍODO", "1", 1, "C", true)

	p.pdf.SetFont(fontFamily, "", 10)
	p.color(colorText)
	p.cell(labelW, rowHeight+1, "Total de Receitas", "1", 0, "L", false)
	p.cell(valueW, rowHeight+1, cur.Format(totals.Income), "1", 1, "R", false)
	p.cell(labelW, rowHeight+1, "Total de Despesas", "1", 0, "L", false)
	p.cell(valueW, rowHeight+1, cur.Format(totals.Expense), "1", 1, "R", false)

	balanceColor := colorPositive
	if totals.Balance.IsNegative() {
		balanceColor = colorNegative
	}
	p.pdf.SetFont(fontFamily, "B", 11)
	p.fill(balanceColor)
	p.color(colorWhite)
	p.cell(labelW, rowHeight+1, "SALDO FINAL", "1", 0, "L", true)
	p.cell(valueW, rowHeight+1, cur.Format(totals.Balance), "1", 1, "R", true)
}

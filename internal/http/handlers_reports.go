package http

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"cashbook/internal/core"
	"cashbook/internal/log"
	"cashbook/internal/report"
)

func (s *Server) balance(b core.Balance) balanceDTO {
	return balanceDTO{Income: s.money(b.Income), Expense: s.money(b.Expense), Balance: s.money(b.Balance)}
}

func (s *Server) categoryTotals(totals []core.CategoryTotal) []categoryTotalDTO {
	out := make([]categoryTotalDTO, 0, len(totals))
	for _, t := range totals {
		out = append(out, categoryTotalDTO{Category: t.Category, Total: s.money(t.Total), Count: t.Count, Color: t.Color})
	}
	return out
}

// hasFilter reports whether the query narrows the data at all.
func hasFilter(r *http.Request) bool {
	q := r.URL.Query()
	for _, k := range []string{"start", "end", "kind", "category"} {
		if q.Get(k) != "" {
			return true
		}
	}
	return false
}

// handleBalance returns the all-time and last-30-days overview, or the balance
// of the filtered rows when the query carries a filter.
func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if hasFilter(r) {
		f, err := parseFilter(r.URL.Query())
		if err != nil {
			s.writeError(w, r, log.OpRead, err)
			return
		}
		b, err := s.agg.Balance(ctx, f)
		if err != nil {
			s.writeError(w, r, log.OpRead, err)
			return
		}
		NewJSONResponse().JSON(s.balance(b)).Write(w)
		return
	}

	o, err := s.agg.Overview(ctx)
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().JSON(map[string]balanceDTO{
		"all_time":     s.balance(o.AllTime),
		"last_30_days": s.balance(o.Last30Days),
	}).Write(w)
}

func (s *Server) handleCategoryReport(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r.URL.Query())
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	b, err := s.agg.ByCategory(r.Context(), f)
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().JSON(map[string][]categoryTotalDTO{
		"income":  s.categoryTotals(b.Income),
		"expense": s.categoryTotals(b.Expense),
	}).Write(w)
}

func (s *Server) handleMonthly(w http.ResponseWriter, r *http.Request) {
	months, err := parseMonths(r.URL.Query(), s.agg.MonthWindow())
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	totals, err := s.agg.ByMonth(r.Context(), months)
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	out := make([]monthTotalDTO, 0, len(totals))
	for _, m := range totals {
		out = append(out, monthTotalDTO{
			Month:   m.Month.String(),
			Income:  s.money(m.Income),
			Expense: s.money(m.Expense),
			Balance: s.money(m.Balance),
			Count:   m.Count,
		})
	}
	NewJSONResponse().JSON(out).Write(w)
}

func (s *Server) detailed(ctx context.Context, r *http.Request) (core.DetailedReport, error) {
	f, err := parseFilter(r.URL.Query())
	if err != nil {
		return core.DetailedReport{}, err
	}
	return s.agg.Detailed(ctx, f)
}

func (s *Server) handleDetailed(w http.ResponseWriter, r *http.Request) {
	rep, err := s.detailed(r.Context(), r)
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	type statsDTO struct {
		Count      int      `json:"count"`
		MaxIncome  moneyDTO `json:"max_income"`
		MaxExpense moneyDTO `json:"max_expense"`
	}
	NewJSONResponse().JSON(struct {
		Period       string           `json:"period"`
		Transactions []transactionDTO `json:"transactions"`
		Totals       balanceDTO       `json:"totals"`
		Stats        statsDTO         `json:"stats"`
	}{
		Period:       report.Document{Report: rep}.Period(),
		Transactions: s.transactions(r.Context(), rep.Transactions),
		Totals:       s.balance(rep.Totals),
		Stats: statsDTO{
			Count:      rep.Stats.Count,
			MaxIncome:  s.money(rep.Stats.MaxIncome),
			MaxExpense: s.money(rep.Stats.MaxExpense),
		},
	}).Write(w)
}

func (s *Server) handleRealtime(w http.ResponseWriter, r *http.Request) {
	rt, err := s.agg.Realtime(r.Context())
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	var top *categoryTotalDTO
	if rt.TopExpense != nil {
		t := s.categoryTotals([]core.CategoryTotal{*rt.TopExpense})[0]
		top = &t
	}
	NewJSONResponse().JSON(struct {
		Today       balanceDTO        `json:"today"`
		TodayCount  int               `json:"today_count"`
		Upcoming    []transactionDTO  `json:"upcoming"`
		TopExpense  *categoryTotalDTO `json:"top_expense"`
		GeneratedAt time.Time         `json:"generated_at"`
	}{
		Today:       s.balance(rt.Today),
		TodayCount:  rt.TodayCount,
		Upcoming:    s.transactions(r.Context(), rt.Upcoming),
		TopExpense:  top,
		GeneratedAt: rt.GeneratedAt,
	}).Write(w)
}

// handleExport renders the detailed report as a download. The document is
// rendered into memory first so a renderer failure still yields a JSON error.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := report.ParseFormat(r.PathValue("format"))
	if err != nil {
		s.writeError(w, r, log.OpExport, err)
		return
	}
	rep, err := s.detailed(r.Context(), r)
	if err != nil {
		s.writeError(w, r, log.OpExport, err)
		return
	}

	var buf bytes.Buffer
	doc := report.Document{Report: rep, GeneratedAt: s.now(), Currency: s.currency}
	if err := report.Render(&buf, format, doc); err != nil {
		s.writeError(w, r, log.OpExport, fmt.Errorf("render %s report: %w", format, err))
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.Filename(format, rep.Filter)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)

	s.metrics.Exported(string(format))
	log.FromContext(r.Context()).InfoContext(r.Context(), "Report exported",
		log.FieldFormat, string(format), "rows", rep.Stats.Count)
}

// Package summary computes balances and grouped totals over the ledger.
// Every result is derived from the current rows on each call.
package summary

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"cashbook/internal/core"
	"cashbook/internal/storage"
)

// DefaultMonthWindow is the number of months covered by ByMonth when unset.
const DefaultMonthWindow = 6

const (
	upcomingDays  = 7
	upcomingLimit = 5
	recentDays    = 30
)

// ColorLookup resolves a category display color.
type ColorLookup interface {
	ColorOf(ctx context.Context, name string, kind core.Kind) string
}

// Aggregator reads from the store and never writes.
type Aggregator struct {
	store  storage.Reader
	colors ColorLookup
	now    func() time.Time
	window int
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithClock sets the time source used for "today" and the current month.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// WithMonthWindow sets the default ByMonth window.
func WithMonthWindow(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.window = n
		}
	}
}

func NewAggregator(store storage.Reader, colors ColorLookup, opts ...Option) *Aggregator {
	a := &Aggregator{store: store, colors: colors, now: time.Now, window: DefaultMonthWindow}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// MonthWindow returns the configured default window.
func (a *Aggregator) MonthWindow() int {
	return a.window
}

func (a *Aggregator) today() core.Date {
	return core.DateOf(a.now())
}

// Balance sums income and expense for f. An empty filter means all time.
func (a *Aggregator) Balance(ctx context.Context, f core.Filter) (core.Balance, error) {
	if f.Empty() {
		return core.NewBalance(core.Money{}, core.Money{}), nil
	}
	var income, expense core.Money
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		income, err = a.sumKind(gctx, f, core.KindIncome)
		return err
	})
	g.Go(func() error {
		var err error
		expense, err = a.sumKind(gctx, f, core.KindExpense)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.Balance{}, err
	}
	return core.NewBalance(income, expense), nil
}

func (a *Aggregator) sumKind(ctx context.Context, f core.Filter, k core.Kind) (core.Money, error) {
	if f.Kind != "" && f.Kind != k {
		return core.Money{}, nil
	}
	m, err := a.store.Sum(ctx, f.WithKind(k))
	if err != nil {
		return core.Money{}, fmt.Errorf("sum %s: %w", k, err)
	}
	return m, nil
}

// ByCategory groups the matching rows per kind and category, largest total first.
func (a *Aggregator) ByCategory(ctx context.Context, f core.Filter) (core.CategoryBreakdown, error) {
	out := core.CategoryBreakdown{Income: []core.CategoryTotal{}, Expense: []core.CategoryTotal{}}
	if f.Empty() {
		return out, nil
	}
	rows, err := a.store.Find(ctx, f)
	if err != nil {
		return out, fmt.Errorf("find transactions: %w", err)
	}

	type groupKey struct {
		kind     core.Kind
		category string
	}
	groups := map[groupKey]*core.CategoryTotal{}
	for _, tx := range rows {
		k := groupKey{tx.Kind, tx.Category}
		g, ok := groups[k]
		if !ok {
			g = &core.CategoryTotal{Category: tx.Category}
			groups[k] = g
		}
		g.Total = g.Total.Add(tx.Amount)
		g.Count++
	}

	for k, g := range groups {
		g.Color = core.DefaultColor
		if a.colors != nil {
			g.Color = a.colors.ColorOf(ctx, k.category, k.kind)
		}
		switch k.kind {
		case core.KindIncome:
			out.Income = append(out.Income, *g)
		case core.KindExpense:
			out.Expense = append(out.Expense, *g)
		}
	}
	sortCategoryTotals(out.Income)
	sortCategoryTotals(out.Expense)
	return out, nil
}

func sortCategoryTotals(totals []core.CategoryTotal) {
	sort.Slice(totals, func(i, j int) bool {
		if totals[i].Total != totals[j].Total {
			return totals[i].Total.Cents > totals[j].Total.Cents
		}
		return totals[i].Category < totals[j].Category
	})
}

// ByMonth returns exactly window entries ending at the current month, oldest first.
func (a *Aggregator) ByMonth(ctx context.Context, window int) ([]core.MonthTotal, error) {
	if window < 1 {
		return nil, fmt.Errorf("%w: %d", core.ErrInvalidWindow, window)
	}
	current := core.MonthOf(a.today())
	first := current.AddMonths(-(window - 1))

	months := make([]core.MonthTotal, window)
	index := make(map[core.YearMonth]int, window)
	for i := range months {
		ym := first.AddMonths(i)
		months[i] = core.MonthTotal{Month: ym}
		index[ym] = i
	}

	rows, err := a.store.Find(ctx, core.Between(first.FirstDay(), current.LastDay()))
	if err != nil {
		return nil, fmt.Errorf("find transactions: %w", err)
	}
	for _, tx := range rows {
		i, ok := index[core.MonthOf(tx.Date)]
		if !ok {
			continue
		}
		m := &months[i]
		switch tx.Kind {
		case core.KindIncome:
			m.Income = m.Income.Add(tx.Amount)
		case core.KindExpense:
			m.Expense = m.Expense.Add(tx.Amount)
		}
		m.Count++
	}
	for i := range months {
		months[i].Balance = months[i].Income.Sub(months[i].Expense)
	}
	return months, nil
}

// Detailed lists the rows matching f with totals and extremes. f must carry a range;
// an inverted range yields an empty report.
func (a *Aggregator) Detailed(ctx context.Context, f core.Filter) (core.DetailedReport, error) {
	report := core.DetailedReport{Filter: f, Transactions: []core.Transaction{}, Totals: core.NewBalance(core.Money{}, core.Money{})}
	if f.Range == nil {
		return report, core.ErrRangeRequired
	}
	if f.Empty() {
		return report, nil
	}
	rows, err := a.store.Find(ctx, f)
	if err != nil {
		return report, fmt.Errorf("find transactions: %w", err)
	}

	var income, expense core.Money
	for _, tx := range rows {
		switch tx.Kind {
		case core.KindIncome:
			income = income.Add(tx.Amount)
			if tx.Amount.Cents > report.Stats.MaxIncome.Cents {
				report.Stats.MaxIncome = tx.Amount
			}
		case core.KindExpense:
			expense = expense.Add(tx.Amount)
			if tx.Amount.Cents > report.Stats.MaxExpense.Cents {
				report.Stats.MaxExpense = tx.Amount
			}
		}
	}
	if rows != nil {
		report.Transactions = rows
	}
	report.Totals = core.NewBalance(income, expense)
	report.Stats.Count = len(rows)
	return report, nil
}

// Overview returns the all-time balance and the balance of the trailing 30 days.
func (a *Aggregator) Overview(ctx context.Context) (core.Overview, error) {
	var out core.Overview
	since := a.today().AddDays(-recentDays)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		out.AllTime, err = a.Balance(gctx, core.All())
		return err
	})
	g.Go(func() error {
		var err error
		out.Last30Days, err = a.Balance(gctx, core.All().WithSince(since))
		return err
	})
	if err := g.Wait(); err != nil {
		return core.Overview{}, err
	}
	return out, nil
}

// Realtime reports today's movement, expenses due within a week and the
// largest expense category of the current month.
func (a *Aggregator) Realtime(ctx context.Context) (core.Realtime, error) {
	now := a.now()
	today := core.DateOf(now)
	month := core.MonthOf(today)
	out := core.Realtime{GeneratedAt: now, Upcoming: []core.Transaction{}}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := a.store.Find(gctx, core.Between(today, today))
		if err != nil {
			return fmt.Errorf("find today: %w", err)
		}
		var income, expense core.Money
		for _, tx := range rows {
			if tx.Kind == core.KindIncome {
				income = income.Add(tx.Amount)
			} else {
				expense = expense.Add(tx.Amount)
			}
		}
		out.Today = core.NewBalance(income, expense)
		out.TodayCount = len(rows)
		return nil
	})
	g.Go(func() error {
		f := core.Between(today.AddDays(1), today.AddDays(upcomingDays)).WithKind(core.KindExpense)
		rows, err := a.store.Find(gctx, f)
		if err != nil {
			return fmt.Errorf("find upcoming: %w", err)
		}
		if len(rows) > upcomingLimit {
			rows = rows[:upcomingLimit]
		}
		out.Upcoming = append(out.Upcoming, rows...)
		return nil
	})
	g.Go(func() error {
		f := core.Between(month.FirstDay(), month.LastDay()).WithKind(core.KindExpense)
		breakdown, err := a.ByCategory(gctx, f)
		if err != nil {
			return err
		}
		if len(breakdown.Expense) > 0 {
			top := breakdown.Expense[0]
			out.TopExpense = &top
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return core.Realtime{}, err
	}
	return out, nil
}

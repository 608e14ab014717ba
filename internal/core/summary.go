package core

import (
	"fmt"
	"time"
)

// Balance is the income/expense split of a filtered transaction set.
type Balance struct {
	Income  Money
	Expense Money
	Balance Money
}

// NewBalance derives the balance field from the two totals.
func NewBalance(income, expense Money) Balance {
	return Balance{Income: income, Expense: expense, Balance: income.Sub(expense)}
}

// CategoryTotal represents an amount aggregated by category name.
type CategoryTotal struct {
	Category string
	Total    Money
	Count    int
	Color    string
}

// CategoryBreakdown holds per-kind category totals.
type CategoryBreakdown struct {
	Income  []CategoryTotal
	Expense []CategoryTotal
}

// Of returns the totals for kind k.
func (b CategoryBreakdown) Of(k Kind) []CategoryTotal {
	if k == KindIncome {
		return b.Income
	}
	return b.Expense
}

// YearMonth identifies a calendar month.
type YearMonth struct {
	Year  int
	Month time.Month
}

// MonthOf returns the calendar month d falls in.
func MonthOf(d Date) YearMonth {
	return YearMonth{Year: d.Year(), Month: d.Month()}
}

// String renders "2024-01".
func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}

// AddMonths moves ym by n months.
func (ym YearMonth) AddMonths(n int) YearMonth {
	t := time.Date(ym.Year, ym.Month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, n, 0)
	return YearMonth{Year: t.Year(), Month: t.Month()}
}

// FirstDay returns the first date of the month.
func (ym YearMonth) FirstDay() Date {
	return NewDate(ym.Year, int(ym.Month), 1)
}

// LastDay returns the last date of the month.
func (ym YearMonth) LastDay() Date {
	return ym.AddMonths(1).FirstDay().AddDays(-1)
}

// MonthTotal is a compact summary for a specific year+month.
type MonthTotal struct {
	Month   YearMonth
	Income  Money
	Expense Money
	Balance Money
	Count   int
}

// DetailedStats carries simple extremes of a detailed report.
type DetailedStats struct {
	Count      int
	MaxIncome  Money
	MaxExpense Money
}

// DetailedReport is the input of every renderer.
type DetailedReport struct {
	Filter       Filter
	Transactions []Transaction
	Totals       Balance
	Stats        DetailedStats
}

// Overview pairs the all-time balance with the trailing 30 days.
type Overview struct {
	AllTime    Balance
	Last30Days Balance
}

// Realtime summarises the current day and the near future.
type Realtime struct {
	Today       Balance
	TodayCount  int
	Upcoming    []Transaction
	TopExpense  *CategoryTotal
	GeneratedAt time.Time
}

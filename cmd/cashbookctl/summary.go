package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"cashbook/internal/core"
)

func summaryCmd() *cobra.Command {
	var ff filterFlags
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print balances and the category breakdown",
		Long: `Without flags, print the all-time and last-30-days balances followed by the
all-time category breakdown. Date, kind and category flags narrow the breakdown.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := ff.filter()
			if err != nil {
				return err
			}
			ctx, s, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()

			overview, err := s.agg.Overview(ctx)
			if err != nil {
				return err
			}
			breakdown, err := s.agg.ByCategory(ctx, f)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			renderOverview(out, cfg.Currency(), overview)
			renderBreakdown(out, cfg.Currency(), breakdown)
			return nil
		},
	}
	cmd.Flags().StringVar(&ff.start, "start", "", "First day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&ff.end, "end", "", "Last day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&ff.kind, "kind", "", "Only income or expense")
	cmd.Flags().StringVar(&ff.category, "category", "", "Only this category (exact match)")
	return cmd
}

func monthlyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "monthly",
		Short: "Print income, expense and balance per month",
		RunE: func(cmd *cobra.Command, _ []string) error {
			months, _ := cmd.Flags().GetInt("months")
			ctx, s, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()

			if months == 0 {
				months = s.agg.MonthWindow()
			}
			totals, err := s.agg.ByMonth(ctx, months)
			if err != nil {
				return err
			}
			renderMonthly(cmd.OutOrStdout(), cfg.Currency(), totals)
			return nil
		},
	}
	cmd.Flags().Int("months", 0, "Number of months ending with the current one (default REPORT_MONTH_WINDOW)")
	return cmd
}

func renderOverview(w io.Writer, c core.CurrencyFormat, o core.Overview) {
	row := func(label string, b core.Balance) string {
		return fmt.Sprintf("%-16s %s  %s  %s", label,
			signed(c, b.Income, core.KindIncome),
			signed(c, b.Expense, core.KindExpense),
			balanceStyle(c, b.Balance))
	}
	fmt.Fprintln(w, boxStyle.Render(strings.Join([]string{
		headerStyle.Render("Balance"),
		row("All time", o.AllTime),
		row("Last 30 days", o.Last30Days),
	}, "\n")))
}

func renderBreakdown(w io.Writer, c core.CurrencyFormat, b core.CategoryBreakdown) {
	section := func(title string, kind core.Kind, totals []core.CategoryTotal) {
		fmt.Fprintln(w, headerStyle.Render(title))
		if len(totals) == 0 {
			fmt.Fprintln(w, mutedStyle.Render("  (none)"))
			return
		}
		for _, t := range totals {
			swatch := lipgloss.NewStyle().Foreground(lipgloss.Color(t.Color)).Render("●")
			fmt.Fprintf(w, "  %s %-20s %4d  %s\n", swatch, t.Category, t.Count, signed(c, t.Total, kind))
		}
	}
	section("Income by category", core.KindIncome, b.Income)
	section("Expense by category", core.KindExpense, b.Expense)
}

func renderMonthly(w io.Writer, c core.CurrencyFormat, months []core.MonthTotal) {
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%-8s %6s  %-16s %-16s %s", "Month", "Count", "Income", "Expense", "Balance")))
	for _, m := range months {
		fmt.Fprintf(w, "%-8s %6d  %-16s %-16s %s\n", m.Month, m.Count,
			c.Format(m.Income), c.Format(m.Expense), balanceStyle(c, m.Balance))
	}
}

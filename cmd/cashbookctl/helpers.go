package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"cashbook/internal/auth"
	"cashbook/internal/backend"
	"cashbook/internal/categories"
	"cashbook/internal/core"
	"cashbook/internal/ledger"
	"cashbook/internal/summary"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	incomeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#28a745"))
	expenseStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#dc3545"))
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// session bundles what a command needs to work on the ledger.
type session struct {
	backend  *backend.Backend
	service  *ledger.Service
	registry *categories.Registry
	agg      *summary.Aggregator
	cleanup  backend.CleanupFunc
}

// openSession builds the configured backend. Commands act as the "cli" actor.
func openSession(ctx context.Context) (context.Context, *session, error) {
	result, err := backend.NewFactory(logger).CreateBackend(ctx, backend.FromAppConfig(cfg))
	if err != nil {
		return ctx, nil, fmt.Errorf("failed to open backend: %w", err)
	}
	registry := categories.NewRegistry(result.Backend.Store, cfg.CategoryCacheTTL)
	s := &session{
		backend:  result.Backend,
		service:  result.Backend.Service(nil),
		registry: registry,
		agg:      summary.NewAggregator(result.Backend.Store, registry, summary.WithMonthWindow(cfg.ReportMonthWindow)),
		cleanup:  result.Cleanup,
	}
	return auth.WithIdentity(ctx, auth.Identity{Username: "cli"}), s, nil
}

func (s *session) close() {
	if err := s.cleanup(); err != nil {
		logger.Warn("Backend cleanup error", "error", err)
	}
}

// signed renders m colored by kind.
func signed(c core.CurrencyFormat, m core.Money, kind core.Kind) string {
	if kind == core.KindExpense {
		return expenseStyle.Render("-" + c.Format(m))
	}
	return incomeStyle.Render(c.Format(m))
}

// balanceStyle colors a balance by its sign.
func balanceStyle(c core.CurrencyFormat, m core.Money) string {
	if m.IsNegative() {
		return expenseStyle.Render(c.Format(m))
	}
	return incomeStyle.Render(c.Format(m))
}

// filterFlags reads the shared --start, --end, --kind and --category flags.
type filterFlags struct {
	start, end, kind, category string
}

func (f filterFlags) filter() (core.Filter, error) {
	out := core.All()
	var start, end *core.Date
	for _, p := range []struct {
		name, raw string
		dst       **core.Date
	}{{"start", f.start, &start}, {"end", f.end, &end}} {
		if p.raw == "" {
			continue
		}
		d, err := core.ParseDate(p.raw)
		if err != nil {
			return core.Filter{}, fmt.Errorf("invalid --%s %q: %w", p.name, p.raw, err)
		}
		*p.dst = &d
	}
	switch {
	case start != nil && end != nil:
		out = core.Between(*start, *end)
	case start != nil:
		out = out.WithSince(*start)
	case end != nil:
		out = out.WithUntil(*end)
	}
	if f.kind != "" {
		k, err := core.ParseKind(f.kind)
		if err != nil {
			return core.Filter{}, fmt.Errorf("invalid --kind %q: %w", f.kind, err)
		}
		out = out.WithKind(k)
	}
	if f.category != "" {
		out = out.WithCategory(f.category)
	}
	return out, nil
}

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"cashbook/internal/core"
)

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert sample transactions for the current and previous month",
		RunE:  runSeed,
	}
	cmd.Flags().Int("months", 3, "Number of months to fill, ending with the current one")
	return cmd
}

// sampleMonth lists a typical month of activity, keyed by day of month.
var sampleMonth = []struct {
	day         int
	description string
	cents       int64
	kind        core.Kind
	category    string
	method      string
}{
	{5, "Salário", 650000, core.KindIncome, "Salário", "transferência"},
	{6, "Aluguel", 180000, core.KindExpense, "Moradia", "pix"},
	{8, "Supermercado", 74250, core.KindExpense, "Alimentação", "débito"},
	{12, "Projeto freelance", 120000, core.KindIncome, "Freelance", "pix"},
	{15, "Plano de saúde", 42990, core.KindExpense, "Saúde", "boleto"},
	{18, "Combustível", 25000, core.KindExpense, "Transporte", "crédito"},
	{22, "Cinema", 8400, core.KindExpense, "Lazer", "crédito"},
	{27, "Curso online", 19900, core.KindExpense, "Educação", "crédito"},
}

func runSeed(cmd *cobra.Command, _ []string) error {
	months, _ := cmd.Flags().GetInt("months")
	if months < 1 {
		return fmt.Errorf("--months must be at least 1")
	}

	ctx, s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.close()

	current := core.MonthOf(core.DateOf(time.Now()))
	created := 0
	for i := months - 1; i >= 0; i-- {
		ym := current.AddMonths(-i)
		for _, row := range sampleMonth {
			tx := core.Transaction{
				Date:          core.NewDate(ym.Year, int(ym.Month), row.day),
				Description:   row.description,
				Amount:        core.Money{Cents: row.cents},
				Kind:          row.kind,
				Category:      row.category,
				PaymentMethod: row.method,
				Notes:         "sample",
			}
			if _, err := s.service.Create(ctx, tx, nil); err != nil {
				return fmt.Errorf("seed %s %s: %w", tx.Date, tx.Description, err)
			}
			created++
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created %d sample transactions over %d months\n", created, months)
	return nil
}

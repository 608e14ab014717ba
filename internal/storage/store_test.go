package storage

import (
	"context"
	"path/filepath"
	"testing"

	"cashbook/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample(date core.Date, desc string, cents int64, kind core.Kind, category string) core.Transaction {
	return core.Transaction{Date: date, Description: desc, Amount: core.Money{Cents: cents}, Kind: kind, Category: category}
}

func stores(t *testing.T) map[string]Store {
	t.Helper()
	sqliteStore, err := NewSQLite(filepath.Join(t.TempDir(), "data", "cashbook.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqliteStore.Close() })

	return map[string]Store{
		"sqlite": sqliteStore,
		"memory": NewMemoryStore(),
	}
}

func TestStoreContract(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			jan5 := core.NewDate(2024, 1, 5)
			jan10 := core.NewDate(2024, 1, 10)
			jan12 := core.NewDate(2024, 1, 12)

			rent := sample(jan10, "Aluguel", 150000, core.KindExpense, "Moradia")
			rent.Notes = "janeiro"
			ids := make([]int64, 0, 3)
			for _, tx := range []core.Transaction{
				sample(jan12, "Supermercado", 45000, core.KindExpense, "Alimentação"),
				sample(jan5, "Salário Mensal", 500000, core.KindIncome, "Salário"),
				rent,
			} {
				id, err := store.Insert(ctx, tx)
				require.NoError(t, err)
				ids = append(ids, id)
			}

			all, err := store.Find(ctx, core.All())
			require.NoError(t, err)
			require.Len(t, all, 3)
			assert.Equal(t, "2024-01-05", all[0].Date.String(), "ordered by date")
			assert.Equal(t, "2024-01-12", all[2].Date.String())
			assert.False(t, all[0].CreatedAt.IsZero())

			expenses, err := store.Sum(ctx, core.Between(core.NewDate(2024, 1, 1), core.NewDate(2024, 1, 31)).WithKind(core.KindExpense))
			require.NoError(t, err)
			assert.Equal(t, int64(195000), expenses.Cents)

			none, err := store.Sum(ctx, core.Between(jan12, jan5))
			require.NoError(t, err)
			assert.Zero(t, none.Cents, "inverted range sums to zero")

			byCategory, err := store.Find(ctx, core.All().WithCategory("Moradia"))
			require.NoError(t, err)
			require.Len(t, byCategory, 1)
			assert.Equal(t, "janeiro", byCategory[0].Notes)

			found, err := store.Exists(ctx, rent.Key())
			require.NoError(t, err)
			assert.True(t, found)

			other := rent
			other.Amount = core.Money{Cents: 1}
			found, err = store.Exists(ctx, other.Key())
			require.NoError(t, err)
			assert.False(t, found)

			got, err := store.Get(ctx, ids[2])
			require.NoError(t, err)
			created := got.CreatedAt
			got.Description = "Aluguel reajustado"
			got.Amount = core.Money{Cents: 160000}
			require.NoError(t, store.Replace(ctx, got))
			got, err = store.Get(ctx, ids[2])
			require.NoError(t, err)
			assert.Equal(t, "Aluguel reajustado", got.Description)
			assert.True(t, created.Equal(got.CreatedAt), "created_at is immutable")

			require.NoError(t, store.Delete(ctx, ids[2]))
			assert.ErrorIs(t, store.Delete(ctx, ids[2]), core.ErrNotFound)
			_, err = store.Get(ctx, ids[2])
			assert.ErrorIs(t, err, core.ErrNotFound)
			assert.ErrorIs(t, store.Replace(ctx, got), core.ErrNotFound)
		})
	}
}

func TestCategoriesSeeded(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			cats, err := store.Categories(context.Background())
			require.NoError(t, err)
			assert.ElementsMatch(t, core.DefaultCategories(), cats)
		})
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cashbook.db")
	store, err := NewSQLite(path)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	require.NoError(t, RunMigrations(DialectSQLite, path))
	version, dirty, err := MigrationVersion(DialectSQLite, path)
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(2), version)
}

func TestWhereClause(t *testing.T) {
	f := core.Between(core.NewDate(2024, 1, 1), core.NewDate(2024, 1, 31)).
		WithKind(core.KindIncome).
		WithCategory("Vendas'; DROP TABLE transactions; --")
	where, args := whereClause(f)
	assert.Equal(t, " WHERE date >= ? AND date <= ? AND kind = ? AND category = ?", where)
	assert.Equal(t, []any{"2024-01-01", "2024-01-31", "income", "Vendas'; DROP TABLE transactions; --"}, args)

	where, args = whereClause(core.All())
	assert.Empty(t, where)
	assert.Nil(t, args)
}

func TestRebind(t *testing.T) {
	pg := &SQLStore{dialect: DialectPostgres}
	assert.Equal(t, "SELECT 1 WHERE a = $1 AND b = $2", pg.rebind("SELECT 1 WHERE a = ? AND b = ?"))

	lite := &SQLStore{dialect: DialectSQLite}
	assert.Equal(t, "SELECT 1 WHERE a = ?", lite.rebind("SELECT 1 WHERE a = ?"))
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"cashbook/internal/core"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect names a supported SQL engine.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

func (d Dialect) driverName() string {
	return string(d)
}

const transactionColumns = "id, description, amount_cents, kind, category, date, payment_method, attachment_ref, notes, created_at"

// SQLStore implements Store on top of database/sql for SQLite and PostgreSQL.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

// NewSQLite opens (creating if needed) the SQLite database at dbPath and migrates it.
func NewSQLite(dbPath string) (*SQLStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	store, err := open(DialectSQLite, dbPath)
	if err != nil {
		return nil, err
	}
	// SQLite allows a single writer; one connection avoids SQLITE_BUSY between requests.
	store.db.SetMaxOpenConns(1)
	return store, nil
}

// NewPostgres connects to the PostgreSQL database at dsn and migrates it.
func NewPostgres(dsn string) (*SQLStore, error) {
	return open(DialectPostgres, dsn)
}

func open(dialect Dialect, dsn string) (*SQLStore, error) {
	db, err := sql.Open(dialect.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialect, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dialect, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLStore{db: db, dialect: dialect, now: time.Now}, nil
}

func (s *SQLStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) Find(ctx context.Context, f core.Filter) ([]core.Transaction, error) {
	where, args := whereClause(f)
	query := "SELECT " + transactionColumns + " FROM transactions" + where + " ORDER BY date, id"
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

func (s *SQLStore) Sum(ctx context.Context, f core.Filter) (core.Money, error) {
	where, args := whereClause(f)
	query := "SELECT COALESCE(SUM(amount_cents), 0) FROM transactions" + where
	var cents int64
	if err := s.db.QueryRowContext(ctx, s.rebind(query), args...).Scan(&cents); err != nil {
		return core.Money{}, fmt.Errorf("sum transactions: %w", err)
	}
	return core.Money{Cents: cents}, nil
}

func (s *SQLStore) Get(ctx context.Context, id int64) (core.Transaction, error) {
	query := "SELECT " + transactionColumns + " FROM transactions WHERE id = ?"
	tx, err := scanTransaction(s.db.QueryRowContext(ctx, s.rebind(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	return tx, err
}

func (s *SQLStore) Insert(ctx context.Context, tx core.Transaction) (int64, error) {
	createdAt := s.now().UTC()
	query := `INSERT INTO transactions
		(description, amount_cents, kind, category, date, payment_method, attachment_ref, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`
	var id int64
	err := s.db.QueryRowContext(ctx, s.rebind(query),
		tx.Description, tx.Amount.Cents, string(tx.Kind), tx.Category, tx.Date.String(),
		tx.PaymentMethod, tx.AttachmentRef, tx.Notes, createdAt.Format(time.RFC3339Nano),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", id,
		"description", tx.Description,
		"amount_cents", tx.Amount.Cents,
		"kind", tx.Kind,
		"date", tx.Date.String(),
		"dialect", s.dialect)

	return id, nil
}

// Replace overwrites every mutable column of the row with tx.ID. CreatedAt is kept.
func (s *SQLStore) Replace(ctx context.Context, tx core.Transaction) error {
	query := `UPDATE transactions SET
		description = ?, amount_cents = ?, kind = ?, category = ?, date = ?,
		payment_method = ?, attachment_ref = ?, notes = ?
		WHERE id = ?`
	res, err := s.db.ExecContext(ctx, s.rebind(query),
		tx.Description, tx.Amount.Cents, string(tx.Kind), tx.Category, tx.Date.String(),
		tx.PaymentMethod, tx.AttachmentRef, tx.Notes, tx.ID)
	if err != nil {
		return fmt.Errorf("replace transaction %d: %w", tx.ID, err)
	}
	return requireAffected(res)
}

func (s *SQLStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM transactions WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	return requireAffected(res)
}

func (s *SQLStore) Exists(ctx context.Context, key core.DedupKey) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM transactions
		WHERE date = ? AND description = ? AND amount_cents = ? AND kind = ?)`
	var found bool
	err := s.db.QueryRowContext(ctx, s.rebind(query),
		key.Date.String(), key.Description, key.Amount.Cents, string(key.Kind)).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("check duplicate: %w", err)
	}
	return found, nil
}

func (s *SQLStore) Categories(ctx context.Context) ([]core.Category, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name, kind, color FROM categories ORDER BY kind, name")
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		var kind string
		if err := rows.Scan(&c.Name, &kind, &c.Color); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.Kind = core.Kind(kind)
		out = append(out, c)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(r rowScanner) (core.Transaction, error) {
	var (
		tx        core.Transaction
		kind      string
		date      string
		createdAt string
	)
	err := r.Scan(&tx.ID, &tx.Description, &tx.Amount.Cents, &kind, &tx.Category, &date,
		&tx.PaymentMethod, &tx.AttachmentRef, &tx.Notes, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return tx, err
		}
		return tx, fmt.Errorf("scan transaction: %w", err)
	}
	tx.Kind = core.Kind(kind)
	d, err := time.Parse(core.DateLayout, date)
	if err != nil {
		return tx, fmt.Errorf("transaction %d has malformed date %q: %w", tx.ID, date, err)
	}
	tx.Date = core.Date{Time: d}
	if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		tx.CreatedAt = ts
	}
	return tx, nil
}

// whereClause turns f into a parameterized WHERE fragment. Values only travel as arguments.
func whereClause(f core.Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.Range != nil {
		conds = append(conds, "date >= ?", "date <= ?")
		args = append(args, f.Range.Start.String(), f.Range.End.String())
	}
	if f.Since != nil {
		conds = append(conds, "date >= ?")
		args = append(args, f.Since.String())
	}
	if f.Until != nil {
		conds = append(conds, "date <= ?")
		args = append(args, f.Until.String())
	}
	if f.Kind != "" {
		conds = append(conds, "kind = ?")
		args = append(args, string(f.Kind))
	}
	if f.Category != "" {
		conds = append(conds, "category = ?")
		args = append(args, f.Category)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// rebind rewrites ? placeholders into $n for PostgreSQL.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

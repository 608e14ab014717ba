package storage

import (
	"context"

	"cashbook/internal/core"
)

// Reader queries transactions by a composable filter.
type Reader interface {
	Find(ctx context.Context, f core.Filter) ([]core.Transaction, error)
	Sum(ctx context.Context, f core.Filter) (core.Money, error)
	Get(ctx context.Context, id int64) (core.Transaction, error)
}

// Writer mutates transactions. Replace and Delete return core.ErrNotFound for unknown ids.
type Writer interface {
	Insert(ctx context.Context, tx core.Transaction) (int64, error)
	Replace(ctx context.Context, tx core.Transaction) error
	Delete(ctx context.Context, id int64) error
}

// Deduper probes for an existing transaction with the same dedup tuple.
type Deduper interface {
	Exists(ctx context.Context, key core.DedupKey) (bool, error)
}

// CategoryReader lists the seeded categories.
type CategoryReader interface {
	Categories(ctx context.Context) ([]core.Category, error)
}

// Store is the full ledger contract implemented by every engine.
type Store interface {
	Reader
	Writer
	Deduper
	CategoryReader
	Ping(ctx context.Context) error
	Close() error
}

var (
	_ Store = (*SQLStore)(nil)
	_ Store = (*MemoryStore)(nil)
)

package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"cashbook/internal/core"
)

// MemoryStore keeps transactions in process memory. It backs the "memory"
// data backend and the package tests of every store consumer.
type MemoryStore struct {
	mu         sync.RWMutex
	nextID     int64
	rows       []core.Transaction
	categories []core.Category
	now        func() time.Time
}

// NewMemoryStore returns an empty store seeded with the default categories.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID:     1,
		categories: core.DefaultCategories(),
		now:        time.Now,
	}
}

// WithClock overrides the creation timestamp source.
func (m *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	m.now = now
	return m
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) Find(ctx context.Context, f core.Filter) ([]core.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []core.Transaction
	for _, tx := range m.rows {
		if f.Match(tx) {
			out = append(out, tx)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.Before(out[j].Date.Time)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemoryStore) Sum(ctx context.Context, f core.Filter) (core.Money, error) {
	if err := ctx.Err(); err != nil {
		return core.Money{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var total core.Money
	for _, tx := range m.rows {
		if f.Match(tx) {
			total = total.Add(tx.Amount)
		}
	}
	return total, nil
}

func (m *MemoryStore) Get(_ context.Context, id int64) (core.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if i := m.index(id); i >= 0 {
		return m.rows[i], nil
	}
	return core.Transaction{}, core.ErrNotFound
}

func (m *MemoryStore) Insert(ctx context.Context, tx core.Transaction) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	tx.ID = m.nextID
	tx.CreatedAt = m.now().UTC()
	m.nextID++
	m.rows = append(m.rows, tx)
	return tx.ID, nil
}

func (m *MemoryStore) Replace(_ context.Context, tx core.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.index(tx.ID)
	if i < 0 {
		return core.ErrNotFound
	}
	tx.CreatedAt = m.rows[i].CreatedAt
	m.rows[i] = tx
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.index(id)
	if i < 0 {
		return core.ErrNotFound
	}
	m.rows = append(m.rows[:i], m.rows[i+1:]...)
	return nil
}

func (m *MemoryStore) Exists(_ context.Context, key core.DedupKey) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, tx := range m.rows {
		if tx.Key().Equal(key) {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryStore) Categories(context.Context) ([]core.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]core.Category, len(m.categories))
	copy(out, m.categories)
	return out, nil
}

func (m *MemoryStore) index(id int64) int {
	for i, tx := range m.rows {
		if tx.ID == id {
			return i
		}
	}
	return -1
}

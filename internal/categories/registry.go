// Package categories resolves display data for the seeded (name, kind) categories.
package categories

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cashbook/internal/cache"
	"cashbook/internal/core"
	"cashbook/internal/storage"
)

const allKey = "all"

// Registry is a read-through view over the store's categories.
type Registry struct {
	store storage.CategoryReader
	cache *cache.LRUCache[map[string]core.Category]
}

// NewRegistry caches the category table for ttl. Categories are read-only after
// initialization, so a long ttl is safe.
func NewRegistry(store storage.CategoryReader, ttl time.Duration) *Registry {
	return &Registry{
		store: store,
		cache: cache.NewLRUCache[map[string]core.Category](1, ttl),
	}
}

// Cache exposes the underlying cache for periodic cleanup.
func (r *Registry) Cache() cache.Cleaner {
	return r.cache
}

func key(name string, kind core.Kind) string {
	return string(kind) + "\x00" + name
}

func (r *Registry) index(ctx context.Context) (map[string]core.Category, error) {
	return r.cache.GetOrLoad(allKey, func() (map[string]core.Category, error) {
		cats, err := r.store.Categories(ctx)
		if err != nil {
			return nil, fmt.Errorf("load categories: %w", err)
		}
		idx := make(map[string]core.Category, len(cats))
		for _, c := range cats {
			idx[key(c.Name, c.Kind)] = c
		}
		return idx, nil
	})
}

// ColorOf returns the registered color of (name, kind) or core.DefaultColor.
// A store failure degrades to the default color; colors are display hints only.
func (r *Registry) ColorOf(ctx context.Context, name string, kind core.Kind) string {
	idx, err := r.index(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Category lookup failed, using default color", "error", err, "category", name)
		return core.DefaultColor
	}
	if c, ok := idx[key(name, kind)]; ok && c.Color != "" {
		return c.Color
	}
	return core.DefaultColor
}

// ByKind lists the categories grouped by kind, in store order.
func (r *Registry) ByKind(ctx context.Context) (map[core.Kind][]core.Category, error) {
	cats, err := r.store.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := map[core.Kind][]core.Category{core.KindIncome: {}, core.KindExpense: {}}
	for _, c := range cats {
		out[c.Kind] = append(out[c.Kind], c)
	}
	return out, nil
}

// Package extract suggests a monetary amount read from a receipt attachment.
package extract

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"cashbook/internal/core"
)

// ErrUnavailable is returned when no extraction provider is configured.
var ErrUnavailable = errors.New("amount extraction unavailable")

// ErrNoAmount is returned when the provider found no value in the document.
var ErrNoAmount = errors.New("no amount found in attachment")

// Extractor reads the total amount from an image or PDF.
type Extractor interface {
	ExtractAmount(ctx context.Context, data []byte, mimeType string) (core.Money, error)
}

// Unavailable is the extractor used when none is configured.
type Unavailable struct{}

func (Unavailable) ExtractAmount(context.Context, []byte, string) (core.Money, error) {
	return core.Money{}, ErrUnavailable
}

// Cached memoizes successful extractions by content hash.
type Cached struct {
	next  Extractor
	cache *gocache.Cache
}

func NewCached(next Extractor, ttl time.Duration) *Cached {
	return &Cached{next: next, cache: gocache.New(ttl, 2*ttl)}
}

func (c *Cached) ExtractAmount(ctx context.Context, data []byte, mimeType string) (core.Money, error) {
	sum := sha256.Sum256(data)
	key := mimeType + ":" + hex.EncodeToString(sum[:])
	if v, ok := c.cache.Get(key); ok {
		return v.(core.Money), nil
	}
	m, err := c.next.ExtractAmount(ctx, data, mimeType)
	if err != nil {
		return m, err
	}
	c.cache.SetDefault(key, m)
	return m, nil
}

// Len reports the number of cached results.
func (c *Cached) Len() int {
	return c.cache.ItemCount()
}

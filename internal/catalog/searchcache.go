package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/ablbsk/bookworm-api/internal/domain"
	"github.com/ablbsk/bookworm-api/internal/normalize"
)

const searchPrefix = "search:"

// SearchCache keeps recent catalog search pages in Badger. Entries expire
// through Badger's native TTL, so nothing needs to prune them.
type SearchCache struct {
	db     *badger.DB
	ttl    time.Duration
	logger *slog.Logger
}

// OpenSearchCache opens the cache under dir. An empty dir keeps it in memory.
func OpenSearchCache(dir string, ttl time.Duration, logger *slog.Logger) (*SearchCache, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil // Disable Badger's internal logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open search cache: %w", err)
	}

	logger.Info("catalog search cache opened", "path", dir, "ttl", ttl)
	return &SearchCache{db: db, ttl: ttl, logger: logger}, nil
}

// Close closes the underlying Badger database.
func (c *SearchCache) Close() error {
	return c.db.Close()
}

// Get returns a cached page, if one is live.
func (c *SearchCache) Get(query string, page int) (*domain.CatalogSearchPage, bool) {
	var result domain.CatalogSearchPage
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(searchKey(query, page))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &result)
		})
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			c.logger.Warn("search cache read failed", "query", query, "error", err)
		}
		return nil, false
	}
	return &result, true
}

// Put stores a page for the cache TTL.
func (c *SearchCache) Put(query string, page int, result *domain.CatalogSearchPage) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal search page: %w", err)
	}
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(searchKey(query, page), data).WithTTL(c.ttl))
	})
}

// CollectGarbage reclaims value log space left by expired entries.
func (c *SearchCache) CollectGarbage() error {
	for {
		err := c.db.RunValueLogGC(0.5)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrGCInMemoryMode) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// searchKey folds case and whitespace so equivalent queries share an entry.
func searchKey(query string, page int) []byte {
	return []byte(searchPrefix + strconv.Itoa(page) + ":" + strings.ToLower(normalize.Text(query)))
}

type cachedCatalog struct {
	Catalog
	cache *SearchCache
}

// WithSearchCache wraps inner so searches are served from cache when fresh.
// Fetch always reaches inner.
func WithSearchCache(inner Catalog, cache *SearchCache) Catalog {
	if cache == nil {
		return inner
	}
	return &cachedCatalog{Catalog: inner, cache: cache}
}

func (c *cachedCatalog) Search(ctx context.Context, query string, page int) (*domain.CatalogSearchPage, error) {
	if cached, ok := c.cache.Get(query, page); ok {
		cached.Query = query
		return cached, nil
	}

	result, err := c.Catalog.Search(ctx, query, page)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Put(query, page, result); err != nil {
		c.cache.logger.Warn("search cache write failed", "query", query, "error", err)
	}
	return result, nil
}

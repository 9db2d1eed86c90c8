package providers

import (
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/ablbsk/bookworm-api/internal/catalog"
	"github.com/ablbsk/bookworm-api/internal/catalog/goodreads"
	"github.com/ablbsk/bookworm-api/internal/config"
)

// SearchCacheHandle wraps the catalog search cache. Cache is nil when the
// cache is disabled.
type SearchCacheHandle struct {
	Cache *catalog.SearchCache
}

// Shutdown implements do.Shutdownable.
func (h *SearchCacheHandle) Shutdown() error {
	if h.Cache == nil {
		return nil
	}
	return h.Cache.Close()
}

// ProvideSearchCache opens the Badger-backed catalog search cache.
func ProvideSearchCache(i do.Injector) (*SearchCacheHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*LoggerHandle](i)

	if cfg.Catalog.SearchCacheTTL <= 0 {
		log.Info("catalog search cache disabled")
		return &SearchCacheHandle{}, nil
	}

	dir := filepath.Join(cfg.Data.Path, "catalog-cache")
	cache, err := catalog.OpenSearchCache(dir, cfg.Catalog.SearchCacheTTL, log.Logger.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("catalog search cache initialized", "path", dir, "ttl", cfg.Catalog.SearchCacheTTL)
	return &SearchCacheHandle{Cache: cache}, nil
}

// CatalogHandle wraps the Goodreads client and the catalog view handed to services.
type CatalogHandle struct {
	catalog.Catalog
	client *goodreads.Client
}

// Shutdown implements do.Shutdownable.
func (h *CatalogHandle) Shutdown() error {
	h.client.Close()
	return nil
}

// ProvideCatalog provides the rate-limited Goodreads client, fronted by the
// search cache when one is configured.
func ProvideCatalog(i do.Injector) (*CatalogHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*LoggerHandle](i)
	cacheHandle := do.MustInvoke[*SearchCacheHandle](i)

	client, err := goodreads.New(goodreads.Config{
		BaseURL:  cfg.Catalog.BaseURL,
		APIKey:   cfg.Catalog.APIKey,
		PageSize: cfg.Catalog.PageSize,
		RPS:      cfg.Catalog.RPS,
		Burst:    cfg.Catalog.Burst,
		Timeout:  cfg.Catalog.Timeout,
	}, log.Logger.Logger)
	if err != nil {
		return nil, err
	}

	if cfg.Catalog.APIKey == "" {
		log.Warn("catalog API key not set, catalog requests may be rejected")
	}

	var cat catalog.Catalog = client
	if cacheHandle.Cache != nil {
		cat = catalog.WithSearchCache(client, cacheHandle.Cache)
	}

	log.Info("catalog client initialized",
		"base_url", cfg.Catalog.BaseURL,
		"rps", cfg.Catalog.RPS,
		"burst", cfg.Catalog.Burst,
	)

	return &CatalogHandle{Catalog: cat, client: client}, nil
}

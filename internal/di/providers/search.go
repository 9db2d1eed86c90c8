package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/ablbsk/bookworm-api/internal/config"
	"github.com/ablbsk/bookworm-api/internal/search"
	"github.com/ablbsk/bookworm-api/internal/service"
)

// SearchIndexHandle wraps the search index with shutdown capability.
type SearchIndexHandle struct {
	*search.BookIndex
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	return h.Close()
}

// ProvideSearchIndex provides the Bleve search index.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*LoggerHandle](i)

	index, err := search.Open(search.Options{
		DataPath: cfg.Data.Path,
		Logger:   log.Logger.Logger,
	})
	if err != nil {
		return nil, err
	}

	docCount, _ := index.DocumentCount()
	log.Info("search index initialized", "documents", docCount)

	return &SearchIndexHandle{BookIndex: index}, nil
}

// ProvideSearchService provides the search service and wires the store to
// keep the index current.
func ProvideSearchService(i do.Injector) (*service.SearchService, error) {
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*LoggerHandle](i)

	storeHandle.SetSearchIndexer(indexHandle.BookIndex)

	return service.NewSearchService(indexHandle.BookIndex, storeHandle.Store, log.Logger.Logger), nil
}

// TriggerSearchReindexIfNeeded rebuilds an empty index in the background
// when the database already holds books.
func TriggerSearchReindexIfNeeded(i do.Injector) {
	searchService := do.MustInvoke[*service.SearchService](i)
	log := do.MustInvoke[*LoggerHandle](i)

	go func() {
		if err := searchService.ReindexIfEmpty(context.Background()); err != nil {
			log.Error("initial search reindex failed", "error", err)
		}
	}()
}

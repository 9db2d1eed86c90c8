package service

import (
	"context"
	"fmt"
	"log/slog"

	domainerrors "github.com/ablbsk/bookworm-api/internal/errors"
	"github.com/ablbsk/bookworm-api/internal/normalize"
	"github.com/ablbsk/bookworm-api/internal/search"
	"github.com/ablbsk/bookworm-api/internal/store"
)

const maxSearchLimit = 100

// SearchService answers full-text queries over the locally cached books.
// The store keeps the index current; this service only reads it and rebuilds
// it on demand.
type SearchService struct {
	index  *search.BookIndex
	books  store.BookStore
	logger *slog.Logger
}

// NewSearchService creates a new search service.
func NewSearchService(index *search.BookIndex, books store.BookStore, logger *slog.Logger) *SearchService {
	return &SearchService{
		index:  index,
		books:  books,
		logger: logger,
	}
}

// Search runs a library query. Limit is capped; an empty query is rejected.
func (s *SearchService) Search(ctx context.Context, params search.Params) (*search.Result, error) {
	params.Query = normalize.Text(params.Query)
	if params.Query == "" {
		return nil, domainerrors.ValidationWithDetails("validation failed", map[string]string{"q": "is required"})
	}
	if params.Offset < 0 {
		return nil, domainerrors.ValidationWithDetails("validation failed", map[string]string{"offset": "must not be negative"})
	}
	params.Limit = min(params.Limit, maxSearchLimit)
	params.Format = normalize.Format(params.Format)

	res, err := s.index.Search(ctx, params)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "search failed")
	}
	return res, nil
}

// Reindex drops the index and rebuilds it from every cached book.
func (s *SearchService) Reindex(ctx context.Context) (int, error) {
	s.logger.Info("starting full reindex")

	books, err := s.books.ListBooks(ctx)
	if err != nil {
		return 0, fmt.Errorf("list books: %w", err)
	}
	if err := s.index.Rebuild(); err != nil {
		return 0, fmt.Errorf("rebuild index: %w", err)
	}
	if err := s.index.IndexBooks(books); err != nil {
		return 0, fmt.Errorf("index books: %w", err)
	}

	s.logger.Info("reindex complete", "books", len(books))
	return len(books), nil
}

// ReindexIfEmpty rebuilds the index when it holds no documents but the store
// has books, which happens after the index directory is removed.
func (s *SearchService) ReindexIfEmpty(ctx context.Context) error {
	count, err := s.index.DocumentCount()
	if err != nil {
		return fmt.Errorf("count documents: %w", err)
	}
	if count > 0 {
		return nil
	}
	books, err := s.books.ListBooks(ctx)
	if err != nil {
		return fmt.Errorf("list books: %w", err)
	}
	if len(books) == 0 {
		return nil
	}
	s.logger.Info("search index empty, indexing cached books", "books", len(books))
	return s.index.IndexBooks(books)
}

// DocumentCount returns the number of indexed books.
func (s *SearchService) DocumentCount(_ context.Context) (uint64, error) {
	return s.index.DocumentCount()
}

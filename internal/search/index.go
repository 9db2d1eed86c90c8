package search

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/ablbsk/bookworm-api/internal/domain"
	"github.com/ablbsk/bookworm-api/internal/store"
)

// mappingVersion is bumped whenever buildIndexMapping changes; a mismatch on
// startup rebuilds the index.
const mappingVersion = "1"

// batchSize bounds memory while bulk indexing.
const batchSize = 500

// BookIndex wraps a Bleve index of cached books.
//
// All public methods are safe for concurrent use. The mutex keeps readers
// and writers off the index while Rebuild swaps it out.
type BookIndex struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	logger *slog.Logger
}

var _ store.SearchIndexer = (*BookIndex)(nil)

// Options configures the book index.
type Options struct {
	DataPath string       // Directory for index storage
	Logger   *slog.Logger // Uses discard if nil
}

// Open opens the index under opts.DataPath, creating it when missing and
// recreating it when it is unreadable or built with an older mapping. The
// caller repopulates a recreated index (see Reindex in the service layer).
func Open(opts Options) (*BookIndex, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	indexPath := filepath.Join(opts.DataPath, "books.bleve")
	versionPath := filepath.Join(opts.DataPath, "books.version")

	index, err := openExisting(indexPath, versionPath, logger)
	if err != nil {
		return nil, err
	}
	if index == nil {
		if err := os.RemoveAll(indexPath); err != nil {
			return nil, fmt.Errorf("remove old index: %w", err)
		}
		index, err = bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
		if err := os.WriteFile(versionPath, []byte(mappingVersion), 0o644); err != nil {
			logger.Warn("failed to write search version file", "error", err)
		}
		logger.Info("created book search index", "path", indexPath, "mapping_version", mappingVersion)
	}

	return &BookIndex{index: index, path: indexPath, logger: logger}, nil
}

// openExisting returns nil without error when the index must be (re)created.
func openExisting(indexPath, versionPath string, logger *slog.Logger) (bleve.Index, error) {
	if _, err := os.Stat(indexPath); err != nil {
		return nil, nil
	}

	version, err := os.ReadFile(versionPath)
	if err != nil || string(version) != mappingVersion {
		logger.Info("book search index mapping changed, will rebuild",
			"old_version", string(version),
			"new_version", mappingVersion,
		)
		return nil, nil
	}

	index, err := bleve.Open(indexPath)
	if err != nil {
		logger.Warn("failed to open book search index, will recreate", "path", indexPath, "error", err)
		return nil, nil
	}
	logger.Info("opened book search index", "path", indexPath)
	return index, nil
}

// Close closes the index and releases resources.
func (s *BookIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}

// IndexBook adds or replaces a book document.
func (s *BookIndex) IndexBook(_ context.Context, book *domain.Book) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc := BookToDocument(book)
	return s.index.Index(doc.ID, doc.ToMap())
}

// DeleteBook removes a book document.
func (s *BookIndex) DeleteBook(_ context.Context, bookID string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Delete(bookID)
}

// IndexBooks indexes books in batches.
func (s *BookIndex) IndexBooks(books []*domain.Book) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for start := 0; start < len(books); start += batchSize {
		end := min(start+batchSize, len(books))

		batch := s.index.NewBatch()
		for _, b := range books[start:end] {
			doc := BookToDocument(b)
			if err := batch.Index(doc.ID, doc.ToMap()); err != nil {
				return fmt.Errorf("batch index %s: %w", doc.ID, err)
			}
		}
		if err := s.index.Batch(batch); err != nil {
			return fmt.Errorf("commit batch %d-%d: %w", start, end, err)
		}
	}
	return nil
}

// DocumentCount returns the number of indexed books.
func (s *BookIndex) DocumentCount() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.DocCount()
}

// Rebuild drops the index and starts an empty one. It blocks every other
// operation until done.
func (s *BookIndex) Rebuild() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.index.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}
	if err := os.RemoveAll(s.path); err != nil {
		return fmt.Errorf("remove index: %w", err)
	}

	index, err := bleve.New(s.path, buildIndexMapping())
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	s.index = index
	s.logger.Info("rebuilt book search index", "path", s.path)
	return nil
}

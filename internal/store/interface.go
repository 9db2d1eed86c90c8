// Package store defines the persistence contract for shared books and
// per-account collections.
package store

import (
	"context"
	"time"

	"github.com/ablbsk/bookworm-api/internal/domain"
)

// Store is the full persistence surface used by the services.
type Store interface {
	BookStore
	CollectionStore

	SetSearchIndexer(indexer SearchIndexer)
	Close() error
}

// BookStore persists shared Book records. Every method is a single atomic
// statement; no method reads a counter and writes it back.
type BookStore interface {
	// FindOrCreate returns the book with externalID, inserting it with
	// fields and zero counters when absent. Concurrent callers converge on a
	// single record and the first writer's fields win. created reports whether
	// this call inserted the row.
	FindOrCreate(ctx context.Context, externalID string, fields domain.BookFields) (book *domain.Book, created bool, err error)

	GetBook(ctx context.Context, id string) (*domain.Book, error)
	FindByExternalID(ctx context.Context, externalID string) (*domain.Book, error)
	GetBooksByIDs(ctx context.Context, ids []string) ([]*domain.Book, error)
	ListBooks(ctx context.Context) ([]*domain.Book, error)

	// IncrementReference adds delta to the book's reference count. It returns
	// ErrCounterUnderflow instead of letting the count go negative.
	IncrementReference(ctx context.Context, bookID string, delta int) error
	// IncrementLike adds delta to the book's like count with the same rules.
	IncrementLike(ctx context.Context, bookID string, delta int) error

	// DeleteIfUnreferenced removes the book only if both counters are zero
	// and no collection row points at it. deleted is false when the book was
	// kept or already gone.
	DeleteIfUnreferenced(ctx context.Context, bookID string) (deleted bool, err error)
	// ListUnreferenced returns up to limit deletable books created
	// before olderThan.
	ListUnreferenced(ctx context.Context, olderThan time.Time, limit int) ([]string, error)

	// TopByLikeCount returns up to n books with a positive like count, by count
	// descending then first-cached order.
	TopByLikeCount(ctx context.Context, n int) ([]*domain.Book, error)
	// TopByReferenceCount is TopByLikeCount for the reference count.
	TopByReferenceCount(ctx context.Context, n int) ([]*domain.Book, error)
}

// CollectionStore persists per-account collections. Writes touch a single
// (account, book) row so concurrent operations on one collection never lose
// each other's updates.
type CollectionStore interface {
	// CreateCollection provisions an empty collection. created is false when
	// one already existed, in which case the existing collection is returned.
	CreateCollection(ctx context.Context, accountID string) (coll *domain.Collection, created bool, err error)
	GetCollection(ctx context.Context, accountID string) (*domain.Collection, error)

	// AddMembership inserts entry. It returns ErrAlreadyMember, ErrBookNotFound
	// or ErrCollectionNotFound without changing anything.
	AddMembership(ctx context.Context, accountID string, entry domain.CollectionEntry) error
	// RemoveMembership deletes the entry and returns it as it was.
	RemoveMembership(ctx context.Context, accountID, bookID string) (domain.CollectionEntry, error)
	GetEntry(ctx context.Context, accountID, bookID string) (domain.CollectionEntry, error)
	SetReadPages(ctx context.Context, accountID, bookID string, readPages int) error

	AddLike(ctx context.Context, accountID, bookID string) error
	RemoveLike(ctx context.Context, accountID, bookID string) error
	IsLiked(ctx context.Context, accountID, bookID string) (bool, error)
}

// SearchIndexer is notified when books enter or leave the local cache.
type SearchIndexer interface {
	IndexBook(ctx context.Context, book *domain.Book) error
	DeleteBook(ctx context.Context, bookID string) error
}

// NoopSearchIndexer is a no-op implementation for testing.
type NoopSearchIndexer struct{}

func (NoopSearchIndexer) IndexBook(context.Context, *domain.Book) error { return nil }
func (NoopSearchIndexer) DeleteBook(context.Context, string) error      { return nil }

// NewNoopSearchIndexer creates a new no-op search indexer.
func NewNoopSearchIndexer() SearchIndexer { return NoopSearchIndexer{} }

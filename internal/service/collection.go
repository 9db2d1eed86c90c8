package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ablbsk/bookworm-api/internal/catalog"
	"github.com/ablbsk/bookworm-api/internal/domain"
	domainerrors "github.com/ablbsk/bookworm-api/internal/errors"
	"github.com/ablbsk/bookworm-api/internal/logger"
	"github.com/ablbsk/bookworm-api/internal/normalize"
	"github.com/ablbsk/bookworm-api/internal/store"
	"github.com/ablbsk/bookworm-api/internal/validation"
)

const (
	// DefaultTopBooks is the ranking size used when none is requested.
	DefaultTopBooks = 2
	maxTopBooks     = 100
)

// CollectionService keeps collections, likes and the shared book cache
// consistent. Every mutation is a fixed sequence of store primitives; when a
// step fails, the steps already applied are undone in reverse order.
type CollectionService struct {
	books       store.BookStore
	collections store.CollectionStore
	catalog     catalog.Catalog
	validator   *validation.Validator
	policy      ReadPagesPolicy
	logger      *slog.Logger
}

// NewCollectionService creates a collection service. An empty policy means
// ReadPagesClamp.
func NewCollectionService(
	books store.BookStore,
	collections store.CollectionStore,
	cat catalog.Catalog,
	policy ReadPagesPolicy,
	logger *slog.Logger,
) *CollectionService {
	if policy == "" {
		policy = ReadPagesClamp
	}
	return &CollectionService{
		books:       books,
		collections: collections,
		catalog:     cat,
		validator:   validation.New(),
		policy:      policy,
		logger:      logger,
	}
}

// AddBook adds a book to the account's collection, caching it first if no
// collection references it yet. Adding a book that is already in the
// collection succeeds without changing any counter.
func (s *CollectionService) AddBook(ctx context.Context, accountID string, req AddBookRequest) (*domain.BookView, error) {
	if err := requireAccount(accountID); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(&req); err != nil {
		return nil, err
	}
	externalID, _ := normalize.ExternalID(req.ExternalID)

	var supplied *domain.BookFields
	if req.hasFields() {
		fields := req.fields()
		supplied = &fields
	}

	added := false
	book, err := s.withResolvedBook(ctx, externalID, supplied, func(book *domain.Book) error {
		err := s.collections.AddMembership(ctx, accountID, domain.CollectionEntry{BookID: book.ID})
		if errors.Is(err, store.ErrAlreadyMember) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := s.books.IncrementReference(ctx, book.ID, 1); err != nil {
			s.compensate(ctx, "remove membership", func(ctx context.Context) error {
				_, err := s.collections.RemoveMembership(ctx, accountID, book.ID)
				return err
			}, "account_id", accountID, "book_id", book.ID)
			return err
		}
		added = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if added {
		s.log(ctx).Info("book added to collection",
			"account_id", accountID,
			"book_id", book.ID,
			"external_id", externalID,
		)
	}
	return s.reloadView(ctx, accountID, book)
}

// RemoveBook removes a book from the account's collection and deletes the
// cached book once nothing references it. Removing a book that is not in the
// collection, including one already deleted from the cache, succeeds without
// changing any counter.
func (s *CollectionService) RemoveBook(ctx context.Context, accountID, externalID string) (*domain.BookView, error) {
	if err := requireAccount(accountID); err != nil {
		return nil, err
	}
	externalID, err := s.externalID(externalID)
	if err != nil {
		return nil, err
	}

	book, err := s.books.FindByExternalID(ctx, externalID)
	if err != nil {
		return s.uncachedView(ctx, accountID, externalID, err)
	}

	entry, err := s.collections.RemoveMembership(ctx, accountID, book.ID)
	switch {
	case errors.Is(err, store.ErrNotMember):
		return s.removedView(ctx, accountID, book), nil
	case err != nil:
		return nil, storeError(err, externalID)
	}

	if err := s.books.IncrementReference(ctx, book.ID, -1); err != nil {
		s.compensate(ctx, "restore membership", func(ctx context.Context) error {
			return s.collections.AddMembership(ctx, accountID, entry)
		}, "account_id", accountID, "book_id", book.ID)
		return nil, storeError(err, externalID)
	}
	book.ReferenceCount--

	s.log(ctx).Info("book removed from collection",
		"account_id", accountID,
		"book_id", book.ID,
		"external_id", externalID,
	)
	s.deleteIfUnreferenced(ctx, book.ID)
	return s.removedView(ctx, accountID, book), nil
}

// Like records that the account likes a book, caching the book from the
// catalog if needed. Liking twice succeeds without changing the like count.
func (s *CollectionService) Like(ctx context.Context, accountID, externalID string) (*domain.BookView, error) {
	if err := requireAccount(accountID); err != nil {
		return nil, err
	}
	externalID, err := s.externalID(externalID)
	if err != nil {
		return nil, err
	}

	liked := false
	book, err := s.withResolvedBook(ctx, externalID, nil, func(book *domain.Book) error {
		err := s.collections.AddLike(ctx, accountID, book.ID)
		if errors.Is(err, store.ErrAlreadyLiked) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := s.books.IncrementLike(ctx, book.ID, 1); err != nil {
			s.compensate(ctx, "remove like", func(ctx context.Context) error {
				return s.collections.RemoveLike(ctx, accountID, book.ID)
			}, "account_id", accountID, "book_id", book.ID)
			return err
		}
		liked = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if liked {
		s.log(ctx).Info("book liked", "account_id", accountID, "book_id", book.ID, "external_id", externalID)
	}
	return s.reloadView(ctx, accountID, book)
}

// Unlike removes the account's like and deletes the cached book once nothing
// references it. Unliking a book that is not liked, or no longer cached,
// succeeds.
func (s *CollectionService) Unlike(ctx context.Context, accountID, externalID string) (*domain.BookView, error) {
	if err := requireAccount(accountID); err != nil {
		return nil, err
	}
	externalID, err := s.externalID(externalID)
	if err != nil {
		return nil, err
	}

	book, err := s.books.FindByExternalID(ctx, externalID)
	if err != nil {
		return s.uncachedView(ctx, accountID, externalID, err)
	}

	err = s.collections.RemoveLike(ctx, accountID, book.ID)
	switch {
	case errors.Is(err, store.ErrNotLiked):
		return s.personalView(ctx, accountID, book)
	case err != nil:
		return nil, storeError(err, externalID)
	}

	if err := s.books.IncrementLike(ctx, book.ID, -1); err != nil {
		s.compensate(ctx, "restore like", func(ctx context.Context) error {
			return s.collections.AddLike(ctx, accountID, book.ID)
		}, "account_id", accountID, "book_id", book.ID)
		return nil, storeError(err, externalID)
	}
	book.LikeCount--

	s.log(ctx).Info("book unliked", "account_id", accountID, "book_id", book.ID, "external_id", externalID)

	view, err := s.personalView(ctx, accountID, book)
	if err != nil {
		view = &domain.BookView{Book: *book}
	}
	s.deleteIfUnreferenced(ctx, book.ID)
	return view, nil
}

// SaveProgress stores the number of pages read for a book in the collection.
// Pages beyond the book's page count are clamped or rejected according to
// the configured policy; a zero page count accepts any non-negative value.
func (s *CollectionService) SaveProgress(ctx context.Context, accountID, externalID string, pages int) (*ProgressResult, error) {
	if err := requireAccount(accountID); err != nil {
		return nil, err
	}
	externalID, err := s.externalID(externalID)
	if err != nil {
		return nil, err
	}
	if pages < 0 {
		return nil, domainerrors.ValidationWithDetails("validation failed", map[string]string{
			"read_pages": "must not be negative",
		})
	}

	book, err := s.books.FindByExternalID(ctx, externalID)
	if err != nil {
		return nil, storeError(err, externalID)
	}

	if book.PageCount > 0 && pages > book.PageCount {
		if s.policy == ReadPagesReject {
			return nil, domainerrors.ValidationWithDetails("validation failed", map[string]string{
				"read_pages": "must not exceed the page count",
			})
		}
		pages = book.PageCount
	}

	if err := s.collections.SetReadPages(ctx, accountID, book.ID, pages); err != nil {
		return nil, storeError(err, externalID)
	}

	s.log(ctx).Debug("progress saved",
		"account_id", accountID,
		"book_id", book.ID,
		"read_pages", pages,
	)
	return &ProgressResult{ExternalID: externalID, ReadPages: pages}, nil
}

// ListCollection returns the account's books in the order they were added.
func (s *CollectionService) ListCollection(ctx context.Context, accountID string) ([]domain.BookView, error) {
	if err := requireAccount(accountID); err != nil {
		return nil, err
	}

	coll, err := s.collections.GetCollection(ctx, accountID)
	if err != nil {
		return nil, storeError(err, "")
	}
	if len(coll.Entries) == 0 {
		return []domain.BookView{}, nil
	}

	ids := make([]string, len(coll.Entries))
	for i, e := range coll.Entries {
		ids[i] = e.BookID
	}
	books, err := s.books.GetBooksByIDs(ctx, ids)
	if err != nil {
		return nil, storeError(err, "")
	}
	byID := make(map[string]*domain.Book, len(books))
	for _, b := range books {
		byID[b.ID] = b
	}

	views := make([]domain.BookView, 0, len(coll.Entries))
	for _, e := range coll.Entries {
		book, ok := byID[e.BookID]
		if !ok {
			s.log(ctx).Warn("collection entry without book", "account_id", accountID, "book_id", e.BookID)
			continue
		}
		views = append(views, domain.BookView{
			Book:       *book,
			LikeStatus: coll.IsLiked(e.BookID),
			ReadStatus: true,
			ReadPages:  e.ReadPages,
		})
	}
	return views, nil
}

// FetchExternal returns the catalog's current record for a book without
// caching it. When the book is cached and accountID is set, the view also
// carries the account's like and read status.
func (s *CollectionService) FetchExternal(ctx context.Context, externalID, accountID string) (*domain.BookView, error) {
	externalID, err := s.externalID(externalID)
	if err != nil {
		return nil, err
	}

	record, err := s.catalog.Fetch(ctx, externalID)
	if err != nil {
		return nil, err
	}
	view := &domain.BookView{Book: domain.Book{ExternalID: record.ExternalID, BookFields: record.BookFields}}

	local, err := s.books.FindByExternalID(ctx, externalID)
	switch {
	case errors.Is(err, store.ErrBookNotFound):
		return view, nil
	case err != nil:
		return nil, storeError(err, externalID)
	}
	view.ID = local.ID
	view.ReferenceCount = local.ReferenceCount
	view.LikeCount = local.LikeCount
	view.CreatedAt = local.CreatedAt

	if accountID == "" {
		return view, nil
	}
	personal, err := s.personalView(ctx, accountID, &view.Book)
	if err != nil {
		return nil, err
	}
	return personal, nil
}

// TopBooks returns the n most liked and the n most referenced cached books.
// A non-positive n means DefaultTopBooks.
func (s *CollectionService) TopBooks(ctx context.Context, n int) (*domain.TopBooks, error) {
	if n <= 0 {
		n = DefaultTopBooks
	}
	n = min(n, maxTopBooks)

	liked, err := s.books.TopByLikeCount(ctx, n)
	if err != nil {
		return nil, storeError(err, "")
	}
	referenced, err := s.books.TopByReferenceCount(ctx, n)
	if err != nil {
		return nil, storeError(err, "")
	}
	return &domain.TopBooks{TopLiked: derefBooks(liked), TopReferenced: derefBooks(referenced)}, nil
}

// SearchCatalog runs a paged catalog search. Page 0 means the first page.
func (s *CollectionService) SearchCatalog(ctx context.Context, query string, page int) (*domain.CatalogSearchPage, error) {
	query = normalize.Text(query)
	details := map[string]string{}
	if query == "" {
		details["q"] = "is required"
	}
	if page < 0 {
		details["page"] = "must be at least 1"
	}
	if len(details) > 0 {
		return nil, domainerrors.ValidationWithDetails("validation failed", details)
	}
	if page == 0 {
		page = 1
	}
	return s.catalog.Search(ctx, query, page)
}

// withResolvedBook resolves the book and runs add against it. If the book is
// deleted between the two steps the whole sequence runs once more; a second
// disappearance is reported as a conflict.
func (s *CollectionService) withResolvedBook(
	ctx context.Context,
	externalID string,
	supplied *domain.BookFields,
	add func(book *domain.Book) error,
) (*domain.Book, error) {
	for attempt := 1; ; attempt++ {
		book, created, err := s.resolve(ctx, externalID, supplied)
		if err == nil {
			if err = add(book); err == nil {
				return book, nil
			}
			if created && !errors.Is(err, store.ErrBookNotFound) {
				// Undo the cache insert; a concurrent reference keeps the row.
				s.deleteIfUnreferenced(ctx, book.ID)
			}
		}
		if !errors.Is(err, store.ErrBookNotFound) {
			return nil, storeError(err, externalID)
		}
		if attempt == 2 {
			return nil, domainerrors.Conflictf("book %s was removed concurrently, retry the request", externalID).WithCause(err)
		}
		s.log(ctx).Debug("book vanished before it was referenced, retrying", "external_id", externalID)
	}
}

// resolve returns the cached book for externalID, creating it from supplied
// or from the catalog record when absent.
func (s *CollectionService) resolve(ctx context.Context, externalID string, supplied *domain.BookFields) (*domain.Book, bool, error) {
	book, err := s.books.FindByExternalID(ctx, externalID)
	if err == nil {
		return book, false, nil
	}
	if !errors.Is(err, store.ErrBookNotFound) {
		return nil, false, err
	}

	var fields domain.BookFields
	if supplied != nil {
		// Supplied fields only matter when they create the record.
		if err := requireDescriptiveFields(*supplied); err != nil {
			return nil, false, err
		}
		fields = *supplied
	} else {
		record, err := s.catalog.Fetch(ctx, externalID)
		if err != nil {
			return nil, false, err
		}
		fields = record.BookFields
	}
	return s.books.FindOrCreate(ctx, externalID, fields)
}

// compensate runs undo with a context that survives request cancellation.
// A failed undo is logged; the original error is what the caller reports.
func (s *CollectionService) compensate(ctx context.Context, op string, undo func(context.Context) error, attrs ...any) {
	if err := undo(context.WithoutCancel(ctx)); err != nil {
		s.log(ctx).Error("compensation failed", append([]any{"op", op, "error", err}, attrs...)...)
		return
	}
	s.log(ctx).Warn("compensated partial operation", append([]any{"op", op}, attrs...)...)
}

// deleteIfUnreferenced removes the book when both counters are zero. Failures
// are left to the orphan sweeper.
func (s *CollectionService) deleteIfUnreferenced(ctx context.Context, bookID string) {
	deleted, err := s.books.DeleteIfUnreferenced(context.WithoutCancel(ctx), bookID)
	if err != nil {
		s.log(ctx).Warn("failed to delete unreferenced book", "book_id", bookID, "error", err)
		return
	}
	if deleted {
		s.log(ctx).Info("unreferenced book deleted", "book_id", bookID)
	}
}

// reloadView re-reads the book so the view carries current counters.
func (s *CollectionService) reloadView(ctx context.Context, accountID string, book *domain.Book) (*domain.BookView, error) {
	if fresh, err := s.books.GetBook(ctx, book.ID); err == nil {
		book = fresh
	}
	return s.personalView(ctx, accountID, book)
}

// personalView combines book with the account's entry and like.
func (s *CollectionService) personalView(ctx context.Context, accountID string, book *domain.Book) (*domain.BookView, error) {
	view := &domain.BookView{Book: *book}

	entry, err := s.collections.GetEntry(ctx, accountID, book.ID)
	switch {
	case err == nil:
		view.ReadStatus = true
		view.ReadPages = entry.ReadPages
	case errors.Is(err, store.ErrNotMember), errors.Is(err, store.ErrCollectionNotFound):
	default:
		return nil, storeError(err, book.ExternalID)
	}

	liked, err := s.collections.IsLiked(ctx, accountID, book.ID)
	if err != nil {
		return nil, storeError(err, book.ExternalID)
	}
	view.LikeStatus = liked
	return view, nil
}

// uncachedView answers a remove or unlike for a book missing from the cache.
// Nothing references such a book, so the account holds neither an entry nor a
// like for it and there is nothing to undo. An unprovisioned account is still
// reported.
func (s *CollectionService) uncachedView(ctx context.Context, accountID, externalID string, err error) (*domain.BookView, error) {
	if !errors.Is(err, store.ErrBookNotFound) {
		return nil, storeError(err, externalID)
	}
	if _, err := s.collections.GetCollection(ctx, accountID); err != nil {
		return nil, storeError(err, externalID)
	}
	return &domain.BookView{Book: domain.Book{ExternalID: externalID}}, nil
}

// removedView describes a book that is no longer in the collection.
func (s *CollectionService) removedView(ctx context.Context, accountID string, book *domain.Book) *domain.BookView {
	view := &domain.BookView{Book: *book}
	liked, err := s.collections.IsLiked(ctx, accountID, book.ID)
	if err != nil {
		s.log(ctx).Warn("failed to read like status", "book_id", book.ID, "error", err)
	}
	view.LikeStatus = liked
	return view
}

func (s *CollectionService) externalID(raw string) (string, error) {
	if err := s.validator.Var("external_id", raw, "required,external_id"); err != nil {
		return "", err
	}
	externalID, _ := normalize.ExternalID(raw)
	return externalID, nil
}

func (s *CollectionService) log(ctx context.Context) *slog.Logger {
	return logger.FromContext(ctx, s.logger)
}

func requireAccount(accountID string) error {
	if accountID == "" {
		return domainerrors.Unauthenticated("an account is required")
	}
	return nil
}

func requireDescriptiveFields(fields domain.BookFields) error {
	details := map[string]string{}
	if fields.Title == "" {
		details["title"] = "is required"
	}
	if fields.Authors == "" {
		details["authors"] = "is required"
	}
	if len(details) > 0 {
		return domainerrors.ValidationWithDetails("validation failed", details)
	}
	return nil
}

func derefBooks(books []*domain.Book) []domain.Book {
	out := make([]domain.Book, len(books))
	for i, b := range books {
		out[i] = *b
	}
	return out
}

package service

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ablbsk/bookworm-api/internal/domain"
	domainerrors "github.com/ablbsk/bookworm-api/internal/errors"
	"github.com/ablbsk/bookworm-api/internal/store"
	"github.com/ablbsk/bookworm-api/internal/store/sqlite"
)

var errInjected = errors.New("injected failure")

// fakeCatalog serves records from memory and counts calls.
type fakeCatalog struct {
	mu       sync.Mutex
	records  map[string]domain.CatalogRecord
	fetches  atomic.Int32
	searches atomic.Int32
	err      error
}

func newFakeCatalog(records ...domain.CatalogRecord) *fakeCatalog {
	c := &fakeCatalog{records: make(map[string]domain.CatalogRecord)}
	for _, r := range records {
		c.records[r.ExternalID] = r
	}
	return c
}

func (c *fakeCatalog) Fetch(_ context.Context, externalID string) (*domain.CatalogRecord, error) {
	c.fetches.Add(1)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	r, ok := c.records[externalID]
	if !ok {
		return nil, domainerrors.NotFoundf("catalog book %s not found", externalID)
	}
	return &r, nil
}

func (c *fakeCatalog) Search(_ context.Context, query string, page int) (*domain.CatalogSearchPage, error) {
	c.searches.Add(1)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	result := &domain.CatalogSearchPage{Query: query, Page: page}
	for _, r := range c.records {
		result.Results = append(result.Results, domain.CatalogSummary{
			ExternalID: r.ExternalID,
			Title:      r.Title,
			Authors:    r.Authors,
		})
	}
	result.TotalResults = len(result.Results)
	return result, nil
}

func catalogRecord(externalID, title string, pages int) domain.CatalogRecord {
	return domain.CatalogRecord{
		ExternalID: externalID,
		BookFields: domain.BookFields{
			Title:     title,
			Authors:   "Catalog Author",
			PageCount: pages,
			Format:    "Paperback",
		},
	}
}

// faultyStore delegates to a real store and fails the named primitives.
type faultyStore struct {
	store.Store

	mu       sync.Mutex
	failures map[string]int // remaining failures per operation
	hooks    map[string]func()
}

func (f *faultyStore) failNext(op string, times int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures == nil {
		f.failures = make(map[string]int)
	}
	f.failures[op] = times
}

// before runs a hook ahead of op, once.
func (f *faultyStore) before(op string, hook func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hooks == nil {
		f.hooks = make(map[string]func())
	}
	f.hooks[op] = hook
}

func (f *faultyStore) check(op string) error {
	f.mu.Lock()
	hook := f.hooks[op]
	delete(f.hooks, op)
	fail := f.failures[op] > 0
	if fail {
		f.failures[op]--
	}
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	if fail {
		return errInjected
	}
	return nil
}

func (f *faultyStore) IncrementReference(ctx context.Context, bookID string, delta int) error {
	if err := f.check("IncrementReference"); err != nil {
		return err
	}
	return f.Store.IncrementReference(ctx, bookID, delta)
}

func (f *faultyStore) IncrementLike(ctx context.Context, bookID string, delta int) error {
	if err := f.check("IncrementLike"); err != nil {
		return err
	}
	return f.Store.IncrementLike(ctx, bookID, delta)
}

func (f *faultyStore) DeleteIfUnreferenced(ctx context.Context, bookID string) (bool, error) {
	if err := f.check("DeleteIfUnreferenced"); err != nil {
		return false, err
	}
	return f.Store.DeleteIfUnreferenced(ctx, bookID)
}

func (f *faultyStore) AddMembership(ctx context.Context, accountID string, entry domain.CollectionEntry) error {
	if err := f.check("AddMembership"); err != nil {
		return err
	}
	return f.Store.AddMembership(ctx, accountID, entry)
}

func (f *faultyStore) AddLike(ctx context.Context, accountID, bookID string) error {
	if err := f.check("AddLike"); err != nil {
		return err
	}
	return f.Store.AddLike(ctx, accountID, bookID)
}

type testEnv struct {
	store   *sqlite.Store
	faulty  *faultyStore
	catalog *fakeCatalog
	svc     *CollectionService
}

func setupTestCollection(t *testing.T, policy ReadPagesPolicy, records ...domain.CatalogRecord) *testEnv {
	t.Helper()

	s, err := sqlite.Open(filepath.Join(t.TempDir(), "bookworm.db"), slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	faulty := &faultyStore{Store: s}
	cat := newFakeCatalog(records...)
	svc := NewCollectionService(faulty, faulty, cat, policy, slog.New(slog.DiscardHandler))

	return &testEnv{store: s, faulty: faulty, catalog: cat, svc: svc}
}

func (e *testEnv) provision(t *testing.T, accountIDs ...string) {
	t.Helper()
	for _, accountID := range accountIDs {
		_, _, err := e.store.CreateCollection(context.Background(), accountID)
		require.NoError(t, err)
	}
}

func (e *testEnv) book(t *testing.T, externalID string) *domain.Book {
	t.Helper()
	b, err := e.store.FindByExternalID(context.Background(), externalID)
	require.NoError(t, err)
	return b
}

func (e *testEnv) bookGone(t *testing.T, externalID string) {
	t.Helper()
	_, err := e.store.FindByExternalID(context.Background(), externalID)
	require.ErrorIs(t, err, store.ErrBookNotFound)
}

package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ablbsk/bookworm-api/internal/domain"
	domainerrors "github.com/ablbsk/bookworm-api/internal/errors"
)

func addRequest(externalID, title string, pages int) AddBookRequest {
	return AddBookRequest{ExternalID: externalID, Title: title, Authors: "A. Author", PageCount: pages}
}

func TestAddBook_CreatesSharedBook(t *testing.T) {
	env := setupTestCollection(t, ReadPagesClamp)
	env.provision(t, "x")
	ctx := context.Background()

	view, err := env.svc.AddBook(ctx, "x", addRequest("g1", "T", 100))
	require.NoError(t, err)

	assert.True(t, view.ReadStatus)
	assert.False(t, view.LikeStatus)
	assert.Equal(t, 0, view.ReadPages)
	assert.Equal(t, 1, view.ReferenceCount)
	assert.Equal(t, int32(0), env.catalog.fetches.Load(), "supplied fields need no catalog call")

	views, err := env.svc.ListCollection(ctx, "x")
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "g1", views[0].ExternalID)
	assert.Equal(t, 0, views[0].ReadPages)
	assert.False(t, views[0].LikeStatus)
	assert.Equal(t, 1, env.book(t, "g1").ReferenceCount)
}

func TestAddBook_FetchesFromCatalogOnce(t *testing.T) {
	env := setupTestCollection(t, ReadPagesClamp, catalogRecord("g1", "Dune", 412))
	env.provision(t, "x", "y")
	ctx := context.Background()

	view, err := env.svc.AddBook(ctx, "x", AddBookRequest{ExternalID: "g1"})
	require.NoError(t, err)
	assert.Equal(t, "Dune", view.Title)
	assert.Equal(t, 412, view.PageCount)

	_, err = env.svc.AddBook(ctx, "y", AddBookRequest{ExternalID: "g1"})
	require.NoError(t, err)

	assert.Equal(t, int32(1), env.catalog.fetches.Load())
	assert.Equal(t, 2, env.book(t, "g1").ReferenceCount)
}

func TestAddBook_UnknownCatalogBook(t *testing.T) {
	env := setupTestCollection(t, ReadPagesClamp)
	env.provision(t, "x")

	_, err := env.svc.AddBook(context.Background(), "x", AddBookRequest{ExternalID: "missing"})
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))
	env.bookGone(t, "missing")
}

func TestAddBook_Idempotent(t *testing.T) {
	env := setupTestCollection(t, ReadPagesClamp)
	env.provision(t, "x")
	ctx := context.Background()

	_, err := env.svc.AddBook(ctx, "x", addRequest("g1", "T", 100))
	require.NoError(t, err)
	_, err = env.svc.SaveProgress(ctx, "x", "g1", 40)
	require.NoError(t, err)

	view, err := env.svc.AddBook(ctx, "x", addRequest("g1", "T", 100))
	require.NoError(t, err)

	assert.Equal(t, 1, view.ReferenceCount)
	assert.Equal(t, 40, view.ReadPages, "an existing entry keeps its progress")
	assert.Equal(t, 1, env.book(t, "g1").ReferenceCount)
}

func TestAddBook_FirstWriterWins(t *testing.T) {
	env := setupTestCollection(t, ReadPagesClamp)
	env.provision(t, "x", "y")
	ctx := context.Background()

	_, err := env.svc.AddBook(ctx, "x", addRequest("g1", "First", 100))
	require.NoError(t, err)
	view, err := env.svc.AddBook(ctx, "y", addRequest("g1", "Second", 300))
	require.NoError(t, err)

	assert.Equal(t, "First", view.Title)
	assert.Equal(t, 100, view.PageCount)
}

func TestAddBook_Validation(t *testing.T) {
	env := setupTestCollection(t, ReadPagesClamp)
	env.provision(t, "x")
	ctx := context.Background()

	tests := []struct {
		name  string
		req   AddBookRequest
		field string
	}{
		{"missing external id", AddBookRequest{Title: "T", Authors: "A"}, "external_id"},
		{"malformed external id", AddBookRequest{ExternalID: "g 1/2"}, "external_id"},
		{"title without authors", AddBookRequest{ExternalID: "g1", Title: "T"}, "authors"},
		{"authors without title", AddBookRequest{ExternalID: "g1", Authors: "A"}, "title"},
		{"negative pages", AddBookRequest{ExternalID: "g1", Title: "T", Authors: "A", PageCount: -1}, "page_count"},
		{"rating above five", AddBookRequest{ExternalID: "g1", Title: "T", Authors: "A", AverageRating: 7}, "average_rating"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.AddBook(ctx, "x", tt.req)
			require.Error(t, err)

			var domainErr *domainerrors.Error
			require.True(t, domainerrors.As(err, &domainErr))
			assert.Equal(t, domainerrors.CodeValidation, domainErr.Code)
			details, ok := domainErr.Details.(map[string]string)
			require.True(t, ok)
			assert.Contains(t, details, tt.field)
		})
	}
	assert.Equal(t, int32(0), env.catalog.fetches.Load())
}

func TestAddBook_PartialFieldsForCachedBook(t *testing.T) {
	env := setupTestCollection(t, ReadPagesClamp)
	env.provision(t, "x", "y")
	ctx := context.Background()

	_, err := env.svc.AddBook(ctx, "x", addRequest("g1", "Dune", 412))
	require.NoError(t, err)

	// The cached record wins, so incomplete fields are not an error.
	view, err := env.svc.AddBook(ctx, "y", AddBookRequest{ExternalID: "g1", PageCount: 100})
	require.NoError(t, err)
	assert.Equal(t, "Dune", view.Title)
	assert.Equal(t, 412, view.PageCount)
	assert.Equal(t, 2, env.book(t, "g1").ReferenceCount)

	_, err = env.svc.AddBook(ctx, "y", AddBookRequest{ExternalID: "g2", PageCount: 100})
	assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation), "creating a book still needs title and authors")
	env.bookGone(t, "g2")
}

func TestAddBook_RequiresAccount(t *testing.T) {
	env := setupTestCollection(t, ReadPagesClamp)

	_, err := env.svc.AddBook(context.Background(), "", addRequest("g1", "T", 100))
	assert.True(t, domainerrors.Is(err, domainerrors.ErrUnauthorized))
}

func TestAddBook_UnprovisionedAccount(t *testing.T) {
	env := setupTestCollection(t, ReadPagesClamp)

	_, err := env.svc.AddBook(context.Background(), "ghost", addRequest("g1", "T", 100))
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))
	assert.Contains(t, err.Error(), "collection not found")

	// The book cached for the failed request is removed again.
	env.bookGone(t, "g1")
}

func TestAddBook_ConcurrentDedupe(t *testing.T) {
	env := setupTestCollection(t, ReadPagesClamp, catalogRecord("g1", "Dune", 412))
	const accounts = 8
	for i := range accounts {
		env.provision(t, fmt.Sprintf("acct-%d", i))
	}

	var wg sync.WaitGroup
	errs := make(chan error, accounts)
	for i := range accounts {
		wg.Add(1)
		go func(accountID string) {
			defer wg.Done()
			_, err := env.svc.AddBook(context.Background(), accountID, AddBookRequest{ExternalID: "g1"})
			errs <- err
		}(fmt.Sprintf("acct-%d", i))
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	books, err := env.store.ListBooks(context.Background())
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, accounts, books[0].ReferenceCount)
}

func TestAddBook_TwoAccountsConcurrently(t *testing.T) {
	env := setupTestCollection(t, ReadPagesClamp)
	env.provision(t, "x", "y")

	var wg sync.WaitGroup
	for _, accountID := range []string{"x", "y"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.svc.AddBook(context.Background(), accountID, addRequest("g1", "T", 100))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	books, err := env.store.ListBooks(context.Background())
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, 2, books[0].ReferenceCount)
}

func TestLikeThenAddByOtherAccount(t *testing.T) {
	env := setupTestCollection(t, ReadPagesClamp, catalogRecord("g1", "Dune", 412))
	env.provision(t, "x", "y")
	ctx := context.Background()

	xView, err := env.svc.Like(ctx, "x", "g1")
	require.NoError(t, err)
	assert.True(t, xView.LikeStatus)
	assert.False(t, xView.ReadStatus)

	yView, err := env.svc.AddBook(ctx, "y", AddBookRequest{ExternalID: "g1"})
	require.NoError(t, err)
	assert.False(t, yView.LikeStatus)
	assert.True(t, yView.ReadStatus)

	books, err := env.store.ListBooks(ctx)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, 1, books[0].LikeCount)
	assert.Equal(t, 1, books[0].ReferenceCount)
	assert.Equal(t, int32(1), env.catalog.fetches.Load())
}

func TestRemoveBook_DeletesUnreferencedBook(t *testing.T) {
	env := setupTestCollection(t, ReadPagesClamp, catalogRecord("g1", "Dune", 412))
	env.provision(t, "x")
	ctx := context.Background()

	added, err := env.svc.AddBook(ctx, "x", AddBookRequest{ExternalID: "g1"})
	require.NoError(t, err)

	removed, err := env.svc.RemoveBook(ctx, "x", "g1")
	require.NoError(t, err)
	assert.Equal(t, added.ID, removed.ID)
	assert.False(t, removed.ReadStatus)
	env.bookGone(t, "g1")

	fetched, err := env.svc.FetchExternal(ctx, "g1", "x")
	require.NoError(t, err)
	assert.Equal(t, "Dune", fetched.Title)
	assert.Empty(t, fetched.ID)
	assert.False(t, fetched.ReadStatus)
	assert.False(t, fetched.LikeStatus)
	env.bookGone(t, "g1")
}

func TestRemoveBook_KeepsLikedBook(t *testing.T) {
	env := setupTestCollection(t, ReadPagesClamp)
	env.provision(t, "x")
	ctx := context.Background()

	_, err := env.svc.AddBook(ctx, "x", addRequest("g1", "T", 100))
	require.NoError(t, err)
	_, err = env.svc.Like(ctx, "x", "g1")
	require.NoError(t, err)

	view, err := env.svc.RemoveBook(ctx, "x", "g1")
	require.NoError(t, err)
	assert.True(t, view.LikeStatus)

	book := env.book(t, "g1")
	assert.Equal(t, 0, book.ReferenceCount)
	assert.Equal(t, 1, book.LikeCount)

	// A second removal is a no-op.
	_, err = env.svc.RemoveBook(ctx, "x", "g1")
	require.NoError(t, err)
	book = env.book(t, "g1")
	assert.Equal(t, 0, book.ReferenceCount)
	assert.Equal(t, 1, book.LikeCount)
}

func TestRemoveBook_RepeatAfterDelete(t *testing.T) {
	env := setupTestCollection(t, ReadPagesClamp)
	env.provision(t, "x", "y")
	ctx := context.Background()

	_, err := env.svc.AddBook(ctx, "x", addRequest("g1", "T", 100))
	require.NoError(t, err)
	_, err = env.svc.RemoveBook(ctx, "x", "g1")
	require.NoError(t, err)
	env.bookGone(t, "g1")

	view, err := env.svc.RemoveBook(ctx, "x", "g1")
	require.NoError(t, err)
	assert.Equal(t, "g1", view.ExternalID)
	assert.False(t, view.ReadStatus)
	assert.False(t, view.LikeStatus)
	env.bookGone(t, "g1")

	// A book that was never cached behaves the same way.
	_, err = env.svc.RemoveBook(ctx, "x", "never-cached")
	require.NoError(t, err)
	env.bookGone(t, "never-cached")

	// Re-adding afterwards starts from a single reference.
	_, err = env.svc.AddBook(ctx, "y", addRequest("g1", "T", 100))
	require.NoError(t, err)
	_, err = env.svc.RemoveBook(ctx, "x", "g1")
	require.NoError(t, err)
	assert.Equal(t, 1, env.book(t, "g1").ReferenceCount)
}

func TestRemoveBook_Errors(t *testing.T) {
	env := setupTestCollection(t, ReadPagesClamp)
	env.provision(t, "x")
	ctx := context.Background()

	_, err := env.svc.RemoveBook(ctx, "ghost", "g1")
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound), "unprovisioned accounts are still reported")

	_, err = env.svc.RemoveBook(ctx, "", "g1")
	assert.True(t, domainerrors.Is(err, domainerrors.ErrUnauthorized))

	_, err = env.svc.RemoveBook(ctx, "x", "bad id!")
	assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation))
}

func TestRemoveBook_OtherAccountKeepsBook(t *testing.T) {
	env := setupTestCollection(t, ReadPagesClamp)
	env.provision(t, "x", "y")
	ctx := context.Background()

	for _, accountID := range []string{"x", "y"} {
		_, err := env.svc.AddBook(ctx, accountID, addRequest("g1", "T", 100))
		require.NoError(t, err)
	}

	_, err := env.svc.RemoveBook(ctx, "x", "g1")
	require.NoError(t, err)

	assert.Equal(t, 1, env.book(t, "g1").ReferenceCount)
	views, err := env.svc.ListCollection(ctx, "y")
	require.NoError(t, err)
	assert.Len(t, views, 1)
}

func TestLikeAndUnlike(t *testing.T) {
	env := setupTestCollection(t, ReadPagesClamp, catalogRecord("g1", "Dune", 412))
	env.provision(t, "x")
	ctx := context.Background()

	_, err := env.svc.Like(ctx, "x", "g1")
	require.NoError(t, err)
	view, err := env.svc.Like(ctx, "x", "g1")
	require.NoError(t, err)
	assert.True(t, view.LikeStatus)
	assert.Equal(t, 1, env.book(t, "g1").LikeCount)

	view, err = env.svc.Unlike(ctx, "x", "g1")
	require.NoError(t, err)
	assert.False(t, view.LikeStatus)
	env.bookGone(t, "g1")
}

func TestUnlike_NotLikedIsSuccess(t *testing.T) {
	env := setupTestCollection(t, ReadPagesClamp)
	env.provision(t, "x")
	ctx := context.Background()

	_, err := env.svc.AddBook(ctx, "x", addRequest("g1", "T", 100))
	require.NoError(t, err)

	view, err := env.svc.Unlike(ctx, "x", "g1")
	require.NoError(t, err)
	assert.False(t, view.LikeStatus)
	assert.True(t, view.ReadStatus)
	assert.Equal(t, 0, env.book(t, "g1").LikeCount)
}

func TestUnlike_RepeatAfterDelete(t *testing.T) {
	env := setupTestCollection(t, ReadPagesClamp, catalogRecord("g1", "Dune", 412))
	env.provision(t, "x")
	ctx := context.Background()

	_, err := env.svc.Like(ctx, "x", "g1")
	require.NoError(t, err)
	_, err = env.svc.Unlike(ctx, "x", "g1")
	require.NoError(t, err)
	env.bookGone(t, "g1")

	view, err := env.svc.Unlike(ctx, "x", "g1")
	require.NoError(t, err)
	assert.Equal(t, "g1", view.ExternalID)
	assert.False(t, view.LikeStatus)
	assert.False(t, view.ReadStatus)
	env.bookGone(t, "g1")

	_, err = env.svc.Unlike(ctx, "ghost", "g1")
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))
}

func TestUnlike_KeepsReferencedBook(t *testing.T) {
	env := setupTestCollection(t, ReadPagesClamp)
	env.provision(t, "x")
	ctx := context.Background()

	_, err := env.svc.AddBook(ctx, "x", addRequest("g1", "T", 100))
	require.NoError(t, err)
	_, err = env.svc.Like(ctx, "x", "g1")
	require.NoError(t, err)
	_, err = env.svc.Unlike(ctx, "x", "g1")
	require.NoError(t, err)

	book := env.book(t, "g1")
	assert.Equal(t, 1, book.ReferenceCount)
	assert.Equal(t, 0, book.LikeCount)
}

func TestSaveProgress_Policies(t *testing.T) {
	tests := []struct {
		name    string
		policy  ReadPagesPolicy
		pages   int
		want    int
		wantErr *domainerrors.Error
	}{
		{"clamp within range", ReadPagesClamp, 50, 50, nil},
		{"clamp at page count", ReadPagesClamp, 100, 100, nil},
		{"clamp beyond page count", ReadPagesClamp, 150, 100, nil},
		{"reject beyond page count", ReadPagesReject, 150, 0, domainerrors.ErrValidation},
		{"reject within range", ReadPagesReject, 99, 99, nil},
		{"negative always rejected", ReadPagesClamp, -1, 0, domainerrors.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestCollection(t, tt.policy)
			env.provision(t, "x")
			ctx := context.Background()

			_, err := env.svc.AddBook(ctx, "x", addRequest("g1", "T", 100))
			require.NoError(t, err)

			res, err := env.svc.SaveProgress(ctx, "x", "g1", tt.pages)
			if tt.wantErr != nil {
				assert.True(t, domainerrors.Is(err, tt.wantErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "g1", res.ExternalID)
			assert.Equal(t, tt.want, res.ReadPages)

			views, err := env.svc.ListCollection(ctx, "x")
			require.NoError(t, err)
			assert.Equal(t, tt.want, views[0].ReadPages)
		})
	}
}

func TestSaveProgress_UnknownPageCount(t *testing.T) {
	env := setupTestCollection(t, ReadPagesReject)
	env.provision(t, "x")
	ctx := context.Background()

	_, err := env.svc.AddBook(ctx, "x", addRequest("g1", "T", 0))
	require.NoError(t, err)

	res, err := env.svc.SaveProgress(ctx, "x", "g1", 5000)
	require.NoError(t, err)
	assert.Equal(t, 5000, res.ReadPages)
}

func TestSaveProgress_NotMember(t *testing.T) {
	env := setupTestCollection(t, ReadPagesClamp)
	env.provision(t, "x", "y")
	ctx := context.Background()

	_, err := env.svc.AddBook(ctx, "x", addRequest("g1", "T", 100))
	require.NoError(t, err)

	_, err = env.svc.SaveProgress(ctx, "y", "g1", 10)
	require.Error(t, err)
	var domainErr *domainerrors.Error
	require.True(t, domainerrors.As(err, &domainErr))
	assert.Equal(t, domainerrors.CodeNotMember, domainErr.Code)
	assert.Equal(t, 409, domainErr.HTTPStatus())

	_, err = env.svc.SaveProgress(ctx, "x", "unknown", 10)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))
}

func TestListCollection_InsertionOrder(t *testing.T) {
	env := setupTestCollection(t, ReadPagesClamp)
	env.provision(t, "x")
	ctx := context.Background()

	for _, externalID := range []string{"g3", "g1", "g2"} {
		_, err := env.svc.AddBook(ctx, "x", addRequest(externalID, "Book "+externalID, 100))
		require.NoError(t, err)
	}
	_, err := env.svc.Like(ctx, "x", "g1")
	require.NoError(t, err)

	views, err := env.svc.ListCollection(ctx, "x")
	require.NoError(t, err)
	require.Len(t, views, 3)
	assert.Equal(t, "g3", views[0].ExternalID)
	assert.Equal(t, "g1", views[1].ExternalID)
	assert.Equal(t, "g2", views[2].ExternalID)
	assert.True(t, views[1].LikeStatus)
	assert.False(t, views[0].LikeStatus)
}

func TestListCollection_EmptyAndMissing(t *testing.T) {
	env := setupTestCollection(t, ReadPagesClamp)
	env.provision(t, "x")

	views, err := env.svc.ListCollection(context.Background(), "x")
	require.NoError(t, err)
	assert.Empty(t, views)
	assert.NotNil(t, views)

	_, err = env.svc.ListCollection(context.Background(), "ghost")
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))
}

func TestFetchExternal_PersonalFlags(t *testing.T) {
	env := setupTestCollection(t, ReadPagesClamp, catalogRecord("g1", "Dune", 412))
	env.provision(t, "x")
	ctx := context.Background()

	_, err := env.svc.AddBook(ctx, "x", AddBookRequest{ExternalID: "g1"})
	require.NoError(t, err)
	_, err = env.svc.SaveProgress(ctx, "x", "g1", 12)
	require.NoError(t, err)

	withAccount, err := env.svc.FetchExternal(ctx, "g1", "x")
	require.NoError(t, err)
	assert.True(t, withAccount.ReadStatus)
	assert.Equal(t, 12, withAccount.ReadPages)
	assert.NotEmpty(t, withAccount.ID)

	anonymous, err := env.svc.FetchExternal(ctx, "g1", "")
	require.NoError(t, err)
	assert.False(t, anonymous.ReadStatus)
	assert.Equal(t, 0, anonymous.ReadPages)

	// Every call reaches the catalog.
	assert.Equal(t, int32(3), env.catalog.fetches.Load())
}

func TestFetchExternal_NeverCreatesBook(t *testing.T) {
	env := setupTestCollection(t, ReadPagesClamp, catalogRecord("g1", "Dune", 412))

	view, err := env.svc.FetchExternal(context.Background(), "g1", "")
	require.NoError(t, err)
	assert.Equal(t, "Dune", view.Title)
	env.bookGone(t, "g1")

	_, err = env.svc.FetchExternal(context.Background(), "g404", "")
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))
}

func TestFetchExternal_UpstreamFailure(t *testing.T) {
	env := setupTestCollection(t, ReadPagesClamp)
	env.catalog.err = domainerrors.Upstream(errInjected, "catalog fetch failed")

	_, err := env.svc.FetchExternal(context.Background(), "g1", "")
	assert.True(t, domainerrors.Is(err, domainerrors.ErrUpstream))
}

func TestTopBooks(t *testing.T) {
	env := setupTestCollection(t, ReadPagesClamp)
	env.provision(t, "x", "y", "z")
	ctx := context.Background()

	for _, accountID := range []string{"x", "y", "z"} {
		_, err := env.svc.AddBook(ctx, accountID, addRequest("popular", "Popular", 100))
		require.NoError(t, err)
	}
	_, err := env.svc.AddBook(ctx, "x", addRequest("niche", "Niche", 100))
	require.NoError(t, err)
	_, err = env.svc.AddBook(ctx, "x", addRequest("other", "Other", 100))
	require.NoError(t, err)
	for _, accountID := range []string{"y", "z"} {
		_, err := env.svc.Like(ctx, accountID, "niche")
		require.NoError(t, err)
	}

	top, err := env.svc.TopBooks(ctx, 0)
	require.NoError(t, err)
	require.Len(t, top.TopReferenced, DefaultTopBooks)
	assert.Equal(t, "popular", top.TopReferenced[0].ExternalID)
	require.NotEmpty(t, top.TopLiked)
	assert.Equal(t, "niche", top.TopLiked[0].ExternalID)

	top, err = env.svc.TopBooks(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, top.TopReferenced, 1)
}

func TestSearchCatalog(t *testing.T) {
	env := setupTestCollection(t, ReadPagesClamp, catalogRecord("g1", "Dune", 412))
	ctx := context.Background()

	page, err := env.svc.SearchCatalog(ctx, "  dune  ", 0)
	require.NoError(t, err)
	assert.Equal(t, "dune", page.Query)
	assert.Equal(t, 1, page.Page)
	assert.Len(t, page.Results, 1)

	_, err = env.svc.SearchCatalog(ctx, "   ", 1)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation))

	_, err = env.svc.SearchCatalog(ctx, "dune", -2)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation))
	assert.Equal(t, int32(1), env.catalog.searches.Load())
}

func TestCounterConservation(t *testing.T) {
	env := setupTestCollection(t, ReadPagesClamp)
	accounts := []string{"a", "b", "c"}
	env.provision(t, accounts...)
	ctx := context.Background()

	var (
		mu        sync.Mutex
		succeeded int
		failures  []error
	)
	record := func(_ *domain.BookView, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err == nil {
			succeeded++
			return
		}
		failures = append(failures, err)
	}

	// Each account works through the same sequence concurrently.
	var wg sync.WaitGroup
	for _, accountID := range accounts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for round := range 5 {
				for _, externalID := range []string{"g1", "g2"} {
					record(env.svc.AddBook(ctx, accountID, addRequest(externalID, "T", 100)))
					record(env.svc.Like(ctx, accountID, externalID))
					if round%2 == 0 {
						record(env.svc.RemoveBook(ctx, accountID, externalID))
					}
					if round%3 == 0 {
						record(env.svc.Unlike(ctx, accountID, externalID))
					}
				}
			}
		}()
	}
	wg.Wait()

	// Only a lost retry after a concurrent delete may fail.
	for _, err := range failures {
		assert.True(t, domainerrors.Is(err, domainerrors.ErrConflict), "unexpected failure: %v", err)
	}
	assert.Greater(t, succeeded, len(failures))

	books, err := env.store.ListBooks(ctx)
	require.NoError(t, err)
	for _, book := range books {
		members, likes := 0, 0
		for _, accountID := range accounts {
			coll, err := env.store.GetCollection(ctx, accountID)
			require.NoError(t, err)
			if _, ok := coll.Entry(book.ID); ok {
				members++
			}
			if coll.IsLiked(book.ID) {
				likes++
			}
		}
		assert.Equal(t, members, book.ReferenceCount, "reference count of %s", book.ExternalID)
		assert.Equal(t, likes, book.LikeCount, "like count of %s", book.ExternalID)
		assert.False(t, book.Unreferenced(), "unreferenced book %s left behind", book.ExternalID)
	}
}

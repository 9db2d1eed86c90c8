package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/ablbsk/bookworm-api/internal/errors"
)

func TestAddBook_IncrementFailureRemovesMembership(t *testing.T) {
	env := setupTestCollection(t, ReadPagesClamp)
	env.provision(t, "x")
	ctx := context.Background()

	env.faulty.failNext("IncrementReference", 1)
	_, err := env.svc.AddBook(ctx, "x", addRequest("g1", "T", 100))
	require.Error(t, err)
	assert.ErrorIs(t, err, errInjected)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrInternal))

	views, err := env.svc.ListCollection(ctx, "x")
	require.NoError(t, err)
	assert.Empty(t, views)
	env.bookGone(t, "g1")
}

func TestAddBook_IncrementFailureKeepsSharedBook(t *testing.T) {
	env := setupTestCollection(t, ReadPagesClamp)
	env.provision(t, "x", "y")
	ctx := context.Background()

	_, err := env.svc.AddBook(ctx, "x", addRequest("g1", "T", 100))
	require.NoError(t, err)

	env.faulty.failNext("IncrementReference", 1)
	_, err = env.svc.AddBook(ctx, "y", addRequest("g1", "T", 100))
	require.Error(t, err)

	assert.Equal(t, 1, env.book(t, "g1").ReferenceCount)
	coll, err := env.store.GetCollection(ctx, "y")
	require.NoError(t, err)
	assert.Empty(t, coll.Entries)
}

func TestRemoveBook_IncrementFailureRestoresEntry(t *testing.T) {
	env := setupTestCollection(t, ReadPagesClamp)
	env.provision(t, "x")
	ctx := context.Background()

	_, err := env.svc.AddBook(ctx, "x", addRequest("g1", "T", 100))
	require.NoError(t, err)
	_, err = env.svc.AddBook(ctx, "x", addRequest("g2", "T2", 100))
	require.NoError(t, err)
	_, err = env.svc.SaveProgress(ctx, "x", "g1", 33)
	require.NoError(t, err)

	env.faulty.failNext("IncrementReference", 1)
	_, err = env.svc.RemoveBook(ctx, "x", "g1")
	require.Error(t, err)

	views, err := env.svc.ListCollection(ctx, "x")
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "g1", views[0].ExternalID, "restored entry keeps its position")
	assert.Equal(t, 33, views[0].ReadPages)
	assert.Equal(t, 1, env.book(t, "g1").ReferenceCount)
}

func TestLike_IncrementFailureRemovesLike(t *testing.T) {
	env := setupTestCollection(t, ReadPagesClamp)
	env.provision(t, "x")
	ctx := context.Background()

	_, err := env.svc.AddBook(ctx, "x", addRequest("g1", "T", 100))
	require.NoError(t, err)

	env.faulty.failNext("IncrementLike", 1)
	_, err = env.svc.Like(ctx, "x", "g1")
	require.Error(t, err)

	liked, err := env.store.IsLiked(ctx, "x", env.book(t, "g1").ID)
	require.NoError(t, err)
	assert.False(t, liked)
	assert.Equal(t, 0, env.book(t, "g1").LikeCount)
}

func TestUnlike_IncrementFailureRestoresLike(t *testing.T) {
	env := setupTestCollection(t, ReadPagesClamp, catalogRecord("g1", "Dune", 412))
	env.provision(t, "x")
	ctx := context.Background()

	_, err := env.svc.Like(ctx, "x", "g1")
	require.NoError(t, err)

	env.faulty.failNext("IncrementLike", 1)
	_, err = env.svc.Unlike(ctx, "x", "g1")
	require.Error(t, err)

	book := env.book(t, "g1")
	assert.Equal(t, 1, book.LikeCount)
	liked, err := env.store.IsLiked(ctx, "x", book.ID)
	require.NoError(t, err)
	assert.True(t, liked)
}

func TestRemoveBook_FailedDeleteLeftForSweeper(t *testing.T) {
	env := setupTestCollection(t, ReadPagesClamp)
	env.provision(t, "x")
	ctx := context.Background()

	_, err := env.svc.AddBook(ctx, "x", addRequest("g1", "T", 100))
	require.NoError(t, err)

	env.faulty.failNext("DeleteIfUnreferenced", 1)
	view, err := env.svc.RemoveBook(ctx, "x", "g1")
	require.NoError(t, err)
	assert.False(t, view.ReadStatus)

	book := env.book(t, "g1")
	assert.True(t, book.Unreferenced())
}

func TestAddBook_RetriesWhenBookVanishes(t *testing.T) {
	env := setupTestCollection(t, ReadPagesClamp)
	env.provision(t, "x")
	ctx := context.Background()

	var firstID string
	env.faulty.before("AddMembership", func() {
		book := env.book(t, "g1")
		firstID = book.ID
		deleted, err := env.store.DeleteIfUnreferenced(ctx, book.ID)
		require.NoError(t, err)
		require.True(t, deleted)
	})

	view, err := env.svc.AddBook(ctx, "x", addRequest("g1", "T", 100))
	require.NoError(t, err)
	assert.NotEqual(t, firstID, view.ID, "the book is cached again")
	assert.Equal(t, 1, env.book(t, "g1").ReferenceCount)
}

func TestAddBook_ConflictWhenBookVanishesTwice(t *testing.T) {
	env := setupTestCollection(t, ReadPagesClamp)
	env.provision(t, "x")
	ctx := context.Background()

	var vanish func()
	vanish = func() {
		book := env.book(t, "g1")
		_, err := env.store.DeleteIfUnreferenced(ctx, book.ID)
		require.NoError(t, err)
		env.faulty.before("AddMembership", vanish)
	}
	env.faulty.before("AddMembership", vanish)

	_, err := env.svc.AddBook(ctx, "x", addRequest("g1", "T", 100))
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrConflict))
}

func TestLike_RetriesWhenBookVanishes(t *testing.T) {
	env := setupTestCollection(t, ReadPagesClamp, catalogRecord("g1", "Dune", 412))
	env.provision(t, "x")
	ctx := context.Background()

	env.faulty.before("AddLike", func() {
		_, err := env.store.DeleteIfUnreferenced(ctx, env.book(t, "g1").ID)
		require.NoError(t, err)
	})

	view, err := env.svc.Like(ctx, "x", "g1")
	require.NoError(t, err)
	assert.True(t, view.LikeStatus)
	assert.Equal(t, 1, env.book(t, "g1").LikeCount)
	assert.Equal(t, int32(2), env.catalog.fetches.Load())
}

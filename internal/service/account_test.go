package service

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/ablbsk/bookworm-api/internal/errors"
)

func TestAccountService_Provision(t *testing.T) {
	env := setupTestCollection(t, ReadPagesClamp)
	accounts := NewAccountService(env.store, slog.New(slog.DiscardHandler))
	ctx := context.Background()

	coll, created, err := accounts.Provision(ctx, "x")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "x", coll.AccountID)

	_, created, err = accounts.Provision(ctx, "x")
	require.NoError(t, err)
	assert.False(t, created)

	_, _, err = accounts.Provision(ctx, "")
	assert.True(t, domainerrors.Is(err, domainerrors.ErrUnauthorized))
}

func TestAccountService_Summary(t *testing.T) {
	env := setupTestCollection(t, ReadPagesClamp)
	accounts := NewAccountService(env.store, slog.New(slog.DiscardHandler))
	ctx := context.Background()

	_, _, err := accounts.Provision(ctx, "x")
	require.NoError(t, err)

	for _, externalID := range []string{"g1", "g2"} {
		_, err := env.svc.AddBook(ctx, "x", addRequest(externalID, "T", 100))
		require.NoError(t, err)
	}
	_, err = env.svc.SaveProgress(ctx, "x", "g1", 30)
	require.NoError(t, err)
	_, err = env.svc.SaveProgress(ctx, "x", "g2", 12)
	require.NoError(t, err)
	_, err = env.svc.Like(ctx, "x", "g2")
	require.NoError(t, err)

	summary, err := accounts.Summary(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, "x", summary.AccountID)
	assert.Equal(t, 2, summary.CollectionSize)
	assert.Equal(t, 1, summary.LikedCount)
	assert.Equal(t, 42, summary.PagesRead)
	assert.False(t, summary.Since.IsZero())

	_, err = accounts.Summary(ctx, "ghost")
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))
}

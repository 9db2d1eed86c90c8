package service

import (
	"context"
	"log/slog"

	"github.com/ablbsk/bookworm-api/internal/domain"
	"github.com/ablbsk/bookworm-api/internal/store"
)

// AccountService provisions collections and reports on them.
type AccountService struct {
	collections store.CollectionStore
	logger      *slog.Logger
}

// NewAccountService creates an account service.
func NewAccountService(collections store.CollectionStore, logger *slog.Logger) *AccountService {
	return &AccountService{collections: collections, logger: logger}
}

// Provision creates the account's collection. It is idempotent: created is
// false when the collection already existed.
func (s *AccountService) Provision(ctx context.Context, accountID string) (*domain.Collection, bool, error) {
	if err := requireAccount(accountID); err != nil {
		return nil, false, err
	}
	coll, created, err := s.collections.CreateCollection(ctx, accountID)
	if err != nil {
		return nil, false, storeError(err, "")
	}
	if created {
		s.logger.Info("collection provisioned", "account_id", accountID)
	}
	return coll, created, nil
}

// Summary returns collection size, likes and pages read for the account.
func (s *AccountService) Summary(ctx context.Context, accountID string) (*domain.AccountSummary, error) {
	if err := requireAccount(accountID); err != nil {
		return nil, err
	}
	coll, err := s.collections.GetCollection(ctx, accountID)
	if err != nil {
		return nil, storeError(err, "")
	}
	return &domain.AccountSummary{
		AccountID:      coll.AccountID,
		CollectionSize: len(coll.Entries),
		LikedCount:     len(coll.Liked),
		PagesRead:      coll.PagesRead(),
		Since:          coll.CreatedAt,
	}, nil
}

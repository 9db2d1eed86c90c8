package service

import (
	"context"
	"errors"

	domainerrors "github.com/ablbsk/bookworm-api/internal/errors"
	"github.com/ablbsk/bookworm-api/internal/store"
)

// storeError converts a store failure into a coded domain error. Errors that
// already carry a code pass through unchanged.
func storeError(err error, externalID string) error {
	var domainErr *domainerrors.Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &domainErr):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, store.ErrBookNotFound):
		return domainerrors.NotFoundf("book %s not found", externalID).WithCause(err)
	case errors.Is(err, store.ErrCollectionNotFound):
		return domainerrors.NotFound("collection not found").WithCause(err)
	case errors.Is(err, store.ErrNotMember):
		return domainerrors.NotMember("book is not in the collection").WithCause(err)
	case errors.Is(err, store.ErrCounterUnderflow):
		return domainerrors.Conflictf("book %s counters changed concurrently", externalID).WithCause(err)
	default:
		return domainerrors.Wrap(err, domainerrors.CodeInternal, "storage failure")
	}
}

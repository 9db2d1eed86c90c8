// Package catalog defines the external catalog contract used by the services,
// plus a persistent search cache that can sit in front of any implementation.
package catalog

import (
	"context"

	"github.com/ablbsk/bookworm-api/internal/domain"
)

// Catalog queries the external bibliographic source.
type Catalog interface {
	// Search returns one page of summaries for a free-text query.
	Search(ctx context.Context, query string, page int) (*domain.CatalogSearchPage, error)
	// Fetch returns the full normalized record for externalID.
	Fetch(ctx context.Context, externalID string) (*domain.CatalogRecord, error)
}

package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/ablbsk/bookworm-api/internal/auth"
	"github.com/ablbsk/bookworm-api/internal/domain"
)

func (s *Server) registerCatalogRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "searchCatalog",
		Method:      http.MethodGet,
		Path:        "/api/v1/catalog/search",
		Summary:     "Search catalog",
		Description: "Runs a paged search against the external catalog",
		Tags:        []string{"Catalog"},
	}, s.handleSearchCatalog)

	huma.Register(s.api, huma.Operation{
		OperationID: "fetchExternal",
		Method:      http.MethodGet,
		Path:        "/api/v1/catalog/books/{externalId}",
		Summary:     "Fetch catalog book",
		Description: "Returns the catalog's record for a book. Authenticated callers also get their read and like status.",
		Tags:        []string{"Catalog"},
	}, s.handleFetchExternal)
}

// SearchCatalogInput contains parameters for a catalog search.
type SearchCatalogInput struct {
	Query string `query:"q" doc:"Search terms"`
	Page  int    `query:"page" default:"1" doc:"Result page, starting at 1"`
}

// SearchCatalogOutput wraps one page of catalog results for Huma.
type SearchCatalogOutput struct {
	Body domain.CatalogSearchPage
}

func (s *Server) handleSearchCatalog(ctx context.Context, input *SearchCatalogInput) (*SearchCatalogOutput, error) {
	page, err := s.services.Collection.SearchCatalog(ctx, input.Query, input.Page)
	if err != nil {
		return nil, err
	}
	return &SearchCatalogOutput{Body: *page}, nil
}

func (s *Server) handleFetchExternal(ctx context.Context, input *BookInput) (*BookViewOutput, error) {
	view, err := s.services.Collection.FetchExternal(ctx, input.ExternalID, auth.AccountIDFrom(ctx))
	if err != nil {
		return nil, err
	}
	return &BookViewOutput{Body: *view}, nil
}

package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/ablbsk/bookworm-api/internal/domain"
	domainerrors "github.com/ablbsk/bookworm-api/internal/errors"
	"github.com/ablbsk/bookworm-api/internal/search"
)

func (s *Server) registerBookRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "topBooks",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/top",
		Summary:     "Top books",
		Description: "Returns the most liked and the most collected books",
		Tags:        []string{"Books"},
	}, s.handleTopBooks)

	huma.Register(s.api, huma.Operation{
		OperationID: "searchLibrary",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/search",
		Summary:     "Search library",
		Description: "Full-text search over books cached by any collection",
		Tags:        []string{"Books"},
	}, s.handleSearchLibrary)
}

// TopBooksInput contains parameters for the rankings.
type TopBooksInput struct {
	N int `query:"n" default:"2" minimum:"0" maximum:"100" doc:"Books per ranking"`
}

// TopBooksOutput wraps the rankings for Huma.
type TopBooksOutput struct {
	Body domain.TopBooks
}

// SearchLibraryInput contains parameters for a library search.
type SearchLibraryInput struct {
	Query   string `query:"q" doc:"Search terms"`
	Format  string `query:"format" doc:"Only books in this format"`
	MinYear int    `query:"min_year" doc:"Earliest publication year"`
	MaxYear int    `query:"max_year" doc:"Latest publication year"`
	Limit   int    `query:"limit" default:"20" minimum:"1" maximum:"100" doc:"Maximum hits"`
	Offset  int    `query:"offset" default:"0" minimum:"0" doc:"Hits to skip"`
}

// SearchLibraryOutput wraps the search result for Huma.
type SearchLibraryOutput struct {
	Body search.Result
}

func (s *Server) handleTopBooks(ctx context.Context, input *TopBooksInput) (*TopBooksOutput, error) {
	top, err := s.services.Collection.TopBooks(ctx, input.N)
	if err != nil {
		return nil, err
	}
	return &TopBooksOutput{Body: *top}, nil
}

func (s *Server) handleSearchLibrary(ctx context.Context, input *SearchLibraryInput) (*SearchLibraryOutput, error) {
	if s.services.Search == nil {
		return nil, domainerrors.Internal("library search is not configured")
	}

	res, err := s.services.Search.Search(ctx, search.Params{
		Query:   input.Query,
		Format:  input.Format,
		MinYear: input.MinYear,
		MaxYear: input.MaxYear,
		Limit:   input.Limit,
		Offset:  input.Offset,
	})
	if err != nil {
		return nil, err
	}
	return &SearchLibraryOutput{Body: *res}, nil
}

package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/ablbsk/bookworm-api/internal/domain"
	"github.com/ablbsk/bookworm-api/internal/service"
)

func (s *Server) registerCollectionRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listCollection",
		Method:      http.MethodGet,
		Path:        "/api/v1/collection",
		Summary:     "List collection",
		Description: "Returns the books in the account's collection in the order they were added",
		Tags:        []string{"Collection"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListCollection)

	huma.Register(s.api, huma.Operation{
		OperationID: "provisionCollection",
		Method:      http.MethodPost,
		Path:        "/api/v1/collection",
		Summary:     "Provision collection",
		Description: "Creates the account's collection; succeeds if it already exists",
		Tags:        []string{"Collection"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleProvisionCollection)

	huma.Register(s.api, huma.Operation{
		OperationID: "addBook",
		Method:      http.MethodPost,
		Path:        "/api/v1/collection/books",
		Summary:     "Add book",
		Description: "Adds a book to the collection, caching it from the request or the catalog",
		Tags:        []string{"Collection"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleAddBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "removeBook",
		Method:      http.MethodDelete,
		Path:        "/api/v1/collection/books/{externalId}",
		Summary:     "Remove book",
		Description: "Removes a book from the collection; removing an absent book succeeds",
		Tags:        []string{"Collection"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleRemoveBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "saveProgress",
		Method:      http.MethodPut,
		Path:        "/api/v1/collection/books/{externalId}/progress",
		Summary:     "Save reading progress",
		Description: "Stores the number of pages read for a book in the collection",
		Tags:        []string{"Collection"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleSaveProgress)

	huma.Register(s.api, huma.Operation{
		OperationID: "likeBook",
		Method:      http.MethodPut,
		Path:        "/api/v1/likes/{externalId}",
		Summary:     "Like book",
		Description: "Likes a book, caching it from the catalog if needed",
		Tags:        []string{"Likes"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleLike)

	huma.Register(s.api, huma.Operation{
		OperationID: "unlikeBook",
		Method:      http.MethodDelete,
		Path:        "/api/v1/likes/{externalId}",
		Summary:     "Unlike book",
		Description: "Removes the account's like; unliking a book that is not liked succeeds",
		Tags:        []string{"Likes"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUnlike)
}

// === DTOs ===

// CollectionResponse contains the account's books.
type CollectionResponse struct {
	Books []domain.BookView `json:"books" doc:"Books in insertion order"`
}

// CollectionOutput wraps the collection response for Huma.
type CollectionOutput struct {
	Body CollectionResponse
}

// ProvisionResponse reports the provisioned collection.
type ProvisionResponse struct {
	AccountID string `json:"account_id" doc:"Account the collection belongs to"`
	Created   bool   `json:"created" doc:"False when the collection already existed"`
}

// ProvisionOutput wraps the provision response for Huma.
type ProvisionOutput struct {
	Body ProvisionResponse
}

// AddBookInput wraps the add book request for Huma.
type AddBookInput struct {
	Body service.AddBookRequest
}

// BookInput identifies a book by catalog id.
type BookInput struct {
	ExternalID string `path:"externalId" doc:"Catalog book id"`
}

// BookViewOutput wraps a personal book view for Huma.
type BookViewOutput struct {
	Body domain.BookView
}

// ProgressRequest is the request body for saving progress.
type ProgressRequest struct {
	ReadPages int `json:"read_pages" doc:"Pages read so far"`
}

// ProgressInput wraps the progress request for Huma.
type ProgressInput struct {
	ExternalID string `path:"externalId" doc:"Catalog book id"`
	Body       ProgressRequest
}

// ProgressOutput wraps the stored progress for Huma.
type ProgressOutput struct {
	Body service.ProgressResult
}

// === Handlers ===

func (s *Server) handleListCollection(ctx context.Context, _ *struct{}) (*CollectionOutput, error) {
	accountID, err := GetAccountID(ctx)
	if err != nil {
		return nil, err
	}

	books, err := s.services.Collection.ListCollection(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return &CollectionOutput{Body: CollectionResponse{Books: books}}, nil
}

func (s *Server) handleProvisionCollection(ctx context.Context, _ *struct{}) (*ProvisionOutput, error) {
	accountID, err := GetAccountID(ctx)
	if err != nil {
		return nil, err
	}

	coll, created, err := s.services.Account.Provision(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return &ProvisionOutput{Body: ProvisionResponse{AccountID: coll.AccountID, Created: created}}, nil
}

func (s *Server) handleAddBook(ctx context.Context, input *AddBookInput) (*BookViewOutput, error) {
	accountID, err := GetAccountID(ctx)
	if err != nil {
		return nil, err
	}

	view, err := s.services.Collection.AddBook(ctx, accountID, input.Body)
	if err != nil {
		return nil, err
	}
	return &BookViewOutput{Body: *view}, nil
}

func (s *Server) handleRemoveBook(ctx context.Context, input *BookInput) (*BookViewOutput, error) {
	accountID, err := GetAccountID(ctx)
	if err != nil {
		return nil, err
	}

	view, err := s.services.Collection.RemoveBook(ctx, accountID, input.ExternalID)
	if err != nil {
		return nil, err
	}
	return &BookViewOutput{Body: *view}, nil
}

func (s *Server) handleSaveProgress(ctx context.Context, input *ProgressInput) (*ProgressOutput, error) {
	accountID, err := GetAccountID(ctx)
	if err != nil {
		return nil, err
	}

	res, err := s.services.Collection.SaveProgress(ctx, accountID, input.ExternalID, input.Body.ReadPages)
	if err != nil {
		return nil, err
	}
	return &ProgressOutput{Body: *res}, nil
}

func (s *Server) handleLike(ctx context.Context, input *BookInput) (*BookViewOutput, error) {
	accountID, err := GetAccountID(ctx)
	if err != nil {
		return nil, err
	}

	view, err := s.services.Collection.Like(ctx, accountID, input.ExternalID)
	if err != nil {
		return nil, err
	}
	return &BookViewOutput{Body: *view}, nil
}

func (s *Server) handleUnlike(ctx context.Context, input *BookInput) (*BookViewOutput, error) {
	accountID, err := GetAccountID(ctx)
	if err != nil {
		return nil, err
	}

	view, err := s.services.Collection.Unlike(ctx, accountID, input.ExternalID)
	if err != nil {
		return nil, err
	}
	return &BookViewOutput{Body: *view}, nil
}

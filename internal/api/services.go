package api

import (
	"github.com/ablbsk/bookworm-api/internal/service"
	"github.com/ablbsk/bookworm-api/internal/store"
)

// Services groups the business logic used by the API server.
type Services struct {
	Collection *service.CollectionService
	Account    *service.AccountService
	Search     *service.SearchService // Local library search, optional
	Store      store.BookStore        // Read probe for health checks
}

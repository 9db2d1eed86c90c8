package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/ablbsk/bookworm-api/internal/domain"
)

func (s *Server) registerAccountRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getAccount",
		Method:      http.MethodGet,
		Path:        "/api/v1/account",
		Summary:     "Account summary",
		Description: "Returns collection size, liked books and pages read for the account",
		Tags:        []string{"Account"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetAccount)
}

// AccountOutput wraps the account summary for Huma.
type AccountOutput struct {
	Body domain.AccountSummary
}

func (s *Server) handleGetAccount(ctx context.Context, _ *struct{}) (*AccountOutput, error) {
	accountID, err := GetAccountID(ctx)
	if err != nil {
		return nil, err
	}

	summary, err := s.services.Account.Summary(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return &AccountOutput{Body: *summary}, nil
}

package api

import (
	"strings"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/ablbsk/bookworm-api/internal/errors"
	"github.com/ablbsk/bookworm-api/internal/http/response"
)

// EnvelopeTransformer wraps every huma response body in the versioned
// envelope: {"v":1,"success":true,"data":...} for results and
// {"v":1,"success":false,"error":...,"code":...,"details":...} for errors.
func EnvelopeTransformer(_ huma.Context, status string, v any) (any, error) {
	switch body := v.(type) {
	case response.Envelope:
		return body, nil
	case *APIError:
		return response.Fail(domainerrors.Code(body.Code), body.Message, body.Details), nil
	case *domainerrors.Error:
		return response.Fail(body.Code, body.Message, body.Details), nil
	case *huma.ErrorModel:
		return response.Fail(domainerrors.Code(statusToCode(body.Status)), body.Detail, nil), nil
	}

	if strings.HasPrefix(status, "4") || strings.HasPrefix(status, "5") {
		if err, ok := v.(error); ok {
			return response.Fail(domainerrors.CodeInternal, err.Error(), nil), nil
		}
	}
	return response.Ok(v), nil
}

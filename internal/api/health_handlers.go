package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerHealthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns server health status with component checks",
		Tags:        []string{"Health"},
	}, s.handleHealthCheck)
}

// ComponentHealth describes the health of a single component.
type ComponentHealth struct {
	Status  string `json:"status" doc:"Component status: healthy, degraded, or unhealthy"`
	Latency string `json:"latency,omitempty" doc:"Response time for this component"`
	Message string `json:"message,omitempty" doc:"Additional status information"`
}

// HealthResponse contains health check data in API responses.
type HealthResponse struct {
	Status     string                     `json:"status" doc:"Overall status: healthy, degraded, or unhealthy"`
	Components map[string]ComponentHealth `json:"components" doc:"Individual component statuses"`
}

// HealthOutput wraps the health response for Huma.
type HealthOutput struct {
	Body HealthResponse
}

func (s *Server) handleHealthCheck(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
	components := map[string]ComponentHealth{
		"database": s.probe(ctx, "database", s.pingDatabase),
		"search":   s.probe(ctx, "search index", s.pingSearch),
	}

	overall := "healthy"
	for _, c := range components {
		switch {
		case c.Status == "unhealthy":
			overall = "unhealthy"
		case c.Status == "degraded" && overall == "healthy":
			overall = "degraded"
		}
	}

	return &HealthOutput{Body: HealthResponse{Status: overall, Components: components}}, nil
}

// errNotConfigured marks a component the server was started without.
var errNotConfigured = errors.New("not configured")

// probe times ping and turns its outcome into a component status.
func (s *Server) probe(ctx context.Context, name string, ping func(context.Context) (string, error)) ComponentHealth {
	start := time.Now()
	msg, err := ping(ctx)
	latency := time.Since(start).String()

	switch {
	case errors.Is(err, errNotConfigured):
		return ComponentHealth{Status: "degraded", Message: name + " not configured"}
	case err != nil:
		s.logger.Warn("health probe failed", "component", name, "error", err)
		return ComponentHealth{Status: "unhealthy", Latency: latency, Message: name + " unreachable"}
	}
	return ComponentHealth{Status: "healthy", Latency: latency, Message: msg}
}

// pingDatabase runs the cheapest ranked read the store offers.
func (s *Server) pingDatabase(ctx context.Context) (string, error) {
	if s.services == nil || s.services.Store == nil {
		return "", errNotConfigured
	}
	_, err := s.services.Store.TopByReferenceCount(ctx, 1)
	return "", err
}

func (s *Server) pingSearch(ctx context.Context) (string, error) {
	if s.services == nil || s.services.Search == nil {
		return "", errNotConfigured
	}
	docs, err := s.services.Search.DocumentCount(ctx)
	if err != nil {
		return "", err
	}
	return strconv.FormatUint(docs, 10) + " books indexed", nil
}

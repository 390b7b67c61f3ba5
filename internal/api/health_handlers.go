package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/tasteapp/taste-index/internal/ingest"
)

// Component health states.
const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
)

func (s *Server) registerHealthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns index health with per-component checks",
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

// healthCheck is one component probe. A failing critical component makes
// the index unhealthy; any other failure only degrades it.
type healthCheck struct {
	name     string
	critical bool
	run      func(ctx context.Context) ComponentHealth
}

func (s *Server) healthChecks() []healthCheck {
	return []healthCheck{
		{name: "store", critical: true, run: s.checkStore},
		{name: "search", critical: true, run: s.checkSearchIndex},
		{name: "ingest", run: s.checkIngest},
	}
}

func (s *Server) handleHealthCheck(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
	components := make(map[string]ComponentHealth)
	overall := statusHealthy

	for _, check := range s.healthChecks() {
		h := check.run(ctx)
		components[check.name] = h

		switch {
		case h.Status == statusUnhealthy && check.critical:
			overall = statusUnhealthy
		case h.Status != statusHealthy && overall == statusHealthy:
			overall = statusDegraded
		}
	}

	return &HealthOutput{
		Body: HealthResponse{
			Status:     overall,
			Components: components,
		},
	}, nil
}

// timed runs probe and records its latency on the result.
func timed(probe func() ComponentHealth) ComponentHealth {
	start := time.Now()
	h := probe()
	h.Latency = time.Since(start).String()
	return h
}

// checkStore verifies the index store answers.
func (s *Server) checkStore(ctx context.Context) ComponentHealth {
	if s.store == nil {
		return ComponentHealth{Status: statusUnhealthy, Message: "store not configured"}
	}

	return timed(func() ComponentHealth {
		if err := s.store.Ping(ctx); err != nil {
			return ComponentHealth{Status: statusUnhealthy, Message: "store unreachable"}
		}
		return ComponentHealth{Status: statusHealthy}
	})
}

// checkSearchIndex verifies the caption index is accessible. An empty index
// is healthy; a fresh index has no posts to hold.
func (s *Server) checkSearchIndex(_ context.Context) ComponentHealth {
	// Search is optional; the feeds work without it.
	if s.services == nil || s.services.Search == nil {
		return ComponentHealth{Status: statusDegraded, Message: "search service not configured"}
	}

	return timed(func() ComponentHealth {
		docCount, err := s.services.Search.DocumentCount()
		if err != nil {
			return ComponentHealth{Status: statusUnhealthy, Message: "search index unreachable"}
		}
		return ComponentHealth{
			Status:  statusHealthy,
			Message: strconv.FormatUint(docCount, 10) + " captions indexed",
		}
	})
}

// checkIngest reports the last fact the live feed delivered.
func (s *Server) checkIngest(ctx context.Context) ComponentHealth {
	if s.store == nil {
		return ComponentHealth{Status: statusDegraded, Message: "store not configured"}
	}

	return timed(func() ComponentHealth {
		last, err := s.store.GetCheckpoint(ctx, ingest.CheckpointName)
		if err != nil {
			return ComponentHealth{Status: statusDegraded, Message: "checkpoint unreadable"}
		}
		if last.IsZero() {
			return ComponentHealth{Status: statusHealthy, Message: "no feed deliveries yet"}
		}
		return ComponentHealth{Status: statusHealthy, Message: "last event " + last.String()}
	})
}

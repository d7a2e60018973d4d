package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/anshull-saxena/Cloud-Localization/internal/domain"
)

// Default routing thresholds.
const (
	DefaultConcurrencyThreshold = 10
	DefaultTokenLoadThreshold   = 50000
)

// Decision is the outcome of routing one request to an execution target.
type Decision struct {
	Infrastructure domain.Infrastructure `json:"infrastructure"`
	Reason         string                `json:"reason"`
	Concurrency    int                   `json:"currentConcurrency"`
	TokenLoad      int                   `json:"currentTokenLoad"`
	Timestamp      time.Time             `json:"timestamp"`
}

// Router decides the execution target per request from the current load.
type Router struct {
	tracker              *LoadTracker
	concurrencyThreshold int
	tokenLoadThreshold   int
	log                  *zap.Logger
}

// NewRouter creates a Router over the given tracker. Non-positive
// thresholds take the defaults.
func NewRouter(tracker *LoadTracker, concurrencyThreshold, tokenLoadThreshold int, log *zap.Logger) *Router {
	if concurrencyThreshold <= 0 {
		concurrencyThreshold = DefaultConcurrencyThreshold
	}
	if tokenLoadThreshold <= 0 {
		tokenLoadThreshold = DefaultTokenLoadThreshold
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Router{
		tracker:              tracker,
		concurrencyThreshold: concurrencyThreshold,
		tokenLoadThreshold:   tokenLoadThreshold,
		log:                  log,
	}
}

// Route picks VM when either the concurrency or the token-load threshold
// is exceeded, Serverless otherwise.
func (r *Router) Route() Decision {
	concurrency := r.tracker.Concurrency()
	tokenLoad := r.tracker.TokenLoad()

	d := Decision{
		Concurrency: concurrency,
		TokenLoad:   tokenLoad,
		Timestamp:   time.Now(),
	}
	switch {
	case concurrency > r.concurrencyThreshold:
		d.Infrastructure = domain.InfraVM
		d.Reason = fmt.Sprintf("concurrency %d exceeds threshold %d", concurrency, r.concurrencyThreshold)
	case tokenLoad > r.tokenLoadThreshold:
		d.Infrastructure = domain.InfraVM
		d.Reason = fmt.Sprintf("token load %d exceeds threshold %d", tokenLoad, r.tokenLoadThreshold)
	default:
		d.Infrastructure = domain.InfraServerless
		d.Reason = "low workload"
	}
	return d
}

// Execution records how one translation operation was placed and run.
type Execution struct {
	Decision       Decision              `json:"decision"`
	Infrastructure domain.Infrastructure `json:"infrastructure"`
	RequestID      string                `json:"requestId"`
}

// Execute registers the request with the load tracker, decides the
// execution target (Default when routing is disabled), runs op exactly
// once, and unregisters the request whether or not op succeeded.
func (r *Router) Execute(ctx context.Context, tokenCost int, routingEnabled bool, op func(context.Context) error) (Execution, error) {
	id := uuid.NewString()
	r.tracker.Register(id, tokenCost)
	defer r.tracker.Unregister(id)

	ex := Execution{RequestID: id}
	if routingEnabled {
		ex.Decision = r.Route()
		ex.Infrastructure = ex.Decision.Infrastructure
	} else {
		ex.Decision = Decision{
			Infrastructure: domain.InfraDefault,
			Reason:         "infrastructure routing disabled",
			Timestamp:      time.Now(),
		}
		ex.Infrastructure = domain.InfraDefault
	}

	return ex, op(ctx)
}

// Stats counts execution targets over a run.
type Stats struct {
	Total      int `json:"total"`
	VM         int `json:"vm"`
	Serverless int `json:"serverless"`
	Default    int `json:"default"`
}

// ComputeStats tallies executions by infrastructure in one pass.
func ComputeStats(executions []Execution) Stats {
	s := Stats{Total: len(executions)}
	for _, ex := range executions {
		switch ex.Infrastructure {
		case domain.InfraVM:
			s.VM++
		case domain.InfraServerless:
			s.Serverless++
		default:
			s.Default++
		}
	}
	return s
}

// WriteStats exports infrastructure-routing statistics as JSON at path.
func WriteStats(path string, executions []Execution) error {
	data, err := json.MarshalIndent(ComputeStats(executions), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal infrastructure stats: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write infrastructure stats: %w", err)
	}
	return nil
}

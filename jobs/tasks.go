package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskMarkerWarmup precomputes marker API payloads into the shared cache.
	TaskMarkerWarmup = "companymap:markers:warmup"
)

// Warmup scopes.
const (
	// ScopeMarkets warms the untouched sidebar plus one selection per named market.
	ScopeMarkets = "markets"
	// ScopeAll additionally warms every market crossed with each status.
	ScopeAll = "all"
)

// MarkerWarmupPayload selects how many sidebar combinations a warmup run covers.
type MarkerWarmupPayload struct {
	Scope string `json:"scope"`
}

// NewMarkerWarmupTask constructs an Asynq task.
func NewMarkerWarmupTask(scope string) (*asynq.Task, error) {
	data, err := json.Marshal(MarkerWarmupPayload{Scope: scope})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskMarkerWarmup, data), nil
}

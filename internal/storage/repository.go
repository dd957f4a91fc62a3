package storage

import (
	"context"
	"time"

	"gitlab.com/voxtel/api/call-transfer-reconciler/internal/model"
)

// CallFilter bounds one fetch of call records. Zero values mean
// unconstrained.
type CallFilter struct {
	Directions []string
	From       time.Time // inclusive lower bound on called_at
	To         time.Time // exclusive upper bound on called_at
	Limit      int
}

// CallRepo is the storage surface the batch runner needs for call records.
// The matching engine itself never touches storage; it operates on the
// collections these methods return.
type CallRepo interface {
	FetchCallsByFilter(ctx context.Context, filter CallFilter) ([]model.Call, error)
	SaveReconciledCalls(ctx context.Context, calls []model.Call) error
}

// AgentRepo resolves agent display data, used only to enrich reconciled
// records before persisting.
type AgentRepo interface {
	FetchAgentNameByExtension(ctx context.Context, extension string) (string, error)
	FetchAgentNamesByExtensions(ctx context.Context, extensions []string) (map[string]string, error)
}

var (
	_ CallRepo  = (*PostgresRepo)(nil)
	_ AgentRepo = (*PostgresRepo)(nil)
)

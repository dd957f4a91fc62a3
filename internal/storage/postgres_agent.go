package storage

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"gitlab.com/voxtel/api/call-transfer-reconciler/internal/apperrors"
	"gitlab.com/voxtel/api/call-transfer-reconciler/internal/model"
	"gitlab.com/voxtel/api/call-transfer-reconciler/internal/observer"
)

// FetchAgentNameByExtension returns the display name for a single agent
// extension. Returns ErrNotFound when the extension is unknown.
func (r *PostgresRepo) FetchAgentNameByExtension(ctx context.Context, extension string) (string, error) {
	if extension == "" {
		return "", apperrors.NewFatal(apperrors.ErrBadRequest, "extension is required")
	}

	var agent model.Agent
	start := time.Now()
	policy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	err := retryableOperation(ctx, policy, "fetch_agent", func() error {
		return r.db.WithContext(ctx).Where("extension = ?", extension).First(&agent).Error
	})
	observer.ObserveDbOperationDuration("fetch", "agent", time.Since(start), err)

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apperrors.ErrNotFound
		}
		return "", apperrors.NewRetryable(apperrors.ErrDatabase, "failed to fetch agent by extension: %v", err)
	}
	return agent.Name(), nil
}

// FetchAgentNamesByExtensions resolves display names for a set of
// extensions in one query. Unknown extensions are simply absent from the
// returned map.
func (r *PostgresRepo) FetchAgentNamesByExtensions(ctx context.Context, extensions []string) (map[string]string, error) {
	names := make(map[string]string, len(extensions))
	if len(extensions) == 0 {
		return names, nil
	}

	var agents []model.Agent
	start := time.Now()
	policy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	err := retryableOperation(ctx, policy, "fetch_agents", func() error {
		return r.db.WithContext(ctx).Where("extension IN ?", extensions).Find(&agents).Error
	})
	observer.ObserveDbOperationDuration("fetch", "agent", time.Since(start), err)

	if err != nil {
		return nil, apperrors.NewRetryable(apperrors.ErrDatabase, "failed to fetch agents by extensions: %v", err)
	}

	for i := range agents {
		names[agents[i].Extension] = agents[i].Name()
	}
	return names, nil
}

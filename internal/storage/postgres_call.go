package storage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"gitlab.com/voxtel/api/call-transfer-reconciler/internal/apperrors"
	"gitlab.com/voxtel/api/call-transfer-reconciler/internal/model"
	"gitlab.com/voxtel/api/call-transfer-reconciler/internal/observer"
	"gitlab.com/voxtel/api/call-transfer-reconciler/pkg/logger"
)

// reconciledColumns are the derived columns the reconciler is allowed to
// write back. Input columns are never touched.
var reconciledColumns = []string{
	"transfer_occurred",
	"transfer_queue_extension",
	"transfer_extension",
	"transfer_agent_name",
	"transfer_source_call_id",
	"updated_at",
}

// FetchCallsByFilter loads call records matching the filter, ordered by
// called_at ascending. Timestamps in the filter are compared against the
// called_at epoch column in seconds.
func (r *PostgresRepo) FetchCallsByFilter(ctx context.Context, filter CallFilter) ([]model.Call, error) {
	var calls []model.Call

	start := time.Now()
	policy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	err := retryableOperation(ctx, policy, "fetch_calls", func() error {
		query := r.db.WithContext(ctx).Model(&model.Call{})
		if len(filter.Directions) > 0 {
			query = query.Where("direction IN ?", filter.Directions)
		}
		if !filter.From.IsZero() {
			query = query.Where("called_at >= ?", filter.From.Unix())
		}
		if !filter.To.IsZero() {
			query = query.Where("called_at < ?", filter.To.Unix())
		}
		if filter.Limit > 0 {
			query = query.Limit(filter.Limit)
		}
		return query.Order("called_at asc").Find(&calls).Error
	})
	observer.ObserveDbOperationDuration("fetch", "call", time.Since(start), err)

	if err != nil {
		return nil, apperrors.NewRetryable(apperrors.ErrDatabase, "failed to fetch calls: %v", err)
	}

	logger.FromContext(ctx).Debug("Fetched call records",
		zap.Int("count", len(calls)),
		zap.Strings("directions", filter.Directions),
	)
	return calls, nil
}

// SaveReconciledCalls writes the derived transfer columns for each
// annotated record, keyed by call_id. Records without a transfer are
// skipped; their stored rows are already current.
func (r *PostgresRepo) SaveReconciledCalls(ctx context.Context, calls []model.Call) error {
	if len(calls) == 0 {
		return nil
	}

	start := time.Now()
	policy := newRetryPolicy(ctx, writeRetryMaxElapsedTime)
	err := retryableOperation(ctx, policy, "save_reconciled_calls", func() error {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			for i := range calls {
				c := &calls[i]
				if !c.TransferOccurred {
					continue
				}
				result := tx.Model(&model.Call{}).
					Where("call_id = ?", c.CallID).
					Select(reconciledColumns).
					Updates(map[string]interface{}{
						"transfer_occurred":        c.TransferOccurred,
						"transfer_queue_extension": c.TransferQueueExtension,
						"transfer_extension":       c.TransferExtension,
						"transfer_agent_name":      c.TransferAgentName,
						"transfer_source_call_id":  c.TransferSourceCallID,
						"updated_at":               time.Now().UTC(),
					})
				if result.Error != nil {
					return fmt.Errorf("failed to update call %s: %w", c.CallID, result.Error)
				}
			}
			return nil
		})
	})
	observer.ObserveDbOperationDuration("update", "call", time.Since(start), err)

	if err != nil {
		return apperrors.NewRetryable(apperrors.ErrDatabase, "failed to save reconciled calls: %v", err)
	}
	return nil
}

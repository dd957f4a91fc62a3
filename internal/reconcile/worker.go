package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"gitlab.com/voxtel/api/call-transfer-reconciler/internal/config"
	"gitlab.com/voxtel/api/call-transfer-reconciler/internal/model"
	"gitlab.com/voxtel/api/call-transfer-reconciler/internal/observer"
)

// batchTask carries one source record through the pool. Each task owns a
// distinct result slot, so workers never share mutable state.
type batchTask struct {
	ctx     context.Context
	src     model.Call
	pool    []model.Call
	results []model.Call
	idx     int
	wg      *sync.WaitGroup
}

// Worker fans a reconciliation batch out over an ants pool. Records are
// independent and the candidate pool is read-only for the duration of a
// pass, so no locking is needed beyond the completion WaitGroup.
type Worker struct {
	engine     *Engine
	pool       *ants.PoolWithFunc
	cfg        config.WorkerPoolConfig
	baseLogger *zap.Logger
}

// NewWorker creates and initializes the reconciliation worker pool.
func NewWorker(cfg config.WorkerPoolConfig, engine *Engine, baseLogger *zap.Logger) (*Worker, error) {
	worker := &Worker{
		engine:     engine,
		cfg:        cfg,
		baseLogger: baseLogger.Named("reconcile_worker"),
	}

	pool, err := ants.NewPoolWithFunc(cfg.PoolSize, func(i interface{}) {
		task, ok := i.(batchTask)
		if !ok {
			worker.baseLogger.Error("Invalid task data type received", zap.Any("data", i))
			return
		}
		defer task.wg.Done()
		task.results[task.idx] = worker.engine.reconcileSafe(task.ctx, task.src, task.pool)
	},
		ants.WithExpiryDuration(cfg.ExpiryTime),
		ants.WithNonblocking(false),
		ants.WithMaxBlockingTasks(cfg.QueueSize),
		ants.WithPanicHandler(func(err interface{}) {
			worker.baseLogger.Error("Panic recovered in reconcile worker", zap.Any("panic_error", err), zap.Stack("stack"))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create reconcile worker pool: %w", err)
	}
	worker.pool = pool
	worker.baseLogger.Info("Reconcile worker pool initialized",
		zap.Int("pool_size", cfg.PoolSize),
		zap.Int("queue_size", cfg.QueueSize),
		zap.Duration("expiry_time", cfg.ExpiryTime),
	)
	return worker, nil
}

// Run reconciles the batch in parallel and returns the annotated copies in
// input order. Semantics match Engine.ProcessBatch exactly; only the
// scheduling differs. Submission stops early when ctx is cancelled; records
// not submitted pass through as plain copies.
func (w *Worker) Run(ctx context.Context, sources, pool []model.Call) ([]model.Call, error) {
	if sources == nil {
		return nil, nil
	}

	results := make([]model.Call, len(sources))
	var wg sync.WaitGroup

	var submitErr error
	for i := range sources {
		if err := ctx.Err(); err != nil {
			submitErr = err
			// Remaining records pass through unprocessed.
			for j := i; j < len(sources); j++ {
				results[j] = sources[j].Clone()
			}
			break
		}

		wg.Add(1)
		observer.SetWorkerQueueLength(w.pool.Waiting())
		err := w.pool.Invoke(batchTask{
			ctx:     ctx,
			src:     sources[i],
			pool:    pool,
			results: results,
			idx:     i,
			wg:      &wg,
		})
		if err != nil {
			wg.Done()
			results[i] = sources[i].Clone()
			w.baseLogger.Warn("Failed to submit record to reconcile pool",
				zap.String("call_id", sources[i].CallID),
				zap.Error(err),
			)
			if errors.Is(err, ants.ErrPoolOverload) && submitErr == nil {
				submitErr = fmt.Errorf("reconcile pool overload: %w", err)
			}
		}
	}

	wg.Wait()
	return results, submitErr
}

// Stop gracefully shuts down the worker pool, waiting up to MaxBlock for
// in-flight records to drain.
func (w *Worker) Stop() {
	if w.pool == nil {
		return
	}
	w.baseLogger.Info("Releasing reconcile worker pool")
	if w.cfg.MaxBlock > 0 {
		if err := w.pool.ReleaseTimeout(w.cfg.MaxBlock); err != nil {
			w.baseLogger.Warn("Reconcile pool did not drain in time", zap.Error(err))
		}
		return
	}
	w.pool.Release()
}

package reconcile

import (
	"context"
	"time"

	"go.uber.org/zap"

	"gitlab.com/voxtel/api/call-transfer-reconciler/internal/model"
	"gitlab.com/voxtel/api/call-transfer-reconciler/internal/observer"
	"gitlab.com/voxtel/api/call-transfer-reconciler/pkg/logger"
	"gitlab.com/voxtel/api/call-transfer-reconciler/pkg/utils"
)

// Engine runs the transfer-matching pipeline: scan a source call's history,
// resolve the expected callee for the queue, search the inbound pool and
// stamp the resolved agent extension onto a copy of the record. The queue
// map and matcher are injected; the engine holds no mutable state, so one
// instance serves concurrent batches.
type Engine struct {
	queues  QueueMap
	matcher Matcher
	sink    OutcomeSink
}

// NewEngine creates a reconciliation engine. A nil sink discards outcomes.
func NewEngine(queues QueueMap, matcher Matcher, sink OutcomeSink) *Engine {
	if sink == nil {
		sink = NopSink{}
	}
	return &Engine{
		queues:  queues,
		matcher: matcher,
		sink:    sink,
	}
}

// ReconcileCall processes one source call against the shared candidate
// pool and returns an annotated copy. The input and the pool are never
// mutated. All failure modes degrade to absent fields on the copy.
func (e *Engine) ReconcileCall(ctx context.Context, src model.Call, pool []model.Call) model.Call {
	start := time.Now()
	out := src.Clone()
	profile := ProfileFor(src.Direction)
	log := logger.FromContext(ctx).With(
		zap.String("call_id", src.CallID),
		zap.String("profile", profile.Name),
	)

	outcome := Outcome{
		CallID:    src.CallID,
		Direction: src.Direction,
		Profile:   profile.Name,
	}

	scan := ScanHistory(profile.History(&src), profile)
	if scan.Transfer == nil {
		outcome.Kind = OutcomeNoTransfer
		e.sink.Emit(ctx, outcome)
		observer.ObserveRecordDuration(src.Direction, time.Since(start))
		return out
	}

	out.TransferOccurred = true

	if scan.Direct {
		// Transfer straight to an agent line: its extension is the answer.
		out.TransferExtension = scan.Transfer.Extension
		out.AgentExtension = scan.Transfer.Extension
		outcome.Kind = OutcomeDirectTransfer
		outcome.TransferExtension = out.TransferExtension
		e.sink.Emit(ctx, outcome)
		observer.ObserveRecordDuration(src.Direction, time.Since(start))
		return out
	}

	out.TransferQueueExtension = scan.QueueExtension
	outcome.QueueExtension = scan.QueueExtension

	if scan.Anchor == nil {
		log.Warn("Queue transfer without anchor event, skipping inbound search",
			zap.String("queue_extension", scan.QueueExtension))
		outcome.Kind = OutcomeNoAnchor
		e.sink.Emit(ctx, outcome)
		observer.ObserveRecordDuration(src.Direction, time.Since(start))
		return out
	}

	// An unmapped queue extension degrades to identifier-unconstrained
	// time-only matching.
	expectedCallee, _ := e.queues.Callee(scan.QueueExtension)
	outcome.ExpectedCallee = expectedCallee
	outcome.AnchorMillis = utils.NormalizeMillis(scan.Anchor.Timestamp.Int64())

	matched, kind := e.matcher.Match(scan.Anchor.Timestamp.Int64(), expectedCallee, pool)
	if matched == nil {
		if def, ok := e.queues.DefaultAgent(scan.QueueExtension); ok {
			out.TransferExtension = def
			out.AgentExtension = def
			outcome.TransferExtension = def
		}
		outcome.Kind = OutcomeUnmatched
		e.sink.Emit(ctx, outcome)
		observer.ObserveRecordDuration(src.Direction, time.Since(start))
		return out
	}

	out.TransferSourceCallID = matched.CallID
	outcome.MatchedCallID = matched.CallID

	if ext := ExtractAgentExtension(matched); ext != "" {
		out.TransferExtension = ext
		out.AgentExtension = ext
	}

	if kind == MatchFallback {
		outcome.Kind = OutcomeFallbackMatched
	} else {
		outcome.Kind = OutcomeMatched
	}
	outcome.TransferExtension = out.TransferExtension
	e.sink.Emit(ctx, outcome)
	observer.ObserveRecordDuration(src.Direction, time.Since(start))
	return out
}

// ProcessBatch reconciles every source call against the shared, read-only
// candidate pool and returns the annotated copies in input order. A panic
// while processing one record is contained to that record: its plain copy
// passes through and the rest of the batch continues. Given identical
// inputs the output is identical; the engine accumulates nothing.
func (e *Engine) ProcessBatch(ctx context.Context, sources, pool []model.Call) []model.Call {
	if sources == nil {
		return nil
	}
	results := make([]model.Call, len(sources))
	for i := range sources {
		results[i] = e.reconcileSafe(ctx, sources[i], pool)
	}
	return results
}

// reconcileSafe wraps ReconcileCall with per-record panic containment.
func (e *Engine) reconcileSafe(ctx context.Context, src model.Call, pool []model.Call) (out model.Call) {
	defer func() {
		if r := recover(); r != nil {
			logger.FromContext(ctx).Error("Record reconciliation panicked, passing record through",
				zap.String("call_id", src.CallID),
				zap.Any("panic", r),
			)
			out = src.Clone()
		}
	}()
	return e.ReconcileCall(ctx, src, pool)
}

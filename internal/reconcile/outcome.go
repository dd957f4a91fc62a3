package reconcile

import (
	"context"

	"go.uber.org/zap"

	"gitlab.com/voxtel/api/call-transfer-reconciler/internal/observer"
	"gitlab.com/voxtel/api/call-transfer-reconciler/pkg/logger"
	"gitlab.com/voxtel/api/call-transfer-reconciler/pkg/utils"
)

// OutcomeKind classifies the terminal state of one record's reconciliation.
type OutcomeKind string

const (
	// OutcomeNoTransfer: the call never transferred to a queue.
	OutcomeNoTransfer OutcomeKind = "no_transfer"
	// OutcomeDirectTransfer: the transfer targeted a non-queue extension
	// and resolved without an inbound search.
	OutcomeDirectTransfer OutcomeKind = "direct_transfer"
	// OutcomeNoAnchor: a queue transfer without a preceding anchor event;
	// matching was skipped.
	OutcomeNoAnchor OutcomeKind = "no_anchor"
	// OutcomeMatched: the primary identifier + time-window pass matched.
	OutcomeMatched OutcomeKind = "matched"
	// OutcomeFallbackMatched: the identifier-only fallback pass matched.
	OutcomeFallbackMatched OutcomeKind = "fallback_matched"
	// OutcomeUnmatched: both passes failed; queue extension recorded only.
	OutcomeUnmatched OutcomeKind = "unmatched"
)

// Outcome is one structured match-outcome event. Sinks consume these;
// they never feed back into matching decisions.
type Outcome struct {
	Kind              OutcomeKind `json:"kind"`
	CallID            string      `json:"call_id"`
	Direction         string      `json:"direction"`
	Profile           string      `json:"profile"`
	QueueExtension    string      `json:"queue_extension,omitempty"`
	TransferExtension string      `json:"transfer_extension,omitempty"`
	ExpectedCallee    string      `json:"expected_callee,omitempty"`
	MatchedCallID     string      `json:"matched_call_id,omitempty"`
	AnchorMillis      int64       `json:"anchor_millis,omitempty"`
}

// OutcomeSink receives outcome events from the engine.
type OutcomeSink interface {
	Emit(ctx context.Context, o Outcome)
}

// --- Sinks ---

// NopSink discards outcomes.
type NopSink struct{}

func (NopSink) Emit(context.Context, Outcome) {}

// LogSink writes outcomes to the structured logger.
type LogSink struct{}

func (LogSink) Emit(ctx context.Context, o Outcome) {
	logger.FromContext(ctx).Info("reconcile outcome",
		zap.String("kind", string(o.Kind)),
		zap.String("call_id", o.CallID),
		zap.String("direction", o.Direction),
		zap.String("profile", o.Profile),
		zap.String("queue_extension", o.QueueExtension),
		zap.String("transfer_extension", o.TransferExtension),
		zap.String("expected_callee", o.ExpectedCallee),
		zap.String("matched_call_id", o.MatchedCallID),
		zap.Int64("anchor_millis", o.AnchorMillis),
	)
}

// MetricsSink counts outcomes by kind and direction.
type MetricsSink struct{}

func (MetricsSink) Emit(_ context.Context, o Outcome) {
	observer.IncMatchOutcome(string(o.Kind), o.Direction)
}

// OutcomePublisher is the messaging surface the NATS sink needs.
type OutcomePublisher interface {
	Publish(subject string, data []byte, headers map[string]string) error
}

// PublishSink forwards outcomes to a message broker, one subject per kind.
type PublishSink struct {
	Publisher     OutcomePublisher
	SubjectPrefix string
}

func (s PublishSink) Emit(ctx context.Context, o Outcome) {
	subject := s.SubjectPrefix + "." + string(o.Kind)
	if err := s.Publisher.Publish(subject, utils.MustMarshalJSON(o), map[string]string{
		"call_id": o.CallID,
	}); err != nil {
		observer.IncOutcomePublishError(subject)
		logger.FromContext(ctx).Warn("Failed to publish outcome event",
			zap.String("subject", subject),
			zap.String("call_id", o.CallID),
			zap.Error(err),
		)
	}
}

// MultiSink fans an outcome out to several sinks.
type MultiSink []OutcomeSink

func (m MultiSink) Emit(ctx context.Context, o Outcome) {
	for _, s := range m {
		s.Emit(ctx, o)
	}
}

package reconcile

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gitlab.com/voxtel/api/call-transfer-reconciler/internal/model"
	"gitlab.com/voxtel/api/call-transfer-reconciler/internal/observer"
	"gitlab.com/voxtel/api/call-transfer-reconciler/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Log = zap.NewNop()
	observer.InitMetrics(false)
	os.Exit(m.Run())
}

// captureSink records emitted outcomes for assertions. Safe for the
// concurrent worker tests.
type captureSink struct {
	mu       sync.Mutex
	outcomes []Outcome
}

func (s *captureSink) Emit(_ context.Context, o Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes = append(s.outcomes, o)
}

func (s *captureSink) byCallID(id string) (Outcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.outcomes {
		if o.CallID == id {
			return o, true
		}
	}
	return Outcome{}, false
}

func outboundWithTransfer(callID, queueExt string) model.Call {
	return model.Call{
		CallID:    callID,
		Direction: model.DirectionOutbound,
		CallerID:  "1001",
		EventHistory: model.EventHistoryJSON([]model.HistoryEvent{
			{Kind: model.EventHoldStart, Extension: queueExt, Timestamp: 1000},
			{Kind: model.EventTransfer, Extension: queueExt, Timestamp: 1005},
		}),
	}
}

func answeredInbound(callID, callee, agentExt string, calledAt int64) model.Call {
	return model.Call{
		CallID:    callID,
		Direction: model.DirectionInbound,
		CalleeID:  callee,
		CalledAt:  model.Epoch(calledAt),
		EventHistory: model.EventHistoryJSON([]model.HistoryEvent{
			{Kind: model.EventAnswer, Extension: agentExt, Timestamp: model.Epoch(calledAt)},
		}),
	}
}

func TestReconcileCall_QueueTransferMatched(t *testing.T) {
	sink := &captureSink{}
	engine := NewEngine(DefaultQueueMap(), Matcher{}, sink)

	src := outboundWithTransfer("out-1", "8001")
	pool := []model.Call{
		answeredInbound("in-other", "7015", "1009", 1008),
		answeredInbound("in-1", "7014", "1002", 1010),
	}

	out := engine.ReconcileCall(context.Background(), src, pool)

	assert.True(t, out.TransferOccurred)
	assert.Equal(t, "8001", out.TransferQueueExtension)
	assert.Equal(t, "in-1", out.TransferSourceCallID)
	assert.Equal(t, "1002", out.TransferExtension)
	assert.Equal(t, "1002", out.AgentExtension)

	o, ok := sink.byCallID("out-1")
	require.True(t, ok)
	assert.Equal(t, OutcomeMatched, o.Kind)
	assert.Equal(t, "7014", o.ExpectedCallee)
	assert.Equal(t, "in-1", o.MatchedCallID)
	assert.Equal(t, int64(1_000_000), o.AnchorMillis)
}

func TestReconcileCall_NoTransferPassesThrough(t *testing.T) {
	sink := &captureSink{}
	engine := NewEngine(DefaultQueueMap(), Matcher{}, sink)

	src := model.Call{
		CallID:    "out-plain",
		Direction: model.DirectionOutbound,
		EventHistory: model.EventHistoryJSON([]model.HistoryEvent{
			{Kind: model.EventAnswer, Extension: "1001", Timestamp: 1000},
		}),
	}

	out := engine.ReconcileCall(context.Background(), src, nil)

	assert.False(t, out.TransferOccurred)
	assert.Empty(t, out.TransferQueueExtension)
	assert.Empty(t, out.TransferExtension)

	o, ok := sink.byCallID("out-plain")
	require.True(t, ok)
	assert.Equal(t, OutcomeNoTransfer, o.Kind)
}

func TestReconcileCall_DirectTransfer(t *testing.T) {
	sink := &captureSink{}
	engine := NewEngine(DefaultQueueMap(), Matcher{}, sink)

	src := model.Call{
		CallID:    "out-direct",
		Direction: model.DirectionOutbound,
		EventHistory: model.EventHistoryJSON([]model.HistoryEvent{
			{Kind: model.EventTransfer, Extension: "1002", Timestamp: 1005},
		}),
	}

	out := engine.ReconcileCall(context.Background(), src, nil)

	assert.True(t, out.TransferOccurred)
	assert.Empty(t, out.TransferQueueExtension)
	assert.Equal(t, "1002", out.TransferExtension)
	assert.Equal(t, "1002", out.AgentExtension)
	assert.Empty(t, out.TransferSourceCallID)

	o, ok := sink.byCallID("out-direct")
	require.True(t, ok)
	assert.Equal(t, OutcomeDirectTransfer, o.Kind)
}

func TestReconcileCall_NoAnchorSkipsSearch(t *testing.T) {
	sink := &captureSink{}
	engine := NewEngine(DefaultQueueMap(), Matcher{}, sink)

	src := model.Call{
		CallID:    "out-noanchor",
		Direction: model.DirectionOutbound,
		EventHistory: model.EventHistoryJSON([]model.HistoryEvent{
			{Kind: model.EventTransfer, Extension: "8001", Timestamp: 1005},
		}),
	}
	pool := []model.Call{answeredInbound("in-1", "7014", "1002", 1010)}

	out := engine.ReconcileCall(context.Background(), src, pool)

	assert.True(t, out.TransferOccurred)
	assert.Equal(t, "8001", out.TransferQueueExtension)
	assert.Empty(t, out.TransferSourceCallID)
	assert.Empty(t, out.TransferExtension)

	o, ok := sink.byCallID("out-noanchor")
	require.True(t, ok)
	assert.Equal(t, OutcomeNoAnchor, o.Kind)
}

func TestReconcileCall_UnmatchedAppliesQueueDefault(t *testing.T) {
	sink := &captureSink{}
	queues := NewQueueMap(
		map[string]string{"8001": "7014"},
		map[string]string{"8001": "1002"},
	)
	engine := NewEngine(queues, Matcher{}, sink)

	src := outboundWithTransfer("out-unmatched", "8001")

	out := engine.ReconcileCall(context.Background(), src, nil)

	assert.True(t, out.TransferOccurred)
	assert.Equal(t, "8001", out.TransferQueueExtension)
	assert.Equal(t, "1002", out.TransferExtension)
	assert.Equal(t, "1002", out.AgentExtension)
	assert.Empty(t, out.TransferSourceCallID)

	o, ok := sink.byCallID("out-unmatched")
	require.True(t, ok)
	assert.Equal(t, OutcomeUnmatched, o.Kind)
	assert.Equal(t, "1002", o.TransferExtension)
}

func TestReconcileCall_UnmatchedWithoutDefaultLeavesQueueOnly(t *testing.T) {
	sink := &captureSink{}
	engine := NewEngine(DefaultQueueMap(), Matcher{}, sink)

	src := outboundWithTransfer("out-bare", "8001")

	out := engine.ReconcileCall(context.Background(), src, nil)

	assert.True(t, out.TransferOccurred)
	assert.Equal(t, "8001", out.TransferQueueExtension)
	assert.Empty(t, out.TransferExtension)

	o, ok := sink.byCallID("out-bare")
	require.True(t, ok)
	assert.Equal(t, OutcomeUnmatched, o.Kind)
}

func TestReconcileCall_UnmappedQueueMatchesByTimeOnly(t *testing.T) {
	sink := &captureSink{}
	engine := NewEngine(DefaultQueueMap(), Matcher{}, sink)

	// 8500 is a valid queue extension but absent from the reference table,
	// so any inbound call inside the window qualifies.
	src := outboundWithTransfer("out-unmapped", "8500")
	pool := []model.Call{answeredInbound("in-any", "5555", "1007", 1010)}

	out := engine.ReconcileCall(context.Background(), src, pool)

	assert.Equal(t, "8500", out.TransferQueueExtension)
	assert.Equal(t, "in-any", out.TransferSourceCallID)
	assert.Equal(t, "1007", out.TransferExtension)

	o, ok := sink.byCallID("out-unmapped")
	require.True(t, ok)
	assert.Equal(t, OutcomeMatched, o.Kind)
	assert.Empty(t, o.ExpectedCallee)
}

func TestReconcileCall_FallbackMatch(t *testing.T) {
	sink := &captureSink{}
	engine := NewEngine(DefaultQueueMap(), Matcher{}, sink)

	src := outboundWithTransfer("out-fb", "8001")
	// 10000s after the anchor: far outside the window but the only call
	// that dialed the queue's callee.
	pool := []model.Call{answeredInbound("in-late", "7014", "1002", 11_000)}

	out := engine.ReconcileCall(context.Background(), src, pool)

	assert.Equal(t, "in-late", out.TransferSourceCallID)
	assert.Equal(t, "1002", out.TransferExtension)

	o, ok := sink.byCallID("out-fb")
	require.True(t, ok)
	assert.Equal(t, OutcomeFallbackMatched, o.Kind)
}

func TestReconcileCall_CampaignProfile(t *testing.T) {
	sink := &captureSink{}
	engine := NewEngine(DefaultQueueMap(), Matcher{}, sink)

	src := model.Call{
		CallID:    "camp-1",
		Direction: model.DirectionCampaign,
		LeadHistory: model.EventHistoryJSON([]model.HistoryEvent{
			{Kind: model.EventLeadAnswer, Timestamp: 1000},
			{Kind: model.EventCampaignTransfer, Extension: "8003", Timestamp: 1005},
		}),
	}
	pool := []model.Call{answeredInbound("in-c", "7016", "1008", 1010)}

	out := engine.ReconcileCall(context.Background(), src, pool)

	assert.True(t, out.TransferOccurred)
	assert.Equal(t, "8003", out.TransferQueueExtension)
	assert.Equal(t, "in-c", out.TransferSourceCallID)
	assert.Equal(t, "1008", out.TransferExtension)

	o, ok := sink.byCallID("camp-1")
	require.True(t, ok)
	assert.Equal(t, "campaign", o.Profile)
	assert.Equal(t, OutcomeMatched, o.Kind)
}

func TestReconcileCall_MalformedHistoryTreatedAsNoTransfer(t *testing.T) {
	sink := &captureSink{}
	engine := NewEngine(DefaultQueueMap(), Matcher{}, sink)

	src := model.Call{
		CallID:       "out-bad",
		Direction:    model.DirectionOutbound,
		EventHistory: []byte(`{broken`),
	}

	out := engine.ReconcileCall(context.Background(), src, nil)
	assert.False(t, out.TransferOccurred)

	o, ok := sink.byCallID("out-bad")
	require.True(t, ok)
	assert.Equal(t, OutcomeNoTransfer, o.Kind)
}

func TestReconcileCall_DoesNotMutateInputs(t *testing.T) {
	engine := NewEngine(DefaultQueueMap(), Matcher{}, nil)

	src := outboundWithTransfer("out-1", "8001")
	pool := []model.Call{answeredInbound("in-1", "7014", "1002", 1010)}

	srcBefore, err := json.Marshal(src)
	require.NoError(t, err)
	poolBefore, err := json.Marshal(pool)
	require.NoError(t, err)

	_ = engine.ReconcileCall(context.Background(), src, pool)

	srcAfter, err := json.Marshal(src)
	require.NoError(t, err)
	poolAfter, err := json.Marshal(pool)
	require.NoError(t, err)

	assert.JSONEq(t, string(srcBefore), string(srcAfter))
	assert.JSONEq(t, string(poolBefore), string(poolAfter))
}

func TestProcessBatch_OrderAndIdempotence(t *testing.T) {
	engine := NewEngine(DefaultQueueMap(), Matcher{}, nil)

	sources := []model.Call{
		outboundWithTransfer("out-1", "8001"),
		{CallID: "out-2", Direction: model.DirectionOutbound},
		outboundWithTransfer("out-3", "8002"),
	}
	pool := []model.Call{
		answeredInbound("in-1", "7014", "1002", 1010),
		answeredInbound("in-2", "7015", "1003", 1012),
	}

	first := engine.ProcessBatch(context.Background(), sources, pool)
	require.Len(t, first, 3)
	assert.Equal(t, "out-1", first[0].CallID)
	assert.Equal(t, "out-2", first[1].CallID)
	assert.Equal(t, "out-3", first[2].CallID)

	assert.Equal(t, "in-1", first[0].TransferSourceCallID)
	assert.False(t, first[1].TransferOccurred)
	assert.Equal(t, "in-2", first[2].TransferSourceCallID)

	second := engine.ProcessBatch(context.Background(), sources, pool)
	assert.Equal(t, first, second)
}

func TestProcessBatch_NilSources(t *testing.T) {
	engine := NewEngine(DefaultQueueMap(), Matcher{}, nil)
	assert.Nil(t, engine.ProcessBatch(context.Background(), nil, nil))
}

// panicSink forces a panic inside record processing to exercise containment.
type panicSink struct{ captureSink }

func (s *panicSink) Emit(ctx context.Context, o Outcome) {
	if o.CallID == "out-boom" {
		panic("sink exploded")
	}
	s.captureSink.Emit(ctx, o)
}

func TestProcessBatch_PanicContainedToRecord(t *testing.T) {
	sink := &panicSink{}
	engine := NewEngine(DefaultQueueMap(), Matcher{}, sink)

	sources := []model.Call{
		outboundWithTransfer("out-boom", "8001"),
		outboundWithTransfer("out-ok", "8001"),
	}
	pool := []model.Call{answeredInbound("in-1", "7014", "1002", 1010)}

	results := engine.ProcessBatch(context.Background(), sources, pool)
	require.Len(t, results, 2)

	// The panicked record passes through as a plain copy.
	assert.Equal(t, "out-boom", results[0].CallID)
	assert.False(t, results[0].TransferOccurred)

	// The rest of the batch is unaffected.
	assert.Equal(t, "in-1", results[1].TransferSourceCallID)
}

package reconcile

import (
	"sort"

	"gitlab.com/voxtel/api/call-transfer-reconciler/internal/model"
	"gitlab.com/voxtel/api/call-transfer-reconciler/pkg/utils"
)

// DefaultWindowMillis is the primary-pass time window around the anchor.
const DefaultWindowMillis = int64(120_000)

// MatchKind tells which pass produced a match.
type MatchKind string

const (
	// MatchPrimary is an identifier + time-window match.
	MatchPrimary MatchKind = "primary"
	// MatchFallback is an identifier-only match outside the window.
	// Call-detail timestamps drift across systems, so a distant but
	// uniquely-identified candidate beats no match.
	MatchFallback MatchKind = "fallback"
	// MatchNone means both passes came up empty.
	MatchNone MatchKind = "none"
)

// Matcher searches a candidate pool of inbound calls for the record that
// answered a queue transfer. The pool is read-only for the duration of a
// batch; Match never mutates it.
type Matcher struct {
	// WindowMillis overrides the primary-pass window; zero means default.
	WindowMillis int64
}

type scoredCandidate struct {
	call *model.Call
	diff int64
}

// Match finds the inbound call whose callee identifier equals expectedCallee
// and whose timestamp lies closest to the anchor. The primary pass is
// bounded by the time window; when it is empty and an identifier is known,
// the fallback pass drops the window. With no expected identifier the
// primary pass degrades to time-window-only matching and no fallback exists.
func (m Matcher) Match(anchorTimestamp int64, expectedCallee string, pool []model.Call) (*model.Call, MatchKind) {
	window := m.WindowMillis
	if window <= 0 {
		window = DefaultWindowMillis
	}
	anchorMs := utils.NormalizeMillis(anchorTimestamp)

	var primary, byIdentifier []scoredCandidate
	for i := range pool {
		c := &pool[i]
		callee := c.ResolveCalleeID()
		if expectedCallee != "" && callee != expectedCallee {
			continue
		}
		ts := utils.NormalizeMillis(c.CalledAt.Int64())
		if ts == 0 {
			continue
		}
		diff := utils.AbsMillis(ts, anchorMs)
		if expectedCallee != "" {
			byIdentifier = append(byIdentifier, scoredCandidate{call: c, diff: diff})
		}
		if diff <= window {
			primary = append(primary, scoredCandidate{call: c, diff: diff})
		}
	}

	if best := closest(primary); best != nil {
		return best, MatchPrimary
	}
	if expectedCallee != "" {
		if best := closest(byIdentifier); best != nil {
			return best, MatchFallback
		}
	}
	return nil, MatchNone
}

// closest returns the candidate with the smallest absolute time difference.
// Ties keep the original pool order.
func closest(candidates []scoredCandidate) *model.Call {
	if len(candidates) == 0 {
		return nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].diff < candidates[j].diff
	})
	return candidates[0].call
}

package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"gitlab.com/voxtel/api/call-transfer-reconciler/internal/model"
)

func TestExtractAgentExtension(t *testing.T) {
	testCases := []struct {
		name     string
		call     model.Call
		expected string
	}{
		{
			name: "first history event with extension wins",
			call: model.Call{
				EventHistory: model.EventHistoryJSON([]model.HistoryEvent{
					{Kind: model.EventHoldStart},
					{Kind: model.EventAnswer, Extension: "1002"},
					{Kind: model.EventAnswer, Extension: "1003"},
				}),
				AnsweredExtension: "1004",
				AgentExtension:    "1005",
				Extension:         "1006",
			},
			expected: "1002",
		},
		{
			name: "answered extension when history has none",
			call: model.Call{
				EventHistory: model.EventHistoryJSON([]model.HistoryEvent{
					{Kind: model.EventHoldStart},
				}),
				AnsweredExtension: "1004",
				AgentExtension:    "1005",
				Extension:         "1006",
			},
			expected: "1004",
		},
		{
			name: "agent extension next",
			call: model.Call{
				AgentExtension: "1005",
				Extension:      "1006",
			},
			expected: "1005",
		},
		{
			name:     "plain extension last",
			call:     model.Call{Extension: "1006"},
			expected: "1006",
		},
		{
			name:     "nothing available",
			call:     model.Call{},
			expected: "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ExtractAgentExtension(&tc.call))
		})
	}
}

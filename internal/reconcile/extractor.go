package reconcile

import (
	"gitlab.com/voxtel/api/call-transfer-reconciler/internal/model"
)

// ExtractAgentExtension resolves the answering agent's extension from a
// matched inbound call. Precedence, first non-empty wins:
//
//  1. first event-history entry carrying an extension, in stored order
//  2. the answered-extension flat field
//  3. the agent-extension flat field
//  4. the plain extension flat field
//
// Returns empty when none is present.
func ExtractAgentExtension(c *model.Call) string {
	for _, ev := range c.Events() {
		if ev.Extension != "" {
			return ev.Extension
		}
	}
	if c.AnsweredExtension != "" {
		return c.AnsweredExtension
	}
	if c.AgentExtension != "" {
		return c.AgentExtension
	}
	return c.Extension
}

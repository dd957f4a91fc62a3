package reconcile

import (
	"gitlab.com/voxtel/api/call-transfer-reconciler/internal/model"
)

// Profile parameterizes the pipeline for one call shape: which event kind
// marks a transfer, which kind anchors it in time, and which embedded
// history field holds the events. Agent-type and campaign records differ in
// all three.
type Profile struct {
	Name         string
	TransferKind string
	AnchorKind   string
	History      func(c *model.Call) []model.HistoryEvent
}

// AgentCallProfile covers outbound and inbound agent calls.
var AgentCallProfile = Profile{
	Name:         "agent",
	TransferKind: model.EventTransfer,
	AnchorKind:   model.EventHoldStart,
	History:      func(c *model.Call) []model.HistoryEvent { return c.Events() },
}

// CampaignProfile covers campaign/lead calls, which record their history
// under lead_history with a capitalized transfer kind.
var CampaignProfile = Profile{
	Name:         "campaign",
	TransferKind: model.EventCampaignTransfer,
	AnchorKind:   model.EventLeadAnswer,
	History:      func(c *model.Call) []model.HistoryEvent { return c.LeadEvents() },
}

// ProfileFor selects the profile matching a call's direction tag.
func ProfileFor(direction string) Profile {
	if direction == model.DirectionCampaign {
		return CampaignProfile
	}
	return AgentCallProfile
}

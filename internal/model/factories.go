package model

import (
	"encoding/json"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/datatypes"

	"gitlab.com/voxtel/api/call-transfer-reconciler/pkg/utils"
)

// init ensures gofakeit is seeded.
func init() {
	gofakeit.Seed(time.Now().UnixNano())
}

// EventHistoryJSON encodes a slice of history events for a JSONB column.
func EventHistoryJSON(events []HistoryEvent) datatypes.JSON {
	bytes, _ := json.Marshal(events)
	return datatypes.JSON(bytes)
}

// RawDataJSON encodes a map for the raw_data JSONB column.
func RawDataJSON(data map[string]interface{}) datatypes.JSON {
	bytes, _ := json.Marshal(data)
	return datatypes.JSON(bytes)
}

// NewCall creates a new Call instance with default fake data.
func NewCall(overrideDefaults ...*Call) *Call {
	base := &Call{
		CallID:    gofakeit.UUID(),
		Direction: gofakeit.RandomString([]string{DirectionOutbound, DirectionInbound, DirectionCampaign}),
		CallerID:  gofakeit.Numerify("1###"),
		CalleeID:  gofakeit.Numerify("70##"),
		CalledAt:  Epoch(utils.Now().Add(-time.Duration(gofakeit.Number(1, 120)) * time.Minute).Unix()),
		CreatedAt: utils.Now(),
		UpdatedAt: utils.Now(),
	}

	if len(overrideDefaults) > 0 && overrideDefaults[0] != nil {
		ovr := overrideDefaults[0]
		if ovr.CallID != "" {
			base.CallID = ovr.CallID
		}
		if ovr.Direction != "" {
			base.Direction = ovr.Direction
		}
		// Allow overriding identifiers with empty string by direct assignment
		base.CallerID = ovr.CallerID
		base.CalleeID = ovr.CalleeID

		base.AnsweredExtension = ovr.AnsweredExtension
		base.AgentExtension = ovr.AgentExtension
		base.Extension = ovr.Extension

		if ovr.CalledAt != 0 {
			base.CalledAt = ovr.CalledAt
		}
		if ovr.EventHistory != nil {
			base.EventHistory = ovr.EventHistory
		}
		if ovr.LeadHistory != nil {
			base.LeadHistory = ovr.LeadHistory
		}
		if ovr.RawData != nil {
			base.RawData = ovr.RawData
		}
	}
	return base
}

// NewAgent creates a new Agent instance with default fake data.
func NewAgent(overrideDefaults ...*Agent) *Agent {
	base := &Agent{
		Extension:   gofakeit.Numerify("1###"),
		FirstName:   gofakeit.FirstName(),
		LastName:    gofakeit.LastName(),
		DisplayName: "",
		CreatedAt:   utils.Now(),
		UpdatedAt:   utils.Now(),
	}

	if len(overrideDefaults) > 0 && overrideDefaults[0] != nil {
		ovr := overrideDefaults[0]
		if ovr.Extension != "" {
			base.Extension = ovr.Extension
		}
		base.FirstName = ovr.FirstName
		base.LastName = ovr.LastName
		base.DisplayName = ovr.DisplayName
	}
	return base
}

package model

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"gorm.io/datatypes"
)

// Call direction tags
const (
	DirectionOutbound = "OUTBOUND"
	DirectionInbound  = "INBOUND"
	DirectionCampaign = "CAMPAIGN"
)

// History event kinds. Campaign records use a distinct vocabulary
// ("Transfer", "lead_answer") from agent-call records.
const (
	EventTransfer         = "transfer"
	EventHoldStart        = "hold_start"
	EventHoldEnd          = "hold_end"
	EventAnswer           = "answer"
	EventCampaignTransfer = "Transfer"
	EventLeadAnswer       = "lead_answer"
)

// Epoch is a unix timestamp that may arrive as a JSON number or a numeric
// string, in seconds or milliseconds. The raw magnitude is preserved;
// normalization to milliseconds happens at comparison time.
type Epoch int64

// UnmarshalJSON accepts numbers and numeric strings uniformly.
func (e *Epoch) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*e = 0
		return nil
	}
	// Some sources emit fractional seconds; truncate rather than reject.
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*e = Epoch(int64(f))
	return nil
}

// Int64 returns the raw timestamp value.
func (e Epoch) Int64() int64 { return int64(e) }

// HistoryEvent is one entry in a call's event history.
type HistoryEvent struct {
	Kind           string `json:"event"`
	Extension      string `json:"extension,omitempty"`
	Timestamp      Epoch  `json:"timestamp,omitempty"`
	AgentFirstName string `json:"agent_first_name,omitempty"`
	AgentLastName  string `json:"agent_last_name,omitempty"`
}

// Call represents one telephone session, outbound, inbound or campaign.
// Event histories and the raw upstream payload are stored as JSONB; the
// reconciler reads them through Events, LeadEvents and ResolveCalleeID,
// which tolerate malformed content.
type Call struct {
	ID        int64  `json:"-" gorm:"column:id;primaryKey;autoIncrement"`
	CallID    string `json:"call_id" gorm:"column:call_id;index"`
	Direction string `json:"direction" gorm:"column:direction;index"`

	CallerID string `json:"caller_id_number,omitempty" gorm:"column:caller_id_number"`
	CalleeID string `json:"callee_id_number,omitempty" gorm:"column:callee_id_number;index"`
	CalledAt Epoch  `json:"called_at,omitempty" gorm:"column:called_at"`

	// Alternate flat fields used as agent-extension extraction fallbacks.
	AnsweredExtension string `json:"answered_extension,omitempty" gorm:"column:answered_extension"`
	AgentExtension    string `json:"agent_extension,omitempty" gorm:"column:agent_extension"`
	Extension         string `json:"extension,omitempty" gorm:"column:extension"`

	EventHistory datatypes.JSON `json:"event_history,omitempty" gorm:"type:jsonb;column:event_history"`
	LeadHistory  datatypes.JSON `json:"lead_history,omitempty" gorm:"type:jsonb;column:lead_history"`
	RawData      datatypes.JSON `json:"raw_data,omitempty" gorm:"type:jsonb;column:raw_data"`

	// Derived fields, written by the reconciler onto a copy of the input.
	TransferOccurred       bool   `json:"transfer_occurred,omitempty" gorm:"column:transfer_occurred"`
	TransferQueueExtension string `json:"transfer_queue_extension,omitempty" gorm:"column:transfer_queue_extension"`
	TransferExtension      string `json:"transfer_extension,omitempty" gorm:"column:transfer_extension"`
	TransferAgentName      string `json:"transfer_agent_name,omitempty" gorm:"column:transfer_agent_name"`
	TransferSourceCallID   string `json:"transfer_source_call_id,omitempty" gorm:"column:transfer_source_call_id"`

	CreatedAt time.Time `json:"created_at,omitempty" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at,omitempty" gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM.
func (Call) TableName() string {
	return "calls"
}

// Clone returns a deep copy of the call. JSONB columns are copied so the
// original record can never be mutated through the clone.
func (c *Call) Clone() Call {
	out := *c
	out.EventHistory = cloneJSON(c.EventHistory)
	out.LeadHistory = cloneJSON(c.LeadHistory)
	out.RawData = cloneJSON(c.RawData)
	return out
}

func cloneJSON(j datatypes.JSON) datatypes.JSON {
	if j == nil {
		return nil
	}
	out := make(datatypes.JSON, len(j))
	copy(out, j)
	return out
}

// Events decodes the agent-call event history in stored order.
// Malformed or absent history yields nil, never an error.
func (c *Call) Events() []HistoryEvent {
	return decodeEvents(c.EventHistory)
}

// LeadEvents decodes the campaign lead history in stored order.
func (c *Call) LeadEvents() []HistoryEvent {
	return decodeEvents(c.LeadHistory)
}

func decodeEvents(raw datatypes.JSON) []HistoryEvent {
	if len(raw) == 0 {
		return nil
	}
	var events []HistoryEvent
	if err := json.Unmarshal(raw, &events); err != nil {
		return nil
	}
	return events
}

// rawCallData is the subset of the embedded upstream payload the matcher
// needs. Upstream systems disagree on field naming.
type rawCallData struct {
	CalleeID     string `json:"callee_id_number"`
	CalledNumber string `json:"called_number"`
}

// ResolveCalleeID returns the callee identifier from the top-level field or,
// failing that, from the embedded raw-data payload. The payload may be a
// JSON object or a JSON string containing encoded JSON. Parse failures are
// treated as identifier absent.
func (c *Call) ResolveCalleeID() string {
	if c.CalleeID != "" {
		return c.CalleeID
	}
	if len(c.RawData) == 0 {
		return ""
	}

	data := []byte(c.RawData)
	// Double-encoded payload: unwrap the string layer first.
	if len(data) > 0 && data[0] == '"' {
		var inner string
		if err := json.Unmarshal(data, &inner); err != nil {
			return ""
		}
		data = []byte(inner)
	}

	var raw rawCallData
	if err := json.Unmarshal(data, &raw); err != nil {
		return ""
	}
	if raw.CalleeID != "" {
		return raw.CalleeID
	}
	return raw.CalledNumber
}

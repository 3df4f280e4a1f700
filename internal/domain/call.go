package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CallStatus represents the lifecycle status of a call as reported by Retell
type CallStatus string

const (
	CallStatusRegistered   CallStatus = "registered"
	CallStatusNotConnected CallStatus = "not_connected"
	CallStatusOngoing      CallStatus = "ongoing"
	CallStatusEnded        CallStatus = "ended"
	CallStatusError        CallStatus = "error"
)

// CallType represents the transport of a call
type CallType string

const (
	CallTypePhone CallType = "phone_call"
	CallTypeWeb   CallType = "web_call"
)

// CallDirection represents who initiated the call
type CallDirection string

const (
	CallDirectionInbound  CallDirection = "inbound"
	CallDirectionOutbound CallDirection = "outbound"
)

// CallRecord is the persisted representation of one phone/web call's full
// lifecycle. CallID is issued by Retell, unique, and immutable once created;
// it is the idempotency key for every webhook write. Records are never
// deleted (audit and billing trail).
type CallRecord struct {
	ID                uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UserID            uuid.UUID  `json:"user_id" gorm:"type:uuid;not null;index"`
	AgentID           uuid.UUID  `json:"agent_id" gorm:"type:uuid;not null;index"`
	AgentName         string     `json:"agent_name" gorm:"type:varchar(255)"`
	AgentRetellID     string     `json:"agent_retell_id" gorm:"type:varchar(255);index"`
	CampaignContactID *uuid.UUID `json:"campaign_contact_id,omitempty" gorm:"type:uuid"`

	CallID              string         `json:"call_id" gorm:"type:varchar(255);not null;uniqueIndex"`
	CallType            CallType       `json:"call_type" gorm:"type:varchar(32)"`
	Direction           CallDirection  `json:"direction" gorm:"type:varchar(16)"`
	CallStatus          CallStatus     `json:"call_status" gorm:"type:varchar(32);index"`
	DisconnectionReason *string        `json:"disconnection_reason,omitempty" gorm:"type:varchar(64)"`
	FromNumber          string         `json:"from_number" gorm:"type:varchar(32)"`
	ToNumber            string         `json:"to_number" gorm:"type:varchar(32)"`

	StartTimestamp *time.Time `json:"start_timestamp,omitempty"`
	EndTimestamp   *time.Time `json:"end_timestamp,omitempty"`
	DurationMs     *int64     `json:"duration_ms,omitempty"`

	Metadata                  JSONB `json:"metadata,omitempty" gorm:"type:jsonb"`
	RetellLLMDynamicVariables JSONB `json:"retell_llm_dynamic_variables,omitempty" gorm:"type:jsonb"`
	CollectedDynamicVariables JSONB `json:"collected_dynamic_variables,omitempty" gorm:"type:jsonb"`

	Transcript              *string   `json:"transcript,omitempty" gorm:"type:text"`
	TranscriptObject        JSONArray `json:"transcript_object,omitempty" gorm:"type:jsonb"`
	TranscriptWithToolCalls JSONArray `json:"transcript_with_tool_calls,omitempty" gorm:"type:jsonb"`
	RecordingURL            *string   `json:"recording_url,omitempty" gorm:"type:text"`
	PublicLogURL            *string   `json:"public_log_url,omitempty" gorm:"type:text"`

	// Remote-owned nested documents, stored as-is.
	CallAnalysis  JSONB `json:"call_analysis,omitempty" gorm:"type:jsonb"`
	CallCost      JSONB `json:"call_cost,omitempty" gorm:"type:jsonb"`
	LLMTokenUsage JSONB `json:"llm_token_usage,omitempty" gorm:"type:jsonb"`

	// Extracted for query efficiency. Cost fields are exact decimals, never
	// floats, because they are financial.
	UserSentiment          *string         `json:"user_sentiment,omitempty" gorm:"type:varchar(32)"`
	CallSuccessful         *bool           `json:"call_successful,omitempty"`
	CombinedCost           decimal.Decimal `json:"combined_cost" gorm:"type:numeric(18,6);default:0"`
	TotalDurationSeconds   float64         `json:"total_duration_seconds" gorm:"default:0"`
	TotalDurationUnitPrice decimal.Decimal `json:"total_duration_unit_price" gorm:"type:numeric(18,6);default:0"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime;index"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName sets the table name for CallRecord
func (CallRecord) TableName() string {
	return "call_records"
}

// IsTerminal reports whether the record has reached a terminal status.
func (c *CallRecord) IsTerminal() bool {
	return c.CallStatus == CallStatusEnded || c.CallStatus == CallStatusError
}

// CallPatch is a null-safe partial update over a CallRecord. Only fields that
// are non-nil in the patch are applied, so a later partial webhook cannot
// erase previously known data. Each lifecycle handler builds a patch limited
// to the fields it owns.
type CallPatch struct {
	CallStatus          *CallStatus
	DisconnectionReason *string

	StartTimestamp *time.Time
	EndTimestamp   *time.Time
	DurationMs     *int64

	Metadata                  JSONB
	RetellLLMDynamicVariables JSONB
	CollectedDynamicVariables JSONB

	Transcript              *string
	TranscriptObject        JSONArray
	TranscriptWithToolCalls JSONArray
	RecordingURL            *string
	PublicLogURL            *string

	CallAnalysis  JSONB
	CallCost      JSONB
	LLMTokenUsage JSONB

	UserSentiment          *string
	CallSuccessful         *bool
	CombinedCost           *decimal.Decimal
	TotalDurationSeconds   *float64
	TotalDurationUnitPrice *decimal.Decimal
}

// Apply copies every non-nil patch field onto the record. Applying the same
// patch twice leaves the record in the same state.
func (p *CallPatch) Apply(c *CallRecord) {
	if p.CallStatus != nil {
		c.CallStatus = *p.CallStatus
	}
	if p.DisconnectionReason != nil {
		c.DisconnectionReason = p.DisconnectionReason
	}
	if p.StartTimestamp != nil {
		c.StartTimestamp = p.StartTimestamp
	}
	if p.EndTimestamp != nil {
		c.EndTimestamp = p.EndTimestamp
	}
	if p.DurationMs != nil {
		c.DurationMs = p.DurationMs
	}
	if p.Metadata != nil {
		c.Metadata = p.Metadata
	}
	if p.RetellLLMDynamicVariables != nil {
		c.RetellLLMDynamicVariables = p.RetellLLMDynamicVariables
	}
	if p.CollectedDynamicVariables != nil {
		c.CollectedDynamicVariables = p.CollectedDynamicVariables
	}
	if p.Transcript != nil {
		c.Transcript = p.Transcript
	}
	if p.TranscriptObject != nil {
		c.TranscriptObject = p.TranscriptObject
	}
	if p.TranscriptWithToolCalls != nil {
		c.TranscriptWithToolCalls = p.TranscriptWithToolCalls
	}
	if p.RecordingURL != nil {
		c.RecordingURL = p.RecordingURL
	}
	if p.PublicLogURL != nil {
		c.PublicLogURL = p.PublicLogURL
	}
	if p.CallAnalysis != nil {
		c.CallAnalysis = p.CallAnalysis
	}
	if p.CallCost != nil {
		c.CallCost = p.CallCost
	}
	if p.LLMTokenUsage != nil {
		c.LLMTokenUsage = p.LLMTokenUsage
	}
	if p.UserSentiment != nil {
		c.UserSentiment = p.UserSentiment
	}
	if p.CallSuccessful != nil {
		c.CallSuccessful = p.CallSuccessful
	}
	if p.CombinedCost != nil {
		c.CombinedCost = *p.CombinedCost
	}
	if p.TotalDurationSeconds != nil {
		c.TotalDurationSeconds = *p.TotalDurationSeconds
	}
	if p.TotalDurationUnitPrice != nil {
		c.TotalDurationUnitPrice = *p.TotalDurationUnitPrice
	}
}

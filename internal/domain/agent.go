package domain

import (
	"time"

	"github.com/google/uuid"
)

// Agent represents a voice agent provisioned on Retell. AgentID and LLMID are
// issued by Retell. WorkflowStates keeps the raw client-supplied workflow so
// it can be audited and re-pushed; RetellStates is the normalized state graph
// that was last sent to the response engine.
type Agent struct {
	ID      uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UserID  *uuid.UUID `json:"user_id,omitempty" gorm:"type:uuid;index"`
	AgentID string     `json:"agent_id" gorm:"type:varchar(255);not null;uniqueIndex"`
	LLMID   string     `json:"llm_id" gorm:"type:varchar(255)"`
	Name    string     `json:"name" gorm:"type:varchar(255);not null"`

	WorkflowStates JSONArray `json:"workflow_states,omitempty" gorm:"type:jsonb"`
	RetellStates   JSONArray `json:"retell_states,omitempty" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName sets the table name for Agent
func (Agent) TableName() string {
	return "agents"
}

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Campaign groups outbound contacts under one agent.
type Campaign struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;not null;index"`
	AgentID   uuid.UUID `json:"agent_id" gorm:"type:uuid;not null"`
	Name      string    `json:"name" gorm:"type:varchar(255);not null"`
	IsDeleted bool      `json:"is_deleted" gorm:"default:false;index"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName sets the table name for Campaign
func (Campaign) TableName() string {
	return "campaigns"
}

// CampaignContact is one callee inside a campaign. Fields carries arbitrary
// per-contact variables imported from spreadsheets, passed to Retell as
// dynamic variables when the contact is dialed.
type CampaignContact struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CampaignID  uuid.UUID `json:"campaign_id" gorm:"type:uuid;not null;index"`
	Name        string    `json:"name" gorm:"type:varchar(255)"`
	PhoneNumber string    `json:"phone_number" gorm:"type:varchar(32);not null"`
	Fields      JSONB     `json:"fields,omitempty" gorm:"type:jsonb"`
	CallStatus  string    `json:"call_status" gorm:"type:varchar(32);default:pending"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName sets the table name for CampaignContact
func (CampaignContact) TableName() string {
	return "campaign_contacts"
}

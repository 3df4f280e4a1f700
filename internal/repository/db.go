package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/propestai/voice-agent-service/internal/domain"
	"gorm.io/gorm"
)

// CallRepository defines persistence operations for call records. Every
// webhook write is a single-document create or update keyed by the Retell
// call_id.
type CallRepository interface {
	Create(ctx context.Context, record *domain.CallRecord) error
	Update(ctx context.Context, record *domain.CallRecord) error
	GetByCallID(ctx context.Context, callID string) (*domain.CallRecord, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.CallRecord, error)
	ListByUser(ctx context.Context, userID uuid.UUID, offset, limit int) ([]*domain.CallRecord, int64, error)
	ListAll(ctx context.Context) ([]*domain.CallRecord, error)
}

// AgentRepository defines persistence operations for agents.
type AgentRepository interface {
	Create(ctx context.Context, agent *domain.Agent) error
	Update(ctx context.Context, agent *domain.Agent) error
	Delete(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Agent, error)
	GetByRetellAgentID(ctx context.Context, retellAgentID string) (*domain.Agent, error)
}

// KnowledgeBaseRepository defines persistence operations for knowledge bases
// and their sources.
type KnowledgeBaseRepository interface {
	Create(ctx context.Context, kb *domain.KnowledgeBase) error
	Update(ctx context.Context, kb *domain.KnowledgeBase) error
	Delete(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.KnowledgeBase, error)
	ListInProgress(ctx context.Context) ([]*domain.KnowledgeBase, error)
	ListInProgressByUser(ctx context.Context, userID uuid.UUID) ([]*domain.KnowledgeBase, error)

	SourceExists(ctx context.Context, sourceID string) (bool, error)
	CreateSource(ctx context.Context, source *domain.KnowledgeBaseSource) error
	ListSources(ctx context.Context, knowledgeBaseID uuid.UUID) ([]*domain.KnowledgeBaseSource, error)
}

// CampaignRepository defines persistence operations for campaigns and their
// contacts.
type CampaignRepository interface {
	Create(ctx context.Context, campaign *domain.Campaign) error
	Update(ctx context.Context, campaign *domain.Campaign) error
	GetByID(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*domain.Campaign, error)
	ListByUser(ctx context.Context, userID uuid.UUID, offset, limit int) ([]*domain.Campaign, int64, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error

	CountContacts(ctx context.Context, campaignID uuid.UUID) (int64, error)
	CreateContacts(ctx context.Context, contacts []*domain.CampaignContact) error
	GetContactByID(ctx context.Context, id uuid.UUID) (*domain.CampaignContact, error)
}

// RepositoryManager combines all repositories
type RepositoryManager interface {
	Call() CallRepository
	Agent() AgentRepository
	KnowledgeBase() KnowledgeBaseRepository
	Campaign() CampaignRepository

	// Health check
	Ping(ctx context.Context) error

	// Close connection
	Close() error
}

// GormRepositoryManager implements RepositoryManager using GORM
type GormRepositoryManager struct {
	db           *gorm.DB
	callRepo     *GormCallRepository
	agentRepo    *GormAgentRepository
	kbRepo       *GormKnowledgeBaseRepository
	campaignRepo *GormCampaignRepository
}

// NewGormRepositoryManager creates a new GORM repository manager
func NewGormRepositoryManager(db *gorm.DB) *GormRepositoryManager {
	return &GormRepositoryManager{
		db:           db,
		callRepo:     NewGormCallRepository(db),
		agentRepo:    NewGormAgentRepository(db),
		kbRepo:       NewGormKnowledgeBaseRepository(db),
		campaignRepo: NewGormCampaignRepository(db),
	}
}

// Call returns the call record repository
func (m *GormRepositoryManager) Call() CallRepository {
	return m.callRepo
}

// Agent returns the agent repository
func (m *GormRepositoryManager) Agent() AgentRepository {
	return m.agentRepo
}

// KnowledgeBase returns the knowledge base repository
func (m *GormRepositoryManager) KnowledgeBase() KnowledgeBaseRepository {
	return m.kbRepo
}

// Campaign returns the campaign repository
func (m *GormRepositoryManager) Campaign() CampaignRepository {
	return m.campaignRepo
}

// Ping checks the database connection
func (m *GormRepositoryManager) Ping(ctx context.Context) error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection
func (m *GormRepositoryManager) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/propestai/voice-agent-service/internal/domain"
	"gorm.io/gorm"
)

// GormAgentRepository handles database operations for agents
type GormAgentRepository struct {
	db *gorm.DB
}

// NewGormAgentRepository creates a new agent repository
func NewGormAgentRepository(db *gorm.DB) *GormAgentRepository {
	return &GormAgentRepository{db: db}
}

// Create inserts a new agent
func (r *GormAgentRepository) Create(ctx context.Context, agent *domain.Agent) error {
	if agent.ID == uuid.Nil {
		agent.ID = uuid.New()
	}
	if agent.CreatedAt.IsZero() {
		agent.CreatedAt = time.Now()
	}
	agent.UpdatedAt = time.Now()

	if err := r.db.WithContext(ctx).Create(agent).Error; err != nil {
		return fmt.Errorf("failed to create agent: %w", err)
	}
	return nil
}

// Update saves an existing agent
func (r *GormAgentRepository) Update(ctx context.Context, agent *domain.Agent) error {
	agent.UpdatedAt = time.Now()
	if err := r.db.WithContext(ctx).Save(agent).Error; err != nil {
		return fmt.Errorf("failed to update agent: %w", err)
	}
	return nil
}

// Delete removes an agent row
func (r *GormAgentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Agent{}).Error; err != nil {
		return fmt.Errorf("failed to delete agent: %w", err)
	}
	return nil
}

// GetByID retrieves an agent by primary key
func (r *GormAgentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Agent, error) {
	var agent domain.Agent
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&agent).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get agent: %w", err)
	}
	return &agent, nil
}

// GetByRetellAgentID retrieves an agent by its Retell-issued agent id.
// Returns (nil, nil) when absent.
func (r *GormAgentRepository) GetByRetellAgentID(ctx context.Context, retellAgentID string) (*domain.Agent, error) {
	var agent domain.Agent
	if err := r.db.WithContext(ctx).Where("agent_id = ?", retellAgentID).First(&agent).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get agent by retell id: %w", err)
	}
	return &agent, nil
}

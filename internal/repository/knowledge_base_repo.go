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

// GormKnowledgeBaseRepository handles database operations for knowledge bases
// and their sources
type GormKnowledgeBaseRepository struct {
	db *gorm.DB
}

// NewGormKnowledgeBaseRepository creates a new knowledge base repository
func NewGormKnowledgeBaseRepository(db *gorm.DB) *GormKnowledgeBaseRepository {
	return &GormKnowledgeBaseRepository{db: db}
}

// Create inserts a new knowledge base
func (r *GormKnowledgeBaseRepository) Create(ctx context.Context, kb *domain.KnowledgeBase) error {
	if kb.ID == uuid.Nil {
		kb.ID = uuid.New()
	}
	if kb.Status == "" {
		kb.Status = domain.KnowledgeBaseStatusInProgress
	}
	if kb.CreatedAt.IsZero() {
		kb.CreatedAt = time.Now()
	}
	kb.UpdatedAt = time.Now()

	if err := r.db.WithContext(ctx).Create(kb).Error; err != nil {
		return fmt.Errorf("failed to create knowledge base: %w", err)
	}
	return nil
}

// Update saves an existing knowledge base
func (r *GormKnowledgeBaseRepository) Update(ctx context.Context, kb *domain.KnowledgeBase) error {
	kb.UpdatedAt = time.Now()
	if err := r.db.WithContext(ctx).Save(kb).Error; err != nil {
		return fmt.Errorf("failed to update knowledge base: %w", err)
	}
	return nil
}

// Delete removes a knowledge base and its sources
func (r *GormKnowledgeBaseRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).Where("knowledge_base_id = ?", id).Delete(&domain.KnowledgeBaseSource{}).Error; err != nil {
		return fmt.Errorf("failed to delete knowledge base sources: %w", err)
	}
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.KnowledgeBase{}).Error; err != nil {
		return fmt.Errorf("failed to delete knowledge base: %w", err)
	}
	return nil
}

// GetByID retrieves a knowledge base by primary key
func (r *GormKnowledgeBaseRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.KnowledgeBase, error) {
	var kb domain.KnowledgeBase
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&kb).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get knowledge base: %w", err)
	}
	return &kb, nil
}

// ListInProgress retrieves all knowledge bases still processing remotely
func (r *GormKnowledgeBaseRepository) ListInProgress(ctx context.Context) ([]*domain.KnowledgeBase, error) {
	var kbs []*domain.KnowledgeBase
	if err := r.db.WithContext(ctx).Where("status = ?", domain.KnowledgeBaseStatusInProgress).Find(&kbs).Error; err != nil {
		return nil, fmt.Errorf("failed to list in-progress knowledge bases: %w", err)
	}
	return kbs, nil
}

// ListInProgressByUser retrieves one user's knowledge bases still processing remotely
func (r *GormKnowledgeBaseRepository) ListInProgressByUser(ctx context.Context, userID uuid.UUID) ([]*domain.KnowledgeBase, error) {
	var kbs []*domain.KnowledgeBase
	if err := r.db.WithContext(ctx).
		Where("status = ? AND user_id = ?", domain.KnowledgeBaseStatusInProgress, userID).
		Find(&kbs).Error; err != nil {
		return nil, fmt.Errorf("failed to list in-progress knowledge bases: %w", err)
	}
	return kbs, nil
}

// SourceExists reports whether a source with the given Retell source id is
// already stored. Sync dedups on this.
func (r *GormKnowledgeBaseRepository) SourceExists(ctx context.Context, sourceID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.KnowledgeBaseSource{}).Where("source_id = ?", sourceID).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check source existence: %w", err)
	}
	return count > 0, nil
}

// CreateSource inserts a new knowledge base source
func (r *GormKnowledgeBaseRepository) CreateSource(ctx context.Context, source *domain.KnowledgeBaseSource) error {
	if source.ID == uuid.Nil {
		source.ID = uuid.New()
	}
	if source.CreatedAt.IsZero() {
		source.CreatedAt = time.Now()
	}
	source.UpdatedAt = time.Now()

	if err := r.db.WithContext(ctx).Create(source).Error; err != nil {
		return fmt.Errorf("failed to create knowledge base source: %w", err)
	}
	return nil
}

// ListSources retrieves all sources of one knowledge base
func (r *GormKnowledgeBaseRepository) ListSources(ctx context.Context, knowledgeBaseID uuid.UUID) ([]*domain.KnowledgeBaseSource, error) {
	var sources []*domain.KnowledgeBaseSource
	if err := r.db.WithContext(ctx).Where("knowledge_base_id = ?", knowledgeBaseID).Find(&sources).Error; err != nil {
		return nil, fmt.Errorf("failed to list knowledge base sources: %w", err)
	}
	return sources, nil
}

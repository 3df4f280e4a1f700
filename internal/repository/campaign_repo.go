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

// GormCampaignRepository handles database operations for campaigns and contacts
type GormCampaignRepository struct {
	db *gorm.DB
}

// NewGormCampaignRepository creates a new campaign repository
func NewGormCampaignRepository(db *gorm.DB) *GormCampaignRepository {
	return &GormCampaignRepository{db: db}
}

// Create inserts a new campaign
func (r *GormCampaignRepository) Create(ctx context.Context, campaign *domain.Campaign) error {
	if campaign.ID == uuid.Nil {
		campaign.ID = uuid.New()
	}
	if campaign.CreatedAt.IsZero() {
		campaign.CreatedAt = time.Now()
	}
	campaign.UpdatedAt = time.Now()

	if err := r.db.WithContext(ctx).Create(campaign).Error; err != nil {
		return fmt.Errorf("failed to create campaign: %w", err)
	}
	return nil
}

// Update saves an existing campaign
func (r *GormCampaignRepository) Update(ctx context.Context, campaign *domain.Campaign) error {
	campaign.UpdatedAt = time.Now()
	if err := r.db.WithContext(ctx).Save(campaign).Error; err != nil {
		return fmt.Errorf("failed to update campaign: %w", err)
	}
	return nil
}

// GetByID retrieves a non-deleted campaign owned by the given user
func (r *GormCampaignRepository) GetByID(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*domain.Campaign, error) {
	var campaign domain.Campaign
	if err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ? AND is_deleted = false", id, userID).
		First(&campaign).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}
	return &campaign, nil
}

// ListByUser retrieves a page of one user's campaigns, newest first
func (r *GormCampaignRepository) ListByUser(ctx context.Context, userID uuid.UUID, offset, limit int) ([]*domain.Campaign, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&domain.Campaign{}).
		Where("user_id = ? AND is_deleted = false", userID).
		Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count campaigns: %w", err)
	}

	var campaigns []*domain.Campaign
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_deleted = false", userID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&campaigns).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list campaigns: %w", err)
	}
	return campaigns, total, nil
}

// SoftDelete marks a campaign as deleted without removing rows
func (r *GormCampaignRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).Model(&domain.Campaign{}).
		Where("id = ?", id).
		Update("is_deleted", true).Error; err != nil {
		return fmt.Errorf("failed to delete campaign: %w", err)
	}
	return nil
}

// CountContacts counts contacts attached to a campaign
func (r *GormCampaignRepository) CountContacts(ctx context.Context, campaignID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.CampaignContact{}).
		Where("campaign_id = ?", campaignID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count campaign contacts: %w", err)
	}
	return count, nil
}

// CreateContacts inserts a batch of campaign contacts
func (r *GormCampaignRepository) CreateContacts(ctx context.Context, contacts []*domain.CampaignContact) error {
	if len(contacts) == 0 {
		return nil
	}
	now := time.Now()
	for _, c := range contacts {
		if c.ID == uuid.Nil {
			c.ID = uuid.New()
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		c.UpdatedAt = now
	}
	if err := r.db.WithContext(ctx).Create(&contacts).Error; err != nil {
		return fmt.Errorf("failed to create campaign contacts: %w", err)
	}
	return nil
}

// GetContactByID retrieves a campaign contact by primary key
func (r *GormCampaignRepository) GetContactByID(ctx context.Context, id uuid.UUID) (*domain.CampaignContact, error) {
	var contact domain.CampaignContact
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&contact).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get campaign contact: %w", err)
	}
	return &contact, nil
}

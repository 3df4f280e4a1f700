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

// GormCallRepository handles database operations for call records
type GormCallRepository struct {
	db *gorm.DB
}

// NewGormCallRepository creates a new call record repository
func NewGormCallRepository(db *gorm.DB) *GormCallRepository {
	return &GormCallRepository{db: db}
}

// Create inserts a new call record
func (r *GormCallRepository) Create(ctx context.Context, record *domain.CallRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	record.UpdatedAt = time.Now()

	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("failed to create call record: %w", err)
	}
	return nil
}

// Update saves an existing call record
func (r *GormCallRepository) Update(ctx context.Context, record *domain.CallRecord) error {
	record.UpdatedAt = time.Now()
	if err := r.db.WithContext(ctx).Save(record).Error; err != nil {
		return fmt.Errorf("failed to update call record: %w", err)
	}
	return nil
}

// GetByCallID retrieves a call record by the Retell call id. Returns
// (nil, nil) when no record exists so callers can decide create-vs-update.
func (r *GormCallRepository) GetByCallID(ctx context.Context, callID string) (*domain.CallRecord, error) {
	var record domain.CallRecord
	if err := r.db.WithContext(ctx).Where("call_id = ?", callID).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get call record: %w", err)
	}
	return &record, nil
}

// GetByID retrieves a call record by primary key
func (r *GormCallRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.CallRecord, error) {
	var record domain.CallRecord
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get call record: %w", err)
	}
	return &record, nil
}

// ListByUser retrieves a page of call records for one user, newest first,
// along with the total count.
func (r *GormCallRepository) ListByUser(ctx context.Context, userID uuid.UUID, offset, limit int) ([]*domain.CallRecord, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&domain.CallRecord{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count call records: %w", err)
	}

	var records []*domain.CallRecord
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list call records: %w", err)
	}
	return records, total, nil
}

// ListAll retrieves every call record. Used by the derived-field backfill.
func (r *GormCallRepository) ListAll(ctx context.Context) ([]*domain.CallRecord, error) {
	var records []*domain.CallRecord
	if err := r.db.WithContext(ctx).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list call records: %w", err)
	}
	return records, nil
}

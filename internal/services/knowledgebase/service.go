package knowledgebase

import (
	"context"

	"github.com/google/uuid"
	"github.com/propestai/voice-agent-service/internal/domain"
	"github.com/propestai/voice-agent-service/internal/repository"
	"github.com/propestai/voice-agent-service/internal/retell"
	"github.com/propestai/voice-agent-service/pkg/logger"
	"go.uber.org/zap"
)

// kbManager is the slice of the Retell client used by knowledge base
// management.
type kbManager interface {
	CreateKnowledgeBase(ctx context.Context, req *retell.CreateKnowledgeBaseRequest) (*retell.KnowledgeBase, error)
	DeleteKnowledgeBase(ctx context.Context, knowledgeBaseID string) error
}

// CreateKnowledgeBaseRequest is the client payload for creating a knowledge
// base.
type CreateKnowledgeBaseRequest struct {
	Name  string                     `json:"name"`
	URLs  []string                   `json:"urls,omitempty"`
	Texts []retell.KnowledgeBaseText `json:"texts,omitempty"`
}

// Service manages knowledge base lifecycle outside of sync.
type Service struct {
	client kbManager
	kbs    repository.KnowledgeBaseRepository
}

// NewService creates a new knowledge base service.
func NewService(client kbManager, kbs repository.KnowledgeBaseRepository) *Service {
	return &Service{
		client: client,
		kbs:    kbs,
	}
}

// Create provisions a knowledge base on Retell and stores it locally in the
// in_progress state. Status only moves to complete/error via sync.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, req *CreateKnowledgeBaseRequest) (*domain.KnowledgeBase, error) {
	if req.Name == "" {
		return nil, domain.NewBadRequest("knowledge base name is required")
	}

	remote, err := s.client.CreateKnowledgeBase(ctx, &retell.CreateKnowledgeBaseRequest{
		KnowledgeBaseName:  req.Name,
		KnowledgeBaseURLs:  req.URLs,
		KnowledgeBaseTexts: req.Texts,
	})
	if err != nil {
		return nil, err
	}

	kb := &domain.KnowledgeBase{
		UserID:          userID,
		KnowledgeBaseID: remote.KnowledgeBaseID,
		Name:            req.Name,
		Status:          domain.KnowledgeBaseStatusInProgress,
	}
	if err := s.kbs.Create(ctx, kb); err != nil {
		return nil, err
	}

	logger.Base().Info("knowledge base created",
		zap.String("knowledge_base_id", kb.KnowledgeBaseID),
		zap.String("user_id", userID.String()),
	)
	return kb, nil
}

// KnowledgeBaseDetail is a knowledge base together with its synced sources.
type KnowledgeBaseDetail struct {
	*domain.KnowledgeBase
	Sources []*domain.KnowledgeBaseSource `json:"sources"`
}

// Get returns one knowledge base with its sources.
func (s *Service) Get(ctx context.Context, userID uuid.UUID, id uuid.UUID) (*KnowledgeBaseDetail, error) {
	kb, err := s.kbs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if kb == nil || kb.UserID != userID {
		return nil, domain.NewNotFound("knowledge base not found")
	}

	sources, err := s.kbs.ListSources(ctx, kb.ID)
	if err != nil {
		return nil, err
	}
	if sources == nil {
		sources = []*domain.KnowledgeBaseSource{}
	}
	return &KnowledgeBaseDetail{KnowledgeBase: kb, Sources: sources}, nil
}

// Delete removes a knowledge base. The remote deletion is best-effort: a
// remote failure is logged and swallowed so local cleanup still proceeds.
func (s *Service) Delete(ctx context.Context, userID uuid.UUID, id uuid.UUID) error {
	kb, err := s.kbs.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if kb == nil || kb.UserID != userID {
		return domain.NewNotFound("knowledge base not found")
	}

	if err := s.client.DeleteKnowledgeBase(ctx, kb.KnowledgeBaseID); err != nil {
		logger.Base().Warn("failed to delete remote knowledge base, removing locally anyway",
			zap.String("knowledge_base_id", kb.KnowledgeBaseID),
			zap.Error(err),
		)
	}

	return s.kbs.Delete(ctx, kb.ID)
}

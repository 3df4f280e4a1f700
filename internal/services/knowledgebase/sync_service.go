package knowledgebase

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/propestai/voice-agent-service/internal/domain"
	"github.com/propestai/voice-agent-service/internal/repository"
	"github.com/propestai/voice-agent-service/internal/retell"
	"github.com/propestai/voice-agent-service/pkg/logger"
	"go.uber.org/zap"
)

// kbRetriever is the slice of the Retell client used by sync.
type kbRetriever interface {
	RetrieveKnowledgeBase(ctx context.Context, knowledgeBaseID string) (*retell.KnowledgeBase, error)
}

// SyncSummary reports the outcome of one reconciliation pass.
type SyncSummary struct {
	Message   string   `json:"message"`
	SyncedIDs []string `json:"synced_ids"`
}

// SyncService reconciles local in-progress knowledge bases against the
// authoritative remote state. A pass is safe to re-run at any point: status
// overwrites are idempotent and source inserts are deduped on source_id.
type SyncService struct {
	client kbRetriever
	kbs    repository.KnowledgeBaseRepository
}

// NewSyncService creates a new knowledge base sync service.
func NewSyncService(client kbRetriever, kbs repository.KnowledgeBaseRepository) *SyncService {
	return &SyncService{
		client: client,
		kbs:    kbs,
	}
}

// SyncAll reconciles every in-progress knowledge base.
func (s *SyncService) SyncAll(ctx context.Context) (*SyncSummary, error) {
	kbs, err := s.kbs.ListInProgress(ctx)
	if err != nil {
		return nil, err
	}
	return s.syncBatch(ctx, kbs)
}

// SyncUser reconciles the in-progress knowledge bases of one user.
func (s *SyncService) SyncUser(ctx context.Context, userID uuid.UUID) (*SyncSummary, error) {
	kbs, err := s.kbs.ListInProgressByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.syncBatch(ctx, kbs)
}

// syncBatch runs the per-base reconciliation. This is a background
// reconciliation job, not a transaction: a failure on one base is logged and
// the batch continues.
func (s *SyncService) syncBatch(ctx context.Context, kbs []*domain.KnowledgeBase) (*SyncSummary, error) {
	if len(kbs) == 0 {
		return &SyncSummary{Message: "no in-progress knowledge bases found", SyncedIDs: []string{}}, nil
	}

	synced := make([]string, 0, len(kbs))
	for _, kb := range kbs {
		if err := s.syncOne(ctx, kb); err != nil {
			logger.Base().Warn("failed to sync knowledge base",
				zap.String("knowledge_base_id", kb.KnowledgeBaseID),
				zap.Error(err),
			)
			continue
		}
		synced = append(synced, kb.KnowledgeBaseID)
	}

	return &SyncSummary{
		Message:   fmt.Sprintf("synced %d knowledge bases", len(synced)),
		SyncedIDs: synced,
	}, nil
}

func (s *SyncService) syncOne(ctx context.Context, kb *domain.KnowledgeBase) error {
	logger.Base().Info("syncing knowledge base", zap.String("knowledge_base_id", kb.KnowledgeBaseID))

	remote, err := s.client.RetrieveKnowledgeBase(ctx, kb.KnowledgeBaseID)
	if err != nil {
		return err
	}

	if remote.Status != "" && domain.KnowledgeBaseStatus(remote.Status) != kb.Status {
		kb.Status = domain.KnowledgeBaseStatus(remote.Status)
		if err := s.kbs.Update(ctx, kb); err != nil {
			return err
		}
	}

	return s.syncSources(ctx, kb, remote.KnowledgeBaseSources)
}

// syncSources adds missing sources, skipping any that already exist. The
// remote service is append-only for sources in this model, so existing rows
// are never mutated.
func (s *SyncService) syncSources(ctx context.Context, kb *domain.KnowledgeBase, sources []retell.KnowledgeBaseSource) error {
	for _, src := range sources {
		if src.SourceID == "" {
			continue
		}

		exists, err := s.kbs.SourceExists(ctx, src.SourceID)
		if err != nil {
			return err
		}
		if exists {
			continue
		}

		var title *string
		if t := src.DisplayTitle(); t != "" {
			title = &t
		}

		newSource := &domain.KnowledgeBaseSource{
			KnowledgeBaseID: kb.ID,
			SourceID:        src.SourceID,
			Type:            domain.ParseSourceType(src.Type),
			Title:           title,
			URL:             src.Location(),
		}
		if err := s.kbs.CreateSource(ctx, newSource); err != nil {
			return err
		}
	}

	logger.Base().Info("synced sources for knowledge base",
		zap.String("knowledge_base_id", kb.KnowledgeBaseID),
	)
	return nil
}

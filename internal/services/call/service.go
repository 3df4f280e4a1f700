package call

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/propestai/voice-agent-service/internal/domain"
	"github.com/propestai/voice-agent-service/internal/repository"
	"github.com/propestai/voice-agent-service/internal/retell"
	"github.com/propestai/voice-agent-service/pkg/logger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// phoneCaller is the slice of the Retell client used by call initiation and
// on-demand reconciliation.
type phoneCaller interface {
	CreatePhoneCall(ctx context.Context, req *retell.CreatePhoneCallRequest) (*retell.Call, error)
	GetCall(ctx context.Context, callID string) (*retell.Call, error)
}

// InitializeCallRequest is the client payload for placing an outbound call.
type InitializeCallRequest struct {
	FromNumber                string                 `json:"from_number"`
	ToNumber                  string                 `json:"to_number"`
	OverrideAgentID           string                 `json:"override_agent_id,omitempty"`
	RetellLLMDynamicVariables map[string]interface{} `json:"retell_llm_dynamic_variables,omitempty"`
	Metadata                  map[string]interface{} `json:"metadata,omitempty"`
	CampaignContactID         *uuid.UUID             `json:"campaign_contact_id,omitempty"`
}

// BackfillSummary reports the outcome of a derived-field backfill pass.
type BackfillSummary struct {
	TotalCalls int `json:"total_calls"`
	Updated    int `json:"updated"`
	Skipped    int `json:"skipped"`
}

// Service places calls through Retell and maintains call records outside the
// webhook path.
type Service struct {
	client phoneCaller
	calls  repository.CallRepository
	agents repository.AgentRepository
}

// NewService creates a new call service.
func NewService(client phoneCaller, calls repository.CallRepository, agents repository.AgentRepository) *Service {
	return &Service{
		client: client,
		calls:  calls,
		agents: agents,
	}
}

// InitializePhoneCall places a phone call through Retell and stores the
// resulting call record. Remote failures propagate: the call was not placed
// and the caller must know.
func (s *Service) InitializePhoneCall(ctx context.Context, userID uuid.UUID, req *InitializeCallRequest) (*domain.CallRecord, error) {
	if req.FromNumber == "" || req.ToNumber == "" {
		return nil, domain.NewBadRequest("from_number and to_number are required")
	}

	resp, err := s.client.CreatePhoneCall(ctx, &retell.CreatePhoneCallRequest{
		FromNumber:                req.FromNumber,
		ToNumber:                  req.ToNumber,
		OverrideAgentID:           req.OverrideAgentID,
		Metadata:                  req.Metadata,
		RetellLLMDynamicVariables: req.RetellLLMDynamicVariables,
	})
	if err != nil {
		return nil, err
	}

	agent, err := s.agents.GetByRetellAgentID(ctx, resp.AgentID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve agent: %w", err)
	}
	if agent == nil {
		return nil, domain.NewNotFound("agent not registered: " + resp.AgentID)
	}

	record := &domain.CallRecord{
		UserID:                    userID,
		AgentID:                   agent.ID,
		AgentName:                 resp.AgentName,
		AgentRetellID:             resp.AgentID,
		CampaignContactID:         req.CampaignContactID,
		CallID:                    resp.CallID,
		CallType:                  domain.CallType(resp.CallType),
		Direction:                 domain.CallDirection(resp.Direction),
		CallStatus:                domain.CallStatus(resp.CallStatus),
		FromNumber:                resp.FromNumber,
		ToNumber:                  resp.ToNumber,
		StartTimestamp:            ParseTimestamp(resp.StartTimestamp),
		EndTimestamp:              ParseTimestamp(resp.EndTimestamp),
		DurationMs:                resp.DurationMs,
		Metadata:                  domain.JSONB(resp.Metadata),
		RetellLLMDynamicVariables: domain.JSONB(resp.RetellLLMDynamicVariables),
		CollectedDynamicVariables: domain.JSONB(resp.CollectedDynamicVariables),
	}

	if err := s.calls.Create(ctx, record); err != nil {
		return nil, err
	}

	logger.Base().Info("retell call created and saved",
		zap.String("call_id", record.CallID),
		zap.String("agent_retell_id", record.AgentRetellID),
	)
	return record, nil
}

// RefreshCall re-fetches one call from Retell and merges the authoritative
// remote state into the stored record. Recovers data from webhook deliveries
// lost while the service was unreachable. The merge is the same null-safe
// patch the webhook handlers use, so a refresh never erases known fields.
func (s *Service) RefreshCall(ctx context.Context, userID uuid.UUID, id uuid.UUID) (*domain.CallRecord, error) {
	record, err := s.calls.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if record == nil || record.UserID != userID {
		return nil, domain.NewNotFound("call not found")
	}

	remote, err := s.client.GetCall(ctx, record.CallID)
	if err != nil {
		return nil, err
	}

	patch := &domain.CallPatch{
		DisconnectionReason:       remote.DisconnectionReason,
		StartTimestamp:            ParseTimestamp(remote.StartTimestamp),
		EndTimestamp:              ParseTimestamp(remote.EndTimestamp),
		DurationMs:                remote.DurationMs,
		Metadata:                  domain.JSONB(remote.Metadata),
		RetellLLMDynamicVariables: domain.JSONB(remote.RetellLLMDynamicVariables),
		CollectedDynamicVariables: domain.JSONB(remote.CollectedDynamicVariables),
		Transcript:                remote.Transcript,
		TranscriptObject:          domain.JSONArray(remote.TranscriptObject),
		TranscriptWithToolCalls:   domain.JSONArray(remote.TranscriptWithToolCalls),
		RecordingURL:              remote.RecordingURL,
		PublicLogURL:              remote.PublicLogURL,
		CallAnalysis:              domain.JSONB(remote.CallAnalysis),
		CallCost:                  domain.JSONB(remote.CallCost),
		LLMTokenUsage:             domain.JSONB(remote.LLMTokenUsage),
	}
	if remote.CallStatus != "" {
		status := domain.CallStatus(remote.CallStatus)
		patch.CallStatus = &status
	}
	applyCostFields(patch, remote.CallCost)
	applyAnalysisFields(patch, remote.CallAnalysis)

	patch.Apply(record)
	if err := s.calls.Update(ctx, record); err != nil {
		return nil, err
	}

	logger.Base().Info("call record refreshed from remote",
		zap.String("call_id", record.CallID),
		zap.String("status", string(record.CallStatus)),
	)
	return record, nil
}

// BackfillDerivedFields scans all call records and extracts the queryable
// analysis and cost fields out of the stored nested documents. Per-record
// failures are logged and skipped; the pass is safe to re-run.
func (s *Service) BackfillDerivedFields(ctx context.Context) (*BackfillSummary, error) {
	records, err := s.calls.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	summary := &BackfillSummary{TotalCalls: len(records)}
	for _, record := range records {
		patch := &domain.CallPatch{}
		applyAnalysisFields(patch, record.CallAnalysis)
		applyCostFields(patch, record.CallCost)

		if !backfillHasChanges(patch) {
			summary.Skipped++
			continue
		}

		patch.Apply(record)
		if err := s.calls.Update(ctx, record); err != nil {
			logger.Base().Warn("failed to backfill call record",
				zap.String("call_id", record.CallID),
				zap.Error(err),
			)
			summary.Skipped++
			continue
		}
		summary.Updated++
	}
	return summary, nil
}

func backfillHasChanges(p *domain.CallPatch) bool {
	if p.UserSentiment != nil || p.CallSuccessful != nil {
		return true
	}
	if p.CombinedCost != nil && !p.CombinedCost.Equal(decimal.Zero) {
		return true
	}
	if p.TotalDurationSeconds != nil && *p.TotalDurationSeconds != 0 {
		return true
	}
	if p.TotalDurationUnitPrice != nil && !p.TotalDurationUnitPrice.Equal(decimal.Zero) {
		return true
	}
	return false
}

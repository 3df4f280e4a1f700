package call

import (
	"context"
	"fmt"
	"time"

	"github.com/propestai/voice-agent-service/internal/domain"
	"github.com/propestai/voice-agent-service/internal/repository"
	"github.com/propestai/voice-agent-service/internal/retell"
	"github.com/propestai/voice-agent-service/pkg/logger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Webhook event names delivered by Retell.
const (
	EventCallStarted  = "call_started"
	EventCallEnded    = "call_ended"
	EventCallAnalyzed = "call_analyzed"
)

// WebhookEnvelope is the body of every Retell lifecycle webhook.
type WebhookEnvelope struct {
	Event string       `json:"event"`
	Call  *retell.Call `json:"call"`
}

// WebhookResult reports the business outcome of one webhook delivery.
// Handled=false means the event name is unknown; that is deliberately not an
// error so future Retell event types do not break ingestion. NotFound=true
// means an ended/analyzed event referenced a call we never saw start; the
// update is dropped and the delivery still acknowledged, so Retell does not
// retry-storm on it.
type WebhookResult struct {
	Handled  bool   `json:"handled"`
	Created  bool   `json:"created"`
	NotFound bool   `json:"not_found"`
	Message  string `json:"message"`
}

// AgentResolver resolves a locally registered agent by its Retell agent id.
// Satisfied by both the repository and the redis-backed agent cache.
type AgentResolver interface {
	GetByRetellAgentID(ctx context.Context, retellAgentID string) (*domain.Agent, error)
}

// WebhookService applies Retell call lifecycle webhooks to call records.
// All writes are idempotent single-document upserts keyed by call_id.
type WebhookService struct {
	calls  repository.CallRepository
	agents AgentResolver
	now    func() time.Time
}

// NewWebhookService creates a new webhook service.
func NewWebhookService(calls repository.CallRepository, agents AgentResolver) *WebhookService {
	return &WebhookService{
		calls:  calls,
		agents: agents,
		now:    time.Now,
	}
}

// HandleEvent validates the envelope, loads any existing record for the
// call id and dispatches to the matching lifecycle handler.
func (s *WebhookService) HandleEvent(ctx context.Context, envelope *WebhookEnvelope) (*WebhookResult, error) {
	if envelope == nil || envelope.Event == "" {
		return nil, domain.NewBadRequest("webhook envelope is missing 'event'")
	}
	if envelope.Call == nil || envelope.Call.CallID == "" {
		return nil, domain.NewBadRequest("webhook envelope is missing 'call.call_id'")
	}

	existing, err := s.calls.GetByCallID(ctx, envelope.Call.CallID)
	if err != nil {
		return nil, fmt.Errorf("failed to load call record: %w", err)
	}

	switch envelope.Event {
	case EventCallStarted:
		return s.handleStarted(ctx, existing, envelope.Call)
	case EventCallEnded:
		return s.handleEnded(ctx, existing, envelope.Call)
	case EventCallAnalyzed:
		return s.handleAnalyzed(ctx, existing, envelope.Call)
	default:
		logger.Base().Info("ignoring unknown webhook event",
			zap.String("event", envelope.Event),
			zap.String("call_id", envelope.Call.CallID),
		)
		return &WebhookResult{Handled: false, Message: "event not handled: " + envelope.Event}, nil
	}
}

// handleStarted creates the call record on first sight of a call. On a
// duplicate or retried start event it merges only the fields the start
// event owns (status, metadata, dynamic variables) so data written by later
// events is never clobbered.
func (s *WebhookService) handleStarted(ctx context.Context, existing *domain.CallRecord, call *retell.Call) (*WebhookResult, error) {
	if existing != nil {
		patch := &domain.CallPatch{
			Metadata:                  domain.JSONB(call.Metadata),
			RetellLLMDynamicVariables: domain.JSONB(call.RetellLLMDynamicVariables),
		}
		if call.CallStatus != "" {
			status := domain.CallStatus(call.CallStatus)
			patch.CallStatus = &status
		}
		patch.Apply(existing)
		if err := s.calls.Update(ctx, existing); err != nil {
			return nil, err
		}
		return &WebhookResult{Handled: true, Message: "call already registered, merged start fields"}, nil
	}

	agent, err := s.agents.GetByRetellAgentID(ctx, call.AgentID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve agent: %w", err)
	}
	if agent == nil {
		return nil, domain.NewNotFound("agent not registered: " + call.AgentID)
	}
	if agent.UserID == nil {
		return nil, domain.NewInvariantViolation("agent has no linked user: " + call.AgentID)
	}

	status := domain.CallStatusRegistered
	if call.CallStatus != "" {
		status = domain.CallStatus(call.CallStatus)
	}

	agentName := call.AgentName
	if agentName == "" {
		agentName = agent.Name
	}

	record := &domain.CallRecord{
		UserID:                    *agent.UserID,
		AgentID:                   agent.ID,
		AgentName:                 agentName,
		AgentRetellID:             call.AgentID,
		CallID:                    call.CallID,
		CallType:                  domain.CallType(call.CallType),
		Direction:                 domain.CallDirection(call.Direction),
		CallStatus:                status,
		FromNumber:                call.FromNumber,
		ToNumber:                  call.ToNumber,
		StartTimestamp:            ParseTimestamp(call.StartTimestamp),
		Metadata:                  domain.JSONB(call.Metadata),
		RetellLLMDynamicVariables: domain.JSONB(call.RetellLLMDynamicVariables),
	}

	if err := s.calls.Create(ctx, record); err != nil {
		return nil, err
	}

	logger.Base().Info("call record created from start webhook",
		zap.String("call_id", call.CallID),
		zap.String("agent_id", call.AgentID),
	)
	return &WebhookResult{Handled: true, Created: true, Message: "call registered"}, nil
}

// handleEnded merges the terminal fields of a call. A call cannot end before
// it starts in this system's view, so a missing record is reported (and
// logged) rather than fabricated.
func (s *WebhookService) handleEnded(ctx context.Context, existing *domain.CallRecord, call *retell.Call) (*WebhookResult, error) {
	if existing == nil {
		logger.Base().Warn("ended webhook for unknown call, dropping",
			zap.String("call_id", call.CallID),
		)
		return &WebhookResult{Handled: true, NotFound: true, Message: "call not found: " + call.CallID}, nil
	}

	status := domain.CallStatusEnded
	if call.CallStatus != "" {
		status = domain.CallStatus(call.CallStatus)
	}

	// end_timestamp must never stay null once a call has ended. The clock
	// fallback only fills a missing value; a replayed delivery without a
	// timestamp must not move an end time that is already set.
	endTS := ParseTimestamp(call.EndTimestamp)
	if endTS == nil && existing.EndTimestamp == nil {
		now := s.now().UTC()
		endTS = &now
	}

	patch := &domain.CallPatch{
		CallStatus:                &status,
		EndTimestamp:              endTS,
		DurationMs:                call.DurationMs,
		DisconnectionReason:       call.DisconnectionReason,
		Transcript:                call.Transcript,
		TranscriptObject:          domain.JSONArray(call.TranscriptObject),
		TranscriptWithToolCalls:   domain.JSONArray(call.TranscriptWithToolCalls),
		RecordingURL:              call.RecordingURL,
		PublicLogURL:              call.PublicLogURL,
		CallCost:                  domain.JSONB(call.CallCost),
		CollectedDynamicVariables: domain.JSONB(call.CollectedDynamicVariables),
	}
	if start := ParseTimestamp(call.StartTimestamp); start != nil && existing.StartTimestamp == nil {
		patch.StartTimestamp = start
	}
	applyCostFields(patch, call.CallCost)

	patch.Apply(existing)
	if err := s.calls.Update(ctx, existing); err != nil {
		return nil, err
	}

	logger.Base().Info("call record updated from end webhook",
		zap.String("call_id", call.CallID),
		zap.String("status", string(status)),
	)
	return &WebhookResult{Handled: true, Message: "call ended"}, nil
}

// handleAnalyzed merges analysis fields only. Metadata and dynamic variables
// are owned by the started/ended handlers and deliberately untouched here.
func (s *WebhookService) handleAnalyzed(ctx context.Context, existing *domain.CallRecord, call *retell.Call) (*WebhookResult, error) {
	if existing == nil {
		logger.Base().Warn("analyzed webhook for unknown call, dropping analysis",
			zap.String("call_id", call.CallID),
		)
		return &WebhookResult{Handled: true, NotFound: true, Message: "call not found: " + call.CallID}, nil
	}

	patch := &domain.CallPatch{
		CallAnalysis:            domain.JSONB(call.CallAnalysis),
		LLMTokenUsage:           domain.JSONB(call.LLMTokenUsage),
		Transcript:              call.Transcript,
		TranscriptObject:        domain.JSONArray(call.TranscriptObject),
		TranscriptWithToolCalls: domain.JSONArray(call.TranscriptWithToolCalls),
	}
	applyAnalysisFields(patch, call.CallAnalysis)

	patch.Apply(existing)
	if err := s.calls.Update(ctx, existing); err != nil {
		return nil, err
	}

	logger.Base().Info("call record updated from analysis webhook",
		zap.String("call_id", call.CallID),
	)
	return &WebhookResult{Handled: true, Message: "call analysis stored"}, nil
}

// applyCostFields extracts the queryable cost sub-fields out of the nested
// remote cost object. Costs are financial values and kept as exact decimals;
// negative values are invalid and ignored.
func applyCostFields(patch *domain.CallPatch, cost map[string]interface{}) {
	if cost == nil {
		return
	}
	if combined, ok := decimalField(cost, "combined_cost"); ok {
		patch.CombinedCost = &combined
	}
	if unitPrice, ok := decimalField(cost, "total_duration_unit_price"); ok {
		patch.TotalDurationUnitPrice = &unitPrice
	}
	if v, ok := cost["total_duration_seconds"].(float64); ok && v >= 0 {
		patch.TotalDurationSeconds = &v
	}
}

// applyAnalysisFields extracts the queryable analysis sub-fields out of the
// nested remote analysis object.
func applyAnalysisFields(patch *domain.CallPatch, analysis map[string]interface{}) {
	if analysis == nil {
		return
	}
	if sentiment, ok := analysis["user_sentiment"].(string); ok && sentiment != "" {
		patch.UserSentiment = &sentiment
	}
	if successful, ok := analysis["call_successful"].(bool); ok {
		patch.CallSuccessful = &successful
	}
}

// decimalField reads a non-negative numeric field out of a decoded JSON map
// as an exact decimal.
func decimalField(m map[string]interface{}, key string) (decimal.Decimal, bool) {
	v, ok := m[key].(float64)
	if !ok || v < 0 {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(v), true
}

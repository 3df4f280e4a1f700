package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/propestai/voice-agent-service/internal/domain"
	"github.com/propestai/voice-agent-service/internal/repository"
	"github.com/propestai/voice-agent-service/internal/retell"
	"github.com/propestai/voice-agent-service/internal/services/workflow"
	"github.com/propestai/voice-agent-service/pkg/logger"
	"go.uber.org/zap"
)

// llmUpdater is the slice of the Retell client used for workflow publishing
// and agent cleanup.
type llmUpdater interface {
	UpdateLLM(ctx context.Context, llmID string, req *retell.UpdateLLMRequest) (*retell.LLM, error)
	DeleteAgent(ctx context.Context, agentID string) error
}

// RegisterAgentRequest links a Retell-provisioned agent to a local user.
type RegisterAgentRequest struct {
	UserID  uuid.UUID `json:"user_id"`
	AgentID string    `json:"agent_id"`
	LLMID   string    `json:"llm_id"`
	Name    string    `json:"name"`
}

// Service manages locally registered agents and their conversation
// workflows.
type Service struct {
	client llmUpdater
	agents repository.AgentRepository
}

// NewService creates a new agent service.
func NewService(client llmUpdater, agents repository.AgentRepository) *Service {
	return &Service{
		client: client,
		agents: agents,
	}
}

// Register stores a Retell agent locally so webhook events for it can be
// attributed to a user.
func (s *Service) Register(ctx context.Context, req *RegisterAgentRequest) (*domain.Agent, error) {
	if req.AgentID == "" || req.Name == "" {
		return nil, domain.NewBadRequest("agent_id and name are required")
	}
	if req.UserID == uuid.Nil {
		return nil, domain.NewBadRequest("user_id is required")
	}

	existing, err := s.agents.GetByRetellAgentID(ctx, req.AgentID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.NewBadRequest("agent already registered: " + req.AgentID)
	}

	userID := req.UserID
	agent := &domain.Agent{
		UserID:  &userID,
		AgentID: req.AgentID,
		LLMID:   req.LLMID,
		Name:    req.Name,
	}
	if err := s.agents.Create(ctx, agent); err != nil {
		return nil, err
	}
	return agent, nil
}

// Get loads one agent by primary key.
func (s *Service) Get(ctx context.Context, agentID uuid.UUID) (*domain.Agent, error) {
	agent, err := s.agents.GetByID(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if agent == nil {
		return nil, domain.NewNotFound("agent not found")
	}
	return agent, nil
}

// PublishWorkflow normalizes a simplified workflow description, pushes the
// resulting state graph to the agent's response engine and persists both the
// raw input and the normalized graph for audit and re-push.
func (s *Service) PublishWorkflow(ctx context.Context, agentID uuid.UUID, states []workflow.StateInput) (*domain.Agent, error) {
	agent, err := s.agents.GetByID(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if agent == nil {
		return nil, domain.NewNotFound("agent not found")
	}
	if agent.LLMID == "" {
		return nil, domain.NewInvariantViolation("agent has no response engine: " + agent.AgentID)
	}

	mapped := workflow.MapStates(states)

	remoteStates, err := toJSONArray(mapped)
	if err != nil {
		return nil, fmt.Errorf("failed to encode workflow states: %w", err)
	}
	rawStates, err := toJSONArray(states)
	if err != nil {
		return nil, fmt.Errorf("failed to encode workflow input: %w", err)
	}

	if _, err := s.client.UpdateLLM(ctx, agent.LLMID, &retell.UpdateLLMRequest{
		States:        []interface{}(remoteStates),
		StartingState: workflow.StartingState(mapped),
	}); err != nil {
		return nil, err
	}

	agent.WorkflowStates = rawStates
	agent.RetellStates = remoteStates
	if err := s.agents.Update(ctx, agent); err != nil {
		return nil, err
	}

	logger.Base().Info("workflow published",
		zap.String("agent_id", agent.AgentID),
		zap.String("llm_id", agent.LLMID),
		zap.Int("states", len(mapped)),
	)
	return agent, nil
}

// Delete removes the agent. The remote deletion is best-effort: a remote
// failure is logged and swallowed so local cleanup still proceeds. Call
// records referencing the agent are kept (audit and billing trail).
func (s *Service) Delete(ctx context.Context, agentID uuid.UUID) error {
	agent, err := s.agents.GetByID(ctx, agentID)
	if err != nil {
		return err
	}
	if agent == nil {
		return domain.NewNotFound("agent not found")
	}

	if err := s.client.DeleteAgent(ctx, agent.AgentID); err != nil {
		logger.Base().Warn("failed to delete remote agent, removing locally anyway",
			zap.String("agent_id", agent.AgentID),
			zap.Error(err),
		)
	}

	return s.agents.Delete(ctx, agent.ID)
}

// toJSONArray converts any slice into the schemaless JSONArray storage type.
func toJSONArray(v interface{}) (domain.JSONArray, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var arr domain.JSONArray
	if err := json.Unmarshal(data, &arr); err != nil {
		return nil, err
	}
	return arr, nil
}

package handler

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/propestai/voice-agent-service/internal/cache"
	"github.com/propestai/voice-agent-service/internal/domain"
	"github.com/propestai/voice-agent-service/internal/services/agent"
	"github.com/propestai/voice-agent-service/internal/services/workflow"
)

// AgentHandler handles HTTP requests for agent registration and workflow
// publishing.
type AgentHandler struct {
	service    *agent.Service
	agentCache *cache.AgentCache
}

// NewAgentHandler creates a new agent handler
func NewAgentHandler(service *agent.Service, agentCache *cache.AgentCache) *AgentHandler {
	return &AgentHandler{
		service:    service,
		agentCache: agentCache,
	}
}

// RegisterAgent links a Retell agent to the authenticated user.
func (h *AgentHandler) RegisterAgent(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req agent.RegisterAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.NewBadRequest("invalid request body"))
		return
	}
	req.UserID = userID

	created, err := h.service.Register(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "agent registered", created)
}

// PublishWorkflow normalizes the submitted workflow states and pushes them to
// the agent's response engine.
func (h *AgentHandler) PublishWorkflow(w http.ResponseWriter, r *http.Request) {
	if _, err := userIDFromRequest(r); err != nil {
		writeError(w, err)
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, domain.NewBadRequest("invalid agent id"))
		return
	}

	var req struct {
		States []workflow.StateInput `json:"states"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.NewBadRequest("invalid request body"))
		return
	}

	updated, err := h.service.PublishWorkflow(r.Context(), id, req.States)
	if err != nil {
		writeError(w, err)
		return
	}

	h.agentCache.Invalidate(r.Context(), updated.AgentID)
	writeSuccess(w, http.StatusOK, "workflow published", updated)
}

// DeleteAgent removes an agent locally and remotely.
func (h *AgentHandler) DeleteAgent(w http.ResponseWriter, r *http.Request) {
	if _, err := userIDFromRequest(r); err != nil {
		writeError(w, err)
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, domain.NewBadRequest("invalid agent id"))
		return
	}

	agentRow, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	h.agentCache.Invalidate(r.Context(), agentRow.AgentID)
	writeSuccess(w, http.StatusOK, "agent deleted", nil)
}

package handler

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/propestai/voice-agent-service/internal/domain"
	"github.com/propestai/voice-agent-service/internal/services/knowledgebase"
)

// KnowledgeBaseHandler handles HTTP requests for knowledge bases.
type KnowledgeBaseHandler struct {
	service     *knowledgebase.Service
	syncService *knowledgebase.SyncService
}

// NewKnowledgeBaseHandler creates a new knowledge base handler
func NewKnowledgeBaseHandler(service *knowledgebase.Service, syncService *knowledgebase.SyncService) *KnowledgeBaseHandler {
	return &KnowledgeBaseHandler{
		service:     service,
		syncService: syncService,
	}
}

// CreateKnowledgeBase provisions a knowledge base remotely and stores it
// locally in the in_progress state.
func (h *KnowledgeBaseHandler) CreateKnowledgeBase(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req knowledgebase.CreateKnowledgeBaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.NewBadRequest("invalid request body"))
		return
	}

	kb, err := h.service.Create(r.Context(), userID, &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "knowledge base created", kb)
}

// GetKnowledgeBase returns one knowledge base with its synced sources.
func (h *KnowledgeBaseHandler) GetKnowledgeBase(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, domain.NewBadRequest("invalid knowledge base id"))
		return
	}

	detail, err := h.service.Get(r.Context(), userID, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", detail)
}

// DeleteKnowledgeBase removes a knowledge base locally and remotely.
func (h *KnowledgeBaseHandler) DeleteKnowledgeBase(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, domain.NewBadRequest("invalid knowledge base id"))
		return
	}

	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "knowledge base deleted", nil)
}

// SyncUserKnowledgeBases reconciles the caller's in-progress knowledge bases
// against the remote state.
func (h *KnowledgeBaseHandler) SyncUserKnowledgeBases(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	summary, err := h.syncService.SyncUser(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, summary.Message, map[string]interface{}{
		"synced_ids": summary.SyncedIDs,
	})
}

// SyncAllKnowledgeBases reconciles every in-progress knowledge base. Operator
// only.
func (h *KnowledgeBaseHandler) SyncAllKnowledgeBases(w http.ResponseWriter, r *http.Request) {
	summary, err := h.syncService.SyncAll(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, summary.Message, map[string]interface{}{
		"synced_ids": summary.SyncedIDs,
	})
}

package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/propestai/voice-agent-service/internal/domain"
	"github.com/propestai/voice-agent-service/internal/repository"
	"github.com/propestai/voice-agent-service/internal/services/call"
	"github.com/propestai/voice-agent-service/pkg/logger"
	"go.uber.org/zap"
)

// CallHandler handles HTTP requests for call records and the Retell webhook.
type CallHandler struct {
	webhookService *call.WebhookService
	callService    *call.Service
	calls          repository.CallRepository
}

// NewCallHandler creates a new call handler
func NewCallHandler(webhookService *call.WebhookService, callService *call.Service, calls repository.CallRepository) *CallHandler {
	return &CallHandler{
		webhookService: webhookService,
		callService:    callService,
		calls:          calls,
	}
}

// HandleRetellWebhook ingests a Retell call lifecycle event. Business
// outcomes (unknown event, unknown call) are acknowledged with 200 so Retell
// does not retry deliveries we have deliberately dropped; only a malformed
// envelope or a real processing failure is a non-2xx.
func (h *CallHandler) HandleRetellWebhook(w http.ResponseWriter, r *http.Request) {
	var envelope call.WebhookEnvelope
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
		writeError(w, domain.NewBadRequest("invalid webhook payload"))
		return
	}

	result, err := h.webhookService.HandleEvent(r.Context(), &envelope)
	if err != nil {
		writeError(w, err)
		return
	}

	status := "success"
	if !result.Handled || result.NotFound {
		status = "ignored"
	}
	writeJSON(w, http.StatusOK, APIResponse{Status: status, Message: result.Message, Data: result})
}

// InitializeCall places an outbound phone call and stores the call record.
func (h *CallHandler) InitializeCall(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req call.InitializeCallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.NewBadRequest("invalid request body"))
		return
	}

	record, err := h.callService.InitializePhoneCall(r.Context(), userID, &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "call initialized", record)
}

// ListCalls returns the authenticated user's call records, newest first.
func (h *CallHandler) ListCalls(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	page, perPage := paginationParams(r)
	records, total, err := h.calls.ListByUser(r.Context(), userID, (page-1)*perPage, perPage)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, PaginatedResponse{
		Status: "success",
		Data:   records,
		Pagination: PaginationMeta{
			Page:    page,
			PerPage: perPage,
			Total:   total,
		},
	})
}

// GetCall returns one call record by its primary key.
func (h *CallHandler) GetCall(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, domain.NewBadRequest("invalid call id"))
		return
	}

	record, err := h.calls.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if record == nil || record.UserID != userID {
		writeError(w, domain.NewNotFound("call not found"))
		return
	}
	writeSuccess(w, http.StatusOK, "", record)
}

// RefreshCall pulls the authoritative remote state of one call and merges it
// into the stored record.
func (h *CallHandler) RefreshCall(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, domain.NewBadRequest("invalid call id"))
		return
	}

	record, err := h.callService.RefreshCall(r.Context(), userID, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "call refreshed", record)
}

// BackfillDerivedFields re-extracts queryable analysis and cost fields from
// the stored nested documents across all call records. Operator only.
func (h *CallHandler) BackfillDerivedFields(w http.ResponseWriter, r *http.Request) {
	summary, err := h.callService.BackfillDerivedFields(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	logger.Base().Info("call backfill finished",
		zap.Int("total", summary.TotalCalls),
		zap.Int("updated", summary.Updated),
		zap.Int("skipped", summary.Skipped),
	)
	writeSuccess(w, http.StatusOK, "backfill complete", summary)
}

// paginationParams reads page/per_page query params with sane bounds.
func paginationParams(r *http.Request) (page, perPage int) {
	page = 1
	perPage = 20
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("per_page")); err == nil && v > 0 && v <= 100 {
		perPage = v
	}
	return page, perPage
}

package handler

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/propestai/voice-agent-service/internal/domain"
	"github.com/propestai/voice-agent-service/internal/repository"
	"github.com/propestai/voice-agent-service/internal/services/call"
)

// CampaignHandler handles HTTP requests for outbound call campaigns.
type CampaignHandler struct {
	campaigns   repository.CampaignRepository
	callService *call.Service
}

// NewCampaignHandler creates a new campaign handler
func NewCampaignHandler(campaigns repository.CampaignRepository, callService *call.Service) *CampaignHandler {
	return &CampaignHandler{campaigns: campaigns, callService: callService}
}

type createCampaignRequest struct {
	Name    string    `json:"name"`
	AgentID uuid.UUID `json:"agent_id"`
}

type importContactsRequest struct {
	Contacts []contactInput `json:"contacts"`
}

type contactInput struct {
	Name        string                 `json:"name"`
	PhoneNumber string                 `json:"phone_number"`
	Fields      map[string]interface{} `json:"fields,omitempty"`
}

// CreateCampaign creates a campaign for the authenticated user.
func (h *CampaignHandler) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req createCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.NewBadRequest("invalid request body"))
		return
	}
	if req.Name == "" || req.AgentID == uuid.Nil {
		writeError(w, domain.NewBadRequest("name and agent_id are required"))
		return
	}

	campaign := &domain.Campaign{
		UserID:  userID,
		AgentID: req.AgentID,
		Name:    req.Name,
	}
	if err := h.campaigns.Create(r.Context(), campaign); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "campaign created", campaign)
}

// ListCampaigns returns the authenticated user's campaigns.
func (h *CampaignHandler) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	page, perPage := paginationParams(r)
	campaigns, total, err := h.campaigns.ListByUser(r.Context(), userID, (page-1)*perPage, perPage)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, PaginatedResponse{
		Status: "success",
		Data:   campaigns,
		Pagination: PaginationMeta{
			Page:    page,
			PerPage: perPage,
			Total:   total,
		},
	})
}

// UpdateCampaign renames a campaign.
func (h *CampaignHandler) UpdateCampaign(w http.ResponseWriter, r *http.Request) {
	campaign, ok := h.loadOwnedCampaign(w, r)
	if !ok {
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.NewBadRequest("invalid request body"))
		return
	}
	if req.Name == "" {
		writeError(w, domain.NewBadRequest("name is required"))
		return
	}

	campaign.Name = req.Name
	if err := h.campaigns.Update(r.Context(), campaign); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "campaign updated", campaign)
}

// DeleteCampaign soft-deletes a campaign. A campaign that already has
// contacts cannot be deleted; its call history must stay reachable.
func (h *CampaignHandler) DeleteCampaign(w http.ResponseWriter, r *http.Request) {
	campaign, ok := h.loadOwnedCampaign(w, r)
	if !ok {
		return
	}

	contacts, err := h.campaigns.CountContacts(r.Context(), campaign.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	if contacts > 0 {
		writeError(w, domain.NewBadRequest("campaign has contacts and cannot be deleted"))
		return
	}

	if err := h.campaigns.SoftDelete(r.Context(), campaign.ID); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "campaign deleted", nil)
}

// ImportContacts bulk-inserts contacts into a campaign.
func (h *CampaignHandler) ImportContacts(w http.ResponseWriter, r *http.Request) {
	campaign, ok := h.loadOwnedCampaign(w, r)
	if !ok {
		return
	}

	var req importContactsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.NewBadRequest("invalid request body"))
		return
	}
	if len(req.Contacts) == 0 {
		writeError(w, domain.NewBadRequest("contacts is empty"))
		return
	}

	contacts := make([]*domain.CampaignContact, 0, len(req.Contacts))
	for _, c := range req.Contacts {
		if c.PhoneNumber == "" {
			writeError(w, domain.NewBadRequest("every contact needs a phone_number"))
			return
		}
		contacts = append(contacts, &domain.CampaignContact{
			CampaignID:  campaign.ID,
			Name:        c.Name,
			PhoneNumber: c.PhoneNumber,
			Fields:      domain.JSONB(c.Fields),
		})
	}

	if err := h.campaigns.CreateContacts(r.Context(), contacts); err != nil {
		writeError(w, err)
		return
	}

	total, err := h.campaigns.CountContacts(r.Context(), campaign.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "contacts imported", map[string]interface{}{
		"imported":       len(contacts),
		"total_contacts": total,
	})
}

// DialContact places an outbound call to one campaign contact. The contact's
// imported fields are forwarded to the agent as dynamic variables.
func (h *CampaignHandler) DialContact(w http.ResponseWriter, r *http.Request) {
	campaign, ok := h.loadOwnedCampaign(w, r)
	if !ok {
		return
	}
	userID, _ := userIDFromRequest(r)

	contactID, err := uuid.Parse(mux.Vars(r)["contact_id"])
	if err != nil {
		writeError(w, domain.NewBadRequest("invalid contact id"))
		return
	}

	contact, err := h.campaigns.GetContactByID(r.Context(), contactID)
	if err != nil {
		writeError(w, err)
		return
	}
	if contact == nil || contact.CampaignID != campaign.ID {
		writeError(w, domain.NewNotFound("contact not found"))
		return
	}

	var req struct {
		FromNumber      string `json:"from_number"`
		OverrideAgentID string `json:"override_agent_id,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.NewBadRequest("invalid request body"))
		return
	}

	contactRef := contact.ID
	record, err := h.callService.InitializePhoneCall(r.Context(), userID, &call.InitializeCallRequest{
		FromNumber:                req.FromNumber,
		ToNumber:                  contact.PhoneNumber,
		OverrideAgentID:           req.OverrideAgentID,
		RetellLLMDynamicVariables: contact.Fields,
		CampaignContactID:         &contactRef,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "contact dialed", record)
}

// loadOwnedCampaign resolves the {id} path variable to a campaign owned by
// the caller, writing the error response itself on failure.
func (h *CampaignHandler) loadOwnedCampaign(w http.ResponseWriter, r *http.Request) (*domain.Campaign, bool) {
	userID, err := userIDFromRequest(r)
	if err != nil {
		writeError(w, err)
		return nil, false
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, domain.NewBadRequest("invalid campaign id"))
		return nil, false
	}

	campaign, err := h.campaigns.GetByID(r.Context(), id, userID)
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	if campaign == nil {
		writeError(w, domain.NewNotFound("campaign not found"))
		return nil, false
	}
	return campaign, true
}

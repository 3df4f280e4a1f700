package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/propestai/voice-agent-service/internal/domain"
	"github.com/propestai/voice-agent-service/internal/services/call"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCallRepo struct {
	records map[string]*domain.CallRecord
}

func newStubCallRepo() *stubCallRepo {
	return &stubCallRepo{records: make(map[string]*domain.CallRecord)}
}

func (r *stubCallRepo) Create(_ context.Context, record *domain.CallRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	r.records[record.CallID] = record
	return nil
}

func (r *stubCallRepo) Update(_ context.Context, record *domain.CallRecord) error {
	r.records[record.CallID] = record
	return nil
}

func (r *stubCallRepo) GetByCallID(_ context.Context, callID string) (*domain.CallRecord, error) {
	return r.records[callID], nil
}

func (r *stubCallRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.CallRecord, error) {
	for _, record := range r.records {
		if record.ID == id {
			return record, nil
		}
	}
	return nil, nil
}

func (r *stubCallRepo) ListByUser(_ context.Context, userID uuid.UUID, _, _ int) ([]*domain.CallRecord, int64, error) {
	var out []*domain.CallRecord
	for _, record := range r.records {
		if record.UserID == userID {
			out = append(out, record)
		}
	}
	return out, int64(len(out)), nil
}

func (r *stubCallRepo) ListAll(_ context.Context) ([]*domain.CallRecord, error) {
	out := make([]*domain.CallRecord, 0, len(r.records))
	for _, record := range r.records {
		out = append(out, record)
	}
	return out, nil
}

type stubAgentResolver struct {
	agents map[string]*domain.Agent
}

func (r *stubAgentResolver) GetByRetellAgentID(_ context.Context, retellAgentID string) (*domain.Agent, error) {
	return r.agents[retellAgentID], nil
}

func newWebhookTestHandler() (*CallHandler, *stubCallRepo) {
	repo := newStubCallRepo()
	userID := uuid.New()
	resolver := &stubAgentResolver{agents: map[string]*domain.Agent{
		"agent_abc": {ID: uuid.New(), UserID: &userID, AgentID: "agent_abc", Name: "Booking Agent"},
	}}
	webhookService := call.NewWebhookService(repo, resolver)
	return NewCallHandler(webhookService, nil, repo), repo
}

func postWebhook(t *testing.T, h *CallHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/calls/retell/webhook", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.HandleRetellWebhook(rec, req)
	return rec
}

func TestWebhookEndpointRejectsInvalidJSON(t *testing.T) {
	h, _ := newWebhookTestHandler()

	rec := postWebhook(t, h, "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookEndpointRejectsMissingCallID(t *testing.T) {
	h, _ := newWebhookTestHandler()

	rec := postWebhook(t, h, `{"event":"call_started","call":{}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookEndpointCreatesCall(t *testing.T) {
	h, repo := newWebhookTestHandler()

	rec := postWebhook(t, h, `{
		"event": "call_started",
		"call": {
			"call_id": "call_1",
			"agent_id": "agent_abc",
			"call_status": "ongoing",
			"start_timestamp": 1700000000000
		}
	}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	assert.NotNil(t, repo.records["call_1"])
}

func TestWebhookEndpointAcknowledgesUnknownEvent(t *testing.T) {
	h, repo := newWebhookTestHandler()

	rec := postWebhook(t, h, `{"event":"call_transferred","call":{"call_id":"call_x","agent_id":"agent_abc"}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ignored", resp.Status)
	assert.Empty(t, repo.records)
}

func TestWebhookEndpointAcknowledgesEndedForUnknownCall(t *testing.T) {
	h, _ := newWebhookTestHandler()

	rec := postWebhook(t, h, `{"event":"call_ended","call":{"call_id":"call_ghost","agent_id":"agent_abc"}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ignored", resp.Status)
}

func TestWebhookEndpointUnknownAgentIsNotFound(t *testing.T) {
	h, _ := newWebhookTestHandler()

	rec := postWebhook(t, h, `{"event":"call_started","call":{"call_id":"call_1","agent_id":"agent_unregistered"}}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

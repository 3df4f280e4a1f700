package call

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/propestai/voice-agent-service/internal/domain"
	"github.com/propestai/voice-agent-service/internal/retell"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCallRepo is an in-memory CallRepository keyed by call_id.
type fakeCallRepo struct {
	records map[string]*domain.CallRecord
}

func newFakeCallRepo() *fakeCallRepo {
	return &fakeCallRepo{records: make(map[string]*domain.CallRecord)}
}

func (r *fakeCallRepo) Create(_ context.Context, record *domain.CallRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	cp := *record
	r.records[record.CallID] = &cp
	return nil
}

func (r *fakeCallRepo) Update(_ context.Context, record *domain.CallRecord) error {
	cp := *record
	r.records[record.CallID] = &cp
	return nil
}

func (r *fakeCallRepo) GetByCallID(_ context.Context, callID string) (*domain.CallRecord, error) {
	record, ok := r.records[callID]
	if !ok {
		return nil, nil
	}
	cp := *record
	return &cp, nil
}

func (r *fakeCallRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.CallRecord, error) {
	for _, record := range r.records {
		if record.ID == id {
			cp := *record
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeCallRepo) ListByUser(_ context.Context, userID uuid.UUID, _, _ int) ([]*domain.CallRecord, int64, error) {
	var out []*domain.CallRecord
	for _, record := range r.records {
		if record.UserID == userID {
			out = append(out, record)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeCallRepo) ListAll(_ context.Context) ([]*domain.CallRecord, error) {
	out := make([]*domain.CallRecord, 0, len(r.records))
	for _, record := range r.records {
		out = append(out, record)
	}
	return out, nil
}

// fakeAgentResolver serves agents by Retell agent id.
type fakeAgentResolver struct {
	agents map[string]*domain.Agent
}

func (r *fakeAgentResolver) GetByRetellAgentID(_ context.Context, retellAgentID string) (*domain.Agent, error) {
	return r.agents[retellAgentID], nil
}

func newTestWebhookService() (*WebhookService, *fakeCallRepo, uuid.UUID) {
	repo := newFakeCallRepo()
	userID := uuid.New()
	resolver := &fakeAgentResolver{agents: map[string]*domain.Agent{
		"agent_abc": {
			ID:      uuid.New(),
			UserID:  &userID,
			AgentID: "agent_abc",
			Name:    "Booking Agent",
		},
	}}

	svc := NewWebhookService(repo, resolver)
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) }
	return svc, repo, userID
}

func TestHandleEventRejectsMalformedEnvelope(t *testing.T) {
	svc, _, _ := newTestWebhookService()
	ctx := context.Background()

	_, err := svc.HandleEvent(ctx, nil)
	assert.Equal(t, domain.KindBadRequest, domain.KindOf(err))

	_, err = svc.HandleEvent(ctx, &WebhookEnvelope{Event: EventCallStarted})
	assert.Equal(t, domain.KindBadRequest, domain.KindOf(err))

	_, err = svc.HandleEvent(ctx, &WebhookEnvelope{Event: EventCallStarted, Call: &retell.Call{}})
	assert.Equal(t, domain.KindBadRequest, domain.KindOf(err))
}

func TestHandleEventUnknownEventIsAcknowledged(t *testing.T) {
	svc, repo, _ := newTestWebhookService()

	result, err := svc.HandleEvent(context.Background(), &WebhookEnvelope{
		Event: "call_transferred",
		Call:  &retell.Call{CallID: "call_1", AgentID: "agent_abc"},
	})
	require.NoError(t, err)
	assert.False(t, result.Handled)
	assert.Empty(t, repo.records)
}

func TestCallStartedCreatesRecord(t *testing.T) {
	svc, repo, userID := newTestWebhookService()

	result, err := svc.HandleEvent(context.Background(), &WebhookEnvelope{
		Event: EventCallStarted,
		Call: &retell.Call{
			CallID:         "call_1",
			AgentID:        "agent_abc",
			CallType:       "phone_call",
			Direction:      "inbound",
			CallStatus:     "ongoing",
			FromNumber:     "+85260001111",
			ToNumber:       "+85260002222",
			StartTimestamp: json.Number("1700000000000"),
			Metadata:       map[string]interface{}{"source": "website"},
		},
	})
	require.NoError(t, err)
	assert.True(t, result.Created)

	record := repo.records["call_1"]
	require.NotNil(t, record)
	assert.Equal(t, userID, record.UserID)
	assert.Equal(t, domain.CallStatusOngoing, record.CallStatus)
	assert.Equal(t, "Booking Agent", record.AgentName)
	require.NotNil(t, record.StartTimestamp)
	assert.True(t, record.StartTimestamp.Equal(time.Unix(1700000000, 0)))
	assert.Equal(t, "website", record.Metadata["source"])
}

func TestCallStartedUnknownAgent(t *testing.T) {
	svc, repo, _ := newTestWebhookService()

	_, err := svc.HandleEvent(context.Background(), &WebhookEnvelope{
		Event: EventCallStarted,
		Call:  &retell.Call{CallID: "call_1", AgentID: "agent_unknown"},
	})
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
	assert.Empty(t, repo.records)
}

func TestCallStartedAgentWithoutUser(t *testing.T) {
	repo := newFakeCallRepo()
	resolver := &fakeAgentResolver{agents: map[string]*domain.Agent{
		"agent_orphan": {ID: uuid.New(), AgentID: "agent_orphan"},
	}}
	svc := NewWebhookService(repo, resolver)

	_, err := svc.HandleEvent(context.Background(), &WebhookEnvelope{
		Event: EventCallStarted,
		Call:  &retell.Call{CallID: "call_1", AgentID: "agent_orphan"},
	})
	assert.Equal(t, domain.KindInvariantViolation, domain.KindOf(err))
}

func TestCallEndedWithoutStartIsDropped(t *testing.T) {
	svc, repo, _ := newTestWebhookService()

	result, err := svc.HandleEvent(context.Background(), &WebhookEnvelope{
		Event: EventCallEnded,
		Call:  &retell.Call{CallID: "call_never_started", AgentID: "agent_abc"},
	})
	require.NoError(t, err)
	assert.True(t, result.Handled)
	assert.True(t, result.NotFound)
	assert.Empty(t, repo.records)
}

func TestCallEndedTimestampNeverNull(t *testing.T) {
	svc, repo, _ := newTestWebhookService()
	ctx := context.Background()

	_, err := svc.HandleEvent(ctx, &WebhookEnvelope{
		Event: EventCallStarted,
		Call:  &retell.Call{CallID: "call_1", AgentID: "agent_abc", StartTimestamp: json.Number("1700000000")},
	})
	require.NoError(t, err)

	// ended event with no end_timestamp at all
	_, err = svc.HandleEvent(ctx, &WebhookEnvelope{
		Event: EventCallEnded,
		Call:  &retell.Call{CallID: "call_1", AgentID: "agent_abc"},
	})
	require.NoError(t, err)

	record := repo.records["call_1"]
	require.NotNil(t, record.EndTimestamp)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), *record.EndTimestamp)
	assert.Equal(t, domain.CallStatusEnded, record.CallStatus)
}

func TestCallEndedReplayWithoutTimestampKeepsFirstEndTime(t *testing.T) {
	svc, repo, _ := newTestWebhookService()
	ctx := context.Background()

	_, err := svc.HandleEvent(ctx, &WebhookEnvelope{
		Event: EventCallStarted,
		Call:  &retell.Call{CallID: "call_1", AgentID: "agent_abc"},
	})
	require.NoError(t, err)

	ended := &WebhookEnvelope{
		Event: EventCallEnded,
		Call:  &retell.Call{CallID: "call_1", AgentID: "agent_abc"},
	}
	_, err = svc.HandleEvent(ctx, ended)
	require.NoError(t, err)

	first := repo.records["call_1"].EndTimestamp
	require.NotNil(t, first)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), *first)

	// identical redelivery a minute later must leave the record unchanged
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 10, 1, 0, 0, time.UTC) }
	_, err = svc.HandleEvent(ctx, ended)
	require.NoError(t, err)

	replayed := repo.records["call_1"].EndTimestamp
	require.NotNil(t, replayed)
	assert.Equal(t, *first, *replayed)
}

func TestCallEndedExtractsCostFields(t *testing.T) {
	svc, repo, _ := newTestWebhookService()
	ctx := context.Background()

	_, err := svc.HandleEvent(ctx, &WebhookEnvelope{
		Event: EventCallStarted,
		Call:  &retell.Call{CallID: "call_1", AgentID: "agent_abc"},
	})
	require.NoError(t, err)

	_, err = svc.HandleEvent(ctx, &WebhookEnvelope{
		Event: EventCallEnded,
		Call: &retell.Call{
			CallID:       "call_1",
			AgentID:      "agent_abc",
			EndTimestamp: json.Number("1700000120000"),
			CallCost: map[string]interface{}{
				"combined_cost":             0.1234,
				"total_duration_seconds":    120.0,
				"total_duration_unit_price": 0.001,
			},
		},
	})
	require.NoError(t, err)

	record := repo.records["call_1"]
	assert.True(t, record.CombinedCost.Equal(decimal.NewFromFloat(0.1234)))
	assert.Equal(t, 120.0, record.TotalDurationSeconds)
	assert.True(t, record.TotalDurationUnitPrice.Equal(decimal.NewFromFloat(0.001)))
	// the nested document is preserved as-is alongside the extracted fields
	assert.NotNil(t, record.CallCost)
}

func TestNullFieldsNeverErasePreviousData(t *testing.T) {
	svc, repo, _ := newTestWebhookService()
	ctx := context.Background()

	_, err := svc.HandleEvent(ctx, &WebhookEnvelope{
		Event: EventCallStarted,
		Call:  &retell.Call{CallID: "call_1", AgentID: "agent_abc"},
	})
	require.NoError(t, err)

	recording := "https://cdn.retell.example/rec_1.wav"
	_, err = svc.HandleEvent(ctx, &WebhookEnvelope{
		Event: EventCallEnded,
		Call: &retell.Call{
			CallID:       "call_1",
			AgentID:      "agent_abc",
			EndTimestamp: json.Number("1700000120"),
			RecordingURL: &recording,
		},
	})
	require.NoError(t, err)

	// retried delivery carries nulls for the optional fields
	_, err = svc.HandleEvent(ctx, &WebhookEnvelope{
		Event: EventCallEnded,
		Call: &retell.Call{
			CallID:       "call_1",
			AgentID:      "agent_abc",
			EndTimestamp: json.Number("1700000120"),
		},
	})
	require.NoError(t, err)

	record := repo.records["call_1"]
	require.NotNil(t, record.RecordingURL)
	assert.Equal(t, recording, *record.RecordingURL)
}

func TestDuplicateStartedKeepsLaterData(t *testing.T) {
	svc, repo, _ := newTestWebhookService()
	ctx := context.Background()

	transcript := "Hello, I'd like to book."
	_, err := svc.HandleEvent(ctx, &WebhookEnvelope{
		Event: EventCallStarted,
		Call:  &retell.Call{CallID: "call_1", AgentID: "agent_abc"},
	})
	require.NoError(t, err)

	_, err = svc.HandleEvent(ctx, &WebhookEnvelope{
		Event: EventCallEnded,
		Call: &retell.Call{
			CallID:       "call_1",
			AgentID:      "agent_abc",
			EndTimestamp: json.Number("1700000120"),
			Transcript:   &transcript,
		},
	})
	require.NoError(t, err)

	// replayed start event must not clobber end-owned fields
	result, err := svc.HandleEvent(ctx, &WebhookEnvelope{
		Event: EventCallStarted,
		Call:  &retell.Call{CallID: "call_1", AgentID: "agent_abc", CallStatus: "ongoing"},
	})
	require.NoError(t, err)
	assert.False(t, result.Created)

	record := repo.records["call_1"]
	require.NotNil(t, record.Transcript)
	assert.Equal(t, transcript, *record.Transcript)
	require.NotNil(t, record.EndTimestamp)
}

func TestFullLifecycleStartedEndedAnalyzed(t *testing.T) {
	svc, repo, _ := newTestWebhookService()
	ctx := context.Background()

	_, err := svc.HandleEvent(ctx, &WebhookEnvelope{
		Event: EventCallStarted,
		Call: &retell.Call{
			CallID:         "call_1",
			AgentID:        "agent_abc",
			CallStatus:     "ongoing",
			StartTimestamp: json.Number("1700000000"),
		},
	})
	require.NoError(t, err)

	durationMs := int64(5000)
	_, err = svc.HandleEvent(ctx, &WebhookEnvelope{
		Event: EventCallEnded,
		Call: &retell.Call{
			CallID:       "call_1",
			AgentID:      "agent_abc",
			CallStatus:   "ended",
			EndTimestamp: json.Number("1700000300"),
			DurationMs:   &durationMs,
			CallCost:     map[string]interface{}{"combined_cost": 0.25},
		},
	})
	require.NoError(t, err)

	_, err = svc.HandleEvent(ctx, &WebhookEnvelope{
		Event: EventCallAnalyzed,
		Call: &retell.Call{
			CallID:  "call_1",
			AgentID: "agent_abc",
			CallAnalysis: map[string]interface{}{
				"user_sentiment":  "Positive",
				"call_successful": true,
				"call_summary":    "Booked an appointment.",
			},
		},
	})
	require.NoError(t, err)

	record := repo.records["call_1"]
	assert.Equal(t, domain.CallStatusEnded, record.CallStatus)
	assert.True(t, record.IsTerminal())
	require.NotNil(t, record.StartTimestamp)
	require.NotNil(t, record.EndTimestamp)
	require.NotNil(t, record.DurationMs)
	assert.Equal(t, int64(5000), *record.DurationMs)
	assert.True(t, record.CombinedCost.Equal(decimal.NewFromFloat(0.25)))
	require.NotNil(t, record.UserSentiment)
	assert.Equal(t, "Positive", *record.UserSentiment)
	require.NotNil(t, record.CallSuccessful)
	assert.True(t, *record.CallSuccessful)
	assert.Equal(t, "Booked an appointment.", record.CallAnalysis["call_summary"])
}

func TestCallAnalyzedWithoutRecordIsDropped(t *testing.T) {
	svc, _, _ := newTestWebhookService()

	result, err := svc.HandleEvent(context.Background(), &WebhookEnvelope{
		Event: EventCallAnalyzed,
		Call: &retell.Call{
			CallID:       "call_ghost",
			AgentID:      "agent_abc",
			CallAnalysis: map[string]interface{}{"user_sentiment": "Neutral"},
		},
	})
	require.NoError(t, err)
	assert.True(t, result.NotFound)
}

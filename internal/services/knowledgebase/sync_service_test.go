package knowledgebase

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/propestai/voice-agent-service/internal/domain"
	"github.com/propestai/voice-agent-service/internal/retell"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeKBRepo is an in-memory KnowledgeBaseRepository.
type fakeKBRepo struct {
	kbs     map[uuid.UUID]*domain.KnowledgeBase
	sources map[string]*domain.KnowledgeBaseSource
}

func newFakeKBRepo() *fakeKBRepo {
	return &fakeKBRepo{
		kbs:     make(map[uuid.UUID]*domain.KnowledgeBase),
		sources: make(map[string]*domain.KnowledgeBaseSource),
	}
}

func (r *fakeKBRepo) Create(_ context.Context, kb *domain.KnowledgeBase) error {
	if kb.ID == uuid.Nil {
		kb.ID = uuid.New()
	}
	r.kbs[kb.ID] = kb
	return nil
}

func (r *fakeKBRepo) Update(_ context.Context, kb *domain.KnowledgeBase) error {
	r.kbs[kb.ID] = kb
	return nil
}

func (r *fakeKBRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.kbs, id)
	return nil
}

func (r *fakeKBRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.KnowledgeBase, error) {
	return r.kbs[id], nil
}

func (r *fakeKBRepo) ListInProgress(_ context.Context) ([]*domain.KnowledgeBase, error) {
	var out []*domain.KnowledgeBase
	for _, kb := range r.kbs {
		if kb.Status == domain.KnowledgeBaseStatusInProgress {
			out = append(out, kb)
		}
	}
	return out, nil
}

func (r *fakeKBRepo) ListInProgressByUser(_ context.Context, userID uuid.UUID) ([]*domain.KnowledgeBase, error) {
	var out []*domain.KnowledgeBase
	for _, kb := range r.kbs {
		if kb.Status == domain.KnowledgeBaseStatusInProgress && kb.UserID == userID {
			out = append(out, kb)
		}
	}
	return out, nil
}

func (r *fakeKBRepo) SourceExists(_ context.Context, sourceID string) (bool, error) {
	_, ok := r.sources[sourceID]
	return ok, nil
}

func (r *fakeKBRepo) CreateSource(_ context.Context, source *domain.KnowledgeBaseSource) error {
	if source.ID == uuid.Nil {
		source.ID = uuid.New()
	}
	r.sources[source.SourceID] = source
	return nil
}

func (r *fakeKBRepo) ListSources(_ context.Context, knowledgeBaseID uuid.UUID) ([]*domain.KnowledgeBaseSource, error) {
	var out []*domain.KnowledgeBaseSource
	for _, src := range r.sources {
		if src.KnowledgeBaseID == knowledgeBaseID {
			out = append(out, src)
		}
	}
	return out, nil
}

// fakeKBRetriever serves remote knowledge bases by id.
type fakeKBRetriever struct {
	remote map[string]*retell.KnowledgeBase
	errs   map[string]error
}

func (f *fakeKBRetriever) RetrieveKnowledgeBase(_ context.Context, id string) (*retell.KnowledgeBase, error) {
	if err := f.errs[id]; err != nil {
		return nil, err
	}
	kb, ok := f.remote[id]
	if !ok {
		return nil, errors.New("remote knowledge base not found")
	}
	return kb, nil
}

func seedKB(repo *fakeKBRepo, userID uuid.UUID, remoteID string) *domain.KnowledgeBase {
	kb := &domain.KnowledgeBase{
		ID:              uuid.New(),
		UserID:          userID,
		KnowledgeBaseID: remoteID,
		Name:            "kb " + remoteID,
		Status:          domain.KnowledgeBaseStatusInProgress,
	}
	repo.kbs[kb.ID] = kb
	return kb
}

func TestSyncAllEmpty(t *testing.T) {
	svc := NewSyncService(&fakeKBRetriever{}, newFakeKBRepo())

	summary, err := svc.SyncAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "no in-progress knowledge bases found", summary.Message)
	assert.Empty(t, summary.SyncedIDs)
}

func TestSyncPullsStatusAndSources(t *testing.T) {
	repo := newFakeKBRepo()
	kb := seedKB(repo, uuid.New(), "kb_remote_1")

	retriever := &fakeKBRetriever{remote: map[string]*retell.KnowledgeBase{
		"kb_remote_1": {
			KnowledgeBaseID: "kb_remote_1",
			Status:          "complete",
			KnowledgeBaseSources: []retell.KnowledgeBaseSource{
				{SourceID: "src_1", Type: "document", Filename: "pricing.pdf", FileURL: "https://files.example/pricing.pdf"},
				{SourceID: "src_2", Type: "url", URL: "https://propest.example/faq"},
			},
		},
	}}

	svc := NewSyncService(retriever, repo)
	summary, err := svc.SyncAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"kb_remote_1"}, summary.SyncedIDs)

	assert.Equal(t, domain.KnowledgeBaseStatusComplete, repo.kbs[kb.ID].Status)
	require.Len(t, repo.sources, 2)

	doc := repo.sources["src_1"]
	assert.Equal(t, domain.SourceTypeDocument, doc.Type)
	require.NotNil(t, doc.Title)
	assert.Equal(t, "pricing.pdf", *doc.Title)
	assert.Equal(t, "https://files.example/pricing.pdf", doc.URL)
}

func TestSyncDedupesExistingSources(t *testing.T) {
	repo := newFakeKBRepo()
	kb := seedKB(repo, uuid.New(), "kb_remote_1")
	repo.sources["src_1"] = &domain.KnowledgeBaseSource{
		ID:              uuid.New(),
		KnowledgeBaseID: kb.ID,
		SourceID:        "src_1",
		Type:            domain.SourceTypeURL,
		URL:             "https://propest.example/original",
	}

	retriever := &fakeKBRetriever{remote: map[string]*retell.KnowledgeBase{
		"kb_remote_1": {
			KnowledgeBaseID: "kb_remote_1",
			Status:          "in_progress",
			KnowledgeBaseSources: []retell.KnowledgeBaseSource{
				{SourceID: "src_1", Type: "url", URL: "https://propest.example/changed"},
				{SourceID: "src_3", Type: "text", ContentURL: "https://files.example/src_3.txt"},
			},
		},
	}}

	svc := NewSyncService(retriever, repo)
	_, err := svc.SyncAll(context.Background())
	require.NoError(t, err)

	// existing source untouched, new source inserted once
	require.Len(t, repo.sources, 2)
	assert.Equal(t, "https://propest.example/original", repo.sources["src_1"].URL)
	assert.Equal(t, domain.SourceTypeText, repo.sources["src_3"].Type)
}

func TestSyncSkipsSourcesWithoutID(t *testing.T) {
	repo := newFakeKBRepo()
	seedKB(repo, uuid.New(), "kb_remote_1")

	retriever := &fakeKBRetriever{remote: map[string]*retell.KnowledgeBase{
		"kb_remote_1": {
			KnowledgeBaseID: "kb_remote_1",
			KnowledgeBaseSources: []retell.KnowledgeBaseSource{
				{SourceID: "", Type: "url", URL: "https://propest.example/ghost"},
				{SourceID: "src_1", Type: "bogus_type", URL: "https://propest.example/a"},
			},
		},
	}}

	svc := NewSyncService(retriever, repo)
	_, err := svc.SyncAll(context.Background())
	require.NoError(t, err)

	require.Len(t, repo.sources, 1)
	// unknown source types degrade to url instead of failing the pass
	assert.Equal(t, domain.SourceTypeURL, repo.sources["src_1"].Type)
}

func TestSyncContinuesPastFailures(t *testing.T) {
	repo := newFakeKBRepo()
	userID := uuid.New()
	seedKB(repo, userID, "kb_broken")
	healthy := seedKB(repo, userID, "kb_healthy")

	retriever := &fakeKBRetriever{
		remote: map[string]*retell.KnowledgeBase{
			"kb_healthy": {KnowledgeBaseID: "kb_healthy", Status: "complete"},
		},
		errs: map[string]error{"kb_broken": errors.New("remote timeout")},
	}

	svc := NewSyncService(retriever, repo)
	summary, err := svc.SyncUser(context.Background(), userID)
	require.NoError(t, err)

	assert.Equal(t, []string{"kb_healthy"}, summary.SyncedIDs)
	assert.Equal(t, domain.KnowledgeBaseStatusComplete, repo.kbs[healthy.ID].Status)
}

func TestSyncUserScopesToUser(t *testing.T) {
	repo := newFakeKBRepo()
	userA := uuid.New()
	userB := uuid.New()
	seedKB(repo, userA, "kb_a")
	seedKB(repo, userB, "kb_b")

	retriever := &fakeKBRetriever{remote: map[string]*retell.KnowledgeBase{
		"kb_a": {KnowledgeBaseID: "kb_a", Status: "complete"},
		"kb_b": {KnowledgeBaseID: "kb_b", Status: "complete"},
	}}

	svc := NewSyncService(retriever, repo)
	summary, err := svc.SyncUser(context.Background(), userA)
	require.NoError(t, err)
	assert.Equal(t, []string{"kb_a"}, summary.SyncedIDs)
}

package pipeline

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hn-insight/apperrors"
	"hn-insight/eventbus"
	"hn-insight/models"
	"hn-insight/vectorstore/memory"
)

// fakeEmbedder derives a tiny deterministic vector from the text so the store
// never needs a provider.
type fakeEmbedder struct {
	mu    sync.Mutex
	calls int
	// failFor makes EmbedBatch fail when any text contains the substring.
	failFor string
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	out := make([][]float32, len(texts))
	for i, t := range texts {
		if f.failFor != "" && strings.Contains(t, f.failFor) {
			return nil, apperrors.Upstream(nil, "provider rejected input")
		}
		var sum float32
		for _, r := range t {
			sum += float32(r % 13)
		}
		out[i] = []float32{sum, float32(len(t)), 1}
	}
	return out, nil
}

func article(id, title string) models.Article {
	return models.Article{
		ID:        id,
		Title:     title,
		Score:     100,
		Timestamp: 1724400000,
		Topic:     "AI/ML",
		Content:   strings.Repeat("A sentence about transformer models and inference. ", 30),
		TopComments: []models.Comment{
			{ID: id + "-c1", Author: "commenter", Text: "insightful remark about " + title, Score: 50},
		},
	}
}

func TestIngestArticleAddsDocuments(t *testing.T) {
	store := memory.New(&fakeEmbedder{})
	p := New(store)

	outcome, docs, err := p.IngestArticle(context.Background(), article("a1", "First"), false)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAdded, outcome)
	assert.Greater(t, docs, 0)

	exists, err := store.Exists(context.Background(), "a1")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestIngestArticleIsIdempotent(t *testing.T) {
	store := memory.New(&fakeEmbedder{})
	p := New(store)
	ctx := context.Background()

	outcome, docs, err := p.IngestArticle(ctx, article("a1", "First"), false)
	require.NoError(t, err)
	require.Equal(t, OutcomeAdded, outcome)

	statsBefore, err := store.Stats(ctx)
	require.NoError(t, err)

	outcome, skippedDocs, err := p.IngestArticle(ctx, article("a1", "First"), false)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, outcome)
	assert.Equal(t, 0, skippedDocs)
	assert.Greater(t, docs, 0)

	statsAfter, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, statsBefore.TotalDocuments, statsAfter.TotalDocuments)
}

func TestIngestArticleForceReplacesDocumentSet(t *testing.T) {
	store := memory.New(&fakeEmbedder{})
	p := New(store)
	ctx := context.Background()

	long := article("a1", "First")
	_, firstCount, err := p.IngestArticle(ctx, long, false)
	require.NoError(t, err)

	// Shorter content produces fewer chunks; force must replace, not append.
	short := long
	short.Content = "One short paragraph."
	outcome, secondCount, err := p.IngestArticle(ctx, short, true)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, outcome)
	assert.Less(t, secondCount, firstCount)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, secondCount, stats.TotalDocuments)
}

func TestIngestArticleRejectsInvalidInput(t *testing.T) {
	store := memory.New(&fakeEmbedder{})
	p := New(store)

	bad := article("", "No ID")
	outcome, _, err := p.IngestArticle(context.Background(), bad, false)
	require.Error(t, err)
	assert.Equal(t, OutcomeFailed, outcome)
	assert.True(t, apperrors.IsValidation(err))
}

func TestIngestBatchIsolatesFailures(t *testing.T) {
	store := memory.New(&fakeEmbedder{failFor: "poison"})
	p := New(store, WithWorkers(2))

	articles := []models.Article{
		article("a1", "Fine"),
		article("a2", "poison pill"),
		article("a3", "Also fine"),
	}

	report := p.IngestBatch(context.Background(), articles, false)
	assert.Equal(t, 2, report.Added)
	assert.Equal(t, 0, report.Skipped)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, "a2", report.Failed[0].ArticleID)
	assert.NotEmpty(t, report.Failed[0].Reason)
	assert.Greater(t, report.TotalDocuments, 0)
}

func TestIngestBatchSkipsKnownArticles(t *testing.T) {
	store := memory.New(&fakeEmbedder{})
	p := New(store)
	ctx := context.Background()

	articles := []models.Article{article("a1", "First"), article("a2", "Second")}
	first := p.IngestBatch(ctx, articles, false)
	assert.Equal(t, 2, first.Added)

	second := p.IngestBatch(ctx, articles, false)
	assert.Equal(t, 0, second.Added)
	assert.Equal(t, 2, second.Skipped)
	assert.Equal(t, 0, second.TotalDocuments)
}

func TestIngestBatchPublishesEvents(t *testing.T) {
	store := memory.New(&fakeEmbedder{})
	bus := &captureBus{}
	p := New(store, WithPublisher(bus))

	p.IngestBatch(context.Background(), []models.Article{article("a1", "First")}, false)

	events := bus.events()
	require.Len(t, events, 1)
	assert.Equal(t, "a1", events[0].ArticleID)
	assert.Equal(t, string(OutcomeAdded), events[0].Outcome)
	assert.NotEmpty(t, events[0].ID)
	assert.Greater(t, events[0].Documents, 0)
}

func TestIngestBatchRespectsCancellation(t *testing.T) {
	store := memory.New(&fakeEmbedder{})
	p := New(store, WithWorkers(1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	articles := []models.Article{article("a1", "First"), article("a2", "Second")}
	report := p.IngestBatch(ctx, articles, false)
	assert.Equal(t, 0, report.Added)
	assert.Empty(t, report.Failed)
}

type captureBus struct {
	mu  sync.Mutex
	evs []eventbus.Event
}

func (b *captureBus) Publish(ctx context.Context, topic string, event eventbus.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.evs = append(b.evs, event)
	return nil
}

func (b *captureBus) Close() {}

func (b *captureBus) events() []eventbus.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]eventbus.Event, len(b.evs))
	copy(out, b.evs)
	return out
}

package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hn-insight/apperrors"
	"hn-insight/models"
	"hn-insight/planner"
	"hn-insight/vectorstore"
	"hn-insight/vectorstore/memory"
)

// fixedEmbedder returns the same vector for any input so ranking is decided
// purely by the stored documents.
type fixedEmbedder struct {
	vector []float32
}

func (f fixedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return f.vector, nil
}

func (f fixedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vector
	}
	return out, nil
}

func searchDoc(articleID, topic string, score int, embedding []float32) models.Document {
	return models.Document{
		ID:        models.DocumentID(articleID, models.DocTypeArticleChunk, 0),
		ArticleID: articleID,
		DocType:   models.DocTypeArticleChunk,
		Text:      "body of " + articleID,
		Embedding: embedding,
		Metadata: models.Metadata{
			ArticleID: articleID,
			DocType:   models.DocTypeArticleChunk,
			Topic:     topic,
			Score:     score,
			Timestamp: time.Date(2026, 8, 23, 0, 0, 0, 0, time.UTC).Unix(),
			Title:     "Title " + articleID,
		},
	}
}

func newSearchFixture(t *testing.T, docs []models.Document) *SearchService {
	t.Helper()
	store := memory.New(nil)
	require.NoError(t, store.AddDocuments(context.Background(), docs))
	pl := planner.New()
	pl.Now = func() time.Time { return time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC) }
	return NewSearchService(store, fixedEmbedder{vector: []float32{1, 0}}, pl)
}

func TestSearchRanksByDistance(t *testing.T) {
	svc := newSearchFixture(t, []models.Document{
		searchDoc("near", "Science", 10, []float32{1, 0}),
		searchDoc("far", "Science", 10, []float32{0, 1}),
	})

	results, err := svc.Search(context.Background(), SearchRequest{Query: "tail call optimization"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "near", results[0].Document.ArticleID)
	assert.Greater(t, results[0].Similarity, results[1].Similarity)
}

func TestSearchAppliesPlannedTopicFilter(t *testing.T) {
	svc := newSearchFixture(t, []models.Document{
		searchDoc("sci", "Science", 10, []float32{1, 0}),
		searchDoc("db", "Databases", 10, []float32{1, 0}),
	})

	// "science" triggers the topic heuristic.
	results, err := svc.Search(context.Background(), SearchRequest{Query: "science breakthroughs"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "sci", results[0].Document.ArticleID)
}

func TestSearchExplicitFilterOverridesPlan(t *testing.T) {
	svc := newSearchFixture(t, []models.Document{
		searchDoc("sci", "Science", 10, []float32{1, 0}),
		searchDoc("db", "Databases", 10, []float32{1, 0}),
	})

	results, err := svc.Search(context.Background(), SearchRequest{
		Query:  "science breakthroughs",
		Filter: vectorstore.Filter{"topic": vectorstore.Eq("Databases")},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "db", results[0].Document.ArticleID)
}

func TestSearchHonorsPlannedResultCount(t *testing.T) {
	var docs []models.Document
	for _, id := range []string{"a1", "a2", "a3", "a4"} {
		docs = append(docs, searchDoc(id, "Science", 10, []float32{1, 0}))
	}
	svc := newSearchFixture(t, docs)

	results, err := svc.Search(context.Background(), SearchRequest{Query: "top 2 science stories"})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestSearchExplicitKWins(t *testing.T) {
	var docs []models.Document
	for _, id := range []string{"a1", "a2", "a3", "a4"} {
		docs = append(docs, searchDoc(id, "Science", 10, []float32{1, 0}))
	}
	svc := newSearchFixture(t, docs)

	results, err := svc.Search(context.Background(), SearchRequest{Query: "top 2 science stories", K: 3})
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	svc := newSearchFixture(t, nil)
	_, err := svc.Search(context.Background(), SearchRequest{Query: "   "})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestSearchRejectsMalformedFilter(t *testing.T) {
	svc := newSearchFixture(t, nil)
	_, err := svc.Search(context.Background(), SearchRequest{
		Query:  "anything",
		Filter: vectorstore.Filter{"title": vectorstore.Gte(3)},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestSearchResultOmitsEmbedding(t *testing.T) {
	svc := newSearchFixture(t, []models.Document{
		searchDoc("a1", "Science", 10, []float32{1, 0}),
	})

	results, err := svc.Search(context.Background(), SearchRequest{Query: "science"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Title a1", results[0].Document.Title)
	assert.Equal(t, "Science", results[0].Document.Topic)
}

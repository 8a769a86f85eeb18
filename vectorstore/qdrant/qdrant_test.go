package qdrant

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hn-insight/apperrors"
	"hn-insight/models"
	"hn-insight/vectorstore"
)

func TestPointIDIsDeterministic(t *testing.T) {
	a := PointID("41000001_article_chunk_0")
	b := PointID("41000001_article_chunk_0")
	c := PointID("41000001_article_chunk_1")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	// UUID form, so qdrant accepts it as a point id.
	assert.Len(t, a, 36)
}

func TestPayloadRoundTrip(t *testing.T) {
	doc := models.Document{
		ID:         "a1_top_comment_0",
		ArticleID:  "a1",
		DocType:    models.DocTypeTopComment,
		ChunkIndex: 0,
		Text:       "a comment",
		Metadata: models.Metadata{
			ArticleID:     "a1",
			DocType:       models.DocTypeTopComment,
			Topic:         "AI/ML",
			Tags:          []string{"llm"},
			Score:         42,
			Timestamp:     1724400000,
			Source:        "https://example.com",
			Title:         "Title",
			Author:        "author",
			CommentAuthor: "commenter",
			Extra:         map[string]any{"classification_confidence": "high"},
		},
	}

	data, err := json.Marshal(payloadFromDocument(doc))
	require.NoError(t, err)

	got, err := documentFromPayload(data, []float32{1, 2})
	require.NoError(t, err)
	assert.Equal(t, doc.ID, got.ID)
	assert.Equal(t, doc.DocType, got.DocType)
	assert.Equal(t, doc.Metadata.CommentAuthor, got.Metadata.CommentAuthor)
	assert.Equal(t, doc.Metadata.Score, got.Metadata.Score)
	assert.Equal(t, "high", got.Metadata.Extra["classification_confidence"])
	assert.Equal(t, []float32{1, 2}, got.Embedding)
}

func TestTranslateFilterConditions(t *testing.T) {
	f := vectorstore.Filter{
		"topic":    vectorstore.Eq("AI/ML"),
		"score":    vectorstore.Gte(100),
		"doc_type": vectorstore.In([]string{"article_chunk"}),
	}

	translated, err := translateFilter(f)
	require.NoError(t, err)
	must, ok := translated["must"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, must, 3)

	byKey := map[string]map[string]any{}
	for _, cond := range must {
		byKey[cond["key"].(string)] = cond
	}
	assert.Contains(t, byKey["topic"], "match")
	assert.Contains(t, byKey["score"], "range")
	assert.Contains(t, byKey["doc_type"], "match")
}

func TestTranslateFilterUnknownFieldGoesToExtra(t *testing.T) {
	f := vectorstore.Filter{"classification_confidence": vectorstore.Eq("high")}

	translated, err := translateFilter(f)
	require.NoError(t, err)
	must := translated["must"].([]map[string]any)
	require.Len(t, must, 1)
	assert.Equal(t, "extra.classification_confidence", must[0]["key"])
}

func TestTranslateFilterRejectsInvalid(t *testing.T) {
	_, err := translateFilter(vectorstore.Filter{"topic": vectorstore.Gte(1)})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestTranslateFilterEmptyMeansNone(t *testing.T) {
	translated, err := translateFilter(nil)
	require.NoError(t, err)
	assert.Nil(t, translated)
}

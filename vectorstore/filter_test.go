package vectorstore

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hn-insight/apperrors"
	"hn-insight/models"
)

func docWith(meta models.Metadata) models.Document {
	return models.Document{
		ID:        models.DocumentID(meta.ArticleID, meta.DocType, 0),
		ArticleID: meta.ArticleID,
		DocType:   meta.DocType,
		Metadata:  meta,
	}
}

func TestParseFilterLiteralMeansEquality(t *testing.T) {
	f, err := ParseFilter([]byte(`{"topic": "AI/ML"}`))
	require.NoError(t, err)
	require.Contains(t, f, "topic")
	assert.Equal(t, OpEq, f["topic"].Op)
	assert.Equal(t, "AI/ML", f["topic"].Value)
}

func TestParseFilterOperatorObject(t *testing.T) {
	f, err := ParseFilter([]byte(`{"score": {"$gte": 100}, "timestamp": {"$lt": 1724400000}}`))
	require.NoError(t, err)
	assert.Equal(t, OpGte, f["score"].Op)
	assert.Equal(t, OpLt, f["timestamp"].Op)
}

func TestParseFilterRejectsUnknownOperator(t *testing.T) {
	_, err := ParseFilter([]byte(`{"score": {"$near": 100}}`))
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestParseFilterRejectsRangeOnNonNumericField(t *testing.T) {
	_, err := ParseFilter([]byte(`{"topic": {"$gte": "AI/ML"}}`))
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestParseFilterRejectsNonArrayIn(t *testing.T) {
	_, err := ParseFilter([]byte(`{"doc_type": {"$in": "article_chunk"}}`))
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestParseFilterEmptyInputMeansNoFilter(t *testing.T) {
	f, err := ParseFilter(nil)
	require.NoError(t, err)
	assert.Nil(t, f)
}

func TestFilterMatchesConjunction(t *testing.T) {
	f, err := ParseFilter([]byte(`{"topic": "Databases", "score": {"$gte": 100}}`))
	require.NoError(t, err)

	hit := docWith(models.Metadata{
		ArticleID: "a1", DocType: models.DocTypeArticleChunk,
		Topic: "Databases", Score: 150,
	})
	missTopic := docWith(models.Metadata{
		ArticleID: "a2", DocType: models.DocTypeArticleChunk,
		Topic: "Science", Score: 150,
	})
	missScore := docWith(models.Metadata{
		ArticleID: "a3", DocType: models.DocTypeArticleChunk,
		Topic: "Databases", Score: 80,
	})

	assert.True(t, f.Matches(hit))
	assert.False(t, f.Matches(missTopic))
	assert.False(t, f.Matches(missScore))
}

func TestFilterDocTypeIn(t *testing.T) {
	f, err := ParseFilter([]byte(`{"doc_type": {"$in": ["comments_summary", "top_comment"]}}`))
	require.NoError(t, err)

	summary := docWith(models.Metadata{ArticleID: "a1", DocType: models.DocTypeCommentsSummary})
	chunk := docWith(models.Metadata{ArticleID: "a1", DocType: models.DocTypeArticleChunk})

	assert.True(t, f.Matches(summary))
	assert.False(t, f.Matches(chunk))
}

func TestFilterTagsEqualityIsContainment(t *testing.T) {
	f := Filter{"tags": Eq("rust")}

	tagged := docWith(models.Metadata{ArticleID: "a1", Tags: []string{"rust", "compilers"}})
	other := docWith(models.Metadata{ArticleID: "a2", Tags: []string{"go"}})

	assert.True(t, f.Matches(tagged))
	assert.False(t, f.Matches(other))
}

func TestFilterTagsInIsIntersection(t *testing.T) {
	f := Filter{"tags": In([]string{"rust", "zig"})}

	overlap := docWith(models.Metadata{ArticleID: "a1", Tags: []string{"compilers", "zig"}})
	disjoint := docWith(models.Metadata{ArticleID: "a2", Tags: []string{"go", "web"}})
	empty := docWith(models.Metadata{ArticleID: "a3"})

	assert.True(t, f.Matches(overlap))
	assert.False(t, f.Matches(disjoint))
	assert.False(t, f.Matches(empty))
}

func TestFilterUnknownFieldMatchesExtra(t *testing.T) {
	f, err := ParseFilter([]byte(`{"classification_confidence": "high"}`))
	require.NoError(t, err)

	high := docWith(models.Metadata{
		ArticleID: "a1",
		Extra:     map[string]any{"classification_confidence": "high"},
	})
	low := docWith(models.Metadata{
		ArticleID: "a2",
		Extra:     map[string]any{"classification_confidence": "low"},
	})
	absent := docWith(models.Metadata{ArticleID: "a3"})

	assert.True(t, f.Matches(high))
	assert.False(t, f.Matches(low))
	assert.False(t, f.Matches(absent))
}

func TestFilterNumericEqualityAcrossTypes(t *testing.T) {
	// JSON numbers decode to float64; stored scores are ints.
	f, err := ParseFilter([]byte(`{"score": 100}`))
	require.NoError(t, err)

	exact := docWith(models.Metadata{ArticleID: "a1", Score: 100})
	off := docWith(models.Metadata{ArticleID: "a2", Score: 99})

	assert.True(t, f.Matches(exact))
	assert.False(t, f.Matches(off))
}

func TestFilterMarshalRoundTrip(t *testing.T) {
	f := Filter{
		"topic": Eq("AI/ML"),
		"score": Gte(100),
	}
	data, err := json.Marshal(f)
	require.NoError(t, err)

	parsed, err := ParseFilter(data)
	require.NoError(t, err)
	assert.Equal(t, OpEq, parsed["topic"].Op)
	assert.Equal(t, OpGte, parsed["score"].Op)
}

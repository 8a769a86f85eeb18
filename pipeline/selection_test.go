package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hn-insight/models"
)

func selArticles() []models.Article {
	return []models.Article{
		{ID: "a1", Topic: "AI/ML", Score: 50, Timestamp: 100},
		{ID: "a2", Topic: "Science", Score: 300, Timestamp: 200},
		{ID: "a3", Topic: "AI/ML", Score: 120, Timestamp: 300},
		{ID: "a4", Topic: "Databases", Score: 120, Timestamp: 400},
	}
}

func TestSelectByIDsKeepsRequestedOrder(t *testing.T) {
	out := Select(selArticles(), Criteria{IDs: []string{"a3", "a1", "missing"}})
	require.Len(t, out, 2)
	assert.Equal(t, "a3", out[0].ID)
	assert.Equal(t, "a1", out[1].ID)
}

func TestSelectByTopic(t *testing.T) {
	out := Select(selArticles(), Criteria{Topic: "AI/ML"})
	require.Len(t, out, 2)
	assert.Equal(t, "a1", out[0].ID)
	assert.Equal(t, "a3", out[1].ID)
}

func TestSelectRecentTakesHighestScores(t *testing.T) {
	out := Select(selArticles(), Criteria{RecentN: 2})
	require.Len(t, out, 2)
	assert.Equal(t, "a2", out[0].ID)
	// a3 and a4 tie on score; the newer timestamp wins.
	assert.Equal(t, "a4", out[1].ID)
}

func TestSelectZeroCriteriaPassesThrough(t *testing.T) {
	articles := selArticles()
	out := Select(articles, Criteria{})
	assert.Equal(t, articles, out)
	assert.True(t, Criteria{}.IsZero())
	assert.False(t, Criteria{Topic: "AI/ML"}.IsZero())
}

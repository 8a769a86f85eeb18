package planner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hn-insight/apperrors"
	"hn-insight/vectorstore"
)

var fixedNow = time.Date(2026, 8, 24, 15, 30, 0, 0, time.UTC)

func fixedPlanner() *Planner {
	p := New()
	p.Now = func() time.Time { return fixedNow }
	return p
}

func TestPlanTopicKeyword(t *testing.T) {
	plan := fixedPlanner().PlanQuery(context.Background(), "latest rust compiler tricks", Hints{})
	require.Contains(t, plan.Filter, "topic")
	assert.Equal(t, "Programming Languages", plan.Filter["topic"].Value)
}

func TestPlanTopicKeywordNeedsWordBoundary(t *testing.T) {
	// "maintain" must not trigger the "ai" topic.
	plan := fixedPlanner().PlanQuery(context.Background(), "how to maintain software", Hints{})
	assert.NotContains(t, plan.Filter, "topic")
}

func TestPlanPopularImpliesScoreThreshold(t *testing.T) {
	plan := fixedPlanner().PlanQuery(context.Background(), "popular database articles", Hints{})
	require.Contains(t, plan.Filter, "score")
	assert.Equal(t, vectorstore.OpGte, plan.Filter["score"].Op)
	assert.Equal(t, popularScoreThreshold, plan.Filter["score"].Value)
}

func TestPlanExplicitScoreOverridesPopular(t *testing.T) {
	plan := fixedPlanner().PlanQuery(context.Background(), "hot stories with score > 250", Hints{})
	require.Contains(t, plan.Filter, "score")
	assert.Equal(t, 250, plan.Filter["score"].Value)
}

func TestPlanTodayWindow(t *testing.T) {
	plan := fixedPlanner().PlanQuery(context.Background(), "today's security news", Hints{})

	require.Contains(t, plan.Filter, "timestamp")
	dayStart := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, dayStart.Unix(), plan.Filter["timestamp"].Value)
	assert.Equal(t, "Security/Privacy", plan.Filter["topic"].Value)
}

func TestPlanRecentWindow(t *testing.T) {
	plan := fixedPlanner().PlanQuery(context.Background(), "recent science stories", Hints{})
	require.Contains(t, plan.Filter, "timestamp")
	assert.Equal(t, fixedNow.AddDate(0, 0, -recentWindowDays).Unix(), plan.Filter["timestamp"].Value)
}

func TestPlanExplicitDaysWindow(t *testing.T) {
	plan := fixedPlanner().PlanQuery(context.Background(), "startups from the last 7 days", Hints{})
	require.Contains(t, plan.Filter, "timestamp")
	assert.Equal(t, fixedNow.AddDate(0, 0, -7).Unix(), plan.Filter["timestamp"].Value)
}

func TestPlanDocTypeIntent(t *testing.T) {
	comments := fixedPlanner().PlanQuery(context.Background(), "what does the discussion say about rust", Hints{})
	require.Contains(t, comments.Filter, "doc_type")
	assert.Equal(t, vectorstore.OpIn, comments.Filter["doc_type"].Op)

	articles := fixedPlanner().PlanQuery(context.Background(), "articles about rust", Hints{})
	require.Contains(t, articles.Filter, "doc_type")
	assert.Equal(t, vectorstore.OpEq, articles.Filter["doc_type"].Op)
	assert.Equal(t, "article_chunk", articles.Filter["doc_type"].Value)
}

func TestPlanResultCount(t *testing.T) {
	p := fixedPlanner()
	assert.Equal(t, defaultResultCount, p.PlanQuery(context.Background(), "rust stories", Hints{}).K)
	assert.Equal(t, 10, p.PlanQuery(context.Background(), "top 10 rust stories", Hints{}).K)
	assert.Equal(t, maxResultCount, p.PlanQuery(context.Background(), "top 500 rust stories", Hints{}).K)
}

func TestPlanNoIntentYieldsEmptyFilter(t *testing.T) {
	plan := fixedPlanner().PlanQuery(context.Background(), "how do compilers optimize tail calls", Hints{})
	assert.Empty(t, plan.Filter)
	assert.False(t, plan.FromLLM)
}

func TestPlanHintsOverrideInference(t *testing.T) {
	plan := fixedPlanner().PlanQuery(context.Background(), "popular rust stories", Hints{
		Topic:    "Science",
		MinScore: 42,
		DocTypes: []string{"comments_summary", "top_comment"},
	})

	assert.Equal(t, "Science", plan.Filter["topic"].Value)
	assert.Equal(t, 42, plan.Filter["score"].Value)
	assert.Equal(t, vectorstore.OpIn, plan.Filter["doc_type"].Op)
}

type stubGenerator struct {
	reply string
	err   error
}

func (s stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return s.reply, s.err
}

func TestPlanLLMFallback(t *testing.T) {
	p := fixedPlanner()
	p.Generator = stubGenerator{reply: "```json\n{\"topic\": \"Science\", \"score\": {\"$gte\": 50}}\n```"}

	plan := p.PlanQuery(context.Background(), "what came out of the physics lab", Hints{})
	assert.True(t, plan.FromLLM)
	assert.Equal(t, "Science", plan.Filter["topic"].Value)
	assert.Equal(t, vectorstore.OpGte, plan.Filter["score"].Op)
}

func TestPlanLLMFallbackDegradesOnFailure(t *testing.T) {
	p := fixedPlanner()
	p.Generator = stubGenerator{err: apperrors.Upstream(nil, "model offline")}

	plan := p.PlanQuery(context.Background(), "what came out of the physics lab", Hints{})
	assert.Empty(t, plan.Filter)
	assert.False(t, plan.FromLLM)
}

func TestPlanLLMFallbackDropsUnknownTopic(t *testing.T) {
	p := fixedPlanner()
	p.Generator = stubGenerator{reply: `{"topic": "Cooking"}`}

	plan := p.PlanQuery(context.Background(), "best sourdough techniques", Hints{})
	assert.NotContains(t, plan.Filter, "topic")
}

func TestPlanLLMNotConsultedWhenHeuristicsMatch(t *testing.T) {
	p := fixedPlanner()
	p.Generator = stubGenerator{reply: `{"topic": "Science"}`}

	plan := p.PlanQuery(context.Background(), "rust stories", Hints{})
	assert.False(t, plan.FromLLM)
	assert.Equal(t, "Programming Languages", plan.Filter["topic"].Value)
}

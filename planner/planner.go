// Package planner maps free-text query intent into metadata filters. The
// heuristics run first and cost nothing; a text-generation fallback handles
// queries the keyword rules miss, and its failure degrades to an empty filter.
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"hn-insight/logger"
	"hn-insight/models"
	"hn-insight/textgen"
	"hn-insight/vectorstore"
)

const (
	// popularScoreThreshold applies when the query implies high scores
	// without naming a number.
	popularScoreThreshold = 100

	recentWindowDays = 3

	defaultResultCount = 5
	maxResultCount     = 20
)

// topicKeywords maps lowercase query terms to taxonomy topics. Multi-word
// keys are checked before their single-word substrings.
var topicKeywords = []struct {
	keyword string
	topic   string
}{
	{"machine learning", "AI/ML"},
	{"artificial intelligence", "AI/ML"},
	{"deep learning", "AI/ML"},
	{"open source", "Open Source"},
	{"ai", "AI/ML"},
	{"ml", "AI/ML"},
	{"rust", "Programming Languages"},
	{"python", "Programming Languages"},
	{"javascript", "Programming Languages"},
	{"golang", "Programming Languages"},
	{"react", "Web Development"},
	{"vue", "Web Development"},
	{"web", "Web Development"},
	{"database", "Databases"},
	{"sql", "Databases"},
	{"postgres", "Databases"},
	{"security", "Security/Privacy"},
	{"privacy", "Security/Privacy"},
	{"startup", "Startups/Business"},
	{"business", "Startups/Business"},
	{"hardware", "Hardware/IoT"},
	{"iot", "Hardware/IoT"},
	{"science", "Science"},
	{"career", "Career/Jobs"},
	{"jobs", "Career/Jobs"},
}

var (
	scorePattern = regexp.MustCompile(`score\s*>=?\s*(\d+)`)
	daysPattern  = regexp.MustCompile(`last\s+(\d+)\s+days?`)
	countPattern = regexp.MustCompile(`top\s+(\d+)`)
)

// Hints are explicit structured constraints supplied alongside the free-text
// query. A hint always wins over the inferred predicate for the same field.
type Hints struct {
	Topic    string
	DocTypes []string
	MinScore int
	SinceTS  int64
}

// Plan is the planner output: an advisory filter and the result count.
type Plan struct {
	Filter vectorstore.Filter
	K      int
	// FromLLM marks plans whose filter came from the generator fallback
	// rather than the keyword heuristics.
	FromLLM bool
}

type Planner struct {
	// Now is injectable for deterministic recency windows.
	Now func() time.Time
	// Generator, when set, resolves queries the heuristics cannot.
	Generator textgen.Generator
}

func New() *Planner {
	return &Planner{Now: time.Now}
}

func NewWithGenerator(gen textgen.Generator) *Planner {
	return &Planner{Now: time.Now, Generator: gen}
}

// PlanQuery derives a filter from the query text, merges explicit hints on
// top, and extracts the requested result count. A query with no recognized
// intent and no generator yields an empty filter, which callers treat as
// pure semantic search.
func (p *Planner) PlanQuery(ctx context.Context, query string, hints Hints) Plan {
	filter := p.extractSimpleFilters(query)
	plan := Plan{K: extractResultCount(query)}

	if len(filter) == 0 && p.Generator != nil && strings.TrimSpace(query) != "" {
		if llmFilter := p.llmIntentExtraction(ctx, query); len(llmFilter) > 0 {
			filter = llmFilter
			plan.FromLLM = true
		}
	}

	plan.Filter = applyHints(filter, hints, p.now())
	return plan
}

func (p *Planner) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *Planner) extractSimpleFilters(query string) vectorstore.Filter {
	filter := vectorstore.Filter{}
	q := strings.ToLower(query)

	for _, tk := range topicKeywords {
		if containsWord(q, tk.keyword) {
			filter["topic"] = vectorstore.Eq(tk.topic)
			break
		}
	}

	if containsAny(q, "popular", "hot", "trending", "high-scoring", "high scoring") {
		filter["score"] = vectorstore.Gte(popularScoreThreshold)
	}
	if m := scorePattern.FindStringSubmatch(q); m != nil {
		threshold, _ := strconv.Atoi(m[1])
		filter["score"] = vectorstore.Gte(threshold)
	}

	now := p.now()
	if strings.Contains(q, "today") {
		dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		filter["timestamp"] = vectorstore.Gte(dayStart.Unix())
	} else if containsAny(q, "recent", "latest") {
		filter["timestamp"] = vectorstore.Gte(now.AddDate(0, 0, -recentWindowDays).Unix())
	}
	if m := daysPattern.FindStringSubmatch(q); m != nil {
		days, _ := strconv.Atoi(m[1])
		filter["timestamp"] = vectorstore.Gte(now.AddDate(0, 0, -days).Unix())
	}

	if containsAny(q, "comment", "discussion") {
		filter["doc_type"] = vectorstore.In([]string{
			string(models.DocTypeCommentsSummary),
			string(models.DocTypeTopComment),
		})
	} else if containsAny(q, "article", "story") {
		filter["doc_type"] = vectorstore.Eq(string(models.DocTypeArticleChunk))
	}

	if len(filter) == 0 {
		return nil
	}
	return filter
}

// llmIntentExtraction asks the generator for a filter JSON object and parses
// it through the same validation path as caller-supplied filters. Any failure
// along the way logs and returns nil.
func (p *Planner) llmIntentExtraction(ctx context.Context, query string) vectorstore.Filter {
	prompt := fmt.Sprintf(`Analyze the user query below and extract metadata filter conditions.

Available topics: %s

User query: %s

Extract any of the following that apply:
1. topic (must be one of the available topics)
2. score (as {"$gte": number})
3. timestamp (unix seconds, as {"$gte": number})
4. doc_type ("article_chunk", "comments_summary" or "top_comment")

Respond with a single JSON object containing only the applicable fields.
Return only JSON, no other text. Return {} when nothing applies.`,
		strings.Join(models.Topics, ", "), query)

	text, err := p.Generator.Generate(ctx, prompt)
	if err != nil {
		logger.Log.Warnf("query intent extraction failed: %v", err)
		return nil
	}

	cleaned := textgen.CleanJSONResponse(text)
	filter, err := vectorstore.ParseFilter(json.RawMessage(cleaned))
	if err != nil {
		logger.Log.Warnf("query intent produced an invalid filter: %v", err)
		return nil
	}
	if topic, ok := filter["topic"]; ok {
		if name, ok := topic.Value.(string); !ok || !models.IsKnownTopic(name) {
			delete(filter, "topic")
		}
	}
	return filter
}

func applyHints(filter vectorstore.Filter, hints Hints, now time.Time) vectorstore.Filter {
	if filter == nil {
		filter = vectorstore.Filter{}
	}
	if hints.Topic != "" {
		filter["topic"] = vectorstore.Eq(hints.Topic)
	}
	if len(hints.DocTypes) == 1 {
		filter["doc_type"] = vectorstore.Eq(hints.DocTypes[0])
	} else if len(hints.DocTypes) > 1 {
		filter["doc_type"] = vectorstore.In(hints.DocTypes)
	}
	if hints.MinScore > 0 {
		filter["score"] = vectorstore.Gte(hints.MinScore)
	}
	if hints.SinceTS > 0 {
		filter["timestamp"] = vectorstore.Gte(hints.SinceTS)
	}
	if len(filter) == 0 {
		return nil
	}
	return filter
}

func extractResultCount(query string) int {
	if m := countPattern.FindStringSubmatch(strings.ToLower(query)); m != nil {
		count, _ := strconv.Atoi(m[1])
		if count < 1 {
			return defaultResultCount
		}
		return min(count, maxResultCount)
	}
	return defaultResultCount
}

// containsWord matches the keyword on word boundaries so "ai" does not fire
// inside "maintain".
func containsWord(text, keyword string) bool {
	idx := 0
	for {
		pos := strings.Index(text[idx:], keyword)
		if pos < 0 {
			return false
		}
		pos += idx
		before := pos == 0 || isBoundary(text[pos-1])
		afterIdx := pos + len(keyword)
		after := afterIdx == len(text) || isBoundary(text[afterIdx])
		if before && after {
			return true
		}
		idx = pos + 1
	}
}

func isBoundary(b byte) bool {
	return !(b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9')
}

func containsAny(text string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

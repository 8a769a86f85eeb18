package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"hn-insight/apperrors"
	"hn-insight/logger"
	"hn-insight/models"
	"hn-insight/textgen"
	"hn-insight/vectorstore"
)

const (
	// Composite ranking weights: raw score dominates, recency nudges.
	scoreWeight   = 0.7
	recencyWeight = 0.3

	// candidateScanLimit bounds the metadata scan feeding the ranking.
	candidateScanLimit = 500
)

// ProfileStore is the consumer-side view of profile persistence.
type ProfileStore interface {
	GetOrCreate(ctx context.Context, userID string) (*models.UserProfile, error)
}

// Recommendation is one ranked article with its ranking score.
type Recommendation struct {
	ArticleID string   `json:"article_id"`
	Title     string   `json:"title"`
	Source    string   `json:"source"`
	Topic     string   `json:"topic"`
	Tags      []string `json:"tags"`
	Score     int      `json:"score"`
	Timestamp int64    `json:"timestamp"`
	// Rank is the composite ranking score in [0, 1].
	Rank float64 `json:"rank"`
}

// Recommendations is the full response; Summary is empty when the
// text-generation collaborator is unavailable.
type Recommendations struct {
	UserID  string           `json:"user_id"`
	Items   []Recommendation `json:"items"`
	Summary string           `json:"summary,omitempty"`
}

// RecommendRequest tunes one recommendation run. Zero values fall back to the
// profile's preferences.
type RecommendRequest struct {
	UserID   string
	Days     int
	TopK     int
	MinScore int
}

type RecommendService struct {
	store     vectorstore.Store
	profiles  ProfileStore
	generator textgen.Generator
	now       func() time.Time
}

func NewRecommendService(store vectorstore.Store, profiles ProfileStore, gen textgen.Generator) *RecommendService {
	return &RecommendService{store: store, profiles: profiles, generator: gen, now: time.Now}
}

// Recommend builds a metadata filter from the user's profile, scans matching
// documents, deduplicates them into articles and ranks by the composite
// score. Recommendation is filter-driven; no query embedding is involved.
func (s *RecommendService) Recommend(ctx context.Context, req RecommendRequest) (*Recommendations, error) {
	if req.UserID == "" {
		return nil, apperrors.Validation("user id must not be empty")
	}

	profile, err := s.profiles.GetOrCreate(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	days := req.Days
	if days <= 0 {
		days = profile.Preferences.TimeRangeDays
	}
	if days <= 0 {
		days = 3
	}
	topK := req.TopK
	if topK <= 0 {
		topK = profile.Preferences.RecommendationCount
	}
	if topK <= 0 {
		topK = 5
	}
	minScore := req.MinScore
	if minScore <= 0 {
		minScore = profile.Preferences.MinScore
	}

	now := s.now()
	filter := vectorstore.Filter{
		"timestamp": vectorstore.Gte(now.AddDate(0, 0, -days).Unix()),
	}
	if len(profile.Interests) > 0 {
		filter["tags"] = vectorstore.In(profile.Interests)
	}
	if minScore > 0 {
		filter["score"] = vectorstore.Gte(minScore)
	}

	docs, err := s.store.Scan(ctx, filter, candidateScanLimit)
	if err != nil {
		return nil, err
	}

	items := rankCandidates(docs, now, days, topK)

	logger.InfoWithFields("recommendations built", logger.Fields{
		"user_id":    req.UserID,
		"candidates": len(docs),
		"returned":   len(items),
		"days":       days,
	})

	result := &Recommendations{UserID: req.UserID, Items: items}
	if s.generator != nil && len(items) > 0 {
		result.Summary = s.summarize(ctx, profile, items)
	}
	return result, nil
}

// rankCandidates deduplicates documents into one candidate per article and
// orders them by composite score. Score normalization divides by the highest
// candidate score so the best article anchors at weight 0.7.
func rankCandidates(docs []models.Document, now time.Time, days, topK int) []Recommendation {
	type candidate struct {
		rec Recommendation
	}
	byArticle := make(map[string]*candidate)
	maxScore := 0
	for _, doc := range docs {
		m := doc.Metadata
		if existing, ok := byArticle[doc.ArticleID]; ok {
			if m.Score > existing.rec.Score {
				existing.rec.Score = m.Score
			}
			continue
		}
		byArticle[doc.ArticleID] = &candidate{rec: Recommendation{
			ArticleID: doc.ArticleID,
			Title:     m.Title,
			Source:    m.Source,
			Topic:     m.Topic,
			Tags:      m.Tags,
			Score:     m.Score,
			Timestamp: m.Timestamp,
		}}
	}
	for _, c := range byArticle {
		if c.rec.Score > maxScore {
			maxScore = c.rec.Score
		}
	}

	window := float64(days) * 24 * float64(time.Hour.Seconds())
	items := make([]Recommendation, 0, len(byArticle))
	for _, c := range byArticle {
		rec := c.rec
		normScore := 0.0
		if maxScore > 0 {
			normScore = float64(rec.Score) / float64(maxScore)
		}
		age := float64(now.Unix() - rec.Timestamp)
		recency := 1 - age/window
		if recency < 0 {
			recency = 0
		} else if recency > 1 {
			recency = 1
		}
		rec.Rank = scoreWeight*normScore + recencyWeight*recency
		items = append(items, rec)
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Rank != items[j].Rank {
			return items[i].Rank > items[j].Rank
		}
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].ArticleID < items[j].ArticleID
	})

	if len(items) > topK {
		items = items[:topK]
	}
	return items
}

// summarize asks the generator for a short rationale. Failures degrade to an
// empty summary, never to a failed request.
func (s *RecommendService) summarize(ctx context.Context, profile *models.UserProfile, items []Recommendation) string {
	var sb strings.Builder
	for i, item := range items {
		fmt.Fprintf(&sb, "%d. %s (topic: %s, score: %d)\n", i+1, item.Title, item.Topic, item.Score)
	}

	prompt := fmt.Sprintf(`The user is interested in: %s

Recommended articles:
%s
Write 2-3 sentences explaining why these articles match the user's interests.
Plain text, no markdown.`, strings.Join(profile.Interests, ", "), sb.String())

	text, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		logger.Log.Warnf("recommendation summary generation failed: %v", err)
		return ""
	}
	return text
}

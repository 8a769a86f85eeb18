// Package services holds the query-side application logic: semantic search,
// filter-driven recommendations and more-like-this lookups.
package services

import (
	"context"
	"strings"

	"hn-insight/apperrors"
	"hn-insight/embedding"
	"hn-insight/logger"
	"hn-insight/models"
	"hn-insight/planner"
	"hn-insight/vectorstore"
)

// SearchResult is one ranked hit with both the raw distance and its
// similarity mapping.
type SearchResult struct {
	Document   SearchDocument `json:"document"`
	Distance   float64        `json:"distance"`
	Similarity float64        `json:"similarity"`
}

// SearchDocument is the wire shape of a hit, with the embedding stripped.
type SearchDocument struct {
	ID         string   `json:"id"`
	ArticleID  string   `json:"article_id"`
	DocType    string   `json:"doc_type"`
	ChunkIndex int      `json:"chunk_index"`
	Text       string   `json:"text"`
	Topic      string   `json:"topic"`
	Tags       []string `json:"tags"`
	Score      int      `json:"score"`
	Timestamp  int64    `json:"timestamp"`
	Source     string   `json:"source"`
	Title      string   `json:"title"`
}

// SearchRequest is a semantic query with an optional explicit filter. The
// explicit filter overrides whatever the planner infers per field.
type SearchRequest struct {
	Query  string
	Filter vectorstore.Filter
	K      int
}

type SearchService struct {
	store    vectorstore.Store
	embedder embedding.Embedder
	planner  *planner.Planner
}

func NewSearchService(store vectorstore.Store, embedder embedding.Embedder, pl *planner.Planner) *SearchService {
	if pl == nil {
		pl = planner.New()
	}
	return &SearchService{store: store, embedder: embedder, planner: pl}
}

// Search plans a filter from the query text, merges the caller's explicit
// filter on top, embeds the query and runs the ranked search.
func (s *SearchService) Search(ctx context.Context, req SearchRequest) ([]SearchResult, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, apperrors.Validation("query must not be empty")
	}
	if err := req.Filter.Validate(); err != nil {
		return nil, err
	}

	plan := s.planner.PlanQuery(ctx, req.Query, planner.Hints{})
	filter := mergeFilters(plan.Filter, req.Filter)

	k := req.K
	if k <= 0 {
		k = plan.K
	}

	vector, err := s.embedder.Embed(ctx, req.Query)
	if err != nil {
		return nil, err
	}

	matches, err := s.store.SimilaritySearch(ctx, vector, k, filter)
	if err != nil {
		return nil, err
	}

	logger.DebugWithFields("search complete", logger.Fields{
		"query":   req.Query,
		"k":       k,
		"filters": len(filter),
		"hits":    len(matches),
	})

	results := make([]SearchResult, 0, len(matches))
	for _, m := range matches {
		results = append(results, SearchResult{
			Document:   toSearchDocument(m.Document),
			Distance:   m.Distance,
			Similarity: vectorstore.Similarity(m.Distance),
		})
	}
	return results, nil
}

// mergeFilters layers the explicit filter over the planned one; explicit
// predicates win per field.
func mergeFilters(planned, explicit vectorstore.Filter) vectorstore.Filter {
	if len(explicit) == 0 {
		return planned
	}
	if len(planned) == 0 {
		return explicit
	}
	merged := make(vectorstore.Filter, len(planned)+len(explicit))
	for field, pred := range planned {
		merged[field] = pred
	}
	for field, pred := range explicit {
		merged[field] = pred
	}
	return merged
}

func toSearchDocument(doc models.Document) SearchDocument {
	return SearchDocument{
		ID:         doc.ID,
		ArticleID:  doc.ArticleID,
		DocType:    string(doc.DocType),
		ChunkIndex: doc.ChunkIndex,
		Text:       doc.Text,
		Topic:      doc.Metadata.Topic,
		Tags:       doc.Metadata.Tags,
		Score:      doc.Metadata.Score,
		Timestamp:  doc.Metadata.Timestamp,
		Source:     doc.Metadata.Source,
		Title:      doc.Metadata.Title,
	}
}

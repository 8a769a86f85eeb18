// Package memory provides a brute-force in-memory vector store. It backs
// local runs and tests; production deployments use the qdrant store.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"hn-insight/apperrors"
	"hn-insight/embedding"
	"hn-insight/models"
	"hn-insight/vectorstore"
)

type Store struct {
	mu       sync.RWMutex
	embedder embedding.Embedder // may be nil when all documents arrive embedded

	docs        map[string]models.Document
	byArticle   map[string]map[string]struct{}
	lastUpdated time.Time
}

func New(embedder embedding.Embedder) *Store {
	return &Store{
		embedder:  embedder,
		docs:      make(map[string]models.Document),
		byArticle: make(map[string]map[string]struct{}),
	}
}

func (s *Store) Exists(ctx context.Context, articleID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byArticle[articleID]) > 0, nil
}

func (s *Store) AddDocuments(ctx context.Context, docs []models.Document) error {
	if len(docs) == 0 {
		return nil
	}

	// Embed outside the lock; reads stay lock-free during provider calls.
	var missingIdx []int
	var missingTexts []string
	for i, doc := range docs {
		if doc.ID == "" {
			return apperrors.Validation("document without id")
		}
		if len(doc.Embedding) == 0 {
			missingIdx = append(missingIdx, i)
			missingTexts = append(missingTexts, doc.Text)
		}
	}
	if len(missingIdx) > 0 {
		if s.embedder == nil {
			return apperrors.Validation("%d documents arrived without embeddings and the store has no embedder", len(missingIdx))
		}
		vectors, err := s.embedder.EmbedBatch(ctx, missingTexts)
		if err != nil {
			return err
		}
		for j, i := range missingIdx {
			docs[i].Embedding = vectors[j]
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, doc := range docs {
		s.docs[doc.ID] = doc
		ids, ok := s.byArticle[doc.ArticleID]
		if !ok {
			ids = make(map[string]struct{})
			s.byArticle[doc.ArticleID] = ids
		}
		ids[doc.ID] = struct{}{}
	}
	s.lastUpdated = time.Now()
	return nil
}

func (s *Store) DeleteByArticle(ctx context.Context, articleID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.byArticle[articleID]
	if len(ids) == 0 {
		return 0, nil
	}
	for id := range ids {
		delete(s.docs, id)
	}
	delete(s.byArticle, articleID)
	s.lastUpdated = time.Now()
	return len(ids), nil
}

func (s *Store) SimilaritySearch(ctx context.Context, vector []float32, k int, filter vectorstore.Filter) ([]vectorstore.Match, error) {
	if k <= 0 {
		k = 5
	}
	if filter != nil {
		if err := filter.Validate(); err != nil {
			return nil, err
		}
	}

	s.mu.RLock()
	matches := make([]vectorstore.Match, 0, len(s.docs))
	for _, doc := range s.docs {
		if filter != nil && !filter.Matches(doc) {
			continue
		}
		matches = append(matches, vectorstore.Match{
			Document: doc,
			Distance: cosineDistance(vector, doc.Embedding),
		})
	}
	s.mu.RUnlock()

	vectorstore.SortMatches(matches)
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

func (s *Store) Scan(ctx context.Context, filter vectorstore.Filter, limit int) ([]models.Document, error) {
	if filter != nil {
		if err := filter.Validate(); err != nil {
			return nil, err
		}
	}

	s.mu.RLock()
	out := make([]models.Document, 0)
	for _, doc := range s.docs {
		if filter != nil && !filter.Matches(doc) {
			continue
		}
		out = append(out, doc)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) Stats(ctx context.Context) (*vectorstore.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &vectorstore.Stats{
		TotalDocuments: len(s.docs),
		ByDocType:      make(map[string]int),
		ByTopic:        make(map[string]int),
		LastUpdated:    s.lastUpdated,
	}
	for _, doc := range s.docs {
		stats.ByDocType[string(doc.DocType)]++
		if doc.Metadata.Topic != "" {
			stats.ByTopic[doc.Metadata.Topic]++
		}
	}
	return stats, nil
}

// cosineDistance returns 1 - cosine similarity; orthogonal or zero vectors
// yield 1, identical direction yields 0.
func cosineDistance(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}

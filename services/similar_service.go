package services

import (
	"context"
	"sort"

	"hn-insight/apperrors"
	"hn-insight/embedding"
	"hn-insight/logger"
	"hn-insight/models"
	"hn-insight/vectorstore"
)

// overscanFactor widens the k-NN search to survive self-matches and multiple
// chunks of the same article.
const overscanFactor = 3

// SimilarArticle is one "more like this" hit. Similarity lies in [0, 1].
type SimilarArticle struct {
	ArticleID  string  `json:"article_id"`
	Title      string  `json:"title"`
	Source     string  `json:"source"`
	Topic      string  `json:"topic"`
	Score      int     `json:"score"`
	Similarity float64 `json:"similarity"`
}

type SimilarService struct {
	store    vectorstore.Store
	embedder embedding.Embedder
}

func NewSimilarService(store vectorstore.Store, embedder embedding.Embedder) *SimilarService {
	return &SimilarService{store: store, embedder: embedder}
}

// SimilarTo finds articles related to the target. The target's lead body
// chunk is the representative embedding and the search runs over body chunks
// only; results never include the target itself, and multiple matched chunks
// of one article collapse into that article's best similarity.
func (s *SimilarService) SimilarTo(ctx context.Context, articleID string, topK int) ([]SimilarArticle, error) {
	if articleID == "" {
		return nil, apperrors.Validation("article id must not be empty")
	}
	if topK <= 0 {
		topK = 5
	}

	vector, err := s.representativeEmbedding(ctx, articleID)
	if err != nil {
		return nil, err
	}

	bodyOnly := vectorstore.Filter{"doc_type": vectorstore.Eq(string(models.DocTypeArticleChunk))}
	matches, err := s.store.SimilaritySearch(ctx, vector, topK*overscanFactor, bodyOnly)
	if err != nil {
		return nil, err
	}

	best := make(map[string]SimilarArticle)
	for _, m := range matches {
		if m.Document.ArticleID == articleID {
			continue
		}
		sim := vectorstore.Similarity(m.Distance)
		meta := m.Document.Metadata
		if existing, ok := best[m.Document.ArticleID]; !ok || sim > existing.Similarity {
			best[m.Document.ArticleID] = SimilarArticle{
				ArticleID:  m.Document.ArticleID,
				Title:      meta.Title,
				Source:     meta.Source,
				Topic:      meta.Topic,
				Score:      meta.Score,
				Similarity: sim,
			}
		}
	}

	results := make([]SimilarArticle, 0, len(best))
	for _, a := range best {
		results = append(results, a)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ArticleID < results[j].ArticleID
	})
	if len(results) > topK {
		results = results[:topK]
	}

	logger.DebugWithFields("similar articles resolved", logger.Fields{
		"article_id": articleID,
		"matches":    len(matches),
		"returned":   len(results),
	})
	return results, nil
}

// representativeEmbedding resolves the target's lead article_chunk embedding,
// embedding its text on demand when the stored vector is absent.
func (s *SimilarService) representativeEmbedding(ctx context.Context, articleID string) ([]float32, error) {
	docs, err := s.store.Scan(ctx, vectorstore.Filter{
		"article_id": vectorstore.Eq(articleID),
		"doc_type":   vectorstore.Eq(string(models.DocTypeArticleChunk)),
	}, 0)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, apperrors.NotFound("article %s has no indexed body chunks", articleID)
	}

	lead := docs[0]
	for _, doc := range docs[1:] {
		if doc.ChunkIndex < lead.ChunkIndex {
			lead = doc
		}
	}
	if len(lead.Embedding) > 0 {
		return lead.Embedding, nil
	}
	return s.embedder.Embed(ctx, lead.Text)
}

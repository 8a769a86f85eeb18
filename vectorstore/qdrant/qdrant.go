// Package qdrant implements the vector store on a Qdrant collection through
// its REST API. The collection uses cosine distance; point ids are UUIDv5
// digests of the deterministic document id, so re-ingestion upserts instead
// of duplicating.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"

	"hn-insight/apperrors"
	"hn-insight/embedding"
	"hn-insight/models"
	"hn-insight/vectorstore"
)

// pointNamespace is the fixed UUIDv5 namespace for document point ids.
var pointNamespace = uuid.MustParse("5f2b9d6e-8a41-4c4e-9b7a-3d1f0c2e6a58")

// statsSampleLimit caps the scroll used to aggregate per-type/topic counts.
const statsSampleLimit = 1000

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

type Store struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client
	embedder   embedding.Embedder
}

func New(cfg Config, embedder embedding.Embedder) *Store {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Store{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
		embedder:   embedder,
	}
}

// EnsureCollection creates the collection if missing. Qdrant answers 200 for
// an existing collection with the same schema.
func (s *Store) EnsureCollection(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return apperrors.Validation("invalid embedding dimension %d", dimension)
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	var out json.RawMessage
	return s.call(ctx, http.MethodPut, s.collectionPath(""), body, &out)
}

func (s *Store) Exists(ctx context.Context, articleID string) (bool, error) {
	count, err := s.countByArticle(ctx, articleID)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) AddDocuments(ctx context.Context, docs []models.Document) error {
	if len(docs) == 0 {
		return nil
	}

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

	points := make([]map[string]any, len(docs))
	for i, doc := range docs {
		points[i] = map[string]any{
			"id":      PointID(doc.ID),
			"vector":  doc.Embedding,
			"payload": payloadFromDocument(doc),
		}
	}
	body := map[string]any{"points": points}
	var out json.RawMessage
	return s.call(ctx, http.MethodPut, s.collectionPath("/points?wait=true"), body, &out)
}

func (s *Store) DeleteByArticle(ctx context.Context, articleID string) (int, error) {
	count, err := s.countByArticle(ctx, articleID)
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, nil
	}
	body := map[string]any{"filter": articleFilter(articleID)}
	var out json.RawMessage
	if err := s.call(ctx, http.MethodPost, s.collectionPath("/points/delete?wait=true"), body, &out); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) SimilaritySearch(ctx context.Context, vector []float32, k int, filter vectorstore.Filter) ([]vectorstore.Match, error) {
	if k <= 0 {
		k = 5
	}
	qf, err := translateFilter(filter)
	if err != nil {
		return nil, err
	}

	body := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}
	if qf != nil {
		body["filter"] = qf
	}

	var out struct {
		Result []struct {
			Score   float64         `json:"score"`
			Payload json.RawMessage `json:"payload"`
		} `json:"result"`
	}
	if err := s.call(ctx, http.MethodPost, s.collectionPath("/points/search"), body, &out); err != nil {
		return nil, err
	}

	matches := make([]vectorstore.Match, 0, len(out.Result))
	for _, hit := range out.Result {
		doc, err := documentFromPayload(hit.Payload, nil)
		if err != nil {
			return nil, err
		}
		// Cosine scores are similarities in [-1, 1]; rank by distance.
		matches = append(matches, vectorstore.Match{Document: doc, Distance: 1 - hit.Score})
	}
	vectorstore.SortMatches(matches)
	return matches, nil
}

func (s *Store) Scan(ctx context.Context, filter vectorstore.Filter, limit int) ([]models.Document, error) {
	qf, err := translateFilter(filter)
	if err != nil {
		return nil, err
	}

	var docs []models.Document
	var offset any
	for {
		page := 256
		if limit > 0 && limit-len(docs) < page {
			page = limit - len(docs)
		}
		body := map[string]any{
			"limit":        page,
			"with_payload": true,
			"with_vector":  true,
		}
		if qf != nil {
			body["filter"] = qf
		}
		if offset != nil {
			body["offset"] = offset
		}

		var out struct {
			Result struct {
				Points []struct {
					Payload json.RawMessage `json:"payload"`
					Vector  []float32       `json:"vector"`
				} `json:"points"`
				NextPageOffset any `json:"next_page_offset"`
			} `json:"result"`
		}
		if err := s.call(ctx, http.MethodPost, s.collectionPath("/points/scroll"), body, &out); err != nil {
			return nil, err
		}
		for _, p := range out.Result.Points {
			doc, err := documentFromPayload(p.Payload, p.Vector)
			if err != nil {
				return nil, err
			}
			docs = append(docs, doc)
		}
		if out.Result.NextPageOffset == nil || len(out.Result.Points) == 0 {
			break
		}
		if limit > 0 && len(docs) >= limit {
			break
		}
		offset = out.Result.NextPageOffset
	}

	// Scroll order follows point ids; re-sort by document id for determinism.
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

func (s *Store) Stats(ctx context.Context) (*vectorstore.Stats, error) {
	total, err := s.count(ctx, nil)
	if err != nil {
		return nil, err
	}

	// Aggregate doc types and topics over a bounded sample, mirroring the
	// collection-stats behavior of the previous system.
	body := map[string]any{
		"limit":        statsSampleLimit,
		"with_payload": map[string]any{"include": []string{"doc_type", "topic"}},
	}
	var out struct {
		Result struct {
			Points []struct {
				Payload struct {
					DocType string `json:"doc_type"`
					Topic   string `json:"topic"`
				} `json:"payload"`
			} `json:"points"`
		} `json:"result"`
	}
	if err := s.call(ctx, http.MethodPost, s.collectionPath("/points/scroll"), body, &out); err != nil {
		return nil, err
	}

	stats := &vectorstore.Stats{
		TotalDocuments: total,
		ByDocType:      make(map[string]int),
		ByTopic:        make(map[string]int),
		LastUpdated:    time.Now(),
	}
	for _, p := range out.Result.Points {
		if p.Payload.DocType != "" {
			stats.ByDocType[p.Payload.DocType]++
		}
		if p.Payload.Topic != "" {
			stats.ByTopic[p.Payload.Topic]++
		}
	}
	return stats, nil
}

// PointID derives the qdrant point id from a document id. Qdrant only allows
// UUIDs or unsigned integers, so the deterministic document key is hashed
// into a UUIDv5.
func PointID(documentID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(documentID)).String()
}

func (s *Store) countByArticle(ctx context.Context, articleID string) (int, error) {
	return s.count(ctx, articleFilter(articleID))
}

func (s *Store) count(ctx context.Context, filter map[string]any) (int, error) {
	body := map[string]any{"exact": true}
	if filter != nil {
		body["filter"] = filter
	}
	var out struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	if err := s.call(ctx, http.MethodPost, s.collectionPath("/points/count"), body, &out); err != nil {
		return 0, err
	}
	return out.Result.Count, nil
}

func articleFilter(articleID string) map[string]any {
	return map[string]any{
		"must": []map[string]any{
			{"key": "article_id", "match": map[string]any{"value": articleID}},
		},
	}
}

func (s *Store) collectionPath(suffix string) string {
	return fmt.Sprintf("%s/collections/%s%s", s.url, s.collection, suffix)
}

func (s *Store) call(ctx context.Context, method, url string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return apperrors.Validation("encode qdrant request: %v", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(data))
	if err != nil {
		return apperrors.Upstream(err, "build qdrant request")
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return apperrors.Upstream(err, "qdrant %s %s", method, url)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.Upstream(err, "read qdrant response")
	}
	if resp.StatusCode >= 300 {
		snippet := string(payload)
		if len(snippet) > 256 {
			snippet = snippet[:256]
		}
		return apperrors.Upstream(nil, "qdrant %s %s: %s: %s", method, url, resp.Status, snippet)
	}
	if out != nil {
		if err := json.Unmarshal(payload, out); err != nil {
			return apperrors.Upstream(err, "decode qdrant response")
		}
	}
	return nil
}

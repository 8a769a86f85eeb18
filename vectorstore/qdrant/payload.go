package qdrant

import (
	"encoding/json"

	"hn-insight/apperrors"
	"hn-insight/models"
	"hn-insight/vectorstore"
)

// payload is the flat document representation stored next to each point.
type payload struct {
	DocumentID    string         `json:"document_id"`
	ArticleID     string         `json:"article_id"`
	DocType       string         `json:"doc_type"`
	ChunkIndex    int            `json:"chunk_index"`
	Text          string         `json:"text"`
	Topic         string         `json:"topic"`
	Tags          []string       `json:"tags"`
	Score         int            `json:"score"`
	Timestamp     int64          `json:"timestamp"`
	Source        string         `json:"source"`
	Title         string         `json:"title"`
	Author        string         `json:"author"`
	CommentAuthor string         `json:"comment_author,omitempty"`
	Extra         map[string]any `json:"extra,omitempty"`
}

func payloadFromDocument(doc models.Document) payload {
	return payload{
		DocumentID:    doc.ID,
		ArticleID:     doc.ArticleID,
		DocType:       string(doc.DocType),
		ChunkIndex:    doc.ChunkIndex,
		Text:          doc.Text,
		Topic:         doc.Metadata.Topic,
		Tags:          doc.Metadata.Tags,
		Score:         doc.Metadata.Score,
		Timestamp:     doc.Metadata.Timestamp,
		Source:        doc.Metadata.Source,
		Title:         doc.Metadata.Title,
		Author:        doc.Metadata.Author,
		CommentAuthor: doc.Metadata.CommentAuthor,
		Extra:         doc.Metadata.Extra,
	}
}

func documentFromPayload(raw json.RawMessage, vector []float32) (models.Document, error) {
	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return models.Document{}, apperrors.Upstream(err, "decode qdrant payload")
	}
	return models.Document{
		ID:         p.DocumentID,
		ArticleID:  p.ArticleID,
		DocType:    models.DocType(p.DocType),
		ChunkIndex: p.ChunkIndex,
		Text:       p.Text,
		Embedding:  vector,
		Metadata: models.Metadata{
			ArticleID:     p.ArticleID,
			DocType:       models.DocType(p.DocType),
			Topic:         p.Topic,
			Tags:          p.Tags,
			Score:         p.Score,
			Timestamp:     p.Timestamp,
			Source:        p.Source,
			Title:         p.Title,
			Author:        p.Author,
			CommentAuthor: p.CommentAuthor,
			Extra:         p.Extra,
		},
	}, nil
}

// translateFilter maps the filter language onto qdrant's must conditions.
// The filter is validated first so rejects happen before any network call.
func translateFilter(f vectorstore.Filter) (map[string]any, error) {
	if len(f) == 0 {
		return nil, nil
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}

	must := make([]map[string]any, 0, len(f))
	for field, pred := range f {
		key := field
		if !isKnownPayloadField(field) {
			key = "extra." + field
		}
		switch pred.Op {
		case vectorstore.OpEq:
			must = append(must, map[string]any{
				"key": key, "match": map[string]any{"value": pred.Value},
			})
		case vectorstore.OpIn:
			must = append(must, map[string]any{
				"key": key, "match": map[string]any{"any": pred.Value},
			})
		case vectorstore.OpGte, vectorstore.OpLte, vectorstore.OpGt, vectorstore.OpLt:
			op := map[vectorstore.Op]string{
				vectorstore.OpGte: "gte", vectorstore.OpLte: "lte",
				vectorstore.OpGt: "gt", vectorstore.OpLt: "lt",
			}[pred.Op]
			must = append(must, map[string]any{
				"key": key, "range": map[string]any{op: pred.Value},
			})
		}
	}
	return map[string]any{"must": must}, nil
}

func isKnownPayloadField(field string) bool {
	switch field {
	case "document_id", "article_id", "doc_type", "chunk_index", "topic",
		"tags", "score", "timestamp", "source", "title", "author", "comment_author":
		return true
	default:
		return false
	}
}

package models

import (
	"fmt"

	"hn-insight/apperrors"
)

// DocType categorizes the origin of a retrievable unit.
type DocType string

const (
	DocTypeArticleChunk    DocType = "article_chunk"
	DocTypeCommentsSummary DocType = "comments_summary"
	DocTypeTopComment      DocType = "top_comment"
)

// ParseDocType validates a wire-form doc type.
func ParseDocType(s string) (DocType, error) {
	switch DocType(s) {
	case DocTypeArticleChunk, DocTypeCommentsSummary, DocTypeTopComment:
		return DocType(s), nil
	default:
		return "", apperrors.Validation("unknown doc type %q", s)
	}
}

// Metadata is a denormalized snapshot of the article at ingestion time.
// It is never mutated in place; a force-update replaces the whole document set.
type Metadata struct {
	ArticleID string   `json:"article_id"`
	DocType   DocType  `json:"doc_type"`
	Topic     string   `json:"topic"`
	Tags      []string `json:"tags"`
	// Score is the article score, except on top_comment documents where it is
	// the comment's own score.
	Score     int    `json:"score"`
	Timestamp int64  `json:"timestamp"`
	Source    string `json:"source"`
	Title     string `json:"title"`
	Author    string `json:"author"`

	CommentAuthor string `json:"comment_author,omitempty"`

	// Extra holds passthrough fields the filter language treats as opaque
	// equality predicates.
	Extra map[string]any `json:"extra,omitempty"`
}

// Document is the retrievable unit: a text chunk with its embedding and a
// metadata snapshot of the owning article.
type Document struct {
	ID         string    `json:"id"`
	ArticleID  string    `json:"article_id"`
	DocType    DocType   `json:"doc_type"`
	ChunkIndex int       `json:"chunk_index"`
	Text       string    `json:"text"`
	Embedding  []float32 `json:"embedding,omitempty"`
	Metadata   Metadata  `json:"metadata"`
}

// DocumentID derives the deterministic document key. Re-deriving it from the
// same inputs always yields the same id, across processes and re-ingestions.
func DocumentID(articleID string, docType DocType, chunkIndex int) string {
	return fmt.Sprintf("%s_%s_%d", articleID, docType, chunkIndex)
}

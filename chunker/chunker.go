// Package chunker turns a classified article and its discussion material into
// retrievable documents with deterministic identity.
package chunker

import (
	"fmt"

	"hn-insight/models"
)

const (
	articleChunkSize    = 1000
	articleChunkOverlap = 200

	// Comment summaries are stored whole below this length and re-split with
	// larger chunks above it, to preserve conversation context.
	commentsSplitThreshold = 4000
	commentsChunkSize      = 2000
	commentsChunkOverlap   = 300

	topCommentMinScore = 20
	maxTopComments     = 5
)

type Chunker struct {
	articleSplitter  *Splitter
	commentsSplitter *Splitter
}

func New() *Chunker {
	return &Chunker{
		articleSplitter: NewSplitter(articleChunkSize, articleChunkOverlap,
			[]string{"\n\n", "\n", ".", "?", "!", " ", ""}),
		commentsSplitter: NewSplitter(commentsChunkSize, commentsChunkOverlap,
			[]string{"\n---\n", "\n", ".", "?", "!"}),
	}
}

// Chunk produces the article's full document set, unsaved and without
// embeddings. It never fails on well-formed input: an empty body simply
// yields no article_chunk documents.
func (c *Chunker) Chunk(article models.Article) []models.Document {
	var docs []models.Document

	docs = append(docs, c.chunkBody(article)...)
	docs = append(docs, c.chunkCommentsSummary(article)...)
	docs = append(docs, c.promoteTopComments(article)...)

	return docs
}

func (c *Chunker) chunkBody(article models.Article) []models.Document {
	if article.Content == "" {
		return nil
	}

	full := fmt.Sprintf("Title: %s\n\n%s", article.Title, article.Content)
	chunks := c.articleSplitter.Split(full)

	docs := make([]models.Document, 0, len(chunks))
	for i, chunk := range chunks {
		text := chunk
		if i > 0 {
			// Later chunks lose the title context, so restore it.
			text = fmt.Sprintf("Article: %s\n\n%s", article.Title, chunk)
		}
		docs = append(docs, newDocument(article, models.DocTypeArticleChunk, i, text, article.Score))
	}
	return docs
}

func (c *Chunker) chunkCommentsSummary(article models.Article) []models.Document {
	summary := article.CommentsSummary
	if summary == "" {
		return nil
	}

	if len(summary) <= commentsSplitThreshold {
		text := fmt.Sprintf("Comments summary:\n\n%s", summary)
		return []models.Document{newDocument(article, models.DocTypeCommentsSummary, 0, text, article.Score)}
	}

	chunks := c.commentsSplitter.Split(summary)
	docs := make([]models.Document, 0, len(chunks))
	for i, chunk := range chunks {
		text := fmt.Sprintf("Comments summary (part %d):\n\n%s", i+1, chunk)
		docs = append(docs, newDocument(article, models.DocTypeCommentsSummary, i, text, article.Score))
	}
	return docs
}

func (c *Chunker) promoteTopComments(article models.Article) []models.Document {
	var docs []models.Document
	for _, comment := range article.TopComments {
		if len(docs) == maxTopComments {
			break
		}
		if comment.Text == "" || comment.Score < topCommentMinScore {
			continue
		}
		idx := len(docs)
		text := fmt.Sprintf("High-score comment (score %d) by %s:\n\n%s",
			comment.Score, comment.Author, comment.Text)
		// The comment's own score goes into metadata, not the article's.
		doc := newDocument(article, models.DocTypeTopComment, idx, text, comment.Score)
		doc.Metadata.CommentAuthor = comment.Author
		docs = append(docs, doc)
	}
	return docs
}

func newDocument(article models.Article, docType models.DocType, chunkIndex int, text string, score int) models.Document {
	tags := make([]string, len(article.Tags))
	copy(tags, article.Tags)

	meta := models.Metadata{
		ArticleID: article.ID,
		DocType:   docType,
		Topic:     article.Topic,
		Tags:      tags,
		Score:     score,
		Timestamp: article.Timestamp,
		Source:    article.URL,
		Title:     article.Title,
		Author:    article.Author,
	}
	if article.Confidence != "" {
		meta.Extra = map[string]any{"classification_confidence": article.Confidence}
	}

	return models.Document{
		ID:         models.DocumentID(article.ID, docType, chunkIndex),
		ArticleID:  article.ID,
		DocType:    docType,
		ChunkIndex: chunkIndex,
		Text:       text,
		Metadata:   meta,
	}
}

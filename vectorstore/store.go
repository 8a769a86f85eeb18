// Package vectorstore abstracts the similarity index: batch upsert keyed by
// deterministic document ids, delete-by-article, filtered nearest-neighbor
// search, existence checks and collection statistics.
package vectorstore

import (
	"context"
	"sort"
	"time"

	"hn-insight/models"
)

// Match is one search hit. Distance is ascending-better (0 means identical).
type Match struct {
	Document models.Document
	Distance float64
}

// Stats describes the current collection contents.
type Stats struct {
	TotalDocuments int            `json:"total_documents"`
	ByDocType      map[string]int `json:"by_doc_type"`
	ByTopic        map[string]int `json:"by_topic"`
	LastUpdated    time.Time      `json:"last_updated"`
}

// Store is the similarity index abstraction. Writes are eventually consistent;
// reads are lock-free and may observe in-flight force-updates.
type Store interface {
	// Exists reports whether at least one document of the article is stored.
	Exists(ctx context.Context, articleID string) (bool, error)

	// AddDocuments batch-upserts documents keyed by their deterministic ids,
	// computing embeddings for documents that arrive without one.
	AddDocuments(ctx context.Context, docs []models.Document) error

	// DeleteByArticle removes the article's whole document set. Deleting an
	// absent article returns 0, not an error.
	DeleteByArticle(ctx context.Context, articleID string) (int, error)

	// SimilaritySearch pre-filters candidates with the filter, then ranks by
	// vector distance ascending; ties break by metadata score descending,
	// then document id ascending.
	SimilaritySearch(ctx context.Context, vector []float32, k int, filter Filter) ([]Match, error)

	// Scan returns documents matching the filter without vector ranking,
	// ordered by document id for determinism. limit <= 0 means no limit.
	Scan(ctx context.Context, filter Filter, limit int) ([]models.Document, error)

	Stats(ctx context.Context) (*Stats, error)
}

// Similarity maps a distance into [0, 1]: 1.0 means identical, values
// approach 0 as distance grows.
func Similarity(distance float64) float64 {
	if distance < 0 {
		distance = 0
	}
	return 1 / (1 + distance)
}

// SortMatches orders hits by distance ascending, breaking ties by metadata
// score descending, then document id ascending. Shared by implementations so
// ranking stays deterministic regardless of backend ordering.
func SortMatches(matches []Match) {
	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Distance != b.Distance {
			return a.Distance < b.Distance
		}
		if a.Document.Metadata.Score != b.Document.Metadata.Score {
			return a.Document.Metadata.Score > b.Document.Metadata.Score
		}
		return a.Document.ID < b.Document.ID
	})
}

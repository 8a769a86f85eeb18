// Package eventbus publishes ingestion lifecycle events so downstream
// consumers (feeds, caches, analytics) learn about document set changes.
// Only the producer side lives here; consumers are external.
package eventbus

import (
	"context"
	"time"
)

// TopicArticlesIngested carries one event per processed article.
const TopicArticlesIngested = "articles.ingested"

// Event is the kafka message payload for an ingestion outcome.
type Event struct {
	ID         string    `json:"id"`
	ArticleID  string    `json:"article_id"`
	Outcome    string    `json:"outcome"`
	Documents  int       `json:"documents"`
	Error      string    `json:"error,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher abstracts event publication.
type Publisher interface {
	Publish(ctx context.Context, topic string, event Event) error
	Close()
}

// Nop discards events; used when no broker is configured.
type Nop struct{}

func (Nop) Publish(ctx context.Context, topic string, event Event) error { return nil }
func (Nop) Close()                                                       {}

// Package pipeline coordinates chunking, embedding and store writes with
// idempotent and forced-update semantics, per-item failure isolation and
// bounded parallelism.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"hn-insight/apperrors"
	"hn-insight/chunker"
	"hn-insight/eventbus"
	"hn-insight/logger"
	"hn-insight/models"
	"hn-insight/vectorstore"
)

// Outcome is the per-article result of one ingestion run.
type Outcome string

const (
	OutcomeAdded   Outcome = "added"
	OutcomeSkipped Outcome = "skipped"
	OutcomeUpdated Outcome = "updated"
	OutcomeFailed  Outcome = "failed"
)

// Failure records one isolated per-item error.
type Failure struct {
	ArticleID string `json:"article_id"`
	Reason    string `json:"reason"`
}

// BatchReport aggregates a batch run. Failures preserve input order.
type BatchReport struct {
	Added          int       `json:"added"`
	Skipped        int       `json:"skipped"`
	Updated        int       `json:"updated"`
	Failed         []Failure `json:"failed"`
	TotalDocuments int       `json:"total_documents"`
}

type Pipeline struct {
	store   vectorstore.Store
	chunker *chunker.Chunker
	locks   *keyedLocks
	workers int
	bus     eventbus.Publisher
}

type Option func(*Pipeline)

// WithWorkers bounds concurrent article ingestions.
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithPublisher wires ingestion outcome events onto the bus.
func WithPublisher(bus eventbus.Publisher) Option {
	return func(p *Pipeline) {
		if bus != nil {
			p.bus = bus
		}
	}
}

func New(store vectorstore.Store, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:   store,
		chunker: chunker.New(),
		locks:   newKeyedLocks(),
		workers: 4,
		bus:     eventbus.Nop{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// IngestArticle runs the per-article state machine:
//
//	absent            -> chunk, embed, add       -> added
//	present, !force   -> no writes               -> skipped
//	present, force    -> delete then reinsert    -> updated
//
// Operations on the same articleId are serialized by a keyed lock so a
// concurrent force-update can never interleave its delete with another's
// insert. Returns the outcome and the number of documents written.
func (p *Pipeline) IngestArticle(ctx context.Context, article models.Article, force bool) (Outcome, int, error) {
	if err := article.Validate(); err != nil {
		return OutcomeFailed, 0, err
	}

	unlock := p.locks.lock(article.ID)
	defer unlock()

	exists, err := p.store.Exists(ctx, article.ID)
	if err != nil {
		return OutcomeFailed, 0, err
	}

	if exists && !force {
		logger.Log.Debugf("article %s already ingested, skipping", article.ID)
		return OutcomeSkipped, 0, nil
	}

	docs := p.chunker.Chunk(article)
	if len(docs) == 0 {
		logger.Log.Warnf("article %s produced no documents", article.ID)
		return OutcomeSkipped, 0, nil
	}

	outcome := OutcomeAdded
	if exists {
		// The delete must complete before reinsertion so the document set
		// stays all-or-nothing.
		removed, err := p.store.DeleteByArticle(ctx, article.ID)
		if err != nil {
			return OutcomeFailed, 0, err
		}
		logger.Log.Debugf("article %s: removed %d documents before reinsertion", article.ID, removed)
		outcome = OutcomeUpdated
	}

	if err := p.store.AddDocuments(ctx, docs); err != nil {
		return OutcomeFailed, 0, err
	}

	logger.InfoWithFields("article ingested", logger.Fields{
		"article_id": article.ID,
		"outcome":    string(outcome),
		"documents":  len(docs),
	})
	return outcome, len(docs), nil
}

// IngestBatch processes articles independently on a bounded worker pool.
// One article's failure is recorded and never aborts the batch. Cancellation
// stops scheduling between per-article units; an article already past its
// delete always runs to completion.
func (p *Pipeline) IngestBatch(ctx context.Context, articles []models.Article, force bool) *BatchReport {
	type result struct {
		outcome Outcome
		docs    int
		err     error
		done    bool
	}
	results := make([]result, len(articles))

	g := new(errgroup.Group)
	g.SetLimit(p.workers)
	for i := range articles {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			// The article unit ignores batch cancellation once started; the
			// delete+reinsert pair must not be interrupted mid-way.
			outcome, docs, err := p.ingestIsolated(context.WithoutCancel(ctx), articles[i], force)
			results[i] = result{outcome: outcome, docs: docs, err: err, done: true}
			return nil
		})
	}
	g.Wait()

	report := &BatchReport{}
	for i, r := range results {
		if !r.done {
			continue
		}
		switch {
		case r.err != nil:
			report.Failed = append(report.Failed, Failure{
				ArticleID: articles[i].ID,
				Reason:    r.err.Error(),
			})
		case r.outcome == OutcomeAdded:
			report.Added++
		case r.outcome == OutcomeUpdated:
			report.Updated++
		default:
			report.Skipped++
		}
		report.TotalDocuments += r.docs
	}

	logger.InfoWithFields("batch ingestion complete", logger.Fields{
		"total":     len(articles),
		"added":     report.Added,
		"skipped":   report.Skipped,
		"updated":   report.Updated,
		"failed":    len(report.Failed),
		"documents": report.TotalDocuments,
	})
	return report
}

// IngestSelected applies the selection criteria, then runs the batch in the
// selection's order.
func (p *Pipeline) IngestSelected(ctx context.Context, articles []models.Article, criteria Criteria, force bool) *BatchReport {
	return p.IngestBatch(ctx, Select(articles, criteria), force)
}

// ingestIsolated converts the per-article error into a failure record and
// publishes the outcome event.
func (p *Pipeline) ingestIsolated(ctx context.Context, article models.Article, force bool) (Outcome, int, error) {
	outcome, docs, err := p.IngestArticle(ctx, article, force)
	if err != nil {
		logger.ErrorWithFields("article ingestion failed", logger.Fields{
			"article_id": article.ID,
			"kind":       apperrors.KindOf(err).String(),
			"error":      err.Error(),
		})
	}

	event := eventbus.Event{
		ID:         uuid.NewString(),
		ArticleID:  article.ID,
		Outcome:    string(outcome),
		Documents:  docs,
		OccurredAt: time.Now(),
	}
	if err != nil {
		event.Error = err.Error()
	}
	if pubErr := p.bus.Publish(ctx, eventbus.TopicArticlesIngested, event); pubErr != nil {
		logger.Log.Warnf("publish ingestion event for %s: %v", article.ID, pubErr)
	}

	return outcome, docs, err
}

// Batch ingestion CLI: loads articles from mongo, selects a subset and runs
// them through the pipeline.
//
// Usage:
//
//	ingest                 ingest every stored article, skipping known ones
//	ingest -force          re-ingest everything, replacing document sets
//	ingest -topic AI/ML    ingest one taxonomy topic
//	ingest -ids a,b,c      ingest specific article ids, in that order
//	ingest -recent 50      ingest the 50 highest-scored articles
package main

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	"hn-insight/config"
	"hn-insight/db"
	"hn-insight/embedding"
	"hn-insight/eventbus"
	"hn-insight/logger"
	"hn-insight/models"
	"hn-insight/pipeline"
	"hn-insight/repositories"
	"hn-insight/vectorstore/qdrant"
)

func main() {
	force := flag.Bool("force", false, "replace document sets of already ingested articles")
	topic := flag.String("topic", "", "only ingest articles of this taxonomy topic")
	ids := flag.String("ids", "", "comma-separated article ids to ingest")
	recent := flag.Int("recent", 0, "only ingest the N highest-scored articles")
	flag.Parse()

	config.InitApp()
	cfg := config.GetConfig()
	logger.Init(cfg.Logging.Level)

	if *topic != "" && !models.IsKnownTopic(*topic) {
		logger.Log.Errorf("unknown topic %q, expected one of %s", *topic, strings.Join(models.Topics, ", "))
		return
	}

	ctx := context.Background()

	if err := db.Init(ctx); err != nil {
		logger.Log.Errorf("mongo init failed: %v", err)
		return
	}

	embedder, err := buildEmbedder(ctx, cfg)
	if err != nil {
		logger.Log.Errorf("embedder init failed: %v", err)
		return
	}

	store := qdrant.New(qdrant.Config{
		URL:        cfg.Qdrant.URL,
		Collection: cfg.Qdrant.Collection,
		Timeout:    time.Duration(cfg.Qdrant.TimeoutSeconds) * time.Second,
	}, embedder)
	if err := store.EnsureCollection(ctx, cfg.Embedding.Dimension); err != nil {
		logger.Log.Errorf("qdrant collection init failed: %v", err)
		return
	}

	opts := []pipeline.Option{pipeline.WithWorkers(cfg.Pipeline.Workers)}
	if cfg.Kafka.Brokers != "" {
		bus, err := eventbus.NewKafkaPublisher(cfg.Kafka.Brokers)
		if err != nil {
			logger.Log.Warnf("kafka unavailable, ingestion events disabled: %v", err)
		} else {
			defer bus.Close()
			opts = append(opts, pipeline.WithPublisher(bus))
		}
	}
	p := pipeline.New(store, opts...)

	articles := repositories.NewArticleRepository(db.Database())
	var candidates []models.Article
	if *topic != "" {
		candidates, err = articles.FindByTopic(ctx, *topic)
	} else {
		candidates, err = articles.FindAll(ctx)
	}
	if err != nil {
		logger.Log.Errorf("load articles: %v", err)
		return
	}
	if len(candidates) == 0 {
		logger.Log.Warn("no articles to ingest")
		return
	}

	criteria := pipeline.Criteria{RecentN: *recent}
	if *ids != "" {
		for _, id := range strings.Split(*ids, ",") {
			if id = strings.TrimSpace(id); id != "" {
				criteria.IDs = append(criteria.IDs, id)
			}
		}
	}

	start := time.Now()
	report := p.IngestSelected(ctx, candidates, criteria, *force)

	fmt.Printf("ingestion finished in %s\n", time.Since(start).Round(time.Millisecond))
	fmt.Printf("  added:     %d\n", report.Added)
	fmt.Printf("  updated:   %d\n", report.Updated)
	fmt.Printf("  skipped:   %d\n", report.Skipped)
	fmt.Printf("  failed:    %d\n", len(report.Failed))
	fmt.Printf("  documents: %d\n", report.TotalDocuments)
	for _, f := range report.Failed {
		fmt.Printf("    %s: %s\n", f.ArticleID, f.Reason)
	}
}

func buildEmbedder(ctx context.Context, cfg config.AppConfig) (embedding.Embedder, error) {
	timeout := time.Duration(cfg.Embedding.TimeoutSeconds) * time.Second

	var inner embedding.Embedder
	switch cfg.Embedding.Provider {
	case "openai":
		inner = embedding.NewOpenAIEmbedder(cfg.Embedding.Model, timeout)
	default:
		gemini, err := embedding.NewGeminiEmbedder(ctx, cfg.Embedding.Model, timeout)
		if err != nil {
			return nil, err
		}
		inner = gemini
	}
	return embedding.WithRetry(inner, 3, 500*time.Millisecond), nil
}

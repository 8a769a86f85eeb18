package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"hn-insight/cmd/api/router"
	"hn-insight/config"
	"hn-insight/db"
	"hn-insight/embedding"
	"hn-insight/eventbus"
	"hn-insight/logger"
	"hn-insight/pipeline"
	"hn-insight/planner"
	"hn-insight/repositories"
	"hn-insight/services"
	"hn-insight/textgen"
	"hn-insight/vectorstore/qdrant"
)

func main() {
	config.InitApp()
	cfg := config.GetConfig()
	logger.Init(cfg.Logging.Level)

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

	var generator textgen.Generator
	if gen, err := textgen.NewGemini(ctx, cfg.TextGen.Model, time.Duration(cfg.TextGen.TimeoutSeconds)*time.Second); err != nil {
		logger.Log.Warnf("text generation unavailable, continuing without it: %v", err)
	} else {
		generator = gen
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

	articles := repositories.NewArticleRepository(db.Database())
	profiles := repositories.NewProfileRepository(db.Database())

	r := router.New(router.Deps{
		Store:     store,
		Pipeline:  pipeline.New(store, opts...),
		Search:    services.NewSearchService(store, embedder, planner.NewWithGenerator(generator)),
		Similar:   services.NewSimilarService(store, embedder),
		Recommend: services.NewRecommendService(store, profiles, generator),
		Articles:  articles,
		Profiles:  profiles,
	})

	addr := fmt.Sprintf(":%d", cfg.API.Port)
	logger.Log.Infof("api listening on %s", addr)
	if err := r.Run(addr); err != nil && err != http.ErrServerClosed {
		logger.Log.Errorf("api server stopped: %v", err)
	}
}

// buildEmbedder assembles the provider with its retry policy and, when redis
// is configured, the embedding cache.
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

	embedder := embedding.WithRetry(inner, 3, 500*time.Millisecond)

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		ttl := time.Duration(cfg.Redis.TTLMinutes) * time.Minute
		if ttl <= 0 {
			ttl = 24 * time.Hour
		}
		embedder = embedding.WithCache(embedder, rdb, ttl)
	}
	return embedder, nil
}

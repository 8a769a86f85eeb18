package db

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"hn-insight/config"
	"hn-insight/logger"
)

var (
	clientOnce sync.Once
	client     *mongo.Client
	db         *mongo.Database
)

// Init initializes the global Mongo client and database using config values.
func Init(ctx context.Context) error {
	var initErr error
	clientOnce.Do(func() {
		cfg := config.GetConfig()
		uri := cfg.Mongo.URI
		if uri == "" {
			// Fallback for local docker-compose default
			uri = "mongodb://localhost:27017"
		}

		cl, err := mongo.NewClient(options.Client().ApplyURI(uri))
		if err != nil {
			initErr = err
			return
		}
		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := cl.Connect(ctx); err != nil {
			initErr = err
			return
		}
		// Ping to verify connection
		if err := cl.Ping(ctx, readpref.Primary()); err != nil {
			initErr = err
			return
		}
		client = cl
		db = client.Database(cfg.Mongo.DBName)

		if err := ensureIndexes(ctx, db); err != nil {
			initErr = err
			return
		}
		logger.Log.Info("MongoDB connected and indexes ensured")
	})
	return initErr
}

func Client() *mongo.Client     { return client }
func Database() *mongo.Database { return db }

func ensureIndexes(ctx context.Context, d *mongo.Database) error {
	// articles: unique article_id, plus topic and score for selection queries
	{
		if _, err := d.Collection("articles").Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: "article_id", Value: 1}},
			Options: options.Index().SetName("uniq_article_id").SetUnique(true),
		}); err != nil {
			return err
		}
		if _, err := d.Collection("articles").Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: "topic", Value: 1}},
			Options: options.Index().SetName("idx_topic"),
		}); err != nil {
			return err
		}
		if _, err := d.Collection("articles").Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: "score", Value: -1}},
			Options: options.Index().SetName("idx_score_desc"),
		}); err != nil {
			return err
		}
	}

	// user_profiles: unique user_id
	{
		if _, err := d.Collection("user_profiles").Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetName("uniq_user_id").SetUnique(true),
		}); err != nil {
			return err
		}
	}

	return nil
}
